// Package watchman defines the narrow interface Falcon would use to
// subscribe to filesystem change notifications from a watchman daemon,
// rather than relying solely on scan-time hashing.
//
// Wiring a real watchman client is explicitly out of scope (see spec.md's
// framing of the filesystem change-notification client as an external
// collaborator); this package gives the collaborator a concrete seam -
// the Client interface - and a NoopClient that satisfies it without
// talking to a real watchman socket, so internal/daemon can depend on the
// interface rather than on no client at all.
package watchman
