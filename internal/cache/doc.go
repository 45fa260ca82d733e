// Package cache implements Falcon's cache collaborator: given a path, it
// returns a content hash, and remembers the hash it last returned so the
// scanner can tell whether a file changed since the previous run.
//
// This is intentionally the thin slice of "on-disk build-artifact cache"
// functionality the engine needs to decide dirtiness; content-addressed
// artifact storage (retrieving a previously-built output by hash instead of
// rebuilding it) is out of scope per the engine's Non-goals.
package cache
