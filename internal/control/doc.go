// Package control implements Falcon's control RPC surface (§6) as a small
// HTTP+JSON API: startBuild, getStatus, getDirtySources, setDirty,
// interruptBuild, shutdown, and getGraphviz.
//
// This is a fixed, seven-route, request/response surface with no streaming
// and no schema beyond flat JSON objects — exactly the shape the corpus
// reaches for net/http and encoding/json directly rather than a router or
// RPC framework; none of the example repos pull in a routing library for
// anything this small, so this package doesn't either.
package control
