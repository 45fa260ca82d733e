// Package scanner implements Falcon's dependency scanner (§4.2): a single
// bottom-up pass over the graph that hashes every source, walks rules in
// topological order comparing each one's inputs and output hashes against
// the cache, and leaves the dirty-propagation invariant holding for every
// node when it returns.
package scanner
