// Package daemon wires the graph, scanner, cache, builder, stream server,
// and control server into a single running process, behind the one coarse
// mutex §5 specifies for graph and builder state.
package daemon
