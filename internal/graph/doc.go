// Package graph implements Falcon's node/rule dependency graph: the data
// model, dirty-state propagation, and the visitor protocol used by the
// Makefile and Graphviz printers.
//
// A Graph owns every Node and Rule it contains in two stable-address arenas
// (graph.nodes, graph.rules); every other reference — Node.producer,
// Node.consumers, Rule.inputs, Rule.outputs — is a non-owning pointer into
// one of those arenas, valid for the Graph's lifetime. This mirrors the
// original's arena-plus-handle discipline: the node/rule topology forms a
// cycle of raw references (a node points at the rule that produced it,
// which points back at its input nodes, ...), so nothing outside the Graph
// may assume it can free a Node or Rule on its own.
package graph
