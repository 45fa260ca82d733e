// Package printers renders a *graph.Graph in the two human-facing formats
// the daemon's "module" option supports: a Makefile-compatible listing and
// a Graphviz "dot" document. Both are graph.Visitor implementations, data-
// driven off the graph's node/rule state rather than hand-walking the
// topology themselves.
package printers
