// Package graphparser loads a build description (by default named
// makefile.json, per Configuration's "graph" key) into an
// *internal/graph.Graph.
//
// The wire format is a flat list of rules, each a set of input paths, a
// set of output paths, a shell command (empty for a phony rule), and an
// optional depfile path:
//
//	{
//	  "rules": [
//	    {"inputs": ["a.c"], "outputs": ["a.o"], "command": "cc -c a.c -o a.o"},
//	    {"inputs": ["a.o"], "outputs": ["app"], "command": "cc a.o -o app"},
//	    {"outputs": ["all"], "inputs": ["app"], "command": ""}
//	  ]
//	}
//
// There is no third-party JSON schema in play here worth pulling a library
// in for — it's a flat, fixed shape decoded once at startup — so this uses
// encoding/json directly, the same way the rest of the corpus reaches for
// stdlib JSON for its own fixed wire shapes.
package graphparser
