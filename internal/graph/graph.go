package graph

import (
	"fmt"
	"sort"

	"github.com/falconbuild/falcon/internal/falconerr"
)

// New returns an empty Graph.
func New() *Graph {
	return &Graph{nodes: make(map[string]*Node)}
}

// AddNode creates and stores a new source node for path if one does not
// already exist, and returns it either way. A node added this way starts
// out as a source (no producer) until a rule names it as an output.
func (g *Graph) AddNode(path string) *Node {
	if n, ok := g.nodes[path]; ok {
		return n
	}
	n := &Node{path: path, state: OutOfDate}
	g.nodes[path] = n
	return n
}

// GetNode returns the node at path, or nil if the graph has none.
func (g *Graph) GetNode(path string) *Node {
	return g.nodes[path]
}

// Nodes returns every node in the graph, keyed by path. The returned map
// must not be mutated by the caller.
func (g *Graph) Nodes() map[string]*Node { return g.nodes }

// Rules returns every rule in the graph, in the order they were added.
func (g *Graph) Rules() []*Rule { return g.rules }

// AddRule creates a rule linking inputs to outputs with the given command
// and depfile, wiring the non-owning producer/consumer back-references
// (invariant 3: a non-source node has exactly one producer, enforced by the
// overwrite check below). All input and output paths are created as nodes
// first if they don't already exist (invariant 2).
func (g *Graph) AddRule(inputPaths, outputPaths []string, command, depfile string) (*Rule, error) {
	rule := &Rule{command: command, depfile: depfile, state: OutOfDate}

	for _, p := range inputPaths {
		n := g.AddNode(p)
		rule.inputs = append(rule.inputs, n)
		n.addConsumer(rule)
	}
	for _, p := range outputPaths {
		n := g.AddNode(p)
		if n.producer != nil {
			return nil, fmt.Errorf("node %q already has a producing rule", p)
		}
		n.producer = rule
		rule.outputs = append(rule.outputs, n)
	}

	g.rules = append(g.rules, rule)
	return rule, nil
}

// Roots returns every node with no consumers.
func (g *Graph) Roots() []*Node {
	var roots []*Node
	for _, n := range g.nodes {
		if n.IsRoot() {
			roots = append(roots, n)
		}
	}
	return roots
}

// Sources returns every node with no producer.
func (g *Graph) Sources() []*Node {
	var sources []*Node
	for _, n := range g.nodes {
		if n.IsSource() {
			sources = append(sources, n)
		}
	}
	return sources
}

// DetectCycles walks the graph along producer→input edges and reports an
// error naming the first node found to be reachable from itself,
// satisfying invariant 1 (acyclicity).
func (g *Graph) DetectCycles() error {
	const (
		unvisited = 0
		visiting  = 1
		done      = 2
	)
	mark := make(map[*Node]int, len(g.nodes))

	var visit func(n *Node) error
	visit = func(n *Node) error {
		switch mark[n] {
		case done:
			return nil
		case visiting:
			return fmt.Errorf("graph: cycle detected at node %q: %w", n.path, falconerr.ErrGraphInconsistent)
		}
		mark[n] = visiting
		if n.producer != nil {
			for _, in := range n.producer.AllInputs() {
				if err := visit(in); err != nil {
					return err
				}
			}
		}
		mark[n] = done
		return nil
	}

	for _, n := range g.nodes {
		if err := visit(n); err != nil {
			return err
		}
	}
	return nil
}

// Accept runs the visitor over the graph, then every node (sorted by path),
// then every rule (in the order they were added), so the visiting order is
// stable across runs — the protocol the Makefile and Graphviz printers rely
// on.
func (g *Graph) Accept(v Visitor) {
	v.VisitGraph(g)
	paths := make([]string, 0, len(g.nodes))
	for p := range g.nodes {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	for _, p := range paths {
		v.VisitNode(g.nodes[p])
	}
	for _, r := range g.rules {
		v.VisitRule(r)
	}
}

// Visitor is the double-dispatch protocol used by the pretty-printers: one
// callback per kind of graph element.
type Visitor interface {
	VisitGraph(*Graph)
	VisitNode(*Node)
	VisitRule(*Rule)
}
