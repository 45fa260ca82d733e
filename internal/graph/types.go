package graph

import "time"

// State is the up-to-date/out-of-date status of a Node or Rule.
type State int

const (
	UpToDate State = iota
	OutOfDate
)

func (s State) String() string {
	if s == UpToDate {
		return "UP_TO_DATE"
	}
	return "OUT_OF_DATE"
}

// Node is a filesystem path plus its build state. Its identity is its path:
// two nodes with the same path are the same node.
type Node struct {
	path string

	// producer is the rule that generates this node. nil for a source node.
	producer *Rule

	// consumers are the rules that take this node as an input. Empty for a
	// root node (nothing consumes it).
	consumers []*Rule

	state State

	hash     []byte
	prevHash []byte

	timestamp     time.Time
	prevTimestamp time.Time
}

// Path returns the node's canonical path, its unique key within the graph.
func (n *Node) Path() string { return n.path }

// Producer returns the rule that generates this node, or nil if it is a
// source node.
func (n *Node) Producer() *Rule { return n.producer }

// Consumers returns the rules that take this node as an input.
func (n *Node) Consumers() []*Rule { return n.consumers }

// IsSource reports whether no rule produces this node.
func (n *Node) IsSource() bool { return n.producer == nil }

// IsRoot reports whether no rule consumes this node.
func (n *Node) IsRoot() bool { return len(n.consumers) == 0 }

// State returns the node's current up-to-date/out-of-date status.
func (n *Node) State() State { return n.state }

// SetState overwrites the node's state without propagating. Exported for
// the scanner and builder; prefer MarkDirty/MarkUpToDate elsewhere.
func (n *Node) SetState(s State) { n.state = s }

// Hash returns the content hash last observed by the scanner.
func (n *Node) Hash() []byte { return n.hash }

// PrevHash returns the content hash observed on the previous scan.
func (n *Node) PrevHash() []byte { return n.prevHash }

// SetHash records a newly observed hash, shifting the old one into PrevHash.
func (n *Node) SetHash(h []byte) {
	n.prevHash = n.hash
	n.hash = h
}

// Timestamp and PrevTimestamp mirror Hash/PrevHash for modification times.
func (n *Node) Timestamp() time.Time     { return n.timestamp }
func (n *Node) PrevTimestamp() time.Time { return n.prevTimestamp }

func (n *Node) SetTimestamp(t time.Time) {
	n.prevTimestamp = n.timestamp
	n.timestamp = t
}

// MarkDirty sets the node's state to OUT_OF_DATE and recursively marks
// every transitive dependent (every node produced by a rule that consumes
// this one) dirty as well. Idempotent: a node already dirty, and everything
// below it, is left alone, which is also what guarantees termination on an
// acyclic graph.
func (n *Node) MarkDirty() {
	if n.state == OutOfDate {
		return
	}
	n.state = OutOfDate
	for _, rule := range n.consumers {
		rule.MarkDirty()
	}
}

// MarkUpToDate sets the node's state to UP_TO_DATE. If every output of the
// rule that produces this node is now UP_TO_DATE, that rule is marked
// UP_TO_DATE too (invariant 4); the same check is applied to each rule that
// consumes this node.
func (n *Node) MarkUpToDate() {
	n.state = UpToDate
	if n.producer != nil && n.producer.allOutputsUpToDate() {
		n.producer.state = UpToDate
	}
	for _, rule := range n.consumers {
		if rule.allOutputsUpToDate() {
			rule.state = UpToDate
		}
	}
}

func (n *Node) addConsumer(r *Rule) {
	n.consumers = append(n.consumers, r)
}

// Rule is a build edge: a command that turns a set of input nodes into a
// set of output nodes.
type Rule struct {
	inputs  []*Node
	outputs []*Node

	// command is the shell command to execute. Empty means a phony rule:
	// it propagates state but executes nothing.
	command string

	// depfile, if set, names a side-channel file listing additional
	// implicit inputs discovered while the command ran.
	depfile string

	// implicitInputs are depfile-derived inputs attached by the scanner,
	// kept separate from inputs so re-scanning can recompute them.
	implicitInputs []*Node

	state State
}

func (r *Rule) Inputs() []*Node  { return r.inputs }
func (r *Rule) Outputs() []*Node { return r.outputs }

// AllInputs returns the rule's declared inputs followed by any implicit
// inputs attached by the scanner from the rule's depfile.
func (r *Rule) AllInputs() []*Node {
	if len(r.implicitInputs) == 0 {
		return r.inputs
	}
	all := make([]*Node, 0, len(r.inputs)+len(r.implicitInputs))
	all = append(all, r.inputs...)
	all = append(all, r.implicitInputs...)
	return all
}

func (r *Rule) SetImplicitInputs(nodes []*Node) { r.implicitInputs = nodes }

func (r *Rule) Command() string { return r.command }

// IsPhony reports whether the rule has an empty command.
func (r *Rule) IsPhony() bool { return r.command == "" }

func (r *Rule) HasDepfile() bool { return r.depfile != "" }
func (r *Rule) Depfile() string  { return r.depfile }

func (r *Rule) State() State     { return r.state }
func (r *Rule) SetState(s State) { r.state = s }

// MarkDirty sets the rule OUT_OF_DATE and marks every output dirty, which
// in turn propagates to the outputs' own consumers (invariant 5).
func (r *Rule) MarkDirty() {
	r.state = OutOfDate
	for _, out := range r.outputs {
		out.MarkDirty()
	}
}

func (r *Rule) allOutputsUpToDate() bool {
	for _, out := range r.outputs {
		if out.state != UpToDate {
			return false
		}
	}
	return true
}

// Graph owns the full set of nodes and rules and exposes the derived root
// and source sets.
type Graph struct {
	nodes map[string]*Node
	rules []*Rule
}
