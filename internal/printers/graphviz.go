package printers

import (
	"fmt"
	"io"

	"github.com/falconbuild/falcon/internal/graph"
	"github.com/mitchellh/go-wordwrap"
)

// graphvizOptions mirrors the original GraphGraphizPrinter's hard-coded
// style fields, kept configurable here since Go gives us constructors
// instead of default member initializers.
type graphvizOptions struct {
	ruleColorOutOfDate string
	ruleColorUpToDate  string
	nodeColorOutOfDate string
	nodeColorUpToDate  string
	nodeFillColor      string
}

func defaultGraphvizOptions() graphvizOptions {
	return graphvizOptions{
		ruleColorOutOfDate: "red",
		ruleColorUpToDate:  "black",
		nodeColorOutOfDate: "red",
		nodeColorUpToDate:  "black",
		nodeFillColor:      "white",
	}
}

// Graphviz renders g as a "dot" document: one box per node, one point per
// rule, edges colored red where the rule is out of date. Long commands are
// word-wrapped into the rule's label so generated images stay legible.
func Graphviz(g *graph.Graph, w io.Writer) error {
	p := &graphvizPrinter{w: w, opts: defaultGraphvizOptions()}
	g.Accept(p)
	p.write("}\n")
	return p.err
}

type graphvizPrinter struct {
	w        io.Writer
	opts     graphvizOptions
	err      error
	ruleSeen int
}

func (p *graphvizPrinter) write(format string, args ...any) {
	if p.err != nil {
		return
	}
	_, p.err = fmt.Fprintf(p.w, format, args...)
}

func (p *graphvizPrinter) VisitGraph(*graph.Graph) {
	p.write("digraph Falcon {\n")
	p.write("rankdir=\"LR\"\n")
	p.write("edge [fontsize=10, arrowhead=vee]\n")
}

func (p *graphvizPrinter) VisitNode(n *graph.Node) {
	color := p.opts.nodeColorUpToDate
	if n.State() == graph.OutOfDate {
		color = p.opts.nodeColorOutOfDate
	}
	p.write("node [fontsize=10, shape=box, height=0.25, style=filled]\n")
	p.write("%q [label=%q color=%q fillcolor=%q]\n",
		n.Path(), n.Path(), color, p.opts.nodeFillColor)
}

func (p *graphvizPrinter) VisitRule(r *graph.Rule) {
	color := p.opts.ruleColorUpToDate
	if r.State() == graph.OutOfDate {
		color = p.opts.ruleColorOutOfDate
	}

	label := "rule"
	if !r.IsPhony() {
		label = wordwrap.WrapString(r.Command(), 40)
	}
	// A dot-graph node ID keyed off the rule's own position in the graph's
	// rule list, not its memory address, so the same graph produces
	// byte-identical output across runs.
	ruleID := fmt.Sprintf("rule:%d", p.ruleSeen)
	p.ruleSeen++

	p.write("node [fontsize=10, shape=point, height=0.25, style=filled]\n")
	p.write("%q [label=%q color=%q fillcolor=%q]\n",
		ruleID, label, color, p.opts.nodeFillColor)

	for _, in := range r.Inputs() {
		p.write("%q -> %q [color=%q]\n", in.Path(), ruleID, color)
	}
	for _, out := range r.Outputs() {
		p.write("%q -> %q [color=%q]\n", ruleID, out.Path(), color)
	}
}
