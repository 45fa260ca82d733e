package printers

import (
	"fmt"
	"io"
	"strings"

	"github.com/falconbuild/falcon/internal/graph"
)

// Makefile renders g as a Makefile-compatible listing: one rule per
// "outputs : inputs" line followed by a tab-indented recipe line. Phony
// rules (empty command) are rendered with a "# phony" recipe line so the
// output stays valid Make syntax.
func Makefile(g *graph.Graph, w io.Writer) error {
	p := &makefilePrinter{w: w}
	g.Accept(p)
	return p.err
}

type makefilePrinter struct {
	w   io.Writer
	err error
}

func (p *makefilePrinter) VisitGraph(*graph.Graph) {}
func (p *makefilePrinter) VisitNode(*graph.Node)   {}

func (p *makefilePrinter) VisitRule(r *graph.Rule) {
	if p.err != nil {
		return
	}

	outputs := make([]string, len(r.Outputs()))
	for i, n := range r.Outputs() {
		outputs[i] = n.Path()
	}
	inputs := make([]string, len(r.Inputs()))
	for i, n := range r.Inputs() {
		inputs[i] = n.Path()
	}

	cmd := r.Command()
	if r.IsPhony() {
		cmd = "# phony"
	}

	_, p.err = fmt.Fprintf(p.w, "%s : %s\n\t%s\n",
		strings.Join(outputs, " "), strings.Join(inputs, " "), cmd)
}
