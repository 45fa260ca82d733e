package graphparser

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/falconbuild/falcon/internal/graph"
)

// document is the on-disk shape of a graph description file.
type document struct {
	Rules []ruleDoc `json:"rules"`
}

type ruleDoc struct {
	Inputs  []string `json:"inputs"`
	Outputs []string `json:"outputs"`
	Command string   `json:"command"`
	Depfile string   `json:"depfile,omitempty"`
}

// LoadFile reads and parses the graph description at path.
func LoadFile(path string) (*graph.Graph, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("graphparser: open %s: %w", path, err)
	}
	defer f.Close()
	return Load(f)
}

// Load parses a graph description from r and builds the resulting graph,
// rejecting descriptions whose rule/node topology contains a cycle.
func Load(r io.Reader) (*graph.Graph, error) {
	var doc document
	dec := json.NewDecoder(r)
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("graphparser: decode: %w", err)
	}

	g := graph.New()
	for i, rd := range doc.Rules {
		if len(rd.Outputs) == 0 {
			return nil, fmt.Errorf("graphparser: rule %d has no outputs", i)
		}
		if _, err := g.AddRule(rd.Inputs, rd.Outputs, rd.Command, rd.Depfile); err != nil {
			return nil, fmt.Errorf("graphparser: rule %d (%v): %w", i, rd.Outputs, err)
		}
	}

	if err := g.DetectCycles(); err != nil {
		return nil, fmt.Errorf("graphparser: %w", err)
	}

	return g, nil
}
