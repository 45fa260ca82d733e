package scanner

import (
	"bufio"
	"bytes"
	"os"

	"github.com/falconbuild/falcon/internal/cache"
	"github.com/falconbuild/falcon/internal/falconerr"
	"github.com/falconbuild/falcon/internal/graph"
)

// Scanner runs the dependency scan described in §4.2 against a single
// graph, backed by a cache.Store for content hashes.
type Scanner struct {
	graph *graph.Graph
	cache *cache.Store
}

// New returns a Scanner for g backed by store.
func New(g *graph.Graph, store *cache.Store) *Scanner {
	return &Scanner{graph: g, cache: store}
}

// Scan performs the single bottom-up pass: hash every source, then walk
// rules in topological order marking each one (and its outputs) dirty or
// clean. After Scan returns, invariant 5 (dirty propagation) holds. Every
// source's Hash() reflects this call's observation time, as does every
// existing output of a rule whose inputs are all up to date; outputs of a
// rule already found dirty by its inputs are not re-hashed.
//
// An I/O error reading a source file or a depfile is fatal and returned
// immediately, per §4.2 "Failures": the caller aborts startup.
func (s *Scanner) Scan() error {
	visited := make(map[*graph.Node]bool, len(s.graph.Nodes()))

	for _, n := range s.graph.Sources() {
		if err := s.scanSource(n); err != nil {
			return err
		}
		visited[n] = true
	}

	depfileRead := make(map[*graph.Rule]bool)
	rules := s.graph.Rules()
	ruleDone := make(map[*graph.Rule]bool, len(rules))

	for progress := true; progress; {
		progress = false
		for _, r := range rules {
			if ruleDone[r] {
				continue
			}

			if r.HasDepfile() && !depfileRead[r] {
				implicit, err := s.readDepfile(r.Depfile())
				if err != nil {
					return err
				}
				for _, n := range implicit {
					if n.IsSource() && !visited[n] {
						if err := s.scanSource(n); err != nil {
							return err
						}
						visited[n] = true
					}
				}
				r.SetImplicitInputs(implicit)
				depfileRead[r] = true
			}

			ready := true
			for _, in := range r.AllInputs() {
				if !visited[in] {
					ready = false
					break
				}
			}
			if !ready {
				continue
			}

			s.scanRule(r)
			for _, out := range r.Outputs() {
				visited[out] = true
			}
			ruleDone[r] = true
			progress = true
		}
	}

	return s.cache.Flush()
}

// scanSource hashes a source node and compares it against the cache's
// record for its path, marking it OUT_OF_DATE if different or absent
// (§4.2 step 1).
func (s *Scanner) scanSource(n *graph.Node) error {
	hash, err := s.cache.Hash(n.Path())
	if err != nil {
		return &falconerr.IOError{Op: "scan source", Path: n.Path(), Err: err}
	}

	prev := s.cache.PreviousHash(n.Path())
	n.SetHash(hash)
	if info, statErr := os.Stat(n.Path()); statErr == nil {
		n.SetTimestamp(info.ModTime())
	}

	if prev == nil || !bytes.Equal(prev, hash) {
		n.SetState(graph.OutOfDate)
	} else {
		n.SetState(graph.UpToDate)
	}
	return s.cache.StoreHash(n.Path(), hash)
}

// scanRule evaluates one rule once all of its inputs have been visited
// (§4.2 step 2): dirty if any input is dirty, any output is missing, or any
// output's recorded hash disagrees with the cache.
func (s *Scanner) scanRule(r *graph.Rule) {
	dirty := false
	for _, in := range r.AllInputs() {
		if in.State() == graph.OutOfDate {
			dirty = true
			break
		}
	}

	if !dirty {
		for _, out := range r.Outputs() {
			if s.outputStale(out) {
				dirty = true
				break
			}
		}
	}

	if dirty {
		r.MarkDirty()
		return
	}
	for _, out := range r.Outputs() {
		out.MarkUpToDate()
	}
}

func (s *Scanner) outputStale(out *graph.Node) bool {
	info, err := os.Stat(out.Path())
	if err != nil {
		return true // missing output file
	}
	out.SetTimestamp(info.ModTime())

	hash, err := s.cache.Hash(out.Path())
	if err != nil {
		return true
	}
	out.SetHash(hash)

	prev := s.cache.PreviousHash(out.Path())
	_ = s.cache.StoreHash(out.Path(), hash)
	return prev != nil && !bytes.Equal(prev, hash)
}

// readDepfile parses a whitespace/newline-separated list of implicit input
// paths and returns the corresponding (created-if-needed) nodes.
func (s *Scanner) readDepfile(path string) ([]*graph.Node, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &falconerr.IOError{Op: "read depfile", Path: path, Err: err}
	}
	defer f.Close()

	var nodes []*graph.Node
	sc := bufio.NewScanner(f)
	sc.Split(bufio.ScanWords)
	for sc.Scan() {
		nodes = append(nodes, s.graph.AddNode(sc.Text()))
	}
	if err := sc.Err(); err != nil {
		return nil, &falconerr.IOError{Op: "read depfile", Path: path, Err: err}
	}
	return nodes, nil
}
