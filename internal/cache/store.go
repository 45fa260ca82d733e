package cache

import (
	"crypto/sha256"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/vmihailenco/msgpack/v5"
)

// Retriever is the cache collaborator contract that Store implements (the
// scanner, builder and daemon hold a *Store directly). Hash and StoreHash
// satisfy §6's Cache collaborator contract; Retrieve reports a cache hit so
// the stream server can emit a cacheRetrieveAction event.
type Retriever interface {
	Hash(path string) ([]byte, error)
	StoreHash(path string, hash []byte) error
	Retrieve(path string) bool
}

// record is the on-disk representation of one path's last-known hash.
type record struct {
	Path string `msgpack:"path"`
	Hash []byte `msgpack:"hash"`
}

// Store is a file-backed Retriever. It hashes file contents with SHA-256
// and persists the path→hash table as msgpack, so a daemon restart still
// has the previous run's hashes to compare against.
type Store struct {
	file string

	mu     sync.Mutex
	hashes map[string][]byte
	dirty  bool
}

// Open loads the on-disk record file at path if it exists, or starts with
// an empty table if it doesn't (a brand-new .falcon directory).
func Open(path string) (*Store, error) {
	s := &Store{file: path, hashes: make(map[string][]byte)}

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, fmt.Errorf("cache: open %s: %w", path, err)
	}
	defer f.Close()

	var records []record
	if err := msgpack.NewDecoder(f).Decode(&records); err != nil {
		return nil, fmt.Errorf("cache: decode %s: %w", path, err)
	}
	for _, r := range records {
		s.hashes[r.Path] = r.Hash
	}
	return s, nil
}

// Hash computes the current content hash of path by reading its bytes. It
// does not consult or update the stored table — callers compare the result
// against PreviousHash and then call StoreHash once they've decided the
// node's new state.
func (s *Store) Hash(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("cache: open %s: %w", path, err)
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return nil, fmt.Errorf("cache: read %s: %w", path, err)
	}
	return h.Sum(nil), nil
}

// PreviousHash returns the hash recorded for path on a prior scan, or nil
// if none is known.
func (s *Store) PreviousHash(path string) []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hashes[path]
}

// StoreHash records hash as the current value for path, marking the table
// dirty so the next Flush writes it out.
func (s *Store) StoreHash(path string, hash []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hashes[path] = hash
	s.dirty = true
	return nil
}

// Retrieve reports whether path has a previously recorded hash at all (a
// "cache hit" in the sense the stream server's cacheRetrieveAction event
// cares about: we had something on record for this path already).
func (s *Store) Retrieve(path string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.hashes[path]
	return ok
}

// Flush persists the in-memory table to disk if it has changed since the
// last Flush (or since Open).
func (s *Store) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.dirty {
		return nil
	}

	records := make([]record, 0, len(s.hashes))
	for p, h := range s.hashes {
		records = append(records, record{Path: p, Hash: h})
	}

	f, err := os.Create(s.file)
	if err != nil {
		return fmt.Errorf("cache: create %s: %w", s.file, err)
	}
	defer f.Close()

	if err := msgpack.NewEncoder(f).Encode(records); err != nil {
		return fmt.Errorf("cache: encode %s: %w", s.file, err)
	}
	s.dirty = false
	return nil
}
