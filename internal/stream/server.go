package stream

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"sync"

	"golang.org/x/net/netutil"
)

// maxSubscribers bounds concurrent subscriber connections, the Go
// equivalent of the original's listen(..., 32) backlog.
const maxSubscribers = 32

// Server multiplexes one build's JSON event stream out to any number of
// TCP subscribers. All of its state — the retained builds, each client's
// drain position — lives behind mu; events cross in from the builder via
// the exported methods below, and each connected client is served by its
// own goroutine blocked on cond until it has something to send.
type Server struct {
	mu   sync.Mutex
	cond *sync.Cond

	builds  []*buildInfo
	waiting []*client // connected clients with no build assigned yet

	listener net.Listener
	stopped  bool

	logger *slog.Logger
}

// New returns a Server; call ListenAndServe to start accepting subscribers.
func New(logger *slog.Logger) *Server {
	s := &Server{logger: logger}
	s.cond = sync.NewCond(&s.mu)
	return s
}

// ListenAndServe binds port and runs the accept loop until ctx is canceled
// or Stop is called. It returns once the listener is closed.
func (s *Server) ListenAndServe(ctx context.Context, port int) error {
	ln, err := net.Listen("tcp", ":"+strconv.Itoa(port))
	if err != nil {
		return fmt.Errorf("stream: listen on port %d: %w", port, err)
	}
	ln = netutil.LimitListener(ln, maxSubscribers)

	s.mu.Lock()
	s.listener = ln
	s.mu.Unlock()

	go func() {
		<-ctx.Done()
		s.Stop()
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			s.mu.Lock()
			stopped := s.stopped
			s.mu.Unlock()
			if stopped {
				return nil
			}
			s.logger.Error("stream: accept failed", "error", err)
			return err
		}
		go s.serveClient(conn)
	}
}

// Stop closes the listening socket and every connected subscriber,
// unblocking the accept loop and every client goroutine.
func (s *Server) Stop() {
	s.mu.Lock()
	s.stopped = true
	ln := s.listener
	s.mu.Unlock()

	if ln != nil {
		_ = ln.Close()
	}
	s.cond.Broadcast()
}

// serveClient is the per-subscriber loop: attach to a build (or wait for
// one), then repeatedly send whatever of that build's buffer hasn't been
// sent yet, blocking on cond when there's nothing new, until the build
// completes and the buffer is fully drained.
func (s *Server) serveClient(conn net.Conn) {
	defer conn.Close()

	c := &client{}
	s.mu.Lock()
	if cur := s.current(); cur != nil && !cur.completed {
		c.build = cur
		cur.refcount++
	} else {
		s.waiting = append(s.waiting, c)
	}
	s.mu.Unlock()

	for {
		s.mu.Lock()
		for !s.stopped && c.build == nil {
			s.cond.Wait()
		}
		if s.stopped && c.build == nil {
			s.mu.Unlock()
			return
		}

		for !s.stopped && c.offset >= len(c.build.buf) && !c.build.completed {
			s.cond.Wait()
		}
		if s.stopped {
			s.mu.Unlock()
			return
		}

		chunk := c.build.buf[c.offset:]
		done := c.build.completed && c.offset+len(chunk) >= len(c.build.buf)
		s.mu.Unlock()

		if len(chunk) > 0 {
			if _, err := conn.Write(chunk); err != nil {
				s.detach(c)
				return
			}
			s.mu.Lock()
			c.offset += len(chunk)
			s.mu.Unlock()
		}

		if done {
			s.detach(c)
			return
		}
	}
}

func (s *Server) detach(c *client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c.build == nil {
		return
	}
	c.build.refcount--
	s.evictCompleted()
}

// evictCompleted drops retained builds from the front of the list once
// their refcount has reached zero and a newer build exists — the retention
// rule that guarantees a client already attached to a build can always
// finish draining it, while stale, fully-drained builds don't pile up.
func (s *Server) evictCompleted() {
	for len(s.builds) > 1 {
		oldest := s.builds[0]
		if oldest.refcount > 0 || !oldest.completed {
			break
		}
		s.builds = s.builds[1:]
	}
}

func (s *Server) current() *buildInfo {
	if len(s.builds) == 0 {
		return nil
	}
	return s.builds[len(s.builds)-1]
}

func (s *Server) append(b []byte) {
	cur := s.current()
	cur.buf = append(cur.buf, b...)
}
