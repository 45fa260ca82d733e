package stream

import (
	"fmt"
	"strings"

	"github.com/falconbuild/falcon/internal/subprocess"
)

// NewBuild opens a new build's document. Any client that connected while no
// build was in progress (or while the previous one had already finished)
// is attached here, at offset 0, so it sees the complete document from the
// start — never a stale, already-completed one.
func (s *Server) NewBuild(id int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b := &buildInfo{id: id, firstCmd: true}
	s.builds = append(s.builds, b)
	s.append([]byte(fmt.Sprintf(`{"id":%d,"cmds":[`, id)))

	for _, c := range s.waiting {
		c.build = b
		b.refcount++
	}
	s.waiting = nil
	s.evictCompleted()

	s.cond.Broadcast()
}

// NewCommand records the start of a rule's command within the current
// build as its own closed cmds element.
func (s *Server) NewCommand(cmdID int, cmd string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.appendElement(fmt.Sprintf(`{"id":%d,"cmd":%s}`, cmdID, jsonString(cmd)))
	s.cond.Broadcast()
}

// WriteStdout appends a chunk of a command's stdout to the current build's
// document as its own closed cmds element.
func (s *Server) WriteStdout(cmdID int, chunk []byte) {
	s.writeOutput(cmdID, "stdout", chunk)
}

// WriteStderr appends a chunk of a command's stderr to the current build's
// document as its own closed cmds element.
func (s *Server) WriteStderr(cmdID int, chunk []byte) {
	s.writeOutput(cmdID, "stderr", chunk)
}

// writeOutput emits one chunk of output under the given key ("stdout" or
// "stderr") as its own cmds element, keeping the two streams distinguishable
// and every chunk individually addressable instead of merged into one
// ever-growing string.
func (s *Server) writeOutput(cmdID int, key string, chunk []byte) {
	if len(chunk) == 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.appendElement(fmt.Sprintf(`{"id":%d,%q:%s}`, cmdID, key, jsonString(string(chunk))))
	s.cond.Broadcast()
}

// EndCommand records a command's final status as its own cmds element.
func (s *Server) EndCommand(cmdID int, status subprocess.ExitStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.appendElement(fmt.Sprintf(`{"id":%d,"status":%s}`, cmdID, jsonString(status.String())))
	s.cond.Broadcast()
}

// CacheRetrieveAction records that a build step was satisfied from cache
// rather than by running its command.
func (s *Server) CacheRetrieveAction(path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.appendElement(fmt.Sprintf(`{"cache":%s}`, jsonString(path)))
	s.cond.Broadcast()
}

// EndBuild closes the current build's document and marks it completed.
// Clients already attached keep draining it; clients that connect from
// this point on wait for the next NewBuild.
func (s *Server) EndBuild(result subprocess.ExitStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.append([]byte(fmt.Sprintf(`],"result":%s}`, jsonString(result.String()))))
	b := s.current()
	b.completed = true
	s.evictCompleted()
	s.cond.Broadcast()
}

// appendElement appends one closed element to the current build's cmds
// array, inserting the separating comma for every element after the first.
// Caller holds s.mu.
func (s *Server) appendElement(element string) {
	b := s.current()
	if !b.firstCmd {
		s.append([]byte(","))
	}
	b.firstCmd = false
	s.append([]byte(element))
}

// jsonString escapes s into a double-quoted JSON string literal, escaping
// only the three control bytes the wire format requires: quote, backslash,
// and newline. Other control characters pass through unescaped.
func jsonString(s string) string {
	var b strings.Builder
	b.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"':
			b.WriteString(`\"`)
		case '\\':
			b.WriteString(`\\`)
		case '\n':
			b.WriteString(`\n`)
		default:
			b.WriteRune(r)
		}
	}
	b.WriteByte('"')
	return b.String()
}
