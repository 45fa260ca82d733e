package control

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"

	"github.com/falconbuild/falcon/internal/falconerr"
)

// Core is the daemon-side surface the control server dispatches onto. It is
// satisfied by internal/daemon.Daemon; defined here, rather than imported
// from there, so this package has no dependency on the daemon package.
type Core interface {
	StartBuild() error
	GetStatus() string
	GetDirtySources() []string
	SetDirty(target string) error
	InterruptBuild()
	Shutdown()
	Graphviz() (string, error)
}

// Server is the HTTP listener for the control API.
type Server struct {
	core   Core
	logger *slog.Logger
	http   *http.Server
}

// New builds a control Server bound to core, not yet listening.
func New(core Core, logger *slog.Logger) *Server {
	mux := http.NewServeMux()
	s := &Server{core: core, logger: logger}

	mux.HandleFunc("/build", s.handleStartBuild)
	mux.HandleFunc("/status", s.handleStatus)
	mux.HandleFunc("/dirty-sources", s.handleDirtySources)
	mux.HandleFunc("/dirty", s.handleSetDirty)
	mux.HandleFunc("/interrupt", s.handleInterrupt)
	mux.HandleFunc("/shutdown", s.handleShutdown)
	mux.HandleFunc("/graphviz", s.handleGraphviz)

	s.http = &http.Server{Handler: mux}
	return s
}

// ListenAndServe binds port and serves until ctx is canceled.
func (s *Server) ListenAndServe(ctx context.Context, port int) error {
	ln, err := net.Listen("tcp", ":"+strconv.Itoa(port))
	if err != nil {
		return fmt.Errorf("control: listen on port %d: %w", port, err)
	}

	go func() {
		<-ctx.Done()
		_ = s.http.Close()
	}()

	if err := s.http.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

type statusReply struct {
	Status string `json:"status"`
}

type errorReply struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, logger *slog.Logger, err error) {
	switch {
	case errors.Is(err, falconerr.ErrTargetNotFound):
		writeJSON(w, http.StatusNotFound, errorReply{Error: err.Error()})
	case errors.Is(err, falconerr.ErrBusy):
		writeJSON(w, http.StatusConflict, errorReply{Error: err.Error()})
	case errors.Is(err, falconerr.ErrGraphInconsistent):
		writeJSON(w, http.StatusInternalServerError, errorReply{Error: err.Error()})
	default:
		logger.Error("control: request failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorReply{Error: err.Error()})
	}
}

func (s *Server) handleStartBuild(w http.ResponseWriter, r *http.Request) {
	if err := s.core.StartBuild(); err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, statusReply{Status: "OK"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, statusReply{Status: s.core.GetStatus()})
}

func (s *Server) handleDirtySources(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, struct {
		Sources []string `json:"sources"`
	}{Sources: s.core.GetDirtySources()})
}

func (s *Server) handleSetDirty(w http.ResponseWriter, r *http.Request) {
	target := r.URL.Query().Get("target")
	if target == "" {
		writeJSON(w, http.StatusBadRequest, errorReply{Error: "missing target query parameter"})
		return
	}
	if err := s.core.SetDirty(target); err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, statusReply{Status: "OK"})
}

func (s *Server) handleInterrupt(w http.ResponseWriter, r *http.Request) {
	s.core.InterruptBuild()
	writeJSON(w, http.StatusOK, statusReply{Status: "OK"})
}

func (s *Server) handleShutdown(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, statusReply{Status: "OK"})
	go s.core.Shutdown()
}

func (s *Server) handleGraphviz(w http.ResponseWriter, r *http.Request) {
	dot, err := s.core.Graphviz()
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	w.Header().Set("Content-Type", "text/vnd.graphviz")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(dot))
}
