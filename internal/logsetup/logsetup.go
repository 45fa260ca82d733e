package logsetup

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/klauspost/compress/gzip"
)

const logFileName = "falcond.log"

// New builds a slog.Logger at level, writing to stderr, or additionally to
// a rotated file under logDir when logDir is non-empty.
func New(level, logDir string) (*slog.Logger, error) {
	lvl, err := parseLevel(level)
	if err != nil {
		return nil, err
	}

	w := io.Writer(os.Stderr)
	if logDir != "" {
		fileWriter, err := openRotated(logDir)
		if err != nil {
			return nil, err
		}
		w = io.MultiWriter(os.Stderr, fileWriter)
	}

	handler := slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl})
	return slog.New(handler), nil
}

func parseLevel(level string) (slog.Level, error) {
	switch level {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("logsetup: invalid log level %q", level)
	}
}

// openRotated gzips any log file left over from a prior run under a
// timestamped name, then opens a fresh log file for this run.
func openRotated(logDir string) (io.Writer, error) {
	if err := os.MkdirAll(logDir, 0o755); err != nil {
		return nil, fmt.Errorf("logsetup: create log-dir: %w", err)
	}

	logPath := filepath.Join(logDir, logFileName)
	if _, err := os.Stat(logPath); err == nil {
		if err := rotate(logPath); err != nil {
			return nil, err
		}
	}

	f, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, fmt.Errorf("logsetup: open log file: %w", err)
	}
	return f, nil
}

func rotate(logPath string) error {
	gzPath := logPath + "." + time.Now().Format("20060102T150405") + ".gz"

	src, err := os.Open(logPath)
	if err != nil {
		return fmt.Errorf("logsetup: open prior log for rotation: %w", err)
	}
	defer src.Close()

	dst, err := os.Create(gzPath)
	if err != nil {
		return fmt.Errorf("logsetup: create rotated log: %w", err)
	}
	defer dst.Close()

	gw := gzip.NewWriter(dst)
	if _, err := io.Copy(gw, src); err != nil {
		return fmt.Errorf("logsetup: compress prior log: %w", err)
	}
	return gw.Close()
}
