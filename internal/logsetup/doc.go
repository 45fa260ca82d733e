// Package logsetup builds Falcon's slog.Logger from Configuration's
// log-level and log-dir keys. When log-dir is set, any existing log file
// from a prior run is gzip-compressed before a fresh one is opened, so log
// volume doesn't grow unbounded across daemon restarts.
package logsetup
