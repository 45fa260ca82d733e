package falconcfg

import (
	"fmt"
	"path/filepath"
)

// Config is Falcon's fully-resolved configuration (§6 Configuration, plus
// the falcon-dir/cache-file/control-addr additions).
type Config struct {
	WorkingDirectory string
	GraphPath        string
	APIPort          int
	StreamPort       int
	LogLevel         string
	LogDir           string
	SequentialBuild  bool
	Module           string

	FalconDir   string
	CacheFile   string
	ControlAddr string
}

// Defaults returns a Config populated with every key's documented default.
func Defaults() Config {
	return Config{
		WorkingDirectory: ".",
		GraphPath:        "makefile.json",
		APIPort:          4242,
		StreamPort:       4343,
		LogLevel:         "info",
		FalconDir:        ".falcon",
	}
}

// NewConfig validates cfg and fills in the derived fields (cache-file,
// control-addr) that depend on other fields' final values.
func NewConfig(cfg Config) (*Config, error) {
	switch cfg.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return nil, fmt.Errorf("falconcfg: invalid log-level %q: must be debug, info, warn, or error", cfg.LogLevel)
	}

	switch cfg.Module {
	case "", "dot", "make", "help":
	default:
		return nil, fmt.Errorf("falconcfg: invalid module %q: must be dot, make, or help", cfg.Module)
	}

	if cfg.APIPort <= 0 || cfg.APIPort > 65535 {
		return nil, fmt.Errorf("falconcfg: invalid api-port %d", cfg.APIPort)
	}
	if cfg.StreamPort <= 0 || cfg.StreamPort > 65535 {
		return nil, fmt.Errorf("falconcfg: invalid stream-port %d", cfg.StreamPort)
	}
	if cfg.APIPort == cfg.StreamPort {
		return nil, fmt.Errorf("falconcfg: api-port and stream-port must differ")
	}

	if cfg.FalconDir == "" {
		cfg.FalconDir = ".falcon"
	}
	if cfg.CacheFile == "" {
		cfg.CacheFile = filepath.Join(cfg.FalconDir, "cache.msgpack")
	}
	if cfg.ControlAddr == "" {
		cfg.ControlAddr = fmt.Sprintf(":%d", cfg.APIPort)
	}

	return &cfg, nil
}
