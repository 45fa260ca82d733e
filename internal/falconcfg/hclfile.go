package falconcfg

import (
	"os"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
)

// fileConfig mirrors Config's fields that are sensible to set from a
// checked-in file rather than a flag every invocation; flags set on the
// command line still take precedence (see ApplyFile).
type fileConfig struct {
	WorkingDirectory *string `hcl:"working_directory,optional"`
	GraphPath        *string `hcl:"graph,optional"`
	APIPort          *int    `hcl:"api_port,optional"`
	StreamPort       *int    `hcl:"stream_port,optional"`
	LogLevel         *string `hcl:"log_level,optional"`
	LogDir           *string `hcl:"log_dir,optional"`
	FalconDir        *string `hcl:"falcon_dir,optional"`
	CacheFile        *string `hcl:"cache_file,optional"`
}

// ApplyFile loads an HCL config file at path (typically falcon.hcl) and
// layers its values under cfg, wherever cfg still holds its flag default —
// an explicit flag on the command line always wins.
func ApplyFile(cfg *Config, path string, defaults Config) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}

	parser := hclparse.NewParser()
	f, diags := parser.ParseHCLFile(path)
	if diags.HasErrors() {
		return diags
	}

	var fc fileConfig
	if diags := gohcl.DecodeBody(f.Body, nil, &fc); diags.HasErrors() {
		return diags
	}

	if fc.WorkingDirectory != nil && cfg.WorkingDirectory == defaults.WorkingDirectory {
		cfg.WorkingDirectory = *fc.WorkingDirectory
	}
	if fc.GraphPath != nil && cfg.GraphPath == defaults.GraphPath {
		cfg.GraphPath = *fc.GraphPath
	}
	if fc.APIPort != nil && cfg.APIPort == defaults.APIPort {
		cfg.APIPort = *fc.APIPort
	}
	if fc.StreamPort != nil && cfg.StreamPort == defaults.StreamPort {
		cfg.StreamPort = *fc.StreamPort
	}
	if fc.LogLevel != nil && cfg.LogLevel == defaults.LogLevel {
		cfg.LogLevel = *fc.LogLevel
	}
	if fc.LogDir != nil && cfg.LogDir == "" {
		cfg.LogDir = *fc.LogDir
	}
	if fc.FalconDir != nil && cfg.FalconDir == defaults.FalconDir {
		cfg.FalconDir = *fc.FalconDir
	}
	if fc.CacheFile != nil && cfg.CacheFile == "" {
		cfg.CacheFile = *fc.CacheFile
	}

	return nil
}
