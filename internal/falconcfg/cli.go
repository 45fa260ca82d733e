package falconcfg

import (
	"flag"
	"fmt"
	"io"
)

// ExitError carries a process exit code alongside an error message, the
// same shape the teacher's own CLI parser uses to distinguish a clean
// --help exit from an argument-parsing failure.
type ExitError struct {
	Code    int
	Message string
}

func (e *ExitError) Error() string { return e.Message }

// Parse processes command-line flags into a validated Config. It returns
// (nil, true, nil) when the caller should exit cleanly (e.g. -help), and
// an *ExitError when the arguments themselves are invalid.
func Parse(args []string, output io.Writer) (*Config, bool, error) {
	flagSet := flag.NewFlagSet("falcond", flag.ContinueOnError)
	flagSet.SetOutput(output)

	flagSet.Usage = func() {
		fmt.Fprint(output, `
Falcon - a daemonized, dependency-graph build system.

Usage:
  falcond [options]

Options:
`)
		flagSet.PrintDefaults()
	}

	d := Defaults()
	workingDir := flagSet.String("working-directory", d.WorkingDirectory, "Directory commands are run in.")
	graphPath := flagSet.String("graph", d.GraphPath, "Path to the JSON build description.")
	apiPort := flagSet.Int("api-port", d.APIPort, "Port the control API listens on.")
	streamPort := flagSet.Int("stream-port", d.StreamPort, "Port the stream server listens on.")
	logLevel := flagSet.String("log-level", d.LogLevel, "Log level: debug, info, warn, or error.")
	logDir := flagSet.String("log-dir", "", "Directory to write rotated log files to. Empty means stderr only.")
	sequentialBuild := flagSet.Bool("sequential-build", false, "Run one build to completion, skip the RPC server, then exit.")
	module := flagSet.String("module", "", "Run a printer (dot or make) and exit, or print help.")
	falconDir := flagSet.String("falcon-dir", d.FalconDir, "State directory for the hash cache.")
	cacheFile := flagSet.String("cache-file", "", "Path to the hash cache file. Defaults under falcon-dir.")

	if err := flagSet.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return nil, true, nil
		}
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}

	if *module == "help" {
		flagSet.Usage()
		return nil, true, nil
	}

	cfg, err := NewConfig(Config{
		WorkingDirectory: *workingDir,
		GraphPath:        *graphPath,
		APIPort:          *apiPort,
		StreamPort:       *streamPort,
		LogLevel:         *logLevel,
		LogDir:           *logDir,
		SequentialBuild:  *sequentialBuild,
		Module:           *module,
		FalconDir:        *falconDir,
		CacheFile:        *cacheFile,
	})
	if err != nil {
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}

	return cfg, false, nil
}
