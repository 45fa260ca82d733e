// Command falcond is Falcon's daemon entrypoint: it loads a build graph,
// scans it, and either runs one build and exits (-sequential-build) or
// serves the control and stream APIs until interrupted.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/falconbuild/falcon/internal/builder"
	"github.com/falconbuild/falcon/internal/cache"
	"github.com/falconbuild/falcon/internal/daemon"
	"github.com/falconbuild/falcon/internal/falconcfg"
	"github.com/falconbuild/falcon/internal/graphparser"
	"github.com/falconbuild/falcon/internal/logsetup"
	"github.com/falconbuild/falcon/internal/printers"
)

func main() {
	if err := run(os.Stdout, os.Args[1:]); err != nil {
		if exitErr, ok := err.(*falconcfg.ExitError); ok {
			fmt.Fprintln(os.Stderr, exitErr.Message)
			os.Exit(exitErr.Code)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(outW *os.File, args []string) error {
	cfg, shouldExit, err := falconcfg.Parse(args, outW)
	if err != nil {
		return err
	}
	if shouldExit {
		return nil
	}

	if err := falconcfg.ApplyFile(cfg, "falcon.hcl", falconcfg.Defaults()); err != nil {
		return fmt.Errorf("falcond: falcon.hcl: %w", err)
	}

	logger, err := logsetup.New(cfg.LogLevel, cfg.LogDir)
	if err != nil {
		return err
	}
	slog.SetDefault(logger)

	g, err := graphparser.LoadFile(cfg.GraphPath)
	if err != nil {
		return fmt.Errorf("falcond: %w", err)
	}

	switch cfg.Module {
	case "dot":
		return printers.Graphviz(g, outW)
	case "make":
		return printers.Makefile(g, outW)
	}

	if err := os.MkdirAll(cfg.FalconDir, 0o755); err != nil {
		return fmt.Errorf("falcond: create falcon-dir: %w", err)
	}
	c, err := cache.Open(cfg.CacheFile)
	if err != nil {
		return fmt.Errorf("falcond: open cache: %w", err)
	}

	d := daemon.New(cfg, logger, g, c)
	if err := d.Scan(); err != nil {
		return fmt.Errorf("falcond: scan: %w", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if cfg.SequentialBuild {
		result, err := d.RunSequential(ctx)
		if err != nil {
			return err
		}
		logger.Info("build finished", "result", result.String())
		if result != builder.Succeeded {
			os.Exit(1)
		}
		return nil
	}

	return d.Run(ctx)
}
