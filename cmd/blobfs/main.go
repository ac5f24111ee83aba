// Command blobfs manipulates a container through the POSIX-style filesystem
// view of pkg/blobfs.
//
// Usage:
//
//	blobfs [--config FILE] [--log-level LEVEL] [--metrics] <command> [args]
//
// Run "blobfs help" for the list of commands.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/marmos91/blobfs/internal/logger"
	"github.com/marmos91/blobfs/pkg/config"
	"github.com/spf13/pflag"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	flags := pflag.NewFlagSet("blobfs", pflag.ContinueOnError)
	flags.SetInterspersed(false)
	flags.SetOutput(stderr)

	configPath := flags.StringP("config", "c", "", "Path to config file (default: $XDG_CONFIG_HOME/blobfs/config.yaml)")
	logLevel := flags.String("log-level", "", "Log level override (DEBUG, INFO, WARN, ERROR)")
	withMetrics := flags.Bool("metrics", false, "Serve Prometheus metrics while the command runs")
	flags.Usage = func() { printUsage(stderr, flags) }

	if err := flags.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return 0
		}
		return 2
	}

	rest := flags.Args()
	if len(rest) == 0 || rest[0] == "help" {
		printUsage(stderr, flags)
		if len(rest) == 0 {
			return 2
		}
		return 0
	}

	name, cmdArgs := rest[0], rest[1:]

	// init writes the config file and must work without one.
	if name == "init" {
		if err := runInit(cmdArgs, *configPath, stdout); err != nil {
			fmt.Fprintf(stderr, "blobfs init: %v\n", err)
			return exitCode(err)
		}
		return 0
	}

	cmd, ok := commands[name]
	if !ok {
		fmt.Fprintf(stderr, "blobfs: unknown command %q\n", name)
		printUsage(stderr, flags)
		return 2
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(stderr, "blobfs: %v\n", err)
		return 1
	}
	if *logLevel != "" {
		cfg.Logging.Level = *logLevel
	}
	if *withMetrics {
		cfg.Metrics.Enabled = true
	}

	if err := logger.Configure(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	}); err != nil {
		fmt.Fprintf(stderr, "blobfs: %v\n", err)
		return 1
	}
	defer logger.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	m := config.InitializeMetrics(cfg)
	if m.Server != nil {
		go func() {
			if err := m.Server.Start(ctx); err != nil {
				logger.Error("Metrics server error: %v", err)
			}
		}()
		defer func() { _ = m.Server.Stop(context.Background()) }()
	}

	fsys, err := config.CreateFS(ctx, cfg, m)
	if err != nil {
		fmt.Fprintf(stderr, "blobfs: %v\n", err)
		return 1
	}
	defer func() {
		if err := fsys.Close(); err != nil {
			logger.Warn("Closing store: %v", err)
		}
	}()

	logger.Debug("Running %s on container %s (log level %s)", name, fsys.Store().Name(), logger.GetLevel())

	e := &env{fsys: fsys, stdin: stdin, stdout: stdout}
	if err := cmd.run(ctx, e, cmdArgs); err != nil {
		fmt.Fprintf(stderr, "blobfs %s: %v\n", name, err)
		return exitCode(err)
	}
	return 0
}

func printUsage(w io.Writer, flags *pflag.FlagSet) {
	fmt.Fprintln(w, "Usage: blobfs [flags] <command> [args]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Commands:")
	for _, name := range commandNames() {
		fmt.Fprintf(w, "  %-9s %s\n", name, commands[name].summary)
	}
	fmt.Fprintf(w, "  %-9s %s\n", "init", "write a sample config file")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Flags:")
	fmt.Fprint(w, flags.FlagUsages())
}
