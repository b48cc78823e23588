// batchpool runs a synthetic workload through a batch pool and reports the
// outcome of every batch.
//
// Usage:
//
//	batchpool [options]
//
// Settings are read from --config (YAML or JSON) and then overridden by any
// flag given on the command line.
//
// Exit codes:
//
//	0: the run completed
//	1: the run was aborted (fail-fast failure or interrupt)
//	2: invalid flags or configuration
//
// Examples:
//
//	batchpool --tasks 12 --concurrency 4
//	batchpool --tasks 20 --fail-every 7 --fail-fast
//	batchpool --config workload.yaml --stop-after 2 --log-format json
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v3"

	"github.com/baxromumarov/batchpool/internal/config"
)

// Set with -ldflags "-X main.Version=...".
var Version = "0.1.0-dev"

type usageError struct {
	err error
}

func (e *usageError) Error() string { return e.err.Error() }
func (e *usageError) Unwrap() error { return e.err }

func main() {
	os.Exit(run())
}

func createApp(stdout, stderr io.Writer) *cli.Command {
	return &cli.Command{
		Name:      "batchpool",
		Usage:     "run a synthetic workload through a batch pool",
		Version:   Version,
		Writer:    stdout,
		ErrWriter: stderr,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "YAML or JSON settings file",
			},
			&cli.StringFlag{
				Name:  "name",
				Usage: "pool name used in logs",
			},
			&cli.IntFlag{
				Name:    "concurrency",
				Aliases: []string{"n"},
				Usage:   "tasks per batch",
			},
			&cli.BoolFlag{
				Name:  "fail-fast",
				Usage: "abort the run on the first failing task",
			},
			&cli.IntFlag{
				Name:  "tasks",
				Usage: "number of synthetic tasks",
			},
			&cli.IntFlag{
				Name:  "fail-every",
				Usage: "make every n-th task fail (0 disables)",
			},
			&cli.DurationFlag{
				Name:  "task-delay",
				Usage: "time each task takes",
			},
			&cli.IntFlag{
				Name:  "stop-after",
				Usage: "stop the run after n batches (0 disables)",
			},
			&cli.IntFlag{
				Name:  "requeue",
				Usage: "tasks enqueued while the first batch is settling",
			},
			&cli.BoolFlag{
				Name:  "debug",
				Usage: "enable debug logging",
			},
			&cli.StringFlag{
				Name:  "log-format",
				Usage: "log format: text or json",
				Value: "text",
			},
		},
		OnUsageError: func(_ context.Context, _ *cli.Command, err error, _ bool) error {
			return &usageError{err: err}
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return &usageError{err: err}
			}
			logger, err := newLogger(stderr, cmd.String("log-format"), cmd.Bool("debug"))
			if err != nil {
				return &usageError{err: err}
			}

			sum, err := runWorkload(ctx, cfg, logger, stdout)
			if err != nil {
				return err
			}
			sum.print(stdout)
			return nil
		},
	}
}

func run() int {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	err := createApp(os.Stdout, os.Stderr).Run(ctx, os.Args)
	if err == nil {
		return 0
	}
	var uerr *usageError
	if errors.As(err, &uerr) {
		fmt.Fprintf(os.Stderr, "usage error: %v\n", uerr)
		return 2
	}
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	return 1
}

// loadConfig reads the settings file, if any, and applies flag overrides.
func loadConfig(cmd *cli.Command) (config.Config, error) {
	cfg := config.Default()
	if path := cmd.String("config"); path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return config.Config{}, err
		}
		cfg = loaded
	}

	if cmd.IsSet("name") {
		cfg.Name = cmd.String("name")
	}
	if cmd.IsSet("concurrency") {
		cfg.Concurrency = cmd.Int("concurrency")
	}
	if cmd.IsSet("fail-fast") {
		cfg.FailFast = cmd.Bool("fail-fast")
	}
	if cmd.IsSet("tasks") {
		cfg.Tasks = cmd.Int("tasks")
	}
	if cmd.IsSet("fail-every") {
		cfg.FailEvery = cmd.Int("fail-every")
	}
	if cmd.IsSet("task-delay") {
		cfg.TaskDelay = cmd.Duration("task-delay")
	}
	if cmd.IsSet("stop-after") {
		cfg.StopAfter = cmd.Int("stop-after")
	}
	if cmd.IsSet("requeue") {
		cfg.Requeue = cmd.Int("requeue")
	}
	return cfg, cfg.Validate()
}

func newLogger(w io.Writer, format string, debug bool) (*slog.Logger, error) {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}

	switch format {
	case "", "text":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	case "json":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	default:
		return nil, fmt.Errorf("unknown log format %q", format)
	}
}
