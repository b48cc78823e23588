// Package config loads the settings of the batchpool command from YAML or
// JSON files.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"

	"github.com/baxromumarov/batchpool"
)

// Format is a configuration file format.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

var (
	// ErrUnsupportedFormat is returned for files that are neither YAML nor JSON.
	ErrUnsupportedFormat = errors.New("config: unsupported format")

	// ErrLoadFailed wraps read and parse failures.
	ErrLoadFailed = errors.New("config: load failed")

	// ErrInvalid wraps validation failures.
	ErrInvalid = errors.New("config: invalid value")
)

// Config describes a pool and the synthetic workload the command runs
// through it.
type Config struct {
	Name        string `koanf:"name"`
	Concurrency int    `koanf:"concurrency"`
	FailFast    bool   `koanf:"fail_fast"`

	Tasks     int           `koanf:"tasks"`      // number of synthetic tasks
	FailEvery int           `koanf:"fail_every"` // every n-th task fails; 0 disables
	TaskDelay time.Duration `koanf:"task_delay"` // how long each task takes
	StopAfter int           `koanf:"stop_after"` // stop after n batches; 0 disables
	Requeue   int           `koanf:"requeue"`    // tasks enqueued after the first batch
}

// Default returns the settings used when no file is given.
func Default() Config {
	return Config{
		Name:        "batchpool",
		Concurrency: batchpool.DefaultConcurrency,
		Tasks:       25,
		TaskDelay:   100 * time.Millisecond,
	}
}

// Load reads path and overlays it on [Default]. The format is taken from
// the file extension.
func Load(path string) (Config, error) {
	format, err := detectFormat(path)
	if err != nil {
		return Config{}, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("%w: %w", ErrLoadFailed, err)
	}
	return Parse(data, format)
}

// Parse decodes data and overlays it on [Default].
func Parse(data []byte, format Format) (Config, error) {
	parser, err := parserFor(format)
	if err != nil {
		return Config{}, err
	}

	k := koanf.New(".")
	if len(data) > 0 {
		if err := k.Load(rawbytes.Provider(data), parser); err != nil {
			return Config{}, fmt.Errorf("%w: %w", ErrLoadFailed, err)
		}
	}

	cfg := Default()
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return Config{}, fmt.Errorf("%w: %w", ErrLoadFailed, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the ranges of every field.
func (c Config) Validate() error {
	switch {
	case c.Concurrency < 1:
		return fmt.Errorf("%w: concurrency must be at least 1, got %d", ErrInvalid, c.Concurrency)
	case c.Tasks < 0:
		return fmt.Errorf("%w: tasks must not be negative, got %d", ErrInvalid, c.Tasks)
	case c.FailEvery < 0:
		return fmt.Errorf("%w: fail_every must not be negative, got %d", ErrInvalid, c.FailEvery)
	case c.TaskDelay < 0:
		return fmt.Errorf("%w: task_delay must not be negative, got %s", ErrInvalid, c.TaskDelay)
	case c.StopAfter < 0:
		return fmt.Errorf("%w: stop_after must not be negative, got %d", ErrInvalid, c.StopAfter)
	case c.Requeue < 0:
		return fmt.Errorf("%w: requeue must not be negative, got %d", ErrInvalid, c.Requeue)
	}
	return nil
}

// PoolOptions translates the pool part of c into batchpool options.
func (c Config) PoolOptions(logger *slog.Logger) []batchpool.Option {
	opts := []batchpool.Option{
		batchpool.WithName(c.Name),
		batchpool.WithConcurrency(c.Concurrency),
		batchpool.WithLogger(logger),
	}
	if c.FailFast {
		opts = append(opts, batchpool.WithFailFast())
	}
	return opts
}

func detectFormat(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".json":
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, path)
	}
}

func parserFor(format Format) (koanf.Parser, error) {
	switch format {
	case FormatYAML:
		return yaml.Parser(), nil
	case FormatJSON:
		return json.Parser(), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
}
