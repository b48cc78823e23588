package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/baxromumarov/batchpool"
)

func TestParseYAML(t *testing.T) {
	cfg, err := Parse([]byte(`
name: ingest
concurrency: 4
fail_fast: true
tasks: 40
fail_every: 7
task_delay: 25ms
stop_after: 3
requeue: 5
`), FormatYAML)
	require.NoError(t, err)

	assert.Equal(t, Config{
		Name:        "ingest",
		Concurrency: 4,
		FailFast:    true,
		Tasks:       40,
		FailEvery:   7,
		TaskDelay:   25 * time.Millisecond,
		StopAfter:   3,
		Requeue:     5,
	}, cfg)
}

func TestParseJSONKeepsDefaults(t *testing.T) {
	cfg, err := Parse([]byte(`{"concurrency": 3}`), FormatJSON)
	require.NoError(t, err)

	want := Default()
	want.Concurrency = 3
	assert.Equal(t, want, cfg)
}

func TestParseEmpty(t *testing.T) {
	cfg, err := Parse(nil, FormatYAML)
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestParseErrors(t *testing.T) {
	_, err := Parse([]byte(`concurrency: 0`), FormatYAML)
	assert.ErrorIs(t, err, ErrInvalid)

	_, err = Parse([]byte(`tasks: -1`), FormatYAML)
	assert.ErrorIs(t, err, ErrInvalid)

	_, err = Parse([]byte(`{not json`), FormatJSON)
	assert.ErrorIs(t, err, ErrLoadFailed)

	_, err = Parse([]byte(`a = 1`), Format("toml"))
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()

	path := filepath.Join(dir, "pool.yml")
	require.NoError(t, os.WriteFile(path, []byte("concurrency: 6\nname: from-file\n"), 0o600))
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 6, cfg.Concurrency)
	assert.Equal(t, "from-file", cfg.Name)

	_, err = Load(filepath.Join(dir, "missing.json"))
	assert.ErrorIs(t, err, ErrLoadFailed)

	_, err = Load(filepath.Join(dir, "pool.ini"))
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestPoolOptions(t *testing.T) {
	cfg := Default()
	cfg.Concurrency = 3
	cfg.FailFast = true

	p, err := batchpool.New[int](cfg.PoolOptions(nil)...)
	require.NoError(t, err)
	assert.Equal(t, 3, p.Concurrency())
}
