package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	require.Equal(t, 8080, cfg.Server.Port)
	require.Equal(t, 4, cfg.Crawler.Concurrency)
	require.Equal(t, 2, cfg.Crawler.TaskWorkers)
	require.Equal(t, 64, cfg.Crawler.QueueDepth)
	require.Equal(t, "pageharvest-bot/0.1", cfg.Crawler.UserAgent)
	require.Equal(t, 1, cfg.Crawler.MaxDepthDefault)
	require.Equal(t, 10, cfg.Crawler.MaxPagesDefault)
	require.True(t, cfg.Crawler.SameHostOnly)
	require.Equal(t, 20, cfg.Extract.MinParagraphLen)
	require.Equal(t, 100, cfg.Extract.MaxLinks)
	require.Empty(t, cfg.Report.Dir)
	require.Equal(t, 15*time.Second, cfg.FetchTimeout())
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := []byte(`
server:
  port: 9090
crawler:
  concurrency: 8
  timeout_seconds: 30
report:
  dir: /tmp/reports
`)
	require.NoError(t, os.WriteFile(path, content, 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, 9090, cfg.Server.Port)
	require.Equal(t, 8, cfg.Crawler.Concurrency)
	require.Equal(t, 30*time.Second, cfg.FetchTimeout())
	require.Equal(t, "/tmp/reports", cfg.Report.Dir)
	// Unset keys still fall back to defaults.
	require.Equal(t, 10, cfg.Crawler.MaxPagesDefault)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero port", func(c *Config) { c.Server.Port = 0 }},
		{"zero concurrency", func(c *Config) { c.Crawler.Concurrency = 0 }},
		{"zero task workers", func(c *Config) { c.Crawler.TaskWorkers = 0 }},
		{"zero queue depth", func(c *Config) { c.Crawler.QueueDepth = 0 }},
		{"zero timeout", func(c *Config) { c.Crawler.TimeoutSeconds = 0 }},
		{"zero max pages default", func(c *Config) { c.Crawler.MaxPagesDefault = 0 }},
		{"negative paragraph length", func(c *Config) { c.Extract.MinParagraphLen = -1 }},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg, err := Load("")
			require.NoError(t, err)
			tc.mutate(&cfg)
			require.Error(t, cfg.Validate())
		})
	}
}
