// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "netinspect.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := NewLoader("", "test").Load()
	require.NoError(t, err)

	assert.Equal(t, "192.168.31.199", cfg.Device.Host)
	assert.Equal(t, 22, cfg.Device.Port)
	assert.Equal(t, "python", cfg.Device.Username)
	assert.Equal(t, 15*time.Second, cfg.Device.ConnectTimeout)
	assert.Equal(t, 3, cfg.Device.ConnectAttempts)
	assert.Equal(t, DefaultCommands, cfg.Collector.Commands)
	assert.Equal(t, "---- More ----", cfg.Collector.PagerMarker)
	assert.Equal(t, 600*time.Second, cfg.Analysis.Timeout)
	assert.Equal(t, ":5000", cfg.Server.Listen)
	assert.Equal(t, "test", cfg.Version)
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
device:
  host: 10.0.0.1
  port: 2222
collector:
  commands:
    - display version
    - display clock
  idleTimeout: 1500ms
analysis:
  model: qwen2:7b
`)
	cfg, err := NewLoader(path, "").Load()
	require.NoError(t, err)

	assert.Equal(t, "10.0.0.1", cfg.Device.Host)
	assert.Equal(t, 2222, cfg.Device.Port)
	assert.Equal(t, "python", cfg.Device.Username, "absent keys keep defaults")
	assert.Equal(t, []string{"display version", "display clock"}, cfg.Collector.Commands)
	assert.Equal(t, 1500*time.Millisecond, cfg.Collector.IdleTimeout)
	assert.Equal(t, "qwen2:7b", cfg.Analysis.Model)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeConfig(t, "device:\n  host: 10.0.0.1\n")
	t.Setenv(EnvRouterHost, "10.9.9.9")
	t.Setenv(EnvRouterPass, "s3cret")
	t.Setenv(EnvCommands, "display version;display cpu-usage")
	t.Setenv(EnvListen, "127.0.0.1:8080")

	l := NewLoader(path, "")
	cfg, err := l.Load()
	require.NoError(t, err)

	assert.Equal(t, "10.9.9.9", cfg.Device.Host)
	assert.Equal(t, "s3cret", cfg.Device.Password)
	assert.Equal(t, []string{"display version", "display cpu-usage"}, cfg.Collector.Commands)
	assert.Equal(t, "127.0.0.1:8080", cfg.Server.Listen)
	assert.Contains(t, l.ConsumedEnvKeys, EnvRouterHost)
	assert.Contains(t, l.ConsumedEnvKeys, EnvCommands)
}

func TestLoad_UnknownFieldRejected(t *testing.T) {
	path := writeConfig(t, "device:\n  hostname: nope\n")
	_, err := NewLoader(path, "").Load()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnknownConfigField), "got %v", err)
}

func TestLoad_UnsupportedExtension(t *testing.T) {
	path := filepath.Join(t.TempDir(), "netinspect.json")
	require.NoError(t, os.WriteFile(path, []byte("{}"), 0o600))
	_, err := NewLoader(path, "").Load()
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestLoad_EmptyFile(t *testing.T) {
	path := writeConfig(t, "")
	cfg, err := NewLoader(path, "").Load()
	require.NoError(t, err)
	assert.Equal(t, Default().Device.Host, cfg.Device.Host)
}

func TestLoad_MultipleDocumentsRejected(t *testing.T) {
	path := writeConfig(t, "logLevel: info\n---\nlogLevel: debug\n")
	_, err := NewLoader(path, "").Load()
	assert.Error(t, err)
}

func TestMasked(t *testing.T) {
	cfg := Default()
	cfg.Device.Password = "hunter2"
	m := Masked(cfg)
	assert.Equal(t, "***", m.Device.Password)
	assert.Equal(t, "hunter2", cfg.Device.Password)

	m.Collector.Commands[0] = "changed"
	assert.Equal(t, "display version", cfg.Collector.Commands[0])
}
