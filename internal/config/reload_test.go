// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHolder_ReloadSwapsValidConfig(t *testing.T) {
	path := writeConfig(t, "collector:\n  commands: [display version]\n")
	loader := NewLoader(path, "")
	initial, err := loader.Load()
	require.NoError(t, err)

	h := NewHolder(initial, loader)
	assert.Equal(t, []string{"display version"}, h.Get().Collector.Commands)

	ch := make(chan AppConfig, 1)
	h.RegisterListener(ch)

	require.NoError(t, os.WriteFile(path, []byte("collector:\n  commands: [display clock, display cpu-usage]\n"), 0o600))
	require.NoError(t, h.Reload(context.Background()))

	assert.Equal(t, []string{"display clock", "display cpu-usage"}, h.Get().Collector.Commands)
	select {
	case got := <-ch:
		assert.Len(t, got.Collector.Commands, 2)
	default:
		t.Fatal("listener was not notified")
	}
}

func TestHolder_ReloadKeepsOldOnInvalid(t *testing.T) {
	path := writeConfig(t, "collector:\n  commands: [display version]\n")
	loader := NewLoader(path, "")
	initial, err := loader.Load()
	require.NoError(t, err)
	h := NewHolder(initial, loader)

	require.NoError(t, os.WriteFile(path, []byte("collector:\n  commands: []\n"), 0o600))
	require.Error(t, h.Reload(context.Background()))
	assert.Equal(t, []string{"display version"}, h.Get().Collector.Commands)
}

func TestHolder_WatcherDisabledWithoutFile(t *testing.T) {
	h := NewHolder(Default(), NewLoader("", ""))
	require.NoError(t, h.StartWatcher(context.Background()))
	h.Stop()
}

func TestHolder_WatcherReloadsOnWrite(t *testing.T) {
	path := writeConfig(t, "analysis:\n  model: a:1b\n")
	loader := NewLoader(path, "")
	initial, err := loader.Load()
	require.NoError(t, err)
	h := NewHolder(initial, loader)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, h.StartWatcher(ctx))

	require.NoError(t, os.WriteFile(path, []byte("analysis:\n  model: b:2b\n"), 0o600))

	assert.Eventually(t, func() bool {
		return h.Get().Analysis.Model == "b:2b"
	}, 5*time.Second, 50*time.Millisecond)
}
