// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package daemon

import (
	"bufio"
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/ManuGH/netinspect/internal/config"
	xglog "github.com/ManuGH/netinspect/internal/log"
)

func reserveListenAddr(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	_ = ln.Close()
	return addr
}

func waitForListen(addr string, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		conn, err := net.DialTimeout("tcp", addr, 50*time.Millisecond)
		if err == nil {
			_ = conn.Close()
			return nil
		}
		time.Sleep(10 * time.Millisecond)
	}
	return errors.New("listen timeout")
}

func testServerConfig(t *testing.T) config.ServerConfig {
	return config.ServerConfig{
		Listen:          reserveListenAddr(t),
		ShutdownTimeout: 2 * time.Second,
	}
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = io.WriteString(w, "ok")
	})
}

func get(t *testing.T, client *http.Client, url string) (int, string) {
	t.Helper()
	resp, err := client.Get(url)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(body)
}

func TestNewManager_Validation(t *testing.T) {
	_, err := NewManager(config.ServerConfig{}, Deps{Logger: xglog.WithComponent("test"), APIHandler: okHandler()})
	require.NoError(t, err)

	_, err = NewManager(config.ServerConfig{}, Deps{Logger: xglog.WithComponent("test")})
	assert.ErrorIs(t, err, ErrMissingAPIHandler)
}

func TestDepsValidate_DisabledLogger(t *testing.T) {
	d := Deps{Logger: zerolog.Nop(), APIHandler: okHandler()}
	assert.ErrorIs(t, d.Validate(), ErrMissingLogger)
}

func TestManager_ServesAndShutsDown(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	cfg := testServerConfig(t)
	cfg.MetricsListen = reserveListenAddr(t)

	mgr, err := NewManager(cfg, Deps{
		Logger:         xglog.WithComponent("test"),
		APIHandler:     okHandler(),
		MetricsHandler: okHandler(),
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- mgr.Start(ctx) }()

	require.NoError(t, waitForListen(cfg.Listen, 2*time.Second))
	require.NoError(t, waitForListen(cfg.MetricsListen, 2*time.Second))

	client := &http.Client{}
	defer client.CloseIdleConnections()
	code, body := get(t, client, "http://"+cfg.Listen+"/")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok", body)
	code, _ = get(t, client, "http://"+cfg.MetricsListen+"/metrics")
	assert.Equal(t, http.StatusOK, code)
	client.CloseIdleConnections()

	cancel()
	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("manager did not stop")
	}

	assert.Error(t, waitForListen(cfg.Listen, 100*time.Millisecond))
}

func TestManager_StartTwice(t *testing.T) {
	cfg := testServerConfig(t)
	mgr, err := NewManager(cfg, Deps{Logger: xglog.WithComponent("test"), APIHandler: okHandler()})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- mgr.Start(ctx) }()
	require.NoError(t, waitForListen(cfg.Listen, 2*time.Second))

	assert.ErrorIs(t, mgr.Start(ctx), ErrManagerStarted)

	cancel()
	require.NoError(t, <-errCh)
}

func TestManager_ShutdownBeforeStart(t *testing.T) {
	mgr, err := NewManager(testServerConfig(t), Deps{Logger: xglog.WithComponent("test"), APIHandler: okHandler()})
	require.NoError(t, err)
	assert.ErrorIs(t, mgr.Shutdown(context.Background()), ErrManagerNotStarted)
}

func TestManager_ListenError(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer func() { _ = ln.Close() }()

	mgr, err := NewManager(config.ServerConfig{Listen: ln.Addr().String()}, Deps{
		Logger:     xglog.WithComponent("test"),
		APIHandler: okHandler(),
	})
	require.NoError(t, err)

	err = mgr.Start(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to start API server")
}

func TestManager_ShutdownHooksLIFO(t *testing.T) {
	cfg := testServerConfig(t)
	mgr, err := NewManager(cfg, Deps{Logger: xglog.WithComponent("test"), APIHandler: okHandler()})
	require.NoError(t, err)

	var (
		mu    sync.Mutex
		order []string
	)
	record := func(name string, err error) ShutdownHook {
		return func(context.Context) error {
			mu.Lock()
			order = append(order, name)
			mu.Unlock()
			return err
		}
	}
	mgr.RegisterShutdownHook("first", record("first", nil))
	mgr.RegisterShutdownHook("second", record("second", errors.New("flush failed")))
	mgr.RegisterShutdownHook("third", record("third", nil))

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- mgr.Start(ctx) }()
	require.NoError(t, waitForListen(cfg.Listen, 2*time.Second))
	cancel()

	err = <-errCh
	require.Error(t, err)
	assert.Contains(t, err.Error(), "hook second")
	assert.Equal(t, []string{"third", "second", "first"}, order)

	// Second shutdown is a no-op.
	assert.NoError(t, mgr.Shutdown(context.Background()))
}

// A long-lived stream only ends when OnAPIShutdown tells it to.
func TestManager_OnAPIShutdownEndsStreams(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	release := make(chan struct{})
	var once sync.Once
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = io.WriteString(w, "data: hello\n\n")
		http.NewResponseController(w).Flush()
		<-release
	})

	cfg := testServerConfig(t)
	cfg.ShutdownTimeout = 5 * time.Second
	mgr, err := NewManager(cfg, Deps{
		Logger:        xglog.WithComponent("test"),
		APIHandler:    handler,
		OnAPIShutdown: func() { once.Do(func() { close(release) }) },
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- mgr.Start(ctx) }()
	require.NoError(t, waitForListen(cfg.Listen, 2*time.Second))

	client := &http.Client{}
	defer client.CloseIdleConnections()
	resp, err := client.Get("http://" + cfg.Listen + "/stream")
	require.NoError(t, err)
	line, err := bufio.NewReader(resp.Body).ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, "data: hello\n", line)

	start := time.Now()
	cancel()
	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(4 * time.Second):
		t.Fatal("shutdown waited for the open stream")
	}
	assert.Less(t, time.Since(start), 2*time.Second)

	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()
}
