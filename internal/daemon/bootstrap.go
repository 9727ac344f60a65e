// SPDX-License-Identifier: MIT

// Package daemon wires the inspection runtime together and owns its lifecycle.
package daemon

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/ManuGH/netinspect/internal/analysis"
	"github.com/ManuGH/netinspect/internal/api"
	"github.com/ManuGH/netinspect/internal/config"
	"github.com/ManuGH/netinspect/internal/device"
	"github.com/ManuGH/netinspect/internal/health"
	"github.com/ManuGH/netinspect/internal/inspection"
	xglog "github.com/ManuGH/netinspect/internal/log"
	"github.com/ManuGH/netinspect/internal/progress"
	"github.com/ManuGH/netinspect/internal/telemetry"
)

// Options control how the runtime is assembled.
type Options struct {
	// ConfigPath is the optional YAML config file.
	ConfigPath string
	// Version is the build version.
	Version string
	// LogOutput defaults to stdout.
	LogOutput io.Writer
}

// Runtime is the assembled object graph. SSH transport options and the
// device retry policy are fixed at bootstrap; everything else a run needs is
// read from Config at run start.
type Runtime struct {
	Logger     zerolog.Logger
	Config     *config.Holder
	Bus        *progress.Bus
	Inspection *inspection.Service
	API        *api.Server
	Telemetry  *telemetry.Provider

	analysisHTTP *http.Client
}

// Bootstrap loads configuration and builds every component.
func Bootstrap(ctx context.Context, opts Options) (*Runtime, error) {
	loader := config.NewLoader(opts.ConfigPath, opts.Version)
	cfg, err := loader.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	xglog.Configure(xglog.Config{
		Level:   cfg.LogLevel,
		Output:  opts.LogOutput,
		Version: opts.Version,
	})
	logger := xglog.WithComponent("daemon")
	logger.Info().
		Str(xglog.FieldEvent, "daemon.bootstrap").
		Str("config_path", opts.ConfigPath).
		Msg("assembling runtime")

	if err := health.PerformStartupChecks(ctx, cfg); err != nil {
		return nil, fmt.Errorf("startup checks: %w", err)
	}

	tp, err := telemetry.NewProvider(ctx, telemetry.Config{
		Enabled:        cfg.Tracing.Enabled,
		ServiceName:    "netinspect",
		ServiceVersion: opts.Version,
		Environment:    config.ParseString("NETINSPECT_ENVIRONMENT", "production"),
		ExporterType:   cfg.Tracing.Exporter,
		Endpoint:       cfg.Tracing.Endpoint,
		SamplingRate:   cfg.Tracing.SamplingRate,
	})
	if err != nil {
		logger.Warn().Err(err).Str(xglog.FieldEvent, "telemetry.init_failed").Msg("telemetry initialization failed, continuing without tracing")
		tp = nil
	}

	dialer, err := device.NewSSHDialer(device.SSHOptions{
		KnownHostsFile: cfg.Device.KnownHostsFile,
		SocksProxy:     cfg.Device.SocksProxy,
	})
	if err != nil {
		return nil, fmt.Errorf("ssh dialer: %w", err)
	}

	holder := config.NewHolder(cfg, loader)
	bus := progress.NewBus(cfg.Server.SubscriberBuffer)
	hc := analysis.NewTransport()

	svc, err := inspection.New(inspection.Deps{
		Config:    holder,
		Devices:   device.NewManager(dialer, device.PolicyFromConfig(cfg.Device)),
		Analyzers: inspection.OllamaAnalyzers(hc, analysis.NewBreaker(cfg.Analysis)),
		Bus:       bus,
	})
	if err != nil {
		return nil, err
	}

	apiCfg := api.Config{
		Version:          opts.Version,
		TriggerRateLimit: cfg.Server.TriggerRateLimit,
		Heartbeat:        cfg.Server.HeartbeatInterval,
	}
	if cfg.Tracing.Enabled {
		apiCfg.TracingService = "netinspect"
	}
	srv, err := api.New(api.Deps{
		Inspector: svc,
		Bus:       bus,
		Health:    health.NewManager(opts.Version),
		Config:    apiCfg,
	})
	if err != nil {
		return nil, err
	}

	rt := &Runtime{
		Logger:       logger,
		Config:       holder,
		Bus:          bus,
		Inspection:   svc,
		API:          srv,
		Telemetry:    tp,
		analysisHTTP: hc,
	}
	rt.registerChecks(srv.HealthManager())
	return rt, nil
}

func (r *Runtime) registerChecks(hm *health.Manager) {
	hm.RegisterChecker(health.NewTCPChecker("device", func() string {
		dev := r.Config.Get().Device
		// Reachability behind a jump proxy is only known to the proxy.
		if dev.SocksProxy != "" {
			return ""
		}
		return device.TargetFromConfig(dev).Endpoint.Addr()
	}))
	hm.RegisterChecker(health.NewPingChecker("analysis", func(ctx context.Context) error {
		client, err := analysis.NewClient(r.Config.Get().Analysis, analysis.WithHTTPClient(r.analysisHTTP))
		if err != nil {
			return err
		}
		return client.Ping(ctx)
	}))
	hm.RegisterChecker(health.NewWorkerChecker("inspection_worker", r.Inspection.Done()))
	hm.RegisterChecker(health.NewLastRunChecker(func() (time.Time, string) {
		last := r.Inspection.State().Last
		if last == nil {
			return time.Time{}, ""
		}
		return last.FinishedAt, last.Outcome
	}))
}

// App builds the server manager and the lifecycle orchestrator.
func (r *Runtime) App() (*App, error) {
	cfg := r.Config.Get()

	var metricsHandler http.Handler
	if cfg.Server.MetricsListen != "" {
		metricsHandler = promhttp.Handler()
	}

	mgr, err := NewManager(cfg.Server, Deps{
		Logger:         r.Logger,
		APIHandler:     r.API.Handler(),
		MetricsHandler: metricsHandler,
		OnAPIShutdown:  r.Bus.Close,
	})
	if err != nil {
		return nil, err
	}
	mgr.RegisterShutdownHook("config_watcher", func(context.Context) error {
		r.Config.Stop()
		return nil
	})
	mgr.RegisterShutdownHook("analysis_transport", func(context.Context) error {
		r.analysisHTTP.CloseIdleConnections()
		return nil
	})
	if r.Telemetry != nil {
		mgr.RegisterShutdownHook("telemetry", r.Telemetry.Shutdown)
	}
	return NewApp(r.Logger, mgr, r.Config, r.Inspection), nil
}

// Close releases what a Runtime holds when no App was run.
func (r *Runtime) Close(ctx context.Context) error {
	r.Bus.Close()
	r.analysisHTTP.CloseIdleConnections()
	if r.Telemetry != nil {
		return r.Telemetry.Shutdown(ctx)
	}
	return nil
}

// WaitForShutdown returns a context cancelled on interrupt/termination signals.
func WaitForShutdown() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}
