// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"fmt"
	"strings"

	"github.com/ManuGH/netinspect/internal/validate"
)

// Validate validates an AppConfig using the centralized validation package
func Validate(cfg AppConfig) error {
	v := validate.New()

	v.LogLevel("LogLevel", cfg.LogLevel)

	// Device
	v.NotEmpty("Device.Host", cfg.Device.Host)
	v.Port("Device.Port", cfg.Device.Port)
	v.NotEmpty("Device.Username", cfg.Device.Username)
	v.Positive("Device.ConnectTimeout", cfg.Device.ConnectTimeout)
	v.Range("Device.ConnectAttempts", cfg.Device.ConnectAttempts, 1, 10)
	v.NonNegative("Device.RetryBackoff", cfg.Device.RetryBackoff)
	v.NonNegative("Device.SettleDelay", cfg.Device.SettleDelay)

	// Collector
	if len(cfg.Collector.Commands) == 0 {
		v.AddError("Collector.Commands", "command battery cannot be empty", nil)
	}
	for i, cmd := range cfg.Collector.Commands {
		if strings.TrimSpace(cmd) == "" {
			v.AddError(fmt.Sprintf("Collector.Commands[%d]", i), "command cannot be empty", cmd)
		}
	}
	v.Positive("Collector.PollInterval", cfg.Collector.PollInterval)
	v.Positive("Collector.IdleTimeout", cfg.Collector.IdleTimeout)
	v.Positive("Collector.CommandTimeout", cfg.Collector.CommandTimeout)
	v.NonNegative("Collector.ResponseDelay", cfg.Collector.ResponseDelay)
	v.NonNegative("Collector.CommandGap", cfg.Collector.CommandGap)
	v.NotEmpty("Collector.PagerMarker", cfg.Collector.PagerMarker)
	if cfg.Collector.ContinueKey == "" {
		v.AddError("Collector.ContinueKey", "cannot be empty", cfg.Collector.ContinueKey)
	}
	if cfg.Collector.IdleTimeout >= cfg.Collector.CommandTimeout {
		v.AddError("Collector.IdleTimeout", "must be shorter than Collector.CommandTimeout", cfg.Collector.IdleTimeout)
	}

	// Analysis
	v.URL("Analysis.Endpoint", cfg.Analysis.Endpoint, []string{"http", "https"})
	v.NotEmpty("Analysis.Model", cfg.Analysis.Model)
	v.Positive("Analysis.Timeout", cfg.Analysis.Timeout)
	v.FloatRange("Analysis.Temperature", cfg.Analysis.Temperature, 0, 2)
	v.NotEmpty("Analysis.Prompt", cfg.Analysis.Prompt)
	v.Range("Analysis.BreakerThreshold", cfg.Analysis.BreakerThreshold, 1, 100)
	v.Positive("Analysis.BreakerReset", cfg.Analysis.BreakerReset)

	// Server
	v.ListenAddr("Server.Listen", cfg.Server.Listen, false)
	v.ListenAddr("Server.MetricsListen", cfg.Server.MetricsListen, true)
	v.Range("Server.TriggerRateLimit", cfg.Server.TriggerRateLimit, 1, 10000)
	v.Positive("Server.HeartbeatInterval", cfg.Server.HeartbeatInterval)
	v.Range("Server.SubscriberBuffer", cfg.Server.SubscriberBuffer, 1, 1<<16)
	v.Positive("Server.ShutdownTimeout", cfg.Server.ShutdownTimeout)

	// Tracing
	if cfg.Tracing.Enabled {
		v.OneOf("Tracing.Exporter", cfg.Tracing.Exporter, []string{"grpc", "http"})
		v.NotEmpty("Tracing.Endpoint", cfg.Tracing.Endpoint)
		v.FloatRange("Tracing.SamplingRate", cfg.Tracing.SamplingRate, 0, 1)
	}

	return v.Err()
}
