// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import "time"

// DefaultCommands is the diagnostic battery run against VRP devices.
var DefaultCommands = []string{
	"display version",
	"display cpu-usage",
	"display memory-usage",
	"display interface brief",
	"display ip routing-table",
	"display logbuffer | include ERROR",
}

// DefaultPrompt is the analysis prompt; {{.Report}} is replaced by the report body.
const DefaultPrompt = `You are a senior network operations engineer. Analyse the router inspection data below and answer strictly in this structure:
[Overall health score] 0-100
[Risks / anomalies] one per line
[Recommendations] one per line
[Key metrics] as a table

Raw data:
{{.Report}}`

// Default returns the built-in configuration.
func Default() AppConfig {
	return AppConfig{
		LogLevel: "info",
		Device: DeviceConfig{
			Host:            "192.168.31.199",
			Port:            22,
			Username:        "python",
			ConnectTimeout:  15 * time.Second,
			ConnectAttempts: 3,
			RetryBackoff:    2 * time.Second,
			SettleDelay:     time.Second,
			Charset:         "utf-8",
		},
		Collector: CollectorConfig{
			Commands:       append([]string(nil), DefaultCommands...),
			PollInterval:   300 * time.Millisecond,
			IdleTimeout:    2 * time.Second,
			CommandTimeout: 30 * time.Second,
			ResponseDelay:  time.Second,
			CommandGap:     time.Second,
			PagerMarker:    "---- More ----",
			ContinueKey:    " ",
		},
		Analysis: AnalysisConfig{
			Endpoint:         "http://172.17.0.1:11434/api/generate",
			Model:            "deepseek-r1:7b",
			Timeout:          600 * time.Second,
			Temperature:      0.3,
			NumPredict:       2048,
			NumCtx:           4096,
			Prompt:           DefaultPrompt,
			BreakerThreshold: 3,
			BreakerReset:     time.Minute,
		},
		Server: ServerConfig{
			Listen:            ":5000",
			TriggerRateLimit:  10,
			HeartbeatInterval: 15 * time.Second,
			SubscriberBuffer:  64,
			ShutdownTimeout:   10 * time.Second,
		},
		Tracing: TracingConfig{
			Exporter:     "grpc",
			Endpoint:     "localhost:4317",
			SamplingRate: 1.0,
		},
	}
}
