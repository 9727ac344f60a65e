// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import "time"

// AppConfig is the complete runtime configuration.
type AppConfig struct {
	LogLevel  string          `yaml:"logLevel"`
	Device    DeviceConfig    `yaml:"device"`
	Collector CollectorConfig `yaml:"collector"`
	Analysis  AnalysisConfig  `yaml:"analysis"`
	Server    ServerConfig    `yaml:"server"`
	Tracing   TracingConfig   `yaml:"tracing"`

	Version string `yaml:"-"`
}

// DeviceConfig describes the inspected device and how to reach it.
type DeviceConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	Username        string        `yaml:"username"`
	Password        string        `yaml:"password"`
	ConnectTimeout  time.Duration `yaml:"connectTimeout"`
	ConnectAttempts int           `yaml:"connectAttempts"`
	RetryBackoff    time.Duration `yaml:"retryBackoff"`
	SettleDelay     time.Duration `yaml:"settleDelay"`
	KnownHostsFile  string        `yaml:"knownHostsFile"`
	SocksProxy      string        `yaml:"socksProxy"`
	Charset         string        `yaml:"charset"`
}

// CollectorConfig holds the command battery and the pagination handling policy.
type CollectorConfig struct {
	Commands       []string      `yaml:"commands"`
	PollInterval   time.Duration `yaml:"pollInterval"`
	IdleTimeout    time.Duration `yaml:"idleTimeout"`
	CommandTimeout time.Duration `yaml:"commandTimeout"`
	ResponseDelay  time.Duration `yaml:"responseDelay"`
	CommandGap     time.Duration `yaml:"commandGap"`
	PagerMarker    string        `yaml:"pagerMarker"`
	ContinueKey    string        `yaml:"continueKey"`
}

// AnalysisConfig configures the LLM analysis backend.
type AnalysisConfig struct {
	Endpoint         string        `yaml:"endpoint"`
	Model            string        `yaml:"model"`
	Timeout          time.Duration `yaml:"timeout"`
	Temperature      float64       `yaml:"temperature"`
	NumPredict       int           `yaml:"numPredict"`
	NumCtx           int           `yaml:"numCtx"`
	Prompt           string        `yaml:"prompt"`
	BreakerThreshold int           `yaml:"breakerThreshold"`
	BreakerReset     time.Duration `yaml:"breakerReset"`
}

// ServerConfig configures the HTTP front-end.
type ServerConfig struct {
	Listen            string        `yaml:"listen"`
	MetricsListen     string        `yaml:"metricsListen"`
	TriggerRateLimit  int           `yaml:"triggerRateLimit"`
	HeartbeatInterval time.Duration `yaml:"heartbeatInterval"`
	SubscriberBuffer  int           `yaml:"subscriberBuffer"`
	ShutdownTimeout   time.Duration `yaml:"shutdownTimeout"`
}

// TracingConfig configures OpenTelemetry export.
type TracingConfig struct {
	Enabled      bool    `yaml:"enabled"`
	Exporter     string  `yaml:"exporter"`
	Endpoint     string  `yaml:"endpoint"`
	SamplingRate float64 `yaml:"samplingRate"`
}
