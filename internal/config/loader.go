// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Environment keys.
const (
	EnvRouterHost     = "ROUTER_HOST"
	EnvRouterPort     = "ROUTER_PORT"
	EnvRouterUser     = "ROUTER_USER"
	EnvRouterPass     = "ROUTER_PASS"
	EnvConnectTimeout = "ROUTER_CONNECT_TIMEOUT"
	EnvKnownHosts     = "ROUTER_KNOWN_HOSTS"
	EnvSocksProxy     = "ROUTER_SOCKS_PROXY"
	EnvCharset        = "ROUTER_CHARSET"

	EnvConfigPath     = "NETINSPECT_CONFIG"
	EnvListen         = "NETINSPECT_LISTEN"
	EnvMetricsListen  = "NETINSPECT_METRICS_LISTEN"
	EnvLogLevel       = "NETINSPECT_LOG_LEVEL"
	EnvCommands       = "NETINSPECT_COMMANDS"
	EnvCommandTimeout = "NETINSPECT_COMMAND_TIMEOUT"
	EnvIdleTimeout    = "NETINSPECT_IDLE_TIMEOUT"
	EnvPollInterval   = "NETINSPECT_POLL_INTERVAL"
	EnvPagerMarker    = "NETINSPECT_PAGER_MARKER"
	EnvRateLimit      = "NETINSPECT_RATE_LIMIT"

	EnvTracingEnabled  = "NETINSPECT_TRACING_ENABLED"
	EnvTracingExporter = "NETINSPECT_TRACING_EXPORTER"
	EnvTracingEndpoint = "NETINSPECT_TRACING_ENDPOINT"
	EnvTracingSampling = "NETINSPECT_TRACING_SAMPLING_RATE"

	EnvOllamaURL       = "OLLAMA_URL"
	EnvOllamaModel     = "OLLAMA_MODEL"
	EnvAnalysisTimeout = "ANALYSIS_TIMEOUT"
)

// Loader handles configuration loading with precedence
type Loader struct {
	configPath      string
	version         string
	ConsumedEnvKeys map[string]struct{} // keys read during the last Load
}

// NewLoader creates a new configuration loader
func NewLoader(configPath, version string) *Loader {
	return &Loader{
		configPath:      configPath,
		version:         version,
		ConsumedEnvKeys: make(map[string]struct{}),
	}
}

// Path returns the config file path (may be empty).
func (l *Loader) Path() string { return l.configPath }

func (l *Loader) envString(key, current string) string {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseString(key, current)
}

func (l *Loader) envInt(key string, current int) int {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseInt(key, current)
}

func (l *Loader) envDuration(key string, current time.Duration) time.Duration {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseDuration(key, current)
}

func (l *Loader) envBool(key string, current bool) bool {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseBool(key, current)
}

func (l *Loader) envFloat(key string, current float64) float64 {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseFloat(key, current)
}

// Load loads configuration with precedence: ENV > File > Defaults.
// The result is validated before it is returned.
func (l *Loader) Load() (AppConfig, error) {
	cfg := Default()
	cfg.Version = l.version

	if l.configPath != "" {
		if err := l.loadFile(l.configPath, &cfg); err != nil {
			return cfg, fmt.Errorf("load config file: %w", err)
		}
	}

	l.mergeEnv(&cfg)

	if err := Validate(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// loadFile decodes the YAML file on top of cfg. Keys absent in the file keep their value.
func (l *Loader) loadFile(path string, cfg *AppConfig) error {
	path = filepath.Clean(path)

	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".yaml" && ext != ".yml" {
		return fmt.Errorf("%w: %s (only YAML supported)", ErrUnsupportedFormat, ext)
	}

	// #nosec G304 -- configuration file paths are provided by the operator via CLI/ENV
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read file: %w", err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	if err := dec.Decode(cfg); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		if strings.Contains(err.Error(), "field") && strings.Contains(err.Error(), "not found") {
			return fmt.Errorf("%w: %v", ErrUnknownConfigField, err)
		}
		return fmt.Errorf("strict config parse error: %w", err)
	}

	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return fmt.Errorf("config file contains multiple documents or trailing content")
	}
	return nil
}

func (l *Loader) mergeEnv(cfg *AppConfig) {
	cfg.LogLevel = l.envString(EnvLogLevel, cfg.LogLevel)

	d := &cfg.Device
	d.Host = l.envString(EnvRouterHost, d.Host)
	d.Port = l.envInt(EnvRouterPort, d.Port)
	d.Username = l.envString(EnvRouterUser, d.Username)
	d.Password = l.envString(EnvRouterPass, d.Password)
	d.ConnectTimeout = l.envDuration(EnvConnectTimeout, d.ConnectTimeout)
	d.KnownHostsFile = l.envString(EnvKnownHosts, d.KnownHostsFile)
	d.SocksProxy = l.envString(EnvSocksProxy, d.SocksProxy)
	d.Charset = l.envString(EnvCharset, d.Charset)

	c := &cfg.Collector
	l.ConsumedEnvKeys[EnvCommands] = struct{}{}
	c.Commands = ParseStringList(EnvCommands, ";", c.Commands)
	c.CommandTimeout = l.envDuration(EnvCommandTimeout, c.CommandTimeout)
	c.IdleTimeout = l.envDuration(EnvIdleTimeout, c.IdleTimeout)
	c.PollInterval = l.envDuration(EnvPollInterval, c.PollInterval)
	c.PagerMarker = l.envString(EnvPagerMarker, c.PagerMarker)

	a := &cfg.Analysis
	a.Endpoint = l.envString(EnvOllamaURL, a.Endpoint)
	a.Model = l.envString(EnvOllamaModel, a.Model)
	a.Timeout = l.envDuration(EnvAnalysisTimeout, a.Timeout)

	s := &cfg.Server
	s.Listen = l.envString(EnvListen, s.Listen)
	s.MetricsListen = l.envString(EnvMetricsListen, s.MetricsListen)
	s.TriggerRateLimit = l.envInt(EnvRateLimit, s.TriggerRateLimit)

	t := &cfg.Tracing
	t.Enabled = l.envBool(EnvTracingEnabled, t.Enabled)
	t.Exporter = l.envString(EnvTracingExporter, t.Exporter)
	t.Endpoint = l.envString(EnvTracingEndpoint, t.Endpoint)
	t.SamplingRate = l.envFloat(EnvTracingSampling, t.SamplingRate)
}
