// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package health

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"os"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/ManuGH/netinspect/internal/config"
	xglog "github.com/ManuGH/netinspect/internal/log"
)

// PerformStartupChecks validates the environment before the server starts.
func PerformStartupChecks(_ context.Context, cfg config.AppConfig) error {
	logger := xglog.WithComponent("startup-check")
	logger.Info().Msg("running pre-flight startup checks")

	if err := checkListenAddr("listen", cfg.Server.Listen); err != nil {
		return err
	}
	if cfg.Server.MetricsListen != "" {
		if err := checkListenAddr("metrics listen", cfg.Server.MetricsListen); err != nil {
			return err
		}
	}

	if cfg.Device.KnownHostsFile != "" {
		if err := checkFileReadable(cfg.Device.KnownHostsFile); err != nil {
			return fmt.Errorf("known hosts file: %w", err)
		}
	} else {
		logger.Warn().
			Str(xglog.FieldHost, cfg.Device.Host).
			Msg("no known hosts file configured; device host key is not verified")
	}

	if cfg.Device.Password == "" {
		logger.Warn().Str(xglog.FieldUser, cfg.Device.Username).Msg("device password is empty")
	}

	if cfg.Device.SocksProxy != "" {
		if _, err := url.Parse(cfg.Device.SocksProxy); err != nil {
			return fmt.Errorf("invalid SOCKS proxy %q: %w", cfg.Device.SocksProxy, err)
		}
	}

	logAnalysisTarget(logger, cfg.Analysis)
	logger.Info().Msg("all startup checks passed")
	return nil
}

func checkListenAddr(label, addr string) error {
	_, port, err := net.SplitHostPort(addr)
	if err != nil {
		return fmt.Errorf("invalid %s address %q: %w", label, addr, err)
	}
	n, err := strconv.Atoi(port)
	if err != nil || n < 0 || n > 65535 {
		return fmt.Errorf("invalid %s port %q in %q", label, port, addr)
	}
	return nil
}

func logAnalysisTarget(logger zerolog.Logger, cfg config.AnalysisConfig) {
	logger.Info().
		Str("endpoint", cfg.Endpoint).
		Str("model", cfg.Model).
		Dur("timeout", cfg.Timeout).
		Msg("analysis backend configured")
}

func checkFileReadable(path string) error {
	f, err := os.Open(path) // #nosec G304 -- path comes from operator config
	if err != nil {
		return err
	}
	return f.Close()
}
