// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package device

import (
	"net"
	"strconv"
	"time"

	"github.com/ManuGH/netinspect/internal/config"
)

// Endpoint is the device address.
type Endpoint struct {
	Host string
	Port int
}

// Addr returns host:port.
func (e Endpoint) Addr() string {
	return net.JoinHostPort(e.Host, strconv.Itoa(e.Port))
}

// Credentials authenticate against the device.
type Credentials struct {
	Username string
	Password string
}

// Target is everything needed to open one session.
type Target struct {
	Endpoint       Endpoint
	Credentials    Credentials
	ConnectTimeout time.Duration
	Charset        string
}

// Policy controls connection retries and shell settling.
type Policy struct {
	ConnectAttempts int
	RetryBackoff    time.Duration
	SettleDelay     time.Duration
}

// DefaultPolicy matches the device CLI behaviour observed in the field.
func DefaultPolicy() Policy {
	return Policy{
		ConnectAttempts: 3,
		RetryBackoff:    2 * time.Second,
		SettleDelay:     time.Second,
	}
}

// TargetFromConfig builds a Target from device configuration.
func TargetFromConfig(cfg config.DeviceConfig) Target {
	return Target{
		Endpoint:       Endpoint{Host: cfg.Host, Port: cfg.Port},
		Credentials:    Credentials{Username: cfg.Username, Password: cfg.Password},
		ConnectTimeout: cfg.ConnectTimeout,
		Charset:        cfg.Charset,
	}
}

// PolicyFromConfig builds a Policy from device configuration.
func PolicyFromConfig(cfg config.DeviceConfig) Policy {
	return Policy{
		ConnectAttempts: cfg.ConnectAttempts,
		RetryBackoff:    cfg.RetryBackoff,
		SettleDelay:     cfg.SettleDelay,
	}
}
