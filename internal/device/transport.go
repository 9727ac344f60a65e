// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package device

import "context"

// Dialer opens an authenticated transport to a device.
type Dialer interface {
	Dial(ctx context.Context, t Target) (Conn, error)
}

// Conn is an authenticated transport able to host an interactive shell.
type Conn interface {
	OpenShell(ctx context.Context) (Shell, error)
	Close() error
}

// Shell is a PTY-backed interactive shell.
type Shell interface {
	// Write sends raw bytes to the shell input.
	Write(p []byte) (int, error)
	// Drain returns all output received since the previous call without blocking.
	// It returns io.EOF once the remote side has closed and no output is left.
	Drain() ([]byte, error)
	Close() error
}
