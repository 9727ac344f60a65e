// SPDX-License-Identifier: MIT

package health

import (
	"context"
	"net"
	"time"
)

// TCPChecker reports whether a TCP endpoint accepts connections. An
// unreachable endpoint is reported as degraded: the process can still serve.
type TCPChecker struct {
	name string
	addr func() string
	dial func(ctx context.Context, network, addr string) (net.Conn, error)
}

// NewTCPChecker checks the address returned by addr on every probe, so
// configuration reloads are picked up.
func NewTCPChecker(name string, addr func() string) *TCPChecker {
	d := &net.Dialer{}
	return &TCPChecker{name: name, addr: addr, dial: d.DialContext}
}

func (c *TCPChecker) Name() string { return c.name }

func (c *TCPChecker) Check(ctx context.Context) CheckResult {
	addr := c.addr()
	if addr == "" {
		return CheckResult{Status: StatusHealthy, Message: "not configured (optional)"}
	}
	conn, err := c.dial(ctx, "tcp", addr)
	if err != nil {
		return CheckResult{Status: StatusDegraded, Message: addr, Error: err.Error()}
	}
	_ = conn.Close()
	return CheckResult{Status: StatusHealthy, Message: addr + " reachable"}
}

// PingChecker wraps a ping function. Failures are reported as degraded.
type PingChecker struct {
	name string
	ping func(ctx context.Context) error
}

// NewPingChecker creates a checker around ping.
func NewPingChecker(name string, ping func(ctx context.Context) error) *PingChecker {
	return &PingChecker{name: name, ping: ping}
}

func (c *PingChecker) Name() string { return c.name }

func (c *PingChecker) Check(ctx context.Context) CheckResult {
	if err := c.ping(ctx); err != nil {
		return CheckResult{Status: StatusDegraded, Error: err.Error()}
	}
	return CheckResult{Status: StatusHealthy, Message: "reachable"}
}

// WorkerChecker is unhealthy once the background worker has exited.
type WorkerChecker struct {
	name string
	done <-chan struct{}
}

// NewWorkerChecker watches done, which is closed when the worker exits.
func NewWorkerChecker(name string, done <-chan struct{}) *WorkerChecker {
	return &WorkerChecker{name: name, done: done}
}

func (c *WorkerChecker) Name() string { return c.name }

func (c *WorkerChecker) Check(context.Context) CheckResult {
	select {
	case <-c.done:
		return CheckResult{Status: StatusUnhealthy, Error: "worker stopped"}
	default:
		return CheckResult{Status: StatusHealthy, Message: "running"}
	}
}

// LastRunChecker reports the outcome of the most recent run.
type LastRunChecker struct {
	lastRun func() (finished time.Time, outcome string)
}

// NewLastRunChecker creates a checker for the last run. A failed last run is
// degraded, never unhealthy: the next run may succeed.
func NewLastRunChecker(lastRun func() (time.Time, string)) *LastRunChecker {
	return &LastRunChecker{lastRun: lastRun}
}

func (c *LastRunChecker) Name() string { return "last_run" }

func (c *LastRunChecker) Check(context.Context) CheckResult {
	finished, outcome := c.lastRun()
	switch {
	case finished.IsZero():
		return CheckResult{Status: StatusHealthy, Message: "no run yet"}
	case outcome == "error":
		return CheckResult{Status: StatusDegraded, Message: "last run failed at " + finished.UTC().Format(time.RFC3339)}
	default:
		return CheckResult{Status: StatusHealthy, Message: "last run " + outcome + " at " + finished.UTC().Format(time.RFC3339)}
	}
}
