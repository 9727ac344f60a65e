// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package device

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"
	"golang.org/x/net/proxy"
)

// SSHOptions configures the SSH transport.
type SSHOptions struct {
	// KnownHostsFile enables host key verification. Empty accepts any host key.
	KnownHostsFile string
	// SocksProxy is an optional SOCKS5 jump proxy (host:port).
	SocksProxy string
	// Term, Cols and Rows describe the requested PTY.
	Term string
	Cols int
	Rows int
}

type contextDialer interface {
	DialContext(ctx context.Context, network, addr string) (net.Conn, error)
}

// SSHDialer dials devices over SSH with password or keyboard-interactive auth.
type SSHDialer struct {
	hostKey ssh.HostKeyCallback
	net     contextDialer
	term    string
	cols    int
	rows    int
}

// NewSSHDialer builds an SSHDialer from opts.
func NewSSHDialer(opts SSHOptions) (*SSHDialer, error) {
	d := &SSHDialer{
		// #nosec G106 -- lab devices rotate keys; verification is opt-in via KnownHostsFile
		hostKey: ssh.InsecureIgnoreHostKey(),
		net:     &net.Dialer{},
		term:    opts.Term,
		cols:    opts.Cols,
		rows:    opts.Rows,
	}
	if d.term == "" {
		d.term = "vt100"
	}
	if d.cols <= 0 {
		d.cols = 80
	}
	if d.rows <= 0 {
		d.rows = 24
	}

	if opts.KnownHostsFile != "" {
		cb, err := knownhosts.New(opts.KnownHostsFile)
		if err != nil {
			return nil, fmt.Errorf("load known_hosts: %w", err)
		}
		d.hostKey = cb
	}

	if opts.SocksProxy != "" {
		p, err := proxy.SOCKS5("tcp", opts.SocksProxy, nil, proxy.Direct)
		if err != nil {
			return nil, fmt.Errorf("configure socks proxy: %w", err)
		}
		cd, ok := p.(contextDialer)
		if !ok {
			return nil, errors.New("configure socks proxy: dialer does not support contexts")
		}
		d.net = cd
	}
	return d, nil
}

func (d *SSHDialer) clientConfig(t Target) *ssh.ClientConfig {
	password := t.Credentials.Password
	return &ssh.ClientConfig{
		User: t.Credentials.Username,
		Auth: []ssh.AuthMethod{
			ssh.Password(password),
			ssh.KeyboardInteractive(func(_, _ string, questions []string, _ []bool) ([]string, error) {
				answers := make([]string, len(questions))
				for i := range answers {
					answers[i] = password
				}
				return answers, nil
			}),
		},
		HostKeyCallback: d.hostKey,
		Timeout:         t.ConnectTimeout,
	}
}

// Dial connects and authenticates. The handshake is bounded by ctx's deadline.
func (d *SSHDialer) Dial(ctx context.Context, t Target) (Conn, error) {
	addr := t.Endpoint.Addr()
	raw, err := d.net.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, err
	}

	if deadline, ok := ctx.Deadline(); ok {
		_ = raw.SetDeadline(deadline)
	}
	stop := context.AfterFunc(ctx, func() { _ = raw.SetDeadline(time.Unix(1, 0)) })

	c, chans, reqs, err := ssh.NewClientConn(raw, addr, d.clientConfig(t))
	stopped := stop()
	if err != nil {
		_ = raw.Close()
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("ssh handshake: %w", ctxErr)
		}
		return nil, fmt.Errorf("ssh handshake: %w", err)
	}
	if !stopped {
		_ = c.Close()
		return nil, fmt.Errorf("ssh handshake: %w", ctx.Err())
	}
	_ = raw.SetDeadline(time.Time{})

	return &sshConn{client: ssh.NewClient(c, chans, reqs), term: d.term, cols: d.cols, rows: d.rows}, nil
}

type sshConn struct {
	client *ssh.Client
	term   string
	cols   int
	rows   int
}

func (c *sshConn) OpenShell(_ context.Context) (Shell, error) {
	session, err := c.client.NewSession()
	if err != nil {
		return nil, fmt.Errorf("new session: %w", err)
	}

	modes := ssh.TerminalModes{
		ssh.ECHO:          1,
		ssh.TTY_OP_ISPEED: 14400,
		ssh.TTY_OP_OSPEED: 14400,
	}
	if err := session.RequestPty(c.term, c.rows, c.cols, modes); err != nil {
		_ = session.Close()
		return nil, fmt.Errorf("request pty: %w", err)
	}

	stdin, err := session.StdinPipe()
	if err != nil {
		_ = session.Close()
		return nil, fmt.Errorf("stdin pipe: %w", err)
	}
	out := &outputBuffer{}
	session.Stdout = out
	session.Stderr = out

	if err := session.Shell(); err != nil {
		_ = session.Close()
		return nil, fmt.Errorf("start shell: %w", err)
	}

	sh := &sshShell{session: session, stdin: stdin, out: out}
	go func() {
		// Wait returns after the remote closes and all output has been copied.
		out.finish(session.Wait())
	}()
	return sh, nil
}

func (c *sshConn) Close() error {
	return c.client.Close()
}

type sshShell struct {
	session *ssh.Session
	stdin   io.WriteCloser
	out     *outputBuffer
}

func (s *sshShell) Write(p []byte) (int, error) { return s.stdin.Write(p) }

func (s *sshShell) Drain() ([]byte, error) { return s.out.drain() }

func (s *sshShell) Close() error {
	err := s.session.Close()
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

// outputBuffer collects shell output written by the SSH session copiers.
type outputBuffer struct {
	mu   sync.Mutex
	buf  bytes.Buffer
	done bool
	err  error
}

func (b *outputBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *outputBuffer) finish(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.done = true
	b.err = err
}

func (b *outputBuffer) drain() ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.buf.Len() > 0 {
		out := bytes.Clone(b.buf.Bytes())
		b.buf.Reset()
		return out, nil
	}
	if b.done {
		return nil, io.EOF
	}
	return nil, nil
}

var (
	_ Dialer = (*SSHDialer)(nil)
	_ Conn   = (*sshConn)(nil)
	_ Shell  = (*sshShell)(nil)
)
