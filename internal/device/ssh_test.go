// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package device

import (
	"bufio"
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/ssh"
)

// vrpServer is a tiny SSH server that behaves like a VRP CLI: it prints a
// banner, echoes input and answers a few display commands.
type vrpServer struct {
	t        *testing.T
	ln       net.Listener
	config   *ssh.ServerConfig
	password string
	wg       sync.WaitGroup
}

func newVRPServer(t *testing.T, password string) *vrpServer {
	t.Helper()
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	signer, err := ssh.NewSignerFromKey(priv)
	require.NoError(t, err)

	s := &vrpServer{t: t, password: password}
	s.config = &ssh.ServerConfig{
		PasswordCallback: func(_ ssh.ConnMetadata, pw []byte) (*ssh.Permissions, error) {
			if string(pw) == s.password {
				return nil, nil
			}
			return nil, errors.New("denied")
		},
	}
	s.config.AddHostKey(signer)

	s.ln, err = net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	s.wg.Add(1)
	go s.serve()
	t.Cleanup(s.close)
	return s
}

func (s *vrpServer) endpoint() Endpoint {
	host, port, _ := net.SplitHostPort(s.ln.Addr().String())
	p, _ := strconv.Atoi(port)
	return Endpoint{Host: host, Port: p}
}

func (s *vrpServer) close() {
	_ = s.ln.Close()
	s.wg.Wait()
}

func (s *vrpServer) serve() {
	defer s.wg.Done()
	for {
		nc, err := s.ln.Accept()
		if err != nil {
			return
		}
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.handle(nc)
		}()
	}
}

func (s *vrpServer) handle(nc net.Conn) {
	defer nc.Close()
	sc, chans, reqs, err := ssh.NewServerConn(nc, s.config)
	if err != nil {
		return
	}
	defer sc.Close()
	go ssh.DiscardRequests(reqs)

	for nch := range chans {
		if nch.ChannelType() != "session" {
			_ = nch.Reject(ssh.UnknownChannelType, "unsupported")
			continue
		}
		ch, chReqs, err := nch.Accept()
		if err != nil {
			return
		}
		shellStarted := make(chan struct{})
		go func() {
			for req := range chReqs {
				switch req.Type {
				case "pty-req":
					_ = req.Reply(true, nil)
				case "shell":
					_ = req.Reply(true, nil)
					close(shellStarted)
				default:
					_ = req.Reply(false, nil)
				}
			}
		}()
		select {
		case <-shellStarted:
		case <-time.After(5 * time.Second):
			_ = ch.Close()
			return
		}
		s.shell(ch)
		return
	}
}

func (s *vrpServer) shell(ch ssh.Channel) {
	defer ch.Close()
	fmt.Fprint(ch, "Info: The max number of VTY users is 5.\r\n<HUAWEI>")
	r := bufio.NewReader(ch)
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			if !errors.Is(err, io.EOF) {
				s.t.Logf("server read: %v", err)
			}
			return
		}
		cmd := strings.TrimSpace(line)
		fmt.Fprintf(ch, "%s\r\n", cmd)
		switch cmd {
		case "display version":
			fmt.Fprint(ch, "Huawei Versatile Routing Platform Software\r\nVRP (R) software, Version 5.160 (AR2200 V200R009C00SPC500)\r\n")
		case "quit":
			return
		default:
			fmt.Fprint(ch, "Error: Unrecognized command\r\n")
		}
		fmt.Fprint(ch, "<HUAWEI>")
	}
}

func drainUntil(t *testing.T, sh Shell, substr string) string {
	t.Helper()
	var sb strings.Builder
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		b, err := sh.Drain()
		sb.Write(b)
		if strings.Contains(sb.String(), substr) {
			return sb.String()
		}
		if err != nil {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("did not receive %q, got %q", substr, sb.String())
	return ""
}

func TestSSHDialer_ShellRoundTrip(t *testing.T) {
	srv := newVRPServer(t, "secret")
	d, err := NewSSHDialer(SSHOptions{})
	require.NoError(t, err)

	tgt := Target{
		Endpoint:       srv.endpoint(),
		Credentials:    Credentials{Username: "python", Password: "secret"},
		ConnectTimeout: 5 * time.Second,
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, err := d.Dial(ctx, tgt)
	require.NoError(t, err)
	defer conn.Close()

	sh, err := conn.OpenShell(ctx)
	require.NoError(t, err)
	defer sh.Close()

	drainUntil(t, sh, "<HUAWEI>")

	_, err = sh.Write([]byte("display version\n"))
	require.NoError(t, err)
	out := drainUntil(t, sh, "AR2200")
	assert.Contains(t, out, "display version")
	assert.Contains(t, out, "VRP (R) software")

	_, err = sh.Write([]byte("quit\n"))
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		b, err := sh.Drain()
		return len(b) == 0 && errors.Is(err, io.EOF)
	}, 5*time.Second, 10*time.Millisecond, "drain reports EOF after the remote closes")
}

func TestSSHDialer_WrongPassword(t *testing.T) {
	srv := newVRPServer(t, "secret")
	d, err := NewSSHDialer(SSHOptions{})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, err = d.Dial(ctx, Target{
		Endpoint:    srv.endpoint(),
		Credentials: Credentials{Username: "python", Password: "wrong"},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ssh handshake")
}

func TestManager_OpenOverSSH(t *testing.T) {
	srv := newVRPServer(t, "secret")
	d, err := NewSSHDialer(SSHOptions{})
	require.NoError(t, err)

	m := NewManager(d, Policy{ConnectAttempts: 1, SettleDelay: 300 * time.Millisecond})
	sess, err := m.Open(context.Background(), Target{
		Endpoint:       srv.endpoint(),
		Credentials:    Credentials{Username: "python", Password: "secret"},
		ConnectTimeout: 5 * time.Second,
	}, nil)
	require.NoError(t, err)
	defer sess.Close()

	assert.Equal(t, StateShellReady, sess.State())
	require.NoError(t, sess.Send("display version\n"))

	var sb strings.Builder
	require.Eventually(t, func() bool {
		b, _ := sess.Drain()
		sb.WriteString(sess.Decode(b))
		return strings.Contains(sb.String(), "AR2200")
	}, 5*time.Second, 10*time.Millisecond)
	assert.NotContains(t, sb.String(), "max number of VTY users", "banner was discarded at open")
}

func TestNewSSHDialer_BadKnownHosts(t *testing.T) {
	_, err := NewSSHDialer(SSHOptions{KnownHostsFile: "/nonexistent/known_hosts"})
	assert.Error(t, err)
}

func TestNewSSHDialer_SocksProxy(t *testing.T) {
	d, err := NewSSHDialer(SSHOptions{SocksProxy: "127.0.0.1:1080"})
	require.NoError(t, err)
	assert.NotNil(t, d.net)
}
