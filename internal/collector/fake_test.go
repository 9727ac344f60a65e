// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package collector

import (
	"io"
	"strings"
	"sync"
	"time"

	"github.com/ManuGH/netinspect/internal/progress"
)

// scriptedTerminal replays canned device responses. Each Send appends the
// chunks returned by respond; each Drain hands out at most one chunk.
type scriptedTerminal struct {
	mu      sync.Mutex
	respond func(input string) []string
	pending []string
	sent    []string
	eof     bool
	sendErr error
	// endless makes Drain always return data, so output never goes idle.
	endless bool
}

func (s *scriptedTerminal) Send(text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sendErr != nil {
		return s.sendErr
	}
	s.sent = append(s.sent, text)
	if s.respond != nil {
		s.pending = append(s.pending, s.respond(text)...)
	}
	return nil
}

func (s *scriptedTerminal) Drain() ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.endless {
		return []byte("."), nil
	}
	if len(s.pending) > 0 {
		chunk := s.pending[0]
		s.pending = s.pending[1:]
		return []byte(chunk), nil
	}
	if s.eof {
		return nil, io.EOF
	}
	return nil, nil
}

func (s *scriptedTerminal) Decode(raw []byte) string {
	return strings.ToValidUTF8(string(raw), "")
}

func (s *scriptedTerminal) keystrokes(key string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, v := range s.sent {
		if v == key {
			n++
		}
	}
	return n
}

type recorder struct {
	mu     sync.Mutex
	events []progress.Event
}

func (r *recorder) Publish(ev progress.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *recorder) messages() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.events))
	for i, ev := range r.events {
		out[i] = ev.Message
	}
	return out
}

func fastPolicy() Policy {
	return Policy{
		PollInterval:   2 * time.Millisecond,
		IdleTimeout:    30 * time.Millisecond,
		CommandTimeout: 400 * time.Millisecond,
		Marker:         "---- More ----",
		ContinueKey:    " ",
	}
}

// vrp answers every command with an echo, body and prompt.
func vrp(outputs map[string]string) func(string) []string {
	return func(input string) []string {
		cmd := strings.TrimSuffix(input, "\n")
		body, ok := outputs[cmd]
		if !ok {
			return nil
		}
		return []string{cmd + "\r\n", body + "\r\n<HUAWEI>"}
	}
}
