// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package device

import (
	"fmt"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/transform"
)

// Decoder turns raw device output into valid UTF-8 text.
type Decoder struct {
	name string
	enc  encoding.Encoding // nil for UTF-8
}

// NewDecoder returns a decoder for the named charset (WHATWG names, e.g. "gbk").
// An empty name means UTF-8.
func NewDecoder(charset string) (*Decoder, error) {
	charset = strings.TrimSpace(charset)
	if charset == "" {
		return &Decoder{name: "utf-8"}, nil
	}
	enc, err := htmlindex.Get(charset)
	if err != nil {
		return nil, fmt.Errorf("device: unknown charset %q: %w", charset, err)
	}
	name, _ := htmlindex.Name(enc)
	if name == "utf-8" {
		return &Decoder{name: name}, nil
	}
	return &Decoder{name: name, enc: enc}, nil
}

// Name returns the canonical charset name.
func (d *Decoder) Name() string { return d.name }

// Decode converts b to UTF-8. Undecodable bytes are dropped.
func (d *Decoder) Decode(b []byte) string {
	if d == nil || d.enc == nil {
		return strings.ToValidUTF8(string(b), "")
	}
	out, _, err := transform.Bytes(d.enc.NewDecoder(), b)
	if err != nil {
		return strings.ToValidUTF8(string(b), "")
	}
	return strings.ReplaceAll(string(out), "\uFFFD", "")
}
