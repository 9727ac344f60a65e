// SPDX-License-Identifier: MIT

package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParseString(t *testing.T) {
	tests := []struct {
		name         string
		key          string
		defaultValue string
		envValue     string
		envSet       bool
		want         string
	}{
		{name: "environment variable set", key: "TEST_STRING", defaultValue: "default", envValue: "from-env", envSet: true, want: "from-env"},
		{name: "environment variable not set", key: "TEST_STRING_UNSET", defaultValue: "default", want: "default"},
		{name: "environment variable empty string", key: "TEST_STRING_EMPTY", defaultValue: "default", envValue: "", envSet: true, want: "default"},
		{name: "sensitive variable", key: "TEST_ROUTER_PASS", defaultValue: "default", envValue: "secret123", envSet: true, want: "secret123"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.envSet {
				t.Setenv(tt.key, tt.envValue)
			}
			assert.Equal(t, tt.want, ParseString(tt.key, tt.defaultValue))
		})
	}
}

func TestParseInt(t *testing.T) {
	tests := []struct {
		name     string
		envValue string
		envSet   bool
		want     int
	}{
		{name: "valid integer", envValue: "2222", envSet: true, want: 2222},
		{name: "invalid integer", envValue: "abc", envSet: true, want: 22},
		{name: "unset", want: 22},
		{name: "empty", envValue: "", envSet: true, want: 22},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.envSet {
				t.Setenv("TEST_INT", tt.envValue)
			}
			assert.Equal(t, tt.want, ParseInt("TEST_INT", 22))
		})
	}
}

func TestParseDuration(t *testing.T) {
	t.Setenv("TEST_DUR", "750ms")
	assert.Equal(t, 750*time.Millisecond, ParseDuration("TEST_DUR", time.Second))

	t.Setenv("TEST_DUR_BAD", "soon")
	assert.Equal(t, time.Second, ParseDuration("TEST_DUR_BAD", time.Second))
}

func TestParseBool(t *testing.T) {
	tests := []struct {
		value string
		want  bool
	}{
		{"true", true}, {"1", true}, {"YES", true},
		{"false", false}, {"0", false}, {"no", false},
		{"maybe", true},
	}
	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			t.Setenv("TEST_BOOL", tt.value)
			assert.Equal(t, tt.want, ParseBool("TEST_BOOL", true))
		})
	}
}

func TestParseFloat(t *testing.T) {
	t.Setenv("TEST_FLOAT", "0.25")
	assert.InDelta(t, 0.25, ParseFloat("TEST_FLOAT", 1), 1e-9)
	t.Setenv("TEST_FLOAT", "x")
	assert.InDelta(t, 1.0, ParseFloat("TEST_FLOAT", 1), 1e-9)
}

func TestParseStringList(t *testing.T) {
	t.Setenv("TEST_LIST", "display version; ;display cpu-usage ;")
	assert.Equal(t, []string{"display version", "display cpu-usage"}, ParseStringList("TEST_LIST", ";", nil))

	def := []string{"a"}
	assert.Equal(t, def, ParseStringList("TEST_LIST_UNSET", ";", def))
}
