// SPDX-License-Identifier: MIT

package telemetry

import (
	"go.opentelemetry.io/otel/attribute"
)

// Common attribute keys for consistent tracing across the application.
const (
	// Run attributes
	RunIDKey      = "inspection.run_id"
	RunOutcomeKey = "inspection.outcome"

	// Device attributes
	DeviceHostKey    = "device.host"
	DevicePortKey    = "device.port"
	DeviceUserKey    = "device.user"
	DeviceAttemptKey = "device.connect_attempt"

	// Command attributes
	CommandTextKey  = "command.text"
	CommandIndexKey = "command.index"
	CommandTotalKey = "command.total"
	CommandBytesKey = "command.output_bytes"
	CommandPagesKey = "command.pages"

	// Analysis attributes
	AnalysisModelKey    = "analysis.model"
	AnalysisDegradedKey = "analysis.degraded"
	AnalysisInputKey    = "analysis.input_chars"

	// Error attributes
	ErrorTypeKey = "error.type"
)

// DeviceAttributes creates endpoint span attributes. Credentials are never included.
func DeviceAttributes(host string, port int, user string) []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		attribute.String(DeviceHostKey, host),
		attribute.Int(DevicePortKey, port),
	}
	if user != "" {
		attrs = append(attrs, attribute.String(DeviceUserKey, user))
	}
	return attrs
}

// CommandAttributes creates per-command span attributes.
func CommandAttributes(command string, index, total int) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(CommandTextKey, command),
		attribute.Int(CommandIndexKey, index),
		attribute.Int(CommandTotalKey, total),
	}
}

// AnalysisAttributes creates analysis span attributes.
func AnalysisAttributes(model string, inputChars int) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(AnalysisModelKey, model),
		attribute.Int(AnalysisInputKey, inputChars),
	}
}
