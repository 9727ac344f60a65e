// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package log

// Canonical field name constants for structured logging.
const (
	// Identity fields
	FieldService   = "service"
	FieldVersion   = "version"
	FieldRequestID = "request_id"
	FieldRunID     = "run_id"
	FieldTraceID   = "trace_id"

	// Process fields
	FieldEvent     = "event"
	FieldComponent = "component"
	FieldPhase     = "phase"

	// Device fields
	FieldHost    = "host"
	FieldPort    = "port"
	FieldUser    = "user"
	FieldAttempt = "attempt"

	// Command fields
	FieldCommand = "command"
	FieldIndex   = "index"
	FieldTotal   = "total"
	FieldBytes   = "bytes"
	FieldPages   = "pages"

	// State fields
	FieldOldState = "old_state"
	FieldNewState = "new_state"

	FieldDurationMS = "duration_ms"
)
