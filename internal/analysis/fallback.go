// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package analysis

import (
	"fmt"
	"strconv"
	"strings"
)

const (
	cpuWarnPercent    = 90
	memoryWarnPercent = 85
	unknownValue      = "unknown"
)

// Fallback builds a rule-based summary of a collected report. It is used when
// the model cannot answer in time and never fails.
func Fallback(raw string) string {
	lines := strings.Split(raw, "\n")
	out := []string{"### Basic inspection report (AI timeout fallback)"}

	if strings.Contains(raw, "display version") {
		model := unknownValue
		if line, ok := firstLineContaining(lines, "VRP (R) software"); ok {
			head, _, _ := strings.Cut(line, ",")
			model = strings.TrimSpace(head)
		}
		version := unknownValue
		if line, ok := firstLineContaining(lines, "Version"); ok {
			_, after, _ := strings.Cut(line, "Version")
			version = strings.TrimSpace(after)
		}
		out = append(out, "- Device model: "+model, "- Software version: "+version)
	}

	if strings.Contains(raw, "display cpu-usage") {
		out = append(out, usageLine("CPU usage", percentOn(lines, "CPU utilization"), cpuWarnPercent))
	}
	if strings.Contains(raw, "display memory-usage") {
		out = append(out, usageLine("Memory usage", percentOn(lines, "Memory utilization"), memoryWarnPercent))
	}

	if strings.Contains(raw, "display interface brief") {
		if down := strings.Count(strings.ToLower(raw), "down"); down > 0 {
			out = append(out, fmt.Sprintf("- WARNING interfaces in abnormal state: %d DOWN", down))
		}
	}
	if strings.Contains(raw, "display logbuffer") {
		if count := strings.Count(raw, "ERROR"); count > 0 {
			out = append(out, fmt.Sprintf("- WARNING error log entries found: %d", count))
		}
	}

	return strings.Join(out, "\n")
}

func firstLineContaining(lines []string, needle string) (string, bool) {
	for _, line := range lines {
		if strings.Contains(line, needle) {
			return line, true
		}
	}
	return "", false
}

// percentOn returns the token right before the first '%' on the first line
// containing label, or unknownValue.
func percentOn(lines []string, label string) string {
	line, ok := firstLineContaining(lines, label)
	if !ok {
		return unknownValue
	}
	before, _, found := strings.Cut(line, "%")
	if !found {
		return unknownValue
	}
	fields := strings.Fields(before)
	if len(fields) == 0 {
		return unknownValue
	}
	return fields[len(fields)-1]
}

func usageLine(label, value string, warnAbove int) string {
	if n, err := strconv.Atoi(value); err == nil && n > warnAbove {
		return fmt.Sprintf("- WARNING %s too high: %s%%", label, value)
	}
	return fmt.Sprintf("- %s normal: %s%%", label, value)
}
