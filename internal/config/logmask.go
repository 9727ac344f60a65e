// SPDX-License-Identifier: MIT

package config

const maskedValue = "***"

// Masked returns a copy of cfg that is safe to print or log.
func Masked(cfg AppConfig) AppConfig {
	out := cfg
	out.Collector.Commands = append([]string(nil), cfg.Collector.Commands...)
	if out.Device.Password != "" {
		out.Device.Password = maskedValue
	}
	return out
}
