package config

import (
	"fmt"
	"strings"
)

var (
	MaxRequestsPerMinute = float64(60_000)
)

// Validate checks the node and rpc sections. Genesis is checked by Resolve.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Node.DataDir) == "" {
		return fmt.Errorf("node: DataDir required")
	}
	if c.RPC.RequestsPerMinute < 0 || c.RPC.RequestsPerMinute > MaxRequestsPerMinute {
		return fmt.Errorf("rpc: RequestsPerMinute out of range")
	}
	if c.RPC.Burst < 0 {
		return fmt.Errorf("rpc: Burst < 0")
	}
	if c.Node.LogMaxSizeMB < 0 || c.Node.LogMaxBackups < 0 || c.Node.LogMaxAgeDays < 0 {
		return fmt.Errorf("node: log rotation limits must not be negative")
	}
	if c.Telemetry.Traces && strings.TrimSpace(c.Telemetry.Endpoint) == "" {
		return fmt.Errorf("telemetry: Endpoint required when Traces is enabled")
	}
	if c.Telemetry.SampleRatio < 0 || c.Telemetry.SampleRatio > 1 {
		return fmt.Errorf("telemetry: SampleRatio must be within [0, 1]")
	}
	return nil
}
