package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

// Config is the daemon configuration file.
type Config struct {
	Node      Node      `toml:"node"`
	RPC       RPC       `toml:"rpc"`
	Telemetry Telemetry `toml:"telemetry"`
	Host      Host      `toml:"host"`
	Genesis   Genesis   `toml:"genesis"`
}

// Node controls storage and logging.
type Node struct {
	DataDir       string `toml:"DataDir"`
	Environment   string `toml:"Environment"`
	LogLevel      string `toml:"LogLevel"`
	LogFile       string `toml:"LogFile,omitempty"`
	LogMaxSizeMB  int    `toml:"LogMaxSizeMB,omitempty"`
	LogMaxBackups int    `toml:"LogMaxBackups,omitempty"`
	LogMaxAgeDays int    `toml:"LogMaxAgeDays,omitempty"`
}

// RPC controls the HTTP server.
type RPC struct {
	ListenAddress     string  `toml:"ListenAddress"`
	RequestsPerMinute float64 `toml:"RequestsPerMinute"`
	Burst             int     `toml:"Burst"`
	// EnableSubmit exposes the committing submit route. Query and simulate
	// routes are always served.
	EnableSubmit          bool `toml:"EnableSubmit"`
	ReadHeaderTimeoutSecs int  `toml:"ReadHeaderTimeoutSecs"`
}

// Telemetry configures the OTLP trace exporter.
type Telemetry struct {
	Traces   bool   `toml:"Traces"`
	Endpoint string `toml:"Endpoint,omitempty"`
	Insecure bool   `toml:"Insecure"`
	Headers  string `toml:"Headers,omitempty"`
	// SampleRatio keeps that fraction of root spans; 0 keeps all.
	SampleRatio float64 `toml:"SampleRatio,omitempty"`
}

// Host points at the YAML fixture backing host queries.
type Host struct {
	FixturePath string `toml:"FixturePath"`
}

// Load loads the configuration from the given path, writing a default file
// when none exists.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return createDefault(path)
	}

	meta, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, err
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, key := range undecoded {
			keys = append(keys, key.String())
		}
		return nil, fmt.Errorf("config file %s has unknown keys: %s", path, strings.Join(keys, ", "))
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if strings.TrimSpace(c.Node.DataDir) == "" {
		c.Node.DataDir = "./vegov-data"
	}
	if strings.TrimSpace(c.Node.LogLevel) == "" {
		c.Node.LogLevel = "info"
	}
	if strings.TrimSpace(c.RPC.ListenAddress) == "" {
		c.RPC.ListenAddress = ":8080"
	}
	if c.RPC.RequestsPerMinute == 0 {
		c.RPC.RequestsPerMinute = 600
	}
	if c.RPC.Burst == 0 {
		c.RPC.Burst = 60
	}
	if c.RPC.ReadHeaderTimeoutSecs == 0 {
		c.RPC.ReadHeaderTimeoutSecs = 5
	}
}

// Default returns the configuration written for a fresh node.
func Default() *Config {
	cfg := &Config{
		Node: Node{Environment: "local"},
		Host: Host{FixturePath: "host.yaml"},
		Genesis: Genesis{
			Admin:            "admin",
			VotingPeriodSecs: 7 * 24 * 3600,
			Tiers: []GenesisTier{
				{Tier: 1, DurationSecs: 30 * 24 * 3600, Weight: "0.25"},
				{Tier: 2, DurationSecs: 90 * 24 * 3600, Weight: "0.5"},
				{Tier: 3, DurationSecs: 180 * 24 * 3600, Weight: "1"},
				{Tier: 4, DurationSecs: 365 * 24 * 3600, Weight: "2"},
			},
			FoundationRatio: "0",
		},
	}
	cfg.applyDefaults()
	return cfg
}

// createDefault creates and saves a default configuration file.
func createDefault(path string) (*Config, error) {
	cfg := Default()
	if err := persist(path, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func persist(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_TRUNC|os.O_CREATE, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	return toml.NewEncoder(f).Encode(cfg)
}
