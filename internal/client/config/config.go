package config

import (
	"time"

	"github.com/vposukhov/stockpilot/internal/netx"
)

// Config holds runtime settings for the StockPilot client.
//
// Fields:
//   - ServerEndpointAddr: base URL of the remote identity backend.
//   - DatabaseDSN: path of the local SQLite database.
//   - ProbeEndpoint / ProbeTimeout: connectivity probe target and deadline.
//   - OnlineCheckInterval: how often the client probes backend liveness.
//   - OfflineVerifyPasswords: opt-in local password verification for the
//     offline path; off by default.
type Config struct {
	ServerEndpointAddr     string
	DatabaseDSN            string
	ProbeEndpoint          string
	ProbeTimeout           time.Duration
	OnlineCheckInterval    time.Duration
	OfflineVerifyPasswords bool
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerEndpointAddr = "http://127.0.0.1:8080"
	c.DatabaseDSN = "stockpilot.db"
	c.ProbeEndpoint = netx.DefaultProbeEndpoint
	c.ProbeTimeout = netx.DefaultProbeTimeout
	c.OnlineCheckInterval = 30 * time.Second
	c.OfflineVerifyPasswords = false
}

// LoadConfig constructs a Config, applies defaults, then overlays values
// from JSON (if present) and command-line flags (if present). Later sources
// take precedence over earlier ones.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}
