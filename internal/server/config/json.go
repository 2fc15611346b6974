package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/vposukhov/stockpilot/internal/flagx"
	"github.com/vposukhov/stockpilot/internal/timex"
)

// JsonConfig mirrors Config for JSON unmarshalling. Durations accept either
// strings like "15m" or integer nanoseconds.
type JsonConfig struct {
	EndpointAddr                 string         `json:"endpoint_addr"`
	DatabaseDSN                  string         `json:"database_dsn"`
	SecretKey                    string         `json:"secret_key"`
	AccessTokenValidityDuration  timex.Duration `json:"access_token_validity_duration"`
	RefreshTokenValidityDuration timex.Duration `json:"refresh_token_validity_duration"`
	TokenRateLimit               float64        `json:"token_rate_limit"`
	TokenRateBurst               int            `json:"token_rate_burst"`
}

// parseJson overlays cfg with values from the JSON file named by -c/-config.
// Only fields present in the file override. Panics on read or unmarshal
// errors, matching the fail-fast startup contract.
func parseJson(cfg *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	var jc JsonConfig

	data, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}
	if err := json.Unmarshal(data, &jc); err != nil {
		panic(err)
	}

	if jc.EndpointAddr != "" {
		cfg.EndpointAddr = jc.EndpointAddr
	}
	if jc.DatabaseDSN != "" {
		cfg.DatabaseDSN = jc.DatabaseDSN
	}
	if jc.SecretKey != "" {
		cfg.SecretKey = jc.SecretKey
	}
	if jc.AccessTokenValidityDuration.Duration != 0 {
		cfg.AccessTokenValidityDuration = time.Duration(jc.AccessTokenValidityDuration.Duration)
	}
	if jc.RefreshTokenValidityDuration.Duration != 0 {
		cfg.RefreshTokenValidityDuration = time.Duration(jc.RefreshTokenValidityDuration.Duration)
	}
	if jc.TokenRateLimit != 0 {
		cfg.TokenRateLimit = jc.TokenRateLimit
	}
	if jc.TokenRateBurst != 0 {
		cfg.TokenRateBurst = jc.TokenRateBurst
	}
}
