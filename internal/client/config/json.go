package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/vposukhov/stockpilot/internal/flagx"
	"github.com/vposukhov/stockpilot/internal/timex"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling. It relies on
// timex.Duration so JSON can specify intervals either as strings like "5s"
// or as integer nanoseconds.
type JsonConfig struct {
	ServerEndpointAddr     string         `json:"server_endpoint_addr"`
	DatabaseDSN            string         `json:"database_dsn"`
	ProbeEndpoint          string         `json:"probe_endpoint"`
	ProbeTimeout           timex.Duration `json:"probe_timeout"`
	OnlineCheckInterval    timex.Duration `json:"online_check_interval"`
	OfflineVerifyPasswords *bool          `json:"offline_verify_passwords"`
}

// parseJson overlays cfg with values loaded from the JSON file named by the
// -c/-config flags. Absent file path means no JSON is loaded. Only fields
// present in the file override; zero values are skipped. Panics on read or
// unmarshal errors, matching the fail-fast startup contract.
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

	if jc.ServerEndpointAddr != "" {
		cfg.ServerEndpointAddr = jc.ServerEndpointAddr
	}
	if jc.DatabaseDSN != "" {
		cfg.DatabaseDSN = jc.DatabaseDSN
	}
	if jc.ProbeEndpoint != "" {
		cfg.ProbeEndpoint = jc.ProbeEndpoint
	}
	if jc.ProbeTimeout.Duration != 0 {
		cfg.ProbeTimeout = time.Duration(jc.ProbeTimeout.Duration)
	}
	if jc.OnlineCheckInterval.Duration != 0 {
		cfg.OnlineCheckInterval = time.Duration(jc.OnlineCheckInterval.Duration)
	}
	if jc.OfflineVerifyPasswords != nil {
		cfg.OfflineVerifyPasswords = *jc.OfflineVerifyPasswords
	}
}
