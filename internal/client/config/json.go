package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/larder-app/larder/internal/flagx"
	"github.com/larder-app/larder/internal/timex"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling. It relies on
// timex.Duration so JSON can specify intervals either as strings like "3s"
// or as integer nanoseconds. After parsing, values are copied into the
// runtime Config (which uses time.Duration).
type JsonConfig struct {
	ServerEndpointAddr  string         `json:"server_endpoint_addr"`
	PushEndpoint        string         `json:"push_endpoint"`
	DatabasePath        string         `json:"database_path"`
	OnlineCheckInterval timex.Duration `json:"online_check_interval"`
	SyncInterval        timex.Duration `json:"sync_interval"`
	QueueOnRemoteError  *bool          `json:"queue_on_remote_error"`
	ForcedOffline       *bool          `json:"forced_offline"`
}

// parseJson overlays Config with values loaded from a JSON file selected via
// the -c or -config flags. Fields absent from the file keep their current
// values; read or unmarshal errors panic (startup-time misconfiguration).
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
	if jc.PushEndpoint != "" {
		cfg.PushEndpoint = jc.PushEndpoint
	}
	if jc.DatabasePath != "" {
		cfg.DatabasePath = jc.DatabasePath
	}
	if jc.OnlineCheckInterval.Duration != 0 {
		cfg.OnlineCheckInterval = time.Duration(jc.OnlineCheckInterval.Duration)
	}
	if jc.SyncInterval.Duration != 0 {
		cfg.SyncInterval = time.Duration(jc.SyncInterval.Duration)
	}
	if jc.QueueOnRemoteError != nil {
		cfg.QueueOnRemoteError = *jc.QueueOnRemoteError
	}
	if jc.ForcedOffline != nil {
		cfg.ForcedOffline = *jc.ForcedOffline
	}
}
