package config

import "time"

// Config holds runtime settings for the larder client.
//
// Fields:
//   - ServerEndpointAddr: base URL of the remote authority API.
//   - PushEndpoint: websocket URL for change notifications; empty disables
//     the push channel.
//   - DatabasePath: path of the local SQLite database file.
//   - OnlineCheckInterval: how often the client probes server reachability.
//   - SyncInterval: how often a synchronization pass runs while online.
//   - QueueOnRemoteError: queue an online mutation offline when the remote
//     call fails transiently, instead of surfacing the error.
//   - ForcedOffline: start in forced-offline mode.
type Config struct {
	ServerEndpointAddr  string
	PushEndpoint        string
	DatabasePath        string
	OnlineCheckInterval time.Duration
	SyncInterval        time.Duration
	QueueOnRemoteError  bool
	ForcedOffline       bool
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerEndpointAddr = "http://127.0.0.1:8080"
	c.PushEndpoint = ""
	c.DatabasePath = "larder.db"
	c.OnlineCheckInterval = 3 * time.Second
	c.SyncInterval = 30 * time.Second
	c.QueueOnRemoteError = false
	c.ForcedOffline = false
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// JSON (if present) and command-line flags (if present). Later sources take
// precedence over earlier ones.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}
