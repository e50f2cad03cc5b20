// Package config loads runtime configuration for the larder client.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file (see parseJson) selected via flags: -c or -config.
//  3. Command-line flags (see parseFlags), which override earlier values.
//
// Supported flags
//
//	-a string   base URL of the remote authority API
//	-p string   websocket URL of the push channel
//	-d string   path of the local database file
//	-i int      online status check interval (seconds)
//	-s int      synchronization interval (seconds)
//	-q          queue online mutations locally on transient remote errors
//	-o          start in forced-offline mode
//
// # JSON schema
//
// The JSON loader uses timex.Duration for intervals, so values can be either
// strings like "3s" or integer nanoseconds:
//
//	{
//	  "server_endpoint_addr": "http://127.0.0.1:8080",
//	  "push_endpoint": "ws://127.0.0.1:8080/ws",
//	  "database_path": "larder.db",
//	  "online_check_interval": "3s",
//	  "sync_interval": "30s",
//	  "queue_on_remote_error": false,
//	  "forced_offline": false
//	}
//
// Note: This package does not read environment variables directly; use the
// JSON file or flags to configure values.
package config
