package config

import (
	"flag"
	"os"
	"time"

	"github.com/larder-app/larder/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   base URL of the remote authority API
//	-p string   websocket URL of the push channel (empty disables it)
//	-d string   path of the local database file
//	-i int      online check interval in seconds
//	-s int      synchronization interval in seconds
//	-q          queue online mutations locally on transient remote errors
//	-o          start in forced-offline mode
//
// Note: The function filters os.Args to only include the flags it knows about,
// using flagx.FilterArgs, to avoid interference with other components.
func parseFlags(cfg *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-p", "-d", "-i", "-s", "-q", "-o"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&cfg.ServerEndpointAddr, "a", cfg.ServerEndpointAddr, "base URL of the remote authority API")
	fs.StringVar(&cfg.PushEndpoint, "p", cfg.PushEndpoint, "websocket URL of the push channel")
	fs.StringVar(&cfg.DatabasePath, "d", cfg.DatabasePath, "path of the local database file")
	onlineCheckInterval := fs.Int("i", int(cfg.OnlineCheckInterval.Seconds()), "online check interval (in seconds)")
	syncInterval := fs.Int("s", int(cfg.SyncInterval.Seconds()), "synchronization interval (in seconds)")
	fs.BoolVar(&cfg.QueueOnRemoteError, "q", cfg.QueueOnRemoteError, "queue online mutations locally on transient remote errors")
	fs.BoolVar(&cfg.ForcedOffline, "o", cfg.ForcedOffline, "start in forced-offline mode")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	cfg.OnlineCheckInterval = time.Duration(*onlineCheckInterval) * time.Second
	cfg.SyncInterval = time.Duration(*syncInterval) * time.Second
}
