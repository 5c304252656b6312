package config

import (
	"flag"
	"os"
	"time"

	"github.com/dmitrijs2005/feedkeeper/internal/flagx"
)

// parseFlags overlays Config with command-line flags. Only the flags it
// knows about are picked out of os.Args, so -c/-config and anything else
// pass through untouched.
//
//	-a string   gRPC endpoint; empty disables sync
//	-d string   path of the local SQLite database
//	-l string   log file
//	-x string   directory for exported archives
//	-s int      sync interval in seconds, 0 disables periodic sync
//	-i int      online check interval in seconds
//	-t int      per-call remote timeout in seconds
func parseFlags(cfg *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-d", "-l", "-x", "-s", "-i", "-t"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&cfg.ServerEndpointAddr, "a", cfg.ServerEndpointAddr, "address and port to access server")
	fs.StringVar(&cfg.DatabasePath, "d", cfg.DatabasePath, "local database path")
	fs.StringVar(&cfg.LogFile, "l", cfg.LogFile, "log file")
	fs.StringVar(&cfg.ExportDir, "x", cfg.ExportDir, "export directory")
	syncInterval := fs.Int("s", int(cfg.SyncInterval.Seconds()), "sync interval (in seconds)")
	onlineCheckInterval := fs.Int("i", int(cfg.OnlineCheckInterval.Seconds()), "online check interval (in seconds)")
	callTimeout := fs.Int("t", int(cfg.RemoteCallTimeout.Seconds()), "remote call timeout (in seconds)")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	cfg.SyncInterval = time.Duration(*syncInterval) * time.Second
	cfg.OnlineCheckInterval = time.Duration(*onlineCheckInterval) * time.Second
	cfg.RemoteCallTimeout = time.Duration(*callTimeout) * time.Second
}
