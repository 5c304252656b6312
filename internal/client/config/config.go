package config

import (
	"time"

	"github.com/dmitrijs2005/feedkeeper/internal/client/syncer"
)

// Config holds runtime settings for the feedkeeper client.
//
// An empty ServerEndpointAddr leaves sync unconfigured: the app keeps
// working offline and sync passes report not_configured.
type Config struct {
	ServerEndpointAddr  string
	DatabasePath        string
	LogFile             string
	LogLevel            string
	ExportDir           string
	SyncInterval        time.Duration
	OnlineCheckInterval time.Duration
	RemoteCallTimeout   time.Duration
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerEndpointAddr = "127.0.0.1:50051"
	c.DatabasePath = "feedkeeper.db"
	c.LogFile = "feedkeeper.log"
	c.LogLevel = "info"
	c.ExportDir = "exports"
	c.SyncInterval = syncer.DefaultSyncInterval
	c.OnlineCheckInterval = syncer.DefaultOnlineCheck
	c.RemoteCallTimeout = syncer.DefaultCallTimeout
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
