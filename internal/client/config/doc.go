// Package config loads runtime configuration for the feedkeeper client.
//
// Sources, in increasing precedence: built-in defaults, an optional JSON
// file named by -c or -config, then command-line flags.
//
//	{
//	  "server_endpoint_addr": "127.0.0.1:50051",
//	  "database_path": "feedkeeper.db",
//	  "log_file": "feedkeeper.log",
//	  "log_level": "debug",
//	  "sync_interval": "5m",
//	  "online_check_interval": "30s",
//	  "remote_call_timeout": "10s"
//	}
package config
