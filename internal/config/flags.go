package config

import (
	"flag"
	"time"
)

// ParseFlags parses all configuration flags.
//
// Flags:
//
//	-d database DSN (SQLite file path)
//	-r remote base URL
//	-a admin API address in format [host]:[port]
//	-c/-config json file path with configs
//	-sync-interval background sync period (e.g., "5m")
//	-batch-size push batch size
//	-max-retries retry budget per queued operation
//	-request-timeout remote request timeout (e.g., "15s")
//	-probe-interval connectivity probe period (e.g., "30s")
func ParseFlags() *StructuredConfig {
	var databaseDSN string
	var remoteBaseURL string
	var adminAddress string
	var jsonConfigPath string
	var syncInterval time.Duration
	var batchSize int
	var maxRetries int
	var requestTimeout time.Duration
	var probeInterval time.Duration

	flag.StringVar(&databaseDSN, "d", "", "Database DSN (SQLite file path)")
	flag.StringVar(&remoteBaseURL, "r", "", "Remote base URL")
	flag.StringVar(&adminAddress, "a", "", "Admin API address host:port")
	flag.StringVar(&jsonConfigPath, "c", "", "JSON config file path")
	flag.StringVar(&jsonConfigPath, "config", "", "JSON config file path (alias)")
	flag.DurationVar(&syncInterval, "sync-interval", 0, "Background sync period (e.g., 5m)")
	flag.IntVar(&batchSize, "batch-size", 0, "Push batch size")
	flag.IntVar(&maxRetries, "max-retries", 0, "Retry budget per queued operation")
	flag.DurationVar(&requestTimeout, "request-timeout", 0, "Remote request timeout (e.g., 15s)")
	flag.DurationVar(&probeInterval, "probe-interval", 0, "Connectivity probe period (e.g., 30s)")

	flag.Parse()

	return &StructuredConfig{
		Storage: Storage{
			DB: DB{DSN: databaseDSN},
		},
		Remote: Remote{
			BaseURL:        remoteBaseURL,
			RequestTimeout: requestTimeout,
		},
		Sync: Sync{
			Interval:   syncInterval,
			BatchSize:  batchSize,
			MaxRetries: maxRetries,
		},
		Monitor: Monitor{
			ProbeInterval: probeInterval,
		},
		Admin: Admin{
			HTTPAddress: adminAddress,
		},
		JSONFilePath: jsonConfigPath,
	}
}
