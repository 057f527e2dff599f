// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package config

import (
	"time"
)

// StructuredConfig is the top-level configuration container for the
// go-offsync engine. It aggregates all sub-configurations and is populated
// by merging values from environment variables, command-line flags, and an
// optional JSON file.
//
// Struct tags:
//   - envPrefix — prefix applied to all nested env tag lookups (caarlos0/env).
//   - env       — direct environment variable name for scalar fields.
type StructuredConfig struct {
	// Storage holds configuration for the local durable store backing the
	// record table, operation queue, and sync checkpoint.
	Storage Storage `envPrefix:"STORAGE_"`

	// Remote holds network settings for the outbound remote client adapter.
	Remote Remote `envPrefix:"REMOTE_"`

	// Sync holds scheduling and retry settings for the sync manager.
	Sync Sync `envPrefix:"SYNC_"`

	// Monitor holds probing and debounce settings for the connectivity
	// monitor.
	Monitor Monitor `envPrefix:"MONITOR_"`

	// Resolver holds the field classification the conflict resolver
	// applies to contested payload fields.
	Resolver Resolver `envPrefix:"RESOLVER_"`

	// Admin holds settings for the local operator HTTP API.
	Admin Admin `envPrefix:"ADMIN_"`

	// JSONFilePath is the optional path to a JSON configuration file.
	// When non-empty, the file is parsed and merged on top of the values
	// already loaded from environment variables and flags.
	// Populated via the CONFIG environment variable or the -c / -config flag.
	JSONFilePath string `env:"CONFIG"`
}

// Storage groups local persistence settings.
type Storage struct {
	// DB holds the embedded database connection settings.
	DB DB `envPrefix:"DB_"`
}

// DB contains the local SQLite connection settings. Records, queued
// operations, and the sync checkpoint all live in this one database so a
// backup or restore can never desynchronize the queue from the records.
type DB struct {
	// DSN is the SQLite file path (or DSN) of the engine database.
	// Env: STORAGE_DB_DSN
	DSN string `env:"DSN"`
}

// Remote holds settings for the HTTP remote client adapter.
type Remote struct {
	// BaseURL is the base URL of the remote authority.
	// Env: REMOTE_BASE_URL
	BaseURL string `env:"BASE_URL"`

	// RequestTimeout bounds every outbound remote call. Exceeding it is
	// treated as a transient failure.
	// Env: REMOTE_REQUEST_TIMEOUT
	RequestTimeout time.Duration `env:"REQUEST_TIMEOUT"`
}

// Sync holds the sync manager's scheduling and retry knobs.
type Sync struct {
	// Interval is the period of the background sync timer.
	// Env: SYNC_INTERVAL
	Interval time.Duration `env:"INTERVAL"`

	// BatchSize bounds how many queued operations one push phase drains.
	// Env: SYNC_BATCH_SIZE
	BatchSize int `env:"BATCH_SIZE"`

	// MaxRetries is the default retry budget of a queued operation before
	// it is marked permanently failed.
	// Env: SYNC_MAX_RETRIES
	MaxRetries int `env:"MAX_RETRIES"`

	// InFlightTimeout is how long an operation may stay in-flight before
	// the watchdog returns it to the pending state.
	// Env: SYNC_IN_FLIGHT_TIMEOUT
	InFlightTimeout time.Duration `env:"IN_FLIGHT_TIMEOUT"`
}

// Monitor holds the connectivity monitor's probing settings.
type Monitor struct {
	// ProbeInterval is how often the periodic loop probes the remote for
	// reachability. CheckNow probes immediately, outside this cadence.
	// Env: MONITOR_PROBE_INTERVAL
	ProbeInterval time.Duration `env:"PROBE_INTERVAL"`

	// FailureThreshold is how many consecutive probe failures flip the
	// status to offline. A single success flips it back online.
	// Env: MONITOR_FAILURE_THRESHOLD
	FailureThreshold int `env:"FAILURE_THRESHOLD"`
}

// Resolver classifies payload fields for automatic conflict
// resolution. Fields listed in neither slice are treated as unknown:
// contested changes to them always escalate to manual review.
type Resolver struct {
	// UserEditableFields are free-form fields where the local edit wins a
	// contested change.
	// Env: RESOLVER_USER_EDITABLE_FIELDS (comma-separated)
	UserEditableFields []string `env:"USER_EDITABLE_FIELDS" envSeparator:","`

	// CriticalNumericFields are business-critical fields where the remote
	// value wins a contested change unless the local edit carries a
	// manual-override flag.
	// Env: RESOLVER_CRITICAL_NUMERIC_FIELDS (comma-separated)
	CriticalNumericFields []string `env:"CRITICAL_NUMERIC_FIELDS" envSeparator:","`
}

// Admin holds settings for the local operator HTTP API.
type Admin struct {
	// HTTPAddress is the TCP address the admin API listens on, in
	// "host:port" format. Empty disables the admin server.
	// Env: ADMIN_ADDRESS
	HTTPAddress string `env:"ADDRESS"`
}
