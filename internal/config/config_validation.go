// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package config

import "time"

// Defaults applied by [StructuredConfig.applyDefaults] for every knob that
// stays zero after all sources are merged.
const (
	DefaultSyncInterval     = 5 * time.Minute
	DefaultBatchSize        = 50
	DefaultMaxRetries       = 3
	DefaultInFlightTimeout  = 2 * time.Minute
	DefaultRequestTimeout   = 15 * time.Second
	DefaultProbeInterval    = 30 * time.Second
	DefaultFailureThreshold = 2
)

func (cfg *StructuredConfig) applyDefaults() {
	if cfg.Sync.Interval <= 0 {
		cfg.Sync.Interval = DefaultSyncInterval
	}
	if cfg.Sync.BatchSize <= 0 {
		cfg.Sync.BatchSize = DefaultBatchSize
	}
	if cfg.Sync.MaxRetries <= 0 {
		cfg.Sync.MaxRetries = DefaultMaxRetries
	}
	if cfg.Sync.InFlightTimeout <= 0 {
		cfg.Sync.InFlightTimeout = DefaultInFlightTimeout
	}
	if cfg.Remote.RequestTimeout <= 0 {
		cfg.Remote.RequestTimeout = DefaultRequestTimeout
	}
	if cfg.Monitor.ProbeInterval <= 0 {
		cfg.Monitor.ProbeInterval = DefaultProbeInterval
	}
	if cfg.Monitor.FailureThreshold <= 0 {
		cfg.Monitor.FailureThreshold = DefaultFailureThreshold
	}
}

// validate checks that the final merged [StructuredConfig] satisfies all
// engine invariants before it is used at startup.
//
// The local database must be a real file: an in-memory database would lose
// the queue and checkpoint on restart and break offline durability.
func (cfg *StructuredConfig) validate() error {
	if cfg.Storage.DB.DSN == "" {
		return ErrInvalidStorageConfigs
	}

	if cfg.Remote.BaseURL == "" {
		return ErrInvalidRemoteConfigs
	}

	return nil
}
