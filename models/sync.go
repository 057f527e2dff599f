package models

import "time"

// SyncStatus is the engine's externally visible health summary. The
// application layer reads it through GetSyncStatus or a status
// subscription; sync-time failures are never raised as errors on the
// CRUD path.
type SyncStatus struct {
	Online        bool       `json:"online"`
	PendingCount  int        `json:"pending_count"`
	FailedCount   int        `json:"failed_count"`
	ConflictCount int        `json:"conflict_count"`
	LastSyncAt    *time.Time `json:"last_sync_at,omitempty"`
}

// SyncResult summarises one completed sync cycle.
type SyncResult struct {
	Pushed            int           `json:"pushed"`
	Pulled            int           `json:"pulled"`
	ConflictsResolved int           `json:"conflicts_resolved"`
	ConflictsOpen     int           `json:"conflicts_open"`
	Retried           int           `json:"retried"`
	Errors            []string      `json:"errors,omitempty"`
	StartedAt         time.Time     `json:"started_at"`
	Duration          time.Duration `json:"duration"`
}
