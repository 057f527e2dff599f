package models

import (
	"encoding/json"
	"time"
)

// ResolutionStrategy names the outcome the conflict resolver picked for a
// divergent record pair.
type ResolutionStrategy string

const (
	// ResolutionFieldMerge merged field-by-field: the local and remote
	// edits touched disjoint sets of fields.
	ResolutionFieldMerge ResolutionStrategy = "field_merge"

	// ResolutionLocalWins kept the local value for the contested fields.
	ResolutionLocalWins ResolutionStrategy = "local_wins"

	// ResolutionRemoteWins kept the remote value for the contested fields.
	ResolutionRemoteWins ResolutionStrategy = "remote_wins"

	// ResolutionManualReview means no rule disambiguated the divergence.
	// The conflict is persisted and the record blocks automatic pushes
	// until an operator decides.
	ResolutionManualReview ResolutionStrategy = "manual_review"
)

// ConflictType distinguishes how the divergence was detected.
type ConflictType string

const (
	// ConflictPush was reported by the remote while pushing a queued
	// operation (version check failed).
	ConflictPush ConflictType = "push"

	// ConflictPull was detected during the pull phase: the remote advanced
	// a record that also has unsynced local changes.
	ConflictPull ConflictType = "pull"
)

// ConflictRecord captures one detected divergence between the local and
// remote versions of a record, with both snapshots frozen at detection
// time. Auto-resolved conflicts are recorded with ResolvedAt set;
// manual-review conflicts stay open until an operator resolves them.
type ConflictRecord struct {
	ID             int64           `json:"id"`
	RecordKey      string          `json:"record_key"`
	LocalSnapshot  json.RawMessage `json:"local_snapshot"`
	RemoteSnapshot json.RawMessage `json:"remote_snapshot"`

	// RemoteVersion is the remote's version at detection time. Operator
	// resolution uses it to adopt or overwrite the remote state without
	// an extra fetch.
	RemoteVersion int64              `json:"remote_version"`
	ConflictType  ConflictType       `json:"conflict_type"`
	Resolution    ResolutionStrategy `json:"resolution"`
	ResolvedAt    *time.Time         `json:"resolved_at,omitempty"`
	CreatedAt     time.Time          `json:"created_at"`
}
