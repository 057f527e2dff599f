// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package models

import (
	"encoding/json"
	"time"
)

// SyncState describes where a record stands in its reconciliation
// lifecycle with the remote authority.
type SyncState string

const (
	// SyncStatePending marks a record with local changes that have not yet
	// been acknowledged by the remote.
	SyncStatePending SyncState = "pending"

	// SyncStateSynced marks a record whose local and remote versions are
	// known to be identical.
	SyncStateSynced SyncState = "synced"

	// SyncStateConflict marks a record whose local and remote changes could
	// not be merged automatically. Automatic pushes for the record are
	// suspended until an operator resolves the conflict.
	SyncStateConflict SyncState = "conflict"

	// SyncStateFailed marks a record whose last push was permanently
	// rejected by the remote. No further automatic retries happen.
	SyncStateFailed SyncState = "failed"
)

// Overrides flags individual payload fields as manual overrides. A field
// flagged here keeps its local value during conflict resolution even when
// the resolution policy would otherwise prefer the remote value.
type Overrides map[string]bool

// Record is a business entity tracked by the engine. The engine is
// agnostic to the business fields: they travel as an opaque JSON payload
// tagged with a schema version. Identity is the client-generated Key;
// the natural key only guards against duplicate entries.
type Record struct {
	// Key is the globally unique client-side identifier (UUID). It is
	// assigned once at creation and never reused.
	Key string `json:"key"`

	// NaturalKey is the user-supplied business key. It must be unique
	// among records that are not soft-deleted.
	NaturalKey string `json:"natural_key"`

	// Payload carries the business fields as an opaque JSON object.
	Payload json.RawMessage `json:"payload"`

	// SchemaVersion tags the payload shape so the remote adapter can
	// transform it without the engine knowing the fields.
	SchemaVersion int `json:"schema_version"`

	// Overrides lists payload fields the user explicitly pinned to their
	// local value.
	Overrides Overrides `json:"overrides,omitempty"`

	// BasePayload is a snapshot of the payload as of the last successful
	// reconciliation with the remote. It is the common ancestor used for
	// three-way conflict resolution. Empty until the first sync.
	BasePayload json.RawMessage `json:"base_payload,omitempty"`

	SyncState SyncState `json:"sync_state"`
	RemoteID  string    `json:"remote_id,omitempty"`

	// RemoteVersion is the record's monotonically increasing version
	// counter. It starts at 1 and is incremented by every accepted local
	// or remote update.
	RemoteVersion int64 `json:"remote_version"`

	// SyncedVersion is the remote version this client last reconciled
	// against. Pushes carry it as the expected version, and a pull whose
	// remote version is ahead of it on a pending record is a conflict.
	SyncedVersion  int64      `json:"synced_version"`
	LastSyncedAt   *time.Time `json:"last_synced_at,omitempty"`
	LastModifiedAt time.Time  `json:"last_modified_at"`
	CreatedAt      time.Time  `json:"created_at"`

	// Deleted marks a tombstone. The row stays in storage until the
	// deletion has been acknowledged by the remote.
	Deleted bool `json:"deleted"`
}
