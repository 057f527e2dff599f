// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package models

import (
	"encoding/json"
	"time"
)

// RemoteChange is one record mutation reported by the remote during the
// pull phase.
type RemoteChange struct {
	// RemoteID is the remote-assigned identifier of the changed record.
	RemoteID string `json:"remote_id"`

	// RecordKey is the client-side UUID the remote echoes back, when the
	// record originated on this client. May be empty for records created
	// elsewhere.
	RecordKey string `json:"record_key,omitempty"`

	// NaturalKey is the business key of the record, needed when the
	// change introduces a record this client has never seen.
	NaturalKey string `json:"natural_key,omitempty"`

	Kind          OperationKind   `json:"kind"`
	Payload       json.RawMessage `json:"payload,omitempty"`
	SchemaVersion int             `json:"schema_version"`
	RemoteVersion int64           `json:"remote_version"`
	ChangedAt     time.Time       `json:"changed_at"`
}

// RemoteCreateResult is the remote's acknowledgement of a create push.
type RemoteCreateResult struct {
	RemoteID      string `json:"remote_id"`
	RemoteVersion int64  `json:"remote_version"`
}

// RemoteUpdateResult is the remote's acknowledgement of an update push.
type RemoteUpdateResult struct {
	RemoteVersion int64 `json:"remote_version"`
}

// ChangeFeed is the result of one fetchChangesSince call. NewCheckpoint
// is an opaque cursor the engine persists only after every change in the
// batch has been applied locally.
type ChangeFeed struct {
	Changes       []RemoteChange `json:"changes"`
	NewCheckpoint string         `json:"new_checkpoint"`
}
