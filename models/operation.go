package models

import (
	"encoding/json"
	"time"
)

// OperationKind identifies the remote call a queued operation maps to.
type OperationKind string

const (
	OperationCreate OperationKind = "create"
	OperationUpdate OperationKind = "update"
	OperationDelete OperationKind = "delete"
)

// OperationStatus is the queue lifecycle of one pending mutation.
type OperationStatus string

const (
	OperationPending   OperationStatus = "pending"
	OperationInFlight  OperationStatus = "in_flight"
	OperationCompleted OperationStatus = "completed"
	OperationFailed    OperationStatus = "failed"
	OperationCancelled OperationStatus = "cancelled"
)

// QueuedOperation is a durable intent to replay one local mutation
// against the remote. The ID is assigned by the queue storage and defines
// processing order for operations of the same record.
type QueuedOperation struct {
	ID        int64         `json:"id"`
	Kind      OperationKind `json:"kind"`
	RecordKey string        `json:"record_key"`

	// Payload is a snapshot of the record data at enqueue time, not a live
	// reference. The record may mutate again before this operation is sent.
	Payload       json.RawMessage `json:"payload,omitempty"`
	SchemaVersion int             `json:"schema_version"`
	Overrides     Overrides       `json:"overrides,omitempty"`

	Priority   int `json:"priority"`
	RetryCount int `json:"retry_count"`
	MaxRetries int `json:"max_retries"`

	// ScheduledAt is the earliest time this operation may be attempted.
	// Pushed into the future by the backoff schedule after each failure.
	ScheduledAt time.Time `json:"scheduled_at"`

	Status    OperationStatus `json:"status"`
	LastError string          `json:"last_error,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
