package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/MKhiriev/go-offsync/models"
)

//go:generate mockgen -source=interfaces.go -destination=../mock/service_mock.go -package=mock

// EntryService is the application-facing CRUD surface of the engine.
// Every mutation is local-first: it persists to the local store and
// enqueues the matching outbound operation in one transaction, then
// returns. Reads never touch the network. Whether the remote is
// reachable has no influence on any of these calls.
type EntryService interface {
	// Create stores a new record with a fresh client-generated key and
	// enqueues its create operation. Fails with
	// [store.ErrDuplicateNaturalKey] when the natural key is already held
	// by a visible record.
	Create(ctx context.Context, req CreateEntryRequest) (models.Record, error)

	// Get returns the record by its client-side key, tombstoned records
	// included.
	Get(ctx context.Context, key string) (models.Record, error)

	// List returns records matching the filter.
	List(ctx context.Context, filter models.RecordFilter) ([]models.Record, error)

	// Update merges the request's payload fields into the record's
	// current payload and enqueues (or coalesces) the matching update
	// operation. Fields absent from the request keep their value.
	Update(ctx context.Context, key string, req UpdateEntryRequest) (models.Record, error)

	// Delete tombstones the record and reconciles the queue: a record the
	// remote never saw is dropped outright, any other gets a delete
	// operation enqueued.
	Delete(ctx context.Context, key string) error
}

// CreateEntryRequest carries the caller-supplied parts of a new record.
type CreateEntryRequest struct {
	NaturalKey    string          `json:"natural_key"`
	Payload       json.RawMessage `json:"payload"`
	SchemaVersion int             `json:"schema_version"`

	// Overrides pins payload fields to their local value during conflict
	// resolution.
	Overrides models.Overrides `json:"overrides,omitempty"`

	// Priority orders the outbound queue; higher pushes first.
	Priority int `json:"priority"`
}

// UpdateEntryRequest carries a partial payload update.
type UpdateEntryRequest struct {
	Payload       json.RawMessage  `json:"payload"`
	SchemaVersion int              `json:"schema_version"`
	Overrides     models.Overrides `json:"overrides,omitempty"`
	Priority      int              `json:"priority"`
}

// SyncManager drives the bidirectional sync cycle and reports engine
// health. One cycle pushes the due queued operations, then pulls and
// applies remote changes. Cycles never overlap.
type SyncManager interface {
	// SyncNow runs one full sync cycle. Returns [ErrSyncInProgress] when
	// a cycle is already running and [ErrEngineOffline] when the remote
	// is unreachable.
	SyncNow(ctx context.Context) (models.SyncResult, error)

	// Status summarises engine health from local state only.
	Status(ctx context.Context) (models.SyncStatus, error)

	// SubscribeStatus registers a callback invoked after every sync
	// cycle, completed or failed. The returned function unregisters it.
	SubscribeStatus(fn func(models.SyncStatus)) func()
}

// ConflictService is the operator surface for manual-review conflicts.
type ConflictService interface {
	// Open lists conflicts awaiting an operator decision.
	Open(ctx context.Context) ([]models.ConflictRecord, error)

	// Resolve closes the open conflict for the record. keepLocal re-arms
	// the local payload for pushing; otherwise the remote snapshot
	// captured at detection time is adopted.
	Resolve(ctx context.Context, recordKey string, keepLocal bool) (models.Record, error)
}

// SyncJob runs sync cycles in the background: on a fixed interval and
// immediately after connectivity is regained.
type SyncJob interface {
	// Start launches the background goroutine. A previously running job
	// is stopped first. Zero or negative interval falls back to the
	// default of 5 minutes.
	Start(ctx context.Context, interval time.Duration)

	// Stop cancels the background goroutine and blocks until it exits.
	Stop()
}

// Connectivity is the slice of the connectivity monitor the sync layer
// depends on.
type Connectivity interface {
	IsOnline() bool
	CheckNow(ctx context.Context) bool
	Subscribe(fn func(online bool)) func()
}
