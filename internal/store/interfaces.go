package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/MKhiriev/go-offsync/models"
)

//go:generate mockgen -source=interfaces.go -destination=../mock/store_mock.go -package=mock

// RecordRepository is the low-level repository for engine records. Every
// mutating method that changes business data also writes the matching
// queued operation inside the same SQLite transaction, so storage and
// queue can never diverge on crash.
type RecordRepository interface {
	// CreateRecord inserts a new record together with its create operation
	// in one transaction. Fails with [ErrDuplicateNaturalKey] when another
	// non-deleted record holds the same natural key.
	CreateRecord(ctx context.Context, record models.Record, op models.QueuedOperation) (models.Record, error)

	// UpdateRecord persists new payload data for an existing record and
	// enqueues (or coalesces, see the queue rules) the matching update
	// operation in one transaction.
	UpdateRecord(ctx context.Context, record models.Record, op models.QueuedOperation) (models.Record, error)

	// SoftDeleteRecord tombstones the record and reconciles the queue in
	// one transaction: pending create/update operations for the key are
	// cancelled, and a delete operation is enqueued only when the remote
	// already knows the record. Returns true when the record was purged
	// outright (it was never pushed, so the remote needs no delete).
	SoftDeleteRecord(ctx context.Context, key string, op models.QueuedOperation) (purged bool, err error)

	// SaveRemoteRecord inserts or overwrites a record with data that
	// originates from the remote. No operation is enqueued.
	SaveRemoteRecord(ctx context.Context, record models.Record) error

	GetRecord(ctx context.Context, key string) (models.Record, error)
	GetRecordByRemoteID(ctx context.Context, remoteID string) (models.Record, error)
	ListRecords(ctx context.Context, filter models.RecordFilter) ([]models.Record, error)

	// UpdateSyncMetadata records a successful reconciliation with the
	// remote: remote id and version, the new base payload, sync state and
	// the sync timestamp.
	UpdateSyncMetadata(ctx context.Context, key, remoteID string, remoteVersion int64, basePayload json.RawMessage, state models.SyncState, syncedAt time.Time) error

	SetSyncState(ctx context.Context, key string, state models.SyncState) error
	CountRecordsByState(ctx context.Context, state models.SyncState) (int, error)

	// PurgeRecord hard-deletes a tombstoned record after the remote has
	// acknowledged its deletion.
	PurgeRecord(ctx context.Context, key string) error
}

// OperationQueue is the dispatch side of the durable operation queue.
// Enqueueing happens through [RecordRepository] so it shares the record's
// transaction.
type OperationQueue interface {
	// NextBatch returns up to limit pending operations that are due
	// (scheduled_at <= now), ordered by priority descending then id
	// ascending.
	NextBatch(ctx context.Context, limit int, now time.Time) ([]models.QueuedOperation, error)

	MarkInFlight(ctx context.Context, id int64, now time.Time) error

	// MarkCompleted deletes the operation row. Completed operations are
	// not kept, bounding queue growth.
	MarkCompleted(ctx context.Context, id int64) error

	// MarkFailed increments the retry counter and either reschedules the
	// operation with backoff or, when terminal is set or the retry budget
	// is exhausted, parks it in the failed status. The updated operation
	// is returned so callers can observe the final status.
	MarkFailed(ctx context.Context, id int64, opErr string, terminal bool, now time.Time) (models.QueuedOperation, error)

	// CancelForRecord cancels every pending operation for the key and
	// returns how many were cancelled.
	CancelForRecord(ctx context.Context, recordKey string) (int64, error)

	// RequeueStuck returns operations stuck in the in-flight status since
	// before cutoff to the pending status. Used by the watchdog to recover
	// from crashes mid network call.
	RequeueStuck(ctx context.Context, cutoff, now time.Time) (int64, error)

	// DropOrphans removes operations whose record no longer exists.
	DropOrphans(ctx context.Context) (int64, error)

	GetOperation(ctx context.Context, id int64) (models.QueuedOperation, error)
	PendingCount(ctx context.Context) (int, error)
	FailedCount(ctx context.Context) (int, error)
	PendingForRecord(ctx context.Context, recordKey string) (int, error)
}

// ConflictRepository persists detected conflicts. Auto-resolved conflicts
// are stored already closed for audit; manual-review conflicts stay open
// until an operator resolves them.
type ConflictRepository interface {
	SaveConflict(ctx context.Context, conflict models.ConflictRecord) (models.ConflictRecord, error)
	OpenConflicts(ctx context.Context) ([]models.ConflictRecord, error)
	OpenConflictForRecord(ctx context.Context, recordKey string) (models.ConflictRecord, error)
	MarkResolved(ctx context.Context, id int64, strategy models.ResolutionStrategy, resolvedAt time.Time) error
	CountOpen(ctx context.Context) (int, error)
}

// CheckpointRepository stores the opaque pull cursor and the timestamp of
// the last successful sync cycle.
type CheckpointRepository interface {
	GetCheckpoint(ctx context.Context) (string, error)
	SetCheckpoint(ctx context.Context, checkpoint string, at time.Time) error
	TouchLastSync(ctx context.Context, at time.Time) error
	LastSyncAt(ctx context.Context) (*time.Time, error)
}
