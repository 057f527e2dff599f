package service

import (
	"context"
	"fmt"
	"time"

	"github.com/MKhiriev/go-offsync/internal/config"
	"github.com/MKhiriev/go-offsync/internal/logger"
	"github.com/MKhiriev/go-offsync/internal/store"
	"github.com/MKhiriev/go-offsync/models"
)

// conflictService implements the operator side of conflict handling.
// Resolving picks one whole side; field-level cherry-picking stays the
// resolver's job during sync.
type conflictService struct {
	storages *store.Storages
	cfg      config.Sync
	logger   *logger.Logger
	now      func() time.Time
}

func NewConflictService(storages *store.Storages, cfg config.Sync, log *logger.Logger) ConflictService {
	return &conflictService{
		storages: storages,
		cfg:      cfg,
		logger:   log,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (c *conflictService) Open(ctx context.Context) ([]models.ConflictRecord, error) {
	conflicts, err := c.storages.Conflicts.OpenConflicts(ctx)
	if err != nil {
		return nil, fmt.Errorf("list open conflicts: %w", err)
	}
	return conflicts, nil
}

func (c *conflictService) Resolve(ctx context.Context, recordKey string, keepLocal bool) (models.Record, error) {
	conflict, err := c.storages.Conflicts.OpenConflictForRecord(ctx, recordKey)
	if err != nil {
		return models.Record{}, fmt.Errorf("resolve conflict: %w", err)
	}

	record, err := c.storages.Records.GetRecord(ctx, recordKey)
	if err != nil {
		return models.Record{}, fmt.Errorf("resolve conflict: %w", err)
	}

	if keepLocal {
		record, err = c.keepLocal(ctx, record, conflict)
	} else {
		record, err = c.keepRemote(ctx, record, conflict)
	}
	if err != nil {
		return models.Record{}, err
	}

	strategy := models.ResolutionRemoteWins
	if keepLocal {
		strategy = models.ResolutionLocalWins
	}
	if err = c.storages.Conflicts.MarkResolved(ctx, conflict.ID, strategy, c.now()); err != nil {
		return models.Record{}, fmt.Errorf("close conflict: %w", err)
	}

	c.logger.Info().
		Str("func", "conflictService.Resolve").
		Str("record_key", recordKey).
		Bool("keep_local", keepLocal).
		Msg("conflict resolved by operator")

	return record, nil
}

// keepLocal re-arms the local payload for pushing. The push carries the
// conflicting remote version as its expectation, so it supersedes
// exactly the state the operator looked at.
func (c *conflictService) keepLocal(ctx context.Context, record models.Record, conflict models.ConflictRecord) (models.Record, error) {
	now := c.now()

	record.BasePayload = conflict.RemoteSnapshot
	record.SyncState = models.SyncStatePending
	if conflict.RemoteVersion > 0 {
		record.SyncedVersion = conflict.RemoteVersion
		record.RemoteVersion = conflict.RemoteVersion + 1
	}
	record.LastModifiedAt = now

	op := models.QueuedOperation{
		Kind:          models.OperationUpdate,
		RecordKey:     record.Key,
		Payload:       record.Payload,
		SchemaVersion: record.SchemaVersion,
		Overrides:     record.Overrides,
		MaxRetries:    c.cfg.MaxRetries,
		ScheduledAt:   now,
		Status:        models.OperationPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	updated, err := c.storages.Records.UpdateRecord(ctx, record, op)
	if err != nil {
		return models.Record{}, fmt.Errorf("re-arm local payload: %w", err)
	}
	return updated, nil
}

// keepRemote adopts the remote snapshot frozen at detection time and
// discards the local changes.
func (c *conflictService) keepRemote(ctx context.Context, record models.Record, conflict models.ConflictRecord) (models.Record, error) {
	now := c.now()

	record.Payload = conflict.RemoteSnapshot
	record.BasePayload = conflict.RemoteSnapshot
	record.SyncState = models.SyncStateSynced
	if conflict.RemoteVersion > 0 {
		record.RemoteVersion = conflict.RemoteVersion
		record.SyncedVersion = conflict.RemoteVersion
	}
	record.LastSyncedAt = &now
	record.LastModifiedAt = now

	if _, err := c.storages.Queue.CancelForRecord(ctx, record.Key); err != nil {
		return models.Record{}, fmt.Errorf("cancel stale operations: %w", err)
	}
	if err := c.storages.Records.SaveRemoteRecord(ctx, record); err != nil {
		return models.Record{}, fmt.Errorf("adopt remote snapshot: %w", err)
	}
	return record, nil
}
