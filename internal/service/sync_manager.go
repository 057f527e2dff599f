// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/MKhiriev/go-offsync/internal/adapter"
	"github.com/MKhiriev/go-offsync/internal/config"
	"github.com/MKhiriev/go-offsync/internal/logger"
	"github.com/MKhiriev/go-offsync/internal/resolver"
	"github.com/MKhiriev/go-offsync/internal/store"
	"github.com/MKhiriev/go-offsync/models"
)

// syncManager owns the bidirectional sync cycle: it drains the outbound
// operation queue against the remote, then pulls and applies the
// remote's change feed. All conflict handling funnels through the
// resolver; the manager only persists the outcomes.
type syncManager struct {
	storages *store.Storages
	remote   adapter.RemoteClient
	monitor  Connectivity
	policy   resolver.Policy
	cfg      config.Sync
	logger   *logger.Logger
	now      func() time.Time

	syncing atomic.Bool

	mu          sync.Mutex
	nextSubID   int64
	subscribers map[int64]func(models.SyncStatus)
}

func NewSyncManager(storages *store.Storages, remote adapter.RemoteClient, monitor Connectivity, policy resolver.Policy, cfg config.Sync, log *logger.Logger) SyncManager {
	return &syncManager{
		storages:    storages,
		remote:      remote,
		monitor:     monitor,
		policy:      policy,
		cfg:         cfg,
		logger:      log,
		now:         func() time.Time { return time.Now().UTC() },
		subscribers: make(map[int64]func(models.SyncStatus)),
	}
}

func (s *syncManager) SyncNow(ctx context.Context) (models.SyncResult, error) {
	if !s.syncing.CompareAndSwap(false, true) {
		return models.SyncResult{}, ErrSyncInProgress
	}
	defer s.syncing.Store(false)

	if !s.monitor.IsOnline() && !s.monitor.CheckNow(ctx) {
		return models.SyncResult{}, ErrEngineOffline
	}

	started := s.now()
	result := models.SyncResult{StartedAt: started}

	pushErr := s.push(ctx, &result)
	if pushErr != nil {
		s.logger.Warn().
			Str("func", "syncManager.SyncNow").
			Err(pushErr).
			Msg("push phase aborted")
		result.Errors = append(result.Errors, fmt.Sprintf("push phase: %v", pushErr))
	}

	// the pull phase runs even after a failed push: an unreachable or
	// rejecting remote must not starve the engine of remote changes
	pullErr := s.pull(ctx, &result)
	if pullErr != nil {
		s.logger.Warn().
			Str("func", "syncManager.SyncNow").
			Err(pullErr).
			Msg("pull phase aborted")
		result.Errors = append(result.Errors, fmt.Sprintf("pull phase: %v", pullErr))
	}

	if pushErr == nil && pullErr == nil {
		if err := s.storages.Checkpoint.TouchLastSync(ctx, s.now()); err != nil {
			s.logger.Warn().
				Str("func", "syncManager.SyncNow").
				Err(err).
				Msg("failed to record sync timestamp")
		}
	}

	result.Duration = s.now().Sub(started)
	s.logger.Info().
		Str("func", "syncManager.SyncNow").
		Int("pushed", result.Pushed).
		Int("pulled", result.Pulled).
		Int("conflicts_resolved", result.ConflictsResolved).
		Int("conflicts_open", result.ConflictsOpen).
		Int("errors", len(result.Errors)).
		Dur("duration", result.Duration).
		Msg("sync cycle completed")

	s.notifyStatus(ctx)

	switch {
	case pushErr != nil && pullErr != nil:
		return result, fmt.Errorf("push phase: %w; pull phase: %w", pushErr, pullErr)
	case pushErr != nil:
		return result, fmt.Errorf("push phase: %w", pushErr)
	case pullErr != nil:
		return result, fmt.Errorf("pull phase: %w", pullErr)
	}
	return result, nil
}

func (s *syncManager) Status(ctx context.Context) (models.SyncStatus, error) {
	pending, err := s.storages.Queue.PendingCount(ctx)
	if err != nil {
		return models.SyncStatus{}, fmt.Errorf("count pending operations: %w", err)
	}
	failed, err := s.storages.Queue.FailedCount(ctx)
	if err != nil {
		return models.SyncStatus{}, fmt.Errorf("count failed operations: %w", err)
	}
	conflicts, err := s.storages.Conflicts.CountOpen(ctx)
	if err != nil {
		return models.SyncStatus{}, fmt.Errorf("count open conflicts: %w", err)
	}
	lastSync, err := s.storages.Checkpoint.LastSyncAt(ctx)
	if err != nil {
		return models.SyncStatus{}, fmt.Errorf("read last sync timestamp: %w", err)
	}

	return models.SyncStatus{
		Online:        s.monitor.IsOnline(),
		PendingCount:  pending,
		FailedCount:   failed,
		ConflictCount: conflicts,
		LastSyncAt:    lastSync,
	}, nil
}

func (s *syncManager) SubscribeStatus(fn func(models.SyncStatus)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextSubID++
	id := s.nextSubID
	s.subscribers[id] = fn

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subscribers, id)
	}
}

func (s *syncManager) notifyStatus(ctx context.Context) {
	status, err := s.Status(ctx)
	if err != nil {
		s.logger.Warn().
			Str("func", "syncManager.notifyStatus").
			Err(err).
			Msg("failed to build status snapshot")
		return
	}

	s.mu.Lock()
	callbacks := make([]func(models.SyncStatus), 0, len(s.subscribers))
	for _, fn := range s.subscribers {
		callbacks = append(callbacks, fn)
	}
	s.mu.Unlock()

	for _, fn := range callbacks {
		fn(status)
	}
}

// push drains one batch of due queued operations. A transient failure
// stops the drain: the remote is likely gone, and every remaining
// operation would burn a retry for nothing.
func (s *syncManager) push(ctx context.Context, result *models.SyncResult) error {
	batch, err := s.storages.Queue.NextBatch(ctx, s.cfg.BatchSize, s.now())
	if err != nil {
		return fmt.Errorf("load due operations: %w", err)
	}

	for _, op := range batch {
		record, err := s.storages.Records.GetRecord(ctx, op.RecordKey)
		if errors.Is(err, store.ErrRecordNotFound) {
			// orphan left behind by a partial cleanup; drop it
			if err = s.storages.Queue.MarkCompleted(ctx, op.ID); err != nil {
				return fmt.Errorf("drop orphan operation %d: %w", op.ID, err)
			}
			continue
		}
		if err != nil {
			return fmt.Errorf("load record for operation %d: %w", op.ID, err)
		}
		if record.SyncState == models.SyncStateConflict {
			// pushes stay suspended until the operator resolves the conflict
			continue
		}

		if err = s.storages.Queue.MarkInFlight(ctx, op.ID, s.now()); err != nil {
			return fmt.Errorf("mark operation %d in flight: %w", op.ID, err)
		}

		pushErr := s.pushOne(ctx, record, op)
		switch adapter.Classify(pushErr) {
		case adapter.FailureNone:
			if err = s.storages.Queue.MarkCompleted(ctx, op.ID); err != nil {
				return fmt.Errorf("complete operation %d: %w", op.ID, err)
			}
			result.Pushed++

		case adapter.FailureConflict:
			var conflict *adapter.ConflictError
			errors.As(pushErr, &conflict)
			if err = s.handlePushConflict(ctx, record, op, conflict, result); err != nil {
				return fmt.Errorf("resolve push conflict for %s: %w", record.Key, err)
			}

		case adapter.FailurePermanent:
			if err = s.parkOperation(ctx, op, pushErr, true); err != nil {
				return err
			}

		case adapter.FailureTransient:
			if err = s.parkOperation(ctx, op, pushErr, false); err != nil {
				return err
			}
			result.Retried++
			return fmt.Errorf("operation %d: %w", op.ID, pushErr)
		}
	}

	return nil
}

// pushOne executes one queued operation against the remote and, on
// success, records the reconciliation in the local store. The returned
// error is the remote call's error, suitable for [adapter.Classify].
func (s *syncManager) pushOne(ctx context.Context, record models.Record, op models.QueuedOperation) error {
	switch op.Kind {
	case models.OperationCreate:
		// a create acked before a crash replays as an update
		if record.RemoteID != "" {
			return s.pushUpdate(ctx, record, op)
		}
		return s.pushCreate(ctx, record, op)

	case models.OperationUpdate:
		// an update enqueued before the create was acked pushes as a create
		if record.RemoteID == "" {
			return s.pushCreate(ctx, record, op)
		}
		return s.pushUpdate(ctx, record, op)

	case models.OperationDelete:
		return s.pushDelete(ctx, record)

	default:
		return fmt.Errorf("%w: unknown operation kind %q", adapter.ErrPermanent, op.Kind)
	}
}

func (s *syncManager) pushCreate(ctx context.Context, record models.Record, op models.QueuedOperation) error {
	res, err := s.remote.CreateRemote(ctx, adapter.CreateRequest{
		RecordKey:     record.Key,
		NaturalKey:    record.NaturalKey,
		Payload:       op.Payload,
		SchemaVersion: op.SchemaVersion,
	})
	if err != nil {
		return err
	}

	if err = s.storages.Records.UpdateSyncMetadata(ctx, record.Key, res.RemoteID, res.RemoteVersion, op.Payload, models.SyncStateSynced, s.now()); err != nil {
		return fmt.Errorf("record create acknowledgement: %w", err)
	}
	return nil
}

func (s *syncManager) pushUpdate(ctx context.Context, record models.Record, op models.QueuedOperation) error {
	res, err := s.remote.UpdateRemote(ctx, record.RemoteID, adapter.UpdateRequest{
		Payload:         op.Payload,
		SchemaVersion:   op.SchemaVersion,
		ExpectedVersion: record.SyncedVersion,
	})
	if err != nil {
		return err
	}

	if err = s.storages.Records.UpdateSyncMetadata(ctx, record.Key, record.RemoteID, res.RemoteVersion, op.Payload, models.SyncStateSynced, s.now()); err != nil {
		return fmt.Errorf("record update acknowledgement: %w", err)
	}
	return nil
}

func (s *syncManager) pushDelete(ctx context.Context, record models.Record) error {
	if record.RemoteID == "" {
		// the remote never heard of this record
		return s.storages.Records.PurgeRecord(ctx, record.Key)
	}

	if err := s.remote.DeleteRemote(ctx, record.RemoteID, record.SyncedVersion); err != nil {
		return err
	}
	return s.storages.Records.PurgeRecord(ctx, record.Key)
}

// parkOperation records a push failure on the operation: retrying with
// backoff, or parking it as failed when terminal (then the record is
// flagged too, so the failure surfaces in the status summary).
func (s *syncManager) parkOperation(ctx context.Context, op models.QueuedOperation, pushErr error, terminal bool) error {
	failed, err := s.storages.Queue.MarkFailed(ctx, op.ID, pushErr.Error(), terminal, s.now())
	if err != nil {
		return fmt.Errorf("mark operation %d failed: %w", op.ID, err)
	}

	if failed.Status == models.OperationFailed {
		s.logger.Error().
			Str("func", "syncManager.parkOperation").
			Str("record_key", op.RecordKey).
			Int64("operation_id", op.ID).
			Str("last_error", failed.LastError).
			Msg("operation permanently failed")
		if err = s.storages.Records.SetSyncState(ctx, op.RecordKey, models.SyncStateFailed); err != nil && !errors.Is(err, store.ErrRecordNotFound) {
			return fmt.Errorf("flag record %s failed: %w", op.RecordKey, err)
		}
	}
	return nil
}

// handlePushConflict runs the resolver against the remote state carried
// by the 409 response and persists the outcome. The queued operation is
// always removed: a re-push, when needed, rides a fresh operation
// holding the merged payload.
func (s *syncManager) handlePushConflict(ctx context.Context, record models.Record, op models.QueuedOperation, conflict *adapter.ConflictError, result *models.SyncResult) error {
	if err := s.storages.Queue.MarkCompleted(ctx, op.ID); err != nil {
		return fmt.Errorf("retire conflicted operation %d: %w", op.ID, err)
	}

	remoteID := conflict.RemoteID
	if remoteID == "" {
		remoteID = record.RemoteID
	}

	return s.reconcileDivergence(ctx, record, divergence{
		remoteID:      remoteID,
		remoteVersion: conflict.RemoteVersion,
		remotePayload: conflict.Payload,
		schemaVersion: conflict.SchemaVersion,
		conflictType:  models.ConflictPush,
	}, result)
}

// divergence captures the remote side of a detected local/remote split,
// regardless of whether a push rejection or a pulled change surfaced it.
type divergence struct {
	remoteID      string
	remoteVersion int64
	remotePayload json.RawMessage
	schemaVersion int
	conflictType  models.ConflictType
}

// reconcileDivergence resolves one local/remote split and persists the
// outcome: a merge that matches the remote closes the gap immediately, a
// merge that keeps local changes re-arms a push, and an unresolvable
// split parks the record for the operator.
func (s *syncManager) reconcileDivergence(ctx context.Context, record models.Record, div divergence, result *models.SyncResult) error {
	now := s.now()

	resolution, err := resolver.Resolve(record.BasePayload, record.Payload, div.remotePayload, s.policy, record.Overrides)
	if err != nil {
		// payloads the resolver cannot read are beyond auto-resolution
		s.logger.Warn().
			Str("func", "syncManager.reconcileDivergence").
			Str("record_key", record.Key).
			Err(err).
			Msg("resolver rejected payloads, escalating to manual review")
		resolution = resolver.Resolution{Strategy: models.ResolutionManualReview}
	}

	if resolution.Strategy == models.ResolutionManualReview {
		return s.openConflict(ctx, record, div, result)
	}

	audit := models.ConflictRecord{
		RecordKey:      record.Key,
		LocalSnapshot:  record.Payload,
		RemoteSnapshot: div.remotePayload,
		RemoteVersion:  div.remoteVersion,
		ConflictType:   div.conflictType,
		Resolution:     resolution.Strategy,
		ResolvedAt:     &now,
		CreatedAt:      now,
	}
	if _, err = s.storages.Conflicts.SaveConflict(ctx, audit); err != nil {
		return fmt.Errorf("record conflict audit entry: %w", err)
	}

	if jsonEqual(resolution.MergedPayload, div.remotePayload) {
		// nothing local survived the merge; adopt the remote state
		if err = s.adoptRemoteState(ctx, record, div, now); err != nil {
			return err
		}
		result.ConflictsResolved++
		return nil
	}

	// the merge kept local changes: save it and re-arm the push
	record.Payload = resolution.MergedPayload
	record.BasePayload = div.remotePayload
	record.SyncState = models.SyncStatePending
	record.RemoteVersion = div.remoteVersion + 1
	record.SyncedVersion = div.remoteVersion
	record.LastModifiedAt = now
	if div.remoteID != "" {
		record.RemoteID = div.remoteID
	}
	if div.schemaVersion > record.SchemaVersion {
		record.SchemaVersion = div.schemaVersion
	}

	repush := models.QueuedOperation{
		Kind:          models.OperationUpdate,
		RecordKey:     record.Key,
		Payload:       resolution.MergedPayload,
		SchemaVersion: record.SchemaVersion,
		Overrides:     record.Overrides,
		MaxRetries:    s.cfg.MaxRetries,
		ScheduledAt:   now,
		Status:        models.OperationPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	// the upsert persists remote id and sync metadata, which the
	// data-update path does not touch; the update then enqueues the re-push
	if err = s.storages.Records.SaveRemoteRecord(ctx, record); err != nil {
		return fmt.Errorf("save merged record: %w", err)
	}
	if _, err = s.storages.Records.UpdateRecord(ctx, record, repush); err != nil {
		return fmt.Errorf("enqueue merged re-push: %w", err)
	}

	result.ConflictsResolved++
	return nil
}

// openConflict parks the record for the operator: the conflict row stays
// open, the record enters the conflict state and its queued operations
// are cancelled so nothing is pushed behind the operator's back.
func (s *syncManager) openConflict(ctx context.Context, record models.Record, div divergence, result *models.SyncResult) error {
	now := s.now()

	conflict := models.ConflictRecord{
		RecordKey:      record.Key,
		LocalSnapshot:  record.Payload,
		RemoteSnapshot: div.remotePayload,
		RemoteVersion:  div.remoteVersion,
		ConflictType:   div.conflictType,
		Resolution:     models.ResolutionManualReview,
		CreatedAt:      now,
	}
	if _, err := s.storages.Conflicts.SaveConflict(ctx, conflict); err != nil {
		return fmt.Errorf("save open conflict: %w", err)
	}

	if _, err := s.storages.Queue.CancelForRecord(ctx, record.Key); err != nil {
		return fmt.Errorf("suspend queued operations: %w", err)
	}
	if err := s.storages.Records.SetSyncState(ctx, record.Key, models.SyncStateConflict); err != nil {
		return fmt.Errorf("flag record conflicted: %w", err)
	}

	s.logger.Warn().
		Str("func", "syncManager.openConflict").
		Str("record_key", record.Key).
		Str("conflict_type", string(div.conflictType)).
		Msg("conflict escalated to manual review")

	result.ConflictsOpen++
	return nil
}

// adoptRemoteState overwrites the local record with the remote's current
// state and cancels any queued operations made stale by it.
func (s *syncManager) adoptRemoteState(ctx context.Context, record models.Record, div divergence, now time.Time) error {
	record.Payload = div.remotePayload
	record.BasePayload = div.remotePayload
	record.SyncState = models.SyncStateSynced
	record.RemoteVersion = div.remoteVersion
	record.SyncedVersion = div.remoteVersion
	record.LastSyncedAt = &now
	record.LastModifiedAt = now
	if div.remoteID != "" {
		record.RemoteID = div.remoteID
	}
	if div.schemaVersion > 0 {
		record.SchemaVersion = div.schemaVersion
	}

	if _, err := s.storages.Queue.CancelForRecord(ctx, record.Key); err != nil {
		return fmt.Errorf("cancel stale operations: %w", err)
	}
	if err := s.storages.Records.SaveRemoteRecord(ctx, record); err != nil {
		return fmt.Errorf("adopt remote state: %w", err)
	}
	return nil
}

// pull fetches the remote change feed and applies each change in order.
// The checkpoint advances only after the whole batch applied, so an
// aborted pull replays the same feed on the next cycle.
func (s *syncManager) pull(ctx context.Context, result *models.SyncResult) error {
	checkpoint, err := s.storages.Checkpoint.GetCheckpoint(ctx)
	if err != nil {
		return fmt.Errorf("load checkpoint: %w", err)
	}

	feed, err := s.remote.FetchChangesSince(ctx, checkpoint)
	if err != nil {
		return fmt.Errorf("fetch changes: %w", err)
	}

	for _, change := range feed.Changes {
		if err = s.applyChange(ctx, change, result); err != nil {
			return fmt.Errorf("apply change for remote id %s: %w", change.RemoteID, err)
		}
		result.Pulled++
	}

	if feed.NewCheckpoint != "" && feed.NewCheckpoint != checkpoint {
		if err = s.storages.Checkpoint.SetCheckpoint(ctx, feed.NewCheckpoint, s.now()); err != nil {
			return fmt.Errorf("advance checkpoint: %w", err)
		}
	}
	return nil
}

func (s *syncManager) applyChange(ctx context.Context, change models.RemoteChange, result *models.SyncResult) error {
	record, err := s.findLocalRecord(ctx, change)
	switch {
	case errors.Is(err, store.ErrRecordNotFound):
		return s.applyChangeToUnknown(ctx, change)
	case err != nil:
		return err
	}

	if change.RemoteVersion <= record.SyncedVersion {
		// stale echo of a state this client already reconciled
		return nil
	}

	if record.SyncState == models.SyncStateConflict {
		// the operator owns this record until the conflict is resolved
		s.logger.Debug().
			Str("func", "syncManager.applyChange").
			Str("record_key", record.Key).
			Msg("skipping pulled change for conflicted record")
		return nil
	}

	if change.Kind == models.OperationDelete {
		return s.applyRemoteDelete(ctx, record)
	}

	pendingOps, err := s.storages.Queue.PendingForRecord(ctx, record.Key)
	if err != nil {
		return fmt.Errorf("count pending operations: %w", err)
	}

	if record.SyncState != models.SyncStatePending && pendingOps == 0 {
		// no unsynced local changes; the remote state simply wins
		return s.adoptRemoteState(ctx, record, divergence{
			remoteID:      change.RemoteID,
			remoteVersion: change.RemoteVersion,
			remotePayload: change.Payload,
			schemaVersion: change.SchemaVersion,
		}, s.now())
	}

	return s.reconcileDivergence(ctx, record, divergence{
		remoteID:      change.RemoteID,
		remoteVersion: change.RemoteVersion,
		remotePayload: change.Payload,
		schemaVersion: change.SchemaVersion,
		conflictType:  models.ConflictPull,
	}, result)
}

// applyChangeToUnknown handles a pulled change for a record this client
// has never seen: creates are materialised as synced records, deletes
// are no-ops.
func (s *syncManager) applyChangeToUnknown(ctx context.Context, change models.RemoteChange) error {
	if change.Kind == models.OperationDelete {
		return nil
	}

	key := change.RecordKey
	if key == "" {
		key = uuid.NewString()
	}

	now := s.now()
	record := models.Record{
		Key:            key,
		NaturalKey:     change.NaturalKey,
		Payload:        change.Payload,
		SchemaVersion:  change.SchemaVersion,
		BasePayload:    change.Payload,
		SyncState:      models.SyncStateSynced,
		RemoteID:       change.RemoteID,
		RemoteVersion:  change.RemoteVersion,
		SyncedVersion:  change.RemoteVersion,
		LastSyncedAt:   &now,
		LastModifiedAt: change.ChangedAt,
		CreatedAt:      now,
	}

	if err := s.storages.Records.SaveRemoteRecord(ctx, record); err != nil {
		return fmt.Errorf("materialise remote record: %w", err)
	}
	return nil
}

// applyRemoteDelete removes the local copy of a record the remote
// deleted. Unsynced local edits do not resurrect the record: the
// deletion is authoritative, but the local snapshot is kept in the
// conflict audit log before it goes.
func (s *syncManager) applyRemoteDelete(ctx context.Context, record models.Record) error {
	now := s.now()

	if record.SyncState == models.SyncStatePending && !record.Deleted {
		audit := models.ConflictRecord{
			RecordKey:      record.Key,
			LocalSnapshot:  record.Payload,
			RemoteSnapshot: json.RawMessage("{}"),
			ConflictType:   models.ConflictPull,
			Resolution:     models.ResolutionRemoteWins,
			ResolvedAt:     &now,
			CreatedAt:      now,
		}
		if _, err := s.storages.Conflicts.SaveConflict(ctx, audit); err != nil {
			return fmt.Errorf("record delete audit entry: %w", err)
		}
	}

	if _, err := s.storages.Queue.CancelForRecord(ctx, record.Key); err != nil {
		return fmt.Errorf("cancel operations of deleted record: %w", err)
	}
	if err := s.storages.Records.PurgeRecord(ctx, record.Key); err != nil {
		return fmt.Errorf("purge deleted record: %w", err)
	}
	return nil
}

func (s *syncManager) findLocalRecord(ctx context.Context, change models.RemoteChange) (models.Record, error) {
	if change.RecordKey != "" {
		record, err := s.storages.Records.GetRecord(ctx, change.RecordKey)
		if err == nil || !errors.Is(err, store.ErrRecordNotFound) {
			return record, err
		}
	}
	return s.storages.Records.GetRecordByRemoteID(ctx, change.RemoteID)
}

// jsonEqual compares two JSON documents structurally, ignoring key order
// and whitespace.
func jsonEqual(a, b json.RawMessage) bool {
	var left, right any
	if err := json.Unmarshal(a, &left); err != nil {
		return false
	}
	if err := json.Unmarshal(b, &right); err != nil {
		return false
	}
	return reflect.DeepEqual(left, right)
}
