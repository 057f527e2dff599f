// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package service_test

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/MKhiriev/go-offsync/internal/adapter"
	"github.com/MKhiriev/go-offsync/internal/config"
	"github.com/MKhiriev/go-offsync/internal/logger"
	"github.com/MKhiriev/go-offsync/internal/mock"
	"github.com/MKhiriev/go-offsync/internal/resolver"
	"github.com/MKhiriev/go-offsync/internal/service"
	"github.com/MKhiriev/go-offsync/internal/store"
	"github.com/MKhiriev/go-offsync/models"
)

type syncManagerMocks struct {
	records    *mock.MockRecordRepository
	queue      *mock.MockOperationQueue
	conflicts  *mock.MockConflictRepository
	checkpoint *mock.MockCheckpointRepository
	remote     *mock.MockRemoteClient
	monitor    *mock.MockConnectivity
}

func newTestSyncManager(t *testing.T, policy resolver.Policy) (service.SyncManager, syncManagerMocks) {
	t.Helper()

	ctrl := gomock.NewController(t)
	m := syncManagerMocks{
		records:    mock.NewMockRecordRepository(ctrl),
		queue:      mock.NewMockOperationQueue(ctrl),
		conflicts:  mock.NewMockConflictRepository(ctrl),
		checkpoint: mock.NewMockCheckpointRepository(ctrl),
		remote:     mock.NewMockRemoteClient(ctrl),
		monitor:    mock.NewMockConnectivity(ctrl),
	}

	storages := &store.Storages{
		Records:    m.records,
		Queue:      m.queue,
		Conflicts:  m.conflicts,
		Checkpoint: m.checkpoint,
	}
	cfg := config.Sync{BatchSize: 10, MaxRetries: 5}

	return service.NewSyncManager(storages, m.remote, m.monitor, policy, cfg, logger.Nop()), m
}

func (m syncManagerMocks) online() {
	m.monitor.EXPECT().IsOnline().Return(true).AnyTimes()
}

// expectStatusSnapshot satisfies the status notification every completed
// (or aborted) cycle triggers.
func (m syncManagerMocks) expectStatusSnapshot() {
	m.queue.EXPECT().PendingCount(gomock.Any()).Return(0, nil).AnyTimes()
	m.queue.EXPECT().FailedCount(gomock.Any()).Return(0, nil).AnyTimes()
	m.conflicts.EXPECT().CountOpen(gomock.Any()).Return(0, nil).AnyTimes()
	m.checkpoint.EXPECT().LastSyncAt(gomock.Any()).Return(nil, nil).AnyTimes()
}

func (m syncManagerMocks) expectEmptyPull() {
	m.checkpoint.EXPECT().GetCheckpoint(gomock.Any()).Return("", nil)
	m.remote.EXPECT().FetchChangesSince(gomock.Any(), "").Return(models.ChangeFeed{}, nil)
	m.checkpoint.EXPECT().TouchLastSync(gomock.Any(), gomock.Any()).Return(nil)
}

// expectEmptyPullAfterFailedPush is the pull expectation for cycles whose
// push phase failed: the feed is still consumed, but the cycle is not
// recorded as a successful sync.
func (m syncManagerMocks) expectEmptyPullAfterFailedPush() {
	m.checkpoint.EXPECT().GetCheckpoint(gomock.Any()).Return("", nil)
	m.remote.EXPECT().FetchChangesSince(gomock.Any(), "").Return(models.ChangeFeed{}, nil)
}

func (m syncManagerMocks) expectEmptyPush() {
	m.queue.EXPECT().NextBatch(gomock.Any(), 10, gomock.Any()).Return(nil, nil)
}

// ── Gatekeeping ─────────────────────────────────────────────────────────────

func TestSyncNow_Offline(t *testing.T) {
	mgr, m := newTestSyncManager(t, nil)

	m.monitor.EXPECT().IsOnline().Return(false)
	m.monitor.EXPECT().CheckNow(gomock.Any()).Return(false)

	_, err := mgr.SyncNow(context.Background())

	require.Error(t, err)
	assert.ErrorIs(t, err, service.ErrEngineOffline)
}

func TestSyncNow_RejectsOverlappingCycle(t *testing.T) {
	mgr, m := newTestSyncManager(t, nil)
	m.online()
	m.expectStatusSnapshot()
	m.expectEmptyPull()

	entered := make(chan struct{})
	release := make(chan struct{})
	m.queue.EXPECT().NextBatch(gomock.Any(), 10, gomock.Any()).
		DoAndReturn(func(context.Context, int, time.Time) ([]models.QueuedOperation, error) {
			close(entered)
			<-release
			return nil, nil
		})

	done := make(chan error, 1)
	go func() {
		_, err := mgr.SyncNow(context.Background())
		done <- err
	}()

	<-entered
	_, err := mgr.SyncNow(context.Background())
	assert.ErrorIs(t, err, service.ErrSyncInProgress)

	close(release)
	require.NoError(t, <-done)
}

// ── Push ────────────────────────────────────────────────────────────────────

func TestSyncNow_PushCreate_Success(t *testing.T) {
	mgr, m := newTestSyncManager(t, nil)
	m.online()
	m.expectStatusSnapshot()
	m.expectEmptyPull()

	payload := json.RawMessage(`{"fee":10}`)
	op := models.QueuedOperation{ID: 1, Kind: models.OperationCreate, RecordKey: "key-1", Payload: payload, SchemaVersion: 1}
	record := models.Record{Key: "key-1", NaturalKey: "invoice/1", Payload: payload, SyncState: models.SyncStatePending, RemoteVersion: 1}

	m.queue.EXPECT().NextBatch(gomock.Any(), 10, gomock.Any()).Return([]models.QueuedOperation{op}, nil)
	m.records.EXPECT().GetRecord(gomock.Any(), "key-1").Return(record, nil)
	m.queue.EXPECT().MarkInFlight(gomock.Any(), int64(1), gomock.Any()).Return(nil)
	m.remote.EXPECT().CreateRemote(gomock.Any(), adapter.CreateRequest{
		RecordKey:     "key-1",
		NaturalKey:    "invoice/1",
		Payload:       payload,
		SchemaVersion: 1,
	}).Return(models.RemoteCreateResult{RemoteID: "r-1", RemoteVersion: 1}, nil)
	m.records.EXPECT().UpdateSyncMetadata(gomock.Any(), "key-1", "r-1", int64(1), payload, models.SyncStateSynced, gomock.Any()).Return(nil)
	m.queue.EXPECT().MarkCompleted(gomock.Any(), int64(1)).Return(nil)

	result, err := mgr.SyncNow(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 1, result.Pushed)
}

func TestSyncNow_PushCreate_ReplayedAfterAck_ConvertsToUpdate(t *testing.T) {
	mgr, m := newTestSyncManager(t, nil)
	m.online()
	m.expectStatusSnapshot()
	m.expectEmptyPull()

	payload := json.RawMessage(`{"fee":10}`)
	op := models.QueuedOperation{ID: 1, Kind: models.OperationCreate, RecordKey: "key-1", Payload: payload, SchemaVersion: 1}
	// the record already carries a remote id: the create was acked before
	// a crash wiped the in-memory state
	record := models.Record{Key: "key-1", Payload: payload, RemoteID: "r-1", RemoteVersion: 3, SyncedVersion: 2}

	m.queue.EXPECT().NextBatch(gomock.Any(), 10, gomock.Any()).Return([]models.QueuedOperation{op}, nil)
	m.records.EXPECT().GetRecord(gomock.Any(), "key-1").Return(record, nil)
	m.queue.EXPECT().MarkInFlight(gomock.Any(), int64(1), gomock.Any()).Return(nil)
	m.remote.EXPECT().UpdateRemote(gomock.Any(), "r-1", adapter.UpdateRequest{
		Payload:         payload,
		SchemaVersion:   1,
		ExpectedVersion: 2,
	}).Return(models.RemoteUpdateResult{RemoteVersion: 3}, nil)
	m.records.EXPECT().UpdateSyncMetadata(gomock.Any(), "key-1", "r-1", int64(3), payload, models.SyncStateSynced, gomock.Any()).Return(nil)
	m.queue.EXPECT().MarkCompleted(gomock.Any(), int64(1)).Return(nil)

	result, err := mgr.SyncNow(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 1, result.Pushed)
}

func TestSyncNow_Push_TransientFailure_AbortsBatch(t *testing.T) {
	mgr, m := newTestSyncManager(t, nil)
	m.online()
	m.expectStatusSnapshot()

	payload := json.RawMessage(`{"fee":10}`)
	ops := []models.QueuedOperation{
		{ID: 1, Kind: models.OperationCreate, RecordKey: "key-1", Payload: payload},
		{ID: 2, Kind: models.OperationCreate, RecordKey: "key-2", Payload: payload},
	}

	m.queue.EXPECT().NextBatch(gomock.Any(), 10, gomock.Any()).Return(ops, nil)
	m.records.EXPECT().GetRecord(gomock.Any(), "key-1").Return(models.Record{Key: "key-1", Payload: payload}, nil)
	m.queue.EXPECT().MarkInFlight(gomock.Any(), int64(1), gomock.Any()).Return(nil)
	m.remote.EXPECT().CreateRemote(gomock.Any(), gomock.Any()).
		Return(models.RemoteCreateResult{}, fmt.Errorf("remote call: %w", adapter.ErrTransient))
	m.queue.EXPECT().MarkFailed(gomock.Any(), int64(1), gomock.Any(), false, gomock.Any()).
		Return(models.QueuedOperation{ID: 1, Status: models.OperationPending, RetryCount: 1}, nil)
	// key-2 is never touched; the pull phase still runs
	m.expectEmptyPullAfterFailedPush()

	result, err := mgr.SyncNow(context.Background())

	require.Error(t, err)
	assert.ErrorIs(t, err, adapter.ErrTransient)
	assert.Equal(t, 1, result.Retried)
	assert.Equal(t, 0, result.Pushed)
	assert.Len(t, result.Errors, 1)
}

func TestSyncNow_PullRunsAfterFailedPush(t *testing.T) {
	mgr, m := newTestSyncManager(t, nil)
	m.online()
	m.expectStatusSnapshot()

	payload := json.RawMessage(`{"fee":10}`)
	op := models.QueuedOperation{ID: 1, Kind: models.OperationCreate, RecordKey: "key-1", Payload: payload}

	m.queue.EXPECT().NextBatch(gomock.Any(), 10, gomock.Any()).Return([]models.QueuedOperation{op}, nil)
	m.records.EXPECT().GetRecord(gomock.Any(), "key-1").Return(models.Record{Key: "key-1", Payload: payload}, nil)
	m.queue.EXPECT().MarkInFlight(gomock.Any(), int64(1), gomock.Any()).Return(nil)
	m.remote.EXPECT().CreateRemote(gomock.Any(), gomock.Any()).
		Return(models.RemoteCreateResult{}, fmt.Errorf("remote call: %w", adapter.ErrTransient))
	m.queue.EXPECT().MarkFailed(gomock.Any(), int64(1), gomock.Any(), false, gomock.Any()).
		Return(models.QueuedOperation{ID: 1, Status: models.OperationPending, RetryCount: 1}, nil)

	// the feed still delivers and applies a remote change
	change := models.RemoteChange{
		RemoteID:      "r-9",
		NaturalKey:    "invoice/9",
		Kind:          models.OperationCreate,
		Payload:       json.RawMessage(`{"fee":3}`),
		SchemaVersion: 1,
		RemoteVersion: 1,
	}
	m.checkpoint.EXPECT().GetCheckpoint(gomock.Any()).Return("", nil)
	m.remote.EXPECT().FetchChangesSince(gomock.Any(), "").
		Return(models.ChangeFeed{Changes: []models.RemoteChange{change}, NewCheckpoint: "cp-1"}, nil)
	m.records.EXPECT().GetRecordByRemoteID(gomock.Any(), "r-9").Return(models.Record{}, store.ErrRecordNotFound)
	m.records.EXPECT().SaveRemoteRecord(gomock.Any(), gomock.Any()).Return(nil)
	m.checkpoint.EXPECT().SetCheckpoint(gomock.Any(), "cp-1", gomock.Any()).Return(nil)
	// TouchLastSync must not run: the cycle did not fully succeed

	result, err := mgr.SyncNow(context.Background())

	require.Error(t, err)
	assert.ErrorIs(t, err, adapter.ErrTransient)
	assert.Equal(t, 1, result.Pulled)
	assert.Equal(t, 0, result.Pushed)
}

func TestSyncNow_Push_PermanentFailure_ParksOperationAndRecord(t *testing.T) {
	mgr, m := newTestSyncManager(t, nil)
	m.online()
	m.expectStatusSnapshot()
	m.expectEmptyPull()

	payload := json.RawMessage(`{"fee":10}`)
	op := models.QueuedOperation{ID: 1, Kind: models.OperationCreate, RecordKey: "key-1", Payload: payload}

	m.queue.EXPECT().NextBatch(gomock.Any(), 10, gomock.Any()).Return([]models.QueuedOperation{op}, nil)
	m.records.EXPECT().GetRecord(gomock.Any(), "key-1").Return(models.Record{Key: "key-1", Payload: payload}, nil)
	m.queue.EXPECT().MarkInFlight(gomock.Any(), int64(1), gomock.Any()).Return(nil)
	m.remote.EXPECT().CreateRemote(gomock.Any(), gomock.Any()).
		Return(models.RemoteCreateResult{}, fmt.Errorf("natural key taken: %w", adapter.ErrPermanent))
	m.queue.EXPECT().MarkFailed(gomock.Any(), int64(1), gomock.Any(), true, gomock.Any()).
		Return(models.QueuedOperation{ID: 1, Status: models.OperationFailed, LastError: "natural key taken"}, nil)
	m.records.EXPECT().SetSyncState(gomock.Any(), "key-1", models.SyncStateFailed).Return(nil)

	result, err := mgr.SyncNow(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 0, result.Pushed)
}

func TestSyncNow_Push_SkipsConflictedRecord(t *testing.T) {
	mgr, m := newTestSyncManager(t, nil)
	m.online()
	m.expectStatusSnapshot()
	m.expectEmptyPull()

	op := models.QueuedOperation{ID: 1, Kind: models.OperationUpdate, RecordKey: "key-1"}

	m.queue.EXPECT().NextBatch(gomock.Any(), 10, gomock.Any()).Return([]models.QueuedOperation{op}, nil)
	m.records.EXPECT().GetRecord(gomock.Any(), "key-1").
		Return(models.Record{Key: "key-1", SyncState: models.SyncStateConflict}, nil)
	// no MarkInFlight, no remote call: the operator owns this record

	result, err := mgr.SyncNow(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 0, result.Pushed)
}

func TestSyncNow_Push_OrphanOperationDropped(t *testing.T) {
	mgr, m := newTestSyncManager(t, nil)
	m.online()
	m.expectStatusSnapshot()
	m.expectEmptyPull()

	op := models.QueuedOperation{ID: 7, Kind: models.OperationUpdate, RecordKey: "gone"}

	m.queue.EXPECT().NextBatch(gomock.Any(), 10, gomock.Any()).Return([]models.QueuedOperation{op}, nil)
	m.records.EXPECT().GetRecord(gomock.Any(), "gone").Return(models.Record{}, store.ErrRecordNotFound)
	m.queue.EXPECT().MarkCompleted(gomock.Any(), int64(7)).Return(nil)

	_, err := mgr.SyncNow(context.Background())

	require.NoError(t, err)
}

// ── Push conflicts ──────────────────────────────────────────────────────────

func TestSyncNow_PushConflict_DisjointEdits_MergeAndRepush(t *testing.T) {
	mgr, m := newTestSyncManager(t, nil)
	m.online()
	m.expectStatusSnapshot()
	m.expectEmptyPull()

	base := json.RawMessage(`{"note":"a","fee":1}`)
	local := json.RawMessage(`{"note":"b","fee":1}`)
	remote := json.RawMessage(`{"note":"a","fee":2}`)

	op := models.QueuedOperation{ID: 1, Kind: models.OperationUpdate, RecordKey: "key-1", Payload: local, SchemaVersion: 1}
	record := models.Record{
		Key:           "key-1",
		Payload:       local,
		BasePayload:   base,
		SchemaVersion: 1,
		SyncState:     models.SyncStatePending,
		RemoteID:      "r-1",
		RemoteVersion: 3,
		SyncedVersion: 2,
	}

	m.queue.EXPECT().NextBatch(gomock.Any(), 10, gomock.Any()).Return([]models.QueuedOperation{op}, nil)
	m.records.EXPECT().GetRecord(gomock.Any(), "key-1").Return(record, nil)
	m.queue.EXPECT().MarkInFlight(gomock.Any(), int64(1), gomock.Any()).Return(nil)
	m.remote.EXPECT().UpdateRemote(gomock.Any(), "r-1", gomock.Any()).
		Return(models.RemoteUpdateResult{}, &adapter.ConflictError{
			RemoteID:      "r-1",
			RemoteVersion: 3,
			Payload:       remote,
			SchemaVersion: 1,
		})
	m.queue.EXPECT().MarkCompleted(gomock.Any(), int64(1)).Return(nil)

	m.conflicts.EXPECT().SaveConflict(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, c models.ConflictRecord) (models.ConflictRecord, error) {
			assert.Equal(t, models.ConflictPush, c.ConflictType)
			assert.Equal(t, models.ResolutionFieldMerge, c.Resolution)
			assert.NotNil(t, c.ResolvedAt)
			return c, nil
		})

	var merged models.Record
	m.records.EXPECT().SaveRemoteRecord(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, r models.Record) error {
			merged = r
			return nil
		})
	m.records.EXPECT().UpdateRecord(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, r models.Record, repush models.QueuedOperation) (models.Record, error) {
			assert.Equal(t, models.OperationUpdate, repush.Kind)
			assert.JSONEq(t, `{"note":"b","fee":2}`, string(repush.Payload))
			return r, nil
		})

	result, err := mgr.SyncNow(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 1, result.ConflictsResolved)
	assert.JSONEq(t, `{"note":"b","fee":2}`, string(merged.Payload))
	assert.JSONEq(t, string(remote), string(merged.BasePayload))
	assert.Equal(t, models.SyncStatePending, merged.SyncState)
	assert.Equal(t, int64(4), merged.RemoteVersion)
	assert.Equal(t, int64(3), merged.SyncedVersion)
}

func TestSyncNow_PushConflict_ContestedUnknownField_ManualReview(t *testing.T) {
	mgr, m := newTestSyncManager(t, nil)
	m.online()
	m.expectStatusSnapshot()
	m.expectEmptyPull()

	base := json.RawMessage(`{"state":"draft"}`)
	local := json.RawMessage(`{"state":"approved"}`)
	remote := json.RawMessage(`{"state":"rejected"}`)

	op := models.QueuedOperation{ID: 1, Kind: models.OperationUpdate, RecordKey: "key-1", Payload: local}
	record := models.Record{
		Key:           "key-1",
		Payload:       local,
		BasePayload:   base,
		SyncState:     models.SyncStatePending,
		RemoteID:      "r-1",
		SyncedVersion: 2,
	}

	m.queue.EXPECT().NextBatch(gomock.Any(), 10, gomock.Any()).Return([]models.QueuedOperation{op}, nil)
	m.records.EXPECT().GetRecord(gomock.Any(), "key-1").Return(record, nil)
	m.queue.EXPECT().MarkInFlight(gomock.Any(), int64(1), gomock.Any()).Return(nil)
	m.remote.EXPECT().UpdateRemote(gomock.Any(), "r-1", gomock.Any()).
		Return(models.RemoteUpdateResult{}, &adapter.ConflictError{RemoteID: "r-1", RemoteVersion: 3, Payload: remote})
	m.queue.EXPECT().MarkCompleted(gomock.Any(), int64(1)).Return(nil)

	m.conflicts.EXPECT().SaveConflict(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, c models.ConflictRecord) (models.ConflictRecord, error) {
			assert.Equal(t, models.ResolutionManualReview, c.Resolution)
			assert.Nil(t, c.ResolvedAt)
			assert.Equal(t, int64(3), c.RemoteVersion)
			assert.JSONEq(t, string(local), string(c.LocalSnapshot))
			assert.JSONEq(t, string(remote), string(c.RemoteSnapshot))
			return c, nil
		})
	m.queue.EXPECT().CancelForRecord(gomock.Any(), "key-1").Return(int64(0), nil)
	m.records.EXPECT().SetSyncState(gomock.Any(), "key-1", models.SyncStateConflict).Return(nil)

	result, err := mgr.SyncNow(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 1, result.ConflictsOpen)
	assert.Equal(t, 0, result.ConflictsResolved)
}

func TestSyncNow_PushConflict_CriticalNumericField_RemoteWins(t *testing.T) {
	policy := resolver.Policy{"fee": resolver.ClassCriticalNumeric}
	mgr, m := newTestSyncManager(t, policy)
	m.online()
	m.expectStatusSnapshot()
	m.expectEmptyPull()

	base := json.RawMessage(`{"fee":1}`)
	local := json.RawMessage(`{"fee":5}`)
	remote := json.RawMessage(`{"fee":9}`)

	op := models.QueuedOperation{ID: 1, Kind: models.OperationUpdate, RecordKey: "key-1", Payload: local}
	record := models.Record{
		Key:           "key-1",
		Payload:       local,
		BasePayload:   base,
		SyncState:     models.SyncStatePending,
		RemoteID:      "r-1",
		SyncedVersion: 2,
	}

	m.queue.EXPECT().NextBatch(gomock.Any(), 10, gomock.Any()).Return([]models.QueuedOperation{op}, nil)
	m.records.EXPECT().GetRecord(gomock.Any(), "key-1").Return(record, nil)
	m.queue.EXPECT().MarkInFlight(gomock.Any(), int64(1), gomock.Any()).Return(nil)
	m.remote.EXPECT().UpdateRemote(gomock.Any(), "r-1", gomock.Any()).
		Return(models.RemoteUpdateResult{}, &adapter.ConflictError{RemoteID: "r-1", RemoteVersion: 3, Payload: remote})
	m.queue.EXPECT().MarkCompleted(gomock.Any(), int64(1)).Return(nil)

	m.conflicts.EXPECT().SaveConflict(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, c models.ConflictRecord) (models.ConflictRecord, error) {
			assert.Equal(t, models.ResolutionRemoteWins, c.Resolution)
			return c, nil
		})

	// the merge equals the remote state, so the gap closes without a re-push
	m.queue.EXPECT().CancelForRecord(gomock.Any(), "key-1").Return(int64(0), nil)
	m.records.EXPECT().SaveRemoteRecord(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, r models.Record) error {
			assert.JSONEq(t, string(remote), string(r.Payload))
			assert.Equal(t, models.SyncStateSynced, r.SyncState)
			assert.Equal(t, int64(3), r.RemoteVersion)
			assert.Equal(t, int64(3), r.SyncedVersion)
			return nil
		})

	result, err := mgr.SyncNow(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 1, result.ConflictsResolved)
}

// ── Pull ────────────────────────────────────────────────────────────────────

func TestSyncNow_Pull_AdoptsRemoteChange(t *testing.T) {
	mgr, m := newTestSyncManager(t, nil)
	m.online()
	m.expectStatusSnapshot()
	m.expectEmptyPush()

	remotePayload := json.RawMessage(`{"fee":7}`)
	change := models.RemoteChange{
		RemoteID:      "r-1",
		RecordKey:     "key-1",
		Kind:          models.OperationUpdate,
		Payload:       remotePayload,
		SchemaVersion: 1,
		RemoteVersion: 5,
	}
	record := models.Record{Key: "key-1", RemoteID: "r-1", SyncState: models.SyncStateSynced, RemoteVersion: 4, SyncedVersion: 4}

	m.checkpoint.EXPECT().GetCheckpoint(gomock.Any()).Return("cp-1", nil)
	m.remote.EXPECT().FetchChangesSince(gomock.Any(), "cp-1").
		Return(models.ChangeFeed{Changes: []models.RemoteChange{change}, NewCheckpoint: "cp-2"}, nil)
	m.records.EXPECT().GetRecord(gomock.Any(), "key-1").Return(record, nil)
	m.queue.EXPECT().PendingForRecord(gomock.Any(), "key-1").Return(0, nil)
	m.queue.EXPECT().CancelForRecord(gomock.Any(), "key-1").Return(int64(0), nil)
	m.records.EXPECT().SaveRemoteRecord(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, r models.Record) error {
			assert.JSONEq(t, string(remotePayload), string(r.Payload))
			assert.Equal(t, models.SyncStateSynced, r.SyncState)
			assert.Equal(t, int64(5), r.RemoteVersion)
			assert.Equal(t, int64(5), r.SyncedVersion)
			return nil
		})
	m.checkpoint.EXPECT().SetCheckpoint(gomock.Any(), "cp-2", gomock.Any()).Return(nil)
	m.checkpoint.EXPECT().TouchLastSync(gomock.Any(), gomock.Any()).Return(nil)

	result, err := mgr.SyncNow(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 1, result.Pulled)
}

func TestSyncNow_Pull_StaleEchoSkipped(t *testing.T) {
	mgr, m := newTestSyncManager(t, nil)
	m.online()
	m.expectStatusSnapshot()
	m.expectEmptyPush()

	change := models.RemoteChange{RemoteID: "r-1", RecordKey: "key-1", Kind: models.OperationUpdate, RemoteVersion: 4}
	record := models.Record{Key: "key-1", RemoteID: "r-1", SyncState: models.SyncStateSynced, SyncedVersion: 4}

	m.checkpoint.EXPECT().GetCheckpoint(gomock.Any()).Return("cp-1", nil)
	m.remote.EXPECT().FetchChangesSince(gomock.Any(), "cp-1").
		Return(models.ChangeFeed{Changes: []models.RemoteChange{change}, NewCheckpoint: "cp-2"}, nil)
	m.records.EXPECT().GetRecord(gomock.Any(), "key-1").Return(record, nil)
	// no writes: the change is an echo of a state already reconciled
	m.checkpoint.EXPECT().SetCheckpoint(gomock.Any(), "cp-2", gomock.Any()).Return(nil)
	m.checkpoint.EXPECT().TouchLastSync(gomock.Any(), gomock.Any()).Return(nil)

	_, err := mgr.SyncNow(context.Background())

	require.NoError(t, err)
}

func TestSyncNow_Pull_UnknownRecordMaterialisedSynced(t *testing.T) {
	mgr, m := newTestSyncManager(t, nil)
	m.online()
	m.expectStatusSnapshot()
	m.expectEmptyPush()

	payload := json.RawMessage(`{"fee":3}`)
	change := models.RemoteChange{
		RemoteID:      "r-9",
		NaturalKey:    "invoice/9",
		Kind:          models.OperationCreate,
		Payload:       payload,
		SchemaVersion: 1,
		RemoteVersion: 1,
	}

	m.checkpoint.EXPECT().GetCheckpoint(gomock.Any()).Return("", nil)
	m.remote.EXPECT().FetchChangesSince(gomock.Any(), "").
		Return(models.ChangeFeed{Changes: []models.RemoteChange{change}, NewCheckpoint: "cp-1"}, nil)
	m.records.EXPECT().GetRecordByRemoteID(gomock.Any(), "r-9").Return(models.Record{}, store.ErrRecordNotFound)
	m.records.EXPECT().SaveRemoteRecord(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, r models.Record) error {
			assert.NotEmpty(t, r.Key)
			assert.Equal(t, "invoice/9", r.NaturalKey)
			assert.Equal(t, "r-9", r.RemoteID)
			assert.Equal(t, models.SyncStateSynced, r.SyncState)
			assert.Equal(t, int64(1), r.RemoteVersion)
			assert.Equal(t, int64(1), r.SyncedVersion)
			return nil
		})
	m.checkpoint.EXPECT().SetCheckpoint(gomock.Any(), "cp-1", gomock.Any()).Return(nil)
	m.checkpoint.EXPECT().TouchLastSync(gomock.Any(), gomock.Any()).Return(nil)

	result, err := mgr.SyncNow(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 1, result.Pulled)
}

func TestSyncNow_Pull_RemoteDelete_PurgesPendingLocalWithAudit(t *testing.T) {
	mgr, m := newTestSyncManager(t, nil)
	m.online()
	m.expectStatusSnapshot()
	m.expectEmptyPush()

	localPayload := json.RawMessage(`{"note":"unsaved edit"}`)
	change := models.RemoteChange{RemoteID: "r-1", RecordKey: "key-1", Kind: models.OperationDelete, RemoteVersion: 6}
	record := models.Record{Key: "key-1", RemoteID: "r-1", Payload: localPayload, SyncState: models.SyncStatePending, SyncedVersion: 4}

	m.checkpoint.EXPECT().GetCheckpoint(gomock.Any()).Return("cp-1", nil)
	m.remote.EXPECT().FetchChangesSince(gomock.Any(), "cp-1").
		Return(models.ChangeFeed{Changes: []models.RemoteChange{change}, NewCheckpoint: "cp-2"}, nil)
	m.records.EXPECT().GetRecord(gomock.Any(), "key-1").Return(record, nil)
	m.conflicts.EXPECT().SaveConflict(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, c models.ConflictRecord) (models.ConflictRecord, error) {
			assert.Equal(t, models.ResolutionRemoteWins, c.Resolution)
			assert.JSONEq(t, string(localPayload), string(c.LocalSnapshot))
			assert.NotNil(t, c.ResolvedAt)
			return c, nil
		})
	m.queue.EXPECT().CancelForRecord(gomock.Any(), "key-1").Return(int64(1), nil)
	m.records.EXPECT().PurgeRecord(gomock.Any(), "key-1").Return(nil)
	m.checkpoint.EXPECT().SetCheckpoint(gomock.Any(), "cp-2", gomock.Any()).Return(nil)
	m.checkpoint.EXPECT().TouchLastSync(gomock.Any(), gomock.Any()).Return(nil)

	_, err := mgr.SyncNow(context.Background())

	require.NoError(t, err)
}

func TestSyncNow_Pull_FetchFailure_KeepsCheckpoint(t *testing.T) {
	mgr, m := newTestSyncManager(t, nil)
	m.online()
	m.expectStatusSnapshot()
	m.expectEmptyPush()

	m.checkpoint.EXPECT().GetCheckpoint(gomock.Any()).Return("cp-1", nil)
	m.remote.EXPECT().FetchChangesSince(gomock.Any(), "cp-1").
		Return(models.ChangeFeed{}, fmt.Errorf("feed: %w", adapter.ErrTransient))
	// SetCheckpoint and TouchLastSync must not run

	_, err := mgr.SyncNow(context.Background())

	require.Error(t, err)
	assert.ErrorIs(t, err, adapter.ErrTransient)
}

// ── Status ──────────────────────────────────────────────────────────────────

func TestStatus_SummarisesLocalState(t *testing.T) {
	mgr, m := newTestSyncManager(t, nil)

	lastSync := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	m.monitor.EXPECT().IsOnline().Return(true)
	m.queue.EXPECT().PendingCount(gomock.Any()).Return(3, nil)
	m.queue.EXPECT().FailedCount(gomock.Any()).Return(1, nil)
	m.conflicts.EXPECT().CountOpen(gomock.Any()).Return(2, nil)
	m.checkpoint.EXPECT().LastSyncAt(gomock.Any()).Return(&lastSync, nil)

	status, err := mgr.Status(context.Background())

	require.NoError(t, err)
	assert.True(t, status.Online)
	assert.Equal(t, 3, status.PendingCount)
	assert.Equal(t, 1, status.FailedCount)
	assert.Equal(t, 2, status.ConflictCount)
	assert.Equal(t, &lastSync, status.LastSyncAt)
}

func TestSubscribeStatus_NotifiedAfterCycle(t *testing.T) {
	mgr, m := newTestSyncManager(t, nil)
	m.online()
	m.expectStatusSnapshot()
	m.expectEmptyPush()
	m.expectEmptyPull()

	var got []models.SyncStatus
	unsubscribe := mgr.SubscribeStatus(func(s models.SyncStatus) {
		got = append(got, s)
	})
	defer unsubscribe()

	_, err := mgr.SyncNow(context.Background())

	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.True(t, got[0].Online)
}
