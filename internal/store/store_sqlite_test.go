package store

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/MKhiriev/go-offsync/internal/logger"
	"github.com/MKhiriev/go-offsync/models"
)

// Behavior tests against a real in-memory SQLite database with the actual
// schema migrations applied. The sqlmock tests in the sibling files cover
// error paths; these cover what the engine actually observes on disk.

func newSQLiteStore(t *testing.T) (*Storages, *sql.DB) {
	t.Helper()

	conn, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("failed to open in-memory sqlite: %v", err)
	}
	conn.SetMaxOpenConns(1)

	l := logger.Nop()
	db := &DB{DB: conn, logger: l}
	if err := db.Migrate(); err != nil {
		t.Fatalf("failed to migrate in-memory sqlite: %v", err)
	}

	t.Cleanup(func() { conn.Close() })

	return &Storages{
		Records:    NewRecordRepository(db, l),
		Queue:      NewOperationQueue(db, l),
		Conflicts:  NewConflictRepository(db, l),
		Checkpoint: NewCheckpointRepository(db, l),
	}, conn
}

func TestSQLiteStore_CreateGetRoundTrip(t *testing.T) {
	s, _ := newSQLiteStore(t)
	ctx := context.Background()

	if _, err := s.Records.CreateRecord(ctx, testRecord(), testOperation(models.OperationCreate)); err != nil {
		t.Fatalf("CreateRecord returned error: %v", err)
	}

	got, err := s.Records.GetRecord(ctx, "key-1")
	if err != nil {
		t.Fatalf("GetRecord returned error: %v", err)
	}
	if got.NaturalKey != "invoice/1" {
		t.Errorf("expected natural key invoice/1, got %q", got.NaturalKey)
	}
	if string(got.Payload) != `{"fee":10}` {
		t.Errorf("payload did not round-trip, got %s", got.Payload)
	}
	if got.SyncState != models.SyncStatePending {
		t.Errorf("expected sync state pending, got %q", got.SyncState)
	}
	if got.RemoteVersion != 1 || got.SyncedVersion != 0 {
		t.Errorf("expected versions 1/0, got %d/%d", got.RemoteVersion, got.SyncedVersion)
	}

	pending, err := s.Queue.PendingCount(ctx)
	if err != nil {
		t.Fatalf("PendingCount returned error: %v", err)
	}
	if pending != 1 {
		t.Errorf("expected 1 pending operation after create, got %d", pending)
	}
}

func TestSQLiteStore_CreateRejectsDuplicateNaturalKey(t *testing.T) {
	s, _ := newSQLiteStore(t)
	ctx := context.Background()

	if _, err := s.Records.CreateRecord(ctx, testRecord(), testOperation(models.OperationCreate)); err != nil {
		t.Fatalf("first CreateRecord returned error: %v", err)
	}

	dup := testRecord()
	dup.Key = "key-2"
	dupOp := testOperation(models.OperationCreate)
	dupOp.RecordKey = dup.Key

	_, err := s.Records.CreateRecord(ctx, dup, dupOp)
	if !errors.Is(err, ErrDuplicateNaturalKey) {
		t.Errorf("expected ErrDuplicateNaturalKey, got: %v", err)
	}
}

func TestSQLiteStore_UpdateCoalescesIntoPendingCreate(t *testing.T) {
	s, _ := newSQLiteStore(t)
	ctx := context.Background()
	now := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)

	rec := testRecord()
	if _, err := s.Records.CreateRecord(ctx, rec, testOperation(models.OperationCreate)); err != nil {
		t.Fatalf("CreateRecord returned error: %v", err)
	}

	rec.Payload = []byte(`{"fee":25}`)
	rec.RemoteVersion = 2
	op := testOperation(models.OperationUpdate)
	op.Payload = []byte(`{"fee":25}`)
	if _, err := s.Records.UpdateRecord(ctx, rec, op); err != nil {
		t.Fatalf("UpdateRecord returned error: %v", err)
	}

	batch, err := s.Queue.NextBatch(ctx, 10, now)
	if err != nil {
		t.Fatalf("NextBatch returned error: %v", err)
	}
	if len(batch) != 1 {
		t.Fatalf("expected coalesced queue of 1 operation, got %d", len(batch))
	}
	// the never-pushed create absorbs the update and stays a create
	if batch[0].Kind != models.OperationCreate {
		t.Errorf("expected coalesced operation to remain a create, got %q", batch[0].Kind)
	}
	if string(batch[0].Payload) != `{"fee":25}` {
		t.Errorf("expected coalesced payload {\"fee\":25}, got %s", batch[0].Payload)
	}
}

func TestSQLiteStore_SoftDeleteNeverPushed_PurgesOutright(t *testing.T) {
	s, _ := newSQLiteStore(t)
	ctx := context.Background()

	if _, err := s.Records.CreateRecord(ctx, testRecord(), testOperation(models.OperationCreate)); err != nil {
		t.Fatalf("CreateRecord returned error: %v", err)
	}

	purged, err := s.Records.SoftDeleteRecord(ctx, "key-1", testOperation(models.OperationDelete))
	if err != nil {
		t.Fatalf("SoftDeleteRecord returned error: %v", err)
	}
	if !purged {
		t.Error("expected a never-pushed record to be purged outright")
	}

	if _, err = s.Records.GetRecord(ctx, "key-1"); !errors.Is(err, ErrRecordNotFound) {
		t.Errorf("expected ErrRecordNotFound after purge, got: %v", err)
	}

	pending, err := s.Queue.PendingCount(ctx)
	if err != nil {
		t.Fatalf("PendingCount returned error: %v", err)
	}
	if pending != 0 {
		t.Errorf("expected empty queue after purge, got %d pending", pending)
	}
}

func TestSQLiteStore_SoftDeleteKnownRemote_TombstonesAndFreesNaturalKey(t *testing.T) {
	s, _ := newSQLiteStore(t)
	ctx := context.Background()
	now := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)

	if _, err := s.Records.CreateRecord(ctx, testRecord(), testOperation(models.OperationCreate)); err != nil {
		t.Fatalf("CreateRecord returned error: %v", err)
	}

	// simulate an acknowledged push so the remote knows the record
	batch, err := s.Queue.NextBatch(ctx, 10, now)
	if err != nil || len(batch) != 1 {
		t.Fatalf("expected 1 pending operation, got %d (err: %v)", len(batch), err)
	}
	if err = s.Queue.MarkCompleted(ctx, batch[0].ID); err != nil {
		t.Fatalf("MarkCompleted returned error: %v", err)
	}
	if err = s.Records.UpdateSyncMetadata(ctx, "key-1", "r-1", 1, []byte(`{"fee":10}`), models.SyncStateSynced, now); err != nil {
		t.Fatalf("UpdateSyncMetadata returned error: %v", err)
	}

	purged, err := s.Records.SoftDeleteRecord(ctx, "key-1", testOperation(models.OperationDelete))
	if err != nil {
		t.Fatalf("SoftDeleteRecord returned error: %v", err)
	}
	if purged {
		t.Error("expected a pushed record to be tombstoned, not purged")
	}

	got, err := s.Records.GetRecord(ctx, "key-1")
	if err != nil {
		t.Fatalf("GetRecord returned error: %v", err)
	}
	if !got.Deleted {
		t.Error("expected record tombstoned after soft delete")
	}

	batch, err = s.Queue.NextBatch(ctx, 10, now)
	if err != nil || len(batch) != 1 {
		t.Fatalf("expected 1 queued delete, got %d (err: %v)", len(batch), err)
	}
	if batch[0].Kind != models.OperationDelete {
		t.Errorf("expected delete operation, got %q", batch[0].Kind)
	}

	// the tombstone frees the natural key for a new record
	next := testRecord()
	next.Key = "key-2"
	nextOp := testOperation(models.OperationCreate)
	nextOp.RecordKey = next.Key
	if _, err = s.Records.CreateRecord(ctx, next, nextOp); err != nil {
		t.Errorf("expected natural key to be reusable after tombstone, got: %v", err)
	}
}

func TestSQLiteStore_MarkFailedBackoffThenExhaustion(t *testing.T) {
	s, _ := newSQLiteStore(t)
	ctx := context.Background()
	now := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)

	if _, err := s.Records.CreateRecord(ctx, testRecord(), testOperation(models.OperationCreate)); err != nil {
		t.Fatalf("CreateRecord returned error: %v", err)
	}
	batch, err := s.Queue.NextBatch(ctx, 10, now)
	if err != nil || len(batch) != 1 {
		t.Fatalf("expected 1 pending operation, got %d (err: %v)", len(batch), err)
	}
	id := batch[0].ID

	if err = s.Queue.MarkInFlight(ctx, id, now); err != nil {
		t.Fatalf("MarkInFlight returned error: %v", err)
	}
	op, err := s.Queue.MarkFailed(ctx, id, "remote timeout", false, now)
	if err != nil {
		t.Fatalf("MarkFailed returned error: %v", err)
	}
	if op.Status != models.OperationPending || op.RetryCount != 1 {
		t.Errorf("expected pending retry 1, got %q retry %d", op.Status, op.RetryCount)
	}
	if !op.ScheduledAt.Equal(now.Add(30 * time.Second)) {
		t.Errorf("expected 30s backoff, got scheduled at %v", op.ScheduledAt)
	}

	// not due yet
	batch, err = s.Queue.NextBatch(ctx, 10, now)
	if err != nil {
		t.Fatalf("NextBatch returned error: %v", err)
	}
	if len(batch) != 0 {
		t.Errorf("expected rescheduled operation to be withheld, got %d", len(batch))
	}
	batch, err = s.Queue.NextBatch(ctx, 10, now.Add(time.Minute))
	if err != nil || len(batch) != 1 {
		t.Fatalf("expected operation due after backoff, got %d (err: %v)", len(batch), err)
	}

	if err = s.Queue.MarkInFlight(ctx, id, now); err != nil {
		t.Fatalf("MarkInFlight returned error: %v", err)
	}
	op, err = s.Queue.MarkFailed(ctx, id, "validation rejected", true, now)
	if err != nil {
		t.Fatalf("terminal MarkFailed returned error: %v", err)
	}
	if op.Status != models.OperationFailed {
		t.Errorf("expected failed status after terminal failure, got %q", op.Status)
	}

	failed, err := s.Queue.FailedCount(ctx)
	if err != nil {
		t.Fatalf("FailedCount returned error: %v", err)
	}
	if failed != 1 {
		t.Errorf("expected 1 failed operation, got %d", failed)
	}
}

func TestSQLiteStore_WatchdogRequeuesStuckAndDropsOrphans(t *testing.T) {
	s, conn := newSQLiteStore(t)
	ctx := context.Background()
	now := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)

	if _, err := s.Records.CreateRecord(ctx, testRecord(), testOperation(models.OperationCreate)); err != nil {
		t.Fatalf("CreateRecord returned error: %v", err)
	}
	batch, err := s.Queue.NextBatch(ctx, 10, now)
	if err != nil || len(batch) != 1 {
		t.Fatalf("expected 1 pending operation, got %d (err: %v)", len(batch), err)
	}

	// stuck in flight since an hour before the cutoff
	if err = s.Queue.MarkInFlight(ctx, batch[0].ID, now.Add(-time.Hour)); err != nil {
		t.Fatalf("MarkInFlight returned error: %v", err)
	}
	requeued, err := s.Queue.RequeueStuck(ctx, now.Add(-2*time.Minute), now)
	if err != nil {
		t.Fatalf("RequeueStuck returned error: %v", err)
	}
	if requeued != 1 {
		t.Errorf("expected 1 requeued operation, got %d", requeued)
	}
	op, err := s.Queue.GetOperation(ctx, batch[0].ID)
	if err != nil {
		t.Fatalf("GetOperation returned error: %v", err)
	}
	if op.Status != models.OperationPending {
		t.Errorf("expected requeued operation pending, got %q", op.Status)
	}

	// record vanishes underneath the queue
	if _, err = conn.Exec(`DELETE FROM records WHERE key = 'key-1'`); err != nil {
		t.Fatalf("failed to delete record row: %v", err)
	}
	dropped, err := s.Queue.DropOrphans(ctx)
	if err != nil {
		t.Fatalf("DropOrphans returned error: %v", err)
	}
	if dropped != 1 {
		t.Errorf("expected 1 orphan dropped, got %d", dropped)
	}
	pending, err := s.Queue.PendingCount(ctx)
	if err != nil {
		t.Fatalf("PendingCount returned error: %v", err)
	}
	if pending != 0 {
		t.Errorf("expected empty queue after orphan sweep, got %d", pending)
	}
}

func TestSQLiteStore_ConflictLifecycle(t *testing.T) {
	s, _ := newSQLiteStore(t)
	ctx := context.Background()
	now := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)

	saved, err := s.Conflicts.SaveConflict(ctx, models.ConflictRecord{
		RecordKey:      "key-1",
		LocalSnapshot:  []byte(`{"fee":10}`),
		RemoteSnapshot: []byte(`{"fee":20}`),
		RemoteVersion:  3,
		ConflictType:   models.ConflictPush,
		Resolution:     models.ResolutionManualReview,
		CreatedAt:      now,
	})
	if err != nil {
		t.Fatalf("SaveConflict returned error: %v", err)
	}
	if saved.ID == 0 {
		t.Fatal("expected SaveConflict to assign an id")
	}

	open, err := s.Conflicts.OpenConflicts(ctx)
	if err != nil {
		t.Fatalf("OpenConflicts returned error: %v", err)
	}
	if len(open) != 1 || open[0].RecordKey != "key-1" {
		t.Fatalf("expected the saved conflict open, got %+v", open)
	}

	if err = s.Conflicts.MarkResolved(ctx, saved.ID, models.ResolutionLocalWins, now.Add(time.Minute)); err != nil {
		t.Fatalf("MarkResolved returned error: %v", err)
	}
	count, err := s.Conflicts.CountOpen(ctx)
	if err != nil {
		t.Fatalf("CountOpen returned error: %v", err)
	}
	if count != 0 {
		t.Errorf("expected no open conflicts after resolution, got %d", count)
	}
	if _, err = s.Conflicts.OpenConflictForRecord(ctx, "key-1"); !errors.Is(err, ErrConflictNotFound) {
		t.Errorf("expected ErrConflictNotFound after resolution, got: %v", err)
	}
}

func TestSQLiteStore_CheckpointRoundTrip(t *testing.T) {
	s, _ := newSQLiteStore(t)
	ctx := context.Background()
	now := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)

	cp, err := s.Checkpoint.GetCheckpoint(ctx)
	if err != nil {
		t.Fatalf("GetCheckpoint returned error: %v", err)
	}
	if cp != "" {
		t.Errorf("expected empty checkpoint before first sync, got %q", cp)
	}
	last, err := s.Checkpoint.LastSyncAt(ctx)
	if err != nil {
		t.Fatalf("LastSyncAt returned error: %v", err)
	}
	if last != nil {
		t.Errorf("expected nil last-sync before first sync, got %v", last)
	}

	if err = s.Checkpoint.SetCheckpoint(ctx, "cp-42", now); err != nil {
		t.Fatalf("SetCheckpoint returned error: %v", err)
	}
	cp, err = s.Checkpoint.GetCheckpoint(ctx)
	if err != nil {
		t.Fatalf("GetCheckpoint returned error: %v", err)
	}
	if cp != "cp-42" {
		t.Errorf("expected checkpoint cp-42, got %q", cp)
	}
	last, err = s.Checkpoint.LastSyncAt(ctx)
	if err != nil {
		t.Fatalf("LastSyncAt returned error: %v", err)
	}
	if last == nil || !last.Equal(now) {
		t.Errorf("expected last-sync %v, got %v", now, last)
	}
}
