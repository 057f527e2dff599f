package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/MKhiriev/go-offsync/internal/logger"
	"github.com/MKhiriev/go-offsync/models"
)

// recordRepository is the SQLite-backed implementation of
// [RecordRepository]. Mutations that originate from the application run
// the record write and the queue write inside one transaction, which is
// what keeps the queue derivable from the records after a crash.
type recordRepository struct {
	*DB
	logger *logger.Logger
}

func NewRecordRepository(db *DB, logger *logger.Logger) RecordRepository {
	return &recordRepository{
		DB:     db,
		logger: logger,
	}
}

func (r *recordRepository) CreateRecord(ctx context.Context, record models.Record, op models.QueuedOperation) (models.Record, error) {
	log := logger.FromContext(ctx)

	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		log.Err(err).
			Str("func", "recordRepository.CreateRecord").
			Str("key", record.Key).
			Msg("failed to begin transaction")
		return models.Record{}, fmt.Errorf("%w: %w", ErrBeginningTransaction, err)
	}
	defer tx.Rollback()

	taken, err := r.naturalKeyTaken(ctx, tx, record.NaturalKey, record.Key)
	if err != nil {
		return models.Record{}, err
	}
	if taken {
		return models.Record{}, fmt.Errorf("natural key %q: %w", record.NaturalKey, ErrDuplicateNaturalKey)
	}

	_, err = tx.ExecContext(ctx, insertRecord,
		record.Key,
		record.NaturalKey,
		payloadToColumn(record.Payload),
		record.SchemaVersion,
		overridesToColumn(record.Overrides),
		basePayloadToColumn(record.BasePayload),
		record.SyncState,
		record.RemoteID,
		record.RemoteVersion,
		record.SyncedVersion,
		nullTime(record.LastSyncedAt),
		record.LastModifiedAt,
		record.CreatedAt,
		record.Deleted,
	)
	if err != nil {
		log.Err(err).
			Str("func", "recordRepository.CreateRecord").
			Str("key", record.Key).
			Msg("failed to insert record")
		return models.Record{}, fmt.Errorf("%w: %w", ErrExecutingStatement, err)
	}

	if err = insertQueuedOperation(ctx, tx, op); err != nil {
		log.Err(err).
			Str("func", "recordRepository.CreateRecord").
			Str("key", record.Key).
			Msg("failed to enqueue create operation")
		return models.Record{}, err
	}

	if err = tx.Commit(); err != nil {
		return models.Record{}, fmt.Errorf("%w: %w", ErrCommitingTransaction, err)
	}

	return record, nil
}

func (r *recordRepository) UpdateRecord(ctx context.Context, record models.Record, op models.QueuedOperation) (models.Record, error) {
	log := logger.FromContext(ctx)

	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		log.Err(err).
			Str("func", "recordRepository.UpdateRecord").
			Str("key", record.Key).
			Msg("failed to begin transaction")
		return models.Record{}, fmt.Errorf("%w: %w", ErrBeginningTransaction, err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, updateRecordData,
		payloadToColumn(record.Payload),
		record.SchemaVersion,
		overridesToColumn(record.Overrides),
		basePayloadToColumn(record.BasePayload),
		record.SyncState,
		record.RemoteVersion,
		record.SyncedVersion,
		record.LastModifiedAt,
		record.Key,
	)
	if err != nil {
		log.Err(err).
			Str("func", "recordRepository.UpdateRecord").
			Str("key", record.Key).
			Msg("failed to update record")
		return models.Record{}, fmt.Errorf("%w: %w", ErrExecutingStatement, err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return models.Record{}, fmt.Errorf("record %s: %w", record.Key, ErrRecordNotFound)
	}

	// Coalesce into a pending create/update when one exists: redundant
	// network calls are avoided and the remote only sees the latest data.
	res, err = tx.ExecContext(ctx, coalesceOperation,
		payloadToColumn(op.Payload),
		op.SchemaVersion,
		overridesToColumn(op.Overrides),
		op.Priority,
		op.CreatedAt,
		op.RecordKey,
	)
	if err != nil {
		log.Err(err).
			Str("func", "recordRepository.UpdateRecord").
			Str("key", record.Key).
			Msg("failed to coalesce pending operation")
		return models.Record{}, fmt.Errorf("%w: %w", ErrExecutingStatement, err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		if err = insertQueuedOperation(ctx, tx, op); err != nil {
			log.Err(err).
				Str("func", "recordRepository.UpdateRecord").
				Str("key", record.Key).
				Msg("failed to enqueue update operation")
			return models.Record{}, err
		}
	}

	if err = tx.Commit(); err != nil {
		return models.Record{}, fmt.Errorf("%w: %w", ErrCommitingTransaction, err)
	}

	return record, nil
}

func (r *recordRepository) SoftDeleteRecord(ctx context.Context, key string, op models.QueuedOperation) (bool, error) {
	log := logger.FromContext(ctx)

	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		log.Err(err).
			Str("func", "recordRepository.SoftDeleteRecord").
			Str("key", key).
			Msg("failed to begin transaction")
		return false, fmt.Errorf("%w: %w", ErrBeginningTransaction, err)
	}
	defer tx.Rollback()

	rec, err := scanRecord(tx.QueryRowContext(ctx, getRecordByKey, key))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, fmt.Errorf("record %s: %w", key, ErrRecordNotFound)
		}
		return false, fmt.Errorf("%w: %w", ErrScanningRow, err)
	}
	if rec.Deleted {
		// already tombstoned; nothing new to tell the remote
		if err = tx.Commit(); err != nil {
			return false, fmt.Errorf("%w: %w", ErrCommitingTransaction, err)
		}
		return false, nil
	}

	var pendingCreates int
	if err = tx.QueryRowContext(ctx, hasPendingCreate, key).Scan(&pendingCreates); err != nil {
		return false, fmt.Errorf("%w: %w", ErrScanningRow, err)
	}

	// delete always supersedes pending create/update operations
	if _, err = tx.ExecContext(ctx, cancelForRecord, op.CreatedAt, key); err != nil {
		log.Err(err).
			Str("func", "recordRepository.SoftDeleteRecord").
			Str("key", key).
			Msg("failed to cancel pending operations")
		return false, fmt.Errorf("%w: %w", ErrExecutingStatement, err)
	}

	if pendingCreates > 0 && rec.RemoteID == "" {
		// the remote never heard of this record, drop it outright
		if _, err = tx.ExecContext(ctx, purgeRecord, key); err != nil {
			return false, fmt.Errorf("%w: %w", ErrExecutingStatement, err)
		}
		if err = tx.Commit(); err != nil {
			return false, fmt.Errorf("%w: %w", ErrCommitingTransaction, err)
		}
		return true, nil
	}

	if _, err = tx.ExecContext(ctx, softDeleteRecord, models.SyncStatePending, op.CreatedAt, key); err != nil {
		log.Err(err).
			Str("func", "recordRepository.SoftDeleteRecord").
			Str("key", key).
			Msg("failed to tombstone record")
		return false, fmt.Errorf("%w: %w", ErrExecutingStatement, err)
	}

	if err = insertQueuedOperation(ctx, tx, op); err != nil {
		log.Err(err).
			Str("func", "recordRepository.SoftDeleteRecord").
			Str("key", key).
			Msg("failed to enqueue delete operation")
		return false, err
	}

	if err = tx.Commit(); err != nil {
		return false, fmt.Errorf("%w: %w", ErrCommitingTransaction, err)
	}

	return false, nil
}

func (r *recordRepository) SaveRemoteRecord(ctx context.Context, record models.Record) error {
	log := logger.FromContext(ctx)

	_, err := r.DB.ExecContext(ctx, upsertRemoteRecord,
		record.Key,
		record.NaturalKey,
		payloadToColumn(record.Payload),
		record.SchemaVersion,
		overridesToColumn(record.Overrides),
		basePayloadToColumn(record.BasePayload),
		record.SyncState,
		record.RemoteID,
		record.RemoteVersion,
		record.SyncedVersion,
		nullTime(record.LastSyncedAt),
		record.LastModifiedAt,
		record.CreatedAt,
		record.Deleted,
	)
	if err != nil {
		log.Err(err).
			Str("func", "recordRepository.SaveRemoteRecord").
			Str("key", record.Key).
			Str("remote_id", record.RemoteID).
			Msg("failed to upsert remote record")
		return fmt.Errorf("%w: %w", ErrExecutingStatement, err)
	}

	return nil
}

func (r *recordRepository) GetRecord(ctx context.Context, key string) (models.Record, error) {
	rec, err := scanRecord(r.DB.QueryRowContext(ctx, getRecordByKey, key))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Record{}, fmt.Errorf("record %s: %w", key, ErrRecordNotFound)
		}
		return models.Record{}, fmt.Errorf("%w: %w", ErrScanningRow, err)
	}
	return rec, nil
}

func (r *recordRepository) GetRecordByRemoteID(ctx context.Context, remoteID string) (models.Record, error) {
	rec, err := scanRecord(r.DB.QueryRowContext(ctx, getRecordByRemoteID, remoteID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Record{}, fmt.Errorf("remote id %s: %w", remoteID, ErrRecordNotFound)
		}
		return models.Record{}, fmt.Errorf("%w: %w", ErrScanningRow, err)
	}
	return rec, nil
}

func (r *recordRepository) ListRecords(ctx context.Context, filter models.RecordFilter) ([]models.Record, error) {
	log := logger.FromContext(ctx)

	query, args, err := buildListRecordsQuery(filter)
	if err != nil {
		log.Err(err).
			Str("func", "recordRepository.ListRecords").
			Msg("failed to build list query")
		return nil, fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
	}

	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		log.Err(err).
			Str("func", "recordRepository.ListRecords").
			Msg("failed to execute list query")
		return nil, fmt.Errorf("%w: %w", ErrExecutingQuery, err)
	}
	defer rows.Close()

	records := make([]models.Record, 0, 50)
	for rows.Next() {
		rec, scanErr := scanRecord(rows)
		if scanErr != nil {
			log.Err(scanErr).
				Str("func", "recordRepository.ListRecords").
				Msg("failed to scan record row")
			return nil, fmt.Errorf("%w: %w", ErrScanningRow, scanErr)
		}
		records = append(records, rec)
	}

	if rowsErr := rows.Err(); rowsErr != nil {
		log.Err(rowsErr).
			Str("func", "recordRepository.ListRecords").
			Msg("error occurred during rows iteration")
		return nil, fmt.Errorf("%w: %w", ErrScanningRows, rowsErr)
	}

	return records, nil
}

func (r *recordRepository) UpdateSyncMetadata(ctx context.Context, key, remoteID string, remoteVersion int64, basePayload json.RawMessage, state models.SyncState, syncedAt time.Time) error {
	log := logger.FromContext(ctx)

	res, err := r.DB.ExecContext(ctx, updateSyncMetadata,
		remoteID,
		remoteVersion,
		basePayloadToColumn(basePayload),
		state,
		syncedAt,
		key,
	)
	if err != nil {
		log.Err(err).
			Str("func", "recordRepository.UpdateSyncMetadata").
			Str("key", key).
			Str("remote_id", remoteID).
			Msg("failed to update sync metadata")
		return fmt.Errorf("%w: %w", ErrExecutingStatement, err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return fmt.Errorf("record %s: %w", key, ErrRecordNotFound)
	}

	return nil
}

func (r *recordRepository) SetSyncState(ctx context.Context, key string, state models.SyncState) error {
	res, err := r.DB.ExecContext(ctx, setSyncState, state, key)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrExecutingStatement, err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return fmt.Errorf("record %s: %w", key, ErrRecordNotFound)
	}
	return nil
}

func (r *recordRepository) CountRecordsByState(ctx context.Context, state models.SyncState) (int, error) {
	var count int
	if err := r.DB.QueryRowContext(ctx, countRecordsByState, state).Scan(&count); err != nil {
		return 0, fmt.Errorf("%w: %w", ErrScanningRow, err)
	}
	return count, nil
}

func (r *recordRepository) PurgeRecord(ctx context.Context, key string) error {
	if _, err := r.DB.ExecContext(ctx, purgeRecord, key); err != nil {
		return fmt.Errorf("%w: %w", ErrExecutingStatement, err)
	}
	return nil
}

func (r *recordRepository) naturalKeyTaken(ctx context.Context, tx *sql.Tx, naturalKey, selfKey string) (bool, error) {
	rows, err := tx.QueryContext(ctx, findActiveByNaturalKey, naturalKey, selfKey)
	if err != nil {
		return false, fmt.Errorf("%w: %w", ErrExecutingQuery, err)
	}
	defer rows.Close()

	taken := rows.Next()
	if rowsErr := rows.Err(); rowsErr != nil {
		return false, fmt.Errorf("%w: %w", ErrScanningRows, rowsErr)
	}
	return taken, nil
}

// buildListRecordsQuery assembles the dynamic WHERE clause for ListRecords.
func buildListRecordsQuery(filter models.RecordFilter) (string, []any, error) {
	builder := sq.Select(
		"key",
		"natural_key",
		"payload",
		"schema_version",
		"overrides",
		"base_payload",
		"sync_state",
		"remote_id",
		"remote_version",
		"synced_version",
		"last_synced_at",
		"last_modified_at",
		"created_at",
		"deleted",
	).From("records").
		OrderBy("created_at ASC", "key ASC").
		PlaceholderFormat(sq.Dollar)

	if !filter.IncludeDeleted {
		builder = builder.Where(sq.Eq{"deleted": false})
	}
	if len(filter.SyncStates) > 0 {
		builder = builder.Where(sq.Eq{"sync_state": filter.SyncStates})
	}
	if filter.NaturalKeyPrefix != "" {
		builder = builder.Where(sq.Like{"natural_key": filter.NaturalKeyPrefix + "%"})
	}
	if filter.Limit > 0 {
		builder = builder.Limit(filter.Limit)
	}

	return builder.ToSql()
}

func insertQueuedOperation(ctx context.Context, tx *sql.Tx, op models.QueuedOperation) error {
	var payload sql.NullString
	if len(op.Payload) > 0 {
		payload = sql.NullString{String: string(op.Payload), Valid: true}
	}

	_, err := tx.ExecContext(ctx, insertOperation,
		op.Kind,
		op.RecordKey,
		payload,
		op.SchemaVersion,
		overridesToColumn(op.Overrides),
		op.Priority,
		op.RetryCount,
		op.MaxRetries,
		op.ScheduledAt,
		op.Status,
		op.LastError,
		op.CreatedAt,
		op.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrExecutingStatement, err)
	}
	return nil
}
