// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/MKhiriev/go-offsync/internal/logger"
	"github.com/MKhiriev/go-offsync/models"
)

// backoffSchedule holds the retry delays applied after consecutive
// failures of the same operation. Delays are non-decreasing; retries past
// the end of the schedule reuse the last (capped) entry.
var backoffSchedule = []time.Duration{
	30 * time.Second,
	5 * time.Minute,
	30 * time.Minute,
	time.Hour,
}

// Backoff returns the delay applied before retry number retryCount
// (1-based). The schedule is exponential-ish and capped at one hour.
func Backoff(retryCount int) time.Duration {
	if retryCount < 1 {
		retryCount = 1
	}
	if retryCount > len(backoffSchedule) {
		return backoffSchedule[len(backoffSchedule)-1]
	}
	return backoffSchedule[retryCount-1]
}

// operationQueue is the SQLite-backed implementation of [OperationQueue].
// It shares the engine database with the record repository; enqueueing is
// done by [RecordRepository] inside record transactions, this type covers
// dispatch and failure accounting.
type operationQueue struct {
	*DB
	logger *logger.Logger
}

func NewOperationQueue(db *DB, logger *logger.Logger) OperationQueue {
	return &operationQueue{
		DB:     db,
		logger: logger,
	}
}

func (q *operationQueue) NextBatch(ctx context.Context, limit int, now time.Time) ([]models.QueuedOperation, error) {
	log := logger.FromContext(ctx)

	rows, err := q.DB.QueryContext(ctx, nextBatch, now, limit)
	if err != nil {
		log.Err(err).
			Str("func", "operationQueue.NextBatch").
			Int("limit", limit).
			Msg("failed to query next batch")
		return nil, fmt.Errorf("%w: %w", ErrExecutingQuery, err)
	}
	defer rows.Close()

	ops := make([]models.QueuedOperation, 0, limit)
	for rows.Next() {
		op, scanErr := scanOperation(rows)
		if scanErr != nil {
			log.Err(scanErr).
				Str("func", "operationQueue.NextBatch").
				Msg("failed to scan operation row")
			return nil, fmt.Errorf("%w: %w", ErrScanningRow, scanErr)
		}
		ops = append(ops, op)
	}

	if rowsErr := rows.Err(); rowsErr != nil {
		log.Err(rowsErr).
			Str("func", "operationQueue.NextBatch").
			Msg("error occurred during rows iteration")
		return nil, fmt.Errorf("%w: %w", ErrScanningRows, rowsErr)
	}

	return ops, nil
}

func (q *operationQueue) MarkInFlight(ctx context.Context, id int64, now time.Time) error {
	res, err := q.DB.ExecContext(ctx, markInFlight, now, id)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrExecutingStatement, err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return fmt.Errorf("operation %d: %w", id, ErrOperationNotFound)
	}
	return nil
}

func (q *operationQueue) MarkCompleted(ctx context.Context, id int64) error {
	res, err := q.DB.ExecContext(ctx, deleteOperation, id)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrExecutingStatement, err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return fmt.Errorf("operation %d: %w", id, ErrOperationNotFound)
	}
	return nil
}

func (q *operationQueue) MarkFailed(ctx context.Context, id int64, opErr string, terminal bool, now time.Time) (models.QueuedOperation, error) {
	log := logger.FromContext(ctx)

	op, err := q.GetOperation(ctx, id)
	if err != nil {
		return models.QueuedOperation{}, err
	}

	op.RetryCount++
	op.LastError = opErr
	op.UpdatedAt = now

	if terminal || op.RetryCount >= op.MaxRetries {
		op.Status = models.OperationFailed
		if terminal {
			// permanent rejection: exhaust the budget so nothing retries it
			op.RetryCount = op.MaxRetries
		}
		_, err = q.DB.ExecContext(ctx, markFailedTerminal, op.RetryCount, op.LastError, now, id)
		if err != nil {
			return models.QueuedOperation{}, fmt.Errorf("%w: %w", ErrExecutingStatement, err)
		}

		log.Warn().
			Str("func", "operationQueue.MarkFailed").
			Int64("operation_id", id).
			Str("record_key", op.RecordKey).
			Str("error", opErr).
			Msg("operation failed permanently")
		return op, nil
	}

	op.Status = models.OperationPending
	op.ScheduledAt = now.Add(Backoff(op.RetryCount))
	_, err = q.DB.ExecContext(ctx, markFailedRetry, op.RetryCount, op.ScheduledAt, op.LastError, now, id)
	if err != nil {
		return models.QueuedOperation{}, fmt.Errorf("%w: %w", ErrExecutingStatement, err)
	}

	log.Debug().
		Str("func", "operationQueue.MarkFailed").
		Int64("operation_id", id).
		Str("record_key", op.RecordKey).
		Int("retry_count", op.RetryCount).
		Time("scheduled_at", op.ScheduledAt).
		Msg("operation rescheduled with backoff")
	return op, nil
}

func (q *operationQueue) CancelForRecord(ctx context.Context, recordKey string) (int64, error) {
	res, err := q.DB.ExecContext(ctx, cancelForRecord, time.Now().UTC(), recordKey)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrExecutingStatement, err)
	}
	affected, _ := res.RowsAffected()
	return affected, nil
}

func (q *operationQueue) RequeueStuck(ctx context.Context, cutoff, now time.Time) (int64, error) {
	log := logger.FromContext(ctx)

	res, err := q.DB.ExecContext(ctx, requeueStuck, now, cutoff)
	if err != nil {
		log.Err(err).
			Str("func", "operationQueue.RequeueStuck").
			Msg("failed to requeue stuck operations")
		return 0, fmt.Errorf("%w: %w", ErrExecutingStatement, err)
	}

	affected, _ := res.RowsAffected()
	if affected > 0 {
		log.Warn().
			Str("func", "operationQueue.RequeueStuck").
			Int64("count", affected).
			Msg("returned stuck in-flight operations to pending")
	}
	return affected, nil
}

func (q *operationQueue) DropOrphans(ctx context.Context) (int64, error) {
	log := logger.FromContext(ctx)

	res, err := q.DB.ExecContext(ctx, dropOrphanOperations)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrExecutingStatement, err)
	}

	affected, _ := res.RowsAffected()
	if affected > 0 {
		// queue corruption is self-healing: logged, never user-visible
		log.Warn().
			Str("func", "operationQueue.DropOrphans").
			Int64("count", affected).
			Msg("dropped orphaned operations referencing missing records")
	}
	return affected, nil
}

func (q *operationQueue) GetOperation(ctx context.Context, id int64) (models.QueuedOperation, error) {
	op, err := scanOperation(q.DB.QueryRowContext(ctx, getOperationByID, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.QueuedOperation{}, fmt.Errorf("operation %d: %w", id, ErrOperationNotFound)
		}
		return models.QueuedOperation{}, fmt.Errorf("%w: %w", ErrScanningRow, err)
	}
	return op, nil
}

func (q *operationQueue) PendingCount(ctx context.Context) (int, error) {
	return q.countByStatus(ctx, models.OperationPending)
}

func (q *operationQueue) FailedCount(ctx context.Context) (int, error) {
	return q.countByStatus(ctx, models.OperationFailed)
}

func (q *operationQueue) PendingForRecord(ctx context.Context, recordKey string) (int, error) {
	var count int
	if err := q.DB.QueryRowContext(ctx, countPendingForRecord, recordKey).Scan(&count); err != nil {
		return 0, fmt.Errorf("%w: %w", ErrScanningRow, err)
	}
	return count, nil
}

func (q *operationQueue) countByStatus(ctx context.Context, status models.OperationStatus) (int, error) {
	var count int
	if err := q.DB.QueryRowContext(ctx, countOperationsByStatus, status).Scan(&count); err != nil {
		return 0, fmt.Errorf("%w: %w", ErrScanningRow, err)
	}
	return count, nil
}
