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

type conflictRepository struct {
	*DB
	logger *logger.Logger
}

func NewConflictRepository(db *DB, logger *logger.Logger) ConflictRepository {
	return &conflictRepository{
		DB:     db,
		logger: logger,
	}
}

func (c *conflictRepository) SaveConflict(ctx context.Context, conflict models.ConflictRecord) (models.ConflictRecord, error) {
	log := logger.FromContext(ctx)

	res, err := c.DB.ExecContext(ctx, insertConflict,
		conflict.RecordKey,
		payloadToColumn(conflict.LocalSnapshot),
		payloadToColumn(conflict.RemoteSnapshot),
		conflict.RemoteVersion,
		conflict.ConflictType,
		conflict.Resolution,
		nullTime(conflict.ResolvedAt),
		conflict.CreatedAt,
	)
	if err != nil {
		log.Err(err).
			Str("func", "conflictRepository.SaveConflict").
			Str("record_key", conflict.RecordKey).
			Msg("failed to insert conflict")
		return models.ConflictRecord{}, fmt.Errorf("%w: %w", ErrExecutingStatement, err)
	}

	if id, idErr := res.LastInsertId(); idErr == nil {
		conflict.ID = id
	}
	return conflict, nil
}

func (c *conflictRepository) OpenConflicts(ctx context.Context) ([]models.ConflictRecord, error) {
	log := logger.FromContext(ctx)

	rows, err := c.DB.QueryContext(ctx, getOpenConflicts)
	if err != nil {
		log.Err(err).
			Str("func", "conflictRepository.OpenConflicts").
			Msg("failed to query open conflicts")
		return nil, fmt.Errorf("%w: %w", ErrExecutingQuery, err)
	}
	defer rows.Close()

	var conflicts []models.ConflictRecord
	for rows.Next() {
		conflict, scanErr := scanConflict(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("%w: %w", ErrScanningRow, scanErr)
		}
		conflicts = append(conflicts, conflict)
	}

	if rowsErr := rows.Err(); rowsErr != nil {
		return nil, fmt.Errorf("%w: %w", ErrScanningRows, rowsErr)
	}

	return conflicts, nil
}

func (c *conflictRepository) OpenConflictForRecord(ctx context.Context, recordKey string) (models.ConflictRecord, error) {
	conflict, err := scanConflict(c.DB.QueryRowContext(ctx, getOpenConflictForRecord, recordKey))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.ConflictRecord{}, fmt.Errorf("record %s: %w", recordKey, ErrConflictNotFound)
		}
		return models.ConflictRecord{}, fmt.Errorf("%w: %w", ErrScanningRow, err)
	}
	return conflict, nil
}

func (c *conflictRepository) MarkResolved(ctx context.Context, id int64, strategy models.ResolutionStrategy, resolvedAt time.Time) error {
	res, err := c.DB.ExecContext(ctx, markConflictResolved, strategy, resolvedAt, id)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrExecutingStatement, err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return fmt.Errorf("conflict %d: %w", id, ErrConflictNotFound)
	}
	return nil
}

func (c *conflictRepository) CountOpen(ctx context.Context) (int, error) {
	var count int
	if err := c.DB.QueryRowContext(ctx, countOpenConflicts).Scan(&count); err != nil {
		return 0, fmt.Errorf("%w: %w", ErrScanningRow, err)
	}
	return count, nil
}
