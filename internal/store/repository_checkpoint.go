package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/MKhiriev/go-offsync/internal/logger"
)

type checkpointRepository struct {
	*DB
	logger *logger.Logger
}

func NewCheckpointRepository(db *DB, logger *logger.Logger) CheckpointRepository {
	return &checkpointRepository{
		DB:     db,
		logger: logger,
	}
}

func (c *checkpointRepository) GetCheckpoint(ctx context.Context) (string, error) {
	var checkpoint string
	if err := c.DB.QueryRowContext(ctx, getCheckpoint).Scan(&checkpoint); err != nil {
		return "", fmt.Errorf("%w: %w", ErrScanningRow, err)
	}
	return checkpoint, nil
}

func (c *checkpointRepository) SetCheckpoint(ctx context.Context, checkpoint string, at time.Time) error {
	log := logger.FromContext(ctx)

	if _, err := c.DB.ExecContext(ctx, setCheckpoint, checkpoint, at); err != nil {
		log.Err(err).
			Str("func", "checkpointRepository.SetCheckpoint").
			Str("checkpoint", checkpoint).
			Msg("failed to persist checkpoint")
		return fmt.Errorf("%w: %w", ErrExecutingStatement, err)
	}
	return nil
}

func (c *checkpointRepository) TouchLastSync(ctx context.Context, at time.Time) error {
	if _, err := c.DB.ExecContext(ctx, touchLastSync, at); err != nil {
		return fmt.Errorf("%w: %w", ErrExecutingStatement, err)
	}
	return nil
}

func (c *checkpointRepository) LastSyncAt(ctx context.Context) (*time.Time, error) {
	var at sql.NullTime
	if err := c.DB.QueryRowContext(ctx, getLastSyncAt).Scan(&at); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrScanningRow, err)
	}
	if !at.Valid {
		return nil, nil
	}
	t := at.Time
	return &t, nil
}
