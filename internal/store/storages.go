package store

import (
	"context"
	"fmt"

	"github.com/MKhiriev/go-offsync/internal/config"
	"github.com/MKhiriev/go-offsync/internal/logger"
)

// Storages groups all engine repositories into a single value that can be
// passed around the service layer. All four repositories share one SQLite
// database, so records, the operation queue, conflicts, and the sync
// checkpoint are always backed up and restored together.
type Storages struct {
	// Records is the repository for engine records and their sync metadata.
	Records RecordRepository

	// Queue is the durable outbound operation queue.
	Queue OperationQueue

	// Conflicts persists detected sync conflicts.
	Conflicts ConflictRepository

	// Checkpoint stores the pull cursor and last-sync timestamp.
	Checkpoint CheckpointRepository
}

// NewStorages initialises the engine storage layer using the supplied
// configuration and logger. It performs the following steps:
//  1. Opens an SQLite connection to the file path specified in cfg.DB.DSN,
//     creating the database file if it does not yet exist.
//  2. Runs pending schema migrations via [DB.Migrate].
//  3. Constructs and returns a [Storages] value wired to fresh
//     repositories.
//
// Returns an error if the database connection cannot be established or if
// migration fails.
func NewStorages(cfg config.Storage, logger *logger.Logger) (*Storages, error) {
	logger.Info().Msg("creating new storages...")

	db, err := NewConnectSQLite(context.Background(), cfg.DB, logger)
	if err != nil {
		return nil, fmt.Errorf("sqlite connection error: %w", err)
	}

	if err := db.Migrate(); err != nil {
		return nil, fmt.Errorf("migration failed: %w", err)
	}

	return &Storages{
		Records:    NewRecordRepository(db, logger),
		Queue:      NewOperationQueue(db, logger),
		Conflicts:  NewConflictRepository(db, logger),
		Checkpoint: NewCheckpointRepository(db, logger),
	}, nil
}
