// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package store

const (
	recordColumns = `
		key,
		natural_key,
		payload,
		schema_version,
		overrides,
		base_payload,
		sync_state,
		remote_id,
		remote_version,
		synced_version,
		last_synced_at,
		last_modified_at,
		created_at,
		deleted`

	insertRecord = `
		INSERT INTO records (
			key,
			natural_key,
			payload,
			schema_version,
			overrides,
			base_payload,
			sync_state,
			remote_id,
			remote_version,
			synced_version,
			last_synced_at,
			last_modified_at,
			created_at,
			deleted
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14);`

	getRecordByKey = `
		SELECT ` + recordColumns + `
		FROM records
		WHERE key = $1;`

	getRecordByRemoteID = `
		SELECT ` + recordColumns + `
		FROM records
		WHERE remote_id = $1 AND remote_id != '';`

	findActiveByNaturalKey = `
		SELECT key
		FROM records
		WHERE natural_key = $1 AND deleted = FALSE AND key != $2;`

	updateRecordData = `
		UPDATE records SET
			payload          = $1,
			schema_version   = $2,
			overrides        = $3,
			base_payload     = $4,
			sync_state       = $5,
			remote_version   = $6,
			synced_version   = $7,
			last_modified_at = $8
		WHERE key = $9;`

	upsertRemoteRecord = `
		INSERT INTO records (
			key,
			natural_key,
			payload,
			schema_version,
			overrides,
			base_payload,
			sync_state,
			remote_id,
			remote_version,
			synced_version,
			last_synced_at,
			last_modified_at,
			created_at,
			deleted
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		ON CONFLICT (key) DO UPDATE SET
			payload        = excluded.payload,
			schema_version = excluded.schema_version,
			overrides      = excluded.overrides,
			base_payload   = excluded.base_payload,
			sync_state     = excluded.sync_state,
			remote_id      = excluded.remote_id,
			remote_version = excluded.remote_version,
			synced_version = excluded.synced_version,
			last_synced_at = excluded.last_synced_at,
			last_modified_at = excluded.last_modified_at,
			deleted        = excluded.deleted;`

	softDeleteRecord = `
		UPDATE records SET
			deleted          = TRUE,
			sync_state       = $1,
			last_modified_at = $2
		WHERE key = $3 AND deleted = FALSE;`

	updateSyncMetadata = `
		UPDATE records SET
			remote_id      = $1,
			remote_version = $2,
			synced_version = $2,
			base_payload   = $3,
			sync_state     = $4,
			last_synced_at = $5
		WHERE key = $6;`

	setSyncState = `
		UPDATE records SET sync_state = $1
		WHERE key = $2;`

	countRecordsByState = `
		SELECT COUNT(*) FROM records
		WHERE sync_state = $1 AND deleted = FALSE;`

	purgeRecord = `
		DELETE FROM records WHERE key = $1;`
)

const (
	operationColumns = `
		id,
		kind,
		record_key,
		payload,
		schema_version,
		overrides,
		priority,
		retry_count,
		max_retries,
		scheduled_at,
		status,
		last_error,
		created_at,
		updated_at`

	insertOperation = `
		INSERT INTO operations (
			kind,
			record_key,
			payload,
			schema_version,
			overrides,
			priority,
			retry_count,
			max_retries,
			scheduled_at,
			status,
			last_error,
			created_at,
			updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13);`

	// Replaces the payload of a pending create/update for the same key
	// instead of growing the queue. The kind is kept: coalescing an update
	// into a never-pushed create keeps it a create.
	coalesceOperation = `
		UPDATE operations SET
			payload        = $1,
			schema_version = $2,
			overrides      = $3,
			priority       = MAX(priority, $4),
			updated_at     = $5
		WHERE record_key = $6
		  AND kind IN ('create', 'update')
		  AND status = 'pending';`

	nextBatch = `
		SELECT ` + operationColumns + `
		FROM operations
		WHERE status = 'pending' AND scheduled_at <= $1
		ORDER BY priority DESC, id ASC
		LIMIT $2;`

	getOperationByID = `
		SELECT ` + operationColumns + `
		FROM operations
		WHERE id = $1;`

	markInFlight = `
		UPDATE operations SET status = 'in_flight', updated_at = $1
		WHERE id = $2 AND status = 'pending';`

	deleteOperation = `
		DELETE FROM operations WHERE id = $1;`

	markFailedRetry = `
		UPDATE operations SET
			status       = 'pending',
			retry_count  = $1,
			scheduled_at = $2,
			last_error   = $3,
			updated_at   = $4
		WHERE id = $5;`

	markFailedTerminal = `
		UPDATE operations SET
			status      = 'failed',
			retry_count = $1,
			last_error  = $2,
			updated_at  = $3
		WHERE id = $4;`

	cancelForRecord = `
		UPDATE operations SET status = 'cancelled', updated_at = $1
		WHERE record_key = $2 AND status = 'pending';`

	hasPendingCreate = `
		SELECT COUNT(*) FROM operations
		WHERE record_key = $1 AND kind = 'create' AND status = 'pending';`

	requeueStuck = `
		UPDATE operations SET
			status      = 'pending',
			retry_count = retry_count + 1,
			last_error  = 'in-flight watchdog timeout',
			updated_at  = $1
		WHERE status = 'in_flight' AND updated_at < $2;`

	dropOrphanOperations = `
		DELETE FROM operations
		WHERE record_key NOT IN (SELECT key FROM records);`

	countOperationsByStatus = `
		SELECT COUNT(*) FROM operations WHERE status = $1;`

	countPendingForRecord = `
		SELECT COUNT(*) FROM operations
		WHERE record_key = $1 AND status IN ('pending', 'in_flight');`
)

const (
	insertConflict = `
		INSERT INTO conflicts (
			record_key,
			local_snapshot,
			remote_snapshot,
			remote_version,
			conflict_type,
			resolution,
			resolved_at,
			created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8);`

	conflictColumns = `
		id,
		record_key,
		local_snapshot,
		remote_snapshot,
		remote_version,
		conflict_type,
		resolution,
		resolved_at,
		created_at`

	getOpenConflicts = `
		SELECT ` + conflictColumns + `
		FROM conflicts
		WHERE resolved_at IS NULL
		ORDER BY id ASC;`

	getOpenConflictForRecord = `
		SELECT ` + conflictColumns + `
		FROM conflicts
		WHERE record_key = $1 AND resolved_at IS NULL
		ORDER BY id DESC
		LIMIT 1;`

	markConflictResolved = `
		UPDATE conflicts SET resolution = $1, resolved_at = $2
		WHERE id = $3 AND resolved_at IS NULL;`

	countOpenConflicts = `
		SELECT COUNT(*) FROM conflicts WHERE resolved_at IS NULL;`
)

const (
	getCheckpoint = `
		SELECT checkpoint FROM sync_checkpoint WHERE id = 1;`

	setCheckpoint = `
		UPDATE sync_checkpoint SET checkpoint = $1, updated_at = $2
		WHERE id = 1;`

	touchLastSync = `
		UPDATE sync_checkpoint SET updated_at = $1
		WHERE id = 1;`

	getLastSyncAt = `
		SELECT updated_at FROM sync_checkpoint WHERE id = 1;`
)
