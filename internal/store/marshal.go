package store

import (
	"database/sql"
	"encoding/json"
	"time"

	"github.com/MKhiriev/go-offsync/models"
)

// JSON-ish columns are stored as TEXT. Empty values round-trip as the
// canonical empty object so scans never produce invalid JSON.

func payloadToColumn(raw json.RawMessage) string {
	if len(raw) == 0 {
		return "{}"
	}
	return string(raw)
}

func overridesToColumn(o models.Overrides) string {
	if len(o) == 0 {
		return "{}"
	}
	b, err := json.Marshal(o)
	if err != nil {
		return "{}"
	}
	return string(b)
}

func overridesFromColumn(s string) models.Overrides {
	if s == "" || s == "{}" {
		return nil
	}
	var o models.Overrides
	if err := json.Unmarshal([]byte(s), &o); err != nil {
		return nil
	}
	return o
}

func basePayloadToColumn(raw json.RawMessage) sql.NullString {
	if len(raw) == 0 {
		return sql.NullString{}
	}
	return sql.NullString{String: string(raw), Valid: true}
}

type recordScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row recordScanner) (models.Record, error) {
	var (
		rec          models.Record
		payload      string
		overrides    string
		basePayload  sql.NullString
		lastSyncedAt sql.NullTime
	)

	err := row.Scan(
		&rec.Key,
		&rec.NaturalKey,
		&payload,
		&rec.SchemaVersion,
		&overrides,
		&basePayload,
		&rec.SyncState,
		&rec.RemoteID,
		&rec.RemoteVersion,
		&rec.SyncedVersion,
		&lastSyncedAt,
		&rec.LastModifiedAt,
		&rec.CreatedAt,
		&rec.Deleted,
	)
	if err != nil {
		return models.Record{}, err
	}

	rec.Payload = json.RawMessage(payload)
	rec.Overrides = overridesFromColumn(overrides)
	if basePayload.Valid {
		rec.BasePayload = json.RawMessage(basePayload.String)
	}
	if lastSyncedAt.Valid {
		t := lastSyncedAt.Time
		rec.LastSyncedAt = &t
	}

	return rec, nil
}

func scanOperation(row recordScanner) (models.QueuedOperation, error) {
	var (
		op        models.QueuedOperation
		payload   sql.NullString
		overrides string
	)

	err := row.Scan(
		&op.ID,
		&op.Kind,
		&op.RecordKey,
		&payload,
		&op.SchemaVersion,
		&overrides,
		&op.Priority,
		&op.RetryCount,
		&op.MaxRetries,
		&op.ScheduledAt,
		&op.Status,
		&op.LastError,
		&op.CreatedAt,
		&op.UpdatedAt,
	)
	if err != nil {
		return models.QueuedOperation{}, err
	}

	if payload.Valid && payload.String != "" {
		op.Payload = json.RawMessage(payload.String)
	}
	op.Overrides = overridesFromColumn(overrides)

	return op, nil
}

func scanConflict(row recordScanner) (models.ConflictRecord, error) {
	var (
		c          models.ConflictRecord
		local      string
		remote     string
		resolvedAt sql.NullTime
	)

	err := row.Scan(
		&c.ID,
		&c.RecordKey,
		&local,
		&remote,
		&c.RemoteVersion,
		&c.ConflictType,
		&c.Resolution,
		&resolvedAt,
		&c.CreatedAt,
	)
	if err != nil {
		return models.ConflictRecord{}, err
	}

	c.LocalSnapshot = json.RawMessage(local)
	c.RemoteSnapshot = json.RawMessage(remote)
	if resolvedAt.Valid {
		t := resolvedAt.Time
		c.ResolvedAt = &t
	}

	return c, nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
