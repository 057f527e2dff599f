// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"dario.cat/mergo"
	"github.com/google/uuid"

	"github.com/MKhiriev/go-offsync/internal/config"
	"github.com/MKhiriev/go-offsync/internal/store"
	"github.com/MKhiriev/go-offsync/models"
)

type entryService struct {
	storages *store.Storages
	cfg      config.Sync
	now      func() time.Time
}

func NewEntryService(storages *store.Storages, cfg config.Sync) EntryService {
	return &entryService{
		storages: storages,
		cfg:      cfg,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (s *entryService) Create(ctx context.Context, req CreateEntryRequest) (models.Record, error) {
	if req.NaturalKey == "" {
		return models.Record{}, ErrEmptyNaturalKey
	}
	if err := validatePayload(req.Payload); err != nil {
		return models.Record{}, err
	}

	schemaVersion := req.SchemaVersion
	if schemaVersion <= 0 {
		schemaVersion = 1
	}

	now := s.now()
	record := models.Record{
		Key:            uuid.NewString(),
		NaturalKey:     req.NaturalKey,
		Payload:        req.Payload,
		SchemaVersion:  schemaVersion,
		Overrides:      req.Overrides,
		SyncState:      models.SyncStatePending,
		RemoteVersion:  1,
		LastModifiedAt: now,
		CreatedAt:      now,
	}

	op := s.buildOperation(models.OperationCreate, record.Key, req.Payload, schemaVersion, req.Overrides, req.Priority, now)

	created, err := s.storages.Records.CreateRecord(ctx, record, op)
	if err != nil {
		return models.Record{}, fmt.Errorf("create entry: %w", err)
	}
	return created, nil
}

func (s *entryService) Get(ctx context.Context, key string) (models.Record, error) {
	record, err := s.storages.Records.GetRecord(ctx, key)
	if err != nil {
		return models.Record{}, fmt.Errorf("get entry: %w", err)
	}
	return record, nil
}

func (s *entryService) List(ctx context.Context, filter models.RecordFilter) ([]models.Record, error) {
	records, err := s.storages.Records.ListRecords(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	return records, nil
}

func (s *entryService) Update(ctx context.Context, key string, req UpdateEntryRequest) (models.Record, error) {
	if err := validatePayload(req.Payload); err != nil {
		return models.Record{}, err
	}

	record, err := s.storages.Records.GetRecord(ctx, key)
	if err != nil {
		return models.Record{}, fmt.Errorf("update entry: %w", err)
	}
	if record.Deleted {
		return models.Record{}, fmt.Errorf("record %s: %w", key, store.ErrRecordNotFound)
	}

	merged, err := mergePayload(record.Payload, req.Payload)
	if err != nil {
		return models.Record{}, fmt.Errorf("update entry: %w", err)
	}

	now := s.now()
	record.Payload = merged
	if req.SchemaVersion > record.SchemaVersion {
		record.SchemaVersion = req.SchemaVersion
	}
	record.Overrides = mergeOverrides(record.Overrides, req.Overrides)
	record.SyncState = models.SyncStatePending
	record.RemoteVersion++
	record.LastModifiedAt = now

	op := s.buildOperation(models.OperationUpdate, key, merged, record.SchemaVersion, record.Overrides, req.Priority, now)

	updated, err := s.storages.Records.UpdateRecord(ctx, record, op)
	if err != nil {
		return models.Record{}, fmt.Errorf("update entry: %w", err)
	}
	return updated, nil
}

func (s *entryService) Delete(ctx context.Context, key string) error {
	now := s.now()
	op := s.buildOperation(models.OperationDelete, key, nil, 0, nil, 0, now)

	if _, err := s.storages.Records.SoftDeleteRecord(ctx, key, op); err != nil {
		return fmt.Errorf("delete entry: %w", err)
	}
	return nil
}

func (s *entryService) buildOperation(kind models.OperationKind, recordKey string, payload json.RawMessage, schemaVersion int, overrides models.Overrides, priority int, now time.Time) models.QueuedOperation {
	return models.QueuedOperation{
		Kind:          kind,
		RecordKey:     recordKey,
		Payload:       payload,
		SchemaVersion: schemaVersion,
		Overrides:     overrides,
		Priority:      priority,
		MaxRetries:    s.cfg.MaxRetries,
		ScheduledAt:   now,
		Status:        models.OperationPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

func validatePayload(payload json.RawMessage) error {
	if len(payload) == 0 {
		return ErrInvalidPayload
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(payload, &fields); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidPayload, err)
	}
	return nil
}

// mergePayload overlays the patch's fields onto the current payload.
// Nested objects merge recursively; fields absent from the patch keep
// their current value.
func mergePayload(current, patch json.RawMessage) (json.RawMessage, error) {
	base := map[string]any{}
	if len(current) > 0 {
		if err := json.Unmarshal(current, &base); err != nil {
			return nil, fmt.Errorf("decode current payload: %w", err)
		}
	}

	overlay := map[string]any{}
	if err := json.Unmarshal(patch, &overlay); err != nil {
		return nil, fmt.Errorf("decode payload patch: %w", err)
	}

	if err := mergo.Merge(&base, overlay, mergo.WithOverride); err != nil {
		return nil, fmt.Errorf("merge payload patch: %w", err)
	}

	merged, err := json.Marshal(base)
	if err != nil {
		return nil, fmt.Errorf("encode merged payload: %w", err)
	}
	return merged, nil
}

func mergeOverrides(current, patch models.Overrides) models.Overrides {
	if len(patch) == 0 {
		return current
	}
	merged := make(models.Overrides, len(current)+len(patch))
	for field, pinned := range current {
		merged[field] = pinned
	}
	for field, pinned := range patch {
		merged[field] = pinned
	}
	return merged
}
