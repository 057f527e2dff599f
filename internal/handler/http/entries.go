// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package http

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/MKhiriev/go-offsync/internal/logger"
	"github.com/MKhiriev/go-offsync/internal/service"
	"github.com/MKhiriev/go-offsync/internal/utils"
	"github.com/MKhiriev/go-offsync/models"
)

func (h *Handler) createEntry(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.FromRequest(r)

	var req service.CreateEntryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Err(err).Str("func", "*Handler.createEntry").Msg("invalid JSON was passed")
		http.Error(w, "invalid JSON was passed", http.StatusBadRequest)
		return
	}

	record, err := h.services.Entries.Create(ctx, req)
	if err != nil {
		log.Err(err).Str("func", "*Handler.createEntry").Msg("error creating entry")
		http.Error(w, "error creating entry", statusFromError(err))
		return
	}

	utils.WriteJSON(w, record, http.StatusCreated)
}

func (h *Handler) getEntry(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.FromRequest(r)

	key := chi.URLParam(r, "key")

	record, err := h.services.Entries.Get(ctx, key)
	if err != nil {
		log.Err(err).Str("func", "*Handler.getEntry").Str("key", key).Msg("error getting entry")
		http.Error(w, "error getting entry", statusFromError(err))
		return
	}

	utils.WriteJSON(w, record, http.StatusOK)
}

func (h *Handler) listEntries(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.FromRequest(r)

	filter, err := parseRecordFilter(r)
	if err != nil {
		log.Err(err).Str("func", "*Handler.listEntries").Msg("invalid filter parameters")
		http.Error(w, "invalid filter parameters", http.StatusBadRequest)
		return
	}

	records, err := h.services.Entries.List(ctx, filter)
	if err != nil {
		log.Err(err).Str("func", "*Handler.listEntries").Msg("error listing entries")
		http.Error(w, "error listing entries", statusFromError(err))
		return
	}

	utils.WriteJSON(w, records, http.StatusOK)
}

func (h *Handler) updateEntry(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.FromRequest(r)

	key := chi.URLParam(r, "key")

	var req service.UpdateEntryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Err(err).Str("func", "*Handler.updateEntry").Msg("invalid JSON was passed")
		http.Error(w, "invalid JSON was passed", http.StatusBadRequest)
		return
	}

	record, err := h.services.Entries.Update(ctx, key, req)
	if err != nil {
		log.Err(err).Str("func", "*Handler.updateEntry").Str("key", key).Msg("error updating entry")
		http.Error(w, "error updating entry", statusFromError(err))
		return
	}

	utils.WriteJSON(w, record, http.StatusOK)
}

func (h *Handler) deleteEntry(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.FromRequest(r)

	key := chi.URLParam(r, "key")

	if err := h.services.Entries.Delete(ctx, key); err != nil {
		log.Err(err).Str("func", "*Handler.deleteEntry").Str("key", key).Msg("error deleting entry")
		http.Error(w, "error deleting entry", statusFromError(err))
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func parseRecordFilter(r *http.Request) (models.RecordFilter, error) {
	query := r.URL.Query()

	filter := models.RecordFilter{
		NaturalKeyPrefix: query.Get("prefix"),
	}

	for _, state := range query["state"] {
		filter.SyncStates = append(filter.SyncStates, models.SyncState(state))
	}

	if raw := query.Get("include_deleted"); raw != "" {
		includeDeleted, err := strconv.ParseBool(raw)
		if err != nil {
			return models.RecordFilter{}, err
		}
		filter.IncludeDeleted = includeDeleted
	}

	if raw := query.Get("limit"); raw != "" {
		limit, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return models.RecordFilter{}, err
		}
		filter.Limit = limit
	}

	return filter, nil
}
