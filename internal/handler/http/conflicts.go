package http

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/MKhiriev/go-offsync/internal/logger"
	"github.com/MKhiriev/go-offsync/internal/utils"
)

type resolveConflictRequest struct {
	// KeepLocal picks the local payload and re-arms it for pushing;
	// false adopts the remote snapshot captured at detection time.
	KeepLocal bool `json:"keep_local"`
}

func (h *Handler) listConflicts(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.FromRequest(r)

	conflicts, err := h.services.Conflicts.Open(ctx)
	if err != nil {
		log.Err(err).Str("func", "*Handler.listConflicts").Msg("error listing conflicts")
		http.Error(w, "error listing conflicts", statusFromError(err))
		return
	}

	utils.WriteJSON(w, conflicts, http.StatusOK)
}

func (h *Handler) resolveConflict(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.FromRequest(r)

	key := chi.URLParam(r, "key")

	var req resolveConflictRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Err(err).Str("func", "*Handler.resolveConflict").Msg("invalid JSON was passed")
		http.Error(w, "invalid JSON was passed", http.StatusBadRequest)
		return
	}

	record, err := h.services.Conflicts.Resolve(ctx, key, req.KeepLocal)
	if err != nil {
		log.Err(err).Str("func", "*Handler.resolveConflict").Str("key", key).Msg("error resolving conflict")
		http.Error(w, "error resolving conflict", statusFromError(err))
		return
	}

	utils.WriteJSON(w, record, http.StatusOK)
}
