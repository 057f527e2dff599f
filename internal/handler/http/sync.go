package http

import (
	"errors"
	"net/http"

	"github.com/MKhiriev/go-offsync/internal/logger"
	"github.com/MKhiriev/go-offsync/internal/service"
	"github.com/MKhiriev/go-offsync/internal/utils"
)

func (h *Handler) status(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.FromRequest(r)

	status, err := h.services.Sync.Status(ctx)
	if err != nil {
		log.Err(err).Str("func", "*Handler.status").Msg("error building status")
		http.Error(w, "error building status", statusFromError(err))
		return
	}

	utils.WriteJSON(w, status, http.StatusOK)
}

func (h *Handler) triggerSync(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.FromRequest(r)

	result, err := h.services.Sync.SyncNow(ctx)
	if err != nil {
		if errors.Is(err, service.ErrSyncInProgress) {
			// the caller's intent is already being satisfied
			utils.WriteJSON(w, map[string]string{"status": "sync already running"}, http.StatusAccepted)
			return
		}
		log.Err(err).Str("func", "*Handler.triggerSync").Msg("sync cycle failed")
		http.Error(w, "sync cycle failed", statusFromError(err))
		return
	}

	utils.WriteJSON(w, result, http.StatusOK)
}
