package http

import (
	"errors"
	"net/http"

	"github.com/MKhiriev/go-offsync/internal/service"
	"github.com/MKhiriev/go-offsync/internal/store"
)

var errorStatusMap = map[error]int{
	service.ErrEmptyNaturalKey: http.StatusBadRequest,
	service.ErrInvalidPayload:  http.StatusBadRequest,
	service.ErrSyncInProgress:  http.StatusConflict,
	service.ErrEngineOffline:   http.StatusServiceUnavailable,

	store.ErrDuplicateNaturalKey: http.StatusConflict,
	store.ErrRecordNotFound:      http.StatusNotFound,
	store.ErrOperationNotFound:   http.StatusNotFound,
	store.ErrConflictNotFound:    http.StatusNotFound,

	store.ErrBuildingSQLQuery:     http.StatusInternalServerError,
	store.ErrExecutingQuery:       http.StatusInternalServerError,
	store.ErrBeginningTransaction: http.StatusInternalServerError,
	store.ErrCommitingTransaction: http.StatusInternalServerError,
	store.ErrExecutingStatement:   http.StatusInternalServerError,
	store.ErrScanningRow:          http.StatusInternalServerError,
	store.ErrScanningRows:         http.StatusInternalServerError,
}

func statusFromError(err error) int {
	for target, status := range errorStatusMap {
		if errors.Is(err, target) {
			return status
		}
	}
	return http.StatusInternalServerError
}
