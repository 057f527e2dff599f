// Package http exposes the engine's local admin API: entry CRUD, sync
// triggering, status inspection and operator conflict resolution. The
// API binds to a local address and carries no authentication; it is an
// operator surface, not a public one.
package http

import (
	"github.com/MKhiriev/go-offsync/internal/logger"
	"github.com/MKhiriev/go-offsync/internal/service"
)

type Handler struct {
	services *service.Services

	logger *logger.Logger
}

func NewHandler(services *service.Services, logger *logger.Logger) *Handler {
	logger.Info().Msg("admin http handler created")
	return &Handler{
		services: services,
		logger:   logger,
	}
}
