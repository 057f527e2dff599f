package server

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MKhiriev/go-offsync/internal/config"
	myHTTP "github.com/MKhiriev/go-offsync/internal/handler/http"
	"github.com/MKhiriev/go-offsync/internal/logger"
	"github.com/MKhiriev/go-offsync/internal/service"
)

func TestNewServer_NoTransportConfigured(t *testing.T) {
	srv, err := NewServer(nil, config.Admin{}, logger.Nop())

	require.Error(t, err)
	assert.ErrorIs(t, err, errNoAdminTransport)
	assert.Nil(t, srv)
}

func TestNewServer_HTTPTransport(t *testing.T) {
	handler := myHTTP.NewHandler(&service.Services{}, logger.Nop())

	srv, err := NewServer(handler, config.Admin{HTTPAddress: "127.0.0.1:0"}, logger.Nop())

	require.NoError(t, err)
	assert.NotNil(t, srv)
}
