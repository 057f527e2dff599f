package adapter

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/MKhiriev/go-offsync/internal/config"
	"github.com/MKhiriev/go-offsync/internal/logger"
	"github.com/MKhiriev/go-offsync/models"
)

type httpRemoteClient struct {
	client *resty.Client
	logger *logger.Logger
}

// NewHTTPRemoteClient constructs a [RemoteClient] that talks to the
// remote authority over HTTP. Every request carries the configured
// timeout; exceeding it surfaces as a transient failure to the caller.
func NewHTTPRemoteClient(cfg config.Remote, log *logger.Logger) RemoteClient {
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	cli := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetTimeout(timeout)

	return &httpRemoteClient{client: cli, logger: log}
}

func (h *httpRemoteClient) CreateRemote(ctx context.Context, req CreateRequest) (models.RemoteCreateResult, error) {
	resp, err := h.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(req).
		Post("/api/records/")
	if err != nil {
		return models.RemoteCreateResult{}, fmt.Errorf("%w: create request: %w", ErrTransient, err)
	}
	if err = mapRemoteError(resp); err != nil {
		return models.RemoteCreateResult{}, err
	}

	var result models.RemoteCreateResult
	if err = json.Unmarshal(resp.Body(), &result); err != nil {
		return models.RemoteCreateResult{}, fmt.Errorf("%w: decode create response: %w", ErrTransient, err)
	}

	return result, nil
}

func (h *httpRemoteClient) UpdateRemote(ctx context.Context, remoteID string, req UpdateRequest) (models.RemoteUpdateResult, error) {
	resp, err := h.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(req).
		Put("/api/records/" + remoteID)
	if err != nil {
		return models.RemoteUpdateResult{}, fmt.Errorf("%w: update request: %w", ErrTransient, err)
	}
	if err = mapRemoteError(resp); err != nil {
		return models.RemoteUpdateResult{}, err
	}

	var result models.RemoteUpdateResult
	if err = json.Unmarshal(resp.Body(), &result); err != nil {
		return models.RemoteUpdateResult{}, fmt.Errorf("%w: decode update response: %w", ErrTransient, err)
	}

	return result, nil
}

func (h *httpRemoteClient) DeleteRemote(ctx context.Context, remoteID string, expectedVersion int64) error {
	resp, err := h.client.R().
		SetContext(ctx).
		SetQueryParam("expected_version", strconv.FormatInt(expectedVersion, 10)).
		Delete("/api/records/" + remoteID)
	if err != nil {
		return fmt.Errorf("%w: delete request: %w", ErrTransient, err)
	}

	// the record being gone already is the outcome we wanted
	if resp.StatusCode() == http.StatusNotFound {
		return nil
	}

	return mapRemoteError(resp)
}

func (h *httpRemoteClient) FetchChangesSince(ctx context.Context, checkpoint string) (models.ChangeFeed, error) {
	resp, err := h.client.R().
		SetContext(ctx).
		SetQueryParam("since", checkpoint).
		Get("/api/changes/")
	if err != nil {
		return models.ChangeFeed{}, fmt.Errorf("%w: fetch changes request: %w", ErrTransient, err)
	}
	if err = mapRemoteError(resp); err != nil {
		return models.ChangeFeed{}, err
	}

	var feed models.ChangeFeed
	if err = json.Unmarshal(resp.Body(), &feed); err != nil {
		return models.ChangeFeed{}, fmt.Errorf("%w: decode change feed: %w", ErrTransient, err)
	}

	return feed, nil
}

func (h *httpRemoteClient) HealthCheck(ctx context.Context) error {
	resp, err := h.client.R().SetContext(ctx).Get("/api/health/")
	if err != nil {
		return fmt.Errorf("%w: health check: %w", ErrTransient, err)
	}
	return mapRemoteError(resp)
}

func bodyText(resp *resty.Response) string {
	body := strings.TrimSpace(string(resp.Body()))
	if body == "" {
		body = http.StatusText(resp.StatusCode())
	}
	return body
}

func unmarshalBody(body []byte, v any) error {
	return json.Unmarshal(body, v)
}
