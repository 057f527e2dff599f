package adapter

import (
	"context"
	"encoding/json"

	"github.com/MKhiriev/go-offsync/models"
)

//go:generate mockgen -source=interfaces.go -destination=../mock/adapter_mock.go -package=mock

// RemoteClient is the engine's only outbound dependency: a thin client
// for the remote authority. Transport and authentication details are the
// implementation's concern; the engine only relies on the error contract
// described in [Classify].
type RemoteClient interface {
	// CreateRemote pushes a locally created record. The request carries
	// the record's client-side key so the remote can deduplicate replays
	// of the same create (idempotent push).
	CreateRemote(ctx context.Context, req CreateRequest) (models.RemoteCreateResult, error)

	// UpdateRemote pushes new payload data for a record the remote already
	// knows. expectedVersion is the remote version this client last
	// reconciled against; the remote rejects the update with a
	// [*ConflictError] when its version has advanced past it.
	UpdateRemote(ctx context.Context, remoteID string, req UpdateRequest) (models.RemoteUpdateResult, error)

	// DeleteRemote deletes a record on the remote. Deleting a record the
	// remote no longer has is not an error.
	DeleteRemote(ctx context.Context, remoteID string, expectedVersion int64) error

	// FetchChangesSince returns remote changes after the given opaque
	// checkpoint, together with the next checkpoint to persist.
	FetchChangesSince(ctx context.Context, checkpoint string) (models.ChangeFeed, error)

	// HealthCheck probes remote reachability with a lightweight request.
	HealthCheck(ctx context.Context) error
}

// CreateRequest is the body of a create push.
type CreateRequest struct {
	RecordKey     string          `json:"record_key"`
	NaturalKey    string          `json:"natural_key"`
	Payload       json.RawMessage `json:"payload"`
	SchemaVersion int             `json:"schema_version"`
}

// UpdateRequest is the body of an update push.
type UpdateRequest struct {
	Payload         json.RawMessage `json:"payload"`
	SchemaVersion   int             `json:"schema_version"`
	ExpectedVersion int64           `json:"expected_version"`
}
