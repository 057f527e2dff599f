package adapter

import (
	"encoding/json"
	"errors"
	"fmt"
)

var (
	// ErrTransient marks failures worth retrying: timeouts, connectivity
	// loss, 5xx responses. Wrapped errors matched with [errors.Is].
	ErrTransient = errors.New("transient remote error")

	// ErrPermanent marks failures retrying cannot fix: validation
	// rejections, duplicate remote keys. The sync manager stops retrying
	// the operation immediately.
	ErrPermanent = errors.New("permanent remote rejection")
)

// ConflictError is returned when the remote rejects a push because the
// record was modified after the version this client last saw. It carries
// the remote's current state so the conflict resolver can run without an
// extra round trip.
type ConflictError struct {
	RemoteID      string          `json:"remote_id"`
	RemoteVersion int64           `json:"remote_version"`
	Payload       json.RawMessage `json:"payload"`
	SchemaVersion int             `json:"schema_version"`
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("remote version conflict on %s (remote version %d)", e.RemoteID, e.RemoteVersion)
}
