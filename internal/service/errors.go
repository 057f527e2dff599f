package service

import "errors"

var (
	// ErrSyncInProgress is returned by SyncNow when a cycle is already
	// running. The caller's intent is satisfied by the running cycle.
	ErrSyncInProgress = errors.New("sync cycle already in progress")

	// ErrEngineOffline is returned by SyncNow when the remote is
	// unreachable even after a forced probe.
	ErrEngineOffline = errors.New("remote is unreachable")

	// ErrEmptyNaturalKey rejects a create without a business key.
	ErrEmptyNaturalKey = errors.New("natural key must not be empty")

	// ErrInvalidPayload rejects a payload that is not a JSON object.
	ErrInvalidPayload = errors.New("payload must be a JSON object")
)
