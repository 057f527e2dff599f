// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package adapter

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/go-resty/resty/v2"
)

// Failure is the explicit classification of a remote call outcome. The
// sync manager switches on it instead of using exceptions for expected
// unhappy paths.
type Failure int

const (
	// FailureNone means the call succeeded.
	FailureNone Failure = iota

	// FailureTransient means the call should be retried with backoff.
	FailureTransient

	// FailureConflict means the remote's version advanced; the conflict
	// resolver must run before retrying.
	FailureConflict

	// FailurePermanent means the remote rejected the call for good.
	FailurePermanent
)

// Classify maps an error returned by a [RemoteClient] method to its
// [Failure] kind. Unknown errors (including network-level failures and
// context deadlines) classify as transient: when in doubt, retry.
func Classify(err error) Failure {
	switch {
	case err == nil:
		return FailureNone
	case isConflict(err):
		return FailureConflict
	case errors.Is(err, ErrPermanent):
		return FailurePermanent
	default:
		return FailureTransient
	}
}

func isConflict(err error) bool {
	var conflict *ConflictError
	return errors.As(err, &conflict)
}

// mapRemoteError translates an HTTP response into the engine's error
// taxonomy. 409 responses are expected to carry the remote's current
// record state in the body.
func mapRemoteError(resp *resty.Response) error {
	code := resp.StatusCode()
	if code >= http.StatusOK && code < http.StatusMultipleChoices {
		return nil
	}

	if code == http.StatusConflict {
		conflict := &ConflictError{}
		if err := unmarshalBody(resp.Body(), conflict); err != nil {
			return fmt.Errorf("%w: malformed conflict body: %w", ErrTransient, err)
		}
		return conflict
	}

	body := bodyText(resp)
	if code >= http.StatusBadRequest && code < http.StatusInternalServerError &&
		code != http.StatusRequestTimeout && code != http.StatusTooManyRequests {
		return fmt.Errorf("%w: http %d: %s", ErrPermanent, code, body)
	}

	return fmt.Errorf("%w: http %d: %s", ErrTransient, code, body)
}
