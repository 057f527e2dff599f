// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package server

import "errors"

// errNoAdminTransport is returned when the configuration enables no
// admin listener at all.
var errNoAdminTransport = errors.New("no admin transport configured")
