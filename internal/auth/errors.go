// Package auth implements the session and credential lifecycle core: the
// session token codec, the revocation ledger, the one-time-code broker and
// the rate governor. The three stateful components share a single Redis
// client (the shared fast store) and partition its keyspace by prefix.
package auth

import "errors"

// ErrStoreUnavailable wraps any failure to reach the shared fast store.
// Callers must treat it as "cannot confirm" and fail closed: an unreachable
// store never grants extra trust.
var ErrStoreUnavailable = errors.New("shared store unavailable")
