package auth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const revocationKeyPrefix = "rvk"

// RevocationLedger records session tokens that must be treated as invalid
// before their natural expiry (logout). Entries live in the shared fast
// store under a SHA-256 fingerprint of the token and carry a TTL equal to
// the token's remaining lifetime, so the ledger never grows past the set of
// still-live tokens.
type RevocationLedger struct {
	rdb *redis.Client
	// defaultTTL sizes the entry when the token's own expiry cannot be
	// decoded. It equals the configured session lifetime: the longest a
	// legitimate token could still be valid.
	defaultTTL time.Duration
	now        func() time.Time
}

// NewRevocationLedger builds a ledger on the given store client. defaultTTL
// should be the configured session lifetime.
func NewRevocationLedger(rdb *redis.Client, defaultTTL time.Duration) *RevocationLedger {
	return &RevocationLedger{rdb: rdb, defaultTTL: defaultTTL, now: time.Now}
}

// WithClock replaces the ledger's time source. Intended for tests.
func (l *RevocationLedger) WithClock(now func() time.Time) *RevocationLedger {
	l.now = now
	return l
}

// fingerprint hashes the raw token so the ledger never stores a usable
// credential.
func fingerprint(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

func (l *RevocationLedger) key(token string) string {
	return revocationKeyPrefix + ":" + fingerprint(token)
}

// Revoke marks a token invalid for the rest of its lifetime. Undecodable
// tokens are still revoked, with the conservative default TTL. A token that
// has already passed its expiry needs no entry: the expiry check alone
// rejects it.
func (l *RevocationLedger) Revoke(ctx context.Context, token string) error {
	ttl := l.defaultTTL
	if exp, err := tokenExpiry(token); err == nil {
		remaining := exp.Sub(l.now().UTC())
		if remaining <= 0 {
			return nil
		}
		ttl = remaining
	}
	if err := l.rdb.Set(ctx, l.key(token), "1", ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

// IsRevoked reports whether the token has a live revocation entry. When the
// store cannot be reached the error is returned so the caller rejects the
// request instead of silently treating the token as not-revoked.
func (l *RevocationLedger) IsRevoked(ctx context.Context, token string) (bool, error) {
	n, err := l.rdb.Exists(ctx, l.key(token)).Result()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return n > 0, nil
}
