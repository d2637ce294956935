package auth

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"math/big"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// Purposes a one-time code can be issued for. Each (principal, purpose) pair
// has at most one live record; issuing again overwrites the previous one.
const (
	PurposeVerifyEmail   = "verify-email"
	PurposeResetPassword = "reset-password"
)

const otpKeyPrefix = "otp"

var (
	// ErrCodeNotFound means no live record exists: it expired, was already
	// consumed, or was never issued. Callers cannot tell which, on purpose.
	ErrCodeNotFound = errors.New("one-time code not found")
	// ErrBadCode means the record exists but the 6-digit code did not match.
	ErrBadCode = errors.New("one-time code mismatch")
	// ErrBadToken means the record exists but the opaque token did not match.
	ErrBadToken = errors.New("verification token mismatch")
)

// OneTimeCode is an issued code/token pair. The numeric code travels only by
// email; the opaque token rides the verification link and API responses.
// Proving control of the email address requires presenting both.
type OneTimeCode struct {
	Code      string
	Token     string
	ExpiresAt time.Time
}

// Mailer delivers an issued code out of band. Implementations must be safe
// for concurrent use; delivery failures never roll back issuance.
type Mailer interface {
	SendOneTimeCode(ctx context.Context, email, purpose, code, token string) error
}

type otpRecord struct {
	Code  string `json:"code"`
	Token string `json:"token"`
}

// CodeBroker issues and validates short-lived email-verification and
// password-reset codes, backed by the shared fast store.
type CodeBroker struct {
	rdb       *redis.Client
	verifyTTL time.Duration
	resetTTL  time.Duration
	mailer    Mailer // may be nil; then issuance is silent
	now       func() time.Time
}

// NewCodeBroker builds a broker with per-purpose record lifetimes.
func NewCodeBroker(rdb *redis.Client, verifyTTL, resetTTL time.Duration, mailer Mailer) *CodeBroker {
	return &CodeBroker{rdb: rdb, verifyTTL: verifyTTL, resetTTL: resetTTL, mailer: mailer, now: time.Now}
}

// WithClock replaces the broker's time source. Intended for tests.
func (b *CodeBroker) WithClock(now func() time.Time) *CodeBroker {
	b.now = now
	return b
}

func (b *CodeBroker) key(purpose string, principalID uint64) string {
	return otpKeyPrefix + ":" + purpose + ":" + strconv.FormatUint(principalID, 10)
}

func (b *CodeBroker) ttl(purpose string) time.Duration {
	if purpose == PurposeResetPassword {
		return b.resetTTL
	}
	return b.verifyTTL
}

// Issue creates a fresh code/token pair for (principal, purpose), replacing
// any pending record, and triggers the out-of-band email. Concurrent issues
// for the same pair race last-write-wins; only the final pair verifies.
func (b *CodeBroker) Issue(ctx context.Context, principalID uint64, purpose, email string) (OneTimeCode, error) {
	code, err := numericCode(6)
	if err != nil {
		return OneTimeCode{}, err
	}
	token, err := randomHex(32)
	if err != nil {
		return OneTimeCode{}, err
	}
	ttl := b.ttl(purpose)

	payload, err := json.Marshal(otpRecord{Code: code, Token: token})
	if err != nil {
		return OneTimeCode{}, err
	}
	if err := b.rdb.Set(ctx, b.key(purpose, principalID), payload, ttl).Err(); err != nil {
		return OneTimeCode{}, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	// Fire-and-forget delivery: the record is live regardless of whether
	// the mail makes it out.
	if b.mailer != nil {
		go func() {
			if err := b.mailer.SendOneTimeCode(context.Background(), email, purpose, code, token); err != nil {
				log.Printf("otp: mail delivery failed for %s: %v", purpose, err)
			}
		}()
	}

	return OneTimeCode{Code: code, Token: token, ExpiresAt: b.now().UTC().Add(ttl)}, nil
}

func (b *CodeBroker) load(ctx context.Context, purpose string, principalID uint64) (otpRecord, error) {
	data, err := b.rdb.Get(ctx, b.key(purpose, principalID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return otpRecord{}, ErrCodeNotFound
		}
		return otpRecord{}, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	var rec otpRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return otpRecord{}, ErrCodeNotFound
	}
	return rec, nil
}

// VerifyToken checks only the opaque token against the pending record, as the
// emailed link does before the user types the code. The record stays live.
func (b *CodeBroker) VerifyToken(ctx context.Context, principalID uint64, purpose, token string) error {
	rec, err := b.load(ctx, purpose, principalID)
	if err != nil {
		return err
	}
	if subtle.ConstantTimeCompare([]byte(rec.Token), []byte(token)) != 1 {
		return ErrBadToken
	}
	return nil
}

// VerifyCode checks code AND token and consumes the record on success. Both
// comparisons always run, constant-time, before a verdict is picked so the
// specific failure is reported without leaking via timing or short-circuit:
// a wrong code surfaces ErrBadCode even when the token is also wrong.
func (b *CodeBroker) VerifyCode(ctx context.Context, principalID uint64, purpose, code, token string) error {
	rec, err := b.load(ctx, purpose, principalID)
	if err != nil {
		return err
	}

	codeOK := subtle.ConstantTimeCompare([]byte(rec.Code), []byte(code)) == 1
	tokenOK := subtle.ConstantTimeCompare([]byte(rec.Token), []byte(token)) == 1
	if !codeOK {
		return ErrBadCode
	}
	if !tokenOK {
		return ErrBadToken
	}

	// Single use: the record must be gone before the caller acts on the
	// verification, otherwise a replay window opens.
	if err := b.rdb.Del(ctx, b.key(purpose, principalID)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

// numericCode returns n cryptographically random decimal digits, left-padded
// with zeros.
func numericCode(n int) (string, error) {
	max := big.NewInt(1)
	for i := 0; i < n; i++ {
		max.Mul(max, big.NewInt(10))
	}
	v, err := rand.Int(rand.Reader, max)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%0*d", n, v), nil
}

// randomHex returns a hex-encoded string generated from n bytes of
// cryptographically secure random data.
func randomHex(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
