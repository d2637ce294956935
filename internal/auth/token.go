package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Verification failures are reported as distinct kinds so the gate can keep
// expired, tampered and garbage tokens apart end to end.
var (
	ErrTokenExpired      = errors.New("token expired")
	ErrTokenBadSignature = errors.New("token signature invalid")
	ErrTokenMalformed    = errors.New("token malformed")
)

// Claims is the identity carried by a session token.
type Claims struct {
	PrincipalID uint64
	Email       string
	Role        string
	IssuedAt    time.Time
	ExpiresAt   time.Time
}

// SessionToken is a freshly issued bearer credential.
type SessionToken struct {
	Token     string
	ExpiresAt time.Time
}

// Codec issues and verifies signed HS256 session tokens. It has no side
// effects: validity is a pure function of the secret, the token and the
// clock. The clock is a field so tests can move time.
type Codec struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewCodec builds a Codec with the given signing secret and token lifetime.
func NewCodec(secret string, ttl time.Duration) *Codec {
	return &Codec{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// WithClock replaces the codec's time source. Intended for tests.
func (c *Codec) WithClock(now func() time.Time) *Codec {
	c.now = now
	return c
}

// Issue signs a session token for the given principal. Claims: subject (sub),
// email, role, issued-at (iat) and expiry (exp).
func (c *Codec) Issue(principalID uint64, email, role string) (SessionToken, error) {
	iat := c.now().UTC()
	exp := iat.Add(c.ttl)
	claims := jwt.MapClaims{
		"sub":   principalID,
		"email": email,
		"role":  role,
		"iat":   iat.Unix(),
		"exp":   exp.Unix(),
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := t.SignedString(c.secret)
	if err != nil {
		return SessionToken{}, err
	}
	return SessionToken{Token: signed, ExpiresAt: exp}, nil
}

// Verify validates signature and expiry and returns the embedded claims.
// Failures map onto exactly one of ErrTokenExpired, ErrTokenBadSignature or
// ErrTokenMalformed.
func (c *Codec) Verify(raw string) (Claims, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(func() time.Time { return c.now().UTC() }),
	)
	tok, err := parser.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		return c.secret, nil
	})
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return Claims{}, ErrTokenExpired
		case errors.Is(err, jwt.ErrTokenSignatureInvalid):
			return Claims{}, ErrTokenBadSignature
		default:
			return Claims{}, ErrTokenMalformed
		}
	}
	mc, ok := tok.Claims.(jwt.MapClaims)
	if !ok || !tok.Valid {
		return Claims{}, ErrTokenMalformed
	}

	out := Claims{}
	// Numeric JSON values decode as float64.
	if sub, ok := mc["sub"].(float64); ok {
		out.PrincipalID = uint64(sub)
	} else {
		return Claims{}, ErrTokenMalformed
	}
	if email, ok := mc["email"].(string); ok {
		out.Email = email
	}
	if role, ok := mc["role"].(string); ok {
		out.Role = role
	} else {
		return Claims{}, ErrTokenMalformed
	}
	if iat, err := mc.GetIssuedAt(); err == nil && iat != nil {
		out.IssuedAt = iat.Time
	}
	exp, err := mc.GetExpirationTime()
	if err != nil || exp == nil {
		return Claims{}, ErrTokenMalformed
	}
	out.ExpiresAt = exp.Time
	return out, nil
}

// tokenExpiry recovers the exp claim without verifying the signature. The
// revocation ledger uses it to size an entry's TTL; a tampered token is fine
// here because the ledger only needs an upper bound on remaining lifetime.
func tokenExpiry(raw string) (time.Time, error) {
	tok, _, err := jwt.NewParser().ParseUnverified(raw, jwt.MapClaims{})
	if err != nil {
		return time.Time{}, ErrTokenMalformed
	}
	exp, err := tok.Claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, ErrTokenMalformed
	}
	return exp.Time, nil
}
