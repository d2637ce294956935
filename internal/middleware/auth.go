package middleware // middleware provides shared request processing for handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/restaurant-order-platform/internal/auth"
)

// Machine-readable rejection reasons. The UI layer branches on these: an
// expired token triggers a silent re-login, a revoked one a warning, a
// malformed one is treated as corrupted client state. They must never be
// collapsed into one generic 401.
const (
	ReasonNoToken      = "NO_TOKEN"
	ReasonTokenRevoked = "TOKEN_REVOKED"
	ReasonTokenExpired = "TOKEN_EXPIRED"
	ReasonInvalidToken = "INVALID_TOKEN"
	ReasonForbidden    = "FORBIDDEN"
	ReasonUpstream     = "UPSTREAM_UNAVAILABLE"
)

// Context keys populated by SessionAuth for downstream middleware/handlers.
const (
	CtxPrincipalID = "principal_id" // uint64
	CtxEmail       = "email"        // string
	CtxRole        = "role"         // string
	CtxToken       = "token"        // string, the raw bearer token
)

func reject(c echo.Context, status int, msg, reason string) error {
	return c.JSON(status, echo.Map{"success": false, "message": msg, "error": reason})
}

// SessionAuth returns the access-gate middleware for protected routes. Per
// request it (1) extracts the bearer token, (2) consults the revocation
// ledger, (3) verifies signature and expiry, then injects the claims into
// the context. The ledger check fails closed: when the store cannot answer,
// the request is rejected with a retriable 503 rather than admitted.
func SessionAuth(codec *auth.Codec, ledger *auth.RevocationLedger, storeTimeout time.Duration) echo.MiddlewareFunc {
	return sessionAuth(codec, ledger, storeTimeout, false)
}

// OptionalSessionAuth behaves like SessionAuth but lets requests without an
// Authorization header through anonymously. A present-but-bad token is still
// rejected; optional means "identity optional", not "garbage tolerated".
func OptionalSessionAuth(codec *auth.Codec, ledger *auth.RevocationLedger, storeTimeout time.Duration) echo.MiddlewareFunc {
	return sessionAuth(codec, ledger, storeTimeout, true)
}

func sessionAuth(codec *auth.Codec, ledger *auth.RevocationLedger, storeTimeout time.Duration, optional bool) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			header := c.Request().Header.Get("Authorization")
			if !strings.HasPrefix(header, "Bearer ") {
				if optional {
					return next(c)
				}
				return reject(c, http.StatusUnauthorized, "missing bearer token", ReasonNoToken)
			}
			raw := strings.TrimPrefix(header, "Bearer ")
			if raw == "" {
				return reject(c, http.StatusUnauthorized, "missing bearer token", ReasonNoToken)
			}

			ctx, cancel := context.WithTimeout(c.Request().Context(), storeTimeout)
			defer cancel()

			revoked, err := ledger.IsRevoked(ctx, raw)
			if err != nil {
				c.Logger().Errorf("revocation check failed: %v", err)
				return reject(c, http.StatusServiceUnavailable, "cannot verify session, retry later", ReasonUpstream)
			}
			if revoked {
				return reject(c, http.StatusUnauthorized, "session revoked", ReasonTokenRevoked)
			}

			claims, err := codec.Verify(raw)
			if err != nil {
				if errors.Is(err, auth.ErrTokenExpired) {
					return reject(c, http.StatusUnauthorized, "session expired", ReasonTokenExpired)
				}
				return reject(c, http.StatusUnauthorized, "invalid token", ReasonInvalidToken)
			}

			c.Set(CtxPrincipalID, claims.PrincipalID)
			c.Set(CtxEmail, claims.Email)
			c.Set(CtxRole, claims.Role)
			c.Set(CtxToken, raw)
			return next(c)
		}
	}
}
