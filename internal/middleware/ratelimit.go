package middleware

import (
	"context"
	"errors"
	"math"
	"net/http"
	"net/netip"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/restaurant-order-platform/internal/auth"
	"github.com/iliyamo/restaurant-order-platform/internal/config"
)

// RateLimit returns a middleware enforcing one fixed-window quota through
// the governor. Mounted twice: once at the root with the global ceiling
// (before any token is decoded), and per-route with tight scoped quotas on
// sensitive operations. Exceeding a quota is an expected outcome and answers
// 429 with a retry hint; a store outage answers 503, because throttling that
// fails open stops throttling exactly when an attacker is hammering it.
func RateLimit(gov *auth.Governor, scope string, rl config.RateLimit, storeTimeout time.Duration) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			key := callerKey(c)

			ctx, cancel := context.WithTimeout(c.Request().Context(), storeTimeout)
			err := gov.Check(ctx, scope, key, rl.Limit, rl.Window)
			cancel()

			if err != nil {
				var limited *auth.RateLimitedError
				if errors.As(err, &limited) {
					secs := int(math.Ceil(limited.RetryAfter.Seconds()))
					if secs < 1 {
						secs = 1
					}
					c.Response().Header().Set("Retry-After", strconv.Itoa(secs))
					return c.JSON(http.StatusTooManyRequests, echo.Map{
						"success":     false,
						"message":     "rate limit exceeded",
						"error":       "RATE_LIMITED",
						"retry_after": secs,
					})
				}
				c.Logger().Errorf("rate check failed for scope=%s: %v", scope, err)
				return reject(c, http.StatusServiceUnavailable, "cannot check quota, retry later", ReasonUpstream)
			}

			c.Response().Header().Set("X-RateLimit-Limit", strconv.Itoa(rl.Limit))
			return next(c)
		}
	}
}

// callerKey prefers the authenticated principal id (present when the scoped
// limiter is mounted behind the gate) and falls back to the caller's network
// address. Addresses are normalized so IPv4-mapped IPv6 representations
// collapse onto their IPv4 form and cannot be used to dodge a counter.
func callerKey(c echo.Context) string {
	if pid, ok := c.Get(CtxPrincipalID).(uint64); ok && pid != 0 {
		return "p:" + strconv.FormatUint(pid, 10)
	}
	ip := c.RealIP()
	if addr, err := netip.ParseAddr(ip); err == nil {
		return "ip:" + addr.Unmap().String()
	}
	if ip == "" {
		ip = "unknown"
	}
	return "ip:" + ip
}
