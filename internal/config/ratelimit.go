package config

import "time"

// RateLimit is one fixed-window quota: at most Limit requests per Window.
type RateLimit struct {
	Limit  int
	Window time.Duration
}

// RateLimitConfig carries the global ceiling applied to all traffic plus the
// per-scope quotas for sensitive operations. Each scope can be tuned
// independently via RATE_<SCOPE>_LIMIT / RATE_<SCOPE>_WINDOW.
type RateLimitConfig struct {
	Prefix string // key prefix in the shared fast store

	Global   RateLimit // every request, any identity
	Login    RateLimit // credential checks
	Register RateLimit // customer sign-up
	Reset    RateLimit // password-reset requests
	Onboard  RateLimit // tenant onboarding
	Staff    RateLimit // staff account creation
}

// LoadRateLimitConfig reads the rate-limiting quotas from the environment.
// Defaults keep the sensitive scopes tight (brute-force prevention) while the
// global ceiling only catches floods.
func LoadRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		Prefix:   envStr("RATE_LIMIT_PREFIX", "rl"),
		Global:   scopeFromEnv("GLOBAL", RateLimit{Limit: 300, Window: time.Minute}),
		Login:    scopeFromEnv("LOGIN", RateLimit{Limit: 5, Window: 10 * time.Minute}),
		Register: scopeFromEnv("REGISTER", RateLimit{Limit: 10, Window: time.Hour}),
		Reset:    scopeFromEnv("RESET", RateLimit{Limit: 5, Window: 15 * time.Minute}),
		Onboard:  scopeFromEnv("ONBOARD", RateLimit{Limit: 10, Window: time.Hour}),
		Staff:    scopeFromEnv("STAFF", RateLimit{Limit: 20, Window: time.Hour}),
	}
}

func scopeFromEnv(name string, def RateLimit) RateLimit {
	out := RateLimit{
		Limit:  envInt("RATE_"+name+"_LIMIT", def.Limit),
		Window: envDur("RATE_"+name+"_WINDOW", def.Window),
	}
	if out.Limit < 1 {
		out.Limit = 1
	}
	if out.Window <= 0 {
		out.Window = def.Window
	}
	return out
}
