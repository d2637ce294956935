package config // package config loads application configuration from environment variables

import (
	"log"
	"os"
	"strconv"
	"time"
)

// Config holds all runtime configuration values. Each field corresponds to an
// environment variable. Required variables are enforced by must() and missing
// values cause the program to exit with a fatal log message.
type Config struct {
	Env    string // application environment (e.g. "dev", "prod")
	Port   string // HTTP port to listen on
	DBUser string // database username
	DBPass string // database password (optional)
	DBHost string // database host address
	DBPort string // database port number
	DBName string // database name

	JWTSecret  string        // secret used to sign session tokens
	SessionTTL time.Duration // lifetime of an issued session token
	BcryptCost int           // bcrypt cost for password hashing

	VerifyCodeTTL time.Duration // lifetime of an email-verification code
	ResetCodeTTL  time.Duration // lifetime of a password-reset code

	// StoreTimeout bounds every round-trip to the shared fast store so a
	// slow or unreachable Redis never hangs a request.
	StoreTimeout time.Duration

	// MailLinkBase is the public base URL embedded in verification links
	// sent by email, e.g. "https://app.example.com/verify".
	MailLinkBase string
}

// Load reads configuration values from environment variables and returns a
// Config. Optional values fall back to conservative defaults.
func Load() Config {
	return Config{
		Env:           must("APP_ENV"),
		Port:          must("APP_PORT"),
		DBUser:        must("DB_USER"),
		DBPass:        os.Getenv("DB_PASS"),
		DBHost:        must("DB_HOST"),
		DBPort:        must("DB_PORT"),
		DBName:        must("DB_NAME"),
		JWTSecret:     must("JWT_SECRET"),
		SessionTTL:    time.Duration(envInt("SESSION_TTL_HOURS", 24)) * time.Hour,
		BcryptCost:    mustInt("BCRYPT_COST"),
		VerifyCodeTTL: envDur("VERIFY_CODE_TTL", 5*time.Minute),
		ResetCodeTTL:  envDur("RESET_CODE_TTL", 15*time.Minute),
		StoreTimeout:  envDur("STORE_TIMEOUT", 2*time.Second),
		MailLinkBase:  envStr("MAIL_LINK_BASE", "http://localhost:8080/verify"),
	}
}

// must retrieves the value of a required environment variable. If the
// variable is unset or empty, the application logs a fatal error and exits.
func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("missing required env var: %s", key)
	}
	return v
}

// mustInt is like must() but converts the retrieved string into an integer.
func mustInt(key string) int {
	s := must(key)
	n, err := strconv.Atoi(s)
	if err != nil {
		log.Fatalf("invalid int for %s: %q", key, s)
	}
	return n
}

func envStr(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

func envInt(k string, d int) int {
	v := os.Getenv(k)
	if v == "" {
		return d
	}
	if n, err := strconv.Atoi(v); err == nil {
		return n
	}
	return d
}

func envDur(k string, d time.Duration) time.Duration {
	v := os.Getenv(k)
	if v == "" {
		return d
	}
	if dur, err := time.ParseDuration(v); err == nil {
		return dur
	}
	return d
}
