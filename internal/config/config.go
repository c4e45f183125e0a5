// Package config loads application configuration from environment
// variables.
package config

import (
	"log"     // log is used to report configuration errors and halt execution
	"os"      // os provides access to environment variables
	"strconv" // strconv converts strings to other types
	"time"
)

// Config holds all runtime configuration values.  Each field
// corresponds to an environment variable.  Connectivity and secrets
// are required; the sale tunables default to the values the system
// was load-tested with.
type Config struct {
	Env  string // application environment (e.g. "dev", "prod")
	Port string // HTTP port to listen on

	DBUser string // database username
	DBPass string // database password (optional)
	DBHost string // database host address
	DBPort string // database port number
	DBName string // database name

	JWTSecret string // secret used to verify access tokens
	RabbitURL string // broker URL; empty falls back to log-only events

	QueueCapacity int           // maximum simultaneously ACTIVE queue entries
	QueueStrategy string        // admission strategy: mutex, rowlock, optimistic or named
	HoldTTL       time.Duration // seat hold lifetime
	RoundWindow   time.Duration // length of one sales round
	RoundEpoch    time.Time     // instant round 0 starts

	SweepInterval     time.Duration // how often expired holds are reclaimed
	PromoteInterval   time.Duration // how often the queue is promoted in the background
	LockTimeout       time.Duration // row-lock and advisory-lock acquisition bound
	EnterMaxRetries   int           // optimistic admission attempts before queueing
	EnterRetryBackoff time.Duration // base backoff between optimistic attempts
}

// defaultRoundEpoch anchors round 0 when ROUND_EPOCH is unset.
var defaultRoundEpoch = time.Date(2025, 12, 9, 10, 0, 0, 0, time.UTC)

// Load reads configuration values from environment variables and
// returns a Config.  Required variables are enforced by must() and
// missing values cause the program to exit with a fatal log message.
func Load() Config {
	return Config{
		Env:    must("APP_ENV"),      // environment (dev/test/prod)
		Port:   must("APP_PORT"),     // port to bind the HTTP server
		DBUser: must("DB_USER"),      // database user
		DBPass: os.Getenv("DB_PASS"), // database password (empty allowed)
		DBHost: must("DB_HOST"),      // database host
		DBPort: must("DB_PORT"),      // database port
		DBName: must("DB_NAME"),      // database name

		JWTSecret: must("JWT_SECRET"),        // secret used to verify JWTs
		RabbitURL: os.Getenv("RABBITMQ_URL"), // optional broker

		QueueCapacity: envInt("QUEUE_CAPACITY", 50),
		QueueStrategy: envStr("QUEUE_STRATEGY", "named"),
		HoldTTL:       time.Duration(envInt("HOLD_SECONDS", 20)) * time.Second,
		RoundWindow:   envDur("ROUND_WINDOW", time.Minute),
		RoundEpoch:    envTime("ROUND_EPOCH", defaultRoundEpoch),

		SweepInterval:     envDur("SWEEP_INTERVAL", 2*time.Second),
		PromoteInterval:   envDur("PROMOTE_INTERVAL", 5*time.Second),
		LockTimeout:       envDur("LOCK_TIMEOUT", 3*time.Second),
		EnterMaxRetries:   envInt("ENTER_MAX_RETRIES", 3),
		EnterRetryBackoff: envDur("ENTER_RETRY_BACKOFF", 50*time.Millisecond),
	}
}

// must retrieves the value of a required environment variable.  If the
// variable is unset or empty, the application logs a fatal error and
// exits.
func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("missing required env var: %s", key)
	}
	return v
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

// envTime parses an RFC 3339 timestamp.
func envTime(k string, d time.Time) time.Time {
	v := os.Getenv(k)
	if v == "" {
		return d
	}
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t.UTC()
	}
	log.Fatalf("invalid timestamp for %s: %q", k, v)
	return d
}
