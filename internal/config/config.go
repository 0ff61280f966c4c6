// Package config loads the notice board settings from environment variables.
//
// Every key has a default, so an empty environment yields a runnable
// configuration with an in-memory reaction ledger. Malformed values (for
// example RATE_RPS=fast) are not silently replaced: Load reports them
// together with any range violations in a single joined error.
package config

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"
)

// CORSConfig lists the origins allowed to call the API. Empty means any.
type CORSConfig struct {
	AllowedOrigins []string
}

// SecurityConfig controls Strict-Transport-Security.
type SecurityConfig struct {
	EnableHSTS bool
	HSTSMaxAge time.Duration
}

// OTELConfig configures trace export over OTLP/gRPC.
type OTELConfig struct {
	Enabled     bool    // OTEL_ENABLED
	Endpoint    string  // OTEL_EXPORTER_OTLP_ENDPOINT, host:port
	Insecure    bool    // OTEL_EXPORTER_OTLP_INSECURE
	ServiceName string  // OTEL_SERVICE_NAME
	SampleRatio float64 // OTEL_TRACES_SAMPLER_ARG in [0,1]
}

// IdempotencyConfig tunes the in-memory reaction deduplication guard.
type IdempotencyConfig struct {
	TTL           time.Duration // how long a key is remembered
	SweepInterval time.Duration // period of the expiry sweep
	SweepBatch    int           // max evictions per lock hold
	ReleaseOnMiss bool          // forget the key when the announcement does not exist
}

// Config is the full set of runtime settings.
type Config struct {
	Port              string
	ReadTimeout       time.Duration
	ReadHeaderTimeout time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
	ShutdownTimeout   time.Duration
	MaxHeaderBytes    int
	MaxBodyBytes      int64
	GinMode           string // debug|release|test

	LogLevel       string // debug|info|warn|error|fatal|panic
	LogPretty      bool
	SwaggerEnabled bool
	APIBasePath    string

	LedgerEnabled bool
	LedgerDSN     string // SQLite path or URI

	TitleMaxLen     int // runes
	CommentMaxRunes int // runes

	RateRPS   float64
	RateBurst int

	CORS        CORSConfig
	Security    SecurityConfig
	Idempotency IdempotencyConfig
	OTEL        OTELConfig
}

const defaultLedgerDSN = "file:noticeboard?mode=memory&cache=shared"

// MustLoad is Load for program entry points; it panics on error.
func MustLoad() Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// Load reads the environment, normalizes the result and validates it. The
// returned Config is populated even when err is non-nil.
func Load() (Config, error) {
	e := &envReader{}
	cfg := Config{
		Port:              e.str("PORT", "8080"),
		ReadTimeout:       e.duration("READ_TIMEOUT", 15*time.Second),
		ReadHeaderTimeout: e.duration("READ_HEADER_TIMEOUT", 10*time.Second),
		WriteTimeout:      e.duration("WRITE_TIMEOUT", 20*time.Second),
		IdleTimeout:       e.duration("IDLE_TIMEOUT", time.Minute),
		ShutdownTimeout:   e.duration("SHUTDOWN_TIMEOUT", 10*time.Second),
		MaxHeaderBytes:    e.integer("MAX_HEADER_BYTES", 1<<20),
		MaxBodyBytes:      int64(e.integer("MAX_BODY_BYTES", 1<<20)),
		GinMode:           e.str("GIN_MODE", "release"),

		LogLevel:       e.str("LOG_LEVEL", "info"),
		LogPretty:      e.flag("LOG_PRETTY", false),
		SwaggerEnabled: e.flag("SWAGGER_ENABLED", false),
		APIBasePath:    e.str("API_BASE_PATH", "/api/v1"),

		LedgerEnabled: e.flag("LEDGER_ENABLED", true),
		LedgerDSN:     e.str("LEDGER_DSN", defaultLedgerDSN),

		TitleMaxLen:     e.integer("TITLE_MAX_LEN", 200),
		CommentMaxRunes: e.integer("COMMENT_MAX_RUNES", 2000),

		RateRPS:   e.float("RATE_RPS", 5),
		RateBurst: e.integer("RATE_BURST", 10),

		CORS: CORSConfig{AllowedOrigins: splitCSV(e.str("CORS_ALLOWED_ORIGINS", ""))},
		Security: SecurityConfig{
			EnableHSTS: e.flag("ENABLE_HSTS", false),
			HSTSMaxAge: e.duration("HSTS_MAX_AGE", 180*24*time.Hour),
		},
		Idempotency: IdempotencyConfig{
			TTL:           e.duration("IDEMPOTENCY_TTL", 5*time.Minute),
			SweepInterval: e.duration("IDEMPOTENCY_SWEEP_INTERVAL", time.Minute),
			SweepBatch:    e.integer("IDEMPOTENCY_SWEEP_BATCH", 256),
			ReleaseOnMiss: e.flag("IDEMPOTENCY_RELEASE_ON_MISS", true),
		},
		OTEL: OTELConfig{
			Enabled:     e.flag("OTEL_ENABLED", false),
			Endpoint:    e.str("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			Insecure:    e.flag("OTEL_EXPORTER_OTLP_INSECURE", true),
			ServiceName: e.str("OTEL_SERVICE_NAME", "noticeboard"),
			SampleRatio: e.float("OTEL_TRACES_SAMPLER_ARG", 1),
		},
	}
	cfg.normalize()
	return cfg, errors.Join(e.err(), cfg.Validate())
}

// Addr is the listen address for net.Listen.
func (c Config) Addr() string { return ":" + c.Port }

func (c *Config) normalize() {
	c.Port = strings.TrimSpace(c.Port)
	c.LogLevel = strings.ToLower(strings.TrimSpace(c.LogLevel))
	if c.LogLevel == "warning" {
		c.LogLevel = "warn"
	}
	c.GinMode = strings.ToLower(strings.TrimSpace(c.GinMode))
	switch c.GinMode {
	case "debug", "release", "test":
	default:
		c.GinMode = "release"
	}
	c.APIBasePath = normalizeBasePath(c.APIBasePath)
	c.LedgerDSN = strings.TrimSpace(c.LedgerDSN)
}

// Validate reports every range violation in c, joined. It returns nil for a
// usable configuration.
func (c Config) Validate() error {
	var errs []error
	require := func(ok bool, format string, args ...any) {
		if !ok {
			errs = append(errs, fmt.Errorf(format, args...))
		}
	}

	switch c.LogLevel {
	case "debug", "info", "warn", "error", "fatal", "panic":
	default:
		errs = append(errs, fmt.Errorf("LOG_LEVEL %q must be one of debug, info, warn, error, fatal, panic", c.LogLevel))
	}
	require(c.Port != "", "PORT must not be empty")
	for name, d := range map[string]time.Duration{
		"READ_TIMEOUT":        c.ReadTimeout,
		"READ_HEADER_TIMEOUT": c.ReadHeaderTimeout,
		"WRITE_TIMEOUT":       c.WriteTimeout,
		"IDLE_TIMEOUT":        c.IdleTimeout,
		"SHUTDOWN_TIMEOUT":    c.ShutdownTimeout,
	} {
		require(d > 0, "%s must be a positive duration, got %s", name, d)
	}
	require(c.MaxHeaderBytes > 0, "MAX_HEADER_BYTES must be > 0")
	require(c.MaxBodyBytes > 0, "MAX_BODY_BYTES must be > 0")
	require(!c.LedgerEnabled || c.LedgerDSN != "", "LEDGER_DSN must not be empty when LEDGER_ENABLED")
	require(c.TitleMaxLen >= 1, "TITLE_MAX_LEN must be >= 1")
	require(c.CommentMaxRunes >= 1, "COMMENT_MAX_RUNES must be >= 1")
	require(c.RateRPS >= 0, "RATE_RPS must be >= 0")
	require(c.RateBurst >= 1, "RATE_BURST must be >= 1")
	require(c.Security.HSTSMaxAge >= 0, "HSTS_MAX_AGE must be >= 0")
	require(c.Idempotency.TTL > 0, "IDEMPOTENCY_TTL must be > 0")
	require(c.Idempotency.SweepInterval > 0, "IDEMPOTENCY_SWEEP_INTERVAL must be > 0")
	require(c.Idempotency.SweepBatch >= 1, "IDEMPOTENCY_SWEEP_BATCH must be >= 1")
	require(c.OTEL.SampleRatio >= 0 && c.OTEL.SampleRatio <= 1, "OTEL_TRACES_SAMPLER_ARG must be in [0,1]")

	// Map iteration above is unordered; keep messages stable.
	sort.SliceStable(errs, func(i, j int) bool { return errs[i].Error() < errs[j].Error() })
	return errors.Join(errs...)
}

// envReader looks up typed values. Unset or empty keys take the default;
// values that fail to parse also take the default but are recorded.
type envReader struct {
	malformed []string
}

func (e *envReader) lookup(k string) (string, bool) {
	v, ok := os.LookupEnv(k)
	return v, ok && v != ""
}

func (e *envReader) bad(k, v string) {
	e.malformed = append(e.malformed, fmt.Sprintf("%s=%q", k, v))
}

func (e *envReader) err() error {
	if len(e.malformed) == 0 {
		return nil
	}
	return fmt.Errorf("malformed environment values: %s", strings.Join(e.malformed, ", "))
}

func (e *envReader) str(k, def string) string {
	if v, ok := e.lookup(k); ok {
		return v
	}
	return def
}

func (e *envReader) integer(k string, def int) int {
	v, ok := e.lookup(k)
	if !ok {
		return def
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		e.bad(k, v)
		return def
	}
	return n
}

func (e *envReader) float(k string, def float64) float64 {
	v, ok := e.lookup(k)
	if !ok {
		return def
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil {
		e.bad(k, v)
		return def
	}
	return f
}

func (e *envReader) duration(k string, def time.Duration) time.Duration {
	v, ok := e.lookup(k)
	if !ok {
		return def
	}
	d, err := time.ParseDuration(strings.TrimSpace(v))
	if err != nil {
		e.bad(k, v)
		return def
	}
	return d
}

func (e *envReader) flag(k string, def bool) bool {
	v, ok := e.lookup(k)
	if !ok {
		return def
	}
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "y", "on":
		return true
	case "0", "false", "no", "n", "off":
		return false
	}
	e.bad(k, v)
	return def
}

func splitCSV(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// normalizeBasePath yields "/" or a path with one leading and no trailing slash.
func normalizeBasePath(p string) string {
	p = strings.Trim(strings.TrimSpace(p), "/")
	if p == "" {
		return "/"
	}
	return "/" + p
}
