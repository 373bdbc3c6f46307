// Package config provides application configuration loaded from environment
// variables with defaults and validation. It centralizes application settings
// such as server timeouts, logging, storage backends, the classifier gateway,
// rate limiting, messaging and observability.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/tbourn/go-complaints-backend/internal/domain"
)

// CORSConfig defines Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string
}

// SecurityConfig defines security-related settings such as HSTS.
type SecurityConfig struct {
	EnableHSTS bool
	HSTSMaxAge time.Duration
}

// OTELConfig defines OpenTelemetry observability settings.
type OTELConfig struct {
	Enabled     bool    // OTEL_ENABLED
	Endpoint    string  // OTEL_EXPORTER_OTLP_ENDPOINT (e.g. "otel:4317")
	Insecure    bool    // OTEL_EXPORTER_OTLP_INSECURE (true if no TLS)
	ServiceName string  // OTEL_SERVICE_NAME (e.g. "go-complaints-backend")
	SampleRatio float64 // OTEL_TRACES_SAMPLER_ARG in [0..1]
}

// DBConfig selects and locates the complaint store.
type DBConfig struct {
	Driver      string // DB_DRIVER: sqlite|postgres|mongo
	Path        string // DB_PATH (sqlite)
	URL         string // DATABASE_URL (postgres)
	MongoURI    string // MONGO_URI
	MongoDBName string // MONGO_DB_NAME
}

// ClassifierConfig configures the classifier gateway.
type ClassifierConfig struct {
	Mode     string        // CLASSIFIER_MODE: local|remote
	URL      string        // CLASSIFIER_URL (remote)
	Timeout  time.Duration // CLASSIFIER_TIMEOUT (remote)
	Corpus   string        // CLASSIFIER_CORPUS: optional corpus file (local)
	Fallback string        // CLASSIFIER_FALLBACK: category used when nothing matches (local)
	TopK     int           // CLASSIFIER_TOPK (local)
}

// AuthConfig configures request identity.
type AuthConfig struct {
	JWTSecret string // JWT_SECRET; empty enables demo X-User-* headers
}

// RedisConfig locates the shared rate-limit store. Empty Addr keeps the
// in-memory limiter.
type RedisConfig struct {
	Addr     string // REDIS_ADDR
	Password string // REDIS_PASSWORD
	DB       int    // REDIS_DB
}

// RabbitConfig locates the event exchange. Empty URL disables publishing.
type RabbitConfig struct {
	URL      string // RABBIT_URL
	Exchange string // RABBIT_EXCHANGE
}

// Config holds all configuration values for the application.
type Config struct {
	// Server
	Port              string        // just the number
	ReadTimeout       time.Duration // e.g. 15s
	ReadHeaderTimeout time.Duration // e.g. 10s
	WriteTimeout      time.Duration // e.g. 20s
	IdleTimeout       time.Duration // e.g. 60s
	MaxHeaderBytes    int           // bytes
	GinMode           string        // debug|release|test

	// Logging / Docs
	LogLevel       string // debug|info|warn|error|fatal|panic
	LogPretty      bool   // pretty console logs in dev
	SwaggerEnabled bool   // enable Swagger UI route
	APIBasePath    string // base path for API routes

	// App
	DB           DBConfig
	Classifier   ClassifierConfig
	Auth         AuthConfig
	Timezone     string // TIMEZONE: IANA name for date filters; empty = server local
	MaxTextRunes int    // MAX_TEXT_RUNES: complaint text limit

	// Messaging
	Redis  RedisConfig
	Rabbit RabbitConfig

	// Rate limiting
	RateRPS   float64 // tokens per second (>= 0)
	RateBurst int     // bucket size (>= 1)

	// Web protection
	CORS     CORSConfig
	Security SecurityConfig

	// Idempotency
	IdempotencyTTL time.Duration // how long a given Idempotency-Key is valid

	// Observability
	OTEL OTELConfig
}

// MustLoad loads the configuration and panics if validation fails.
func MustLoad() Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// Load reads configuration from environment variables,
// applies defaults, normalizes values, and validates the result.
func Load() (Config, error) {
	cfg := Config{
		// Server
		Port:              getenv("PORT", "8080"),
		ReadTimeout:       getdur("READ_TIMEOUT", 15*time.Second),
		ReadHeaderTimeout: getdur("READ_HEADER_TIMEOUT", 10*time.Second),
		WriteTimeout:      getdur("WRITE_TIMEOUT", 20*time.Second),
		IdleTimeout:       getdur("IDLE_TIMEOUT", 60*time.Second),
		MaxHeaderBytes:    getint("MAX_HEADER_BYTES", 1<<20),
		GinMode:           strings.ToLower(getenv("GIN_MODE", "release")),

		// Logging / Docs
		LogLevel:       strings.ToLower(getenv("LOG_LEVEL", "info")),
		LogPretty:      getbool("LOG_PRETTY", false),
		SwaggerEnabled: getbool("SWAGGER_ENABLED", false),
		APIBasePath:    normalizeBasePath(getenv("API_BASE_PATH", "/api/v1")),

		// App
		DB: DBConfig{
			Driver:      strings.ToLower(getenv("DB_DRIVER", "sqlite")),
			Path:        getenv("DB_PATH", "complaints.db"),
			URL:         getenv("DATABASE_URL", ""),
			MongoURI:    getenv("MONGO_URI", ""),
			MongoDBName: getenv("MONGO_DB_NAME", "complaints"),
		},
		Classifier: ClassifierConfig{
			Mode:     strings.ToLower(getenv("CLASSIFIER_MODE", "local")),
			URL:      getenv("CLASSIFIER_URL", ""),
			Timeout:  getdur("CLASSIFIER_TIMEOUT", 5*time.Second),
			Corpus:   getenv("CLASSIFIER_CORPUS", ""),
			Fallback: getenv("CLASSIFIER_FALLBACK", ""),
			TopK:     getint("CLASSIFIER_TOPK", 5),
		},
		Auth: AuthConfig{
			JWTSecret: getenv("JWT_SECRET", ""),
		},
		Timezone:     getenv("TIMEZONE", ""),
		MaxTextRunes: getint("MAX_TEXT_RUNES", 2000),

		// Messaging
		Redis: RedisConfig{
			Addr:     getenv("REDIS_ADDR", ""),
			Password: getenv("REDIS_PASSWORD", ""),
			DB:       getint("REDIS_DB", 0),
		},
		Rabbit: RabbitConfig{
			URL:      getenv("RABBIT_URL", ""),
			Exchange: getenv("RABBIT_EXCHANGE", "complaints"),
		},

		// Rate limiting
		RateRPS:   getfloat("RATE_RPS", 5.0),
		RateBurst: getint("RATE_BURST", 10),

		// Web protection
		CORS: CORSConfig{
			AllowedOrigins: splitCSV(getenv("CORS_ALLOWED_ORIGINS", "")),
		},
		Security: SecurityConfig{
			EnableHSTS: getbool("ENABLE_HSTS", false),
			HSTSMaxAge: getdur("HSTS_MAX_AGE", 180*24*time.Hour),
		},

		// Idempotency
		IdempotencyTTL: getdur("IDEMPOTENCY_TTL", 24*time.Hour),

		// Observability (OpenTelemetry)
		OTEL: OTELConfig{
			Enabled:     getbool("OTEL_ENABLED", false),
			Endpoint:    getenv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			Insecure:    getbool("OTEL_EXPORTER_OTLP_INSECURE", true),
			ServiceName: getenv("OTEL_SERVICE_NAME", "go-complaints-backend"),
			SampleRatio: getfloat("OTEL_TRACES_SAMPLER_ARG", 1.0),
		},
	}

	if cfg.LogLevel == "warning" {
		cfg.LogLevel = "warn"
	}
	switch cfg.GinMode {
	case "debug", "release", "test":
	default:
		cfg.GinMode = "release"
	}

	// Every section is checked so one failed start reports all problems.
	err := errors.Join(
		cfg.validateServer(),
		cfg.DB.validate(),
		cfg.Classifier.validate(),
		cfg.validateApp(),
		cfg.validateLimits(),
	)
	return cfg, err
}

func (c Config) validateServer() error {
	var errs []error
	switch c.LogLevel {
	case "debug", "info", "warn", "error", "fatal", "panic":
	default:
		errs = append(errs, errors.New("LOG_LEVEL must be one of: debug, info, warn, error, fatal, panic"))
	}
	if strings.TrimSpace(c.Port) == "" {
		errs = append(errs, errors.New("PORT must not be empty"))
	}
	if c.ReadTimeout <= 0 || c.ReadHeaderTimeout <= 0 || c.WriteTimeout <= 0 || c.IdleTimeout <= 0 {
		errs = append(errs, errors.New("timeouts must be positive durations"))
	}
	if c.MaxHeaderBytes <= 0 {
		errs = append(errs, errors.New("MAX_HEADER_BYTES must be > 0"))
	}
	return errors.Join(errs...)
}

func (d DBConfig) validate() error {
	switch d.Driver {
	case "sqlite":
		if strings.TrimSpace(d.Path) == "" {
			return errors.New("DB_PATH must not be empty")
		}
	case "postgres":
		if strings.TrimSpace(d.URL) == "" {
			return errors.New("DATABASE_URL is required when DB_DRIVER=postgres")
		}
	case "mongo":
		if strings.TrimSpace(d.MongoURI) == "" {
			return errors.New("MONGO_URI is required when DB_DRIVER=mongo")
		}
	default:
		return errors.New("DB_DRIVER must be one of: sqlite, postgres, mongo")
	}
	return nil
}

// validate also canonicalizes Fallback to the category's display name.
func (c *ClassifierConfig) validate() error {
	switch c.Mode {
	case "local":
		if c.Fallback != "" {
			cat, err := domain.ParseCategory(c.Fallback)
			if err != nil {
				return fmt.Errorf("CLASSIFIER_FALLBACK: %w", err)
			}
			c.Fallback = string(cat)
		}
		if c.TopK < 1 {
			return errors.New("CLASSIFIER_TOPK must be >= 1")
		}
	case "remote":
		if strings.TrimSpace(c.URL) == "" {
			return errors.New("CLASSIFIER_URL is required when CLASSIFIER_MODE=remote")
		}
		if c.Timeout <= 0 {
			return errors.New("CLASSIFIER_TIMEOUT must be > 0")
		}
	default:
		return errors.New("CLASSIFIER_MODE must be one of: local, remote")
	}
	return nil
}

func (c Config) validateApp() error {
	var errs []error
	if c.Timezone != "" {
		if _, err := time.LoadLocation(c.Timezone); err != nil {
			errs = append(errs, fmt.Errorf("TIMEZONE: %w", err))
		}
	}
	if c.MaxTextRunes < 1 {
		errs = append(errs, errors.New("MAX_TEXT_RUNES must be >= 1"))
	}
	if c.IdempotencyTTL <= 0 {
		errs = append(errs, errors.New("IDEMPOTENCY_TTL must be > 0"))
	}
	return errors.Join(errs...)
}

func (c Config) validateLimits() error {
	var errs []error
	if c.RateRPS < 0 {
		errs = append(errs, errors.New("RATE_RPS must be >= 0"))
	}
	if c.RateBurst < 1 {
		errs = append(errs, errors.New("RATE_BURST must be >= 1"))
	}
	if c.Security.HSTSMaxAge < 0 {
		errs = append(errs, errors.New("HSTS_MAX_AGE must be >= 0"))
	}
	if c.OTEL.SampleRatio < 0 || c.OTEL.SampleRatio > 1 {
		errs = append(errs, errors.New("OTEL_TRACES_SAMPLER_ARG must be in [0,1]"))
	}
	return errors.Join(errs...)
}

// Location resolves Timezone, falling back to time.Local.
func (c Config) Location() *time.Location {
	if c.Timezone == "" {
		return time.Local
	}
	if loc, err := time.LoadLocation(c.Timezone); err == nil {
		return loc
	}
	return time.Local
}

// lookup returns the variable's value; unset and empty are treated alike.
func lookup(k string) (string, bool) {
	v, ok := os.LookupEnv(k)
	return v, ok && v != ""
}

func getenv(k, def string) string {
	if v, ok := lookup(k); ok {
		return v
	}
	return def
}

// parsed reads k through parse, keeping def when unset or malformed.
func parsed[T any](k string, def T, parse func(string) (T, error)) T {
	v, ok := lookup(k)
	if !ok {
		return def
	}
	out, err := parse(v)
	if err != nil {
		return def
	}
	return out
}

func getfloat(k string, def float64) float64 {
	return parsed(k, def, func(s string) (float64, error) { return strconv.ParseFloat(s, 64) })
}

func getint(k string, def int) int { return parsed(k, def, strconv.Atoi) }

func getdur(k string, def time.Duration) time.Duration { return parsed(k, def, time.ParseDuration) }

func getbool(k string, def bool) bool {
	return parsed(k, def, func(s string) (bool, error) {
		switch strings.ToLower(strings.TrimSpace(s)) {
		case "1", "true", "yes", "y", "on":
			return true, nil
		case "0", "false", "no", "n", "off":
			return false, nil
		}
		return false, errors.New("not a boolean")
	})
}

func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		t := strings.TrimSpace(p)
		if t != "" {
			out = append(out, t)
		}
	}
	return out
}

// normalizeBasePath ensures leading '/' and strips trailing '/' (except root).
func normalizeBasePath(p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return "/"
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	if len(p) > 1 && strings.HasSuffix(p, "/") {
		p = strings.TrimRight(p, "/")
	}
	return p
}
