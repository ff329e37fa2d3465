// Package config provides application configuration loaded from environment
// variables with defaults and validation. It centralizes server timeouts,
// logging, the code ledger and session store backends, the messaging and
// extraction providers, rate limiting and observability.
package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"
)

// Session store backends.
const (
	SessionRedis  = "redis"
	SessionSQL    = "sql"
	SessionMemory = "memory"
)

// Extractor modes.
const (
	ExtractorLLM   = "llm"
	ExtractorRules = "rules"
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
	ServiceName string  // OTEL_SERVICE_NAME (e.g. "go-contest-bot")
	SampleRatio float64 // OTEL_TRACES_SAMPLER_ARG in [0..1]
}

// SessionConfig selects and tunes the session store.
type SessionConfig struct {
	Backend   string        // SESSION_BACKEND: redis|sql|memory
	RedisURL  string        // REDIS_URL
	TTL       time.Duration // SESSION_TTL, inactivity window
	KeyPrefix string        // SESSION_KEY_PREFIX
}

// WebhookConfig holds the inbound webhook secrets.
type WebhookConfig struct {
	VerifyToken string // WEBHOOK_VERIFY_TOKEN, GET handshake
	AppSecret   string // WEBHOOK_APP_SECRET, optional POST signature key
}

// WhatsAppConfig holds the outbound messaging credentials. An empty
// AccessToken selects the log notifier.
type WhatsAppConfig struct {
	APIURL        string
	PhoneNumberID string
	AccessToken   string
}

// ExtractorConfig selects the field extractor.
type ExtractorConfig struct {
	Mode       string // EXTRACTOR_MODE: llm|rules
	APIKey     string // LLM_API_KEY
	BaseURL    string // LLM_BASE_URL, OpenAI-compatible endpoint
	Model      string // LLM_MODEL
	Fallback   bool   // EXTRACTOR_FALLBACK, rules on LLM failure
	CitiesPath string // CITIES_PATH, optional gazetteer
}

// EmailConfig holds winner email settings. An empty ResendAPIKey selects the
// log mailer.
type EmailConfig struct {
	ResendAPIKey string
	From         string
	FromName     string
}

// ContestConfig holds the user-facing contest texts.
type ContestConfig struct {
	Name     string // CONTEST_NAME
	TermsURL string // TERMS_URL
	MaxDraw  int    // MAX_DRAW, winners per draw
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
	APIBasePath    string // base path for the admin API

	// Code ledger
	DBDriver string // sqlite|postgres
	DBDSN    string // file path or postgres DSN

	Session     SessionConfig
	CallTimeout time.Duration // bound for each store/extractor/notifier call
	Webhook     WebhookConfig
	WhatsApp    WhatsAppConfig
	Extractor   ExtractorConfig
	Email       EmailConfig
	Contest     ContestConfig

	// Rate limiting (admin API)
	RateRPS   float64 // tokens per second (>= 0)
	RateBurst int     // bucket size (>= 1)

	// Web protection
	CORS     CORSConfig
	Security SecurityConfig

	// IdempotencyTTL is the dedup window for inbound deliveries and admin
	// draw replays.
	IdempotencyTTL time.Duration

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

		// Code ledger
		DBDriver: strings.ToLower(getenv("DB_DRIVER", "sqlite")),
		DBDSN:    getenv("DB_DSN", "app.db"),

		Session: SessionConfig{
			Backend:   strings.ToLower(getenv("SESSION_BACKEND", SessionRedis)),
			RedisURL:  getenv("REDIS_URL", "redis://localhost:6379/0"),
			TTL:       getdur("SESSION_TTL", 30*time.Minute),
			KeyPrefix: getenv("SESSION_KEY_PREFIX", "session:"),
		},
		CallTimeout: getdur("CALL_TIMEOUT", 10*time.Second),
		Webhook: WebhookConfig{
			VerifyToken: getenv("WEBHOOK_VERIFY_TOKEN", ""),
			AppSecret:   getenv("WEBHOOK_APP_SECRET", ""),
		},
		WhatsApp: WhatsAppConfig{
			APIURL:        strings.TrimRight(getenv("WHATSAPP_API_URL", "https://graph.facebook.com/v20.0"), "/"),
			PhoneNumberID: getenv("WHATSAPP_PHONE_NUMBER_ID", ""),
			AccessToken:   getenv("WHATSAPP_ACCESS_TOKEN", ""),
		},
		Extractor: ExtractorConfig{
			Mode:       strings.ToLower(getenv("EXTRACTOR_MODE", ExtractorLLM)),
			APIKey:     getenv("LLM_API_KEY", ""),
			BaseURL:    getenv("LLM_BASE_URL", ""),
			Model:      getenv("LLM_MODEL", "gpt-4o-mini"),
			Fallback:   getbool("EXTRACTOR_FALLBACK", true),
			CitiesPath: getenv("CITIES_PATH", ""),
		},
		Email: EmailConfig{
			ResendAPIKey: getenv("RESEND_API_KEY", ""),
			From:         getenv("EMAIL_FROM", "noreply@example.com"),
			FromName:     getenv("EMAIL_FROM_NAME", "Contest"),
		},
		Contest: ContestConfig{
			Name:     getenv("CONTEST_NAME", "Contest"),
			TermsURL: getenv("TERMS_URL", ""),
			MaxDraw:  getint("MAX_DRAW", 100),
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

		IdempotencyTTL: getdur("IDEMPOTENCY_TTL", 24*time.Hour),

		// Observability (OpenTelemetry)
		OTEL: OTELConfig{
			Enabled:     getbool("OTEL_ENABLED", false),
			Endpoint:    getenv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			Insecure:    getbool("OTEL_EXPORTER_OTLP_INSECURE", true),
			ServiceName: getenv("OTEL_SERVICE_NAME", "go-contest-bot"),
			SampleRatio: getfloat("OTEL_TRACES_SAMPLER_ARG", 1.0),
		},
	}

	// --- normalization ---
	if cfg.LogLevel == "warning" {
		cfg.LogLevel = "warn"
	}
	switch cfg.GinMode {
	case "debug", "release", "test":
	default:
		cfg.GinMode = "release"
	}
	if cfg.DBDriver == "postgresql" {
		cfg.DBDriver = "postgres"
	}

	return cfg, validate(cfg)
}

func validate(cfg Config) error {
	switch cfg.LogLevel {
	case "debug", "info", "warn", "error", "fatal", "panic":
	default:
		return errors.New("LOG_LEVEL must be one of: debug, info, warn, error, fatal, panic")
	}
	if strings.TrimSpace(cfg.Port) == "" {
		return errors.New("PORT must not be empty")
	}
	if cfg.ReadTimeout <= 0 || cfg.ReadHeaderTimeout <= 0 || cfg.WriteTimeout <= 0 || cfg.IdleTimeout <= 0 {
		return errors.New("timeouts must be positive durations")
	}
	if cfg.MaxHeaderBytes <= 0 {
		return errors.New("MAX_HEADER_BYTES must be > 0")
	}
	switch cfg.DBDriver {
	case "sqlite", "postgres":
	default:
		return errors.New("DB_DRIVER must be one of: sqlite, postgres")
	}
	if strings.TrimSpace(cfg.DBDSN) == "" {
		return errors.New("DB_DSN must not be empty")
	}
	switch cfg.Session.Backend {
	case SessionRedis:
		if strings.TrimSpace(cfg.Session.RedisURL) == "" {
			return errors.New("REDIS_URL must not be empty when SESSION_BACKEND=redis")
		}
	case SessionSQL, SessionMemory:
	default:
		return errors.New("SESSION_BACKEND must be one of: redis, sql, memory")
	}
	if cfg.Session.TTL <= 0 {
		return errors.New("SESSION_TTL must be > 0")
	}
	if cfg.CallTimeout <= 0 {
		return errors.New("CALL_TIMEOUT must be > 0")
	}
	switch cfg.Extractor.Mode {
	case ExtractorLLM, ExtractorRules:
	default:
		return errors.New("EXTRACTOR_MODE must be one of: llm, rules")
	}
	if cfg.WhatsApp.AccessToken != "" && strings.TrimSpace(cfg.WhatsApp.PhoneNumberID) == "" {
		return errors.New("WHATSAPP_PHONE_NUMBER_ID is required with WHATSAPP_ACCESS_TOKEN")
	}
	if cfg.Contest.MaxDraw < 1 {
		return errors.New("MAX_DRAW must be >= 1")
	}
	if cfg.RateRPS < 0 {
		return errors.New("RATE_RPS must be >= 0")
	}
	if cfg.RateBurst < 1 {
		return errors.New("RATE_BURST must be >= 1")
	}
	if cfg.Security.HSTSMaxAge < 0 {
		return errors.New("HSTS_MAX_AGE must be >= 0")
	}
	if cfg.IdempotencyTTL <= 0 {
		return errors.New("IDEMPOTENCY_TTL must be > 0")
	}
	if cfg.OTEL.SampleRatio < 0 || cfg.OTEL.SampleRatio > 1 {
		return errors.New("OTEL_TRACES_SAMPLER_ARG must be in [0,1]")
	}
	return nil
}

// ---- helpers (no external deps) ----

func getenv(k, def string) string {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		return v
	}
	return def
}

func getfloat(k string, def float64) float64 {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getint(k string, def int) int {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getbool(k string, def bool) bool {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "true", "yes", "y", "on":
			return true
		case "0", "false", "no", "n", "off":
			return false
		}
	}
	return def
}

func getdur(k string, def time.Duration) time.Duration {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
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
	if len(p) > 1 {
		p = strings.TrimRight(p, "/")
		if p == "" {
			p = "/"
		}
	}
	return p
}
