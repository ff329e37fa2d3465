package config

import (
	"os"
	"reflect"
	"strings"
	"testing"
	"time"
)

// --- MustLoad ---

func TestMustLoad_PanicsOnInvalidConfig(t *testing.T) {
	t.Setenv("LOG_LEVEL", "verbose") // invalid -> Load() error
	defer func() {
		if r := recover(); r == nil {
			t.Fatalf("MustLoad should panic on invalid config")
		}
	}()
	_ = MustLoad()
}

// --- Load success + normalization + parsing ---

func TestLoad_Success_DefaultsAndOverrides(t *testing.T) {
	// Server timeouts / sizes (valid)
	t.Setenv("PORT", "8088")
	t.Setenv("READ_TIMEOUT", "2s")
	t.Setenv("READ_HEADER_TIMEOUT", "1s")
	t.Setenv("WRITE_TIMEOUT", "3s")
	t.Setenv("IDLE_TIMEOUT", "4s")
	t.Setenv("MAX_HEADER_BYTES", "8192")
	t.Setenv("GIN_MODE", "weird") // will normalize to "release"

	// Logging / Docs
	t.Setenv("LOG_LEVEL", "warning") // will normalize to "warn"
	t.Setenv("LOG_PRETTY", "yes")
	t.Setenv("SWAGGER_ENABLED", "on")
	t.Setenv("API_BASE_PATH", "admin/") // no leading slash + trailing slash -> "/admin"

	// Code ledger
	t.Setenv("DB_DRIVER", "PostgreSQL") // will normalize to "postgres"
	t.Setenv("DB_DSN", "postgres://u:p@db:5432/contest")

	// Sessions
	t.Setenv("SESSION_BACKEND", "SQL")
	t.Setenv("SESSION_TTL", "10m")
	t.Setenv("SESSION_KEY_PREFIX", "s:")
	t.Setenv("CALL_TIMEOUT", "3s")

	// Providers
	t.Setenv("WEBHOOK_VERIFY_TOKEN", "vt")
	t.Setenv("WEBHOOK_APP_SECRET", "as")
	t.Setenv("WHATSAPP_API_URL", "https://graph.example/v1/")
	t.Setenv("WHATSAPP_PHONE_NUMBER_ID", "123")
	t.Setenv("WHATSAPP_ACCESS_TOKEN", "tok")
	t.Setenv("EXTRACTOR_MODE", "rules")
	t.Setenv("EXTRACTOR_FALLBACK", "off")
	t.Setenv("CITIES_PATH", "cities.txt")
	t.Setenv("RESEND_API_KEY", "re_x")
	t.Setenv("EMAIL_FROM", "win@contest.io")
	t.Setenv("CONTEST_NAME", "Summer Draw")
	t.Setenv("MAX_DRAW", "25")

	// Rate limiting (use invalids for parse to fall back to defaults)
	t.Setenv("RATE_RPS", "x")      // -> default 5.0
	t.Setenv("RATE_BURST", "nope") // -> default 10

	// Web protection
	t.Setenv("CORS_ALLOWED_ORIGINS", " https://a.com , , http://b ")
	t.Setenv("ENABLE_HSTS", "TRUE")
	t.Setenv("HSTS_MAX_AGE", "24h")

	// Idempotency
	t.Setenv("IDEMPOTENCY_TTL", "48h")

	// OTEL
	t.Setenv("OTEL_ENABLED", "1")
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "otel:4317")
	t.Setenv("OTEL_EXPORTER_OTLP_INSECURE", "0")
	t.Setenv("OTEL_SERVICE_NAME", "svc")
	t.Setenv("OTEL_TRACES_SAMPLER_ARG", "0.75")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	// Server
	if cfg.Port != "8088" ||
		cfg.ReadTimeout != 2*time.Second ||
		cfg.ReadHeaderTimeout != 1*time.Second ||
		cfg.WriteTimeout != 3*time.Second ||
		cfg.IdleTimeout != 4*time.Second ||
		cfg.MaxHeaderBytes != 8192 ||
		cfg.GinMode != "release" {
		t.Fatalf("server fields unexpected: %+v", cfg)
	}

	// Logging / Docs
	if cfg.LogLevel != "warn" || !cfg.LogPretty || !cfg.SwaggerEnabled || cfg.APIBasePath != "/admin" {
		t.Fatalf("logging/docs unexpected: %+v", cfg)
	}

	// Code ledger + sessions
	if cfg.DBDriver != "postgres" || cfg.DBDSN != "postgres://u:p@db:5432/contest" {
		t.Fatalf("db fields unexpected: %+v", cfg)
	}
	if cfg.Session.Backend != SessionSQL || cfg.Session.TTL != 10*time.Minute || cfg.Session.KeyPrefix != "s:" || cfg.CallTimeout != 3*time.Second {
		t.Fatalf("session fields unexpected: %+v", cfg.Session)
	}

	// Providers
	if cfg.Webhook.VerifyToken != "vt" || cfg.Webhook.AppSecret != "as" {
		t.Fatalf("webhook unexpected: %+v", cfg.Webhook)
	}
	if cfg.WhatsApp.APIURL != "https://graph.example/v1" || cfg.WhatsApp.PhoneNumberID != "123" || cfg.WhatsApp.AccessToken != "tok" {
		t.Fatalf("whatsapp unexpected: %+v", cfg.WhatsApp)
	}
	if cfg.Extractor.Mode != ExtractorRules || cfg.Extractor.Fallback || cfg.Extractor.CitiesPath != "cities.txt" || cfg.Extractor.Model != "gpt-4o-mini" {
		t.Fatalf("extractor unexpected: %+v", cfg.Extractor)
	}
	if cfg.Email.ResendAPIKey != "re_x" || cfg.Email.From != "win@contest.io" || cfg.Email.FromName != "Contest" {
		t.Fatalf("email unexpected: %+v", cfg.Email)
	}
	if cfg.Contest.Name != "Summer Draw" || cfg.Contest.MaxDraw != 25 {
		t.Fatalf("contest unexpected: %+v", cfg.Contest)
	}

	// Rate limiting (parse fallback to defaults)
	if cfg.RateRPS != 5.0 || cfg.RateBurst != 10 {
		t.Fatalf("rate limiting unexpected: %+v", cfg)
	}

	// Web protection
	if !reflect.DeepEqual(cfg.CORS.AllowedOrigins, []string{"https://a.com", "http://b"}) {
		t.Fatalf("cors origins unexpected: %#v", cfg.CORS.AllowedOrigins)
	}
	if !cfg.Security.EnableHSTS || cfg.Security.HSTSMaxAge != 24*time.Hour {
		t.Fatalf("security unexpected: %+v", cfg.Security)
	}

	if cfg.IdempotencyTTL != 48*time.Hour {
		t.Fatalf("idempotency ttl unexpected: %v", cfg.IdempotencyTTL)
	}

	// OTEL
	if !cfg.OTEL.Enabled || cfg.OTEL.Endpoint != "otel:4317" || cfg.OTEL.Insecure || cfg.OTEL.ServiceName != "svc" || cfg.OTEL.SampleRatio != 0.75 {
		t.Fatalf("otel unexpected: %+v", cfg.OTEL)
	}
}

// --- Load validations (each case triggers exactly one validation error) ---

func TestLoad_ValidationErrors(t *testing.T) {
	cases := []struct {
		name string
		env  map[string]string
		want string
	}{
		{"invalid LOG_LEVEL", map[string]string{"LOG_LEVEL": "verbose"}, "LOG_LEVEL"},
		{"empty PORT via spaces", map[string]string{"PORT": "   "}, "PORT must not be empty"},
		{"non-positive timeouts", map[string]string{"READ_TIMEOUT": "0s"}, "timeouts must be positive"},
		{"max header bytes <= 0", map[string]string{"MAX_HEADER_BYTES": "0"}, "MAX_HEADER_BYTES"},
		{"unknown DB_DRIVER", map[string]string{"DB_DRIVER": "mysql"}, "DB_DRIVER"},
		{"empty DB_DSN", map[string]string{"DB_DSN": "   "}, "DB_DSN must not be empty"},
		{"unknown SESSION_BACKEND", map[string]string{"SESSION_BACKEND": "memcached"}, "SESSION_BACKEND"},
		{"redis without url", map[string]string{"SESSION_BACKEND": "redis", "REDIS_URL": " "}, "REDIS_URL"},
		{"session ttl non-positive", map[string]string{"SESSION_TTL": "0s"}, "SESSION_TTL"},
		{"call timeout non-positive", map[string]string{"CALL_TIMEOUT": "-1s"}, "CALL_TIMEOUT"},
		{"unknown EXTRACTOR_MODE", map[string]string{"EXTRACTOR_MODE": "magic"}, "EXTRACTOR_MODE"},
		{"whatsapp token without phone id", map[string]string{"WHATSAPP_ACCESS_TOKEN": "tok"}, "WHATSAPP_PHONE_NUMBER_ID"},
		{"max draw < 1", map[string]string{"MAX_DRAW": "0"}, "MAX_DRAW"},
		{"rate rps negative", map[string]string{"RATE_RPS": "-1"}, "RATE_RPS"},
		{"rate burst < 1", map[string]string{"RATE_BURST": "0"}, "RATE_BURST"},
		{"hsts max age negative", map[string]string{"HSTS_MAX_AGE": "-1s"}, "HSTS_MAX_AGE"},
		{"idempotency ttl non-positive", map[string]string{"IDEMPOTENCY_TTL": "0s"}, "IDEMPOTENCY_TTL"},
		{"otel sample ratio out of range", map[string]string{"OTEL_TRACES_SAMPLER_ARG": "1.5"}, "OTEL_TRACES_SAMPLER_ARG"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			for k, v := range tc.env {
				t.Setenv(k, v)
			}
			if _, err := Load(); !containsErr(err, tc.want) {
				t.Fatalf("expected %s validation error, got: %v", tc.want, err)
			}
		})
	}

	// Note: API_BASE_PATH validation is effectively unreachable due to normalizeBasePath
	// always ensuring a leading '/' and returning "/" for empty input.
}

// --- helpers ---

func TestHelpers_getenv(t *testing.T) {
	t.Setenv("X_EMPTY", "")
	if getenv("X_EMPTY", "d") != "d" {
		t.Fatalf("getenv should fall back to default on empty var")
	}
	t.Setenv("X_SET", "val")
	if getenv("X_SET", "d") != "val" {
		t.Fatalf("getenv should read set value")
	}
}

func TestHelpers_getfloat_getint_getdur(t *testing.T) {
	t.Setenv("F_VALID", "3.14")
	if getfloat("F_VALID", 0) != 3.14 {
		t.Fatalf("getfloat parse failed")
	}
	t.Setenv("F_BAD", "nope")
	if getfloat("F_BAD", 1.23) != 1.23 {
		t.Fatalf("getfloat default on bad parse failed")
	}

	t.Setenv("I_VALID", "42")
	if getint("I_VALID", 0) != 42 {
		t.Fatalf("getint parse failed")
	}
	t.Setenv("I_BAD", "x")
	if getint("I_BAD", 7) != 7 {
		t.Fatalf("getint default on bad parse failed")
	}

	t.Setenv("D_VALID", "150ms")
	if getdur("D_VALID", time.Second) != 150*time.Millisecond {
		t.Fatalf("getdur parse failed")
	}
	t.Setenv("D_BAD", "zzz")
	if getdur("D_BAD", 2*time.Second) != 2*time.Second {
		t.Fatalf("getdur default on bad parse failed")
	}
}

func TestHelpers_getbool(t *testing.T) {
	trueVals := []string{"1", "true", "TRUE", " yes ", "Y", "on", "On"}
	for i, v := range trueVals {
		k := "B_T_" + config_strconv(i)
		t.Setenv(k, v)
		if !getbool(k, false) {
			t.Fatalf("getbool(%q) = false; want true", v)
		}
	}
	falseVals := []string{"0", "false", "FALSE", " no ", "N", "off", "Off"}
	for i, v := range falseVals {
		k := "B_F_" + config_strconv(i)
		t.Setenv(k, v)
		if getbool(k, true) {
			t.Fatalf("getbool(%q) = true; want false", v)
		}
	}
	// default on unset/empty
	t.Setenv("B_EMPTY", "")
	if !getbool("B_EMPTY", true) || getbool("B_EMPTY", false) {
		t.Fatalf("getbool default behavior unexpected")
	}
}

func TestHelpers_splitCSV_and_normalizeBasePath(t *testing.T) {
	if out := splitCSV(""); out != nil {
		t.Fatalf("splitCSV empty should return nil")
	}
	in := " a, ,b ,  c  ,"
	want := []string{"a", "b", "c"}
	if got := splitCSV(in); !reflect.DeepEqual(got, want) {
		t.Fatalf("splitCSV mismatch: got %#v want %#v", got, want)
	}

	// normalizeBasePath
	if normalizeBasePath("") != "/" {
		t.Fatalf("normalizeBasePath empty -> '/' failed")
	}
	if normalizeBasePath("v1") != "/v1" {
		t.Fatalf("normalizeBasePath missing leading slash failed")
	}
	if normalizeBasePath("/v1/") != "/v1" {
		t.Fatalf("normalizeBasePath trailing slash trim failed")
	}
	if normalizeBasePath(" / ") != "/" {
		t.Fatalf("normalizeBasePath whitespace failed")
	}
}

// small helper (avoid fmt just for ints)
func config_strconv(i int) string { return string('a' + rune(i)) }

// Ensure tests don't leak env to others.
func TestMain(m *testing.M) {
	os.Unsetenv("PORT")
	os.Exit(m.Run())
}

// containsErr reports whether err's message contains the given substring.
func containsErr(err error, want string) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), want)
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.APIBasePath != "/api/v1" {
		t.Fatalf("API_BASE_PATH default expected '/api/v1', got %q", cfg.APIBasePath)
	}
	if cfg.DBDriver != "sqlite" || cfg.DBDSN != "app.db" {
		t.Fatalf("db defaults unexpected: %q %q", cfg.DBDriver, cfg.DBDSN)
	}
	if cfg.Session.Backend != SessionRedis || cfg.Session.TTL != 30*time.Minute || cfg.Session.KeyPrefix != "session:" {
		t.Fatalf("session defaults unexpected: %+v", cfg.Session)
	}
	if cfg.Extractor.Mode != ExtractorLLM || !cfg.Extractor.Fallback {
		t.Fatalf("extractor defaults unexpected: %+v", cfg.Extractor)
	}
	if cfg.WhatsApp.AccessToken != "" || cfg.Email.ResendAPIKey != "" {
		t.Fatalf("provider credentials should be empty by default")
	}
	if cfg.CallTimeout != 10*time.Second || cfg.Contest.MaxDraw != 100 {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
}

func TestMustLoad_Success_NoPanic(t *testing.T) {
	// No special env needed; defaults are valid.
	defer func() {
		if r := recover(); r != nil {
			t.Fatalf("MustLoad should not panic on valid defaults, got: %v", r)
		}
	}()
	cfg := MustLoad()
	if cfg.APIBasePath == "" {
		t.Fatalf("unexpected empty config from MustLoad")
	}
}
