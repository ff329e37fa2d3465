package middleware

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func captureLogs(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	orig := log.Logger
	log.Logger = zerolog.New(&buf)
	t.Cleanup(func() { log.Logger = orig })
	return &buf
}

func TestRedactingLogger_ScrubsQueryAndHeaders(t *testing.T) {
	gin.SetMode(gin.TestMode)
	buf := captureLogs(t)

	r := gin.New()
	r.Use(RequestID(), RedactingLogger(RedactOptions{
		MaskHeaders: []string{HeaderHubSignature},
		MaskQuery:   []string{"hub.verify_token"},
	}))
	r.GET("/webhook", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet,
		"/webhook?hub.verify_token=s3cret&hub.challenge=42&from=%2B911234567&email=john@example.com", nil)
	req.Header.Set("Authorization", "Bearer token-value")
	req.Header.Set(HeaderHubSignature, "sha256=deadbeef")
	req.Header.Set("X-Trace", "c0a8012e-7f3b-4c1d-9a2e-123456789abc")
	r.ServeHTTP(httptest.NewRecorder(), req)

	out := buf.String()
	for _, leaked := range []string{"s3cret", "911234567", "john@example.com", "token-value", "deadbeef", "c0a8012e"} {
		if strings.Contains(out, leaked) {
			t.Fatalf("log leaked %q: %s", leaked, out)
		}
	}
	for _, want := range []string{"[REDACTED]", "[REDACTED:phone]", "[REDACTED:email]", "[REDACTED:id]", `"status":200`} {
		if !strings.Contains(out, want) {
			t.Fatalf("log missing %q: %s", want, out)
		}
	}
}

func TestRedactingLogger_AttachesRequestLogger(t *testing.T) {
	gin.SetMode(gin.TestMode)
	buf := captureLogs(t)

	r := gin.New()
	r.Use(RequestID(), RedactingLogger(RedactOptions{}))
	r.POST("/x", func(c *gin.Context) {
		zerolog.Ctx(c.Request.Context()).Info().Msg("from request context")
		LoggerFrom(c).Info().Msg("from gin context")
		c.Status(http.StatusBadRequest)
	})

	req := httptest.NewRequest(http.MethodPost, "/x", nil)
	req.Header.Set(requestIDHeader, "rid-77")
	r.ServeHTTP(httptest.NewRecorder(), req)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("want 3 log lines, got %d: %s", len(lines), buf.String())
	}
	for _, l := range lines {
		if !strings.Contains(l, `"request_id":"rid-77"`) {
			t.Fatalf("line without request id: %s", l)
		}
	}
	if !strings.Contains(lines[2], `"level":"warn"`) {
		t.Fatalf("4xx should log at warn: %s", lines[2])
	}
}

func TestRedactQuery(t *testing.T) {
	mask := lowerSet(nil, []string{"Token"})
	if got := redactQuery("b=2&token=x&a=1", mask); got != "a=1&b=2&token=[REDACTED]" {
		t.Fatalf("redactQuery = %q", got)
	}
	if got := redactQuery("", mask); got != "" {
		t.Fatalf("empty = %q", got)
	}
	if got := redactQuery("%zz=john@example.com", mask); strings.Contains(got, "john") {
		t.Fatalf("unparseable query leaked: %q", got)
	}
}
