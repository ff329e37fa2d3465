package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-contest-bot/internal/domain"
	"github.com/tbourn/go-contest-bot/internal/http/middleware"
	"github.com/tbourn/go-contest-bot/internal/repo"
	"github.com/tbourn/go-contest-bot/internal/services"
)

func adminRouter(h *Handlers, idem *fakeIdem) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(middleware.RequestID())
	if idem != nil {
		r.Use(middleware.IdempotencyValidator(middleware.IdempotencyOptions{},
			func(_ context.Context, scope, key string, _ time.Time) (bool, error) {
				idem.mu.Lock()
				defer idem.mu.Unlock()
				return idem.keys[scope+"|"+key], nil
			}))
	}
	a := r.Group("/admin")
	a.GET("/stats", h.Stats)
	a.GET("/registrations", h.ListRegistrations)
	a.GET("/winners", h.ListWinners)
	a.POST("/winners/draw", h.DrawWinners)
	a.POST("/winners/reset", h.ResetWinners)
	a.POST("/winners/notify", h.NotifyWinners)
	a.POST("/codes", h.ImportCodes)
	r.GET("/health", h.Health)
	return r
}

func do(r *gin.Engine, method, path, body string, hdr map[string]string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	for k, v := range hdr {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func errCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var er ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &er); err != nil {
		t.Fatalf("decode error body: %v (%s)", err, w.Body.String())
	}
	if er.RequestID == "" {
		t.Fatalf("error without request id: %s", w.Body.String())
	}
	return er.Code
}

func TestStats(t *testing.T) {
	st := &services.Stats{Totals: repo.LedgerTotals{Total: 5, Claimed: 2}}
	r := adminRouter(New(Deps{Stats: fakeStats{st: st}}), nil)
	w := do(r, http.MethodGet, "/admin/stats", "", nil)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"claimed":2`) {
		t.Fatalf("stats: %d %s", w.Code, w.Body.String())
	}

	r = adminRouter(New(Deps{Stats: fakeStats{err: errors.New("db")}}), nil)
	w = do(r, http.MethodGet, "/admin/stats", "", nil)
	if w.Code != http.StatusInternalServerError || errCode(t, w) != ErrCodeStatsFailed {
		t.Fatalf("stats error: %d %s", w.Code, w.Body.String())
	}
}

func TestListRegistrations_PaginationAndETag(t *testing.T) {
	latest := time.Unix(1700000000, 0)
	name := "John Doe"
	regs := &fakeRegistrations{
		items:  []domain.Code{{Code: "ABC123", Status: domain.CodeStatusInactive, Name: &name}},
		total:  21,
		latest: &latest,
	}
	r := adminRouter(New(Deps{Registrations: regs}), nil)

	w := do(r, http.MethodGet, "/admin/registrations?city=Mumbai&page=2&page_size=10", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("list: %d %s", w.Code, w.Body.String())
	}
	etag := w.Header().Get("ETag")
	if etag != `W/"registrations:Mumbai:21:1700000000"` {
		t.Fatalf("etag = %s", etag)
	}
	var resp ListRegistrationsResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if regs.gotCity != "Mumbai" || regs.gotPage != [2]int{2, 10} {
		t.Fatalf("service args: %q %v", regs.gotCity, regs.gotPage)
	}
	if resp.Pagination.TotalPages != 3 || !resp.Pagination.HasNext || len(resp.Registrations) != 1 {
		t.Fatalf("resp = %+v", resp)
	}

	w = do(r, http.MethodGet, "/admin/registrations?city=Mumbai", "", map[string]string{"If-None-Match": etag})
	if w.Code != http.StatusNotModified {
		t.Fatalf("conditional: %d", w.Code)
	}

	regs.err = errors.New("db")
	w = do(r, http.MethodGet, "/admin/registrations", "", nil)
	if w.Code != http.StatusInternalServerError || errCode(t, w) != ErrCodeListFailed {
		t.Fatalf("list error: %d", w.Code)
	}
}

func TestListRegistrations_EmptyIsArray(t *testing.T) {
	r := adminRouter(New(Deps{Registrations: &fakeRegistrations{}}), nil)
	w := do(r, http.MethodGet, "/admin/registrations", "", nil)
	if !strings.Contains(w.Body.String(), `"registrations":[]`) {
		t.Fatalf("body = %s", w.Body.String())
	}
}

func TestDrawWinners(t *testing.T) {
	ws := &fakeWinners{}
	idem := &fakeIdem{}
	r := adminRouter(New(Deps{Winners: ws, Idempotency: idem}), idem)
	key := map[string]string{middleware.HeaderIdempotencyKey: "draw-1"}

	w := do(r, http.MethodPost, "/admin/winners/draw", `{"count":2}`, key)
	if w.Code != http.StatusOK || w.Header().Get(middleware.HeaderIdempotencyReplayed) != "" {
		t.Fatalf("draw: %d %s", w.Code, w.Body.String())
	}
	var resp WinnersResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if len(resp.Winners) != 2 || ws.draws != 1 {
		t.Fatalf("draw resp = %+v draws=%d", resp, ws.draws)
	}
	if !idem.keys["POST /admin/winners/draw|draw-1"] {
		t.Fatalf("key not remembered: %v", idem.keys)
	}

	// Same key: no second draw, current winners returned.
	w = do(r, http.MethodPost, "/admin/winners/draw", `{"count":5}`, key)
	if w.Code != http.StatusOK || w.Header().Get(middleware.HeaderIdempotencyReplayed) != "true" {
		t.Fatalf("replay: %d %v", w.Code, w.Header())
	}
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if ws.draws != 1 || len(resp.Winners) != 2 {
		t.Fatalf("replay drew again: draws=%d winners=%d", ws.draws, len(resp.Winners))
	}
}

func TestDrawWinners_Errors(t *testing.T) {
	cases := []struct {
		body   string
		err    error
		status int
		code   string
	}{
		{`{"count":0}`, nil, http.StatusBadRequest, ErrCodeBadRequest},
		{`{`, nil, http.StatusBadRequest, ErrCodeBadRequest},
		{`{"count":500}`, services.ErrInvalidWinnerCount, http.StatusBadRequest, ErrCodeBadRequest},
		{`{"count":1}`, services.ErrNoRegistrations, http.StatusConflict, ErrCodeConflict},
		{`{"count":1}`, errors.New("db"), http.StatusInternalServerError, ErrCodeDrawFailed},
	}
	for _, tc := range cases {
		r := adminRouter(New(Deps{Winners: &fakeWinners{drawErr: tc.err}}), nil)
		w := do(r, http.MethodPost, "/admin/winners/draw", tc.body, nil)
		if w.Code != tc.status || errCode(t, w) != tc.code {
			t.Fatalf("%s: %d %s", tc.body, w.Code, w.Body.String())
		}
	}
}

func TestWinners_ListResetNotify(t *testing.T) {
	ws := &fakeWinners{
		current: []domain.Code{{Code: "ABC123", IsWinner: true}},
		reset:   1,
		report:  &services.NotifyReport{Winners: 1, Emailed: 1, Messaged: 1, Failed: []string{}},
	}
	r := adminRouter(New(Deps{Winners: ws}), nil)

	w := do(r, http.MethodGet, "/admin/winners", "", nil)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "ABC123") {
		t.Fatalf("list: %d %s", w.Code, w.Body.String())
	}
	w = do(r, http.MethodPost, "/admin/winners/reset", "", nil)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"cleared":1`) {
		t.Fatalf("reset: %d %s", w.Code, w.Body.String())
	}
	w = do(r, http.MethodPost, "/admin/winners/notify", "", nil)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"emailed":1`) {
		t.Fatalf("notify: %d %s", w.Code, w.Body.String())
	}

	ws.notifErr = services.ErrNoWinners
	w = do(r, http.MethodPost, "/admin/winners/notify", "", nil)
	if w.Code != http.StatusConflict {
		t.Fatalf("notify without winners: %d", w.Code)
	}
	ws.notifErr = errors.New("smtp")
	w = do(r, http.MethodPost, "/admin/winners/notify", "", nil)
	if w.Code != http.StatusInternalServerError || errCode(t, w) != ErrCodeNotifyFailed {
		t.Fatalf("notify error: %d", w.Code)
	}
}

func TestImportCodes(t *testing.T) {
	codes := &fakeCodes{}
	r := adminRouter(New(Deps{Codes: codes}), nil)

	w := do(r, http.MethodPost, "/admin/codes", `{"codes":["ABC123","XYZ789"]}`, nil)
	if w.Code != http.StatusCreated || len(codes.got) != 2 {
		t.Fatalf("import: %d %s", w.Code, w.Body.String())
	}

	w = do(r, http.MethodPost, "/admin/codes", `{}`, nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("missing codes: %d", w.Code)
	}

	codes.err = services.ErrTooManyCodes
	w = do(r, http.MethodPost, "/admin/codes", `{"codes":["A"]}`, nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("too many: %d", w.Code)
	}
	codes.err = errors.New("db")
	w = do(r, http.MethodPost, "/admin/codes", `{"codes":["A"]}`, nil)
	if w.Code != http.StatusInternalServerError || errCode(t, w) != ErrCodeImportFailed {
		t.Fatalf("db error: %d", w.Code)
	}
}

func TestHealth(t *testing.T) {
	okPing := pingFunc(func(context.Context) error { return nil })
	badPing := pingFunc(func(context.Context) error { return errors.New("connection refused") })

	r := adminRouter(New(Deps{Checks: []HealthCheck{{"db", okPing}, {"sessions", okPing}}}), nil)
	w := do(r, http.MethodGet, "/health", "", nil)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"sessions":"ok"`) {
		t.Fatalf("healthy: %d %s", w.Code, w.Body.String())
	}

	r = adminRouter(New(Deps{Checks: []HealthCheck{{"db", okPing}, {"sessions", badPing}}}), nil)
	w = do(r, http.MethodGet, "/health", "", nil)
	var resp HealthResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if w.Code != http.StatusServiceUnavailable || resp.Status != "degraded" || resp.Checks["sessions"] != "connection refused" {
		t.Fatalf("degraded: %d %+v", w.Code, resp)
	}
}
