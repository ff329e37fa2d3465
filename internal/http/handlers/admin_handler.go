// Admin HTTP handlers.
//
// This file exposes the operator endpoints under /admin:
//   - GET  /admin/stats              (totals, top cities, claims per day)
//   - GET  /admin/registrations      (paginated, ETag support)
//   - GET  /admin/winners            (current winners)
//   - POST /admin/winners/draw       (Idempotency-Key replay)
//   - POST /admin/winners/reset
//   - POST /admin/winners/notify
//   - POST /admin/codes              (seed active codes)
package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-contest-bot/internal/domain"
	"github.com/tbourn/go-contest-bot/internal/http/middleware"
	"github.com/tbourn/go-contest-bot/internal/services"
)

//
// DTOs
//

// ListRegistrationsResponse wraps a page of claimed codes.
type ListRegistrationsResponse struct {
	Registrations []domain.Code `json:"registrations"`
	Pagination    Pagination    `json:"pagination"`
}

// WinnersResponse lists winners.
type WinnersResponse struct {
	Winners []domain.Code `json:"winners"`
}

// DrawRequest is the JSON payload for a draw.
type DrawRequest struct {
	// Count is the number of winners to draw.
	Count int `json:"count" binding:"required,min=1" example:"3"`
}

// ResetResponse reports how many winner flags were cleared.
type ResetResponse struct {
	Cleared int64 `json:"cleared" example:"3"`
}

// ImportCodesRequest is the JSON payload for seeding codes.
type ImportCodesRequest struct {
	Codes []string `json:"codes" binding:"required" example:"ABC123,XYZ789"`
}

//
// Handlers
//

// Stats godoc
// @ID          adminStats
// @Summary     Registration statistics
// @Description Totals of the code ledger, top cities and claims per day for the last 30 days.
// @Tags        Admin
// @Produce     json
// @Success     200  {object}  services.Stats
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /api/v1/admin/stats [get]
func (h *Handlers) Stats(c *gin.Context) {
	st, err := h.d.Stats.Summary(c.Request.Context())
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeStatsFailed, err.Error())
		return
	}
	ok(c, http.StatusOK, st)
}

// ListRegistrations godoc
// @ID          listRegistrations
// @Summary     List registrations (paginated)
// @Description Returns claimed codes, newest first. Supports weak ETag via If-None-Match and may return 304.
// @Tags        Admin
// @Produce     json
//
// @Param       If-None-Match  header  string  false "Return 304 if ETag matches"  example(W/\"registrations::12:1700000000\")
// @Param       city           query   string  false "Filter by city (exact match)" example(Mumbai)
// @Param       page           query   int     false "Page number"                  minimum(1) default(1)
// @Param       page_size      query   int     false "Items per page"               minimum(1) maximum(100) default(20)
//
// @Success     200  {object} handlers.ListRegistrationsResponse
// @Header      200  {string} ETag  "Weak ETag for current result"
// @Success     304  {string} string "Not Modified"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /api/v1/admin/registrations [get]
func (h *Handlers) ListRegistrations(c *gin.Context) {
	ctx := c.Request.Context()
	city := strings.TrimSpace(c.Query("city"))
	page, pageSize := clampPagination(c)

	// ETag pre-check (best effort).
	if count, latest, err := h.d.Registrations.Version(ctx, city); err == nil {
		var ts int64
		if latest != nil {
			ts = latest.Unix()
		}
		etag := fmt.Sprintf(`W/"registrations:%s:%d:%d"`, city, count, ts)
		c.Header("ETag", etag)
		if inm := c.GetHeader("If-None-Match"); inm != "" && inm == etag {
			c.Status(http.StatusNotModified)
			return
		}
	}

	items, total, err := h.d.Registrations.ListPage(ctx, city, page, pageSize)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}
	if items == nil {
		items = []domain.Code{}
	}
	ok(c, http.StatusOK, ListRegistrationsResponse{
		Registrations: items,
		Pagination:    newPagination(page, pageSize, total),
	})
}

// ListWinners godoc
// @ID          listWinners
// @Summary     List winners
// @Tags        Admin
// @Produce     json
// @Success     200  {object}  handlers.WinnersResponse
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /api/v1/admin/winners [get]
func (h *Handlers) ListWinners(c *gin.Context) {
	ws, err := h.d.Winners.List(c.Request.Context())
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}
	ok(c, http.StatusOK, WinnersResponse{Winners: ws})
}

// DrawWinners godoc
// @ID          drawWinners
// @Summary     Draw winners
// @Description Flags `count` random registrations that are not yet winners. A repeated Idempotency-Key returns the current winners without drawing again.
// @Tags        Admin
// @Accept      json
// @Produce     json
//
// @Param       Idempotency-Key  header  string                 false  "Replay protection key"  example(draw-2025-01-01)
// @Param       body             body    handlers.DrawRequest   true   "Draw payload"
//
// @Success     200  {object}  handlers.WinnersResponse
// @Header      200  {string}  Idempotency-Replayed  "true when served from a replay"
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     409  {object}  handlers.ErrorResponse  "No registrations"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /api/v1/admin/winners/draw [post]
func (h *Handlers) DrawWinners(c *gin.Context) {
	ctx := c.Request.Context()

	if middleware.IsReplay(c) {
		ws, err := h.d.Winners.List(ctx)
		if err != nil {
			fail(c, http.StatusInternalServerError, ErrCodeDrawFailed, err.Error())
			return
		}
		c.Header(middleware.HeaderIdempotencyReplayed, "true")
		ok(c, http.StatusOK, WinnersResponse{Winners: ws})
		return
	}

	var req DrawRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "count must be a positive integer")
		return
	}

	picked, err := h.d.Winners.Draw(ctx, req.Count)
	switch {
	case errors.Is(err, services.ErrInvalidWinnerCount):
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
		return
	case errors.Is(err, services.ErrNoRegistrations):
		fail(c, http.StatusConflict, ErrCodeConflict, err.Error())
		return
	case err != nil:
		fail(c, http.StatusInternalServerError, ErrCodeDrawFailed, err.Error())
		return
	}

	if key, has := middleware.GetIdempotencyKey(c); has && h.d.Idempotency != nil {
		if _, err := h.d.Idempotency.Remember(ctx, middleware.GetIdempotencyScope(c), key); err != nil {
			middleware.LoggerFrom(c).Warn().Err(err).Msg("draw completed but idempotency key not stored")
		}
	}
	ok(c, http.StatusOK, WinnersResponse{Winners: picked})
}

// ResetWinners godoc
// @ID          resetWinners
// @Summary     Clear all winners
// @Tags        Admin
// @Produce     json
// @Success     200  {object}  handlers.ResetResponse
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /api/v1/admin/winners/reset [post]
func (h *Handlers) ResetWinners(c *gin.Context) {
	n, err := h.d.Winners.Reset(c.Request.Context())
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	ok(c, http.StatusOK, ResetResponse{Cleared: n})
}

// NotifyWinners godoc
// @ID          notifyWinners
// @Summary     Notify winners
// @Description Emails and messages every current winner; per-winner failures are listed in the report.
// @Tags        Admin
// @Produce     json
// @Success     200  {object}  services.NotifyReport
// @Failure     409  {object}  handlers.ErrorResponse  "No winners drawn"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /api/v1/admin/winners/notify [post]
func (h *Handlers) NotifyWinners(c *gin.Context) {
	rep, err := h.d.Winners.Notify(c.Request.Context())
	switch {
	case errors.Is(err, services.ErrNoWinners):
		fail(c, http.StatusConflict, ErrCodeConflict, err.Error())
		return
	case err != nil:
		fail(c, http.StatusInternalServerError, ErrCodeNotifyFailed, err.Error())
		return
	}
	ok(c, http.StatusOK, rep)
}

// ImportCodes godoc
// @ID          importCodes
// @Summary     Seed contest codes
// @Description Inserts new active codes. Blank, repeated and already-known codes are skipped.
// @Tags        Admin
// @Accept      json
// @Produce     json
// @Param       body  body  handlers.ImportCodesRequest  true  "Codes"
// @Success     201  {object}  services.ImportResult
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /api/v1/admin/codes [post]
func (h *Handlers) ImportCodes(c *gin.Context) {
	var req ImportCodesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "codes required")
		return
	}
	res, err := h.d.Codes.Import(c.Request.Context(), req.Codes)
	switch {
	case errors.Is(err, services.ErrNoCodes), errors.Is(err, services.ErrTooManyCodes):
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
		return
	case err != nil:
		fail(c, http.StatusInternalServerError, ErrCodeImportFailed, err.Error())
		return
	}
	ok(c, http.StatusCreated, res)
}
