package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// healthTimeout bounds each dependency ping.
const healthTimeout = 2 * time.Second

// HealthResponse reports the probe result per dependency.
type HealthResponse struct {
	Status string            `json:"status" example:"ok"`
	Checks map[string]string `json:"checks,omitempty"`
}

// Health godoc
// @ID          health
// @Summary     Health probe
// @Description Pings the code ledger and the session store. 503 when any check fails.
// @Tags        Health
// @Produce     json
// @Success     200  {object}  handlers.HealthResponse
// @Failure     503  {object}  handlers.HealthResponse
// @Router      /health [get]
func (h *Handlers) Health(c *gin.Context) {
	resp := HealthResponse{Status: "ok", Checks: make(map[string]string, len(h.d.Checks))}
	status := http.StatusOK

	for _, chk := range h.d.Checks {
		ctx, cancel := context.WithTimeout(c.Request.Context(), healthTimeout)
		err := chk.Pinger.Ping(ctx)
		cancel()
		if err != nil {
			resp.Checks[chk.Name] = err.Error()
			resp.Status = "degraded"
			status = http.StatusServiceUnavailable
			continue
		}
		resp.Checks[chk.Name] = "ok"
	}
	ok(c, status, resp)
}
