// README: Health handler; liveness plus the geocoder circuit breaker state.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sony/gobreaker"
)

// BreakerReporter reports the state of an upstream circuit breaker.
type BreakerReporter interface {
	State() gobreaker.State
}

type HealthHandler struct {
	geocoder BreakerReporter
}

// NewHealthHandler accepts a nil geocoder when reverse geocoding is disabled.
func NewHealthHandler(geocoder BreakerReporter) *HealthHandler {
	return &HealthHandler{geocoder: geocoder}
}

type healthResp struct {
	Status   string `json:"status"`
	Geocoder string `json:"geocoder"`
}

// Get always answers 200: pricing does not depend on the geocoder, so an
// open breaker marks the service degraded rather than down.
func (h *HealthHandler) Get(c *gin.Context) {
	resp := healthResp{Status: "ok", Geocoder: "disabled"}
	if h.geocoder != nil {
		state := h.geocoder.State()
		resp.Geocoder = state.String()
		if state == gobreaker.StateOpen {
			resp.Status = "degraded"
		}
	}
	writeJSON(c, http.StatusOK, resp)
}
