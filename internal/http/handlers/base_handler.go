// README: Base handler utilities (JSON helpers, error mapping).
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"courier/internal/modules/delivery"
	"courier/internal/modules/pricing"
	"courier/internal/modules/zone"
)

const msgNoPrice = "no price available"

type errorResponse struct {
	Error string `json:"error"`
}

// isValidID ensures IDs are hex and 32 chars (matches current ID generator).
func isValidID(v string) bool {
	if v == "" || len(v) > 32 {
		return false
	}
	for _, c := range v {
		if (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') {
			continue
		}
		return false
	}
	return true
}

func writeJSON(c *gin.Context, status int, v any) {
	c.JSON(status, v)
}

func writeError(c *gin.Context, status int, msg string) {
	writeJSON(c, status, errorResponse{Error: msg})
}

func writeDeliveryError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, pricing.ErrNoPrice):
		writeError(c, http.StatusUnprocessableEntity, msgNoPrice)
	case errors.Is(err, delivery.ErrBadRequest):
		writeError(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, delivery.ErrNotFound):
		writeError(c, http.StatusNotFound, err.Error())
	case errors.Is(err, delivery.ErrInvalidState), errors.Is(err, delivery.ErrConflict):
		writeError(c, http.StatusConflict, err.Error())
	default:
		_ = c.Error(err)
		writeError(c, http.StatusInternalServerError, "internal error")
	}
}

func writeZoneError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, zone.ErrUnknownDistrict), errors.Is(err, zone.ErrZoneOutOfRange):
		writeError(c, http.StatusBadRequest, err.Error())
	default:
		_ = c.Error(err)
		writeError(c, http.StatusInternalServerError, "internal error")
	}
}
