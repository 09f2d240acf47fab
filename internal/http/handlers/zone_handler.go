// README: Zone mapping admin handlers.
package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"courier/internal/modules/zone"
)

type ZoneAdmin interface {
	Get(ctx context.Context) zone.Mapping
	Save(ctx context.Context, m zone.Mapping) error
}

type ZoneHandler struct {
	zones ZoneAdmin
}

func NewZoneHandler(svc ZoneAdmin) *ZoneHandler {
	return &ZoneHandler{zones: svc}
}

type zonesResp struct {
	Zones     zone.Mapping `json:"zones"`
	Districts []string     `json:"districts"`
}

func (h *ZoneHandler) Get(c *gin.Context) {
	writeJSON(c, http.StatusOK, zonesResp{Zones: h.zones.Get(c.Request.Context()), Districts: zone.Districts})
}

type putZonesReq struct {
	Zones zone.Mapping `json:"zones" binding:"required"`
}

func (h *ZoneHandler) Put(c *gin.Context) {
	var req putZonesReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	if err := h.zones.Save(c.Request.Context(), req.Zones); err != nil {
		writeZoneError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, zonesResp{Zones: req.Zones, Districts: zone.Districts})
}
