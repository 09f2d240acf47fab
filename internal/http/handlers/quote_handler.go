// README: Quote handler; prices a delivery between two districts.
package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"courier/internal/modules/pricing"
)

type Quoter interface {
	Quote(ctx context.Context, req pricing.QuoteRequest) (*pricing.Quote, error)
}

type QuoteHandler struct {
	pricing Quoter
}

func NewQuoteHandler(svc Quoter) *QuoteHandler {
	return &QuoteHandler{pricing: svc}
}

type quoteReq struct {
	OriginDistrict      string `json:"origin_district" binding:"required"`
	DestinationDistrict string `json:"destination_district" binding:"required"`
	Desi                string `json:"desi"`
}

type quoteResp struct {
	BasePrice           int64   `json:"base_price"`
	TrafficMultiplier   float64 `json:"traffic_multiplier"`
	DesiMultiplier      float64 `json:"desi_multiplier"`
	PriceWithDesi       int64   `json:"price_with_desi"`
	TrafficExtra        int64   `json:"traffic_extra"`
	FinalPrice          int64   `json:"final_price"`
	FormattedPrice      string  `json:"formatted_price"`
	IsTrafficHour       bool    `json:"is_traffic_hour"`
	OriginZone          int     `json:"origin_zone"`
	DestinationZone     int     `json:"destination_zone"`
	OriginDistrict      string  `json:"origin_district"`
	DestinationDistrict string  `json:"destination_district"`
	IsSpecialRoute      bool    `json:"is_special_route"`
	ProximityGroup      *int    `json:"proximity_group,omitempty"`
	Desi                string  `json:"desi,omitempty"`
}

func (h *QuoteHandler) Create(c *gin.Context) {
	var req quoteReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "origin_district and destination_district are required")
		return
	}
	q, err := h.pricing.Quote(c.Request.Context(), pricing.QuoteRequest{
		OriginDistrict:      req.OriginDistrict,
		DestinationDistrict: req.DestinationDistrict,
		Desi:                req.Desi,
	})
	if err != nil {
		if errors.Is(err, pricing.ErrNoPrice) {
			writeError(c, http.StatusUnprocessableEntity, msgNoPrice)
			return
		}
		_ = c.Error(err)
		writeError(c, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(c, http.StatusOK, toQuoteResp(q))
}

func toQuoteResp(q *pricing.Quote) quoteResp {
	return quoteResp{
		BasePrice:           q.BasePrice,
		TrafficMultiplier:   q.TrafficMultiplier,
		DesiMultiplier:      q.DesiMultiplier,
		PriceWithDesi:       q.PriceWithDesi,
		TrafficExtra:        q.TrafficExtra,
		FinalPrice:          q.FinalPrice,
		FormattedPrice:      pricing.FormatPrice(q.FinalPrice),
		IsTrafficHour:       q.IsTrafficHour,
		OriginZone:          q.OriginZone,
		DestinationZone:     q.DestinationZone,
		OriginDistrict:      q.OriginDistrict,
		DestinationDistrict: q.DestinationDistrict,
		IsSpecialRoute:      q.IsSpecialRoute,
		ProximityGroup:      q.ProximityGroup,
		Desi:                q.Desi,
	}
}
