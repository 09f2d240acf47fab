// README: Package handlers for intake, dashboard listing and lifecycle changes.
package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"courier/internal/http/middleware"
	"courier/internal/modules/delivery"
	"courier/internal/modules/pricing"
	"courier/internal/types"
)

type Packages interface {
	Create(ctx context.Context, cmd delivery.CreateCommand) (*delivery.Package, error)
	Get(ctx context.Context, id types.ID) (*delivery.Package, error)
	List(ctx context.Context, status delivery.Status) ([]*delivery.Package, error)
	Assign(ctx context.Context, cmd delivery.AssignCommand) error
	Advance(ctx context.Context, cmd delivery.AdvanceCommand) error
	Cancel(ctx context.Context, cmd delivery.CancelCommand) error
}

type PackageHandler struct {
	packages Packages
}

func NewPackageHandler(svc Packages) *PackageHandler {
	return &PackageHandler{packages: svc}
}

type stopReq struct {
	Lat      float64 `json:"lat"`
	Lng      float64 `json:"lng"`
	District string  `json:"district"`
	Address  string  `json:"address"`
	Name     string  `json:"name"`
	Phone    string  `json:"phone"`
}

func (s stopReq) toStop() delivery.Stop {
	return delivery.Stop{
		Point:    types.Point{Lat: s.Lat, Lng: s.Lng},
		District: s.District,
		Address:  s.Address,
		Name:     s.Name,
		Phone:    s.Phone,
	}
}

type createPackageReq struct {
	Pickup        stopReq `json:"pickup"`
	Delivery      stopReq `json:"delivery"`
	Desi          string  `json:"desi"`
	Content       string  `json:"content"`
	PaymentMethod string  `json:"payment_method"`
	Payer         string  `json:"payer"`
}

type stopResp struct {
	Lat      float64 `json:"lat"`
	Lng      float64 `json:"lng"`
	District string  `json:"district"`
	Address  string  `json:"address"`
	Name     string  `json:"name"`
	Phone    string  `json:"phone"`
}

type packageResp struct {
	ID             types.ID        `json:"id"`
	OrderCode      int64           `json:"order_code"`
	Status         delivery.Status `json:"status"`
	Pickup         stopResp        `json:"pickup"`
	Delivery       stopResp        `json:"delivery"`
	Desi           string          `json:"desi,omitempty"`
	Content        string          `json:"content,omitempty"`
	PaymentMethod  string          `json:"payment_method"`
	Payer          string          `json:"payer"`
	Price          int64           `json:"price"`
	FormattedPrice string          `json:"formatted_price"`
	BasePrice      int64           `json:"base_price"`
	IsTrafficHour  bool            `json:"is_traffic_hour"`
	CourierID      *types.ID       `json:"courier_id,omitempty"`
	CourierName    *string         `json:"courier_name,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
	DeliveredAt    *time.Time      `json:"delivered_at,omitempty"`
	CancelReason   *string         `json:"cancel_reason,omitempty"`
}

func toStopResp(s delivery.Stop) stopResp {
	return stopResp{Lat: s.Point.Lat, Lng: s.Point.Lng, District: s.District, Address: s.Address, Name: s.Name, Phone: s.Phone}
}

func toPackageResp(p *delivery.Package) packageResp {
	return packageResp{
		ID:             p.ID,
		OrderCode:      p.OrderCode,
		Status:         p.Status,
		Pickup:         toStopResp(p.Pickup),
		Delivery:       toStopResp(p.Delivery),
		Desi:           p.Desi,
		Content:        p.Content,
		PaymentMethod:  string(p.PaymentMethod),
		Payer:          string(p.Payer),
		Price:          p.Price.Amount,
		FormattedPrice: pricing.FormatPrice(p.Price.Amount),
		BasePrice:      p.BasePrice,
		IsTrafficHour:  p.IsTrafficHour,
		CourierID:      p.CourierID,
		CourierName:    p.CourierName,
		CreatedAt:      p.CreatedAt,
		DeliveredAt:    p.DeliveredAt,
		CancelReason:   p.CancelReason,
	}
}

func (h *PackageHandler) Create(c *gin.Context) {
	var req createPackageReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	p, err := h.packages.Create(c.Request.Context(), delivery.CreateCommand{
		CustomerID:    types.ID(middleware.CallerUID(c)),
		Pickup:        req.Pickup.toStop(),
		Delivery:      req.Delivery.toStop(),
		Desi:          req.Desi,
		Content:       req.Content,
		PaymentMethod: delivery.PaymentMethod(req.PaymentMethod),
		Payer:         delivery.Payer(req.Payer),
	})
	if err != nil {
		writeDeliveryError(c, err)
		return
	}
	writeJSON(c, http.StatusCreated, toPackageResp(p))
}

func (h *PackageHandler) Get(c *gin.Context) {
	id := c.Param("id")
	if !isValidID(id) {
		writeError(c, http.StatusBadRequest, "invalid package id")
		return
	}
	p, err := h.packages.Get(c.Request.Context(), types.ID(id))
	if err != nil {
		writeDeliveryError(c, err)
		return
	}
	// Customers only see their own packages.
	if role := middleware.CallerRole(c); role != middleware.RoleAdmin && role != middleware.RoleCourier {
		if string(p.CustomerID) != middleware.CallerUID(c) {
			writeError(c, http.StatusNotFound, delivery.ErrNotFound.Error())
			return
		}
	}
	writeJSON(c, http.StatusOK, toPackageResp(p))
}

func (h *PackageHandler) List(c *gin.Context) {
	var status delivery.Status
	if v := c.Query("status"); v != "" {
		s, ok := delivery.ParseStatus(v)
		if !ok {
			writeError(c, http.StatusBadRequest, "unknown status")
			return
		}
		status = s
	}
	list, err := h.packages.List(c.Request.Context(), status)
	if err != nil {
		writeDeliveryError(c, err)
		return
	}
	out := make([]packageResp, 0, len(list))
	for _, p := range list {
		out = append(out, toPackageResp(p))
	}
	writeJSON(c, http.StatusOK, gin.H{"packages": out})
}

type assignReq struct {
	CourierID   string `json:"courier_id" binding:"required"`
	CourierName string `json:"courier_name"`
}

func (h *PackageHandler) Assign(c *gin.Context) {
	id := c.Param("id")
	if !isValidID(id) {
		writeError(c, http.StatusBadRequest, "invalid package id")
		return
	}
	var req assignReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "courier_id is required")
		return
	}
	err := h.packages.Assign(c.Request.Context(), delivery.AssignCommand{
		PackageID:   types.ID(id),
		CourierID:   types.ID(req.CourierID),
		CourierName: req.CourierName,
		ActorID:     types.ID(middleware.CallerUID(c)),
	})
	if err != nil {
		writeDeliveryError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"status": delivery.StatusAssigned})
}

type advanceReq struct {
	Status string `json:"status" binding:"required"`
}

// Advance moves a package forward. Couriers may only move packages assigned to them.
func (h *PackageHandler) Advance(c *gin.Context) {
	id := c.Param("id")
	if !isValidID(id) {
		writeError(c, http.StatusBadRequest, "invalid package id")
		return
	}
	var req advanceReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "status is required")
		return
	}
	to, ok := delivery.ParseStatus(req.Status)
	if !ok {
		writeError(c, http.StatusBadRequest, "unknown status")
		return
	}
	uid := middleware.CallerUID(c)
	if middleware.CallerRole(c) == middleware.RoleCourier {
		p, err := h.packages.Get(c.Request.Context(), types.ID(id))
		if err != nil {
			writeDeliveryError(c, err)
			return
		}
		if p.CourierID == nil || string(*p.CourierID) != uid {
			writeError(c, http.StatusForbidden, "package is not assigned to caller")
			return
		}
	}
	err := h.packages.Advance(c.Request.Context(), delivery.AdvanceCommand{
		PackageID: types.ID(id),
		To:        to,
		ActorID:   types.ID(uid),
	})
	if err != nil {
		writeDeliveryError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"status": to})
}

type cancelReq struct {
	Reason string `json:"reason"`
}

func (h *PackageHandler) Cancel(c *gin.Context) {
	id := c.Param("id")
	if !isValidID(id) {
		writeError(c, http.StatusBadRequest, "invalid package id")
		return
	}
	var req cancelReq
	// Body is optional.
	_ = c.ShouldBindJSON(&req)
	err := h.packages.Cancel(c.Request.Context(), delivery.CancelCommand{
		PackageID: types.ID(id),
		Reason:    req.Reason,
		ActorID:   types.ID(middleware.CallerUID(c)),
	})
	if err != nil {
		writeDeliveryError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"status": delivery.StatusCancelled})
}
