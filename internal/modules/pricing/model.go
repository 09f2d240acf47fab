// README: Quote request/result types and pricing errors.
package pricing

import (
	"errors"

	"courier/internal/types"
)

var (
	// ErrNoPrice is returned whenever a quote cannot be produced. The cause
	// (ErrZoneNotFound, ErrInvalidZone) is wrapped alongside it.
	ErrNoPrice      = errors.New("no price available")
	ErrZoneNotFound = errors.New("zone not found for district")
	ErrInvalidZone  = errors.New("zone outside fare matrix")
)

type QuoteRequest struct {
	OriginDistrict      string
	DestinationDistrict string
	// Desi is the package size bucket ("0-2", "2-5", "5-10", "10-20").
	// Empty means not chosen yet and prices as the smallest bucket.
	Desi string
}

// Quote is the immutable result of one pricing computation.
type Quote struct {
	BasePrice         int64
	TrafficMultiplier float64
	DesiMultiplier    float64
	PriceWithDesi     int64
	TrafficExtra      int64
	FinalPrice        int64
	IsTrafficHour     bool

	OriginZone          int
	DestinationZone     int
	OriginDistrict      string
	DestinationDistrict string

	IsSpecialRoute bool
	// ProximityGroup is set only on special-zone routes.
	ProximityGroup *int
	Desi           string
}

// Total returns the final price as money.
func (q *Quote) Total() types.Money {
	return types.TRY(q.FinalPrice)
}

func (q *Quote) routeKind() string {
	if q.IsSpecialRoute {
		return "special"
	}
	return "regular"
}
