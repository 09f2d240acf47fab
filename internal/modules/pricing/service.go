// README: Pricing service computes delivery quotes from the zone matrix, archipelago proximity and surcharges.
package pricing

import (
	"context"
	"fmt"
	"log/slog"

	"courier/internal/metrics"
	"courier/internal/modules/zone"
)

// Zones supplies the current district to zone mapping and drops it on demand.
type Zones interface {
	Load(ctx context.Context) zone.Mapping
	Invalidate()
}

type Service struct {
	zones   Zones
	clock   Clock
	logger  *slog.Logger
	metrics *metrics.Metrics
}

func NewService(zones Zones, clock Clock, logger *slog.Logger, m *metrics.Metrics) *Service {
	if clock == nil {
		clock = SystemClock(nil)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{zones: zones, clock: clock, logger: logger, metrics: m}
}

// Quote prices a delivery between two districts. Every failure comes back
// as an error wrapping ErrNoPrice; Quote never panics on bad data.
func (s *Service) Quote(ctx context.Context, req QuoteRequest) (q *Quote, err error) {
	defer func() {
		if r := recover(); r != nil {
			q, err = nil, fmt.Errorf("%w: %v", ErrNoPrice, r)
		}
		if err != nil {
			s.metrics.RecordQuote("no_price", routeKind(req), 0)
			s.logger.Error("price unavailable",
				"origin", req.OriginDistrict,
				"destination", req.DestinationDistrict,
				"error", err,
			)
		}
	}()

	mapping := s.zones.Load(ctx)
	originZone, originOK := s.resolve(mapping, req.OriginDistrict)
	destZone, destOK := s.resolve(mapping, req.DestinationDistrict)

	q = &Quote{
		OriginZone:          originZone,
		DestinationZone:     destZone,
		OriginDistrict:      req.OriginDistrict,
		DestinationDistrict: req.DestinationDistrict,
		Desi:                req.Desi,
	}

	if isSpecialRoute(req) {
		if (originOK && !zone.ValidZone(originZone)) || (destOK && !zone.ValidZone(destZone)) {
			return nil, fmt.Errorf("%w: %w (%d, %d)", ErrNoPrice, ErrInvalidZone, originZone, destZone)
		}
		base, group := s.specialFare(req)
		q.IsSpecialRoute = true
		q.BasePrice = base
		q.ProximityGroup = &group
	} else {
		if !originOK || !destOK {
			return nil, fmt.Errorf("%w: %w", ErrNoPrice, ErrZoneNotFound)
		}
		base, ok := RegularFare(originZone, destZone)
		if !ok {
			return nil, fmt.Errorf("%w: %w (%d, %d)", ErrNoPrice, ErrInvalidZone, originZone, destZone)
		}
		q.BasePrice = base
	}

	s.applySurcharges(q)

	s.metrics.RecordQuote("ok", q.routeKind(), q.FinalPrice)
	s.logger.Info("price computed",
		"origin", q.OriginDistrict,
		"destination", q.DestinationDistrict,
		"origin_zone", q.OriginZone,
		"destination_zone", q.DestinationZone,
		"special_route", q.IsSpecialRoute,
		"base_price", q.BasePrice,
		"desi", q.Desi,
		"desi_multiplier", q.DesiMultiplier,
		"traffic_hour", q.IsTrafficHour,
		"traffic_extra", q.TrafficExtra,
		"final_price", q.FinalPrice,
	)
	return q, nil
}

// OnZoneMappingChanged is the hook the zone administration workflow calls
// after editing assignments.
func (s *Service) OnZoneMappingChanged() {
	s.zones.Invalidate()
}

// applySurcharges composes the final price. The traffic extra is taken
// from the unscaled base, and each term is rounded before summing.
func (s *Service) applySurcharges(q *Quote) {
	q.DesiMultiplier = DesiMultiplier(q.Desi)
	q.PriceWithDesi = round(float64(q.BasePrice) * q.DesiMultiplier)

	q.IsTrafficHour = IsTrafficHour(s.clock.Now())
	q.TrafficMultiplier = 1.0
	if q.IsTrafficHour {
		q.TrafficMultiplier = 1 + TrafficSurcharge
		q.TrafficExtra = round(float64(q.BasePrice) * TrafficSurcharge)
	}
	q.FinalPrice = q.PriceWithDesi + q.TrafficExtra
}

// specialFare prices a route touching SpecialDistrict from the other end's
// proximity group, regardless of direction.
func (s *Service) specialFare(req QuoteRequest) (int64, int) {
	other := req.OriginDistrict
	if other == SpecialDistrict {
		other = req.DestinationDistrict
	}
	if other == SpecialDistrict {
		return SpecialIntraZonePrice, 0
	}
	g, ok := ProximityGroup(other)
	if !ok {
		s.logger.Warn("district has no proximity group, using farthest",
			"district", other,
			"group", FallbackProximityGroup,
		)
		g = FallbackProximityGroup
	}
	return SpecialFareForGroup(g), g
}

func (s *Service) resolve(m zone.Mapping, district string) (int, bool) {
	z, ok := zone.Resolve(district, m)
	if !ok {
		s.logger.Warn("no zone assigned to district", "district", district)
	}
	return z, ok
}

func isSpecialRoute(req QuoteRequest) bool {
	return req.OriginDistrict == SpecialDistrict || req.DestinationDistrict == SpecialDistrict
}

func routeKind(req QuoteRequest) string {
	if isSpecialRoute(req) {
		return "special"
	}
	return "regular"
}
