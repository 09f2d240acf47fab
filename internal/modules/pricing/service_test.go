package pricing

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"courier/internal/modules/zone"
)

var istanbul = time.FixedZone("TRT", 3*60*60)

// Off-peak: 12:00. Peak: 08:00.
var (
	offPeakClock = fixedClock(2026, 2, 10, 12, 0)
	peakClock    = fixedClock(2026, 2, 10, 8, 0)
)

func fixedClock(y int, mo time.Month, d, h, m int) Clock {
	t := time.Date(y, mo, d, h, m, 0, 0, istanbul)
	return ClockFunc(func() time.Time { return t })
}

var testMapping = zone.Mapping{
	"Kadıköy":  1,
	"Üsküdar":  2,
	"Ataşehir": 3,
	"Beşiktaş": 4,
	"Fatih":    5,
	"Şişli":    6,
	"Bağcılar": 7,
	"Silivri":  8,
	"Adalar":   9,
	"Gebze":    8, // assigned a zone but absent from ProximityGroups
}

// countingSource is an in-memory zone.Source that counts fetches.
type countingSource struct {
	mapping zone.Mapping
	err     error
	calls   atomic.Int32
}

func (c *countingSource) FetchMapping(context.Context) (zone.Mapping, error) {
	c.calls.Add(1)
	if c.err != nil {
		return nil, c.err
	}
	return c.mapping, nil
}

func newTestService(m zone.Mapping, clock Clock) *Service {
	reg := zone.NewRegistry(&countingSource{mapping: m}, nil, nil)
	return NewService(reg, clock, nil, nil)
}

func TestService_Quote(t *testing.T) {
	tests := []struct {
		name      string
		req       QuoteRequest
		clock     Clock
		wantBase  int64
		wantFinal int64
		wantGroup *int
	}{
		{
			name:      "Regular zone 2 -> 5, desi 5-10, off-peak",
			req:       QuoteRequest{OriginDistrict: "Üsküdar", DestinationDistrict: "Fatih", Desi: "5-10"},
			clock:     offPeakClock,
			wantBase:  850,
			wantFinal: 893, // round(850*1.05)
		},
		{
			name:      "Regular zone 2 -> 5, desi 5-10, traffic",
			req:       QuoteRequest{OriginDistrict: "Üsküdar", DestinationDistrict: "Fatih", Desi: "5-10"},
			clock:     peakClock,
			wantBase:  850,
			wantFinal: 893 + 128, // round(892.5) + round(127.5)
		},
		{
			name:      "Regular intra-zone, no desi",
			req:       QuoteRequest{OriginDistrict: "Fatih", DestinationDistrict: "Fatih"},
			clock:     offPeakClock,
			wantBase:  500,
			wantFinal: 500,
		},
		{
			name:      "Regular zone 1 -> 8, desi 10-20, traffic",
			req:       QuoteRequest{OriginDistrict: "Kadıköy", DestinationDistrict: "Silivri", Desi: "10-20"},
			clock:     peakClock,
			wantBase:  1200,
			wantFinal: 1320 + 180,
		},
		{
			name:      "Special -> group 3, no desi, traffic",
			req:       QuoteRequest{OriginDistrict: "Adalar", DestinationDistrict: "Ataşehir"},
			clock:     peakClock,
			wantBase:  3000,
			wantFinal: 3450,
			wantGroup: intPtr(3),
		},
		{
			name:      "Group 3 -> special, no desi, traffic",
			req:       QuoteRequest{OriginDistrict: "Ataşehir", DestinationDistrict: "Adalar"},
			clock:     peakClock,
			wantBase:  3000,
			wantFinal: 3450,
			wantGroup: intPtr(3),
		},
		{
			name:      "Special -> group 1",
			req:       QuoteRequest{OriginDistrict: "Adalar", DestinationDistrict: "Kadıköy"},
			clock:     offPeakClock,
			wantBase:  2500,
			wantFinal: 2500,
			wantGroup: intPtr(1),
		},
		{
			name:      "Group 5 -> special, desi 2-5",
			req:       QuoteRequest{OriginDistrict: "Fatih", DestinationDistrict: "Adalar", Desi: "2-5"},
			clock:     offPeakClock,
			wantBase:  3500,
			wantFinal: 3535, // round(3500*1.01)
			wantGroup: intPtr(5),
		},
		{
			name:      "Special -> group 9",
			req:       QuoteRequest{OriginDistrict: "Adalar", DestinationDistrict: "Silivri"},
			clock:     offPeakClock,
			wantBase:  4500,
			wantFinal: 4500,
			wantGroup: intPtr(9),
		},
		{
			name:      "Special intra-zone",
			req:       QuoteRequest{OriginDistrict: "Adalar", DestinationDistrict: "Adalar"},
			clock:     offPeakClock,
			wantBase:  500,
			wantFinal: 500,
			wantGroup: intPtr(0),
		},
		{
			name:      "Special -> district missing from proximity table falls back to group 9",
			req:       QuoteRequest{OriginDistrict: "Adalar", DestinationDistrict: "Gebze"},
			clock:     offPeakClock,
			wantBase:  4500,
			wantFinal: 4500,
			wantGroup: intPtr(9),
		},
		{
			name:      "Special -> district with no zone still priced by proximity",
			req:       QuoteRequest{OriginDistrict: "Narnia", DestinationDistrict: "Adalar"},
			clock:     offPeakClock,
			wantBase:  4500,
			wantFinal: 4500,
			wantGroup: intPtr(9),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestService(testMapping, tt.clock)
			got, err := s.Quote(context.Background(), tt.req)
			if err != nil {
				t.Fatalf("Quote() error = %v", err)
			}
			if got.BasePrice != tt.wantBase {
				t.Errorf("BasePrice = %d, want %d", got.BasePrice, tt.wantBase)
			}
			if got.FinalPrice != tt.wantFinal {
				t.Errorf("FinalPrice = %d, want %d", got.FinalPrice, tt.wantFinal)
			}
			if got.IsSpecialRoute != (tt.wantGroup != nil) {
				t.Errorf("IsSpecialRoute = %v, want %v", got.IsSpecialRoute, tt.wantGroup != nil)
			}
			switch {
			case tt.wantGroup == nil && got.ProximityGroup != nil:
				t.Errorf("ProximityGroup = %d, want unset", *got.ProximityGroup)
			case tt.wantGroup != nil && got.ProximityGroup == nil:
				t.Errorf("ProximityGroup unset, want %d", *tt.wantGroup)
			case tt.wantGroup != nil && *got.ProximityGroup != *tt.wantGroup:
				t.Errorf("ProximityGroup = %d, want %d", *got.ProximityGroup, *tt.wantGroup)
			}
			if got.OriginDistrict != tt.req.OriginDistrict || got.DestinationDistrict != tt.req.DestinationDistrict {
				t.Errorf("districts = %s -> %s, want %s -> %s",
					got.OriginDistrict, got.DestinationDistrict, tt.req.OriginDistrict, tt.req.DestinationDistrict)
			}
		})
	}
}

func TestService_QuoteCarriesZonesAndMultipliers(t *testing.T) {
	s := newTestService(testMapping, peakClock)
	q, err := s.Quote(context.Background(), QuoteRequest{
		OriginDistrict:      "Üsküdar",
		DestinationDistrict: "Fatih",
		Desi:                "5-10",
	})
	if err != nil {
		t.Fatalf("Quote() error = %v", err)
	}
	if q.OriginZone != 2 || q.DestinationZone != 5 {
		t.Errorf("zones = %d -> %d, want 2 -> 5", q.OriginZone, q.DestinationZone)
	}
	if q.DesiMultiplier != 1.05 {
		t.Errorf("DesiMultiplier = %v, want 1.05", q.DesiMultiplier)
	}
	if q.TrafficMultiplier != 1.15 || !q.IsTrafficHour {
		t.Errorf("traffic = %v/%v, want 1.15/true", q.TrafficMultiplier, q.IsTrafficHour)
	}
	if q.PriceWithDesi != 893 || q.TrafficExtra != 128 {
		t.Errorf("PriceWithDesi/TrafficExtra = %d/%d, want 893/128", q.PriceWithDesi, q.TrafficExtra)
	}
	if q.Desi != "5-10" {
		t.Errorf("Desi = %q, want 5-10", q.Desi)
	}
	if got := q.Total(); got.Amount != 1021 || got.Currency != "TRY" {
		t.Errorf("Total() = %+v, want 1021 TRY", got)
	}
}

// The traffic surcharge is added on the unscaled base; compounding it with
// the desi multiplier would quote a different fare.
func TestService_TrafficSurchargeIsAdditive(t *testing.T) {
	s := newTestService(testMapping, peakClock)
	q, err := s.Quote(context.Background(), QuoteRequest{
		OriginDistrict:      "Kadıköy",
		DestinationDistrict: "Silivri",
		Desi:                "10-20",
	})
	if err != nil {
		t.Fatalf("Quote() error = %v", err)
	}
	additive := round(1200*1.10) + round(1200*TrafficSurcharge)
	compounded := round(1200 * 1.10 * 1.15)
	if additive == compounded {
		t.Fatalf("test fixture does not distinguish additive from compounded (%d)", additive)
	}
	if q.FinalPrice != additive {
		t.Errorf("FinalPrice = %d, want additive %d (compounded would be %d)", q.FinalPrice, additive, compounded)
	}
}

func TestService_RoundsEachTermBeforeSumming(t *testing.T) {
	s := newTestService(testMapping, peakClock)
	q, err := s.Quote(context.Background(), QuoteRequest{
		OriginDistrict:      "Üsküdar",
		DestinationDistrict: "Fatih",
		Desi:                "5-10",
	})
	if err != nil {
		t.Fatalf("Quote() error = %v", err)
	}
	// 892.5 + 127.5 rounded once would be 1020.
	if q.FinalPrice != 1021 {
		t.Errorf("FinalPrice = %d, want 1021", q.FinalPrice)
	}
}

func TestService_DesiOmittedMatchesSmallestBucket(t *testing.T) {
	s := newTestService(testMapping, offPeakClock)
	ctx := context.Background()
	for _, desi := range []string{"", "0-2", "unknown"} {
		q, err := s.Quote(ctx, QuoteRequest{OriginDistrict: "Beşiktaş", DestinationDistrict: "Şişli", Desi: desi})
		if err != nil {
			t.Fatalf("Quote(desi=%q) error = %v", desi, err)
		}
		if q.DesiMultiplier != 1.0 || q.FinalPrice != 850 {
			t.Errorf("desi=%q: multiplier=%v final=%d, want 1.0/850", desi, q.DesiMultiplier, q.FinalPrice)
		}
	}
}

func TestService_RegularBaseMatchesMatrix(t *testing.T) {
	mapping := zone.Mapping{}
	names := []string{"Kadıköy", "Üsküdar", "Ataşehir", "Beşiktaş", "Fatih", "Şişli", "Bağcılar", "Silivri"}
	for i, n := range names {
		mapping[n] = i + 1
	}
	for _, clock := range []Clock{offPeakClock, peakClock} {
		s := newTestService(mapping, clock)
		for i, o := range names {
			for j, d := range names {
				q, err := s.Quote(context.Background(), QuoteRequest{OriginDistrict: o, DestinationDistrict: d, Desi: "10-20"})
				if err != nil {
					t.Fatalf("Quote(%s, %s) error = %v", o, d, err)
				}
				if q.BasePrice != FareMatrix[i][j] {
					t.Errorf("Quote(%s, %s) base = %d, want %d", o, d, q.BasePrice, FareMatrix[i][j])
				}
			}
		}
	}
}

func TestService_SpecialRouteIsSymmetric(t *testing.T) {
	s := newTestService(testMapping, offPeakClock)
	ctx := context.Background()
	for district := range ProximityGroups {
		to, err := s.Quote(ctx, QuoteRequest{OriginDistrict: SpecialDistrict, DestinationDistrict: district})
		if err != nil {
			t.Fatalf("Quote(Adalar, %s) error = %v", district, err)
		}
		from, err := s.Quote(ctx, QuoteRequest{OriginDistrict: district, DestinationDistrict: SpecialDistrict})
		if err != nil {
			t.Fatalf("Quote(%s, Adalar) error = %v", district, err)
		}
		if to.BasePrice != from.BasePrice || *to.ProximityGroup != *from.ProximityGroup {
			t.Errorf("%s: to=%d/%d from=%d/%d", district, to.BasePrice, *to.ProximityGroup, from.BasePrice, *from.ProximityGroup)
		}
	}
}

func TestService_NoPrice(t *testing.T) {
	tests := []struct {
		name    string
		mapping zone.Mapping
		req     QuoteRequest
		wantErr error
	}{
		{
			name:    "origin has no zone",
			mapping: testMapping,
			req:     QuoteRequest{OriginDistrict: "Narnia", DestinationDistrict: "Fatih"},
			wantErr: ErrZoneNotFound,
		},
		{
			name:    "destination has no zone",
			mapping: testMapping,
			req:     QuoteRequest{OriginDistrict: "Fatih", DestinationDistrict: "Narnia"},
			wantErr: ErrZoneNotFound,
		},
		{
			name:    "zone above matrix",
			mapping: zone.Mapping{"Fatih": 12, "Şişli": 6},
			req:     QuoteRequest{OriginDistrict: "Fatih", DestinationDistrict: "Şişli"},
			wantErr: ErrInvalidZone,
		},
		{
			name:    "negative zone",
			mapping: zone.Mapping{"Fatih": -1, "Şişli": 6},
			req:     QuoteRequest{OriginDistrict: "Fatih", DestinationDistrict: "Şişli"},
			wantErr: ErrInvalidZone,
		},
		{
			name:    "regular district in the special zone never reads the zero placeholder",
			mapping: zone.Mapping{"Fatih": 9, "Şişli": 6},
			req:     QuoteRequest{OriginDistrict: "Fatih", DestinationDistrict: "Şişli"},
			wantErr: ErrInvalidZone,
		},
		{
			name:    "special route with out-of-range zone",
			mapping: zone.Mapping{"Adalar": 9, "Şişli": 40},
			req:     QuoteRequest{OriginDistrict: "Adalar", DestinationDistrict: "Şişli"},
			wantErr: ErrInvalidZone,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestService(tt.mapping, offPeakClock)
			q, err := s.Quote(context.Background(), tt.req)
			if q != nil {
				t.Errorf("Quote() = %+v, want nil", q)
			}
			if !errors.Is(err, ErrNoPrice) {
				t.Errorf("error = %v, want ErrNoPrice", err)
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestService_FetchFailureDegradesToNoPrice(t *testing.T) {
	src := &countingSource{err: errors.New("backend unavailable")}
	s := NewService(zone.NewRegistry(src, nil, nil), offPeakClock, nil, nil)

	_, err := s.Quote(context.Background(), QuoteRequest{OriginDistrict: "Kadıköy", DestinationDistrict: "Fatih"})
	if !errors.Is(err, ErrNoPrice) || !errors.Is(err, ErrZoneNotFound) {
		t.Errorf("error = %v, want ErrNoPrice wrapping ErrZoneNotFound", err)
	}
}

func TestService_ZoneChangeTriggersRefetch(t *testing.T) {
	src := &countingSource{mapping: testMapping}
	s := NewService(zone.NewRegistry(src, nil, nil), offPeakClock, nil, nil)
	ctx := context.Background()
	req := QuoteRequest{OriginDistrict: "Kadıköy", DestinationDistrict: "Fatih"}

	for i := 0; i < 3; i++ {
		if _, err := s.Quote(ctx, req); err != nil {
			t.Fatalf("Quote() error = %v", err)
		}
	}
	if n := src.calls.Load(); n != 1 {
		t.Fatalf("fetches before invalidation = %d, want 1", n)
	}

	s.OnZoneMappingChanged()
	if _, err := s.Quote(ctx, req); err != nil {
		t.Fatalf("Quote() error = %v", err)
	}
	if n := src.calls.Load(); n != 2 {
		t.Errorf("fetches after invalidation = %d, want 2", n)
	}
}

// staticZones is a Zones that serves a fixed mapping and counts invalidations.
type staticZones struct {
	mapping     zone.Mapping
	invalidated atomic.Int32
}

func (z *staticZones) Load(context.Context) zone.Mapping { return z.mapping }
func (z *staticZones) Invalidate()                       { z.invalidated.Add(1) }

func TestService_ZoneChangeInvalidatesAnyZones(t *testing.T) {
	z := &staticZones{mapping: testMapping}
	s := NewService(z, offPeakClock, nil, nil)

	s.OnZoneMappingChanged()
	s.OnZoneMappingChanged()
	if n := z.invalidated.Load(); n != 2 {
		t.Errorf("invalidations = %d, want 2", n)
	}
	if _, err := s.Quote(context.Background(), QuoteRequest{OriginDistrict: "Kadıköy", DestinationDistrict: "Fatih"}); err != nil {
		t.Fatalf("Quote() error = %v", err)
	}
}

func intPtr(v int) *int { return &v }
