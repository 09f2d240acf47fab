// README: Reverse geocoding from coordinates to an Istanbul district, behind a circuit breaker.
package maps

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/sony/gobreaker"
	"googlemaps.github.io/maps"

	"courier/internal/modules/zone"
	"courier/internal/types"
)

var (
	ErrDistrictNotFound = errors.New("no known district at location")
	ErrUnavailable      = errors.New("geocoder unavailable")
)

// reverseGeocoder is the slice of *maps.Client the geocoder needs.
type reverseGeocoder interface {
	ReverseGeocode(ctx context.Context, r *maps.GeocodingRequest) ([]maps.GeocodingResult, error)
}

// Geocoder resolves a coordinate to one of zone.Districts.
type Geocoder struct {
	client  reverseGeocoder
	breaker *gobreaker.CircuitBreaker
	logger  *slog.Logger
}

// NewGeocoder creates a Geocoder with the given API Key.
func NewGeocoder(apiKey string, logger *slog.Logger) (*Geocoder, error) {
	client, err := maps.NewClient(maps.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create maps client: %w", err)
	}
	return newGeocoder(client, logger), nil
}

func newGeocoder(client reverseGeocoder, logger *slog.Logger) *Geocoder {
	if logger == nil {
		logger = slog.Default()
	}
	settings := gobreaker.Settings{
		Name:        "maps-geocode",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		// A location outside Istanbul is a valid answer, not an outage.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrDistrictNotFound)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed",
				"name", name,
				"from", from.String(),
				"to", to.String(),
			)
		},
	}
	return &Geocoder{client: client, breaker: gobreaker.NewCircuitBreaker(settings), logger: logger}
}

// District returns the district containing p.
func (g *Geocoder) District(ctx context.Context, p types.Point) (string, error) {
	out, err := g.breaker.Execute(func() (interface{}, error) {
		return g.lookup(ctx, p)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return "", fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	if err != nil {
		return "", err
	}
	return out.(string), nil
}

// State exposes the breaker state; /health reports it.
func (g *Geocoder) State() gobreaker.State {
	return g.breaker.State()
}

func (g *Geocoder) lookup(ctx context.Context, p types.Point) (string, error) {
	results, err := g.client.ReverseGeocode(ctx, &maps.GeocodingRequest{
		LatLng:     &maps.LatLng{Lat: p.Lat, Lng: p.Lng},
		ResultType: []string{"administrative_area_level_2"},
		Language:   "tr",
	})
	if err != nil {
		return "", fmt.Errorf("geocode api error: %w", err)
	}
	for _, r := range results {
		for _, c := range r.AddressComponents {
			if !hasType(c.Types, "administrative_area_level_2") {
				continue
			}
			if d, ok := matchDistrict(c.LongName); ok {
				return d, nil
			}
		}
	}
	g.logger.Info("no district for location", "lat", p.Lat, "lng", p.Lng, "results", len(results))
	return "", ErrDistrictNotFound
}

// matchDistrict maps a geocoder component name onto the canonical spelling.
func matchDistrict(name string) (string, bool) {
	name = strings.TrimSpace(name)
	for _, d := range zone.Districts {
		if strings.EqualFold(d, name) {
			return d, true
		}
	}
	return "", false
}

func hasType(kinds []string, want string) bool {
	for _, t := range kinds {
		if t == want {
			return true
		}
	}
	return false
}
