// README: Zone administration: read and replace the district to zone assignments.
package zone

import (
	"context"
	"fmt"
	"log/slog"
)

type Saver interface {
	SaveMapping(ctx context.Context, m Mapping) error
}

type Publisher interface {
	Publish(ctx context.Context) error
}

type Service struct {
	store    Saver
	registry *Registry
	feed     Publisher
	logger   *slog.Logger
}

// NewService wires the admin workflow. feed may be nil for single-instance
// deployments.
func NewService(store Saver, registry *Registry, feed Publisher, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: store, registry: registry, feed: feed, logger: logger}
}

func (s *Service) Get(ctx context.Context) Mapping {
	return s.registry.Load(ctx).Clone()
}

// Save validates and persists m, then invalidates every cached copy.
func (s *Service) Save(ctx context.Context, m Mapping) error {
	if err := Validate(m); err != nil {
		return err
	}
	if err := s.store.SaveMapping(ctx, m.Clone()); err != nil {
		return fmt.Errorf("save zones: %w", err)
	}
	s.registry.Invalidate()
	if s.feed != nil {
		if err := s.feed.Publish(ctx); err != nil {
			// Local cache is already clear; other instances stay stale until restart.
			s.logger.Error("publish zone change failed", "error", err)
		}
	}
	s.logger.Info("zone assignments saved", "districts", len(m))
	return nil
}

// Validate checks that every entry names a known district and a zone in range.
func Validate(m Mapping) error {
	for d, z := range m {
		if !IsKnownDistrict(d) {
			return fmt.Errorf("%w: %q", ErrUnknownDistrict, d)
		}
		if !ValidZone(z) {
			return fmt.Errorf("%w: %s=%d", ErrZoneOutOfRange, d, z)
		}
	}
	return nil
}
