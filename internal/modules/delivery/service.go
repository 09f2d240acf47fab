// README: Delivery service prices new packages and drives their lifecycle.
package delivery

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"courier/internal/metrics"
	"courier/internal/modules/pricing"
	"courier/internal/types"
)

// Pricer quotes a delivery between two districts.
type Pricer interface {
	Quote(ctx context.Context, req pricing.QuoteRequest) (*pricing.Quote, error)
}

// DistrictResolver looks up the district a coordinate falls in.
type DistrictResolver interface {
	District(ctx context.Context, p types.Point) (string, error)
}

var (
	ErrInvalidState = errors.New("invalid state transition")
	ErrNotFound     = errors.New("package not found")
	ErrConflict     = errors.New("package state conflict")
	ErrBadRequest   = errors.New("bad request")

	ErrCourierNotFound = errors.New("courier not found")
)

const defaultListLimit = 100

type Service struct {
	repo    Repository
	pricer  Pricer
	geo     DistrictResolver
	logger  *slog.Logger
	metrics *metrics.Metrics
	now     func() time.Time
}

// NewService wires the package service. geo may be nil, in which case every
// package must arrive with both districts filled in.
func NewService(repo Repository, pricer Pricer, geo DistrictResolver, logger *slog.Logger, m *metrics.Metrics) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, pricer: pricer, geo: geo, logger: logger, metrics: m, now: time.Now}
}

type CreateCommand struct {
	CustomerID    types.ID
	Pickup        Stop
	Delivery      Stop
	Desi          string
	Content       string
	PaymentMethod PaymentMethod
	Payer         Payer
}

type AssignCommand struct {
	PackageID   types.ID
	CourierID   types.ID
	CourierName string
	ActorID     types.ID
}

type AdvanceCommand struct {
	PackageID types.ID
	To        Status
	ActorID   types.ID
}

type CancelCommand struct {
	PackageID types.ID
	Reason    string
	ActorID   types.ID
}

func (s *Service) Create(ctx context.Context, cmd CreateCommand) (*Package, error) {
	if err := validateCreate(&cmd); err != nil {
		return nil, err
	}
	if err := s.fillDistrict(ctx, &cmd.Pickup); err != nil {
		return nil, err
	}
	if err := s.fillDistrict(ctx, &cmd.Delivery); err != nil {
		return nil, err
	}

	q, err := s.pricer.Quote(ctx, pricing.QuoteRequest{
		OriginDistrict:      cmd.Pickup.District,
		DestinationDistrict: cmd.Delivery.District,
		Desi:                cmd.Desi,
	})
	if err != nil {
		return nil, err
	}

	now := s.now()
	p := &Package{
		ID:            newID(),
		CustomerID:    cmd.CustomerID,
		Status:        StatusNew,
		StatusVersion: 0,
		Pickup:        cmd.Pickup,
		Delivery:      cmd.Delivery,
		Desi:          cmd.Desi,
		Content:       cmd.Content,
		PaymentMethod: cmd.PaymentMethod,
		Payer:         cmd.Payer,
		Price:         q.Total(),
		BasePrice:     q.BasePrice,
		IsTrafficHour: q.IsTrafficHour,
		CreatedAt:     now,
	}
	if err := s.repo.Create(ctx, p); err != nil {
		return nil, err
	}

	var actor *types.ID
	if cmd.CustomerID != "" {
		actor = &cmd.CustomerID
	}
	s.appendEvent(ctx, &Event{
		PackageID:  p.ID,
		FromStatus: StatusNone,
		ToStatus:   StatusNew,
		ActorType:  "customer",
		ActorID:    actor,
		CreatedAt:  now,
	})
	s.metrics.RecordPackageCreated()
	s.logger.Info("package created",
		"package_id", p.ID,
		"order_code", p.OrderCode,
		"from", p.Pickup.District,
		"to", p.Delivery.District,
		"price", p.Price.Amount,
	)
	return p, nil
}

func (s *Service) Get(ctx context.Context, id types.ID) (*Package, error) {
	return s.repo.Get(ctx, id)
}

// List returns recent packages; an empty status lists all of them.
func (s *Service) List(ctx context.Context, status Status) ([]*Package, error) {
	return s.repo.List(ctx, status, defaultListLimit)
}

func (s *Service) Assign(ctx context.Context, cmd AssignCommand) error {
	if cmd.CourierID == "" {
		return fmt.Errorf("%w: courier id required", ErrBadRequest)
	}
	courier, err := s.repo.Courier(ctx, cmd.CourierID)
	if errors.Is(err, ErrCourierNotFound) {
		return fmt.Errorf("%w: %w", ErrBadRequest, err)
	}
	if err != nil {
		return err
	}
	name := strings.TrimSpace(cmd.CourierName)
	if name == "" {
		name = courier.Name
	}
	return s.transition(ctx, cmd.PackageID, StatusAssigned, cmd.ActorID, func(u *StatusUpdate) {
		u.CourierID = &cmd.CourierID
		if name != "" {
			u.CourierName = &name
		}
	})
}

// Advance moves an assigned package forward through pickup, transit and
// delivery. Assignment and cancellation have their own entry points.
func (s *Service) Advance(ctx context.Context, cmd AdvanceCommand) error {
	switch cmd.To {
	case StatusPickedUp, StatusInTransit, StatusDelivered:
	default:
		return fmt.Errorf("%w: cannot advance to %q", ErrBadRequest, cmd.To)
	}
	return s.transition(ctx, cmd.PackageID, cmd.To, cmd.ActorID, nil)
}

func (s *Service) Cancel(ctx context.Context, cmd CancelCommand) error {
	reason := strings.TrimSpace(cmd.Reason)
	return s.transition(ctx, cmd.PackageID, StatusCancelled, cmd.ActorID, func(u *StatusUpdate) {
		if reason != "" {
			u.Reason = &reason
		}
	})
}

func (s *Service) transition(ctx context.Context, id types.ID, to Status, actorID types.ID, mutate func(*StatusUpdate)) error {
	p, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if !CanTransition(p.Status, to) {
		return ErrInvalidState
	}
	u := StatusUpdate{ID: p.ID, From: p.Status, To: to, Version: p.StatusVersion}
	if mutate != nil {
		mutate(&u)
	}
	ok, err := s.repo.UpdateStatus(ctx, u)
	if err != nil {
		return err
	}
	if !ok {
		return ErrConflict
	}

	var actor *types.ID
	if actorID != "" {
		actor = &actorID
	}
	s.appendEvent(ctx, &Event{
		PackageID:  p.ID,
		FromStatus: p.Status,
		ToStatus:   to,
		ActorType:  "staff",
		ActorID:    actor,
		CreatedAt:  s.now(),
	})
	s.metrics.RecordPackageTransition(string(to))
	s.logger.Info("package status changed", "package_id", p.ID, "from", p.Status, "to", to)
	return nil
}

func (s *Service) appendEvent(ctx context.Context, e *Event) {
	if err := s.repo.AppendEvent(ctx, e); err != nil {
		s.logger.Warn("append package event", "package_id", e.PackageID, "error", err)
	}
}

// fillDistrict reverse-geocodes the stop when the caller left the district empty.
func (s *Service) fillDistrict(ctx context.Context, stop *Stop) error {
	if stop.District != "" {
		return nil
	}
	if s.geo == nil || stop.Point.IsZero() {
		return fmt.Errorf("%w: district required", ErrBadRequest)
	}
	d, err := s.geo.District(ctx, stop.Point)
	if err != nil {
		return fmt.Errorf("%w: %w", pricing.ErrNoPrice, err)
	}
	stop.District = d
	return nil
}

func validateCreate(cmd *CreateCommand) error {
	cmd.Pickup.District = strings.TrimSpace(cmd.Pickup.District)
	cmd.Delivery.District = strings.TrimSpace(cmd.Delivery.District)
	if strings.TrimSpace(cmd.Pickup.Address) == "" || strings.TrimSpace(cmd.Delivery.Address) == "" {
		return fmt.Errorf("%w: pickup and delivery address required", ErrBadRequest)
	}
	if strings.TrimSpace(cmd.Delivery.Name) == "" || strings.TrimSpace(cmd.Delivery.Phone) == "" {
		return fmt.Errorf("%w: receiver name and phone required", ErrBadRequest)
	}
	if cmd.PaymentMethod == "" {
		cmd.PaymentMethod = PaymentCash
	}
	if cmd.Payer == "" {
		cmd.Payer = PayerSender
	}
	switch cmd.PaymentMethod {
	case PaymentCash, PaymentCard:
	default:
		return fmt.Errorf("%w: unknown payment method %q", ErrBadRequest, cmd.PaymentMethod)
	}
	switch cmd.Payer {
	case PayerSender, PayerReceiver:
	default:
		return fmt.Errorf("%w: unknown payer %q", ErrBadRequest, cmd.Payer)
	}
	return nil
}

func newID() types.ID {
	var b [16]byte
	_, _ = rand.Read(b[:])
	return types.ID(hex.EncodeToString(b[:]))
}
