// README: Package store backed by PostgreSQL.
package delivery

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"courier/internal/types"
)

// Repository is the persistence contract the service depends on.
type Repository interface {
	Create(ctx context.Context, p *Package) error
	Get(ctx context.Context, id types.ID) (*Package, error)
	List(ctx context.Context, status Status, limit int) ([]*Package, error)
	UpdateStatus(ctx context.Context, u StatusUpdate) (bool, error)
	AppendEvent(ctx context.Context, e *Event) error
	// Courier returns ErrCourierNotFound unless id is a courier profile.
	Courier(ctx context.Context, id types.ID) (*Courier, error)
}

// StatusUpdate moves a package from From to To if its version still matches.
type StatusUpdate struct {
	ID          types.ID
	From        Status
	To          Status
	Version     int
	CourierID   *types.ID
	CourierName *string
	Reason      *string
}

type Store struct {
	db *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

const packageColumns = `
        id, order_code, customer_id, status, status_version,
        pickup_lat, pickup_lng, pickup_district, pickup_address, pickup_name, pickup_phone,
        delivery_lat, delivery_lng, delivery_district, delivery_address, delivery_name, delivery_phone,
        desi, content, payment_method, payer,
        price, base_price, traffic_hour,
        assigned_courier_id, assigned_courier_name,
        created_at, assigned_at, picked_up_at, in_transit_at, delivered_at, cancelled_at, cancellation_reason`

func (s *Store) Create(ctx context.Context, p *Package) error {
	row := s.db.QueryRow(ctx, `
        INSERT INTO packages (
            id, customer_id, status, status_version,
            pickup_lat, pickup_lng, pickup_district, pickup_address, pickup_name, pickup_phone,
            delivery_lat, delivery_lng, delivery_district, delivery_address, delivery_name, delivery_phone,
            desi, content, payment_method, payer,
            price, base_price, traffic_hour, created_at
        ) VALUES (
            $1, $2, $3, $4,
            $5, $6, $7, $8, $9, $10,
            $11, $12, $13, $14, $15, $16,
            $17, $18, $19, $20,
            $21, $22, $23, $24
        )
        RETURNING order_code`,
		string(p.ID), nullIfEmpty(string(p.CustomerID)), string(p.Status), p.StatusVersion,
		p.Pickup.Point.Lat, p.Pickup.Point.Lng, p.Pickup.District, p.Pickup.Address, p.Pickup.Name, p.Pickup.Phone,
		p.Delivery.Point.Lat, p.Delivery.Point.Lng, p.Delivery.District, p.Delivery.Address, p.Delivery.Name, p.Delivery.Phone,
		p.Desi, p.Content, string(p.PaymentMethod), string(p.Payer),
		p.Price.Amount, p.BasePrice, p.IsTrafficHour, p.CreatedAt,
	)
	return row.Scan(&p.OrderCode)
}

func (s *Store) Get(ctx context.Context, id types.ID) (*Package, error) {
	row := s.db.QueryRow(ctx, `SELECT `+packageColumns+` FROM packages WHERE id = $1`, string(id))
	p, err := scanPackage(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return p, err
}

// List returns the newest packages first, optionally filtered by status.
func (s *Store) List(ctx context.Context, status Status, limit int) ([]*Package, error) {
	rows, err := s.db.Query(ctx, `
        SELECT `+packageColumns+`
        FROM packages
        WHERE ($1 = '' OR status = $1)
        ORDER BY created_at DESC
        LIMIT $2`, string(status), limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Package
	for rows.Next() {
		p, err := scanPackage(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *Store) UpdateStatus(ctx context.Context, u StatusUpdate) (bool, error) {
	tag, err := s.db.Exec(ctx, `
        UPDATE packages
        SET status = $1,
            status_version = status_version + 1,
            assigned_courier_id = COALESCE($2, assigned_courier_id),
            assigned_courier_name = COALESCE($3, assigned_courier_name),
            cancellation_reason = COALESCE($4, cancellation_reason),
            assigned_at = CASE WHEN $1 = 'assigned' THEN NOW() ELSE assigned_at END,
            picked_up_at = CASE WHEN $1 = 'picked-up' THEN NOW() ELSE picked_up_at END,
            in_transit_at = CASE WHEN $1 = 'in-transit' THEN NOW() ELSE in_transit_at END,
            delivered_at = CASE WHEN $1 = 'delivered' THEN NOW() ELSE delivered_at END,
            cancelled_at = CASE WHEN $1 = 'cancelled' THEN NOW() ELSE cancelled_at END
        WHERE id = $5 AND status = $6 AND status_version = $7`,
		string(u.To),
		toStringPtr(u.CourierID),
		u.CourierName,
		u.Reason,
		string(u.ID),
		string(u.From),
		u.Version,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (s *Store) AppendEvent(ctx context.Context, e *Event) error {
	_, err := s.db.Exec(ctx, `
        INSERT INTO package_events (
            package_id, from_status, to_status, actor_type, actor_id, created_at
        ) VALUES ($1, $2, $3, $4, $5, $6)`,
		string(e.PackageID),
		string(e.FromStatus),
		string(e.ToStatus),
		e.ActorType,
		toStringPtr(e.ActorID),
		e.CreatedAt,
	)
	return err
}

func scanPackage(row pgx.Row) (*Package, error) {
	var p Package
	var customerID, courierID, courierName, cancelReason sql.NullString
	var assignedAt, pickedUpAt, inTransitAt, deliveredAt, cancelledAt sql.NullTime
	var paymentMethod, payer string

	err := row.Scan(
		&p.ID, &p.OrderCode, &customerID, &p.Status, &p.StatusVersion,
		&p.Pickup.Point.Lat, &p.Pickup.Point.Lng, &p.Pickup.District, &p.Pickup.Address, &p.Pickup.Name, &p.Pickup.Phone,
		&p.Delivery.Point.Lat, &p.Delivery.Point.Lng, &p.Delivery.District, &p.Delivery.Address, &p.Delivery.Name, &p.Delivery.Phone,
		&p.Desi, &p.Content, &paymentMethod, &payer,
		&p.Price.Amount, &p.BasePrice, &p.IsTrafficHour,
		&courierID, &courierName,
		&p.CreatedAt, &assignedAt, &pickedUpAt, &inTransitAt, &deliveredAt, &cancelledAt, &cancelReason,
	)
	if err != nil {
		return nil, err
	}

	p.Price.Currency = types.CurrencyTRY
	p.PaymentMethod = PaymentMethod(paymentMethod)
	p.Payer = Payer(payer)
	if customerID.Valid {
		p.CustomerID = types.ID(customerID.String)
	}
	if courierID.Valid {
		c := types.ID(courierID.String)
		p.CourierID = &c
	}
	if courierName.Valid {
		p.CourierName = &courierName.String
	}
	if cancelReason.Valid {
		p.CancelReason = &cancelReason.String
	}
	p.AssignedAt = toTimePtr(assignedAt)
	p.PickedUpAt = toTimePtr(pickedUpAt)
	p.InTransitAt = toTimePtr(inTransitAt)
	p.DeliveredAt = toTimePtr(deliveredAt)
	p.CancelledAt = toTimePtr(cancelledAt)
	return &p, nil
}

func nullIfEmpty(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}

func toStringPtr(v *types.ID) *string {
	if v == nil {
		return nil
	}
	s := string(*v)
	return &s
}

func toTimePtr(v sql.NullTime) *time.Time {
	if !v.Valid {
		return nil
	}
	t := v.Time
	return &t
}

func (s *Store) Courier(ctx context.Context, id types.ID) (*Courier, error) {
	c := Courier{ID: id}
	err := s.db.QueryRow(ctx,
		`SELECT full_name FROM profiles WHERE id = $1 AND role = 'courier'`,
		string(id),
	).Scan(&c.Name)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrCourierNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}
