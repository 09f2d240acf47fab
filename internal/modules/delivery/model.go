// README: Delivery package aggregate and status definitions.
package delivery

import (
	"time"

	"courier/internal/types"
)

type Status string

const (
	StatusNone      Status = "none"
	StatusNew       Status = "new"
	StatusAssigned  Status = "assigned"
	StatusPickedUp  Status = "picked-up"
	StatusInTransit Status = "in-transit"
	StatusDelivered Status = "delivered"
	StatusCancelled Status = "cancelled"
)

type PaymentMethod string

const (
	PaymentCash PaymentMethod = "cash"
	PaymentCard PaymentMethod = "card"
)

type Payer string

const (
	PayerSender   Payer = "sender"
	PayerReceiver Payer = "receiver"
)

// Stop is one end of a delivery: where and who.
type Stop struct {
	Point    types.Point
	District string
	Address  string
	Name     string
	Phone    string
}

type Package struct {
	ID            types.ID
	OrderCode     int64
	CustomerID    types.ID
	Status        Status
	StatusVersion int
	Pickup        Stop
	Delivery      Stop
	Desi          string
	Content       string
	PaymentMethod PaymentMethod
	Payer         Payer

	Price         types.Money
	BasePrice     int64
	IsTrafficHour bool

	CourierID   *types.ID
	CourierName *string

	CreatedAt    time.Time
	AssignedAt   *time.Time
	PickedUpAt   *time.Time
	InTransitAt  *time.Time
	DeliveredAt  *time.Time
	CancelledAt  *time.Time
	CancelReason *string
}

// Courier is a staff profile that packages can be assigned to.
type Courier struct {
	ID   types.ID
	Name string
}

type Event struct {
	ID         int64
	PackageID  types.ID
	FromStatus Status
	ToStatus   Status
	ActorType  string
	ActorID    *types.ID
	CreatedAt  time.Time
}

// AllowedTransitions is the package lifecycle as code.
var AllowedTransitions = map[Status][]Status{
	StatusNew:       {StatusAssigned, StatusCancelled},
	StatusAssigned:  {StatusPickedUp, StatusCancelled},
	StatusPickedUp:  {StatusInTransit, StatusCancelled},
	StatusInTransit: {StatusDelivered},
}

func CanTransition(from, to Status) bool {
	next, ok := AllowedTransitions[from]
	if !ok {
		return false
	}
	for _, s := range next {
		if s == to {
			return true
		}
	}
	return false
}

// IsActive reports whether a courier is currently handling the package.
func (s Status) IsActive() bool {
	return s == StatusAssigned || s == StatusPickedUp || s == StatusInTransit
}

func ParseStatus(v string) (Status, bool) {
	switch s := Status(v); s {
	case StatusNew, StatusAssigned, StatusPickedUp, StatusInTransit, StatusDelivered, StatusCancelled:
		return s, true
	}
	return "", false
}
