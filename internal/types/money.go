// README: Common value objects shared across modules (money, ids, points).
package types

// CurrencyTRY is the only currency quotes are issued in.
const CurrencyTRY = "TRY"

type Money struct {
	Amount   int64
	Currency string
}

// TRY wraps a whole-lira amount.
func TRY(amount int64) Money {
	return Money{Amount: amount, Currency: CurrencyTRY}
}

type ID string

type Point struct {
	Lat float64
	Lng float64
}

// IsZero reports whether the point was never set.
func (p Point) IsZero() bool {
	return p.Lat == 0 && p.Lng == 0
}
