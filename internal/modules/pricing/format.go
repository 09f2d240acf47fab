package pricing

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

const currencySymbol = "₺"

// FormatPrice renders a whole-lira amount with Turkish digit grouping and a
// trailing currency symbol, e.g. 1500 -> "1.500 ₺".
func FormatPrice(price int64) string {
	return message.NewPrinter(language.Turkish).Sprintf("%d", price) + " " + currencySymbol
}
