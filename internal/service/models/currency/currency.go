package currency

import (
	"database/sql/driver"
	"errors"
	"strings"
)

// Currency is an ISO 4217 code. Amounts are always stored in the currency's minor unit.
type Currency string

const (
	CurrencyXOF Currency = "XOF"
	CurrencyXAF Currency = "XAF"
	CurrencyGHS Currency = "GHS"
	CurrencyNGN Currency = "NGN"
	CurrencyEUR Currency = "EUR"
	CurrencyUSD Currency = "USD"
)

var ErrInvalidCurrency = errors.New("invalid currency")

func (c Currency) String() string {
	return string(c)
}

func (c Currency) Value() (driver.Value, error) {
	return c.String(), nil
}

// ParseCurrency accepts a code in any case.
func ParseCurrency(s string) (Currency, error) {
	switch c := Currency(strings.ToUpper(strings.TrimSpace(s))); c {
	case CurrencyXOF, CurrencyXAF, CurrencyGHS, CurrencyNGN, CurrencyEUR, CurrencyUSD:
		return c, nil
	default:
		return "", ErrInvalidCurrency
	}
}
