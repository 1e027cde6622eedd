package payments

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
)

// NormalizeCurrency validates an ISO-4217 code in any case.
func NormalizeCurrency(code string) (currency.Unit, error) {
	c := strings.ToUpper(strings.TrimSpace(code))
	if len(c) != 3 {
		return currency.Unit{}, fmt.Errorf("%w: %q", ErrInvalidCurrency, code)
	}
	u, err := currency.ParseISO(c)
	if err != nil {
		return currency.Unit{}, fmt.Errorf("%w: %q", ErrInvalidCurrency, code)
	}
	return u, nil
}

// MinorToMajor converts an amount in minor units to major units using the
// currency's standard scale: 2500 USD -> 25.00, 500 JPY -> 500,
// 1500 KWD -> 1.500.
func MinorToMajor(minor int64, unit currency.Unit) decimal.Decimal {
	scale, _ := currency.Standard.Rounding(unit)
	return decimal.New(minor, -int32(scale))
}
