package models

import (
	// External Packages
	"github.com/shopspring/decimal"
)

// minimumCharge holds the smallest chargeable amount per currency, mirroring
// the floors the major providers enforce. Currencies not listed default to
// zero (any positive amount).
var minimumCharge = map[string]decimal.Decimal{
	"USD": decimal.RequireFromString("0.50"),
	"EUR": decimal.RequireFromString("0.50"),
	"GBP": decimal.RequireFromString("0.30"),
	"NGN": decimal.RequireFromString("50"),
	"GHS": decimal.RequireFromString("1"),
	"KES": decimal.RequireFromString("50"),
	"ZAR": decimal.RequireFromString("5"),
	"JPY": decimal.RequireFromString("50"),
}

// ValidCurrency reports whether code is a well-formed ISO-4217 code:
// exactly three uppercase ASCII letters.
func ValidCurrency(code string) bool {
	if len(code) != 3 {
		return false
	}
	for _, c := range code {
		if c < 'A' || c > 'Z' {
			return false
		}
	}
	return true
}

// MinimumCharge returns the minimum chargeable amount for a currency.
func MinimumCharge(currency string) decimal.Decimal {
	if min, ok := minimumCharge[currency]; ok {
		return min
	}
	return decimal.Zero
}
