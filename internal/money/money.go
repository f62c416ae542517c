// Package money handles integer minor-unit amounts and their localized
// display. The currency is fixed at USD across the whole storefront; a
// locale only changes number formatting conventions, never the currency and
// never the amount.
package money

import (
	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// usdSymbol is the narrow symbol for the single currency everything is
// denominated in.
const usdSymbol = "$"

// FallbackShippingMinor is charged while no live shipping estimate is
// available. It is a placeholder for "unknown", which is a different state
// from a confirmed free (zero) estimate.
const FallbackShippingMinor int64 = 1500

// ShippingUnknownLabel is displayed while an estimate is pending or failed.
const ShippingUnknownLabel = "—"

// ShippingFreeLabel is displayed for a confirmed zero estimate.
const ShippingFreeLabel = "Free"

// Format renders minor units using the locale's number conventions.
// Unparseable locales fall back to en-US. No currency conversion happens
// here or anywhere else: the integer is always USD cents.
func Format(minor int64, locale string) string {
	tag, err := language.Parse(locale)
	if err != nil {
		tag = language.AmericanEnglish
	}
	p := message.NewPrinter(tag)
	amount := decimal.New(minor, -2).InexactFloat64()
	return usdSymbol + p.Sprint(number.Decimal(amount,
		number.MinFractionDigits(2),
		number.MaxFractionDigits(2),
	))
}

// TotalWithShipping returns subtotal plus the live shipping estimate in
// minor units. A nil estimate means unknown and substitutes the fallback;
// a pointer to zero is a confirmed free estimate and adds nothing.
func TotalWithShipping(subtotalMinor int64, shippingMinor *int64) int64 {
	if shippingMinor == nil {
		return subtotalMinor + FallbackShippingMinor
	}
	return subtotalMinor + *shippingMinor
}

// FormatShipping renders a shipping estimate, keeping the unknown and
// confirmed-free states textually distinct.
func FormatShipping(shippingMinor *int64, locale string) string {
	switch {
	case shippingMinor == nil:
		return ShippingUnknownLabel
	case *shippingMinor == 0:
		return ShippingFreeLabel
	default:
		return Format(*shippingMinor, locale)
	}
}
