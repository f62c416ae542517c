package money

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormat_USLocale(t *testing.T) {
	assert.Equal(t, "$25.00", Format(2500, "en-US"))
	assert.Equal(t, "$0.05", Format(5, "en-US"))
	assert.Equal(t, "$1,234.56", Format(123456, "en-US"))
}

func TestFormat_LocaleChangesConventionOnly(t *testing.T) {
	us := Format(123456, "en-US")
	de := Format(123456, "de-DE")

	// Same currency, different grouping/decimal conventions.
	assert.NotEqual(t, us, de)
	assert.Contains(t, de, "1.234,56")
}

func TestFormat_BadLocaleFallsBack(t *testing.T) {
	assert.Equal(t, Format(2500, "en-US"), Format(2500, "!!nope!!"))
}

func TestTotalWithShipping(t *testing.T) {
	confirmed := int64(750)
	free := int64(0)

	assert.Equal(t, int64(2500+FallbackShippingMinor), TotalWithShipping(2500, nil))
	assert.Equal(t, int64(3250), TotalWithShipping(2500, &confirmed))
	assert.Equal(t, int64(2500), TotalWithShipping(2500, &free))
}

func TestFormatShipping_UnknownAndFreeDiffer(t *testing.T) {
	free := int64(0)
	paid := int64(750)

	unknown := FormatShipping(nil, "en-US")
	confirmedFree := FormatShipping(&free, "en-US")

	require.NotEqual(t, unknown, confirmedFree)
	assert.Equal(t, ShippingUnknownLabel, unknown)
	assert.Equal(t, ShippingFreeLabel, confirmedFree)
	assert.Equal(t, "$7.50", FormatShipping(&paid, "en-US"))
}
