// Package catalog is the trusted product/variant source of record. Cart
// lines snapshot their display data from here at add time, and checkout
// re-derives every price from here; client-supplied prices are never
// trusted.
package catalog

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when a requested product variant does not exist.
var ErrNotFound = errors.New("variant not found")

// VariantKey identifies one purchasable row: product plus variant.
type VariantKey struct {
	ProductID int64
	VariantID string
}

// Listing is one purchasable product+variant row as the storefront sells it.
// Price is in major units (NUMERIC in the database).
type Listing struct {
	ProductID int64
	VariantID string
	Name      string
	Image     string
	Size      string
	Color     string
	Price     decimal.Decimal
}

// Key returns the listing's identity pair.
func (l Listing) Key() VariantKey {
	return VariantKey{ProductID: l.ProductID, VariantID: l.VariantID}
}

// PriceMinor converts the listing price to integer minor units (cents).
func (l Listing) PriceMinor() int64 {
	return l.Price.Shift(2).IntPart()
}

// Repository defines read operations over the catalog.
type Repository interface {
	List(ctx context.Context) ([]Listing, error)
	Get(ctx context.Context, productID int64, variantID string) (*Listing, error)
	GetBatch(ctx context.Context, keys []VariantKey) ([]Listing, error)
}
