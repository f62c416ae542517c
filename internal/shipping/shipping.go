// Package shipping quotes delivery costs through the external fulfillment
// provider. Estimates shown in the cart are advisory; checkout requests a
// fresh confirmed quote of its own.
package shipping

import (
	"context"

	"github.com/go-faster/errors"
)

// ErrUnavailable is returned when the provider cannot quote the destination.
var ErrUnavailable = errors.New("shipping estimate unavailable")

// Destination is where the order ships.
type Destination struct {
	Country    string
	PostalCode string
}

// Item is one cart line to quote. Prices are not sent: the provider rates by
// product and quantity only.
type Item struct {
	ProductID int64
	VariantID string
	Quantity  int
}

// Estimate is a quote in minor units. Zero is a real quote (free shipping),
// distinct from no quote at all.
type Estimate struct {
	Minor int64
}

// Estimator produces a shipping quote for a set of items and a destination.
type Estimator interface {
	Estimate(ctx context.Context, items []Item, dest Destination) (*Estimate, error)
}
