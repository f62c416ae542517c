// Package payments is the narrow port to the hosted-checkout provider. The
// storefront never touches card data: it creates a session and redirects
// the customer to the provider's URL.
package payments

import (
	"context"

	"github.com/go-faster/errors"
)

// ErrSessionFailed is returned when the provider refuses to create a session.
var ErrSessionFailed = errors.New("payment session creation failed")

// Item is one priced line presented on the provider's payment page. Amounts
// are minor units; the currency is fixed system-wide.
type Item struct {
	Name      string
	UnitMinor int64
	Quantity  int
}

// Session is a created hosted-checkout session.
type Session struct {
	ID  string
	URL string
}

// Request holds everything needed to create a session.
type Request struct {
	Items         []Item
	ShippingMinor int64
	Reference     string
	SuccessURL    string
	CancelURL     string
}

// Client creates hosted-checkout sessions.
type Client interface {
	CreateSession(ctx context.Context, req Request) (*Session, error)
}
