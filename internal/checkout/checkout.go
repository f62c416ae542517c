// Package checkout hands a cart off to the payment provider. Every line is
// repriced from the catalog here; the client's price snapshots are display
// state and are never trusted for money movement.
package checkout

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"

	"github.com/keysforall/cart-service/internal/cart"
	"github.com/keysforall/cart-service/internal/catalog"
	"github.com/keysforall/cart-service/internal/payments"
	"github.com/keysforall/cart-service/internal/shipping"
)

// ErrEmptyCart is returned when checkout is attempted with no items.
var ErrEmptyCart = errors.New("cart is empty")

// UnknownVariantError indicates a cart line that no longer matches the
// catalog (deleted product, retired variant).
type UnknownVariantError struct {
	ProductID int64
	VariantID string
}

func (e *UnknownVariantError) Error() string {
	return fmt.Sprintf("variant %d/%s not in catalog", e.ProductID, e.VariantID)
}

// Destination is the customer-entered shipping destination.
type Destination struct {
	Country    string
	PostalCode string
}

// Order is the persisted record of a checkout handoff. Monetary fields are
// the server-derived amounts, in minor units.
type Order struct {
	ID            string
	SessionID     string
	Items         []cart.LineItem
	SubtotalMinor int64
	ShippingMinor int64
	TotalMinor    int64
	Destination   Destination
	PaymentRef    string
	CreatedAt     time.Time
}

// Repository persists checkout orders.
type Repository interface {
	Create(ctx context.Context, order *Order) error
}

// Result is returned to the storefront: where to send the customer.
type Result struct {
	OrderID string
	URL     string
}

// Config holds the redirect URLs handed to the payment provider.
type Config struct {
	SuccessURL string
	CancelURL  string
}

// Service performs the checkout handoff.
type Service struct {
	cfg      Config
	catalog  catalog.Repository
	shipping shipping.Estimator
	payments payments.Client
	orders   Repository
}

// NewService creates a checkout Service with its collaborators.
func NewService(
	cfg Config,
	cat catalog.Repository,
	est shipping.Estimator,
	pay payments.Client,
	orders Repository,
) *Service {
	return &Service{
		cfg:      cfg,
		catalog:  cat,
		shipping: est,
		payments: pay,
		orders:   orders,
	}
}

// Checkout reprices the item snapshot from the catalog, obtains a confirmed
// shipping quote, creates the payment session, persists the order, and
// returns the redirect URL. Unlike the cart's advisory estimate, a failed
// quote here fails the checkout: the customer must never be charged an
// unconfirmed shipping amount.
func (s *Service) Checkout(ctx context.Context, sessionID string, items []cart.LineItem, dest Destination) (*Result, error) {
	if len(items) == 0 {
		return nil, ErrEmptyCart
	}

	// Batch fetch every line's listing in one query.
	keys := make([]catalog.VariantKey, len(items))
	for i, it := range items {
		keys[i] = catalog.VariantKey{ProductID: it.ProductID, VariantID: it.VariantID}
	}
	listings, err := s.catalog.GetBatch(ctx, keys)
	if err != nil {
		return nil, errors.Wrap(err, "get listings")
	}
	byKey := make(map[catalog.VariantKey]catalog.Listing, len(listings))
	for _, l := range listings {
		byKey[l.Key()] = l
	}

	// Reprice each line from the catalog; exact integer arithmetic.
	var subtotalMinor int64
	payItems := make([]payments.Item, len(items))
	for i, it := range items {
		l, ok := byKey[keys[i]]
		if !ok {
			return nil, &UnknownVariantError{ProductID: it.ProductID, VariantID: it.VariantID}
		}
		unit := l.PriceMinor()
		subtotalMinor += unit * int64(it.Quantity)
		payItems[i] = payments.Item{
			Name:      l.Name,
			UnitMinor: unit,
			Quantity:  it.Quantity,
		}
	}

	// Confirmed shipping quote.
	shipItems := make([]shipping.Item, len(items))
	for i, it := range items {
		shipItems[i] = shipping.Item{ProductID: it.ProductID, VariantID: it.VariantID, Quantity: it.Quantity}
	}
	quote, err := s.shipping.Estimate(ctx, shipItems, shipping.Destination{
		Country:    dest.Country,
		PostalCode: dest.PostalCode,
	})
	if err != nil {
		return nil, errors.Wrap(err, "quote shipping")
	}

	orderID := uuid.New().String()
	sess, err := s.payments.CreateSession(ctx, payments.Request{
		Items:         payItems,
		ShippingMinor: quote.Minor,
		Reference:     orderID,
		SuccessURL:    s.cfg.SuccessURL,
		CancelURL:     s.cfg.CancelURL,
	})
	if err != nil {
		return nil, errors.Wrap(err, "create payment session")
	}

	order := &Order{
		ID:            orderID,
		SessionID:     sessionID,
		Items:         items,
		SubtotalMinor: subtotalMinor,
		ShippingMinor: quote.Minor,
		TotalMinor:    subtotalMinor + quote.Minor,
		Destination:   dest,
		PaymentRef:    sess.ID,
		CreatedAt:     time.Now().UTC(),
	}
	if err := s.orders.Create(ctx, order); err != nil {
		return nil, errors.Wrap(err, "create order")
	}

	return &Result{OrderID: orderID, URL: sess.URL}, nil
}
