package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/keysforall/cart-service/internal/cart"
	"github.com/keysforall/cart-service/internal/checkout"
)

const createOrderSQL = `INSERT INTO orders
	(id, session_id, items, subtotal_minor, shipping_minor, total_minor, dest_country, dest_postal, payment_ref, created_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

var _ checkout.Repository = (*OrderRepository)(nil)

// OrderRepository implements checkout.Repository backed by PostgreSQL.
type OrderRepository struct {
	pool *pgxpool.Pool
}

// NewOrderRepository returns an OrderRepository using the given pool.
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// Create persists a checkout order. The item snapshot is stored in the
// JSONB column using the same wire layout as the persisted cart.
func (r *OrderRepository) Create(ctx context.Context, o *checkout.Order) error {
	_, err := r.pool.Exec(ctx, createOrderSQL,
		o.ID, o.SessionID, cart.EncodeItems(o.Items),
		o.SubtotalMinor, o.ShippingMinor, o.TotalMinor,
		o.Destination.Country, o.Destination.PostalCode, o.PaymentRef, o.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("creating order %q: %w", o.ID, err)
	}
	return nil
}
