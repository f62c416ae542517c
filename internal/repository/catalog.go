package repository

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/keysforall/cart-service/internal/catalog"
)

const (
	listListingsSQL = `SELECT p.id, v.variant_id, p.name, p.image, v.size, v.color, v.price
		FROM products p JOIN product_variants v ON v.product_id = p.id
		ORDER BY p.id, v.variant_id`

	getListingSQL = `SELECT p.id, v.variant_id, p.name, p.image, v.size, v.color, v.price
		FROM products p JOIN product_variants v ON v.product_id = p.id
		WHERE p.id = $1 AND v.variant_id = $2`

	getListingsBatchSQL = `SELECT p.id, v.variant_id, p.name, p.image, v.size, v.color, v.price
		FROM products p JOIN product_variants v ON v.product_id = p.id
		WHERE (p.id, v.variant_id) = ANY (
			SELECT * FROM unnest($1::bigint[], $2::text[])
		)`
)

var _ catalog.Repository = (*CatalogRepository)(nil)

// CatalogRepository implements catalog.Repository backed by PostgreSQL.
type CatalogRepository struct {
	pool *pgxpool.Pool
}

// NewCatalogRepository returns a CatalogRepository using the given pool.
func NewCatalogRepository(pool *pgxpool.Pool) *CatalogRepository {
	return &CatalogRepository{pool: pool}
}

// List returns every purchasable listing.
func (r *CatalogRepository) List(ctx context.Context) ([]catalog.Listing, error) {
	rows, err := r.pool.Query(ctx, listListingsSQL)
	if err != nil {
		return nil, errors.Wrap(err, "list listings")
	}
	return pgx.CollectRows(rows, scanListing)
}

// Get returns a single listing by its variant key.
func (r *CatalogRepository) Get(ctx context.Context, productID int64, variantID string) (*catalog.Listing, error) {
	rows, err := r.pool.Query(ctx, getListingSQL, productID, variantID)
	if err != nil {
		return nil, fmt.Errorf("get listing %d/%s: %w", productID, variantID, err)
	}

	l, err := pgx.CollectExactlyOneRow(rows, scanListing)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, catalog.ErrNotFound
		}
		return nil, fmt.Errorf("get listing %d/%s: %w", productID, variantID, err)
	}
	return &l, nil
}

// GetBatch returns the listings matching any of the given keys, in one query.
func (r *CatalogRepository) GetBatch(ctx context.Context, keys []catalog.VariantKey) ([]catalog.Listing, error) {
	ids := make([]int64, len(keys))
	variants := make([]string, len(keys))
	for i, k := range keys {
		ids[i] = k.ProductID
		variants[i] = k.VariantID
	}

	rows, err := r.pool.Query(ctx, getListingsBatchSQL, ids, variants)
	if err != nil {
		return nil, errors.Wrap(err, "get listings batch")
	}
	return pgx.CollectRows(rows, scanListing)
}

func scanListing(row pgx.CollectableRow) (catalog.Listing, error) {
	var (
		l     catalog.Listing
		price decimal.Decimal
	)
	err := row.Scan(&l.ProductID, &l.VariantID, &l.Name, &l.Image, &l.Size, &l.Color, &price)
	l.Price = price
	return l, err
}
