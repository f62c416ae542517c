// Command seed-catalog loads a gzipped catalog dump into PostgreSQL.
//
// The dump is a JSON array of products, each carrying its variants:
//
//	[{"id": 1, "name": "Logo Tee", "image": "/img/tee.jpg",
//	  "variants": [{"variantId": "tee-m", "size": "M", "price": "25.00"}]}]
package main

import (
	"context"
	"encoding/json"
	"flag"
	"log/slog"
	"os"
	"os/signal"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5/pgxpool"
	pgzip "github.com/klauspost/pgzip"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/keysforall/cart-service/internal/repository"
)

const insertWorkers = 4

type productJSON struct {
	ID       int64         `json:"id"`
	Name     string        `json:"name"`
	Image    string        `json:"image"`
	Variants []variantJSON `json:"variants"`
}

type variantJSON struct {
	VariantID string          `json:"variantId"`
	Size      string          `json:"size"`
	Color     string          `json:"color"`
	Price     decimal.Decimal `json:"price"`
}

func main() {
	var (
		databaseURL string
		catalogFile string
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&catalogFile, "catalog-file", "db/seed/catalog.json.gz", "path to gzipped catalog dump")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL, catalogFile); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("seed completed successfully")
}

func run(ctx context.Context, databaseURL, catalogFile string) error {
	products, err := readCatalog(catalogFile)
	if err != nil {
		return errors.Wrap(err, "read catalog")
	}

	slog.Info("connecting to database")

	pool, err := repository.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	slog.Info("running migrations")

	if err := repository.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	slog.Info("upserting products", slog.Int("count", len(products)))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(insertWorkers)
	for _, p := range products {
		g.Go(func() error {
			if err := upsertProduct(gctx, pool, p); err != nil {
				return errors.Wrapf(err, "upsert product %d", p.ID)
			}
			slog.Info("upserted product",
				slog.Int64("id", p.ID),
				slog.String("name", p.Name),
				slog.Int("variants", len(p.Variants)),
			)
			return nil
		})
	}
	return g.Wait()
}

func readCatalog(path string) ([]productJSON, error) {
	slog.Info("reading catalog dump", slog.String("path", path))

	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open file")
	}
	defer func() { _ = f.Close() }()

	zr, err := pgzip.NewReader(f)
	if err != nil {
		return nil, errors.Wrap(err, "gzip reader")
	}
	defer func() { _ = zr.Close() }()

	var products []productJSON
	if err := json.NewDecoder(zr).Decode(&products); err != nil {
		return nil, errors.Wrap(err, "parse catalog JSON")
	}
	return products, nil
}

const upsertProductSQL = `
INSERT INTO products (id, name, image)
VALUES ($1, $2, $3)
ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, image = EXCLUDED.image`

const upsertVariantSQL = `
INSERT INTO product_variants (product_id, variant_id, size, color, price)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (product_id, variant_id) DO UPDATE
SET size = EXCLUDED.size, color = EXCLUDED.color, price = EXCLUDED.price`

func upsertProduct(ctx context.Context, pool *pgxpool.Pool, p productJSON) error {
	if _, err := pool.Exec(ctx, upsertProductSQL, p.ID, p.Name, p.Image); err != nil {
		return err
	}
	for _, v := range p.Variants {
		if v.VariantID == "" {
			return errors.Errorf("product %d has a variant without an ID", p.ID)
		}
		if _, err := pool.Exec(ctx, upsertVariantSQL, p.ID, v.VariantID, v.Size, v.Color, v.Price); err != nil {
			return errors.Wrapf(err, "variant %s", v.VariantID)
		}
	}
	return nil
}
