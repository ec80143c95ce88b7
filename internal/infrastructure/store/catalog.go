package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"skincare-advisor/internal/core/recommendation"
	"skincare-advisor/internal/infrastructure/config"
	"skincare-advisor/internal/pkg/common"

	_ "github.com/jackc/pgx/v5/stdlib"
	"go.uber.org/zap"
)

// Open connects to the catalog database using the pgx stdlib driver
func Open(cfg *config.DatabaseConfig) (*sql.DB, error) {
	db, err := sql.Open("pgx", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return db, nil
}

// CatalogStore reads product pages from Postgres. Ingredients and
// benefits live in jsonb columns whose shapes vary between imports;
// rows are decoded into `any` and flattened later by the pipeline's
// normalizer, the one shape boundary.
type CatalogStore struct {
	db *sql.DB
}

var _ recommendation.CatalogStore = (*CatalogStore)(nil)

// NewCatalogStore creates the catalog store
func NewCatalogStore(db *sql.DB) *CatalogStore {
	return &CatalogStore{db: db}
}

// QueryProducts returns one bounded page of products matching the
// simple predicates in query. Unset price bounds widen to the full
// range; malformed rows are skipped, never fatal.
func (s *CatalogStore) QueryProducts(ctx context.Context, query recommendation.CatalogQuery) ([]recommendation.CatalogProduct, error) {
	limit := query.Limit
	if limit <= 0 {
		limit = 100
	}
	maxPrice := query.MaxPrice
	if maxPrice <= 0 {
		maxPrice = 1e9
	}

	const q = `
		SELECT product_id, name, brand, price_amount, category_path, ingredients, benefits, rating_average
		FROM products
		WHERE price_amount >= $1 AND price_amount <= $2
		  AND ($3 = '' OR category_path ILIKE '%' || $3 || '%')
		  AND name <> '' AND product_id <> ''
		ORDER BY product_id
		LIMIT $4`

	rows, err := s.db.QueryContext(ctx, q, query.MinPrice, maxPrice, query.Category, limit)
	if err != nil {
		return nil, fmt.Errorf("catalog query failed: %w", err)
	}
	defer rows.Close()

	products := make([]recommendation.CatalogProduct, 0, limit)
	for rows.Next() {
		var (
			p              recommendation.CatalogProduct
			ingredientsRaw []byte
			benefitsRaw    []byte
			rating         sql.NullFloat64
		)
		if err := rows.Scan(&p.ProductID, &p.Name, &p.Brand, &p.PriceAmount, &p.CategoryPath, &ingredientsRaw, &benefitsRaw, &rating); err != nil {
			common.LogWarn("skipping malformed catalog row", zap.Error(err))
			continue
		}
		p.RawIngredients = decodeVariant(ingredientsRaw)
		p.RawBenefits = decodeVariant(benefitsRaw)
		if rating.Valid {
			p.RatingAverage = rating.Float64
			p.HasRating = true
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("catalog row iteration failed: %w", err)
	}
	return products, nil
}

// decodeVariant keeps whatever JSON shape the column holds; a decode
// failure degrades to nil, which normalizes to an empty list downstream
func decodeVariant(raw []byte) any {
	if len(raw) == 0 {
		return nil
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil
	}
	return v
}
