package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/teztrade/pricesync/internal/models"
	"github.com/teztrade/pricesync/internal/supplier"
	"github.com/teztrade/pricesync/internal/syncrun"
)

const productColumns = `id, supplier_id, supplier_article, marketplace_id, marketplace_article,
	name_supplier, name_marketplace, current_price, new_price, price_status,
	pricing_action, pricing_value, name_comparison_enabled, auto_name_update,
	created_at, updated_at, last_synced_at`

func scanProduct(row pgx.Row) (models.Product, error) {
	var p models.Product
	err := row.Scan(
		&p.ID,
		&p.SupplierID,
		&p.SupplierArticle,
		&p.MarketplaceID,
		&p.MarketplaceArticle,
		&p.NameSupplier,
		&p.NameMarketplace,
		&p.CurrentPrice,
		&p.NewPrice,
		&p.PriceStatus,
		&p.PricingAction,
		&p.PricingValue,
		&p.NameComparison,
		&p.AutoNameUpdate,
		&p.CreatedAt,
		&p.UpdatedAt,
		&p.LastSyncedAt,
	)
	return p, err
}

// ListProducts returns every product row
func (db *Database) ListProducts(ctx context.Context) ([]models.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products ORDER BY created_at`

	rows, err := db.Pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query products: %w", err)
	}
	defer rows.Close()

	var products []models.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

// GetProduct returns one product by id
func (db *Database) GetProduct(ctx context.Context, id string) (models.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE id = $1`

	p, err := scanProduct(db.Pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Product{}, ErrNotFound
	}
	if err != nil {
		return models.Product{}, fmt.Errorf("failed to get product: %w", err)
	}
	return p, nil
}

// UpdateProduct applies an admin edit; nil request fields keep their
// stored values
func (db *Database) UpdateProduct(ctx context.Context, id string, req models.ProductUpdateRequest) (models.Product, error) {
	current, err := db.GetProduct(ctx, id)
	if err != nil {
		return models.Product{}, err
	}

	if req.NameSupplier != nil {
		current.NameSupplier = *req.NameSupplier
	}
	if req.MarketplaceID != nil {
		if *req.MarketplaceID == "" {
			current.MarketplaceID = nil
		} else {
			current.MarketplaceID = req.MarketplaceID
		}
	}
	if req.PricingAction != nil {
		if !req.PricingAction.IsValid() {
			return models.Product{}, fmt.Errorf("invalid pricing action: %s", *req.PricingAction)
		}
		current.PricingAction = req.PricingAction
	}
	if req.PricingValue != nil {
		current.PricingValue = req.PricingValue
	}
	if req.NameComparison != nil {
		current.NameComparison = *req.NameComparison
	}
	if req.AutoNameUpdate != nil {
		current.AutoNameUpdate = *req.AutoNameUpdate
	}

	query := `
		UPDATE products
		SET name_supplier = $2, marketplace_id = $3, pricing_action = $4, pricing_value = $5,
			name_comparison_enabled = $6, auto_name_update = $7, updated_at = NOW()
		WHERE id = $1
		RETURNING ` + productColumns

	p, err := scanProduct(db.Pool.QueryRow(ctx, query,
		id, current.NameSupplier, current.MarketplaceID, current.PricingAction,
		current.PricingValue, current.NameComparison, current.AutoNameUpdate))
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Product{}, ErrNotFound
	}
	if err != nil {
		return models.Product{}, fmt.Errorf("failed to update product: %w", err)
	}
	return p, nil
}

// DeleteProduct removes a product row
func (db *Database) DeleteProduct(ctx context.Context, id string) error {
	tag, err := db.Pool.Exec(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete product: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// UpsertSupplierProduct inserts or refreshes one feed item keyed by
// supplier and article. A re-download overwrites name and current price
// but never touches the marketplace link or the pricing override.
func (db *Database) UpsertSupplierProduct(ctx context.Context, supplierID string, item supplier.Item) error {
	query := `
		INSERT INTO products (id, supplier_id, supplier_article, name_supplier, current_price)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (supplier_id, supplier_article) WHERE supplier_id IS NOT NULL
		DO UPDATE SET name_supplier = EXCLUDED.name_supplier,
			current_price = EXCLUDED.current_price,
			updated_at = NOW()
	`
	if _, err := db.Pool.Exec(ctx, query,
		uuid.New().String(), supplierID, item.Article, item.Name, item.Price); err != nil {
		return fmt.Errorf("failed to upsert product %s: %w", item.Article, err)
	}
	return nil
}

// SavePriceResult writes one upload-step outcome back onto the product row
func (db *Database) SavePriceResult(ctx context.Context, productID string, result syncrun.PriceResult) error {
	query := `
		UPDATE products
		SET new_price = $2, price_status = $3, marketplace_id = COALESCE($4, marketplace_id),
			marketplace_article = COALESCE($5, marketplace_article),
			name_marketplace = COALESCE($6, name_marketplace),
			last_synced_at = $7, updated_at = NOW()
		WHERE id = $1
	`
	tag, err := db.Pool.Exec(ctx, query,
		productID, result.NewPrice, result.Status, result.MarketplaceID,
		result.MarketplaceArticle, result.NameMarketplace, result.SyncedAt)
	if err != nil {
		return fmt.Errorf("failed to save price result for %s: %w", productID, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
