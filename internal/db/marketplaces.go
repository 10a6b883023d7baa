package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/teztrade/pricesync/internal/models"
)

const marketplaceColumns = `id, name, website, api_endpoint, api_key, login, password,
	pricing_action, pricing_value, is_active, sandbox_mode, created_at, updated_at`

func scanMarketplace(row pgx.Row) (models.Marketplace, error) {
	var m models.Marketplace
	err := row.Scan(
		&m.ID,
		&m.Name,
		&m.Website,
		&m.APIEndpoint,
		&m.APIKey,
		&m.Login,
		&m.Password,
		&m.PricingAction,
		&m.PricingValue,
		&m.IsActive,
		&m.SandboxMode,
		&m.CreatedAt,
		&m.UpdatedAt,
	)
	return m, err
}

// ListMarketplaces returns all marketplaces, newest first
func (db *Database) ListMarketplaces(ctx context.Context) ([]models.Marketplace, error) {
	query := `SELECT ` + marketplaceColumns + ` FROM marketplaces ORDER BY created_at DESC`

	rows, err := db.Pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query marketplaces: %w", err)
	}
	defer rows.Close()

	var marketplaces []models.Marketplace
	for rows.Next() {
		m, err := scanMarketplace(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan marketplace: %w", err)
		}
		marketplaces = append(marketplaces, m)
	}
	return marketplaces, rows.Err()
}

// ListActiveMarketplaces returns marketplaces eligible for scheduled runs
func (db *Database) ListActiveMarketplaces(ctx context.Context) ([]models.Marketplace, error) {
	query := `SELECT ` + marketplaceColumns + ` FROM marketplaces WHERE is_active = TRUE ORDER BY created_at`

	rows, err := db.Pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query active marketplaces: %w", err)
	}
	defer rows.Close()

	var marketplaces []models.Marketplace
	for rows.Next() {
		m, err := scanMarketplace(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan marketplace: %w", err)
		}
		marketplaces = append(marketplaces, m)
	}
	return marketplaces, rows.Err()
}

// GetMarketplace returns one marketplace by id
func (db *Database) GetMarketplace(ctx context.Context, id string) (models.Marketplace, error) {
	query := `SELECT ` + marketplaceColumns + ` FROM marketplaces WHERE id = $1`

	m, err := scanMarketplace(db.Pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Marketplace{}, ErrNotFound
	}
	if err != nil {
		return models.Marketplace{}, fmt.Errorf("failed to get marketplace: %w", err)
	}
	return m, nil
}

// CreateMarketplace inserts a new marketplace and returns it
func (db *Database) CreateMarketplace(ctx context.Context, req models.MarketplaceRequest) (models.Marketplace, error) {
	if !req.PricingAction.IsValid() {
		return models.Marketplace{}, fmt.Errorf("invalid pricing action: %s", req.PricingAction)
	}

	isActive := true
	if req.IsActive != nil {
		isActive = *req.IsActive
	}
	sandboxMode := false
	if req.SandboxMode != nil {
		sandboxMode = *req.SandboxMode
	}

	query := `
		INSERT INTO marketplaces (id, name, website, api_endpoint, api_key, login, password,
			pricing_action, pricing_value, is_active, sandbox_mode)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING ` + marketplaceColumns

	m, err := scanMarketplace(db.Pool.QueryRow(ctx, query,
		uuid.New().String(), req.Name, req.Website, req.APIEndpoint, req.APIKey,
		req.Login, req.Password, req.PricingAction, req.PricingValue, isActive, sandboxMode))
	if err != nil {
		return models.Marketplace{}, fmt.Errorf("failed to create marketplace: %w", err)
	}
	return m, nil
}

// UpdateMarketplace overwrites a marketplace's editable fields
func (db *Database) UpdateMarketplace(ctx context.Context, id string, req models.MarketplaceRequest) (models.Marketplace, error) {
	if !req.PricingAction.IsValid() {
		return models.Marketplace{}, fmt.Errorf("invalid pricing action: %s", req.PricingAction)
	}

	current, err := db.GetMarketplace(ctx, id)
	if err != nil {
		return models.Marketplace{}, err
	}

	isActive := current.IsActive
	if req.IsActive != nil {
		isActive = *req.IsActive
	}
	sandboxMode := current.SandboxMode
	if req.SandboxMode != nil {
		sandboxMode = *req.SandboxMode
	}
	// Blank password on update keeps the stored credential.
	password := current.Password
	if req.Password != "" {
		password = req.Password
	}

	query := `
		UPDATE marketplaces
		SET name = $2, website = $3, api_endpoint = $4, api_key = $5, login = $6, password = $7,
			pricing_action = $8, pricing_value = $9, is_active = $10, sandbox_mode = $11, updated_at = NOW()
		WHERE id = $1
		RETURNING ` + marketplaceColumns

	m, err := scanMarketplace(db.Pool.QueryRow(ctx, query,
		id, req.Name, req.Website, req.APIEndpoint, req.APIKey, req.Login, password,
		req.PricingAction, req.PricingValue, isActive, sandboxMode))
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Marketplace{}, ErrNotFound
	}
	if err != nil {
		return models.Marketplace{}, fmt.Errorf("failed to update marketplace: %w", err)
	}
	return m, nil
}

// DeleteMarketplace removes a marketplace; linked products keep their rows
// with marketplace_id set to NULL by the FK
func (db *Database) DeleteMarketplace(ctx context.Context, id string) error {
	tag, err := db.Pool.Exec(ctx, `DELETE FROM marketplaces WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete marketplace: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
