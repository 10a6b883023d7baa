package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/teztrade/pricesync/internal/models"
)

// ErrNotFound is returned when a requested row does not exist
var ErrNotFound = errors.New("not found")

const supplierColumns = `id, name, contact_name, email, phone, api_endpoint, api_key,
	is_active, sandbox_mode, created_at, updated_at`

func scanSupplier(row pgx.Row) (models.Supplier, error) {
	var s models.Supplier
	err := row.Scan(
		&s.ID,
		&s.Name,
		&s.ContactName,
		&s.Email,
		&s.Phone,
		&s.APIEndpoint,
		&s.APIKey,
		&s.IsActive,
		&s.SandboxMode,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	return s, err
}

// ListSuppliers returns all suppliers, newest first
func (db *Database) ListSuppliers(ctx context.Context) ([]models.Supplier, error) {
	query := `SELECT ` + supplierColumns + ` FROM suppliers ORDER BY created_at DESC`

	rows, err := db.Pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query suppliers: %w", err)
	}
	defer rows.Close()

	var suppliers []models.Supplier
	for rows.Next() {
		s, err := scanSupplier(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan supplier: %w", err)
		}
		suppliers = append(suppliers, s)
	}
	return suppliers, rows.Err()
}

// ListActiveSuppliers returns suppliers eligible for scheduled runs
func (db *Database) ListActiveSuppliers(ctx context.Context) ([]models.Supplier, error) {
	query := `SELECT ` + supplierColumns + ` FROM suppliers WHERE is_active = TRUE ORDER BY created_at`

	rows, err := db.Pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query active suppliers: %w", err)
	}
	defer rows.Close()

	var suppliers []models.Supplier
	for rows.Next() {
		s, err := scanSupplier(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan supplier: %w", err)
		}
		suppliers = append(suppliers, s)
	}
	return suppliers, rows.Err()
}

// GetSupplier returns one supplier by id
func (db *Database) GetSupplier(ctx context.Context, id string) (models.Supplier, error) {
	query := `SELECT ` + supplierColumns + ` FROM suppliers WHERE id = $1`

	s, err := scanSupplier(db.Pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Supplier{}, ErrNotFound
	}
	if err != nil {
		return models.Supplier{}, fmt.Errorf("failed to get supplier: %w", err)
	}
	return s, nil
}

// CreateSupplier inserts a new supplier and returns it
func (db *Database) CreateSupplier(ctx context.Context, req models.SupplierRequest) (models.Supplier, error) {
	isActive := true
	if req.IsActive != nil {
		isActive = *req.IsActive
	}
	sandboxMode := false
	if req.SandboxMode != nil {
		sandboxMode = *req.SandboxMode
	}

	query := `
		INSERT INTO suppliers (id, name, contact_name, email, phone, api_endpoint, api_key, is_active, sandbox_mode)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING ` + supplierColumns

	s, err := scanSupplier(db.Pool.QueryRow(ctx, query,
		uuid.New().String(), req.Name, req.ContactName, req.Email, req.Phone,
		req.APIEndpoint, req.APIKey, isActive, sandboxMode))
	if err != nil {
		return models.Supplier{}, fmt.Errorf("failed to create supplier: %w", err)
	}
	return s, nil
}

// UpdateSupplier overwrites a supplier's editable fields
func (db *Database) UpdateSupplier(ctx context.Context, id string, req models.SupplierRequest) (models.Supplier, error) {
	current, err := db.GetSupplier(ctx, id)
	if err != nil {
		return models.Supplier{}, err
	}

	isActive := current.IsActive
	if req.IsActive != nil {
		isActive = *req.IsActive
	}
	sandboxMode := current.SandboxMode
	if req.SandboxMode != nil {
		sandboxMode = *req.SandboxMode
	}

	query := `
		UPDATE suppliers
		SET name = $2, contact_name = $3, email = $4, phone = $5, api_endpoint = $6,
			api_key = $7, is_active = $8, sandbox_mode = $9, updated_at = NOW()
		WHERE id = $1
		RETURNING ` + supplierColumns

	s, err := scanSupplier(db.Pool.QueryRow(ctx, query,
		id, req.Name, req.ContactName, req.Email, req.Phone,
		req.APIEndpoint, req.APIKey, isActive, sandboxMode))
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Supplier{}, ErrNotFound
	}
	if err != nil {
		return models.Supplier{}, fmt.Errorf("failed to update supplier: %w", err)
	}
	return s, nil
}

// DeleteSupplier removes a supplier; its feed products go with it by the
// cascading FK
func (db *Database) DeleteSupplier(ctx context.Context, id string) error {
	tag, err := db.Pool.Exec(ctx, `DELETE FROM suppliers WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete supplier: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
