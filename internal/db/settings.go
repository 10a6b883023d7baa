package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/teztrade/pricesync/internal/models"
)

// GetAutomationSettings returns the singleton automation row
func (db *Database) GetAutomationSettings(ctx context.Context) (models.AutomationSettings, error) {
	query := `
		SELECT auto_mode_enabled, sync_interval_minutes, sync_period, max_requests_per_day, updated_at
		FROM automation_settings WHERE id = 1
	`
	var s models.AutomationSettings
	err := db.Pool.QueryRow(ctx, query).Scan(
		&s.AutoModeEnabled,
		&s.SyncIntervalMinutes,
		&s.SyncPeriod,
		&s.MaxRequestsPerDay,
		&s.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		// Schema init seeds the row; an empty table still yields defaults.
		return models.AutomationSettings{SyncIntervalMinutes: 60, MaxRequestsPerDay: 1000}, nil
	}
	if err != nil {
		return models.AutomationSettings{}, fmt.Errorf("failed to get automation settings: %w", err)
	}
	return s, nil
}

// UpdateAutomationSettings overwrites the singleton automation row
func (db *Database) UpdateAutomationSettings(ctx context.Context, s models.AutomationSettings) (models.AutomationSettings, error) {
	if s.SyncIntervalMinutes <= 0 {
		return models.AutomationSettings{}, fmt.Errorf("sync interval must be positive, got %d", s.SyncIntervalMinutes)
	}

	query := `
		INSERT INTO automation_settings (id, auto_mode_enabled, sync_interval_minutes, sync_period, max_requests_per_day, updated_at)
		VALUES (1, $1, $2, $3, $4, NOW())
		ON CONFLICT (id) DO UPDATE SET
			auto_mode_enabled = EXCLUDED.auto_mode_enabled,
			sync_interval_minutes = EXCLUDED.sync_interval_minutes,
			sync_period = EXCLUDED.sync_period,
			max_requests_per_day = EXCLUDED.max_requests_per_day,
			updated_at = NOW()
		RETURNING auto_mode_enabled, sync_interval_minutes, sync_period, max_requests_per_day, updated_at
	`
	var out models.AutomationSettings
	err := db.Pool.QueryRow(ctx, query,
		s.AutoModeEnabled, s.SyncIntervalMinutes, s.SyncPeriod, s.MaxRequestsPerDay).Scan(
		&out.AutoModeEnabled,
		&out.SyncIntervalMinutes,
		&out.SyncPeriod,
		&out.MaxRequestsPerDay,
		&out.UpdatedAt,
	)
	if err != nil {
		return models.AutomationSettings{}, fmt.Errorf("failed to update automation settings: %w", err)
	}
	return out, nil
}

const sandboxColumns = `user_id, is_sandbox_mode, test_supplier_id, test_marketplace_id,
	max_test_requests, test_requests_used, updated_at`

func scanSandbox(row pgx.Row) (models.SandboxSettings, error) {
	var s models.SandboxSettings
	err := row.Scan(
		&s.UserID,
		&s.IsSandboxMode,
		&s.TestSupplierID,
		&s.TestMarketplaceID,
		&s.MaxTestRequests,
		&s.TestRequestsUsed,
		&s.UpdatedAt,
	)
	return s, err
}

// GetSandboxSettings returns a user's sandbox row, creating the default
// row on first access
func (db *Database) GetSandboxSettings(ctx context.Context, userID string) (models.SandboxSettings, error) {
	query := `
		INSERT INTO sandbox_settings (user_id) VALUES ($1)
		ON CONFLICT (user_id) DO UPDATE SET user_id = EXCLUDED.user_id
		RETURNING ` + sandboxColumns

	s, err := scanSandbox(db.Pool.QueryRow(ctx, query, userID))
	if err != nil {
		return models.SandboxSettings{}, fmt.Errorf("failed to get sandbox settings: %w", err)
	}
	return s, nil
}

// UpdateSandboxSettings overwrites a user's sandbox configuration. The
// used counter is not editable here; it only moves through consume and reset.
func (db *Database) UpdateSandboxSettings(ctx context.Context, s models.SandboxSettings) (models.SandboxSettings, error) {
	if s.MaxTestRequests < 0 {
		return models.SandboxSettings{}, fmt.Errorf("max test requests must not be negative, got %d", s.MaxTestRequests)
	}

	query := `
		INSERT INTO sandbox_settings (user_id, is_sandbox_mode, test_supplier_id, test_marketplace_id, max_test_requests, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		ON CONFLICT (user_id) DO UPDATE SET
			is_sandbox_mode = EXCLUDED.is_sandbox_mode,
			test_supplier_id = EXCLUDED.test_supplier_id,
			test_marketplace_id = EXCLUDED.test_marketplace_id,
			max_test_requests = EXCLUDED.max_test_requests,
			updated_at = NOW()
		RETURNING ` + sandboxColumns

	out, err := scanSandbox(db.Pool.QueryRow(ctx, query,
		s.UserID, s.IsSandboxMode, s.TestSupplierID, s.TestMarketplaceID, s.MaxTestRequests))
	if err != nil {
		return models.SandboxSettings{}, fmt.Errorf("failed to update sandbox settings: %w", err)
	}
	return out, nil
}

// ConsumeTestRequest atomically takes one quota unit for the user. The
// conditional UPDATE is the whole check-then-increment; two concurrent
// calls on the last unit cannot both succeed.
func (db *Database) ConsumeTestRequest(ctx context.Context, userID string) (bool, error) {
	if _, err := db.Pool.Exec(ctx,
		`INSERT INTO sandbox_settings (user_id) VALUES ($1) ON CONFLICT (user_id) DO NOTHING`, userID); err != nil {
		return false, fmt.Errorf("failed to ensure sandbox settings: %w", err)
	}

	tag, err := db.Pool.Exec(ctx, `
		UPDATE sandbox_settings
		SET test_requests_used = test_requests_used + 1, updated_at = NOW()
		WHERE user_id = $1 AND test_requests_used < max_test_requests
	`, userID)
	if err != nil {
		return false, fmt.Errorf("failed to consume test request: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// ResetTestRequests zeroes the user's quota counter
func (db *Database) ResetTestRequests(ctx context.Context, userID string) error {
	if _, err := db.Pool.Exec(ctx, `
		INSERT INTO sandbox_settings (user_id, test_requests_used) VALUES ($1, 0)
		ON CONFLICT (user_id) DO UPDATE SET test_requests_used = 0, updated_at = NOW()
	`, userID); err != nil {
		return fmt.Errorf("failed to reset test requests: %w", err)
	}
	return nil
}
