package models

import (
	"time"
)

// PricingAction represents the configured price transformation
type PricingAction string

const (
	PricingActionMultiply PricingAction = "multiply"
	PricingActionAdd      PricingAction = "add"
)

// IsValid checks if the pricing action is valid
func (a PricingAction) IsValid() bool {
	switch a {
	case PricingActionMultiply, PricingActionAdd:
		return true
	default:
		return false
	}
}

// PriceStatus classifies a product's price change after a sync run
type PriceStatus string

const (
	PriceStatusIncreased PriceStatus = "increased"
	PriceStatusDecreased PriceStatus = "decreased"
	PriceStatusUnchanged PriceStatus = "unchanged"
	PriceStatusMissing   PriceStatus = "missing"
)

// IsValid checks if the price status is valid
func (s PriceStatus) IsValid() bool {
	switch s {
	case PriceStatusIncreased, PriceStatusDecreased, PriceStatusUnchanged, PriceStatusMissing:
		return true
	default:
		return false
	}
}

// Supplier represents a product source the download run pulls from
type Supplier struct {
	ID          string    `json:"id" db:"id"`
	Name        string    `json:"name" db:"name"`
	ContactName string    `json:"contact_name,omitempty" db:"contact_name"`
	Email       string    `json:"email,omitempty" db:"email"`
	Phone       string    `json:"phone,omitempty" db:"phone"`
	APIEndpoint string    `json:"api_endpoint" db:"api_endpoint"`
	APIKey      string    `json:"api_key,omitempty" db:"api_key"`
	IsActive    bool      `json:"is_active" db:"is_active"`
	SandboxMode bool      `json:"sandbox_mode" db:"sandbox_mode"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}

// Marketplace represents an upload target with its default pricing rule
type Marketplace struct {
	ID            string        `json:"id" db:"id"`
	Name          string        `json:"name" db:"name"`
	Website       string        `json:"website,omitempty" db:"website"`
	APIEndpoint   string        `json:"api_endpoint" db:"api_endpoint"`
	APIKey        string        `json:"api_key,omitempty" db:"api_key"`
	Login         string        `json:"login,omitempty" db:"login"`
	Password      string        `json:"-" db:"password"`
	PricingAction PricingAction `json:"pricing_action" db:"pricing_action"`
	PricingValue  float64       `json:"pricing_value" db:"pricing_value"`
	IsActive      bool          `json:"is_active" db:"is_active"`
	SandboxMode   bool          `json:"sandbox_mode" db:"sandbox_mode"`
	CreatedAt     time.Time     `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at" db:"updated_at"`
}

// Product represents one supplier item, optionally linked to a marketplace listing.
// Price fields are pointers: a nil price means "not known yet", never zero.
type Product struct {
	ID                 string         `json:"id" db:"id"`
	SupplierID         *string        `json:"supplier_id,omitempty" db:"supplier_id"`
	SupplierArticle    string         `json:"supplier_article" db:"supplier_article"`
	MarketplaceID      *string        `json:"marketplace_id,omitempty" db:"marketplace_id"`
	MarketplaceArticle *string        `json:"marketplace_article,omitempty" db:"marketplace_article"`
	NameSupplier       string         `json:"name_supplier" db:"name_supplier"`
	NameMarketplace    *string        `json:"name_marketplace,omitempty" db:"name_marketplace"`
	CurrentPrice       *float64       `json:"current_price,omitempty" db:"current_price"`
	NewPrice           *float64       `json:"new_price,omitempty" db:"new_price"`
	PriceStatus        PriceStatus    `json:"price_status" db:"price_status"`
	PricingAction      *PricingAction `json:"pricing_action,omitempty" db:"pricing_action"`
	PricingValue       *float64       `json:"pricing_value,omitempty" db:"pricing_value"`
	NameComparison     bool           `json:"name_comparison_enabled" db:"name_comparison_enabled"`
	AutoNameUpdate     bool           `json:"auto_name_update" db:"auto_name_update"`
	CreatedAt          time.Time      `json:"created_at" db:"created_at"`
	UpdatedAt          time.Time      `json:"updated_at" db:"updated_at"`
	LastSyncedAt       *time.Time     `json:"last_synced_at,omitempty" db:"last_synced_at"`
}

// Rule returns the effective pricing rule for the product: the per-product
// override when both fields are set, otherwise the marketplace default.
func (p *Product) Rule(mp *Marketplace) (PricingAction, float64) {
	if p.PricingAction != nil && p.PricingValue != nil {
		return *p.PricingAction, *p.PricingValue
	}
	if mp != nil {
		return mp.PricingAction, mp.PricingValue
	}
	return "", 0
}

// EnrichedProduct is a reconciled view of a supplier product joined with
// its marketplace counterpart by article
type EnrichedProduct struct {
	Product
	DisplayName string `json:"display_name"`
	Matched     bool   `json:"matched"`
}

// AutomationSettings is the singleton governing auto-proceed behavior
type AutomationSettings struct {
	AutoModeEnabled     bool      `json:"auto_mode_enabled" db:"auto_mode_enabled"`
	SyncIntervalMinutes int       `json:"sync_interval_minutes" db:"sync_interval_minutes"`
	SyncPeriod          string    `json:"sync_period,omitempty" db:"sync_period"`
	MaxRequestsPerDay   int       `json:"max_requests_per_day" db:"max_requests_per_day"`
	UpdatedAt           time.Time `json:"updated_at" db:"updated_at"`
}

// SandboxSettings holds the per-user test-run quota
type SandboxSettings struct {
	UserID            string     `json:"user_id" db:"user_id"`
	IsSandboxMode     bool       `json:"is_sandbox_mode" db:"is_sandbox_mode"`
	TestSupplierID    *string    `json:"test_supplier_id,omitempty" db:"test_supplier_id"`
	TestMarketplaceID *string    `json:"test_marketplace_id,omitempty" db:"test_marketplace_id"`
	MaxTestRequests   int        `json:"max_test_requests" db:"max_test_requests"`
	TestRequestsUsed  int        `json:"test_requests_used" db:"test_requests_used"`
	UpdatedAt         *time.Time `json:"updated_at,omitempty" db:"updated_at"`
}

// Actor identifies the authenticated caller. It is extracted once from the
// JWT claims and passed explicitly; handlers never read ambient session state.
type Actor struct {
	UserID string `json:"user_id"`
	Role   string `json:"role"`
}

// CanManage reports whether the actor may mutate suppliers, marketplaces
// and settings
func (a Actor) CanManage() bool {
	return a.Role == "admin" || a.Role == "manager"
}

// Request/Response models

// SupplierRequest represents a create/update payload for a supplier
type SupplierRequest struct {
	Name        string `json:"name" binding:"required"`
	ContactName string `json:"contact_name"`
	Email       string `json:"email"`
	Phone       string `json:"phone"`
	APIEndpoint string `json:"api_endpoint" binding:"required"`
	APIKey      string `json:"api_key"`
	IsActive    *bool  `json:"is_active"`
	SandboxMode *bool  `json:"sandbox_mode"`
}

// MarketplaceRequest represents a create/update payload for a marketplace
type MarketplaceRequest struct {
	Name          string        `json:"name" binding:"required"`
	Website       string        `json:"website"`
	APIEndpoint   string        `json:"api_endpoint" binding:"required"`
	APIKey        string        `json:"api_key"`
	Login         string        `json:"login"`
	Password      string        `json:"password"`
	PricingAction PricingAction `json:"pricing_action" binding:"required"`
	PricingValue  float64       `json:"pricing_value" binding:"required"`
	IsActive      *bool         `json:"is_active"`
	SandboxMode   *bool         `json:"sandbox_mode"`
}

// ProductUpdateRequest represents an admin edit of a product row
type ProductUpdateRequest struct {
	NameSupplier   *string        `json:"name_supplier"`
	MarketplaceID  *string        `json:"marketplace_id"`
	PricingAction  *PricingAction `json:"pricing_action"`
	PricingValue   *float64       `json:"pricing_value"`
	NameComparison *bool          `json:"name_comparison_enabled"`
	AutoNameUpdate *bool          `json:"auto_name_update"`
}

// StartRunRequest represents a request to start a download or upload run
type StartRunRequest struct {
	EntityIDs []string `json:"entity_ids" binding:"required,min=1"`
	Sandbox   bool     `json:"sandbox"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// SuccessResponse represents a success response
type SuccessResponse struct {
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}
