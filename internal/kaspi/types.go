package kaspi

import (
	"fmt"
)

// OrderStatus represents the remote order lifecycle state
type OrderStatus string

const (
	OrderStatusNew                OrderStatus = "NEW"
	OrderStatusAcceptedByMerchant OrderStatus = "ACCEPTED_BY_MERCHANT"
	OrderStatusPicking            OrderStatus = "PICKING"
	OrderStatusDelivering         OrderStatus = "DELIVERING"
	OrderStatusCancelled          OrderStatus = "CANCELLED"
	OrderStatusCompleted          OrderStatus = "COMPLETED"
)

// IsValid checks if the order status is valid
func (s OrderStatus) IsValid() bool {
	switch s {
	case OrderStatusNew, OrderStatusAcceptedByMerchant, OrderStatusPicking,
		OrderStatusDelivering, OrderStatusCancelled, OrderStatusCompleted:
		return true
	default:
		return false
	}
}

// Order is the adapter's view of a marketplace order. Orders are never
// persisted locally; they are fetched and mutated live.
type Order struct {
	ID         string       `json:"id"`
	Code       string       `json:"code"`
	Status     OrderStatus  `json:"status"`
	TotalPrice float64      `json:"total_price"`
	Entries    []OrderEntry `json:"entries,omitempty"`
}

// OrderEntry is one line item of a marketplace order
type OrderEntry struct {
	ID           string  `json:"id"`
	Unit         string  `json:"unit"`
	Quantity     int     `json:"quantity"`
	TotalPrice   float64 `json:"total_price"`
	BasePrice    float64 `json:"base_price"`
	Weight       float64 `json:"weight,omitempty"`
	Category     string  `json:"category,omitempty"`
	Title        string  `json:"title,omitempty"`
	ImeiRequired bool    `json:"imei_required"`
}

// Category is a marketplace catalog category
type Category struct {
	Code  string `json:"code"`
	Title string `json:"title"`
}

// CategoryAttribute describes one attribute a product in a category carries
type CategoryAttribute struct {
	Code     string `json:"code"`
	Type     string `json:"type"`
	Multi    bool   `json:"multi_valued"`
	Mandat   bool   `json:"mandatory"`
	AttrName string `json:"attr_name,omitempty"`
}

// ProductAttribute is a (code, value) pair on an outbound product payload
type ProductAttribute struct {
	Code  string `json:"code"`
	Value string `json:"value"`
}

// ProductImage references one image of an outbound product payload
type ProductImage struct {
	URL string `json:"url"`
}

// ProductPayload is the outbound shape for submitting a new product.
// Validate rejects it before any network call when required fields are
// missing or images are malformed.
type ProductPayload struct {
	SKU         string             `json:"sku"`
	Title       string             `json:"title"`
	Brand       string             `json:"brand"`
	Category    string             `json:"category"`
	Description string             `json:"description"`
	Price       *float64           `json:"price,omitempty"`
	Images      []ProductImage     `json:"images"`
	Attributes  []ProductAttribute `json:"attributes,omitempty"`
}

// UploadResult is the marketplace's answer to a product submission
type UploadResult struct {
	Code   string `json:"code"`
	Status string `json:"status"`
}

// ListOrdersParams selects a page of orders
type ListOrdersParams struct {
	Page      int
	Size      int
	State     OrderStatus // empty means all states
	SortField string
	SortDesc  bool
}

// RemoteError is a non-2xx answer from the marketplace contract. The body
// text is carried verbatim so callers can surface the remote's own wording.
type RemoteError struct {
	Status int
	Body   string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("%d: %s", e.Status, e.Body)
}

// ValidationError marks a payload that failed shape validation, either
// outbound before a request or inbound after a fetch
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "validation: " + e.Reason
}

// wire shapes (JSON:API flavored, fixed external contract)

type resourceObject struct {
	Type       string                 `json:"type"`
	ID         string                 `json:"id,omitempty"`
	Attributes map[string]interface{} `json:"attributes"`
}

type singleDocument struct {
	Data *resourceObject `json:"data"`
}

type listDocument struct {
	Data []resourceObject `json:"data"`
	Meta struct {
		TotalCount int `json:"totalCount"`
		PageCount  int `json:"pageCount"`
	} `json:"meta"`
}
