package kaspi

import (
	"context"
	"fmt"
	"strconv"
)

// ListOrders fetches a page of orders, optionally filtered by state and
// sorted by a remote field
func (c *Client) ListOrders(ctx context.Context, params ListOrdersParams) ([]Order, int, error) {
	if err := c.wait(ctx); err != nil {
		return nil, 0, err
	}

	req := c.http.R().SetContext(ctx).
		SetQueryParam("page[number]", strconv.Itoa(params.Page)).
		SetQueryParam("page[size]", strconv.Itoa(params.Size))
	if params.State != "" {
		req.SetQueryParam("filter[orders][state]", string(params.State))
	}
	if params.SortField != "" {
		sort := params.SortField
		if params.SortDesc {
			sort = "-" + sort
		}
		req.SetQueryParam("sort", sort)
	}

	resp, err := req.Get("/orders")
	if err != nil {
		return nil, 0, fmt.Errorf("list orders: %w", err)
	}
	if err := checkStatus(resp); err != nil {
		return nil, 0, err
	}
	var doc listDocument
	if err := decodeBody(resp, &doc); err != nil {
		return nil, 0, err
	}

	orders := make([]Order, 0, len(doc.Data))
	for _, res := range doc.Data {
		order, err := decodeOrder(res)
		if err != nil {
			return nil, 0, err
		}
		orders = append(orders, order)
	}
	return orders, doc.Meta.TotalCount, nil
}

// GetOrderEntries fetches the line items of one order
func (c *Client) GetOrderEntries(ctx context.Context, orderID string) ([]OrderEntry, error) {
	if err := c.wait(ctx); err != nil {
		return nil, err
	}

	resp, err := c.http.R().SetContext(ctx).
		Get("/orders/" + orderID + "/entries")
	if err != nil {
		return nil, fmt.Errorf("get order entries: %w", err)
	}
	if err := checkStatus(resp); err != nil {
		return nil, err
	}
	var doc listDocument
	if err := decodeBody(resp, &doc); err != nil {
		return nil, err
	}

	entries := make([]OrderEntry, 0, len(doc.Data))
	for _, res := range doc.Data {
		entry, err := decodeEntry(res)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// AcceptOrder confirms a new order on behalf of the merchant. Acceptance is
// only meaningful while the order is NEW; that precondition is the caller's
// to check, and a remote rejection surfaces as a RemoteError with the
// remote's own message.
func (c *Client) AcceptOrder(ctx context.Context, orderID, code string) (Order, error) {
	if err := c.wait(ctx); err != nil {
		return Order{}, err
	}

	body := singleDocument{Data: &resourceObject{
		Type: "orders",
		ID:   orderID,
		Attributes: map[string]interface{}{
			"code":   code,
			"status": string(OrderStatusAcceptedByMerchant),
		},
	}}

	resp, err := c.http.R().SetContext(ctx).
		SetBody(body).
		Post("/orders")
	if err != nil {
		return Order{}, fmt.Errorf("accept order: %w", err)
	}
	if err := checkStatus(resp); err != nil {
		return Order{}, err
	}
	var doc singleDocument
	if err := decodeBody(resp, &doc); err != nil {
		return Order{}, err
	}
	if doc.Data == nil {
		return Order{}, &ValidationError{Reason: "accept response carries no data object"}
	}
	return decodeOrder(*doc.Data)
}

// UpdateOrderStatus transitions an order to the given status
func (c *Client) UpdateOrderStatus(ctx context.Context, orderID string, status OrderStatus) error {
	if !status.IsValid() {
		return &ValidationError{Reason: "unknown order status " + string(status)}
	}
	if err := c.wait(ctx); err != nil {
		return err
	}

	body := singleDocument{Data: &resourceObject{
		Type:       "orders",
		ID:         orderID,
		Attributes: map[string]interface{}{"status": string(status)},
	}}

	resp, err := c.http.R().SetContext(ctx).
		SetBody(body).
		Put("/orders/" + orderID)
	if err != nil {
		return fmt.Errorf("update order status: %w", err)
	}
	return checkStatus(resp)
}

// CancelOrder cancels an order
func (c *Client) CancelOrder(ctx context.Context, orderID string) error {
	if err := c.wait(ctx); err != nil {
		return err
	}

	resp, err := c.http.R().SetContext(ctx).Delete("/orders/" + orderID)
	if err != nil {
		return fmt.Errorf("cancel order: %w", err)
	}
	return checkStatus(resp)
}

// CreateWaybill requests a delivery waybill for an order and returns its URL
func (c *Client) CreateWaybill(ctx context.Context, orderID string) (string, error) {
	if err := c.wait(ctx); err != nil {
		return "", err
	}

	resp, err := c.http.R().SetContext(ctx).
		Post("/orders/" + orderID + "/waybill")
	if err != nil {
		return "", fmt.Errorf("create waybill: %w", err)
	}
	if err := checkStatus(resp); err != nil {
		return "", err
	}
	var doc singleDocument
	if err := decodeBody(resp, &doc); err != nil {
		return "", err
	}
	if doc.Data == nil {
		return "", &ValidationError{Reason: "waybill response carries no data object"}
	}
	url, err := attrString(doc.Data.Attributes, "waybillUrl", true)
	if err != nil {
		return "", err
	}
	return url, nil
}

// SetEntryIMEI records the IMEI of a device entry
func (c *Client) SetEntryIMEI(ctx context.Context, entryID, imei string) error {
	if imei == "" {
		return &ValidationError{Reason: "imei must not be empty"}
	}
	if err := c.wait(ctx); err != nil {
		return err
	}

	body := singleDocument{Data: &resourceObject{
		Type:       "orderentries",
		ID:         entryID,
		Attributes: map[string]interface{}{"imei": imei},
	}}

	resp, err := c.http.R().SetContext(ctx).
		SetBody(body).
		Put("/orderentries/" + entryID + "/imei")
	if err != nil {
		return fmt.Errorf("set entry imei: %w", err)
	}
	return checkStatus(resp)
}

// EntryChange modifies an order entry: a new quantity or weight, or removal
type EntryChange struct {
	Quantity *int     `json:"quantity,omitempty"`
	Weight   *float64 `json:"weight,omitempty"`
	Remove   bool     `json:"remove,omitempty"`
}

// UpdateEntry changes quantity/weight of an entry or removes it
func (c *Client) UpdateEntry(ctx context.Context, entryID string, change EntryChange) error {
	if change.Quantity == nil && change.Weight == nil && !change.Remove {
		return &ValidationError{Reason: "entry change carries no fields"}
	}
	if err := c.wait(ctx); err != nil {
		return err
	}

	attrs := map[string]interface{}{}
	if change.Quantity != nil {
		attrs["quantity"] = *change.Quantity
	}
	if change.Weight != nil {
		attrs["weight"] = *change.Weight
	}
	if change.Remove {
		attrs["operationType"] = "REMOVE"
	}

	body := singleDocument{Data: &resourceObject{
		Type:       "orderentries",
		ID:         entryID,
		Attributes: attrs,
	}}

	resp, err := c.http.R().SetContext(ctx).
		SetBody(body).
		Put("/orderentries/" + entryID)
	if err != nil {
		return fmt.Errorf("update entry: %w", err)
	}
	return checkStatus(resp)
}

// decodeOrder validates and converts one order resource
func decodeOrder(res resourceObject) (Order, error) {
	if res.ID == "" {
		return Order{}, &ValidationError{Reason: "order resource has no id"}
	}
	code, err := attrString(res.Attributes, "code", true)
	if err != nil {
		return Order{}, err
	}
	statusStr, err := attrString(res.Attributes, "status", true)
	if err != nil {
		return Order{}, err
	}
	status := OrderStatus(statusStr)
	if !status.IsValid() {
		return Order{}, &ValidationError{Reason: "order " + res.ID + " has unknown status " + statusStr}
	}
	total, err := attrFloat(res.Attributes, "totalPrice")
	if err != nil {
		return Order{}, err
	}
	return Order{ID: res.ID, Code: code, Status: status, TotalPrice: total}, nil
}

// decodeEntry validates and converts one order entry resource
func decodeEntry(res resourceObject) (OrderEntry, error) {
	if res.ID == "" {
		return OrderEntry{}, &ValidationError{Reason: "order entry resource has no id"}
	}
	entry := OrderEntry{ID: res.ID}

	var err error
	if entry.Unit, err = attrString(res.Attributes, "unitType", false); err != nil {
		return OrderEntry{}, err
	}
	qty, err := attrFloat(res.Attributes, "quantity")
	if err != nil {
		return OrderEntry{}, err
	}
	entry.Quantity = int(qty)
	if entry.TotalPrice, err = attrFloat(res.Attributes, "totalPrice"); err != nil {
		return OrderEntry{}, err
	}
	if entry.BasePrice, err = attrFloat(res.Attributes, "basePrice"); err != nil {
		return OrderEntry{}, err
	}
	if w, ok := res.Attributes["weight"]; ok {
		f, ok := w.(float64)
		if !ok {
			return OrderEntry{}, &ValidationError{Reason: "entry " + res.ID + " weight is not numeric"}
		}
		entry.Weight = f
	}
	if entry.Category, err = attrString(res.Attributes, "category", false); err != nil {
		return OrderEntry{}, err
	}
	if entry.Title, err = attrString(res.Attributes, "title", false); err != nil {
		return OrderEntry{}, err
	}
	if v, ok := res.Attributes["imeiRequired"]; ok {
		b, ok := v.(bool)
		if !ok {
			return OrderEntry{}, &ValidationError{Reason: "entry " + res.ID + " imeiRequired is not boolean"}
		}
		entry.ImeiRequired = b
	}
	return entry, nil
}

// attrString reads a string attribute; when required, absence or a non-string
// value is a shape mismatch
func attrString(attrs map[string]interface{}, key string, required bool) (string, error) {
	v, ok := attrs[key]
	if !ok {
		if required {
			return "", &ValidationError{Reason: "missing attribute " + key}
		}
		return "", nil
	}
	s, ok := v.(string)
	if !ok {
		return "", &ValidationError{Reason: "attribute " + key + " is not a string"}
	}
	return s, nil
}

// attrFloat reads a numeric attribute, defaulting to 0 when absent
func attrFloat(attrs map[string]interface{}, key string) (float64, error) {
	v, ok := attrs[key]
	if !ok {
		return 0, nil
	}
	f, ok := v.(float64)
	if !ok {
		return 0, &ValidationError{Reason: "attribute " + key + " is not numeric"}
	}
	return f, nil
}
