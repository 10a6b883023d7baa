package kaspi

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
)

// ListCategories fetches the marketplace category tree (flattened)
func (c *Client) ListCategories(ctx context.Context) ([]Category, error) {
	if err := c.wait(ctx); err != nil {
		return nil, err
	}

	resp, err := c.http.R().SetContext(ctx).
		Get("/categories")
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	if err := checkStatus(resp); err != nil {
		return nil, err
	}
	var doc listDocument
	if err := decodeBody(resp, &doc); err != nil {
		return nil, err
	}

	categories := make([]Category, 0, len(doc.Data))
	for _, res := range doc.Data {
		title, err := attrString(res.Attributes, "title", true)
		if err != nil {
			return nil, err
		}
		code, err := attrString(res.Attributes, "code", true)
		if err != nil {
			return nil, err
		}
		categories = append(categories, Category{Code: code, Title: title})
	}
	return categories, nil
}

// ListCategoryAttributes fetches the attribute descriptors of one category
func (c *Client) ListCategoryAttributes(ctx context.Context, categoryCode string) ([]CategoryAttribute, error) {
	if err := c.wait(ctx); err != nil {
		return nil, err
	}

	resp, err := c.http.R().SetContext(ctx).
		SetQueryParam("c", categoryCode).
		Get("/attributes")
	if err != nil {
		return nil, fmt.Errorf("list category attributes: %w", err)
	}
	if err := checkStatus(resp); err != nil {
		return nil, err
	}
	var doc listDocument
	if err := decodeBody(resp, &doc); err != nil {
		return nil, err
	}

	attrs := make([]CategoryAttribute, 0, len(doc.Data))
	for _, res := range doc.Data {
		code, err := attrString(res.Attributes, "code", true)
		if err != nil {
			return nil, err
		}
		attrType, err := attrString(res.Attributes, "type", false)
		if err != nil {
			return nil, err
		}
		attr := CategoryAttribute{Code: code, Type: attrType}
		if v, ok := res.Attributes["multiValued"].(bool); ok {
			attr.Multi = v
		}
		if v, ok := res.Attributes["mandatory"].(bool); ok {
			attr.Mandat = v
		}
		attrs = append(attrs, attr)
	}
	return attrs, nil
}

// GetProductSchema fetches the raw submission schema for a category. The
// schema is an opaque remote document; it is forwarded to the caller as-is.
func (c *Client) GetProductSchema(ctx context.Context, categoryCode string) (map[string]interface{}, error) {
	if err := c.wait(ctx); err != nil {
		return nil, err
	}

	resp, err := c.http.R().SetContext(ctx).
		SetQueryParam("c", categoryCode).
		Get("/product/schema")
	if err != nil {
		return nil, fmt.Errorf("get product schema: %w", err)
	}
	if err := checkStatus(resp); err != nil {
		return nil, err
	}
	var schema map[string]interface{}
	if err := decodeBody(resp, &schema); err != nil {
		return nil, err
	}
	return schema, nil
}

// SubmitProduct validates and submits a new product, returning the remote
// upload code and status. Validation failures never reach the network.
func (c *Client) SubmitProduct(ctx context.Context, payload ProductPayload) (UploadResult, error) {
	if err := payload.Validate(); err != nil {
		return UploadResult{}, err
	}
	if err := c.wait(ctx); err != nil {
		return UploadResult{}, err
	}

	resp, err := c.http.R().SetContext(ctx).
		SetBody(payload).
		Post("/product/import")
	if err != nil {
		return UploadResult{}, fmt.Errorf("submit product: %w", err)
	}
	if err := checkStatus(resp); err != nil {
		return UploadResult{}, err
	}
	var result UploadResult
	if err := decodeBody(resp, &result); err != nil {
		return UploadResult{}, err
	}
	if result.Code == "" {
		return UploadResult{}, &ValidationError{Reason: "import response carries no upload code"}
	}
	return result, nil
}

// UploadPriceList submits a generated price-list workbook through the
// product import endpoint and returns the remote upload code and status
func (c *Client) UploadPriceList(ctx context.Context, filename string, content []byte) (UploadResult, error) {
	if len(content) == 0 {
		return UploadResult{}, &ValidationError{Reason: "price list is empty"}
	}
	if err := c.wait(ctx); err != nil {
		return UploadResult{}, err
	}

	resp, err := c.http.R().SetContext(ctx).
		SetFileReader("file", filename, bytes.NewReader(content)).
		Post("/product/import/pricelist")
	if err != nil {
		return UploadResult{}, fmt.Errorf("upload price list: %w", err)
	}
	if err := checkStatus(resp); err != nil {
		return UploadResult{}, err
	}
	var result UploadResult
	if err := decodeBody(resp, &result); err != nil {
		return UploadResult{}, err
	}
	if result.Code == "" {
		return UploadResult{}, &ValidationError{Reason: "import response carries no upload code"}
	}
	return result, nil
}

// Validate checks the outbound payload shape: required text fields must be
// non-empty, at least one image with a well-formed absolute URL, and every
// attribute must be a complete (code, value) pair.
func (p ProductPayload) Validate() error {
	required := map[string]string{
		"sku":         p.SKU,
		"title":       p.Title,
		"brand":       p.Brand,
		"category":    p.Category,
		"description": p.Description,
	}
	for field, value := range required {
		if value == "" {
			return &ValidationError{Reason: field + " must not be empty"}
		}
	}

	if len(p.Images) == 0 {
		return &ValidationError{Reason: "at least one image is required"}
	}
	for _, img := range p.Images {
		u, err := url.Parse(img.URL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return &ValidationError{Reason: "image url " + img.URL + " is not a valid absolute URL"}
		}
	}

	for _, attr := range p.Attributes {
		if attr.Code == "" || attr.Value == "" {
			return &ValidationError{Reason: "attributes must be complete (code, value) pairs"}
		}
	}
	return nil
}
