package supplier

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/teztrade/pricesync/internal/models"
)

// Item is one product row offered by a supplier feed
type Item struct {
	Article string   `json:"article"`
	Name    string   `json:"name"`
	Price   *float64 `json:"price,omitempty"`
}

// Source produces the candidate product set of a supplier. The download run
// depends only on this interface; tests substitute an in-memory producer.
type Source interface {
	Fetch(ctx context.Context, s models.Supplier) ([]Item, error)
}

// HTTPSource fetches supplier feeds over HTTP with API-key auth
type HTTPSource struct {
	http *resty.Client
}

// NewHTTPSource creates a supplier feed client
func NewHTTPSource() *HTTPSource {
	return &HTTPSource{
		http: resty.New().
			SetTimeout(60 * time.Second).
			SetRetryCount(2),
	}
}

// Fetch downloads the supplier's product list from its configured endpoint
func (h *HTTPSource) Fetch(ctx context.Context, s models.Supplier) ([]Item, error) {
	if s.APIEndpoint == "" {
		return nil, fmt.Errorf("supplier %s has no api endpoint configured", s.Name)
	}

	resp, err := h.http.R().SetContext(ctx).
		SetHeader("X-Api-Key", s.APIKey).
		Get(s.APIEndpoint)
	if err != nil {
		return nil, fmt.Errorf("fetch supplier feed %s: %w", s.Name, err)
	}
	if !resp.IsSuccess() {
		return nil, fmt.Errorf("supplier feed %s: %d: %s", s.Name, resp.StatusCode(), resp.String())
	}

	// Decode the body directly; feed endpoints routinely mislabel the
	// content type and resty would otherwise skip unmarshalling.
	var items []Item
	if err := json.Unmarshal(resp.Body(), &items); err != nil {
		return nil, fmt.Errorf("supplier feed %s: malformed response: %w", s.Name, err)
	}

	// Rows without an article cannot be joined to anything downstream.
	valid := items[:0]
	for _, item := range items {
		if item.Article == "" {
			continue
		}
		valid = append(valid, item)
	}
	return valid, nil
}
