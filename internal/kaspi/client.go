package kaspi

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-resty/resty/v2"
	"golang.org/x/time/rate"
)

const (
	contentType = "application/vnd.api+json"

	// The marketplace throttles merchants; stay under its ceiling.
	requestsPerMinute = 60
)

// Client is a thin typed wrapper over the marketplace order/catalog REST
// contract. It authenticates with a bearer token in the X-Auth-Token header
// and rate-limits outbound requests.
type Client struct {
	http    *resty.Client
	limiter *rate.Limiter
}

// NewClient creates a marketplace client for the given base URL and token
func NewClient(baseURL, token string) *Client {
	httpClient := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(30 * time.Second).
		SetRetryCount(2).
		SetHeader("X-Auth-Token", token).
		SetHeader("Content-Type", contentType).
		SetHeader("Accept", contentType)

	return &Client{
		http:    httpClient,
		limiter: rate.NewLimiter(rate.Every(time.Minute/requestsPerMinute), requestsPerMinute),
	}
}

// WithBasicAuth switches the client to basic authentication for merchant
// rows that carry cabinet credentials instead of an API token
func (c *Client) WithBasicAuth(login, password string) *Client {
	c.http.SetBasicAuth(login, password)
	return c
}

// wait blocks until the rate limiter admits another request
func (c *Client) wait(ctx context.Context) error {
	return c.limiter.Wait(ctx)
}

// checkStatus converts a non-2xx response into a RemoteError carrying the
// remote's body text verbatim
func checkStatus(resp *resty.Response) error {
	if resp.IsSuccess() {
		return nil
	}
	return &RemoteError{Status: resp.StatusCode(), Body: resp.String()}
}

// decodeBody parses a successful response body into out. The body is decoded
// regardless of the Content-Type header so a mislabelled but well-formed
// document still parses, and a malformed one is a shape mismatch rather than
// a silently empty result.
func decodeBody(resp *resty.Response, out interface{}) error {
	if err := json.Unmarshal(resp.Body(), out); err != nil {
		return &ValidationError{Reason: "response from " + resp.Request.URL + " is not a valid document: " + err.Error()}
	}
	return nil
}
