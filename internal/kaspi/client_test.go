package kaspi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func newTestClient(handler http.Handler) (*Client, *httptest.Server) {
	srv := httptest.NewServer(handler)
	return NewClient(srv.URL, "test-token"), srv
}

func TestListOrders(t *testing.T) {
	var gotToken, gotState string
	client, srv := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotToken = r.Header.Get("X-Auth-Token")
		gotState = r.URL.Query().Get("filter[orders][state]")
		w.Header().Set("Content-Type", contentType)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"data": []map[string]interface{}{
				{
					"type": "orders",
					"id":   "o-1",
					"attributes": map[string]interface{}{
						"code":       "123456",
						"status":     "NEW",
						"totalPrice": 50000.0,
					},
				},
			},
			"meta": map[string]interface{}{"totalCount": 1},
		})
	}))
	defer srv.Close()

	orders, total, err := client.ListOrders(context.Background(), ListOrdersParams{
		Page: 0, Size: 20, State: OrderStatusNew,
	})

	assert.NoError(t, err)
	assert.Equal(t, "test-token", gotToken)
	assert.Equal(t, "NEW", gotState)
	assert.Equal(t, 1, total)
	assert.Len(t, orders, 1)
	assert.Equal(t, "o-1", orders[0].ID)
	assert.Equal(t, OrderStatusNew, orders[0].Status)
	assert.Equal(t, 50000.0, orders[0].TotalPrice)
}

func TestListOrders_RemoteErrorCarriesBody(t *testing.T) {
	client, srv := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte("token expired"))
	}))
	defer srv.Close()

	_, _, err := client.ListOrders(context.Background(), ListOrdersParams{Size: 20})

	var remote *RemoteError
	assert.ErrorAs(t, err, &remote)
	assert.Equal(t, http.StatusForbidden, remote.Status)
	assert.Equal(t, "403: token expired", remote.Error())
}

func TestListOrders_ShapeMismatch(t *testing.T) {
	client, srv := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// status attribute missing entirely
		w.Header().Set("Content-Type", contentType)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"data": []map[string]interface{}{
				{"type": "orders", "id": "o-1", "attributes": map[string]interface{}{"code": "1"}},
			},
		})
	}))
	defer srv.Close()

	_, _, err := client.ListOrders(context.Background(), ListOrdersParams{Size: 20})

	var verr *ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestListOrders_MislabelledContentType(t *testing.T) {
	// a well-formed document served as text/plain must still decode
	client, srv := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"data": []map[string]interface{}{
				{
					"type": "orders",
					"id":   "o-7",
					"attributes": map[string]interface{}{
						"code":       "777777",
						"status":     "NEW",
						"totalPrice": 1000.0,
					},
				},
			},
			"meta": map[string]interface{}{"totalCount": 1},
		})
	}))
	defer srv.Close()

	orders, total, err := client.ListOrders(context.Background(), ListOrdersParams{Size: 20})

	assert.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Len(t, orders, 1)
	assert.Equal(t, "o-7", orders[0].ID)
}

func TestListOrders_MalformedBody(t *testing.T) {
	// a 2xx response that is not a document is a shape mismatch, never an
	// empty success
	client, srv := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html>gateway timeout</html>"))
	}))
	defer srv.Close()

	orders, total, err := client.ListOrders(context.Background(), ListOrdersParams{Size: 20})

	var verr *ValidationError
	assert.ErrorAs(t, err, &verr)
	assert.Nil(t, orders)
	assert.Equal(t, 0, total)
}

func TestGetOrderEntries_MalformedBody(t *testing.T) {
	client, srv := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("not json"))
	}))
	defer srv.Close()

	_, err := client.GetOrderEntries(context.Background(), "o-1")

	var verr *ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestAcceptOrder_SendsMerchantStatus(t *testing.T) {
	var body singleDocument
	client, srv := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		json.NewDecoder(r.Body).Decode(&body)
		w.Header().Set("Content-Type", contentType)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"data": map[string]interface{}{
				"type": "orders",
				"id":   "o-1",
				"attributes": map[string]interface{}{
					"code":       "123456",
					"status":     "ACCEPTED_BY_MERCHANT",
					"totalPrice": 50000.0,
				},
			},
		})
	}))
	defer srv.Close()

	order, err := client.AcceptOrder(context.Background(), "o-1", "123456")

	assert.NoError(t, err)
	assert.Equal(t, OrderStatusAcceptedByMerchant, order.Status)
	assert.Equal(t, "o-1", body.Data.ID)
	assert.Equal(t, "ACCEPTED_BY_MERCHANT", body.Data.Attributes["status"])
}

func TestAcceptOrder_RemoteRejectionVerbatim(t *testing.T) {
	client, srv := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte("order is not in NEW state"))
	}))
	defer srv.Close()

	_, err := client.AcceptOrder(context.Background(), "o-1", "123456")

	assert.EqualError(t, err, "400: order is not in NEW state")
}

func TestSubmitProduct_ValidationFailsBeforeNetwork(t *testing.T) {
	hits := 0
	client, srv := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
	}))
	defer srv.Close()

	_, err := client.SubmitProduct(context.Background(), ProductPayload{
		SKU: "S1", Title: "Phone", Brand: "Acme", Category: "Phones",
		// description missing, no images
	})

	var verr *ValidationError
	assert.ErrorAs(t, err, &verr)
	assert.Equal(t, 0, hits)
}

func TestSubmitProduct(t *testing.T) {
	client, srv := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", contentType)
		json.NewEncoder(w).Encode(UploadResult{Code: "upload-42", Status: "PENDING"})
	}))
	defer srv.Close()

	result, err := client.SubmitProduct(context.Background(), ProductPayload{
		SKU: "S1", Title: "Phone", Brand: "Acme", Category: "Phones",
		Description: "A phone",
		Images:      []ProductImage{{URL: "https://cdn.example.com/p.jpg"}},
		Attributes:  []ProductAttribute{{Code: "color", Value: "black"}},
	})

	assert.NoError(t, err)
	assert.Equal(t, "upload-42", result.Code)
	assert.Equal(t, "PENDING", result.Status)
}

func TestProductPayloadValidate(t *testing.T) {
	valid := ProductPayload{
		SKU: "S1", Title: "T", Brand: "B", Category: "C", Description: "D",
		Images: []ProductImage{{URL: "https://x.example/1.jpg"}},
	}
	assert.NoError(t, valid.Validate())

	bad := valid
	bad.Images = []ProductImage{{URL: "not a url"}}
	assert.Error(t, bad.Validate())

	bad = valid
	bad.Attributes = []ProductAttribute{{Code: "color"}}
	assert.Error(t, bad.Validate())
}

func TestUpdateEntry_EmptyChangeRejected(t *testing.T) {
	client, srv := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer srv.Close()

	err := client.UpdateEntry(context.Background(), "e-1", EntryChange{})

	var verr *ValidationError
	assert.True(t, errors.As(err, &verr))
}

func TestWithBasicAuth_SendsAuthorizationHeader(t *testing.T) {
	var gotUser, gotPass string
	var gotOK bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUser, gotPass, gotOK = r.BasicAuth()
		w.Header().Set("Content-Type", contentType)
		json.NewEncoder(w).Encode(map[string]interface{}{"data": []map[string]interface{}{}})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "").WithBasicAuth("merchant@example.com", "s3cret")
	_, _, err := client.ListOrders(context.Background(), ListOrdersParams{Size: 20})

	assert.NoError(t, err)
	assert.True(t, gotOK)
	assert.Equal(t, "merchant@example.com", gotUser)
	assert.Equal(t, "s3cret", gotPass)
}
