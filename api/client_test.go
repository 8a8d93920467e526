package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vitwit/checkout/types"
)

const chargeJSON = `{
  "data": {
    "code": "66BEOV2A",
    "pricing_type": "fixed_price",
    "addresses": {
      "bitcoin": "bc1qexampleaddress",
      "ethereum": "0x384Aa214be0B279cbf211e9b2C992d8633F77848"
    },
    "pricing": {
      "local": {"amount": "10.00", "currency": "USD"},
      "bitcoin": {"amount": "0.00045", "currency": "BTC"},
      "ethereum": {"amount": "0.0031", "currency": "ETH"}
    },
    "timeline": [
      {"time": "2026-08-01T10:00:00Z", "status": "NEW"},
      {"time": "2026-08-01T10:05:00Z", "status": "PENDING"}
    ],
    "expires_at": "2026-08-01T11:00:00Z",
    "payments": [
      {
        "transaction_id": "0xdeadbeef",
        "network": "ethereum",
        "value": {"amount": "0.0031", "currency": "ETH"},
        "block": {"confirmations": 2, "confirmations_required": 12}
      }
    ],
    "cancel_url": "https://merchant.example/cancel",
    "hosted_url": "https://commerce.example/charges/66BEOV2A"
  }
}`

func TestFetchCharge(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/charges/66BEOV2A", r.URL.Path)
		assert.NotEmpty(t, r.Header.Get("X-Request-Id"))
		assert.Equal(t, "Bearer sekrit", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(chargeJSON))
	}))
	defer server.Close()

	client := NewClient(server.URL, WithAPIKey("sekrit"))
	charge, err := client.FetchCharge(context.Background(), "66BEOV2A")
	require.NoError(t, err)

	assert.Equal(t, "66BEOV2A", charge.Code)
	assert.Equal(t, types.PricingFixed, charge.PricingType)
	assert.Equal(t, types.StatusPending, charge.Status())
	assert.Equal(t, "bc1qexampleaddress", charge.Addresses[types.NetworkBitcoin])

	price, ok := charge.NetworkPrice(types.NetworkBitcoin)
	require.True(t, ok)
	assert.Equal(t, "0.00045", price.Amount.String())

	payment := charge.LatestPayment()
	require.NotNil(t, payment)
	assert.Equal(t, 2, payment.Block.Confirmations)
	assert.Equal(t, 12, payment.Block.ConfirmationsRequired)

	assert.Equal(t, time.Date(2026, 8, 1, 11, 0, 0, 0, time.UTC), charge.ExpiresAt)
}

func TestFetchChargeMaintenance(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]any{"type": "maintenance", "message": "scheduled maintenance"},
		})
	}))
	defer server.Close()

	client := NewClient(server.URL)
	_, err := client.FetchCharge(context.Background(), "66BEOV2A")
	require.Error(t, err)

	apiErr, ok := err.(*types.APIError)
	require.True(t, ok, "expected *types.APIError, got %T", err)
	assert.True(t, apiErr.IsMaintenance())
	assert.False(t, apiErr.IsClientError())
}

func TestCancelChargeNotCancelable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/charges/66BEOV2A/cancel", r.URL.Path)
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]any{"type": "not_found", "message": "charge not cancelable"},
		})
	}))
	defer server.Close()

	client := NewClient(server.URL)
	_, err := client.CancelCharge(context.Background(), "66BEOV2A")
	require.Error(t, err)

	apiErr, ok := err.(*types.APIError)
	require.True(t, ok)
	assert.True(t, apiErr.IsClientError())
	assert.Equal(t, "not_found", apiErr.Type)
	assert.Equal(t, "charge not cancelable", apiErr.Message)
}

func TestFetchChargeInvalidPayload(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Missing required fields.
		w.Write([]byte(`{"data": {"timeline": []}}`))
	}))
	defer server.Close()

	client := NewClient(server.URL)
	_, err := client.FetchCharge(context.Background(), "66BEOV2A")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid charge payload")
}
