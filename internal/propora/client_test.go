package propora

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckVerificationEligibility_OKMeansEligible(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/listings/L-1/verification-eligibility", r.URL.Path)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	res, err := newTestClient(srv.URL).CheckVerificationEligibility(context.Background(), "L-1")
	require.NoError(t, err)
	assert.True(t, res.Eligible)
	assert.Equal(t, http.StatusOK, res.StatusCode)
}

func TestCheckVerificationEligibility_RejectionIsDataNotError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"message": "listing missing required photos"}`))
	}))
	defer srv.Close()

	res, err := newTestClient(srv.URL).CheckVerificationEligibility(context.Background(), "L-1")
	require.NoError(t, err)
	assert.False(t, res.Eligible)
	assert.Equal(t, http.StatusUnprocessableEntity, res.StatusCode)
	assert.Contains(t, res.ProviderBody, "missing required photos")
}

func TestCheckVerificationEligibility_ServerErrorStillFails(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).CheckVerificationEligibility(context.Background(), "L-1")
	assert.Error(t, err)
}

func TestCreateListing_SendsPayloadAndDecodesRecord(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/listings", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		_ = json.NewDecoder(r.Body).Decode(&got)
		_ = json.NewEncoder(w).Encode(map[string]any{"id": float64(900), "state": "draft"})
	}))
	defer srv.Close()

	rec, err := newTestClient(srv.URL).CreateListing(context.Background(), ListingRequest{
		Title:    "2BR in Marina",
		Price:    decimal.NewFromInt(1850000),
		Currency: "AED",
		Bedrooms: 2,
	})
	require.NoError(t, err)
	assert.Equal(t, "2BR in Marina", got["title"])
	assert.Equal(t, "1850000", got["price"])
	assert.Equal(t, float64(900), rec["id"])
}

func TestClient_4xxUsesProviderMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"message": "price must be positive"}`))
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).CreateListing(context.Background(), ListingRequest{Title: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "price must be positive")
}

func TestFetchListings_AppliesQueryFilters(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "REF-1", r.URL.Query().Get("reference"))
		assert.Equal(t, "published", r.URL.Query().Get("state"))
		_ = json.NewEncoder(w).Encode(map[string]any{
			"results": []map[string]any{{"id": float64(1), "reference": "REF-1"}},
		})
	}))
	defer srv.Close()

	records, err := newTestClient(srv.URL).FetchListings(context.Background(), ListingQuery{
		Reference: "REF-1",
		State:     "published",
	})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "REF-1", records[0]["reference"])
}

func TestPublishUnpublishListing(t *testing.T) {
	var paths []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	require.NoError(t, c.PublishListing(context.Background(), "L-2"))
	require.NoError(t, c.UnpublishListing(context.Background(), "L-2"))
	assert.Equal(t, []string{"/listings/L-2/publish", "/listings/L-2/unpublish"}, paths)
}
