package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Haven-Estates/propora-adapter/internal/propora"
	"github.com/Haven-Estates/propora-adapter/internal/store"
	"github.com/Haven-Estates/propora-adapter/pkg/model"
)

type mockSyncService struct {
	result   model.SyncResult
	err      error
	last     time.Time
	gotSince *time.Time
}

func (m *mockSyncService) SyncLeads(_ context.Context, since *time.Time) (model.SyncResult, error) {
	m.gotSince = since
	return m.result, m.err
}

func (m *mockSyncService) LastSyncTime(context.Context) (time.Time, error) {
	return m.last, nil
}

type mockLocationService struct {
	loc *model.Location
	err error
}

func (m *mockLocationService) Resolve(context.Context, string) (*model.Location, error) {
	return m.loc, m.err
}

type mockLeadReader struct {
	leads  []model.Lead
	err    error
	filter store.LeadFilter
}

func (m *mockLeadReader) ListLeads(_ context.Context, filter store.LeadFilter) ([]model.Lead, error) {
	m.filter = filter
	return m.leads, m.err
}

type mockListingService struct {
	listings []model.Listing
	err      error
	query    propora.ListingQuery
}

func (m *mockListingService) ListListings(_ context.Context, query propora.ListingQuery) ([]model.Listing, error) {
	m.query = query
	return m.listings, m.err
}

func newTestApp(sync *mockSyncService, loc *mockLocationService, leads *mockLeadReader) *fiber.App {
	return newTestAppWithListings(sync, loc, leads, &mockListingService{})
}

func newTestAppWithListings(sync *mockSyncService, loc *mockLocationService, leads *mockLeadReader, listings *mockListingService) *fiber.App {
	app := fiber.New()
	h := NewProporaHandler(zap.NewNop(), sync, loc, leads, listings)
	v1 := app.Group("/api/v1")
	v1.Post("/sync/leads", h.SyncLeadsHandler)
	v1.Get("/sync/status", h.SyncStatusHandler)
	v1.Get("/locations/:id", h.ResolveLocationHandler)
	v1.Get("/leads", h.ListLeadsHandler)
	v1.Get("/listings", h.ListListingsHandler)
	return app
}

func TestSyncLeadsHandler_Success(t *testing.T) {
	sync := &mockSyncService{result: model.SyncResult{Success: true, Count: 12}}
	app := newTestApp(sync, &mockLocationService{}, &mockLeadReader{})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/sync/leads", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var result model.SyncResult
	body, _ := io.ReadAll(resp.Body)
	require.NoError(t, json.Unmarshal(body, &result))
	assert.True(t, result.Success)
	assert.Equal(t, 12, result.Count)
	assert.Nil(t, sync.gotSince)
}

func TestSyncLeadsHandler_SinceOverride(t *testing.T) {
	sync := &mockSyncService{result: model.SyncResult{Success: true}}
	app := newTestApp(sync, &mockLocationService{}, &mockLeadReader{})

	payload := []byte(`{"since": "2026-07-01T00:00:00Z"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/sync/leads", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	require.NotNil(t, sync.gotSince)
	assert.Equal(t, time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC), sync.gotSince.UTC())
}

func TestSyncLeadsHandler_SyncFailure(t *testing.T) {
	sync := &mockSyncService{err: errors.New("propora auth failed (401)")}
	app := newTestApp(sync, &mockLocationService{}, &mockLeadReader{})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/sync/leads", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
}

func TestSyncStatusHandler(t *testing.T) {
	last := time.Date(2026, 8, 1, 6, 0, 0, 0, time.UTC)
	app := newTestApp(&mockSyncService{last: last}, &mockLocationService{}, &mockLeadReader{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/sync/status", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]any
	data, _ := io.ReadAll(resp.Body)
	require.NoError(t, json.Unmarshal(data, &body))
	assert.Equal(t, true, body["synced"])
}

func TestResolveLocationHandler_Found(t *testing.T) {
	loc := &mockLocationService{loc: &model.Location{ID: "200", Name: "Downtown"}}
	app := newTestApp(&mockSyncService{}, loc, &mockLeadReader{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/locations/200", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var got model.Location
	data, _ := io.ReadAll(resp.Body)
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, "Downtown", got.Name)
}

func TestResolveLocationHandler_NotFound(t *testing.T) {
	app := newTestApp(&mockSyncService{}, &mockLocationService{}, &mockLeadReader{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/locations/999", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestResolveLocationHandler_UpstreamFailure(t *testing.T) {
	loc := &mockLocationService{err: errors.New("propora unavailable")}
	app := newTestApp(&mockSyncService{}, loc, &mockLeadReader{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/locations/200", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
}

func TestListLeadsHandler_AppliesFilters(t *testing.T) {
	reader := &mockLeadReader{leads: []model.Lead{
		{ExternalID: "ext-1", Name: "Client 1", Status: "new", Channel: "propora"},
	}}
	app := newTestApp(&mockSyncService{}, &mockLocationService{}, reader)

	req := httptest.NewRequest(http.MethodGet,
		"/api/v1/leads?status=new&channel=propora&limit=10&created_after=2026-06-01T00:00:00Z", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	assert.Equal(t, "new", reader.filter.Status)
	assert.Equal(t, "propora", reader.filter.Channel)
	assert.Equal(t, 10, reader.filter.Limit)
	assert.Equal(t, time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC), reader.filter.CreatedAfter)

	var body struct {
		Leads []model.Lead `json:"leads"`
		Count int          `json:"count"`
	}
	data, _ := io.ReadAll(resp.Body)
	require.NoError(t, json.Unmarshal(data, &body))
	assert.Equal(t, 1, body.Count)
}

func TestListListingsHandler_PassesQuery(t *testing.T) {
	listings := &mockListingService{listings: []model.Listing{
		{ID: 900, Reference: "REF-1", Title: "2BR in Marina", State: "live"},
	}}
	app := newTestAppWithListings(&mockSyncService{}, &mockLocationService{}, &mockLeadReader{}, listings)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/listings?reference=REF-1&state=live", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	assert.Equal(t, "REF-1", listings.query.Reference)
	assert.Equal(t, "live", listings.query.State)

	var body struct {
		Listings []model.Listing `json:"listings"`
		Count    int             `json:"count"`
	}
	data, _ := io.ReadAll(resp.Body)
	require.NoError(t, json.Unmarshal(data, &body))
	assert.Equal(t, 1, body.Count)
	assert.Equal(t, "2BR in Marina", body.Listings[0].Title)
}

func TestListListingsHandler_UpstreamFailure(t *testing.T) {
	listings := &mockListingService{err: errors.New("propora unavailable")}
	app := newTestAppWithListings(&mockSyncService{}, &mockLocationService{}, &mockLeadReader{}, listings)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/listings", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
}

func TestListLeadsHandler_BadDateFilter(t *testing.T) {
	app := newTestApp(&mockSyncService{}, &mockLocationService{}, &mockLeadReader{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/leads?created_after=tomorrow", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
