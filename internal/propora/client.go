package propora

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/Haven-Estates/propora-adapter/internal/httpclient"
	"github.com/Haven-Estates/propora-adapter/internal/metrics"
	"github.com/Haven-Estates/propora-adapter/internal/rate"
)

// tokenSource supplies bearer tokens for authenticated requests.
type tokenSource interface {
	GetAccessToken(ctx context.Context) (string, error)
}

// Client is the authenticated Propora REST client. All calls go through the
// rate-limited executor with zero retries: a failed request fails the
// operation, and the caller decides whether to rerun it.
type Client struct {
	logger  *zap.Logger
	exec    *httpclient.Executor
	tokens  tokenSource
	baseURL string
	http    *http.Client
}

// NewClient wires a Client against baseURL using the shared rate manager.
func NewClient(logger *zap.Logger, rateMgr *rate.Manager, tokens tokenSource, baseURL string) *Client {
	httpClient := &http.Client{Timeout: 30 * time.Second}
	exec := httpclient.New(logger, rateMgr, httpClient, 0, "propora", decodeProporaError)
	return &Client{
		logger:  logger,
		exec:    exec,
		tokens:  tokens,
		baseURL: baseURL,
		http:    httpClient,
	}
}

// decodeProporaError turns a 4xx body into a readable error.
func decodeProporaError(status int, body []byte) error {
	var er proporaErrorResponse
	if err := json.Unmarshal(body, &er); err == nil {
		if er.Message != "" {
			return fmt.Errorf("propora rejected request (%d): %s", status, er.Message)
		}
		if er.Error != "" {
			return fmt.Errorf("propora rejected request (%d): %s", status, er.Error)
		}
	}
	return fmt.Errorf("propora rejected request (%d): %s", status, string(body))
}

// newRequest builds an authenticated request against the Propora API.
func (c *Client) newRequest(ctx context.Context, method, path string, query url.Values, body any) (*http.Request, error) {
	token, err := c.tokens.GetAccessToken(ctx)
	if err != nil {
		return nil, err
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}

// do executes an authenticated JSON call, recording request metrics.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any, rateKey string) error {
	req, err := c.newRequest(ctx, method, path, query, body)
	if err != nil {
		return err
	}

	start := time.Now()
	err = c.exec.DoJSON(ctx, req, rateKey, out)
	metrics.ObserveDuration(metrics.ProporaRequestDuration, start, path, method)
	if err != nil {
		metrics.IncProporaRequest(path, method, "error")
		return err
	}
	metrics.IncProporaRequest(path, method, "ok")
	return nil
}

// — listings —————————————————————————————————————————————————————————————

// FetchListings retrieves every listing matching the query across all pages.
func (c *Client) FetchListings(ctx context.Context, query ListingQuery) ([]RawRecord, error) {
	q := url.Values{}
	if query.Reference != "" {
		q.Set("reference", query.Reference)
	}
	if query.State != "" {
		q.Set("state", query.State)
	}
	if query.ID != "" {
		q.Set("id", query.ID)
	}
	return c.fetchAll(ctx, "/listings", q, "listings")
}

// CreateListing creates a new listing and returns the provider's record.
func (c *Client) CreateListing(ctx context.Context, listing ListingRequest) (RawRecord, error) {
	var out RawRecord
	if err := c.do(ctx, http.MethodPost, "/listings", nil, listing, &out, "listings"); err != nil {
		return nil, err
	}
	return out, nil
}

// UpdateListing updates an existing listing by its provider id.
func (c *Client) UpdateListing(ctx context.Context, id string, listing ListingRequest) (RawRecord, error) {
	var out RawRecord
	if err := c.do(ctx, http.MethodPut, "/listings/"+id, nil, listing, &out, "listings"); err != nil {
		return nil, err
	}
	return out, nil
}

// PublishListing transitions a listing to the published state.
func (c *Client) PublishListing(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodPost, "/listings/"+id+"/publish", nil, nil, nil, "listings")
}

// UnpublishListing withdraws a listing from publication.
func (c *Client) UnpublishListing(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodPost, "/listings/"+id+"/unpublish", nil, nil, nil, "listings")
}

// CheckVerificationEligibility asks whether a listing qualifies for the
// provider's verified badge. A 4xx here is an answer, not a failure, so this
// bypasses the executor's error handling and reports the status as data.
func (c *Client) CheckVerificationEligibility(ctx context.Context, id string) (*EligibilityResult, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/listings/"+id+"/verification-eligibility", nil, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("eligibility check: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode >= 500 {
		return nil, fmt.Errorf("propora server error on eligibility check: %d", resp.StatusCode)
	}

	result := &EligibilityResult{
		Eligible:   resp.StatusCode == http.StatusOK,
		StatusCode: resp.StatusCode,
	}
	if !result.Eligible {
		result.ProviderBody = string(body)
		c.logger.Debug("propora.listing_not_eligible",
			zap.String("listing_id", id),
			zap.Int("status", resp.StatusCode))
	}
	return result, nil
}

// — locations ————————————————————————————————————————————————————————————

// searchLocations queries the provider's location tree by free-text name.
func (c *Client) searchLocations(ctx context.Context, name string) ([]locationRecord, error) {
	q := url.Values{}
	q.Set("search", name)

	var out locationSearchResponse
	if err := c.do(ctx, http.MethodGet, "/locations", q, nil, &out, "locations"); err != nil {
		return nil, err
	}
	return out.Results, nil
}

// getLocation fetches a single location by provider id.
func (c *Client) getLocation(ctx context.Context, id string) (*locationRecord, error) {
	var out locationRecord
	if err := c.do(ctx, http.MethodGet, "/locations/"+id, nil, nil, &out, "locations"); err != nil {
		return nil, err
	}
	return &out, nil
}
