package propora

import (
	"math"

	"github.com/shopspring/decimal"
)

// CredentialSet is the key/secret pair used against Propora's auth endpoint.
// Assembled from the dynamic secrets store first, then static env config.
type CredentialSet struct {
	APIKey    string
	APISecret string
}

// tokenRequest is the payload for POST /auth/token.
type tokenRequest struct {
	APIKey    string `json:"apiKey"`
	APISecret string `json:"apiSecret"`
}

// tokenResponse is the response from POST /auth/token.
type tokenResponse struct {
	AccessToken string `json:"accessToken"`
	ExpiresIn   int64  `json:"expiresIn"` // seconds; 0 means the provider omitted it
}

// RawRecord is a loosely-structured Propora payload (a lead or a listing).
// Its shape varies across provider API versions; it is never stored as-is.
type RawRecord map[string]any

// pagedEnvelope covers both envelope shapes Propora is known to return:
// {"results": [...]} and {"data": [...], "meta": {...}}. Pagination totals
// may appear at the top level or inside meta, or be absent entirely.
type pagedEnvelope struct {
	Results    []RawRecord `json:"results"`
	Data       []RawRecord `json:"data"`
	Meta       *pageMeta   `json:"meta"`
	TotalPages int         `json:"totalPages"`
	Total      int         `json:"total"`
}

type pageMeta struct {
	TotalPages int `json:"totalPages"`
	Total      int `json:"total"`
	Page       int `json:"page"`
	PerPage    int `json:"perPage"`
}

// items returns the record list from whichever known key is present.
func (e *pagedEnvelope) items() []RawRecord {
	if e.Results != nil {
		return e.Results
	}
	return e.Data
}

// totalPages derives the page count: an explicit totalPages field wins,
// else it is computed from a declared total count. ok is false when the
// envelope carries neither, leaving the short-page stop as the only signal.
func (e *pagedEnvelope) totalPages(perPage int) (int, bool) {
	if e.Meta != nil && e.Meta.TotalPages > 0 {
		return e.Meta.TotalPages, true
	}
	if e.TotalPages > 0 {
		return e.TotalPages, true
	}
	if e.Meta != nil && e.Meta.Total > 0 {
		return int(math.Ceil(float64(e.Meta.Total) / float64(perPage))), true
	}
	if e.Total > 0 {
		return int(math.Ceil(float64(e.Total) / float64(perPage))), true
	}
	return 0, false
}

// ListingRequest is the payload for creating or updating a Propora listing.
type ListingRequest struct {
	Reference   string          `json:"reference,omitempty"`
	Title       string          `json:"title"`
	Description string          `json:"description,omitempty"`
	Type        string          `json:"type,omitempty"`
	Price       decimal.Decimal `json:"price"`
	Currency    string          `json:"currency,omitempty"`
	Bedrooms    int             `json:"bedrooms,omitempty"`
	Bathrooms   int             `json:"bathrooms,omitempty"`
	Size        float64         `json:"size,omitempty"`
	LocationID  int64           `json:"locationId,omitempty"`
}

// ListingQuery narrows paginated listing retrieval.
type ListingQuery struct {
	Reference string
	State     string
	ID        string
}

// EligibilityResult is the outcome of a verification-eligibility check.
// A provider 4xx is a valid business outcome ("not eligible"), so it is
// carried here as data rather than surfaced as an error.
type EligibilityResult struct {
	Eligible     bool   `json:"eligible"`
	StatusCode   int    `json:"status_code"`
	ProviderBody string `json:"provider_body,omitempty"`
}

// proporaErrorResponse is the provider's error body shape.
type proporaErrorResponse struct {
	Error   string `json:"error,omitempty"`
	Message string `json:"message,omitempty"`
}

// locationSearchResponse is the response from GET /locations?search=.
type locationSearchResponse struct {
	Results []locationRecord `json:"results"`
}

type locationRecord struct {
	ID   any    `json:"id"` // providers have returned both numbers and strings here
	Name string `json:"name"`
	Path string `json:"path"`
	Type string `json:"type"`
}
