package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Listing is the canonical shape of a Propora property listing.
type Listing struct {
	ID           int64           `json:"id"`
	Reference    string          `json:"reference"`
	Title        string          `json:"title"`
	Type         string          `json:"type,omitempty"` // e.g. "apartment", "villa"
	Price        decimal.Decimal `json:"price"`
	Currency     string          `json:"currency,omitempty"`
	State        string          `json:"state"` // draft, live, unpublished, rejected
	Bedrooms     int             `json:"bedrooms,omitempty"`
	Bathrooms    int             `json:"bathrooms,omitempty"`
	Size         float64         `json:"size,omitempty"` // sqm
	LocationID   *int64          `json:"location_id,omitempty"`
	LocationName string          `json:"location_name,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
}
