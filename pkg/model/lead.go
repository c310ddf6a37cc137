package model

import "time"

// Lead is the canonical, normalized shape of a Propora lead.
// ExternalID is the provider-assigned identifier and the idempotency key for
// local sync: re-syncing the same lead replaces every other field in place.
type Lead struct {
	ExternalID       string    `json:"external_id"`
	Name             string    `json:"name"`
	Email            string    `json:"email"`
	Phone            string    `json:"phone"`
	Channel          string    `json:"channel"`
	Status           string    `json:"status"`
	Comments         string    `json:"comments,omitempty"`
	ListingID        *int64    `json:"listing_id,omitempty"`
	ListingReference *string   `json:"listing_reference,omitempty"`
	AssignedTo       *string   `json:"assigned_to,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
	SyncedAt         time.Time `json:"synced_at"`
}

// SyncResult summarizes a completed sync run. It is returned to the caller
// and never persisted.
type SyncResult struct {
	Success bool `json:"success"`
	Count   int  `json:"count"`
}

// Location is a human-readable location resolved from Propora's search endpoint.
type Location struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Path string `json:"path,omitempty"` // e.g. "Dubai > Downtown > Burj Views"
	Type string `json:"type,omitempty"`
}
