package propora

import (
	"context"
	"strconv"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/Haven-Estates/propora-adapter/pkg/model"
)

// listingFetcher is the slice of the client the catalog depends on.
type listingFetcher interface {
	FetchListings(ctx context.Context, query ListingQuery) ([]RawRecord, error)
}

// ListingCatalog reads listings from Propora and maps them to the canonical
// model. Like leads, listing payloads are shape-tolerant: unparseable fields
// degrade rather than failing the batch.
type ListingCatalog struct {
	logger *zap.Logger
	client listingFetcher
	norm   *Normalizer
}

// NewListingCatalog creates a read-side listing catalog.
func NewListingCatalog(logger *zap.Logger, client listingFetcher) *ListingCatalog {
	return &ListingCatalog{logger: logger, client: client, norm: NewNormalizer()}
}

// ListListings fetches and normalizes every listing matching the query.
func (c *ListingCatalog) ListListings(ctx context.Context, query ListingQuery) ([]model.Listing, error) {
	raws, err := c.client.FetchListings(ctx, query)
	if err != nil {
		return nil, err
	}

	listings := make([]model.Listing, 0, len(raws))
	for _, raw := range raws {
		listings = append(listings, c.normalizeListing(raw))
	}
	return listings, nil
}

// normalizeListing maps a raw provider listing into the canonical model.
func (c *ListingCatalog) normalizeListing(raw RawRecord) model.Listing {
	l := model.Listing{
		Reference: firstString(raw, "", flat("reference"), flat("externalId")),
		Title:     firstString(raw, "", flat("title"), flat("name")),
		Type:      firstString(raw, "", flat("type"), flat("propertyType")),
		Currency:  firstString(raw, "AED", flat("currency")),
		State:     firstString(raw, "draft", flat("state"), flat("status")),
		Price:     extractPrice(raw["price"]),
	}

	if id, ok := stringifyID(raw["id"]); ok {
		if n, err := strconv.ParseInt(id, 10, 64); err == nil {
			l.ID = n
		}
	}
	if b, ok := raw["bedrooms"].(float64); ok {
		l.Bedrooms = int(b)
	}
	if b, ok := raw["bathrooms"].(float64); ok {
		l.Bathrooms = int(b)
	}
	if s, ok := raw["size"].(float64); ok {
		l.Size = s
	}
	l.LocationID = firstInt64Ptr(raw,
		nestedID("location", "id"),
		flatID("locationId"),
	)
	l.LocationName = firstString(raw, "",
		nested("location", "name"),
		flat("locationName"),
	)
	l.CreatedAt = c.norm.parseCreatedAt(raw)

	return l
}

// extractPrice reads a price as either a JSON number or a decimal string.
func extractPrice(v any) decimal.Decimal {
	switch p := v.(type) {
	case float64:
		return decimal.NewFromFloat(p)
	case string:
		if d, err := decimal.NewFromString(p); err == nil {
			return d
		}
	}
	return decimal.Zero
}
