package propora

import (
	"fmt"
	"strconv"
	"time"

	"github.com/Haven-Estates/propora-adapter/pkg/model"
)

// Normalizer converts loosely-shaped provider records into canonical leads.
// Every canonical field is resolved through an ordered accessor chain; the
// first accessor that finds a value wins, and a fully-absent field degrades
// to its documented default instead of failing. A partial upstream record
// must still produce a storable lead.
type Normalizer struct {
	now func() time.Time
}

// NewNormalizer returns a Normalizer using the wall clock for defaults.
func NewNormalizer() *Normalizer {
	return &Normalizer{now: time.Now}
}

// stringAccessor extracts one candidate string value from a raw record.
type stringAccessor func(RawRecord) (string, bool)

// flat reads a top-level string field.
func flat(key string) stringAccessor {
	return func(r RawRecord) (string, bool) {
		s, ok := r[key].(string)
		return s, ok && s != ""
	}
}

// nested reads a string field from a top-level object field.
func nested(obj, key string) stringAccessor {
	return func(r RawRecord) (string, bool) {
		m, ok := r[obj].(map[string]any)
		if !ok {
			return "", false
		}
		s, ok := m[key].(string)
		return s, ok && s != ""
	}
}

// flatID reads a top-level field and stringifies numeric ids.
func flatID(key string) stringAccessor {
	return func(r RawRecord) (string, bool) {
		return stringifyID(r[key])
	}
}

// nestedID reads an id from a top-level object field, stringified.
func nestedID(obj, key string) stringAccessor {
	return func(r RawRecord) (string, bool) {
		m, ok := r[obj].(map[string]any)
		if !ok {
			return "", false
		}
		return stringifyID(m[key])
	}
}

// stringifyID renders string and numeric id values uniformly.
// JSON numbers decode as float64; provider ids are integral.
func stringifyID(v any) (string, bool) {
	switch id := v.(type) {
	case string:
		return id, id != ""
	case float64:
		return strconv.FormatInt(int64(id), 10), true
	case int64:
		return strconv.FormatInt(id, 10), true
	default:
		return "", false
	}
}

// firstString walks an accessor chain and returns the first hit, else fallback.
func firstString(r RawRecord, fallback string, chain ...stringAccessor) string {
	for _, get := range chain {
		if v, ok := get(r); ok {
			return v
		}
	}
	return fallback
}

// firstStringPtr is firstString with a nil default for optional fields.
func firstStringPtr(r RawRecord, chain ...stringAccessor) *string {
	for _, get := range chain {
		if v, ok := get(r); ok {
			return &v
		}
	}
	return nil
}

// firstInt64Ptr walks a chain expecting integral values, nil when absent.
func firstInt64Ptr(r RawRecord, chain ...stringAccessor) *int64 {
	for _, get := range chain {
		if v, ok := get(r); ok {
			if n, err := strconv.ParseInt(v, 10, 64); err == nil {
				return &n
			}
		}
	}
	return nil
}

// Normalize maps a raw provider lead into the canonical model. It never
// fails: missing optional fields take their defaults ("Unknown" for name,
// empty string for contact fields, nil for references). The only condition
// it reports is a record with no usable external id, which cannot be keyed
// for upsert and must be skipped by the caller.
func (n *Normalizer) Normalize(raw RawRecord) (model.Lead, error) {
	externalID := firstString(raw, "",
		flatID("externalId"),
		flatID("id"),
		flatID("leadId"),
	)
	if externalID == "" {
		return model.Lead{}, fmt.Errorf("raw lead has no external id")
	}

	lead := model.Lead{
		ExternalID: externalID,
		Name: firstString(raw, "Unknown",
			nested("sender", "name"),
			flat("senderName"),
			nested("contactDetails", "fullName"),
			nested("contactDetails", "full_name"),
			flat("name"),
		),
		Email: firstString(raw, "",
			nested("sender", "email"),
			flat("senderEmail"),
			flat("email"),
		),
		Phone: firstString(raw, "",
			nested("sender", "phone"),
			flat("senderPhone"),
			flat("phone"),
		),
		Channel: firstString(raw, "propora",
			flat("channel"),
			flat("source"),
		),
		Status: firstString(raw, "new",
			flat("status"),
		),
		Comments: firstString(raw, "",
			flat("message"),
			flat("comments"),
		),
		ListingID: firstInt64Ptr(raw,
			nestedID("listing", "id"),
			flatID("listingId"),
		),
		ListingReference: firstStringPtr(raw,
			nested("listing", "externalId"),
			nested("listing", "reference"),
			flat("listingReference"),
		),
		AssignedTo: firstStringPtr(raw,
			nestedID("publicProfile", "id"),
			flatID("publicProfileId"),
		),
		CreatedAt: n.parseCreatedAt(raw),
	}

	return lead, nil
}

// parseCreatedAt reads createdAt/created_at in the formats Propora has been
// seen to emit, defaulting to the current time when absent or unparseable.
func (n *Normalizer) parseCreatedAt(raw RawRecord) time.Time {
	candidate := firstString(raw, "",
		flat("createdAt"),
		flat("created_at"),
	)
	if candidate == "" {
		return n.now()
	}

	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, candidate); err == nil {
			return t
		}
	}
	return n.now()
}
