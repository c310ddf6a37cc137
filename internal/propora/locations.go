package propora

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/Haven-Estates/propora-adapter/internal/metrics"
	"github.com/Haven-Estates/propora-adapter/pkg/cache"
	"github.com/Haven-Estates/propora-adapter/pkg/model"
)

// locationSearcher is the slice of the Propora client the resolver needs.
type locationSearcher interface {
	searchLocations(ctx context.Context, name string) ([]locationRecord, error)
}

// LocationResolver maps Propora location ids to display records.
//
// Resolution is best-effort: the search endpoint is queried with the id as a
// free-text term, an exact id match among the candidates wins, otherwise the
// first candidate stands in. Downstream display code prefers an approximate
// location over none at all, so only an empty result set yields nil.
type LocationResolver struct {
	logger *zap.Logger
	client locationSearcher
	cache  *cache.Cache[model.Location]
}

// NewLocationResolver creates a resolver with an in-memory TTL cache.
// Location trees change rarely; a long TTL keeps repeat lookups off the wire.
func NewLocationResolver(logger *zap.Logger, client locationSearcher, ttl time.Duration) *LocationResolver {
	return &LocationResolver{
		logger: logger,
		client: client,
		cache:  cache.New[model.Location](ttl),
	}
}

// Resolve returns the location for id, or nil when the provider has no
// candidates for it. Search failures propagate; an unresolvable id does not.
func (r *LocationResolver) Resolve(ctx context.Context, id string) (*model.Location, error) {
	if loc, ok := r.cache.Get(id); ok {
		metrics.IncLocationCache("hit")
		return &loc, nil
	}
	metrics.IncLocationCache("miss")

	candidates, err := r.client.searchLocations(ctx, id)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		r.logger.Debug("propora.location_not_found", zap.String("location_id", id))
		return nil, nil
	}

	chosen := candidates[0]
	for _, c := range candidates {
		if cid, ok := stringifyID(c.ID); ok && cid == id {
			chosen = c
			break
		}
	}

	cid, _ := stringifyID(chosen.ID)
	loc := model.Location{
		ID:   cid,
		Name: chosen.Name,
		Path: chosen.Path,
		Type: chosen.Type,
	}
	r.cache.Put(id, loc)

	return &loc, nil
}
