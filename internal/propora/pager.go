package propora

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"
)

const (
	// defaultPageSize is the per-page count requested from paginated endpoints.
	defaultPageSize = 50
	// maxPages caps any paginated walk. Hitting it means the provider's
	// pagination metadata is lying and the loop would otherwise never end.
	maxPages = 500
)

// fetchAll walks a paginated Propora endpoint and accumulates every record.
//
// Termination, in order of preference: the declared page count is reached,
// an empty page comes back, or a short page (fewer than perPage records)
// arrives on an endpoint that declares no totals. The hard ceiling converts
// a runaway walk into ErrPageLimitExceeded instead of an unbounded crawl.
func (c *Client) fetchAll(ctx context.Context, path string, query url.Values, rateKey string) ([]RawRecord, error) {
	var all []RawRecord

	page := 1
	for {
		if page > maxPages {
			c.logger.Error("propora.pagination_runaway",
				zap.String("path", path),
				zap.Int("max_pages", maxPages),
				zap.Int("fetched", len(all)))
			return nil, fmt.Errorf("%w: %s stopped after %d pages", ErrPageLimitExceeded, path, maxPages)
		}

		q := url.Values{}
		for k, vs := range query {
			q[k] = vs
		}
		q.Set("page", fmt.Sprintf("%d", page))
		q.Set("perPage", fmt.Sprintf("%d", defaultPageSize))

		var env pagedEnvelope
		if err := c.do(ctx, http.MethodGet, path, q, nil, &env, rateKey); err != nil {
			return nil, fmt.Errorf("fetch %s page %d: %w", path, page, err)
		}

		items := env.items()
		all = append(all, items...)

		if len(items) == 0 {
			break
		}
		if total, ok := env.totalPages(defaultPageSize); ok {
			if page >= total {
				break
			}
		} else if len(items) < defaultPageSize {
			break
		}

		page++
	}

	c.logger.Debug("propora.pagination_complete",
		zap.String("path", path),
		zap.Int("pages", page),
		zap.Int("records", len(all)))

	return all, nil
}

// FetchLeadsSince retrieves every raw lead created at or after since.
func (c *Client) FetchLeadsSince(ctx context.Context, since time.Time) ([]RawRecord, error) {
	q := url.Values{}
	q.Set("createdAtFrom", since.UTC().Format(time.RFC3339))
	return c.fetchAll(ctx, "/leads", q, "leads")
}
