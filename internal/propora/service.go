package propora

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/Haven-Estates/propora-adapter/internal/metrics"
	"github.com/Haven-Estates/propora-adapter/internal/store"
	"github.com/Haven-Estates/propora-adapter/pkg/model"
)

// lastSyncKey stores the watermark of the most recent successful lead sync.
const lastSyncKey = "propora:leads:last_sync"

// leadFetcher is the slice of the client the sync service depends on.
type leadFetcher interface {
	FetchLeadsSince(ctx context.Context, since time.Time) ([]RawRecord, error)
}

// eventPublisher emits the lead.synced event after a successful run.
type eventPublisher interface {
	PublishLeadSynced(ctx context.Context, subject string, count int, since time.Time) error
}

// Service orchestrates lead synchronization from Propora into the CRM store.
//
// A run is all-or-nothing on the fetch side: any auth or transport failure
// aborts before anything is persisted. On the persistence side each lead is
// upserted by its external id, so reruns against unchanged upstream data
// update rows in place instead of duplicating them.
type Service struct {
	logger    *zap.Logger
	client    leadFetcher
	norm      *Normalizer
	store     store.Store
	publisher eventPublisher // may be nil when eventing is disabled
	subject   string
	now       func() time.Time
}

// NewService wires the sync orchestrator.
func NewService(logger *zap.Logger, client leadFetcher, st store.Store, pub eventPublisher, subject string) *Service {
	return &Service{
		logger:    logger,
		client:    client,
		norm:      NewNormalizer(),
		store:     st,
		publisher: pub,
		subject:   subject,
		now:       time.Now,
	}
}

// SyncLeads fetches, normalizes, and upserts every lead created since the
// given time. A nil since defaults to two months before now. Fatal errors
// (credentials, auth, transport, persistence) abort the run; individual
// records that cannot be keyed are skipped, not fatal.
func (s *Service) SyncLeads(ctx context.Context, since *time.Time) (model.SyncResult, error) {
	from := s.now().AddDate(0, -2, 0)
	if since != nil {
		from = *since
	}

	s.logger.Info("propora.sync_started", zap.Time("since", from))

	raws, err := s.client.FetchLeadsSince(ctx, from)
	if err != nil {
		metrics.IncSyncRun("error")
		metrics.IncError("sync", "fetch_failed")
		return model.SyncResult{}, fmt.Errorf("fetch leads: %w", err)
	}

	count := 0
	skipped := 0
	for _, raw := range raws {
		lead, err := s.norm.Normalize(raw)
		if err != nil {
			// Unkeyable record; the rest of the batch still syncs.
			skipped++
			s.logger.Warn("propora.lead_skipped", zap.Error(err))
			continue
		}

		if err := s.store.UpsertLeadByExternalID(ctx, lead); err != nil {
			metrics.IncSyncRun("error")
			metrics.IncError("sync", "upsert_failed")
			return model.SyncResult{}, fmt.Errorf("upsert lead %s: %w", lead.ExternalID, err)
		}
		count++
	}

	if err := s.store.SetJSON(ctx, lastSyncKey, s.now().UTC(), 0); err != nil {
		// Watermark is an optimization for the scheduler; the sync itself succeeded.
		s.logger.Warn("propora.watermark_write_failed", zap.Error(err))
	}

	if s.publisher != nil && count > 0 {
		if err := s.publisher.PublishLeadSynced(ctx, s.subject, count, from); err != nil {
			s.logger.Warn("propora.event_publish_failed", zap.Error(err))
		}
	}

	metrics.IncSyncRun("ok")
	metrics.AddLeadsSynced(count)
	metrics.SetLastSync(s.now())

	s.logger.Info("propora.sync_complete",
		zap.Int("count", count),
		zap.Int("skipped", skipped),
		zap.Time("since", from))

	return model.SyncResult{Success: true, Count: count}, nil
}

// LastSyncTime reads the stored watermark, zero time when none exists yet.
func (s *Service) LastSyncTime(ctx context.Context) (time.Time, error) {
	var t time.Time
	err := s.store.GetJSON(ctx, lastSyncKey, &t)
	if errors.Is(err, store.ErrCacheMiss) {
		return time.Time{}, nil
	}
	return t, err
}
