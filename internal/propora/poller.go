package propora

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Poller triggers periodic lead syncs. It shares the Service (and through it
// the TokenManager) with the HTTP trigger, so a scheduled run and a manual
// run racing on an expired token collapse into one refresh.
type Poller struct {
	logger   *zap.Logger
	service  *Service
	interval time.Duration
}

// NewPoller creates a scheduler that syncs every interval.
func NewPoller(logger *zap.Logger, service *Service, interval time.Duration) *Poller {
	return &Poller{
		logger:   logger,
		service:  service,
		interval: interval,
	}
}

// Run blocks until ctx is cancelled, performing one sync per tick. An
// initial sync runs immediately on start. Failures are logged and the next
// tick tries again; the poller itself never gives up.
func (p *Poller) Run(ctx context.Context) {
	p.logger.Info("propora.poller_started", zap.Duration("interval", p.interval))

	p.runOnce(ctx)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("propora.poller_stopped")
			return
		case <-ticker.C:
			p.runOnce(ctx)
		}
	}
}

// runOnce performs one sync, picking up from the stored watermark when one
// exists so scheduled runs do not rescan the full two-month default window.
func (p *Poller) runOnce(ctx context.Context) {
	var since *time.Time
	if last, err := p.service.LastSyncTime(ctx); err == nil && !last.IsZero() {
		since = &last
	}

	result, err := p.service.SyncLeads(ctx, since)
	if err != nil {
		p.logger.Error("propora.scheduled_sync_failed", zap.Error(err))
		return
	}
	p.logger.Info("propora.scheduled_sync_done", zap.Int("count", result.Count))
}
