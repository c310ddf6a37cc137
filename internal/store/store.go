package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/Haven-Estates/propora-adapter/pkg/model"
)

// LeadFilter narrows ListLeads results. Zero values mean "no constraint".
type LeadFilter struct {
	Status       string
	Channel      string
	CreatedAfter time.Time
	Limit        int
}

// Store defines the contract for caching and persisting synced CRM data.
type Store interface {
	UpsertLeadByExternalID(ctx context.Context, lead model.Lead) error
	GetLeadByExternalID(ctx context.Context, externalID string) (*model.Lead, error)
	ListLeads(ctx context.Context, filter LeadFilter) ([]model.Lead, error)
	SetJSON(ctx context.Context, key string, value any, ttl time.Duration) error
	GetJSON(ctx context.Context, key string, dest any) error
	HealthCheck(ctx context.Context) error
	Close() error
}

// ErrCacheMiss is returned by GetJSON when the key is absent.
var ErrCacheMiss = errors.New("store: cache miss")

type HybridStore struct {
	redis  *redis.Client
	PG     *pgxpool.Pool
	logger *zap.Logger
}

type PGPoolConfig struct {
	MaxConns          int32
	MinConns          int32
	MaxConnLifetime   time.Duration
	MaxConnIdleTime   time.Duration
	HealthCheckPeriod time.Duration
}

// NewHybrid creates a Redis-first, Postgres-backed store.
func NewHybrid(redisAddr string, redisDB int, pgURL string, pgPoolConfig PGPoolConfig, logger *zap.Logger) (Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	rdb := redis.NewClient(&redis.Options{
		Addr: redisAddr,
		DB:   redisDB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	var pgPool *pgxpool.Pool
	if pgURL != "" {
		cfg, err := pgxpool.ParseConfig(pgURL)
		if err != nil {
			return nil, fmt.Errorf("invalid pg config: %w", err)
		}
		if pgPoolConfig.MaxConns > 0 {
			cfg.MaxConns = pgPoolConfig.MaxConns
		}
		if pgPoolConfig.MinConns > 0 {
			cfg.MinConns = pgPoolConfig.MinConns
		}
		if pgPoolConfig.MaxConnLifetime > 0 {
			cfg.MaxConnLifetime = pgPoolConfig.MaxConnLifetime
		}
		if pgPoolConfig.MaxConnIdleTime > 0 {
			cfg.MaxConnIdleTime = pgPoolConfig.MaxConnIdleTime
		}
		if pgPoolConfig.HealthCheckPeriod > 0 {
			cfg.HealthCheckPeriod = pgPoolConfig.HealthCheckPeriod
		}
		pgPool, err = pgxpool.NewWithConfig(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to postgres: %w", err)
		}
	}

	return &HybridStore{redis: rdb, PG: pgPool, logger: logger}, nil
}

// UpsertLeadByExternalID inserts or replaces a lead keyed by its provider id.
// The external id is immutable; every other field takes the incoming value,
// so re-running a sync against unchanged upstream data is idempotent.
func (s *HybridStore) UpsertLeadByExternalID(ctx context.Context, lead model.Lead) error {
	if s.PG == nil {
		return fmt.Errorf("postgres unavailable")
	}
	_, err := s.PG.Exec(ctx, `
		INSERT INTO crm.leads (
			external_id, name, email, phone, channel, status, comments,
			listing_id, listing_reference, assigned_to, created_at, synced_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, NOW())
		ON CONFLICT (external_id)
		DO UPDATE SET
			name = EXCLUDED.name,
			email = EXCLUDED.email,
			phone = EXCLUDED.phone,
			channel = EXCLUDED.channel,
			status = EXCLUDED.status,
			comments = EXCLUDED.comments,
			listing_id = EXCLUDED.listing_id,
			listing_reference = EXCLUDED.listing_reference,
			assigned_to = EXCLUDED.assigned_to,
			created_at = EXCLUDED.created_at,
			synced_at = NOW();
	`, lead.ExternalID, lead.Name, lead.Email, lead.Phone, lead.Channel,
		lead.Status, lead.Comments, lead.ListingID, lead.ListingReference,
		lead.AssignedTo, lead.CreatedAt)
	if err != nil {
		s.logger.Error("store.pg.lead_upsert_failed",
			zap.String("external_id", lead.ExternalID),
			zap.Error(err))
	}
	return err
}

func (s *HybridStore) GetLeadByExternalID(ctx context.Context, externalID string) (*model.Lead, error) {
	if s.PG == nil {
		return nil, fmt.Errorf("postgres unavailable")
	}
	row := s.PG.QueryRow(ctx, `
		SELECT external_id, name, email, phone, channel, status, comments,
		       listing_id, listing_reference, assigned_to, created_at, synced_at
		FROM crm.leads
		WHERE external_id = $1;
	`, externalID)

	var l model.Lead
	if err := row.Scan(&l.ExternalID, &l.Name, &l.Email, &l.Phone, &l.Channel,
		&l.Status, &l.Comments, &l.ListingID, &l.ListingReference,
		&l.AssignedTo, &l.CreatedAt, &l.SyncedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("GetLeadByExternalID scan failed: %w", err)
	}
	return &l, nil
}

func (s *HybridStore) ListLeads(ctx context.Context, filter LeadFilter) ([]model.Lead, error) {
	if s.PG == nil {
		return nil, fmt.Errorf("postgres unavailable")
	}
	limit := filter.Limit
	if limit <= 0 {
		limit = 200
	}
	rows, err := s.PG.Query(ctx, `
		SELECT external_id, name, email, phone, channel, status, comments,
		       listing_id, listing_reference, assigned_to, created_at, synced_at
		FROM crm.leads
		WHERE ($1 = '' OR status = $1)
		  AND ($2 = '' OR channel = $2)
		  AND ($3::timestamptz IS NULL OR created_at >= $3)
		ORDER BY created_at DESC
		LIMIT $4;
	`, filter.Status, filter.Channel, nullableTime(filter.CreatedAfter), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var leads []model.Lead
	for rows.Next() {
		var l model.Lead
		if err := rows.Scan(&l.ExternalID, &l.Name, &l.Email, &l.Phone, &l.Channel,
			&l.Status, &l.Comments, &l.ListingID, &l.ListingReference,
			&l.AssignedTo, &l.CreatedAt, &l.SyncedAt); err != nil {
			return nil, err
		}
		leads = append(leads, l)
	}
	return leads, rows.Err()
}

func nullableTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

func (s *HybridStore) SetJSON(ctx context.Context, key string, value any, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return s.redis.Set(ctx, key, data, ttl).Err()
}

func (s *HybridStore) GetJSON(ctx context.Context, key string, dest any) error {
	data, err := s.redis.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return ErrCacheMiss
	} else if err != nil {
		return err
	}
	return json.Unmarshal(data, dest)
}

func (s *HybridStore) HealthCheck(ctx context.Context) error {
	if s.redis == nil {
		return fmt.Errorf("redis not initialized")
	}
	if err := s.redis.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	if s.PG != nil {
		if err := s.PG.Ping(ctx); err != nil {
			return fmt.Errorf("postgres ping failed: %w", err)
		}
	}
	return nil
}

func (s *HybridStore) Close() error {
	if s.PG != nil {
		s.PG.Close()
	}
	if s.redis != nil {
		return s.redis.Close()
	}
	return nil
}
