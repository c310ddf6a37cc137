package api

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/Haven-Estates/propora-adapter/internal/propora"
	"github.com/Haven-Estates/propora-adapter/internal/store"
	"github.com/Haven-Estates/propora-adapter/pkg/model"
)

// SyncService defines the sync operations needed by the handler.
type SyncService interface {
	SyncLeads(ctx context.Context, since *time.Time) (model.SyncResult, error)
	LastSyncTime(ctx context.Context) (time.Time, error)
}

// LocationService resolves Propora location ids to display records.
type LocationService interface {
	Resolve(ctx context.Context, id string) (*model.Location, error)
}

// LeadReader lists synced leads from the local store.
type LeadReader interface {
	ListLeads(ctx context.Context, filter store.LeadFilter) ([]model.Lead, error)
}

// ListingService reads listings from the provider.
type ListingService interface {
	ListListings(ctx context.Context, query propora.ListingQuery) ([]model.Listing, error)
}

// ProporaHandler handles HTTP API requests for the Propora adapter.
type ProporaHandler struct {
	logger    *zap.Logger
	sync      SyncService
	locations LocationService
	leads     LeadReader
	listings  ListingService
}

// NewProporaHandler creates a new ProporaHandler.
func NewProporaHandler(logger *zap.Logger, sync SyncService, locations LocationService, leads LeadReader, listings ListingService) *ProporaHandler {
	return &ProporaHandler{
		logger:    logger,
		sync:      sync,
		locations: locations,
		leads:     leads,
		listings:  listings,
	}
}

// SyncLeadsRequest optionally overrides the default two-month sync window.
type SyncLeadsRequest struct {
	Since *time.Time `json:"since,omitempty"`
}

// SyncLeadsHandler triggers a lead sync run.
func (h *ProporaHandler) SyncLeadsHandler(c *fiber.Ctx) error {
	var req SyncLeadsRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
		}
	}

	result, err := h.sync.SyncLeads(c.Context(), req.Since)
	if err != nil {
		h.logger.Error("propora.sync_leads.failed", zap.Error(err))
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": err.Error()})
	}

	return c.Status(fiber.StatusOK).JSON(result)
}

// SyncStatusHandler reports the last successful sync time.
func (h *ProporaHandler) SyncStatusHandler(c *fiber.Ctx) error {
	last, err := h.sync.LastSyncTime(c.Context())
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	resp := fiber.Map{"synced": !last.IsZero()}
	if !last.IsZero() {
		resp["last_sync"] = last.UTC()
	}
	return c.JSON(resp)
}

// ResolveLocationHandler looks up a Propora location by id.
func (h *ProporaHandler) ResolveLocationHandler(c *fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "location id is required"})
	}

	loc, err := h.locations.Resolve(c.Context(), id)
	if err != nil {
		h.logger.Error("propora.resolve_location.failed",
			zap.String("location_id", id),
			zap.Error(err))
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": err.Error()})
	}
	if loc == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "location not found"})
	}

	return c.JSON(loc)
}

// ListLeadsHandler returns synced leads with optional filters.
func (h *ProporaHandler) ListLeadsHandler(c *fiber.Ctx) error {
	filter := store.LeadFilter{
		Status:  c.Query("status"),
		Channel: c.Query("channel"),
		Limit:   c.QueryInt("limit"),
	}
	if from := c.Query("created_after"); from != "" {
		t, err := time.Parse(time.RFC3339, from)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "created_after must be RFC3339"})
		}
		filter.CreatedAfter = t
	}

	leads, err := h.leads.ListLeads(c.Context(), filter)
	if err != nil {
		h.logger.Error("propora.list_leads.failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	if leads == nil {
		leads = []model.Lead{}
	}

	return c.JSON(fiber.Map{"leads": leads, "count": len(leads)})
}

// ListListingsHandler returns provider listings with optional filters.
func (h *ProporaHandler) ListListingsHandler(c *fiber.Ctx) error {
	query := propora.ListingQuery{
		Reference: c.Query("reference"),
		State:     c.Query("state"),
		ID:        c.Query("id"),
	}

	listings, err := h.listings.ListListings(c.Context(), query)
	if err != nil {
		h.logger.Error("propora.list_listings.failed", zap.Error(err))
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": err.Error()})
	}

	return c.JSON(fiber.Map{"listings": listings, "count": len(listings)})
}
