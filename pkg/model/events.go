package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Envelope is the canonical event wrapper published to NATS.
type Envelope struct {
	ID            uuid.UUID       `json:"id"`
	CorrelationID uuid.UUID       `json:"correlation_id"`
	EventType     string          `json:"event_type"`
	Version       string          `json:"version"`
	Timestamp     time.Time       `json:"timestamp"`
	Payload       json.RawMessage `json:"payload,omitempty"`
}

// LeadSyncedEvent is the payload of evt.lead.synced events.
type LeadSyncedEvent struct {
	Count     int       `json:"count"`
	Since     time.Time `json:"since"`
	Timestamp time.Time `json:"timestamp"`
}
