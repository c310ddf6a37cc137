package publisher

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"

	"github.com/Haven-Estates/propora-adapter/internal/metrics"
	"github.com/Haven-Estates/propora-adapter/pkg/logger"
	"github.com/Haven-Estates/propora-adapter/pkg/model"
)

// Publisher wraps a NATS connection and provides helpers for publishing canonical events.
type Publisher struct {
	nc      *nats.Conn
	js      nats.JetStreamContext
	subject string
	service string
}

// New creates a new Publisher with JetStream enabled if available.
func New(nc *nats.Conn, subject, service string) (*Publisher, error) {
	js, err := nc.JetStream()
	if err != nil {
		return nil, err
	}
	return &Publisher{
		nc:      nc,
		js:      js,
		subject: subject,
		service: service,
	}, nil
}

// PublishEnvelope serializes and publishes a canonical event envelope to NATS.
func (p *Publisher) PublishEnvelope(ctx context.Context, subject string, env *model.Envelope) error {
	data, err := json.Marshal(env)
	if err != nil {
		logger.S().Errorw("publisher.marshal_failed",
			"subject", subject,
			"event_type", env.EventType,
			"error", err,
		)
		metrics.IncError("publisher", "marshal_failed")
		return err
	}

	if subject == "" {
		subject = p.subject
	}

	msg := &nats.Msg{
		Subject: subject,
		Data:    data,
		Header: nats.Header{
			"event_type":     []string{env.EventType},
			"correlation_id": []string{env.CorrelationID.String()},
			"service":        []string{p.service},
			"content_type":   []string{"application/json"},
		},
	}

	start := time.Now()
	_, err = p.js.PublishMsg(msg)
	metrics.ObserveDuration(metrics.NATSMessageLatency, start, subject)

	if err != nil {
		logger.S().Errorw("publisher.publish_failed",
			"subject", subject,
			"event_type", env.EventType,
			"error", err,
		)
		metrics.IncNATSMessage(subject, "error")
		return err
	}

	logger.S().Infow("publisher.publish_success",
		"subject", subject,
		"event_type", env.EventType,
	)

	metrics.IncNATSMessage(subject, "ok")
	return nil
}

// PublishLeadSynced emits a lead.synced event after a successful sync run.
func (p *Publisher) PublishLeadSynced(ctx context.Context, subject string, count int, since time.Time) error {
	env := &model.Envelope{
		ID:            uuid.New(),
		CorrelationID: uuid.New(),
		EventType:     "lead.synced",
		Version:       "1.0.0",
		Timestamp:     time.Now().UTC(),
	}

	data, _ := json.Marshal(model.LeadSyncedEvent{
		Count:     count,
		Since:     since,
		Timestamp: env.Timestamp,
	})
	env.Payload = data

	return p.PublishEnvelope(ctx, subject, env)
}

// Publish publishes raw JSON payloads (for non-canonical internal events).
func (p *Publisher) Publish(ctx context.Context, subject string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		metrics.IncError("publisher", "marshal_failed")
		return err
	}

	msg := &nats.Msg{
		Subject: subject,
		Data:    data,
		Header:  nats.Header{"source": []string{p.service}},
	}

	start := time.Now()
	_, err = p.js.PublishMsg(msg)
	metrics.ObserveDuration(metrics.NATSMessageLatency, start, subject)

	if err != nil {
		metrics.IncNATSMessage(subject, "error")
		return err
	}

	metrics.IncNATSMessage(subject, "ok")
	return nil
}

func (p *Publisher) Close() {
	if p.nc != nil && p.nc.IsConnected() {
		p.nc.Close()
	}
}
