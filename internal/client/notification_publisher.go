package client

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog"

	natsclient "github.com/kindling-crm/be-donor-pipeline/internal/nats"
)

// NotificationPublisher publishes donor pipeline events to NATS JetStream
// for consumption by the notification delivery service. The engine never
// sends communications itself; it only flags what happened.
//
// Subject convention: notifications.donor.<event_type>
// Event types: pledge_created, pledge_status_changed, gift_linked,
//              decision_created, decision_updated, decision_deleted,
//              stage_event_recorded
//
// All publish operations are non-fatal — errors are logged but never
// propagated to the caller, so notification failures never interrupt writes.
type NotificationPublisher struct {
	nats *natsclient.Client
	log  zerolog.Logger
}

// NotificationEvent is the JSON schema published to NATS.
type NotificationEvent struct {
	EventType    string                 `json:"event_type"`
	OwnerID      string                 `json:"owner_id"`
	ActorID      string                 `json:"actor_id,omitempty"`
	ResourceType string                 `json:"resource_type,omitempty"`
	ResourceID   string                 `json:"resource_id,omitempty"`
	ContactID    string                 `json:"contact_id,omitempty"`
	Severity     string                 `json:"severity,omitempty"`
	Category     string                 `json:"category,omitempty"`
	Payload      map[string]interface{} `json:"payload,omitempty"`
}

// NewNotificationPublisher creates a publisher backed by the given NATS
// client. A nil client disables publishing.
func NewNotificationPublisher(nats *natsclient.Client, log zerolog.Logger) *NotificationPublisher {
	return &NotificationPublisher{nats: nats, log: log}
}

// PublishDonorEvent publishes a donor pipeline event.
// Subject: notifications.donor.<eventType>
func (p *NotificationPublisher) PublishDonorEvent(ctx context.Context, eventType, resourceType, resourceID, ownerID, contactID string, payload map[string]interface{}) {
	if p.nats == nil {
		return
	}

	event := &NotificationEvent{
		EventType:    eventType,
		OwnerID:      ownerID,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		ContactID:    contactID,
		Severity:     "info",
		Category:     "donor_pipeline",
		Payload:      payload,
	}

	data, err := json.Marshal(event)
	if err != nil {
		p.log.Warn().Err(err).Str("event_type", eventType).Msg("notification: failed to marshal event")
		return
	}

	subject := fmt.Sprintf("notifications.donor.%s", eventType)
	if err := p.nats.Publish(ctx, subject, data); err != nil {
		p.log.Warn().Err(err).
			Str("subject", subject).
			Str("resource_id", resourceID).
			Msg("notification: failed to publish NATS event (non-fatal)")
		return
	}

	p.log.Debug().
		Str("subject", subject).
		Str("resource_id", resourceID).
		Msg("notification: event published")
}
