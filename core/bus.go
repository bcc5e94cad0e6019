package core

import (
	"context"
	"time"
)

// Event topics.
const (
	EventTopicUnitCompleted    = "content-unit.completed"
	EventTopicMembershipChange = "content-unit.membership-changed"
)

type (
	// Event is a message published on the platform event bus.
	Event struct {
		Topic      string      `json:"topic"`
		OccurredAt time.Time   `json:"occurred_at"` // UTC
		Payload    interface{} `json:"payload"`
	}

	// EventBus is any service that can publish events with at-least-once
	// delivery; consumers are responsible for idempotent handling.
	EventBus interface {
		Publish(ctx context.Context, evt Event) error
		Close() error
	}
)
