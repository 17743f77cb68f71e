package events

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/docflow/constants"
)

// Event types emitted by the processor.
const (
	TypeProcessing = "document.processing"
	TypeCompleted  = "document.completed"
	TypeFailed     = "document.failed"
)

// Event is a processing lifecycle notification.
type Event struct {
	ID         string                   `json:"id"`
	Type       string                   `json:"type"`
	DocumentID string                   `json:"documentId"`
	Status     constants.DocumentStatus `json:"status"`
	Error      string                   `json:"error,omitempty"`
	OccurredAt time.Time                `json:"occurredAt"`
}

// New stamps an event with an id and the current time.
func New(eventType, documentID string, status constants.DocumentStatus, errMsg string) Event {
	return Event{
		ID:         uuid.NewString(),
		Type:       eventType,
		DocumentID: documentID,
		Status:     status,
		Error:      errMsg,
		OccurredAt: time.Now().UTC(),
	}
}

// Publisher delivers events. Publish failures never fail processing.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
	Close()
}

// NopPublisher drops every event.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Event) error { return nil }
func (NopPublisher) Close()                               {}
