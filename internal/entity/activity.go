package entity

import (
	"time"

	"github.com/joseph-ayodele/docflow/constants"
)

// Activity is an append-only audit entry for a document.
type Activity struct {
	ID         string                   `json:"id" firestore:"id"`
	DocumentID string                   `json:"document_id" firestore:"documentId"`
	UserID     string                   `json:"user_id" firestore:"userId"`
	Action     constants.ActivityAction `json:"action" firestore:"action"`
	Details    map[string]any           `json:"details,omitempty" firestore:"details"`
	CreatedAt  time.Time                `json:"created_at" firestore:"createdAt"`
}

// DetailString returns a string-valued detail, or "".
func (a *Activity) DetailString(key string) string {
	if a == nil || a.Details == nil {
		return ""
	}
	if s, ok := a.Details[key].(string); ok {
		return s
	}
	return ""
}
