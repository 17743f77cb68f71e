package entity

import "time"

// Version is an immutable snapshot of a document's extracted content.
type Version struct {
	ID         string    `json:"id" firestore:"id"`
	DocumentID string    `json:"document_id" firestore:"documentId"`
	Content    string    `json:"content" firestore:"content"`
	Changes    string    `json:"changes,omitempty" firestore:"changes"`
	CreatedAt  time.Time `json:"created_at" firestore:"createdAt"`
}
