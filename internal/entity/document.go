package entity

import (
	"time"

	"github.com/joseph-ayodele/docflow/constants"
)

// Document represents an uploaded document for data transfer between layers.
type Document struct {
	ID         string                   `json:"id" firestore:"id"`
	UserID     string                   `json:"user_id" firestore:"userId"`
	Title      string                   `json:"title" firestore:"title"`
	ContentRef string                   `json:"content_ref" firestore:"contentRef"` // URL, path or inline data
	FileType   string                   `json:"file_type" firestore:"fileType"`     // MIME
	FileSize   int64                    `json:"file_size" firestore:"fileSize"`
	Status     constants.DocumentStatus `json:"status" firestore:"status"`
	CreatedAt  time.Time                `json:"created_at" firestore:"createdAt"`
	UpdatedAt  time.Time                `json:"updated_at" firestore:"updatedAt"`
}
