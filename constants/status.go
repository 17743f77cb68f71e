package constants

// DocumentStatus is the canonical status stored on a document row.
type DocumentStatus string

// Stable values (store these exact strings in DB).
const (
	StatusPending    DocumentStatus = "pending"    // set at upload time
	StatusProcessing DocumentStatus = "processing" // a processing run is in flight
	StatusCompleted  DocumentStatus = "completed"  // terminal: content extracted and versioned
	StatusError      DocumentStatus = "error"      // terminal: retries exhausted
)

// Progress maps a status to the percentage reported by status queries.
func (s DocumentStatus) Progress() int {
	switch s {
	case StatusProcessing:
		return 50
	case StatusCompleted:
		return 100
	default:
		return 0
	}
}

// Terminal reports whether no further transition happens within a run.
func (s DocumentStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusError
}

// ActivityAction tags an append-only activity entry.
type ActivityAction string

const (
	ActionUpload    ActivityAction = "UPLOAD"
	ActionProcessed ActivityAction = "PROCESSED"
	ActionError     ActivityAction = "ERROR"
)

// DocumentStatuses lists every valid status, used by validation.
var DocumentStatuses = []DocumentStatus{StatusPending, StatusProcessing, StatusCompleted, StatusError}
