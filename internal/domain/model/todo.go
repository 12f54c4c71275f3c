package model

import "time"

// TodoType tags the operator task a pipeline step created. Values mirror
// the marketplace workflow steps.
type TodoType string

const (
	TodoTypeUnpublish    TodoType = "unpublish"
	TodoTypeRepublish    TodoType = "republish"
	TodoTypeUploadFile   TodoType = "upload_file"
	TodoTypeDownloadSync TodoType = "download_sync"
	// TodoTypeLinkOfferID is the follow-up when create-action postings
	// still lack a marketplace offer id after a sync import.
	TodoTypeLinkOfferID TodoType = "link_new_job_offer_id"
)

// TodoStatus is the operator task state. Idempotence checks treat done
// and canceled todos as closed.
type TodoStatus string

const (
	TodoStatusOpen       TodoStatus = "open"
	TodoStatusInProgress TodoStatus = "in_progress"
	TodoStatusDone       TodoStatus = "done"
	TodoStatusCanceled   TodoStatus = "canceled"
)

// Closed reports whether the todo no longer counts for dedupe purposes.
func (s TodoStatus) Closed() bool {
	return s == TodoStatusDone || s == TodoStatusCanceled
}

// Todo is the human-in-the-loop checkpoint between automated steps.
type Todo struct {
	ID           string     `json:"id"                     db:"id"`
	OrgID        string     `json:"org_id"                 db:"org_id"`
	Status       TodoStatus `json:"status"                 db:"status"`
	Type         TodoType   `json:"type"                   db:"type"`
	Title        string     `json:"title"                  db:"title"`
	Instructions *string    `json:"instructions,omitempty" db:"instructions"`
	EvidenceURLs []string   `json:"evidence_urls"          db:"evidence_urls"`
	DueAt        *time.Time `json:"due_at,omitempty"       db:"due_at"`
	ClientID     *string    `json:"client_id,omitempty"    db:"client_id"`
	RunID        *int64     `json:"run_id,omitempty"       db:"run_id"`
	JobID        *string    `json:"job_id,omitempty"       db:"job_id"`
	CreatedAt    time.Time  `json:"created_at"             db:"created_at"`
	UpdatedAt    *time.Time `json:"updated_at,omitempty"   db:"updated_at"`
}

// EnsureTodoParams identifies a todo for the check-then-insert dedupe:
// one open todo per (org, type, client, job, run).
type EnsureTodoParams struct {
	OrgID        string
	Type         TodoType
	Title        string
	Instructions string
	ClientID     *string
	RunID        *int64
	JobID        *string
}
