package model

import "time"

// PostingSync is one client posting with the content its current approved
// revision carries, as needed for matching export rows back to postings.
type PostingSync struct {
	ID         string            `db:"id"`
	JobID      string            `db:"job_id"`
	JobOfferID *string           `db:"job_offer_id"`
	Payload    map[string]string `db:"payload_json"`
}

// SyncUpdate carries the marketplace-reported state for one posting.
// Nil members leave the stored value untouched.
type SyncUpdate struct {
	JobOfferID         *string
	PublishStatusCache *string
	LastPublishedAt    *time.Time
	FreshnessExpiresAt *time.Time
}

// StalePosting is one freshness-sweep candidate: the latest posting of a
// job whose publication has aged out, with its owning job context.
type StalePosting struct {
	Posting
	OrgID         string `db:"org_id"`
	ClientID      string `db:"client_id"`
	InternalTitle string `db:"internal_title"`
}

// SaveDraftOutcome reports what a draft save actually did.
type SaveDraftOutcome string

const (
	// SaveDraftNoChanges means the payload hash matched the existing draft
	// and nothing was written.
	SaveDraftNoChanges SaveDraftOutcome = "no_changes"
	// SaveDraftUpdated means the existing draft was overwritten in place.
	SaveDraftUpdated SaveDraftOutcome = "updated"
	// SaveDraftCreated means a new draft revision was inserted.
	SaveDraftCreated SaveDraftOutcome = "created"
)

// SaveDraftParams carries canonicalized draft content to the revision
// repository.
type SaveDraftParams struct {
	JobPostingID string
	Source       RevisionSource
	Payload      map[string]string
	PayloadHash  string
}
