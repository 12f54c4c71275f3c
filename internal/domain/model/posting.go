// Package model defines the persistent domain records of the revision and
// run pipeline together with their request/validation helpers.
package model

import "time"

// ChannelAirwork is the only marketplace channel in the current scope.
const ChannelAirwork = "airwork"

// Payload keys understood by the airwork channel. Payloads are free-form
// string maps; these are the keys with pipeline-level meaning.
const (
	PayloadKeyJobOfferID        = "job_offer_id"
	PayloadKeyWorkingLocationID = "working_location_id"
	PayloadKeyJobType           = "job_type"
	PayloadKeyTitle             = "title"
	PayloadKeySubtitle          = "subtitle"
	PayloadKeyDescription       = "description"
	PayloadKeyOccupationID      = "occupation_id"
)

// Posting is one channel-specific listing slot for a job. A job can carry
// many historical postings per channel; new runs target the most recently
// created one.
type Posting struct {
	ID                 string     `json:"id"                             db:"id"`
	JobID              string     `json:"job_id"                         db:"job_id"`
	Channel            string     `json:"channel"                        db:"channel"`
	JobOfferID         *string    `json:"job_offer_id,omitempty"         db:"job_offer_id"`
	PublishStatusCache *string    `json:"publish_status_cache,omitempty" db:"publish_status_cache"`
	LastPublishedAt    *time.Time `json:"last_published_at,omitempty"    db:"last_published_at"`
	FreshnessExpiresAt *time.Time `json:"freshness_expires_at,omitempty" db:"freshness_expires_at"`
	IsRefreshCandidate bool       `json:"is_refresh_candidate"           db:"is_refresh_candidate"`
	CreatedAt          time.Time  `json:"created_at"                     db:"created_at"`
	UpdatedAt          *time.Time `json:"updated_at,omitempty"           db:"updated_at"`
}

// Client is the owning tenant-scoped account a job belongs to.
type Client struct {
	ID        string    `json:"id"         db:"id"`
	OrgID     string    `json:"org_id"     db:"org_id"`
	Name      string    `json:"name"       db:"name"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Job is one recruiting position. Creating a job auto-creates its first
// airwork posting.
type Job struct {
	ID            string    `json:"id"             db:"id"`
	OrgID         string    `json:"org_id"         db:"org_id"`
	ClientID      string    `json:"client_id"      db:"client_id"`
	InternalTitle string    `json:"internal_title" db:"internal_title"`
	CreatedAt     time.Time `json:"created_at"     db:"created_at"`
}
