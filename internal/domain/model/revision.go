package model

import (
	"strings"
	"time"

	apperrors "github.com/ensembleops/recruitops/internal/errors"
)

// Content field limits enforced at draft save and again by the validation
// engine. The airwork marketplace rejects longer values server-side.
const (
	TitleMaxLen       = 200
	SubtitleMaxLen    = 200
	DescriptionMaxLen = 10000
	LocationIDMaxLen  = 64
)

// RevisionSource records how a revision came to exist.
type RevisionSource string

const (
	RevisionSourceManual RevisionSource = "manual"
	RevisionSourceAI     RevisionSource = "ai"
	RevisionSourceSystem RevisionSource = "system"
)

// Valid reports whether the revision source is supported.
func (s RevisionSource) Valid() bool {
	switch s {
	case RevisionSourceManual, RevisionSourceAI, RevisionSourceSystem:
		return true
	default:
		return false
	}
}

// RevisionStatus is the lifecycle state of a revision. Transitions only
// ever move through the compare-and-set paths in the revision repository.
type RevisionStatus string

const (
	RevisionStatusDraft    RevisionStatus = "draft"
	RevisionStatusInReview RevisionStatus = "in_review"
	RevisionStatusApproved RevisionStatus = "approved"
	RevisionStatusCanceled RevisionStatus = "canceled"
)

// Valid reports whether the revision status is supported.
func (s RevisionStatus) Valid() bool {
	switch s {
	case RevisionStatusDraft, RevisionStatusInReview, RevisionStatusApproved, RevisionStatusCanceled:
		return true
	default:
		return false
	}
}

// Revision is an immutable-once-approved content snapshot for a posting.
// RevNo values are contiguous per posting starting at 1.
type Revision struct {
	ID           string            `json:"id"                    db:"id"`
	JobPostingID string            `json:"job_posting_id"        db:"job_posting_id"`
	RevNo        int               `json:"rev_no"                db:"rev_no"`
	Source       RevisionSource    `json:"source"                db:"source"`
	Status       RevisionStatus    `json:"status"                db:"status"`
	Payload      map[string]string `json:"payload_json"          db:"payload_json"`
	PayloadHash  string            `json:"payload_hash"          db:"payload_hash"`
	ApprovedBy   *string           `json:"approved_by,omitempty" db:"approved_by"`
	ApprovedAt   *time.Time        `json:"approved_at,omitempty" db:"approved_at"`
	CreatedAt    time.Time         `json:"created_at"            db:"created_at"`
	UpdatedAt    *time.Time        `json:"updated_at,omitempty"  db:"updated_at"`
}

// DraftRequest carries the editable content fields for a draft save.
// Optional fields are omitted from the payload when blank.
type DraftRequest struct {
	OrgID             string
	JobID             string
	Title             string
	Subtitle          string
	Description       string
	WorkingLocationID string
	JobType           string
	OccupationID      string
}

// Validate checks required fields and length caps. Field-level failures
// come back as validation errors naming the offending field.
func (r *DraftRequest) Validate() error {
	if strings.TrimSpace(r.OrgID) == "" {
		return apperrors.ValidationField("org_id", "org id is required")
	}
	if strings.TrimSpace(r.JobID) == "" {
		return apperrors.ValidationField("job_id", "job id is required")
	}

	title := strings.TrimSpace(r.Title)
	if title == "" {
		return apperrors.ValidationField("title", "title is required")
	}
	if len([]rune(title)) > TitleMaxLen {
		return apperrors.ValidationField("title", "title is too long")
	}

	description := strings.TrimSpace(r.Description)
	if description == "" {
		return apperrors.ValidationField("description", "description is required")
	}
	if len([]rune(description)) > DescriptionMaxLen {
		return apperrors.ValidationField("description", "description is too long")
	}

	if len([]rune(strings.TrimSpace(r.Subtitle))) > SubtitleMaxLen {
		return apperrors.ValidationField("subtitle", "subtitle is too long")
	}
	if len([]rune(strings.TrimSpace(r.WorkingLocationID))) > LocationIDMaxLen {
		return apperrors.ValidationField("working_location_id", "working location id is too long")
	}
	return nil
}

// BuildPayload renders the request into the stored payload map, leaving
// blank optional fields out entirely.
func (r *DraftRequest) BuildPayload() map[string]string {
	payload := map[string]string{
		PayloadKeyTitle:       strings.TrimSpace(r.Title),
		PayloadKeyDescription: strings.TrimSpace(r.Description),
	}
	if v := strings.TrimSpace(r.Subtitle); v != "" {
		payload[PayloadKeySubtitle] = v
	}
	if v := strings.TrimSpace(r.WorkingLocationID); v != "" {
		payload[PayloadKeyWorkingLocationID] = v
	}
	if v := strings.TrimSpace(r.JobType); v != "" {
		payload[PayloadKeyJobType] = v
	}
	if v := strings.TrimSpace(r.OccupationID); v != "" {
		payload[PayloadKeyOccupationID] = v
	}
	return payload
}
