package model

import (
	"strings"
	"time"

	apperrors "github.com/ensembleops/recruitops/internal/errors"
)

// RunType distinguishes operator-initiated update batches from
// scanner-generated refresh batches.
type RunType string

const (
	RunTypeUpdate  RunType = "update"
	RunTypeRefresh RunType = "refresh"
)

// Valid reports whether the run type is supported.
func (t RunType) Valid() bool {
	return t == RunTypeUpdate || t == RunTypeRefresh
}

// RunStatus is the batch lifecycle state.
type RunStatus string

const (
	RunStatusDraft         RunStatus = "draft"
	RunStatusFileGenerated RunStatus = "file_generated"
	RunStatusExecuting     RunStatus = "executing"
	RunStatusDone          RunStatus = "done"
	RunStatusFailed        RunStatus = "failed"
)

// Valid reports whether the run status is supported.
func (s RunStatus) Valid() bool {
	switch s {
	case RunStatusDraft, RunStatusFileGenerated, RunStatusExecuting, RunStatusDone, RunStatusFailed:
		return true
	default:
		return false
	}
}

// CanTransitionTo reports whether the status change is a legal forward
// move. Runs never leave done/failed.
func (s RunStatus) CanTransitionTo(next RunStatus) bool {
	switch s {
	case RunStatusDraft:
		return next == RunStatusFileGenerated || next == RunStatusFailed
	case RunStatusFileGenerated:
		// Regeneration keeps the status; executing starts the upload.
		return next == RunStatusFileGenerated || next == RunStatusExecuting || next == RunStatusFailed
	case RunStatusExecuting:
		return next == RunStatusDone || next == RunStatusFailed
	default:
		return false
	}
}

// FileFormat selects the export encoding for a run.
type FileFormat string

const (
	FileFormatXLSX FileFormat = "xlsx"
	FileFormatTXT  FileFormat = "txt"
)

// Valid reports whether the file format is supported.
func (f FileFormat) Valid() bool {
	return f == FileFormatXLSX || f == FileFormatTXT
}

// Run is one export batch for a client. Runs are append-only audit
// records and are never deleted.
type Run struct {
	ID          int64      `json:"id"                      db:"id"`
	OrgID       string     `json:"org_id"                  db:"org_id"`
	ClientID    string     `json:"client_id"               db:"client_id"`
	RunType     RunType    `json:"run_type"                db:"run_type"`
	Status      RunStatus  `json:"status"                  db:"status"`
	FileFormat  FileFormat `json:"file_format"             db:"file_format"`
	FileBlobURL *string    `json:"file_blob_url,omitempty" db:"file_blob_url"`
	FileSHA256  *string    `json:"file_sha256,omitempty"   db:"file_sha256"`
	CreatedAt   time.Time  `json:"created_at"              db:"created_at"`
	UpdatedAt   *time.Time `json:"updated_at,omitempty"    db:"updated_at"`
}

// RunDetail is a run joined with its client name and item count.
type RunDetail struct {
	Run
	ClientName string `json:"client_name" db:"client_name"`
	ItemCount  int    `json:"item_count"  db:"item_count"`
}

// RunItemAction records whether an item creates a new marketplace listing
// or updates an existing one. It is derived once at run creation from the
// posting's offer-id state and deliberately never recomputed afterward.
type RunItemAction string

const (
	RunItemActionCreate RunItemAction = "create"
	RunItemActionUpdate RunItemAction = "update"
)

// Valid reports whether the action is supported.
func (a RunItemAction) Valid() bool {
	return a == RunItemActionCreate || a == RunItemActionUpdate
}

// RunItem is one posting's line within a run.
type RunItem struct {
	ID            int64              `json:"id"                        db:"id"`
	RunID         int64              `json:"run_id"                    db:"run_id"`
	JobPostingID  string             `json:"job_posting_id"            db:"job_posting_id"`
	JobRevisionID string             `json:"job_revision_id"           db:"job_revision_id"`
	Action        RunItemAction      `json:"action"                    db:"action"`
	Validation    *RunItemValidation `json:"validation_json,omitempty" db:"validation_json"`
	CreatedAt     time.Time          `json:"created_at"                db:"created_at"`
	UpdatedAt     *time.Time         `json:"updated_at,omitempty"      db:"updated_at"`
}

// RunItemDetail carries the joined content the validator and file
// generator need: the snapshot payload plus posting/job context.
type RunItemDetail struct {
	ID         int64              `json:"id"              db:"id"`
	Action     RunItemAction      `json:"action"          db:"action"`
	JobOfferID *string            `json:"job_offer_id"    db:"job_offer_id"`
	JobID      string             `json:"job_id"          db:"job_id"`
	JobTitle   string             `json:"job_title"       db:"job_title"`
	PostingID  string             `json:"job_posting_id"  db:"job_posting_id"`
	Payload    map[string]string  `json:"payload_json"    db:"payload_json"`
	Validation *RunItemValidation `json:"validation_json" db:"validation_json"`
}

// PayloadValue returns the named payload field, or "" when absent.
func (d *RunItemDetail) PayloadValue(key string) string {
	if d.Payload == nil {
		return ""
	}
	return d.Payload[key]
}

// EffectiveJobOfferID resolves the offer id the marketplace file should
// carry: a payload override wins over the posting's stored id.
func (d *RunItemDetail) EffectiveJobOfferID() string {
	if v := d.PayloadValue(PayloadKeyJobOfferID); v != "" {
		return v
	}
	if d.JobOfferID != nil {
		return *d.JobOfferID
	}
	return ""
}

// ValidationIssue is one computed validation outcome (hard error or
// warning) attached to a run item.
type ValidationIssue struct {
	Code     string `json:"code"`
	Message  string `json:"message"`
	FieldKey string `json:"field_key,omitempty"`
	Detail   string `json:"detail,omitempty"`
}

// ImportedError is one marketplace-reported row error attached to a run
// item by result ingestion. These are sourced externally, never computed.
type ImportedError struct {
	Message    string  `json:"message"`
	FieldKey   *string `json:"field_key,omitempty"`
	RowNumber  *int    `json:"row_number,omitempty"`
	JobOfferID *string `json:"job_offer_id,omitempty"`
	SourceFile *string `json:"source_file,omitempty"`
}

// RunItemValidation is the structured validation blob stored per item.
// HardErrors and Warnings are recomputed on every validation pass;
// Imported is replaced wholesale by each result ingestion.
type RunItemValidation struct {
	HardErrors []ValidationIssue `json:"hard_errors,omitempty"`
	Warnings   []ValidationIssue `json:"warnings,omitempty"`
	Imported   []ImportedError   `json:"imported,omitempty"`
}

// HasHardErrors reports whether any blocking issue is present.
func (v *RunItemValidation) HasHardErrors() bool {
	return v != nil && len(v.HardErrors) > 0
}

// CreateRunRequest carries the parameters of a run creation.
type CreateRunRequest struct {
	OrgID    string
	ClientID string
	RunType  RunType
	// FileFormat defaults to xlsx when empty.
	FileFormat FileFormat
	// IncludeLatestApprovedOnly filters out postings whose approved
	// revision has been superseded by newer (unapproved) work.
	IncludeLatestApprovedOnly bool
}

// Validate checks identifiers and enum values, defaulting blanks.
func (r *CreateRunRequest) Validate() error {
	if strings.TrimSpace(r.OrgID) == "" {
		return apperrors.ValidationField("org_id", "org id is required")
	}
	if strings.TrimSpace(r.ClientID) == "" {
		return apperrors.ValidationField("client_id", "client id is required")
	}
	if r.RunType == "" {
		r.RunType = RunTypeUpdate
	}
	if !r.RunType.Valid() {
		return apperrors.ValidationField("run_type", "run type must be update or refresh")
	}
	if r.FileFormat == "" {
		r.FileFormat = FileFormatXLSX
	}
	if !r.FileFormat.Valid() {
		return apperrors.ValidationField("file_format", "file format must be xlsx or txt")
	}
	return nil
}
