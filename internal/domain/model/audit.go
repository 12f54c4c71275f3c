package model

import (
	"encoding/json"
	"time"
)

// Audit actions written by the pipeline.
const (
	AuditActionImportExport   = "import_airwork_export"
	AuditActionImportResults  = "import_airwork_results"
	AuditActionFreshnessSweep = "cron_freshness"
)

// AuditLog is one append-only audit record. Payload carries the
// action-specific summary (counts, ids, blob url).
type AuditLog struct {
	ID        int64           `json:"id"                   db:"id"`
	OrgID     string          `json:"org_id"               db:"org_id"`
	Action    string          `json:"action"               db:"action"`
	Payload   json.RawMessage `json:"payload_json"         db:"payload_json"`
	CreatedBy *string         `json:"created_by,omitempty" db:"created_by"`
	CreatedAt time.Time       `json:"created_at"           db:"created_at"`
}
