package model

import "time"

// Location is one registered working location for a client. Postings may
// only reference locations of their own client.
type Location struct {
	ID                string    `json:"id"                  db:"id"`
	ClientID          string    `json:"client_id"           db:"client_id"`
	WorkingLocationID string    `json:"working_location_id" db:"working_location_id"`
	Name              string    `json:"name"                db:"name"`
	CreatedAt         time.Time `json:"created_at"          db:"created_at"`
}

// FieldInputKind classifies how a marketplace field is edited.
type FieldInputKind string

const (
	FieldInputText     FieldInputKind = "text"
	FieldInputNumber   FieldInputKind = "number"
	FieldInputCode     FieldInputKind = "code"
	FieldInputID       FieldInputKind = "id"
	FieldInputReadonly FieldInputKind = "readonly"
)

// Valid reports whether the input kind is supported.
func (k FieldInputKind) Valid() bool {
	switch k {
	case FieldInputText, FieldInputNumber, FieldInputCode, FieldInputID, FieldInputReadonly:
		return true
	default:
		return false
	}
}

// FieldDef is one row of the marketplace field-key master. SortOrder
// drives extra-column ordering in generated files.
type FieldDef struct {
	FieldKey    string         `json:"field_key"    db:"field_key"`
	Label       string         `json:"label"        db:"label"`
	InputKind   FieldInputKind `json:"input_kind"   db:"input_kind"`
	IsEditable  bool           `json:"is_editable"  db:"is_editable"`
	SortOrder   int            `json:"sort_order"   db:"sort_order"`
	SpecVersion string         `json:"spec_version" db:"spec_version"`
}

// Code is one row of a marketplace code master (e.g. job_type codes).
type Code struct {
	FieldKey string `json:"field_key" db:"field_key"`
	Code     string `json:"code"      db:"code"`
	Name     string `json:"name"      db:"name"`
	IsActive bool   `json:"is_active" db:"is_active"`
}

// Masters bundles the reference sets the validation engine consults. An
// empty code or field master means "no constraint configured", not
// "nothing is valid".
type Masters struct {
	LocationIDs  map[string]struct{}
	JobTypeCodes map[string]struct{}
	FieldKeys    map[string]struct{}
}

// HasLocation reports membership in the client's registered location set.
func (m *Masters) HasLocation(id string) bool {
	_, ok := m.LocationIDs[id]
	return ok
}

// HasJobTypeMaster reports whether job-type codes are configured at all.
func (m *Masters) HasJobTypeMaster() bool {
	return len(m.JobTypeCodes) > 0
}

// HasJobTypeCode reports membership in the active code master.
func (m *Masters) HasJobTypeCode(code string) bool {
	_, ok := m.JobTypeCodes[code]
	return ok
}

// HasFieldKeyMaster reports whether field keys are configured at all.
func (m *Masters) HasFieldKeyMaster() bool {
	return len(m.FieldKeys) > 0
}

// HasFieldKey reports membership in the field-key master.
func (m *Masters) HasFieldKey(key string) bool {
	_, ok := m.FieldKeys[key]
	return ok
}
