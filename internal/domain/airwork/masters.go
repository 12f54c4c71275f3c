package airwork

import (
	"encoding/csv"
	"fmt"
	"strconv"
	"strings"

	"github.com/ensembleops/recruitops/internal/domain/model"
)

// RowError is one rejected CSV row with its 1-based line number.
type RowError struct {
	Line    int
	Message string
}

var (
	fieldCSVHeaders    = []string{"field_key", "label_ja", "input_kind", "is_editable", "sort_order", "spec_version"}
	codeCSVHeaders     = []string{"field_key", "code", "name_ja", "is_active"}
	locationCSVHeaders = []string{"working_location_id", "name"}
)

// ParseFieldsCSV parses a field-key master upload. Rows with problems are
// reported individually; valid rows still import.
func ParseFieldsCSV(text string) ([]model.FieldDef, []RowError) {
	rows, errs := readMasterCSV(text, fieldCSVHeaders)
	if len(errs) > 0 && len(rows) == 0 {
		return nil, errs
	}

	var defs []model.FieldDef
	for _, row := range rows {
		fieldKey := strings.TrimSpace(row.cells[0])
		label := strings.TrimSpace(row.cells[1])
		kind := model.FieldInputKind(strings.TrimSpace(row.cells[2]))
		editable, editableOK := parseBoolLike(row.cells[3])
		sortOrder, sortErr := strconv.Atoi(strings.TrimSpace(row.cells[4]))
		specVersion := strings.TrimSpace(row.cells[5])

		switch {
		case fieldKey == "":
			errs = append(errs, RowError{Line: row.line, Message: "field_key is required"})
		case label == "":
			errs = append(errs, RowError{Line: row.line, Message: "label_ja is required"})
		case !kind.Valid():
			errs = append(errs, RowError{Line: row.line, Message: "input_kind must be one of text/number/code/id/readonly"})
		case !editableOK:
			errs = append(errs, RowError{Line: row.line, Message: "is_editable must be true/false/1/0"})
		case sortErr != nil:
			errs = append(errs, RowError{Line: row.line, Message: "sort_order must be an integer"})
		case specVersion == "":
			errs = append(errs, RowError{Line: row.line, Message: "spec_version is required"})
		default:
			defs = append(defs, model.FieldDef{
				FieldKey:    fieldKey,
				Label:       label,
				InputKind:   kind,
				IsEditable:  editable,
				SortOrder:   sortOrder,
				SpecVersion: specVersion,
			})
		}
	}
	return defs, errs
}

// ParseCodesCSV parses a code master upload.
func ParseCodesCSV(text string) ([]model.Code, []RowError) {
	rows, errs := readMasterCSV(text, codeCSVHeaders)
	if len(errs) > 0 && len(rows) == 0 {
		return nil, errs
	}

	var codes []model.Code
	for _, row := range rows {
		fieldKey := strings.TrimSpace(row.cells[0])
		code := strings.TrimSpace(row.cells[1])
		name := strings.TrimSpace(row.cells[2])
		active, activeOK := parseBoolLike(row.cells[3])

		switch {
		case fieldKey == "":
			errs = append(errs, RowError{Line: row.line, Message: "field_key is required"})
		case code == "":
			errs = append(errs, RowError{Line: row.line, Message: "code is required"})
		case name == "":
			errs = append(errs, RowError{Line: row.line, Message: "name_ja is required"})
		case !activeOK:
			errs = append(errs, RowError{Line: row.line, Message: "is_active must be true/false/1/0"})
		default:
			codes = append(codes, model.Code{FieldKey: fieldKey, Code: code, Name: name, IsActive: active})
		}
	}
	return codes, errs
}

// ParseLocationsCSV parses a working-location master upload for one
// client.
func ParseLocationsCSV(clientID, text string) ([]model.Location, []RowError) {
	rows, errs := readMasterCSV(text, locationCSVHeaders)
	if len(errs) > 0 && len(rows) == 0 {
		return nil, errs
	}

	var locations []model.Location
	for _, row := range rows {
		workingLocationID := strings.TrimSpace(row.cells[0])
		name := strings.TrimSpace(row.cells[1])

		switch {
		case workingLocationID == "":
			errs = append(errs, RowError{Line: row.line, Message: "working_location_id is required"})
		case name == "":
			errs = append(errs, RowError{Line: row.line, Message: "name is required"})
		default:
			locations = append(locations, model.Location{
				ClientID:          clientID,
				WorkingLocationID: workingLocationID,
				Name:              name,
			})
		}
	}
	return locations, errs
}

type masterRow struct {
	line  int
	cells []string
}

// readMasterCSV reads the upload with strict column counts and validates
// the exact header line. Master files are produced in-house, so unlike
// the marketplace parsers this one rejects malformed input loudly.
func readMasterCSV(text string, expected []string) ([]masterRow, []RowError) {
	reader := csv.NewReader(strings.NewReader(text))
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, []RowError{{Line: 1, Message: fmt.Sprintf("invalid CSV: %v", err)}}
	}
	if len(records) == 0 {
		return nil, []RowError{{Line: 1, Message: "CSV has no data rows"}}
	}

	header := normalizeMasterHeader(records[0])
	if !headerMatches(header, expected) {
		return nil, []RowError{{
			Line:    1,
			Message: fmt.Sprintf("unexpected header; want: %s", strings.Join(expected, ", ")),
		}}
	}

	var rows []masterRow
	var errs []RowError
	for i, record := range records[1:] {
		line := i + 2
		if rowEmpty(record) {
			continue
		}
		if len(record) != len(expected) {
			errs = append(errs, RowError{Line: line, Message: fmt.Sprintf("expected %d columns", len(expected))})
			continue
		}
		rows = append(rows, masterRow{line: line, cells: record})
	}
	return rows, errs
}

func normalizeMasterHeader(raw []string) []string {
	header := make([]string, len(raw))
	for i, cell := range raw {
		cell = strings.TrimSpace(cell)
		if i == 0 {
			cell = strings.TrimPrefix(cell, "\uFEFF")
		}
		header[i] = cell
	}
	return header
}

func headerMatches(header, expected []string) bool {
	if len(header) != len(expected) {
		return false
	}
	for i, cell := range header {
		if cell != expected[i] {
			return false
		}
	}
	return true
}

func rowEmpty(record []string) bool {
	for _, cell := range record {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

func parseBoolLike(value string) (bool, bool) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "true", "1":
		return true, true
	case "false", "0":
		return false, true
	default:
		return false, false
	}
}
