package airwork

import (
	"archive/zip"
	"bytes"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/samber/lo"
	"github.com/xuri/excelize/v2"

	"github.com/ensembleops/recruitops/internal/domain/model"
)

// headerAliases normalizes the marketplace's header variants (English and
// Japanese) onto logical column names. Unknown headers pass through
// lowercased.
var headerAliases = map[string]string{
	"求人番号":                 model.PayloadKeyJobOfferID,
	"job_offer_id":         model.PayloadKeyJobOfferID,
	"job offer id":         model.PayloadKeyJobOfferID,
	"掲載ステータス":              "publish_status_cache",
	"publish_status":       "publish_status_cache",
	"publish_status_cache": "publish_status_cache",
	"last_published_at":    "last_published_at",
	"最終掲載日":                "last_published_at",
	"freshness_expires_at": "freshness_expires_at",
	"掲載期限":                 "freshness_expires_at",
	"title":                model.PayloadKeyTitle,
	"求人タイトル":               model.PayloadKeyTitle,
	"working_location_id":  model.PayloadKeyWorkingLocationID,
	"勤務地id":                model.PayloadKeyWorkingLocationID,
}

// Header variants recognized in result files.
var (
	resultMessageHeaders  = []string{"error", "errors", "message", "reason", "エラー内容", "エラー"}
	resultRowHeaders      = []string{"row", "row_number", "行番号", "行"}
	resultFieldHeaders    = []string{"field_key", "field", "item", "項目", "項目名"}
	resultJobOfferHeaders = []string{model.PayloadKeyJobOfferID, "求人番号", "job_offer"}
)

// NormalizeHeader maps a raw header cell onto its logical column name.
// The first header cell may carry a UTF-8 BOM, which is stripped.
func NormalizeHeader(value string, index int) string {
	trimmed := strings.TrimSpace(value)
	if index == 0 {
		trimmed = strings.TrimPrefix(trimmed, "\uFEFF")
	}
	lower := strings.ToLower(trimmed)
	if alias, ok := headerAliases[lower]; ok {
		return alias
	}
	if alias, ok := headerAliases[trimmed]; ok {
		return alias
	}
	return lower
}

// ExportRow is one parsed row of a marketplace export, keyed by logical
// column name. Blank cells are absent.
type ExportRow map[string]string

// Get returns the trimmed value for a logical column, or "" when the
// cell was blank or missing.
func (r ExportRow) Get(key string) string {
	return strings.TrimSpace(r[key])
}

// ParseExportFile parses a marketplace export by extension: .xlsx through
// the spreadsheet reader, anything else as tab-separated text. Malformed
// input degrades to zero rows, never an error; the file originates from
// an uncontrolled external system.
func ParseExportFile(fileName string, data []byte) []ExportRow {
	if strings.HasSuffix(strings.ToLower(fileName), ".xlsx") {
		return parseExportXLSX(data)
	}
	return parseExportTSV(data)
}

func parseExportTSV(data []byte) []ExportRow {
	rows := parseDelimited(string(data), "\t")
	if len(rows) == 0 {
		return nil
	}
	headers := normalizeHeaders(rows[0])
	return rowsToRecords(headers, rows[1:])
}

func parseExportXLSX(data []byte) []ExportRow {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil
	}
	defer func() { _ = f.Close() }()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil
	}
	cells, err := f.GetRows(sheets[0])
	if err != nil || len(cells) == 0 {
		return nil
	}

	headers := normalizeHeaders(cells[0])
	return rowsToRecords(headers, cells[1:])
}

func normalizeHeaders(raw []string) []string {
	headers := make([]string, len(raw))
	for i, value := range raw {
		headers[i] = NormalizeHeader(value, i)
	}
	return headers
}

func rowsToRecords(headers []string, rows [][]string) []ExportRow {
	var records []ExportRow
	for _, row := range rows {
		record := ExportRow{}
		empty := true
		for i, header := range headers {
			if header == "" || i >= len(row) {
				continue
			}
			value := strings.TrimSpace(row[i])
			if value == "" {
				continue
			}
			record[header] = value
			empty = false
		}
		if !empty {
			records = append(records, record)
		}
	}
	return records
}

// parseDelimited splits text into trimmed, non-empty lines and each line
// by the delimiter. Ragged rows are kept as-is; strictness here would
// reject real marketplace files.
func parseDelimited(text, delimiter string) [][]string {
	var rows [][]string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimRight(line, " \t\r")
		if line == "" {
			continue
		}
		rows = append(rows, strings.Split(line, delimiter))
	}
	return rows
}

// Fingerprint builds the lowercase title::location key used to match
// imported rows that lack an offer id back to a posting.
func Fingerprint(title, workingLocationID string) string {
	return strings.ToLower(strings.TrimSpace(title) + "::" + strings.TrimSpace(workingLocationID))
}

// dateLayouts are the timestamp shapes observed in marketplace exports.
var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"2006/01/02 15:04:05",
	"2006/01/02",
}

// ParseDate parses a marketplace date cell, returning nil for blanks and
// anything unparseable. A broken date must degrade to "unknown", not
// fail the import.
func ParseDate(value string) *time.Time {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			t = t.UTC()
			return &t
		}
	}
	return nil
}

// DetectDelimiter sniffs the delimiter of one result file: tab when the
// first non-empty line contains one, comma otherwise.
func DetectDelimiter(text string) string {
	for _, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		if strings.Contains(line, "\t") {
			return "\t"
		}
		return ","
	}
	return ","
}

// ParseResultText extracts marketplace row errors from one delimited
// result file. When a recognizable message column exists the rows are
// treated as structured (message + optional field/row/offer-id columns);
// otherwise every non-empty data line becomes one opaque error message.
func ParseResultText(text, sourceFile string) []model.ImportedError {
	delimiter := DetectDelimiter(text)
	rows := parseDelimited(text, delimiter)
	if len(rows) == 0 {
		return nil
	}

	headers := normalizeHeaders(rows[0])
	messageIdx := indexOfAny(headers, resultMessageHeaders)
	rowIdx := indexOfAny(headers, resultRowHeaders)
	fieldIdx := indexOfAny(headers, resultFieldHeaders)
	offerIdx := indexOfAny(headers, resultJobOfferHeaders)

	src := optional(sourceFile)

	if messageIdx < 0 {
		errs := make([]model.ImportedError, 0, len(rows)-1)
		for i, row := range rows[1:] {
			rowNumber := i + 2
			errs = append(errs, model.ImportedError{
				Message:    strings.TrimSpace(strings.Join(row, delimiter)),
				RowNumber:  &rowNumber,
				SourceFile: src,
			})
		}
		return errs
	}

	var errs []model.ImportedError
	for _, row := range rows[1:] {
		message := strings.TrimSpace(cellAt(row, messageIdx))
		if message == "" {
			continue
		}
		errs = append(errs, model.ImportedError{
			Message:    message,
			FieldKey:   optional(cellAt(row, fieldIdx)),
			RowNumber:  parseRowNumber(cellAt(row, rowIdx)),
			JobOfferID: optional(cellAt(row, offerIdx)),
			SourceFile: src,
		})
	}
	return errs
}

// ParseResultFile handles both accepted result shapes: a zip of .txt
// members or a single delimited text file.
func ParseResultFile(fileName string, data []byte) []model.ImportedError {
	if strings.HasSuffix(strings.ToLower(fileName), ".zip") {
		var errs []model.ImportedError
		for _, entry := range ZipTextEntries(data) {
			errs = append(errs, ParseResultText(string(entry.Data), entry.Name)...)
		}
		return errs
	}
	return ParseResultText(string(data), fileName)
}

// ZipEntry is one extracted text member of a result archive.
type ZipEntry struct {
	Name string
	Data []byte
}

// ZipTextEntries extracts the .txt members of a zip archive. Entries with
// unsupported compression methods are skipped rather than failing the
// archive, and a malformed archive yields zero entries.
func ZipTextEntries(data []byte) []ZipEntry {
	reader, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil
	}

	var entries []ZipEntry
	for _, file := range reader.File {
		if file.FileInfo().IsDir() {
			continue
		}
		if !strings.HasSuffix(strings.ToLower(file.Name), ".txt") {
			continue
		}
		rc, openErr := file.Open()
		if openErr != nil {
			// zip.ErrAlgorithm for methods other than store/deflate.
			continue
		}
		content, readErr := io.ReadAll(rc)
		_ = rc.Close()
		if readErr != nil {
			continue
		}
		entries = append(entries, ZipEntry{Name: file.Name, Data: content})
	}
	return entries
}

func indexOfAny(headers, candidates []string) int {
	_, idx, ok := lo.FindIndexOf(headers, func(h string) bool {
		return lo.Contains(candidates, h)
	})
	if !ok {
		return -1
	}
	return idx
}

func cellAt(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return row[idx]
}

func optional(value string) *string {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	return &value
}

func parseRowNumber(value string) *int {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return nil
	}
	return &n
}
