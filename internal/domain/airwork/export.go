package airwork

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/samber/lo"
	"github.com/xuri/excelize/v2"

	"github.com/ensembleops/recruitops/internal/domain/model"
)

// BaseColumns are the fixed leading columns of every export file, in
// marketplace order. Field-key-master extras follow them.
var BaseColumns = []string{
	model.PayloadKeyJobOfferID,
	model.PayloadKeyWorkingLocationID,
	model.PayloadKeyJobType,
	model.PayloadKeyTitle,
	model.PayloadKeySubtitle,
	model.PayloadKeyDescription,
}

// Content types of the two supported export encodings.
const (
	ContentTypeTSV  = "text/tab-separated-values; charset=utf-8"
	ContentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

const exportSheetName = "airwork"

// BuildColumns derives the column set for a run: the base columns plus
// any field-key-master keys that are not already base columns and appear
// in at least one item's payload. Unused optional master keys never emit
// always-empty columns.
func BuildColumns(items []*model.RunItemDetail, fieldKeys []string) []string {
	present := map[string]struct{}{}
	for _, item := range items {
		for key := range item.Payload {
			present[key] = struct{}{}
		}
	}

	base := map[string]struct{}{}
	for _, col := range BaseColumns {
		base[col] = struct{}{}
	}

	extras := lo.Filter(fieldKeys, func(key string, _ int) bool {
		if _, isBase := base[key]; isBase {
			return false
		}
		_, ok := present[key]
		return ok
	})

	return append(append([]string{}, BaseColumns...), extras...)
}

// BuildRow renders one item into cell values following columns. The
// offer-id column resolves payload override → stored posting id → empty;
// every other column reads the payload directly.
func BuildRow(item *model.RunItemDetail, columns []string) []string {
	row := make([]string, len(columns))
	for i, column := range columns {
		if column == model.PayloadKeyJobOfferID {
			row[i] = item.EffectiveJobOfferID()
			continue
		}
		row[i] = item.PayloadValue(column)
	}
	return row
}

// EncodeTSV renders columns and rows as tab-separated text with a
// trailing newline. Embedded tabs and newlines inside cells are
// flattened to spaces so the row structure survives.
func EncodeTSV(columns []string, rows [][]string) []byte {
	var sb strings.Builder
	sb.WriteString(strings.Join(columns, "\t"))
	sb.WriteByte('\n')
	for _, row := range rows {
		cells := make([]string, len(row))
		for i, cell := range row {
			cells[i] = sanitizeTSVCell(cell)
		}
		sb.WriteString(strings.Join(cells, "\t"))
		sb.WriteByte('\n')
	}
	return []byte(sb.String())
}

func sanitizeTSVCell(cell string) string {
	replacer := strings.NewReplacer("\t", " ", "\r\n", " ", "\n", " ", "\r", " ")
	return replacer.Replace(cell)
}

// EncodeXLSX renders columns and rows as a spreadsheet: bold header row
// and every data cell forced to text number format, so codes like
// location ids survive round-trips without numeric coercion.
func EncodeXLSX(columns []string, rows [][]string) ([]byte, error) {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	const defaultSheet = "Sheet1"
	if err := f.SetSheetName(defaultSheet, exportSheetName); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}

	boldStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, fmt.Errorf("header style: %w", err)
	}
	// Built-in number format 49 is "@" (text).
	textFmt := 49
	textStyle, err := f.NewStyle(&excelize.Style{NumFmt: textFmt})
	if err != nil {
		return nil, fmt.Errorf("text style: %w", err)
	}

	if err = writeXLSXRow(f, 1, toAnyRow(columns)); err != nil {
		return nil, err
	}
	if err = styleXLSXRow(f, 1, len(columns), boldStyle); err != nil {
		return nil, err
	}

	for i, row := range rows {
		rowNum := i + 2
		if err = writeXLSXRow(f, rowNum, toAnyRow(row)); err != nil {
			return nil, err
		}
		if err = styleXLSXRow(f, rowNum, len(row), textStyle); err != nil {
			return nil, err
		}
	}

	var buf bytes.Buffer
	if err = f.Write(&buf); err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func toAnyRow(cells []string) []any {
	out := make([]any, len(cells))
	for i, cell := range cells {
		out[i] = cell
	}
	return out
}

func writeXLSXRow(f *excelize.File, rowNum int, cells []any) error {
	ref, err := excelize.CoordinatesToCellName(1, rowNum)
	if err != nil {
		return fmt.Errorf("cell ref: %w", err)
	}
	if err = f.SetSheetRow(exportSheetName, ref, &cells); err != nil {
		return fmt.Errorf("write row %d: %w", rowNum, err)
	}
	return nil
}

func styleXLSXRow(f *excelize.File, rowNum, width, styleID int) error {
	if width == 0 {
		return nil
	}
	first, err := excelize.CoordinatesToCellName(1, rowNum)
	if err != nil {
		return fmt.Errorf("cell ref: %w", err)
	}
	last, err := excelize.CoordinatesToCellName(width, rowNum)
	if err != nil {
		return fmt.Errorf("cell ref: %w", err)
	}
	if err = f.SetCellStyle(exportSheetName, first, last, styleID); err != nil {
		return fmt.Errorf("style row %d: %w", rowNum, err)
	}
	return nil
}

// SHA256Hex returns the lowercase hex digest of the final file bytes,
// the content address recorded on the run for audit.
func SHA256Hex(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
