package airwork

import (
	"archive/zip"
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeHeader(t *testing.T) {
	assert.Equal(t, "job_offer_id", NormalizeHeader("求人番号", 0))
	assert.Equal(t, "job_offer_id", NormalizeHeader("Job_Offer_ID", 1))
	assert.Equal(t, "publish_status_cache", NormalizeHeader("掲載ステータス", 1))
	assert.Equal(t, "last_published_at", NormalizeHeader("最終掲載日", 2))
	assert.Equal(t, "freshness_expires_at", NormalizeHeader("掲載期限", 3))
	assert.Equal(t, "title", NormalizeHeader(" 求人タイトル ", 1))
	assert.Equal(t, "working_location_id", NormalizeHeader("勤務地ID", 1))

	// Unknown headers pass through lowercased.
	assert.Equal(t, "salary", NormalizeHeader("Salary", 5))
}

func TestNormalizeHeader_StripsBOMOnFirstCell(t *testing.T) {
	assert.Equal(t, "job_offer_id", NormalizeHeader("\uFEFFjob_offer_id", 0))
	// BOM is only stripped at index 0.
	assert.NotEqual(t, "job_offer_id", NormalizeHeader("\uFEFFjob_offer_id", 1))
}

func TestParseExportFile_TSV(t *testing.T) {
	text := "求人番号\t求人タイトル\t勤務地ID\t掲載ステータス\t最終掲載日\n" +
		"AW-1\tEngineer\tLOC-1\tpublished\t2026-08-01\n" +
		"\tDesigner\tLOC-2\t\t\n" +
		"\n"
	rows := ParseExportFile("export.txt", []byte(text))
	require.Len(t, rows, 2)

	assert.Equal(t, "AW-1", rows[0].Get("job_offer_id"))
	assert.Equal(t, "Engineer", rows[0].Get("title"))
	assert.Equal(t, "published", rows[0].Get("publish_status_cache"))
	assert.Equal(t, "2026-08-01", rows[0].Get("last_published_at"))

	// Blank cells are simply absent.
	assert.Equal(t, "", rows[1].Get("job_offer_id"))
	assert.Equal(t, "Designer", rows[1].Get("title"))
}

func TestParseExportFile_XLSXRoundTrip(t *testing.T) {
	columns := []string{"job_offer_id", "title", "working_location_id"}
	data, err := EncodeXLSX(columns, [][]string{
		{"AW-9", "Sales Rep", "LOC-3"},
	})
	require.NoError(t, err)

	rows := ParseExportFile("export.xlsx", data)
	require.Len(t, rows, 1)
	assert.Equal(t, "AW-9", rows[0].Get("job_offer_id"))
	assert.Equal(t, "Sales Rep", rows[0].Get("title"))
	assert.Equal(t, "LOC-3", rows[0].Get("working_location_id"))
}

func TestParseExportFile_MalformedXLSXDegradesToZeroRows(t *testing.T) {
	assert.Empty(t, ParseExportFile("export.xlsx", []byte("not a spreadsheet")))
}

func TestFingerprint(t *testing.T) {
	assert.Equal(t, "engineer::loc-1", Fingerprint(" Engineer ", "LOC-1"))
	assert.Equal(t, Fingerprint("Engineer", "loc-1"), Fingerprint("ENGINEER", "LOC-1"))
}

func TestParseDate(t *testing.T) {
	want := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	for _, value := range []string{"2026-08-01", "2026/08/01", "2026-08-01T00:00:00Z"} {
		got := ParseDate(value)
		require.NotNil(t, got, value)
		assert.True(t, got.Equal(want), value)
	}
	assert.Nil(t, ParseDate(""))
	assert.Nil(t, ParseDate("  "))
	assert.Nil(t, ParseDate("next tuesday"))
}

func TestDetectDelimiter(t *testing.T) {
	assert.Equal(t, "\t", DetectDelimiter("a\tb\nc\td"))
	assert.Equal(t, ",", DetectDelimiter("a,b\nc,d"))
	assert.Equal(t, "\t", DetectDelimiter("\n\na\tb"))
	assert.Equal(t, ",", DetectDelimiter(""))
}

func TestParseResultText_Structured(t *testing.T) {
	text := "row,job_offer_id,field_key,error\n" +
		"2,AW-1,title,title too long\n" +
		"3,,description,\n" + // blank message: skipped
		"4,AW-2,,required value missing\n"
	errs := ParseResultText(text, "result.csv")
	require.Len(t, errs, 2)

	first := errs[0]
	assert.Equal(t, "title too long", first.Message)
	require.NotNil(t, first.RowNumber)
	assert.Equal(t, 2, *first.RowNumber)
	require.NotNil(t, first.FieldKey)
	assert.Equal(t, "title", *first.FieldKey)
	require.NotNil(t, first.JobOfferID)
	assert.Equal(t, "AW-1", *first.JobOfferID)
	require.NotNil(t, first.SourceFile)
	assert.Equal(t, "result.csv", *first.SourceFile)

	second := errs[1]
	assert.Equal(t, "required value missing", second.Message)
	assert.Nil(t, second.FieldKey)
}

func TestParseResultText_JapaneseHeaders(t *testing.T) {
	text := "行番号\t求人番号\t項目\tエラー内容\n" +
		"5\tAW-7\ttitle\t文字数が上限を超えています\n"
	errs := ParseResultText(text, "errors.txt")
	require.Len(t, errs, 1)
	assert.Equal(t, "文字数が上限を超えています", errs[0].Message)
	require.NotNil(t, errs[0].RowNumber)
	assert.Equal(t, 5, *errs[0].RowNumber)
	require.NotNil(t, errs[0].JobOfferID)
	assert.Equal(t, "AW-7", *errs[0].JobOfferID)
}

func TestParseResultText_NoMessageColumnIsOpaque(t *testing.T) {
	text := "something\twent\nwrong\there\nand\tagain\n"
	errs := ParseResultText(text, "raw.txt")
	require.Len(t, errs, 2)

	assert.Equal(t, "wrong\there", errs[0].Message)
	require.NotNil(t, errs[0].RowNumber)
	assert.Equal(t, 2, *errs[0].RowNumber)
	require.NotNil(t, errs[1].RowNumber)
	assert.Equal(t, 3, *errs[1].RowNumber)
}

func buildZip(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for name, content := range files {
		entry, err := w.Create(name)
		require.NoError(t, err)
		_, err = entry.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return buf.Bytes()
}

func TestParseResultFile_Zip(t *testing.T) {
	data := buildZip(t, map[string]string{
		"errors.txt": "error\ttitle too long\nbad row\textra\n",
		"notes.md":   "ignored, wrong extension",
	})
	errs := ParseResultFile("results.zip", data)
	require.Len(t, errs, 1)
	require.NotNil(t, errs[0].SourceFile)
	assert.Equal(t, "errors.txt", *errs[0].SourceFile)
}

func TestParseResultFile_MalformedZipYieldsNoErrors(t *testing.T) {
	assert.Empty(t, ParseResultFile("results.zip", []byte("PK not really a zip")))
}

func TestZipTextEntries_SkipsNonTextMembers(t *testing.T) {
	data := buildZip(t, map[string]string{
		"a.txt":  "one",
		"b.TXT":  "two",
		"c.json": "{}",
	})
	entries := ZipTextEntries(data)
	require.Len(t, entries, 2)
	names := []string{entries[0].Name, entries[1].Name}
	assert.Contains(t, names, "a.txt")
	assert.Contains(t, names, "b.TXT")
}
