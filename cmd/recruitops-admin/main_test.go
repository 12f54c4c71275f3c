package main

import (
	"io"
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ensembleops/recruitops/internal/domain/airwork"
	"github.com/ensembleops/recruitops/internal/service"
)

func captureStdout(t *testing.T, fn func() error) string {
	t.Helper()

	oldStdout := os.Stdout
	r, w, err := os.Pipe()
	require.NoError(t, err)

	defer func() {
		os.Stdout = oldStdout
	}()

	os.Stdout = w

	require.NoError(t, fn())

	require.NoError(t, w.Close())
	os.Stdout = oldStdout

	output, err := io.ReadAll(r)
	require.NoError(t, err)
	require.NoError(t, r.Close())

	return string(output)
}

func TestPrintImportReportListsRejectedRows(t *testing.T) {
	out := captureStdout(t, func() error {
		return printImportReport(&service.ImportReport{
			Imported: 3,
			Rejected: []airwork.RowError{
				{Line: 2, Message: "missing field_key"},
				{Line: 5, Message: "bad sort_order"},
			},
		})
	})

	require.Contains(t, out, "imported 3 row(s), rejected 2")
	require.Contains(t, out, "line 2")
	require.Contains(t, out, "missing field_key")
	require.Contains(t, out, "line 5")
	require.Contains(t, out, "bad sort_order")
}

func TestReadImportFileRequiresPath(t *testing.T) {
	_, _, err := readImportFile("  ")
	require.Error(t, err)
	require.Contains(t, err.Error(), "--file is required")
}

func TestReadImportFileReturnsBaseName(t *testing.T) {
	path := t.TempDir() + "/export.xlsx"
	require.NoError(t, os.WriteFile(path, []byte("payload"), 0o600))

	data, name, err := readImportFile(path)
	require.NoError(t, err)
	require.Equal(t, "export.xlsx", name)
	require.Equal(t, []byte("payload"), data)
}

func TestLookupCommandUnknown(t *testing.T) {
	_, ok := commands()["no-such-command"]
	require.False(t, ok)
}
