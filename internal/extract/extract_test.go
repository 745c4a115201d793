package extract

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/ginjaninja78/invoicelines/internal/types"
)

func writeCSV(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "invoice.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestFormatOf(t *testing.T) {
	for path, want := range map[string]Format{
		"a.xlsx":      FormatXLSX,
		"A.XLSX":      FormatXLSX,
		"dir/b.csv":   FormatCSV,
		"faktura.PDF": FormatPDF,
		"report.xlsm": FormatXLSX,
	} {
		got, ok := FormatOf(path)
		assert.True(t, ok, path)
		assert.Equal(t, want, got, path)
	}

	_, ok := FormatOf("notes.txt")
	assert.False(t, ok)
}

func TestSupportedExtensionsAreReadable(t *testing.T) {
	for _, ext := range SupportedExtensions {
		_, ok := FormatOf("invoice" + ext)
		assert.True(t, ok, ext)
	}
	assert.Len(t, SupportedExtensions, len(formatByExtension))
}

func TestParseMode(t *testing.T) {
	mode, err := ParseMode("")
	require.NoError(t, err)
	assert.Equal(t, types.SourceTable, mode)

	mode, err = ParseMode("TEXT")
	require.NoError(t, err)
	assert.Equal(t, types.SourceText, mode)

	_, err = ParseMode("ocr")
	assert.Error(t, err)
}

func TestExtract_CSVTableMode(t *testing.T) {
	path := writeCSV(t, "1;1355221;Solar panel mount;10;stk;1 250,00\n;;Rabatt: 5%\n")

	doc, err := Extract(path, Options{Mode: types.SourceTable})
	require.NoError(t, err)
	assert.Equal(t, FormatCSV, doc.Format)
	require.Len(t, doc.Rows, 2)
	assert.Equal(t, types.SourceTable, doc.Rows[0].Source)
	assert.Equal(t, "1 250,00", doc.Rows[0].Cell(-1))
}

func TestExtract_CSVTextMode(t *testing.T) {
	path := writeCSV(t, "1;1355221;Solar panel mount 10 stk\n;;net amount 1 250,00 NOK\n")

	doc, err := Extract(path, Options{Mode: types.SourceText})
	require.NoError(t, err)
	require.Len(t, doc.Rows, 2)
	assert.Equal(t, []string{"1 1355221 Solar panel mount 10 stk"}, doc.Rows[0].Cells)
	assert.Equal(t, types.SourceText, doc.Rows[1].Source)
}

func TestExtract_XLSX(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()
	require.NoError(t, f.SetSheetRow("Sheet1", "A1", &[]interface{}{"1", "1355221", "Solar panel mount", "10", "stk", "1 250,00"}))
	path := filepath.Join(t.TempDir(), "invoice.xlsx")
	require.NoError(t, f.SaveAs(path))

	doc, err := Extract(path, Options{})
	require.NoError(t, err)
	assert.Equal(t, FormatXLSX, doc.Format)
	require.Len(t, doc.Rows, 1)
	assert.Equal(t, "Solar panel mount", doc.Rows[0].Cell(2))
}

func TestExtract_NoContent(t *testing.T) {
	path := writeCSV(t, ";;\n ; \n")

	doc, err := Extract(path, Options{})
	assert.ErrorIs(t, err, ErrNoContent)
	require.NotNil(t, doc)
	assert.Equal(t, 0, doc.NonEmptyRows())

	var extractionErr *ExtractionError
	assert.False(t, errors.As(err, &extractionErr))
}

func TestExtract_Failures(t *testing.T) {
	dir := t.TempDir()

	_, err := Extract(filepath.Join(dir, "notes.txt"), Options{})
	var extractionErr *ExtractionError
	require.True(t, errors.As(err, &extractionErr))
	assert.ErrorIs(t, err, ErrUnsupportedFormat)

	_, err = Extract(filepath.Join(dir, "missing.csv"), Options{})
	require.True(t, errors.As(err, &extractionErr))
	assert.Contains(t, err.Error(), "missing.csv")

	broken := filepath.Join(dir, "broken.pdf")
	require.NoError(t, os.WriteFile(broken, []byte("%PDF-1.4 truncated"), 0644))
	_, err = Extract(broken, Options{Mode: types.SourceText})
	assert.True(t, errors.As(err, &extractionErr))
}

func TestWriteDebug(t *testing.T) {
	doc := &Document{
		Path:   "/in/invoice.pdf",
		Format: FormatPDF,
		Mode:   types.SourceTable,
		Pages:  1,
		Rows: []types.RawRow{
			{Cells: []string{"1", " Kabel ", "2 m"}, Page: 1, Index: 0},
			{Cells: []string{"", ""}, Page: 1, Index: 1},
		},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteDebug(&buf, doc))
	assert.Equal(t, "# invoice.pdf (pdf, table mode, 1 pages, 2 rows)\np1 r0    | 1 | Kabel | 2 m\n", buf.String())
}
