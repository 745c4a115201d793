// =============================================================================
// Invoice Line Extractor - Extraction Adapter
// =============================================================================
//
// This module turns a document into the ordered row sequence consumed by the
// line classifier. It hides the file format behind one entry point:
//
//   | Extension | Reader      | Table mode            | Text mode              |
//   |-----------|-------------|-----------------------|------------------------|
//   | .xlsx     | xlsxparser  | one row per sheet row | cells joined per row   |
//   | .csv      | csvparser   | one row per record    | cells joined per row   |
//   | .pdf      | pdfparser   | cells split at gaps   | one row per text line  |
//
// ERRORS:
//   - *ExtractionError: the document could not be read. Fatal for the document.
//   - ErrNoContent: the document was read but holds no text. Not a failure;
//     callers report it as a warning. The (empty) document is still returned.
//
// =============================================================================

package extract

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/ginjaninja78/invoicelines/internal/csvparser"
	"github.com/ginjaninja78/invoicelines/internal/pdfparser"
	"github.com/ginjaninja78/invoicelines/internal/types"
	"github.com/ginjaninja78/invoicelines/internal/xlsxparser"
)

// =============================================================================
// ERRORS
// =============================================================================

// ErrNoContent is returned when a document contains no tables or text.
var ErrNoContent = errors.New("no tables or text found in document")

// ErrUnsupportedFormat is the cause of an ExtractionError for unknown file types.
var ErrUnsupportedFormat = errors.New("unsupported document format")

// ExtractionError reports a document that could not be read.
type ExtractionError struct {
	Path  string
	Cause error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("failed to extract %s: %v", filepath.Base(e.Path), e.Cause)
}

func (e *ExtractionError) Unwrap() error {
	return e.Cause
}

// =============================================================================
// FORMATS AND MODES
// =============================================================================

// Format is the document file type.
type Format string

const (
	FormatXLSX Format = "xlsx"
	FormatCSV  Format = "csv"
	FormatPDF  Format = "pdf"
)

// SupportedExtensions lists the extensions Extract accepts, in discovery order.
var SupportedExtensions = []string{".xlsx", ".xlsm", ".csv", ".pdf"}

var formatByExtension = map[string]Format{
	".xlsx": FormatXLSX,
	".xlsm": FormatXLSX,
	".csv":  FormatCSV,
	".pdf":  FormatPDF,
}

// FormatOf maps a file name to its format.
func FormatOf(path string) (Format, bool) {
	format, ok := formatByExtension[strings.ToLower(filepath.Ext(path))]
	return format, ok
}

// ParseMode converts a configuration value ("table" or "text") into a source kind.
// An empty value yields table mode.
func ParseMode(value string) (types.SourceKind, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "table":
		return types.SourceTable, nil
	case "text":
		return types.SourceText, nil
	default:
		return 0, fmt.Errorf("unknown extraction mode %q (want \"table\" or \"text\")", value)
	}
}

// =============================================================================
// DOCUMENT
// =============================================================================

// Options configures extraction.
type Options struct {
	// Mode selects table or text rows.
	Mode types.SourceKind

	// Sheet is the workbook sheet to read; empty means the first sheet.
	Sheet string

	// RawCellValues reads stored workbook values instead of displayed text.
	RawCellValues bool

	// CSV holds the CSV reader settings.
	CSV csvparser.Settings

	// PDF holds the line reconstruction settings.
	PDF pdfparser.Options
}

// Document is the extracted row sequence of one file.
type Document struct {
	Path   string
	Format Format
	Mode   types.SourceKind
	Pages  int
	Rows   []types.RawRow
}

// NonEmptyRows counts the rows that carry text.
func (d *Document) NonEmptyRows() int {
	n := 0
	for _, row := range d.Rows {
		if !row.IsEmpty() {
			n++
		}
	}
	return n
}

// =============================================================================
// EXTRACTION
// =============================================================================

// Extract reads the document at path.
//
// RETURNS:
//   - The document and nil on success.
//   - The document and ErrNoContent when nothing was found.
//   - nil and an *ExtractionError when the file could not be read.
func Extract(path string, opts Options) (*Document, error) {
	format, ok := FormatOf(path)
	if !ok {
		return nil, &ExtractionError{Path: path, Cause: fmt.Errorf("%w: %q", ErrUnsupportedFormat, filepath.Ext(path))}
	}

	doc := &Document{Path: path, Format: format, Mode: opts.Mode, Pages: 1}

	switch format {
	case FormatXLSX:
		wb, err := xlsxparser.Parse(path, xlsxparser.Options{Sheet: opts.Sheet, RawValues: opts.RawCellValues})
		if err != nil {
			return nil, &ExtractionError{Path: path, Cause: err}
		}
		doc.Rows = wb.Rows

	case FormatCSV:
		data, err := csvparser.Parse(path, opts.CSV)
		if err != nil {
			return nil, &ExtractionError{Path: path, Cause: err}
		}
		doc.Rows = data.Rows

	case FormatPDF:
		pdfDoc, err := pdfparser.Parse(path, opts.Mode, opts.PDF)
		if err != nil {
			return nil, &ExtractionError{Path: path, Cause: err}
		}
		doc.Pages = pdfDoc.Pages
		doc.Rows = pdfDoc.Rows
	}

	if format != FormatPDF && opts.Mode == types.SourceText {
		doc.Rows = AsText(doc.Rows)
	}

	if doc.NonEmptyRows() == 0 {
		return doc, ErrNoContent
	}
	return doc, nil
}

// AsText converts table rows into text lines by joining their cells.
func AsText(rows []types.RawRow) []types.RawRow {
	lines := make([]types.RawRow, 0, len(rows))
	for _, row := range rows {
		lines = append(lines, types.RawRow{
			Cells:  []string{row.Text()},
			Page:   row.Page,
			Index:  row.Index,
			Source: types.SourceText,
		})
	}
	return lines
}

// =============================================================================
// DEBUG ARTIFACT
// =============================================================================

// WriteDebug writes the raw extracted rows in a readable form:
//
//	# invoice.pdf (pdf, text mode, 2 pages, 41 rows)
//	p1 r0    | Faktura 2024-117
//	p1 r1    | 1 | 1355221 | Solar panel mount | 10 | stk | 1 250,00
func WriteDebug(w io.Writer, doc *Document) error {
	if _, err := fmt.Fprintf(w, "# %s (%s, %s mode, %d pages, %d rows)\n",
		filepath.Base(doc.Path), doc.Format, doc.Mode, doc.Pages, len(doc.Rows)); err != nil {
		return err
	}
	for _, row := range doc.Rows {
		if row.IsEmpty() {
			continue
		}
		cells := make([]string, 0, len(row.Cells))
		for _, cell := range row.Cells {
			cells = append(cells, strings.TrimSpace(cell))
		}
		label := fmt.Sprintf("p%d r%d", row.Page, row.Index)
		if _, err := fmt.Fprintf(w, "%-8s | %s\n", label, strings.Join(cells, " | ")); err != nil {
			return err
		}
	}
	return nil
}
