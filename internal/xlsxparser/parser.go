// =============================================================================
// Invoice Line Extractor - XLSX Workbook Parser
// =============================================================================
//
// This module reads supplier invoices delivered as Excel workbooks and turns
// the first sheet into table rows for the line classifier.
//
// READING RULES:
//   - Only the first sheet is read (unless Options.Sheet names another one)
//   - Every cell is read as its displayed text
//   - Empty cells become empty strings
//   - No header row is assumed; header rows are simply unclassified
//   - Rows are padded to the width of the widest row so "last column"
//     addressing points at the same column on every row
//
// EXAMPLE SHEET:
//
//   | A  | B          | C                 | D      | E     | F      | G        | H          |
//   |----|------------|-------------------|--------|-------|--------|----------|------------|
//   | Nr | Artikkelnr | Beskrivelse       | Antall | Enhet | A-pris | MVA-sats | Nettobeløp |
//   | 1  | 1355221    | Solar panel mount | 10     | stk   | 125,00 | 25%      | 1 250,00   |
//   |    |            | Rabatt: 5%        |        |       |        |          |            |
//
// =============================================================================

package xlsxparser

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/ginjaninja78/invoicelines/internal/types"
)

// =============================================================================
// OPTIONS
// =============================================================================

// Options controls how a workbook is read.
type Options struct {
	// Sheet is the name of the sheet to read. Empty means the first sheet.
	Sheet string

	// RawValues reads the stored cell values instead of the displayed text.
	// Displayed text is the default because number formats carry the
	// thousands and decimal separators the numeric parser expects.
	RawValues bool
}

// Workbook is the content of one sheet.
type Workbook struct {
	// Path is the source file.
	Path string

	// Sheet is the name of the sheet that was read.
	Sheet string

	// Sheets lists every sheet name in workbook order.
	Sheets []string

	// Rows are the table rows of the sheet, padded to Width cells.
	Rows []types.RawRow

	// Width is the cell count of the widest row.
	Width int
}

// =============================================================================
// PARSING FUNCTIONS
// =============================================================================

// Parse reads a sheet of the workbook at path.
//
// PARAMETERS:
//   - path: The path to the .xlsx file.
//   - opts: The sheet to read and how cell values are read.
//
// RETURNS:
//   - The sheet content as table rows.
//   - An error if the file cannot be opened or the sheet cannot be read.
func Parse(path string, opts Options) (*Workbook, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	wb, err := read(f, opts)
	if err != nil {
		return nil, err
	}
	wb.Path = path
	return wb, nil
}

// read extracts the selected sheet of an open workbook.
func read(f *excelize.File, opts Options) (*Workbook, error) {
	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook has no sheets")
	}

	sheet := opts.Sheet
	if sheet == "" {
		sheet = f.GetSheetName(0)
	} else if idx, err := f.GetSheetIndex(sheet); err != nil || idx < 0 {
		return nil, fmt.Errorf("sheet %q not found (available: %v)", sheet, sheets)
	}

	var readOpts []excelize.Options
	if opts.RawValues {
		readOpts = append(readOpts, excelize.Options{RawCellValue: true})
	}

	cells, err := f.GetRows(sheet, readOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to read rows of sheet %q: %w", sheet, err)
	}

	wb := &Workbook{
		Sheet:  sheet,
		Sheets: sheets,
	}

	for _, row := range cells {
		if len(row) > wb.Width {
			wb.Width = len(row)
		}
	}

	// excelize drops trailing empty cells, so short rows are padded.
	wb.Rows = make([]types.RawRow, 0, len(cells))
	for i, row := range cells {
		padded := make([]string, wb.Width)
		copy(padded, row)
		wb.Rows = append(wb.Rows, types.RawRow{
			Cells:  padded,
			Page:   1,
			Index:  i,
			Source: types.SourceTable,
		})
	}

	return wb, nil
}

// IsEmpty reports whether the sheet has no non-blank cell.
func (w *Workbook) IsEmpty() bool {
	for _, row := range w.Rows {
		if !row.IsEmpty() {
			return false
		}
	}
	return true
}
