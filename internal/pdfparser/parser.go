// =============================================================================
// Invoice Line Extractor - PDF Parser
// =============================================================================
//
// This module rebuilds rows and lines from the positioned glyphs of a PDF.
// A PDF has no notion of a table or even of a line: every content stream
// operation places a string at (X, Y). The rebuilding works per page:
//
//   1. Collect the glyphs of the page (pdf.Text: X, Y, W, FontSize, S)
//   2. Group glyphs into lines by baseline (Y within RowTolerance)
//   3. Sort lines top to bottom (PDF Y grows upwards) and glyphs left to right
//   4. Join glyphs: small gap = same word, medium gap = space,
//      wide gap = new cell (table mode only)
//   5. NFC-normalize the text (decomposed "ø"/"å" would break the labels)
//   6. Table mode: snap the cells of short rows to the columns of the
//      page's widest row (normally the header), leaving blank columns empty
//
// TABLE MODE:  "1 | 1355221 | Solar panel mount | 10 | stk | 1 250,00"
//              "3 |         | Rail              | 4  | stk | 400,00"
// TEXT MODE:   "1 1355221 Solar panel mount 10 stk 1 250,00"
//
// Pages are concatenated in page order. Image-only pages yield no rows.
//
// The underlying library panics on some malformed files; Parse converts such
// panics into errors.
//
// =============================================================================

package pdfparser

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
	"golang.org/x/text/unicode/norm"

	"github.com/ginjaninja78/invoicelines/internal/types"
)

// =============================================================================
// OPTIONS
// =============================================================================

// Options controls line and cell reconstruction. Gaps are expressed as a
// multiple of the glyph font size so the same values work at any scale.
type Options struct {
	// RowTolerance is the maximum baseline difference (points) of glyphs on
	// the same line.
	RowTolerance float64

	// WordGap is the gap (x font size) above which a space is inserted.
	WordGap float64

	// CellGap is the gap (x font size) above which a new cell starts.
	CellGap float64
}

// DefaultOptions returns values that work for the supplier's invoices.
func DefaultOptions() Options {
	return Options{
		RowTolerance: 2.0,
		WordGap:      0.15,
		CellGap:      1.2,
	}
}

// Document is the reconstructed content of a PDF.
type Document struct {
	// Pages is the page count of the file.
	Pages int

	// Rows are the reconstructed rows of all pages, in reading order.
	Rows []types.RawRow
}

// =============================================================================
// PARSING FUNCTIONS
// =============================================================================

// Parse reads the PDF at path in the given mode.
func Parse(path string, mode types.SourceKind, opts Options) (*Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}

	return ParseReader(f, info.Size(), mode, opts)
}

// ParseReader parses a PDF of the given size.
func ParseReader(r io.ReaderAt, size int64, mode types.SourceKind, opts Options) (doc *Document, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			doc, err = nil, fmt.Errorf("malformed PDF: %v", rec)
		}
	}()

	reader, err := pdf.NewReader(r, size)
	if err != nil {
		return nil, fmt.Errorf("failed to read PDF: %w", err)
	}

	doc = &Document{Pages: reader.NumPage()}
	for i := 1; i <= doc.Pages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		for _, row := range RowsFromTexts(page.Content().Text, i, mode, opts) {
			row.Index = len(doc.Rows)
			doc.Rows = append(doc.Rows, row)
		}
	}

	return doc, nil
}

// =============================================================================
// LINE RECONSTRUCTION
// =============================================================================

// line is a group of glyphs sharing a baseline.
type line struct {
	yMin, yMax float64
	texts      []pdf.Text
}

// RowsFromTexts rebuilds the rows of one page from its glyphs.
func RowsFromTexts(texts []pdf.Text, page int, mode types.SourceKind, opts Options) []types.RawRow {
	if opts.RowTolerance <= 0 {
		opts = DefaultOptions()
	}

	lines := groupLines(texts, opts.RowTolerance)

	spans := make([][]span, len(lines))
	for i, l := range lines {
		spans[i] = joinGlyphs(l.texts, opts)
	}

	var columns []span
	if mode == types.SourceTable {
		columns = widest(spans)
	}

	rows := make([]types.RawRow, 0, len(lines))
	for _, cellSpans := range spans {
		var cells []string
		if mode == types.SourceText {
			cells = []string{strings.Join(spanTexts(cellSpans), " ")}
		} else {
			cells = alignColumns(cellSpans, columns)
		}
		row := types.RawRow{Cells: cells, Page: page, Source: mode}
		if row.IsEmpty() {
			continue
		}
		rows = append(rows, row)
	}
	return rows
}

// groupLines buckets glyphs by baseline and sorts the buckets top to bottom.
func groupLines(texts []pdf.Text, tolerance float64) []line {
	var lines []line
	for _, t := range texts {
		if strings.TrimSpace(t.S) == "" && t.S != " " {
			continue
		}
		placed := false
		for i := range lines {
			if t.Y >= lines[i].yMin-tolerance && t.Y <= lines[i].yMax+tolerance {
				lines[i].texts = append(lines[i].texts, t)
				if t.Y < lines[i].yMin {
					lines[i].yMin = t.Y
				}
				if t.Y > lines[i].yMax {
					lines[i].yMax = t.Y
				}
				placed = true
				break
			}
		}
		if !placed {
			lines = append(lines, line{yMin: t.Y, yMax: t.Y, texts: []pdf.Text{t}})
		}
	}

	sort.SliceStable(lines, func(i, j int) bool {
		return lines[i].yMax > lines[j].yMax
	})
	for _, l := range lines {
		sort.SliceStable(l.texts, func(i, j int) bool {
			return l.texts[i].X < l.texts[j].X
		})
	}
	return lines
}

// span is a cell of a line with its horizontal extent.
type span struct {
	text   string
	x0, x1 float64
}

func (s span) center() float64 {
	return (s.x0 + s.x1) / 2
}

// joinGlyphs merges the glyphs of one line into cells.
func joinGlyphs(texts []pdf.Text, opts Options) []span {
	var (
		cells   []span
		current strings.Builder
		start   float64
		end     float64
	)

	flush := func() {
		if cell := clean(current.String()); cell != "" {
			cells = append(cells, span{text: cell, x0: start, x1: end})
		}
		current.Reset()
	}

	for i, t := range texts {
		size := t.FontSize
		if size <= 0 {
			size = 10
		}
		if i > 0 {
			gap := t.X - end
			switch {
			case gap > opts.CellGap*size:
				flush()
			case gap > opts.WordGap*size:
				current.WriteByte(' ')
			}
		}
		if current.Len() == 0 {
			start = t.X
		}
		current.WriteString(t.S)
		end = t.X + width(t, size)
	}
	flush()

	return cells
}

// minColumns is the column count below which a page is not treated as a grid.
const minColumns = 3

// widest returns the cells of the line with the most cells. The first such
// line wins, which is the header on a typical invoice page.
func widest(lines [][]span) []span {
	var columns []span
	for _, cells := range lines {
		if len(cells) > len(columns) {
			columns = cells
		}
	}
	if len(columns) < minColumns {
		return nil
	}
	return columns
}

// alignColumns places the cells of a short row into the page columns, so a
// blank column stays an empty cell instead of shifting the cells after it.
// Each cell goes to the column whose boundaries contain its center. Rows that
// cannot be placed left to right keep their plain cell sequence.
func alignColumns(cells, columns []span) []string {
	if len(cells) < 2 || len(cells) >= len(columns) {
		return spanTexts(cells)
	}

	aligned := make([]string, len(columns))
	prev := -1
	for _, c := range cells {
		col := 0
		for col < len(columns)-1 && c.center() > (columns[col].x1+columns[col+1].x0)/2 {
			col++
		}
		if col <= prev {
			return spanTexts(cells)
		}
		aligned[col] = c.text
		prev = col
	}
	return aligned
}

func spanTexts(cells []span) []string {
	texts := make([]string, len(cells))
	for i, c := range cells {
		texts[i] = c.text
	}
	return texts
}

// width returns the advance of a glyph, estimating it when the font gave none.
func width(t pdf.Text, size float64) float64 {
	if t.W > 0 {
		return t.W
	}
	return 0.5 * size * float64(utf8.RuneCountInString(t.S))
}

// clean NFC-normalizes a cell and collapses runs of whitespace.
func clean(s string) string {
	return strings.Join(strings.Fields(norm.NFC.String(s)), " ")
}
