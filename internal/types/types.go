// =============================================================================
// Invoice Line Extractor - Shared Types
// =============================================================================
//
// This package contains the types shared by the extraction adapters, the line
// classifier, the item accumulator and the price deriver. Keeping them here
// avoids import cycles between those packages. Types defined here are used by:
//   - extract, xlsxparser, csvparser, pdfparser (RawRow)
//   - classify (LineRole)
//   - accumulate (CandidateItem)
//   - pricing, csvwriter, report (ResultRow)
//
// =============================================================================

package types

import (
	"strings"

	"github.com/shopspring/decimal"
)

// =============================================================================
// RAW ROWS
// =============================================================================

// SourceKind tells whether a row came from a structured cell grid or from a
// reconstructed line of plain text.
type SourceKind int

const (
	// SourceTable rows carry one value per table cell.
	SourceTable SourceKind = iota

	// SourceText rows carry a single cell holding the whole text line.
	SourceText
)

// String returns the configuration name of the source kind.
func (k SourceKind) String() string {
	switch k {
	case SourceTable:
		return "table"
	case SourceText:
		return "text"
	default:
		return "unknown"
	}
}

// RawRow is one row (table mode) or one line (text mode) as produced by the
// document extractor. It is consumed immediately by the line classifier.
type RawRow struct {
	// Cells holds the cell values in column order. Text rows have exactly one
	// cell. Empty cells are empty strings.
	Cells []string

	// Page is the 1-based page number the row was read from.
	// Spreadsheets and CSV files report every row on page 1.
	Page int

	// Index is the 0-based position of the row in the whole document.
	Index int

	// Source is the extraction strategy that produced the row.
	Source SourceKind
}

// Text joins the non-empty cells of the row with a single space.
func (r RawRow) Text() string {
	parts := make([]string, 0, len(r.Cells))
	for _, cell := range r.Cells {
		cell = strings.TrimSpace(cell)
		if cell != "" {
			parts = append(parts, cell)
		}
	}
	return strings.Join(parts, " ")
}

// Cell returns the trimmed value of the cell at index i.
// A negative index counts from the end (-1 is the last cell).
// Out of range indexes yield an empty string.
func (r RawRow) Cell(i int) string {
	if i < 0 {
		i = len(r.Cells) + i
	}
	if i < 0 || i >= len(r.Cells) {
		return ""
	}
	return strings.TrimSpace(r.Cells[i])
}

// IsEmpty reports whether every cell of the row is blank.
func (r RawRow) IsEmpty() bool {
	for _, cell := range r.Cells {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

// =============================================================================
// LINE ROLES
// =============================================================================

// RoleKind is the tag of a LineRole.
type RoleKind int

const (
	// RoleUnclassified is free text that may still carry quantity or amount
	// tokens, or plain description continuation.
	RoleUnclassified RoleKind = iota

	// RoleItemStart introduces a new invoice line item.
	RoleItemStart

	// RoleAnnotation is a labelled note belonging to the open item.
	RoleAnnotation

	// RoleNoiseFooter is a total or VAT summary row that never carries item data.
	RoleNoiseFooter
)

// String returns a short name for logs.
func (k RoleKind) String() string {
	switch k {
	case RoleItemStart:
		return "item-start"
	case RoleAnnotation:
		return "annotation"
	case RoleNoiseFooter:
		return "noise-footer"
	default:
		return "unclassified"
	}
}

// AnnotationKind identifies which continuation label matched.
// It is carried for diagnostics only.
type AnnotationKind string

const (
	AnnotationDiscount     AnnotationKind = "discount"
	AnnotationStandardID   AnnotationKind = "standard_id"
	AnnotationOrderLine    AnnotationKind = "order_line"
	AnnotationBaseQuantity AnnotationKind = "base_quantity"
)

// StructuredFields are values read directly from dedicated table columns.
// They are only populated for table rows.
type StructuredFields struct {
	Quantity  decimal.NullDecimal
	Unit      string
	NetAmount decimal.NullDecimal
}

// LineRole is the classification result for one RawRow.
//
// Which fields are meaningful depends on Kind:
//   - RoleItemStart:   SequenceNumber, ArticleNumber, Text (remainder), Fields
//   - RoleAnnotation:  Annotation, Text (full line)
//   - RoleUnclassified: Text (full line)
//   - RoleNoiseFooter: nothing
type LineRole struct {
	Kind           RoleKind
	SequenceNumber string
	ArticleNumber  string
	Text           string
	Annotation     AnnotationKind
	Fields         StructuredFields
	Source         SourceKind
}

// =============================================================================
// CANDIDATE ITEMS
// =============================================================================

// UnknownUnit is the unit recorded until a recognized unit token is matched.
const UnknownUnit = "?"

// CandidateItem is the in-progress record for one invoice line.
// It is owned by the item accumulator while open and handed to the price
// deriver when closed.
type CandidateItem struct {
	// SequenceNumber is the invoice's own line index. Set at creation.
	SequenceNumber string

	// ArticleNumber is the supplier article number, if the start row had one.
	ArticleNumber string

	// Description grows by appending continuation text.
	Description string

	// Quantity and Unit are set together, at most once.
	Quantity decimal.NullDecimal
	Unit     string

	// NetAmount is set at most once.
	NetAmount decimal.NullDecimal
}

// NewCandidateItem opens a new item for the given sequence and article number.
func NewCandidateItem(sequenceNumber, articleNumber string) *CandidateItem {
	return &CandidateItem{
		SequenceNumber: sequenceNumber,
		ArticleNumber:  articleNumber,
		Unit:           UnknownUnit,
	}
}

// AppendDescription appends text to the description, separated by a space.
func (c *CandidateItem) AppendDescription(text string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}
	if c.Description == "" {
		c.Description = text
		return
	}
	c.Description += " " + text
}

// SetQuantity records the quantity and unit unless a quantity is already set.
// It reports whether the value was stored. An empty unit keeps the current one.
func (c *CandidateItem) SetQuantity(value decimal.Decimal, unit string) bool {
	if c.Quantity.Valid {
		return false
	}
	c.Quantity = decimal.NullDecimal{Decimal: value, Valid: true}
	if unit = strings.TrimSpace(unit); unit != "" {
		c.Unit = unit
	}
	return true
}

// SetNetAmount records the net amount unless one is already set.
func (c *CandidateItem) SetNetAmount(value decimal.Decimal) bool {
	if c.NetAmount.Valid {
		return false
	}
	c.NetAmount = decimal.NullDecimal{Decimal: value, Valid: true}
	return true
}

// =============================================================================
// RESULT ROWS
// =============================================================================

// ResultRow is one normalized output line. It is created by the price deriver
// and never modified afterwards.
type ResultRow struct {
	SequenceNumber string
	ArticleNumber  string
	Description    string
	Quantity       decimal.Decimal
	Unit           string
	NetAmount      decimal.Decimal
	UnitPrice      decimal.Decimal
}
