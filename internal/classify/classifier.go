// =============================================================================
// Invoice Line Extractor - Line Classifier
// =============================================================================
//
// This module decides the role of every raw row/line before it reaches the
// item accumulator. The checks run in a fixed priority order:
//
//   1. NoiseFooter            - totals and VAT summary rows ("Totalt", "MVA-beløp")
//   2. ItemStart              - leading sequence number, optional article number
//   3. ContinuationAnnotation - "Rabatt:", "Standard-ID:", ...
//   4. Unclassified           - everything else
//
// The footer check runs first because footer rows can start with digits that
// would otherwise be read as a new item.
//
// TEXT MODE:
//   "1 1355221 Solar panel mount 10 stk"
//    ^ ^       ^
//    | |       remainder (initial description)
//    | article number (5+ digits, optional)
//    sequence number (bare integer)
//
//   A leading number that is really a quantity ("10 stk") or an amount
//   ("1 250,00 NOK") is not a sequence number.
//
// TABLE MODE:
//   The sequence number is read from the Nr column. The column layout also
//   yields structured quantity, unit and net amount values. A quantity cell
//   may carry its unit ("10 stk").
//
// =============================================================================

package classify

import (
	"regexp"
	"strings"

	"github.com/ginjaninja78/invoicelines/internal/numeric"
	"github.com/ginjaninja78/invoicelines/internal/types"
)

// =============================================================================
// RULES
// =============================================================================

// LastColumn addresses the right-most cell of a row.
const LastColumn = -1

// NoColumn marks a field the layout does not have.
const NoColumn = -100

// TableColumns maps item fields to 0-based column positions in table mode.
// Negative values count from the end of the row; NoColumn disables a field.
type TableColumns struct {
	Nr          int
	Article     int
	Description int
	Quantity    int
	Unit        int
	NetAmount   int
}

// DefaultTableColumns is the supplier's invoice grid:
//
//	| Nr | Artikkelnr | Beskrivelse | Antall | Enhet | A-pris | MVA-sats | Nettobeløp |
func DefaultTableColumns() TableColumns {
	return TableColumns{
		Nr:          0,
		Article:     1,
		Description: 2,
		Quantity:    3,
		Unit:        4,
		NetAmount:   LastColumn,
	}
}

// Rules holds the locale-specific label sets.
type Rules struct {
	// FooterMarkers are substrings that mark a total or VAT summary row.
	FooterMarkers []string

	// AnnotationLabels are the continuation labels per kind. A line is an
	// annotation when it starts with a label followed by ':'.
	AnnotationLabels map[types.AnnotationKind][]string

	// Columns is the table mode layout.
	Columns TableColumns
}

// DefaultRules returns the rules for the supplier's Norwegian invoices.
func DefaultRules() Rules {
	return Rules{
		FooterMarkers: []string{"Totalt", "Å betale", "MVA-grunnlag", "MVA-beløp", "MVA-kode"},
		AnnotationLabels: map[types.AnnotationKind][]string{
			types.AnnotationDiscount:     {"Rabatt"},
			types.AnnotationStandardID:   {"Standard-ID", "STD-ID"},
			types.AnnotationOrderLine:    {"Ordrelinjenr", "Ordrelinje"},
			types.AnnotationBaseQuantity: {"Basisantall", "Grunnantall"},
		},
		Columns: DefaultTableColumns(),
	}
}

// annotationOrder fixes the order in which label kinds are tried.
var annotationOrder = []types.AnnotationKind{
	types.AnnotationDiscount,
	types.AnnotationStandardID,
	types.AnnotationOrderLine,
	types.AnnotationBaseQuantity,
}

// =============================================================================
// CLASSIFIER
// =============================================================================

var (
	// textItemStart splits a text line into sequence number, article number and remainder.
	textItemStart = regexp.MustCompile(`^\s*(\d{1,4})(?:\s+(\d{5,}))?(?:\s+(.*?))?\s*$`)

	// notSequence is a leading number that is a percentage or a multiplier
	// ("20 % rabatt", "2 x 3 m", "4* kabel"), never an item number.
	notSequence = regexp.MustCompile(`^\s*\d+(?:[.,]\d+)?\s*(?:%|[xX×*](?:\s|\d|$))`)

	sequenceCell = regexp.MustCompile(`^\d+$`)
	articleCell  = regexp.MustCompile(`^\d{5,}$`)
)

type annotationMatcher struct {
	kind types.AnnotationKind
	re   *regexp.Regexp
}

// Classifier assigns a LineRole to each raw row.
// It holds no per-document state and is safe for concurrent use.
type Classifier struct {
	rules   Rules
	parser  *numeric.Parser
	footers []string
	labels  []annotationMatcher
}

// New creates a Classifier. The parser is used for lookahead matching.
func New(rules Rules, parser *numeric.Parser) *Classifier {
	c := &Classifier{
		rules:  rules,
		parser: parser,
	}

	for _, marker := range rules.FooterMarkers {
		if marker = strings.TrimSpace(marker); marker != "" {
			c.footers = append(c.footers, strings.ToLower(marker))
		}
	}

	for _, kind := range annotationOrder {
		for _, label := range rules.AnnotationLabels[kind] {
			label = strings.TrimSpace(label)
			if label == "" {
				continue
			}
			c.labels = append(c.labels, annotationMatcher{
				kind: kind,
				re:   regexp.MustCompile(`(?i)^\s*` + regexp.QuoteMeta(label) + `\s*:`),
			})
		}
	}

	return c
}

// Classify returns the role of one raw row.
func (c *Classifier) Classify(row types.RawRow) types.LineRole {
	text := row.Text()
	role := types.LineRole{Kind: types.RoleUnclassified, Text: text, Source: row.Source}

	if c.isFooter(text) {
		return types.LineRole{Kind: types.RoleNoiseFooter, Source: row.Source}
	}

	if row.Source == types.SourceTable {
		if start, ok := c.tableItemStart(row); ok {
			return start
		}
	} else if start, ok := c.textItemStart(text); ok {
		return start
	}

	if kind, ok := c.annotation(text); ok {
		role.Kind = types.RoleAnnotation
		role.Annotation = kind
	}
	return role
}

// isFooter reports whether text contains a footer marker.
func (c *Classifier) isFooter(text string) bool {
	lower := strings.ToLower(text)
	for _, marker := range c.footers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

// annotation matches the continuation labels.
func (c *Classifier) annotation(text string) (types.AnnotationKind, bool) {
	for _, m := range c.labels {
		if m.re.MatchString(text) {
			return m.kind, true
		}
	}
	return "", false
}

// textItemStart recognizes "<nr> [<article>] <remainder>" lines.
func (c *Classifier) textItemStart(text string) (types.LineRole, bool) {
	if c.parser.StartsWithQuantity(text) || c.parser.StartsWithAmount(text) || notSequence.MatchString(text) {
		return types.LineRole{}, false
	}

	m := textItemStart.FindStringSubmatch(text)
	if m == nil || strings.HasPrefix(m[1], "0") {
		return types.LineRole{}, false
	}
	// A lone number carries no item.
	if m[2] == "" && m[3] == "" {
		return types.LineRole{}, false
	}

	return types.LineRole{
		Kind:           types.RoleItemStart,
		SequenceNumber: m[1],
		ArticleNumber:  m[2],
		Text:           m[3],
		Source:         types.SourceText,
	}, true
}

// tableItemStart recognizes a row whose Nr cell is a bare integer and reads
// the structured columns.
func (c *Classifier) tableItemStart(row types.RawRow) (types.LineRole, bool) {
	nr := cell(row, c.rules.Columns.Nr)
	if !sequenceCell.MatchString(nr) {
		return types.LineRole{}, false
	}
	cols := c.columnsFor(row)

	role := types.LineRole{
		Kind:           types.RoleItemStart,
		SequenceNumber: nr,
		Source:         types.SourceTable,
	}

	if article := cell(row, cols.Article); articleCell.MatchString(article) {
		role.ArticleNumber = article
	}

	role.Text = cell(row, cols.Description)
	if role.Text == "" {
		role.Text = remainder(row, cols)
	}

	role.Fields.Unit = cell(row, cols.Unit)
	if q, ok := c.parser.QuantityCell(cell(row, cols.Quantity)); ok {
		role.Fields.Quantity.Decimal, role.Fields.Quantity.Valid = q.Value, true
		if role.Fields.Unit == "" {
			role.Fields.Unit = q.Unit
		}
	}
	if a, ok := numeric.ParseDecimal(cell(row, cols.NetAmount)); ok {
		role.Fields.NetAmount.Decimal, role.Fields.NetAmount.Valid = a, true
	}

	return role, true
}

// columnsFor returns the layout for one row. A row that lost its blank
// article cell has every later cell one position to the left: the article
// column holds text and the quantity sits one column early. Such a row is
// read with the columns after the article shifted back.
func (c *Classifier) columnsFor(row types.RawRow) TableColumns {
	cols := c.rules.Columns
	if cols.Article < 0 || cols.Quantity <= cols.Article {
		return cols
	}

	article := cell(row, cols.Article)
	if article == "" || articleCell.MatchString(article) {
		return cols
	}
	if _, ok := c.parser.QuantityCell(cell(row, cols.Quantity)); ok {
		return cols
	}
	if _, ok := c.parser.QuantityCell(cell(row, cols.Quantity-1)); !ok {
		return cols
	}

	shift := func(index int) int {
		if index > cols.Article {
			return index - 1
		}
		return index
	}
	return TableColumns{
		Nr:          cols.Nr,
		Article:     NoColumn,
		Description: shift(cols.Description),
		Quantity:    shift(cols.Quantity),
		Unit:        shift(cols.Unit),
		NetAmount:   shift(cols.NetAmount),
	}
}

// cell reads a column, honoring LastColumn and NoColumn.
func cell(row types.RawRow, index int) string {
	if index == NoColumn {
		return ""
	}
	return row.Cell(index)
}

// remainder joins the cells after the Nr and article columns. It is used when
// the layout has no description column or the description cell is empty.
func remainder(row types.RawRow, cols TableColumns) string {
	skip := map[int]bool{resolve(row, cols.Nr): true}
	if cols.Article != NoColumn && articleCell.MatchString(row.Cell(cols.Article)) {
		skip[resolve(row, cols.Article)] = true
	}
	var parts []string
	for i, value := range row.Cells {
		value = strings.TrimSpace(value)
		if skip[i] || value == "" {
			continue
		}
		parts = append(parts, value)
	}
	return strings.Join(parts, " ")
}

// resolve turns a possibly negative column index into a cell position.
func resolve(row types.RawRow, index int) int {
	if index < 0 {
		return len(row.Cells) + index
	}
	return index
}
