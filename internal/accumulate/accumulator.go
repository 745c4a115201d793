// =============================================================================
// Invoice Line Extractor - Item Accumulator
// =============================================================================
//
// This module folds the classified rows of one document into candidate items.
// It is a two-state machine:
//
//   | State      | Input          | Action                                  | Next       |
//   |------------|----------------|-----------------------------------------|------------|
//   | any        | ItemStart      | close open item, open a new one         | ItemOpen   |
//   | ItemOpen   | Annotation     | append text to the description          | ItemOpen   |
//   | ItemOpen   | Unclassified   | probe missing quantity / net amount     | ItemOpen   |
//   | ItemOpen   | NoiseFooter    | discard                                 | ItemOpen   |
//   | NoOpenItem | anything else  | discard                                 | NoOpenItem |
//
// At end of input the open item is closed (Finish).
//
// WRITE-ONCE FIELDS:
//   Quantity/unit and net amount are set at most once. Values from the start
//   row (structured table cells first, then the remainder text) win over any
//   number found on a later line.
//
// The accumulator holds the state of exactly one document. It is not safe for
// concurrent use; create one per document.
//
// =============================================================================

package accumulate

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/ginjaninja78/invoicelines/internal/classify"
	"github.com/ginjaninja78/invoicelines/internal/numeric"
	"github.com/ginjaninja78/invoicelines/internal/types"
)

// =============================================================================
// STATE
// =============================================================================

// State is the accumulator state.
type State int

const (
	// NoOpenItem is the state before the first item start.
	NoOpenItem State = iota

	// ItemOpen means a candidate item is receiving continuation data.
	ItemOpen
)

// String returns a short name for logs.
func (s State) String() string {
	if s == ItemOpen {
		return "item-open"
	}
	return "no-open-item"
}

// DefaultMinFragment is the minimum rune count for an unclassified line to be
// kept as description text.
const DefaultMinFragment = 3

// Options configures an Accumulator.
type Options struct {
	// MinFragment is the minimum rune count of an unclassified fragment that is
	// appended to the description. Zero means DefaultMinFragment.
	MinFragment int
}

// Stats counts the roles seen during a fold.
type Stats struct {
	Rows          int
	ItemStarts    int
	Annotations   int
	Unclassified  int
	NoiseFooters  int
	Discarded     int
	ItemsClosed   int
	FieldsProbed  int
	FragmentsKept int
}

// =============================================================================
// ACCUMULATOR
// =============================================================================

// Accumulator is the explicit fold state for one document.
type Accumulator struct {
	parser      *numeric.Parser
	minFragment int

	open  *types.CandidateItem
	items []types.CandidateItem
	stats Stats
}

// New creates an Accumulator in the NoOpenItem state.
func New(parser *numeric.Parser, opts Options) *Accumulator {
	if opts.MinFragment <= 0 {
		opts.MinFragment = DefaultMinFragment
	}
	return &Accumulator{
		parser:      parser,
		minFragment: opts.MinFragment,
	}
}

// State returns the current state.
func (a *Accumulator) State() State {
	if a.open != nil {
		return ItemOpen
	}
	return NoOpenItem
}

// Stats returns the counters collected so far.
func (a *Accumulator) Stats() Stats {
	return a.stats
}

// Step feeds one classified row into the state machine.
func (a *Accumulator) Step(role types.LineRole) {
	a.stats.Rows++

	switch role.Kind {
	case types.RoleItemStart:
		a.stats.ItemStarts++
		a.start(role)
		return
	case types.RoleAnnotation:
		a.stats.Annotations++
	case types.RoleNoiseFooter:
		a.stats.NoiseFooters++
	default:
		a.stats.Unclassified++
	}

	if a.open == nil {
		a.stats.Discarded++
		return
	}

	switch role.Kind {
	case types.RoleAnnotation:
		a.open.AppendDescription(role.Text)
	case types.RoleUnclassified:
		a.continuation(role)
	}
}

// Finish closes the open item, if any, and returns every closed item in
// input order. The accumulator is back in NoOpenItem afterwards.
func (a *Accumulator) Finish() []types.CandidateItem {
	a.close()
	items := a.items
	a.items = nil
	return items
}

// start closes the open item and opens a new one from the start row.
func (a *Accumulator) start(role types.LineRole) {
	a.close()

	item := types.NewCandidateItem(role.SequenceNumber, role.ArticleNumber)
	item.AppendDescription(role.Text)

	// Structured cells are authoritative; the remainder text only fills gaps.
	if role.Fields.Quantity.Valid {
		item.SetQuantity(role.Fields.Quantity.Decimal, role.Fields.Unit)
	}
	if role.Fields.NetAmount.Valid {
		item.SetNetAmount(role.Fields.NetAmount.Decimal)
	}
	a.open = item
	a.probe(role.Text)
}

// continuation handles an unclassified line while an item is open.
func (a *Accumulator) continuation(role types.LineRole) {
	if a.probe(role.Text) {
		return
	}
	if a.open.NetAmount.Valid && role.Source != types.SourceTable {
		return
	}
	if a.meaningful(role.Text) {
		a.open.AppendDescription(role.Text)
		a.stats.FragmentsKept++
	}
}

// probe fills the missing quantity and net amount of the open item from text.
// It reports whether any probe matched.
func (a *Accumulator) probe(text string) bool {
	matched := false

	if !a.open.Quantity.Valid {
		if q, ok := a.parser.Quantity(text); ok {
			a.open.SetQuantity(q.Value, q.Unit)
			a.stats.FieldsProbed++
			matched = true
		}
	}
	if !a.open.NetAmount.Valid {
		if v, ok := a.parser.Amount(text); ok {
			a.open.SetNetAmount(v)
			a.stats.FieldsProbed++
			matched = true
		}
	}
	return matched
}

// meaningful reports whether a fragment is long enough and carries a letter.
func (a *Accumulator) meaningful(text string) bool {
	text = strings.TrimSpace(text)
	if utf8.RuneCountInString(text) < a.minFragment {
		return false
	}
	return strings.IndexFunc(text, unicode.IsLetter) >= 0
}

func (a *Accumulator) close() {
	if a.open == nil {
		return
	}
	a.items = append(a.items, *a.open)
	a.open = nil
	a.stats.ItemsClosed++
}

// =============================================================================
// FOLD
// =============================================================================

// Fold classifies and accumulates a whole row sequence. Empty rows are
// skipped. It returns the closed items in input order and the fold counters.
func Fold(rows []types.RawRow, classifier *classify.Classifier, parser *numeric.Parser, opts Options) ([]types.CandidateItem, Stats) {
	acc := New(parser, opts)
	for _, row := range rows {
		if row.IsEmpty() {
			continue
		}
		acc.Step(classifier.Classify(row))
	}
	items := acc.Finish()
	return items, acc.Stats()
}
