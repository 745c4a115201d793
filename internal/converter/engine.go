// =============================================================================
// Invoice Line Extractor - Extraction Engine
// =============================================================================
//
// The engine turns a supplier profile into the configured pipeline stages and
// runs them over one document's rows:
//
//   rows -> classify -> accumulate -> derive prices -> result rows
//
// An Engine holds no per-document state. It can be shared by goroutines that
// process different documents.
//
// =============================================================================

package converter

import (
	"fmt"

	"github.com/ginjaninja78/invoicelines/internal/accumulate"
	"github.com/ginjaninja78/invoicelines/internal/classify"
	"github.com/ginjaninja78/invoicelines/internal/config"
	"github.com/ginjaninja78/invoicelines/internal/csvparser"
	"github.com/ginjaninja78/invoicelines/internal/extract"
	"github.com/ginjaninja78/invoicelines/internal/numeric"
	"github.com/ginjaninja78/invoicelines/internal/pdfparser"
	"github.com/ginjaninja78/invoicelines/internal/pricing"
	"github.com/ginjaninja78/invoicelines/internal/types"
)

// Engine is the configured extraction pipeline for one supplier profile.
type Engine struct {
	profile    *config.SupplierProfile
	mode       types.SourceKind
	parser     *numeric.Parser
	classifier *classify.Classifier
	accumulate accumulate.Options
	pricing    pricing.Options
	extract    extract.Options
}

// Outcome is the result of running the engine over one row sequence.
type Outcome struct {
	// Rows are the valid line items in document order.
	Rows []types.ResultRow

	// Rejected are the closed items that failed the validity gate.
	Rejected []pricing.Rejection

	// Fold holds the accumulator counters.
	Fold accumulate.Stats
}

// NewEngine builds the pipeline for a profile.
//
// PARAMETERS:
//   - profile: The supplier profile. It is validated here.
//   - mode: Overrides the profile's extraction mode when not empty.
//
// RETURNS:
//   - The engine, or an error if the profile or the mode is invalid.
func NewEngine(profile *config.SupplierProfile, mode string) (*Engine, error) {
	if err := config.ValidateProfile(profile); err != nil {
		return nil, err
	}

	kind := profile.Mode()
	if mode != "" {
		var err error
		if kind, err = extract.ParseMode(mode); err != nil {
			return nil, err
		}
	}

	numericOpts, err := numericOptions(profile)
	if err != nil {
		return nil, err
	}
	parser := numeric.NewParser(numericOpts)

	return &Engine{
		profile:    profile,
		mode:       kind,
		parser:     parser,
		classifier: classify.New(classifyRules(profile), parser),
		accumulate: accumulate.Options{MinFragment: profile.MinDescriptionFragment},
		pricing:    pricing.Options{MaxDescription: descriptionLimit(profile, kind)},
		extract: extract.Options{
			Mode:          kind,
			Sheet:         profile.Sheet,
			RawCellValues: profile.SheetRawValues,
			CSV: csvparser.Settings{
				Delimiter: profile.CSV.Delimiter,
				Encoding:  profile.CSV.Encoding,
				SkipRows:  profile.CSV.SkipRows,
			},
			PDF: pdfOptions(profile.PDF),
		},
	}, nil
}

// Profile returns the profile the engine was built from.
func (e *Engine) Profile() *config.SupplierProfile {
	return e.profile
}

// Mode returns the extraction mode in effect.
func (e *Engine) Mode() types.SourceKind {
	return e.mode
}

// Extract reads a document with the engine's extraction settings.
func (e *Engine) Extract(path string) (*extract.Document, error) {
	return extract.Extract(path, e.extract)
}

// ProcessRows runs the classify, accumulate and derive stages over rows.
// The same rows always produce the same outcome.
func (e *Engine) ProcessRows(rows []types.RawRow) Outcome {
	items, stats := accumulate.Fold(rows, e.classifier, e.parser, e.accumulate)
	results, rejected := pricing.Derive(items, e.pricing)
	return Outcome{Rows: results, Rejected: rejected, Fold: stats}
}

// =============================================================================
// PROFILE MAPPING
// =============================================================================

// numericOptions maps the token rules of a profile onto parser options.
func numericOptions(profile *config.SupplierProfile) (numeric.Options, error) {
	opts := numeric.DefaultOptions()

	if len(profile.UnitTokens) > 0 {
		opts.Units = profile.UnitTokens
	}
	if len(profile.CurrencyMarkers) > 0 {
		opts.Currencies = profile.CurrencyMarkers
	}

	lower, upper := profile.QuantityBounds()
	if lower.Valid {
		opts.QuantityMin = lower.Decimal
	}
	if upper.Valid {
		opts.QuantityMax = upper.Decimal
	}

	var err error
	if opts.QuantityPolicy, err = numeric.ParsePolicy(profile.QuantityMatch); err != nil {
		return opts, fmt.Errorf("quantity_match: %w", err)
	}
	if opts.AmountPolicy, err = numeric.ParsePolicy(profile.AmountMatch); err != nil {
		return opts, fmt.Errorf("amount_match: %w", err)
	}

	return opts, nil
}

// classifyRules maps the label sets and column layout of a profile onto
// classifier rules. Label kinds the profile does not name keep their defaults.
func classifyRules(profile *config.SupplierProfile) classify.Rules {
	rules := classify.DefaultRules()

	if len(profile.FooterMarkers) > 0 {
		rules.FooterMarkers = profile.FooterMarkers
	}

	if len(profile.AnnotationLabels) > 0 {
		labels := make(map[types.AnnotationKind][]string, len(rules.AnnotationLabels))
		for kind, values := range rules.AnnotationLabels {
			labels[kind] = values
		}
		for kind, values := range profile.AnnotationLabels {
			labels[types.AnnotationKind(kind)] = values
		}
		rules.AnnotationLabels = labels
	}

	rules.Columns = tableColumns(profile.TableColumns)
	return rules
}

// tableColumns applies configured positions over the default layout.
func tableColumns(configured config.TableColumns) classify.TableColumns {
	cols := classify.DefaultTableColumns()

	positions := []struct {
		name   string
		value  *int
		target *int
	}{
		{"nr", configured.Nr, &cols.Nr},
		{"article", configured.Article, &cols.Article},
		{"description", configured.Description, &cols.Description},
		{"quantity", configured.Quantity, &cols.Quantity},
		{"unit", configured.Unit, &cols.Unit},
		{"net_amount", configured.NetAmount, &cols.NetAmount},
	}

	omitted := make(map[string]bool, len(configured.Omit))
	for _, name := range configured.Omit {
		omitted[name] = true
	}

	for _, p := range positions {
		switch {
		case omitted[p.name]:
			*p.target = classify.NoColumn
		case p.value != nil:
			*p.target = *p.value
		}
	}

	return cols
}

// descriptionLimit returns the truncation length for a mode.
func descriptionLimit(profile *config.SupplierProfile, mode types.SourceKind) int {
	if profile.DescriptionMaxLength > 0 {
		return profile.DescriptionMaxLength
	}
	if mode == types.SourceText {
		return pricing.DefaultTextMaxDescription
	}
	return pricing.DefaultTableMaxDescription
}

// pdfOptions fills unset line reconstruction settings with the defaults.
func pdfOptions(settings config.PDFSettings) pdfparser.Options {
	opts := pdfparser.DefaultOptions()
	if settings.RowTolerance > 0 {
		opts.RowTolerance = settings.RowTolerance
	}
	if settings.WordGap > 0 {
		opts.WordGap = settings.WordGap
	}
	if settings.CellGap > 0 {
		opts.CellGap = settings.CellGap
	}
	return opts
}
