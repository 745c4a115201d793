// =============================================================================
// Invoice Line Extractor - Numeric Token Parser
// =============================================================================
//
// This module extracts locale-formatted numbers from invoice text fragments:
//   - Quantities: a number followed by a unit token ("10 stk", "2,5 m")
//   - Amounts: a number followed by a currency marker ("1 250,00 NOK")
//   - Plain decimals: bare table cell values ("1 250,00", "1.234,56")
//
// NUMBER FORMATS:
//   | Input        | Value    | Rule                                         |
//   |--------------|----------|----------------------------------------------|
//   | "10"         | 10       | integer                                      |
//   | "2,5"        | 2.5      | single comma is the decimal separator        |
//   | "2.5"        | 2.5      | single dot is the decimal separator          |
//   | "1 234,56"   | 1234.56  | spaces (incl. NBSP) are thousands separators |
//   | "1.234,56"   | 1234.56  | with both separators the right-most is decimal |
//   | "1,234.56"   | 1234.56  | same rule                                    |
//   | "1.234.567"  | 1234567  | repeated separator is a thousands separator  |
//
// The parser never returns errors. A fragment that does not contain a
// well-formed, plausible number simply yields "no match".
//
// =============================================================================

package numeric

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

// =============================================================================
// MATCH POLICY
// =============================================================================

// MatchPolicy selects which match wins when a fragment holds several.
type MatchPolicy string

const (
	// MatchFirst keeps the left-most plausible match. Use it for layouts
	// where the quantity leads the description.
	MatchFirst MatchPolicy = "first"

	// MatchLast keeps the right-most plausible match. Use it for layouts
	// where the quantity trails the description (model numbers come first).
	MatchLast MatchPolicy = "last"
)

// ParsePolicy converts a configuration value into a MatchPolicy.
// An empty value yields MatchLast.
func ParsePolicy(value string) (MatchPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", string(MatchLast):
		return MatchLast, nil
	case string(MatchFirst):
		return MatchFirst, nil
	default:
		return "", fmt.Errorf("unknown match policy %q (want %q or %q)", value, MatchFirst, MatchLast)
	}
}

// =============================================================================
// OPTIONS
// =============================================================================

// Options configures a Parser.
type Options struct {
	// Units is the closed set of accepted unit tokens. Matching is
	// case-insensitive; the matched token is returned in lower case.
	Units []string

	// Currencies is the set of currency markers that must follow an amount.
	Currencies []string

	// QuantityMin and QuantityMax bound the open plausibility interval for
	// quantities. Matches outside (min, max) are ignored.
	QuantityMin decimal.Decimal
	QuantityMax decimal.Decimal

	// QuantityPolicy and AmountPolicy resolve fragments with several matches.
	QuantityPolicy MatchPolicy
	AmountPolicy   MatchPolicy
}

// DefaultUnits are the unit abbreviations used on the supplier's invoices.
var DefaultUnits = []string{"stk", "m", "lm", "meter", "rull", "sett", "pk", "pakke", "pakn", "par", "kg", "l"}

// DefaultCurrencies are the accepted currency markers.
var DefaultCurrencies = []string{"NOK", "kr"}

// DefaultOptions returns the options for the supplier's Norwegian layout.
func DefaultOptions() Options {
	return Options{
		Units:          DefaultUnits,
		Currencies:     DefaultCurrencies,
		QuantityMin:    decimal.RequireFromString("0.1"),
		QuantityMax:    decimal.NewFromInt(10000),
		QuantityPolicy: MatchLast,
		AmountPolicy:   MatchLast,
	}
}

// =============================================================================
// PARSER
// =============================================================================

// Quantity is a matched quantity with its unit token.
type Quantity struct {
	Value decimal.Decimal
	Unit  string
}

// Parser holds the compiled patterns for one set of options.
// A Parser is immutable and safe for concurrent use.
type Parser struct {
	opts Options

	quantityRe       *regexp.Regexp
	quantityPrefixRe *regexp.Regexp
	amountRe         *regexp.Regexp
	amountPrefixRe   *regexp.Regexp
}

// amountNumber matches digits with optional thousands groups and one decimal part.
const amountNumber = `\d{1,3}(?:[ \x{00A0}\x{202F}.]\d{3})+(?:[.,]\d+)?|\d+(?:[.,]\d+)?`

// quantityNumber matches digits with an optional fractional part.
const quantityNumber = `\d+(?:[.,]\d+)?`

// NewParser compiles the patterns for the given options.
// Empty unit or currency sets fall back to the defaults.
func NewParser(opts Options) *Parser {
	defaults := DefaultOptions()
	if len(opts.Units) == 0 {
		opts.Units = defaults.Units
	}
	if len(opts.Currencies) == 0 {
		opts.Currencies = defaults.Currencies
	}
	if opts.QuantityMax.IsZero() {
		opts.QuantityMax = defaults.QuantityMax
	}
	if opts.QuantityPolicy == "" {
		opts.QuantityPolicy = defaults.QuantityPolicy
	}
	if opts.AmountPolicy == "" {
		opts.AmountPolicy = defaults.AmountPolicy
	}

	units := alternation(opts.Units)
	currencies := alternation(opts.Currencies)

	return &Parser{
		opts:             opts,
		quantityRe:       regexp.MustCompile(`(?i)\b(` + quantityNumber + `)\s*(` + units + `)\b`),
		quantityPrefixRe: regexp.MustCompile(`(?i)^\s*(` + quantityNumber + `)\s*(` + units + `)\b`),
		amountRe:         regexp.MustCompile(`(?i)\b(` + amountNumber + `)\s*(?:` + currencies + `)\b`),
		amountPrefixRe:   regexp.MustCompile(`(?i)^\s*(` + amountNumber + `)\s*(?:` + currencies + `)\b`),
	}
}

// Options returns the effective options of the parser.
func (p *Parser) Options() Options {
	return p.opts
}

// alternation builds a regexp alternation from literal tokens.
// Longer tokens come first so "meter" wins over "m".
func alternation(tokens []string) string {
	sorted := make([]string, 0, len(tokens))
	for _, t := range tokens {
		t = strings.TrimSpace(t)
		if t != "" {
			sorted = append(sorted, regexp.QuoteMeta(t))
		}
	}
	sort.SliceStable(sorted, func(i, j int) bool {
		return len(sorted[i]) > len(sorted[j])
	})
	return strings.Join(sorted, "|")
}

// Quantity extracts a plausible quantity with its unit from text.
func (p *Parser) Quantity(text string) (Quantity, bool) {
	var candidates []Quantity
	for _, m := range p.quantityRe.FindAllStringSubmatch(text, -1) {
		value, ok := ParseDecimal(m[1])
		if !ok || !p.plausibleQuantity(value) {
			continue
		}
		candidates = append(candidates, Quantity{Value: value, Unit: strings.ToLower(m[2])})
	}
	if len(candidates) == 0 {
		return Quantity{}, false
	}
	if p.opts.QuantityPolicy == MatchFirst {
		return candidates[0], true
	}
	return candidates[len(candidates)-1], true
}

// Amount extracts a monetary amount followed by a currency marker from text.
func (p *Parser) Amount(text string) (decimal.Decimal, bool) {
	var candidates []decimal.Decimal
	for _, m := range p.amountRe.FindAllStringSubmatch(text, -1) {
		value, ok := ParseDecimal(m[1])
		if !ok {
			continue
		}
		candidates = append(candidates, value)
	}
	if len(candidates) == 0 {
		return decimal.Decimal{}, false
	}
	if p.opts.AmountPolicy == MatchFirst {
		return candidates[0], true
	}
	return candidates[len(candidates)-1], true
}

// leadingNumber matches a number at the start of a cell, followed by a space
// or the end of the cell.
var leadingNumber = regexp.MustCompile(`^\s*(` + quantityNumber + `)(?:\s|$)`)

// QuantityCell reads a structured quantity cell. The cell holds a bare number
// ("10,00"), a number with a unit token ("10 stk", "4,0 STK") or a number
// followed by other text. The plausibility gate is not applied. Unit is empty
// unless the cell carries a known unit token.
func (p *Parser) QuantityCell(text string) (Quantity, bool) {
	if value, ok := ParseDecimal(text); ok {
		return Quantity{Value: value}, true
	}
	if m := p.quantityPrefixRe.FindStringSubmatch(text); m != nil {
		if value, ok := ParseDecimal(m[1]); ok {
			return Quantity{Value: value, Unit: strings.ToLower(m[2])}, true
		}
	}
	if m := leadingNumber.FindStringSubmatch(text); m != nil {
		if value, ok := ParseDecimal(m[1]); ok {
			return Quantity{Value: value}, true
		}
	}
	return Quantity{}, false
}

// StartsWithQuantity reports whether text opens with a quantity and unit,
// e.g. "10 stk". The plausibility gate is not applied.
func (p *Parser) StartsWithQuantity(text string) bool {
	return p.quantityPrefixRe.MatchString(text)
}

// StartsWithAmount reports whether text opens with an amount and currency
// marker, e.g. "1 250,00 NOK".
func (p *Parser) StartsWithAmount(text string) bool {
	return p.amountPrefixRe.MatchString(text)
}

// plausibleQuantity applies the open interval (QuantityMin, QuantityMax).
func (p *Parser) plausibleQuantity(value decimal.Decimal) bool {
	return value.GreaterThan(p.opts.QuantityMin) && value.LessThan(p.opts.QuantityMax)
}

// =============================================================================
// PLAIN DECIMALS
// =============================================================================

var (
	// cellNoise is stripped from structured cells before conversion.
	cellNoise = regexp.MustCompile(`(?i)\s*(nok|kr\.?|,-)\s*$`)

	// canonicalNumber is the form accepted by decimal.NewFromString.
	canonicalNumber = regexp.MustCompile(`^-?\d+(\.\d+)?$`)
)

// ParseDecimal converts a locale-formatted number into a decimal.
// A trailing currency marker is tolerated. Anything else that is not part of
// a number makes the conversion fail.
func ParseDecimal(text string) (decimal.Decimal, bool) {
	text = cellNoise.ReplaceAllString(strings.TrimSpace(text), "")
	canonical, ok := Normalize(text)
	if !ok {
		return decimal.Decimal{}, false
	}
	value, err := decimal.NewFromString(canonical)
	if err != nil {
		return decimal.Decimal{}, false
	}
	return value, true
}

// Normalize rewrites a locale-formatted number as "1234.56".
// See the table at the top of this file for the accepted formats.
func Normalize(text string) (string, bool) {
	text = strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\u00a0', '\u202f', '\t':
			return -1
		}
		return r
	}, text)
	if text == "" {
		return "", false
	}

	dots := strings.Count(text, ".")
	commas := strings.Count(text, ",")

	switch {
	case dots > 0 && commas > 0:
		decimalAt := strings.LastIndexAny(text, ".,")
		whole := strings.NewReplacer(".", "", ",", "").Replace(text[:decimalAt])
		text = whole + "." + text[decimalAt+1:]
	case commas == 1:
		text = strings.Replace(text, ",", ".", 1)
	case commas > 1:
		text = strings.ReplaceAll(text, ",", "")
	case dots > 1:
		text = strings.ReplaceAll(text, ".", "")
	}

	if !canonicalNumber.MatchString(text) {
		return "", false
	}
	return text, true
}
