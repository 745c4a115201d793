// =============================================================================
// Invoice Line Extractor - Price Deriver
// =============================================================================
//
// This module turns closed candidate items into final result rows:
//   1. Validity gate: quantity > 0 and net amount > 0, otherwise dropped
//   2. Unit price: net amount / quantity, rounded to 2 decimals
//   3. Description: trimmed, truncated with an ellipsis marker when too long
//
// ROUNDING:
//   decimal.Decimal.Round rounds half away from zero:
//     0.125 -> 0.13, -0.125 -> -0.13
//
// Dropped items are not errors. They are returned as rejections so callers can
// log them at debug level.
//
// =============================================================================

package pricing

import (
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"

	"github.com/ginjaninja78/invoicelines/internal/types"
)

// Default description limits per extraction mode.
const (
	DefaultTextMaxDescription  = 150
	DefaultTableMaxDescription = 120
)

// Ellipsis is appended to truncated descriptions.
const Ellipsis = "..."

// Options configures the deriver.
type Options struct {
	// MaxDescription is the maximum description length in runes.
	// Zero disables truncation.
	MaxDescription int

	// Ellipsis replaces the default marker when set.
	Ellipsis string
}

// Rejection records why a candidate item did not become a result row.
type Rejection struct {
	Item   types.CandidateItem
	Reason string
}

// Rejection reasons.
const (
	ReasonMissingQuantity  = "quantity missing"
	ReasonQuantityNotPos   = "quantity not positive"
	ReasonMissingNetAmount = "net amount missing"
	ReasonNetAmountNotPos  = "net amount not positive"
)

// Derive applies the validity gate and computes unit prices.
// The result keeps the input order.
func Derive(items []types.CandidateItem, opts Options) ([]types.ResultRow, []Rejection) {
	rows := make([]types.ResultRow, 0, len(items))
	var rejected []Rejection

	for _, item := range items {
		if reason := check(item); reason != "" {
			rejected = append(rejected, Rejection{Item: item, Reason: reason})
			continue
		}

		rows = append(rows, types.ResultRow{
			SequenceNumber: item.SequenceNumber,
			ArticleNumber:  item.ArticleNumber,
			Description:    TruncateDescription(item.Description, opts.MaxDescription, opts.Ellipsis),
			Quantity:       item.Quantity.Decimal,
			Unit:           item.Unit,
			NetAmount:      item.NetAmount.Decimal,
			UnitPrice:      UnitPrice(item.NetAmount.Decimal, item.Quantity.Decimal),
		})
	}

	return rows, rejected
}

// check returns the rejection reason for an item, or "" when it is valid.
func check(item types.CandidateItem) string {
	switch {
	case !item.Quantity.Valid:
		return ReasonMissingQuantity
	case !item.Quantity.Decimal.IsPositive():
		return ReasonQuantityNotPos
	case !item.NetAmount.Valid:
		return ReasonMissingNetAmount
	case !item.NetAmount.Decimal.IsPositive():
		return ReasonNetAmountNotPos
	}
	return ""
}

// UnitPrice returns netAmount / quantity rounded half away from zero to
// 2 decimal places. The quantity must be non-zero.
func UnitPrice(netAmount, quantity decimal.Decimal) decimal.Decimal {
	return netAmount.Div(quantity).Round(2)
}

// TruncateDescription trims text and, when it is longer than limit runes, cuts it
// to limit runes and appends the ellipsis marker. A limit of zero or less keeps the
// trimmed text as is.
func TruncateDescription(text string, limit int, ellipsis string) string {
	text = strings.TrimSpace(text)
	if limit <= 0 || utf8.RuneCountInString(text) <= limit {
		return text
	}
	if ellipsis == "" {
		ellipsis = Ellipsis
	}
	runes := []rune(text)
	return strings.TrimRight(string(runes[:limit]), " ") + ellipsis
}
