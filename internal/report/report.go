// =============================================================================
// Invoice Line Extractor - Terminal Report
// =============================================================================
//
// This module renders the result table for people reading it in a terminal.
// Unlike the CSV export, numbers are shown the way they appear on the invoice:
//
//   | Nr | Beskrivelse       | Antall | Enhet | Nettobeløp   | Pris per enhet |
//   |----|-------------------|--------|-------|--------------|----------------|
//   | 1  | Solar panel mount | 10     | stk   | 1 250,00 NOK | 125,00 NOK     |
//
// =============================================================================

package report

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/shopspring/decimal"

	"github.com/ginjaninja78/invoicelines/internal/csvwriter"
	"github.com/ginjaninja78/invoicelines/internal/types"
)

// =============================================================================
// NUMBER FORMATTING
// =============================================================================

// FormatAmount renders an amount as "1 250,00 NOK". An empty currency omits
// the suffix.
func FormatAmount(value decimal.Decimal, currency string) string {
	text := FormatNumber(value.StringFixed(2))
	if currency == "" {
		return text
	}
	return text + " " + currency
}

// FormatQuantity renders a quantity with a decimal comma and no trailing zeros.
func FormatQuantity(value decimal.Decimal) string {
	return FormatNumber(value.String())
}

// FormatNumber rewrites a canonical decimal ("-1250.5") with space thousands
// groups and a decimal comma ("-1 250,5").
func FormatNumber(canonical string) string {
	sign := ""
	if strings.HasPrefix(canonical, "-") {
		sign, canonical = "-", canonical[1:]
	}

	whole, fraction, hasFraction := strings.Cut(canonical, ".")

	var b strings.Builder
	for i, digit := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			b.WriteByte(' ')
		}
		b.WriteRune(digit)
	}

	if hasFraction {
		return sign + b.String() + "," + fraction
	}
	return sign + b.String()
}

// =============================================================================
// TABLE RENDERING
// =============================================================================

// Options controls the table layout.
type Options struct {
	// IncludeArticle adds the Artikkelnr column.
	IncludeArticle bool

	// Currency is the suffix for amount columns.
	Currency string

	// Color enables the styled header and borders.
	Color bool
}

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7C3AED")).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	numberStyle = cellStyle.Align(lipgloss.Right)
	borderStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#45475A"))
)

// Render returns the result rows as a bordered table.
func Render(rows []types.ResultRow, opts Options) string {
	header := csvwriter.Header(csvwriter.GenerateOptions{IncludeArticle: opts.IncludeArticle})
	numeric := len(header) - 4

	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers(header...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow && opts.Color:
				return headerStyle
			case row == table.HeaderRow:
				return cellStyle.Bold(true)
			case col >= numeric && col != numeric+1:
				return numberStyle
			default:
				return cellStyle
			}
		})
	if opts.Color {
		t = t.BorderStyle(borderStyle)
	}

	for _, row := range rows {
		record := []string{row.SequenceNumber}
		if opts.IncludeArticle {
			record = append(record, row.ArticleNumber)
		}
		record = append(record,
			row.Description,
			FormatQuantity(row.Quantity),
			row.Unit,
			FormatAmount(row.NetAmount, opts.Currency),
			FormatAmount(row.UnitPrice, opts.Currency),
		)
		t = t.Row(record...)
	}

	return t.String()
}

// Totals renders a one-line summary of the table.
func Totals(rows []types.ResultRow, currency string) string {
	sum := decimal.Zero
	for _, row := range rows {
		sum = sum.Add(row.NetAmount)
	}
	return fmt.Sprintf("%d line items, net total %s", len(rows), FormatAmount(sum, currency))
}
