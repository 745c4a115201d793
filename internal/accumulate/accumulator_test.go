package accumulate

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ginjaninja78/invoicelines/internal/classify"
	"github.com/ginjaninja78/invoicelines/internal/numeric"
	"github.com/ginjaninja78/invoicelines/internal/types"
)

func textRows(lines ...string) []types.RawRow {
	rows := make([]types.RawRow, 0, len(lines))
	for i, line := range lines {
		rows = append(rows, types.RawRow{Cells: []string{line}, Page: 1, Index: i, Source: types.SourceText})
	}
	return rows
}

func fold(t *testing.T, rows []types.RawRow) ([]types.CandidateItem, Stats) {
	t.Helper()
	parser := numeric.NewParser(numeric.DefaultOptions())
	return Fold(rows, classify.New(classify.DefaultRules(), parser), parser, Options{})
}

func requireDecimal(t *testing.T, want string, got decimal.NullDecimal) {
	t.Helper()
	require.True(t, got.Valid, "value not set")
	assert.True(t, got.Decimal.Equal(decimal.RequireFromString(want)), "want %s, got %s", want, got.Decimal)
}

func TestFold_Scenario(t *testing.T) {
	items, stats := fold(t, textRows(
		"1 1355221 Solar panel mount 10 stk",
		"Rabatt: 5%",
		"net amount 1 250,00 NOK",
	))

	require.Len(t, items, 1)
	item := items[0]
	assert.Equal(t, "1", item.SequenceNumber)
	assert.Equal(t, "1355221", item.ArticleNumber)
	assert.Equal(t, "Solar panel mount 10 stk Rabatt: 5%", item.Description)
	requireDecimal(t, "10", item.Quantity)
	assert.Equal(t, "stk", item.Unit)
	requireDecimal(t, "1250", item.NetAmount)

	assert.Equal(t, 3, stats.Rows)
	assert.Equal(t, 1, stats.ItemStarts)
	assert.Equal(t, 1, stats.Annotations)
	assert.Equal(t, 1, stats.Unclassified)
	assert.Equal(t, 1, stats.ItemsClosed)
}

func TestFold_FlushOnEnd(t *testing.T) {
	items, _ := fold(t, textRows("7 Kabelstige 3 m"))

	require.Len(t, items, 1)
	assert.Equal(t, "7", items[0].SequenceNumber)
	requireDecimal(t, "3", items[0].Quantity)
	assert.False(t, items[0].NetAmount.Valid)
}

func TestFold_WriteOnce(t *testing.T) {
	items, _ := fold(t, textRows(
		"1 1355221 Solar panel mount 10 stk",
		"Basisantall: 100 stk",
		"leveres 2 stk per kartong 99,00 NOK",
		"4 pk 1 250,00 NOK",
	))

	require.Len(t, items, 1)
	requireDecimal(t, "10", items[0].Quantity)
	assert.Equal(t, "stk", items[0].Unit)
	requireDecimal(t, "99", items[0].NetAmount)
}

func TestFold_StructuredFieldsWinOverRemainder(t *testing.T) {
	parser := numeric.NewParser(numeric.DefaultOptions())
	acc := New(parser, Options{})

	acc.Step(types.LineRole{
		Kind:           types.RoleItemStart,
		SequenceNumber: "3",
		Text:           "Panel 2 stk 10,00 NOK",
		Source:         types.SourceTable,
		Fields: types.StructuredFields{
			Quantity:  decimal.NewNullDecimal(decimal.NewFromInt(5)),
			Unit:      "pk",
			NetAmount: decimal.NullDecimal{},
		},
	})

	items := acc.Finish()
	require.Len(t, items, 1)
	requireDecimal(t, "5", items[0].Quantity)
	assert.Equal(t, "pk", items[0].Unit)
	requireDecimal(t, "10", items[0].NetAmount)
}

func TestFold_OrderPreserved(t *testing.T) {
	items, _ := fold(t, textRows(
		"3 Kabel 2 m 40,00 NOK",
		"1 Rør 4 stk 80,00 NOK",
		"2 Tape 1 rull 15,00 NOK",
	))

	require.Len(t, items, 3)
	assert.Equal(t, "3", items[0].SequenceNumber)
	assert.Equal(t, "1", items[1].SequenceNumber)
	assert.Equal(t, "2", items[2].SequenceNumber)
}

func TestFold_Idempotent(t *testing.T) {
	rows := textRows(
		"1 1355221 Solar panel mount 10 stk",
		"Rabatt: 5%",
		"net amount 1 250,00 NOK",
		"2 Skinne 4 m",
		"Totalt 4 500,00 NOK",
	)

	first, _ := fold(t, rows)
	second, _ := fold(t, rows)
	assert.Equal(t, first, second)
}

func TestFold_NoiseFooterContributesNothing(t *testing.T) {
	items, stats := fold(t, textRows(
		"1 Solar panel mount 10 stk",
		"Totalt 4 500,00 NOK",
	))

	require.Len(t, items, 1)
	assert.False(t, items[0].NetAmount.Valid)
	assert.Equal(t, "Solar panel mount 10 stk", items[0].Description)
	assert.Equal(t, 1, stats.NoiseFooters)
}

func TestFold_LinesBeforeFirstItemAreDiscarded(t *testing.T) {
	items, stats := fold(t, textRows(
		"Faktura 2024-117",
		"Rabatt: 5%",
		"MVA-kode 3",
		"1 Kabel 2 m 40,00 NOK",
	))

	require.Len(t, items, 1)
	assert.Equal(t, "Kabel 2 m 40,00 NOK", items[0].Description)
	assert.Equal(t, 3, stats.Discarded)
}

func TestFold_DescriptionContinuation(t *testing.T) {
	items, stats := fold(t, textRows(
		"1 1355221 Solar panel",
		"mount for flat roof",
		"xx",
		"12",
		"10 stk 1 250,00 NOK",
		"extra text after amount",
	))

	require.Len(t, items, 1)
	assert.Equal(t, "Solar panel mount for flat roof", items[0].Description)
	requireDecimal(t, "10", items[0].Quantity)
	requireDecimal(t, "1250", items[0].NetAmount)
	assert.Equal(t, 1, stats.FragmentsKept)
}

func TestFold_EmptyRowsSkipped(t *testing.T) {
	rows := textRows("1 Kabel 2 m", "", "   ")
	items, stats := fold(t, rows)

	require.Len(t, items, 1)
	assert.Equal(t, 1, stats.Rows)
}

func TestAccumulator_States(t *testing.T) {
	acc := New(numeric.NewParser(numeric.DefaultOptions()), Options{})
	assert.Equal(t, NoOpenItem, acc.State())

	acc.Step(types.LineRole{Kind: types.RoleUnclassified, Text: "Leveringsadresse"})
	assert.Equal(t, NoOpenItem, acc.State())

	acc.Step(types.LineRole{Kind: types.RoleItemStart, SequenceNumber: "1", Text: "Kabel"})
	assert.Equal(t, ItemOpen, acc.State())

	acc.Step(types.LineRole{Kind: types.RoleNoiseFooter})
	assert.Equal(t, ItemOpen, acc.State())

	items := acc.Finish()
	assert.Len(t, items, 1)
	assert.Equal(t, NoOpenItem, acc.State())
	assert.Empty(t, acc.Finish())
}
