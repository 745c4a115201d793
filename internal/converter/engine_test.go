package converter

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ginjaninja78/invoicelines/internal/classify"
	"github.com/ginjaninja78/invoicelines/internal/config"
	"github.com/ginjaninja78/invoicelines/internal/numeric"
	"github.com/ginjaninja78/invoicelines/internal/pricing"
	"github.com/ginjaninja78/invoicelines/internal/types"
)

func intPtr(v int) *int { return &v }

func textRows(lines ...string) []types.RawRow {
	rows := make([]types.RawRow, len(lines))
	for i, line := range lines {
		rows[i] = types.RawRow{Cells: []string{line}, Page: 1, Index: i, Source: types.SourceText}
	}
	return rows
}

func TestNewEngine_RejectsInvalidInput(t *testing.T) {
	profile := config.DefaultProfile()
	profile.QuantityMatch = "middle"
	_, err := NewEngine(profile, "")
	assert.ErrorContains(t, err, "quantity_match")

	_, err = NewEngine(config.DefaultProfile(), "ocr")
	assert.Error(t, err)
}

func TestEngine_ProcessRows(t *testing.T) {
	e, err := NewEngine(config.DefaultProfile(), "text")
	require.NoError(t, err)

	rows := textRows(
		"1 1355221 Solar panel mount",
		"10 stk 1 250,00 NOK",
		"Rabatt: 5%",
		"2 Kabel uten pris",
		"2 stk",
		"MVA-grunnlag 1 250,00 NOK",
	)

	outcome := e.ProcessRows(rows)
	require.Len(t, outcome.Rows, 1)
	assert.Equal(t, "1", outcome.Rows[0].SequenceNumber)
	assert.True(t, outcome.Rows[0].UnitPrice.Equal(decimal.NewFromInt(125)))

	require.Len(t, outcome.Rejected, 1)
	assert.Equal(t, "2", outcome.Rejected[0].Item.SequenceNumber)
	assert.Equal(t, pricing.ReasonMissingNetAmount, outcome.Rejected[0].Reason)

	assert.Equal(t, 2, outcome.Fold.ItemStarts)
	assert.Equal(t, 1, outcome.Fold.NoiseFooters)

	assert.Equal(t, outcome, e.ProcessRows(rows), "the same rows give the same outcome")
}

func tableRows(rows ...[]string) []types.RawRow {
	raw := make([]types.RawRow, len(rows))
	for i, cells := range rows {
		raw[i] = types.RawRow{Cells: cells, Page: 1, Index: i, Source: types.SourceTable}
	}
	return raw
}

func TestEngine_TableRowsFromPDFLayouts(t *testing.T) {
	e, err := NewEngine(config.DefaultProfile(), "table")
	require.NoError(t, err)

	outcome := e.ProcessRows(tableRows(
		[]string{"1", "1355221", "Solar panel mount", "10 stk", "", "125,00", "25", "1 250,00"},
		[]string{"3", "Rail", "4", "stk", "100,00", "25", "400,00"},
	))

	assert.Empty(t, outcome.Rejected)
	require.Len(t, outcome.Rows, 2)

	assert.Equal(t, "Solar panel mount", outcome.Rows[0].Description)
	assert.Equal(t, "stk", outcome.Rows[0].Unit)
	assert.True(t, outcome.Rows[0].UnitPrice.Equal(decimal.NewFromInt(125)))

	assert.Equal(t, "Rail", outcome.Rows[1].Description)
	assert.Empty(t, outcome.Rows[1].ArticleNumber)
	assert.True(t, outcome.Rows[1].UnitPrice.Equal(decimal.NewFromInt(100)))
}

func TestEngine_PercentageLineDoesNotStartAnItem(t *testing.T) {
	e, err := NewEngine(config.DefaultProfile(), "text")
	require.NoError(t, err)

	outcome := e.ProcessRows(textRows(
		"2 Kabel 2 m",
		"20 % rabatt gjelder",
		"500,00 NOK",
	))

	assert.Empty(t, outcome.Rejected)
	require.Len(t, outcome.Rows, 1)
	assert.Equal(t, "2", outcome.Rows[0].SequenceNumber)
	assert.True(t, outcome.Rows[0].NetAmount.Equal(decimal.NewFromInt(500)))
	assert.True(t, outcome.Rows[0].UnitPrice.Equal(decimal.NewFromInt(250)))
}

func TestEngine_ProfileTokenRules(t *testing.T) {
	profile := config.DefaultProfile()
	profile.ExtractionMode = "text"
	profile.UnitTokens = []string{"eske"}
	profile.CurrencyMarkers = []string{"SEK"}
	profile.FooterMarkers = []string{"Summa"}
	profile.AnnotationLabels = map[string][]string{"discount": {"Avdrag"}}

	e, err := NewEngine(profile, "")
	require.NoError(t, err)

	outcome := e.ProcessRows(textRows(
		"1 Skruer",
		"3 eske 450,00 SEK",
		"Avdrag: 10%",
		"Summa 450,00 SEK",
	))

	require.Len(t, outcome.Rows, 1)
	row := outcome.Rows[0]
	assert.Equal(t, "eske", row.Unit)
	assert.Equal(t, "150.00", row.UnitPrice.StringFixed(2))
	assert.Equal(t, "Skruer Avdrag: 10%", row.Description)
	assert.Equal(t, 1, outcome.Fold.Annotations)
	assert.Equal(t, 1, outcome.Fold.NoiseFooters)
}

func TestEngine_QuantityBounds(t *testing.T) {
	profile := config.DefaultProfile()
	profile.ExtractionMode = "text"
	profile.QuantityMax = "50"

	e, err := NewEngine(profile, "")
	require.NoError(t, err)

	outcome := e.ProcessRows(textRows("1 Kabel", "100 m 500,00 NOK"))
	assert.Empty(t, outcome.Rows)
	require.Len(t, outcome.Rejected, 1)
	assert.Equal(t, pricing.ReasonMissingQuantity, outcome.Rejected[0].Reason)
}

func TestNumericOptions_Defaults(t *testing.T) {
	opts, err := numericOptions(config.DefaultProfile())
	require.NoError(t, err)

	defaults := numeric.DefaultOptions()
	assert.Equal(t, defaults.Units, opts.Units)
	assert.True(t, defaults.QuantityMin.Equal(opts.QuantityMin))
	assert.True(t, defaults.QuantityMax.Equal(opts.QuantityMax))
	assert.Equal(t, numeric.MatchLast, opts.QuantityPolicy)
}

func TestTableColumns(t *testing.T) {
	cols := tableColumns(config.TableColumns{
		Description: intPtr(1),
		NetAmount:   intPtr(6),
		Omit:        []string{"article"},
	})

	want := classify.DefaultTableColumns()
	want.Article = classify.NoColumn
	want.Description = 1
	want.NetAmount = 6
	assert.Equal(t, want, cols)

	assert.Equal(t, classify.DefaultTableColumns(), tableColumns(config.TableColumns{}))
}

func TestDescriptionLimit(t *testing.T) {
	profile := config.DefaultProfile()
	assert.Equal(t, pricing.DefaultTableMaxDescription, descriptionLimit(profile, types.SourceTable))
	assert.Equal(t, pricing.DefaultTextMaxDescription, descriptionLimit(profile, types.SourceText))

	profile.DescriptionMaxLength = 40
	assert.Equal(t, 40, descriptionLimit(profile, types.SourceText))
}

func TestPDFOptions(t *testing.T) {
	opts := pdfOptions(config.PDFSettings{CellGap: 2})
	assert.Equal(t, 2.0, opts.CellGap)
	assert.Equal(t, 2.0, opts.RowTolerance)
	assert.Equal(t, 0.15, opts.WordGap)
}

func TestNewEngine_WorkbookSettings(t *testing.T) {
	profile := config.DefaultProfile()
	profile.Sheet = "Faktura"
	profile.SheetRawValues = true

	e, err := NewEngine(profile, "")
	require.NoError(t, err)
	assert.Equal(t, "Faktura", e.extract.Sheet)
	assert.True(t, e.extract.RawCellValues)
}
