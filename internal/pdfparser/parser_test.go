package pdfparser

import (
	"bytes"
	"testing"

	"github.com/ledongthuc/pdf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ginjaninja78/invoicelines/internal/types"
)

// word places a string with an estimated width of 5pt per rune at font size 10.
func word(x, y float64, s string) pdf.Text {
	return pdf.Text{X: x, Y: y, W: 5 * float64(len([]rune(s))), FontSize: 10, S: s}
}

func invoicePage() []pdf.Text {
	return []pdf.Text{
		// Out of order on purpose: the content stream order is not the reading order.
		word(400, 700.5, "1 250,00"),
		word(20, 700, "1"),
		word(60, 700, "1355221"),
		word(140, 700, "Solar"),
		word(168, 700, "panel"),
		word(196, 700, "mount"),
		word(300, 700, "10"),
		word(330, 700, "stk"),
		word(140, 688, "Rabatt:"),
		word(178, 688, "5%"),
		word(20, 650, "Totalt"),
		word(400, 650, "4 500,00"),
	}
}

func TestRowsFromTexts_TableMode(t *testing.T) {
	rows := RowsFromTexts(invoicePage(), 2, types.SourceTable, DefaultOptions())

	require.Len(t, rows, 3)
	assert.Equal(t, []string{"1", "1355221", "Solar panel mount", "10", "stk", "1 250,00"}, rows[0].Cells)
	assert.Equal(t, 2, rows[0].Page)
	assert.Equal(t, types.SourceTable, rows[0].Source)
	assert.Equal(t, []string{"Rabatt: 5%"}, rows[1].Cells)
	// The footer is snapped to the columns of the item row.
	assert.Equal(t, []string{"Totalt", "", "", "", "", "4 500,00"}, rows[2].Cells)
}

func TestRowsFromTexts_BlankColumnKeepsItsPlace(t *testing.T) {
	texts := []pdf.Text{
		word(20, 720, "Nr"),
		word(60, 720, "Artikkelnr"),
		word(140, 720, "Beskrivelse"),
		word(300, 720, "Antall"),
		word(350, 720, "Enhet"),
		word(400, 720, "A-pris"),
		word(450, 720, "MVA"),
		word(500, 720, "Nettobeløp"),

		// No article number on this line.
		word(20, 700, "3"),
		word(140, 700, "Rail"),
		word(300, 700, "4"),
		word(350, 700, "stk"),
		word(400, 700, "100,00"),
		word(450, 700, "25"),
		word(500, 700, "400,00"),
	}

	rows := RowsFromTexts(texts, 1, types.SourceTable, DefaultOptions())

	require.Len(t, rows, 2)
	assert.Len(t, rows[0].Cells, 8)
	assert.Equal(t, []string{"3", "", "Rail", "4", "stk", "100,00", "25", "400,00"}, rows[1].Cells)
}

func TestRowsFromTexts_TextModeIgnoresColumns(t *testing.T) {
	texts := []pdf.Text{
		word(20, 720, "Nr"),
		word(60, 720, "Artikkelnr"),
		word(140, 720, "Beskrivelse"),
		word(20, 700, "3"),
		word(140, 700, "Rail"),
	}

	rows := RowsFromTexts(texts, 1, types.SourceText, DefaultOptions())
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"3 Rail"}, rows[1].Cells)
}

func TestAlignColumns_OverlappingCellsStayInOrder(t *testing.T) {
	columns := []span{{"a", 0, 10}, {"b", 30, 40}, {"c", 60, 70}, {"d", 90, 100}}

	// Both cells fall into the second column, so no placement is possible.
	cells := []span{{"x", 28, 32}, {"y", 36, 40}}
	assert.Equal(t, []string{"x", "y"}, alignColumns(cells, columns))

	cells = []span{{"x", 0, 5}, {"y", 92, 100}}
	assert.Equal(t, []string{"x", "", "", "y"}, alignColumns(cells, columns))
}

func TestRowsFromTexts_TextMode(t *testing.T) {
	rows := RowsFromTexts(invoicePage(), 1, types.SourceText, DefaultOptions())

	require.Len(t, rows, 3)
	assert.Equal(t, []string{"1 1355221 Solar panel mount 10 stk 1 250,00"}, rows[0].Cells)
	assert.Equal(t, "Rabatt: 5%", rows[1].Text())
	assert.Equal(t, types.SourceText, rows[2].Source)
}

func TestRowsFromTexts_GlyphsJoinIntoWords(t *testing.T) {
	texts := []pdf.Text{
		{X: 10, Y: 500, W: 5, FontSize: 10, S: "S"},
		{X: 15, Y: 500, W: 5, FontSize: 10, S: "t"},
		{X: 20, Y: 500, W: 5, FontSize: 10, S: "k"},
		{X: 30, Y: 500, W: 5, FontSize: 10, S: "2"},
	}

	rows := RowsFromTexts(texts, 1, types.SourceText, DefaultOptions())
	require.Len(t, rows, 1)
	assert.Equal(t, "Stk 2", rows[0].Cells[0])
}

func TestRowsFromTexts_NormalizesDecomposedText(t *testing.T) {
	// A followed by a combining ring above composes to a single rune.
	texts := []pdf.Text{word(10, 500, "A\u030a betale")}

	rows := RowsFromTexts(texts, 1, types.SourceText, DefaultOptions())
	require.Len(t, rows, 1)
	assert.Equal(t, "\u00c5 betale", rows[0].Cells[0])
}

func TestRowsFromTexts_MissingWidthIsEstimated(t *testing.T) {
	texts := []pdf.Text{
		{X: 10, Y: 500, FontSize: 10, S: "Kabel"},
		{X: 37, Y: 500, FontSize: 10, S: "2"},
	}

	rows := RowsFromTexts(texts, 1, types.SourceTable, DefaultOptions())
	require.Len(t, rows, 1)
	assert.Equal(t, []string{"Kabel 2"}, rows[0].Cells)
}

func TestRowsFromTexts_EmptyPage(t *testing.T) {
	assert.Empty(t, RowsFromTexts(nil, 1, types.SourceText, DefaultOptions()))
	assert.Empty(t, RowsFromTexts([]pdf.Text{word(1, 1, "  ")}, 1, types.SourceText, DefaultOptions()))
}

func TestParseReader_NotAPDF(t *testing.T) {
	data := []byte("plain text, not a pdf")
	_, err := ParseReader(bytes.NewReader(data), int64(len(data)), types.SourceText, DefaultOptions())
	assert.Error(t, err)
}
