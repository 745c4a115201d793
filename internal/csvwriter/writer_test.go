package csvwriter

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ginjaninja78/invoicelines/internal/types"
)

func scenarioRow() types.ResultRow {
	return types.ResultRow{
		SequenceNumber: "1",
		ArticleNumber:  "1355221",
		Description:    "Solar panel mount, 10 stk",
		Quantity:       decimal.RequireFromString("10.0"),
		Unit:           "stk",
		NetAmount:      decimal.RequireFromString("1250"),
		UnitPrice:      decimal.RequireFromString("125"),
	}
}

func TestGenerate_TextModeLayout(t *testing.T) {
	opts := DefaultGenerateOptions()
	opts.IncludeArticle = true

	data, err := Generate([]types.ResultRow{scenarioRow()}, opts)
	require.NoError(t, err)

	require.True(t, strings.HasPrefix(string(data), "\ufeff"))
	assert.Equal(t,
		"\ufeffNr,Artikkelnr,Beskrivelse,Antall,Enhet,Nettobeløp,Pris per enhet\n"+
			"1,1355221,\"Solar panel mount, 10 stk\",10,stk,1250.00,125.00\n",
		string(data))
}

func TestGenerate_TableModeHasNoArticleColumn(t *testing.T) {
	data, err := Generate([]types.ResultRow{scenarioRow()}, DefaultGenerateOptions())
	require.NoError(t, err)

	lines := strings.Split(strings.TrimPrefix(string(data), "\ufeff"), "\n")
	assert.Equal(t, "Nr,Beskrivelse,Antall,Enhet,Nettobeløp,Pris per enhet", lines[0])
	assert.Equal(t, "1,\"Solar panel mount, 10 stk\",10,stk,1250.00,125.00", lines[1])
}

func TestGenerate_EmptyTableWritesHeader(t *testing.T) {
	opts := DefaultGenerateOptions()
	opts.IncludeBOM = false

	data, err := Generate(nil, opts)
	require.NoError(t, err)
	assert.Equal(t, "Nr,Beskrivelse,Antall,Enhet,Nettobeløp,Pris per enhet\n", string(data))
}

func TestRecord_FractionalQuantity(t *testing.T) {
	row := scenarioRow()
	row.Quantity = decimal.RequireFromString("2.5")
	row.UnitPrice = decimal.RequireFromString("0.13")

	record := Record(row, DefaultGenerateOptions())
	assert.Equal(t, []string{"1", "Solar panel mount, 10 stk", "2.5", "stk", "1250.00", "0.13"}, record)
}

func TestWriteToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "invoice.csv")

	require.NoError(t, WriteToFile(path, []types.ResultRow{scenarioRow()}, DefaultGenerateOptions()))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "125.00")

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temporary file left behind")
}
