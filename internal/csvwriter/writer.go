// =============================================================================
// Invoice Line Extractor - CSV Writer Module
// =============================================================================
//
// This module serializes the normalized result table to CSV for import into
// spreadsheets and accounting tools.
//
// CSV LAYOUT:
//
//   Nr,Artikkelnr,Beskrivelse,Antall,Enhet,Nettobeløp,Pris per enhet
//   1,1355221,Solar panel mount 10 stk Rabatt: 5%,10,stk,1250.00,125.00
//
//   - UTF-8 with byte-order mark (Excel needs it to show "ø" correctly)
//   - The Artikkelnr column is only written when IncludeArticle is set
//     (text mode captures article numbers)
//   - Numbers are plain decimal text with "." as decimal separator and no
//     currency suffix; the suffix is a display concern (see report)
//
// =============================================================================

package csvwriter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/ginjaninja78/invoicelines/internal/types"
)

// Column headers.
const (
	HeaderNr          = "Nr"
	HeaderArticle     = "Artikkelnr"
	HeaderDescription = "Beskrivelse"
	HeaderQuantity    = "Antall"
	HeaderUnit        = "Enhet"
	HeaderNetAmount   = "Nettobeløp"
	HeaderUnitPrice   = "Pris per enhet"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// =============================================================================
// OPTIONS
// =============================================================================

// GenerateOptions contains options for CSV generation.
type GenerateOptions struct {
	// IncludeBOM prefixes the output with a UTF-8 byte-order mark.
	// Default: true
	IncludeBOM bool

	// IncludeArticle adds the Artikkelnr column after Nr.
	// Default: false (table mode); the converter enables it in text mode.
	IncludeArticle bool

	// Delimiter is the field separator.
	// Default: ','
	Delimiter rune

	// AmountDecimals is the number of decimals for net amount and unit price.
	// Default: 2
	AmountDecimals int32
}

// DefaultGenerateOptions returns the default generation options.
func DefaultGenerateOptions() GenerateOptions {
	return GenerateOptions{
		IncludeBOM:     true,
		Delimiter:      ',',
		AmountDecimals: 2,
	}
}

// =============================================================================
// GENERATION FUNCTIONS
// =============================================================================

// Header returns the header record for the given options.
func Header(opts GenerateOptions) []string {
	header := []string{HeaderNr}
	if opts.IncludeArticle {
		header = append(header, HeaderArticle)
	}
	return append(header, HeaderDescription, HeaderQuantity, HeaderUnit, HeaderNetAmount, HeaderUnitPrice)
}

// Record formats one result row.
func Record(row types.ResultRow, opts GenerateOptions) []string {
	record := []string{row.SequenceNumber}
	if opts.IncludeArticle {
		record = append(record, row.ArticleNumber)
	}
	return append(record,
		row.Description,
		row.Quantity.String(),
		row.Unit,
		row.NetAmount.StringFixed(opts.AmountDecimals),
		row.UnitPrice.StringFixed(opts.AmountDecimals),
	)
}

// Write writes the header and all rows to w.
func Write(w io.Writer, rows []types.ResultRow, opts GenerateOptions) error {
	if opts.IncludeBOM {
		if _, err := w.Write(utf8BOM); err != nil {
			return fmt.Errorf("failed to write byte-order mark: %w", err)
		}
	}

	writer := csv.NewWriter(w)
	if opts.Delimiter != 0 {
		writer.Comma = opts.Delimiter
	}

	if err := writer.Write(Header(opts)); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	for i, row := range rows {
		if err := writer.Write(Record(row, opts)); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i+1, err)
		}
	}

	writer.Flush()
	return writer.Error()
}

// Generate returns the CSV document as a byte slice.
func Generate(rows []types.ResultRow, opts GenerateOptions) ([]byte, error) {
	var buf bytes.Buffer
	if err := Write(&buf, rows, opts); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteToFile writes the CSV document to path. The file is written to a
// temporary name in the same directory first and renamed into place, so a
// failed run never leaves a partial output file.
func WriteToFile(path string, rows []types.ResultRow, opts GenerateOptions) error {
	data, err := Generate(rows, opts)
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temporary file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write output: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close output: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to move output into place: %w", err)
	}
	return nil
}
