// =============================================================================
// Invoice Line Extractor - CSV Parser Module
// =============================================================================
//
// This module reads invoice spreadsheets that were exported as CSV and turns
// every record into a table row for the line classifier. It handles:
//   - Different delimiters (comma, semicolon, tab, pipe) with auto-detection
//   - A leading UTF-8 byte-order mark
//   - Windows-1252 / ISO-8859-1 exports (common for Norwegian Excel)
//   - Quoted fields and ragged rows
//
// As with workbooks, no header row is assumed: every record becomes a row and
// header rows are left to the classifier.
//
// CUSTOMIZATION:
//   - Add delimiters to configureReader
//   - Add encodings to decoderFor
//
// =============================================================================

package csvparser

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"

	"github.com/ginjaninja78/invoicelines/internal/types"
)

// =============================================================================
// SETTINGS
// =============================================================================

// Settings controls how a CSV export is read.
type Settings struct {
	// Delimiter is the field separator: ",", ";", "tab", "|".
	// Empty means auto-detect from the first line.
	Delimiter string

	// Encoding is "utf-8", "windows-1252" or "iso-8859-1".
	// Empty means UTF-8, falling back to Windows-1252 when the file is not
	// valid UTF-8.
	Encoding string

	// SkipRows is the number of leading records to ignore (e.g. a banner).
	SkipRows int
}

// sniffSize is the number of bytes inspected for encoding and delimiter detection.
const sniffSize = 4096

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// =============================================================================
// CSV DATA STRUCTURE
// =============================================================================

// CSVData is the content of one CSV export.
type CSVData struct {
	// SourceFile is the path to the source CSV file.
	SourceFile string

	// Rows are the records as table rows.
	Rows []types.RawRow

	// Delimiter is the separator that was used.
	Delimiter rune

	// Encoding is the encoding that was used.
	Encoding string

	// ColumnCount is the field count of the widest record.
	ColumnCount int
}

// =============================================================================
// PARSER FUNCTIONS
// =============================================================================

// Parse reads a CSV file into table rows.
//
// PARAMETERS:
//   - filePath: The path to the CSV file.
//   - settings: The parsing settings from the supplier profile.
//
// RETURNS:
//   - A pointer to the CSVData struct containing the rows.
//   - An error if the file cannot be read or parsed.
func Parse(filePath string, settings Settings) (*CSVData, error) {
	parser, err := NewStreamingParser(filePath, settings)
	if err != nil {
		return nil, err
	}
	defer parser.Close()

	data := &CSVData{
		SourceFile: filePath,
		Delimiter:  parser.Delimiter(),
		Encoding:   parser.Encoding(),
	}

	for parser.Next() {
		row := parser.Row()
		if len(row.Cells) > data.ColumnCount {
			data.ColumnCount = len(row.Cells)
		}
		data.Rows = append(data.Rows, row)
	}
	if err := parser.Err(); err != nil {
		return nil, err
	}

	return data, nil
}

// prepare wraps r with BOM removal and decoding, and picks the delimiter.
func prepare(r io.Reader, settings Settings) (io.Reader, rune, string, error) {
	buffered := bufio.NewReaderSize(r, sniffSize)
	head, err := buffered.Peek(sniffSize)
	if err != nil && err != io.EOF && err != bufio.ErrBufferFull {
		return nil, 0, "", fmt.Errorf("failed to read file: %w", err)
	}

	if bytes.HasPrefix(head, utf8BOM) {
		if _, err := buffered.Discard(len(utf8BOM)); err != nil {
			return nil, 0, "", fmt.Errorf("failed to skip byte-order mark: %w", err)
		}
		head = head[len(utf8BOM):]
	}

	encoding := strings.ToLower(strings.TrimSpace(settings.Encoding))
	if encoding == "" {
		encoding = "utf-8"
		if !validUTF8Prefix(head) {
			encoding = "windows-1252"
		}
	}

	decoder, err := decoderFor(encoding)
	if err != nil {
		return nil, 0, "", err
	}

	var reader io.Reader = buffered
	if decoder != nil {
		reader = transform.NewReader(buffered, decoder.NewDecoder())
	}

	return reader, delimiterFor(settings.Delimiter, head), encoding, nil
}

// validUTF8Prefix checks a sniffed prefix, ignoring a rune cut at the end.
func validUTF8Prefix(head []byte) bool {
	for i := 0; i < utf8.UTFMax && len(head) > 0; i++ {
		if utf8.Valid(head) {
			return true
		}
		head = head[:len(head)-1]
	}
	return utf8.Valid(head)
}

// decoderFor maps an encoding name to a charmap. UTF-8 needs no decoder.
func decoderFor(encoding string) (*charmap.Charmap, error) {
	switch encoding {
	case "utf-8", "utf8":
		return nil, nil
	case "windows-1252", "cp1252":
		return charmap.Windows1252, nil
	case "iso-8859-1", "latin1", "latin-1":
		return charmap.ISO8859_1, nil
	default:
		return nil, fmt.Errorf("unsupported encoding %q", encoding)
	}
}

// delimiterFor resolves the configured delimiter or sniffs it from the first line.
func delimiterFor(configured string, head []byte) rune {
	switch configured {
	case "\\t", "tab", "TAB", "\t":
		return '\t'
	case "|", "pipe", "PIPE":
		return '|'
	case ";", "semicolon":
		return ';'
	case ",", "comma":
		return ','
	case "":
	default:
		r, _ := utf8.DecodeRuneInString(configured)
		return r
	}

	firstLine := head
	if i := bytes.IndexByte(head, '\n'); i >= 0 {
		firstLine = head[:i]
	}

	best, bestCount := ',', 0
	for _, candidate := range []rune{';', '\t', '|', ','} {
		if n := bytes.Count(firstLine, []byte(string(candidate))); n > bestCount {
			best, bestCount = candidate, n
		}
	}
	return best
}

// configureReader configures the CSV reader for ragged invoice exports.
func configureReader(reader *csv.Reader, delimiter rune) {
	reader.Comma = delimiter

	// Invoice exports have rows of different widths.
	reader.FieldsPerRecord = -1

	// Allow lazy quotes (quotes that don't follow strict CSV rules).
	reader.LazyQuotes = true

	reader.TrimLeadingSpace = true
}

// =============================================================================
// STREAMING PARSER
// =============================================================================

// StreamingParser reads a CSV export one record at a time.
//
// USAGE:
//
//	parser, err := NewStreamingParser(filePath, settings)
//	if err != nil {
//	    return err
//	}
//	defer parser.Close()
//
//	for parser.Next() {
//	    row := parser.Row()
//	    // Process the row...
//	}
//
//	if err := parser.Err(); err != nil {
//	    return err
//	}
type StreamingParser struct {
	closer     io.Closer
	reader     *csv.Reader
	delimiter  rune
	encoding   string
	currentRow types.RawRow
	rowNumber  int
	index      int
	err        error
}

// NewStreamingParser opens a CSV file for record-by-record reading.
func NewStreamingParser(filePath string, settings Settings) (*StreamingParser, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}

	parser, err := NewReaderParser(file, settings)
	if err != nil {
		file.Close()
		return nil, err
	}
	parser.closer = file
	return parser, nil
}

// NewReaderParser reads CSV records from a stream.
func NewReaderParser(r io.Reader, settings Settings) (*StreamingParser, error) {
	reader, delimiter, encoding, err := prepare(r, settings)
	if err != nil {
		return nil, err
	}

	csvReader := csv.NewReader(reader)
	configureReader(csvReader, delimiter)

	parser := &StreamingParser{
		reader:    csvReader,
		delimiter: delimiter,
		encoding:  encoding,
	}

	for i := 0; i < settings.SkipRows; i++ {
		if _, err := csvReader.Read(); err != nil {
			if err == io.EOF {
				break
			}
			return nil, fmt.Errorf("error skipping row %d: %w", i+1, err)
		}
		parser.rowNumber++
	}

	return parser, nil
}

// Next advances to the next record. Returns false when there are no more records.
func (p *StreamingParser) Next() bool {
	if p.err != nil {
		return false
	}

	record, err := p.reader.Read()
	if err == io.EOF {
		return false
	}
	if err != nil {
		p.err = fmt.Errorf("error reading row %d: %w", p.rowNumber+1, err)
		return false
	}
	p.rowNumber++

	p.currentRow = types.RawRow{
		Cells:  record,
		Page:   1,
		Index:  p.index,
		Source: types.SourceTable,
	}
	p.index++
	return true
}

// Row returns the current record.
func (p *StreamingParser) Row() types.RawRow {
	return p.currentRow
}

// RowNumber returns the current record number (1-indexed, skipped rows included).
func (p *StreamingParser) RowNumber() int {
	return p.rowNumber
}

// Delimiter returns the field separator in use.
func (p *StreamingParser) Delimiter() rune {
	return p.delimiter
}

// Encoding returns the encoding in use.
func (p *StreamingParser) Encoding() string {
	return p.encoding
}

// Err returns any error that occurred during parsing.
func (p *StreamingParser) Err() error {
	return p.err
}

// Close closes the underlying file, if any.
func (p *StreamingParser) Close() error {
	if p.closer == nil {
		return nil
	}
	return p.closer.Close()
}
