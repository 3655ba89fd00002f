package ingest

import (
	"bytes"
	"encoding/csv"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/rotisserie/eris"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/htmlindex"
)

// CSVOptions configures the CSV loader.
type CSVOptions struct {
	// Delimiter overrides the field separator. Default ','.
	Delimiter rune

	// Encoding names the source charset (any WHATWG label, e.g. "latin1",
	// "windows-1252", "shift_jis"). Empty means detect: valid UTF-8 is taken
	// as-is, anything else is decoded as Windows-1252.
	Encoding string
}

var utf8BOM = []byte{0xef, 0xbb, 0xbf}

// LoadCSV reads a CSV file into a single-sheet workbook. The first record is
// the header; the sheet is named after the file.
func LoadCSV(path string, opts CSVOptions) (*Workbook, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "ingest: read csv")
	}

	data, err = decodeCharset(data, opts.Encoding)
	if err != nil {
		return nil, err
	}

	reader := csv.NewReader(bytes.NewReader(data))
	if opts.Delimiter != 0 {
		reader.Comma = opts.Delimiter
	}
	reader.FieldsPerRecord = -1 // allow variable fields
	reader.LazyQuotes = true    // tolerate stray quotes in vendor exports

	records, err := reader.ReadAll()
	if err != nil {
		return nil, eris.Wrap(err, "ingest: parse csv")
	}

	name := stem(path)
	sheet := &Sheet{Name: CleanSheetName(name)}
	if len(records) > 0 {
		sheet.Columns = headerRow(records[0])
		for _, rec := range records[1:] {
			sheet.Rows = append(sheet.Rows, padRow(rec, len(sheet.Columns)))
		}
	}

	return &Workbook{Name: name, Sheets: []*Sheet{sheet}}, nil
}

// decodeCharset converts raw bytes to UTF-8. An explicit encoding always
// wins; otherwise valid UTF-8 passes through and anything else is treated as
// Windows-1252, which decodes every byte sequence.
func decodeCharset(data []byte, encoding string) ([]byte, error) {
	if encoding != "" {
		enc, err := htmlindex.Get(encoding)
		if err != nil {
			return nil, eris.Wrapf(err, "ingest: unknown encoding %q", encoding)
		}
		decoded, err := enc.NewDecoder().Bytes(data)
		if err != nil {
			return nil, eris.Wrapf(err, "ingest: decode %s", encoding)
		}
		return bytes.TrimPrefix(decoded, utf8BOM), nil
	}

	if utf8.Valid(data) {
		return bytes.TrimPrefix(data, utf8BOM), nil
	}

	decoded, err := charmap.Windows1252.NewDecoder().Bytes(data)
	if err != nil {
		return nil, eris.Wrap(err, "ingest: decode windows-1252")
	}
	return decoded, nil
}

// headerRow trims header cells so mapping lookups don't trip on the stray
// whitespace common in hand-edited files.
func headerRow(cells []string) []string {
	header := make([]string, len(cells))
	for i, c := range cells {
		header[i] = strings.TrimSpace(c)
	}
	return header
}
