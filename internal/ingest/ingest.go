// Package ingest loads part-list sources into a uniform sheet model and
// combines them into the single table the resolver and exporters consume.
// Sources are CSV files, XLSX workbooks, or SQLite databases, addressed by
// local path or by http(s)/ftp URL through the fetch layer.
package ingest

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/edm-tools/partmatch-cli/internal/model"
)

// Canonical column names understood by the combine step and every consumer
// downstream of it.
const (
	ColSourceSheet = "Source_Sheet"
	ColMFG         = "MFG"
	ColMFGPN       = "MFG_PN"
	ColPartNumber  = "Part_Number"
	ColDescription = "Description"
)

// Sheet is one rectangular table: a header row plus string cells. Rows are
// padded to the header width on load, so indexing by column is always safe.
type Sheet struct {
	Name    string
	Columns []string
	Rows    [][]string
}

// ColumnIndex returns the position of the named column, or -1.
func (s *Sheet) ColumnIndex(name string) int {
	for i, c := range s.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// Parts converts rows to model.Part values using the canonical columns.
// Missing columns yield empty fields; values are whitespace-trimmed.
func (s *Sheet) Parts() []model.Part {
	mfg := s.ColumnIndex(ColMFG)
	mfgpn := s.ColumnIndex(ColMFGPN)
	pn := s.ColumnIndex(ColPartNumber)
	desc := s.ColumnIndex(ColDescription)
	src := s.ColumnIndex(ColSourceSheet)

	parts := make([]model.Part, 0, len(s.Rows))
	for _, row := range s.Rows {
		parts = append(parts, model.Part{
			Manufacturer: strings.TrimSpace(cellAt(row, mfg)),
			PartNumber:   strings.TrimSpace(cellAt(row, mfgpn)),
			InternalPN:   strings.TrimSpace(cellAt(row, pn)),
			Description:  strings.TrimSpace(cellAt(row, desc)),
			SourceSheet:  cellAt(row, src),
		})
	}
	return parts
}

// Workbook is an ordered collection of sheets from one source.
type Workbook struct {
	Name   string
	Sheets []*Sheet
}

// Sheet returns the named sheet.
func (w *Workbook) Sheet(name string) (*Sheet, bool) {
	for _, s := range w.Sheets {
		if s.Name == name {
			return s, true
		}
	}
	return nil, false
}

// SheetNames returns sheet names in source order.
func (w *Workbook) SheetNames() []string {
	names := make([]string, len(w.Sheets))
	for i, s := range w.Sheets {
		names[i] = s.Name
	}
	return names
}

// LoadSource loads a local part-list file, dispatching on its extension.
func LoadSource(ctx context.Context, path string, opts CSVOptions) (*Workbook, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".xlsx":
		return LoadXLSX(path)
	case ".csv":
		return LoadCSV(path, opts)
	case ".db", ".sqlite", ".sqlite3":
		return LoadSQLite(ctx, path)
	case ".xls":
		return nil, eris.New("ingest: legacy .xls workbooks are not supported, convert to .xlsx")
	case ".mdb", ".accdb":
		return nil, eris.New("ingest: access databases are not supported, export to sqlite or xlsx first")
	default:
		return nil, eris.Errorf("ingest: unsupported source type %q", ext)
	}
}

const maxSheetNameLength = 31

// CleanSheetName strips the characters Excel forbids in sheet names and caps
// the result at 31 characters.
func CleanSheetName(name string) string {
	name = strings.Map(func(r rune) rune {
		switch r {
		case '\\', '/', '*', '?', ':', '[', ']':
			return -1
		}
		return r
	}, name)
	if runes := []rune(name); len(runes) > maxSheetNameLength {
		name = string(runes[:maxSheetNameLength])
	}
	return name
}

func cellAt(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return row[i]
}

func blank(v string) bool {
	return strings.TrimSpace(v) == ""
}

// stem returns the file name without directory or extension.
func stem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// padRow extends a short row with empty cells to the given width.
func padRow(row []string, width int) []string {
	if len(row) >= width {
		return row
	}
	padded := make([]string, width)
	copy(padded, row)
	return padded
}
