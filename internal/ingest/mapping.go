package ingest

import (
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// Mapping names the source columns of one sheet that feed the canonical
// combined columns. Empty fields mean the sheet has no such column. MFGPN2
// is a fallback only: it is never renamed into the output, its values fill
// MFG_PN cells the primary column left blank.
type Mapping struct {
	MFG         string `yaml:"mfg"`
	MFGPN       string `yaml:"mfg_pn"`
	MFGPN2      string `yaml:"mfg_pn_2"`
	PartNumber  string `yaml:"part_number"`
	Description string `yaml:"description"`
}

// Filters are the row-level quality gates applied after mapping. Each gate
// drops rows whose canonical column is blank, and only applies when the
// sheet actually has that column.
type Filters struct {
	RequireMFG         bool
	RequireMFGPN       bool
	RequirePartNumber  bool
	RequireDescription bool
}

// DefaultFilters requires a manufacturer and a manufacturer part number,
// which is the minimum a catalog query needs.
func DefaultFilters() Filters {
	return Filters{RequireMFG: true, RequireMFGPN: true}
}

// CombineOptions drives Combine.
type CombineOptions struct {
	// Mappings is keyed by sheet name. Sheets without an entry are skipped.
	Mappings map[string]Mapping
	// IncludeSheets restricts processing to the named sheets. Empty means
	// every sheet in the workbook.
	IncludeSheets []string
	Filters       Filters
	// FillTBD writes "TBD" into blank MFG cells on rows that do have a
	// part number, so the row survives a require-MFG filter and is flagged
	// for later normalization.
	FillTBD bool
}

// CombinedSheetName is the sheet Combine produces.
const CombinedSheetName = "Combined"

// fillTBDValue marks manufacturers that still need identification.
const fillTBDValue = "TBD"

// Combine flattens the mapped sheets of a workbook into a single sheet.
// Each source sheet keeps its original columns (mapped ones renamed to the
// canonical names) plus a Source_Sheet column; the output columns are the
// union across sheets in first-appearance order, short rows padded with
// blanks. Returns an error when no rows survive the filters.
func Combine(wb *Workbook, opts CombineOptions) (*Sheet, error) {
	combined := &Sheet{Name: CombinedSheetName}
	colIndex := map[string]int{}

	addColumn := func(name string) int {
		if i, ok := colIndex[name]; ok {
			return i
		}
		combined.Columns = append(combined.Columns, name)
		colIndex[name] = len(combined.Columns) - 1
		return len(combined.Columns) - 1
	}

	targets := opts.IncludeSheets
	if len(targets) == 0 {
		targets = wb.SheetNames()
	}

	for _, name := range targets {
		sheet, ok := wb.Sheet(name)
		if !ok {
			continue
		}
		mapping, ok := opts.Mappings[name]
		if !ok {
			continue
		}

		header := renameColumns(sheet.Columns, mapping)
		header = append(header, ColSourceSheet)

		mfg := indexOf(header, ColMFG)
		mfgpn := indexOf(header, ColMFGPN)
		fallback := -1
		if mapping.MFGPN != "" && mapping.MFGPN2 != "" {
			fallback = indexOf(sheet.Columns, mapping.MFGPN2)
		}

		dest := make([]int, len(header))
		for i, col := range header {
			dest[i] = addColumn(col)
		}

		kept := 0
		for _, src := range sheet.Rows {
			row := make([]string, len(header))
			copy(row, padRow(src, len(header)-1))
			row[len(header)-1] = name

			if mfgpn >= 0 && fallback >= 0 && blank(row[mfgpn]) {
				row[mfgpn] = cellAt(src, fallback)
			}
			if opts.FillTBD && mfg >= 0 && mfgpn >= 0 && blank(row[mfg]) && !blank(row[mfgpn]) {
				row[mfg] = fillTBDValue
			}
			if !passesFilters(row, mfg, mfgpn, indexOf(header, ColPartNumber), indexOf(header, ColDescription), opts.Filters) {
				continue
			}

			out := make([]string, len(combined.Columns))
			for i, v := range row {
				out[dest[i]] = v
			}
			combined.Rows = append(combined.Rows, out)
			kept++
		}

		zap.L().Debug("combined sheet",
			zap.String("sheet", name),
			zap.Int("rows", len(sheet.Rows)),
			zap.Int("kept", kept))
	}

	if len(combined.Rows) == 0 {
		return nil, eris.New("ingest: no rows remained after mappings and filters")
	}

	// Later sheets may have introduced new columns.
	for i, row := range combined.Rows {
		combined.Rows[i] = padRow(row, len(combined.Columns))
	}
	return combined, nil
}

// renameColumns replaces mapped source column names with the canonical
// names, leaving everything else untouched. First mapping wins when two
// canonical targets name the same source column.
func renameColumns(columns []string, m Mapping) []string {
	renames := []struct{ from, to string }{
		{m.MFG, ColMFG},
		{m.MFGPN, ColMFGPN},
		{m.PartNumber, ColPartNumber},
		{m.Description, ColDescription},
	}
	out := make([]string, len(columns))
	copy(out, columns)
	for _, r := range renames {
		if r.from == "" {
			continue
		}
		for i, col := range columns {
			if col == r.from && out[i] == col {
				out[i] = r.to
				break
			}
		}
	}
	return out
}

func passesFilters(row []string, mfg, mfgpn, pn, desc int, f Filters) bool {
	if f.RequireMFG && mfg >= 0 && blank(row[mfg]) {
		return false
	}
	if f.RequireMFGPN && mfgpn >= 0 && blank(row[mfgpn]) {
		return false
	}
	if f.RequirePartNumber && pn >= 0 && blank(row[pn]) {
		return false
	}
	if f.RequireDescription && desc >= 0 && blank(row[desc]) {
		return false
	}
	return true
}

func indexOf(columns []string, name string) int {
	for i, c := range columns {
		if c == name {
			return i
		}
	}
	return -1
}
