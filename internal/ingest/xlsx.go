package ingest

import (
	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
)

// LoadXLSX reads every sheet of an XLSX workbook. Each sheet's first row is
// its header.
func LoadXLSX(path string) (*Workbook, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "ingest: open workbook")
	}

	wb := &Workbook{Name: stem(path)}
	for _, src := range f.Sheets {
		sheet := &Sheet{Name: src.Name}
		for i, row := range src.Rows {
			cells := rowToStrings(row)
			if i == 0 {
				sheet.Columns = headerRow(cells)
				continue
			}
			sheet.Rows = append(sheet.Rows, padRow(cells, len(sheet.Columns)))
		}
		wb.Sheets = append(wb.Sheets, sheet)
	}
	return wb, nil
}

// WriteWorkbook saves sheets to an XLSX file in order, cleaning sheet names
// to Excel's rules.
func WriteWorkbook(path string, sheets []*Sheet) error {
	f := xlsx.NewFile()
	for _, s := range sheets {
		out, err := f.AddSheet(CleanSheetName(s.Name))
		if err != nil {
			return eris.Wrapf(err, "ingest: add sheet %q", s.Name)
		}
		header := out.AddRow()
		for _, c := range s.Columns {
			header.AddCell().SetString(c)
		}
		for _, row := range s.Rows {
			r := out.AddRow()
			for _, v := range row {
				r.AddCell().SetString(v)
			}
		}
	}
	return eris.Wrap(f.Save(path), "ingest: save workbook")
}

func rowToStrings(row *xlsx.Row) []string {
	cells := make([]string, len(row.Cells))
	for j, cell := range row.Cells {
		cells[j] = cell.String()
	}
	return cells
}
