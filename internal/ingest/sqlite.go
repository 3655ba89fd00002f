package ingest

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"
)

// LoadSQLite opens a SQLite database and loads every user table as a sheet.
// Tables are read in name order; names are cleaned to valid sheet names.
func LoadSQLite(ctx context.Context, path string) (*Workbook, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, eris.Wrap(err, "ingest: open sqlite")
	}
	defer db.Close()

	tables, err := listTables(ctx, db)
	if err != nil {
		return nil, err
	}
	if len(tables) == 0 {
		return nil, eris.New("ingest: no tables in sqlite database")
	}

	wb := &Workbook{Name: stem(path)}
	for _, table := range tables {
		sheet, err := loadTable(ctx, db, table)
		if err != nil {
			return nil, err
		}
		wb.Sheets = append(wb.Sheets, sheet)
	}
	return wb, nil
}

func listTables(ctx context.Context, db *sql.DB) ([]string, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT name FROM sqlite_master WHERE type='table' AND name NOT LIKE 'sqlite_%' ORDER BY name`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "ingest: list sqlite tables")
	}
	defer rows.Close()

	var tables []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, eris.Wrap(err, "ingest: scan table name")
		}
		tables = append(tables, name)
	}
	return tables, eris.Wrap(rows.Err(), "ingest: iterate sqlite tables")
}

func loadTable(ctx context.Context, db *sql.DB, table string) (*Sheet, error) {
	quoted := `"` + strings.ReplaceAll(table, `"`, `""`) + `"`
	rows, err := db.QueryContext(ctx, "SELECT * FROM "+quoted)
	if err != nil {
		return nil, eris.Wrapf(err, "ingest: read table %s", table)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, eris.Wrapf(err, "ingest: columns of %s", table)
	}

	sheet := &Sheet{Name: CleanSheetName(table), Columns: headerRow(cols)}
	values := make([]any, len(cols))
	scan := make([]any, len(cols))
	for i := range values {
		scan[i] = &values[i]
	}

	for rows.Next() {
		if err := rows.Scan(scan...); err != nil {
			return nil, eris.Wrapf(err, "ingest: scan row of %s", table)
		}
		row := make([]string, len(cols))
		for i, v := range values {
			row[i] = cellString(v)
		}
		sheet.Rows = append(sheet.Rows, row)
	}
	return sheet, eris.Wrapf(rows.Err(), "ingest: iterate table %s", table)
}

// cellString renders a scanned SQLite value the way it would appear in a
// spreadsheet cell. NULL becomes the empty string.
func cellString(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case []byte:
		return string(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64)
	case time.Time:
		return x.Format(time.RFC3339)
	default:
		return fmt.Sprint(x)
	}
}
