package source

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/YuminosukeSato/tabprep/core/frame"
	"github.com/YuminosukeSato/tabprep/pkg/errors"

	_ "modernc.org/sqlite" // SQLite driver (pure Go)
)

// openSQLite opens the database at path and pings it so that an unusable
// path fails here rather than on the first query.
func openSQLite(ctx context.Context, path string) (*sql.DB, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.NewValidationError("path", "sqlite path must not be empty", path)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.Wrap(err, "sqlite: open")
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "sqlite: ping")
	}
	return db, nil
}

// quoteIdent quotes a table or column name for SQLite.
func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// ReadSQLite reads every row of table into a Table. NULL cells are missing.
// A column whose non-NULL cells are all INTEGER or REAL becomes numeric; any
// other column becomes categorical, with numbers rendered as text.
func ReadSQLite(ctx context.Context, path, table string) (*frame.Table, error) {
	if table == "" {
		return nil, errors.NewValidationError("table", "table name must not be empty", table)
	}
	db, err := openSQLite(ctx, path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = db.Close() }()

	rows, err := db.QueryContext(ctx, "SELECT * FROM "+quoteIdent(table)) //nolint:gosec // identifier is quoted
	if err != nil {
		return nil, errors.Wrapf(err, "sqlite: query table %s", table)
	}
	defer func() { _ = rows.Close() }()

	names, err := rows.Columns()
	if err != nil {
		return nil, errors.Wrap(err, "sqlite: columns")
	}

	cells := make([][]any, len(names))
	dest := make([]any, len(names))
	ptrs := make([]any, len(names))
	for i := range dest {
		ptrs[i] = &dest[i]
	}
	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return nil, errors.Wrap(err, "sqlite: scan")
		}
		for j, v := range dest {
			cells[j] = append(cells[j], v)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "sqlite: rows")
	}

	cols := make([]*frame.Column, len(names))
	for j, name := range names {
		cols[j] = sqlColumn(name, cells[j])
	}
	return frame.New(cols...)
}

func sqlColumn(name string, raw []any) *frame.Column {
	nums := make([]float64, len(raw))
	numeric := true
	for i, v := range raw {
		switch x := v.(type) {
		case nil:
			nums[i] = math.NaN()
		case int64:
			nums[i] = float64(x)
		case float64:
			nums[i] = x
		default:
			numeric = false
		}
		if !numeric {
			break
		}
	}
	if numeric {
		return frame.NewNumeric(name, nums)
	}

	strs := make([]string, len(raw))
	valid := make([]bool, len(raw))
	for i, v := range raw {
		switch x := v.(type) {
		case nil:
			continue
		case int64:
			strs[i] = strconv.FormatInt(x, 10)
		case float64:
			strs[i] = frame.FormatFloat(x)
		case []byte:
			strs[i] = string(x)
		case string:
			strs[i] = x
		case time.Time:
			strs[i] = x.Format(time.RFC3339Nano)
		default:
			strs[i] = fmt.Sprint(x)
		}
		valid[i] = true
	}
	return frame.NewCategorical(name, strs, valid)
}

// WriteSQLite replaces table with the contents of t inside one transaction.
// Numeric columns are declared REAL and categorical columns TEXT; missing
// cells are stored as NULL.
func WriteSQLite(ctx context.Context, path, table string, t *frame.Table) error {
	if table == "" {
		return errors.NewValidationError("table", "table name must not be empty", table)
	}
	if t.NumCols() == 0 {
		return errors.NewValidationError("table", "cannot store a table without columns", table)
	}
	db, err := openSQLite(ctx, path)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "sqlite: begin tx")
	}
	defer func() { _ = tx.Rollback() }()

	defs := make([]string, t.NumCols())
	idents := make([]string, t.NumCols())
	placeholders := make([]string, t.NumCols())
	for j, c := range t.Columns() {
		typ := "TEXT"
		if c.IsNumeric() {
			typ = "REAL"
		}
		idents[j] = quoteIdent(c.Name())
		defs[j] = idents[j] + " " + typ
		placeholders[j] = "?"
	}

	if _, err := tx.ExecContext(ctx, "DROP TABLE IF EXISTS "+quoteIdent(table)); err != nil {
		return errors.Wrapf(err, "sqlite: drop table %s", table)
	}
	create := fmt.Sprintf("CREATE TABLE %s (%s)", quoteIdent(table), strings.Join(defs, ", "))
	if _, err := tx.ExecContext(ctx, create); err != nil {
		return errors.Wrapf(err, "sqlite: create table %s", table)
	}

	insert := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		quoteIdent(table), strings.Join(idents, ", "), strings.Join(placeholders, ", "))
	stmt, err := tx.PrepareContext(ctx, insert)
	if err != nil {
		return errors.Wrap(err, "sqlite: prepare insert")
	}
	defer func() { _ = stmt.Close() }()

	args := make([]any, t.NumCols())
	for i := 0; i < t.Rows(); i++ {
		for j, c := range t.Columns() {
			switch {
			case c.IsMissing(i):
				args[j] = nil
			case c.IsNumeric():
				args[j] = c.Float(i)
			default:
				args[j], _ = c.Str(i)
			}
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return errors.Wrapf(err, "sqlite: insert row %d", i)
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, "sqlite: commit")
	}
	return nil
}
