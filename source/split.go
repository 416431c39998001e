package source

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/YuminosukeSato/tabprep/core/frame"
	"github.com/YuminosukeSato/tabprep/pkg/errors"
)

// Split is a table with its key and target columns taken out. Target is nil
// when the input had no target column, as with prediction tables.
type Split struct {
	Key      *frame.Column
	Target   *frame.Column
	Features *frame.Table
}

// SplitKeyTarget separates the key column and, if present, the target column
// from t. The key column is required.
func SplitKeyTarget(t *frame.Table, key, target string) (*Split, error) {
	k, ok := t.Column(key)
	if !ok {
		return nil, errors.NewColumnNotFoundError("split", key)
	}
	drop := []string{key}
	var y *frame.Column
	if target != "" && target != key {
		if c, ok := t.Column(target); ok {
			y = c
			drop = append(drop, target)
		}
	}
	features, err := t.Drop(drop...)
	if err != nil {
		return nil, err
	}
	return &Split{Key: k, Target: y, Features: features}, nil
}

// WithKey returns t with key as its first column.
func WithKey(key *frame.Column, t *frame.Table) (*frame.Table, error) {
	cols := make([]*frame.Column, 0, t.NumCols()+1)
	cols = append(cols, key)
	cols = append(cols, t.Columns()...)
	return frame.New(cols...)
}

// IsSQLite reports whether path names a SQLite database by its extension.
func IsSQLite(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".db", ".sqlite", ".sqlite3":
		return true
	}
	return false
}

// Load reads path as a SQLite table when it has a database extension and as
// CSV otherwise. table is required for SQLite input and ignored for CSV.
func Load(ctx context.Context, path, table string, opt CSVOptions) (*frame.Table, error) {
	if IsSQLite(path) {
		return ReadSQLite(ctx, path, table)
	}
	return ReadCSVFile(path, opt)
}
