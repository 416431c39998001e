// Package source reads and writes tables at the edges of a tabprep run.
//
// CSV input follows the conventions of the competition data files: the first
// row is a header, a fixed set of tokens ("NA", "", "NaN", ...) mark missing
// cells, and a column is numeric when every observed cell parses as a float.
// SQLite tables are read through database/sql with the pure-Go driver.
package source

import (
	"bufio"
	"encoding/csv"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/YuminosukeSato/tabprep/core/frame"
	"github.com/YuminosukeSato/tabprep/pkg/errors"
)

// DefaultNATokens are the cell values read as missing when CSVOptions.NATokens
// is nil. The set matches what the usual dataframe readers treat as NA.
var DefaultNATokens = []string{
	"", "#N/A", "#N/A N/A", "#NA", "-1.#IND", "-1.#QNAN", "-NaN", "-nan",
	"1.#IND", "1.#QNAN", "<NA>", "N/A", "NA", "NULL", "NaN", "None",
	"n/a", "nan", "null",
}

// utf8BOM is stripped from the first header cell if present.
const utf8BOM = "\uFEFF"

// CSVOptions configures ReadCSV. The zero value reads comma-separated input
// with DefaultNATokens.
type CSVOptions struct {
	// Comma is the field delimiter. When zero, ',' is used.
	Comma rune

	// NATokens replaces DefaultNATokens when non-nil. An empty, non-nil slice
	// disables missing-value detection entirely.
	NATokens []string

	// TrimSpace trims leading and trailing spaces from every cell before NA
	// detection and numeric parsing.
	TrimSpace bool

	// Text lists columns that stay categorical even if every cell is numeric.
	Text []string
}

func (o CSVOptions) naSet() map[string]struct{} {
	tokens := o.NATokens
	if tokens == nil {
		tokens = DefaultNATokens
	}
	set := make(map[string]struct{}, len(tokens))
	for _, tok := range tokens {
		set[tok] = struct{}{}
	}
	return set
}

// ReadCSV parses a header-first CSV stream into a Table.
func ReadCSV(r io.Reader, opt CSVOptions) (*frame.Table, error) {
	cr := csv.NewReader(bufio.NewReaderSize(r, 64*1024))
	if opt.Comma != 0 {
		cr.Comma = opt.Comma
	}
	cr.ReuseRecord = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, errors.Wrap(errors.ErrEmptyData, "csv: missing header")
	}
	if err != nil {
		return nil, errors.Wrap(err, "csv: read header")
	}
	names := make([]string, len(header))
	for i, h := range header {
		if i == 0 {
			h = strings.TrimPrefix(h, utf8BOM)
		}
		names[i] = strings.TrimSpace(h)
	}

	cells := make([][]string, len(names))
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrap(err, "csv: read record")
		}
		for j, v := range rec {
			if opt.TrimSpace {
				v = strings.TrimSpace(v)
			}
			cells[j] = append(cells[j], v)
		}
	}

	na := opt.naSet()
	text := make(map[string]struct{}, len(opt.Text))
	for _, name := range opt.Text {
		text[name] = struct{}{}
	}

	cols := make([]*frame.Column, len(names))
	for j, name := range names {
		_, forceText := text[name]
		cols[j] = inferColumn(name, cells[j], na, forceText)
	}
	return frame.New(cols...)
}

// ReadCSVFile opens path and reads it with ReadCSV.
func ReadCSVFile(path string, opt CSVOptions) (*frame.Table, error) {
	f, err := os.Open(path) //nolint:gosec // G304: path is user-provided input
	if err != nil {
		return nil, errors.Wrapf(err, "csv: open %s", path)
	}
	defer func() { _ = f.Close() }()

	t, err := ReadCSV(f, opt)
	if err != nil {
		return nil, errors.Wrapf(err, "csv: %s", path)
	}
	return t, nil
}

// inferColumn builds a numeric column when every observed cell parses as a
// float and a categorical column otherwise. A column with no observed cell is
// numeric and entirely NaN.
func inferColumn(name string, raw []string, na map[string]struct{}, forceText bool) *frame.Column {
	valid := make([]bool, len(raw))
	for i, v := range raw {
		_, missing := na[v]
		valid[i] = !missing
	}
	if forceText {
		return frame.NewCategorical(name, raw, valid)
	}

	nums := make([]float64, len(raw))
	for i, v := range raw {
		if !valid[i] {
			nums[i] = math.NaN()
			continue
		}
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return frame.NewCategorical(name, raw, valid)
		}
		nums[i] = f
	}
	return frame.NewNumeric(name, nums)
}

// WriteCSV writes t as a header-first CSV stream. Missing cells are written
// as empty fields and numbers in their shortest round-trip form.
func WriteCSV(w io.Writer, t *frame.Table) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Names()); err != nil {
		return errors.Wrap(err, "csv: write header")
	}
	rec := make([]string, t.NumCols())
	for i := 0; i < t.Rows(); i++ {
		for j, c := range t.Columns() {
			v, ok := c.Str(i)
			if !ok {
				v = ""
			}
			rec[j] = v
		}
		if err := cw.Write(rec); err != nil {
			return errors.Wrapf(err, "csv: write row %d", i)
		}
	}
	cw.Flush()
	return errors.Wrap(cw.Error(), "csv: flush")
}

// WriteCSVFile writes t to path. The file is written to a temporary sibling
// first and renamed into place, so a failed write leaves no partial output.
func WriteCSVFile(path string, t *frame.Table) error {
	return writeAtomic(path, func(w io.Writer) error { return WriteCSV(w, t) })
}

func writeAtomic(path string, write func(io.Writer) error) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tabprep-*")
	if err != nil {
		return errors.Wrap(err, "failed to create file")
	}
	defer os.Remove(tmp.Name())

	bw := bufio.NewWriter(tmp)
	if err := write(bw); err != nil {
		tmp.Close()
		return err
	}
	if err := bw.Flush(); err != nil {
		tmp.Close()
		return errors.Wrap(err, "failed to flush file")
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrap(err, "failed to close file")
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return errors.Wrapf(err, "failed to rename into %s", path)
	}
	return nil
}
