// Package submission writes predictions in the competition's two-column
// format: the key of every prediction row followed by its predicted target.
//
// A Writer is built from the prediction table before any preprocessing, so
// the key column it captures is the one the predictions line up with.
//
//	w, err := submission.NewWriter(test, "Id")
//	...
//	preds := model.Predict(matrix)
//	err = w.Write(preds, "submission.csv")
package submission

import (
	"bufio"
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/YuminosukeSato/tabprep/core/frame"
	"github.com/YuminosukeSato/tabprep/pkg/errors"
	"github.com/YuminosukeSato/tabprep/pkg/log"
)

const (
	// DefaultKeyColumn is the row identifier of the Ames data files.
	DefaultKeyColumn = "Id"
	// TargetColumn is the header of the prediction column.
	TargetColumn = "SalePrice"
)

// Writer holds the key column of one prediction table.
type Writer struct {
	key    *frame.Column
	target string
	logger log.Logger
}

// Option configures a Writer.
type Option func(*Writer)

// WithTargetName overrides the header of the prediction column.
func WithTargetName(name string) Option {
	return func(w *Writer) {
		w.target = name
	}
}

// WithLogger sets the logger used to report written files.
func WithLogger(l log.Logger) Option {
	return func(w *Writer) {
		w.logger = l
	}
}

// NewWriter captures keyColumn from t. The column must exist.
func NewWriter(t *frame.Table, keyColumn string, opts ...Option) (*Writer, error) {
	if keyColumn == "" {
		keyColumn = DefaultKeyColumn
	}
	key, ok := t.Column(keyColumn)
	if !ok {
		return nil, errors.NewColumnNotFoundError("submission", keyColumn)
	}
	w := &Writer{key: key, target: TargetColumn}
	for _, opt := range opts {
		opt(w)
	}
	if w.logger == nil {
		w.logger = log.GetLoggerWithName("submission")
	}
	return w, nil
}

// Len returns the number of rows of the captured key column.
func (w *Writer) Len() int { return w.key.Len() }

// Key returns the captured key column.
func (w *Writer) Key() *frame.Column { return w.key }

// Table returns the merged key/prediction table. len(preds) must equal Len
// and every prediction must be finite.
func (w *Writer) Table(preds []float64) (*frame.Table, error) {
	if len(preds) != w.Len() {
		return nil, errors.NewShapeMismatchError("submission", w.Len(), len(preds))
	}
	if err := errors.CheckNumericalStability("submission", preds); err != nil {
		return nil, err
	}
	return frame.New(w.key, frame.NewNumeric(w.target, preds))
}

// Write merges preds with the key column and writes the result as CSV to
// path. On a length mismatch it returns a ShapeMismatchError, on a NaN or Inf
// prediction a NonFiniteValueError, and in both cases no file is created.
func (w *Writer) Write(preds []float64, path string) error {
	t, err := w.Table(preds)
	if err != nil {
		code := log.ErrorShapeMismatch
		var nonFinite *errors.NonFiniteValueError
		if errors.As(err, &nonFinite) {
			code = log.ErrorNonFinite
		}
		w.logger.Error("submission rejected",
			log.ErrAttrKey, err,
			log.ErrorCodeKey, code,
			log.RowsKey, w.Len(),
		)
		return err
	}
	if err := writeFile(path, t); err != nil {
		return err
	}
	w.logger.Info("submission written",
		log.SourceKey, path,
		log.RowsKey, t.Rows(),
	)
	return nil
}

// WriteTo writes the merged table to out without touching the filesystem.
func (w *Writer) WriteTo(preds []float64, out io.Writer) error {
	t, err := w.Table(preds)
	if err != nil {
		return err
	}
	return writeCSV(out, t)
}

func writeCSV(out io.Writer, t *frame.Table) error {
	cw := csv.NewWriter(out)
	if err := cw.Write(t.Names()); err != nil {
		return errors.Wrap(err, "submission: write header")
	}
	rec := make([]string, t.NumCols())
	for i := 0; i < t.Rows(); i++ {
		for j, c := range t.Columns() {
			rec[j], _ = c.Str(i)
		}
		if err := cw.Write(rec); err != nil {
			return errors.Wrapf(err, "submission: write row %d", i)
		}
	}
	cw.Flush()
	return errors.Wrap(cw.Error(), "submission: flush")
}

func writeFile(path string, t *frame.Table) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tabprep-submission-*")
	if err != nil {
		return errors.Wrap(err, "failed to create file")
	}
	defer os.Remove(tmp.Name())

	if err := writeCSV(tmp, t); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrap(err, "failed to close file")
	}
	return errors.Wrap(os.Rename(tmp.Name(), path), "failed to rename submission file")
}

// ReadPredictions reads one prediction per line from r. Blank lines are
// skipped. A first line that does not parse as a number is taken as a header.
// Lines with several comma-separated fields use the last field, so a previous
// submission file can be read back. NaN and Inf are rejected.
func ReadPredictions(r io.Reader) ([]float64, error) {
	sc := bufio.NewScanner(r)
	var preds []float64
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" {
			continue
		}
		if i := strings.LastIndexByte(text, ','); i >= 0 {
			text = strings.TrimSpace(text[i+1:])
		}
		v, err := strconv.ParseFloat(text, 64)
		if err != nil {
			if len(preds) == 0 && line == 1 {
				continue
			}
			return nil, errors.NewValidationError("predictions", "line "+strconv.Itoa(line)+" is not a number", text)
		}
		preds = append(preds, v)
	}
	if err := sc.Err(); err != nil {
		return nil, errors.Wrap(err, "read predictions")
	}
	if err := errors.CheckNumericalStability("read predictions", preds); err != nil {
		return nil, err
	}
	return preds, nil
}

// ReadPredictionsFile opens path and reads it with ReadPredictions.
func ReadPredictionsFile(path string) ([]float64, error) {
	f, err := os.Open(path) //nolint:gosec // G304: path is user-provided input
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", path)
	}
	defer func() { _ = f.Close() }()
	return ReadPredictions(f)
}
