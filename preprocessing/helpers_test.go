package preprocessing

import (
	"math"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/YuminosukeSato/tabprep/core/frame"
	"github.com/YuminosukeSato/tabprep/core/model"
	"github.com/YuminosukeSato/tabprep/pkg/errors"
)

var nan = math.NaN()

// cat builds a categorical column where "" marks a missing cell.
func cat(name string, values ...string) *frame.Column {
	return frame.NewCategoricalNA(name, values, "")
}

func num(name string, values ...float64) *frame.Column {
	return frame.NewNumeric(name, values)
}

func table(t *testing.T, cols ...*frame.Column) *frame.Table {
	t.Helper()
	tbl, err := frame.New(cols...)
	require.NoError(t, err)
	return tbl
}

func fitTransform(t *testing.T, s model.Stage, tbl *frame.Table) (model.FittedStage, *frame.Table) {
	t.Helper()
	fitted, out, err := model.FitTransform(s, tbl)
	require.NoError(t, err)
	return fitted, out
}

func column(t *testing.T, tbl *frame.Table, name string) *frame.Column {
	t.Helper()
	c, ok := tbl.Column(name)
	require.True(t, ok, "column %q not in %v", name, tbl.Names())
	return c
}

func strs(t *testing.T, tbl *frame.Table, name string) []string {
	t.Helper()
	values, _ := column(t, tbl, name).Strings()
	return values
}

// captureWarnings collects errors.Warn calls until the returned func is called.
func captureWarnings(t *testing.T) (*[]error, func()) {
	t.Helper()
	var mu sync.Mutex
	var got []error
	errors.SetWarningHandler(func(w error) {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, w)
	})
	return &got, func() {
		errors.SetWarningHandler(func(error) {})
	}
}
