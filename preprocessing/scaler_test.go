package preprocessing

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YuminosukeSato/tabprep/core/model"
	"github.com/YuminosukeSato/tabprep/pkg/errors"
)

func TestStandardScaler(t *testing.T) {
	in := table(t,
		num("Lot Area", 1, 2, 3, nan),
		num("Constant", 5, 5, 5, 5),
		cat("Street", "Pave", "Pave", "Grvl", "Pave"),
	)
	fitted, out := fitTransform(t, NewStandardScalerDefault(), in)

	area := column(t, out, "Lot Area")
	std := math.Sqrt(2.0 / 3.0)
	assert.InDelta(t, -1/std, area.Float(0), 1e-12)
	assert.InDelta(t, 0, area.Float(1), 1e-12)
	assert.InDelta(t, 1/std, area.Float(2), 1e-12)
	assert.True(t, area.IsMissing(3))

	assert.Equal(t, []float64{0, 0, 0, 0}, column(t, out, "Constant").Floats(), "zero variance keeps scale 1")
	assert.Equal(t, []string{"Pave", "Pave", "Grvl", "Pave"}, strs(t, out, "Street"))

	back, err := fitted.(*FittedScaler).InverseTransform(out)
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{1, 2, 3}, column(t, back, "Lot Area").Floats()[:3], 1e-12)

	raw, err := fitted.(model.Exporter).ExportState()
	require.NoError(t, err)
	restored, err := NewStandardScalerDefault().Restore(raw)
	require.NoError(t, err)
	again, err := restored.Transform(in)
	require.NoError(t, err)
	assert.InDelta(t, area.Float(2), column(t, again, "Lot Area").Float(2), 1e-12)
}

func TestStandardScaler_Options(t *testing.T) {
	in := table(t, num("x", 2, 4))
	_, out := fitTransform(t, NewStandardScaler(false, true), in)
	assert.Equal(t, []float64{2, 4}, column(t, out, "x").Floats())

	_, out = fitTransform(t, NewStandardScaler(true, false), in)
	assert.Equal(t, []float64{-1, 1}, column(t, out, "x").Floats())
}

func TestStandardScaler_EmptyTable(t *testing.T) {
	_, err := NewStandardScalerDefault().Fit(table(t, num("x")))
	assert.True(t, errors.Is(err, errors.ErrEmptyData))
}

func TestMinMaxScaler(t *testing.T) {
	in := table(t, num("x", 10, 20, 30), num("all missing", nan, nan, nan))
	fitted, out := fitTransform(t, NewMinMaxScaler([2]float64{-1, 1}), in)
	assert.Equal(t, []float64{-1, 0, 1}, column(t, out, "x").Floats())
	assert.Len(t, fitted.(*FittedScaler).Scales(), 1)

	_, err := NewMinMaxScaler([2]float64{1, 1}).Fit(in)
	var ve *errors.ValidationError
	assert.True(t, errors.As(err, &ve))

	_, err = NewMinMaxScalerDefault().Restore([]byte(`{"columns":[{"column":"x","offset":0,"scale":0}]}`))
	assert.True(t, errors.As(err, &ve))
}

func TestZeroFiller(t *testing.T) {
	in := table(t, num("x", nan, 1), cat("y", "", "a"), num("z", 1, 2))
	_, out := fitTransform(t, NewZeroFiller(), in)
	assert.Equal(t, []float64{0, 1}, column(t, out, "x").Floats())
	assert.Equal(t, []string{"0", "a"}, strs(t, out, "y"))
	assert.Equal(t, in.Names(), out.Names())
	for _, c := range out.Columns() {
		assert.Zero(t, c.MissingCount())
	}
}
