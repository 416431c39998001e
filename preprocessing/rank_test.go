package preprocessing

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YuminosukeSato/tabprep/pkg/errors"
)

var quality = Ordinal{Column: "Exter Qual", Levels: []string{"Po", "Fa", "TA", "Gd", "Ex"}, Start: 1}
var garageQual = Ordinal{Column: "Garage Qual", Levels: []string{"None", "Po", "Fa", "TA", "Gd", "Ex"}, Start: 0}

func TestOrdinal_Rank(t *testing.T) {
	r, ok := quality.Rank("Po")
	assert.True(t, ok)
	assert.Equal(t, 1, r)
	r, ok = garageQual.Rank("None")
	assert.True(t, ok)
	assert.Equal(t, 0, r)
	_, ok = quality.Rank("Excellent")
	assert.False(t, ok)
}

func TestRankMapper_KnownLevels(t *testing.T) {
	in := table(t,
		cat("Exter Qual", "Po", "Fa", "TA", "Gd", "Ex"),
		cat("Garage Qual", "None", "TA", "", "Ex", "Po"),
		num("Lot Area", 1, 2, 3, 4, 5),
	)
	_, out := fitTransform(t, NewRankMapper([]Ordinal{quality, garageQual}), in)

	assert.Equal(t, in.Names(), out.Names())
	assert.Equal(t, []float64{1, 2, 3, 4, 5}, column(t, out, "Exter Qual").Floats())

	g := column(t, out, "Garage Qual")
	assert.True(t, g.IsNumeric())
	assert.Equal(t, 0.0, g.Float(0))
	assert.Equal(t, 3.0, g.Float(1))
	assert.True(t, g.IsMissing(2), "missing input stays missing")
	assert.Equal(t, 5.0, g.Float(3))

	// input is not mutated
	assert.False(t, column(t, in, "Exter Qual").IsNumeric())
}

func TestRankMapper_AbsentColumnsSkipped(t *testing.T) {
	in := table(t, num("Lot Area", 1))
	_, out := fitTransform(t, NewRankMapper([]Ordinal{quality}), in)
	assert.True(t, in.Equal(out))
}

func TestRankMapper_UnknownLevel(t *testing.T) {
	in := table(t, cat("Exter Qual", "Gd", "Gdd", "TA", "Exc"))

	t.Run("lenient nulls and warns", func(t *testing.T) {
		warnings, restore := captureWarnings(t)
		defer restore()

		_, out := fitTransform(t, NewRankMapper([]Ordinal{quality}), in)
		c := column(t, out, "Exter Qual")
		assert.Equal(t, 4.0, c.Float(0))
		assert.True(t, math.IsNaN(c.Float(1)))
		assert.Equal(t, 3.0, c.Float(2))
		assert.True(t, math.IsNaN(c.Float(3)))

		require.Len(t, *warnings, 1)
		var loss *errors.DataLossWarning
		require.True(t, errors.As((*warnings)[0], &loss))
		assert.Equal(t, "Exter Qual", loss.Column)
		assert.Equal(t, 2, loss.Count)
	})

	t.Run("strict fails fast", func(t *testing.T) {
		_, err := NewRankMapper([]Ordinal{quality}, WithUnknownLevels(UnknownAsError)).Transform(in)
		var unknown *errors.UnknownLevelError
		require.True(t, errors.As(err, &unknown))
		assert.Equal(t, "Exter Qual", unknown.Column)
		assert.Equal(t, "Gdd", unknown.Level)
		assert.Equal(t, 1, unknown.Row)
	})
}

func TestRankMapper_NumericInput(t *testing.T) {
	ord := Ordinal{Column: "Code", Levels: []string{"1", "2", "3"}, Start: 10}
	in := table(t, num("Code", 1, 3, nan))
	_, out := fitTransform(t, NewRankMapper([]Ordinal{ord}), in)
	c := column(t, out, "Code")
	assert.Equal(t, 10.0, c.Float(0))
	assert.Equal(t, 12.0, c.Float(1))
	assert.True(t, c.IsMissing(2))
}

func TestRankMapper_ManyColumns(t *testing.T) {
	// enough columns to take the parallel path
	var tables []Ordinal
	in := table(t)
	for i := 0; i < 20; i++ {
		name := string(rune('A' + i))
		tables = append(tables, Ordinal{Column: name, Levels: []string{"lo", "hi"}, Start: 1})
		var err error
		in, err = in.With(cat(name, "hi", "lo"))
		require.NoError(t, err)
	}
	_, out := fitTransform(t, NewRankMapper(tables), in)
	for _, name := range out.Names() {
		assert.Equal(t, []float64{2, 1}, column(t, out, name).Floats(), name)
	}
}

func TestParseUnknownLevelPolicy(t *testing.T) {
	p, err := ParseUnknownLevelPolicy("null")
	require.NoError(t, err)
	assert.Equal(t, UnknownAsMissing, p)
	p, err = ParseUnknownLevelPolicy("error")
	require.NoError(t, err)
	assert.Equal(t, UnknownAsError, p)
	assert.Equal(t, "error", p.String())
	_, err = ParseUnknownLevelPolicy("drop")
	assert.Error(t, err)
}

func TestRankMapper_StrictManyColumns(t *testing.T) {
	var tables []Ordinal
	in := table(t)
	for i := 0; i < 20; i++ {
		name := string(rune('A' + i))
		tables = append(tables, Ordinal{Column: name, Levels: []string{"lo", "hi"}, Start: 1})
		values := []string{"hi", "lo"}
		if name == "M" {
			values[1] = "mid"
		}
		var err error
		in, err = in.With(cat(name, values...))
		require.NoError(t, err)
	}

	_, err := NewRankMapper(tables, WithUnknownLevels(UnknownAsError)).Transform(in)
	var unknown *errors.UnknownLevelError
	require.True(t, errors.As(err, &unknown), "error from a parallel column must be returned")
	assert.Equal(t, "M", unknown.Column)
	assert.Equal(t, "mid", unknown.Level)
}
