package ames

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YuminosukeSato/tabprep/core/frame"
	"github.com/YuminosukeSato/tabprep/pkg/errors"
	"github.com/YuminosukeSato/tabprep/pkg/log"
	"github.com/YuminosukeSato/tabprep/pipeline"
	"github.com/YuminosukeSato/tabprep/preprocessing"
)

var nan = math.NaN()

func trainTable(t *testing.T) *frame.Table {
	t.Helper()
	tbl, err := frame.New(
		frame.NewNumeric("MS SubClass", []float64{60, 20, 60, 70}),
		frame.NewCategoricalNA("MS Zoning", []string{"RL", "RL", "RM", ""}, ""),
		frame.NewNumeric("Lot Frontage", []float64{65, nan, 68, 60}),
		frame.NewCategorical("Neighborhood", []string{"CollgCr", "Veenker", "CollgCr", "Crawfor"}, nil),
		frame.NewCategoricalNA("Alley", []string{"", "", "Grvl", ""}, ""),
		frame.NewCategorical("Lot Shape", []string{"Reg", "Reg", "IR1", "IR1"}, nil),
		frame.NewCategoricalNA("Bsmt Qual", []string{"Gd", "Gd", "", "TA"}, ""),
		frame.NewNumeric("Mas Vnr Area", []float64{196, 0, nan, 0}),
		frame.NewNumeric("Garage Cars", []float64{2, 2, 2, 3}),
		frame.NewNumeric("TotRms AbvGrd", []float64{8, 6, 6, 7}),
		frame.NewNumeric("1st Flr SF", []float64{856, 1262, 920, 961}),
		frame.NewNumeric("Garage Yr Blt", []float64{2003, 1976, 2001, 1998}),
		frame.NewCategorical("Central Air", []string{"Y", "Y", "Y", "N"}, nil),
	)
	require.NoError(t, err)
	return tbl
}

func predictTable(t *testing.T) *frame.Table {
	t.Helper()
	tbl, err := frame.New(
		frame.NewNumeric("MS SubClass", []float64{20, 120}),
		frame.NewCategoricalNA("MS Zoning", []string{"", "RH"}, ""),
		frame.NewNumeric("Lot Frontage", []float64{nan, 80}),
		frame.NewCategorical("Neighborhood", []string{"NAmes", "NAmes"}, nil),
		frame.NewCategoricalNA("Alley", []string{"Pave", ""}, ""),
		frame.NewCategorical("Lot Shape", []string{"IR3", "Reg"}, nil),
		frame.NewCategoricalNA("Bsmt Qual", []string{"", "Ex"}, ""),
		frame.NewNumeric("Mas Vnr Area", []float64{nan, 108}),
		frame.NewNumeric("Garage Cars", []float64{1, nan}),
		frame.NewNumeric("TotRms AbvGrd", []float64{5, 6}),
		frame.NewNumeric("1st Flr SF", []float64{896, 1329}),
		frame.NewNumeric("Garage Yr Blt", []float64{1961, nan}),
		frame.NewCategorical("Central Air", []string{"Y", "Y"}, nil),
	)
	require.NoError(t, err)
	return tbl
}

func TestOrdinalTables(t *testing.T) {
	tables := OrdinalTables()
	assert.Len(t, tables, 22)

	byName := make(map[string]preprocessing.Ordinal)
	for _, o := range tables {
		byName[o.Column] = o
	}
	rank := func(col, level string) int {
		r, ok := byName[col].Rank(level)
		require.True(t, ok, "%s %s", col, level)
		return r
	}
	assert.Equal(t, 1, rank("Lot Shape", "IR3"))
	assert.Equal(t, 4, rank("Lot Shape", "Reg"))
	assert.Equal(t, 5, rank("Kitchen Qual", "Ex"))
	assert.Equal(t, 0, rank("Garage Qual", "None"))
	assert.Equal(t, 6, rank("BsmtFin Type 1", "GLQ"))
	assert.Equal(t, 8, rank("Functional", "Typ"))
	assert.Equal(t, 4, rank("Pool QC", "Ex"))
	assert.Equal(t, 4, rank("Fence", "GdPrv"))
	assert.Equal(t, 0, rank("Central Air", "N"))
	assert.Equal(t, 3, rank("Paved Drive", "Y"))

	// callers get their own copy
	tables[0].Levels[0] = "changed"
	assert.Equal(t, "IR3", OrdinalTables()[0].Levels[0])
}

func TestDefaultLists(t *testing.T) {
	seen := map[string]string{}
	for list, cols := range map[string][]string{"sentinel": SentinelColumns(), "zero": ZeroColumns(), "mode": ModeColumns()} {
		for _, c := range cols {
			prev, dup := seen[c]
			assert.False(t, dup, "%s in both %s and %s", c, prev, list)
			seen[c] = list
		}
	}
	assert.Contains(t, DropColumns(), "Garage Yr Blt")
	assert.Equal(t, []string{MSSubClass}, CoerceColumns())
}

func TestSteps(t *testing.T) {
	names := func(steps []pipeline.Step) []string {
		out := make([]string, len(steps))
		for i, s := range steps {
			out[i] = s.Name
		}
		return out
	}

	steps, err := Steps(DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, []string{StepCoerce, StepDrop, StepGrouped, StepImpute, StepRank, StepExpand, StepAlign}, names(steps))

	o := DefaultOptions()
	o.FillRemainingZero = true
	o.Scale = ScaleStandard
	o.Drop = nil
	steps, err = Steps(o)
	require.NoError(t, err)
	assert.Equal(t, []string{StepCoerce, StepGrouped, StepImpute, StepRank, StepZeroFill, StepExpand, StepAlign, StepScale}, names(steps))

	o.Scale = "robust"
	_, err = Steps(o)
	var ve *errors.ValidationError
	assert.True(t, errors.As(err, &ve))
}

func TestDefaultChain_TrainAndPredictAlign(t *testing.T) {
	logger, _ := log.NewTestLogger(log.LevelDebug)
	p, err := NewPipeline(DefaultOptions(), pipeline.WithLogger(logger))
	require.NoError(t, err)

	fitted, train, err := p.FitTransform(trainTable(t))
	require.NoError(t, err)
	pred, err := fitted.Transform(predictTable(t))
	require.NoError(t, err)

	assert.Equal(t, fitted.FeatureNames(), train.Names())
	assert.Equal(t, train.Names(), pred.Names())
	assert.Equal(t, 2, pred.Rows())
	for _, dropped := range DropColumns() {
		assert.NotContains(t, train.Names(), dropped)
	}
	// numeric columns first; coerced code expanded as text levels
	assert.Equal(t, "Lot Frontage", train.Names()[0])
	assert.Contains(t, train.Names(), "MS SubClass_60")
	assert.NotContains(t, pred.Names(), "MS SubClass_120")

	// Lot Frontage: Veenker has no observations, global median of 60,65,68 is 65
	lf, _ := train.Column("Lot Frontage")
	assert.Equal(t, 65.0, lf.Float(1))
	// NAmes is new at predict time and the call's own median is 80
	lf, _ = pred.Column("Lot Frontage")
	assert.Equal(t, 80.0, lf.Float(0))

	// Bsmt Qual: missing -> "None" -> rank 0
	bq, _ := train.Column("Bsmt Qual")
	assert.Equal(t, []float64{4, 4, 0, 3}, bq.Floats())
	// Lot Shape ranks
	ls, _ := pred.Column("Lot Shape")
	assert.Equal(t, []float64{1, 4}, ls.Floats())

	// Mas Vnr Area zero-filled
	mva, _ := pred.Column("Mas Vnr Area")
	assert.Equal(t, []float64{0, 108}, mva.Floats())

	m, err := fitted.Matrix(predictTable(t))
	require.NoError(t, err)
	r, c := m.Dims()
	assert.Equal(t, 2, r)
	assert.Equal(t, len(fitted.FeatureNames()), c)
}
