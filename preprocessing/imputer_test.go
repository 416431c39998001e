package preprocessing

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YuminosukeSato/tabprep/core/frame"
	"github.com/YuminosukeSato/tabprep/pkg/errors"
)

func amesLike(t *testing.T) *frame.Table {
	return table(t,
		cat("Alley", "", "Pave", ""),
		num("Mas Vnr Area", 196, nan, 0),
		cat("MS Zoning", "RL", "", "RM"),
		num("Garage Yr Blt", 2003, nan, 1976),
		cat("Electrical", "SBrkr", "SBrkr", ""),
	)
}

func TestImputer_NoMissingAfterImputation(t *testing.T) {
	sentinel := []string{"Alley", "Pool QC"}
	zero := []string{"Mas Vnr Area"}
	mode := []string{"MS Zoning", "Electrical"}
	in := amesLike(t)

	_, out := fitTransform(t, NewImputer(sentinel, zero, mode), in)

	for _, name := range append(append([]string{"Alley"}, zero...), mode...) {
		assert.Zero(t, column(t, out, name).MissingCount(), name)
	}
	assert.Equal(t, []string{"None", "Pave", "None"}, strs(t, out, "Alley"))
	assert.Equal(t, []float64{196, 0, 0}, column(t, out, "Mas Vnr Area").Floats())
	assert.Equal(t, []string{"SBrkr", "SBrkr", "SBrkr"}, strs(t, out, "Electrical"))
	// undeclared columns are untouched
	assert.Equal(t, 1, column(t, out, "Garage Yr Blt").MissingCount())
	// order is preserved
	assert.Equal(t, in.Names(), out.Names())
	// input is not mutated
	assert.Equal(t, 2, column(t, in, "Alley").MissingCount())
}

func TestImputer_ModeTieBreak(t *testing.T) {
	in := table(t,
		cat("MS Zoning", "RM", "RL", "", "RM", "RL"),
		num("Garage Cars", 2, 1, nan, 1, 2),
	)
	_, out := fitTransform(t, NewImputer(nil, nil, []string{"MS Zoning", "Garage Cars"}), in)
	assert.Equal(t, "RL", strs(t, out, "MS Zoning")[2])
	assert.Equal(t, 1.0, column(t, out, "Garage Cars").Float(2))
}

func TestImputer_ModeFrozenAtFit(t *testing.T) {
	train := table(t, cat("Sale Type", "WD", "WD", "New"))
	fitted, _ := fitTransform(t, NewImputer(nil, nil, []string{"Sale Type", "Functional"}), train)

	// the prediction table has a different majority
	predict := table(t,
		cat("Sale Type", "New", "New", ""),
		cat("Functional", "Typ", "", "Typ"),
	)
	out, err := fitted.Transform(predict)
	require.NoError(t, err)
	assert.Equal(t, "WD", strs(t, out, "Sale Type")[2])
	// unseen at fit: the call's own mode
	assert.Equal(t, "Typ", strs(t, out, "Functional")[1])
}

func TestImputer_SentinelOnNumericConverts(t *testing.T) {
	warnings, restore := captureWarnings(t)
	defer restore()

	in := table(t, num("Pool QC", nan, 3))
	_, out := fitTransform(t, NewImputer([]string{"Pool QC"}, nil, nil, WithSentinel("NA-feature")), in)

	c := column(t, out, "Pool QC")
	assert.Equal(t, frame.Categorical, c.Kind())
	assert.Equal(t, []string{"NA-feature", "3"}, strs(t, out, "Pool QC"))
	require.Len(t, *warnings, 1)
	var conv *errors.DataConversionWarning
	assert.True(t, errors.As((*warnings)[0], &conv))
}

func TestImputer_ZeroOnText(t *testing.T) {
	in := table(t, cat("Bsmt Full Bath", "1", ""))
	_, out := fitTransform(t, NewImputer(nil, []string{"Bsmt Full Bath"}, nil), in)
	assert.Equal(t, []string{"1", "0"}, strs(t, out, "Bsmt Full Bath"))
}

func TestImputer_ModeAllMissing(t *testing.T) {
	in := table(t, cat("Utilities", "", ""))
	_, err := NewImputer(nil, nil, []string{"Utilities"}).Fit(in)
	var ve *errors.ValueError
	assert.True(t, errors.As(err, &ve))
}

func TestImputer_ExportRestore(t *testing.T) {
	im := NewImputer(nil, nil, []string{"MS Zoning", "Garage Cars"})
	fitted, err := im.Fit(table(t,
		cat("MS Zoning", "RL", "RL", "RM"),
		num("Garage Cars", 2, 2, 0),
	))
	require.NoError(t, err)

	raw, err := fitted.(*FittedImputer).ExportState()
	require.NoError(t, err)

	var decoded map[string]map[string]FillValue
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, FillValue{Text: "RL"}, decoded["mode"]["MS Zoning"])
	assert.Equal(t, FillValue{Numeric: true, Number: 2}, decoded["mode"]["Garage Cars"])

	restored, err := im.Restore(raw)
	require.NoError(t, err)
	assert.Equal(t, fitted.(*FittedImputer).Modes(), restored.(*FittedImputer).Modes())

	out, err := restored.Transform(table(t, cat("MS Zoning", ""), num("Garage Cars", nan)))
	require.NoError(t, err)
	assert.Equal(t, []string{"RL"}, strs(t, out, "MS Zoning"))
	assert.Equal(t, []float64{2}, column(t, out, "Garage Cars").Floats())
}

func TestImputer_TextModeOnNumericColumn(t *testing.T) {
	fitted, err := NewImputer(nil, nil, []string{"Code"}).Restore(
		json.RawMessage(`{"mode":{"Code":{"numeric":false,"text":"60"}}}`))
	require.NoError(t, err)

	out, err := fitted.Transform(table(t, num("Code", 20, nan)))
	require.NoError(t, err)
	assert.Equal(t, []float64{20, 60}, column(t, out, "Code").Floats())
}

func TestMode(t *testing.T) {
	v, err := Mode(num("x", 3, 3, 1, nan, nan, nan))
	require.NoError(t, err)
	assert.Equal(t, "3", v.String())

	v, err = Mode(cat("y", "b", "a"))
	require.NoError(t, err)
	assert.Equal(t, "a", v.String())
}
