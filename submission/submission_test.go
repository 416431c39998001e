package submission

import (
	"bytes"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YuminosukeSato/tabprep/core/frame"
	"github.com/YuminosukeSato/tabprep/pkg/errors"
	"github.com/YuminosukeSato/tabprep/pkg/log"
)

func testTable(t *testing.T) *frame.Table {
	t.Helper()
	tbl, err := frame.New(
		frame.NewNumeric("Id", []float64{1461, 1462, 1463}),
		frame.NewCategorical("Street", []string{"Pave", "Pave", "Grvl"}, nil),
	)
	require.NoError(t, err)
	return tbl
}

func TestNewWriter(t *testing.T) {
	w, err := NewWriter(testTable(t), "Id")
	require.NoError(t, err)
	assert.Equal(t, 3, w.Len())
	assert.Equal(t, "Id", w.Key().Name())

	w, err = NewWriter(testTable(t), "")
	require.NoError(t, err)
	assert.Equal(t, DefaultKeyColumn, w.Key().Name())

	_, err = NewWriter(testTable(t), "Order")
	var cfgErr *errors.ConfigurationError
	require.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, "Order", cfgErr.Column)
}

func TestWriter_Write(t *testing.T) {
	logger, _ := log.NewTestLogger(log.LevelDebug)
	w, err := NewWriter(testTable(t), "Id", WithLogger(logger))
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "submission.csv")
	require.NoError(t, w.Write([]float64{169000.5, 187000, 183500}, path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "Id,SalePrice\n1461,169000.5\n1462,187000\n1463,183500\n", string(data))
	assert.True(t, logger.ContainsMessage("submission written"))
}

func TestWriter_LengthMismatchWritesNothing(t *testing.T) {
	logger, _ := log.NewTestLogger(log.LevelDebug)
	w, err := NewWriter(testTable(t), "Id", WithLogger(logger))
	require.NoError(t, err)

	for _, preds := range [][]float64{{1, 2}, {1, 2, 3, 4}, nil} {
		path := filepath.Join(t.TempDir(), "submission.csv")
		err := w.Write(preds, path)

		var shapeErr *errors.ShapeMismatchError
		require.True(t, errors.As(err, &shapeErr))
		assert.Equal(t, 3, shapeErr.Expected)
		assert.Equal(t, len(preds), shapeErr.Got)

		_, statErr := os.Stat(path)
		assert.True(t, os.IsNotExist(statErr), "no file may be written on mismatch")
	}
	assert.True(t, logger.ContainsField(log.ErrorCodeKey, log.ErrorShapeMismatch))
}

func TestWriter_NonFiniteWritesNothing(t *testing.T) {
	logger, _ := log.NewTestLogger(log.LevelDebug)
	w, err := NewWriter(testTable(t), "Id", WithLogger(logger))
	require.NoError(t, err)

	for _, bad := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
		path := filepath.Join(t.TempDir(), "submission.csv")
		err := w.Write([]float64{100, bad, 300}, path)

		var nonFinite *errors.NonFiniteValueError
		require.True(t, errors.As(err, &nonFinite))
		assert.Equal(t, 1, nonFinite.Row)

		_, statErr := os.Stat(path)
		assert.True(t, os.IsNotExist(statErr))
	}
	assert.True(t, logger.ContainsField(log.ErrorCodeKey, log.ErrorNonFinite))

	var buf bytes.Buffer
	assert.Error(t, w.WriteTo([]float64{math.NaN(), 1, 2}, &buf))
	assert.Zero(t, buf.Len())
}

func TestWriter_TargetName(t *testing.T) {
	w, err := NewWriter(testTable(t), "Id", WithTargetName("log_SalePrice"))
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, w.WriteTo([]float64{12.1, 12.2, 11.9}, &buf))
	assert.True(t, strings.HasPrefix(buf.String(), "Id,log_SalePrice\n"))
}

func TestReadPredictions(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    []float64
		wantErr bool
	}{
		{name: "plain", in: "1.5\n2\n\n3\n", want: []float64{1.5, 2, 3}},
		{name: "header", in: "SalePrice\n100\n200\n", want: []float64{100, 200}},
		{name: "submission file", in: "Id,SalePrice\n1461,100\n1462,200\n", want: []float64{100, 200}},
		{name: "garbage", in: "1\nabc\n", wantErr: true},
		{name: "nan", in: "1\nNaN\n", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ReadPredictions(strings.NewReader(tt.in))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestReadPredictionsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "preds.txt")
	require.NoError(t, os.WriteFile(path, []byte("10\n20\n30\n"), 0o600))

	preds, err := ReadPredictionsFile(path)
	require.NoError(t, err)

	w, err := NewWriter(testTable(t), "Id")
	require.NoError(t, err)
	assert.Equal(t, w.Len(), len(preds))
}
