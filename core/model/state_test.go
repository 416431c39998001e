package model

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YuminosukeSato/tabprep/core/frame"
	"github.com/YuminosukeSato/tabprep/pkg/errors"
)

func fittedState() *PipelineState {
	features := []string{"Lot Area", "Lot Shape_Reg", "Alley_Pave"}
	return &PipelineState{
		Version:    StateVersion,
		Features:   features,
		LayoutHash: LayoutHash(features),
		Stages: []StageState{
			{Name: "coerce"},
			{Name: "impute", Params: json.RawMessage(`{"mode":{"MS Zoning":"RL"}}`)},
			{Name: "align", Params: json.RawMessage(`{"columns":["Lot Area","Lot Shape_Reg","Alley_Pave"]}`)},
		},
		Metadata: map[string]string{"rows": "1460"},
		IsFitted: true,
	}
}

func TestLayoutHash(t *testing.T) {
	a := LayoutHash([]string{"a", "b"})
	assert.Len(t, a, 16)
	assert.Equal(t, a, LayoutHash([]string{"a", "b"}))
	assert.NotEqual(t, a, LayoutHash([]string{"b", "a"}))
	// the separator keeps "a b" + "c" apart from "a" + "b c"
	assert.NotEqual(t, LayoutHash([]string{"a b", "c"}), LayoutHash([]string{"a", "b c"}))
}

func TestPipelineState_Validate(t *testing.T) {
	require.NoError(t, fittedState().Validate())

	tests := []struct {
		name   string
		mutate func(*PipelineState)
		layout bool
	}{
		{name: "missing version", mutate: func(s *PipelineState) { s.Version = "" }},
		{name: "future version", mutate: func(s *PipelineState) { s.Version = "99" }},
		{name: "not fitted", mutate: func(s *PipelineState) { s.IsFitted = false }},
		{name: "duplicate stage", mutate: func(s *PipelineState) { s.Stages[1].Name = "coerce" }},
		{name: "empty stage name", mutate: func(s *PipelineState) { s.Stages[0].Name = "" }},
		{name: "edited features", mutate: func(s *PipelineState) { s.Features[0] = "Lot Frontage" }, layout: true},
		{name: "reordered features", mutate: func(s *PipelineState) {
			s.Features[0], s.Features[1] = s.Features[1], s.Features[0]
		}, layout: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := fittedState()
			tt.mutate(s)
			err := s.Validate()
			require.Error(t, err)
			if tt.layout {
				assert.True(t, errors.Is(err, errors.ErrLayoutChanged))
			} else {
				var ve *errors.ValidationError
				assert.True(t, errors.As(err, &ve))
			}
		})
	}
}

func TestPipelineState_Clone(t *testing.T) {
	s := fittedState()
	c := s.Clone()
	assert.Equal(t, s, c)

	c.Features[0] = "changed"
	c.Stages[1].Params[2] = 'X'
	c.Metadata["rows"] = "0"
	assert.Equal(t, "Lot Area", s.Features[0])
	assert.Equal(t, `{"mode":{"MS Zoning":"RL"}}`, string(s.Stages[1].Params))
	assert.Equal(t, "1460", s.Metadata["rows"])
}

func TestPipelineState_Stage(t *testing.T) {
	s := fittedState()
	st, ok := s.Stage("impute")
	require.True(t, ok)
	assert.JSONEq(t, `{"mode":{"MS Zoning":"RL"}}`, string(st.Params))
	_, ok = s.Stage("scale")
	assert.False(t, ok)
}

func TestSaveLoadState(t *testing.T) {
	for _, name := range []string{"state.json", "state.gob"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), name)
			require.NoError(t, SaveState(fittedState(), path))

			loaded, err := LoadState(path)
			require.NoError(t, err)
			assert.Equal(t, fittedState().Features, loaded.Features)
			assert.Equal(t, fittedState().LayoutHash, loaded.LayoutHash)
			require.Len(t, loaded.Stages, 3)
			assert.JSONEq(t, `{"mode":{"MS Zoning":"RL"}}`, string(loaded.Stages[1].Params))
		})
	}

	t.Run("invalid state is not written", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "state.json")
		s := fittedState()
		s.IsFitted = false
		require.Error(t, SaveState(s, path))
		_, err := os.Stat(path)
		assert.True(t, os.IsNotExist(err))
	})

	t.Run("tampered file", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, SaveStateToWriter(fittedState(), &buf, FormatJSON))
		tampered := bytes.Replace(buf.Bytes(), []byte(`"Alley_Pave"`), []byte(`"Alley_Grvl"`), 1)
		_, err := LoadStateFromReader(bytes.NewReader(tampered), FormatJSON)
		assert.True(t, errors.Is(err, errors.ErrLayoutChanged))
	})
}

func TestFormatForPath(t *testing.T) {
	assert.Equal(t, FormatGob, FormatForPath("x/state.GOB"))
	assert.Equal(t, FormatJSON, FormatForPath("state.json"))
	assert.Equal(t, FormatJSON, FormatForPath("state"))
}

func TestStageFunc(t *testing.T) {
	calls := 0
	var s Stage = StageFunc(func(tbl *frame.Table) (*frame.Table, error) {
		calls++
		return tbl.Drop("b")
	})
	in := frame.MustNew(frame.NewNumeric("a", []float64{1}), frame.NewNumeric("b", []float64{2}))

	fitted, out, err := FitTransform(s, in)
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, out.Names())
	assert.Equal(t, 1, calls)

	restored, err := s.(Restorer).Restore(nil)
	require.NoError(t, err)
	_, err = restored.Transform(in)
	require.NoError(t, err)
	_, err = fitted.Transform(in)
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}
