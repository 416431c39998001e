package preprocessing

import (
	"encoding/json"

	"github.com/YuminosukeSato/tabprep/core/frame"
	"github.com/YuminosukeSato/tabprep/core/model"
	"github.com/YuminosukeSato/tabprep/pkg/errors"
)

// Aligner は任意のテーブルを参照列リストと完全に同じ列構成に揃えます。
//
// 参照列リストは Fit 時に入力テーブルの列名から一度だけ取得するか、
// NewAlignerWithReference で明示的に与えます。
type Aligner struct {
	reference []string
}

// NewAligner は Fit 時に参照列リストを取得する Aligner を作成します。
func NewAligner() *Aligner { return &Aligner{} }

// NewAlignerWithReference は参照列リストを固定した Aligner を作成します。
func NewAlignerWithReference(columns []string) *Aligner {
	return &Aligner{reference: append([]string(nil), columns...)}
}

type alignerState struct {
	Columns []string `json:"columns"`
}

// FittedAligner は参照列リストを保持する学習済みの Aligner です。
type FittedAligner struct {
	columns []string
}

// Fit は参照列リストを確定します。
func (a *Aligner) Fit(t *frame.Table) (model.FittedStage, error) {
	cols := a.reference
	if cols == nil {
		cols = t.Names()
	}
	return newFittedAligner(cols)
}

// Restore は ExportState の出力から FittedAligner を復元します。
func (a *Aligner) Restore(params json.RawMessage) (model.FittedStage, error) {
	var st alignerState
	if err := json.Unmarshal(params, &st); err != nil {
		return nil, errors.Wrap(err, "aligner: decode state")
	}
	return newFittedAligner(st.Columns)
}

func newFittedAligner(columns []string) (*FittedAligner, error) {
	seen := make(map[string]struct{}, len(columns))
	for _, c := range columns {
		if _, dup := seen[c]; dup {
			return nil, errors.NewConfigurationError("align", c, "duplicate name in reference column list")
		}
		seen[c] = struct{}{}
	}
	return &FittedAligner{columns: append([]string(nil), columns...)}, nil
}

// FeatureNames は参照列リストのコピーを返します。
func (f *FittedAligner) FeatureNames() []string {
	return append([]string(nil), f.columns...)
}

// ExportState は参照列リストを書き出します。
func (f *FittedAligner) ExportState() (json.RawMessage, error) {
	return json.Marshal(alignerState{Columns: f.columns})
}

// Transform は参照列リストの順序で列を並べます。
// 入力にない参照列は 0 で埋めた数値列として作り、参照列リストにない入力列は捨てます。
// 参照列と一つも重ならない入力もエラーではありません。
func (f *FittedAligner) Transform(t *frame.Table) (*frame.Table, error) {
	if len(f.columns) == 0 {
		return frame.Empty(t.Rows()), nil
	}
	cols := make([]*frame.Column, len(f.columns))
	for i, name := range f.columns {
		if c, ok := t.Column(name); ok {
			cols[i] = c
		} else {
			cols[i] = frame.Zeros(name, t.Rows())
		}
	}
	return frame.New(cols...)
}
