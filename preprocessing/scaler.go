package preprocessing

import (
	"encoding/json"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/YuminosukeSato/tabprep/core/frame"
	"github.com/YuminosukeSato/tabprep/core/model"
	"github.com/YuminosukeSato/tabprep/core/parallel"
	"github.com/YuminosukeSato/tabprep/pkg/errors"
)

// 標準偏差や値域がこれより小さい列はスケール1として扱う（ゼロ除算を避ける）
const minScale = 1e-8

// ColumnScale は一つの列の線形変換 (x - Offset) / Scale + Shift です。
type ColumnScale struct {
	Column string  `json:"column"`
	Offset float64 `json:"offset"`
	Scale  float64 `json:"scale"`
	Shift  float64 `json:"shift,omitempty"`
}

func (c ColumnScale) apply(x float64) float64 {
	return (x-c.Offset)/c.Scale + c.Shift
}

func (c ColumnScale) invert(x float64) float64 {
	return (x-c.Shift)*c.Scale + c.Offset
}

type scalerState struct {
	Columns []ColumnScale `json:"columns"`
}

// FittedScaler は列ごとの変換係数を保持する学習済みスケーラーです。
// StandardScaler と MinMaxScaler の両方がこれを返します。
type FittedScaler struct {
	scales []ColumnScale
}

// ExportState は変換係数を書き出します。
func (f *FittedScaler) ExportState() (json.RawMessage, error) {
	return json.Marshal(scalerState{Columns: f.scales})
}

// Scales は変換係数のコピーを返します。
func (f *FittedScaler) Scales() []ColumnScale {
	return append([]ColumnScale(nil), f.scales...)
}

// Transform は学習済みの係数で数値列を変換する。
// Fit 時に無かった列と文字列列はそのまま残す。欠損値は欠損値のまま。
func (f *FittedScaler) Transform(t *frame.Table) (*frame.Table, error) {
	return f.mapColumns(t, ColumnScale.apply)
}

// InverseTransform は Transform の逆変換を行う
func (f *FittedScaler) InverseTransform(t *frame.Table) (*frame.Table, error) {
	return f.mapColumns(t, ColumnScale.invert)
}

func (f *FittedScaler) mapColumns(t *frame.Table, fn func(ColumnScale, float64) float64) (*frame.Table, error) {
	out := make([]*frame.Column, len(f.scales))
	if err := parallel.ForEach(len(f.scales), func(i int) error {
		sc := f.scales[i]
		c, ok := t.Column(sc.Column)
		if !ok || !c.IsNumeric() {
			return nil
		}
		vals := c.Floats()
		for r, x := range vals {
			if !math.IsNaN(x) {
				vals[r] = fn(sc, x)
			}
		}
		out[i] = frame.NewNumeric(sc.Column, vals)
		return nil
	}); err != nil {
		return nil, err
	}

	var cols []*frame.Column
	for _, c := range out {
		if c != nil {
			cols = append(cols, c)
		}
	}
	return t.Replace(cols...)
}

func restoreScaler(params json.RawMessage) (*FittedScaler, error) {
	var st scalerState
	if err := json.Unmarshal(params, &st); err != nil {
		return nil, errors.Wrap(err, "scaler: decode state")
	}
	for _, sc := range st.Columns {
		if sc.Scale == 0 || math.IsNaN(sc.Scale) {
			return nil, errors.NewValidationError("scale", "column '"+sc.Column+"' has zero scale", sc.Scale)
		}
	}
	return &FittedScaler{scales: st.Columns}, nil
}

// observed は NaN を除いた値を返します。
func observed(c *frame.Column) []float64 {
	vals := c.Floats()
	if !floats.HasNaN(vals) {
		return vals
	}
	out := make([]float64, 0, len(vals))
	for _, v := range vals {
		if !math.IsNaN(v) {
			out = append(out, v)
		}
	}
	return out
}

// fitColumns は数値列ごとに fit を呼び、観測値のない列は飛ばします。
func fitColumns(op string, t *frame.Table, fit func(name string, xs []float64) ColumnScale) (*FittedScaler, error) {
	if t.Rows() == 0 {
		return nil, errors.Wrap(errors.ErrEmptyData, op)
	}
	numeric := t.Filter(func(c *frame.Column) bool { return c.IsNumeric() })
	scales := make([]ColumnScale, numeric.NumCols())
	ok := make([]bool, numeric.NumCols())
	if err := parallel.ForEach(numeric.NumCols(), func(i int) error {
		c := numeric.Col(i)
		xs := observed(c)
		if len(xs) == 0 {
			return nil
		}
		scales[i] = fit(c.Name(), xs)
		ok[i] = true
		return nil
	}); err != nil {
		return nil, err
	}

	fitted := &FittedScaler{}
	for i, sc := range scales {
		if ok[i] {
			fitted.scales = append(fitted.scales, sc)
		}
	}
	return fitted, nil
}

// StandardScaler はscikit-learn互換の標準化スケーラー
// 数値列を平均0、標準偏差1に変換する
type StandardScaler struct {
	// WithMean は平均を引くかどうか (デフォルト: true)
	WithMean bool

	// WithStd は標準偏差で割るかどうか (デフォルト: true)
	WithStd bool
}

// NewStandardScaler は新しいStandardScalerを作成する
//
// パラメータ:
//   - withMean: 平均を引くかどうか
//   - withStd: 標準偏差で割るかどうか
//
// 使用例:
//
//	scaler := preprocessing.NewStandardScaler(true, true)
//	fitted, err := scaler.Fit(table)
//	scaled, err := fitted.Transform(table)
func NewStandardScaler(withMean, withStd bool) *StandardScaler {
	return &StandardScaler{
		WithMean: withMean,
		WithStd:  withStd,
	}
}

// NewStandardScalerDefault はデフォルト設定でStandardScalerを作成する
func NewStandardScalerDefault() *StandardScaler {
	return NewStandardScaler(true, true)
}

// Fit は訓練データの数値列から統計情報（平均、母標準偏差）を計算する
// 欠損値は計算から除外する
func (s *StandardScaler) Fit(t *frame.Table) (model.FittedStage, error) {
	return fitColumns("StandardScaler.Fit", t, func(name string, xs []float64) ColumnScale {
		mean, std := stat.PopMeanStdDev(xs, nil)
		sc := ColumnScale{Column: name, Offset: 0, Scale: 1}
		if s.WithMean {
			sc.Offset = mean
		}
		if s.WithStd && std >= minScale {
			sc.Scale = std
		}
		return sc
	})
}

// Restore は ExportState の出力から復元する
func (s *StandardScaler) Restore(params json.RawMessage) (model.FittedStage, error) {
	return restoreScaler(params)
}

// MinMaxScaler はscikit-learn互換のMin-Maxスケーラー
// 数値列を FeatureRange の範囲に線形変換する
type MinMaxScaler struct {
	// FeatureRange は変換後の範囲 (デフォルト: [0, 1])
	FeatureRange [2]float64
}

// NewMinMaxScaler は新しいMinMaxScalerを作成する
//
// 使用例:
//
//	scaler := preprocessing.NewMinMaxScaler([2]float64{0.0, 1.0})
func NewMinMaxScaler(featureRange [2]float64) *MinMaxScaler {
	return &MinMaxScaler{FeatureRange: featureRange}
}

// NewMinMaxScalerDefault はデフォルト設定([0,1]範囲)でMinMaxScalerを作成する
func NewMinMaxScalerDefault() *MinMaxScaler {
	return NewMinMaxScaler([2]float64{0.0, 1.0})
}

// Fit は訓練データの数値列から最小値と最大値を計算する
func (m *MinMaxScaler) Fit(t *frame.Table) (model.FittedStage, error) {
	lo, hi := m.FeatureRange[0], m.FeatureRange[1]
	if hi <= lo {
		return nil, errors.NewValidationError("feature_range", "max must be greater than min", m.FeatureRange)
	}
	return fitColumns("MinMaxScaler.Fit", t, func(name string, xs []float64) ColumnScale {
		dataMin, dataMax := floats.Min(xs), floats.Max(xs)
		scale := (dataMax - dataMin) / (hi - lo)
		if scale < minScale {
			scale = 1
		}
		return ColumnScale{Column: name, Offset: dataMin, Scale: scale, Shift: lo}
	})
}

// Restore は ExportState の出力から復元する
func (m *MinMaxScaler) Restore(params json.RawMessage) (model.FittedStage, error) {
	return restoreScaler(params)
}
