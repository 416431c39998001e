package preprocessing

import (
	"encoding/json"
	"math"
	"sort"
	"strconv"

	"github.com/YuminosukeSato/tabprep/core/frame"
	"github.com/YuminosukeSato/tabprep/core/model"
	"github.com/YuminosukeSato/tabprep/pkg/errors"
)

// DefaultSentinel は「その設備が存在しない」ことを表す埋め値です。
const DefaultSentinel = "None"

// ImputerOption は Imputer の設定関数です。
type ImputerOption func(*Imputer)

// WithSentinel は sentinel 列の埋め値を設定します（デフォルト: "None"）。
func WithSentinel(v string) ImputerOption {
	return func(im *Imputer) {
		im.sentinelValue = v
	}
}

// Imputer は列ごとに宣言した方針で欠損値を埋めます。
//
//   - sentinel: 固定の文字列（"None"）で埋める
//   - zero: 0 で埋める（文字列列では "0"）
//   - mode: 最頻値で埋める。Fit 時に値を決定し、以降の Transform で再利用する
//
// 入力テーブルに存在しない列名は無視します。
type Imputer struct {
	sentinel      []string
	zero          []string
	mode          []string
	sentinelValue string
}

// NewImputer は三つの列リストから Imputer を作成します。
func NewImputer(sentinel, zero, mode []string, opts ...ImputerOption) *Imputer {
	im := &Imputer{
		sentinel:      append([]string(nil), sentinel...),
		zero:          append([]string(nil), zero...),
		mode:          append([]string(nil), mode...),
		sentinelValue: DefaultSentinel,
	}
	for _, opt := range opts {
		opt(im)
	}
	return im
}

// FillValue は最頻値埋めの値です。数値列と文字列列の両方を表せます。
type FillValue struct {
	Numeric bool    `json:"numeric"`
	Number  float64 `json:"number,omitempty"`
	Text    string  `json:"text,omitempty"`
}

// String は値を文字列で返します。
func (v FillValue) String() string {
	if v.Numeric {
		return frame.FormatFloat(v.Number)
	}
	return v.Text
}

type imputerState struct {
	Mode map[string]FillValue `json:"mode"`
}

// FittedImputer は学習済みの Imputer です。
type FittedImputer struct {
	cfg   *Imputer
	modes map[string]FillValue
}

// Fit は mode 列の最頻値を計算して固定します。
// 観測値が一つもない mode 列は ValueError になります。
func (im *Imputer) Fit(t *frame.Table) (model.FittedStage, error) {
	modes := make(map[string]FillValue)
	for _, name := range present(t, im.mode) {
		c, _ := t.Column(name)
		v, err := Mode(c)
		if err != nil {
			return nil, err
		}
		modes[name] = v
	}
	return &FittedImputer{cfg: im, modes: modes}, nil
}

// Restore は ExportState の出力から FittedImputer を復元します。
func (im *Imputer) Restore(params json.RawMessage) (model.FittedStage, error) {
	var st imputerState
	if len(params) > 0 {
		if err := json.Unmarshal(params, &st); err != nil {
			return nil, errors.Wrap(err, "imputer: decode state")
		}
	}
	if st.Mode == nil {
		st.Mode = map[string]FillValue{}
	}
	return &FittedImputer{cfg: im, modes: st.Mode}, nil
}

// Modes は固定された最頻値のコピーを返します。
func (f *FittedImputer) Modes() map[string]FillValue {
	out := make(map[string]FillValue, len(f.modes))
	for k, v := range f.modes {
		out[k] = v
	}
	return out
}

// ExportState は固定された最頻値を書き出します。
func (f *FittedImputer) ExportState() (json.RawMessage, error) {
	return json.Marshal(imputerState{Mode: f.modes})
}

// Transform は sentinel、zero、mode の順に欠損値を埋めます。
// Fit 時に存在しなかった mode 列は、その呼び出しのテーブル自身の最頻値で埋めます。
func (f *FittedImputer) Transform(t *frame.Table) (*frame.Table, error) {
	var out []*frame.Column

	for _, name := range present(t, f.cfg.sentinel) {
		c, _ := t.Column(name)
		if c.MissingCount() == 0 {
			continue
		}
		if c.IsNumeric() {
			errors.Warn(errors.NewDataConversionWarning(name, "numeric", "categorical",
				"missing values filled with sentinel '"+f.cfg.sentinelValue+"'"))
		}
		out = append(out, fillText(c, f.cfg.sentinelValue))
	}

	for _, name := range present(t, f.cfg.zero) {
		c, _ := t.Column(name)
		if c.MissingCount() == 0 {
			continue
		}
		out = append(out, fillValue(c, FillValue{Numeric: true, Number: 0}))
	}

	for _, name := range present(t, f.cfg.mode) {
		c, _ := t.Column(name)
		if c.MissingCount() == 0 {
			continue
		}
		v, ok := f.modes[name]
		if !ok {
			var err error
			if v, err = Mode(c); err != nil {
				return nil, err
			}
		}
		out = append(out, fillValue(c, v))
	}

	return t.Replace(out...)
}

// Mode は列の最頻値を返します。同数の場合は最小の値（数値列は数値順、文字列列はバイト順）です。
func Mode(c *frame.Column) (FillValue, error) {
	if c.IsNumeric() {
		counts := make(map[float64]int)
		for _, v := range c.Floats() {
			if !math.IsNaN(v) {
				counts[v]++
			}
		}
		if len(counts) == 0 {
			return FillValue{}, errors.NewValueError("mode", "column '"+c.Name()+"' has no observed values")
		}
		keys := make([]float64, 0, len(counts))
		for k := range counts {
			keys = append(keys, k)
		}
		sort.Float64s(keys)
		best := keys[0]
		for _, k := range keys[1:] {
			if counts[k] > counts[best] {
				best = k
			}
		}
		return FillValue{Numeric: true, Number: best}, nil
	}

	counts := make(map[string]int)
	values, valid := c.Strings()
	for i, v := range values {
		if valid[i] {
			counts[v]++
		}
	}
	if len(counts) == 0 {
		return FillValue{}, errors.NewValueError("mode", "column '"+c.Name()+"' has no observed values")
	}
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	best := keys[0]
	for _, k := range keys[1:] {
		if counts[k] > counts[best] {
			best = k
		}
	}
	return FillValue{Text: best}, nil
}

// fillValue は値の型と列の型の組み合わせに応じて欠損を埋めます。
// 数値列を数値に解釈できない文字列で埋める場合は文字列列に変換します。
func fillValue(c *frame.Column, v FillValue) *frame.Column {
	if !c.IsNumeric() {
		return fillText(c, v.String())
	}
	num := v.Number
	if !v.Numeric {
		parsed, err := strconv.ParseFloat(v.Text, 64)
		if err != nil {
			errors.Warn(errors.NewDataConversionWarning(c.Name(), "numeric", "categorical",
				"missing values filled with text '"+v.Text+"'"))
			return fillText(c, v.Text)
		}
		num = parsed
	}
	vals := c.Floats()
	for i, x := range vals {
		if math.IsNaN(x) {
			vals[i] = num
		}
	}
	return frame.NewNumeric(c.Name(), vals)
}

// fillText は欠損を s で埋めた文字列列を返します。数値列は整形して文字列列にします。
func fillText(c *frame.Column, s string) *frame.Column {
	values, valid := c.Strings()
	for i := range values {
		if !valid[i] {
			values[i] = s
		}
	}
	return frame.NewCategorical(c.Name(), values, nil)
}

// present は names のうちテーブルに存在するものを順序どおりに返します。
func present(t *frame.Table, names []string) []string {
	out := make([]string, 0, len(names))
	for _, n := range names {
		if t.Has(n) {
			out = append(out, n)
		}
	}
	return out
}
