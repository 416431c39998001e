package preprocessing

import (
	"encoding/json"
	"math"
	"sort"

	"github.com/YuminosukeSato/tabprep/core/frame"
	"github.com/YuminosukeSato/tabprep/core/model"
	"github.com/YuminosukeSato/tabprep/pkg/errors"
)

// GroupedOption は GroupedImputer の設定関数です。
type GroupedOption func(*GroupedImputer)

// WithFrozenGroupMedians は Fit 時のグループ中央値と全体中央値を固定し、
// 以降の Transform で再利用するようにします。
// 指定しない場合は呼び出しごとに入力テーブル自身の統計量を使います。
func WithFrozenGroupMedians() GroupedOption {
	return func(g *GroupedImputer) {
		g.freeze = true
	}
}

// GroupedImputer は数値列の欠損を、グループ列の値が同じ行の中央値で埋めます。
// グループに観測値が一つもない場合と、グループ列自体が欠損している行は
// 全体の中央値で埋めます。
type GroupedImputer struct {
	target string
	group  string
	freeze bool
}

// NewGroupedImputer は target 列を group 列ごとの中央値で埋める GroupedImputer を作成します。
func NewGroupedImputer(target, group string, opts ...GroupedOption) *GroupedImputer {
	g := &GroupedImputer{target: target, group: group}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// GroupMedians はグループごとの中央値と全体の中央値です。
type GroupMedians struct {
	Global float64            `json:"global"`
	Groups map[string]float64 `json:"groups"`
}

// FittedGroupedImputer は学習済みの GroupedImputer です。
// stats が nil の場合は呼び出しごとに統計量を再計算します。
// fallback は再計算モードで入力テーブルに観測値が一つもない場合に使う、
// Fit 時の全体中央値です。
type FittedGroupedImputer struct {
	cfg      *GroupedImputer
	stats    *GroupMedians
	fallback *float64
}

// recomputeState は再計算モードで永続化する状態です。
type recomputeState struct {
	Fallback *float64 `json:"fallback,omitempty"`
}

// Fit は固定モードの場合に中央値を計算します。
// 再計算モードでは Fit 時の全体中央値だけを最後のフォールバックとして保持します。
func (g *GroupedImputer) Fit(t *frame.Table) (model.FittedStage, error) {
	if !g.freeze && t == nil {
		return &FittedGroupedImputer{cfg: g}, nil
	}
	target, group, err := g.columns("fit", t)
	if err != nil {
		return nil, err
	}
	if !g.freeze {
		f := &FittedGroupedImputer{cfg: g}
		if target.MissingCount() < target.Len() {
			m := Median(dropNaN(target.Floats()))
			f.fallback = &m
		}
		return f, nil
	}
	stats, err := computeGroupMedians(target, group)
	if err != nil {
		return nil, err
	}
	return &FittedGroupedImputer{cfg: g, stats: stats}, nil
}

// Restore は ExportState の出力から復元します。空のパラメータは
// フォールバックなしの再計算モードです。
func (g *GroupedImputer) Restore(params json.RawMessage) (model.FittedStage, error) {
	if len(params) == 0 || string(params) == "null" {
		if g.freeze {
			return nil, errors.NewValidationError("grouped", "frozen medians missing from state", nil)
		}
		return &FittedGroupedImputer{cfg: g}, nil
	}
	if !g.freeze {
		var st recomputeState
		if err := json.Unmarshal(params, &st); err != nil {
			return nil, errors.Wrap(err, "grouped imputer: decode state")
		}
		if st.Fallback != nil && (math.IsNaN(*st.Fallback) || math.IsInf(*st.Fallback, 0)) {
			return nil, errors.NewValidationError("grouped.fallback", "must be finite", *st.Fallback)
		}
		return &FittedGroupedImputer{cfg: g, fallback: st.Fallback}, nil
	}
	var stats GroupMedians
	if err := json.Unmarshal(params, &stats); err != nil {
		return nil, errors.Wrap(err, "grouped imputer: decode state")
	}
	if stats.Groups == nil {
		stats.Groups = map[string]float64{}
	}
	return &FittedGroupedImputer{cfg: g, stats: &stats}, nil
}

// ExportState は固定された中央値を書き出します。再計算モードでは Fit 時の
// フォールバックだけを書き出し、それもなければ null です。
func (f *FittedGroupedImputer) ExportState() (json.RawMessage, error) {
	if f.stats != nil {
		return json.Marshal(f.stats)
	}
	if f.fallback == nil {
		return json.RawMessage("null"), nil
	}
	return json.Marshal(recomputeState{Fallback: f.fallback})
}

// Medians は固定された中央値を返します。再計算モードでは nil です。
func (f *FittedGroupedImputer) Medians() *GroupMedians {
	return f.stats
}

// Fallback は再計算モードで使う Fit 時の全体中央値を返します。
func (f *FittedGroupedImputer) Fallback() (float64, bool) {
	if f.fallback == nil {
		return 0, false
	}
	return *f.fallback, true
}

// Transform は target 列の欠損を埋めます。出力の target 列に欠損は残りません。
func (f *FittedGroupedImputer) Transform(t *frame.Table) (*frame.Table, error) {
	target, group, err := f.cfg.columns("transform", t)
	if err != nil {
		return nil, err
	}
	if target.MissingCount() == 0 {
		return t, nil
	}

	stats := f.stats
	if stats == nil {
		if target.MissingCount() == target.Len() && f.fallback != nil {
			stats = &GroupMedians{Global: *f.fallback}
		} else if stats, err = computeGroupMedians(target, group); err != nil {
			return nil, err
		}
	}

	vals := target.Floats()
	for i, v := range vals {
		if !math.IsNaN(v) {
			continue
		}
		vals[i] = stats.Global
		if key, ok := group.Str(i); ok {
			if m, ok := stats.Groups[key]; ok {
				vals[i] = m
			}
		}
	}
	return t.With(frame.NewNumeric(f.cfg.target, vals))
}

func (g *GroupedImputer) columns(op string, t *frame.Table) (*frame.Column, *frame.Column, error) {
	target, ok := t.Column(g.target)
	if !ok {
		return nil, nil, errors.NewColumnNotFoundError("grouped impute "+op, g.target)
	}
	group, ok := t.Column(g.group)
	if !ok {
		return nil, nil, errors.NewColumnNotFoundError("grouped impute "+op, g.group)
	}
	if !target.IsNumeric() {
		return nil, nil, errors.NewConfigurationError("grouped impute "+op, g.target, "column is not numeric")
	}
	return target, group, nil
}

// computeGroupMedians は観測値だけから中央値を計算します。
// 観測値のないグループは Groups に含めません。
func computeGroupMedians(target, group *frame.Column) (*GroupMedians, error) {
	all := make([]float64, 0, target.Len())
	byGroup := make(map[string][]float64)
	for i := 0; i < target.Len(); i++ {
		v := target.Float(i)
		if math.IsNaN(v) {
			continue
		}
		all = append(all, v)
		if key, ok := group.Str(i); ok {
			byGroup[key] = append(byGroup[key], v)
		}
	}
	if len(all) == 0 {
		return nil, errors.NewValueError("grouped impute", "column '"+target.Name()+"' has no observed values, median is undefined")
	}
	stats := &GroupMedians{Global: Median(all), Groups: make(map[string]float64, len(byGroup))}
	for key, vs := range byGroup {
		stats.Groups[key] = Median(vs)
	}
	return stats, nil
}

func dropNaN(values []float64) []float64 {
	out := make([]float64, 0, len(values))
	for _, v := range values {
		if !math.IsNaN(v) {
			out = append(out, v)
		}
	}
	return out
}

// Median は中央値を返します。要素数が偶数の場合は中央の二つの平均です。
// 空のスライスでは NaN を返します。values は変更しません。
func Median(values []float64) float64 {
	if len(values) == 0 {
		return math.NaN()
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid]
	}
	return (sorted[mid-1] + sorted[mid]) / 2
}
