// Package preprocessing はパイプラインを構成する表変換ステージを提供します。
//
// 各ステージは model.Stage を実装し、Fit で不変の model.FittedStage を返します。
// 学習すべきパラメータを持たないステージは自分自身を返します。
package preprocessing

import (
	"encoding/json"
	"math"

	"github.com/YuminosukeSato/tabprep/core/frame"
	"github.com/YuminosukeSato/tabprep/core/model"
	"github.com/YuminosukeSato/tabprep/core/parallel"
	"github.com/YuminosukeSato/tabprep/pkg/errors"
)

// Ordinal は一つの順序カテゴリ列の水準表です。
// Levels[i] の順位は Start+i です。
type Ordinal struct {
	Column string
	Levels []string
	Start  int
}

// Rank は水準の順位を返します。未知の水準では false を返します。
func (o Ordinal) Rank(level string) (int, bool) {
	for i, l := range o.Levels {
		if l == level {
			return o.Start + i, true
		}
	}
	return 0, false
}

// UnknownLevelPolicy は水準表にない値の扱いです。
type UnknownLevelPolicy int

const (
	// UnknownAsMissing は未知の水準を欠損値にし、DataLossWarning を発生させます。
	UnknownAsMissing UnknownLevelPolicy = iota
	// UnknownAsError は最初の未知の水準で UnknownLevelError を返します。
	UnknownAsError
)

// ParseUnknownLevelPolicy は設定値 "null" / "error" を変換します。
func ParseUnknownLevelPolicy(s string) (UnknownLevelPolicy, error) {
	switch s {
	case "", "null":
		return UnknownAsMissing, nil
	case "error":
		return UnknownAsError, nil
	default:
		return UnknownAsMissing, errors.NewValidationError("ordinal.unknown", "expected 'null' or 'error'", s)
	}
}

// String は設定値の表記を返します。
func (p UnknownLevelPolicy) String() string {
	if p == UnknownAsError {
		return "error"
	}
	return "null"
}

// RankOption は RankMapper の設定関数です。
type RankOption func(*RankMapper)

// WithUnknownLevels は未知の水準の扱いを設定します（デフォルト: UnknownAsMissing）。
func WithUnknownLevels(p UnknownLevelPolicy) RankOption {
	return func(r *RankMapper) {
		r.unknown = p
	}
}

// RankMapper は順序カテゴリ列の文字列を水準表に従って整数の順位に置き換えます。
// 入力に存在しない列は無視します。欠損値は欠損値のままです。
// 状態を持たないため Fit は自分自身を返します。
type RankMapper struct {
	tables  []Ordinal
	unknown UnknownLevelPolicy
}

// NewRankMapper は水準表の一覧から RankMapper を作成します。
//
// 使用例:
//
//	mapper := preprocessing.NewRankMapper(ames.OrdinalTables(),
//	    preprocessing.WithUnknownLevels(preprocessing.UnknownAsError))
func NewRankMapper(tables []Ordinal, opts ...RankOption) *RankMapper {
	r := &RankMapper{tables: append([]Ordinal(nil), tables...)}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Fit は自分自身を返します。
func (r *RankMapper) Fit(*frame.Table) (model.FittedStage, error) { return r, nil }

// Restore は自分自身を返します。
func (r *RankMapper) Restore(json.RawMessage) (model.FittedStage, error) { return r, nil }

// Transform は認識した各列を数値の順位列に置き換えます。
// 数値として読み込まれた列は整形した文字列で水準表を引きます。
func (r *RankMapper) Transform(t *frame.Table) (*frame.Table, error) {
	var present []Ordinal
	for _, o := range r.tables {
		if t.Has(o.Column) {
			present = append(present, o)
		}
	}

	cols := make([]*frame.Column, len(present))
	unknown := make([]int, len(present))
	if err := parallel.ForEach(len(present), func(i int) error {
		src, _ := t.Column(present[i].Column)
		var err error
		cols[i], unknown[i], err = r.mapColumn(present[i], src)
		return err
	}); err != nil {
		return nil, err
	}

	for i, o := range present {
		if unknown[i] > 0 {
			errors.Warn(errors.NewDataLossWarning("rank", o.Column, unknown[i], "level not in ordinal table"))
		}
	}
	return t.Replace(cols...)
}

func (r *RankMapper) mapColumn(o Ordinal, src *frame.Column) (*frame.Column, int, error) {
	out := make([]float64, src.Len())
	unknown := 0
	for i := range out {
		level, ok := src.Str(i)
		if !ok {
			out[i] = math.NaN()
			continue
		}
		rank, known := o.Rank(level)
		if !known {
			if r.unknown == UnknownAsError {
				return nil, 0, errors.NewUnknownLevelError(o.Column, level, i)
			}
			unknown++
			out[i] = math.NaN()
			continue
		}
		out[i] = float64(rank)
	}
	return frame.NewNumeric(o.Column, out), unknown, nil
}
