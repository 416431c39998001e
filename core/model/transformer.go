// Package model はパイプラインのステージ契約と、学習済み状態の永続化を提供します。
package model

import (
	"encoding/json"

	"github.com/YuminosukeSato/tabprep/core/frame"
)

// Stage は学習前のステージです。
// Fit は入力テーブルからパラメータを学習し、不変の FittedStage を返します。
// 学習すべきパラメータを持たないステージは自分自身を返します。
type Stage interface {
	Fit(t *frame.Table) (FittedStage, error)
}

// FittedStage は学習済みのステージです。
// Transform は入力を変更せず新しいテーブルを返し、複数のゴルーチンから同時に呼び出せます。
type FittedStage interface {
	Transform(t *frame.Table) (*frame.Table, error)
}

// Exporter は学習済みパラメータをプレーンなデータとして書き出せる FittedStage です。
type Exporter interface {
	ExportState() (json.RawMessage, error)
}

// Restorer は ExportState の出力から FittedStage を復元できる Stage です。
// Exporter を実装しないステージは Fit を呼ばずに Restore(nil) で復元されます。
type Restorer interface {
	Restore(params json.RawMessage) (FittedStage, error)
}

// FeatureNamer は出力列の順序を固定している FittedStage です（Aligner など）。
type FeatureNamer interface {
	FeatureNames() []string
}

// StageFunc は状態を持たない変換関数を Stage / FittedStage として扱うアダプタです。
type StageFunc func(t *frame.Table) (*frame.Table, error)

// Fit は自分自身を返します。
func (f StageFunc) Fit(*frame.Table) (FittedStage, error) { return f, nil }

// Transform は f を呼び出します。
func (f StageFunc) Transform(t *frame.Table) (*frame.Table, error) { return f(t) }

// Restore は自分自身を返します。
func (f StageFunc) Restore(json.RawMessage) (FittedStage, error) { return f, nil }

// FitTransform は Fit の後に同じテーブルで Transform を実行します。
func FitTransform(s Stage, t *frame.Table) (FittedStage, *frame.Table, error) {
	fitted, err := s.Fit(t)
	if err != nil {
		return nil, nil, err
	}
	out, err := fitted.Transform(t)
	if err != nil {
		return nil, nil, err
	}
	return fitted, out, nil
}
