package preprocessing

import (
	"encoding/json"

	"github.com/YuminosukeSato/tabprep/core/frame"
	"github.com/YuminosukeSato/tabprep/core/model"
	"github.com/YuminosukeSato/tabprep/pkg/errors"
)

// Selector は列の部分集合を取り出します。
// 名前指定モードでは指定した列を指定した順序で返し、存在しない名前はエラーです。
// クラス指定モードでは "numeric" または "categorical" の列を元の順序で返します。
type Selector struct {
	names   []string
	class   string
	byClass bool
}

// SelectColumns は名前指定モードの Selector を作成します。
func SelectColumns(names ...string) *Selector {
	return &Selector{names: append([]string(nil), names...)}
}

// SelectClass はクラス指定モードの Selector を作成します。
// class が "numeric" でも "categorical" でもない場合、Fit と Transform は ConfigurationError を返します。
func SelectClass(class string) *Selector {
	return &Selector{class: class, byClass: true}
}

// Fit は設定を検証して自分自身を返します。
func (s *Selector) Fit(*frame.Table) (model.FittedStage, error) {
	if err := s.validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// Restore は設定を検証して自分自身を返します。
func (s *Selector) Restore(json.RawMessage) (model.FittedStage, error) {
	return s.Fit(nil)
}

// Transform は選択した列だけのテーブルを返します。
func (s *Selector) Transform(t *frame.Table) (*frame.Table, error) {
	if err := s.validate(); err != nil {
		return nil, err
	}
	if !s.byClass {
		return t.Select(s.names...)
	}
	want := frame.Numeric
	if s.class == frame.Categorical.String() {
		want = frame.Categorical
	}
	return t.Filter(func(c *frame.Column) bool { return c.Kind() == want }), nil
}

func (s *Selector) validate() error {
	if !s.byClass {
		return nil
	}
	switch s.class {
	case frame.Numeric.String(), frame.Categorical.String():
		return nil
	default:
		return errors.NewConfigurationError("select", "",
			"expected class 'categorical' or 'numeric', but got '"+s.class+"'")
	}
}
