package preprocessing

import (
	"encoding/json"

	"github.com/YuminosukeSato/tabprep/core/frame"
	"github.com/YuminosukeSato/tabprep/core/model"
	"github.com/YuminosukeSato/tabprep/pkg/errors"
)

// TypeCoercer は数値に見える離散コード列（MS SubClass など）を文字列列に変換し、
// 後段でカテゴリとして扱われるようにします。
// 数値は最短表記に整形します（60.0 は "60"）。欠損は欠損のまま。冪等です。
type TypeCoercer struct {
	columns []string
}

// NewTypeCoercer は TypeCoercer を作成します。
func NewTypeCoercer(columns ...string) *TypeCoercer {
	return &TypeCoercer{columns: append([]string(nil), columns...)}
}

// Fit は自分自身を返します。
func (c *TypeCoercer) Fit(*frame.Table) (model.FittedStage, error) { return c, nil }

// Restore は自分自身を返します。
func (c *TypeCoercer) Restore(json.RawMessage) (model.FittedStage, error) { return c, nil }

// Transform は対象列を文字列列に置き換えます。存在しない列はエラーです。
func (c *TypeCoercer) Transform(t *frame.Table) (*frame.Table, error) {
	var out []*frame.Column
	for _, name := range c.columns {
		col, ok := t.Column(name)
		if !ok {
			return nil, errors.NewColumnNotFoundError("coerce", name)
		}
		if !col.IsNumeric() {
			continue
		}
		values, valid := col.Strings()
		out = append(out, frame.NewCategorical(name, values, valid))
	}
	return t.Replace(out...)
}
