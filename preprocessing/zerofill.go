package preprocessing

import (
	"encoding/json"

	"github.com/YuminosukeSato/tabprep/core/frame"
	"github.com/YuminosukeSato/tabprep/core/model"
)

// ZeroFiller は残っているすべての欠損値を 0（文字列列では "0"）で埋めます。
type ZeroFiller struct{}

// NewZeroFiller は ZeroFiller を作成します。
func NewZeroFiller() *ZeroFiller { return &ZeroFiller{} }

// Fit は自分自身を返します。
func (z *ZeroFiller) Fit(*frame.Table) (model.FittedStage, error) { return z, nil }

// Restore は自分自身を返します。
func (z *ZeroFiller) Restore(json.RawMessage) (model.FittedStage, error) { return z, nil }

// Transform は欠損を含む列だけを置き換えます。
func (z *ZeroFiller) Transform(t *frame.Table) (*frame.Table, error) {
	var out []*frame.Column
	for _, c := range t.Columns() {
		if c.MissingCount() > 0 {
			out = append(out, fillValue(c, FillValue{Numeric: true, Number: 0}))
		}
	}
	return t.Replace(out...)
}
