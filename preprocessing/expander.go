package preprocessing

import (
	"encoding/json"

	"github.com/YuminosukeSato/tabprep/core/frame"
	"github.com/YuminosukeSato/tabprep/core/model"
	"github.com/YuminosukeSato/tabprep/core/parallel"
	"github.com/YuminosukeSato/tabprep/pkg/errors"
)

// IndicatorSeparator は指示列の名前 "<field>_<level>" の区切り文字です。
const IndicatorSeparator = "_"

// Expander は文字列列を 0/1 の指示列に展開します。
//
// 出力は数値列（元の相対順序）の後に、元の列順で各文字列列の指示列を並べたものです。
// 各列の水準はバイト順に並べ、最初の水準は冗長なため指示列を作りません。
// 欠損セルの行はその列のすべての指示列が 0 になります。
// 入力テーブル自身の水準だけを見るため、別々に展開したテーブルの列構成は
// 一般に一致しません。揃えるには後段に Aligner を置きます。
type Expander struct{}

// NewExpander は Expander を作成します。
func NewExpander() *Expander { return &Expander{} }

// Fit は自分自身を返します。
func (e *Expander) Fit(*frame.Table) (model.FittedStage, error) { return e, nil }

// Restore は自分自身を返します。
func (e *Expander) Restore(json.RawMessage) (model.FittedStage, error) { return e, nil }

// Transform は展開したテーブルを返します。
func (e *Expander) Transform(t *frame.Table) (*frame.Table, error) {
	numeric := t.Filter(func(c *frame.Column) bool { return c.IsNumeric() })
	categorical := t.Filter(func(c *frame.Column) bool { return !c.IsNumeric() })

	expanded := make([][]*frame.Column, categorical.NumCols())
	if err := parallel.ForEach(categorical.NumCols(), func(i int) error {
		expanded[i] = Indicators(categorical.Col(i))
		return nil
	}); err != nil {
		return nil, err
	}

	cols := numeric.Columns()
	source := make(map[string]string, len(cols))
	for _, c := range cols {
		source[c.Name()] = c.Name()
	}
	for i, ind := range expanded {
		from := categorical.Col(i).Name()
		for _, c := range ind {
			if prev, dup := source[c.Name()]; dup {
				return nil, errors.NewConfigurationError("expand", c.Name(),
					"indicator name produced by both '"+prev+"' and '"+from+"'")
			}
			source[c.Name()] = from
		}
		cols = append(cols, ind...)
	}
	if len(cols) == 0 {
		return frame.Empty(t.Rows()), nil
	}
	return frame.New(cols...)
}

// Indicators は一つの列の指示列を返します。水準が一つ以下の列では空です。
func Indicators(c *frame.Column) []*frame.Column {
	levels := c.Levels()
	if len(levels) <= 1 {
		return nil
	}
	pos := make(map[string]int, len(levels)-1)
	data := make([][]float64, len(levels)-1)
	for i, l := range levels[1:] {
		pos[l] = i
		data[i] = make([]float64, c.Len())
	}
	for row := 0; row < c.Len(); row++ {
		s, ok := c.Str(row)
		if !ok {
			continue
		}
		if j, ok := pos[s]; ok {
			data[j][row] = 1
		}
	}
	out := make([]*frame.Column, len(data))
	for i, l := range levels[1:] {
		out[i] = frame.NewNumeric(c.Name()+IndicatorSeparator+l, data[i])
	}
	return out
}
