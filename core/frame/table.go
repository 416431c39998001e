package frame

import (
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/tabprep/pkg/errors"
)

// Table は行数を共有する名前付き列の順序付き集合です。
// 列名は一意です。
type Table struct {
	cols  []*Column
	index map[string]int
	rows  int
}

// New は列から Table を作成します。列名の重複は ConfigurationError、
// 行数の不一致は ShapeMismatchError になります。
func New(cols ...*Column) (*Table, error) {
	t := &Table{
		cols:  make([]*Column, 0, len(cols)),
		index: make(map[string]int, len(cols)),
	}
	for i, c := range cols {
		if _, dup := t.index[c.Name()]; dup {
			return nil, errors.NewConfigurationError("frame.New", c.Name(), "duplicate column name")
		}
		if i == 0 {
			t.rows = c.Len()
		} else if c.Len() != t.rows {
			return nil, errors.NewShapeMismatchError("frame.New: column '"+c.Name()+"'", t.rows, c.Len())
		}
		t.index[c.Name()] = len(t.cols)
		t.cols = append(t.cols, c)
	}
	return t, nil
}

// MustNew は New と同じですが、エラーの場合は panic します。
func MustNew(cols ...*Column) *Table {
	t, err := New(cols...)
	if err != nil {
		panic(err)
	}
	return t
}

// Empty は列を持たない n 行の Table を返します。
func Empty(n int) *Table {
	return &Table{index: map[string]int{}, rows: n}
}

// fromChecked は検証済みの列から Table を組み立てます。
func fromChecked(rows int, cols []*Column) *Table {
	t := &Table{cols: cols, index: make(map[string]int, len(cols)), rows: rows}
	for i, c := range cols {
		t.index[c.Name()] = i
	}
	return t
}

// Rows は行数を返します。
func (t *Table) Rows() int { return t.rows }

// NumCols は列数を返します。
func (t *Table) NumCols() int { return len(t.cols) }

// Names は列名を順序どおりに返します。
func (t *Table) Names() []string {
	names := make([]string, len(t.cols))
	for i, c := range t.cols {
		names[i] = c.Name()
	}
	return names
}

// Columns は列のスライスのコピーを返します。
func (t *Table) Columns() []*Column {
	out := make([]*Column, len(t.cols))
	copy(out, t.cols)
	return out
}

// Col は i 番目の列を返します。
func (t *Table) Col(i int) *Column { return t.cols[i] }

// Column は名前で列を引きます。
func (t *Table) Column(name string) (*Column, bool) {
	i, ok := t.index[name]
	if !ok {
		return nil, false
	}
	return t.cols[i], true
}

// Has は列が存在するかを返します。
func (t *Table) Has(name string) bool {
	_, ok := t.index[name]
	return ok
}

// Select は指定した順序で列を抜き出します。存在しない名前はエラーです。
func (t *Table) Select(names ...string) (*Table, error) {
	cols := make([]*Column, 0, len(names))
	seen := make(map[string]struct{}, len(names))
	for _, name := range names {
		c, ok := t.Column(name)
		if !ok {
			return nil, errors.NewColumnNotFoundError("select", name)
		}
		if _, dup := seen[name]; dup {
			return nil, errors.NewConfigurationError("select", name, "selected more than once")
		}
		seen[name] = struct{}{}
		cols = append(cols, c)
	}
	return fromChecked(t.rows, cols), nil
}

// Drop は指定した列を取り除いた Table を返します。存在しない名前はエラーです。
func (t *Table) Drop(names ...string) (*Table, error) {
	drop := make(map[string]struct{}, len(names))
	for _, name := range names {
		if !t.Has(name) {
			return nil, errors.NewColumnNotFoundError("drop", name)
		}
		drop[name] = struct{}{}
	}
	cols := make([]*Column, 0, len(t.cols))
	for _, c := range t.cols {
		if _, ok := drop[c.Name()]; !ok {
			cols = append(cols, c)
		}
	}
	return fromChecked(t.rows, cols), nil
}

// Filter は keep が true を返す列だけを元の順序で残します。
func (t *Table) Filter(keep func(*Column) bool) *Table {
	cols := make([]*Column, 0, len(t.cols))
	for _, c := range t.cols {
		if keep(c) {
			cols = append(cols, c)
		}
	}
	return fromChecked(t.rows, cols)
}

// With は同名の列を置き換えた（なければ末尾に追加した）Table を返します。
func (t *Table) With(c *Column) (*Table, error) {
	if len(t.cols) > 0 && c.Len() != t.rows {
		return nil, errors.NewShapeMismatchError("frame.With: column '"+c.Name()+"'", t.rows, c.Len())
	}
	cols := make([]*Column, len(t.cols), len(t.cols)+1)
	copy(cols, t.cols)
	if i, ok := t.index[c.Name()]; ok {
		cols[i] = c
	} else {
		cols = append(cols, c)
	}
	rows := t.rows
	if len(t.cols) == 0 {
		rows = c.Len()
	}
	return fromChecked(rows, cols), nil
}

// Replace は複数の列をまとめて置き換えます。
func (t *Table) Replace(cols ...*Column) (*Table, error) {
	out := t
	for _, c := range cols {
		var err error
		if out, err = out.With(c); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// Concat は t の列の後ろに o の列を連結します。行数と列名の一意性を検証します。
func (t *Table) Concat(o *Table) (*Table, error) {
	cols := make([]*Column, 0, len(t.cols)+len(o.cols))
	cols = append(cols, t.cols...)
	cols = append(cols, o.cols...)
	if len(cols) == 0 {
		return Empty(t.rows), nil
	}
	return New(cols...)
}

// Equal は列の順序・名前・値がすべて一致するかを返します。
func (t *Table) Equal(o *Table) bool {
	if t.rows != o.rows || len(t.cols) != len(o.cols) {
		return false
	}
	for i := range t.cols {
		if !t.cols[i].Equal(o.cols[i]) {
			return false
		}
	}
	return true
}

// ToDense は全列が数値の Table を行優先の行列に変換します。
// 文字列列を含む場合は ConfigurationError、行または列が無い場合は ErrEmptyData を返します。
func (t *Table) ToDense() (*mat.Dense, error) {
	if t.rows == 0 || len(t.cols) == 0 {
		return nil, errors.Wrapf(errors.ErrEmptyData, "frame.ToDense: %d rows, %d columns", t.rows, len(t.cols))
	}
	data := make([]float64, t.rows*len(t.cols))
	for j, c := range t.cols {
		if c.Kind() != Numeric {
			return nil, errors.NewConfigurationError("frame.ToDense", c.Name(), "column is not numeric")
		}
		for i := 0; i < t.rows; i++ {
			data[i*len(t.cols)+j] = c.nums[i]
		}
	}
	return mat.NewDense(t.rows, len(t.cols), data), nil
}
