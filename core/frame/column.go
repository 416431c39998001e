// Package frame はパイプラインが扱う表形式データ（Table / Column）を提供します。
//
// 列は数値列（欠損は NaN）か文字列列（欠損は有効マスクで表現）のどちらかで、
// その区別は宣言ではなく保持している値の型で決まります。
// Column と Table は不変であり、各ステージは新しい Table を返します。
package frame

import (
	"fmt"
	"math"
	"sort"
	"strconv"
)

// Kind は列の意味的クラスです。
type Kind int

const (
	// Numeric は float64 を保持する列です。欠損値は NaN です。
	Numeric Kind = iota
	// Categorical は文字列を保持する列です。
	Categorical
)

// String はクラス名を返します。セレクタの指定値と同じ表記です。
func (k Kind) String() string {
	switch k {
	case Numeric:
		return "numeric"
	case Categorical:
		return "categorical"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Column は名前付きの一列です。
type Column struct {
	name  string
	kind  Kind
	nums  []float64
	strs  []string
	valid []bool
}

// NewNumeric は数値列を作成します。values はコピーされます。
func NewNumeric(name string, values []float64) *Column {
	nums := make([]float64, len(values))
	copy(nums, values)
	return &Column{name: name, kind: Numeric, nums: nums}
}

// NewCategorical は文字列列を作成します。valid が nil の場合はすべて観測値として扱います。
// len(valid) が len(values) と異なる場合は panic します（gonum の mat.NewDense と同じ流儀）。
func NewCategorical(name string, values []string, valid []bool) *Column {
	if valid != nil && len(valid) != len(values) {
		panic(fmt.Sprintf("frame: column %q: %d values but %d validity flags", name, len(values), len(valid)))
	}
	strs := make([]string, len(values))
	copy(strs, values)
	mask := make([]bool, len(values))
	for i := range mask {
		mask[i] = valid == nil || valid[i]
		if !mask[i] {
			strs[i] = ""
		}
	}
	return &Column{name: name, kind: Categorical, strs: strs, valid: mask}
}

// NewCategoricalNA は na と等しいセルを欠損として文字列列を作成します。
// テストやリテラルからの構築に便利です。
func NewCategoricalNA(name string, values []string, na string) *Column {
	valid := make([]bool, len(values))
	for i, v := range values {
		valid[i] = v != na
	}
	return NewCategorical(name, values, valid)
}

// Name は列名を返します。
func (c *Column) Name() string { return c.name }

// Kind は列のクラスを返します。
func (c *Column) Kind() Kind { return c.kind }

// IsNumeric は数値列かどうかを返します。
func (c *Column) IsNumeric() bool { return c.kind == Numeric }

// Len は行数を返します。
func (c *Column) Len() int {
	if c.kind == Numeric {
		return len(c.nums)
	}
	return len(c.strs)
}

// Float は数値列の i 行目を返します。文字列列では NaN を返します。
func (c *Column) Float(i int) float64 {
	if c.kind != Numeric {
		return math.NaN()
	}
	return c.nums[i]
}

// Str は文字列列の i 行目と、それが観測値かどうかを返します。
// 数値列の場合は値を文字列に整形して返します。
func (c *Column) Str(i int) (string, bool) {
	if c.kind == Numeric {
		v := c.nums[i]
		if math.IsNaN(v) {
			return "", false
		}
		return FormatFloat(v), true
	}
	return c.strs[i], c.valid[i]
}

// IsMissing は i 行目が欠損かどうかを返します。
func (c *Column) IsMissing(i int) bool {
	if c.kind == Numeric {
		return math.IsNaN(c.nums[i])
	}
	return !c.valid[i]
}

// MissingCount は欠損セルの数を返します。
func (c *Column) MissingCount() int {
	n := 0
	for i := 0; i < c.Len(); i++ {
		if c.IsMissing(i) {
			n++
		}
	}
	return n
}

// Floats は数値列の値のコピーを返します。文字列列では nil を返します。
func (c *Column) Floats() []float64 {
	if c.kind != Numeric {
		return nil
	}
	out := make([]float64, len(c.nums))
	copy(out, c.nums)
	return out
}

// Strings は文字列列の値と有効マスクのコピーを返します。
// 数値列の場合は FormatFloat で整形した値を返します（NaN は欠損）。
func (c *Column) Strings() ([]string, []bool) {
	n := c.Len()
	values := make([]string, n)
	valid := make([]bool, n)
	for i := 0; i < n; i++ {
		values[i], valid[i] = c.Str(i)
	}
	return values, valid
}

// Levels は観測された文字列の水準をバイト順で重複なく返します。
func (c *Column) Levels() []string {
	seen := make(map[string]struct{})
	for i := 0; i < c.Len(); i++ {
		if s, ok := c.Str(i); ok {
			seen[s] = struct{}{}
		}
	}
	levels := make([]string, 0, len(seen))
	for s := range seen {
		levels = append(levels, s)
	}
	sort.Strings(levels)
	return levels
}

// Rename は同じ値を持つ別名の列を返します。
func (c *Column) Rename(name string) *Column {
	out := *c
	out.name = name
	return &out
}

// Equal は名前・クラス・値（欠損の位置を含む）が一致するかを返します。
func (c *Column) Equal(o *Column) bool {
	if c.name != o.name || c.kind != o.kind || c.Len() != o.Len() {
		return false
	}
	for i := 0; i < c.Len(); i++ {
		if c.IsMissing(i) != o.IsMissing(i) {
			return false
		}
		if c.IsMissing(i) {
			continue
		}
		if c.kind == Numeric {
			if c.nums[i] != o.nums[i] {
				return false
			}
		} else if c.strs[i] != o.strs[i] {
			return false
		}
	}
	return true
}

// Zeros は長さ n のゼロで埋めた数値列を返します。
func Zeros(name string, n int) *Column {
	return &Column{name: name, kind: Numeric, nums: make([]float64, n)}
}

// FormatFloat は数値を最短の10進表記に整形します（1.0 は "1"、60.0 は "60"）。
func FormatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
