package preprocessing

import (
	"encoding/json"

	"github.com/YuminosukeSato/tabprep/core/frame"
	"github.com/YuminosukeSato/tabprep/core/model"
)

// Dropper は宣言した列を取り除きます。存在しない列の指定はエラーです。
type Dropper struct {
	names []string
}

// NewDropper は Dropper を作成します。
func NewDropper(names ...string) *Dropper {
	return &Dropper{names: append([]string(nil), names...)}
}

// Fit は自分自身を返します。
func (d *Dropper) Fit(*frame.Table) (model.FittedStage, error) { return d, nil }

// Restore は自分自身を返します。
func (d *Dropper) Restore(json.RawMessage) (model.FittedStage, error) { return d, nil }

// Transform は残りの列の相対順序を保ったまま列を取り除きます。
func (d *Dropper) Transform(t *frame.Table) (*frame.Table, error) {
	return t.Drop(d.names...)
}
