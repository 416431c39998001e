package model

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/zeebo/xxh3"

	"github.com/YuminosukeSato/tabprep/pkg/errors"
)

// StateVersion は PipelineState の書式バージョンです。
const StateVersion = "1"

// StageState は一つのステージの学習済みパラメータです。
type StageState struct {
	// Name はパイプライン内のステップ名
	Name string `json:"name"`

	// Params は Exporter.ExportState の出力（状態を持たないステージでは空）
	Params json.RawMessage `json:"params,omitempty"`
}

// PipelineState は学習済みパイプラインを表すプレーンなデータです（シリアライゼーション用）。
type PipelineState struct {
	// Version は書式バージョン（互換性チェック用）
	Version string `json:"version"`

	// Features は参照列リスト（Aligner が固定した出力列の順序）
	Features []string `json:"features"`

	// LayoutHash は Features の指紋。Features が書き換えられていないことを検証する
	LayoutHash string `json:"layout_hash"`

	// Stages はステップ順の学習済みパラメータ
	Stages []StageState `json:"stages"`

	// Metadata は追加の情報（学習時の行数、作成日時など）
	Metadata map[string]string `json:"metadata,omitempty"`

	// IsFitted は学習済みかどうか
	IsFitted bool `json:"is_fitted"`
}

// LayoutHash は列名リストの xxh3 指紋を16進文字列で返します。
// 順序が異なれば別の値になります。
func LayoutHash(names []string) string {
	return fmt.Sprintf("%016x", xxh3.HashString(strings.Join(names, "\x1f")))
}

// ToJSON はPipelineStateをJSON形式にシリアライズ
func (s *PipelineState) ToJSON() ([]byte, error) {
	return json.MarshalIndent(s, "", "  ")
}

// FromJSON はJSON形式からPipelineStateをデシリアライズ
func (s *PipelineState) FromJSON(data []byte) error {
	if err := json.Unmarshal(data, s); err != nil {
		return errors.Wrap(err, "decode pipeline state")
	}
	return nil
}

// Validate はPipelineStateの妥当性を検証
func (s *PipelineState) Validate() error {
	if s.Version == "" {
		return errors.NewValidationError("version", "is required", s.Version)
	}
	if s.Version != StateVersion {
		return errors.NewValidationError("version", "unsupported state version", s.Version)
	}
	if !s.IsFitted {
		return errors.NewValidationError("is_fitted", "state was saved from an unfitted pipeline", s.IsFitted)
	}
	seen := make(map[string]struct{}, len(s.Stages))
	for _, st := range s.Stages {
		if st.Name == "" {
			return errors.NewValidationError("stages", "stage name is required", st.Name)
		}
		if _, dup := seen[st.Name]; dup {
			return errors.NewValidationError("stages", "duplicate stage name", st.Name)
		}
		seen[st.Name] = struct{}{}
	}
	if got := LayoutHash(s.Features); got != s.LayoutHash {
		return errors.Wrapf(errors.ErrLayoutChanged, "state: layout_hash %q, features hash to %q", s.LayoutHash, got)
	}
	return nil
}

// Stage は名前でステージの学習済みパラメータを引きます。
func (s *PipelineState) Stage(name string) (StageState, bool) {
	for _, st := range s.Stages {
		if st.Name == name {
			return st, true
		}
	}
	return StageState{}, false
}

// Clone はPipelineStateのディープコピーを作成
func (s *PipelineState) Clone() *PipelineState {
	clone := &PipelineState{
		Version:    s.Version,
		LayoutHash: s.LayoutHash,
		IsFitted:   s.IsFitted,
		Features:   make([]string, len(s.Features)),
		Stages:     make([]StageState, len(s.Stages)),
	}
	copy(clone.Features, s.Features)
	for i, st := range s.Stages {
		clone.Stages[i] = StageState{Name: st.Name}
		if st.Params != nil {
			clone.Stages[i].Params = append(json.RawMessage(nil), st.Params...)
		}
	}
	if s.Metadata != nil {
		clone.Metadata = make(map[string]string, len(s.Metadata))
		for k, v := range s.Metadata {
			clone.Metadata[k] = v
		}
	}
	return clone
}
