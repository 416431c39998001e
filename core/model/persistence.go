package model

import (
	"encoding/gob"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/YuminosukeSato/tabprep/pkg/errors"
)

// Format は PipelineState の保存形式です。
type Format int

const (
	// FormatJSON は人が読める JSON 形式
	FormatJSON Format = iota
	// FormatGob は encoding/gob 形式
	FormatGob
)

// FormatForPath はファイル拡張子から保存形式を決めます。".gob" 以外は JSON です。
func FormatForPath(path string) Format {
	if strings.EqualFold(filepath.Ext(path), ".gob") {
		return FormatGob
	}
	return FormatJSON
}

// SaveState はPipelineStateをファイルに保存する
//
// 一時ファイルに書き込んでから名前を変更するため、失敗しても既存のファイルは壊れません。
//
// 使用例:
//
//	state, _ := fitted.State()
//	err := model.SaveState(state, "state.json")
func SaveState(state *PipelineState, filename string) error {
	if err := state.Validate(); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(filename), ".tabprep-state-*")
	if err != nil {
		return errors.Wrap(err, "failed to create file")
	}
	defer os.Remove(tmp.Name())

	if err := SaveStateToWriter(state, tmp, FormatForPath(filename)); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrap(err, "failed to close file")
	}
	if err := os.Rename(tmp.Name(), filename); err != nil {
		return errors.Wrap(err, "failed to rename state file")
	}
	return nil
}

// LoadState はファイルからPipelineStateを読み込み、検証する
func LoadState(filename string) (*PipelineState, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open file")
	}
	defer file.Close()

	state, err := LoadStateFromReader(file, FormatForPath(filename))
	if err != nil {
		return nil, errors.Wrapf(err, "load %s", filename)
	}
	return state, nil
}

// SaveStateToWriter はPipelineStateをio.Writerに保存する
func SaveStateToWriter(state *PipelineState, w io.Writer, format Format) error {
	if format == FormatGob {
		if err := gob.NewEncoder(w).Encode(state); err != nil {
			return errors.Wrap(err, "failed to encode state")
		}
		return nil
	}
	data, err := state.ToJSON()
	if err != nil {
		return errors.Wrap(err, "failed to encode state")
	}
	if _, err := w.Write(append(data, '\n')); err != nil {
		return errors.Wrap(err, "failed to write state")
	}
	return nil
}

// LoadStateFromReader はio.ReaderからPipelineStateを読み込み、検証する
func LoadStateFromReader(r io.Reader, format Format) (*PipelineState, error) {
	state := &PipelineState{}
	if format == FormatGob {
		if err := gob.NewDecoder(r).Decode(state); err != nil {
			return nil, errors.Wrap(err, "failed to decode state")
		}
	} else {
		data, err := io.ReadAll(r)
		if err != nil {
			return nil, errors.Wrap(err, "failed to read state")
		}
		if err := state.FromJSON(data); err != nil {
			return nil, err
		}
	}
	if err := state.Validate(); err != nil {
		return nil, err
	}
	return state, nil
}
