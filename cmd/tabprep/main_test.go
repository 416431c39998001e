package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YuminosukeSato/tabprep/core/model"
	"github.com/YuminosukeSato/tabprep/source"
)

const trainCSV = `Id,MS SubClass,MS Zoning,Lot Frontage,Neighborhood,Alley,Lot Shape,Garage Cars,TotRms AbvGrd,1st Flr SF,Garage Yr Blt,Central Air,SalePrice
1,60,RL,65,CollgCr,NA,Reg,2,8,856,2003,Y,208500
2,20,RL,NA,Veenker,NA,Reg,2,6,1262,1976,Y,181500
3,60,RM,68,CollgCr,Grvl,IR1,2,6,920,2001,Y,223500
4,70,NA,60,Crawfor,NA,IR1,3,7,961,1998,N,140000
`

const testCSV = `Id,MS SubClass,MS Zoning,Lot Frontage,Neighborhood,Alley,Lot Shape,Garage Cars,TotRms AbvGrd,1st Flr SF,Garage Yr Blt,Central Air
1461,20,NA,NA,NAmes,Pave,IR3,1,5,896,1961,Y
1462,120,RH,80,NAmes,NA,Reg,NA,6,1329,NA,Y
`

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), err
}

func workspace(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	require.NoError(t, os.WriteFile("train.csv", []byte(trainCSV), 0o600))
	require.NoError(t, os.WriteFile("test.csv", []byte(testCSV), 0o600))
	return dir
}

func TestInit(t *testing.T) {
	workspace(t)

	out, err := run(t, "init", "--scale", "standard")
	require.NoError(t, err)
	assert.Contains(t, out, "tabprep.yaml")

	data, err := os.ReadFile("tabprep.yaml")
	require.NoError(t, err)
	assert.Contains(t, string(data), "scale: standard")

	_, err = run(t, "init")
	assert.Error(t, err, "existing config is not overwritten")

	_, err = run(t, "init", "--force")
	assert.NoError(t, err)
}

func TestFitTransformInspectSubmit(t *testing.T) {
	workspace(t)
	require.NoError(t, os.Mkdir("prepared", 0o750))

	out, err := run(t, "fit", "--train", "train.csv", "--predict", "test.csv",
		"--state", "state.json", "--out-dir", "prepared", "--log-level", "debug")
	require.NoError(t, err)
	assert.Contains(t, out, "train.csv")
	assert.Contains(t, out, "test.csv")

	state, err := model.LoadState("state.json")
	require.NoError(t, err)
	assert.Equal(t, "Id", state.Metadata["key_column"])
	assert.NotEmpty(t, state.Features)
	assert.NotContains(t, state.Features, "Id")
	assert.NotContains(t, state.Features, "SalePrice")

	train, err := source.ReadCSVFile(filepath.Join("prepared", "train.prepared.csv"), source.CSVOptions{})
	require.NoError(t, err)
	names := train.Names()
	assert.Equal(t, "Id", names[0])
	assert.Equal(t, "SalePrice", names[len(names)-1])
	assert.Equal(t, state.Features, names[1:len(names)-1])

	test, err := source.ReadCSVFile(filepath.Join("prepared", "test.prepared.csv"), source.CSVOptions{})
	require.NoError(t, err)
	assert.Equal(t, append([]string{"Id"}, state.Features...), test.Names())
	assert.Equal(t, 2, test.Rows())

	// A restored state reproduces the fit-time transform of the test table.
	_, err = run(t, "transform", "--input", "test.csv", "--state", "state.json", "--out", "again.csv")
	require.NoError(t, err)
	again, err := source.ReadCSVFile("again.csv", source.CSVOptions{})
	require.NoError(t, err)
	assert.True(t, test.Equal(again))

	out, err = run(t, "inspect", "--state", "state.json")
	require.NoError(t, err)
	for _, f := range state.Features {
		assert.Contains(t, out, f)
	}
	assert.Contains(t, out, "align")

	require.NoError(t, os.WriteFile("preds.txt", []byte("150000\n160000.5\n"), 0o600))
	_, err = run(t, "submit", "--input", "test.csv", "--predictions", "preds.txt", "--out", "submission.csv")
	require.NoError(t, err)
	data, err := os.ReadFile("submission.csv")
	require.NoError(t, err)
	assert.Equal(t, "Id,SalePrice\n1461,150000\n1462,160000.5\n", string(data))
}

func TestSubmit_LengthMismatch(t *testing.T) {
	workspace(t)
	require.NoError(t, os.WriteFile("preds.txt", []byte("150000\n"), 0o600))

	_, err := run(t, "submit", "--input", "test.csv", "--predictions", "preds.txt", "--out", "submission.csv")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "length mismatch")
	_, statErr := os.Stat("submission.csv")
	assert.True(t, os.IsNotExist(statErr))
}

func TestFit_SQLite(t *testing.T) {
	workspace(t)
	ctx := context.Background()

	for name, path := range map[string]string{"train": "train.csv", "test": "test.csv"} {
		tbl, err := source.ReadCSVFile(path, source.CSVOptions{})
		require.NoError(t, err)
		require.NoError(t, source.WriteSQLite(ctx, "ames.db", name, tbl))
	}

	_, err := run(t, "fit", "--train", "ames.db", "--predict", "ames.db", "--state", "state.gob")
	require.NoError(t, err)

	_, err = run(t, "transform", "--input", "ames.db", "--state", "state.gob",
		"--out", "ames.db", "--out-table", "prepared")
	require.NoError(t, err)

	prepared, err := source.ReadSQLite(ctx, "ames.db", "prepared")
	require.NoError(t, err)
	assert.Equal(t, 2, prepared.Rows())
	assert.Equal(t, "Id", prepared.Names()[0])
}

func TestStrictUnknownLevels(t *testing.T) {
	workspace(t)

	// Lot Shape "IR3" in the test table is a known level; an unseen one fails
	// only in strict mode.
	bad := strings.Replace(testCSV, "IR3", "IR9", 1)
	require.NoError(t, os.WriteFile("test.csv", []byte(bad), 0o600))

	_, err := run(t, "fit", "--train", "train.csv", "--predict", "test.csv", "--state", "state.json")
	require.NoError(t, err)

	_, err = run(t, "fit", "--train", "train.csv", "--predict", "test.csv", "--state", "state.json",
		"--unknown-levels", "error")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "IR9")
}

func TestConfigErrors(t *testing.T) {
	workspace(t)

	_, err := run(t, "fit", "--train", "train.csv", "--scale", "robust")
	assert.Error(t, err)

	_, err = run(t, "fit", "--train", "train.csv", "--key-column", "Order")
	assert.Error(t, err)

	_, err = run(t, "transform", "--input", "test.csv", "--state", "absent.json")
	assert.Error(t, err)
}
