package main

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/YuminosukeSato/tabprep/config"
	"github.com/YuminosukeSato/tabprep/core/frame"
	"github.com/YuminosukeSato/tabprep/core/model"
	"github.com/YuminosukeSato/tabprep/pipeline"
	"github.com/YuminosukeSato/tabprep/pkg/errors"
	"github.com/YuminosukeSato/tabprep/pkg/log"
	"github.com/YuminosukeSato/tabprep/source"
	"github.com/YuminosukeSato/tabprep/submission"
)

func newInitCmd(a *app) *cobra.Command {
	var out string
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write the default configuration",
		Long: `Write the current configuration (defaults overridden by environment and
flags) as YAML, ready to be edited and passed back with --config.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if fileExists(out) && !force {
				return errors.Newf("%s already exists (use --force to overwrite)", out)
			}
			if err := config.Save(out, a.cfg, force); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Configuration written to %s\n", out)
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", config.DefaultFile, "Output path")
	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing file")
	return cmd
}

// preparedTable is one input of a fit run and its transformed output.
type preparedTable struct {
	path   string
	table  string
	split  *source.Split
	output *frame.Table
}

func newFitCmd(a *app) *cobra.Command {
	var (
		trainPath    string
		predictPaths []string
		trainTable   string
		predictTable string
		statePath    string
		outDir       string
	)

	cmd := &cobra.Command{
		Use:   "fit",
		Short: "Fit the chain on a training table and transform prediction tables",
		Long: `Fit the preprocessing chain on the training table (after removing the key
and target columns), then transform the training table and every prediction
table with the fitted chain. Tables are loaded and transformed concurrently.
The fitted state is saved so that later runs can transform new tables without
refitting.`,
		Example: `  tabprep fit --train train.csv --predict test.csv --state state.json --out-dir prepared
  tabprep fit --train ames.db --table train --predict ames.db --predict-table test --state state.gob`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			start := time.Now()

			inputs := make([]*preparedTable, 0, len(predictPaths)+1)
			inputs = append(inputs, &preparedTable{path: trainPath, table: trainTable})
			for _, p := range predictPaths {
				inputs = append(inputs, &preparedTable{path: p, table: predictTable})
			}

			g, gctx := errgroup.WithContext(ctx)
			for _, in := range inputs {
				g.Go(func() error {
					t, err := a.load(gctx, in.path, in.table)
					if err != nil {
						return err
					}
					in.split, err = source.SplitKeyTarget(t, a.cfg.KeyColumn, a.cfg.TargetColumn)
					return errors.Wrapf(err, "%s", in.path)
				})
			}
			if err := g.Wait(); err != nil {
				return err
			}

			p, err := a.newPipeline()
			if err != nil {
				return err
			}
			train := inputs[0]
			fitted, out, err := p.FitTransform(train.split.Features)
			if err != nil {
				return err
			}
			train.output = out

			g, _ = errgroup.WithContext(ctx)
			for _, in := range inputs[1:] {
				g.Go(func() error {
					out, err := fitted.Transform(in.split.Features)
					if err != nil {
						return errors.Wrapf(err, "%s", in.path)
					}
					in.output = out
					return nil
				})
			}
			if err := g.Wait(); err != nil {
				return err
			}

			state, err := fitted.State()
			if err != nil {
				return err
			}
			state.Metadata["key_column"] = a.cfg.KeyColumn
			state.Metadata["target_column"] = a.cfg.TargetColumn
			state.Metadata["created_at"] = time.Now().UTC().Format(time.RFC3339)
			if err := model.SaveState(state, statePath); err != nil {
				return err
			}

			if outDir != "" {
				for _, in := range inputs {
					if err := writePrepared(ctx, outDir, in); err != nil {
						return err
					}
				}
			}

			a.logger.Info("fit finished",
				log.PipelineIDKey, fitted.ID(),
				log.FeaturesKey, len(fitted.FeatureNames()),
				log.DurationMsKey, time.Since(start).Milliseconds(),
			)
			renderSummary(cmd.OutOrStdout(), fitted, inputs, statePath)
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&trainPath, "train", "", "Training table (CSV or SQLite database)")
	f.StringSliceVar(&predictPaths, "predict", nil, "Prediction tables to transform")
	f.StringVar(&trainTable, "table", "train", "Table name when --train is a SQLite database")
	f.StringVar(&predictTable, "predict-table", "test", "Table name when --predict is a SQLite database")
	f.StringVar(&statePath, "state", "state.json", "Output path of the fitted state (.json or .gob)")
	f.StringVar(&outDir, "out-dir", "", "Directory for the prepared tables (skipped when empty)")
	_ = cmd.MarkFlagRequired("train")
	return cmd
}

// writePrepared writes the transformed table with the key column first and,
// for the training table, the target column last.
func writePrepared(ctx context.Context, dir string, in *preparedTable) error {
	out, err := source.WithKey(in.split.Key, in.output)
	if err != nil {
		return err
	}
	if in.split.Target != nil {
		if out, err = out.With(in.split.Target); err != nil {
			return err
		}
	}
	return save(ctx, filepath.Join(dir, outputName(in.path, in.table)), "", out)
}

func renderSummary(w io.Writer, fitted *pipeline.Fitted, inputs []*preparedTable, statePath string) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.SetTitle("pipeline " + fitted.ID())
	t.AppendHeader(table.Row{"Table", "Role", "Rows", "Columns In", "Missing In", "Features"})
	for i, in := range inputs {
		role := "predict"
		if i == 0 {
			role = "train"
		}
		missing := 0
		for _, c := range in.split.Features.Columns() {
			missing += c.MissingCount()
		}
		t.AppendRow(table.Row{in.path, role, in.output.Rows(), in.split.Features.NumCols(), missing, in.output.NumCols()})
	}
	t.AppendFooter(table.Row{"state", statePath, "", "", "", len(fitted.FeatureNames())})
	t.Render()
}

func newTransformCmd(a *app) *cobra.Command {
	var input, inputTable, statePath, out, outTable string

	cmd := &cobra.Command{
		Use:   "transform",
		Short: "Transform a table with a saved fitted state",
		Long: `Rebuild the chain from the configuration, restore its fitted parameters
from the state file and transform the input table. The configuration must
describe the same steps as the one used to fit the state.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			state, err := model.LoadState(statePath)
			if err != nil {
				return err
			}
			p, err := a.newPipeline()
			if err != nil {
				return err
			}
			fitted, err := pipeline.Restore(p, state)
			if err != nil {
				return err
			}

			t, err := a.load(ctx, input, inputTable)
			if err != nil {
				return err
			}
			split, err := source.SplitKeyTarget(t, a.cfg.KeyColumn, a.cfg.TargetColumn)
			if err != nil {
				return err
			}
			prepared, err := fitted.Transform(split.Features)
			if err != nil {
				return err
			}
			result, err := source.WithKey(split.Key, prepared)
			if err != nil {
				return err
			}
			if out == "" {
				out = outputName(input, inputTable)
			}
			if err := save(ctx, out, outTable, result); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d rows x %d features to %s\n", prepared.Rows(), prepared.NumCols(), out)
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&input, "input", "", "Table to transform (CSV or SQLite database)")
	f.StringVar(&inputTable, "table", "test", "Table name when --input is a SQLite database")
	f.StringVar(&statePath, "state", "state.json", "Fitted state written by fit")
	f.StringVar(&out, "out", "", "Output path (CSV, or SQLite database)")
	f.StringVar(&outTable, "out-table", "prepared", "Table name when --out is a SQLite database")
	_ = cmd.MarkFlagRequired("input")
	return cmd
}

func newInspectCmd(_ *app) *cobra.Command {
	var statePath string

	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Print the steps and reference column list of a fitted state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			state, err := model.LoadState(statePath)
			if err != nil {
				return err
			}
			renderState(cmd.OutOrStdout(), state)
			return nil
		},
	}
	cmd.Flags().StringVar(&statePath, "state", "state.json", "Fitted state written by fit")
	return cmd
}

func renderState(w io.Writer, state *model.PipelineState) {
	meta := table.NewWriter()
	meta.SetOutputMirror(w)
	meta.SetStyle(table.StyleLight)
	meta.AppendHeader(table.Row{"Key", "Value"})
	meta.AppendRow(table.Row{"version", state.Version})
	meta.AppendRow(table.Row{"layout_hash", state.LayoutHash})
	keys := make([]string, 0, len(state.Metadata))
	for k := range state.Metadata {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		meta.AppendRow(table.Row{k, state.Metadata[k]})
	}
	meta.Render()

	steps := table.NewWriter()
	steps.SetOutputMirror(w)
	steps.SetStyle(table.StyleLight)
	steps.AppendHeader(table.Row{"#", "Step", "State Bytes"})
	for i, s := range state.Stages {
		steps.AppendRow(table.Row{i, s.Name, len(s.Params)})
	}
	steps.Render()

	features := table.NewWriter()
	features.SetOutputMirror(w)
	features.SetStyle(table.StyleLight)
	features.AppendHeader(table.Row{"#", "Feature"})
	for i, name := range state.Features {
		features.AppendRow(table.Row{i, name})
	}
	features.AppendFooter(table.Row{"total", strconv.Itoa(len(state.Features))})
	features.Render()
}

func newSubmitCmd(a *app) *cobra.Command {
	var input, inputTable, predictions, out string

	cmd := &cobra.Command{
		Use:   "submit",
		Short: "Write predictions next to the key column of the prediction table",
		Long: `Read the prediction table for its key column and a file with one
prediction per line, and write the two-column submission CSV. Nothing is
written when the number of predictions differs from the number of rows.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			t, err := a.load(cmd.Context(), input, inputTable)
			if err != nil {
				return err
			}
			w, err := submission.NewWriter(t, a.cfg.KeyColumn,
				submission.WithTargetName(a.cfg.TargetColumn),
				submission.WithLogger(log.GetLoggerWithName("submission")))
			if err != nil {
				return err
			}
			preds, err := submission.ReadPredictionsFile(predictions)
			if err != nil {
				return err
			}
			if err := w.Write(preds, out); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Output saved to %s\n", out)
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&input, "input", "", "Prediction table the predictions were made for")
	f.StringVar(&inputTable, "table", "test", "Table name when --input is a SQLite database")
	f.StringVar(&predictions, "predictions", "", "File with one prediction per line")
	f.StringVarP(&out, "out", "o", "submission.csv", "Output CSV path")
	_ = cmd.MarkFlagRequired("input")
	_ = cmd.MarkFlagRequired("predictions")
	return cmd
}
