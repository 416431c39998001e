package main

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/YuminosukeSato/tabprep/config"
	"github.com/YuminosukeSato/tabprep/core/frame"
	"github.com/YuminosukeSato/tabprep/pipeline"
	"github.com/YuminosukeSato/tabprep/pkg/errors"
	"github.com/YuminosukeSato/tabprep/pkg/log"
	"github.com/YuminosukeSato/tabprep/preprocessing/ames"
	"github.com/YuminosukeSato/tabprep/source"
)

// Version is set at build time.
var Version = "0.1.0"

// app carries the state shared by the subcommands of one invocation.
type app struct {
	cfgFile string
	cfg     *config.Config
	logger  log.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "tabprep",
		Short: "Preprocess Ames housing tables for regression models",
		Long: `tabprep fits a chain of preprocessing stages (imputation, ordinal ranking,
categorical expansion, column alignment) on a training table and applies the
fitted chain unchanged to prediction tables, so that every output matrix has
exactly the training layout.`,
		Version: Version,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Name() == "help" || cmd.Name() == "completion" || cmd.Name() == "__complete" {
				return nil
			}
			cfg, err := config.Load(a.cfgFile, cmd.Flags())
			if err != nil {
				return err
			}
			a.cfg = cfg
			a.logger = setupLogging(cfg, cmd.ErrOrStderr())
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.cfgFile, "config", "", "config file (default: ./"+config.DefaultFile+")")
	pf.String("log-level", "info", "Log level (debug|info|warn|error)")
	pf.String("log-format", config.LogFormatConsole, "Log format (console|json|cloud)")
	pf.String("key-column", ames.KeyColumn, "Row identifier column")
	pf.String("target-column", ames.TargetColumn, "Target column, removed before fitting")
	pf.StringSlice("coerce", nil, "Numeric code columns to treat as categorical")
	pf.StringSlice("drop", nil, "Columns to drop")
	pf.String("sentinel-value", "None", "Fill value for structurally absent features")
	pf.String("unknown-levels", "null", "Unknown ordinal levels: null|error")
	pf.Bool("freeze-groups", false, "Freeze group medians at fit time")
	pf.Bool("fill-remaining-zero", false, "Fill every remaining missing numeric cell with 0")
	pf.String("scale", ames.ScaleNone, "Final scaling: none|standard|minmax")

	_ = root.RegisterFlagCompletionFunc("scale", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{ames.ScaleNone, ames.ScaleStandard, ames.ScaleMinMax}, cobra.ShellCompDirectiveNoFileComp
	})
	_ = root.RegisterFlagCompletionFunc("log-format", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{config.LogFormatConsole, config.LogFormatJSON, config.LogFormatCloud}, cobra.ShellCompDirectiveNoFileComp
	})

	root.AddCommand(
		newInitCmd(a),
		newFitCmd(a),
		newTransformCmd(a),
		newInspectCmd(a),
		newSubmitCmd(a),
	)
	return root
}

// setupLogging installs the process-wide log provider selected by cfg.
func setupLogging(cfg *config.Config, stderr io.Writer) log.Logger {
	switch cfg.LogFormat {
	case config.LogFormatCloud:
		log.SetupLogger(cfg.LogLevel)
		logger := log.GetLoggerWithName("cli")
		errors.SetZerologWarnFunc(nil)
		errors.SetWarningHandler(func(w error) {
			logger.Warn(w.Error())
		})
		return logger
	case config.LogFormatJSON:
		p := log.NewZerologProviderWithWriter(stderr, cfg.Level())
		p.InstallWarningHook()
		log.SetProvider(p)
	default:
		p := log.NewZerologConsoleProvider(stderr, cfg.Level())
		p.InstallWarningHook()
		log.SetProvider(p)
	}
	return log.GetLoggerWithName("cli")
}

// newPipeline builds the chain described by the loaded configuration.
func (a *app) newPipeline() (*pipeline.Pipeline, error) {
	opts, err := a.cfg.Options()
	if err != nil {
		return nil, err
	}
	return ames.NewPipeline(opts)
}

// load reads a CSV file or a table of a SQLite database.
func (a *app) load(ctx context.Context, path, table string) (*frame.Table, error) {
	t, err := source.Load(ctx, path, table, source.CSVOptions{})
	if err != nil {
		return nil, err
	}
	a.logger.Debug("table loaded",
		log.SourceKey, path,
		log.RowsKey, t.Rows(),
		log.ColumnsInKey, t.NumCols(),
	)
	return t, nil
}

// save writes t to a SQLite table when path has a database extension and to
// CSV otherwise.
func save(ctx context.Context, path, table string, t *frame.Table) error {
	if source.IsSQLite(path) {
		return source.WriteSQLite(ctx, path, table, t)
	}
	return source.WriteCSVFile(path, t)
}

// outputName derives the name of a prepared table from its input path.
func outputName(input, table string) string {
	base := filepath.Base(input)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	if source.IsSQLite(input) && table != "" {
		base = table
	}
	return base + ".prepared.csv"
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
