// Package pipeline chains preprocessing stages behind a single fit/transform
// contract.
//
// Fit runs every stage's Fit followed by its Transform in order, threading the
// table forward and keeping each fitted stage. The resulting Fitted pipeline
// only ever calls Transform on its stages, so it can be applied to the
// training table and then to any number of prediction tables. Fitting on the
// prediction table is a usage error that is not detected.
package pipeline

import (
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/tabprep/core/frame"
	"github.com/YuminosukeSato/tabprep/core/model"
	"github.com/YuminosukeSato/tabprep/pkg/errors"
	"github.com/YuminosukeSato/tabprep/pkg/log"
)

// Step represents a single named stage in the pipeline.
type Step struct {
	Name  string      // Name of this step, unique within the pipeline
	Stage model.Stage // Stage to fit and apply
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets the logger used for per-step records. Defaults to the
// process-wide provider's "pipeline" logger.
func WithLogger(l log.Logger) Option {
	return func(p *Pipeline) {
		p.logger = l
	}
}

// Pipeline is an ordered list of unfitted stages.
type Pipeline struct {
	steps  []Step
	logger log.Logger
}

// New creates a Pipeline. Step names must be non-empty and unique.
func New(steps []Step, opts ...Option) (*Pipeline, error) {
	seen := make(map[string]struct{}, len(steps))
	for i, s := range steps {
		if s.Name == "" {
			return nil, errors.NewValidationError("steps", "step name is required", i)
		}
		if s.Stage == nil {
			return nil, errors.NewValidationError("steps", "stage is nil", s.Name)
		}
		if _, dup := seen[s.Name]; dup {
			return nil, errors.NewValidationError("steps", "duplicate step name", s.Name)
		}
		seen[s.Name] = struct{}{}
	}

	p := &Pipeline{steps: append([]Step(nil), steps...)}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = log.GetLoggerWithName("pipeline")
	}
	return p, nil
}

// Steps returns a copy of the configured steps.
func (p *Pipeline) Steps() []Step {
	return append([]Step(nil), p.steps...)
}

// Names returns the step names in order.
func (p *Pipeline) Names() []string {
	names := make([]string, len(p.steps))
	for i, s := range p.steps {
		names[i] = s.Name
	}
	return names
}

// Fit fits every stage in order and returns the fitted pipeline.
func (p *Pipeline) Fit(t *frame.Table) (*Fitted, error) {
	fitted, _, err := p.FitTransform(t)
	return fitted, err
}

// FitTransform fits the pipeline and also returns the transformed fit table.
func (p *Pipeline) FitTransform(t *frame.Table) (*Fitted, *frame.Table, error) {
	if t == nil {
		return nil, nil, errors.Wrap(errors.ErrEmptyData, "pipeline fit: nil table")
	}
	id := uuid.NewString()
	logger := p.logger.With(log.PipelineIDKey, id)
	start := time.Now()

	fitted := &Fitted{id: id, logger: logger, fitRows: t.Rows()}
	current := t
	for i, step := range p.steps {
		stepStart := time.Now()
		in := current.NumCols()

		var fs model.FittedStage
		err := errors.SafeExecute(log.OperationFit+":"+step.Name, func() error {
			var err error
			fs, current, err = model.FitTransform(step.Stage, current)
			if err == nil && (fs == nil || current == nil) {
				err = errors.NewValueError(step.Name, "stage returned no result")
			}
			return err
		})
		if err != nil {
			return nil, nil, fail(logger, log.OperationFit, i, step.Name, err)
		}

		fitted.steps = append(fitted.steps, fittedStep{name: step.Name, stage: step.Stage, fitted: fs})
		logger.Debug("stage fitted",
			log.OperationKey, log.OperationFit,
			log.StageKey, step.Name,
			log.StageIndexKey, i,
			log.RowsKey, current.Rows(),
			log.ColumnsInKey, in,
			log.ColumnsOutKey, current.NumCols(),
			log.DurationMsKey, time.Since(stepStart).Milliseconds(),
		)
	}

	fitted.features = featureNames(fitted.steps, current)
	logger.Info("pipeline fitted",
		log.OperationKey, log.OperationFit,
		log.RowsKey, t.Rows(),
		log.FeaturesKey, len(fitted.features),
		log.DurationMsKey, time.Since(start).Milliseconds(),
	)
	return fitted, current, nil
}

type fittedStep struct {
	name   string
	stage  model.Stage
	fitted model.FittedStage
}

// Fitted is an immutable fitted pipeline. Transform is safe for concurrent
// use on distinct input tables.
type Fitted struct {
	id       string
	steps    []fittedStep
	features []string
	fitRows  int
	logger   log.Logger
}

// ID returns the pipeline instance id carried on every log record.
func (f *Fitted) ID() string { return f.id }

// FeatureNames returns the reference column list: the layout fixed by the last
// stage implementing model.FeatureNamer, or the fit output's columns when no
// stage fixes one.
func (f *Fitted) FeatureNames() []string {
	return append([]string(nil), f.features...)
}

// Transform applies every fitted stage in order. No stage is refitted.
func (f *Fitted) Transform(t *frame.Table) (*frame.Table, error) {
	if f == nil || f.logger == nil {
		return nil, errors.NewNotFittedError("Pipeline", "Transform")
	}
	if t == nil {
		return nil, errors.Wrap(errors.ErrEmptyData, "pipeline transform: nil table")
	}
	start := time.Now()
	current := t
	for i, step := range f.steps {
		stepStart := time.Now()
		in := current.NumCols()

		err := errors.SafeExecute(log.OperationTransform+":"+step.name, func() error {
			var err error
			current, err = step.fitted.Transform(current)
			if err == nil && current == nil {
				err = errors.NewValueError(step.name, "stage returned no result")
			}
			return err
		})
		if err != nil {
			return nil, fail(f.logger, log.OperationTransform, i, step.name, err)
		}

		f.logger.Debug("stage transformed",
			log.OperationKey, log.OperationTransform,
			log.StageKey, step.name,
			log.StageIndexKey, i,
			log.RowsKey, current.Rows(),
			log.ColumnsInKey, in,
			log.ColumnsOutKey, current.NumCols(),
			log.DurationMsKey, time.Since(stepStart).Milliseconds(),
		)
	}
	f.logger.Info("pipeline transformed",
		log.OperationKey, log.OperationTransform,
		log.RowsKey, current.Rows(),
		log.FeaturesKey, current.NumCols(),
		log.DurationMsKey, time.Since(start).Milliseconds(),
	)
	return current, nil
}

// Matrix transforms t and returns it as a dense matrix. It fails if any cell
// is NaN or Inf, or if a column is not numeric.
func (f *Fitted) Matrix(t *frame.Table) (*mat.Dense, error) {
	out, err := f.Transform(t)
	if err != nil {
		return nil, err
	}
	m, err := out.ToDense()
	if err != nil {
		return nil, err
	}
	r, c := m.Dims()
	if err := errors.CheckMatrix("pipeline matrix", m, r, c, out.Names()); err != nil {
		return nil, err
	}
	return m, nil
}

// State exports the fitted parameters of every stage as plain data.
func (f *Fitted) State() (*model.PipelineState, error) {
	if f == nil || f.logger == nil {
		return nil, errors.NewNotFittedError("Pipeline", "State")
	}
	state := &model.PipelineState{
		Version:    model.StateVersion,
		Features:   f.FeatureNames(),
		LayoutHash: model.LayoutHash(f.features),
		Stages:     make([]model.StageState, len(f.steps)),
		Metadata: map[string]string{
			"pipeline_id": f.id,
			"fit_rows":    strconv.Itoa(f.fitRows),
		},
		IsFitted: true,
	}
	for i, step := range f.steps {
		state.Stages[i].Name = step.name
		if exp, ok := step.fitted.(model.Exporter); ok {
			raw, err := exp.ExportState()
			if err != nil {
				return nil, errors.NewStageError("export", step.name, err)
			}
			state.Stages[i].Params = raw
		}
	}
	return state, nil
}

// Restore rebuilds a fitted pipeline from p's stages and a saved state.
// The state must name exactly p's steps, in order, and every stage must
// implement model.Restorer.
func Restore(p *Pipeline, state *model.PipelineState) (*Fitted, error) {
	if err := state.Validate(); err != nil {
		return nil, err
	}
	if len(state.Stages) != len(p.steps) {
		return nil, errors.NewValidationError("stages", "state does not match pipeline steps ["+strings.Join(p.Names(), " ")+"]", stageNames(state))
	}

	id := uuid.NewString()
	logger := p.logger.With(log.PipelineIDKey, id)
	fitted := &Fitted{id: id, logger: logger}
	if n, err := strconv.Atoi(state.Metadata["fit_rows"]); err == nil {
		fitted.fitRows = n
	}

	for i, step := range p.steps {
		saved := state.Stages[i]
		if saved.Name != step.Name {
			return nil, errors.NewValidationError("stages", "expected step '"+step.Name+"' at position "+strconv.Itoa(i), saved.Name)
		}
		restorer, ok := step.Stage.(model.Restorer)
		if !ok {
			return nil, errors.NewStageError(log.OperationRestore, step.Name,
				errors.NewConfigurationError(log.OperationRestore, "", "stage does not support restoring from saved state"))
		}
		var fs model.FittedStage
		err := errors.SafeExecute(log.OperationRestore+":"+step.Name, func() error {
			var err error
			fs, err = restorer.Restore(saved.Params)
			return err
		})
		if err != nil {
			return nil, fail(logger, log.OperationRestore, i, step.Name, err)
		}
		fitted.steps = append(fitted.steps, fittedStep{name: step.Name, stage: step.Stage, fitted: fs})
	}

	for i := len(fitted.steps) - 1; i >= 0; i-- {
		if namer, ok := fitted.steps[i].fitted.(model.FeatureNamer); ok {
			if got := namer.FeatureNames(); model.LayoutHash(got) != state.LayoutHash {
				return nil, errors.Wrapf(errors.ErrLayoutChanged,
					"restore: step '%s' fixes %d columns, state lists %d", fitted.steps[i].name, len(got), len(state.Features))
			}
			break
		}
	}
	fitted.features = append([]string(nil), state.Features...)

	logger.Info("pipeline restored",
		log.OperationKey, log.OperationRestore,
		log.FeaturesKey, len(fitted.features),
	)
	return fitted, nil
}

func featureNames(steps []fittedStep, out *frame.Table) []string {
	for i := len(steps) - 1; i >= 0; i-- {
		if namer, ok := steps[i].fitted.(model.FeatureNamer); ok {
			return namer.FeatureNames()
		}
	}
	return out.Names()
}

// fail wraps a stage error and logs it with a structured error code.
func fail(logger log.Logger, op string, index int, name string, err error) error {
	wrapped := errors.NewStageError(op, name, err)
	logger.Error("stage failed",
		log.ErrAttrKey, wrapped,
		log.OperationKey, op,
		log.StageKey, name,
		log.StageIndexKey, index,
		log.ErrorCodeKey, errorCode(err),
	)
	return wrapped
}

func errorCode(err error) string {
	var (
		cfg     *errors.ConfigurationError
		shape   *errors.ShapeMismatchError
		unknown *errors.UnknownLevelError
		fitted  *errors.NotFittedError
	)
	switch {
	case errors.As(err, &unknown):
		return log.ErrorUnknownLevel
	case errors.As(err, &cfg):
		return log.ErrorConfiguration
	case errors.As(err, &shape):
		return log.ErrorShapeMismatch
	case errors.As(err, &fitted):
		return log.ErrorNotFitted
	case errors.Is(err, errors.ErrLayoutChanged):
		return log.ErrorLayoutMismatch
	default:
		return "STAGE_FAILED"
	}
}

func stageNames(state *model.PipelineState) []string {
	names := make([]string, len(state.Stages))
	for i, s := range state.Stages {
		names[i] = s.Name
	}
	return names
}
