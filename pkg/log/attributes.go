// Package log defines standard attribute keys for pipeline logging.
//
// Keys follow a dotted naming convention ("stage.name", "data.rows") so that
// log pipelines can filter on them.

package log

// Pipeline and stage context.
const (
	// PipelineIDKey identifies one pipeline instance. Fit and every later
	// Transform of the same fitted pipeline share the id.
	PipelineIDKey = "pipeline.id"

	// StageKey is the step name inside the pipeline, e.g. "impute", "align".
	StageKey = "stage.name"

	// StageIndexKey is the zero-based position of the step in the chain.
	StageIndexKey = "stage.index"

	// OperationKey is the operation being performed: "fit", "transform".
	OperationKey = "ml.operation"

	// ComponentKey identifies which package emitted the record.
	ComponentKey = "ml.component"
)

// Table shape.
const (
	// RowsKey is the number of rows in the table being processed.
	RowsKey = "data.rows"

	// ColumnsInKey is the number of columns entering a stage.
	ColumnsInKey = "data.columns_in"

	// ColumnsOutKey is the number of columns leaving a stage.
	ColumnsOutKey = "data.columns_out"

	// FeaturesKey is the length of the reference column list.
	FeaturesKey = "data.features"

	// ColumnKey names a single column.
	ColumnKey = "data.column"

	// MissingKey counts missing cells.
	MissingKey = "data.missing"

	// SourceKey is the file or table a frame was loaded from.
	SourceKey = "data.source"
)

// Performance.
const (
	// DurationMsKey records the execution time of an operation in milliseconds.
	DurationMsKey = "perf.duration_ms"
)

// Errors.
const (
	// ErrorCodeKey provides a structured error code for programmatic handling.
	ErrorCodeKey = "error.code"

	// SuggestionKey provides a hint for resolving the issue.
	SuggestionKey = "error.suggestion"
)

// Standard attribute values.
const (
	OperationFit          = "fit"
	OperationTransform    = "transform"
	OperationFitTransform = "fit_transform"
	OperationRestore      = "restore"

	ErrorNotFitted      = "NOT_FITTED"
	ErrorShapeMismatch  = "SHAPE_MISMATCH"
	ErrorConfiguration  = "CONFIGURATION"
	ErrorUnknownLevel   = "UNKNOWN_LEVEL"
	ErrorLayoutMismatch = "LAYOUT_MISMATCH"
	ErrorNonFinite      = "NON_FINITE"
)
