// Package ames holds the domain knowledge for the Ames housing data set: the
// ordinal level tables, the per-column imputation policies, and the default
// stage chain built from them.
package ames

import (
	"github.com/YuminosukeSato/tabprep/pipeline"
	"github.com/YuminosukeSato/tabprep/pkg/errors"
	"github.com/YuminosukeSato/tabprep/preprocessing"
)

// Column names with a fixed role.
const (
	KeyColumn    = "Id"
	TargetColumn = "SalePrice"
	LotFrontage  = "Lot Frontage"
	Neighborhood = "Neighborhood"
	MSSubClass   = "MS SubClass"
)

// Step names of the default chain, in order.
const (
	StepCoerce   = "coerce"
	StepDrop     = "drop"
	StepGrouped  = "grouped"
	StepImpute   = "impute"
	StepRank     = "rank"
	StepZeroFill = "zerofill"
	StepExpand   = "expand"
	StepAlign    = "align"
	StepScale    = "scale"
)

// Scaling choices for the optional last step.
const (
	ScaleNone     = "none"
	ScaleStandard = "standard"
	ScaleMinMax   = "minmax"
)

var (
	quality       = []string{"Po", "Fa", "TA", "Gd", "Ex"}
	qualityOrNone = []string{"None", "Po", "Fa", "TA", "Gd", "Ex"}
	finishType    = []string{"None", "Unf", "LwQ", "Rec", "BLQ", "ALQ", "GLQ"}
)

var ordinalFields = []preprocessing.Ordinal{
	{Column: "Lot Shape", Levels: []string{"IR3", "IR2", "IR1", "Reg"}, Start: 1},
	{Column: "Utilities", Levels: []string{"ELO", "NoSeWa", "NoSewr", "AllPub"}, Start: 1},
	{Column: "Land Slope", Levels: []string{"Sev", "Mod", "Gtl"}, Start: 1},
	{Column: "Exter Qual", Levels: quality, Start: 1},
	{Column: "Exter Cond", Levels: quality, Start: 1},
	{Column: "Bsmt Qual", Levels: qualityOrNone, Start: 0},
	{Column: "Bsmt Cond", Levels: qualityOrNone, Start: 0},
	{Column: "Bsmt Exposure", Levels: []string{"None", "No", "Mn", "Av", "Gd"}, Start: 0},
	{Column: "BsmtFin Type 1", Levels: finishType, Start: 0},
	{Column: "BsmtFin Type 2", Levels: finishType, Start: 0},
	{Column: "Heating QC", Levels: quality, Start: 1},
	{Column: "Electrical", Levels: []string{"Mix", "FuseP", "FuseF", "FuseA", "SBrkr"}, Start: 1},
	{Column: "Kitchen Qual", Levels: quality, Start: 1},
	{Column: "Functional", Levels: []string{"Sal", "Sev", "Maj2", "Maj1", "Mod", "Min2", "Min1", "Typ"}, Start: 1},
	{Column: "Fireplace Qu", Levels: qualityOrNone, Start: 0},
	{Column: "Garage Finish", Levels: []string{"None", "Unf", "RFn", "Fin"}, Start: 0},
	{Column: "Garage Qual", Levels: qualityOrNone, Start: 0},
	{Column: "Garage Cond", Levels: qualityOrNone, Start: 0},
	{Column: "Paved Drive", Levels: []string{"N", "P", "Y"}, Start: 1},
	{Column: "Pool QC", Levels: []string{"None", "Fa", "TA", "Gd", "Ex"}, Start: 0},
	{Column: "Fence", Levels: []string{"None", "MnWw", "GdWo", "MnPrv", "GdPrv"}, Start: 0},
	{Column: "Central Air", Levels: []string{"N", "Y"}, Start: 0},
}

// OrdinalTables returns the level tables of every ordinal field.
func OrdinalTables() []preprocessing.Ordinal {
	out := make([]preprocessing.Ordinal, len(ordinalFields))
	for i, o := range ordinalFields {
		out[i] = preprocessing.Ordinal{Column: o.Column, Levels: append([]string(nil), o.Levels...), Start: o.Start}
	}
	return out
}

// SentinelColumns are filled with "None": a missing value means the house
// has no such feature.
func SentinelColumns() []string {
	return []string{
		"Alley", "Bsmt Qual", "Bsmt Cond", "Bsmt Exposure", "BsmtFin Type 1", "BsmtFin Type 2",
		"Fireplace Qu", "Garage Type", "Garage Finish", "Garage Qual", "Garage Cond",
		"Pool QC", "Fence", "Misc Feature", "Mas Vnr Type",
	}
}

// ZeroColumns are areas and counts where a missing value means zero.
func ZeroColumns() []string {
	return []string{
		"Mas Vnr Area", "BsmtFin SF 1", "BsmtFin SF 2", "Bsmt Unf SF", "Total Bsmt SF",
		"Bsmt Full Bath", "Bsmt Half Bath", "Garage Cars", "Garage Area",
	}
}

// ModeColumns are filled with their most frequent value.
func ModeColumns() []string {
	return []string{
		"MS Zoning", "Utilities", "Exterior 1st", "Exterior 2nd",
		"Electrical", "Kitchen Qual", "Functional", "Sale Type",
	}
}

// DropColumns are removed because they are highly correlated with a kept column.
func DropColumns() []string {
	return []string{"Garage Cars", "TotRms AbvGrd", "1st Flr SF", "Garage Yr Blt"}
}

// CoerceColumns are numeric codes that name a category.
func CoerceColumns() []string {
	return []string{MSSubClass}
}

// Options selects the stages and column lists of the chain.
type Options struct {
	Coerce        []string
	Drop          []string
	Sentinel      []string
	Zero          []string
	Mode          []string
	SentinelValue string

	GroupTarget  string
	GroupKey     string
	FreezeGroups bool

	Ordinals []preprocessing.Ordinal
	Unknown  preprocessing.UnknownLevelPolicy

	FillRemainingZero bool
	Scale             string
}

// DefaultOptions returns the Ames defaults.
func DefaultOptions() Options {
	return Options{
		Coerce:        CoerceColumns(),
		Drop:          DropColumns(),
		Sentinel:      SentinelColumns(),
		Zero:          ZeroColumns(),
		Mode:          ModeColumns(),
		SentinelValue: preprocessing.DefaultSentinel,
		GroupTarget:   LotFrontage,
		GroupKey:      Neighborhood,
		Ordinals:      OrdinalTables(),
		Unknown:       preprocessing.UnknownAsMissing,
		Scale:         ScaleNone,
	}
}

// Steps builds the chain
//
//	coerce -> drop -> grouped -> impute -> rank -> [zerofill] -> expand -> align -> [scale]
//
// Steps with nothing to do (empty coerce or drop list, no grouped pairing)
// are left out.
func Steps(o Options) ([]pipeline.Step, error) {
	var steps []pipeline.Step
	if len(o.Coerce) > 0 {
		steps = append(steps, pipeline.Step{Name: StepCoerce, Stage: preprocessing.NewTypeCoercer(o.Coerce...)})
	}
	if len(o.Drop) > 0 {
		steps = append(steps, pipeline.Step{Name: StepDrop, Stage: preprocessing.NewDropper(o.Drop...)})
	}
	if o.GroupTarget != "" && o.GroupKey != "" {
		var opts []preprocessing.GroupedOption
		if o.FreezeGroups {
			opts = append(opts, preprocessing.WithFrozenGroupMedians())
		}
		steps = append(steps, pipeline.Step{Name: StepGrouped,
			Stage: preprocessing.NewGroupedImputer(o.GroupTarget, o.GroupKey, opts...)})
	}

	sentinel := o.SentinelValue
	if sentinel == "" {
		sentinel = preprocessing.DefaultSentinel
	}
	steps = append(steps,
		pipeline.Step{Name: StepImpute, Stage: preprocessing.NewImputer(o.Sentinel, o.Zero, o.Mode, preprocessing.WithSentinel(sentinel))},
		pipeline.Step{Name: StepRank, Stage: preprocessing.NewRankMapper(o.Ordinals, preprocessing.WithUnknownLevels(o.Unknown))},
	)
	if o.FillRemainingZero {
		steps = append(steps, pipeline.Step{Name: StepZeroFill, Stage: preprocessing.NewZeroFiller()})
	}
	steps = append(steps,
		pipeline.Step{Name: StepExpand, Stage: preprocessing.NewExpander()},
		pipeline.Step{Name: StepAlign, Stage: preprocessing.NewAligner()},
	)

	switch o.Scale {
	case "", ScaleNone:
	case ScaleStandard:
		steps = append(steps, pipeline.Step{Name: StepScale, Stage: preprocessing.NewStandardScalerDefault()})
	case ScaleMinMax:
		steps = append(steps, pipeline.Step{Name: StepScale, Stage: preprocessing.NewMinMaxScalerDefault()})
	default:
		return nil, errors.NewValidationError("scale", "expected 'none', 'standard' or 'minmax'", o.Scale)
	}
	return steps, nil
}

// NewPipeline builds the chain described by o.
func NewPipeline(o Options, opts ...pipeline.Option) (*pipeline.Pipeline, error) {
	steps, err := Steps(o)
	if err != nil {
		return nil, err
	}
	return pipeline.New(steps, opts...)
}
