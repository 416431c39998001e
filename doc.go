// Package tabprep turns the raw Ames housing tables into fully numeric,
// column-aligned matrices for regression models.
//
// A chain of stages is fitted once on the training table and then applied,
// unchanged, to the training table and to any number of prediction tables.
// Every output has exactly the column layout fixed at fit time, even when a
// prediction table observes different category levels.
//
// # Quick Start
//
//	package main
//
//	import (
//	    "log"
//
//	    "github.com/YuminosukeSato/tabprep/preprocessing/ames"
//	    "github.com/YuminosukeSato/tabprep/source"
//	)
//
//	func main() {
//	    train, err := source.ReadCSVFile("train.csv", source.CSVOptions{})
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    split, err := source.SplitKeyTarget(train, ames.KeyColumn, ames.TargetColumn)
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//
//	    p, err := ames.NewPipeline(ames.DefaultOptions())
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    fitted, err := p.Fit(split.Features)
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//
//	    X, err := fitted.Matrix(split.Features) // *mat.Dense, NaN free
//	    ...
//	}
//
// # Packages
//
//   - core/frame: immutable Table and Column types
//   - core/model: stage contract and persisted pipeline state
//   - core/parallel: column-wise fan-out used by stages
//   - preprocessing: rank mapper, imputers, selector, dropper, coercer,
//     expander, aligner, scalers
//   - preprocessing/ames: level tables, column policies and the default chain
//   - pipeline: ordered named steps with Fit, Transform, State and Restore
//   - source: CSV and SQLite loading, key and target separation
//   - submission: key/prediction CSV writer
//   - config: koanf-based layered configuration
//   - pkg/errors, pkg/log: structured errors, warnings and logging
//
// The tabprep command (cmd/tabprep) wraps these packages.
package tabprep
