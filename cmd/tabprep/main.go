// Command tabprep fits the Ames preprocessing chain on a training table and
// applies it to prediction tables.
//
// Usage:
//
//	tabprep init [--out tabprep.yaml]
//	tabprep fit --train train.csv --predict test.csv --state state.json --out-dir prepared/
//	tabprep transform --input test.csv --state state.json --out test.prepared.csv
//	tabprep inspect --state state.json
//	tabprep submit --input test.csv --predictions preds.txt --out submission.csv
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
