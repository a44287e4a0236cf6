// Package dataset loads the street-tree export and runs the shared cleaning
// pipeline: normalize names, filter implausible rows, derive features, recode
// labels, and eliminate incomplete rows. Every stage returns a new frame;
// nothing mutates its input.
package dataset

import "github.com/rotisserie/eris"

// Error taxonomy for the shared pipeline. All four are fatal for the whole
// run: there is one cleaned table feeding every research question.
var (
	// ErrSourceUnavailable means the input file is missing or unreadable.
	ErrSourceUnavailable = eris.New("dataset source unavailable")

	// ErrMalformedInput means the table structure is inconsistent, e.g.
	// rows with differing column counts.
	ErrMalformedInput = eris.New("malformed input")

	// ErrSchemaMismatch means a required canonical column is absent after
	// normalization. Downstream stages assume canonical names exist, so
	// this aborts before any of them run.
	ErrSchemaMismatch = eris.New("schema mismatch")
)
