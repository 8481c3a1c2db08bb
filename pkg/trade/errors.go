// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package trade implements the TRADE estimation engine: it infers the
// distribution of true differential-expression effect sizes from noisy
// per-gene summary statistics via an empirical-Bayes mixture model, and
// reports transcriptome-wide impact metrics.
//
// The engine has two entry points sharing one grid/EM core:
//
//   - AnalyzeUnivariate: one experiment; scalar variance components.
//   - AnalyzeBivariate: two experiments; 2x2 covariance components.
//
// Both are deterministic given identical inputs and options. Randomness
// enters only through posterior sampling, which uses an explicitly seeded
// generator rather than ambient global state.
package trade

import (
	"errors"
	"fmt"
)

// Stage identifies where in the pipeline an error occurred.
// Every error surfaced by this package carries a stage tag so failures
// can be diagnosed without reading a stack trace.
type Stage string

const (
	StageConfig    Stage = "config"
	StageInput     Stage = "input"
	StageGridBuild Stage = "grid-build"
	StageFit       Stage = "fit"
	StagePosterior Stage = "posterior"
	StageSampling  Stage = "sampling"
	StageSummary   Stage = "summary"
)

// Kind classifies errors into the four failure families the engine can
// produce. Non-convergence is deliberately NOT an error: a fit that hits
// the iteration cap is returned with Converged=false.
type Kind string

const (
	// KindInput covers missing or malformed records and empty
	// post-exclusion datasets. Detected before any fitting begins.
	KindInput Kind = "input"

	// KindConfig covers invalid enum values and out-of-range thresholds.
	// Detected before any fitting begins.
	KindConfig Kind = "config"

	// KindNumerical covers fatal numerical failures, i.e. a non-finite
	// likelihood during fitting.
	KindNumerical Kind = "numerical"

	// KindConsistency covers cross-input mismatches: an annotation table
	// sharing no genes with the results, or zero overlap between two
	// experiments in bivariate mode.
	KindConsistency Kind = "consistency"
)

// Sentinel errors for the conditions callers are expected to branch on.
var (
	// ErrTooFewGenes is returned when fewer than 2 usable genes remain
	// after validation and exclusion.
	ErrTooFewGenes = errors.New("fewer than 2 usable genes remain")

	// ErrUnknownCovarianceSet is returned for an unrecognized
	// covariance_matrix_set value in bivariate mode.
	ErrUnknownCovarianceSet = errors.New("unknown covariance matrix set")

	// ErrNonFiniteLikelihood is returned when the marginal likelihood
	// becomes NaN or infinite during fitting. This is fatal.
	ErrNonFiniteLikelihood = errors.New("non-finite likelihood")

	// ErrNoOverlap is returned when two experiments share no gene IDs.
	ErrNoOverlap = errors.New("no overlapping genes between experiments")

	// ErrNoAnnotationOverlap is returned when an annotation table shares
	// no genes with the results it is meant to stratify.
	ErrNoAnnotationOverlap = errors.New("annotation table shares no genes with results")

	// ErrDuplicateGene is returned when the same gene ID appears more
	// than once within one experiment.
	ErrDuplicateGene = errors.New("duplicate gene id")
)

// Error is the typed error returned across the engine boundary.
//
// It wraps the underlying cause (available via errors.Is / errors.As)
// and records the pipeline stage plus the failure kind.
type Error struct {
	Stage Stage
	Kind  Kind
	Err   error
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("trade %s (%s error): %v", e.Stage, e.Kind, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *Error) Unwrap() error {
	return e.Err
}

// stageErr wraps err with a stage and kind tag. A nil err yields nil.
func stageErr(stage Stage, kind Kind, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Stage: stage, Kind: kind, Err: err}
}

func inputErrf(stage Stage, format string, args ...any) error {
	return &Error{Stage: stage, Kind: KindInput, Err: fmt.Errorf(format, args...)}
}

func configErrf(format string, args ...any) error {
	return &Error{Stage: StageConfig, Kind: KindConfig, Err: fmt.Errorf(format, args...)}
}

// StageOf returns the stage tag carried by err, or an empty Stage when
// err was not produced by this package.
func StageOf(err error) Stage {
	var te *Error
	if errors.As(err, &te) {
		return te.Stage
	}
	return ""
}

// KindOf returns the failure kind carried by err, or an empty Kind when
// err was not produced by this package.
func KindOf(err error) Kind {
	var te *Error
	if errors.As(err, &te) {
		return te.Kind
	}
	return ""
}
