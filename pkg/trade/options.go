// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package trade

import (
	"github.com/go-playground/validator/v10"
)

// CovarianceSet selects the bivariate candidate component construction.
type CovarianceSet string

const (
	// CovarianceSetCanonical uses only the canonical matrices: null,
	// per-trait singletons, equal-effects (correlation 1), independent
	// axes (identity correlation), and heterogeneous correlations.
	CovarianceSetCanonical CovarianceSet = "canonical"

	// CovarianceSetAdaptive derives data-driven correlation structure
	// from the empirical covariance of standardized estimates.
	CovarianceSetAdaptive CovarianceSet = "adaptive"

	// CovarianceSetCombined is the union of canonical and adaptive.
	CovarianceSetCombined CovarianceSet = "combined"
)

// Options configures one analysis run. The zero value is not usable;
// start from DefaultOptions.
type Options struct {
	// ModelSignificant fits Bonferroni-significant genes as a separate
	// mixture from the bulk (univariate mode).
	ModelSignificant bool `json:"model_significant" yaml:"model_significant"`

	// EstimateSamplingCovariance enables the shared-sample noise
	// covariance correction (bivariate mode).
	EstimateSamplingCovariance bool `json:"estimate_sampling_covariance" yaml:"estimate_sampling_covariance"`

	// CovarianceSet selects the bivariate candidate construction.
	CovarianceSet CovarianceSet `json:"covariance_matrix_set" yaml:"covariance_matrix_set" validate:"oneof=canonical adaptive combined"`

	// VarExplainedThreshold drops adaptive candidates whose
	// variance-explained fraction falls below it. In [0, 1].
	VarExplainedThreshold float64 `json:"component_varexplained_threshold" yaml:"component_varexplained_threshold" validate:"gte=0,lte=1"`

	// WeightNoCorr is the Dirichlet prior weight favoring the zero /
	// no-correlation components. 1 means no penalty; larger values
	// penalize correlated components.
	WeightNoCorr float64 `json:"weight_nocorr" yaml:"weight_nocorr" validate:"gte=1"`

	// NSample is the number of posterior draws per gene. 0 disables
	// sampling.
	NSample int `json:"n_sample" yaml:"n_sample" validate:"gte=0"`

	// Seed seeds the pseudorandom generator used for posterior draws.
	// Identical seed and inputs yield bit-identical draws.
	Seed int64 `json:"seed" yaml:"seed"`

	// Tolerance stops EM when the log-likelihood improvement falls
	// below it.
	Tolerance float64 `json:"tolerance" yaml:"tolerance" validate:"gt=0"`

	// MaxIterations caps EM. Reaching the cap yields a non-converged
	// fit, not an error.
	MaxIterations int `json:"max_iterations" yaml:"max_iterations" validate:"gt=0"`
}

// optionsValidate is the validator instance for Options.
var optionsValidate = validator.New()

// DefaultOptions returns the documented defaults, matching the original
// TRADE tool surface.
func DefaultOptions() Options {
	return Options{
		ModelSignificant:           false,
		EstimateSamplingCovariance: false,
		CovarianceSet:              CovarianceSetCombined,
		VarExplainedThreshold:      0,
		WeightNoCorr:               1,
		NSample:                    0,
		Seed:                       42,
		Tolerance:                  1e-7,
		MaxIterations:              5000,
	}
}

// Validate checks the option set and returns a config-stage error on the
// first violation. Called by both entry points before any fitting.
func (o Options) Validate() error {
	if err := optionsValidate.Struct(o); err != nil {
		if verrs, ok := err.(validator.ValidationErrors); ok && len(verrs) > 0 {
			f := verrs[0]
			if f.StructField() == "CovarianceSet" {
				return &Error{Stage: StageConfig, Kind: KindConfig, Err: ErrUnknownCovarianceSet}
			}
			return configErrf("option %s: value %v fails %q", f.StructField(), f.Value(), f.Tag())
		}
		return configErrf("invalid options: %v", err)
	}
	return nil
}
