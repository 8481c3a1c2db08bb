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
	"math"
)

// GeneEffectRecord is one gene's differential-expression summary
// statistics as produced by an upstream pipeline (e.g. DESeq2).
//
// Records are immutable once ingested: the engine never modifies them.
type GeneEffectRecord struct {
	// GeneID uniquely identifies the gene within one experiment.
	GeneID string `json:"gene_id"`

	// Effect is the estimated effect size (log2 fold change).
	Effect float64 `json:"effect_estimate"`

	// SE is the standard error of Effect. Must be > 0 and finite.
	SE float64 `json:"standard_error"`

	// PValue is the unadjusted p-value in [0, 1]. NaN when the upstream
	// pipeline reported none; only model_significant requires it.
	PValue float64 `json:"p_value"`
}

// valid reports whether the record can participate in fitting.
func (r GeneEffectRecord) valid() bool {
	if r.GeneID == "" {
		return false
	}
	if math.IsNaN(r.Effect) || math.IsInf(r.Effect, 0) {
		return false
	}
	if r.SE <= 0 || math.IsNaN(r.SE) || math.IsInf(r.SE, 0) {
		return false
	}
	if !math.IsNaN(r.PValue) && (r.PValue < 0 || r.PValue > 1) {
		return false
	}
	return true
}

// AnnotationTable maps genes to binary category memberships. It is used
// only to stratify reporting (enrichment); it never changes the fit.
type AnnotationTable struct {
	// Categories are the annotation column names, in input order.
	Categories []string

	// Membership maps a gene ID to its per-category flags, aligned with
	// Categories.
	Membership map[string][]bool
}

// MixtureComponent is one candidate prior component with its fitted
// mixing weight. Univariate components carry Variance; bivariate
// components carry Covariance (row-major 2x2) with Variance zero.
// The candidate set always includes a zero component ("no true effect").
type MixtureComponent struct {
	// Label names the component family ("null", "grid", "equal_corr",
	// "independent", "singleton_1", ...).
	Label string `json:"label"`

	// Variance is the scalar prior variance (univariate mode).
	Variance float64 `json:"variance,omitempty"`

	// Covariance is the 2x2 prior covariance (bivariate mode).
	Covariance [][]float64 `json:"covariance,omitempty"`

	// Weight is the fitted non-negative mixing weight. Weights sum to 1.
	Weight float64 `json:"weight"`
}

// FittedMixture is the outcome of one maximum-marginal-likelihood fit.
// It is produced once per invocation and immutable thereafter.
type FittedMixture struct {
	Components []MixtureComponent `json:"components"`

	// LogLik is the total marginal log-likelihood achieved.
	LogLik float64 `json:"loglik"`

	// Converged is false when the iteration cap was reached before the
	// log-likelihood improvement fell below tolerance. A warning, not a
	// failure.
	Converged bool `json:"converged"`

	// Iterations is the number of EM iterations performed.
	Iterations int `json:"iterations"`

	// NGenes is the number of genes the mixture was fit on.
	NGenes int `json:"n_genes"`
}

// PosteriorSummary is one gene's posterior distribution of the true
// effect, conditioned on the fitted mixture and the gene's own noise.
//
// Mean and Variance have length 1 (univariate) or 2 / 2x2 (bivariate).
type PosteriorSummary struct {
	GeneID string `json:"gene_id"`

	// Mean is the posterior mean of the true effect.
	Mean []float64 `json:"posterior_mean"`

	// Variance is the posterior (co)variance, including between-component
	// spread.
	Variance [][]float64 `json:"posterior_variance"`

	// ProbNonzero is the posterior probability that the true effect is
	// nonzero (one minus the zero component's responsibility).
	ProbNonzero float64 `json:"prob_nonzero"`
}

// GeneSamples holds Monte Carlo posterior draws for one gene. Each draw
// has length 1 (univariate) or 2 (bivariate).
type GeneSamples struct {
	GeneID string      `json:"gene_id"`
	Draws  [][]float64 `json:"draws"`
}

// Enrichment reports differential-expression signal concentration in one
// annotation category: the category's share of total posterior second
// moments divided by its share of genes.
type Enrichment struct {
	Category   string  `json:"category"`
	NGenes     int     `json:"n_genes"`
	Enrichment float64 `json:"enrichment"`
}
