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
	"time"
)

// Mode selects the analysis variant a Result was produced by.
type Mode string

const (
	ModeUnivariate Mode = "univariate"
	ModeBivariate  Mode = "bivariate"
)

// UnivariateSummary is the flat tabular summary of a univariate run,
// matching the output contract {transcriptome_wide_impact, Me, mean}.
type UnivariateSummary struct {
	// TranscriptomeWideImpact is the total variance of true effects
	// across the transcriptome, excluding measurement noise.
	TranscriptomeWideImpact float64 `json:"transcriptome_wide_impact"`

	// Me is the effective number of differentially expressed genes:
	// the kurtosis-based participation ratio of the fitted mixture.
	// Always in [0, NGenes].
	Me float64 `json:"Me"`

	// Mean is the across-gene average of posterior mean effects.
	Mean float64 `json:"mean"`

	// FractionSignificant is the share of total signal carried by
	// Bonferroni-significant genes. Only set with model_significant.
	FractionSignificant float64 `json:"fraction_significant,omitempty"`
}

// BivariateSummary is the flat tabular summary of a bivariate run,
// matching the output contract {TI_correlation, cor_raw, loglik}.
type BivariateSummary struct {
	// TICorrelation is the correlation between the two perturbations'
	// true-effect distributions, computed from the fitted joint mixture
	// and corrected for measurement noise. Always in [-1, 1].
	TICorrelation float64 `json:"TI_correlation"`

	// CorRaw is the Pearson correlation of the raw observed estimates.
	CorRaw float64 `json:"cor_raw"`

	// LogLik is the total marginal log-likelihood achieved by the fit.
	LogLik float64 `json:"loglik"`

	// SamplingCovRho is the estimated shared-sample noise correlation,
	// zero when the correction was disabled.
	SamplingCovRho float64 `json:"sampling_cov_rho,omitempty"`

	// NOverlap is the number of genes shared by the two experiments.
	NOverlap int `json:"n_overlap"`
}

// Result is the full structured outcome of one analysis, finalized once
// and persisted as-is for programmatic reuse.
type Result struct {
	RunID     string    `json:"run_id"`
	Mode      Mode      `json:"mode"`
	CreatedAt time.Time `json:"created_at"`

	// Options echoes the configuration the run was performed with.
	Options Options `json:"options"`

	// NGenes is the number of genes that entered fitting after
	// validation and exclusion.
	NGenes int `json:"n_genes"`

	Mixture FittedMixture `json:"mixture"`

	// SignificantMixture is the separate fit over Bonferroni-significant
	// genes. Only set with model_significant.
	SignificantMixture *FittedMixture `json:"significant_mixture,omitempty"`

	Posteriors []PosteriorSummary `json:"posteriors"`

	// Samples holds posterior draws, one entry per gene, in gene order.
	// Empty when n_sample is 0.
	Samples []GeneSamples `json:"samples,omitempty"`

	// Enrichments is the per-category signal stratification. Only set
	// when an annotation table was supplied (univariate mode).
	Enrichments []Enrichment `json:"enrichments,omitempty"`

	Univariate *UnivariateSummary `json:"univariate_summary,omitempty"`
	Bivariate  *BivariateSummary  `json:"bivariate_summary,omitempty"`
}

// SummaryHeader returns the flat summary column names for the result's
// mode, in the order they are persisted.
func (r *Result) SummaryHeader() []string {
	if r.Mode == ModeBivariate {
		return []string{"TI_correlation", "cor_raw", "loglik"}
	}
	return []string{"transcriptome_wide_impact", "Me", "mean"}
}

// SummaryRow returns the flat summary values aligned with SummaryHeader.
func (r *Result) SummaryRow() []float64 {
	if r.Mode == ModeBivariate {
		return []float64{r.Bivariate.TICorrelation, r.Bivariate.CorRaw, r.Bivariate.LogLik}
	}
	return []float64{r.Univariate.TranscriptomeWideImpact, r.Univariate.Me, r.Univariate.Mean}
}
