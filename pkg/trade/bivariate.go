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
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/jmiao24/trade-agent/pkg/logging"
)

// genePair is one gene's aligned summary statistics across the two
// experiments.
type genePair struct {
	geneID string
	effect [2]float64
	se     [2]float64
}

// alignExperiments intersects the two record sets on gene ID, keeping
// the first experiment's order. Zero overlap is a consistency error.
func alignExperiments(recs1, recs2 []GeneEffectRecord) ([]genePair, error) {
	byID := make(map[string]GeneEffectRecord, len(recs2))
	for _, r := range recs2 {
		byID[r.GeneID] = r
	}
	pairs := make([]genePair, 0, len(recs1))
	for _, r1 := range recs1 {
		r2, ok := byID[r1.GeneID]
		if !ok {
			continue
		}
		pairs = append(pairs, genePair{
			geneID: r1.GeneID,
			effect: [2]float64{r1.Effect, r2.Effect},
			se:     [2]float64{r1.SE, r2.SE},
		})
	}
	if len(pairs) == 0 {
		return nil, stageErr(StageInput, KindConsistency, ErrNoOverlap)
	}
	if len(pairs) < 2 {
		return nil, stageErr(StageInput, KindInput, ErrTooFewGenes)
	}
	return pairs, nil
}

// AnalyzeBivariate jointly models two experiments' effect sizes and
// derives {TI_correlation, cor_raw, loglik}.
//
// The sampling-covariance correction, when enabled, runs before the fit
// and folds the estimated shared-sample noise term into every gene's
// noise covariance, so the reported TI correlation is corrected for
// both measurement noise and sample sharing.
func AnalyzeBivariate(ctx context.Context, recs1, recs2 []GeneEffectRecord, opts Options, log *logging.Logger) (*Result, error) {
	if log == nil {
		log = logging.Default()
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	recs1, err := prepareRecords(recs1, log)
	if err != nil {
		return nil, err
	}
	recs2, err = prepareRecords(recs2, log)
	if err != nil {
		return nil, err
	}
	pairs, err := alignExperiments(recs1, recs2)
	if err != nil {
		return nil, err
	}
	log.Debug("experiments aligned", "overlap", len(pairs))

	rho := 0.0
	if opts.EstimateSamplingCovariance {
		rho = estimateSamplingCovariance(pairs)
		log.Debug("sampling covariance estimated", "rho", rho)
	}

	comps, err := buildCovarianceGrid(pairs, opts.CovarianceSet, opts.VarExplainedThreshold)
	if err != nil {
		return nil, err
	}
	log.Debug("covariance grid built", "components", len(comps))

	ll, err := biLogLik(ctx, pairs, comps, rho)
	if err != nil {
		return nil, stageErr(StageFit, KindNumerical, err)
	}

	alpha := dirichletAlpha(len(comps), uncorrelatedIndices(comps), opts.WeightNoCorr)
	weights, logLik, iters, converged, err := fitWeights(ll, alpha, opts.Tolerance, opts.MaxIterations, log)
	if err != nil {
		return nil, err
	}

	mixture := FittedMixture{
		Components: make([]MixtureComponent, len(comps)),
		LogLik:     logLik,
		Converged:  converged,
		Iterations: iters,
		NGenes:     len(pairs),
	}
	for j, c := range comps {
		mixture.Components[j] = MixtureComponent{Label: c.label, Covariance: covToSlice(c.u), Weight: weights[j]}
	}

	posts := make([]PosteriorSummary, len(pairs))
	for i, p := range pairs {
		posts[i] = biPosterior(p, comps, ll.rows[i], weights, rho)
	}

	summary := &BivariateSummary{
		TICorrelation:  tiCorrelation(comps, weights),
		CorRaw:         rawCorrelation(pairs),
		LogLik:         logLik,
		SamplingCovRho: rho,
		NOverlap:       len(pairs),
	}

	rng := newRNG(opts.Seed)
	samples := sampleBivariate(rng, pairs, comps, ll, weights, rho, opts.NSample)

	result := &Result{
		RunID:      uuid.NewString(),
		Mode:       ModeBivariate,
		CreatedAt:  time.Now().UTC(),
		Options:    opts,
		NGenes:     len(pairs),
		Mixture:    mixture,
		Posteriors: posts,
		Samples:    samples,
		Bivariate:  summary,
	}
	log.Info("bivariate analysis complete",
		"overlap", len(pairs),
		"TI_correlation", summary.TICorrelation,
		"cor_raw", summary.CorRaw,
		"converged", converged)
	return result, nil
}
