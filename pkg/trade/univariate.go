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
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/jmiao24/trade-agent/pkg/logging"
)

// bonferroniBase is the family-wise error rate behind the
// model_significant split: a gene is significant when p < 0.05/N.
const bonferroniBase = 0.05

// uniFit bundles one univariate mixture fit with the state needed for
// posteriors and sampling.
type uniFit struct {
	records []GeneEffectRecord
	grid    []uniComponent
	ll      *logLikMatrix
	weights []float64
	mixture FittedMixture
}

// fitUnivariate builds the variance grid, precomputes the marginal
// likelihoods, and fits the mixing weights for one set of records.
func fitUnivariate(ctx context.Context, records []GeneEffectRecord, opts Options, log *logging.Logger) (*uniFit, error) {
	grid, err := buildVarianceGrid(records)
	if err != nil {
		return nil, err
	}
	log.Debug("variance grid built", "components", len(grid), "genes", len(records))

	ll, err := uniLogLik(ctx, records, grid)
	if err != nil {
		return nil, stageErr(StageFit, KindNumerical, err)
	}

	alpha := dirichletAlpha(len(grid), []int{0}, opts.WeightNoCorr)
	weights, logLik, iters, converged, err := fitWeights(ll, alpha, opts.Tolerance, opts.MaxIterations, log)
	if err != nil {
		return nil, err
	}

	mixture := FittedMixture{
		Components: make([]MixtureComponent, len(grid)),
		LogLik:     logLik,
		Converged:  converged,
		Iterations: iters,
		NGenes:     len(records),
	}
	for j, c := range grid {
		mixture.Components[j] = MixtureComponent{Label: c.label, Variance: c.sigma2, Weight: weights[j]}
	}
	return &uniFit{records: records, grid: grid, ll: ll, weights: weights, mixture: mixture}, nil
}

// prepareRecords drops records that cannot enter fitting and rejects
// duplicate gene IDs. Invalid rows are counted, not fatal; upstream
// ingestion reports them in detail.
func prepareRecords(records []GeneEffectRecord, log *logging.Logger) ([]GeneEffectRecord, error) {
	seen := make(map[string]struct{}, len(records))
	usable := make([]GeneEffectRecord, 0, len(records))
	dropped := 0
	for _, r := range records {
		if !r.valid() {
			dropped++
			continue
		}
		if _, dup := seen[r.GeneID]; dup {
			return nil, inputErrf(StageInput, "%w: %s", ErrDuplicateGene, r.GeneID)
		}
		seen[r.GeneID] = struct{}{}
		usable = append(usable, r)
	}
	if dropped > 0 {
		log.Debug("invalid records dropped before fitting", "dropped", dropped)
	}
	if len(usable) < 2 {
		return nil, stageErr(StageInput, KindInput, ErrTooFewGenes)
	}
	return usable, nil
}

// AnalyzeUnivariate estimates the effect-size distribution of one
// experiment and derives {transcriptome_wide_impact, Me, mean}.
//
// With model_significant enabled, Bonferroni-significant genes are fit
// as a separate mixture from the bulk and the combined impact is the
// gene-count-weighted average of the subset fits. An annotation table,
// when supplied, adds per-category enrichment to the result.
//
// The run is deterministic for identical inputs, options, and seed.
func AnalyzeUnivariate(ctx context.Context, records []GeneEffectRecord, annot *AnnotationTable, opts Options, log *logging.Logger) (*Result, error) {
	if log == nil {
		log = logging.Default()
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	records, err := prepareRecords(records, log)
	if err != nil {
		return nil, err
	}

	// Partition for model_significant; fall back to a single fit when
	// either subset is too small to support its own grid.
	var bulk, sig []GeneEffectRecord
	if opts.ModelSignificant {
		threshold := bonferroniBase / float64(len(records))
		for _, r := range records {
			if !math.IsNaN(r.PValue) && r.PValue < threshold {
				sig = append(sig, r)
			} else {
				bulk = append(bulk, r)
			}
		}
		if len(sig) < 2 || len(bulk) < 2 {
			log.Warn("model_significant split too small, fitting jointly",
				"significant", len(sig), "bulk", len(bulk))
			bulk, sig = records, nil
		}
	} else {
		bulk = records
	}

	bulkFit, err := fitUnivariate(ctx, bulk, opts, log)
	if err != nil {
		return nil, err
	}
	var sigFit *uniFit
	if len(sig) > 0 {
		if sigFit, err = fitUnivariate(ctx, sig, opts, log); err != nil {
			return nil, err
		}
	}

	// Posteriors in original record order.
	fitOf := make(map[string]*uniFit, len(records))
	idxOf := make(map[string]int, len(records))
	for i, r := range bulkFit.records {
		fitOf[r.GeneID] = bulkFit
		idxOf[r.GeneID] = i
	}
	if sigFit != nil {
		for i, r := range sigFit.records {
			fitOf[r.GeneID] = sigFit
			idxOf[r.GeneID] = i
		}
	}
	posts := make([]PosteriorSummary, len(records))
	for i, r := range records {
		f := fitOf[r.GeneID]
		posts[i] = uniPosterior(r, f.grid, f.ll.rows[idxOf[r.GeneID]], f.weights)
	}

	summary := &UnivariateSummary{Mean: posteriorMeanAverage(posts)}
	n := len(records)
	bulkImpact := mixtureVariance(bulkFit.grid, bulkFit.weights)
	if sigFit != nil {
		sigImpact := mixtureVariance(sigFit.grid, sigFit.weights)
		nb, ns := float64(len(bulk)), float64(len(sig))
		summary.TranscriptomeWideImpact = (nb*bulkImpact + ns*sigImpact) / float64(n)
		summary.Me = effectiveGenes(bulkFit.grid, bulkFit.weights, len(bulk)) +
			effectiveGenes(sigFit.grid, sigFit.weights, len(sig))
		summary.FractionSignificant = signalFraction(posts, sigFit.records)
	} else {
		summary.TranscriptomeWideImpact = bulkImpact
		summary.Me = effectiveGenes(bulkFit.grid, bulkFit.weights, n)
	}

	enr, err := enrichments(posts, annot)
	if err != nil {
		return nil, err
	}

	rng := newRNG(opts.Seed)
	var samples []GeneSamples
	if opts.NSample > 0 {
		samples = make([]GeneSamples, len(records))
		for i, r := range records {
			f := fitOf[r.GeneID]
			one := sampleUnivariate(rng, []GeneEffectRecord{r}, f.grid,
				&logLikMatrix{n: 1, k: f.ll.k, rows: [][]float64{f.ll.rows[idxOf[r.GeneID]]}},
				f.weights, opts.NSample)
			samples[i] = one[0]
		}
	}

	result := &Result{
		RunID:       uuid.NewString(),
		Mode:        ModeUnivariate,
		CreatedAt:   time.Now().UTC(),
		Options:     opts,
		NGenes:      n,
		Mixture:     bulkFit.mixture,
		Posteriors:  posts,
		Samples:     samples,
		Enrichments: enr,
		Univariate:  summary,
	}
	if sigFit != nil {
		m := sigFit.mixture
		result.SignificantMixture = &m
	}
	log.Info("univariate analysis complete",
		"genes", n,
		"impact", summary.TranscriptomeWideImpact,
		"Me", summary.Me,
		"converged", bulkFit.mixture.Converged)
	return result, nil
}

// signalFraction is the significant subset's share of summed posterior
// second moments.
func signalFraction(posts []PosteriorSummary, sig []GeneEffectRecord) float64 {
	inSig := make(map[string]struct{}, len(sig))
	for _, r := range sig {
		inSig[r.GeneID] = struct{}{}
	}
	total, sigSum := 0.0, 0.0
	for _, p := range posts {
		e2 := p.Variance[0][0] + p.Mean[0]*p.Mean[0]
		total += e2
		if _, ok := inSig[p.GeneID]; ok {
			sigSum += e2
		}
	}
	if total == 0 {
		return 0
	}
	return sigSum / total
}
