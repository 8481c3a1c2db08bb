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

	"gonum.org/v1/gonum/stat"
)

// mixtureVariance is the total variance of true effects implied by a
// univariate fit: sum over components of weight * variance, excluding
// measurement noise.
func mixtureVariance(grid []uniComponent, weights []float64) float64 {
	v := 0.0
	for j, c := range grid {
		v += weights[j] * c.sigma2
	}
	return v
}

// effectiveGenes is the kurtosis-based participation ratio of the fitted
// zero-mean normal mixture: Me = 3N / kappa, with kappa the mixture
// kurtosis 3*sum(w*sigma^4)/sum(w*sigma^2)^2. Exact for a normal scale
// mixture, equal to N for a single-Gaussian prior, and 0 for an
// all-null fit. Cauchy-Schwarz bounds it by N.
func effectiveGenes(grid []uniComponent, weights []float64, n int) float64 {
	sum2 := 0.0
	sum4 := 0.0
	for j, c := range grid {
		sum2 += weights[j] * c.sigma2
		sum4 += weights[j] * c.sigma2 * c.sigma2
	}
	if sum4 == 0 {
		return 0
	}
	return float64(n) * sum2 * sum2 / sum4
}

// posteriorMeanAverage is the across-gene average of posterior mean
// effects, the reported "mean" metric. The fitted components are
// zero-centered, so the mixture-implied mean is identically zero and
// the posterior-mean average is the informative analogue.
func posteriorMeanAverage(posts []PosteriorSummary) float64 {
	if len(posts) == 0 {
		return 0
	}
	s := 0.0
	for _, p := range posts {
		s += p.Mean[0]
	}
	return s / float64(len(posts))
}

// rawCorrelation is the Pearson correlation of the two experiments'
// observed effect estimates over the overlapping genes.
func rawCorrelation(pairs []genePair) float64 {
	x := make([]float64, len(pairs))
	y := make([]float64, len(pairs))
	for i, p := range pairs {
		x[i] = p.effect[0]
		y[i] = p.effect[1]
	}
	c := stat.Correlation(x, y, nil)
	if math.IsNaN(c) {
		return 0
	}
	return c
}

// tiCorrelation derives the true-effect correlation from the fitted
// joint mixture: the correlation of the prior covariance sum(w*U).
// Measurement noise never enters the prior, and the shared-sample
// covariance was already subtracted by folding it into the per-gene
// noise matrices during fitting. Clamped to [-1, 1].
func tiCorrelation(comps []biComponent, weights []float64) float64 {
	var c00, c01, c11 float64
	for j, c := range comps {
		c00 += weights[j] * c.u.At(0, 0)
		c01 += weights[j] * c.u.At(0, 1)
		c11 += weights[j] * c.u.At(1, 1)
	}
	if c00 <= 0 || c11 <= 0 {
		return 0
	}
	cor := c01 / math.Sqrt(c00*c11)
	if cor > 1 {
		cor = 1
	}
	if cor < -1 {
		cor = -1
	}
	return cor
}

// enrichments stratifies the posterior signal by annotation category:
// each category's share of summed posterior second moments divided by
// its share of genes. Categories with no member genes are reported with
// a zero enrichment.
func enrichments(posts []PosteriorSummary, annot *AnnotationTable) ([]Enrichment, error) {
	if annot == nil || len(annot.Categories) == 0 {
		return nil, nil
	}

	overlap := 0
	totalSignal := 0.0
	catSignal := make([]float64, len(annot.Categories))
	catGenes := make([]int, len(annot.Categories))
	for _, p := range posts {
		e2 := p.Variance[0][0] + p.Mean[0]*p.Mean[0]
		totalSignal += e2
		flags, ok := annot.Membership[p.GeneID]
		if !ok {
			continue
		}
		overlap++
		for c, in := range flags {
			if in {
				catSignal[c] += e2
				catGenes[c]++
			}
		}
	}
	if overlap == 0 {
		return nil, stageErr(StageSummary, KindConsistency, ErrNoAnnotationOverlap)
	}

	n := float64(len(posts))
	out := make([]Enrichment, len(annot.Categories))
	for c, name := range annot.Categories {
		e := Enrichment{Category: name, NGenes: catGenes[c]}
		if catGenes[c] > 0 && totalSignal > 0 {
			signalShare := catSignal[c] / totalSignal
			geneShare := float64(catGenes[c]) / n
			e.Enrichment = signalShare / geneShare
		}
		out[c] = e
	}
	return out, nil
}
