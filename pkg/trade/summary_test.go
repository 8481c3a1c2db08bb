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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

func TestMixtureVariance(t *testing.T) {
	grid := []uniComponent{
		{label: "null", sigma2: 0},
		{label: "grid", sigma2: 1},
		{label: "grid", sigma2: 4},
	}
	v := mixtureVariance(grid, []float64{0.5, 0.25, 0.25})
	assert.InDelta(t, 0.25*1+0.25*4, v, 1e-12)
}

func TestEffectiveGenes(t *testing.T) {
	grid := []uniComponent{
		{label: "null", sigma2: 0},
		{label: "grid", sigma2: 1},
		{label: "grid", sigma2: 4},
	}

	// Single-Gaussian prior: every gene participates equally.
	assert.InDelta(t, 100, effectiveGenes(grid, []float64{0, 1, 0}, 100), 1e-9)

	// All-null fit carries no signal.
	assert.Zero(t, effectiveGenes(grid, []float64{1, 0, 0}, 100))

	// Concentrating the signal in a rare large component lowers the
	// effective count below N.
	sparse := effectiveGenes(grid, []float64{0.9, 0, 0.1}, 100)
	assert.Greater(t, sparse, 0.0)
	assert.Less(t, sparse, 100.0)
	// Participation ratio: N * (0.1*4)^2 / (0.1*16) = N/100 * 10.
	assert.InDelta(t, 10, sparse, 1e-9)
}

func TestEffectiveGenesBoundedByN(t *testing.T) {
	grid := []uniComponent{
		{label: "null", sigma2: 0},
		{label: "grid", sigma2: 0.5},
		{label: "grid", sigma2: 2},
		{label: "grid", sigma2: 8},
	}
	weightSets := [][]float64{
		{0.25, 0.25, 0.25, 0.25},
		{0.7, 0.1, 0.1, 0.1},
		{0, 0.5, 0.5, 0},
	}
	for _, w := range weightSets {
		me := effectiveGenes(grid, w, 50)
		assert.GreaterOrEqual(t, me, 0.0)
		assert.LessOrEqual(t, me, 50.0+1e-9)
	}
}

func TestPosteriorMeanAverage(t *testing.T) {
	posts := []PosteriorSummary{
		{Mean: []float64{1.0}},
		{Mean: []float64{-0.5}},
		{Mean: []float64{0.4}},
	}
	assert.InDelta(t, 0.3, posteriorMeanAverage(posts), 1e-12)
	assert.Zero(t, posteriorMeanAverage(nil))
}

func TestRawCorrelationMatchesPearson(t *testing.T) {
	e1 := []float64{2, -1, 0.5, 3, -0.2, 1.1}
	e2 := []float64{1.7, -1.2, 0.8, 2.4, 0.1, 0.9}
	pairs := makePairs(e1, e2, 0.5)

	want := stat.Correlation(e1, e2, nil)
	assert.InDelta(t, want, rawCorrelation(pairs), 1e-12)
}

func TestRawCorrelationDegenerate(t *testing.T) {
	// Constant estimates have no defined correlation; report 0 not NaN.
	pairs := makePairs([]float64{1, 1, 1}, []float64{2, -1, 0.5}, 0.5)
	assert.Zero(t, rawCorrelation(pairs))
}

func TestTICorrelation(t *testing.T) {
	comps := []biComponent{
		{label: "null", u: mat.NewSymDense(2, nil)},
		{label: "equal_corr", u: mat.NewSymDense(2, []float64{1, 1, 1, 1})},
		{label: "independent", u: mat.NewSymDense(2, []float64{1, 0, 0, 1})},
	}

	// All equal-effects mass: perfect correlation.
	assert.InDelta(t, 1.0, tiCorrelation(comps, []float64{0, 1, 0}), 1e-12)

	// All independent mass: no correlation.
	assert.Zero(t, tiCorrelation(comps, []float64{0, 0, 1}))

	// Even split: cov 0.5 over variance 1.
	assert.InDelta(t, 0.5, tiCorrelation(comps, []float64{0, 0.5, 0.5}), 1e-12)

	// All-null fit: no signal variance, no correlation.
	assert.Zero(t, tiCorrelation(comps, []float64{1, 0, 0}))
}

func TestTICorrelationClamped(t *testing.T) {
	// A numerically inflated cross term must not escape [-1, 1].
	comps := []biComponent{
		{label: "x", u: mat.NewSymDense(2, []float64{1, 1.0000001, 1.0000001, 1})},
	}
	cor := tiCorrelation(comps, []float64{1})
	assert.LessOrEqual(t, cor, 1.0)
	assert.GreaterOrEqual(t, cor, -1.0)
}

func TestEnrichments(t *testing.T) {
	posts := []PosteriorSummary{
		{GeneID: "STRONG", Mean: []float64{3}, Variance: [][]float64{{0.1}}},
		{GeneID: "WEAK1", Mean: []float64{0.01}, Variance: [][]float64{{0.01}}},
		{GeneID: "WEAK2", Mean: []float64{0.02}, Variance: [][]float64{{0.01}}},
		{GeneID: "WEAK3", Mean: []float64{0.0}, Variance: [][]float64{{0.01}}},
	}
	annot := &AnnotationTable{
		Categories: []string{"hit", "background", "empty"},
		Membership: map[string][]bool{
			"STRONG": {true, false, false},
			"WEAK1":  {false, true, false},
			"WEAK2":  {false, true, false},
		},
	}

	enr, err := enrichments(posts, annot)
	require.NoError(t, err)
	require.Len(t, enr, 3)

	byName := map[string]Enrichment{}
	for _, e := range enr {
		byName[e.Category] = e
	}

	// The strong gene's category concentrates far more than its gene
	// share; the weak background dilutes.
	assert.Equal(t, 1, byName["hit"].NGenes)
	assert.Greater(t, byName["hit"].Enrichment, 1.0)
	assert.Equal(t, 2, byName["background"].NGenes)
	assert.Less(t, byName["background"].Enrichment, 1.0)
	assert.Zero(t, byName["empty"].NGenes)
	assert.Zero(t, byName["empty"].Enrichment)
}

func TestEnrichmentsNilAnnotation(t *testing.T) {
	enr, err := enrichments([]PosteriorSummary{{GeneID: "G", Mean: []float64{0}, Variance: [][]float64{{0}}}}, nil)
	require.NoError(t, err)
	assert.Nil(t, enr)
}

func TestEnrichmentsNoOverlap(t *testing.T) {
	posts := []PosteriorSummary{
		{GeneID: "G1", Mean: []float64{1}, Variance: [][]float64{{0.1}}},
	}
	annot := &AnnotationTable{
		Categories: []string{"cat"},
		Membership: map[string][]bool{"OTHER": {true}},
	}
	_, err := enrichments(posts, annot)
	require.ErrorIs(t, err, ErrNoAnnotationOverlap)
}
