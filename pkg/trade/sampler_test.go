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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestPickComponentDegenerate(t *testing.T) {
	rng := newRNG(1)
	// A one-hot responsibility vector always selects its component.
	for i := 0; i < 100; i++ {
		assert.Equal(t, 1, pickComponent(rng, []float64{0, 1, 0}))
	}
}

func TestSampleUnivariateDisabled(t *testing.T) {
	recs := makeRecords([]float64{1, 2}, 0.5)
	grid := []uniComponent{{label: "null"}, {label: "grid", sigma2: 1}}
	ll, err := uniLogLik(context.Background(), recs, grid)
	require.NoError(t, err)

	assert.Nil(t, sampleUnivariate(newRNG(1), recs, grid, ll, []float64{0.5, 0.5}, 0))
}

func TestSampleUnivariateShape(t *testing.T) {
	recs := makeRecords([]float64{2, -1, 0.1}, 0.5)
	grid, err := buildVarianceGrid(recs)
	require.NoError(t, err)
	ll, err := uniLogLik(context.Background(), recs, grid)
	require.NoError(t, err)
	weights := make([]float64, len(grid))
	for j := range weights {
		weights[j] = 1 / float64(len(grid))
	}

	samples := sampleUnivariate(newRNG(42), recs, grid, ll, weights, 7)
	require.Len(t, samples, len(recs))
	for i, s := range samples {
		assert.Equal(t, recs[i].GeneID, s.GeneID)
		require.Len(t, s.Draws, 7)
		for _, d := range s.Draws {
			assert.Len(t, d, 1)
		}
	}
}

func TestSampleUnivariateAllNullDrawsZero(t *testing.T) {
	recs := makeRecords([]float64{2, -1}, 0.5)
	grid := []uniComponent{{label: "null"}, {label: "grid", sigma2: 1}}
	ll, err := uniLogLik(context.Background(), recs, grid)
	require.NoError(t, err)

	samples := sampleUnivariate(newRNG(42), recs, grid, ll, []float64{1, 0}, 20)
	for _, s := range samples {
		for _, d := range s.Draws {
			assert.Zero(t, d[0])
		}
	}
}

func TestSampleUnivariateSeedDeterminism(t *testing.T) {
	recs := makeRecords([]float64{2, -1, 0.1, 3}, 0.5)
	grid, err := buildVarianceGrid(recs)
	require.NoError(t, err)
	ll, err := uniLogLik(context.Background(), recs, grid)
	require.NoError(t, err)
	weights := make([]float64, len(grid))
	for j := range weights {
		weights[j] = 1 / float64(len(grid))
	}

	a := sampleUnivariate(newRNG(42), recs, grid, ll, weights, 11)
	b := sampleUnivariate(newRNG(42), recs, grid, ll, weights, 11)
	assert.Equal(t, a, b, "same seed must reproduce draws bit for bit")

	c := sampleUnivariate(newRNG(43), recs, grid, ll, weights, 11)
	assert.NotEqual(t, a, c, "different seeds should diverge")
}

func TestSampleBivariateShape(t *testing.T) {
	pairs := makePairs([]float64{2, -1, 0.5}, []float64{1.8, -0.9, 0.4}, 0.5)
	comps := []biComponent{
		{label: "null", u: mat.NewSymDense(2, nil)},
		{label: "independent", u: mat.NewSymDense(2, []float64{1, 0, 0, 1})},
		{label: "equal_corr", u: mat.NewSymDense(2, []float64{1, 1, 1, 1})},
	}
	ll, err := biLogLik(context.Background(), pairs, comps, 0)
	require.NoError(t, err)
	weights := []float64{0.2, 0.4, 0.4}

	samples := sampleBivariate(newRNG(7), pairs, comps, ll, weights, 0, 5)
	require.Len(t, samples, len(pairs))
	for i, s := range samples {
		assert.Equal(t, pairs[i].geneID, s.GeneID)
		require.Len(t, s.Draws, 5)
		for _, d := range s.Draws {
			assert.Len(t, d, 2)
		}
	}

	assert.Nil(t, sampleBivariate(newRNG(7), pairs, comps, ll, weights, 0, 0))
}

func TestSampleBivariateSeedDeterminism(t *testing.T) {
	pairs := makePairs([]float64{2, -1, 0.5}, []float64{1.8, -0.9, 0.4}, 0.5)
	comps := []biComponent{
		{label: "null", u: mat.NewSymDense(2, nil)},
		{label: "independent", u: mat.NewSymDense(2, []float64{1, 0, 0, 1})},
	}
	ll, err := biLogLik(context.Background(), pairs, comps, 0)
	require.NoError(t, err)
	weights := []float64{0.5, 0.5}

	a := sampleBivariate(newRNG(42), pairs, comps, ll, weights, 0, 9)
	b := sampleBivariate(newRNG(42), pairs, comps, ll, weights, 0, 9)
	assert.Equal(t, a, b)
}
