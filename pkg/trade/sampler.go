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
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distmv"
	"gonum.org/v1/gonum/stat/distuv"
)

// newRNG builds the engine's pseudorandom generator from the configured
// seed. One instance is threaded through the sampler; nothing touches
// global random state, so concurrent runs in one process never
// interfere and identical seeds yield bit-identical draws.
func newRNG(seed int64) *rand.Rand {
	s := uint64(seed)
	return rand.New(rand.NewPCG(s, s^0x9e3779b97f4a7c15))
}

// pickComponent draws a component index from the responsibility vector.
func pickComponent(rng *rand.Rand, resp []float64) int {
	u := rng.Float64()
	acc := 0.0
	for j, r := range resp {
		acc += r
		if u < acc {
			return j
		}
	}
	return len(resp) - 1
}

// sampleUnivariate draws n posterior samples per gene: a component by
// responsibility, then the conditional posterior Normal for that
// component. The null component contributes exact zeros.
func sampleUnivariate(rng *rand.Rand, records []GeneEffectRecord, grid []uniComponent, ll *logLikMatrix, weights []float64, n int) []GeneSamples {
	if n <= 0 {
		return nil
	}
	out := make([]GeneSamples, len(records))
	for i, rec := range records {
		resp := responsibilities(ll.rows[i], weights)
		noise := rec.SE * rec.SE
		draws := make([][]float64, n)
		for d := 0; d < n; d++ {
			j := pickComponent(rng, resp)
			c := grid[j]
			if c.sigma2 == 0 {
				draws[d] = []float64{0}
				continue
			}
			shrink := c.sigma2 / (c.sigma2 + noise)
			dist := distuv.Normal{
				Mu:    shrink * rec.Effect,
				Sigma: math.Sqrt(shrink * noise),
				Src:   rng,
			}
			draws[d] = []float64{dist.Rand()}
		}
		out[i] = GeneSamples{GeneID: rec.GeneID, Draws: draws}
	}
	return out
}

// sampleBivariate is the two-trait analogue of sampleUnivariate, drawing
// from each selected component's conditional bivariate posterior.
func sampleBivariate(rng *rand.Rand, pairs []genePair, comps []biComponent, ll *logLikMatrix, weights []float64, rho float64, n int) []GeneSamples {
	if n <= 0 {
		return nil
	}
	out := make([]GeneSamples, len(pairs))
	for i, p := range pairs {
		resp := responsibilities(ll.rows[i], weights)
		draws := make([][]float64, n)
		for d := 0; d < n; d++ {
			j := pickComponent(rng, resp)
			mu, cov, ok := conditionalBiPosterior(p, comps[j], rho)
			if !ok {
				draws[d] = []float64{0, 0}
				continue
			}
			if dist, posdef := distmv.NewNormal(mu, cov, rng); posdef {
				draws[d] = dist.Rand(nil)
				continue
			}
			// Degenerate conditional covariance: fall back to the mean.
			draws[d] = []float64{mu[0], mu[1]}
		}
		out[i] = GeneSamples{GeneID: p.geneID, Draws: draws}
	}
	return out
}
