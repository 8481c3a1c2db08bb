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
	"gonum.org/v1/gonum/mat"
)

// uniPosterior computes one gene's posterior mean and variance under the
// fitted univariate mixture.
//
// Conditional on component k, the posterior of the true effect is the
// standard precision-weighted shrinkage blend of zero and the observed
// estimate. Blending across components uses the gene's responsibilities,
// and the reported variance includes the between-component spread.
func uniPosterior(rec GeneEffectRecord, grid []uniComponent, row, weights []float64) PosteriorSummary {
	resp := responsibilities(row, weights)
	noise := rec.SE * rec.SE

	mean := 0.0
	second := 0.0
	nullResp := 0.0
	for j, c := range grid {
		if c.sigma2 == 0 {
			nullResp += resp[j]
			continue
		}
		shrink := c.sigma2 / (c.sigma2 + noise)
		mk := shrink * rec.Effect
		vk := shrink * noise
		mean += resp[j] * mk
		second += resp[j] * (vk + mk*mk)
	}
	variance := second - mean*mean
	if variance < 0 {
		variance = 0
	}
	return PosteriorSummary{
		GeneID:      rec.GeneID,
		Mean:        []float64{mean},
		Variance:    [][]float64{{variance}},
		ProbNonzero: 1 - nullResp,
	}
}

// biPosterior is the matrix analogue of uniPosterior: conditional on
// component k, the posterior is N2(U_k S_k^-1 x, U_k - U_k S_k^-1 U_k)
// with S_k = U_k + V_g, where V_g includes the gene's pair of standard
// errors plus the estimated sampling covariance.
func biPosterior(p genePair, comps []biComponent, row, weights []float64, rho float64) PosteriorSummary {
	resp := responsibilities(row, weights)

	v00 := p.se[0] * p.se[0]
	v11 := p.se[1] * p.se[1]
	v01 := rho * p.se[0] * p.se[1]

	mean := [2]float64{}
	second := [2][2]float64{}
	nullResp := 0.0
	for j, c := range comps {
		u00, u01, u11 := c.u.At(0, 0), c.u.At(0, 1), c.u.At(1, 1)
		if u00 == 0 && u11 == 0 {
			nullResp += resp[j]
			continue
		}
		s00, s01, s11 := u00+v00, u01+v01, u11+v11
		det := s00*s11 - s01*s01
		if det <= 0 {
			continue
		}
		// G = U S^-1 (the shrinkage gain).
		g00 := (u00*s11 - u01*s01) / det
		g01 := (-u00*s01 + u01*s00) / det
		g10 := (u01*s11 - u11*s01) / det
		g11 := (-u01*s01 + u11*s00) / det

		m0 := g00*p.effect[0] + g01*p.effect[1]
		m1 := g10*p.effect[0] + g11*p.effect[1]

		// C = U - G U (conditional posterior covariance).
		c00 := u00 - (g00*u00 + g01*u01)
		c01 := u01 - (g00*u01 + g01*u11)
		c11 := u11 - (g10*u01 + g11*u11)

		r := resp[j]
		mean[0] += r * m0
		mean[1] += r * m1
		second[0][0] += r * (c00 + m0*m0)
		second[0][1] += r * (c01 + m0*m1)
		second[1][1] += r * (c11 + m1*m1)
	}

	cov := [][]float64{
		{second[0][0] - mean[0]*mean[0], second[0][1] - mean[0]*mean[1]},
		{0, second[1][1] - mean[1]*mean[1]},
	}
	cov[1][0] = cov[0][1]
	if cov[0][0] < 0 {
		cov[0][0] = 0
	}
	if cov[1][1] < 0 {
		cov[1][1] = 0
	}
	return PosteriorSummary{
		GeneID:      p.geneID,
		Mean:        []float64{mean[0], mean[1]},
		Variance:    cov,
		ProbNonzero: 1 - nullResp,
	}
}

// conditionalBiPosterior exposes one component's conditional posterior
// for the sampler: mean vector and covariance as a SymDense.
func conditionalBiPosterior(p genePair, c biComponent, rho float64) (mu []float64, cov *mat.SymDense, ok bool) {
	u00, u01, u11 := c.u.At(0, 0), c.u.At(0, 1), c.u.At(1, 1)
	if u00 == 0 && u11 == 0 {
		return []float64{0, 0}, nil, false
	}
	v00 := p.se[0] * p.se[0]
	v11 := p.se[1] * p.se[1]
	v01 := rho * p.se[0] * p.se[1]
	s00, s01, s11 := u00+v00, u01+v01, u11+v11
	det := s00*s11 - s01*s01
	if det <= 0 {
		return []float64{0, 0}, nil, false
	}
	g00 := (u00*s11 - u01*s01) / det
	g01 := (-u00*s01 + u01*s00) / det
	g10 := (u01*s11 - u11*s01) / det
	g11 := (-u01*s01 + u11*s00) / det

	mu = []float64{
		g00*p.effect[0] + g01*p.effect[1],
		g10*p.effect[0] + g11*p.effect[1],
	}
	c00 := u00 - (g00*u00 + g01*u01)
	c01 := u01 - (g00*u01 + g01*u11)
	c11 := u11 - (g10*u01 + g11*u11)
	// Guard tiny negative diagonals from cancellation.
	if c00 < 0 {
		c00 = 0
	}
	if c11 < 0 {
		c11 = 0
	}
	return mu, mat.NewSymDense(2, []float64{c00, c01, c01, c11}), true
}
