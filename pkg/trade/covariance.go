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

// minNullGenes is the minimum number of apparently-null genes required
// before the sampling covariance estimate is trusted. Below it the
// correction falls back to zero.
const minNullGenes = 10

// estimateSamplingCovariance estimates the correlation between the two
// experiments' noise terms induced by shared samples.
//
// Genes that look null in both experiments (|z| < 2 in both) carry no
// true-effect covariance, so the correlation of their z-scores isolates
// the shared-sample noise term. The per-gene covariance contribution is
// rho * SE1_g * SE2_g, added to the noise matrix before fitting so the
// TI correlation is corrected downstream.
func estimateSamplingCovariance(pairs []genePair) float64 {
	var z1, z2 []float64
	for _, p := range pairs {
		a, b := p.effect[0]/p.se[0], p.effect[1]/p.se[1]
		if math.Abs(a) < strongZThreshold && math.Abs(b) < strongZThreshold {
			z1 = append(z1, a)
			z2 = append(z2, b)
		}
	}
	if len(z1) < minNullGenes {
		return 0
	}
	rho := stat.Correlation(z1, z2, nil)
	if math.IsNaN(rho) {
		return 0
	}
	// Clamp away from +/-1 so every noise matrix stays positive definite.
	const maxRho = 0.99
	if rho > maxRho {
		rho = maxRho
	}
	if rho < -maxRho {
		rho = -maxRho
	}
	return rho
}
