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
)

func TestEstimateSamplingCovariancePositive(t *testing.T) {
	// Null genes with identical z-noise in both experiments.
	var pairs []genePair
	for i := 0; i < 20; i++ {
		z := 0.4 * float64(i%9-4)
		pairs = append(pairs, genePair{
			geneID: "G",
			effect: [2]float64{0.5 * z, 0.5 * z},
			se:     [2]float64{0.5, 0.5},
		})
	}

	rho := estimateSamplingCovariance(pairs)
	assert.InDelta(t, 0.99, rho, 1e-9, "perfect correlation clamps at the cap")
}

func TestEstimateSamplingCovarianceIgnoresStrongGenes(t *testing.T) {
	// The strong genes carry true-effect correlation that must not leak
	// into the noise estimate; with them removed the null z-scores are
	// uncorrelated here.
	var pairs []genePair
	for i := 0; i < 24; i++ {
		z1 := 0.4 * float64(i%9-4)
		z2 := 0.4 * float64((i*5+3)%9-4)
		pairs = append(pairs, genePair{
			geneID: "G",
			effect: [2]float64{0.5 * z1, 0.5 * z2},
			se:     [2]float64{0.5, 0.5},
		})
	}
	for i := 0; i < 6; i++ {
		pairs = append(pairs, genePair{
			geneID: "S",
			effect: [2]float64{3, 3},
			se:     [2]float64{0.5, 0.5},
		})
	}

	rho := estimateSamplingCovariance(pairs)
	assert.Less(t, rho, 0.5)
	assert.Greater(t, rho, -0.5)
}

func TestEstimateSamplingCovarianceTooFewNullGenes(t *testing.T) {
	var pairs []genePair
	for i := 0; i < 5; i++ {
		pairs = append(pairs, genePair{
			geneID: "G",
			effect: [2]float64{0.1, 0.1},
			se:     [2]float64{0.5, 0.5},
		})
	}
	assert.Zero(t, estimateSamplingCovariance(pairs))
}
