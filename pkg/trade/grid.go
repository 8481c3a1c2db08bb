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

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// gridRatio bounds the ratio between consecutive grid standard
// deviations so no gap in the likelihood surface opens between
// candidates.
const gridRatio = math.Sqrt2

// maxGridPoints is a safety cap on the number of nonzero grid points;
// the null component does not count against it.
const maxGridPoints = 64

// uniComponent is one scalar candidate: a prior variance.
type uniComponent struct {
	label  string
	sigma2 float64
}

// biComponent is one matrix candidate: a 2x2 prior covariance.
type biComponent struct {
	label string
	u     *mat.SymDense
}

// buildVarianceGrid constructs the univariate candidate variances: the
// zero component followed by a geometric sequence of variances spanning
// the signal scale implied by the data.
//
// The span follows the adaptive-shrinkage convention: the smallest
// standard deviation is min(SE)/10 and the largest is
// 2*sqrt(max(effect^2 - SE^2)), falling back to a fixed multiple of the
// smallest when no estimate exceeds its own noise.
func buildVarianceGrid(records []GeneEffectRecord) ([]uniComponent, error) {
	if len(records) < 2 {
		return nil, stageErr(StageGridBuild, KindInput, ErrTooFewGenes)
	}

	minSE := math.Inf(1)
	maxExcess := 0.0
	for _, r := range records {
		if r.SE < minSE {
			minSE = r.SE
		}
		if ex := r.Effect*r.Effect - r.SE*r.SE; ex > maxExcess {
			maxExcess = ex
		}
	}

	sdMin := minSE / 10
	sdMax := 2 * math.Sqrt(maxExcess)
	if sdMax <= sdMin {
		// All estimates are noise-dominated; keep a short grid so the
		// null can still absorb everything.
		sdMax = 8 * sdMin
	}

	grid := []uniComponent{{label: "null", sigma2: 0}}
	for sd := sdMin; len(grid)-1 < maxGridPoints; sd *= gridRatio {
		grid = append(grid, uniComponent{label: "grid", sigma2: sd * sd})
		if sd >= sdMax {
			break
		}
	}
	return grid, nil
}

// canonicalCorrelations are the heterogeneous-correlation levels of the
// canonical basis, between the independent (0) and equal-effects (1)
// extremes.
var canonicalCorrelations = []float64{0.25, 0.5, 0.75}

// buildCovarianceGrid constructs the bivariate candidate covariances for
// the requested set, each correlation structure scaled over the shared
// variance grid. The zero matrix is always the first candidate.
func buildCovarianceGrid(pairs []genePair, set CovarianceSet, varThreshold float64) ([]biComponent, error) {
	if len(pairs) < 2 {
		return nil, stageErr(StageGridBuild, KindInput, ErrTooFewGenes)
	}

	scales := pairScales(pairs)

	comps := []biComponent{{label: "null", u: mat.NewSymDense(2, nil)}}
	switch set {
	case CovarianceSetCanonical:
		comps = append(comps, canonicalComponents(scales)...)
	case CovarianceSetAdaptive:
		comps = append(comps, adaptiveComponents(pairs, scales, varThreshold)...)
	case CovarianceSetCombined:
		comps = append(comps, canonicalComponents(scales)...)
		comps = append(comps, adaptiveComponents(pairs, scales, varThreshold)...)
	default:
		return nil, stageErr(StageConfig, KindConfig, ErrUnknownCovarianceSet)
	}
	return comps, nil
}

// pairScales derives the shared variance grid from both traits' records.
func pairScales(pairs []genePair) []float64 {
	minSE := math.Inf(1)
	maxExcess := 0.0
	for _, p := range pairs {
		for i := 0; i < 2; i++ {
			if p.se[i] < minSE {
				minSE = p.se[i]
			}
			if ex := p.effect[i]*p.effect[i] - p.se[i]*p.se[i]; ex > maxExcess {
				maxExcess = ex
			}
		}
	}
	sdMin := minSE / 10
	sdMax := 2 * math.Sqrt(maxExcess)
	if sdMax <= sdMin {
		sdMax = 8 * sdMin
	}
	var scales []float64
	for sd := sdMin; len(scales) < maxGridPoints; sd *= gridRatio {
		scales = append(scales, sd*sd)
		if sd >= sdMax {
			break
		}
	}
	return scales
}

// canonicalComponents scales the canonical correlation structures by the
// variance grid: per-trait singletons, equal effects (correlation 1),
// independent axes (identity correlation), and the heterogeneous levels.
func canonicalComponents(scales []float64) []biComponent {
	var comps []biComponent
	for _, s := range scales {
		comps = append(comps,
			biComponent{label: "singleton_1", u: mat.NewSymDense(2, []float64{s, 0, 0, 0})},
			biComponent{label: "singleton_2", u: mat.NewSymDense(2, []float64{0, 0, 0, s})},
			biComponent{label: "equal_corr", u: mat.NewSymDense(2, []float64{s, s, s, s})},
			biComponent{label: "independent", u: mat.NewSymDense(2, []float64{s, 0, 0, s})},
		)
		for _, rho := range canonicalCorrelations {
			comps = append(comps, biComponent{
				label: "het_corr",
				u:     mat.NewSymDense(2, []float64{s, rho * s, rho * s, s}),
			})
		}
	}
	return comps
}

// strongZThreshold selects the standardized estimates the adaptive grid
// learns correlation structure from.
const strongZThreshold = 2.0

// adaptiveComponents derives data-driven correlation structure from the
// standardized estimates: the empirical correlation matrix of the
// strong-signal genes (max |z| > 2; all genes when fewer than 2 are
// strong) plus the rank-1 outer products of its principal components,
// each scaled over the variance grid. Principal components whose
// variance-explained fraction falls below varThreshold are dropped; the
// empirical matrix itself always survives the filter.
func adaptiveComponents(pairs []genePair, scales []float64, varThreshold float64) []biComponent {
	var z1, z2 []float64
	for _, p := range pairs {
		a, b := p.effect[0]/p.se[0], p.effect[1]/p.se[1]
		if math.Max(math.Abs(a), math.Abs(b)) > strongZThreshold {
			z1 = append(z1, a)
			z2 = append(z2, b)
		}
	}
	if len(z1) < 2 {
		z1 = z1[:0]
		z2 = z2[:0]
		for _, p := range pairs {
			z1 = append(z1, p.effect[0]/p.se[0])
			z2 = append(z2, p.effect[1]/p.se[1])
		}
	}

	rho := stat.Correlation(z1, z2, nil)
	if math.IsNaN(rho) {
		rho = 0
	}
	empirical := mat.NewSymDense(2, []float64{1, rho, rho, 1})

	var comps []biComponent
	for _, s := range scales {
		u := mat.NewSymDense(2, nil)
		u.CopySym(empirical)
		scaleSym(u, s)
		comps = append(comps, biComponent{label: "empirical_corr", u: u})
	}

	// Principal components of the empirical correlation structure.
	var eig mat.EigenSym
	if !eig.Factorize(empirical, true) {
		return comps
	}
	vals := eig.Values(nil)
	var vecs mat.Dense
	eig.VectorsTo(&vecs)
	total := vals[0] + vals[1]
	if total <= 0 {
		return comps
	}
	for i := 0; i < 2; i++ {
		if vals[i] <= 0 || vals[i]/total < varThreshold {
			continue
		}
		v0, v1 := vecs.At(0, i), vecs.At(1, i)
		// Rank-1 structure normalized to unit max diagonal so the
		// variance grid keeps its meaning.
		norm := math.Max(v0*v0, v1*v1)
		if norm == 0 {
			continue
		}
		for _, s := range scales {
			f := s / norm
			comps = append(comps, biComponent{
				label: "pca",
				u:     mat.NewSymDense(2, []float64{f * v0 * v0, f * v0 * v1, f * v0 * v1, f * v1 * v1}),
			})
		}
	}
	return comps
}

// scaleSym scales a symmetric matrix in place.
func scaleSym(u *mat.SymDense, f float64) {
	for i := 0; i < 2; i++ {
		for j := i; j < 2; j++ {
			u.SetSym(i, j, u.At(i, j)*f)
		}
	}
}
