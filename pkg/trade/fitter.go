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
	"runtime"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/jmiao24/trade-agent/pkg/logging"
)

// log2Pi is precomputed for the Gaussian log-densities.
var log2Pi = math.Log(2 * math.Pi)

// logNormal returns log N(x; 0, v) for v > 0.
func logNormal(x, v float64) float64 {
	return -0.5 * (log2Pi + math.Log(v) + x*x/v)
}

// logMVN2 returns log N2(x; 0, S) for a 2x2 covariance given by its
// entries. The closed form avoids a Cholesky factorization per gene per
// component.
func logMVN2(x0, x1, s00, s01, s11 float64) float64 {
	det := s00*s11 - s01*s01
	if det <= 0 {
		return math.Inf(-1)
	}
	// S^-1 = [s11 -s01; -s01 s00] / det
	quad := (x0*x0*s11 - 2*x0*x1*s01 + x1*x1*s00) / det
	return -log2Pi - 0.5*math.Log(det) - 0.5*quad
}

// logLikMatrix holds the fixed per-gene, per-component marginal
// log-likelihoods. Component variances never change during EM, so the
// matrix is computed once and the weight updates stay cheap.
type logLikMatrix struct {
	n, k int
	rows [][]float64
}

// uniLogLik fills the likelihood matrix for the univariate model: each
// gene's observed estimate under N(0, sigma_k^2 + SE_g^2).
//
// Rows are filled in parallel across gene shards; each shard writes
// disjoint rows, so no synchronization is needed beyond the errgroup
// barrier.
func uniLogLik(ctx context.Context, records []GeneEffectRecord, grid []uniComponent) (*logLikMatrix, error) {
	m := &logLikMatrix{n: len(records), k: len(grid)}
	m.rows = make([][]float64, m.n)

	g, _ := errgroup.WithContext(ctx)
	workers := runtime.GOMAXPROCS(0)
	chunk := (m.n + workers - 1) / workers
	for lo := 0; lo < m.n; lo += chunk {
		lo, hi := lo, min(lo+chunk, m.n)
		g.Go(func() error {
			for i := lo; i < hi; i++ {
				r := records[i]
				row := make([]float64, len(grid))
				noise := r.SE * r.SE
				for j, c := range grid {
					row[j] = logNormal(r.Effect, c.sigma2+noise)
				}
				m.rows[i] = row
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return m, nil
}

// biLogLik fills the likelihood matrix for the bivariate model: each
// gene's observed pair under N2(0, U_k + V_g), where V_g is the gene's
// diagonal noise plus the shared-sample covariance term rho*SE1*SE2.
func biLogLik(ctx context.Context, pairs []genePair, comps []biComponent, rho float64) (*logLikMatrix, error) {
	m := &logLikMatrix{n: len(pairs), k: len(comps)}
	m.rows = make([][]float64, m.n)

	g, _ := errgroup.WithContext(ctx)
	workers := runtime.GOMAXPROCS(0)
	chunk := (m.n + workers - 1) / workers
	for lo := 0; lo < m.n; lo += chunk {
		lo, hi := lo, min(lo+chunk, m.n)
		g.Go(func() error {
			for i := lo; i < hi; i++ {
				p := pairs[i]
				row := make([]float64, len(comps))
				v00 := p.se[0] * p.se[0]
				v11 := p.se[1] * p.se[1]
				v01 := rho * p.se[0] * p.se[1]
				for j, c := range comps {
					row[j] = logMVN2(p.effect[0], p.effect[1],
						c.u.At(0, 0)+v00, c.u.At(0, 1)+v01, c.u.At(1, 1)+v11)
				}
				m.rows[i] = row
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return m, nil
}

// fitWeights runs expectation-maximization over the mixing weights.
//
// E-step: per gene, the posterior responsibility of each component given
// the current weights. M-step: the normalized responsibility average
// across genes, regularized by the Dirichlet prior alpha (alpha_k = 1
// means no penalty). Iteration stops when the absolute log-likelihood
// change falls below tol; the comparison is absolute because a strong
// Dirichlet prior can trade data log-likelihood for prior mass between
// iterations. Hitting maxIter returns converged=false. A non-finite
// log-likelihood is a fatal numerical error.
//
// The procedure is fully deterministic: weights start uniform and no
// randomness is involved.
func fitWeights(m *logLikMatrix, alpha []float64, tol float64, maxIter int, log *logging.Logger) (weights []float64, logLik float64, iters int, converged bool, err error) {
	k := m.k
	weights = make([]float64, k)
	for j := range weights {
		weights[j] = 1 / float64(k)
	}

	logW := make([]float64, k)
	respSum := make([]float64, k)
	work := make([]float64, k)

	// Total pseudo-count mass added by the regularizer.
	alphaExtra := 0.0
	for _, a := range alpha {
		alphaExtra += a - 1
	}

	prevLL := math.Inf(-1)
	for iters = 1; iters <= maxIter; iters++ {
		for j, w := range weights {
			if w > 0 {
				logW[j] = math.Log(w)
			} else {
				logW[j] = math.Inf(-1)
			}
		}

		// E-step reduction. Gene order is fixed, so summation order (and
		// therefore the result) is reproducible bit-for-bit.
		logLik = 0
		for j := range respSum {
			respSum[j] = 0
		}
		for i := 0; i < m.n; i++ {
			row := m.rows[i]
			for j := 0; j < k; j++ {
				work[j] = logW[j] + row[j]
			}
			lse := floats.LogSumExp(work)
			logLik += lse
			for j := 0; j < k; j++ {
				respSum[j] += math.Exp(work[j] - lse)
			}
		}
		if math.IsNaN(logLik) || math.IsInf(logLik, 1) {
			return nil, 0, iters, false, stageErr(StageFit, KindNumerical, ErrNonFiniteLikelihood)
		}

		// M-step: single-writer weight update behind the E-step barrier.
		total := float64(m.n) + alphaExtra
		for j := 0; j < k; j++ {
			w := (respSum[j] + alpha[j] - 1) / total
			if w < 0 {
				w = 0
			}
			weights[j] = w
		}
		normalize(weights)

		if math.Abs(logLik-prevLL) < tol && iters > 1 {
			converged = true
			break
		}
		prevLL = logLik
	}
	if iters > maxIter {
		iters = maxIter
	}

	if !converged {
		log.Warn("mixture fit did not converge", "iterations", iters, "loglik", logLik)
	} else {
		log.Debug("mixture fit converged", "iterations", iters, "loglik", logLik)
	}
	return weights, logLik, iters, converged, nil
}

// normalize scales a non-negative vector to sum to 1.
func normalize(w []float64) {
	s := floats.Sum(w)
	if s <= 0 {
		for j := range w {
			w[j] = 1 / float64(len(w))
		}
		return
	}
	floats.Scale(1/s, w)
}

// responsibilities recomputes one gene's posterior component
// probabilities under the final weights.
func responsibilities(row, weights []float64) []float64 {
	k := len(weights)
	work := make([]float64, k)
	for j := 0; j < k; j++ {
		if weights[j] > 0 {
			work[j] = math.Log(weights[j]) + row[j]
		} else {
			work[j] = math.Inf(-1)
		}
	}
	lse := floats.LogSumExp(work)
	resp := make([]float64, k)
	for j := 0; j < k; j++ {
		resp[j] = math.Exp(work[j] - lse)
	}
	return resp
}

// dirichletAlpha builds the M-step regularizer: weightZero applied to
// the components flagged as zero/no-correlation, 1 elsewhere.
func dirichletAlpha(k int, zeroIdx []int, weightZero float64) []float64 {
	alpha := make([]float64, k)
	for j := range alpha {
		alpha[j] = 1
	}
	for _, j := range zeroIdx {
		alpha[j] = weightZero
	}
	return alpha
}

// uncorrelatedIndices returns the candidate indices the weight_nocorr
// prior applies to: the null plus every component without cross-trait
// covariance.
func uncorrelatedIndices(comps []biComponent) []int {
	var idx []int
	for j, c := range comps {
		if c.u.At(0, 1) == 0 {
			idx = append(idx, j)
		}
	}
	return idx
}

// covToSlice converts a 2x2 covariance for JSON-friendly reporting.
func covToSlice(u *mat.SymDense) [][]float64 {
	return [][]float64{
		{u.At(0, 0), u.At(0, 1)},
		{u.At(1, 0), u.At(1, 1)},
	}
}
