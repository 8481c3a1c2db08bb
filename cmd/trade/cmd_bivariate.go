// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"context"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/jmiao24/trade-agent/pkg/ingest"
	"github.com/jmiao24/trade-agent/pkg/trade"
)

// =============================================================================
// COMMAND FLAGS
// =============================================================================

var (
	biGeneCol      string
	biEffectCol    string
	biSECol        string
	biPValueCol    string
	biExclude      string
	biCovSet       string
	biVarThreshold float64
	biWeightNoCorr float64
	biSamplingCov  bool
	biNSample      int
	biSeed         int64
	biTolerance    float64
	biMaxIter      int
	biJSON         bool
	biQuiet        bool
	biOutput       string
	biSummaryOut   string
	biTimeout      int
)

// =============================================================================
// COMMAND DEFINITION
// =============================================================================

var bivariateCmd = &cobra.Command{
	Use:   "bivariate [results1.csv] [results2.csv]",
	Short: "Estimate the joint effect distribution of two experiments",
	Long: `Fit a joint mixture of zero-centered bivariate normals to two
experiments' per-gene estimates over their shared genes, then report
the correlation between the two true-effect distributions.

Both inputs are CSV result tables with the same column conventions.
Genes are matched by ID; genes present in only one table are dropped.
Reported statistics:
  - TI_correlation: correlation of true effects, noise-corrected
  - cor_raw: Pearson correlation of the raw estimates
  - loglik: marginal log-likelihood of the joint fit

Candidate covariance structures:
  canonical = fixed structures (singletons, equal, independent, ...)
  adaptive  = data-driven structures from the strongest signals
  combined  = union of both (default)

Examples:
  trade bivariate exp1.csv exp2.csv                        # Text summary
  trade bivariate exp1.csv exp2.csv --json                 # Full result JSON
  trade bivariate exp1.csv exp2.csv --covariance-set canonical
  trade bivariate exp1.csv exp2.csv --estimate-sampling-covariance
  trade bivariate exp1.csv exp2.csv --weight-nocorr 10     # Shrink toward 0
  trade bivariate exp1.csv exp2.csv --summary-out s.csv    # Flat summary

Exit Codes:
  0 = Analysis complete, fit converged
  1 = Analysis complete, iteration cap reached before convergence
  2 = Error (unreadable input, no gene overlap, numerical failure)`,
	Args: cobra.ExactArgs(2),
	Run:  runBivariateCommand,
}

func init() {
	bivariateCmd.Flags().StringVar(&biGeneCol, "gene-col", "",
		"Gene ID column (default: 'gene_id' if present, else first column)")
	bivariateCmd.Flags().StringVar(&biEffectCol, "effect-col", "log2FoldChange",
		"Effect-size column")
	bivariateCmd.Flags().StringVar(&biSECol, "se-col", "lfcSE",
		"Standard-error column")
	bivariateCmd.Flags().StringVar(&biPValueCol, "pvalue-col", "pvalue",
		"P-value column (optional in the table)")
	bivariateCmd.Flags().StringVar(&biExclude, "exclude", "",
		"Genes to drop from both tables: comma-separated IDs or @file")
	bivariateCmd.Flags().StringVar(&biCovSet, "covariance-set", string(trade.CovarianceSetCombined),
		"Candidate set: canonical, adaptive, combined")
	bivariateCmd.Flags().Float64Var(&biVarThreshold, "var-explained-threshold", 0,
		"Drop adaptive candidates explaining less than this fraction of variance")
	bivariateCmd.Flags().Float64Var(&biWeightNoCorr, "weight-nocorr", 1,
		"Dirichlet prior weight on uncorrelated components (1 = no penalty)")
	bivariateCmd.Flags().BoolVar(&biSamplingCov, "estimate-sampling-covariance", false,
		"Correct for shared-sample noise correlation estimated from null genes")
	bivariateCmd.Flags().IntVar(&biNSample, "n-sample", 0,
		"Posterior draws per gene (0 disables sampling)")
	bivariateCmd.Flags().Int64Var(&biSeed, "seed", 42,
		"Random seed for posterior draws")
	bivariateCmd.Flags().Float64Var(&biTolerance, "tolerance", 1e-7,
		"EM convergence tolerance on log-likelihood improvement")
	bivariateCmd.Flags().IntVar(&biMaxIter, "max-iterations", 5000,
		"EM iteration cap")
	bivariateCmd.Flags().BoolVar(&biJSON, "json", false,
		"Output full result as JSON")
	bivariateCmd.Flags().BoolVar(&biQuiet, "quiet", false,
		"Only exit code and persisted files, no stdout output")
	bivariateCmd.Flags().StringVar(&biOutput, "output", "",
		"Write full result JSON to this path")
	bivariateCmd.Flags().StringVar(&biSummaryOut, "summary-out", "",
		"Write flat summary CSV to this path")
	bivariateCmd.Flags().IntVar(&biTimeout, "timeout", 600,
		"Total timeout in seconds")

	// Add to root
	rootCmd.AddCommand(bivariateCmd)
}

// =============================================================================
// COMMAND IMPLEMENTATION
// =============================================================================

func runBivariateCommand(cmd *cobra.Command, args []string) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(biTimeout)*time.Second)
	defer cancel()

	opts := buildBivariateOptions(cmd)
	cols := buildColumns(cmd, biGeneCol, biEffectCol, biSECol, biPValueCol)

	recs1, err := ingest.ReadResults(args[0], cols, appLog)
	if err != nil {
		outputAnalysisError(biJSON, "Failed to load first results table", err)
		os.Exit(ExitError)
	}
	recs2, err := ingest.ReadResults(args[1], cols, appLog)
	if err != nil {
		outputAnalysisError(biJSON, "Failed to load second results table", err)
		os.Exit(ExitError)
	}

	exclude, err := ingest.ParseExclusions(biExclude)
	if err != nil {
		outputAnalysisError(biJSON, "Failed to parse exclusions", err)
		os.Exit(ExitError)
	}
	recs1, removed1 := ingest.ApplyExclusions(recs1, exclude)
	recs2, removed2 := ingest.ApplyExclusions(recs2, exclude)
	if removed1+removed2 > 0 {
		appLog.Info("excluded genes", "removed_first", removed1, "removed_second", removed2)
	}

	result, err := trade.AnalyzeBivariate(ctx, recs1, recs2, opts, appLog)
	if err != nil {
		outputAnalysisError(biJSON, "Analysis failed", err)
		os.Exit(ExitError)
	}

	if biOutput != "" {
		if err := writeResultJSON(biOutput, result); err != nil {
			outputAnalysisError(biJSON, "Failed to persist result", err)
			os.Exit(ExitError)
		}
	}
	if biSummaryOut != "" {
		if err := writeSummaryCSV(biSummaryOut, result); err != nil {
			outputAnalysisError(biJSON, "Failed to persist summary", err)
			os.Exit(ExitError)
		}
	}

	if !biQuiet {
		if biJSON {
			if err := outputResultJSON(result); err != nil {
				outputAnalysisError(biJSON, "Failed to encode result", err)
				os.Exit(ExitError)
			}
		} else {
			outputResultText(result)
		}
	}

	os.Exit(exitCode(result))
}

// buildBivariateOptions layers defaults, file config, then flags.
func buildBivariateOptions(cmd *cobra.Command) trade.Options {
	opts := trade.DefaultOptions()
	applyFileOptions(&opts)

	if cmd.Flags().Changed("estimate-sampling-covariance") {
		opts.EstimateSamplingCovariance = biSamplingCov
	}
	if cmd.Flags().Changed("covariance-set") {
		opts.CovarianceSet = trade.CovarianceSet(biCovSet)
	}
	if cmd.Flags().Changed("var-explained-threshold") {
		opts.VarExplainedThreshold = biVarThreshold
	}
	if cmd.Flags().Changed("weight-nocorr") {
		opts.WeightNoCorr = biWeightNoCorr
	}
	if cmd.Flags().Changed("n-sample") {
		opts.NSample = biNSample
	}
	if cmd.Flags().Changed("seed") {
		opts.Seed = biSeed
	}
	if cmd.Flags().Changed("tolerance") {
		opts.Tolerance = biTolerance
	}
	if cmd.Flags().Changed("max-iterations") {
		opts.MaxIterations = biMaxIter
	}
	return opts
}
