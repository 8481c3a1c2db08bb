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
	uniGeneCol     string
	uniEffectCol   string
	uniSECol       string
	uniPValueCol   string
	uniAnnotations string
	uniExclude     string
	uniModelSig    bool
	uniNSample     int
	uniSeed        int64
	uniTolerance   float64
	uniMaxIter     int
	uniJSON        bool
	uniQuiet       bool
	uniOutput      string
	uniSummaryOut  string
	uniTimeout     int
)

// =============================================================================
// COMMAND DEFINITION
// =============================================================================

var univariateCmd = &cobra.Command{
	Use:   "univariate [results.csv]",
	Short: "Estimate the effect-size distribution of one experiment",
	Long: `Fit a mixture of zero-centered normals to one experiment's per-gene
effect estimates and standard errors, then report the distribution of
true effects with measurement noise removed.

The input is a CSV result table (DESeq2 column naming by default) with
one row per gene. Reported statistics:
  - transcriptome_wide_impact: total variance of true effects
  - Me: effective number of differentially expressed genes
  - mean: average posterior mean effect

Examples:
  trade univariate results.csv                      # Text summary
  trade univariate results.csv --json               # Full result as JSON
  trade univariate results.csv --output run.json    # Persist full result
  trade univariate results.csv --summary-out s.csv  # Flat summary table
  trade univariate results.csv --model-significant  # Separate significant fit
  trade univariate results.csv --exclude ACTB,GAPDH # Drop genes
  trade univariate results.csv --exclude @drop.txt  # Drop genes from file
  trade univariate results.csv --n-sample 100       # Posterior draws per gene

Exit Codes:
  0 = Analysis complete, fit converged
  1 = Analysis complete, iteration cap reached before convergence
  2 = Error (unreadable input, invalid options, numerical failure)`,
	Args: cobra.ExactArgs(1),
	Run:  runUnivariateCommand,
}

func init() {
	univariateCmd.Flags().StringVar(&uniGeneCol, "gene-col", "",
		"Gene ID column (default: 'gene_id' if present, else first column)")
	univariateCmd.Flags().StringVar(&uniEffectCol, "effect-col", "log2FoldChange",
		"Effect-size column")
	univariateCmd.Flags().StringVar(&uniSECol, "se-col", "lfcSE",
		"Standard-error column")
	univariateCmd.Flags().StringVar(&uniPValueCol, "pvalue-col", "pvalue",
		"P-value column (optional in the table)")
	univariateCmd.Flags().StringVar(&uniAnnotations, "annotations", "",
		"Gene annotation CSV for enrichment reporting")
	univariateCmd.Flags().StringVar(&uniExclude, "exclude", "",
		"Genes to drop: comma-separated IDs or @file with one per line")
	univariateCmd.Flags().BoolVar(&uniModelSig, "model-significant", false,
		"Fit Bonferroni-significant genes as a separate mixture")
	univariateCmd.Flags().IntVar(&uniNSample, "n-sample", 0,
		"Posterior draws per gene (0 disables sampling)")
	univariateCmd.Flags().Int64Var(&uniSeed, "seed", 42,
		"Random seed for posterior draws")
	univariateCmd.Flags().Float64Var(&uniTolerance, "tolerance", 1e-7,
		"EM convergence tolerance on log-likelihood improvement")
	univariateCmd.Flags().IntVar(&uniMaxIter, "max-iterations", 5000,
		"EM iteration cap")
	univariateCmd.Flags().BoolVar(&uniJSON, "json", false,
		"Output full result as JSON")
	univariateCmd.Flags().BoolVar(&uniQuiet, "quiet", false,
		"Only exit code and persisted files, no stdout output")
	univariateCmd.Flags().StringVar(&uniOutput, "output", "",
		"Write full result JSON to this path")
	univariateCmd.Flags().StringVar(&uniSummaryOut, "summary-out", "",
		"Write flat summary CSV to this path")
	univariateCmd.Flags().IntVar(&uniTimeout, "timeout", 600,
		"Total timeout in seconds")

	// Add to root
	rootCmd.AddCommand(univariateCmd)
}

// =============================================================================
// COMMAND IMPLEMENTATION
// =============================================================================

func runUnivariateCommand(cmd *cobra.Command, args []string) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(uniTimeout)*time.Second)
	defer cancel()

	opts := buildUnivariateOptions(cmd)
	cols := buildColumns(cmd, uniGeneCol, uniEffectCol, uniSECol, uniPValueCol)

	records, err := ingest.ReadResults(args[0], cols, appLog)
	if err != nil {
		outputAnalysisError(uniJSON, "Failed to load results table", err)
		os.Exit(ExitError)
	}

	exclude, err := ingest.ParseExclusions(uniExclude)
	if err != nil {
		outputAnalysisError(uniJSON, "Failed to parse exclusions", err)
		os.Exit(ExitError)
	}
	records, removed := ingest.ApplyExclusions(records, exclude)
	if removed > 0 {
		appLog.Info("excluded genes", "removed", removed, "remaining", len(records))
	}

	var annot *trade.AnnotationTable
	if uniAnnotations != "" {
		annot, err = ingest.ReadAnnotations(uniAnnotations, appLog)
		if err != nil {
			outputAnalysisError(uniJSON, "Failed to load annotation table", err)
			os.Exit(ExitError)
		}
	}

	result, err := trade.AnalyzeUnivariate(ctx, records, annot, opts, appLog)
	if err != nil {
		outputAnalysisError(uniJSON, "Analysis failed", err)
		os.Exit(ExitError)
	}

	if uniOutput != "" {
		if err := writeResultJSON(uniOutput, result); err != nil {
			outputAnalysisError(uniJSON, "Failed to persist result", err)
			os.Exit(ExitError)
		}
	}
	if uniSummaryOut != "" {
		if err := writeSummaryCSV(uniSummaryOut, result); err != nil {
			outputAnalysisError(uniJSON, "Failed to persist summary", err)
			os.Exit(ExitError)
		}
	}

	if !uniQuiet {
		if uniJSON {
			if err := outputResultJSON(result); err != nil {
				outputAnalysisError(uniJSON, "Failed to encode result", err)
				os.Exit(ExitError)
			}
		} else {
			outputResultText(result)
		}
	}

	os.Exit(exitCode(result))
}

// buildUnivariateOptions layers defaults, file config, then flags.
func buildUnivariateOptions(cmd *cobra.Command) trade.Options {
	opts := trade.DefaultOptions()
	applyFileOptions(&opts)

	if cmd.Flags().Changed("model-significant") {
		opts.ModelSignificant = uniModelSig
	}
	if cmd.Flags().Changed("n-sample") {
		opts.NSample = uniNSample
	}
	if cmd.Flags().Changed("seed") {
		opts.Seed = uniSeed
	}
	if cmd.Flags().Changed("tolerance") {
		opts.Tolerance = uniTolerance
	}
	if cmd.Flags().Changed("max-iterations") {
		opts.MaxIterations = uniMaxIter
	}
	return opts
}

// buildColumns layers default column names, file config, then flags.
func buildColumns(cmd *cobra.Command, gene, effect, se, pvalue string) ingest.Columns {
	cols := ingest.DefaultColumns()
	applyFileColumns(&cols)

	if cmd.Flags().Changed("gene-col") {
		cols.GeneID = gene
	}
	if cmd.Flags().Changed("effect-col") {
		cols.Effect = effect
	}
	if cmd.Flags().Changed("se-col") {
		cols.SE = se
	}
	if cmd.Flags().Changed("pvalue-col") {
		cols.PValue = pvalue
	}
	return cols
}
