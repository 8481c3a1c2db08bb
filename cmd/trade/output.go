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
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/jmiao24/trade-agent/pkg/trade"
)

// Exit codes shared by both analysis commands.
const (
	// ExitSuccess means the fit converged and all outputs were written.
	ExitSuccess = 0

	// ExitNotConverged means the analysis completed but the EM iteration
	// cap was reached before the tolerance. Results are still written.
	ExitNotConverged = 1

	// ExitError means the analysis failed.
	ExitError = 2
)

// =============================================================================
// OUTPUT FUNCTIONS
// =============================================================================

// outputAnalysisError reports a failed run on the command's output
// channel, tagging the pipeline stage when the error carries one.
func outputAnalysisError(jsonMode bool, msg string, err error) {
	stage := string(trade.StageOf(err))
	if jsonMode {
		out := map[string]interface{}{
			"success": false,
			"error":   fmt.Sprintf("%s: %v", msg, err),
		}
		if stage != "" {
			out["stage"] = stage
		}
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		encoder.Encode(out)
		return
	}
	if stage != "" {
		fmt.Fprintf(os.Stderr, "Error [%s]: %s: %v\n", stage, msg, err)
	} else {
		fmt.Fprintf(os.Stderr, "Error: %s: %v\n", msg, err)
	}
}

// outputResultJSON prints the full structured result to stdout.
func outputResultJSON(result *trade.Result) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(result)
}

// writeResultJSON persists the full structured result to path.
func writeResultJSON(path string, result *trade.Result) error {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("encode result: %w", err)
	}
	data = append(data, '\n')
	if err := os.WriteFile(path, data, 0o640); err != nil {
		return fmt.Errorf("write result: %w", err)
	}
	return nil
}

// writeSummaryCSV persists the flat summary table: one header row, one
// value row, columns per the result's mode.
func writeSummaryCSV(path string, result *trade.Result) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o640)
	if err != nil {
		return fmt.Errorf("create summary: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(result.SummaryHeader()); err != nil {
		return fmt.Errorf("write summary header: %w", err)
	}
	row := result.SummaryRow()
	cells := make([]string, len(row))
	for i, v := range row {
		cells[i] = strconv.FormatFloat(v, 'g', -1, 64)
	}
	if err := w.Write(cells); err != nil {
		return fmt.Errorf("write summary row: %w", err)
	}
	w.Flush()
	return w.Error()
}

// outputResultText prints a human-readable run summary.
func outputResultText(result *trade.Result) {
	fmt.Printf("Mode: %s\n", result.Mode)
	fmt.Printf("Genes: %d\n", result.NGenes)
	if result.Mixture.Converged {
		fmt.Printf("Fit: converged in %d iterations (loglik %.4f)\n",
			result.Mixture.Iterations, result.Mixture.LogLik)
	} else {
		fmt.Printf("Fit: NOT converged after %d iterations (loglik %.4f)\n",
			result.Mixture.Iterations, result.Mixture.LogLik)
	}
	if sig := result.SignificantMixture; sig != nil {
		if sig.Converged {
			fmt.Printf("Significant-gene fit: converged in %d iterations (%d genes)\n",
				sig.Iterations, sig.NGenes)
		} else {
			fmt.Printf("Significant-gene fit: NOT converged after %d iterations (%d genes)\n",
				sig.Iterations, sig.NGenes)
		}
	}
	fmt.Println()

	header := result.SummaryHeader()
	row := result.SummaryRow()
	for i, name := range header {
		fmt.Printf("%s: %g\n", name, row[i])
	}
	if u := result.Univariate; u != nil && result.Options.ModelSignificant {
		fmt.Printf("fraction_significant: %g\n", u.FractionSignificant)
	}
	if b := result.Bivariate; b != nil {
		fmt.Printf("n_overlap: %d\n", b.NOverlap)
		if result.Options.EstimateSamplingCovariance {
			fmt.Printf("sampling_cov_rho: %g\n", b.SamplingCovRho)
		}
	}

	if len(result.Enrichments) > 0 {
		fmt.Println()
		fmt.Println("Enrichment by annotation category:")
		for _, e := range result.Enrichments {
			fmt.Printf("  %-24s %5d genes  %.3fx\n", e.Category, e.NGenes, e.Enrichment)
		}
	}
}

// exitCode maps a finished result to the command exit code.
func exitCode(result *trade.Result) int {
	if !result.Mixture.Converged {
		return ExitNotConverged
	}
	if sig := result.SignificantMixture; sig != nil && !sig.Converged {
		return ExitNotConverged
	}
	return ExitSuccess
}
