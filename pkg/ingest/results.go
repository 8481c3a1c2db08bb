// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package ingest loads differential-expression result tables and gene
// annotation tables from CSV files into the record types the analysis
// engine consumes.
//
// # Design
//
// Ingestion is deliberately forgiving about row content and strict about
// table shape: a missing or misnamed column is an immediate error, while
// individual rows with unparseable or non-finite values are dropped and
// counted. That mirrors how upstream pipelines behave in practice -
// DESeq2 emits NA effect sizes for low-count genes, and dropping those
// genes is the expected treatment, not a failure.
//
// # Example
//
//	records, err := ingest.ReadResults("results.csv", ingest.DefaultColumns(), log)
//	if err != nil {
//		return err
//	}
package ingest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/jmiao24/trade-agent/pkg/logging"
	"github.com/jmiao24/trade-agent/pkg/trade"
	"github.com/jmiao24/trade-agent/pkg/validation"
)

// Sentinel errors for table-shape problems. Row-level problems are never
// errors; rows are dropped and counted instead.
var (
	// ErrMissingColumn indicates a required column is absent from the
	// header.
	ErrMissingColumn = errors.New("required column not found")

	// ErrEmptyTable indicates the file contained no usable rows.
	ErrEmptyTable = errors.New("no usable rows in table")

	// ErrDuplicateGene indicates the same gene ID appeared on more than
	// one row.
	ErrDuplicateGene = errors.New("duplicate gene identifier")
)

// Columns names which result-table columns hold each field.
//
// GeneID may be left empty: the loader then uses a column named
// "gene_id" when one exists and the first column otherwise, which
// matches the common convention of writing row names as an unnamed
// leading column.
type Columns struct {
	GeneID string `json:"gene_id_col" yaml:"gene_id_col"`
	Effect string `json:"effect_col" yaml:"effect_col"`
	SE     string `json:"se_col" yaml:"se_col"`
	PValue string `json:"pvalue_col" yaml:"pvalue_col"`
}

// DefaultColumns returns the DESeq2 output naming convention.
func DefaultColumns() Columns {
	return Columns{
		Effect: "log2FoldChange",
		SE:     "lfcSE",
		PValue: "pvalue",
	}
}

// validate checks that every explicitly named column is a plausible
// header token before it is searched for.
func (c Columns) validate() error {
	for _, name := range []string{c.GeneID, c.Effect, c.SE, c.PValue} {
		if name == "" {
			continue
		}
		if err := validation.ValidateColumnName(name); err != nil {
			return err
		}
	}
	if c.Effect == "" || c.SE == "" {
		return fmt.Errorf("%w: effect and standard-error columns must be named", ErrMissingColumn)
	}
	return nil
}

// columnIndex finds name in the header, or -1.
func columnIndex(header []string, name string) int {
	for i, h := range header {
		if strings.TrimSpace(h) == name {
			return i
		}
	}
	return -1
}

// ReadResults loads a differential-expression result table.
//
// The first line must be a header. Rows whose effect or standard error
// cannot be parsed as a finite number, whose standard error is not
// positive, or whose gene ID fails validation are dropped; the total
// dropped count is logged at warn level when nonzero. A p-value column
// is optional - when absent or unparseable on a row, the record carries
// NaN, which downstream code treats as "not reported".
func ReadResults(path string, cols Columns, log *logging.Logger) ([]trade.GeneEffectRecord, error) {
	if err := cols.validate(); err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open results table: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.TrimLeadingSpace = true
	r.ReuseRecord = true

	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("read header from %s: %w", path, err)
	}

	geneIdx := 0
	if cols.GeneID != "" {
		if geneIdx = columnIndex(header, cols.GeneID); geneIdx < 0 {
			return nil, fmt.Errorf("%w: %q", ErrMissingColumn, cols.GeneID)
		}
	} else if i := columnIndex(header, "gene_id"); i >= 0 {
		geneIdx = i
	}
	effectIdx := columnIndex(header, cols.Effect)
	if effectIdx < 0 {
		return nil, fmt.Errorf("%w: %q", ErrMissingColumn, cols.Effect)
	}
	seIdx := columnIndex(header, cols.SE)
	if seIdx < 0 {
		return nil, fmt.Errorf("%w: %q", ErrMissingColumn, cols.SE)
	}
	pIdx := -1
	if cols.PValue != "" {
		pIdx = columnIndex(header, cols.PValue)
	}

	var (
		records []trade.GeneEffectRecord
		seen    = make(map[string]struct{})
		dropped int
		line    = 1
	)
	for {
		row, err := r.Read()
		line++
		if err == io.EOF {
			break
		}
		if err != nil {
			// Ragged rows are row-level damage, not table-level.
			if errors.Is(err, csv.ErrFieldCount) {
				dropped++
				continue
			}
			return nil, fmt.Errorf("read %s line %d: %w", path, line, err)
		}

		geneID, err := validation.SanitizeGeneID(row[geneIdx])
		if err != nil {
			dropped++
			continue
		}
		if _, dup := seen[geneID]; dup {
			return nil, fmt.Errorf("%w: %q at line %d", ErrDuplicateGene, geneID, line)
		}

		effect, err := strconv.ParseFloat(strings.TrimSpace(row[effectIdx]), 64)
		if err != nil || math.IsNaN(effect) || math.IsInf(effect, 0) {
			dropped++
			continue
		}
		se, err := strconv.ParseFloat(strings.TrimSpace(row[seIdx]), 64)
		if err != nil || se <= 0 || math.IsInf(se, 0) {
			dropped++
			continue
		}

		pval := math.NaN()
		if pIdx >= 0 {
			if p, err := strconv.ParseFloat(strings.TrimSpace(row[pIdx]), 64); err == nil && p >= 0 && p <= 1 {
				pval = p
			}
		}

		seen[geneID] = struct{}{}
		records = append(records, trade.GeneEffectRecord{
			GeneID: geneID,
			Effect: effect,
			SE:     se,
			PValue: pval,
		})
	}

	if dropped > 0 {
		log.Warn("dropped unusable rows", "path", path, "dropped", dropped, "kept", len(records))
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrEmptyTable, path)
	}
	log.Debug("loaded results table", "path", path, "genes", len(records))
	return records, nil
}
