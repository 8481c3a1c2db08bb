// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package ingest

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmiao24/trade-agent/pkg/logging"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func testLogger() *logging.Logger {
	return logging.New(logging.Config{Level: logging.LevelError, Quiet: true})
}

func TestReadResultsDefaults(t *testing.T) {
	path := writeFile(t, "results.csv",
		"gene_id,log2FoldChange,lfcSE,pvalue\n"+
			"TP53,1.5,0.2,0.001\n"+
			"ACTB,-0.3,0.15,0.6\n")

	records, err := ReadResults(path, DefaultColumns(), testLogger())
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, "TP53", records[0].GeneID)
	assert.InDelta(t, 1.5, records[0].Effect, 1e-12)
	assert.InDelta(t, 0.2, records[0].SE, 1e-12)
	assert.InDelta(t, 0.001, records[0].PValue, 1e-12)
	assert.Equal(t, "ACTB", records[1].GeneID)
}

func TestReadResultsFirstColumnGeneID(t *testing.T) {
	// DESeq2 tables written with write.csv carry row names in an
	// arbitrarily named leading column.
	path := writeFile(t, "results.csv",
		",log2FoldChange,lfcSE,pvalue\n"+
			"ENSG00000141510.16,2.0,0.5,0.01\n")

	records, err := ReadResults(path, DefaultColumns(), testLogger())
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "ENSG00000141510.16", records[0].GeneID)
}

func TestReadResultsCustomColumns(t *testing.T) {
	path := writeFile(t, "results.csv",
		"gene,beta,se\n"+
			"TP53,0.8,0.1\n")

	cols := Columns{GeneID: "gene", Effect: "beta", SE: "se"}
	records, err := ReadResults(path, cols, testLogger())
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "TP53", records[0].GeneID)
	assert.True(t, math.IsNaN(records[0].PValue), "absent p-value column should yield NaN")
}

func TestReadResultsDropsBadRows(t *testing.T) {
	path := writeFile(t, "results.csv",
		"gene_id,log2FoldChange,lfcSE,pvalue\n"+
			"GOOD1,1.0,0.2,0.5\n"+
			"NAEFFECT,NA,0.2,0.5\n"+
			"ZEROSE,1.0,0,0.5\n"+
			"NEGSE,1.0,-0.1,0.5\n"+
			"bad id,1.0,0.2,0.5\n"+
			"GOOD2,0.5,0.3,0.9\n")

	records, err := ReadResults(path, DefaultColumns(), testLogger())
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "GOOD1", records[0].GeneID)
	assert.Equal(t, "GOOD2", records[1].GeneID)
}

func TestReadResultsUnparseablePValueBecomesNaN(t *testing.T) {
	path := writeFile(t, "results.csv",
		"gene_id,log2FoldChange,lfcSE,pvalue\n"+
			"TP53,1.0,0.2,NA\n")

	records, err := ReadResults(path, DefaultColumns(), testLogger())
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.True(t, math.IsNaN(records[0].PValue))
}

func TestReadResultsMissingColumn(t *testing.T) {
	path := writeFile(t, "results.csv",
		"gene_id,log2FoldChange,pvalue\n"+
			"TP53,1.0,0.5\n")

	_, err := ReadResults(path, DefaultColumns(), testLogger())
	require.ErrorIs(t, err, ErrMissingColumn)
}

func TestReadResultsDuplicateGene(t *testing.T) {
	path := writeFile(t, "results.csv",
		"gene_id,log2FoldChange,lfcSE,pvalue\n"+
			"TP53,1.0,0.2,0.5\n"+
			"TP53,0.9,0.3,0.4\n")

	_, err := ReadResults(path, DefaultColumns(), testLogger())
	require.ErrorIs(t, err, ErrDuplicateGene)
}

func TestReadResultsEmptyTable(t *testing.T) {
	path := writeFile(t, "results.csv",
		"gene_id,log2FoldChange,lfcSE,pvalue\n"+
			"BAD,NA,NA,NA\n")

	_, err := ReadResults(path, DefaultColumns(), testLogger())
	require.ErrorIs(t, err, ErrEmptyTable)
}

func TestReadResultsMissingFile(t *testing.T) {
	_, err := ReadResults(filepath.Join(t.TempDir(), "nope.csv"), DefaultColumns(), testLogger())
	require.Error(t, err)
}
