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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadAnnotations(t *testing.T) {
	path := writeFile(t, "annot.csv",
		"gene_id,kinase,tumor_suppressor\n"+
			"TP53,0,1\n"+
			"BRAF,1,0\n"+
			"EGFR,TRUE,FALSE\n")

	table, err := ReadAnnotations(path, testLogger())
	require.NoError(t, err)

	assert.Equal(t, []string{"kinase", "tumor_suppressor"}, table.Categories)
	require.Len(t, table.Membership, 3)
	assert.Equal(t, []bool{false, true}, table.Membership["TP53"])
	assert.Equal(t, []bool{true, false}, table.Membership["BRAF"])
	assert.Equal(t, []bool{true, false}, table.Membership["EGFR"])
}

func TestReadAnnotationsBadFlag(t *testing.T) {
	path := writeFile(t, "annot.csv",
		"gene_id,kinase\n"+
			"TP53,maybe\n")

	_, err := ReadAnnotations(path, testLogger())
	require.ErrorIs(t, err, ErrBadFlag)
}

func TestReadAnnotationsDuplicateGene(t *testing.T) {
	path := writeFile(t, "annot.csv",
		"gene_id,kinase\n"+
			"TP53,0\n"+
			"TP53,1\n")

	_, err := ReadAnnotations(path, testLogger())
	require.ErrorIs(t, err, ErrDuplicateGene)
}

func TestReadAnnotationsNoCategories(t *testing.T) {
	path := writeFile(t, "annot.csv",
		"gene_id\n"+
			"TP53\n")

	_, err := ReadAnnotations(path, testLogger())
	require.ErrorIs(t, err, ErrMissingColumn)
}

func TestReadAnnotationsEmpty(t *testing.T) {
	path := writeFile(t, "annot.csv", "gene_id,kinase\n")

	_, err := ReadAnnotations(path, testLogger())
	require.ErrorIs(t, err, ErrEmptyTable)
}
