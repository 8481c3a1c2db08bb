// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package validation

import (
	"strings"
	"testing"
)

func TestValidateGeneID(t *testing.T) {
	tests := []struct {
		name    string
		id      string
		wantErr bool
	}{
		// Valid identifiers
		{"ensembl", "ENSG00000141510", false},
		{"ensembl versioned", "ENSG00000141510.16", false},
		{"symbol", "TP53", false},
		{"symbol hyphen", "HLA-A", false},
		{"symbol underscore", "gene_1", false},
		{"positional", "chr17:7668402", false},
		{"single char", "A", false},
		{"lowercase", "actb", false},
		{"max length", strings.Repeat("G", 64), false},

		// Invalid identifiers
		{"empty", "", true},
		{"too long", strings.Repeat("G", 65), true},
		{"leading dot", ".ENSG1", true},
		{"embedded space", "ENSG 1", true},
		{"comma", "TP53,ACTB", true},
		{"newline", "TP53\nACTB", true},
		{"quote", `"TP53"`, true},
		{"unicode", "gène", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateGeneID(tt.id)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateGeneID(%q) error = %v, wantErr %v", tt.id, err, tt.wantErr)
			}
		})
	}
}

func TestValidateGeneIDs(t *testing.T) {
	tests := []struct {
		name    string
		ids     []string
		wantErr bool
	}{
		{"all valid", []string{"TP53", "ACTB", "ENSG00000141510.16"}, false},
		{"one invalid", []string{"TP53", "bad id", "ACTB"}, true},
		{"all invalid", []string{"", " "}, true},
		{"empty slice", []string{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateGeneIDs(tt.ids)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateGeneIDs(%v) error = %v, wantErr %v", tt.ids, err, tt.wantErr)
			}
		})
	}
}

func TestSanitizeGeneID(t *testing.T) {
	tests := []struct {
		name    string
		id      string
		want    string
		wantErr bool
	}{
		{"trims whitespace", "  TP53  ", "TP53", false},
		{"already clean", "ENSG00000141510", "ENSG00000141510", false},
		{"whitespace only", "   ", "", true},
		{"inner space survives trim and fails", " TP 53 ", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := SanitizeGeneID(tt.id)
			if (err != nil) != tt.wantErr {
				t.Fatalf("SanitizeGeneID(%q) error = %v, wantErr %v", tt.id, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("SanitizeGeneID(%q) = %q, want %q", tt.id, got, tt.want)
			}
		})
	}
}

func TestValidateColumnName(t *testing.T) {
	tests := []struct {
		name    string
		col     string
		wantErr bool
	}{
		{"deseq2 default", "log2FoldChange", false},
		{"se column", "lfcSE", false},
		{"dotted", "shrunk.lfc", false},
		{"empty", "", true},
		{"comma", "a,b", true},
		{"space", "fold change", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateColumnName(tt.col)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateColumnName(%q) error = %v, wantErr %v", tt.col, err, tt.wantErr)
			}
		})
	}
}
