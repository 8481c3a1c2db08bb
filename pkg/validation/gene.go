// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package validation provides input validation utilities for
// user-supplied identifiers.
//
// This package contains validators for values that end up in file
// names, report columns, and cross-experiment joins. Using these
// validators keeps malformed spreadsheet exports and header-row
// accidents from silently corrupting an analysis.
package validation

import (
	"fmt"
	"regexp"
	"strings"
)

// geneIDPattern matches valid gene identifiers.
// Allows: letters, digits, dots (ENSG00000141510.16), hyphens and
// underscores (HLA-A, gene_1), colons (chr17:7668402).
// Max length: 64 characters (covers Ensembl, RefSeq, and symbol IDs).
var geneIDPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._:\-]{0,63}$`)

// columnPattern matches valid CSV column names: no separators or
// control characters that would break the header contract.
var columnPattern = regexp.MustCompile(`^[A-Za-z0-9._\-]{1,128}$`)

// ValidateGeneID validates a gene identifier.
//
// Valid identifiers:
//   - 1-64 characters
//   - Letters and digits
//   - Dots (.) for Ensembl versions like ENSG00000141510.16
//   - Hyphens/underscores for symbols like HLA-A
//   - Colons for positional IDs like chr17:7668402
//
// Returns an error if the identifier is invalid.
//
// Example:
//
//	if err := validation.ValidateGeneID(id); err != nil {
//	    return nil, fmt.Errorf("invalid gene id: %w", err)
//	}
func ValidateGeneID(id string) error {
	if id == "" {
		return fmt.Errorf("gene id cannot be empty")
	}
	if !geneIDPattern.MatchString(id) {
		return fmt.Errorf("invalid gene id: %q (must be 1-64 alphanumeric chars, dots, hyphens, underscores, or colons)", id)
	}
	return nil
}

// ValidateGeneIDs validates multiple gene identifiers.
// Returns an error listing all invalid identifiers if any fail.
func ValidateGeneIDs(ids []string) error {
	var invalid []string
	for _, id := range ids {
		if err := ValidateGeneID(id); err != nil {
			invalid = append(invalid, id)
		}
	}
	if len(invalid) > 0 {
		return fmt.Errorf("invalid gene ids: %v", invalid)
	}
	return nil
}

// SanitizeGeneID normalizes and validates a gene identifier. Returns
// the trimmed identifier if valid, or an error if invalid.
func SanitizeGeneID(id string) (string, error) {
	normalized := strings.TrimSpace(id)
	if err := ValidateGeneID(normalized); err != nil {
		return "", err
	}
	return normalized, nil
}

// ValidateColumnName validates a user-configured CSV column role name.
func ValidateColumnName(name string) error {
	if name == "" {
		return fmt.Errorf("column name cannot be empty")
	}
	if !columnPattern.MatchString(name) {
		return fmt.Errorf("invalid column name: %q", name)
	}
	return nil
}
