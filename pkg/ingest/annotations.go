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
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/jmiao24/trade-agent/pkg/logging"
	"github.com/jmiao24/trade-agent/pkg/trade"
	"github.com/jmiao24/trade-agent/pkg/validation"
)

// ErrBadFlag indicates an annotation cell that is not a recognizable
// binary membership value.
var ErrBadFlag = errors.New("annotation value is not binary")

// parseFlag accepts the binary encodings annotation tables show up
// with in practice: 0/1 and R's TRUE/FALSE.
func parseFlag(s string) (bool, error) {
	switch strings.TrimSpace(s) {
	case "1", "TRUE", "true", "True":
		return true, nil
	case "0", "FALSE", "false", "False":
		return false, nil
	}
	return false, fmt.Errorf("%w: %q", ErrBadFlag, s)
}

// ReadAnnotations loads a gene annotation table: the first column holds
// gene IDs and every remaining column is a binary category. Unlike
// result tables, annotation tables are small and hand-curated, so any
// malformed cell is an error rather than a dropped row.
func ReadAnnotations(path string, log *logging.Logger) (*trade.AnnotationTable, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open annotation table: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.TrimLeadingSpace = true

	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("read header from %s: %w", path, err)
	}
	if len(header) < 2 {
		return nil, fmt.Errorf("%w: annotation table needs at least one category column", ErrMissingColumn)
	}
	categories := make([]string, 0, len(header)-1)
	for _, h := range header[1:] {
		name := strings.TrimSpace(h)
		if err := validation.ValidateColumnName(name); err != nil {
			return nil, fmt.Errorf("annotation category %q: %w", h, err)
		}
		categories = append(categories, name)
	}

	membership := make(map[string][]bool)
	line := 1
	for {
		row, err := r.Read()
		line++
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read %s line %d: %w", path, line, err)
		}

		geneID, err := validation.SanitizeGeneID(row[0])
		if err != nil {
			return nil, fmt.Errorf("%s line %d: %w", path, line, err)
		}
		if _, dup := membership[geneID]; dup {
			return nil, fmt.Errorf("%w: %q at line %d", ErrDuplicateGene, geneID, line)
		}

		flags := make([]bool, len(categories))
		for i, cell := range row[1:] {
			v, err := parseFlag(cell)
			if err != nil {
				return nil, fmt.Errorf("%s line %d column %q: %w", path, line, categories[i], err)
			}
			flags[i] = v
		}
		membership[geneID] = flags
	}

	if len(membership) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrEmptyTable, path)
	}
	log.Debug("loaded annotation table", "path", path, "genes", len(membership), "categories", len(categories))
	return &trade.AnnotationTable{Categories: categories, Membership: membership}, nil
}
