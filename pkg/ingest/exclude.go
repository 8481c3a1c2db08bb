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
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/jmiao24/trade-agent/pkg/trade"
	"github.com/jmiao24/trade-agent/pkg/validation"
)

// ParseExclusions expands an exclusion spec into gene IDs. The spec is
// either a comma-separated list ("ACTB,GAPDH") or "@file" naming a text
// file with one gene ID per line; blank lines and lines starting with
// '#' are skipped. An empty spec yields nil.
func ParseExclusions(spec string) ([]string, error) {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return nil, nil
	}

	var raw []string
	if strings.HasPrefix(spec, "@") {
		path := strings.TrimPrefix(spec, "@")
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open exclusion file: %w", err)
		}
		defer f.Close()

		sc := bufio.NewScanner(f)
		for sc.Scan() {
			line := strings.TrimSpace(sc.Text())
			if line == "" || strings.HasPrefix(line, "#") {
				continue
			}
			raw = append(raw, line)
		}
		if err := sc.Err(); err != nil {
			return nil, fmt.Errorf("read exclusion file %s: %w", path, err)
		}
	} else {
		raw = strings.Split(spec, ",")
	}

	ids := make([]string, 0, len(raw))
	for _, id := range raw {
		clean, err := validation.SanitizeGeneID(id)
		if err != nil {
			return nil, fmt.Errorf("exclusion %q: %w", id, err)
		}
		ids = append(ids, clean)
	}
	return ids, nil
}

// ApplyExclusions removes the named genes from records, returning the
// filtered slice and the number actually removed. Excluded IDs that do
// not appear in the table are silently ignored; callers exclude the same
// housekeeping genes across datasets that do not all contain them.
func ApplyExclusions(records []trade.GeneEffectRecord, exclude []string) ([]trade.GeneEffectRecord, int) {
	if len(exclude) == 0 {
		return records, 0
	}
	drop := make(map[string]struct{}, len(exclude))
	for _, id := range exclude {
		drop[id] = struct{}{}
	}

	kept := records[:0:0]
	removed := 0
	for _, rec := range records {
		if _, skip := drop[rec.GeneID]; skip {
			removed++
			continue
		}
		kept = append(kept, rec)
	}
	return kept, removed
}
