// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package trade

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultOptionsValid(t *testing.T) {
	opts := DefaultOptions()
	require.NoError(t, opts.Validate())

	assert.Equal(t, CovarianceSetCombined, opts.CovarianceSet)
	assert.EqualValues(t, 1, opts.WeightNoCorr)
	assert.EqualValues(t, 42, opts.Seed)
	assert.Zero(t, opts.NSample)
	assert.False(t, opts.ModelSignificant)
	assert.False(t, opts.EstimateSamplingCovariance)
}

func TestOptionsValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Options)
		ok     bool
	}{
		{"defaults", func(o *Options) {}, true},
		{"canonical set", func(o *Options) { o.CovarianceSet = CovarianceSetCanonical }, true},
		{"adaptive set", func(o *Options) { o.CovarianceSet = CovarianceSetAdaptive }, true},
		{"unknown set", func(o *Options) { o.CovarianceSet = "bogus" }, false},
		{"threshold at one", func(o *Options) { o.VarExplainedThreshold = 1 }, true},
		{"threshold above one", func(o *Options) { o.VarExplainedThreshold = 1.5 }, false},
		{"negative threshold", func(o *Options) { o.VarExplainedThreshold = -0.1 }, false},
		{"weight below one", func(o *Options) { o.WeightNoCorr = 0.5 }, false},
		{"heavy weight", func(o *Options) { o.WeightNoCorr = 50 }, true},
		{"negative samples", func(o *Options) { o.NSample = -1 }, false},
		{"zero tolerance", func(o *Options) { o.Tolerance = 0 }, false},
		{"zero iterations", func(o *Options) { o.MaxIterations = 0 }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := DefaultOptions()
			tt.mutate(&opts)
			err := opts.Validate()
			if tt.ok {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Equal(t, StageConfig, StageOf(err))
			}
		})
	}
}

func TestOptionsValidateUnknownSetSentinel(t *testing.T) {
	opts := DefaultOptions()
	opts.CovarianceSet = "somethingelse"

	err := opts.Validate()
	require.ErrorIs(t, err, ErrUnknownCovarianceSet)
	assert.Equal(t, KindConfig, KindOf(err))
}
