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
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/jmiao24/trade-agent/pkg/ingest"
	"github.com/jmiao24/trade-agent/pkg/logging"
	"github.com/jmiao24/trade-agent/pkg/trade"
)

// --- Global Command Variables ---
var (
	logLevel   string
	logDirFlag string
	configPath string

	fileCfg fileConfig
	appLog  *logging.Logger

	rootCmd = &cobra.Command{
		Use:   "trade",
		Short: "Estimate distributions of true differential-expression effects",
		Long: `trade fits an empirical-Bayes mixture model to noisy per-gene
				effect-size estimates and reports transcriptome-wide impact
				statistics, posterior effect distributions, and (with two
				experiments) the correlation of true effects.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			loadFileConfig()
			appLog = logging.New(buildLogConfig())
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if appLog != nil {
				appLog.Close()
			}
		},
	}
)

// fileConfig is the optional trade.yaml file. Every field is optional;
// pointer fields distinguish "absent" from a meaningful zero so file
// values only override defaults they actually name, and the string
// fields treat empty as absent. Flags override the file.
type fileConfig struct {
	Logging struct {
		Level string `yaml:"level"`
		Dir   string `yaml:"dir"`
		JSON  *bool  `yaml:"json"`
	} `yaml:"logging"`

	Columns struct {
		GeneID *string `yaml:"gene_id_col"`
		Effect *string `yaml:"effect_col"`
		SE     *string `yaml:"se_col"`
		PValue *string `yaml:"pvalue_col"`
	} `yaml:"columns"`

	Options struct {
		ModelSignificant           *bool    `yaml:"model_significant"`
		EstimateSamplingCovariance *bool    `yaml:"estimate_sampling_covariance"`
		CovarianceSet              *string  `yaml:"covariance_matrix_set"`
		VarExplainedThreshold      *float64 `yaml:"component_varexplained_threshold"`
		WeightNoCorr               *float64 `yaml:"weight_nocorr"`
		NSample                    *int     `yaml:"n_sample"`
		Seed                       *int64   `yaml:"seed"`
		Tolerance                  *float64 `yaml:"tolerance"`
		MaxIterations              *int     `yaml:"max_iterations"`
	} `yaml:"options"`
}

// loadFileConfig reads the optional configuration file. A missing file
// is normal; a present-but-broken file is worth a warning, never fatal.
func loadFileConfig() {
	data, err := os.ReadFile(configPath)
	if err != nil {
		if !os.IsNotExist(err) {
			fmt.Fprintf(os.Stderr, "Warning: cannot read %s: %v\n", configPath, err)
		}
		return
	}
	if err := yaml.Unmarshal(data, &fileCfg); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: ignoring malformed %s: %v\n", configPath, err)
		fileCfg = fileConfig{}
	}
}

// buildLogConfig resolves logger settings in precedence order:
// built-in defaults, then trade.yaml, then explicit flags.
func buildLogConfig() logging.Config {
	cfg := logging.Config{
		Level:   logging.ParseLevel(logLevel),
		LogDir:  logDirFlag,
		Service: "trade",
	}
	if logLevel == "" && fileCfg.Logging.Level != "" {
		cfg.Level = logging.ParseLevel(fileCfg.Logging.Level)
	}
	if cfg.LogDir == "" {
		cfg.LogDir = fileCfg.Logging.Dir
	}
	if fileCfg.Logging.JSON != nil {
		cfg.JSON = *fileCfg.Logging.JSON
	}
	return cfg
}

// applyFileOptions overlays the option fields the file actually names.
func applyFileOptions(opts *trade.Options) {
	fo := fileCfg.Options
	if fo.ModelSignificant != nil {
		opts.ModelSignificant = *fo.ModelSignificant
	}
	if fo.EstimateSamplingCovariance != nil {
		opts.EstimateSamplingCovariance = *fo.EstimateSamplingCovariance
	}
	if fo.CovarianceSet != nil {
		opts.CovarianceSet = trade.CovarianceSet(*fo.CovarianceSet)
	}
	if fo.VarExplainedThreshold != nil {
		opts.VarExplainedThreshold = *fo.VarExplainedThreshold
	}
	if fo.WeightNoCorr != nil {
		opts.WeightNoCorr = *fo.WeightNoCorr
	}
	if fo.NSample != nil {
		opts.NSample = *fo.NSample
	}
	if fo.Seed != nil {
		opts.Seed = *fo.Seed
	}
	if fo.Tolerance != nil {
		opts.Tolerance = *fo.Tolerance
	}
	if fo.MaxIterations != nil {
		opts.MaxIterations = *fo.MaxIterations
	}
}

// applyFileColumns overlays the column names the file actually names.
func applyFileColumns(cols *ingest.Columns) {
	fc := fileCfg.Columns
	if fc.GeneID != nil {
		cols.GeneID = *fc.GeneID
	}
	if fc.Effect != nil {
		cols.Effect = *fc.Effect
	}
	if fc.SE != nil {
		cols.SE = *fc.SE
	}
	if fc.PValue != nil {
		cols.PValue = *fc.PValue
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "",
		"Log level: debug, info, warn, error (default info)")
	rootCmd.PersistentFlags().StringVar(&logDirFlag, "log-dir", "",
		"Directory for dated log files (default: stderr only)")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "trade.yaml",
		"Optional configuration file with defaults for flags")
}
