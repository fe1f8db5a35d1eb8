package common

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

import (
	"fmt"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"pmcperf/internal/join"
	"pmcperf/internal/schema"
)

const (
	FlagJoinTypeName  = "join-type"
	FlagRowPolicyName = "row-policy"
	FlagFormatName    = "format"
	FlagArchiveName   = "archive"
	FlagMetricName    = "metric"
	FlagSchemaName    = "schema"
)

// FormatOptions are the output formats of a joined table
var FormatOptions = []string{join.FormatCSV, join.FormatXlsx}

// JoinFlags are the join options shared by the commands that join measurement tables
type JoinFlags struct {
	JoinType  string
	RowPolicy string
	Formats   []string
	Archive   bool
	Metrics   []string
	Schema    string
}

// AddJoinFlags registers the join options on cmd
func AddJoinFlags(cmd *cobra.Command, f *JoinFlags) {
	cmd.Flags().StringVar(&f.JoinType, FlagJoinTypeName, string(join.ModeGrid), "")
	cmd.Flags().StringVar(&f.RowPolicy, FlagRowPolicyName, string(join.RowPolicyWarn), "")
	cmd.Flags().StringSliceVar(&f.Formats, FlagFormatName, []string{join.FormatCSV}, "")
	cmd.Flags().BoolVar(&f.Archive, FlagArchiveName, false, "")
	cmd.Flags().StringArrayVar(&f.Metrics, FlagMetricName, nil, "")
	cmd.Flags().StringVar(&f.Schema, FlagSchemaName, "", "")
}

// GetJoinFlagGroup returns the help for the join options
func GetJoinFlagGroup() FlagGroup {
	return FlagGroup{
		GroupName: "Join Options",
		Flags: []Flag{
			{Name: FlagJoinTypeName, Help: fmt.Sprintf("align rows across runs by kernel name or by kernel name and grid size, options: %s, %s", join.ModeKernel, join.ModeGrid)},
			{Name: FlagRowPolicyName, Help: fmt.Sprintf("action when runs recorded different dispatches, options: %s, %s, %s", join.RowPolicyIgnore, join.RowPolicyWarn, join.RowPolicyFail)},
			{Name: FlagFormatName, Help: fmt.Sprintf("joined table format(s), csv is always written, options: %s", strings.Join(FormatOptions, ", "))},
			{Name: FlagArchiveName, Help: "pack per-run tables into " + join.RunArchiveName + " before removing them"},
			{Name: FlagMetricName, Help: "derived column NAME=EXPRESSION, e.g., 'Duration=[EndNs]-[BeginNs]', may be repeated"},
			{Name: FlagSchemaName, Help: "column schema YAML file replacing the built-in schema"},
		},
	}
}

// Validate checks the join options without loading any file
func (f JoinFlags) Validate() error {
	if _, err := join.ParseMode(f.JoinType); err != nil {
		return err
	}
	if _, err := join.ParseRowPolicy(f.RowPolicy); err != nil {
		return err
	}
	for _, format := range f.Formats {
		if !slices.Contains(FormatOptions, format) {
			return fmt.Errorf("format options are: %s", strings.Join(FormatOptions, ", "))
		}
	}
	for _, m := range f.Metrics {
		if _, err := join.ParseDerivedMetric(m); err != nil {
			return err
		}
	}
	return nil
}

// LoadSchema returns the override schema, or the built-in one when none was given
func (f JoinFlags) LoadSchema() (*schema.Schema, error) {
	if f.Schema == "" {
		return schema.Default()
	}
	return schema.Load(f.Schema)
}

// Options builds join options for the named header scheme
func (f JoinFlags) Options(schemeName string, verbose bool) (join.Options, error) {
	var opts join.Options
	mode, err := join.ParseMode(f.JoinType)
	if err != nil {
		return opts, err
	}
	policy, err := join.ParseRowPolicy(f.RowPolicy)
	if err != nil {
		return opts, err
	}
	s, err := f.LoadSchema()
	if err != nil {
		return opts, err
	}
	scheme, err := s.Scheme(schemeName)
	if err != nil {
		return opts, err
	}
	metrics, err := f.DerivedMetrics()
	if err != nil {
		return opts, err
	}
	return join.Options{Mode: mode, Schema: s, Scheme: scheme, RowPolicy: policy, Verbose: verbose, Metrics: metrics}, nil
}

// DerivedMetrics parses the metric definitions
func (f JoinFlags) DerivedMetrics() ([]join.DerivedMetric, error) {
	var metrics []join.DerivedMetric
	for _, m := range f.Metrics {
		metric, err := join.ParseDerivedMetric(m)
		if err != nil {
			return nil, err
		}
		metrics = append(metrics, metric)
	}
	return metrics, nil
}
