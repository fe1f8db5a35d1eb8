// Package join is a subcommand of the root command. It joins the per-run measurement tables
// of a workload directory into a single table.
package join

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"pmcperf/internal/common"
	"pmcperf/internal/join"
	"pmcperf/internal/schema"
	"pmcperf/internal/util"
)

const cmdName = "join"

var examples = []string{
	fmt.Sprintf("  Join the tables of a workload:            $ %s %s --path workloads/vcopy", common.AppName, cmdName),
	fmt.Sprintf("  Join rocprofv2 tables by kernel name:     $ %s %s --path workloads/vcopy --profiler-scheme %s --join-type kernel", common.AppName, cmdName, schema.SchemeRocprofV2),
	fmt.Sprintf("  Join, add a duration column and a sheet:  $ %s %s --path workloads/vcopy --metric 'Duration=[EndNs]-[BeginNs]' --format csv,xlsx", common.AppName, cmdName),
}

var Cmd = &cobra.Command{
	Use:           cmdName,
	Short:         "Join per-run measurement tables into a single table",
	Long:          "",
	Example:       strings.Join(examples, "\n"),
	RunE:          runCmd,
	PreRunE:       validateFlags,
	GroupID:       "primary",
	Args:          cobra.NoArgs,
	SilenceErrors: true,
}

var (
	flagPath           string
	flagOut            string
	flagKeepInputs     bool
	flagProfilerScheme string
	flagJoin           common.JoinFlags
)

const (
	flagPathName           = "path"
	flagOutName            = "out"
	flagKeepInputsName     = "keep-inputs"
	flagProfilerSchemeName = "profiler-scheme"
)

func init() {
	Cmd.Flags().StringVarP(&flagPath, flagPathName, "p", "", "")
	Cmd.Flags().StringVar(&flagOut, flagOutName, "", "")
	Cmd.Flags().BoolVar(&flagKeepInputs, flagKeepInputsName, false, "")
	Cmd.Flags().StringVar(&flagProfilerScheme, flagProfilerSchemeName, schema.SchemeRocprofV1, "")

	common.AddJoinFlags(Cmd, &flagJoin)

	Cmd.SetUsageFunc(usageFunc)
}

func usageFunc(cmd *cobra.Command) error {
	cmd.Printf("Usage: %s [flags]\n\n", cmd.CommandPath())
	cmd.Printf("Examples:\n%s\n\n", cmd.Example)
	cmd.Println("Flags:")
	for _, group := range getFlagGroups() {
		cmd.Printf("  %s:\n", group.GroupName)
		for _, flag := range group.Flags {
			flagDefault := ""
			if cmd.Flags().Lookup(flag.Name).DefValue != "" {
				flagDefault = fmt.Sprintf(" (default: %s)", cmd.Flags().Lookup(flag.Name).DefValue)
			}
			cmd.Printf("    --%-20s %s%s\n", flag.Name, flag.Help, flagDefault)
		}
	}
	cmd.Println("\nGlobal Flags:")
	cmd.Parent().PersistentFlags().VisitAll(func(pf *pflag.Flag) {
		flagDefault := ""
		if cmd.Parent().PersistentFlags().Lookup(pf.Name).DefValue != "" {
			flagDefault = fmt.Sprintf(" (default: %s)", cmd.Flags().Lookup(pf.Name).DefValue)
		}
		cmd.Printf("  --%-20s %s%s\n", pf.Name, pf.Usage, flagDefault)
	})
	return nil
}

func getFlagGroups() []common.FlagGroup {
	var groups []common.FlagGroup
	flags := []common.Flag{
		{
			Name: flagPathName,
			Help: "workload directory holding pmc_perf_<n>.csv tables (required)",
		},
		{
			Name: flagOutName,
			Help: "joined table path, defaults to <path>/pmc_perf.csv",
		},
		{
			Name: flagKeepInputsName,
			Help: "retain the per-run tables after joining",
		},
		{
			Name: flagProfilerSchemeName,
			Help: "column header scheme of the per-run tables, e.g., " + strings.Join([]string{schema.SchemeRocprofV1, schema.SchemeRocprofV2}, ", "),
		},
	}
	groups = append(groups, common.FlagGroup{
		GroupName: "Options",
		Flags:     flags,
	})
	groups = append(groups, common.GetJoinFlagGroup())
	return groups
}

func validateFlags(cmd *cobra.Command, args []string) error {
	if flagPath == "" {
		return common.FlagValidationError(cmd, fmt.Sprintf("--%s is required", flagPathName))
	}
	if exists, err := util.DirectoryExists(flagPath); err != nil || !exists {
		return common.FlagValidationError(cmd, fmt.Sprintf("workload directory %s does not exist", flagPath))
	}
	if err := flagJoin.Validate(); err != nil {
		return common.FlagValidationError(cmd, err.Error())
	}
	return nil
}

func runCmd(cmd *cobra.Command, args []string) error {
	appContext, err := common.GetAppContext(cmd)
	if err != nil {
		return common.CommandError(cmd, err)
	}
	opts, err := flagJoin.Options(flagProfilerScheme, appContext.Debug)
	if err != nil {
		return common.CommandError(cmd, err)
	}
	joiner, err := join.New(opts)
	if err != nil {
		return common.CommandError(cmd, err)
	}
	if flagOut != "" {
		if err := common.CreateOutputDir(filepath.Dir(flagOut)); err != nil {
			return common.CommandError(cmd, err)
		}
	}
	result, err := joiner.JoinDirectory(flagPath, join.Output{
		Path:       flagOut,
		Formats:    flagJoin.Formats,
		KeepInputs: flagKeepInputs || appContext.Debug,
		Archive:    flagJoin.Archive,
	})
	appContext.Recorder.RecordJoin(result.Report)
	if err != nil {
		return common.CommandError(cmd, err)
	}
	slog.Info("joined measurement tables", slog.String("path", flagPath), slog.Int("runs", len(result.Inputs)), slog.Int("rows", result.Report.Rows))
	common.PrintSummary(os.Stdout, []common.SummaryItem{
		{Label: "Runs", Value: len(result.Inputs)},
		{Label: "Rows", Value: result.Report.Rows},
		{Label: "Unmatched rows", Value: result.Report.UnmatchedTotal()},
		{Label: "Divergent fields", Value: len(result.Report.DivergentFields)},
	}, "Files written", result.Files)
	return nil
}
