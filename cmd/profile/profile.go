// Package profile is a subcommand of the root command. It profiles an application once per
// counter group and joins the per-run measurements.
package profile

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"pmcperf/internal/common"
	"pmcperf/internal/descriptor"
	"pmcperf/internal/join"
	"pmcperf/internal/profiler"
	"pmcperf/internal/util"
)

const cmdName = "profile"

var examples = []string{
	fmt.Sprintf("  Profile an application:                $ %s %s -n vcopy --counters counters.txt -- ./vcopy -n 1048576", common.AppName, cmdName),
	fmt.Sprintf("  Profile two kernels with rocprofv2:    $ %s %s -n vcopy --counters counters.txt --profiler rocprofv2 -k vecCopy,vecAdd -- ./vcopy", common.AppName, cmdName),
	fmt.Sprintf("  Reuse an earlier joined table:         $ %s %s -n vcopy --counters counters.txt --reuse -- ./vcopy", common.AppName, cmdName),
}

var Cmd = &cobra.Command{
	Use:           cmdName + " [flags] -- <application> [arguments]",
	Short:         "Profile an application and join the per-run counter measurements",
	Long:          "",
	Example:       strings.Join(examples, "\n"),
	RunE:          runCmd,
	PreRunE:       validateFlags,
	GroupID:       "primary",
	Args:          cobra.ArbitraryArgs,
	SilenceErrors: true,
}

var (
	flagName        string
	flagPath        string
	flagCounters    string
	flagProfiler    string
	flagProfilerBin string
	flagKernels     []string
	flagDispatches  []string
	flagDevices     []string
	flagIPBlocks    []string
	flagReuse       bool
	flagJoin        common.JoinFlags
)

const (
	flagNameName        = "name"
	flagPathName        = "path"
	flagCountersName    = "counters"
	flagProfilerName    = "profiler"
	flagProfilerBinName = "profiler-bin"
	flagKernelName      = "kernel"
	flagDispatchName    = "dispatch"
	flagDeviceName      = "device"
	flagIPBlocksName    = "ipblocks"
	flagReuseName       = "reuse"
)

func init() {
	Cmd.Flags().StringVarP(&flagName, flagNameName, "n", "", "")
	Cmd.Flags().StringVarP(&flagPath, flagPathName, "p", "", "")
	Cmd.Flags().StringVar(&flagCounters, flagCountersName, "", "")
	Cmd.Flags().StringVar(&flagProfiler, flagProfilerName, profiler.Backends[0], "")
	Cmd.Flags().StringVar(&flagProfilerBin, flagProfilerBinName, "", "")
	Cmd.Flags().StringSliceVarP(&flagKernels, flagKernelName, "k", nil, "")
	Cmd.Flags().StringSliceVarP(&flagDispatches, flagDispatchName, "d", nil, "")
	Cmd.Flags().StringSliceVar(&flagDevices, flagDeviceName, nil, "")
	Cmd.Flags().StringSliceVarP(&flagIPBlocks, flagIPBlocksName, "b", nil, "")
	Cmd.Flags().BoolVar(&flagReuse, flagReuseName, false, "")

	common.AddJoinFlags(Cmd, &flagJoin)

	Cmd.SetUsageFunc(usageFunc)
}

func usageFunc(cmd *cobra.Command) error {
	cmd.Printf("Usage: %s [flags] -- <application> [arguments]\n\n", cmd.CommandPath())
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
			Name: flagNameName,
			Help: "workload name, at most 35 characters without '.' or '-' (required)",
		},
		{
			Name: flagPathName,
			Help: "workload directory, defaults to <output dir>/workloads/<name>",
		},
		{
			Name: flagCountersName,
			Help: "counter file with one 'pmc:' line per counter group (required)",
		},
		{
			Name: flagProfilerName,
			Help: fmt.Sprintf("profiler backend, options: %s", strings.Join(profiler.Backends, ", ")),
		},
		{
			Name: flagProfilerBinName,
			Help: "profiler executable, overrides the ROCPROF, ROCPROFV2, and ROCSCOPE environment variables",
		},
		{
			Name: flagReuseName,
			Help: "skip profiling when the workload directory already holds a joined table",
		},
	}
	groups = append(groups, common.FlagGroup{
		GroupName: "Options",
		Flags:     flags,
	})
	groups = append(groups, common.FlagGroup{
		GroupName: "Filter Options",
		Flags: []common.Flag{
			{Name: flagKernelName, Help: "kernel name(s) to profile"},
			{Name: flagDispatchName, Help: "dispatch range(s) to profile, e.g., 0:10"},
			{Name: flagDeviceName, Help: "GPU device id(s) to profile"},
			{Name: flagIPBlocksName, Help: "hardware IP block(s) the counter file targets, recorded in sysinfo.csv"},
		},
	})
	groups = append(groups, common.GetJoinFlagGroup())
	return groups
}

func validateFlags(cmd *cobra.Command, args []string) error {
	if flagName == "" {
		return common.FlagValidationError(cmd, fmt.Sprintf("--%s is required", flagNameName))
	}
	if flagCounters == "" {
		return common.FlagValidationError(cmd, fmt.Sprintf("--%s is required", flagCountersName))
	}
	if exists, err := util.FileExists(flagCounters); err != nil || !exists {
		return common.FlagValidationError(cmd, fmt.Sprintf("counter file %s does not exist", flagCounters))
	}
	if !slices.Contains(profiler.Backends, flagProfiler) {
		return common.FlagValidationError(cmd, fmt.Sprintf("profiler options are: %s", strings.Join(profiler.Backends, ", ")))
	}
	if len(application(cmd, args)) == 0 {
		return common.FlagValidationError(cmd, profiler.ErrMissingCommand.Error())
	}
	if err := flagJoin.Validate(); err != nil {
		return common.FlagValidationError(cmd, err.Error())
	}
	return nil
}

// application returns the command line following '--', or all arguments when there is none
func application(cmd *cobra.Command, args []string) []string {
	if dash := cmd.ArgsLenAtDash(); dash >= 0 {
		return args[dash:]
	}
	return args
}

// newConfig assembles the session configuration from the command line
func newConfig(cmd *cobra.Command, args []string, appContext common.AppContext) (profiler.Config, error) {
	var cfg profiler.Config
	mode, err := join.ParseMode(flagJoin.JoinType)
	if err != nil {
		return cfg, err
	}
	policy, err := join.ParseRowPolicy(flagJoin.RowPolicy)
	if err != nil {
		return cfg, err
	}
	s, err := flagJoin.LoadSchema()
	if err != nil {
		return cfg, err
	}
	metrics, err := flagJoin.DerivedMetrics()
	if err != nil {
		return cfg, err
	}
	path := flagPath
	if path == "" {
		path = filepath.Join(appContext.OutputDir, "workloads", flagName)
	}
	return profiler.Config{
		Path:        path,
		Name:        flagName,
		App:         application(cmd, args),
		CounterFile: flagCounters,
		Filters:     descriptor.Filters{Kernels: flagKernels, Dispatches: flagDispatches, Devices: flagDevices},
		JoinMode:    mode,
		RowPolicy:   policy,
		Schema:      s,
		Formats:     flagJoin.Formats,
		Archive:     flagJoin.Archive,
		Metrics:     metrics,
		Debug:       appContext.Debug,
		Reuse:       flagReuse,
		ProfilerBin: flagProfilerBin,
		IPBlocks:    flagIPBlocks,
		SessionID:   appContext.SessionID,
		Version:     appContext.Version,
	}, nil
}

// newDeps echoes profiler output in debug mode, otherwise shows a spinner per run
func newDeps(appContext common.AppContext) profiler.Deps {
	deps := profiler.Deps{Recorder: appContext.Recorder}
	if appContext.Debug {
		deps.Runner = profiler.ExecRunner{Echo: os.Stdout}
	} else {
		deps.Runner = profiler.ExecRunner{}
		deps.Progress = os.Stderr
	}
	return deps
}

func runCmd(cmd *cobra.Command, args []string) error {
	appContext, err := common.GetAppContext(cmd)
	if err != nil {
		return common.CommandError(cmd, err)
	}
	cfg, err := newConfig(cmd, args, appContext)
	if err != nil {
		return common.CommandError(cmd, err)
	}
	return run(cmd, cfg, newDeps(appContext), os.Stdout)
}

func run(cmd *cobra.Command, cfg profiler.Config, deps profiler.Deps, out io.Writer) error {
	backend, err := profiler.New(flagProfiler, cfg, deps)
	if err != nil {
		return common.CommandError(cmd, err)
	}
	ctx, cancel := common.SignalContext(cmd.Context())
	defer cancel()
	result, err := profiler.Profile(ctx, backend)
	if err != nil {
		return common.CommandError(cmd, err)
	}
	rows := 0
	if result.Table != nil {
		rows = result.Table.NumRows()
	}
	common.PrintSummary(out, []common.SummaryItem{
		{Label: "Runs", Value: len(result.Inputs)},
		{Label: "Rows", Value: rows},
		{Label: "Unmatched rows", Value: result.Report.UnmatchedTotal()},
	}, "Files written", result.Files)
	return nil
}
