// Package split is a subcommand of the root command. It splits a counter-group descriptor
// into one run descriptor per counter group.
package split

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"pmcperf/internal/common"
	"pmcperf/internal/descriptor"
)

const cmdName = "split"

var examples = []string{
	fmt.Sprintf("  Split a counter file:                 $ %s %s perfmon/pmc_perf.txt", common.AppName, cmdName),
	fmt.Sprintf("  Split and restrict runs to a kernel:  $ %s %s perfmon/pmc_perf.txt --kernel vecAdd", common.AppName, cmdName),
	fmt.Sprintf("  Split and restrict runs to a range:   $ %s %s perfmon/pmc_perf.txt --dispatch 0:10 --device 0", common.AppName, cmdName),
}

var Cmd = &cobra.Command{
	Use:           cmdName + " [flags] <counter file>",
	Short:         "Split a counter file into one run descriptor per counter group",
	Long:          "Each 'pmc:' line of the counter file becomes <stem>_<n><ext> next to it, numbered from 0 in file order. The counter file is removed.",
	Example:       strings.Join(examples, "\n"),
	RunE:          runCmd,
	PreRunE:       validateFlags,
	GroupID:       "primary",
	Args:          cobra.ExactArgs(1),
	SilenceErrors: true,
}

var (
	flagKernels    []string
	flagDispatches []string
	flagDevices    []string
)

const (
	flagKernelName   = "kernel"
	flagDispatchName = "dispatch"
	flagDeviceName   = "device"
)

func init() {
	Cmd.Flags().StringSliceVarP(&flagKernels, flagKernelName, "k", nil, "")
	Cmd.Flags().StringSliceVarP(&flagDispatches, flagDispatchName, "d", nil, "")
	Cmd.Flags().StringSliceVar(&flagDevices, flagDeviceName, nil, "")

	Cmd.SetUsageFunc(usageFunc)
}

func usageFunc(cmd *cobra.Command) error {
	cmd.Printf("Usage: %s [flags] <counter file>\n\n", cmd.CommandPath())
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
	return []common.FlagGroup{GetFilterFlagGroup()}
}

// GetFilterFlagGroup returns the help for the run descriptor filter flags
func GetFilterFlagGroup() common.FlagGroup {
	return common.FlagGroup{
		GroupName: "Filter Options",
		Flags: []common.Flag{
			{Name: flagKernelName, Help: "kernel name(s) to profile, written to the kernel: section"},
			{Name: flagDispatchName, Help: "dispatch range(s) to profile, e.g., 0:10, written to the range: section"},
			{Name: flagDeviceName, Help: "GPU device id(s) to profile, written to the gpu: section"},
		},
	}
}

func validateFlags(cmd *cobra.Command, args []string) error {
	if len(args) > 0 && args[0] == "" {
		return common.FlagValidationError(cmd, "counter file path must not be empty")
	}
	for _, d := range flagDispatches {
		if strings.TrimSpace(d) == "" {
			return common.FlagValidationError(cmd, "dispatch range must not be empty")
		}
	}
	return nil
}

func filters() descriptor.Filters {
	return descriptor.Filters{Kernels: flagKernels, Dispatches: flagDispatches, Devices: flagDevices}
}

func runCmd(cmd *cobra.Command, args []string) error {
	appContext, err := common.GetAppContext(cmd)
	if err != nil {
		return common.CommandError(cmd, err)
	}
	runs, err := descriptor.Split(args[0])
	if err != nil {
		return common.CommandError(cmd, err)
	}
	appContext.Recorder.RecordSplit(len(runs))
	f := filters()
	for _, run := range runs {
		if err := descriptor.ApplyFilters(run, f); err != nil {
			return common.CommandError(cmd, err)
		}
	}
	common.PrintSummary(os.Stdout, []common.SummaryItem{{Label: "Runs", Value: len(runs)}}, "Run descriptors", runs)
	return nil
}
