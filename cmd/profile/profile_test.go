package profile

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pmcperf/internal/common"
	"pmcperf/internal/join"
	"pmcperf/internal/profiler"
	"pmcperf/internal/stats"
)

// csvRunner stands in for rocprof, writing a two-dispatch table for the run's counters
type csvRunner struct {
	calls int
}

func (r *csvRunner) Run(ctx context.Context, name string, args []string) (string, int, error) {
	r.calls++
	in := args[slices.Index(args, "-i")+1]
	out := args[slices.Index(args, "-o")+1]
	content, err := os.ReadFile(in)
	if err != nil {
		return "", 1, err
	}
	first, _, _ := strings.Cut(string(content), "\n")
	counter := strings.Fields(strings.TrimPrefix(first, "pmc:"))[0]
	table := fmt.Sprintf("KernelName,grd,BeginNs,EndNs,%s\nvecAdd,1024,%d,%d,4\nvecAdd,1024,%d,%d,8\n",
		counter, 100*r.calls, 100*r.calls+10, 1000*r.calls, 1000*r.calls+50)
	return "ok", 0, os.WriteFile(out, []byte(table), 0644)
}

func resetFlags(t *testing.T) {
	reset := func() {
		flagName, flagPath, flagCounters, flagProfilerBin = "", "", "", ""
		flagProfiler = profiler.RocprofV1
		flagKernels, flagDispatches, flagDevices, flagIPBlocks = nil, nil, nil, nil
		flagReuse = false
		flagJoin = common.JoinFlags{JoinType: string(join.ModeGrid), RowPolicy: string(join.RowPolicyWarn), Formats: []string{join.FormatCSV}}
	}
	reset()
	t.Cleanup(reset)
}

type fixture struct {
	dir      string
	app      string
	bin      string
	counters string
}

func newFixture(t *testing.T) fixture {
	dir := t.TempDir()
	f := fixture{
		dir:      dir,
		app:      filepath.Join(dir, "vcopy"),
		bin:      filepath.Join(dir, "rocprof"),
		counters: filepath.Join(dir, "counters.txt"),
	}
	require.NoError(t, os.WriteFile(f.app, []byte("#!/bin/sh\n"), 0755))
	require.NoError(t, os.WriteFile(f.bin, []byte("#!/bin/sh\n"), 0755))
	require.NoError(t, os.WriteFile(f.counters, []byte("pmc: SQ_WAVES\npmc: SQ_INSTS_VALU\n"), 0644))
	return f
}

func TestFlagGroupsRegistered(t *testing.T) {
	for _, group := range getFlagGroups() {
		for _, flag := range group.Flags {
			assert.NotNil(t, Cmd.Flags().Lookup(flag.Name), flag.Name)
		}
	}
}

func TestValidateFlags(t *testing.T) {
	resetFlags(t)
	f := newFixture(t)
	cmd := &cobra.Command{Use: "test"}
	app := []string{f.app}

	assert.Error(t, validateFlags(cmd, app), "name required")
	flagName = "vcopy"
	assert.Error(t, validateFlags(cmd, app), "counters required")
	flagCounters = filepath.Join(f.dir, "missing.txt")
	assert.Error(t, validateFlags(cmd, app))
	flagCounters = f.counters
	assert.NoError(t, validateFlags(cmd, app))
	assert.Error(t, validateFlags(cmd, nil), "application required")

	flagProfiler = "nsight"
	assert.Error(t, validateFlags(cmd, app))
	flagProfiler = profiler.RocprofV2

	flagJoin.RowPolicy = "drop"
	assert.Error(t, validateFlags(cmd, app))
}

func TestNewConfig(t *testing.T) {
	resetFlags(t)
	f := newFixture(t)
	flagName = "vcopy"
	flagCounters = f.counters
	flagKernels = []string{"vecAdd"}
	flagIPBlocks = []string{"SQ", "TCC"}
	flagJoin.Metrics = []string{"Duration=[EndNs]-[BeginNs]"}
	appContext := common.AppContext{OutputDir: f.dir, SessionID: "abc", Version: "1.2.3", Debug: true}

	cfg, err := newConfig(&cobra.Command{}, []string{f.app, "-n", "16"}, appContext)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(f.dir, "workloads", "vcopy"), cfg.Path)
	assert.Equal(t, []string{f.app, "-n", "16"}, cfg.App)
	assert.Equal(t, join.ModeGrid, cfg.JoinMode)
	assert.Equal(t, join.RowPolicyWarn, cfg.RowPolicy)
	assert.Equal(t, []string{"vecAdd"}, cfg.Filters.Kernels)
	assert.Equal(t, []string{"SQ", "TCC"}, cfg.IPBlocks)
	assert.Len(t, cfg.Metrics, 1)
	assert.NotNil(t, cfg.Schema)
	assert.True(t, cfg.Debug)
	assert.Equal(t, "abc", cfg.SessionID)

	flagPath = "../elsewhere"
	cfg, err = newConfig(&cobra.Command{}, []string{f.app}, appContext)
	require.NoError(t, err)
	assert.Equal(t, "../elsewhere", cfg.Path, "path is passed through unchanged")
}

func TestNewDeps(t *testing.T) {
	recorder := stats.NewRecorder("abc")
	deps := newDeps(common.AppContext{Recorder: recorder})
	assert.Equal(t, os.Stderr, deps.Progress)
	assert.Same(t, recorder, deps.Recorder)

	deps = newDeps(common.AppContext{Debug: true})
	assert.Nil(t, deps.Progress)
	assert.Equal(t, os.Stdout, deps.Runner.(profiler.ExecRunner).Echo)
}

func TestRun(t *testing.T) {
	resetFlags(t)
	f := newFixture(t)
	flagName = "vcopy"
	flagCounters = f.counters
	flagProfilerBin = f.bin
	cmd := &cobra.Command{Use: "test"}
	cmd.SetContext(context.Background())
	cfg, err := newConfig(cmd, []string{f.app}, common.AppContext{OutputDir: f.dir, SessionID: "abc"})
	require.NoError(t, err)

	runner := &csvRunner{}
	var out bytes.Buffer
	require.NoError(t, run(cmd, cfg, profiler.Deps{Runner: runner}, &out))
	assert.Equal(t, 2, runner.calls)
	assert.Contains(t, out.String(), "Runs: 2\nRows: 2\nUnmatched rows: 0\n")
	assert.FileExists(t, filepath.Join(cfg.Path, "pmc_perf.csv"))
	assert.FileExists(t, filepath.Join(cfg.Path, "sysinfo.csv"))
	assert.NoFileExists(t, filepath.Join(cfg.Path, "pmc_perf_0.csv"))
}

func TestRunUnsupportedProfiler(t *testing.T) {
	resetFlags(t)
	flagProfiler = "nsight"
	cmd := &cobra.Command{Use: "test"}
	cmd.SetContext(context.Background())
	err := run(cmd, profiler.Config{}, profiler.Deps{Runner: &csvRunner{}}, &bytes.Buffer{})
	assert.ErrorIs(t, err, profiler.ErrUnsupportedBackend)
}
