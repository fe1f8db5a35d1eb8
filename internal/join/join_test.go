package join

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

import (
	"archive/tar"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pmcperf/internal/schema"
	"pmcperf/internal/table"
)

// runFixture describes one rocprofv1 style per-run table
type runFixture struct {
	kernels []string
	grids   []string
	gpuIDs  []string
	begins  []string
	ends    []string
	counter string
	values  []string
}

func repeat(v string, n int) []string {
	s := make([]string, n)
	for i := range s {
		s[i] = v
	}
	return s
}

func seq(n int) []string {
	s := make([]string, n)
	for i := range s {
		s[i] = fmt.Sprint(i)
	}
	return s
}

func (f runFixture) table(t *testing.T, name string) *table.Table {
	n := len(f.kernels)
	gpuIDs := f.gpuIDs
	if gpuIDs == nil {
		gpuIDs = repeat("0", n)
	}
	tbl := table.New(name)
	columns := []table.Field{
		{Name: "Index", Values: seq(n)},
		{Name: "KernelName", Values: f.kernels},
		{Name: "gpu-id", Values: gpuIDs},
		{Name: "queue-id", Values: repeat("0", n)},
		{Name: "queue-index", Values: seq(n)},
		{Name: "pid", Values: repeat("4242", n)},
		{Name: "tid", Values: repeat("4243", n)},
		{Name: "grd", Values: f.grids},
		{Name: "wgr", Values: repeat("256", n)},
		{Name: "lds", Values: repeat("0", n)},
		{Name: "scr", Values: repeat("0", n)},
		{Name: "arch_vgpr", Values: repeat("8", n)},
		{Name: "accum_vgpr", Values: repeat("0", n)},
		{Name: "sgpr", Values: repeat("16", n)},
		{Name: "fbar", Values: repeat("0", n)},
		{Name: "sig", Values: repeat("0x0", n)},
		{Name: "obj", Values: repeat("0x7f00", n)},
		{Name: "DispatchNs", Values: f.begins},
		{Name: "BeginNs", Values: f.begins},
		{Name: "EndNs", Values: f.ends},
		{Name: "CompleteNs", Values: f.ends},
		{Name: f.counter, Values: f.values},
	}
	for _, c := range columns {
		require.NoError(t, tbl.AddField(c.Name, c.Values))
	}
	return tbl
}

func defaultJoiner(t *testing.T, mode Mode, policy RowPolicy) *Joiner {
	s, err := schema.Default()
	require.NoError(t, err)
	scheme, err := s.Scheme(schema.SchemeRocprofV1)
	require.NoError(t, err)
	j, err := New(Options{Mode: mode, Schema: s, Scheme: scheme, RowPolicy: policy})
	require.NoError(t, err)
	return j
}

func twoRuns(t *testing.T) []*table.Table {
	run0 := runFixture{
		kernels: []string{"A", "A", "B"},
		grids:   []string{"1", "1", "2"},
		begins:  []string{"100", "300", "500"},
		ends:    []string{"110", "320", "530"},
		counter: "SQ_WAVES",
		values:  []string{"4", "4", "8"},
	}
	run1 := runFixture{
		kernels: []string{"A", "A", "B"},
		grids:   []string{"1", "1", "2"},
		begins:  []string{"200", "400", "700"},
		ends:    []string{"230", "440", "750"},
		counter: "SQ_INSTS_VALU",
		values:  []string{"64", "64", "128"},
	}
	return []*table.Table{run0.table(t, "pmc_perf_0"), run1.table(t, "pmc_perf_1")}
}

func TestParseMode(t *testing.T) {
	m, err := ParseMode("kernel")
	require.NoError(t, err)
	assert.Equal(t, ModeKernel, m)
	m, err = ParseMode("grid")
	require.NoError(t, err)
	assert.Equal(t, ModeGrid, m)
	_, err = ParseMode("dispatch")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnsupportedJoinType))
	assert.Contains(t, err.Error(), "kernel, grid")
}

func TestNewValidation(t *testing.T) {
	s, err := schema.Default()
	require.NoError(t, err)
	scheme, err := s.Scheme(schema.SchemeRocprofV1)
	require.NoError(t, err)

	_, err = New(Options{Mode: "bogus", Schema: s, Scheme: scheme})
	assert.ErrorIs(t, err, ErrUnsupportedJoinType)
	_, err = New(Options{Mode: ModeKernel, Scheme: scheme})
	assert.Error(t, err)
	_, err = New(Options{Mode: ModeKernel, Schema: s, Scheme: scheme, RowPolicy: "sometimes"})
	assert.Error(t, err)
	_, err = New(Options{Mode: ModeKernel, Schema: s, Scheme: schema.Scheme{Name: "empty"}})
	assert.Error(t, err)
	j, err := New(Options{Mode: ModeKernel, Schema: s, Scheme: scheme})
	require.NoError(t, err)
	assert.Equal(t, RowPolicyWarn, j.opts.RowPolicy)
}

func TestKeys(t *testing.T) {
	tbl := runFixture{
		kernels: []string{"A", "A", "B"},
		grids:   []string{"1", "1", "2"},
		begins:  repeat("0", 3),
		ends:    repeat("0", 3),
		counter: "SQ_WAVES",
		values:  repeat("0", 3),
	}.table(t, "t")

	keys, err := Keys(tbl, ModeKernel, "KernelName", "grd")
	require.NoError(t, err)
	assert.Equal(t, []string{"A - 0", "A - 1", "B - 0"}, keyStrings(keys))

	keys, err = Keys(tbl, ModeGrid, "KernelName", "grd")
	require.NoError(t, err)
	assert.Equal(t, []string{"A - 1 - 0", "A - 1 - 1", "B - 2 - 0"}, keyStrings(keys))

	_, err = Keys(tbl, ModeKernel, "Kernel_Name", "grd")
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = Keys(tbl, ModeGrid, "KernelName", "Grid_Size")
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = Keys(tbl, Mode("other"), "KernelName", "grd")
	assert.ErrorIs(t, err, ErrUnsupportedJoinType)
}

func TestKeysUnique(t *testing.T) {
	kernels := []string{"A", "B", "A", "A", "C", "B", "A", "C"}
	grids := []string{"1", "1", "2", "1", "4", "1", "2", "4"}
	tbl := table.New("t")
	require.NoError(t, tbl.AddField("KernelName", kernels))
	require.NoError(t, tbl.AddField("grd", grids))
	for _, mode := range Modes {
		keys, err := Keys(tbl, mode, "KernelName", "grd")
		require.NoError(t, err)
		seen := make(map[DispatchKey]bool)
		for _, k := range keys {
			assert.False(t, seen[k], "duplicate key %s in %s mode", k, mode)
			seen[k] = true
		}
	}
	keys, err := Keys(tbl, ModeGrid, "KernelName", "grd")
	require.NoError(t, err)
	assert.Equal(t, "A - 2 - 1", keys[6].String())
}

func TestJoinTablesBothModes(t *testing.T) {
	for _, mode := range Modes {
		t.Run(string(mode), func(t *testing.T) {
			j := defaultJoiner(t, mode, RowPolicyFail)
			joined, report, err := j.JoinTables(twoRuns(t))
			require.NoError(t, err)
			assert.Equal(t, 3, joined.NumRows())
			assert.Equal(t, 3, report.Rows)
			assert.Equal(t, []int{3, 3}, report.InputRows)
			assert.Equal(t, []int{0, 0}, report.Unmatched)
			assert.Empty(t, report.DivergentFields)
		})
	}
}

func TestJoinTablesColumns(t *testing.T) {
	j := defaultJoiner(t, ModeKernel, RowPolicyWarn)
	joined, _, err := j.JoinTables(twoRuns(t))
	require.NoError(t, err)
	assert.Equal(t, []string{
		"Index", "KernelName", "gpu-id", "grd", "wgr", "lds", "scr", "arch_vgpr", "accum_vgpr", "sgpr",
		"SQ_WAVES", "SQ_INSTS_VALU", "BeginNs", "EndNs",
	}, joined.ColumnNames())
	assert.Equal(t, "pmc_perf", joined.Name)

	kernels, err := joined.GetField("KernelName")
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "A", "B"}, kernels.Values)
	waves, err := joined.GetField("SQ_WAVES")
	require.NoError(t, err)
	assert.Equal(t, []string{"4", "4", "8"}, waves.Values)
	valu, err := joined.GetField("SQ_INSTS_VALU")
	require.NoError(t, err)
	assert.Equal(t, []string{"64", "64", "128"}, valu.Values)
}

func TestJoinTablesTimingMean(t *testing.T) {
	tables := twoRuns(t)
	run2 := runFixture{
		kernels: []string{"A", "A", "B"},
		grids:   []string{"1", "1", "2"},
		begins:  []string{"300", "", "900"},
		ends:    []string{"350", "", "1000"},
		counter: "TA_BUSY",
		values:  []string{"1", "2", "3"},
	}
	tables = append(tables, run2.table(t, "pmc_perf_2"))
	j := defaultJoiner(t, ModeKernel, RowPolicyWarn)
	joined, _, err := j.JoinTables(tables)
	require.NoError(t, err)

	begin, err := joined.GetField(BeginColumn)
	require.NoError(t, err)
	end, err := joined.GetField(EndColumn)
	require.NoError(t, err)
	// row 1 has no timestamp in the third run, the mean is over the remaining two
	assert.Equal(t, []string{"200", "350", "700"}, begin.Values)
	assert.Equal(t, []string{"230", "380", "760"}, end.Values)
	assert.Equal(t, -1, joined.FieldIndex("BeginNs_1"))
	assert.Equal(t, -1, joined.FieldIndex("EndNs_2"))
}

func TestJoinTablesDivergentMetadata(t *testing.T) {
	tables := twoRuns(t)
	gpu, err := tables[1].GetField("gpu-id")
	require.NoError(t, err)
	gpu.Values[2] = "1"

	j := defaultJoiner(t, ModeKernel, RowPolicyWarn)
	joined, report, err := j.JoinTables(tables)
	require.NoError(t, err)
	assert.Equal(t, []string{"gpu"}, report.DivergentFields)
	// the first run's value is kept as the canonical one
	canonical, err := joined.GetField("gpu-id")
	require.NoError(t, err)
	assert.Equal(t, []string{"0", "0", "0"}, canonical.Values)
	assert.Equal(t, -1, joined.FieldIndex("gpu-id_1"))
}

func TestJoinTablesNumericallyEqualMetadata(t *testing.T) {
	tables := twoRuns(t)
	wgr, err := tables[1].GetField("wgr")
	require.NoError(t, err)
	wgr.Values[0] = "256.0"
	j := defaultJoiner(t, ModeKernel, RowPolicyWarn)
	_, report, err := j.JoinTables(tables)
	require.NoError(t, err)
	assert.Empty(t, report.DivergentFields)
}

func TestJoinTablesKernelMismatch(t *testing.T) {
	tables := twoRuns(t)
	require.NoError(t, tables[0].AddField("DemangledKernelName", []string{"A()", "A()", "B()"}))
	require.NoError(t, tables[1].AddField("DemangledKernelName", []string{"A()", "A()", "C()"}))
	j := defaultJoiner(t, ModeKernel, RowPolicyWarn)
	_, _, err := j.JoinTables(tables)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrKernelMismatch))
}

func TestJoinTablesLegacyVGPR(t *testing.T) {
	tables := twoRuns(t)
	for i, tbl := range tables {
		tbl.DropFields("arch_vgpr", "accum_vgpr")
		require.NoError(t, tbl.AddField("vgpr", []string{"8", "8", fmt.Sprint(8 + i)}))
	}
	j := defaultJoiner(t, ModeKernel, RowPolicyWarn)
	joined, report, err := j.JoinTables(tables)
	require.NoError(t, err)
	assert.Equal(t, []string{"vgpr"}, report.DivergentFields)
	assert.NotEqual(t, -1, joined.FieldIndex("vgpr"))
	assert.Equal(t, -1, joined.FieldIndex("vgpr_1"))
}

func TestJoinTablesUnmatchedRows(t *testing.T) {
	short := runFixture{
		kernels: []string{"A", "B"},
		grids:   []string{"1", "2"},
		begins:  []string{"200", "700"},
		ends:    []string{"230", "750"},
		counter: "SQ_INSTS_VALU",
		values:  []string{"64", "128"},
	}
	tables := twoRuns(t)
	tables[1] = short.table(t, "pmc_perf_1")

	for _, policy := range []RowPolicy{RowPolicyIgnore, RowPolicyWarn} {
		j := defaultJoiner(t, ModeKernel, policy)
		joined, report, err := j.JoinTables(tables)
		require.NoError(t, err)
		// A - 1 only exists in the first run
		assert.Equal(t, 2, joined.NumRows())
		assert.Equal(t, []int{1, 0}, report.Unmatched)
		assert.Equal(t, 1, report.UnmatchedTotal())
		assert.LessOrEqual(t, joined.NumRows(), min(tables[0].NumRows(), tables[1].NumRows()))
		kernels, err := joined.GetField("KernelName")
		require.NoError(t, err)
		assert.Equal(t, []string{"A", "B"}, kernels.Values)
	}

	j := defaultJoiner(t, ModeKernel, RowPolicyFail)
	_, _, err := j.JoinTables(tables)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrRowCountMismatch))
	assert.Contains(t, err.Error(), "pmc_perf_0: 1 of 3 rows unmatched")
}

func TestJoinTablesIdempotent(t *testing.T) {
	tables := twoRuns(t)
	before := tables[0].Clone()
	j := defaultJoiner(t, ModeGrid, RowPolicyWarn)
	first, _, err := j.JoinTables(tables)
	require.NoError(t, err)
	second, _, err := j.JoinTables(tables)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, before, tables[0])
	assert.Equal(t, -1, tables[0].FieldIndex(KeyColumn))
}

func TestJoinTablesSingleTable(t *testing.T) {
	tables := twoRuns(t)[:1]
	j := defaultJoiner(t, ModeKernel, RowPolicyFail)
	joined, report, err := j.JoinTables(tables)
	require.NoError(t, err)
	assert.Equal(t, 3, report.Rows)
	assert.Equal(t, -1, joined.FieldIndex(KeyColumn))
	assert.Equal(t, -1, joined.FieldIndex("pid"))
	begin, err := joined.GetField(BeginColumn)
	require.NoError(t, err)
	assert.Equal(t, []string{"100", "300", "500"}, begin.Values)
}

func TestJoinTablesInvalid(t *testing.T) {
	j := defaultJoiner(t, ModeKernel, RowPolicyWarn)
	_, _, err := j.JoinTables(nil)
	assert.ErrorIs(t, err, ErrNoTables)
	_, _, err = j.JoinTables([]*table.Table{nil})
	assert.ErrorIs(t, err, ErrInvalidInput)
	noKernel := table.New("bad")
	require.NoError(t, noKernel.AddField("grd", []string{"1"}))
	_, _, err = j.JoinTables([]*table.Table{noKernel})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestJoinTablesRocprofV2(t *testing.T) {
	s, err := schema.Default()
	require.NoError(t, err)
	scheme, err := s.Scheme(schema.SchemeRocprofV2)
	require.NoError(t, err)
	j, err := New(Options{Mode: ModeGrid, Schema: s, Scheme: scheme})
	require.NoError(t, err)

	makeRun := func(name, counter string, start, end []string) *table.Table {
		tbl := table.New(name)
		require.NoError(t, tbl.AddField("Dispatch_ID", []string{"0", "1"}))
		require.NoError(t, tbl.AddField("GPU_ID", []string{"0", "0"}))
		require.NoError(t, tbl.AddField("Queue_ID", []string{"1", "1"}))
		require.NoError(t, tbl.AddField("PID", []string{"7", "7"}))
		require.NoError(t, tbl.AddField("Grid_Size", []string{"1024", "2048"}))
		require.NoError(t, tbl.AddField("Kernel_Name", []string{"vecCopy", "vecCopy"}))
		require.NoError(t, tbl.AddField("Workgroup_Size", []string{"64", "64"}))
		require.NoError(t, tbl.AddField("LDS_Per_Workgroup", []string{"0", "0"}))
		require.NoError(t, tbl.AddField("Scratch_Per_Workitem", []string{"0", "0"}))
		require.NoError(t, tbl.AddField("Arch_VGPR", []string{"4", "4"}))
		require.NoError(t, tbl.AddField("Accum_VGPR", []string{"0", "0"}))
		require.NoError(t, tbl.AddField("SGPR", []string{"16", "16"}))
		require.NoError(t, tbl.AddField("Start_Timestamp", start))
		require.NoError(t, tbl.AddField("End_Timestamp", end))
		require.NoError(t, tbl.AddField(counter, []string{"1", "2"}))
		return tbl
	}
	joined, report, err := j.JoinTables([]*table.Table{
		makeRun("pmc_perf_0", "SQ_WAVES", []string{"10", "30"}, []string{"20", "40"}),
		makeRun("pmc_perf_1", "GRBM_COUNT", []string{"20", "50"}, []string{"30", "60"}),
	})
	require.NoError(t, err)
	assert.Empty(t, report.DivergentFields)
	assert.Equal(t, []string{
		"Dispatch_ID", "GPU_ID", "Grid_Size", "Kernel_Name", "Workgroup_Size", "LDS_Per_Workgroup",
		"Scratch_Per_Workitem", "Arch_VGPR", "Accum_VGPR", "SGPR", "SQ_WAVES", "GRBM_COUNT", BeginColumn, EndColumn,
	}, joined.ColumnNames())
	begin, err := joined.GetField(BeginColumn)
	require.NoError(t, err)
	assert.Equal(t, []string{"15", "40"}, begin.Values)
}

func TestJoinDerivedMetrics(t *testing.T) {
	s, err := schema.Default()
	require.NoError(t, err)
	scheme, err := s.Scheme(schema.SchemeRocprofV1)
	require.NoError(t, err)
	duration, err := ParseDerivedMetric("Duration = [EndNs] - [BeginNs]")
	require.NoError(t, err)
	ratio, err := ParseDerivedMetric("InstsPerWave=SQ_INSTS_VALU / SQ_WAVES")
	require.NoError(t, err)
	j, err := New(Options{Mode: ModeKernel, Schema: s, Scheme: scheme, Metrics: []DerivedMetric{duration, ratio}})
	require.NoError(t, err)

	joined, _, err := j.JoinTables(twoRuns(t))
	require.NoError(t, err)
	d, err := joined.GetField("Duration")
	require.NoError(t, err)
	assert.Equal(t, []string{"20", "30", "40"}, d.Values)
	r, err := joined.GetField("InstsPerWave")
	require.NoError(t, err)
	assert.Equal(t, []string{"16", "16", "16"}, r.Values)
}

func TestDerivedMetricErrors(t *testing.T) {
	for _, def := range []string{"Duration", "=[EndNs]", "Duration=", "Bad=[EndNs] -"} {
		_, err := ParseDerivedMetric(def)
		assert.Error(t, err, def)
	}
	m, err := ParseDerivedMetric("X=[missing] * 2")
	require.NoError(t, err)
	tbl := table.New("t")
	require.NoError(t, tbl.AddField("a", []string{"1"}))
	assert.Error(t, m.Apply(tbl))
	assert.Error(t, DerivedMetric{Name: "unparsed"}.Apply(tbl))

	m, err = ParseDerivedMetric("Y=max(a, 2) / b")
	require.NoError(t, err)
	require.NoError(t, tbl.AddField("b", []string{"0"}))
	require.NoError(t, m.Apply(tbl))
	y, err := tbl.GetField("Y")
	require.NoError(t, err)
	assert.Equal(t, []string{""}, y.Values)
}

func writeRunCSV(t *testing.T, dir string, tbl *table.Table) string {
	path := filepath.Join(dir, tbl.Name+".csv")
	require.NoError(t, tbl.WriteCSV(path))
	return path
}

func TestJoinInputShape(t *testing.T) {
	j := defaultJoiner(t, ModeKernel, RowPolicyWarn)
	_, err := j.Join(Input{}, Output{})
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = j.Join(Input{Path: t.TempDir(), Tables: twoRuns(t)}, Output{})
	assert.ErrorIs(t, err, ErrInvalidInput)

	result, err := j.Join(Input{Tables: twoRuns(t)}, Output{})
	require.NoError(t, err)
	assert.Equal(t, 3, result.Table.NumRows())
	assert.Empty(t, result.Files)
}

func TestJoinDirectory(t *testing.T) {
	dir := t.TempDir()
	var inputs []string
	for _, tbl := range twoRuns(t) {
		inputs = append(inputs, writeRunCSV(t, dir, tbl))
	}
	j := defaultJoiner(t, ModeKernel, RowPolicyWarn)
	result, err := j.Join(Input{Path: dir}, Output{})
	require.NoError(t, err)
	assert.Equal(t, inputs, result.Inputs)
	outPath := filepath.Join(dir, "pmc_perf.csv")
	assert.Equal(t, []string{outPath}, result.Files)
	for _, in := range inputs {
		assert.NoFileExists(t, in)
	}

	loaded, err := table.ReadCSV(outPath)
	require.NoError(t, err)
	assert.Equal(t, result.Table.ColumnNames(), loaded.ColumnNames())
	assert.Equal(t, 3, loaded.NumRows())
	begin, err := loaded.GetField(BeginColumn)
	require.NoError(t, err)
	assert.Equal(t, []string{"150", "350", "600"}, begin.Values)
}

func TestJoinDirectoryKeepInputsAndFormats(t *testing.T) {
	dir := t.TempDir()
	var inputs []string
	for _, tbl := range twoRuns(t) {
		inputs = append(inputs, writeRunCSV(t, dir, tbl))
	}
	out := filepath.Join(t.TempDir(), "joined.csv")
	j := defaultJoiner(t, ModeKernel, RowPolicyWarn)
	result, err := j.JoinDirectory(dir, Output{Path: out, Formats: []string{FormatCSV, FormatXlsx}, KeepInputs: true})
	require.NoError(t, err)
	assert.Equal(t, []string{out, filepath.Join(filepath.Dir(out), "joined.xlsx")}, result.Files)
	assert.FileExists(t, out)
	assert.FileExists(t, filepath.Join(filepath.Dir(out), "joined.xlsx"))
	for _, in := range inputs {
		assert.FileExists(t, in)
	}

	// the retained inputs join to the same content again
	again, err := j.JoinDirectory(dir, Output{Path: out, KeepInputs: true})
	require.NoError(t, err)
	assert.Equal(t, result.Table, again.Table)
}

func TestJoinDirectoryArchive(t *testing.T) {
	dir := t.TempDir()
	for _, tbl := range twoRuns(t) {
		writeRunCSV(t, dir, tbl)
	}
	j := defaultJoiner(t, ModeKernel, RowPolicyWarn)
	result, err := j.JoinDirectory(dir, Output{Archive: true})
	require.NoError(t, err)
	archivePath := filepath.Join(dir, RunArchiveName)
	assert.Contains(t, result.Files, archivePath)

	f, err := os.Open(archivePath)
	require.NoError(t, err)
	defer f.Close()
	gz, err := gzip.NewReader(f)
	require.NoError(t, err)
	tr := tar.NewReader(gz)
	var names []string
	for {
		header, err := tr.Next()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		names = append(names, header.Name)
	}
	assert.Equal(t, []string{"pmc_perf_0.csv", "pmc_perf_1.csv"}, names)
	assert.NoFileExists(t, filepath.Join(dir, "pmc_perf_0.csv"))
}

func TestJoinDirectoryErrors(t *testing.T) {
	j := defaultJoiner(t, ModeKernel, RowPolicyWarn)
	_, err := j.JoinDirectory(filepath.Join(t.TempDir(), "missing"), Output{})
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = j.JoinDirectory(t.TempDir(), Output{})
	assert.ErrorIs(t, err, ErrNoTables)

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "pmc_perf_0.csv"), []byte("KernelName,grd\nA,1,extra\n"), 0644))
	_, err = j.JoinDirectory(dir, Output{})
	assert.Error(t, err)
	assert.FileExists(t, filepath.Join(dir, "pmc_perf_0.csv"))
}
