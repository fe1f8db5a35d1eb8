// Package profiler drives a GPU hardware counter profiling session: the counter descriptor is
// split into one run per counter group, the application is profiled once per run, and the
// per-run measurement tables are joined into a single table.
package profiler

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/pkg/errors"

	"pmcperf/internal/common"
	"pmcperf/internal/descriptor"
	"pmcperf/internal/join"
	"pmcperf/internal/progress"
	"pmcperf/internal/schema"
	"pmcperf/internal/stats"
	"pmcperf/internal/table"
	"pmcperf/internal/util"
)

// Profiler backend names
const (
	RocprofV1 = "rocprofv1"
	RocprofV2 = "rocprofv2"
	Rocscope  = "rocscope"
)

// Backends lists the supported profiler backends, the first is the default
var Backends = []string{RocprofV1, RocprofV2, Rocscope}

const (
	perfmonDir         = "perfmon"
	counterFileName    = "pmc_perf.txt"
	runFilePrefix      = "pmc_perf_"
	runFileExt         = ".txt"
	maxWorkloadNameLen = 35
)

var (
	ErrParentPath         = errors.New("access denied, cannot access parent directories in path (i.e. ../)")
	ErrMissingCommand     = errors.New("profiling command required, pass the application executable after -- at the end of options")
	ErrInvalidWorkload    = errors.New("invalid workload name")
	ErrUnsupportedBackend = errors.New("unsupported profiler")
)

// Config of a profiling session
type Config struct {
	Path        string   // workload directory, receives all output
	Name        string   // workload name
	App         []string // application command and its arguments
	CounterFile string   // counter-group descriptor to split into runs
	Filters     descriptor.Filters
	JoinMode    join.Mode
	RowPolicy   join.RowPolicy
	Schema      *schema.Schema
	Formats     []string
	Archive     bool
	Metrics     []join.DerivedMetric
	Debug       bool   // keep per-run tables and log reconciled fields at info level
	Reuse       bool   // skip profiling when a joined table already exists
	ProfilerBin string // explicit profiler executable
	IPBlocks    []string
	SessionID   string
	Version     string
}

// Deps are the collaborators of a backend. Zero values are replaced with usable defaults.
type Deps struct {
	Runner   Runner
	Recorder *stats.Recorder
	Progress io.Writer // receives the per-run spinner, nil disables it
}

// Backend runs the three phases of a profiling session
type Backend interface {
	Name() string
	PreProcessing(ctx context.Context) error
	RunProfiling(ctx context.Context) error
	PostProcessing(ctx context.Context) (join.Result, error)
}

// hooks are the backend specific parts of a session
type hooks interface {
	// scheme is the header scheme of the backend's measurement tables
	scheme() string
	// binary is the default executable name and the environment variable that may override it
	binary() (name string, envVar string)
	// args for profiling one run descriptor
	args(runFile string) []string
	// collect moves the output of one run to <path>/pmc_perf_<i>.csv
	collect(runFile string) error
	// finalize runs after the join, changed reports whether the joined table was rewritten
	finalize() (changed bool, err error)
}

// New creates the named backend. An empty name selects the default.
func New(name string, cfg Config, deps Deps) (Backend, error) {
	if name == "" {
		name = Backends[0]
	}
	if deps.Runner == nil {
		deps.Runner = ExecRunner{}
	}
	if cfg.Schema == nil {
		s, err := schema.Default()
		if err != nil {
			return nil, err
		}
		cfg.Schema = s
	}
	if cfg.JoinMode == "" {
		cfg.JoinMode = join.ModeGrid
	}
	b := &session{name: name, cfg: cfg, deps: deps}
	switch name {
	case RocprofV1:
		b.hooks = &rocprofV1{s: b}
	case RocprofV2:
		b.hooks = &rocprofV2{s: b}
	case Rocscope:
		b.hooks = &rocscope{s: b}
	default:
		return nil, errors.Wrapf(ErrUnsupportedBackend, "%q, options are: %s", name, strings.Join(Backends, ", "))
	}
	return b, nil
}

// Profile runs all phases of a session
func Profile(ctx context.Context, b Backend) (join.Result, error) {
	slog.Info("profiling", slog.String("profiler", b.Name()))
	if err := b.PreProcessing(ctx); err != nil {
		return join.Result{}, err
	}
	if err := b.RunProfiling(ctx); err != nil {
		return join.Result{}, err
	}
	return b.PostProcessing(ctx)
}

// session implements Backend, delegating the backend specific steps to its hooks
type session struct {
	hooks
	name  string
	cfg   Config
	deps  Deps
	bin   string
	reuse bool // an existing joined table is used as is
	runs  []string
}

func (s *session) Name() string {
	return s.name
}

func (s *session) perfmonPath() string {
	return filepath.Join(s.cfg.Path, perfmonDir)
}

func (s *session) joinedPath() string {
	return filepath.Join(s.cfg.Path, join.JoinedTableName+join.RunTableSuffix)
}

// PreProcessing validates the session and splits the counter descriptor into runs
func (s *session) PreProcessing(ctx context.Context) error {
	defer common.Trace("PreProcessing")()
	slog.Debug("pre-processing", slog.String("profiler", s.name))
	if err := s.validate(); err != nil {
		return err
	}
	if s.cfg.Reuse && util.FileOrDirectoryExists(s.joinedPath()) {
		slog.Info("detected existing joined table, skipping profiling", slog.String("path", s.joinedPath()))
		s.reuse = true
		return nil
	}
	name, envVar := s.binary()
	bin, err := ResolveBinary(name, envVar, s.cfg.ProfilerBin)
	if err != nil {
		return err
	}
	s.bin = bin
	if err := util.CreateDirectoryIfNotExists(s.perfmonPath(), 0755); err != nil { // #nosec G301
		return errors.Wrap(err, "failed to create perfmon directory")
	}
	counterPath := filepath.Join(s.perfmonPath(), counterFileName)
	if err := util.CopyFile(s.cfg.CounterFile, counterPath); err != nil {
		return errors.Wrap(err, "failed to copy counter file")
	}
	runs, err := descriptor.Split(counterPath)
	if err != nil {
		return errors.Wrap(err, "failed to split counter file")
	}
	s.deps.Recorder.RecordSplit(len(runs))
	slog.Info("split counter file", slog.String("file", s.cfg.CounterFile), slog.Int("runs", len(runs)))
	return nil
}

func (s *session) validate() error {
	if strings.Contains(s.cfg.Path, "..") {
		return ErrParentPath
	}
	if len(s.cfg.App) == 0 || s.cfg.App[0] == "" {
		return ErrMissingCommand
	}
	exists, err := util.FileExists(s.cfg.App[0])
	if err != nil || !exists {
		return errors.Errorf("your command %s doesn't point to an executable, please verify", s.cfg.App[0])
	}
	if len(s.cfg.Name) > maxWorkloadNameLen {
		return errors.Wrapf(ErrInvalidWorkload, "name exceeds %d character limit", maxWorkloadNameLen)
	}
	if !util.IsValidWorkloadName(s.cfg.Name) {
		return errors.Wrapf(ErrInvalidWorkload, "'-' and '.' are not permitted in name %q", s.cfg.Name)
	}
	if s.cfg.CounterFile == "" {
		return errors.New("counter file required")
	}
	return nil
}

// RunProfiling profiles the application once per run descriptor, in run order
func (s *session) RunProfiling(ctx context.Context) error {
	defer common.Trace("RunProfiling")()
	if s.reuse {
		return nil
	}
	ipBlocks := "All"
	if len(s.cfg.IPBlocks) > 0 {
		ipBlocks = strings.Join(s.cfg.IPBlocks, ", ")
	}
	slog.Info("profiling session",
		slog.String("profiler", s.bin),
		slog.String("version", s.cfg.Version),
		slog.String("path", s.cfg.Path),
		slog.String("command", strings.Join(s.cfg.App, " ")),
		slog.Any("kernels", s.cfg.Filters.Kernels),
		slog.Any("dispatches", s.cfg.Filters.Dispatches),
		slog.Any("devices", s.cfg.Filters.Devices),
		slog.String("ip_blocks", ipBlocks))
	files, err := util.IndexedFiles(s.perfmonPath(), runFilePrefix, runFileExt)
	if err != nil {
		return errors.Wrap(err, "failed to list run descriptors")
	}
	if len(files) == 0 {
		return errors.Errorf("no run descriptors in %s", s.perfmonPath())
	}
	runNames := make([]string, len(files))
	for i, f := range files {
		runNames[i] = runName(f)
	}
	var spinner interface {
		Status(string, string) error
		Finish()
	}
	if s.deps.Progress != nil {
		ms := progress.NewMultiSpinnerWithWriter(s.deps.Progress)
		for _, name := range runNames {
			if err := ms.AddSpinner(name); err != nil {
				return err
			}
			_ = ms.Status(name, "queued")
		}
		ms.Start()
		defer ms.Finish()
		spinner = ms
	}
	status := func(run, msg string) {
		if spinner != nil {
			_ = spinner.Status(run, msg)
		}
	}
	for i, runFile := range files {
		run := runNames[i]
		if err := descriptor.ApplyFilters(runFile, s.cfg.Filters); err != nil {
			status(run, "error")
			return errors.Wrapf(err, "failed to apply filters to %s", runFile)
		}
		status(run, "profiling")
		slog.Info("current input file", slog.String("file", runFile))
		start := time.Now()
		output, exitCode, err := s.deps.Runner.Run(ctx, s.bin, s.args(runFile))
		elapsed := time.Since(start)
		slog.Info("profiler output", slog.String("run", run), slog.String("output", output))
		if err != nil {
			status(run, fmt.Sprintf("error, exit code %d", exitCode))
			return errors.Wrapf(err, "profiling %s failed with exit code %d", run, exitCode)
		}
		s.deps.Recorder.ObserveRun(run, elapsed)
		if err := s.collect(runFile); err != nil {
			status(run, "error")
			return err
		}
		s.runs = append(s.runs, run)
		status(run, fmt.Sprintf("done in %s", elapsed.Round(time.Millisecond)))
	}
	return nil
}

// PostProcessing records the host details and joins the per-run measurement tables
func (s *session) PostProcessing(ctx context.Context) (join.Result, error) {
	defer common.Trace("PostProcessing")()
	var result join.Result
	info := CollectSysinfo(s.cfg.Name, s.cfg.App, s.cfg.SessionID, s.name, s.cfg.IPBlocks)
	sysinfoPath, err := info.Write(s.cfg.Path)
	if err != nil {
		return result, err
	}
	if s.reuse {
		t, err := table.ReadCSV(s.joinedPath())
		if err != nil {
			return result, errors.Wrap(err, "failed to read existing joined table")
		}
		result.Table = t
		result.Files = []string{s.joinedPath(), sysinfoPath}
		return result, nil
	}
	scheme, err := s.cfg.Schema.Scheme(s.scheme())
	if err != nil {
		return result, err
	}
	joiner, err := join.New(join.Options{
		Mode:      s.cfg.JoinMode,
		Schema:    s.cfg.Schema,
		Scheme:    scheme,
		RowPolicy: s.cfg.RowPolicy,
		Verbose:   s.cfg.Debug,
		Metrics:   s.cfg.Metrics,
	})
	if err != nil {
		return result, err
	}
	result, err = joiner.JoinDirectory(s.cfg.Path, join.Output{Formats: s.cfg.Formats, KeepInputs: s.cfg.Debug, Archive: s.cfg.Archive})
	s.deps.Recorder.RecordJoin(result.Report)
	if err != nil {
		return result, err
	}
	changed, err := s.finalize()
	if err != nil {
		return result, err
	}
	if changed {
		if result.Table, err = table.ReadCSV(result.Files[0]); err != nil {
			return result, errors.Wrap(err, "failed to reload joined table")
		}
		result.Table.Name = join.JoinedTableName
		if slices.Contains(s.cfg.Formats, join.FormatXlsx) {
			if err := result.Table.WriteXlsx(strings.TrimSuffix(result.Files[0], join.RunTableSuffix) + ".xlsx"); err != nil {
				return result, errors.Wrap(err, "failed to rewrite joined workbook")
			}
		}
	}
	result.Files = append(result.Files, sysinfoPath)
	return result, nil
}

// runName is the run descriptor file name without its extension, e.g., pmc_perf_3
func runName(runFile string) string {
	base := filepath.Base(runFile)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// moveFile renames src to dst, copying across file systems
func moveFile(src, dst string) error {
	if err := os.Rename(src, dst); err == nil {
		return nil
	}
	if err := util.CopyFile(src, dst); err != nil {
		return err
	}
	return os.Remove(src)
}
