package profiler

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

import (
	"log/slog"
	"path/filepath"
	"slices"

	"github.com/pkg/errors"

	"pmcperf/internal/schema"
)

// rocprofV1 writes one CSV per run directly into the workload directory. Its dispatch
// timestamps may be recorded separately in timestamps.csv.
type rocprofV1 struct {
	s *session
}

func (b *rocprofV1) scheme() string {
	return schema.SchemeRocprofV1
}

func (b *rocprofV1) binary() (string, string) {
	return "rocprof", "ROCPROF"
}

func (b *rocprofV1) args(runFile string) []string {
	args := []string{
		"-i", runFile,
		// v1 requires request for timestamps
		"--timestamp", "on",
		"-o", filepath.Join(b.s.cfg.Path, runName(runFile)+".csv"),
	}
	return append(args, b.s.cfg.App...)
}

func (b *rocprofV1) collect(string) error {
	return nil
}

func (b *rocprofV1) finalize() (bool, error) {
	rewritten, err := ReplaceTimestamps(b.s.cfg.Path)
	if err != nil {
		return false, err
	}
	return slices.Contains(rewritten, b.s.joinedPath()), nil
}

// rocprofV2 writes results_<run>.csv below <path>/out/pmc_<n>/
type rocprofV2 struct {
	s *session
}

func (b *rocprofV2) scheme() string {
	return schema.SchemeRocprofV2
}

func (b *rocprofV2) binary() (string, string) {
	return "rocprofv2", "ROCPROFV2"
}

func (b *rocprofV2) outputDir() string {
	return filepath.Join(b.s.cfg.Path, "out")
}

func (b *rocprofV2) args(runFile string) []string {
	args := []string{
		"-i", runFile,
		"-d", b.outputDir(),
		"-o", runName(runFile),
	}
	return append(args, b.s.cfg.App...)
}

// collect moves the run's results into the workload directory. When the profiler produced
// results under more than one pmc_<n> directory the first, in name order, is used.
func (b *rocprofV2) collect(runFile string) error {
	run := runName(runFile)
	matches, err := filepath.Glob(filepath.Join(b.outputDir(), "pmc_*", "results_"+run+".csv"))
	if err != nil {
		return errors.Wrap(err, "failed to search for profiler results")
	}
	if len(matches) == 0 {
		return errors.Errorf("profiler produced no results for %s in %s", run, b.outputDir())
	}
	slices.Sort(matches)
	if len(matches) > 1 {
		slog.Warn("multiple results for run, using the first", slog.String("run", run), slog.Any("results", matches))
	}
	dst := filepath.Join(b.s.cfg.Path, run+".csv")
	if err := moveFile(matches[0], dst); err != nil {
		return errors.Wrapf(err, "failed to move results of %s", run)
	}
	return nil
}

func (b *rocprofV2) finalize() (bool, error) {
	return false, nil
}

// rocscope writes its measurement tables into the workload directory using rocprofv1 headers
type rocscope struct {
	s *session
}

func (b *rocscope) scheme() string {
	return schema.SchemeRocprofV1
}

func (b *rocscope) binary() (string, string) {
	return "rocscope", "ROCSCOPE"
}

func (b *rocscope) args(runFile string) []string {
	args := []string{
		"metrics",
		"-p", b.s.cfg.Path,
		"-n", b.s.cfg.Name,
		"-t", runFile,
		"--",
	}
	return append(args, b.s.cfg.App...)
}

func (b *rocscope) collect(string) error {
	return nil
}

func (b *rocscope) finalize() (bool, error) {
	return false, nil
}
