package profiler

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

import (
	"log/slog"
	"path/filepath"
	"slices"

	"github.com/pkg/errors"

	"pmcperf/internal/join"
	"pmcperf/internal/table"
	"pmcperf/internal/util"
)

// TimestampsFileName is the table of dispatch timestamps some rocprof versions record separately
const TimestampsFileName = "timestamps.csv"

// ReplaceTimestamps overwrites the BeginNs and EndNs columns of every CSV table in dir with the
// ones in timestamps.csv. It returns the rewritten files. A timestamps table without both
// columns is logged and leaves the tables unchanged.
func ReplaceTimestamps(dir string) ([]string, error) {
	stampsPath := filepath.Join(dir, TimestampsFileName)
	exists, err := util.FileExists(stampsPath)
	if err != nil {
		return nil, errors.Wrap(err, "failed to check for timestamps table")
	}
	if !exists {
		slog.Debug("no timestamps table, keeping measured timestamps", slog.String("dir", dir))
		return nil, nil
	}
	stamps, err := table.ReadCSV(stampsPath)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read timestamps table")
	}
	begin, beginErr := stamps.GetField(join.BeginColumn)
	end, endErr := stamps.GetField(join.EndColumn)
	if beginErr != nil || endErr != nil {
		slog.Warn("incomplete profiling data detected, unable to update timestamps", slog.String("file", stampsPath))
		return nil, nil
	}
	matches, err := filepath.Glob(filepath.Join(dir, "*.csv"))
	if err != nil {
		return nil, errors.Wrap(err, "failed to list tables")
	}
	slices.Sort(matches)
	var rewritten []string
	for _, path := range matches {
		if base := filepath.Base(path); base == SysinfoFileName || base == TimestampsFileName {
			continue
		}
		t, err := table.ReadCSV(path)
		if err != nil {
			return rewritten, errors.Wrapf(err, "failed to read %s", path)
		}
		setColumn(t, join.BeginColumn, begin.Values)
		setColumn(t, join.EndColumn, end.Values)
		if err := t.WriteCSV(path); err != nil {
			return rewritten, errors.Wrapf(err, "failed to write %s", path)
		}
		rewritten = append(rewritten, path)
	}
	slog.Info("replaced timestamps", slog.Int("files", len(rewritten)))
	return rewritten, nil
}

// setColumn replaces or appends a column, aligned by row index. Rows beyond the end of values
// get an empty cell.
func setColumn(t *table.Table, name string, values []string) {
	aligned := make([]string, t.NumRows())
	copy(aligned, values)
	if idx := t.FieldIndex(name); idx != -1 {
		t.Fields[idx].Values = aligned
		return
	}
	t.Fields = append(t.Fields, table.Field{Name: name, Values: aligned})
}

