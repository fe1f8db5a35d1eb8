package join

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"

	"pmcperf/internal/table"
	"pmcperf/internal/util"
)

// Per-run measurement table naming, pmc_perf_<index>.csv, and the joined output name
const (
	RunTablePrefix   = "pmc_perf_"
	RunTableSuffix   = ".csv"
	JoinedTableName  = "pmc_perf"
	RunArchiveName   = "pmc_perf_runs.tgz"
	FormatCSV        = "csv"
	FormatXlsx       = "xlsx"
	defaultOutputExt = ".csv"
)

// Input is either a directory holding per-run tables or a list of pre-loaded tables, not both
type Input struct {
	Path   string
	Tables []*table.Table
}

// Output controls persistence when joining a directory
type Output struct {
	Path       string   // joined CSV, defaults to <dir>/pmc_perf.csv
	Formats    []string // FormatCSV is always written; FormatXlsx adds a workbook next to the CSV
	KeepInputs bool     // retain per-run tables, e.g., in debug mode
	Archive    bool     // pack per-run tables into pmc_perf_runs.tgz before removing them
}

// Result of a join
type Result struct {
	Table  *table.Table
	Report Report
	Inputs []string // per-run files read, directory input only
	Files  []string // files written, directory input only
}

// Join dispatches on the shape of the input. Tables are joined in memory and nothing is
// written; a directory is joined and persisted according to out.
func (j *Joiner) Join(in Input, out Output) (Result, error) {
	switch {
	case in.Path != "" && in.Tables == nil:
		return j.JoinDirectory(in.Path, out)
	case in.Path == "" && in.Tables != nil:
		t, report, err := j.JoinTables(in.Tables)
		return Result{Table: t, Report: report}, err
	default:
		return Result{}, fmt.Errorf("%w: provide either a workload directory or a list of tables", ErrInvalidInput)
	}
}

// JoinDirectory joins every pmc_perf_<index>.csv in dir, ordered by index, and writes the result
func (j *Joiner) JoinDirectory(dir string, out Output) (Result, error) {
	var result Result
	exists, err := util.DirectoryExists(dir)
	if err != nil {
		return result, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if !exists {
		return result, fmt.Errorf("%w: directory %s does not exist", ErrInvalidInput, dir)
	}
	files, err := util.IndexedFiles(dir, RunTablePrefix, RunTableSuffix)
	if err != nil {
		return result, err
	}
	if len(files) == 0 {
		return result, fmt.Errorf("%w: no %s*%s files in %s", ErrNoTables, RunTablePrefix, RunTableSuffix, dir)
	}
	result.Inputs = files
	var tables []*table.Table
	for _, file := range files {
		slog.Debug("loading measurement table", slog.String("file", file))
		t, err := table.ReadCSV(file)
		if err != nil {
			return result, err
		}
		tables = append(tables, t)
	}
	joined, report, err := j.JoinTables(tables)
	result.Report = report
	if err != nil {
		return result, err
	}
	result.Table = joined

	outPath := out.Path
	if outPath == "" {
		outPath = filepath.Join(dir, JoinedTableName+defaultOutputExt)
	}
	if err := joined.WriteCSV(outPath); err != nil {
		return result, fmt.Errorf("failed to write joined table: %w", err)
	}
	result.Files = append(result.Files, outPath)
	if slices.Contains(out.Formats, FormatXlsx) {
		xlsxPath := outPath[:len(outPath)-len(filepath.Ext(outPath))] + ".xlsx"
		if err := joined.WriteXlsx(xlsxPath); err != nil {
			return result, fmt.Errorf("failed to write joined workbook: %w", err)
		}
		result.Files = append(result.Files, xlsxPath)
	}
	slog.Info("joined measurement tables", slog.String("output", outPath), slog.Int("runs", len(files)), slog.Int("rows", report.Rows))

	if out.KeepInputs {
		return result, nil
	}
	if out.Archive {
		archivePath := filepath.Join(filepath.Dir(outPath), RunArchiveName)
		if err := util.CreateFlatTGZ(files, archivePath); err != nil {
			return result, fmt.Errorf("failed to archive per-run tables: %w", err)
		}
		result.Files = append(result.Files, archivePath)
	}
	for _, file := range files {
		if err := os.Remove(file); err != nil {
			return result, fmt.Errorf("failed to remove per-run table: %w", err)
		}
	}
	return result, nil
}
