// Package join merges the per-run measurement tables of a split profiling session into one
// table with a single row per kernel dispatch and a single column per counter or metadata field.
package join

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"

	mapset "github.com/deckarep/golang-set/v2"

	"pmcperf/internal/schema"
	"pmcperf/internal/table"
)

var (
	ErrInvalidInput        = errors.New("invalid join input")
	ErrUnsupportedJoinType = errors.New("unrecognized join type")
	ErrKernelMismatch      = errors.New("kernel names differ between joined runs")
	ErrRowCountMismatch    = errors.New("runs recorded different dispatches")
	ErrNoTables            = errors.New("no measurement tables to join")
)

// Output column names of the aggregated timestamps
const (
	BeginColumn = "BeginNs"
	EndColumn   = "EndNs"
)

// RowPolicy decides what happens when runs do not share all of their dispatches
type RowPolicy string

const (
	RowPolicyIgnore RowPolicy = "ignore"
	RowPolicyWarn   RowPolicy = "warn"
	RowPolicyFail   RowPolicy = "fail"
)

// ParseRowPolicy validates a row policy option
func ParseRowPolicy(s string) (RowPolicy, error) {
	switch RowPolicy(s) {
	case RowPolicyIgnore, RowPolicyWarn, RowPolicyFail:
		return RowPolicy(s), nil
	}
	return "", fmt.Errorf("unrecognized row policy %q, options are: %s, %s, %s", s, RowPolicyIgnore, RowPolicyWarn, RowPolicyFail)
}

// Options configure a Joiner
type Options struct {
	Mode      Mode
	Schema    *schema.Schema
	Scheme    schema.Scheme
	RowPolicy RowPolicy // defaults to RowPolicyWarn
	Verbose   bool      // also log successful field reconciliation at info level
	Metrics   []DerivedMetric
}

// Report describes how the input tables were combined
type Report struct {
	InputRows       []int    // rows per input table
	Rows            int      // rows in the joined table
	Unmatched       []int    // rows per input table that did not make it into the joined table
	DivergentFields []string // duplicated fields whose values differed between runs
}

// UnmatchedTotal returns the number of input rows dropped by the join
func (r Report) UnmatchedTotal() int {
	total := 0
	for _, n := range r.Unmatched {
		total += n
	}
	return total
}

// Joiner is stateless, a single Joiner may be used for any number of joins
type Joiner struct {
	opts Options
}

// New validates the options and creates a Joiner
func New(opts Options) (*Joiner, error) {
	if _, err := ParseMode(string(opts.Mode)); err != nil {
		return nil, err
	}
	if opts.Schema == nil {
		return nil, fmt.Errorf("join requires a column schema")
	}
	if opts.RowPolicy == "" {
		opts.RowPolicy = RowPolicyWarn
	}
	if _, err := ParseRowPolicy(string(opts.RowPolicy)); err != nil {
		return nil, err
	}
	for _, f := range []schema.Field{schema.FieldKernelName, schema.FieldGridSize, schema.FieldStartTimestamp, schema.FieldEndTimestamp} {
		if opts.Scheme.Header(f) == "" {
			return nil, fmt.Errorf("scheme %q has no header for %s", opts.Scheme.Name, f)
		}
	}
	return &Joiner{opts: opts}, nil
}

type keyedTable struct {
	t    *table.Table
	keys []DispatchKey
}

// JoinTables merges pre-loaded tables. The inputs are not modified.
func (j *Joiner) JoinTables(tables []*table.Table) (*table.Table, Report, error) {
	var report Report
	if len(tables) == 0 {
		return nil, report, ErrNoTables
	}
	kernelColumn := j.opts.Scheme.Header(schema.FieldKernelName)
	gridColumn := j.opts.Scheme.Header(schema.FieldGridSize)
	var acc keyedTable
	for i, in := range tables {
		if in == nil {
			return nil, report, fmt.Errorf("%w: table %d is nil", ErrInvalidInput, i)
		}
		if err := in.Validate(); err != nil {
			return nil, report, fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
		keys, err := Keys(in, j.opts.Mode, kernelColumn, gridColumn)
		if err != nil {
			return nil, report, fmt.Errorf("table %s: %w", in.Name, err)
		}
		kt := keyedTable{t: in.Clone(), keys: keys}
		if err := kt.t.AddField(KeyColumn, keyStrings(keys)); err != nil {
			return nil, report, fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
		report.InputRows = append(report.InputRows, in.NumRows())
		if i == 0 {
			acc = kt
			continue
		}
		acc = innerJoin(acc, kt, fmt.Sprintf("_%d", i))
	}
	joined := acc.t
	report.Rows = joined.NumRows()
	for _, n := range report.InputRows {
		report.Unmatched = append(report.Unmatched, n-report.Rows)
	}
	if err := j.checkRowCounts(tables, report); err != nil {
		return nil, report, err
	}

	report.DivergentFields = j.reconcileDuplicates(joined)
	j.dropBoringColumns(joined)
	if err := j.checkKernelNames(joined); err != nil {
		return nil, report, err
	}
	j.aggregateTimestamps(joined)
	for _, m := range j.opts.Metrics {
		if err := m.Apply(joined); err != nil {
			return nil, report, err
		}
	}
	joined.DropFields(KeyColumn)
	joined.Name = "pmc_perf"
	return joined, report, nil
}

func keyStrings(keys []DispatchKey) []string {
	s := make([]string, len(keys))
	for i, k := range keys {
		s[i] = k.String()
	}
	return s
}

// innerJoin keeps the rows of left whose key is also in right, in left order.
// Right columns whose names collide with a left column get the suffix.
func innerJoin(left keyedTable, right keyedTable, suffix string) keyedTable {
	rightRows := make(map[DispatchKey]int, len(right.keys))
	for i, k := range right.keys {
		rightRows[k] = i
	}
	var leftIdx, rightIdx []int
	var keys []DispatchKey
	for i, k := range left.keys {
		if r, ok := rightRows[k]; ok {
			leftIdx = append(leftIdx, i)
			rightIdx = append(rightIdx, r)
			keys = append(keys, k)
		}
	}
	out := keyedTable{t: table.New(left.t.Name), keys: keys}
	names := mapset.NewSet[string]()
	for _, field := range left.t.Fields {
		out.t.Fields = append(out.t.Fields, table.Field{Name: field.Name, Values: pick(field.Values, leftIdx)})
		names.Add(field.Name)
	}
	leftNames := names.Clone()
	for _, field := range right.t.Fields {
		if field.Name == KeyColumn {
			continue
		}
		name := field.Name
		if leftNames.Contains(name) {
			name += suffix
			for names.Contains(name) {
				name += suffix
			}
		}
		names.Add(name)
		out.t.Fields = append(out.t.Fields, table.Field{Name: name, Values: pick(field.Values, rightIdx)})
	}
	return out
}

func pick(values []string, idx []int) []string {
	out := make([]string, len(idx))
	for i, j := range idx {
		out[i] = values[j]
	}
	return out
}

func (j *Joiner) checkRowCounts(tables []*table.Table, report Report) error {
	if j.opts.RowPolicy == RowPolicyIgnore || report.UnmatchedTotal() == 0 {
		return nil
	}
	var details []string
	for i, n := range report.Unmatched {
		if n > 0 {
			details = append(details, fmt.Sprintf("%s: %d of %d rows unmatched", tables[i].Name, n, report.InputRows[i]))
			if j.opts.RowPolicy == RowPolicyWarn {
				slog.Warn("dispatches missing from other runs were dropped", slog.String("table", tables[i].Name), slog.Int("unmatched", n), slog.Int("rows", report.InputRows[i]))
			}
		}
	}
	if j.opts.RowPolicy == RowPolicyFail {
		return fmt.Errorf("%w: %s", ErrRowCountMismatch, strings.Join(details, "; "))
	}
	return nil
}

// duplicateFieldHeaders returns the marker of every duplicated metadata field, in check order
func (j *Joiner) duplicateFieldHeaders(t *table.Table) []string {
	var headers []string
	for _, f := range j.opts.Schema.DuplicateFields {
		headers = append(headers, j.opts.Scheme.Header(f))
	}
	legacy := j.opts.Scheme.Header(j.opts.Schema.VGPR.Legacy)
	if legacy != "" && t.FieldIndex(legacy) != -1 {
		headers = append(headers, legacy)
	} else {
		for _, f := range j.opts.Schema.VGPR.Current {
			headers = append(headers, j.opts.Scheme.Header(f))
		}
	}
	return headers
}

// reconcileDuplicates verifies that every column of a duplicated metadata field holds the
// same values. Differences are logged, not corrected. Returns the divergent field markers.
func (j *Joiner) reconcileDuplicates(t *table.Table) []string {
	var divergent []string
	for _, header := range j.duplicateFieldHeaders(t) {
		if header == "" {
			continue
		}
		columns := columnsContaining(t, header)
		if len(columns) == 0 {
			continue
		}
		if !columnsEqual(t, columns) {
			slog.Warn("detected differing values while joining", slog.String("field", header), slog.Any("columns", columns))
			divergent = append(divergent, header)
			continue
		}
		slog.Debug("successfully joined field", slog.String("field", header))
		if j.opts.Verbose {
			slog.Info("successfully joined field", slog.String("field", header))
		}
	}
	return divergent
}

// dropBoringColumns removes per-run copies of metadata, ids, queues, signals, objects,
// and every timestamp apart from dispatch start and end
func (j *Joiner) dropBoringColumns(t *table.Table) {
	markers := append(j.opts.Schema.AllDropMarkers(), j.opts.Schema.TimestampDropMarkers...)
	drop := mapset.NewSet[string]()
	for _, name := range t.ColumnNames() {
		if name == KeyColumn {
			continue
		}
		for _, marker := range markers {
			if strings.Contains(name, marker) {
				drop.Add(name)
				break
			}
		}
	}
	if drop.Cardinality() > 0 {
		slog.Debug("dropping duplicate columns", slog.Int("count", drop.Cardinality()))
		t.DropFields(drop.ToSlice()...)
	}
}

// checkKernelNames requires all kernel name columns to agree row by row and keeps the first
func (j *Joiner) checkKernelNames(t *table.Table) error {
	columns := columnsContaining(t, j.opts.Scheme.Header(schema.FieldKernelName))
	if len(columns) == 0 {
		return fmt.Errorf("%w: no kernel name column remains after join", ErrKernelMismatch)
	}
	first, _ := t.GetField(columns[0])
	for _, name := range columns[1:] {
		other, _ := t.GetField(name)
		for row := range first.Values {
			if first.Values[row] != other.Values[row] {
				return fmt.Errorf("%w: row %d, %s=%q, %s=%q", ErrKernelMismatch, row, columns[0], first.Values[row], name, other.Values[row])
			}
		}
	}
	t.DropFields(columns[1:]...)
	return nil
}

// aggregateTimestamps replaces the per-run start and end timestamps with their row-wise means
func (j *Joiner) aggregateTimestamps(t *table.Table) {
	beginColumns := columnsContaining(t, j.opts.Scheme.Header(schema.FieldStartTimestamp))
	endColumns := columnsContaining(t, j.opts.Scheme.Header(schema.FieldEndTimestamp))
	begin := rowMeans(t, beginColumns)
	end := rowMeans(t, endColumns)
	t.DropFields(beginColumns...)
	t.DropFields(endColumns...)
	t.Fields = append(t.Fields, table.Field{Name: BeginColumn, Values: begin}, table.Field{Name: EndColumn, Values: end})
}

func columnsContaining(t *table.Table, marker string) []string {
	var names []string
	for _, name := range t.ColumnNames() {
		if strings.Contains(name, marker) {
			names = append(names, name)
		}
	}
	return names
}

func columnsEqual(t *table.Table, columns []string) bool {
	first, _ := t.GetField(columns[0])
	for _, name := range columns[1:] {
		other, _ := t.GetField(name)
		for row := range first.Values {
			if !table.CellsEqual(first.Values[row], other.Values[row]) {
				return false
			}
		}
	}
	return true
}

// rowMeans returns the arithmetic mean of the numeric cells of each row across columns.
// Rows with no numeric cell get an empty value.
func rowMeans(t *table.Table, columns []string) []string {
	means := make([]string, t.NumRows())
	fields := make([]table.Field, 0, len(columns))
	for _, name := range columns {
		f, _ := t.GetField(name)
		fields = append(fields, f)
	}
	for row := range means {
		sum, n := 0.0, 0
		for _, f := range fields {
			if v, ok := table.ParseFloat(f.Values[row]); ok {
				sum += v
				n++
			}
		}
		mean := math.NaN()
		if n > 0 {
			mean = sum / float64(n)
		}
		means[row] = table.FormatFloat(mean)
	}
	return means
}
