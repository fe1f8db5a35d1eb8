// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

// Package table provides the column-oriented representation of profiler measurement tables.
package table

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Field represents the values for a named column in a table
type Field struct {
	Name   string
	Values []string
}

// Table is an ordered list of equal-length fields.
// Each index into the field values is one row, i.e., one kernel dispatch.
type Table struct {
	Name   string
	Fields []Field
}

// New creates an empty table
func New(name string) *Table {
	return &Table{Name: name}
}

// NumRows returns the number of rows in the table
func (t *Table) NumRows() int {
	if len(t.Fields) == 0 {
		return 0
	}
	return len(t.Fields[0].Values)
}

// ColumnNames returns the field names in order
func (t *Table) ColumnNames() []string {
	names := make([]string, len(t.Fields))
	for i, field := range t.Fields {
		names[i] = field.Name
	}
	return names
}

// FieldIndex returns the index of the named field or -1 if not found
func (t *Table) FieldIndex(name string) int {
	for i, field := range t.Fields {
		if field.Name == name {
			return i
		}
	}
	return -1
}

// GetField returns the named field
func (t *Table) GetField(name string) (Field, error) {
	idx := t.FieldIndex(name)
	if idx == -1 {
		return Field{}, fmt.Errorf("field [%s] not found in table [%s]", name, t.Name)
	}
	return t.Fields[idx], nil
}

// AddField appends a field. The number of values must match the existing rows.
func (t *Table) AddField(name string, values []string) error {
	if name == "" {
		return fmt.Errorf("table %s, field name cannot be empty", t.Name)
	}
	if t.FieldIndex(name) != -1 {
		return fmt.Errorf("table %s, field %s already exists", t.Name, name)
	}
	if len(t.Fields) > 0 && len(values) != t.NumRows() {
		return fmt.Errorf("table %s, field %s, expected %d values, got %d", t.Name, name, t.NumRows(), len(values))
	}
	t.Fields = append(t.Fields, Field{Name: name, Values: values})
	return nil
}

// DropFields removes the named fields, names not present are ignored
func (t *Table) DropFields(names ...string) {
	drop := make(map[string]bool, len(names))
	for _, name := range names {
		drop[name] = true
	}
	kept := t.Fields[:0]
	for _, field := range t.Fields {
		if !drop[field.Name] {
			kept = append(kept, field)
		}
	}
	t.Fields = kept
}

// Row returns the values of row i in field order
func (t *Table) Row(i int) []string {
	row := make([]string, len(t.Fields))
	for j, field := range t.Fields {
		row[j] = field.Values[i]
	}
	return row
}

// Clone returns a deep copy of the table
func (t *Table) Clone() *Table {
	c := &Table{Name: t.Name, Fields: make([]Field, len(t.Fields))}
	for i, field := range t.Fields {
		c.Fields[i] = Field{Name: field.Name, Values: append([]string(nil), field.Values...)}
	}
	return c
}

// Validate checks that field names are non-empty, unique, and that all fields have the same length
func (t *Table) Validate() error {
	if len(t.Fields) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(t.Fields))
	numEntries := len(t.Fields[0].Values)
	for i, field := range t.Fields {
		if field.Name == "" {
			return fmt.Errorf("table %s, field %d, name cannot be empty", t.Name, i)
		}
		if seen[field.Name] {
			return fmt.Errorf("table %s, field %d, %s, duplicate field name", t.Name, i, field.Name)
		}
		seen[field.Name] = true
		if len(field.Values) != numEntries {
			return fmt.Errorf("table %s, field %d, %s, number of entries must be the same for all fields, expected %d, got %d", t.Name, i, field.Name, numEntries, len(field.Values))
		}
	}
	return nil
}

// ReadCSV loads a table from a CSV file with a header row. The table is named after the file.
func ReadCSV(path string) (*Table, error) {
	file, err := os.Open(path) // #nosec G304
	if err != nil {
		return nil, err
	}
	defer file.Close()
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	t, err := ParseCSV(file, name)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return t, nil
}

// ParseCSV loads a table from CSV formatted input with a header row.
// Repeated header names are made unique by appending .1, .2, ...
func ParseCSV(r io.Reader, name string) (*Table, error) {
	reader := csv.NewReader(r)
	header, err := reader.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("no header row")
	}
	if err != nil {
		return nil, err
	}
	t := New(name)
	counts := make(map[string]int)
	for _, columnName := range header {
		unique := columnName
		if n := counts[columnName]; n > 0 {
			unique = fmt.Sprintf("%s.%d", columnName, n)
		}
		counts[columnName]++
		t.Fields = append(t.Fields, Field{Name: unique})
	}
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		for i := range t.Fields {
			t.Fields[i].Values = append(t.Fields[i].Values, record[i])
		}
	}
	return t, t.Validate()
}

// WriteCSV writes the table to a CSV file
func (t *Table) WriteCSV(path string) error {
	file, err := os.Create(path) // #nosec G304
	if err != nil {
		return err
	}
	err = t.Encode(file)
	closeErr := file.Close()
	if err != nil {
		return err
	}
	return closeErr
}

// Encode writes the table as CSV with a header row
func (t *Table) Encode(w io.Writer) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(t.ColumnNames()); err != nil {
		return err
	}
	for i := range t.NumRows() {
		if err := writer.Write(t.Row(i)); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// ParseFloat converts a cell to a number. Empty and non-numeric cells are not numbers.
func ParseFloat(value string) (float64, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil || math.IsNaN(f) {
		return 0, false
	}
	return f, true
}

// FormatFloat converts a number to a cell, NaN becomes an empty cell
func FormatFloat(value float64) string {
	if math.IsNaN(value) {
		return ""
	}
	return strconv.FormatFloat(value, 'f', -1, 64)
}

// CellsEqual reports whether two cells hold the same value, either as identical
// text or as numbers that compare equal, e.g., "256" and "256.0".
func CellsEqual(a, b string) bool {
	if a == b {
		return true
	}
	fa, okA := ParseFloat(a)
	fb, okB := ParseFloat(b)
	return okA && okB && fa == fb
}
