// Package schema defines the column taxonomy used to reconcile profiler measurement tables.
// The taxonomy is configuration: a default is embedded, and a replacement can be loaded
// from a YAML file when a new profiler version introduces new column names.
package schema

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

import (
	"embed"
	"fmt"
	"os"
	"slices"
	"sort"
	"strings"

	mapset "github.com/deckarep/golang-set/v2"
	"gopkg.in/yaml.v2"
)

//go:embed resources
var resources embed.FS

const defaultSchemaPath = "resources/schema.yaml"

// Field identifies a semantic column class, independent of the profiler's naming.
type Field string

const (
	FieldKernelName         Field = "kernel_name"
	FieldGridSize           Field = "grid_size"
	FieldGPUID              Field = "gpu_id"
	FieldWorkgroupSize      Field = "workgroup_size"
	FieldLDSPerWorkgroup    Field = "lds_per_workgroup"
	FieldScratchPerWorkitem Field = "scratch_per_workitem"
	FieldSGPR               Field = "sgpr"
	FieldLegacyVGPR         Field = "legacy_vgpr"
	FieldArchVGPR           Field = "arch_vgpr"
	FieldAccumVGPR          Field = "accum_vgpr"
	FieldStartTimestamp     Field = "start_timestamp"
	FieldEndTimestamp       Field = "end_timestamp"
)

// Profiler output schemes shipped in the default schema
const (
	SchemeRocprofV1 = "rocprofv1"
	SchemeRocprofV2 = "rocprofv2"
)

// requiredFields must be mapped by every scheme, the join cannot run without them
var requiredFields = []Field{FieldKernelName, FieldGridSize, FieldStartTimestamp, FieldEndTimestamp}

// Scheme maps semantic fields to the column names of one profiler output format.
type Scheme struct {
	Name    string           `yaml:"-"`
	Headers map[Field]string `yaml:"headers"`
}

// Header returns the column name, or marker substring, for the field
func (s Scheme) Header(field Field) string {
	return s.Headers[field]
}

// VGPRFields describes the two register naming variants
type VGPRFields struct {
	Legacy  Field   `yaml:"legacy"`
	Current []Field `yaml:"current"`
}

// MarkerGroup is a named list of column-name substrings
type MarkerGroup struct {
	Name    string   `yaml:"name"`
	Markers []string `yaml:"markers"`
}

// Schema is the full column taxonomy
type Schema struct {
	Schemes              map[string]Scheme `yaml:"schemes"`
	DuplicateFields      []Field           `yaml:"duplicate_fields"`
	VGPR                 VGPRFields        `yaml:"vgpr"`
	DropMarkers          []MarkerGroup     `yaml:"drop_markers"`
	TimestampDropMarkers []string          `yaml:"timestamp_drop_markers"`
}

// Default returns the embedded schema
func Default() (*Schema, error) {
	data, err := resources.ReadFile(defaultSchemaPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read embedded schema: %w", err)
	}
	return Parse(data)
}

// Load reads a schema from a YAML file
func Load(path string) (*Schema, error) {
	data, err := os.ReadFile(path) // #nosec G304
	if err != nil {
		return nil, fmt.Errorf("failed to read schema file: %w", err)
	}
	s, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("invalid schema file %s: %w", path, err)
	}
	return s, nil
}

// Parse decodes and validates a YAML schema
func Parse(data []byte) (*Schema, error) {
	var s Schema
	if err := yaml.UnmarshalStrict(data, &s); err != nil {
		return nil, err
	}
	if err := s.validate(); err != nil {
		return nil, err
	}
	for name, scheme := range s.Schemes {
		scheme.Name = name
		s.Schemes[name] = scheme
	}
	return &s, nil
}

func (s *Schema) validate() error {
	if len(s.Schemes) == 0 {
		return fmt.Errorf("no schemes defined")
	}
	needed := mapset.NewSet(requiredFields...)
	needed.Append(s.DuplicateFields...)
	needed.Append(s.VGPR.Current...)
	if s.VGPR.Legacy != "" {
		needed.Add(s.VGPR.Legacy)
	}
	for name, scheme := range s.Schemes {
		mapped := mapset.NewSet[Field]()
		for field, header := range scheme.Headers {
			if strings.TrimSpace(header) != "" {
				mapped.Add(field)
			}
		}
		if missing := needed.Difference(mapped); missing.Cardinality() > 0 {
			fields := make([]string, 0, missing.Cardinality())
			for f := range missing.Iter() {
				fields = append(fields, string(f))
			}
			sort.Strings(fields)
			return fmt.Errorf("scheme %s is missing headers for: %s", name, strings.Join(fields, ", "))
		}
	}
	for _, group := range s.DropMarkers {
		if slices.Contains(group.Markers, "") {
			return fmt.Errorf("drop marker group %s contains an empty marker", group.Name)
		}
	}
	if slices.Contains(s.TimestampDropMarkers, "") {
		return fmt.Errorf("timestamp drop markers contain an empty marker")
	}
	return nil
}

// Scheme returns the named output scheme
func (s *Schema) Scheme(name string) (Scheme, error) {
	scheme, ok := s.Schemes[name]
	if !ok {
		return Scheme{}, fmt.Errorf("unknown output scheme %q, options are: %s", name, strings.Join(s.SchemeNames(), ", "))
	}
	return scheme, nil
}

// SchemeNames returns the configured scheme names, sorted
func (s *Schema) SchemeNames() []string {
	names := make([]string, 0, len(s.Schemes))
	for name := range s.Schemes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// AllDropMarkers returns the markers of every group, in file order.
// All groups apply regardless of the scheme in use.
func (s *Schema) AllDropMarkers() []string {
	var markers []string
	for _, group := range s.DropMarkers {
		markers = append(markers, group.Markers...)
	}
	return markers
}
