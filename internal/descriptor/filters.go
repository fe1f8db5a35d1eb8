package descriptor

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

import (
	"fmt"
	"os"
	"strings"
)

// Filters holds the values injected into a run descriptor's filter sections.
// A nil list leaves the corresponding section unchanged.
type Filters struct {
	Devices    []string // device ids, space separated in the gpu: section
	Dispatches []string // dispatch ranges, space separated in the range: section
	Kernels    []string // kernel names, comma separated in the kernel: section
}

// IsEmpty reports whether no filter is set
func (f Filters) IsEmpty() bool {
	return f.Devices == nil && f.Dispatches == nil && f.Kernels == nil
}

// ApplyFilters rewrites the filter sections of the run descriptor at path in place
func ApplyFilters(path string, filters Filters) error {
	if filters.IsEmpty() {
		return nil
	}
	content, err := os.ReadFile(path) // #nosec G304
	if err != nil {
		return fmt.Errorf("failed to read run descriptor: %w", err)
	}
	lines := strings.Split(string(content), "\n")
	for i, line := range lines {
		switch {
		case filters.Kernels != nil && strings.HasPrefix(line, SectionKernel):
			lines[i] = SectionKernel + " " + strings.Join(filters.Kernels, ",")
		case filters.Dispatches != nil && strings.HasPrefix(line, SectionRange):
			lines[i] = SectionRange + " " + strings.Join(filters.Dispatches, " ")
		case filters.Devices != nil && strings.HasPrefix(line, SectionDevice):
			lines[i] = SectionDevice + " " + strings.Join(filters.Devices, " ")
		}
	}
	if err := os.WriteFile(path, []byte(strings.Join(lines, "\n")), 0644); err != nil { // #nosec G306
		return fmt.Errorf("failed to write run descriptor: %w", err)
	}
	return nil
}
