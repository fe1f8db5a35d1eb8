package join

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

import (
	"fmt"
	"strings"

	"pmcperf/internal/table"
)

// Mode selects how rows are aligned across runs
type Mode string

const (
	// ModeKernel keys a row by kernel name and occurrence count of that name
	ModeKernel Mode = "kernel"
	// ModeGrid keys a row by kernel name, grid size, and occurrence count of that pair
	ModeGrid Mode = "grid"
)

// Modes lists the supported join modes
var Modes = []Mode{ModeKernel, ModeGrid}

// ParseMode validates a join mode option
func ParseMode(s string) (Mode, error) {
	for _, m := range Modes {
		if string(m) == s {
			return m, nil
		}
	}
	return "", fmt.Errorf("%w: %q, options are: %s, %s", ErrUnsupportedJoinType, s, ModeKernel, ModeGrid)
}

// KeyColumn is the name of the key column attached to each table while joining
const KeyColumn = "key"

// DispatchKey identifies the same logical kernel invocation across runs
type DispatchKey struct {
	Kernel  string
	Grid    string // empty in kernel mode
	Ordinal int
	mode    Mode
}

func (k DispatchKey) String() string {
	if k.mode == ModeGrid {
		return fmt.Sprintf("%s - %s - %d", k.Kernel, k.Grid, k.Ordinal)
	}
	return fmt.Sprintf("%s - %d", k.Kernel, k.Ordinal)
}

// Keys computes the dispatch key of every row in t.
// kernelColumn and gridColumn are exact column names; gridColumn is only used in grid mode.
func Keys(t *table.Table, mode Mode, kernelColumn string, gridColumn string) ([]DispatchKey, error) {
	kernels, err := t.GetField(kernelColumn)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	keys := make([]DispatchKey, t.NumRows())
	switch mode {
	case ModeKernel:
		seen := make(map[string]int)
		for i, name := range kernels.Values {
			keys[i] = DispatchKey{Kernel: name, Ordinal: seen[name], mode: mode}
			seen[name]++
		}
	case ModeGrid:
		grids, err := t.GetField(gridColumn)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
		seen := make(map[[2]string]int)
		for i, name := range kernels.Values {
			grid := strings.TrimSpace(grids.Values[i])
			pair := [2]string{name, grid}
			keys[i] = DispatchKey{Kernel: name, Grid: grid, Ordinal: seen[pair], mode: mode}
			seen[pair]++
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedJoinType, mode)
	}
	return keys, nil
}
