// Package descriptor reads counter-group descriptor files and splits them into
// single counter-group run descriptors, one per profiling pass.
package descriptor

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

import (
	"bufio"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

const (
	commentMarker = "#"
	// CounterMarker prefixes every counter directive
	CounterMarker = "pmc:"
)

// Filter section headers of a run descriptor
const (
	SectionDevice = "gpu:"
	SectionRange  = "range:"
	SectionKernel = "kernel:"
)

var rxCounterDirective = regexp.MustCompile(`^` + CounterMarker + `(.*)`)

// Descriptor is the parsed content of a counter-group descriptor file
type Descriptor struct {
	Path       string
	Directives []string // counter directives in source order, comments stripped
}

// Counters returns the counter names listed by directive i
func (d Descriptor) Counters(i int) []string {
	m := rxCounterDirective.FindStringSubmatch(d.Directives[i])
	if m == nil {
		return nil
	}
	return strings.Fields(m[1])
}

// Read loads a counter-group descriptor file.
// Lines that are blank or comment-only are skipped, as are non-blank lines that are not
// counter directives.
func Read(path string) (Descriptor, error) {
	file, err := os.Open(path) // #nosec G304
	if err != nil {
		return Descriptor{}, fmt.Errorf("failed to open counter descriptor: %w", err)
	}
	defer file.Close()
	d := Descriptor{Path: path}
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		text, _, _ := strings.Cut(scanner.Text(), commentMarker)
		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}
		if !rxCounterDirective.MatchString(text) {
			slog.Debug("ignoring non-counter directive", slog.String("file", path), slog.String("line", text))
			continue
		}
		d.Directives = append(d.Directives, text)
	}
	if err := scanner.Err(); err != nil {
		return Descriptor{}, fmt.Errorf("failed to read counter descriptor: %w", err)
	}
	return d, nil
}

// RunDescriptorPath returns the path of the i-th split file for a source descriptor,
// e.g., perfmon/pmc_perf.txt -> perfmon/pmc_perf_3.txt
func RunDescriptorPath(sourcePath string, i int) string {
	ext := filepath.Ext(sourcePath)
	stem := strings.TrimSuffix(sourcePath, ext)
	return fmt.Sprintf("%s_%d%s", stem, i, ext)
}

// RunDescriptorContent renders a run descriptor with one directive and empty filter sections
func RunDescriptorContent(directive string) string {
	var sb strings.Builder
	sb.WriteString(directive + "\n\n")
	sb.WriteString(SectionDevice + "\n")
	sb.WriteString(SectionRange + "\n")
	sb.WriteString(SectionKernel + "\n")
	return sb.String()
}

// Split writes one run descriptor per counter directive found in the descriptor at path,
// in the same directory, numbered from 0 in source order. The source file is removed once
// all run descriptors are written. Run descriptors already written when a later write fails
// are left in place.
func Split(path string) ([]string, error) {
	d, err := Read(path)
	if err != nil {
		return nil, err
	}
	var written []string
	for i, directive := range d.Directives {
		runPath := RunDescriptorPath(path, i)
		if err := os.WriteFile(runPath, []byte(RunDescriptorContent(directive)), 0644); err != nil { // #nosec G306
			return written, fmt.Errorf("failed to write run descriptor: %w", err)
		}
		slog.Debug("wrote run descriptor", slog.String("file", runPath), slog.Any("counters", d.Counters(i)))
		written = append(written, runPath)
	}
	if err := os.Remove(path); err != nil {
		return written, fmt.Errorf("failed to remove counter descriptor: %w", err)
	}
	slog.Info("split counter descriptor", slog.String("file", path), slog.Int("runs", len(written)))
	return written, nil
}
