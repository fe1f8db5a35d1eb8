package profiler

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/pkg/errors"

	"pmcperf/internal/util"
)

// SysinfoFileName is written to the workload directory by every profiling session
const SysinfoFileName = "sysinfo.csv"

// DefaultIPBlocks are recorded when no IP block selection was made
var DefaultIPBlocks = []string{"SQ", "LDS", "SQC", "TA", "TD", "TCP", "TCC", "SPI", "CPC", "CPF"}

var sysinfoHeader = []string{
	"workload_name",
	"command",
	"host_name",
	"host_os",
	"host_arch",
	"host_cpus",
	"date",
	"session_id",
	"profiler",
	"ip_blocks",
}

// now is replaced in tests
var now = time.Now

// Sysinfo describes the host and the profiled workload
type Sysinfo struct {
	WorkloadName string
	Command      []string
	Hostname     string
	OS           string
	Arch         string
	CPUs         int
	Date         string
	SessionID    string
	Profiler     string
	IPBlocks     []string
}

// CollectSysinfo fills in the host details of the local machine
func CollectSysinfo(workloadName string, command []string, sessionID string, profiler string, ipBlocks []string) Sysinfo {
	hostname, err := os.Hostname()
	if err != nil {
		hostname = "unknown"
	}
	var blocks []string
	for _, b := range ipBlocks {
		blocks = util.UniqueAppend(blocks, strings.ToUpper(strings.TrimSpace(b)))
	}
	if len(blocks) == 0 {
		blocks = DefaultIPBlocks
	}
	t := now()
	zone, _ := t.Zone()
	return Sysinfo{
		WorkloadName: workloadName,
		Command:      command,
		Hostname:     hostname,
		OS:           runtime.GOOS,
		Arch:         runtime.GOARCH,
		CPUs:         runtime.NumCPU(),
		Date:         fmt.Sprintf("%s (%s)", t.Format(time.ANSIC), zone),
		SessionID:    sessionID,
		Profiler:     profiler,
		IPBlocks:     blocks,
	}
}

// Write the sysinfo as a two row CSV file in dir
func (s Sysinfo) Write(dir string) (path string, err error) {
	path = filepath.Join(dir, SysinfoFileName)
	file, err := os.Create(path) // #nosec G304
	if err != nil {
		err = errors.Wrap(err, "failed to create sysinfo file")
		return
	}
	defer func() {
		if closeErr := file.Close(); closeErr != nil && err == nil {
			err = errors.Wrap(closeErr, "failed to close sysinfo file")
		}
	}()
	w := csv.NewWriter(file)
	record := []string{
		s.WorkloadName,
		strings.Join(s.Command, " "),
		s.Hostname,
		s.OS,
		s.Arch,
		fmt.Sprint(s.CPUs),
		s.Date,
		s.SessionID,
		s.Profiler,
		strings.Join(s.IPBlocks, "|"),
	}
	if err = w.WriteAll([][]string{sysinfoHeader, record}); err != nil {
		err = errors.Wrap(err, "failed to write sysinfo file")
	}
	return
}
