// Package common defines data structures and functions that are used by multiple
// application commands, e.g., split, join, profile.
package common

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"pmcperf/internal/stats"
)

var AppName = filepath.Base(os.Args[0])

// LevelTrace is below slog.LevelDebug, used for function entry and exit in long workflows
const LevelTrace = slog.LevelDebug - 4

// Trace logs entry to the named function at LevelTrace and returns a func that logs the exit,
// e.g., defer common.Trace("PreProcessing")()
func Trace(name string) func() {
	slog.Log(context.Background(), LevelTrace, "enter", slog.String("func", name))
	return func() {
		slog.Log(context.Background(), LevelTrace, "exit", slog.String("func", name))
	}
}

// AppContext represents the application context that can be accessed from all commands.
type AppContext struct {
	Timestamp   string // Timestamp is the time the application was started, used to name output.
	OutputDir   string // OutputDir is the directory where the application will write output files.
	LogFilePath string // LogFilePath is the path to the application log file, empty when logging to stdout.
	MetricsFile string // MetricsFile is the path of the Prometheus textfile to write on exit, if any.
	Version     string // Version is the version of the application.
	Debug       bool   // Debug is true when the application runs with --debug.
	SessionID   string // SessionID identifies this invocation in logs, metrics, and sysinfo.
	Recorder    *stats.Recorder
}

// GetAppContext returns the AppContext stored in the root command's context
func GetAppContext(cmd *cobra.Command) (AppContext, error) {
	for c := cmd; c != nil; c = c.Parent() {
		if ctx := c.Context(); ctx != nil {
			if appContext, ok := ctx.Value(AppContext{}).(AppContext); ok {
				return appContext, nil
			}
		}
	}
	return AppContext{}, errors.New("application context not initialized")
}

type Flag struct {
	Name string
	Help string
}
type FlagGroup struct {
	GroupName string
	Flags     []Flag
}

// FlagValidationError is used to report an error with a flag
func FlagValidationError(cmd *cobra.Command, msg string) error {
	err := errors.New(msg)
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	fmt.Fprintf(os.Stderr, "See '%s --help' for usage details.\n", cmd.CommandPath())
	cmd.SilenceUsage = true
	return err
}

// CommandError reports an error encountered while running a command
func CommandError(cmd *cobra.Command, err error) error {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	slog.Error(err.Error())
	cmd.SilenceUsage = true
	return err
}

// CreateOutputDir creates the output directory if it does not exist
func CreateOutputDir(outputDir string) error {
	err := os.MkdirAll(outputDir, 0755) // #nosec G301
	if err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	return nil
}

// SignalContext returns a context that is canceled on SIGINT or SIGTERM. Child processes
// started with exec.CommandContext on the returned context are killed when it is canceled.
func SignalContext(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)
	sigChannel := make(chan os.Signal, 1)
	signal.Notify(sigChannel, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case sig := <-sigChannel:
			slog.Info("received signal", slog.String("signal", sig.String()))
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigChannel)
	}()
	return ctx, cancel
}

// SummaryItem is one labeled count printed after a command completes
type SummaryItem struct {
	Label string
	Value int
}

// PrintSummary writes counts, with thousands separators, followed by the list of files
// produced by a command
func PrintSummary(w io.Writer, items []SummaryItem, heading string, files []string) {
	p := message.NewPrinter(language.English)
	for _, item := range items {
		p.Fprintf(w, "%s: %d\n", item.Label, item.Value)
	}
	if len(files) > 0 {
		fmt.Fprintf(w, "%s:\n", heading)
	}
	for _, file := range files {
		fmt.Fprintf(w, "  %s\n", file)
	}
}
