package profiler

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

// Runner executes an external command and returns its combined stdout and stderr
type Runner interface {
	Run(ctx context.Context, name string, args []string) (output string, exitCode int, err error)
}

// ExecRunner runs commands on the local host. When Echo is set, output is also copied to it
// as it is produced.
type ExecRunner struct {
	Echo io.Writer
	Env  []string // added to the inherited environment
}

// Run the command, canceling it when ctx is done
func (r ExecRunner) Run(ctx context.Context, name string, args []string) (output string, exitCode int, err error) {
	cmd := exec.CommandContext(ctx, name, args...) // #nosec G204 // nosemgrep
	if len(r.Env) > 0 {
		cmd.Env = append(os.Environ(), r.Env...)
	}
	slog.Debug("running local command", slog.String("cmd", cmd.String()))
	var outbuf bytes.Buffer
	var w io.Writer = &outbuf
	if r.Echo != nil {
		w = io.MultiWriter(&outbuf, r.Echo)
	}
	cmd.Stdout = w
	cmd.Stderr = w
	err = cmd.Run()
	output = outbuf.String()
	if err != nil {
		exitError := &exec.ExitError{}
		if errors.As(err, &exitError) {
			exitCode = exitError.ExitCode()
		} else {
			exitCode = -1
		}
		err = errors.Wrapf(err, "failed to run %s", filepath.Base(name))
	}
	return
}

// ResolveBinary finds the profiler executable. An explicit path wins, then the value of the
// environment variable envVar, then the default name. When the environment variable names
// something that cannot be found the default name is tried. The result has symlinks resolved.
func ResolveBinary(defaultName string, envVar string, explicit string) (string, error) {
	candidates := []string{}
	if explicit != "" {
		candidates = append(candidates, explicit)
	} else {
		if envVar != "" {
			if v := strings.TrimSpace(os.Getenv(envVar)); v != "" {
				candidates = append(candidates, v)
			}
		}
		candidates = append(candidates, defaultName)
	}
	for _, candidate := range candidates {
		path, err := exec.LookPath(candidate)
		if err != nil {
			slog.Debug("profiler binary not found", slog.String("candidate", candidate), slog.String("error", err.Error()))
			continue
		}
		resolved, err := filepath.EvalSymlinks(path)
		if err != nil {
			return "", errors.Wrapf(err, "failed to resolve %s", path)
		}
		resolved, err = filepath.Abs(resolved)
		if err != nil {
			return "", errors.Wrapf(err, "failed to resolve %s", path)
		}
		slog.Info("resolved profiler binary", slog.String("path", resolved))
		return resolved, nil
	}
	hint := ""
	if envVar != "" && explicit == "" {
		hint = ", verify the installation or set the " + envVar + " environment variable to its full path"
	}
	return "", errors.Errorf("unable to resolve path to %s binary%s", candidates[0], hint)
}
