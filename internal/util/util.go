/*
Package util includes utility/helper functions that may be useful to other modules.
*/
package util

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

import (
	"archive/tar"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/user"
	"path/filepath"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/klauspost/compress/gzip"
)

// ExpandUser expands '~' to user's home directory, if found, otherwise returns original path
func ExpandUser(path string) string {
	usr, err := user.Current()
	if err != nil {
		return path
	}
	if path == "~" {
		return usr.HomeDir
	} else if strings.HasPrefix(path, "~"+string(os.PathSeparator)) {
		return filepath.Join(usr.HomeDir, path[2:])
	} else {
		return path
	}
}

// AbsPath returns absolute path after expanding '~' to user's home dir
// Use everywhere in place of filepath.Abs()
func AbsPath(path string) (string, error) {
	return filepath.Abs(ExpandUser(path))
}

// FileExists checks if a file exists at the given path.
// It returns a boolean indicating whether the file exists, and an error if the
// path refers to a non-regular file, e.g., a directory.
func FileExists(path string) (exists bool, err error) {
	var fileInfo fs.FileInfo
	fileInfo, err = os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			exists = false
			err = nil
			return
		}
		return
	}
	if !fileInfo.Mode().IsRegular() {
		err = fmt.Errorf("%s not a file", path)
		return
	}
	exists = true
	return
}

// DirectoryExists checks if the specified directory exists.
// It returns a boolean indicating whether the directory exists and an error if the
// path refers to anything other than a directory, e.g., a regular file.
func DirectoryExists(path string) (exists bool, err error) {
	var fileInfo fs.FileInfo
	fileInfo, err = os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			exists = false
			err = nil
			return
		}
		return
	}
	if !fileInfo.Mode().IsDir() {
		err = fmt.Errorf("%s not a directory", path)
		return
	}
	exists = true
	return
}

// FileOrDirectoryExists checks if a file or directory exists at the given file path.
func FileOrDirectoryExists(filePath string) bool {
	if _, err := os.Stat(filePath); os.IsNotExist(err) {
		return false
	}
	return true
}

// CreateDirectoryIfNotExists creates a directory at the specified path if it does not already exist.
func CreateDirectoryIfNotExists(dir string, perm os.FileMode) error {
	if FileOrDirectoryExists(dir) {
		return nil
	}
	if err := os.MkdirAll(dir, perm); err != nil {
		return fmt.Errorf("failed to create directory: '%s', error: '%s'", dir, err.Error())
	}
	return nil
}

// CopyFile copies a file from the source path to the destination path.
// If the destination path is a directory, the file will be copied with the same name to that directory.
func CopyFile(srcFile, dstFile string) error {
	src, err := os.Open(srcFile) // #nosec G304
	if err != nil {
		return err
	}
	defer src.Close()
	dstFileStat, err := os.Stat(dstFile)
	if err == nil && dstFileStat.IsDir() {
		dstFile = filepath.Join(dstFile, filepath.Base(srcFile))
	}
	dest, err := os.Create(dstFile) // #nosec G304
	if err != nil {
		return err
	}
	_, err = io.Copy(dest, src)
	closeErr := dest.Close()
	if err != nil {
		return err
	}
	return closeErr
}

// UniqueAppend appends an item to a slice if it is not already present
func UniqueAppend[T comparable](slice []T, item T) []T {
	if slices.Contains(slice, item) {
		return slice
	}
	return append(slice, item)
}

// IndexedFiles returns the files in dir named <prefix><index><suffix>, ordered by index.
// Files whose index part is not an integer are ignored.
func IndexedFiles(dir, prefix, suffix string) ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, prefix+"*"+suffix))
	if err != nil {
		return nil, err
	}
	type indexed struct {
		path  string
		index int
	}
	var files []indexed
	for _, match := range matches {
		base := filepath.Base(match)
		idx, err := strconv.Atoi(strings.TrimSuffix(strings.TrimPrefix(base, prefix), suffix))
		if err != nil {
			continue
		}
		files = append(files, indexed{path: match, index: idx})
	}
	slices.SortFunc(files, func(a, b indexed) int { return a.index - b.index })
	paths := make([]string, 0, len(files))
	for _, f := range files {
		paths = append(paths, f.path)
	}
	return paths, nil
}

// IsValidWorkloadName reports whether name is usable as a workload name:
// at most 35 characters, not empty, and free of '.' and '-'.
func IsValidWorkloadName(name string) bool {
	re := regexp.MustCompile(`^[^.\-]{1,35}$`)
	return re.MatchString(name)
}

// CreateFlatTGZ writes the given files into a gzip compressed tarball at tarballPath.
// Entries are stored flat, using the base name of each file.
func CreateFlatTGZ(files []string, tarballPath string) (err error) {
	tarball, err := os.Create(tarballPath) // #nosec G304
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := tarball.Close(); err == nil {
			err = closeErr
		}
	}()
	gzipWriter := gzip.NewWriter(tarball)
	tarWriter := tar.NewWriter(gzipWriter)
	for _, file := range files {
		if err = addFileToTar(tarWriter, file); err != nil {
			return err
		}
	}
	if err = tarWriter.Close(); err != nil {
		return err
	}
	return gzipWriter.Close()
}

func addFileToTar(tarWriter *tar.Writer, file string) error {
	info, err := os.Stat(file)
	if err != nil {
		return err
	}
	if !info.Mode().IsRegular() {
		return fmt.Errorf("%s not a file", file)
	}
	header, err := tar.FileInfoHeader(info, "")
	if err != nil {
		return err
	}
	header.Name = filepath.Base(file)
	if err := tarWriter.WriteHeader(header); err != nil {
		return err
	}
	f, err := os.Open(file) // #nosec G304
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = io.Copy(tarWriter, f)
	return err
}
