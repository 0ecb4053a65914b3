// Copyright 2024 Google LLC.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package utils contains commonly needed utility functions for test suites
// that inspect the artifacts collected from an installed system.
package utils

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/osinstaller/vmtests/verify"
)

// OutputFilesExist checks that every named file was collected into dir. All
// missing names are reported together.
func OutputFilesExist(dir string, names ...string) error {
	var missing []string
	for _, name := range names {
		if !Exists(filepath.Join(dir, name), TypeFile) {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return &verify.MissingArtifactError{Files: missing}
	}
	return nil
}

// ReadCollected returns the content of a collected file.
func ReadCollected(dir, name string) (string, error) {
	data, err := os.ReadFile(filepath.Join(dir, name))
	if err != nil {
		return "", fmt.Errorf("failed to read collected file %s: %w", name, err)
	}
	return string(data), nil
}

// CheckFileRegex checks that the collected file matches pattern.
func CheckFileRegex(dir, name, pattern string) error {
	content, err := ReadCollected(dir, name)
	if err != nil {
		return err
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return fmt.Errorf("invalid pattern %q: %w", pattern, err)
	}
	if !re.MatchString(content) {
		return fmt.Errorf("%s does not match %q:\n%s", name, pattern, content)
	}
	return nil
}

// MustReadCollected reads a collected file, failing the test if it can't.
func MustReadCollected(t *testing.T, dir, name string) string {
	t.Helper()
	content, err := ReadCollected(dir, name)
	if err != nil {
		t.Fatal(err)
	}
	t.Logf("%s:\n%s", name, content)
	return content
}

// FileType represents the type of file to check.
type FileType int

const (
	// TypeFile represents a file.
	TypeFile FileType = iota
	// TypeDir represents a directory.
	TypeDir
)

// Exists checks if a file or directory exists.
func Exists(path string, fileType FileType) bool {
	fileInfo, err := os.Stat(path)
	if err != nil {
		return false
	}

	switch fileType {
	case TypeFile:
		return !fileInfo.IsDir()
	case TypeDir:
		return fileInfo.IsDir()
	default:
		return false
	}
}
