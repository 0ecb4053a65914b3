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

// Package collect gathers artifacts from an installed system into a collect
// directory and moves collect directories between machines.
package collect

import (
	"archive/tar"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/osinstaller/vmtests"
	"github.com/sirupsen/logrus"
)

// runScript runs a shell script and returns its combined output.
var runScript = func(ctx context.Context, script string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, "bash", "-s")
	cmd.Stdin = strings.NewReader(script)
	return cmd.CombinedOutput()
}

// Render replaces the collect directory token of a collect script by dir.
func Render(script, dir string) string {
	return strings.ReplaceAll(script, vmtest.CollectDirToken, dir)
}

// Scripts runs the collect scripts on the local system, in order, with their
// output going to dir. A failing script does not stop the others; all
// failures are returned joined.
func Scripts(ctx context.Context, dir string, scripts []string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create collect dir: %w", err)
	}
	var errs []error
	for i, script := range scripts {
		out, err := runScript(ctx, Render(script, dir))
		logrus.WithField("script", i).Debugf("collect output:\n%s", out)
		if err != nil {
			logrus.WithField("script", i).Warnf("collect script failed: %v", err)
			errs = append(errs, fmt.Errorf("collect script %d: %w: %s", i, err, out))
		}
	}
	return errors.Join(errs...)
}

// Untar unpacks a tar stream into dir. Entries escaping dir are rejected.
func Untar(r io.Reader, dir string) error {
	tr := tar.NewReader(r)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to read tar stream: %w", err)
		}
		dst, err := localPath(dir, hdr.Name)
		if err != nil {
			return err
		}
		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(dst, 0755); err != nil {
				return err
			}
		case tar.TypeReg:
			if err := writeFile(dst, tr, hdr.FileInfo().Mode().Perm()); err != nil {
				return err
			}
		default:
			logrus.Debugf("skipping tar entry %s of type %c", hdr.Name, hdr.Typeflag)
		}
	}
}

// localPath maps a slash separated relative name to a path under dir.
func localPath(dir, name string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(strings.TrimPrefix(name, "./")))
	if clean == "." {
		return dir, nil
	}
	if filepath.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("artifact path %q escapes the collect dir", name)
	}
	return filepath.Join(dir, clean), nil
}

func writeFile(dst string, r io.Reader, perm os.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return err
	}
	if perm == 0 {
		perm = 0644
	}
	f, err := os.OpenFile(dst, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, perm)
	if err != nil {
		return err
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		return fmt.Errorf("failed to write %s: %w", dst, err)
	}
	return f.Close()
}
