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

package utils

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/osinstaller/vmtests/installconf"
	"gopkg.in/yaml.v3"
)

const (
	// MetadataEnv names the environment variable holding the path of the run
	// metadata file given to a test suite binary.
	MetadataEnv = "VMTEST_METADATA"
	// MetadataFile is the name of the run metadata file in a run directory.
	MetadataFile = "metadata.yaml"
)

var (
	// ErrNoCollectDir is returned when run metadata names no collect directory.
	ErrNoCollectDir = errors.New("run metadata has no collect_dir")
)

// Metadata describes one test run: which suite and case it is, which
// release was installed, the install configuration and where the collected
// artifacts are.
type Metadata struct {
	Suite       string            `yaml:"suite"`
	Case        string            `yaml:"case"`
	Release     string            `yaml:"release"`
	ConfFile    string            `yaml:"conf_file"`
	ConfReplace map[string]string `yaml:"conf_replace,omitempty"`
	CollectDir  string            `yaml:"collect_dir"`
}

// ReadMetadata reads run metadata. Relative paths in it are resolved against
// the directory of the metadata file.
func ReadMetadata(path string) (*Metadata, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read run metadata: %w", err)
	}
	var md Metadata
	if err := yaml.Unmarshal(data, &md); err != nil {
		return nil, fmt.Errorf("failed to parse run metadata %s: %w", path, err)
	}
	if md.CollectDir == "" {
		return nil, fmt.Errorf("%s: %w", path, ErrNoCollectDir)
	}
	base := filepath.Dir(path)
	md.CollectDir = resolve(base, md.CollectDir)
	if md.ConfFile != "" {
		md.ConfFile = resolve(base, md.ConfFile)
	}
	return &md, nil
}

func resolve(base, p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(base, p)
}

// WriteMetadata writes run metadata to path.
func WriteMetadata(path string, md *Metadata) error {
	data, err := yaml.Marshal(md)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// GetMetadata returns the metadata of the run under test. Outside of a run
// the suite's testdata/metadata.yaml is used.
func GetMetadata(t *testing.T) *Metadata {
	t.Helper()
	path := os.Getenv(MetadataEnv)
	if path == "" {
		path = filepath.Join("testdata", MetadataFile)
	}
	md, err := ReadMetadata(path)
	if err != nil {
		t.Fatalf("failed to get run metadata: %v", err)
	}
	return md
}

// Config loads the install configuration of the run with its replacements
// applied.
func (m *Metadata) Config() (*installconf.Config, error) {
	if m.ConfFile == "" {
		return nil, fmt.Errorf("run %s/%s has no conf_file", m.Suite, m.Case)
	}
	return installconf.Load(m.ConfFile, m.ConfReplace)
}

// NetworkState loads the install configuration and returns its network state,
// failing the test on error.
func (m *Metadata) NetworkState(t *testing.T) *installconf.NetworkState {
	t.Helper()
	cfg, err := m.Config()
	if err != nil {
		t.Fatal(err)
	}
	ns, err := cfg.NetworkState()
	if err != nil {
		t.Fatal(err)
	}
	return ns
}
