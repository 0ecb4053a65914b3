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
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/osinstaller/vmtests/verify"
)

const collectDir = "testdata/collect"

func TestOutputFilesExist(t *testing.T) {
	if err := OutputFilesExist(collectDir, "fstab", "ip_link_show_eth1.2667"); err != nil {
		t.Errorf("OutputFilesExist() = %v, want nil", err)
	}

	err := OutputFilesExist(collectDir, "route_n", "fstab", "ifconfig_a")
	var missing *verify.MissingArtifactError
	if !errors.As(err, &missing) {
		t.Fatalf("OutputFilesExist() err = %v, want *MissingArtifactError", err)
	}
	if diff := cmp.Diff([]string{"route_n", "ifconfig_a"}, missing.Files); diff != "" {
		t.Errorf("OutputFilesExist() missing files unexpected (-want +got):\n%s", diff)
	}

	// A directory is not a collected file.
	if err := OutputFilesExist("testdata", "collect"); err == nil {
		t.Errorf("OutputFilesExist() on a directory returned nil error")
	}
}

func TestCheckFileRegex(t *testing.T) {
	if err := CheckFileRegex(collectDir, "ip_link_show_eth1.2667", "vlan protocol 802.1Q id 2667"); err != nil {
		t.Errorf("CheckFileRegex() = %v, want nil", err)
	}
	if err := CheckFileRegex(collectDir, "ip_link_show_eth1.2667", "vlan id 2667"); err == nil {
		t.Errorf("CheckFileRegex() with non matching pattern returned nil error")
	}
	if err := CheckFileRegex(collectDir, "ip_link_show_eth1.2667", "("); err == nil {
		t.Errorf("CheckFileRegex() with invalid pattern returned nil error")
	}
	if err := CheckFileRegex(collectDir, "missing", "."); err == nil {
		t.Errorf("CheckFileRegex() on missing file returned nil error")
	}
}

func TestExists(t *testing.T) {
	tests := []struct {
		path string
		typ  FileType
		want bool
	}{
		{"testdata/collect/fstab", TypeFile, true},
		{"testdata/collect/fstab", TypeDir, false},
		{"testdata/collect", TypeDir, true},
		{"testdata/collect", TypeFile, false},
		{"testdata/nothing", TypeFile, false},
		{"testdata/collect/fstab", FileType(7), false},
	}
	for _, tc := range tests {
		if got := Exists(tc.path, tc.typ); got != tc.want {
			t.Errorf("Exists(%q, %v) = %v, want %v", tc.path, tc.typ, got, tc.want)
		}
	}
}

func TestMetadata(t *testing.T) {
	t.Setenv(MetadataEnv, "")
	md := GetMetadata(t)
	if md.Suite != "network" || md.Release != "ubuntu-1604-xenial" {
		t.Errorf("GetMetadata() = %+v, want network suite on xenial", md)
	}
	if md.CollectDir != filepath.Join("testdata", "collect") {
		t.Errorf("GetMetadata().CollectDir = %q, want it resolved against testdata", md.CollectDir)
	}
	ns := md.NetworkState(t)
	if _, ok := ns.Interfaces["eth1.2667"]; !ok {
		t.Errorf("NetworkState() has no eth1.2667: %v", ns.Interfaces)
	}

	path := filepath.Join(t.TempDir(), "run", MetadataFile)
	out := &Metadata{
		Suite:       "lvmroot",
		Case:        "XenialTestLvmRootXfs",
		Release:     "ubuntu-1604-xenial",
		ConfFile:    "/abs/lvmroot.yaml",
		ConfReplace: map[string]string{"__ROOTFS_FORMAT__": "xfs"},
		CollectDir:  "collect",
	}
	if err := WriteMetadata(path, out); err != nil {
		t.Fatalf("WriteMetadata() failed: %v", err)
	}
	t.Setenv(MetadataEnv, path)
	in := GetMetadata(t)
	want := *out
	want.CollectDir = filepath.Join(filepath.Dir(path), "collect")
	if diff := cmp.Diff(&want, in); diff != "" {
		t.Errorf("metadata round trip unexpected (-want +got):\n%s", diff)
	}
}

func TestReadMetadataErrors(t *testing.T) {
	dir := t.TempDir()
	noCollect := filepath.Join(dir, "nocollect.yaml")
	if err := os.WriteFile(noCollect, []byte("suite: network\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := ReadMetadata(noCollect); !errors.Is(err, ErrNoCollectDir) {
		t.Errorf("ReadMetadata() err = %v, want %v", err, ErrNoCollectDir)
	}
	if _, err := ReadMetadata(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Errorf("ReadMetadata() of missing file returned nil error")
	}
	if _, err := (&Metadata{Suite: "network"}).Config(); err == nil {
		t.Errorf("Config() without conf_file returned nil error")
	}
}
