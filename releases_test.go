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

package vmtest

import (
	"testing"

	"github.com/osinstaller/vmtests/utils/exceptions"
)

func TestReleaseID(t *testing.T) {
	tests := []struct {
		release Release
		id      string
		name    string
	}{
		{Precise, "ubuntu-1204-precise", "precise"},
		{PreciseHWET, "ubuntu-1204-precise-hwe-t", "precise-hwe-t"},
		{Trusty, "ubuntu-1404-trusty", "trusty"},
		{TrustyHWEW, "ubuntu-1404-trusty-hwe-w", "trusty-hwe-w"},
		{Wily, "ubuntu-1510-wily", "wily"},
		{Xenial, "ubuntu-1604-xenial", "xenial"},
	}
	for _, tc := range tests {
		if got := tc.release.ID(); got != tc.id {
			t.Errorf("%v.ID() = %q, want %q", tc.release, got, tc.id)
		}
		if got := tc.release.String(); got != tc.name {
			t.Errorf("%v.String() = %q, want %q", tc.release, got, tc.name)
		}
		for _, s := range []string{tc.id, tc.name} {
			got, err := ParseRelease(s)
			if err != nil {
				t.Errorf("ParseRelease(%q) failed: %v", s, err)
			} else if got != tc.release {
				t.Errorf("ParseRelease(%q) = %v, want %v", s, got, tc.release)
			}
		}
	}
	if got := TrustyHWEU.CaseName("TestNetworkStatic"); got != "TrustyHWEUTestNetworkStatic" {
		t.Errorf("CaseName() = %q, want TrustyHWEUTestNetworkStatic", got)
	}
	if got := Xenial.CaseName("TestLvmRootXfs"); got != "XenialTestLvmRootXfs" {
		t.Errorf("CaseName() = %q, want XenialTestLvmRootXfs", got)
	}
	if _, err := ParseRelease("bionic"); err == nil {
		t.Errorf("ParseRelease(bionic) returned nil error")
	}
}

func TestReleaseIDsMatchExceptions(t *testing.T) {
	if !exceptions.MatchAll(TrustyHWEU.ID(), exceptions.ReleaseTrusty) {
		t.Errorf("%s does not match %s", TrustyHWEU.ID(), exceptions.ReleaseTrusty)
	}
	if !exceptions.MatchAll(TrustyHWEU.ID(), exceptions.ReleaseHWE) {
		t.Errorf("%s does not match %s", TrustyHWEU.ID(), exceptions.ReleaseHWE)
	}
	if exceptions.MatchAll(Xenial.ID(), exceptions.ReleaseHWE) {
		t.Errorf("%s matches %s", Xenial.ID(), exceptions.ReleaseHWE)
	}
	if got := exceptions.Version(Vivid.ID()); got != 1504 {
		t.Errorf("Version(%s) = %d, want 1504", Vivid.ID(), got)
	}
}
