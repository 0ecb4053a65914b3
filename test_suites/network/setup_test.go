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

package network

import (
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestSetupMatrix(t *testing.T) {
	twfs, err := TestSetup("configs")
	if err != nil {
		t.Fatalf("TestSetup() failed: %v", err)
	}
	var enabled []string
	byCase := make(map[string]int)
	for i, twf := range twfs {
		byCase[twf.Case] = i
		if skipped, _ := twf.Skipped(time.Now()); !skipped {
			enabled = append(enabled, twf.Case)
		}
	}
	want := []string{
		"TrustyTestNetwork", "VividTestNetwork", "WilyTestNetwork", "XenialTestNetwork",
		"TrustyTestNetworkStatic", "VividTestNetworkStatic", "WilyTestNetworkStatic", "XenialTestNetworkStatic",
		"PreciseTestNetworkVlan", "TrustyTestNetworkVlan", "VividTestNetworkVlan", "WilyTestNetworkVlan", "XenialTestNetworkVlan",
	}
	if diff := cmp.Diff(want, enabled); diff != "" {
		t.Errorf("enabled cases unexpected (-want +got):\n%s", diff)
	}

	xenial := twfs[byCase["XenialTestNetworkStatic"]]
	if xenial.ExtraKernArgs != "net.ifnames=0" {
		t.Errorf("XenialTestNetworkStatic kernel args = %q, want net.ifnames=0", xenial.ExtraKernArgs)
	}
	if xenial.ConfFile != filepath.Join("configs", "basic_network_static.yaml") {
		t.Errorf("XenialTestNetworkStatic ConfFile = %q", xenial.ConfFile)
	}

	vlan := twfs[byCase["WilyTestNetworkVlan"]]
	if len(vlan.CollectScripts) != 2 {
		t.Errorf("WilyTestNetworkVlan has %d collect scripts, want 2", len(vlan.CollectScripts))
	}
	if !strings.Contains(vlan.TestRun(), "TestVlanEnabled") {
		t.Errorf("WilyTestNetworkVlan does not run TestVlanEnabled: %q", vlan.TestRun())
	}
	if strings.Contains(twfs[byCase["WilyTestNetwork"]].TestRun(), "Vlan") {
		t.Errorf("WilyTestNetwork runs vlan tests")
	}
	for _, script := range vlan.CollectScripts {
		if !strings.HasPrefix(script, "cd OUTPUT_COLLECT_D\n") {
			t.Errorf("collect script does not enter the collect directory:\n%s", script)
		}
	}
}

func TestVlanDetailFormat(t *testing.T) {
	tests := []struct {
		release string
		want    string
	}{
		{"ubuntu-1204-precise", "vlan id %d"},
		{"ubuntu-1204-precise-hwe-t", "vlan id %d"},
		{"ubuntu-1404-trusty", "vlan protocol 802.1Q id %d"},
		{"ubuntu-1510-wily", "vlan protocol 802.1Q id %d"},
		{"ubuntu-1604-xenial", "vlan protocol 802.1Q id %d"},
	}
	for _, tc := range tests {
		if got := vlanDetailFormat(tc.release); got != tc.want {
			t.Errorf("vlanDetailFormat(%q) = %q, want %q", tc.release, got, tc.want)
		}
	}
}
