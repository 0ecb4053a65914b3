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
	"fmt"
	"strings"
	"testing"

	"github.com/osinstaller/vmtests/utils"
	"github.com/osinstaller/vmtests/utils/exceptions"
)

func linkFile(name string) string {
	return "ip_link_show_" + name
}

func TestOutputFilesExistVlan(t *testing.T) {
	md := utils.GetMetadata(t)
	files := []string{"vlan_installed"}
	for _, vlan := range md.NetworkState(t).VLANs() {
		files = append(files, linkFile(vlan.Name))
	}
	if err := utils.OutputFilesExist(md.CollectDir, files...); err != nil {
		t.Fatal(err)
	}
}

func TestVlanInstalled(t *testing.T) {
	md := utils.GetMetadata(t)
	status := strings.TrimSpace(utils.MustReadCollected(t, md.CollectDir, "vlan_installed"))
	if status != "install ok installed" {
		t.Errorf("vlan package status is %q, want %q", status, "install ok installed")
	}
}

func TestVlanEnabled(t *testing.T) {
	md := utils.GetMetadata(t)
	vlans := md.NetworkState(t).VLANs()
	if len(vlans) == 0 {
		t.Fatal("no vlan interfaces configured")
	}
	for _, vlan := range vlans {
		if err := utils.CheckFileRegex(md.CollectDir, linkFile(vlan.Name), fmt.Sprintf(vlanDetailFormat(md.Release), vlan.VlanID)); err != nil {
			t.Error(err)
		}
	}
}

// vlanDetailFormat is the `ip -d link show` vlan detail line on release.
// Up to precise the protocol is not printed.
func vlanDetailFormat(release string) string {
	if exceptions.MatchAll(release, exceptions.ReleaseUbuntu, exceptions.Exception{Version: 1204, Type: exceptions.LessThanOrEqualTo}) {
		return "vlan id %d"
	}
	return "vlan protocol 802.1Q id %d"
}
