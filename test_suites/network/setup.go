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

// Package network is a vmtest suite verifying the network configuration an
// installer wrote to the installed system.
package network

import (
	"flag"
	"path/filepath"
	"slices"
	"strings"

	"github.com/osinstaller/vmtests"
)

// Name is the name of the test package. It must match the directory name.
var Name = "network"

var testExcludeFilter = flag.String("network_test_exclude_filter", "", "Regex filter that excludes network test cases. Only cases with a matching test name will be skipped.")

const (
	collectScript = `cd OUTPUT_COLLECT_D
ifconfig -a > ifconfig_a
cp -av /etc/network/interfaces .
cp /etc/resolv.conf .
cp -av /etc/udev/rules.d/70-persistent-net.rules .
ip -o route show > ip_route_show
route -n > route_n
cp -av /run/network ./run_network
`
	vlanCollectScript = `cd OUTPUT_COLLECT_D
dpkg-query -W -f '${Status}' vlan > vlan_installed
ip -d link show eth1.2667 > ip_link_show_eth1.2667
ip -d link show eth1.2668 > ip_link_show_eth1.2668
ip -d link show eth1.2669 > ip_link_show_eth1.2669
ip -d link show eth1.2670 > ip_link_show_eth1.2670
`

	hangReason = "hangs at: Starting execute cloud user/final scripts"
	hweReason  = "off by default to save suite runtime, covered by bonding"
)

var (
	baseTests = []string{"TestOutputFilesExist", "TestEtcNetworkInterfaces", "TestEtcResolvconf", "TestIfconfigOutput", "TestIfstate", "TestKernelRoutes"}
	vlanTests = []string{"TestOutputFilesExistVlan", "TestVlanInstalled", "TestVlanEnabled"}
)

type variant struct {
	test     string
	conf     string
	vlan     bool
	releases []releaseCase
}

type releaseCase struct {
	release vmtest.Release
	// disabled is why the case does not run by default.
	disabled string
}

var plain = []releaseCase{
	{vmtest.PreciseHWET, hangReason},
	{vmtest.Trusty, ""},
	{vmtest.TrustyHWEU, hweReason},
	{vmtest.TrustyHWEV, hweReason},
	{vmtest.TrustyHWEW, hweReason},
	{vmtest.Vivid, ""},
	{vmtest.Wily, ""},
	{vmtest.Xenial, ""},
}

var variants = []variant{
	{test: "TestNetwork", conf: "basic_network.yaml", releases: plain},
	{test: "TestNetworkStatic", conf: "basic_network_static.yaml", releases: plain},
	{test: "TestNetworkVlan", conf: "vlan_network.yaml", vlan: true, releases: []releaseCase{
		{vmtest.Precise, ""},
		{vmtest.Trusty, ""},
		{vmtest.Vivid, ""},
		{vmtest.Wily, ""},
		{vmtest.Xenial, ""},
	}},
}

// TestSetup returns the suite's workflows. Install configurations are read
// from confDir.
func TestSetup(confDir string) ([]*vmtest.TestWorkflow, error) {
	var twfs []*vmtest.TestWorkflow
	for _, v := range variants {
		for _, rc := range v.releases {
			t, err := vmtest.NewTestWorkflow(&vmtest.TestWorkflowOpts{
				Name:          Name,
				Case:          rc.release.CaseName(v.test),
				Release:       rc.release,
				ConfFile:      filepath.Join(confDir, v.conf),
				ExcludeFilter: *testExcludeFilter,
			})
			if err != nil {
				return nil, err
			}
			t.AddCollectScript(collectScript)
			tests := baseTests
			if v.vlan {
				t.AddCollectScript(vlanCollectScript)
				tests = append(slices.Clone(tests), vlanTests...)
			}
			t.RunTests("^(" + strings.Join(tests, "|") + ")$")
			// The image does not rename interfaces itself yet.
			if rc.release == vmtest.Xenial && !v.vlan {
				t.ExtraKernArgs = "net.ifnames=0"
			}
			if rc.disabled != "" {
				t.Disable(rc.disabled)
			}
			twfs = append(twfs, t)
		}
	}
	return twfs, nil
}
