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

// Package lvmroot tests that an install with the root filesystem on LVM
// produced the expected layout.
package lvmroot

import (
	"flag"
	"path/filepath"
	"time"

	"github.com/osinstaller/vmtests"
)

// Name is the name of the test suite.
var Name = "lvmroot"

var testExcludeFilter = flag.String("lvmroot_test_exclude_filter", "", "Regex filter that excludes lvmroot test cases. Only cases with a matching test name will be skipped.")

const (
	// RootFSToken and BootFSToken are replaced in the install configuration
	// by the filesystem of / and /boot.
	RootFSToken = "__ROOTFS_FORMAT__"
	BootFSToken = "__BOOTFS_FORMAT__"

	// RootFSUUID is the filesystem UUID the configurations give to /.
	RootFSUUID = "04836770-e989-460f-8774-8e277ddcb40f"

	collectScript = `cd OUTPUT_COLLECT_D
cat /etc/fstab > fstab
lsblk --json --fs -o KNAME,MOUNTPOINT,UUID,FSTYPE > lsblk.json
lsblk --fs -P -o KNAME,MOUNTPOINT,UUID,FSTYPE > lsblk.out
ls -al /dev/disk/by-dname > ls_al_dname
ls -al /dev/disk/by-id > ls_al_byid
ls -al /dev/disk/by-uuid > ls_al_byuuid
ls -al /dev/mapper > ls_al_dev_mapper
pvdisplay -C --separator = -o vg_name,pv_name --noheadings > pvs
lvdisplay -C --separator = -o lv_name,vg_name --noheadings > lvs
pvdisplay > pvdisplay
vgdisplay > vgdisplay
lvdisplay > lvdisplay
ls -al /dev/root_vg/ > dev_root_vg
`
	tests = "^(TestOutputFilesExist|TestFstab|TestRootfsFormat|TestLVMLayout)$"
)

type lvmCase struct {
	release vmtest.Release
	test    string
	conf    string
	rootFS  string
	bootFS  string
	// skipBug and fixBy skip a known broken case until a date.
	skipBug string
	fixBy   time.Time
}

var cases = []lvmCase{
	{release: vmtest.Trusty, test: "TestLvmRootExt4", conf: "lvmroot.yaml", rootFS: "ext4"},
	{release: vmtest.Trusty, test: "TestLvmRootXfs", conf: "lvmroot.yaml", rootFS: "xfs"},
	{release: vmtest.Xenial, test: "TestLvmRootExt4", conf: "lvmroot.yaml", rootFS: "ext4"},
	{release: vmtest.Xenial, test: "TestLvmRootXfs", conf: "lvmroot.yaml", rootFS: "xfs"},
	{release: vmtest.Xenial, test: "TestUefiLvmRootExt4", conf: "uefi_lvmroot.yaml", rootFS: "ext4", bootFS: "ext4"},
	{release: vmtest.Xenial, test: "TestUefiLvmRootXfs", conf: "uefi_lvmroot.yaml", rootFS: "xfs", bootFS: "ext4"},
	{
		release: vmtest.Xenial, test: "TestUefiLvmRootXfsBootXfs", conf: "uefi_lvmroot.yaml", rootFS: "xfs", bootFS: "xfs",
		skipBug: "1652822", fixBy: time.Date(2019, 6, 1, 0, 0, 0, 0, time.UTC),
	},
}

// TestSetup returns the suite's workflows. Install configurations are read
// from confDir.
func TestSetup(confDir string) ([]*vmtest.TestWorkflow, error) {
	var twfs []*vmtest.TestWorkflow
	for _, c := range cases {
		replace := map[string]string{RootFSToken: c.rootFS}
		if c.bootFS != "" {
			replace[BootFSToken] = c.bootFS
		}
		t, err := vmtest.NewTestWorkflow(&vmtest.TestWorkflowOpts{
			Name:          Name,
			Case:          c.release.CaseName(c.test),
			Release:       c.release,
			ConfFile:      filepath.Join(confDir, c.conf),
			ConfReplace:   replace,
			ExcludeFilter: *testExcludeFilter,
		})
		if err != nil {
			return nil, err
		}
		t.AddCollectScript(collectScript)
		t.RunTests(tests)
		if c.skipBug != "" {
			t.SkipByDate(c.skipBug, c.fixBy)
		}
		twfs = append(twfs, t)
	}
	return twfs, nil
}
