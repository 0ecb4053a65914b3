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
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

var lsblkPairRe = regexp.MustCompile(`([A-Z:\-]+)="([^"]*)"`)

// BlockDeviceList gives full information about blockdevices, from the output of lsblk --json.
type BlockDeviceList struct {
	BlockDevices []BlockDevice `json:"blockdevices,omitempty"`
}

// BlockDevice defines information about a single partition or disk in the output of lsblk.
type BlockDevice struct {
	Name  string `json:"name,omitempty"`
	KName string `json:"kname,omitempty"`
	// on some releases, size is a string, and on some releases, size is a number.
	// This allows both to be parsed
	Size       json.Number   `json:"size,omitempty"`
	Type       string        `json:"type,omitempty"`
	FSType     string        `json:"fstype,omitempty"`
	UUID       string        `json:"uuid,omitempty"`
	MountPoint string        `json:"mountpoint,omitempty"`
	Children   []BlockDevice `json:"children,omitempty"`
}

// ParseBlockDeviceList parses lsblk --json output.
func ParseBlockDeviceList(data []byte) (*BlockDeviceList, error) {
	var list BlockDeviceList
	if err := json.Unmarshal(data, &list); err != nil {
		return nil, fmt.Errorf("failed to parse lsblk json: %w", err)
	}
	return &list, nil
}

// Mounted returns every device, at any depth, mounted at mountpoint.
func (l *BlockDeviceList) Mounted(mountpoint string) []BlockDevice {
	var found []BlockDevice
	var walk func([]BlockDevice)
	walk = func(devs []BlockDevice) {
		for _, d := range devs {
			if d.MountPoint == mountpoint {
				found = append(found, d)
			}
			walk(d.Children)
		}
	}
	walk(l.BlockDevices)
	return found
}

// ParseLsblkPairs parses lsblk -P output, one map of column to value per line.
func ParseLsblkPairs(text string) []map[string]string {
	var rows []map[string]string
	for _, line := range strings.Split(text, "\n") {
		matches := lsblkPairRe.FindAllStringSubmatch(line, -1)
		if len(matches) == 0 {
			continue
		}
		row := make(map[string]string, len(matches))
		for _, m := range matches {
			row[m[1]] = m[2]
		}
		rows = append(rows, row)
	}
	return rows
}

// FstabEntry is one line of /etc/fstab.
type FstabEntry struct {
	Spec    string
	File    string
	VfsType string
	Options string
	Freq    string
	Passno  string
}

// ParseFstab parses fstab content, skipping comments and blank lines.
func ParseFstab(text string) ([]FstabEntry, error) {
	var entries []FstabEntry
	for i, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		f := strings.Fields(line)
		if len(f) < 3 {
			return nil, fmt.Errorf("fstab line %d has %d fields, want at least 3: %q", i+1, len(f), line)
		}
		e := FstabEntry{Spec: f[0], File: f[1], VfsType: f[2]}
		if len(f) > 3 {
			e.Options = f[3]
		}
		if len(f) > 4 {
			e.Freq = f[4]
		}
		if len(f) > 5 {
			e.Passno = f[5]
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// ParseLVMReport parses the rows of an LVM report printed with --noheadings
// and a separator.
func ParseLVMReport(text, separator string) [][]string {
	var rows [][]string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		fields := strings.Split(line, separator)
		for i := range fields {
			fields[i] = strings.TrimSpace(fields[i])
		}
		rows = append(rows, fields)
	}
	return rows
}
