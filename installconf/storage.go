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

package installconf

import (
	"errors"
	"fmt"
)

// Storage item types.
const (
	StorageDisk         = "disk"
	StoragePartition    = "partition"
	StorageLVMVolgroup  = "lvm_volgroup"
	StorageLVMPartition = "lvm_partition"
	StorageFormat       = "format"
	StorageMount        = "mount"
)

// ErrNoRootMount is returned when the storage configuration mounts nothing
// at "/".
var ErrNoRootMount = errors.New("no mount for / in storage config")

// StorageConfig is the version 1 storage configuration section.
type StorageConfig struct {
	Version int           `yaml:"version"`
	Config  []StorageItem `yaml:"config"`
}

// StorageItem is one entry of the storage configuration. Entries refer to
// each other by ID.
type StorageItem struct {
	ID       string   `yaml:"id"`
	Type     string   `yaml:"type"`
	Name     string   `yaml:"name"`
	Ptable   string   `yaml:"ptable"`
	Serial   string   `yaml:"serial"`
	Size     string   `yaml:"size"`
	Flag     string   `yaml:"flag"`
	Device   string   `yaml:"device"`
	Devices  []string `yaml:"devices"`
	Volgroup string   `yaml:"volgroup"`
	Volume   string   `yaml:"volume"`
	FSType   string   `yaml:"fstype"`
	UUID     string   `yaml:"uuid"`
	Path     string   `yaml:"path"`
}

// VolumeGroup is an LVM volume group and the logical volumes carved from it.
type VolumeGroup struct {
	Name string
	// Devices are the storage IDs of the physical volumes.
	Devices []string
	LVs     []string
}

// Mount is a filesystem the installed system is expected to mount.
type Mount struct {
	Path   string
	FSType string
	UUID   string
	// Volume is the storage ID of the formatted volume.
	Volume string
}

func (s StorageConfig) byID() map[string]StorageItem {
	items := make(map[string]StorageItem, len(s.Config))
	for _, it := range s.Config {
		items[it.ID] = it
	}
	return items
}

// VolumeGroups returns the volume groups in configuration order.
func (s StorageConfig) VolumeGroups() ([]VolumeGroup, error) {
	var vgs []VolumeGroup
	index := make(map[string]int)
	for _, it := range s.Config {
		if it.Type != StorageLVMVolgroup {
			continue
		}
		index[it.ID] = len(vgs)
		vgs = append(vgs, VolumeGroup{Name: it.Name, Devices: it.Devices})
	}
	for _, it := range s.Config {
		if it.Type != StorageLVMPartition {
			continue
		}
		i, ok := index[it.Volgroup]
		if !ok {
			return nil, fmt.Errorf("lvm_partition %q refers to unknown volgroup %q", it.ID, it.Volgroup)
		}
		vgs[i].LVs = append(vgs[i].LVs, it.Name)
	}
	return vgs, nil
}

// Mounts resolves every mount entry to the format it mounts.
func (s StorageConfig) Mounts() ([]Mount, error) {
	items := s.byID()
	var mounts []Mount
	for _, it := range s.Config {
		if it.Type != StorageMount {
			continue
		}
		f, ok := items[it.Device]
		if !ok || f.Type != StorageFormat {
			return nil, fmt.Errorf("mount %q refers to %q which is not a format entry", it.ID, it.Device)
		}
		mounts = append(mounts, Mount{Path: it.Path, FSType: f.FSType, UUID: f.UUID, Volume: f.Volume})
	}
	return mounts, nil
}

// RootMount returns the mount for "/".
func (s StorageConfig) RootMount() (Mount, error) {
	mounts, err := s.Mounts()
	if err != nil {
		return Mount{}, err
	}
	for _, m := range mounts {
		if m.Path == "/" {
			return m, nil
		}
	}
	return Mount{}, ErrNoRootMount
}
