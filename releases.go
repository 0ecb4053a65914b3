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
	"fmt"
	"strings"
)

// Release is an installable release, optionally booted with a hardware
// enablement kernel.
type Release struct {
	// Name is the release codename.
	Name    string `yaml:"name"`
	Version string `yaml:"version"`
	// HWEKernel is the codename initial of the hardware enablement kernel,
	// empty for the release's own kernel.
	HWEKernel string `yaml:"hwe_kernel,omitempty"`
}

// Known releases.
var (
	Precise     = Release{Name: "precise", Version: "12.04"}
	PreciseHWET = Release{Name: "precise", Version: "12.04", HWEKernel: "t"}
	Trusty      = Release{Name: "trusty", Version: "14.04"}
	TrustyHWEU  = Release{Name: "trusty", Version: "14.04", HWEKernel: "u"}
	TrustyHWEV  = Release{Name: "trusty", Version: "14.04", HWEKernel: "v"}
	TrustyHWEW  = Release{Name: "trusty", Version: "14.04", HWEKernel: "w"}
	Vivid       = Release{Name: "vivid", Version: "15.04"}
	Wily        = Release{Name: "wily", Version: "15.10"}
	Xenial      = Release{Name: "xenial", Version: "16.04"}

	// Releases lists every known release.
	Releases = []Release{Precise, PreciseHWET, Trusty, TrustyHWEU, TrustyHWEV, TrustyHWEW, Vivid, Wily, Xenial}
)

// ID is the release identifier used in run metadata, for example
// "ubuntu-1404-trusty" or "ubuntu-1404-trusty-hwe-u".
func (r Release) ID() string {
	id := fmt.Sprintf("ubuntu-%s-%s", strings.ReplaceAll(r.Version, ".", ""), r.Name)
	if r.HWEKernel != "" {
		id += "-hwe-" + r.HWEKernel
	}
	return id
}

func (r Release) String() string {
	if r.HWEKernel != "" {
		return r.Name + "-hwe-" + r.HWEKernel
	}
	return r.Name
}

// ParseRelease looks a release up by its name ("trusty-hwe-u") or ID.
func ParseRelease(s string) (Release, error) {
	for _, r := range Releases {
		if s == r.String() || s == r.ID() {
			return r, nil
		}
	}
	return Release{}, fmt.Errorf("unknown release %q", s)
}

// CaseName prefixes a suite test name with the release, for example
// "TrustyHWEUTestNetwork".
func (r Release) CaseName(test string) string {
	name := strings.ToUpper(r.Name[:1]) + r.Name[1:]
	if r.HWEKernel != "" {
		name += "HWE" + strings.ToUpper(r.HWEKernel)
	}
	return name + test
}
