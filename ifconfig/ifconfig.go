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

// Package ifconfig parses the output of the legacy net-tools `ifconfig -a`
// command into per-interface records.
package ifconfig

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
)

// Logger receives diagnostics about chunks that could not be parsed. Callers
// may replace it to route the messages elsewhere.
var Logger logrus.FieldLogger = logrus.StandardLogger()

var (
	// ifaceRe matches the head of an interface block: the name (optionally an
	// alias "name:N" or a vlan "name.N"), the link encapsulation, the hardware
	// address and the IPv4 address/broadcast/netmask triple.
	ifaceRe = regexp.MustCompile(`(?m)^(?P<interface>\w+|\w+:\d+|\w+\.\d+)\s+` +
		`Link encap:(?P<link_encap>\S+)\s+` +
		`(HWaddr\s+(?P<mac_address>\S+))?` +
		`(\s+inet addr:(?P<address>\S+))?` +
		`(\s+Bcast:(?P<broadcast>\S+)\s+)?` +
		`(Mask:(?P<netmask>\S+)\s+)?`)

	mtuRe = regexp.MustCompile(`(?m)(\s+MTU:(?P<mtu>\d+)\s+)\s+`)
)

// InterfaceRecord is the parsed state of a single interface block.
type InterfaceRecord struct {
	Interface  string `yaml:"interface"`
	LinkEncap  string `yaml:"link_encap"`
	MACAddress string `yaml:"mac_address"`
	Address    string `yaml:"address"`
	Broadcast  string `yaml:"broadcast"`
	Netmask    string `yaml:"netmask"`
	MTU        int    `yaml:"mtu"`
	Up         bool   `yaml:"up"`
	Running    bool   `yaml:"running"`
	Multicast  bool   `yaml:"multicast"`
}

// Parse splits ifconfig output on blank lines and returns the records keyed by
// the interface name exactly as ifconfig printed it, alias suffix included.
// Blocks which do not look like an interface are skipped.
func Parse(text string) map[string]InterfaceRecord {
	interfaces := make(map[string]InterfaceRecord)
	for _, chunk := range strings.Split(text, "\n\n") {
		if strings.TrimSpace(chunk) == "" {
			continue
		}
		rec, ok := Extract(chunk)
		if !ok {
			Logger.WithField("chunk", chunk).Debug("skipping unparseable ifconfig block")
			continue
		}
		interfaces[rec.Interface] = rec
	}
	return interfaces
}

// Extract parses a single interface block. It reports false when the block
// does not start with an interface header.
func Extract(chunk string) (InterfaceRecord, bool) {
	m := ifaceRe.FindStringSubmatch(chunk)
	if m == nil {
		return InterfaceRecord{}, false
	}
	group := func(name string) string {
		return m[ifaceRe.SubexpIndex(name)]
	}
	rec := InterfaceRecord{
		Interface:  group("interface"),
		LinkEncap:  group("link_encap"),
		MACAddress: group("mac_address"),
		Address:    group("address"),
		Broadcast:  group("broadcast"),
		Netmask:    group("netmask"),
		Up:         hasFlag(chunk, "UP"),
		Running:    hasFlag(chunk, "RUNNING"),
		Multicast:  hasFlag(chunk, "MULTICAST"),
	}
	if mm := mtuRe.FindStringSubmatch(chunk); mm != nil {
		// The pattern only admits digits, so the conversion can only fail on
		// overflow.
		if mtu, err := strconv.Atoi(mm[mtuRe.SubexpIndex("mtu")]); err == nil {
			rec.MTU = mtu
		}
	} else {
		Logger.WithField("interface", rec.Interface).Debug("no MTU found in ifconfig block")
	}
	return rec, true
}

// hasFlag reports whether flag appears anywhere in the block. This is a plain
// substring test and is not anchored to the flags line, so a hostname or
// encapsulation containing the token also sets the flag.
func hasFlag(chunk, flag string) bool {
	return strings.Contains(chunk, flag)
}
