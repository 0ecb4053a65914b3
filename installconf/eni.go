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
	"fmt"
	"sort"
	"strings"
)

const eniIndent = "    "

// ExpectedENI renders the /etc/network/interfaces stanzas the installer is
// expected to write for the network state. Secondary subnets are rendered as
// alias interfaces.
func (ns *NetworkState) ExpectedENI() string {
	var stanzas []string

	lo := []string{"auto lo", "iface lo inet loopback"}
	lo = append(lo, dnsOptions(ns.DNS)...)
	stanzas = append(stanzas, strings.Join(lo, "\n"))

	for _, iface := range ns.All() {
		if len(iface.Subnets) == 0 {
			lines := []string{fmt.Sprintf("iface %s inet manual", iface.Name)}
			lines = append(lines, interfaceOptions(iface)...)
			stanzas = append(stanzas, strings.Join(lines, "\n"))
			continue
		}
		for i, sn := range iface.Subnets {
			name := AliasName(iface.Name, i)
			lines := []string{
				"auto " + name,
				fmt.Sprintf("iface %s %s %s", name, family(sn), method(sn)),
			}
			if i == 0 {
				lines = append(lines, interfaceOptions(iface)...)
			}
			lines = append(lines, subnetOptions(sn)...)
			stanzas = append(stanzas, strings.Join(lines, "\n"))
		}
	}

	for _, r := range ns.Routes {
		stanzas = append(stanzas, fmt.Sprintf("post-up route add -net %s netmask %s gw %s || true", r.Destination, r.Netmask, r.Gateway))
	}
	return strings.Join(stanzas, "\n\n") + "\n"
}

// ExpectedResolvConf returns the resolver settings that the installed
// system's resolv.conf has to carry, keyed by the (alias) interface they were
// configured on. Global nameserver entries are keyed by "lo".
func (ns *NetworkState) ExpectedResolvConf() map[string]DNS {
	ifaces := make(map[string]DNS)
	if len(ns.DNS.Nameservers) > 0 || len(ns.DNS.Search) > 0 {
		ifaces["lo"] = ns.DNS
	}
	for _, iface := range ns.All() {
		for i, sn := range iface.Subnets {
			if len(sn.DNSNameservers) == 0 && len(sn.DNSSearch) == 0 {
				continue
			}
			ifaces[AliasName(iface.Name, i)] = DNS{Nameservers: sn.DNSNameservers, Search: sn.DNSSearch}
		}
	}
	return ifaces
}

// ResolvConfLines renders dns as resolv.conf lines: one nameserver line per
// server followed by a single search line.
func (d DNS) ResolvConfLines() []string {
	var lines []string
	for _, ns := range d.Nameservers {
		lines = append(lines, "nameserver "+ns)
	}
	if len(d.Search) > 0 {
		lines = append(lines, "search "+strings.Join(d.Search, " "))
	}
	return lines
}

func family(sn Subnet) string {
	if sn.Type == "dhcp6" || sn.Type == "static6" || strings.Contains(sn.Address, ":") {
		return "inet6"
	}
	return "inet"
}

func method(sn Subnet) string {
	switch sn.Type {
	case "dhcp", "dhcp4", "dhcp6":
		return "dhcp"
	case "static", "static6":
		return "static"
	case "":
		return "manual"
	default:
		return sn.Type
	}
}

func interfaceOptions(iface *Interface) []string {
	var opts []string
	if iface.MTU != 0 {
		opts = append(opts, fmt.Sprintf("mtu %d", iface.MTU))
	}
	switch iface.Type {
	case TypeVlan:
		opts = append(opts, "vlan-raw-device "+iface.VlanLink)
		opts = append(opts, fmt.Sprintf("vlan_id %d", iface.VlanID))
	case TypeBond:
		opts = append(opts, "bond-slaves none")
		if iface.MACAddress != "" {
			opts = append(opts, "hwaddress "+iface.MACAddress)
		}
	case TypeBridge:
		ports := append([]string(nil), iface.Slaves...)
		sort.Strings(ports)
		opts = append(opts, "bridge_ports "+strings.Join(ports, " "))
	}
	return indent(opts)
}

func subnetOptions(sn Subnet) []string {
	var opts []string
	if sn.IsStatic() && sn.Address != "" {
		opts = append(opts, "address "+sn.Address)
	}
	if sn.Gateway != "" {
		opts = append(opts, "gateway "+sn.Gateway)
	}
	return append(indent(opts), dnsOptions(DNS{Nameservers: sn.DNSNameservers, Search: sn.DNSSearch})...)
}

func dnsOptions(d DNS) []string {
	var opts []string
	if len(d.Nameservers) > 0 {
		opts = append(opts, "dns-nameservers "+strings.Join(d.Nameservers, " "))
	}
	if len(d.Search) > 0 {
		opts = append(opts, "dns-search "+strings.Join(d.Search, " "))
	}
	return indent(opts)
}

func indent(lines []string) []string {
	for i, l := range lines {
		lines[i] = eniIndent + l
	}
	return lines
}
