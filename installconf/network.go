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
	"net"
	"sort"
	"strings"
)

// Interface types found in the network configuration.
const (
	TypePhysical   = "physical"
	TypeVlan       = "vlan"
	TypeBond       = "bond"
	TypeBridge     = "bridge"
	TypeNameserver = "nameserver"
	TypeRoute      = "route"
)

// Subnet is an address configuration attached to an interface.
type Subnet struct {
	Type           string   `yaml:"type"`
	Address        string   `yaml:"address"`
	Netmask        string   `yaml:"netmask"`
	Gateway        string   `yaml:"gateway"`
	DNSNameservers []string `yaml:"dns_nameservers"`
	DNSSearch      []string `yaml:"dns_search"`
}

// IsStatic reports whether the subnet carries a fixed address.
func (s Subnet) IsStatic() bool {
	return s.Type == "static" || s.Type == "static6"
}

// Interface is the expected state of a single configured interface.
type Interface struct {
	Name       string   `yaml:"name"`
	Type       string   `yaml:"type"`
	MACAddress string   `yaml:"mac_address,omitempty"`
	MTU        int      `yaml:"mtu,omitempty"`
	VlanID     int      `yaml:"vlan_id,omitempty"`
	VlanLink   string   `yaml:"vlan_link,omitempty"`
	Slaves     []string `yaml:"slaves,omitempty"`
	Subnets    []Subnet `yaml:"subnets,omitempty"`
}

// DNS is a resolver configuration.
type DNS struct {
	Nameservers []string `yaml:"nameservers,omitempty"`
	Search      []string `yaml:"search,omitempty"`
}

// Route is a static route from the network configuration.
type Route struct {
	Destination string `yaml:"destination"`
	Netmask     string `yaml:"netmask"`
	Gateway     string `yaml:"gateway"`
	Metric      int    `yaml:"metric,omitempty"`
}

// NetworkState is the normalized network state derived from the network
// configuration.
type NetworkState struct {
	Interfaces map[string]*Interface `yaml:"interfaces"`
	DNS        DNS                   `yaml:"dns"`
	Routes     []Route               `yaml:"routes,omitempty"`
	// order keeps interface names in configuration order.
	order []string
}

// NetworkState normalizes the network section of the configuration.
func (c *Config) NetworkState() (*NetworkState, error) {
	ns := &NetworkState{Interfaces: make(map[string]*Interface)}
	for i, item := range c.Network.Config {
		switch item.Type {
		case TypePhysical, TypeVlan, TypeBond, TypeBridge:
			if item.Name == "" {
				return nil, fmt.Errorf("network config entry %d (%s) has no name", i, item.Type)
			}
			if _, ok := ns.Interfaces[item.Name]; ok {
				return nil, fmt.Errorf("interface %q configured twice", item.Name)
			}
			iface := &Interface{
				Name:       item.Name,
				Type:       item.Type,
				MACAddress: item.MACAddress,
				MTU:        item.MTU,
				VlanID:     item.VlanID,
				VlanLink:   item.VlanLink,
			}
			switch item.Type {
			case TypeBond:
				iface.Slaves = item.BondInterfaces
			case TypeBridge:
				iface.Slaves = item.BridgeIfaces
			}
			for _, sn := range item.Subnets {
				normalized, err := normalizeSubnet(sn)
				if err != nil {
					return nil, fmt.Errorf("interface %q: %w", item.Name, err)
				}
				iface.Subnets = append(iface.Subnets, normalized)
			}
			ns.Interfaces[item.Name] = iface
			ns.order = append(ns.order, item.Name)
		case TypeNameserver:
			ns.DNS.Nameservers = append(ns.DNS.Nameservers, item.Address...)
			ns.DNS.Search = append(ns.DNS.Search, item.Search...)
		case TypeRoute:
			ns.Routes = append(ns.Routes, Route{
				Destination: item.Destination,
				Netmask:     item.Netmask,
				Gateway:     item.Gateway,
				Metric:      item.Metric,
			})
		default:
			return nil, fmt.Errorf("network config entry %d has unknown type %q", i, item.Type)
		}
	}
	return ns, nil
}

// normalizeSubnet folds a separate netmask into CIDR notation.
func normalizeSubnet(sn Subnet) (Subnet, error) {
	if sn.Address == "" || strings.Contains(sn.Address, "/") {
		return sn, nil
	}
	if sn.Netmask == "" {
		return sn, fmt.Errorf("subnet address %q has neither a prefix length nor a netmask", sn.Address)
	}
	mask := net.ParseIP(sn.Netmask)
	if mask == nil {
		return sn, fmt.Errorf("invalid netmask %q", sn.Netmask)
	}
	if v4 := mask.To4(); v4 != nil {
		mask = v4
	}
	ones, bits := net.IPMask(mask).Size()
	if bits == 0 {
		return sn, fmt.Errorf("netmask %q is not contiguous", sn.Netmask)
	}
	sn.Address = fmt.Sprintf("%s/%d", sn.Address, ones)
	return sn, nil
}

// All returns the interfaces in configuration order. A state assembled by
// hand rather than by NetworkState is returned sorted by name.
func (ns *NetworkState) All() []*Interface {
	names := ns.order
	if len(names) != len(ns.Interfaces) {
		names = make([]string, 0, len(ns.Interfaces))
		for name := range ns.Interfaces {
			names = append(names, name)
		}
		sort.Strings(names)
	}
	ifaces := make([]*Interface, 0, len(names))
	for _, name := range names {
		ifaces = append(ifaces, ns.Interfaces[name])
	}
	return ifaces
}

// VLANs returns the vlan interfaces in configuration order.
func (ns *NetworkState) VLANs() []*Interface {
	var vlans []*Interface
	for _, iface := range ns.All() {
		if iface.Type == TypeVlan {
			vlans = append(vlans, iface)
		}
	}
	return vlans
}

// AliasName is the name the kernel reports for the subnet at index on the
// interface name: the bare name for the first subnet and "name:index" for the
// others.
func AliasName(name string, index int) string {
	if index == 0 {
		return name
	}
	return fmt.Sprintf("%s:%d", name, index)
}
