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

// Package verify compares the network state an installer was configured with
// against what the installed system reports.
package verify

import (
	"errors"
	"fmt"
	"net"
	"sort"
	"strings"

	"github.com/osinstaller/vmtests/ifconfig"
	"github.com/osinstaller/vmtests/installconf"
	"github.com/osinstaller/vmtests/routes"
	"github.com/sirupsen/logrus"
)

// Logger receives debug output of the comparisons.
var Logger logrus.FieldLogger = logrus.StandardLogger()

// AliasName is the kernel name of the subnet at index on the interface.
func AliasName(name string, index int) string {
	return installconf.AliasName(name, index)
}

// SubnetAddrs derives the host address, netmask and broadcast address from a
// subnet in CIDR notation. An address containing ":" is treated as IPv6, where
// the broadcast is the last address of the network.
func SubnetAddrs(cidr string) (host, netmask, broadcast string, err error) {
	ip, ipnet, err := net.ParseCIDR(cidr)
	if err != nil {
		return "", "", "", fmt.Errorf("invalid subnet address %q: %w", cidr, err)
	}
	network := ipnet.IP
	mask := ipnet.Mask
	if !strings.Contains(cidr, ":") {
		ip = ip.To4()
		network = network.To4()
		if len(mask) == net.IPv6len {
			mask = mask[12:]
		}
	}
	bcast := make(net.IP, len(network))
	for i := range network {
		bcast[i] = network[i] | ^mask[i]
	}
	return ip.String(), net.IP(mask).String(), bcast.String(), nil
}

// CheckInterface compares the expected interface at subnet index with the
// parsed ifconfig record and, when the subnet has a gateway, with the routing
// table text of route -n.
func CheckInterface(iface *installconf.Interface, index int, record ifconfig.InterfaceRecord, routeN string) error {
	name := AliasName(iface.Name, index)
	if len(iface.Subnets) == 0 {
		name = iface.Name
	}
	Logger.Debugf("checking interface %s against record %+v", name, record)

	if record.Interface != name {
		return &MismatchError{Interface: name, Field: "interface", Want: name, Got: record.Interface}
	}
	if iface.MACAddress != "" && iface.MACAddress != record.MACAddress {
		return &MismatchError{Interface: name, Field: "mac_address", Want: iface.MACAddress, Got: record.MACAddress}
	}
	if iface.MTU != 0 && iface.MTU != record.MTU {
		return &MismatchError{Interface: name, Field: "mtu", Want: iface.MTU, Got: record.MTU}
	}

	if index >= len(iface.Subnets) {
		return nil
	}
	subnet := iface.Subnets[index]
	if subnet.Address != "" {
		host, netmask, broadcast, err := SubnetAddrs(subnet.Address)
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		for _, f := range []struct {
			field     string
			want, got string
		}{
			{"address", host, record.Address},
			{"netmask", netmask, record.Netmask},
			{"broadcast", broadcast, record.Broadcast},
		} {
			if f.want != f.got {
				return &MismatchError{Interface: name, Field: f.field, Want: f.want, Got: f.got}
			}
		}
	}
	if subnet.Gateway != "" {
		if err := CheckGateway(subnet.Gateway, routeN); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	return nil
}

// CheckGateway requires exactly one gateway route via gw in the route -n
// output and that its gateway column equals gw.
func CheckGateway(gw, routeN string) error {
	lines := routes.GatewayLines(routeN, gw)
	Logger.Debugf("gateway routes via %s: %q", gw, lines)
	if len(lines) != 1 {
		return &GatewayCountError{Gateway: gw, Count: len(lines), Lines: lines}
	}
	entry, err := routes.ParseEntry(lines[0])
	if err != nil {
		return err
	}
	if entry.Gateway != gw {
		return &MismatchError{Field: "gateway", Want: gw, Got: entry.Gateway}
	}
	return nil
}

// CheckInterfaces runs CheckInterface for every subnet of every expected
// interface, and once for interfaces without subnets. All failures are
// returned joined.
func CheckInterfaces(state *installconf.NetworkState, records map[string]ifconfig.InterfaceRecord, routeN string) error {
	var errs []error
	check := func(iface *installconf.Interface, index int) {
		name := iface.Name
		if len(iface.Subnets) > 0 {
			name = AliasName(iface.Name, index)
		}
		record, ok := records[name]
		if !ok {
			errs = append(errs, &MissingRecordError{Name: name})
			return
		}
		if err := CheckInterface(iface, index, record, routeN); err != nil {
			errs = append(errs, err)
		}
	}
	for _, iface := range state.All() {
		if len(iface.Subnets) == 0 {
			check(iface, 0)
			continue
		}
		for i := range iface.Subnets {
			check(iface, i)
		}
	}
	return errors.Join(errs...)
}

// CheckLines requires every non-empty expected line to appear verbatim as a
// line of actual.
func CheckLines(file string, expected []string, actual string) error {
	present := make(map[string]bool)
	for _, l := range strings.Split(actual, "\n") {
		present[l] = true
	}
	var missing []string
	for _, l := range expected {
		if l == "" || present[l] {
			continue
		}
		missing = append(missing, l)
	}
	if len(missing) > 0 {
		return &MissingLineError{File: file, Lines: missing}
	}
	return nil
}

// CheckENI checks the collected interfaces file against the rendering of the
// expected network state.
func CheckENI(state *installconf.NetworkState, actual string) error {
	return CheckLines("interfaces", strings.Split(state.ExpectedENI(), "\n"), actual)
}

// CheckResolvConf checks that every expected resolver setting is present in
// the collected resolv.conf.
func CheckResolvConf(state *installconf.NetworkState, actual string) error {
	ifaces := state.ExpectedResolvConf()
	names := make([]string, 0, len(ifaces))
	for name := range ifaces {
		names = append(names, name)
	}
	sort.Strings(names)
	var expected []string
	for _, name := range names {
		lines := ifaces[name].ResolvConfLines()
		Logger.Debugf("resolv.conf lines expected from %s: %q", name, lines)
		expected = append(expected, lines...)
	}
	return CheckLines("resolv.conf", expected, actual)
}
