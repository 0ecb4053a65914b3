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

// Package routes parses routing table dumps collected from an installed
// system: `route -n` and `ip -o route show`.
package routes

import (
	"fmt"
	"regexp"
	"strings"
)

// GatewayFlag marks a gateway route in the Flags column of `route -n`.
const GatewayFlag = "UG"

var kernelRouteRe = regexp.MustCompile(`^(?P<network>\S+)\sdev\s(?P<devname>\S+)\s+proto kernel\s+scope link\s+src\s(?P<src_ip>\S+)`)

// Entry is one row of the kernel IP routing table as printed by `route -n`.
type Entry struct {
	Destination string
	Gateway     string
	Genmask     string
	Flags       string
	Metric      string
	Ref         string
	Use         string
	Iface       string
}

// ParseEntry splits a `route -n` row into its eight positional columns.
func ParseEntry(line string) (Entry, error) {
	f := strings.Fields(line)
	if len(f) != 8 {
		return Entry{}, fmt.Errorf("route line %q has %d fields, want 8", line, len(f))
	}
	return Entry{
		Destination: f[0],
		Gateway:     f[1],
		Genmask:     f[2],
		Flags:       f[3],
		Metric:      f[4],
		Ref:         f[5],
		Use:         f[6],
		Iface:       f[7],
	}, nil
}

// ParseRouteN returns the rows of `route -n` output, skipping the banner,
// the column header and anything else that does not have eight columns.
func ParseRouteN(text string) []Entry {
	var entries []Entry
	for _, line := range strings.Split(text, "\n") {
		e, err := ParseEntry(line)
		if err != nil || e.Destination == "Destination" {
			continue
		}
		entries = append(entries, e)
	}
	return entries
}

// GatewayLines returns every line of `route -n` output that carries the
// gateway flag and mentions gw. Both tests are plain substring matches.
func GatewayLines(text, gw string) []string {
	var lines []string
	for _, line := range strings.Split(text, "\n") {
		if strings.Contains(line, GatewayFlag) && strings.Contains(line, gw) {
			lines = append(lines, line)
		}
	}
	return lines
}

// KernelRoute is a link-scope route installed by the kernel for an
// interface address, as listed by `ip -o route show`.
type KernelRoute struct {
	Network string
	Dev     string
	Src     string
}

// ParseIPRouteShow returns the kernel link routes from `ip -o route show`
// output. Only lines with a "src" attribute are considered.
func ParseIPRouteShow(text string) ([]KernelRoute, error) {
	var routes []KernelRoute
	for _, line := range strings.Split(text, "\n") {
		if !strings.Contains(line, "src") {
			continue
		}
		m := kernelRouteRe.FindStringSubmatch(line)
		if m == nil {
			return nil, fmt.Errorf("unexpected route line %q", line)
		}
		routes = append(routes, KernelRoute{
			Network: m[kernelRouteRe.SubexpIndex("network")],
			Dev:     m[kernelRouteRe.SubexpIndex("devname")],
			Src:     m[kernelRouteRe.SubexpIndex("src_ip")],
		})
	}
	return routes, nil
}
