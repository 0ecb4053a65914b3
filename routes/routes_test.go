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

package routes

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

const routeN = `Kernel IP routing table
Destination     Gateway         Genmask         Flags Metric Ref    Use Iface
0.0.0.0         10.0.2.2        0.0.0.0         UG    0      0        0 eth0
10.0.2.0        0.0.0.0         255.255.255.0   U     0      0        0 eth0
10.0.5.0        0.0.0.0         255.255.255.0   U     0      0        0 eth1
10.245.168.0    10.245.184.1    255.255.248.0   UG    0      0        0 eth1.2667
`

func TestParseRouteN(t *testing.T) {
	got := ParseRouteN(routeN)
	want := []Entry{
		{"0.0.0.0", "10.0.2.2", "0.0.0.0", "UG", "0", "0", "0", "eth0"},
		{"10.0.2.0", "0.0.0.0", "255.255.255.0", "U", "0", "0", "0", "eth0"},
		{"10.0.5.0", "0.0.0.0", "255.255.255.0", "U", "0", "0", "0", "eth1"},
		{"10.245.168.0", "10.245.184.1", "255.255.248.0", "UG", "0", "0", "0", "eth1.2667"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("ParseRouteN() returned unexpected entries (-want +got):\n%s", diff)
	}
}

func TestParseEntry(t *testing.T) {
	tests := []struct {
		name    string
		line    string
		want    Entry
		wantErr bool
	}{
		{
			name: "default_route",
			line: "0.0.0.0 192.168.1.1 0.0.0.0 UG 0 0 0 eth0",
			want: Entry{"0.0.0.0", "192.168.1.1", "0.0.0.0", "UG", "0", "0", "0", "eth0"},
		},
		{
			name:    "too_few_fields",
			line:    "0.0.0.0 192.168.1.1 0.0.0.0 UG",
			wantErr: true,
		},
		{
			name:    "banner",
			line:    "Kernel IP routing table",
			wantErr: true,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ParseEntry(tc.line)
			if (err != nil) != tc.wantErr {
				t.Fatalf("ParseEntry(%q) err = %v, wantErr %v", tc.line, err, tc.wantErr)
			}
			if diff := cmp.Diff(tc.want, got); diff != "" {
				t.Errorf("ParseEntry(%q) returned unexpected entry (-want +got):\n%s", tc.line, diff)
			}
		})
	}
}

func TestGatewayLines(t *testing.T) {
	tests := []struct {
		name  string
		table string
		gw    string
		want  int
	}{
		{
			name:  "single_match",
			table: "0.0.0.0 192.168.1.1 0.0.0.0 UG 0 0 0 eth0\n",
			gw:    "192.168.1.1",
			want:  1,
		},
		{
			name:  "duplicate_match",
			table: "0.0.0.0 192.168.1.1 0.0.0.0 UG 0 0 0 eth0\n10.0.0.0 192.168.1.1 255.0.0.0 UG 0 0 0 eth0\n",
			gw:    "192.168.1.1",
			want:  2,
		},
		{
			name:  "no_gateway_flag",
			table: "192.168.1.0 0.0.0.0 255.255.255.0 U 0 0 0 eth0\n",
			gw:    "192.168.1.0",
			want:  0,
		},
		{
			name:  "table",
			table: routeN,
			gw:    "10.245.184.1",
			want:  1,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := GatewayLines(tc.table, tc.gw); len(got) != tc.want {
				t.Errorf("GatewayLines(%q) = %q, want %d lines", tc.gw, got, tc.want)
			}
		})
	}
}

func TestParseIPRouteShow(t *testing.T) {
	in := `default via 10.0.2.2 dev eth0
10.0.2.0/24 dev eth0  proto kernel  scope link  src 10.0.2.15
10.0.5.0/24 dev eth1  proto kernel  scope link  src 10.0.5.20
`
	got, err := ParseIPRouteShow(in)
	if err != nil {
		t.Fatalf("ParseIPRouteShow() failed: %v", err)
	}
	want := []KernelRoute{
		{Network: "10.0.2.0/24", Dev: "eth0", Src: "10.0.2.15"},
		{Network: "10.0.5.0/24", Dev: "eth1", Src: "10.0.5.20"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("ParseIPRouteShow() returned unexpected routes (-want +got):\n%s", diff)
	}

	if _, err := ParseIPRouteShow("10.0.2.0/24 via 10.0.2.2 src 10.0.2.15\n"); err == nil {
		t.Errorf("ParseIPRouteShow() on a malformed src line returned nil error")
	}
}
