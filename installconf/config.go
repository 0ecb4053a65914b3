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

// Package installconf loads the declarative install configuration handed to
// the installer and derives the state the installed system is expected to be
// in: the network state, the rendered network configuration files and the
// storage layout.
package installconf

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is an install configuration after token replacement.
type Config struct {
	Network NetworkConfig `yaml:"network"`
	Storage StorageConfig `yaml:"storage"`
}

// NetworkConfig is the version 1 network configuration section.
type NetworkConfig struct {
	Version int           `yaml:"version"`
	Config  []NetworkItem `yaml:"config"`
}

// NetworkItem is a single entry of the network configuration list. Which
// fields are meaningful depends on Type.
type NetworkItem struct {
	Type           string         `yaml:"type"`
	Name           string         `yaml:"name"`
	MACAddress     string         `yaml:"mac_address"`
	MTU            int            `yaml:"mtu"`
	VlanID         int            `yaml:"vlan_id"`
	VlanLink       string         `yaml:"vlan_link"`
	BondInterfaces []string       `yaml:"bond_interfaces"`
	BridgeIfaces   []string       `yaml:"bridge_interfaces"`
	Params         map[string]any `yaml:"params"`
	Subnets        []Subnet       `yaml:"subnets"`

	// nameserver entries
	Address StringList `yaml:"address"`
	Search  StringList `yaml:"search"`

	// route entries
	Destination string `yaml:"destination"`
	Gateway     string `yaml:"gateway"`
	Netmask     string `yaml:"netmask"`
	Metric      int    `yaml:"metric"`
}

// StringList accepts either a single scalar or a sequence of scalars.
type StringList []string

// UnmarshalYAML implements yaml.Unmarshaler.
func (s *StringList) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		*s = StringList{value.Value}
		return nil
	case yaml.SequenceNode:
		var list []string
		if err := value.Decode(&list); err != nil {
			return err
		}
		*s = list
		return nil
	default:
		return fmt.Errorf("line %d: expected a string or a list of strings", value.Line)
	}
}

// Load reads the install configuration at path, substitutes every
// replacement token with its value and parses the result.
func Load(path string, replacements map[string]string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read install config: %w", err)
	}
	return Parse(data, replacements)
}

// Parse is Load for in-memory configuration text.
func Parse(data []byte, replacements map[string]string) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal([]byte(Replace(string(data), replacements)), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse install config: %w", err)
	}
	return cfg, nil
}

// Replace substitutes every occurrence of each token in text. Tokens are
// applied longest first so that a token which prefixes another one does not
// clobber it.
func Replace(text string, replacements map[string]string) string {
	tokens := make([]string, 0, len(replacements))
	for k := range replacements {
		tokens = append(tokens, k)
	}
	sort.Slice(tokens, func(i, j int) bool {
		if len(tokens[i]) != len(tokens[j]) {
			return len(tokens[i]) > len(tokens[j])
		}
		return tokens[i] < tokens[j]
	})
	for _, tok := range tokens {
		text = strings.ReplaceAll(text, tok, replacements[tok])
	}
	return text
}
