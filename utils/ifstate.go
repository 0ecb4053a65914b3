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
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-ini/ini"
)

// ParseIfstate parses the ifupdown state file (run/network/ifstate), which
// maps every configured interface to the logical interface it was brought up
// as. Alias names contain ":" so only "=" separates keys from values.
func ParseIfstate(data []byte) (map[string]string, error) {
	cfg, err := ini.LoadSources(ini.LoadOptions{
		KeyValueDelimiters:  "=",
		IgnoreInlineComment: true,
	}, data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse ifstate: %w", err)
	}
	return cfg.Section(ini.DefaultSection).KeysHash(), nil
}

// ReadIfstate reads the ifupdown state from a copy of /run/network. Older
// ifupdown keeps a single "ifstate" file, newer releases one
// "ifstate.<iface>" file per interface holding the logical name.
func ReadIfstate(dir string) (map[string]string, error) {
	state := make(map[string]string)
	data, err := os.ReadFile(filepath.Join(dir, "ifstate"))
	switch {
	case err == nil:
		if state, err = ParseIfstate(data); err != nil {
			return nil, err
		}
	case !errors.Is(err, fs.ErrNotExist):
		return nil, err
	}

	files, err := filepath.Glob(filepath.Join(dir, "ifstate.*"))
	if err != nil {
		return nil, err
	}
	for _, f := range files {
		data, err := os.ReadFile(f)
		if err != nil {
			return nil, err
		}
		name := strings.TrimPrefix(filepath.Base(f), "ifstate.")
		if logical := strings.TrimSpace(string(data)); logical != "" {
			state[name] = logical
		}
	}
	if len(state) == 0 {
		return nil, fmt.Errorf("no ifupdown state in %s", dir)
	}
	return state, nil
}
