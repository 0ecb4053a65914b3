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

package verify

import (
	"fmt"
	"strings"
)

// MismatchError reports an expected value that differs from the collected one.
type MismatchError struct {
	// Interface is the (alias) interface being checked, if any.
	Interface string
	Field     string
	Want      any
	Got       any
}

func (e *MismatchError) Error() string {
	if e.Interface == "" {
		return fmt.Sprintf("%s mismatch: want %v, got %v", e.Field, e.Want, e.Got)
	}
	return fmt.Sprintf("%s: %s mismatch: want %v, got %v", e.Interface, e.Field, e.Want, e.Got)
}

// GatewayCountError reports that the routing table does not contain exactly
// one gateway route for the expected gateway. A count of zero means the route
// is missing, more than one means it is ambiguous.
type GatewayCountError struct {
	Gateway string
	Count   int
	Lines   []string
}

func (e *GatewayCountError) Error() string {
	return fmt.Sprintf("found %d gateway routes via %s, want exactly 1: %q", e.Count, e.Gateway, e.Lines)
}

// MissingRecordError reports an expected interface for which no parsed
// record exists.
type MissingRecordError struct {
	Name string
}

func (e *MissingRecordError) Error() string {
	return fmt.Sprintf("interface %q not found in collected output", e.Name)
}

// MissingArtifactError names the collected files that do not exist.
type MissingArtifactError struct {
	Files []string
}

func (e *MissingArtifactError) Error() string {
	return fmt.Sprintf("missing collected files: %s", strings.Join(e.Files, ", "))
}

// MissingLineError reports expected lines absent from a collected file.
type MissingLineError struct {
	File  string
	Lines []string
}

func (e *MissingLineError) Error() string {
	return fmt.Sprintf("%s is missing %d expected lines: %q", e.File, len(e.Lines), e.Lines)
}
