// Copyright 2025 Google LLC.
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

// Package exceptions decides whether a release ID such as
// "ubuntu-1404-trusty" falls under a list of release specific behaviour
// differences.
package exceptions

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
)

// ExceptionType represents how a release version is compared.
type ExceptionType int

const (
	// Equal checks if the version is equal to the threshold.
	Equal ExceptionType = iota
	// NotEqual checks if the version is not equal to the threshold.
	NotEqual
	// GreaterThan checks if the version is greater than the threshold.
	GreaterThan
	// LessThan checks if the version is less than the threshold.
	LessThan
	// GreaterThanOrEqualTo checks if the version is greater than or equal to the threshold.
	GreaterThanOrEqualTo
	// LessThanOrEqualTo checks if the version is less than or equal to the threshold.
	LessThanOrEqualTo
)

// Release ID patterns.
const (
	ReleaseUbuntu  = "ubuntu-.*"
	ReleasePrecise = "ubuntu-1204-precise.*"
	ReleaseTrusty  = "ubuntu-1404-trusty.*"
	ReleaseVivid   = "ubuntu-1504-vivid.*"
	ReleaseWily    = "ubuntu-1510-wily.*"
	ReleaseXenial  = "ubuntu-1604-xenial.*"
	// ReleaseHWE matches releases booted with a hardware enablement kernel.
	ReleaseHWE = ".*-hwe-[a-z]$"
)

// Exception is a release version range under a release ID pattern.
type Exception struct {
	// Match is the pattern for the release ID. Ignored by MatchAll.
	Match string
	// Version is the numeric release version, 1404 for "ubuntu-1404-trusty".
	// Zero applies to every version.
	Version int
	Type    ExceptionType
}

// MatchAll reports whether release matches base and every exception.
func MatchAll(release string, base string, exceptions ...Exception) bool {
	regex, err := regexp.Compile(base)
	if err != nil {
		logrus.Warnf("Failed to compile release pattern %q: %v", base, err)
		return false
	}
	if !regex.MatchString(release) {
		return false
	}

	version := Version(release)
	for _, exception := range exceptions {
		if exception.Version == 0 {
			return true
		}
		if !checkException(version, exception) {
			return false
		}
	}
	return true
}

// HasMatch reports whether release falls under any of the exceptions.
func HasMatch(release string, exceptions []Exception) bool {
	version := Version(release)
	for _, exception := range exceptions {
		regex, err := regexp.Compile(exception.Match)
		if err != nil {
			logrus.Warnf("Failed to compile release pattern %q: %v", exception.Match, err)
			return false
		}
		if !regex.MatchString(release) {
			continue
		}
		if exception.Version == 0 || checkException(version, exception) {
			return true
		}
	}
	return false
}

// Version is the first numeric dash separated part of the release ID, or
// zero when there is none.
func Version(release string) int {
	for _, part := range strings.Split(release, "-") {
		if v, err := strconv.Atoi(part); err == nil {
			return v
		}
	}
	return 0
}

func checkException(version int, exception Exception) bool {
	switch exception.Type {
	case GreaterThan:
		return version > exception.Version
	case LessThan:
		return version < exception.Version
	case NotEqual:
		return version != exception.Version
	case GreaterThanOrEqualTo:
		return version >= exception.Version
	case LessThanOrEqualTo:
		return version <= exception.Version
	default:
		return version == exception.Version
	}
}
