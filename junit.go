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

package vmtest

import (
	"fmt"
	"strings"
	"time"

	"github.com/jstemmer/go-junit-report/v2/gtr"
	"github.com/jstemmer/go-junit-report/v2/junit"
	"github.com/jstemmer/go-junit-report/v2/parser/gotest"
	"github.com/sirupsen/logrus"
)

func formatDuration(d time.Duration) string {
	return fmt.Sprintf("%.3f", d.Seconds())
}

// convertToTestSuite merges the go test -v outputs of a run into a single
// test suite.
func convertToTestSuite(results []string, classname string) *junit.Testsuite {
	ts := &junit.Testsuite{}
	var total time.Duration
	for _, result := range results {
		tcs, err := convertToTestCase(result)
		if err != nil {
			logrus.Errorf("Failed to parse test output of %s: %v", classname, err)
			ts.AddTestcase(junit.Testcase{
				Classname: classname,
				Name:      "ParseTestOutput",
				Time:      formatDuration(0),
				Error:     &junit.Result{Message: err.Error(), Data: result},
			})
			continue
		}
		for _, tc := range tcs {
			tc.Classname = classname
			if d, err := time.ParseDuration(tc.Time + "s"); err == nil {
				total += d
			}
			ts.AddTestcase(tc)
		}
	}
	ts.Time = formatDuration(total)
	return ts
}

// convertToTestCase parses go test -v output into test cases.
func convertToTestCase(in string) ([]junit.Testcase, error) {
	report, err := gotest.NewParser().Parse(strings.NewReader(in))
	if err != nil {
		return nil, err
	}
	var tcs []junit.Testcase
	for _, pkg := range report.Packages {
		for _, test := range pkg.Tests {
			tc := junit.Testcase{
				Name: test.Name,
				Time: formatDuration(test.Duration),
			}
			switch test.Result {
			case gtr.Fail:
				tc.Failure = &junit.Result{Message: "Failed", Data: strings.Join(test.Output, "\n")}
			case gtr.Skip:
				tc.Skipped = &junit.Result{Message: strings.Join(test.Output, "\n")}
			}
			tcs = append(tcs, tc)
		}
	}
	return tcs, nil
}

// skippedSuite reports a workflow that did not run.
func skippedSuite(name, classname, reason string) *junit.Testsuite {
	ts := &junit.Testsuite{Name: name, Time: formatDuration(0)}
	ts.AddTestcase(junit.Testcase{
		Classname: classname,
		Name:      name,
		Time:      formatDuration(0),
		Skipped:   &junit.Result{Message: reason},
	})
	return ts
}

// errorSuite reports a workflow whose suite binary could not be run.
func errorSuite(name, classname string, err error) *junit.Testsuite {
	ts := &junit.Testsuite{Name: name, Time: formatDuration(0)}
	ts.AddTestcase(junit.Testcase{
		Classname: classname,
		Name:      name,
		Time:      formatDuration(0),
		Error:     &junit.Result{Message: err.Error()},
	})
	return ts
}
