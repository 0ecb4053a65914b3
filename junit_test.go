// Copyright 2021 Google LLC
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
	"strings"
	"testing"

	"github.com/jstemmer/go-junit-report/v2/junit"
)

var (
	testPass = `
=== RUN   TestOutputFilesExist
--- PASS: TestOutputFilesExist (0.01s)
=== RUN   TestEtcNetworkInterfaces
--- PASS: TestEtcNetworkInterfaces (0.02s)
=== RUN   TestEtcResolvconf
--- PASS: TestEtcResolvconf (0.00s)
=== RUN   TestIfconfigOutput
--- PASS: TestIfconfigOutput (0.00s)
PASS
`
	testFail = `
=== RUN   TestIfconfigOutput
    network_test.go:47: eth1:1: broadcast mismatch: want 192.168.14.255, got 192.168.14.1
    network_test.go:47: found 2 gateway routes via 10.245.184.1
--- FAIL: TestIfconfigOutput (0.00s)
=== RUN   TestOutputFilesExist
--- PASS: TestOutputFilesExist (0.00s)
=== RUN   TestEtcNetworkInterfaces
--- PASS: TestEtcNetworkInterfaces (0.00s)
=== RUN   TestEtcResolvconf
--- PASS: TestEtcResolvconf (0.00s)
=== RUN   TestKernelRoutes
--- PASS: TestKernelRoutes (0.00s)
FAIL
`
	testSkip = `
=== RUN   TestRootfsFormat
    lvmroot_test.go:80: lsblk json output is not available on trusty
--- SKIP: TestRootfsFormat (0.00s)
=== RUN   TestFstab
--- PASS: TestFstab (0.00s)
PASS
`
)

func TestConvertToTestSuite(t *testing.T) {
	tests := []struct {
		name   string
		input  []string
		output junit.Testsuite
	}{
		{
			name:   "parse_passing_results",
			input:  []string{testPass},
			output: junit.Testsuite{Tests: 4, Time: "0.030"},
		},
		{
			name:   "parse_failing_results",
			input:  []string{testFail},
			output: junit.Testsuite{Tests: 5, Failures: 1, Time: "0.000"},
		},
		{
			name:   "parse_passing_results_twice",
			input:  []string{testPass, testPass},
			output: junit.Testsuite{Tests: 8, Time: "0.060"},
		},
		{
			name:   "parse_passing_and_failing_results",
			input:  []string{testPass, testFail},
			output: junit.Testsuite{Tests: 9, Failures: 1, Time: "0.030"},
		},
		{
			name:   "parse_skipped_results",
			input:  []string{testSkip},
			output: junit.Testsuite{Tests: 2, Skipped: 1, Time: "0.000"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := convertToTestSuite(tt.input, "")
			switch {
			case got.Name != tt.output.Name:
				t.Errorf("unexpected Name got: %+v, want: %+v", got.Name, tt.output.Name)
			case got.Tests != tt.output.Tests:
				t.Errorf("unexpected Tests got: %+v, want: %+v", got.Tests, tt.output.Tests)
			case got.Failures != tt.output.Failures:
				t.Errorf("unexpected Failures got: %+v, want: %+v", got.Failures, tt.output.Failures)
			case got.Errors != tt.output.Errors:
				t.Errorf("unexpected Errors got: %+v, want: %+v", got.Errors, tt.output.Errors)
			case got.Skipped != tt.output.Skipped:
				t.Errorf("unexpected Skipped got: %+v, want: %+v", got.Skipped, tt.output.Skipped)
			case got.Time != tt.output.Time:
				t.Errorf("unexpected Time got: %+v, want: %+v", got.Time, tt.output.Time)
			case got.SystemOut != tt.output.SystemOut:
				t.Errorf("unexpected SystemOut got: %+v, want: %+v", got.SystemOut, tt.output.SystemOut)
			case len(got.Testcases) != tt.output.Tests:
				t.Errorf("unexpected test length got: %+v, want: %+v", got.Tests, tt.output.Tests)
			}
		})
	}
}

func TestConvertToTestCase(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		output []junit.Testcase
		// failureText must appear in the failure data of failing cases.
		failureText []string
	}{
		{
			name:  "parse_passing_results",
			input: testPass,
			output: []junit.Testcase{
				{Name: "TestOutputFilesExist", Time: "0.010"},
				{Name: "TestEtcNetworkInterfaces", Time: "0.020"},
				{Name: "TestEtcResolvconf", Time: "0.000"},
				{Name: "TestIfconfigOutput", Time: "0.000"}},
		},
		{
			name:  "parse_failing_results",
			input: testFail,
			output: []junit.Testcase{
				{Time: "0.000", Name: "TestIfconfigOutput", Failure: &junit.Result{}},
				{Time: "0.000", Name: "TestOutputFilesExist"},
				{Time: "0.000", Name: "TestEtcNetworkInterfaces"},
				{Time: "0.000", Name: "TestEtcResolvconf"},
				{Time: "0.000", Name: "TestKernelRoutes"}},
			failureText: []string{
				"eth1:1: broadcast mismatch: want 192.168.14.255, got 192.168.14.1",
				"found 2 gateway routes via 10.245.184.1",
			},
		},
		{
			name:  "parse_skipped_results",
			input: testSkip,
			output: []junit.Testcase{
				{Time: "0.000", Name: "TestRootfsFormat", Skipped: &junit.Result{}},
				{Time: "0.000", Name: "TestFstab"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tcs, err := convertToTestCase(tt.input)
			if err != nil {
				t.Fatalf("unexpected error parsing: %v", err)
			}
			if len(tcs) != len(tt.output) {
				t.Fatalf("unexpected expected: %v got: %v", tt.output, tcs)
			}
			for i := 0; i < len(tt.output); i++ {
				switch {
				case tcs[i].Name != tt.output[i].Name:
					t.Errorf("unexpected mismatched Name got: %v but want: %v", tcs[i].Name, tt.output[i].Name)
				case tcs[i].Time != tt.output[i].Time:
					t.Errorf("unexpected mismatched Time got: %v but want: %v", tcs[i].Time, tt.output[i].Time)
				case (tcs[i].Skipped != nil) != (tt.output[i].Skipped != nil):
					t.Errorf("unexpected mismatched Skipped status got: %v but want: %v", tcs[i].Skipped, tt.output[i].Skipped)
				case (tcs[i].Failure != nil) != (tt.output[i].Failure != nil):
					t.Errorf("unexpected mismatched Failure status got: %v but want: %v", tcs[i].Failure, tt.output[i].Failure)
				}
				if tcs[i].Failure == nil {
					continue
				}
				for _, text := range tt.failureText {
					if !strings.Contains(tcs[i].Failure.Data, text) {
						t.Errorf("Failure Data %q is missing %q", tcs[i].Failure.Data, text)
					}
				}
			}
		})
	}
}

func TestSkippedAndErrorSuites(t *testing.T) {
	skipped := skippedSuite("lvmroot-XenialTestUefiLvmRootXfsBootXfs", "XenialTestUefiLvmRootXfsBootXfs", "skipped until 2019-06-01 for bug 1652822")
	if skipped.Tests != 1 || skipped.Skipped != 1 || skipped.Testcases[0].Skipped == nil {
		t.Errorf("skippedSuite() = %+v, want one skipped test case", skipped)
	}
	if got := skipped.Testcases[0].Skipped.Message; !strings.Contains(got, "1652822") {
		t.Errorf("skipped message = %q, want the bug number", got)
	}

	errored := errorSuite("network-TrustyTestNetwork", "TrustyTestNetwork", &testError{"boom"})
	if errored.Tests != 1 || errored.Errors != 1 || errored.Testcases[0].Error == nil {
		t.Errorf("errorSuite() = %+v, want one errored test case", errored)
	}
}

type testError struct{ msg string }

func (e *testError) Error() string { return e.msg }
