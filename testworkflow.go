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

// Package vmtest describes installer test runs and executes the test suites
// that verify the artifacts collected from them.
package vmtest

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"github.com/osinstaller/vmtests/utils"
	"gopkg.in/yaml.v3"
)

// CollectDirToken is replaced by the collect directory in collect scripts.
const CollectDirToken = "OUTPUT_COLLECT_D"

var caseNameRe = regexp.MustCompile(`^[A-Za-z0-9_]+$`)

// TestWorkflowOpts is an options struct for NewTestWorkflow.
type TestWorkflowOpts struct {
	// Name is the name of the test suite.
	Name string
	// Case names this configuration of the suite, for example
	// "XenialTestNetworkVlan".
	Case    string
	Release Release
	// ConfFile is the install configuration the installer was run with.
	ConfFile    string
	ConfReplace map[string]string
	// ExcludeFilter skips matching tests of the suite.
	ExcludeFilter string
}

// TestWorkflow is one installer run of a suite on a release and the tests
// that verify it.
type TestWorkflow struct {
	Name           string            `yaml:"name"`
	Case           string            `yaml:"case"`
	Release        Release           `yaml:"release"`
	ConfFile       string            `yaml:"conf_file"`
	ConfReplace    map[string]string `yaml:"conf_replace,omitempty"`
	CollectScripts []string          `yaml:"collect_scripts"`
	ExtraKernArgs  string            `yaml:"extra_kern_args,omitempty"`
	Enabled        bool              `yaml:"enabled"`
	SkipReason     string            `yaml:"skip_reason,omitempty"`
	// SkipBy is the date after which a date based skip no longer applies.
	SkipBy time.Time `yaml:"skip_by,omitempty"`

	testRun           string
	testExcludeFilter string
}

// NewTestWorkflow returns a new enabled TestWorkflow.
func NewTestWorkflow(opts *TestWorkflowOpts) (*TestWorkflow, error) {
	if opts.Name == "" {
		return nil, errors.New("test workflow needs a suite name")
	}
	if !caseNameRe.MatchString(opts.Case) {
		return nil, fmt.Errorf("invalid case name %q", opts.Case)
	}
	if opts.Release.Name == "" {
		return nil, fmt.Errorf("%s/%s: no release", opts.Name, opts.Case)
	}
	if opts.ExcludeFilter != "" {
		if _, err := regexp.Compile(opts.ExcludeFilter); err != nil {
			return nil, fmt.Errorf("invalid exclude filter: %w", err)
		}
	}
	replace := make(map[string]string, len(opts.ConfReplace))
	for k, v := range opts.ConfReplace {
		replace[k] = v
	}
	return &TestWorkflow{
		Name:              opts.Name,
		Case:              opts.Case,
		Release:           opts.Release,
		ConfFile:          opts.ConfFile,
		ConfReplace:       replace,
		Enabled:           true,
		testExcludeFilter: opts.ExcludeFilter,
	}, nil
}

// ID names the workflow's run directory.
func (t *TestWorkflow) ID() string {
	return t.Name + "-" + t.Case
}

// RunTests sets the regex selecting the suite tests to run.
func (t *TestWorkflow) RunTests(runtest string) {
	t.testRun = runtest
}

// ExcludeTests adds a regex of suite tests to skip.
func (t *TestWorkflow) ExcludeTests(filter string) error {
	if _, err := regexp.Compile(filter); err != nil {
		return fmt.Errorf("invalid exclude filter: %w", err)
	}
	if t.testExcludeFilter != "" {
		filter = t.testExcludeFilter + "|" + filter
	}
	t.testExcludeFilter = filter
	return nil
}

// TestRun returns the regex set by RunTests.
func (t *TestWorkflow) TestRun() string {
	return t.testRun
}

// AddCollectScript adds a shell script run on the installed system to
// collect artifacts. CollectDirToken in it is replaced by the collect
// directory.
func (t *TestWorkflow) AddCollectScript(script string) {
	t.CollectScripts = append(t.CollectScripts, script)
}

// Disable turns the workflow off.
func (t *TestWorkflow) Disable(reason string) {
	t.Enabled = false
	t.SkipReason = reason
}

// SkipByDate skips the workflow for a known bug until fixBy.
func (t *TestWorkflow) SkipByDate(bug string, fixBy time.Time) {
	t.SkipBy = fixBy
	t.SkipReason = fmt.Sprintf("skipped until %s for bug %s", fixBy.Format(time.DateOnly), bug)
}

// Skipped reports whether the workflow is skipped at now and why.
func (t *TestWorkflow) Skipped(now time.Time) (bool, string) {
	if !t.Enabled {
		return true, t.SkipReason
	}
	if !t.SkipBy.IsZero() && now.Before(t.SkipBy) {
		return true, t.SkipReason
	}
	return false, ""
}

// Metadata returns the run metadata the suite binary is given for the run in
// runDir.
func (t *TestWorkflow) Metadata(runDir string) (*utils.Metadata, error) {
	conf := t.ConfFile
	if conf != "" {
		abs, err := filepath.Abs(conf)
		if err != nil {
			return nil, err
		}
		conf = abs
	}
	collect, err := filepath.Abs(filepath.Join(runDir, t.ID(), "collect"))
	if err != nil {
		return nil, err
	}
	return &utils.Metadata{
		Suite:       t.Name,
		Case:        t.Case,
		Release:     t.Release.ID(),
		ConfFile:    conf,
		ConfReplace: t.ConfReplace,
		CollectDir:  collect,
	}, nil
}

// testArgs are the arguments of the suite test binary.
func (t *TestWorkflow) testArgs(timeout time.Duration) []string {
	args := []string{"-test.v"}
	if t.testRun != "" {
		args = append(args, "-test.run", t.testRun)
	}
	if t.testExcludeFilter != "" {
		args = append(args, "-test.skip", t.testExcludeFilter)
	}
	if timeout > 0 {
		args = append(args, "-test.timeout", timeout.String())
	}
	return args
}

// MarshalWorkflows renders workflows as YAML, the format ReadWorkflow reads.
func MarshalWorkflows(twfs []*TestWorkflow) ([]byte, error) {
	return yaml.Marshal(twfs)
}

// ReadWorkflow reads a YAML workflow list and returns the workflow with the
// given ID.
func ReadWorkflow(path, id string) (*TestWorkflow, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var twfs []*TestWorkflow
	if err := yaml.Unmarshal(data, &twfs); err != nil {
		return nil, fmt.Errorf("failed to parse workflows %s: %w", path, err)
	}
	for _, t := range twfs {
		if t.ID() == id {
			return t, nil
		}
	}
	return nil, fmt.Errorf("no workflow %s in %s", id, path)
}
