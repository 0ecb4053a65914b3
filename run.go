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
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/jstemmer/go-junit-report/v2/junit"
	"github.com/osinstaller/vmtests/utils"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// TestOutputFile is the name of the suite's go test -v output in a run
// directory.
const TestOutputFile = "test_output.txt"

// RunOpts configures RunTests.
type RunOpts struct {
	// BinDir holds the compiled suite binaries, named "<suite>.test".
	BinDir string
	// RunDir holds one directory per workflow ID with its collect directory.
	RunDir        string
	ParallelCount int
	// Timeout bounds each suite binary. Zero means no limit.
	Timeout time.Duration
	// MetricsFile, when set, receives the run's metrics in the Prometheus
	// text format.
	MetricsFile string
}

var (
	timeNow = time.Now

	// execSuite runs a suite binary and returns its standard output.
	execSuite = func(ctx context.Context, bin string, args, env []string) ([]byte, error) {
		cmd := exec.CommandContext(ctx, bin, args...)
		cmd.Env = append(os.Environ(), env...)
		logrus.Debugf("Going to execute: %q", cmd.String())
		return cmd.Output()
	}
)

// RunTests runs the suites of the workflows against their collected artifacts,
// at most opts.ParallelCount at a time, and returns the results as JUnit test
// suites in workflow order.
func RunTests(ctx context.Context, testWorkflows []*TestWorkflow, opts RunOpts) (*junit.Testsuites, error) {
	if opts.RunDir == "" {
		return nil, errors.New("no run directory")
	}
	parallel := opts.ParallelCount
	if parallel < 1 {
		parallel = 1
	}
	metrics := newTestMetrics(len(testWorkflows))
	results := make([]*junit.Testsuite, len(testWorkflows))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(parallel)
	for i, twf := range testWorkflows {
		i, twf := i, twf
		g.Go(func() error {
			metrics.started()
			defer metrics.done()
			start := timeNow()
			results[i] = runTestWorkflow(ctx, twf, opts)
			metrics.record(twf.Name, results[i], timeNow().Sub(start))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	suites := &junit.Testsuites{}
	for _, ts := range results {
		suites.AddSuite(*ts)
	}
	if opts.MetricsFile != "" {
		if err := metrics.writeTextfile(opts.MetricsFile); err != nil {
			return suites, fmt.Errorf("failed to write metrics: %w", err)
		}
	}
	return suites, nil
}

func runTestWorkflow(ctx context.Context, twf *TestWorkflow, opts RunOpts) *junit.Testsuite {
	log := logrus.WithFields(logrus.Fields{"suite": twf.Name, "case": twf.Case})
	if skipped, reason := twf.Skipped(timeNow()); skipped {
		log.Infof("Skipping: %s", reason)
		return skippedSuite(twf.ID(), twf.Case, reason)
	}
	if !twf.SkipBy.IsZero() {
		log.Warnf("Skip date %s has passed, running anyway", twf.SkipBy.Format(time.DateOnly))
	}

	md, err := twf.Metadata(opts.RunDir)
	if err != nil {
		return errorSuite(twf.ID(), twf.Case, err)
	}
	if !utils.Exists(md.CollectDir, utils.TypeDir) {
		return errorSuite(twf.ID(), twf.Case, fmt.Errorf("no collected artifacts in %s", md.CollectDir))
	}
	dir := filepath.Dir(md.CollectDir)
	mdPath := filepath.Join(dir, utils.MetadataFile)
	if err := utils.WriteMetadata(mdPath, md); err != nil {
		return errorSuite(twf.ID(), twf.Case, fmt.Errorf("failed to write run metadata: %w", err))
	}

	bin, err := filepath.Abs(filepath.Join(opts.BinDir, twf.Name+".test"))
	if err != nil {
		return errorSuite(twf.ID(), twf.Case, err)
	}
	log.Infof("Running %s", twf.testRun)
	out, err := execSuite(ctx, bin, twf.testArgs(opts.Timeout), []string{utils.MetadataEnv + "=" + mdPath})
	if werr := os.WriteFile(filepath.Join(dir, TestOutputFile), out, 0644); werr != nil {
		log.Warnf("Failed to save test output: %v", werr)
	}
	if err != nil {
		var ee *exec.ExitError
		if !errors.As(err, &ee) {
			return errorSuite(twf.ID(), twf.Case, fmt.Errorf("failed to execute %s: %w", bin, err))
		}
		log.Warnf("Test binary exited with error: %v stderr: %q", ee, ee.Stderr)
	}

	ts := convertToTestSuite([]string{string(out)}, twf.Case)
	ts.Name = twf.ID()
	if ts.Tests == 0 {
		return errorSuite(twf.ID(), twf.Case, fmt.Errorf("no tests matching %q ran", twf.testRun))
	}
	return ts
}
