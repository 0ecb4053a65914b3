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

// Manager is a cli interface to the vmtest library. It builds the matrix of
// installer test workflows, fetches their collected artifacts and runs the
// verification suites against them.
package main

import (
	"context"
	"encoding/xml"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"github.com/osinstaller/vmtests"
	"github.com/osinstaller/vmtests/cleanerupper"
	"github.com/osinstaller/vmtests/collect"
	"github.com/osinstaller/vmtests/test_suites/lvmroot"
	"github.com/osinstaller/vmtests/test_suites/network"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

var (
	logLevel          = flag.String("log_level", "info", "logrus log level")
	printwf           = flag.Bool("print", false, "print out the test workflows as YAML and exit")
	outPath           = flag.String("out_path", "junit.xml", "junit xml path")
	confDir           = flag.String("conf_dir", "configs", "directory holding the install configurations")
	binDir            = flag.String("bin_dir", "bin", "directory holding the compiled suites, <suite>.test")
	runDir            = flag.String("run_dir", "", "directory holding one <suite>-<case>/collect directory per workflow")
	gcsPath           = flag.String("gcs_path", "", "gs:// path holding <suite>-<case>/collect folders to download into -run_dir")
	sshTarget         = flag.String("ssh_target", "", "user@host:port of a booted installed system to collect from over ssh, requires a single workflow")
	sshKey            = flag.String("ssh_key", "", "path of the PEM private key for -ssh_target")
	releases          = flag.String("releases", "", "comma separated list of releases to test, defaults to all")
	timeout           = flag.String("timeout", "10m", "timeout for each test suite binary")
	parallelCount     = flag.Int("parallel_count", 5, "TestParallelCount")
	filter            = flag.String("filter", "", "only run test suites matching filter")
	exclude           = flag.String("exclude", "", "skip test suites matching filter")
	caseFilter        = flag.String("case_filter", "", "only run cases matching filter")
	metricsFile       = flag.String("metrics_file", "", "write run metrics in the Prometheus text format to this file")
	setExitStatus     = flag.Bool("set_exit_status", true, "Exit with non-zero exit code if test suites are failing")
	testExcludeFilter = flag.String("exclude_discrete_tests", "", "skip individual tests within suites that match the regexp filter")
	cleanOlderThan    = flag.String("clean_older_than", "", "delete artifacts under -gcs_path and -run_dir older than this duration, then exit")
	cleanWorkflow     = flag.String("clean_workflow", "", "delete artifacts of the <suite>-<case> workflow under -gcs_path and -run_dir, then exit")
	cleanDryRun       = flag.Bool("clean_dry_run", false, "with -clean_older_than or -clean_workflow, only print what would be deleted")
)

type testPackage struct {
	name      string
	setupFunc func(confDir string) ([]*vmtest.TestWorkflow, error)
}

var testPackages = []testPackage{
	{
		network.Name,
		network.TestSetup,
	},
	{
		lvmroot.Name,
		lvmroot.TestSetup,
	},
}

func compileFlag(name, value string) *regexp.Regexp {
	if value == "" {
		return nil
	}
	re, err := regexp.Compile(value)
	if err != nil {
		logrus.Fatalf("-%s flag not valid: %v", name, err)
	}
	logrus.Infof("using -%s %s", name, value)
	return re
}

func selectedReleases() map[string]bool {
	if *releases == "" {
		return nil
	}
	selected := make(map[string]bool)
	for _, name := range strings.Split(*releases, ",") {
		r, err := vmtest.ParseRelease(strings.TrimSpace(name))
		if err != nil {
			logrus.Fatalf("-releases flag not valid: %v", err)
		}
		selected[r.ID()] = true
	}
	return selected
}

// setupWorkflows builds the workflow matrix of every selected suite.
func setupWorkflows() ([]*vmtest.TestWorkflow, error) {
	filterRegex := compileFlag("filter", *filter)
	excludeRegex := compileFlag("exclude", *exclude)
	caseRegex := compileFlag("case_filter", *caseFilter)
	if *testExcludeFilter != "" {
		logrus.Infof("Using -exclude_discrete_tests %s", *testExcludeFilter)
	}
	rels := selectedReleases()

	var testWorkflows []*vmtest.TestWorkflow
	for _, tp := range testPackages {
		if filterRegex != nil && !filterRegex.MatchString(tp.name) {
			continue
		}
		if excludeRegex != nil && excludeRegex.MatchString(tp.name) {
			continue
		}
		twfs, err := tp.setupFunc(*confDir)
		if err != nil {
			return nil, fmt.Errorf("%s.TestSetup failed: %w", tp.name, err)
		}
		for _, twf := range twfs {
			if rels != nil && !rels[twf.Release.ID()] {
				continue
			}
			if caseRegex != nil && !caseRegex.MatchString(twf.Case) {
				continue
			}
			if *testExcludeFilter != "" {
				if err := twf.ExcludeTests(*testExcludeFilter); err != nil {
					return nil, err
				}
			}
			logrus.Debugf("Add test workflow %s on %s", twf.ID(), twf.Release)
			testWorkflows = append(testWorkflows, twf)
		}
	}
	return testWorkflows, nil
}

// fetchArtifacts fills the run directory from GCS or over ssh.
func fetchArtifacts(ctx context.Context, testWorkflows []*vmtest.TestWorkflow) error {
	if *gcsPath != "" {
		client, err := storage.NewClient(ctx)
		if err != nil {
			return fmt.Errorf("failed to set up storage client: %w", err)
		}
		defer client.Close()

		g, ctx := errgroup.WithContext(ctx)
		g.SetLimit(*parallelCount)
		for _, twf := range testWorkflows {
			src := strings.TrimSuffix(*gcsPath, "/") + "/" + twf.ID() + "/collect"
			dst := filepath.Join(*runDir, twf.ID(), "collect")
			g.Go(func() error {
				if err := collect.DownloadPrefix(ctx, client, src, dst); err != nil {
					logrus.Warnf("failed to download test artifacts from %s to %s: %v", src, dst, err)
				}
				return nil
			})
		}
		return g.Wait()
	}

	if *sshTarget != "" {
		if len(testWorkflows) != 1 {
			return fmt.Errorf("-ssh_target needs exactly one workflow, have %d", len(testWorkflows))
		}
		user, host, ok := strings.Cut(*sshTarget, "@")
		if !ok {
			return fmt.Errorf("-ssh_target %q is not user@host:port", *sshTarget)
		}
		key, err := os.ReadFile(*sshKey)
		if err != nil {
			return fmt.Errorf("failed to read -ssh_key: %w", err)
		}
		client, err := collect.DialSSH(user, host, key)
		if err != nil {
			return fmt.Errorf("failed to connect to %s: %w", host, err)
		}
		defer client.Close()
		twf := testWorkflows[0]
		return client.Collect(ctx, filepath.Join(*runDir, twf.ID(), "collect"), twf.CollectScripts)
	}
	return nil
}

// cleanPolicy deletes what is older than olderThan and belongs to workflow.
// Empty arguments do not restrict.
func cleanPolicy(olderThan, workflow string, now time.Time) (cleanerupper.PolicyFunc, error) {
	var policies []cleanerupper.PolicyFunc
	if olderThan != "" {
		d, err := time.ParseDuration(olderThan)
		if err != nil {
			return nil, fmt.Errorf("-clean_older_than flag not valid: %w", err)
		}
		policies = append(policies, cleanerupper.AgePolicy(now.Add(-d)))
	}
	if workflow != "" {
		policies = append(policies, cleanerupper.WorkflowPolicy(workflow))
	}
	if len(policies) == 0 {
		return nil, errors.New("no clean up policy")
	}
	return func(resource any) bool {
		for _, p := range policies {
			if !p(resource) {
				return false
			}
		}
		return true
	}, nil
}

// cleanArtifacts removes run directories and GCS artifacts matching policy.
func cleanArtifacts(ctx context.Context, policy cleanerupper.PolicyFunc) int {
	var deleted []string
	var errs []error
	if *gcsPath != "" {
		bucket, prefix, err := collect.ParseGCSURL(*gcsPath)
		if err != nil {
			logrus.Fatalf("-gcs_path flag not valid: %v", err)
		}
		clients, err := cleanerupper.NewClients(ctx)
		if err != nil {
			logrus.Fatalf("failed to set up storage client: %v", err)
		}
		d, e := cleanerupper.CleanArtifacts(ctx, *clients, bucket, prefix, policy, *cleanDryRun)
		deleted = append(deleted, d...)
		errs = append(errs, e...)
	}
	if *runDir != "" {
		d, e := cleanerupper.CleanRunDirs(*runDir, policy, *cleanDryRun)
		deleted = append(deleted, d...)
		errs = append(errs, e...)
	}
	for _, d := range deleted {
		if *cleanDryRun {
			logrus.Infof("would delete %s", d)
		} else {
			logrus.Infof("deleted %s", d)
		}
	}
	for _, err := range errs {
		logrus.Errorf("clean up: %v", err)
	}
	return len(errs)
}

func writeJUnit(suites any) {
	bytes, err := xml.MarshalIndent(suites, "", "\t")
	if err != nil {
		logrus.Fatalf("failed to marshall result: %v", err)
	}
	bytes = []byte(fmt.Sprintf("%s%s", xml.Header, bytes))
	var outFile *os.File
	if artifacts := os.Getenv("ARTIFACTS"); artifacts != "" {
		outFile, err = os.Create(artifacts + "/junit.xml")
	} else {
		outFile, err = os.Create(*outPath)
	}
	if err != nil {
		logrus.Fatalf("failed to create output file: %v", err)
	}
	defer outFile.Close()

	outFile.Write(bytes)
	outFile.Write([]byte{'\n'})
	fmt.Printf("%s\n", bytes)
}

func main() {
	flag.Parse()
	level, err := logrus.ParseLevel(*logLevel)
	if err != nil {
		logrus.Fatalf("-log_level flag not valid: %v", err)
	}
	logrus.SetLevel(level)

	if *cleanOlderThan != "" || *cleanWorkflow != "" {
		policy, err := cleanPolicy(*cleanOlderThan, *cleanWorkflow, time.Now())
		if err != nil {
			logrus.Fatal(err)
		}
		if n := cleanArtifacts(context.Background(), policy); n > 0 {
			logrus.Fatalf("%d errors during clean up", n)
		}
		return
	}

	testWorkflows, err := setupWorkflows()
	if err != nil {
		logrus.Fatal(err)
	}
	if len(testWorkflows) == 0 {
		logrus.Fatalf("No workflows to run!")
	}
	logrus.Infof("Done with setup of %d workflows", len(testWorkflows))

	if *printwf {
		out, err := vmtest.MarshalWorkflows(testWorkflows)
		if err != nil {
			logrus.Fatalf("failed to print workflows: %v", err)
		}
		fmt.Print(string(out))
		return
	}

	if *runDir == "" {
		logrus.Fatal("Must provide -run_dir")
	}
	suiteTimeout, err := time.ParseDuration(*timeout)
	if err != nil {
		logrus.Fatalf("-timeout flag not valid: %v", err)
	}

	ctx := context.Background()
	if err := fetchArtifacts(ctx, testWorkflows); err != nil {
		logrus.Fatalf("Failed to fetch artifacts: %v", err)
	}

	suites, err := vmtest.RunTests(ctx, testWorkflows, vmtest.RunOpts{
		BinDir:        *binDir,
		RunDir:        *runDir,
		ParallelCount: *parallelCount,
		Timeout:       suiteTimeout,
		MetricsFile:   *metricsFile,
	})
	if err != nil && suites == nil {
		logrus.Fatalf("Failed to run tests: %v", err)
	}
	if err != nil {
		logrus.Warn(err)
	}
	writeJUnit(suites)

	if *setExitStatus && (suites.Errors != 0 || suites.Failures != 0) {
		logrus.Fatalf("test suite has error or failure")
	}
}
