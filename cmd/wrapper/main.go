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

// Wrapper is the binary executed inside the installed system. It runs the
// collect scripts of a workflow and uploads the collect directory to GCS.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"cloud.google.com/go/storage"
	"github.com/osinstaller/vmtests"
	"github.com/osinstaller/vmtests/collect"
	"github.com/sirupsen/logrus"
	"google.golang.org/api/option"
)

var (
	logLevel      = flag.String("log_level", "info", "logrus log level")
	workflowsFile = flag.String("workflows", "workflows.yaml", "workflow list as printed by manager -print")
	id            = flag.String("id", "", "<suite>-<case> of the workflow to collect for")
	collectDir    = flag.String("collect_dir", "", "local collect directory, defaults to a temporary directory")
	gcsPath       = flag.String("gcs_path", "", "gs:// path the collect directory is uploaded to as <id>/collect")
	credsFile     = flag.String("credentials_file", "", "service account credentials for the upload")
)

func main() {
	flag.Parse()
	level, err := logrus.ParseLevel(*logLevel)
	if err != nil {
		logrus.Fatalf("-log_level flag not valid: %v", err)
	}
	logrus.SetLevel(level)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	twf, err := vmtest.ReadWorkflow(*workflowsFile, *id)
	if err != nil {
		logrus.Fatalf("failed to find workflow: %v", err)
	}

	dir := *collectDir
	if dir == "" {
		if dir, err = os.MkdirTemp("", "vmtest-collect"); err != nil {
			logrus.Fatalf("failed to create collect dir: %v", err)
		}
	}
	logrus.Infof("Collecting %d scripts of %s into %s", len(twf.CollectScripts), twf.ID(), dir)
	if err := collect.Scripts(ctx, dir, twf.CollectScripts); err != nil {
		// Some files only exist on some releases, the suites report what is
		// missing.
		logrus.Warnf("collect scripts failed: %v", err)
	}

	if *gcsPath == "" {
		logrus.Infof("No -gcs_path, leaving artifacts in %s", dir)
		return
	}
	var opts []option.ClientOption
	if *credsFile != "" {
		opts = append(opts, option.WithCredentialsFile(*credsFile))
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		logrus.Fatalf("failed to create cloud storage client: %v", err)
	}
	defer client.Close()
	dst := strings.TrimSuffix(*gcsPath, "/") + "/" + twf.ID() + "/collect"
	if err := collect.UploadDir(ctx, client, dir, dst); err != nil {
		logrus.Fatalf("failed to upload artifacts: %v", err)
	}
	logrus.Infof("Uploaded artifacts to %s", dst)
}
