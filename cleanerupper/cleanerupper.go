// Copyright 2022 Google LLC.
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

// Package cleanerupper provides a library of functions to delete test run
// artifacts, in GCS and in local run directories, matching the given deletion
// policy.
package cleanerupper

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

const keepLabel = "do-not-delete"

// Clients contains all of the clients needed by cleanerupper functions.
type Clients struct {
	Storage artifactStore
}

type artifactStore interface {
	ListObjects(ctx context.Context, bucket, prefix string) ([]*storage.ObjectAttrs, error)
	DeleteObject(ctx context.Context, bucket, name string) error
}

type gcsStore struct {
	client *storage.Client
}

func (g *gcsStore) ListObjects(ctx context.Context, bucket, prefix string) ([]*storage.ObjectAttrs, error) {
	var objs []*storage.ObjectAttrs
	it := g.client.Bucket(bucket).Objects(ctx, &storage.Query{Prefix: prefix})
	for {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			return objs, nil
		}
		if err != nil {
			return nil, err
		}
		objs = append(objs, attrs)
	}
}

func (g *gcsStore) DeleteObject(ctx context.Context, bucket, name string) error {
	return g.client.Bucket(bucket).Object(name).Delete(ctx)
}

// NewClients initializes a struct of Clients for use by CleanX functions
func NewClients(ctx context.Context, opts ...option.ClientOption) (*Clients, error) {
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, err
	}
	return &Clients{Storage: &gcsStore{client: client}}, nil
}

// RunDir is a local run directory of a workflow.
type RunDir struct {
	Path    string
	ModTime time.Time
}

// PolicyFunc describes a function which takes a some resource and returns a
// bool indicating whether it should be deleted.
type PolicyFunc func(any) bool

func describe(resource any) (name string, labels map[string]string, created time.Time, ok bool) {
	switch r := resource.(type) {
	case *storage.ObjectAttrs:
		return r.Name, r.Metadata, r.Created, true
	case RunDir:
		return r.Path, nil, r.ModTime, true
	}
	return "", nil, time.Time{}, false
}

// AgePolicy takes a time.Time and returns a PolicyFunc which indicates to
// delete anything older than the given time. Artifacts with a "do-not-delete"
// label or path element are kept.
func AgePolicy(t time.Time) PolicyFunc {
	return func(resource any) bool {
		name, labels, created, ok := describe(resource)
		if !ok {
			return false
		}
		if _, keep := labels[keepLabel]; keep {
			return false
		}
		return t.After(created) && !strings.Contains(name, keepLabel)
	}
}

// WorkflowPolicy takes the ID of a workflow and returns a PolicyFunc which
// indicates to delete the artifacts of that workflow.
func WorkflowPolicy(id string) PolicyFunc {
	return func(resource any) bool {
		name, labels, _, ok := describe(resource)
		if !ok {
			return false
		}
		if _, keep := labels[keepLabel]; keep {
			return false
		}
		for _, elem := range strings.Split(filepath.ToSlash(name), "/") {
			if elem == id {
				return !strings.Contains(name, keepLabel)
			}
		}
		return false
	}
}

// CleanArtifacts deletes all objects under prefix indicated, returning a
// slice of deleted gs:// URLs and a slice of errors encountered. On dry run,
// returns what would have been deleted.
func CleanArtifacts(ctx context.Context, clients Clients, bucket, prefix string, delete PolicyFunc, dryRun bool) ([]string, []error) {
	objs, err := clients.Storage.ListObjects(ctx, bucket, prefix)
	if err != nil {
		return nil, []error{fmt.Errorf("error listing objects in bucket %q: %v", bucket, err)}
	}

	var deletedMu sync.Mutex
	var deleted []string
	var errsMu sync.Mutex
	var errs []error
	var wg sync.WaitGroup
	for _, o := range objs {
		if !delete(o) {
			continue
		}
		name := o.Name
		wg.Add(1)
		go func() {
			defer wg.Done()
			if !dryRun {
				if err := clients.Storage.DeleteObject(ctx, bucket, name); err != nil {
					errsMu.Lock()
					defer errsMu.Unlock()
					errs = append(errs, err)
					return
				}
			}
			deletedMu.Lock()
			defer deletedMu.Unlock()
			deleted = append(deleted, fmt.Sprintf("gs://%s/%s", bucket, name))
		}()
	}
	wg.Wait()
	return deleted, errs
}

// CleanRunDirs deletes the workflow directories of a local run directory
// indicated, returning a slice of deleted paths and a slice of encountered
// errors. On dry run, returns what would have been deleted.
func CleanRunDirs(runDir string, delete PolicyFunc, dryRun bool) ([]string, []error) {
	entries, err := os.ReadDir(runDir)
	if err != nil {
		return nil, []error{fmt.Errorf("error listing run dir %q: %v", runDir, err)}
	}

	var deleted []string
	var errs []error
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		info, err := e.Info()
		if err != nil {
			errs = append(errs, err)
			continue
		}
		dir := RunDir{Path: filepath.Join(runDir, e.Name()), ModTime: info.ModTime()}
		if !delete(dir) {
			continue
		}
		if !dryRun {
			if err := os.RemoveAll(dir.Path); err != nil {
				errs = append(errs, err)
				continue
			}
		}
		deleted = append(deleted, dir.Path)
	}
	return deleted, errs
}
