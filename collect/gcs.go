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

package collect

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"github.com/googleapis/gax-go/v2"
	"github.com/sirupsen/logrus"
	"google.golang.org/api/iterator"
)

// ParseGCSURL splits a gs://bucket/prefix URL. The prefix has no leading
// or trailing slash.
func ParseGCSURL(s string) (bucket, prefix string, err error) {
	u, err := url.Parse(s)
	if err != nil {
		return "", "", fmt.Errorf("failed to parse gcs url: %w", err)
	}
	if u.Scheme != "gs" || u.Host == "" {
		return "", "", fmt.Errorf("%q is not a gs://bucket/path url", s)
	}
	return u.Host, strings.Trim(u.Path, "/"), nil
}

// UploadDir uploads every file under dir to the gs:// URL dst, keeping the
// relative paths.
func UploadDir(ctx context.Context, client *storage.Client, dir, dst string) error {
	bucket, prefix, err := ParseGCSURL(dst)
	if err != nil {
		return err
	}
	return filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		rel, err := filepath.Rel(dir, p)
		if err != nil {
			return err
		}
		object := path.Join(prefix, filepath.ToSlash(rel))
		return uploadFile(ctx, client, bucket, object, p)
	})
}

func uploadFile(ctx context.Context, client *storage.Client, bucket, object, src string) error {
	logrus.Debugf("uploading %s to bucket %s object %s", src, bucket, object)
	f, err := os.Open(src)
	if err != nil {
		return err
	}
	defer f.Close()

	obj := client.Bucket(bucket).Object(object).Retryer(
		storage.WithBackoff(gax.Backoff{Initial: time.Second, Max: 5 * time.Second}),
		storage.WithPolicy(storage.RetryAlways),
	)
	dst := obj.NewWriter(ctx)
	if _, err := io.Copy(dst, f); err != nil {
		dst.Close()
		return fmt.Errorf("failed to write %s to gcs: %w", object, err)
	}
	if err := dst.Close(); err != nil {
		return fmt.Errorf("failed to close gcs writer for %s: %w", object, err)
	}
	return nil
}

// DownloadPrefix downloads every object under the gs:// URL src into dstDir,
// keeping the paths relative to src.
func DownloadPrefix(ctx context.Context, client *storage.Client, src, dstDir string) error {
	bucket, prefix, err := ParseGCSURL(src)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dstDir, 0755); err != nil {
		return err
	}
	query := &storage.Query{Prefix: prefix}
	if prefix != "" {
		query.Prefix = prefix + "/"
	}
	objs := client.Bucket(bucket).Objects(ctx, query)

	var errs []error
	for {
		obj, err := objs.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return err
		}
		if strings.HasSuffix(obj.Name, "/") {
			continue
		}
		dst, err := localPath(dstDir, strings.TrimPrefix(obj.Name, query.Prefix))
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if err := downloadObject(ctx, client, bucket, obj.Name, dst); err != nil {
			logrus.Warnf("failed to download %s: %v", obj.Name, err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func downloadObject(ctx context.Context, client *storage.Client, bucket, object, dst string) error {
	objReader, err := client.Bucket(bucket).Object(object).NewReader(ctx)
	if err != nil {
		return fmt.Errorf("failed to make reader for %s: %w", object, err)
	}
	defer objReader.Close()
	return writeFile(dst, objReader, 0644)
}
