/*
Copyright © 2026 the shpconv authors.
This file is part of shpconv.

shpconv is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

shpconv is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with shpconv.  If not, see <http://www.gnu.org/licenses/>.
*/

package shpconvutil

import (
	"context"
	"fmt"
	"io"
	"io/ioutil"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/cenkalti/backoff"
	"github.com/sirupsen/logrus"
	"gocloud.dev/blob"
	"gocloud.dev/blob/fileblob"
	"gocloud.dev/blob/gcsblob"
	"gocloud.dev/blob/s3blob"
	"gocloud.dev/gcp"
)

// maybeDownload checks if path is an existing local file. If it is not
// and path is a URL or blob storage location, the file is downloaded to a
// temporary directory and the downloaded path is returned. Any other path
// is returned unchanged so that missing local files are reported by the
// caller.
func maybeDownload(ctx context.Context, path string, log logrus.FieldLogger) (string, error) {
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		return path, nil
	}
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return downloadHTTP(ctx, path, log)
	}
	if IsBlob(path) {
		return downloadBlob(ctx, path, log)
	}
	return path, nil
}

// tempFile creates a file named after the last element of u in a new
// temporary directory.
func tempFile(u string) (*os.File, error) {
	dir, err := ioutil.TempDir("", "shpconv")
	if err != nil {
		return nil, fmt.Errorf("shpconv: creating temporary download directory: %v", err)
	}
	name := path.Base(u)
	if i := strings.IndexAny(name, "?#"); i >= 0 {
		name = name[:i]
	}
	f, err := os.Create(filepath.Join(dir, name))
	if err != nil {
		return nil, fmt.Errorf("shpconv: creating file for download: %v", err)
	}
	return f, nil
}

// downloadHTTP downloads a file from the specified URL and returns
// the path to the downloaded file. Network errors and server errors are
// retried with exponential backoff.
func downloadHTTP(ctx context.Context, u string, log logrus.FieldLogger) (string, error) {
	w, err := tempFile(u)
	if err != nil {
		return "", err
	}
	defer w.Close()
	var n int64
	err = backoff.RetryNotify(
		func() error {
			if _, err := w.Seek(0, io.SeekStart); err != nil {
				return backoff.Permanent(err)
			}
			if err := w.Truncate(0); err != nil {
				return backoff.Permanent(err)
			}
			req, err := http.NewRequest(http.MethodGet, u, nil)
			if err != nil {
				return backoff.Permanent(err)
			}
			resp, err := http.DefaultClient.Do(req.WithContext(ctx))
			if err != nil {
				return err
			}
			defer resp.Body.Close()
			if resp.StatusCode >= 500 {
				return fmt.Errorf("%s", resp.Status)
			} else if resp.StatusCode != http.StatusOK {
				return backoff.Permanent(fmt.Errorf("%s", resp.Status))
			}
			n, err = io.Copy(w, resp.Body)
			return err
		},
		backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 4), ctx),
		func(err error, d time.Duration) {
			log.WithError(err).Warnf("downloading %s: retrying in %v", u, d)
		},
	)
	if err != nil {
		return "", fmt.Errorf("shpconv: downloading %s: %v", u, err)
	}
	log.WithFields(logrus.Fields{"url": u, "bytes": n}).Info("downloaded file")
	return w.Name(), w.Close()
}

// IsBlob returns whether the given filename represents a blob.
// (i.e., if it starts with `gs://`, 's3://', or 'file://').
func IsBlob(path string) bool {
	return strings.HasPrefix(path, "gs://") || strings.HasPrefix(path, "s3://") || strings.HasPrefix(path, "file://")
}

// splitBlob splits a blob location into the bucket location and the key
// of the object within the bucket. A file:// location without a host
// refers to the root of the local filesystem.
func splitBlob(loc string) (bucket, key string, err error) {
	u, err := url.Parse(loc)
	if err != nil {
		return "", "", fmt.Errorf("shpconv: parsing blob location %q: %v", loc, err)
	}
	return u.Scheme + "://" + u.Host, strings.TrimPrefix(u.Path, "/"), nil
}

// OpenBucket returns the blob storage bucket specified by bucketName,
// where bucketName must be in the format 'provider://name' where provider
// is the name of the storage provider and name is the name of the bucket.
// The currently accepted storage providers are "file" for the local filesystem
// (e.g., for testing), "gs" for Google Cloud Storage, and "s3" for AWS S3.
func OpenBucket(ctx context.Context, bucketName string) (*blob.Bucket, error) {
	u, err := url.Parse(bucketName)
	if err != nil {
		return nil, fmt.Errorf("shpconv: opening bucket: %v", err)
	}
	switch u.Scheme {
	case "file":
		dir := u.Host
		if dir == "" {
			dir = "/"
		}
		return fileblob.OpenBucket(dir, nil)
	case "gs":
		return gsBucket(ctx, u.Hostname())
	case "s3":
		return s3Bucket(ctx, u.Hostname())
	default:
		return nil, fmt.Errorf("shpconv: invalid blob storage provider %q", u.Scheme)
	}
}

func gsBucket(ctx context.Context, name string) (*blob.Bucket, error) {
	// See here for information on credentials:
	// https://cloud.google.com/docs/authentication/getting-started
	creds, err := gcp.DefaultCredentials(ctx)
	if err != nil {
		return nil, err
	}
	c, err := gcp.NewHTTPClient(gcp.DefaultTransport(), gcp.CredentialsTokenSource(creds))
	if err != nil {
		return nil, err
	}
	return gcsblob.OpenBucket(ctx, c, name, nil)
}

// s3Bucket opens an s3 storage bucket. It assumes the following
// environment variables are set: AWS_REGION, AWS_ACCESS_KEY_ID, and
// AWS_SECRET_ACCESS_KEY.
func s3Bucket(ctx context.Context, name string) (*blob.Bucket, error) {
	region := os.Getenv("AWS_REGION")
	if region == "" {
		region = "ap-northeast-2"
	}
	c := &aws.Config{
		Region:      aws.String(region),
		Credentials: credentials.NewEnvCredentials(),
	}
	s, err := session.NewSession(c)
	if err != nil {
		return nil, err
	}
	return s3blob.OpenBucket(ctx, s, name, nil)
}

// downloadBlob downloads the specified file from blob storage.
func downloadBlob(ctx context.Context, loc string, log logrus.FieldLogger) (string, error) {
	bucketName, key, err := splitBlob(loc)
	if err != nil {
		return "", err
	}
	bucket, err := OpenBucket(ctx, bucketName)
	if err != nil {
		return "", err
	}
	defer bucket.Close()
	r, err := bucket.NewReader(ctx, key, nil)
	if err != nil {
		return "", fmt.Errorf("shpconv: reading %s: %v", loc, err)
	}
	defer r.Close()
	w, err := tempFile(key)
	if err != nil {
		return "", err
	}
	defer w.Close()
	n, err := io.Copy(w, r)
	if err != nil {
		return "", fmt.Errorf("shpconv: downloading %s: %v", loc, err)
	}
	log.WithFields(logrus.Fields{"blob": loc, "bytes": n}).Info("downloaded file")
	return w.Name(), w.Close()
}
