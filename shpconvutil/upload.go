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
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
	"gocloud.dev/blob"
)

// uploader stages output files in a temporary directory when the output
// location is in blob storage.
type uploader struct {
	// dest is the blob storage output location, or empty if output is
	// written directly to the local filesystem.
	dest string
	dir  string
}

// newUploader prepares an uploader for the output location outputDir.
func newUploader(outputDir string) (*uploader, error) {
	if !IsBlob(outputDir) {
		return &uploader{dir: outputDir}, nil
	}
	dir, err := ioutil.TempDir("", "shpconv")
	if err != nil {
		return nil, fmt.Errorf("shpconv: creating temporary output directory: %v", err)
	}
	return &uploader{dest: outputDir, dir: dir}, nil
}

// localDir returns the directory converted files should be written to.
func (u *uploader) localDir() string { return u.dir }

// shpFiles returns the files that make up the shapefile at path.
func shpFiles(path string) []string {
	o := []string{path}
	base := strings.TrimSuffix(path, filepath.Ext(path))
	for _, ext := range []string{".shx", ".dbf", ".prj", ".cpg"} {
		if _, err := os.Stat(base + ext); err == nil {
			o = append(o, base+ext)
		}
	}
	return o
}

// upload copies the given shapefiles and their sidecar files to blob
// storage and returns their blob locations. If the output location is
// local, outputs is returned unchanged.
func (u *uploader) upload(ctx context.Context, outputs []string, log logrus.FieldLogger) ([]string, error) {
	if u.dest == "" {
		return outputs, nil
	}
	bucketName, prefix, err := splitBlob(u.dest)
	if err != nil {
		return nil, err
	}
	bucket, err := OpenBucket(ctx, bucketName)
	if err != nil {
		return nil, fmt.Errorf("shpconv: opening bucket to upload output: %v", err)
	}
	defer bucket.Close()

	var o []string
	for _, out := range outputs {
		for _, f := range shpFiles(out) {
			key := path.Join(prefix, filepath.Base(f))
			if err := uploadFile(ctx, bucket, f, key); err != nil {
				return o, err
			}
			log.WithFields(logrus.Fields{"file": f, "key": key}).Debug("uploaded file")
		}
		o = append(o, strings.TrimSuffix(u.dest, "/")+"/"+filepath.Base(out))
	}
	log.WithField("destination", u.dest).Infof("uploaded %d shapefiles", len(o))
	return o, os.RemoveAll(u.dir)
}

func uploadFile(ctx context.Context, bucket *blob.Bucket, file, key string) error {
	r, err := os.Open(file)
	if err != nil {
		return fmt.Errorf("shpconv: opening file '%s' for upload: %v", file, err)
	}
	defer r.Close()
	w, err := bucket.NewWriter(ctx, key, &blob.WriterOptions{})
	if err != nil {
		return fmt.Errorf("shpconv: opening writer to upload file '%s': %v", key, err)
	}
	if _, err := io.Copy(w, r); err != nil {
		w.Close()
		return fmt.Errorf("shpconv: uploading file '%s' to '%s': %v", file, key, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("shpconv: uploading file '%s' to '%s': %v", file, key, err)
	}
	return nil
}
