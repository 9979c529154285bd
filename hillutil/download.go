/*
Copyright © 2024 the synthhill authors.
This file is part of synthhill.

synthhill is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

synthhill is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with synthhill.  If not, see <http://www.gnu.org/licenses/>.
*/

package hillutil

import (
	"context"
	"fmt"
	"io"
	"io/ioutil"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/cenkalti/backoff"
	"github.com/google/go-cloud/blob"
	"github.com/google/go-cloud/blob/fileblob"
	"github.com/google/go-cloud/blob/gcsblob"
	"github.com/google/go-cloud/blob/s3blob"
	"github.com/google/go-cloud/gcp"
	"github.com/sirupsen/logrus"
)

// maxRetries is the number of times a failed transfer is retried.
const maxRetries = 5

// maybeDownload checks if the input is an existing file locally.
// If not, it checks if the file is a URL or a blob storage location.
// If it is, it downloads the file and
// returns the path to the downloaded file.
func maybeDownload(ctx context.Context, path string, log logrus.FieldLogger) (string, error) {
	// Check if local file exists. If it does, return the given path.
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		return path, nil
	}

	// If the path starts with one of these prefixes, download the file and
	// return the location it was downloaded to.
	if isHTTP(path) {
		return download(ctx, path, log, func(w io.Writer) error {
			return downloadHTTP(ctx, path, w)
		})
	}

	if IsBlob(path) {
		return download(ctx, path, log, func(w io.Writer) error {
			return downloadBlob(ctx, path, w)
		})
	}

	return path, nil
}

// isHTTP returns whether path is a web address.
func isHTTP(path string) bool {
	return strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://")
}

// localName returns the file name at the end of the web address path,
// without any query.
func localName(path string) string {
	if u, err := url.Parse(path); err == nil && u.Path != "" {
		return filepath.Base(u.Path)
	}
	return filepath.Base(path)
}

// download creates a file in a temporary directory with the same base
// name as path and fills it using get, retrying on failure.
func download(ctx context.Context, path string, log logrus.FieldLogger, get func(io.Writer) error) (string, error) {
	// Prepare a temporary directory for the downloads.
	dir, err := ioutil.TempDir("", "synthhill")
	if err != nil {
		return path, fmt.Errorf("synthhill: failed creating temporary download directory: %v", err)
	}
	fname := filepath.Join(dir, filepath.Base(path))
	log.WithField("url", path).Info("downloading input file")
	err = retry(ctx, log, func() error {
		w, err := os.Create(fname)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("synthhill: failed creating file for download: %v", err))
		}
		if err := get(w); err != nil {
			w.Close()
			return err
		}
		return w.Close()
	})
	if err != nil {
		return path, fmt.Errorf("synthhill: downloading %s: %v", path, err)
	}
	return fname, nil
}

// retry runs op until it succeeds, it returns a permanent error, ctx is
// done, or it has failed maxRetries times.
func retry(ctx context.Context, log logrus.FieldLogger, op func() error) error {
	b := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), maxRetries), ctx)
	return backoff.RetryNotify(op, b, func(err error, d time.Duration) {
		log.WithError(err).WithField("wait", d).Warn("transfer failed; retrying")
	})
}

// downloadHTTP writes the contents of the specified URL to w.
func downloadHTTP(ctx context.Context, path string, w io.Writer) error {
	req, err := http.NewRequest(http.MethodGet, path, nil)
	if err != nil {
		return backoff.Permanent(err)
	}
	resp, err := http.DefaultClient.Do(req.WithContext(ctx))
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		err := fmt.Errorf("server returned %s", resp.Status)
		if resp.StatusCode >= 400 && resp.StatusCode < 500 {
			return backoff.Permanent(err)
		}
		return err
	}
	_, err = io.Copy(w, resp.Body)
	return err
}

// IsBlob returns whether the given filename represents a blob.
// (i.e., if it starts with `gs://`, 's3://', or 'file://').
func IsBlob(path string) bool {
	return strings.HasPrefix(path, "gs://") || strings.HasPrefix(path, "s3://") || strings.HasPrefix(path, "file://")
}

// OpenBucket returns the blob storage bucket specified by bucketName,
// where bucketName must be in the format 'provider://name' where provider
// is the name of the storage provider and name is the name of the bucket.
// The currently accepted storage providers are "file" for the local filesystem
// (e.g., for testing), "gs" for Google Cloud Storage, and "s3" for AWS S3.
// For the "file" provider, name is a directory; it can be absolute
// ("file:///tmp/bucket") or relative to the working directory
// ("file://bucket").
func OpenBucket(ctx context.Context, bucketName string) (*blob.Bucket, error) {
	url, err := url.Parse(bucketName)
	if err != nil {
		return nil, fmt.Errorf("synthhill.OpenBucket: %v", err)
	}
	switch url.Scheme {
	case "file":
		return fileblob.NewBucket(url.Host + url.Path)
	case "gs":
		return gsBucket(ctx, url.Hostname())
	case "s3":
		return s3Bucket(ctx, url.Hostname())
	default:
		return nil, fmt.Errorf("synthhill.OpenBucket: invalid provider %s", url.Scheme)
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
	return gcsblob.OpenBucket(ctx, name, c)
}

// s3Bucket opens an s3 storage bucket. It assumes the following
// environment variables are set: AWS_REGION, AWS_ACCESS_KEY_ID, and
// AWS_SECRET_ACCESS_KEY.
func s3Bucket(ctx context.Context, name string) (*blob.Bucket, error) {
	region := os.Getenv("AWS_REGION")
	if region == "" {
		region = "us-east-2"
	}
	c := &aws.Config{
		Region:      aws.String(region),
		Credentials: credentials.NewEnvCredentials(),
	}
	s, err := session.NewSession(c)
	if err != nil {
		return nil, err
	}
	return s3blob.OpenBucket(ctx, s, name)
}

// splitBlob returns the bucket name and the key within the bucket of
// blob location path. For the "file" provider the key is the base name
// and the bucket is the directory containing it.
func splitBlob(path string) (bucket, key string, err error) {
	u, err := url.Parse(path)
	if err != nil {
		return "", "", err
	}
	if u.Scheme == "file" {
		dir, file := filepath.Split(u.Host + u.Path)
		return "file://" + strings.TrimSuffix(dir, "/"), file, nil
	}
	return u.Scheme + "://" + u.Host, strings.TrimPrefix(u.Path, "/"), nil
}

// downloadBlob writes the specified file from blob storage to w.
func downloadBlob(ctx context.Context, path string, w io.Writer) error {
	bucketName, key, err := splitBlob(path)
	if err != nil {
		return backoff.Permanent(err)
	}
	bucket, err := OpenBucket(ctx, bucketName)
	if err != nil {
		return backoff.Permanent(err)
	}
	r, err := bucket.NewReader(ctx, key)
	if err != nil {
		return err
	}
	defer r.Close()
	_, err = io.Copy(w, r)
	return err
}
