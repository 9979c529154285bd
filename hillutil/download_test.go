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
	"io/ioutil"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestMaybeDownloadLocal(t *testing.T) {
	ctx := context.Background()
	for _, path := range []string{"/dev/null", "/blah/test/"} {
		k, err := maybeDownload(ctx, path, helperLog(t))
		if err != nil {
			t.Fatal(err)
		}
		if k != path {
			t.Errorf("expected %s, got %s", path, k)
		}
	}
}

func TestMaybeDownloadRemote(t *testing.T) {
	dir, err := ioutil.TempDir("", "synthhill_download")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(dir)
	if err := ioutil.WriteFile(filepath.Join(dir, "surf.nc"), []byte("surface"), 0644); err != nil {
		t.Fatal(err)
	}
	srv := httptest.NewServer(http.FileServer(http.Dir(dir)))
	defer srv.Close()
	ctx := context.Background()

	k, err := maybeDownload(ctx, srv.URL+"/surf.nc", helperLog(t))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasSuffix(k, "surf.nc") || k == srv.URL+"/surf.nc" {
		t.Errorf("expected tempDir/surf.nc, got %s", k)
	}
	b, err := ioutil.ReadFile(k)
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != "surface" {
		t.Errorf("downloaded contents = %q", b)
	}

	if _, err := maybeDownload(ctx, srv.URL+"/missing.nc", helperLog(t)); err == nil {
		t.Error("missing remote file did not cause an error")
	}
}

func TestMaybeDownloadBlob(t *testing.T) {
	dir, err := ioutil.TempDir("", "synthhill_download")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(dir)
	ctx := context.Background()

	u := uploader{log: helperLog(t)}
	local := u.maybeUpload("file://" + dir + "/surf.nc")
	if u.err != nil {
		t.Fatal(u.err)
	}
	if err := ioutil.WriteFile(local, []byte("surface"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := u.uploadOutput(ctx); err != nil {
		t.Fatal(err)
	}

	k, err := maybeDownload(ctx, "file://"+dir+"/surf.nc", helperLog(t))
	if err != nil {
		t.Fatal(err)
	}
	b, err := ioutil.ReadFile(k)
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != "surface" {
		t.Errorf("downloaded contents = %q", b)
	}
}

func TestSplitBlob(t *testing.T) {
	tests := []struct{ path, bucket, key string }{
		{"gs://bucket/dir/file.nc", "gs://bucket", "dir/file.nc"},
		{"s3://bucket/file.nc", "s3://bucket", "file.nc"},
		{"file:///tmp/dir/file.nc", "file:///tmp/dir", "file.nc"},
	}
	for _, test := range tests {
		bucket, key, err := splitBlob(test.path)
		if err != nil {
			t.Fatal(err)
		}
		if bucket != test.bucket || key != test.key {
			t.Errorf("%s: have (%s, %s); want (%s, %s)", test.path, bucket, key, test.bucket, test.key)
		}
	}
}

func TestIsBlob(t *testing.T) {
	tests := map[string]bool{
		"gs://bucket/file.nc":  true,
		"s3://bucket/file.nc":  true,
		"file:///tmp/file.nc":  true,
		"/tmp/file.nc":         false,
		"http://host/file.nc":  false,
		"surfdata_0.9x1.25.nc": false,
	}
	for path, want := range tests {
		if IsBlob(path) != want {
			t.Errorf("IsBlob(%s) = %v; want %v", path, !want, want)
		}
	}
}
