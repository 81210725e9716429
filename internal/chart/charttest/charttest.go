// Package charttest builds small packaged charts for tests
package charttest

import (
	"archive/tar"
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/ralt/chartrepo/internal/utils"
)

// Archive returns the bytes of a gzipped chart tarball. extra maps archive
// paths to contents and is added after <name>/Chart.yaml
func Archive(t testing.TB, name, version string, extra map[string]string) []byte {
	t.Helper()

	var tarBuf bytes.Buffer
	tw := tar.NewWriter(&tarBuf)

	write := func(path, content string) {
		hdr := &tar.Header{Name: path, Mode: 0644, Size: int64(len(content)), Typeflag: tar.TypeReg}
		if err := tw.WriteHeader(hdr); err != nil {
			t.Fatalf("Failed to write tar header: %v", err)
		}
		if _, err := tw.Write([]byte(content)); err != nil {
			t.Fatalf("Failed to write tar entry: %v", err)
		}
	}

	if name != "" {
		write(name+"/Chart.yaml", fmt.Sprintf("apiVersion: v2\nname: %s\nversion: %s\ndescription: test chart\n", name, version))
		write(name+"/values.yaml", "replicaCount: 1\n")
	}
	for path, content := range extra {
		write(path, content)
	}

	if err := tw.Close(); err != nil {
		t.Fatalf("Failed to close tar: %v", err)
	}

	data, err := utils.GzipCompress(tarBuf.Bytes())
	if err != nil {
		t.Fatalf("Failed to gzip chart: %v", err)
	}
	return data
}

// Write stores a chart archive as dir/filename and returns its path
func Write(t testing.TB, dir, filename, name, version string) string {
	t.Helper()

	path := filepath.Join(dir, filename)
	if err := os.WriteFile(path, Archive(t, name, version, nil), 0644); err != nil {
		t.Fatalf("Failed to write chart: %v", err)
	}
	return path
}
