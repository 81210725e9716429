package storage

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeS3 serves just enough of the path-style S3 API for the SDK client
type fakeS3 struct {
	mu      sync.Mutex
	buckets map[string]bool
	objects map[string]string // bucket/key -> body
	headers map[string]http.Header
}

func newFakeS3() *fakeS3 {
	return &fakeS3{
		buckets: make(map[string]bool),
		objects: make(map[string]string),
		headers: make(map[string]http.Header),
	}
}

func (f *fakeS3) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	parts := strings.SplitN(strings.TrimPrefix(r.URL.Path, "/"), "/", 2)
	bucket := parts[0]
	key := ""
	if len(parts) == 2 {
		key = parts[1]
	}

	switch {
	case key == "" && r.Method == http.MethodHead:
		if !f.buckets[bucket] {
			w.WriteHeader(http.StatusNotFound)
			return
		}
	case key == "" && r.Method == http.MethodPut:
		f.buckets[bucket] = true
		f.headers[bucket] = r.Header.Clone()
	case r.Method == http.MethodHead:
		if _, ok := f.objects[bucket+"/"+key]; !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
	case r.Method == http.MethodPut:
		body, _ := io.ReadAll(r.Body)
		f.objects[bucket+"/"+key] = string(body)
		f.headers[bucket+"/"+key] = r.Header.Clone()
		w.Header().Set("ETag", `"etag"`)
	case r.Method == http.MethodGet:
		body, ok := f.objects[bucket+"/"+key]
		if !ok {
			w.Header().Set("Content-Type", "application/xml")
			w.WriteHeader(http.StatusNotFound)
			_, _ = io.WriteString(w, `<?xml version="1.0" encoding="UTF-8"?><Error><Code>NoSuchKey</Code><Message>missing</Message></Error>`)
			return
		}
		_, _ = io.WriteString(w, body)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func newTestSDK(t *testing.T, fake *fakeS3) *SDK {
	t.Helper()
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	t.Setenv("AWS_ACCESS_KEY_ID", "test")
	t.Setenv("AWS_SECRET_ACCESS_KEY", "test")
	t.Setenv("AWS_CONFIG_FILE", filepath.Join(t.TempDir(), "config"))
	t.Setenv("AWS_SHARED_CREDENTIALS_FILE", filepath.Join(t.TempDir(), "credentials"))

	s, err := NewSDK(context.Background(), SDKConfig{Region: "us-east-1", Endpoint: srv.URL})
	require.NoError(t, err)
	return s
}

func TestSDKBucketLifecycle(t *testing.T) {
	fake := newFakeS3()
	s := newTestSDK(t, fake)
	ctx := context.Background()

	ok, err := s.BucketExists(ctx, "charts-bucket")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.CreateBucket(ctx, "charts-bucket"))
	assert.Equal(t, "ObjectWriter", fake.headers["charts-bucket"].Get("X-Amz-Object-Ownership"))

	ok, err = s.BucketExists(ctx, "charts-bucket")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestSDKObjects(t *testing.T) {
	fake := newFakeS3()
	fake.buckets["b"] = true
	s := newTestSDK(t, fake)
	ctx := context.Background()

	ok, err := s.ObjectExists(ctx, "b", "index.yaml")
	require.NoError(t, err)
	assert.False(t, ok)

	local := filepath.Join(t.TempDir(), "index.yaml")
	require.NoError(t, os.WriteFile(local, []byte("apiVersion: v1\n"), 0644))
	require.NoError(t, s.Upload(ctx, "b", local, "index.yaml", UploadOptions{ContentType: "text/yaml", PublicRead: true}))

	h := fake.headers["b/index.yaml"]
	assert.Equal(t, "public-read", h.Get("X-Amz-Acl"))
	assert.Equal(t, "text/yaml", h.Get("Content-Type"))

	ok, err = s.ObjectExists(ctx, "b", "index.yaml")
	require.NoError(t, err)
	assert.True(t, ok)

	fake.objects["b/remote.yaml"] = "entries: {}\n"
	dst := filepath.Join(t.TempDir(), "remote.yaml")
	require.NoError(t, s.Download(ctx, "b", "remote.yaml", dst))
	data, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, "entries: {}\n", string(data))

	assert.Error(t, s.Download(ctx, "b", "missing.yaml", filepath.Join(t.TempDir(), "x")))
}
