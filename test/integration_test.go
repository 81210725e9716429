package test

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ralt/chartrepo/internal/index"
	"github.com/ralt/chartrepo/internal/models"
	"github.com/ralt/chartrepo/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	minioPort     = "19000"
	minioUser     = "chartrepo"
	minioPassword = "chartrepo-secret"
	testBucket    = "chartrepo-it"
)

// TestIntegration drives the chartrepo binary against a MinIO container
// through the SDK storage client, with real helm lint/index runs
func TestIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration tests in short mode")
	}

	// Check if Docker and helm are available
	if !isDockerAvailable() {
		t.Skip("Docker not available, skipping integration tests")
	}
	if _, err := exec.LookPath("helm"); err != nil {
		t.Skip("helm not available, skipping integration tests")
	}

	// Get project root
	projectRoot, err := getProjectRoot()
	if err != nil {
		t.Fatalf("Failed to find project root: %v", err)
	}

	// Build chartrepo binary
	t.Log("Building chartrepo binary...")
	binDir := t.TempDir()
	if err := buildChartrepo(projectRoot, binDir); err != nil {
		t.Fatalf("Failed to build chartrepo: %v", err)
	}
	bin := filepath.Join(binDir, "chartrepo")

	endpoint := startMinio(t)

	t.Setenv("AWS_ACCESS_KEY_ID", minioUser)
	t.Setenv("AWS_SECRET_ACCESS_KEY", minioPassword)
	t.Setenv("AWS_REGION", "us-east-1")
	t.Setenv("CHARTREPO_STORAGE_CLIENT", models.StorageClientSDK)
	t.Setenv("CHARTREPO_ENDPOINT", endpoint)

	chartDir := t.TempDir()
	demo := packageChart(t, chartDir, "demo")

	t.Run("Configure", func(t *testing.T) {
		out := runChartrepo(t, bin, 0, "configure", testBucket, "-y")
		assert.Contains(t, out, "Repository ready: https://"+testBucket+".s3.amazonaws.com/")

		// A second configure must not clobber the index
		runChartrepo(t, bin, 1, "configure", testBucket, "-n")
	})

	t.Run("Add", func(t *testing.T) {
		out := runChartrepo(t, bin, 0, "add", testBucket, demo, "-y")
		assert.Contains(t, out, "Uploaded demo-0.1.0.tgz")

		out = runChartrepo(t, bin, 1, "add", testBucket, demo, "-n")
		assert.Contains(t, out, "ArtifactConflict")
	})

	t.Run("Index", func(t *testing.T) {
		idx := fetchIndex(t, endpoint)
		entries := idx.Entries["demo"]
		require.Len(t, entries, 1)
		assert.Equal(t, "0.1.0", entries[0].Version)
		assert.Equal(t, []string{"https://" + testBucket + ".s3.amazonaws.com/charts/demo-0.1.0.tgz"}, entries[0].URLs)
	})

	t.Log("✓ Chart repository test passed")
}

// Helper functions

func isDockerAvailable() bool {
	cmd := exec.Command("docker", "version")
	return cmd.Run() == nil
}

func getProjectRoot() (string, error) {
	// Try to find go.mod
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return "", fmt.Errorf("could not find project root (go.mod)")
}

func buildChartrepo(projectRoot, outDir string) error {
	cmd := exec.Command("go", "build", "-o", filepath.Join(outDir, "chartrepo"), "./cmd/chartrepo")
	cmd.Dir = projectRoot
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}

// startMinio runs a throwaway MinIO server and returns its endpoint
func startMinio(t *testing.T) string {
	t.Helper()

	name := fmt.Sprintf("chartrepo-it-%d", time.Now().UnixNano())
	cmd := exec.Command("docker", "run", "-d", "--rm",
		"--name", name,
		"-p", minioPort+":9000",
		"-e", "MINIO_ROOT_USER="+minioUser,
		"-e", "MINIO_ROOT_PASSWORD="+minioPassword,
		"minio/minio", "server", "/data",
	)
	if output, err := cmd.CombinedOutput(); err != nil {
		t.Fatalf("Failed to start MinIO: %v\nOutput: %s", err, output)
	}
	t.Cleanup(func() {
		_ = exec.Command("docker", "rm", "-f", name).Run()
	})

	endpoint := "http://127.0.0.1:" + minioPort
	deadline := time.Now().Add(time.Minute)
	for time.Now().Before(deadline) {
		resp, err := http.Get(endpoint + "/minio/health/live")
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return endpoint
			}
		}
		time.Sleep(500 * time.Millisecond)
	}
	t.Fatal("MinIO did not become ready")
	return ""
}

// packageChart scaffolds a chart with helm create and packages it
func packageChart(t *testing.T, dir, name string) string {
	t.Helper()

	for _, args := range [][]string{
		{"create", filepath.Join(dir, name)},
		{"package", filepath.Join(dir, name), "--destination", dir},
	} {
		if output, err := exec.Command("helm", args...).CombinedOutput(); err != nil {
			t.Fatalf("helm %s failed: %v\nOutput: %s", strings.Join(args, " "), err, output)
		}
	}

	path := filepath.Join(dir, name+"-0.1.0.tgz")
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("Packaged chart not found: %v", err)
	}
	return path
}

// runChartrepo runs the binary and checks its exit code
func runChartrepo(t *testing.T, bin string, wantCode int, args ...string) string {
	t.Helper()

	output, err := exec.Command(bin, args...).CombinedOutput()
	code := 0
	if exitErr, ok := err.(*exec.ExitError); ok {
		code = exitErr.ExitCode()
	} else if err != nil {
		t.Fatalf("Failed to run chartrepo: %v", err)
	}
	if code != wantCode {
		t.Fatalf("chartrepo %s exited %d, want %d\nOutput: %s", strings.Join(args, " "), code, wantCode, output)
	}
	return string(output)
}

func fetchIndex(t *testing.T, endpoint string) *index.Index {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	store, err := storage.NewSDK(ctx, storage.SDKConfig{Region: "us-east-1", Endpoint: endpoint})
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), models.IndexFile)
	require.NoError(t, store.Download(ctx, testBucket, models.IndexFile, path))

	idx, err := index.Load(path)
	require.NoError(t, err)
	return idx
}
