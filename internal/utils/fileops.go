package utils

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
)

// CopyFile copies a file from src to dst
func CopyFile(src, dst string) error {
	// Create destination directory if it doesn't exist
	dstDir := filepath.Dir(dst)
	if err := os.MkdirAll(dstDir, 0755); err != nil {
		return err
	}

	srcFile, err := os.Open(src)
	if err != nil {
		return err
	}
	defer srcFile.Close()

	dstFile, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return err
	}
	defer dstFile.Close()

	if _, err := io.Copy(dstFile, srcFile); err != nil {
		return err
	}

	// Sync to disk
	return dstFile.Sync()
}

// IsRegularFile reports whether path exists and is a regular file
func IsRegularFile(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.Mode().IsRegular()
}

// WithTempDir creates a private working directory under base (or the OS
// default when base is empty), runs fn with it and removes it afterwards,
// whatever fn returns
func WithTempDir(base, pattern string, fn func(dir string) error) (err error) {
	dir, err := os.MkdirTemp(base, pattern)
	if err != nil {
		return fmt.Errorf("failed to create working directory: %w", err)
	}
	logrus.Debugf("Created working directory %s", dir)

	defer func() {
		if rmErr := os.RemoveAll(dir); rmErr != nil {
			logrus.Warnf("Failed to remove working directory %s: %v", dir, rmErr)
			return
		}
		logrus.Debugf("Removed working directory %s", dir)
	}()

	return fn(dir)
}
