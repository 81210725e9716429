package chart

import (
	"bytes"
	"fmt"
	"os"

	"github.com/ralt/chartrepo/internal/utils"
)

// IsArchive reports whether the file at path looks like a packaged chart,
// that is a gzip stream. Packaged charts are always gzipped tarballs,
// whatever their extension
func IsArchive(path string) (bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return false, err
	}
	defer f.Close()

	header := make([]byte, len(utils.GzipMagic))
	n, err := f.Read(header)
	if err != nil && n == 0 {
		return false, fmt.Errorf("failed to read %s: %w", path, err)
	}

	return bytes.HasPrefix(header[:n], utils.GzipMagic), nil
}
