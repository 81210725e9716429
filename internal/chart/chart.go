// Package chart reads metadata out of packaged chart archives
package chart

import (
	"archive/tar"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/ralt/chartrepo/internal/models"
	"github.com/ralt/chartrepo/internal/utils"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// Extension is the file extension helm gives packaged charts
const Extension = ".tgz"

// maxChartYAML bounds how much of Chart.yaml is read
const maxChartYAML = 1 << 20

// Inspect reads the top-level Chart.yaml from a chart archive
func Inspect(archivePath string) (*models.Chart, error) {
	ok, err := IsArchive(archivePath)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%s is not a gzip archive", archivePath)
	}

	f, err := os.Open(archivePath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	gz, err := utils.GzipReader(f)
	if err != nil {
		return nil, fmt.Errorf("failed to open gzip stream: %w", err)
	}
	defer gz.Close()

	tr := tar.NewReader(gz)
	for {
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read archive: %w", err)
		}

		if !isTopLevelChartYAML(hdr.Name) {
			continue
		}

		data, err := io.ReadAll(io.LimitReader(tr, maxChartYAML))
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", hdr.Name, err)
		}
		logrus.Debugf("Found %s in %s", hdr.Name, archivePath)
		return parseChartYAML(data)
	}

	return nil, fmt.Errorf("no Chart.yaml found in %s", archivePath)
}

// isTopLevelChartYAML matches <chart>/Chart.yaml but not files of
// subcharts under <chart>/charts/
func isTopLevelChartYAML(name string) bool {
	name = strings.TrimPrefix(path.Clean(name), "./")
	dir, file := path.Split(name)
	return file == "Chart.yaml" && strings.Count(dir, "/") == 1
}

func parseChartYAML(data []byte) (*models.Chart, error) {
	var c models.Chart
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("invalid Chart.yaml: %w", err)
	}

	if c.Name == "" {
		return nil, errors.New("Chart.yaml has no name")
	}
	if strings.ContainsAny(c.Name, "/\\") {
		return nil, fmt.Errorf("invalid chart name %q", c.Name)
	}
	if _, err := semver.NewVersion(c.Version); err != nil {
		return nil, fmt.Errorf("chart %s has invalid version %q: %w", c.Name, c.Version, err)
	}

	return &c, nil
}

// CanonicalFilename is the name helm package gives a chart archive
func CanonicalFilename(c *models.Chart) string {
	return fmt.Sprintf("%s-%s%s", c.Name, c.Version, Extension)
}
