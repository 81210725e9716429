package models

import (
	"fmt"
	"strings"
)

// Remote layout of a chart repository bucket
const (
	IndexFile        = "index.yaml"
	ChartsPrefix     = "charts/"
	ProvenanceSuffix = ".prov"
	IndexContentType = "text/yaml"

	DefaultStorageDomain = "s3.amazonaws.com"
)

// RepositoryConfig identifies a repository and where it is served from
type RepositoryConfig struct {
	Bucket        string
	StorageDomain string
}

// BaseURL returns the public URL of the repository root, with a trailing slash
func (c RepositoryConfig) BaseURL() string {
	domain := c.StorageDomain
	if domain == "" {
		domain = DefaultStorageDomain
	}
	return fmt.Sprintf("https://%s.%s/", c.Bucket, strings.Trim(domain, "./"))
}

// ChartsURL returns the public URL charts are downloaded from
func (c RepositoryConfig) ChartsURL() string {
	return c.BaseURL() + ChartsPrefix
}

// ChartKey returns the object key a chart file is stored under
func ChartKey(filename string) string {
	return ChartsPrefix + filename
}

// ProvenanceKey returns the object key of a chart's provenance file
func ProvenanceKey(filename string) string {
	return ChartKey(filename) + ProvenanceSuffix
}
