package models

import "fmt"

// Storage client implementations
const (
	StorageClientCLI = "cli"
	StorageClientSDK = "sdk"
)

// Settings contains process-wide configuration resolved from flags and environment
type Settings struct {
	// Public hostname suffix the bucket is served from
	StorageDomain string

	// Storage access
	StorageClient string // cli or sdk
	AWSBin        string
	Region        string // sdk only
	Endpoint      string // sdk only, for S3-compatible services

	// Package tooling
	HelmBin string

	// Base directory for per-operation working directories, empty for the OS default
	TempDir string
}

// Validate checks settings and fills defaults
func (s *Settings) Validate() error {
	if s.StorageDomain == "" {
		s.StorageDomain = DefaultStorageDomain
	}
	if s.StorageClient == "" {
		s.StorageClient = StorageClientCLI
	}
	if s.AWSBin == "" {
		s.AWSBin = "aws"
	}
	if s.HelmBin == "" {
		s.HelmBin = "helm"
	}

	switch s.StorageClient {
	case StorageClientCLI, StorageClientSDK:
	default:
		return &RepoError{
			Kind: ErrBadInput,
			Err:  fmt.Errorf("unknown storage client %q (expected %q or %q)", s.StorageClient, StorageClientCLI, StorageClientSDK),
		}
	}

	return nil
}
