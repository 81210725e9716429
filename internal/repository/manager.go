// Package repository implements the repository operations: initializing a
// bucket as an empty chart repository and adding charts to it
package repository

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"github.com/ralt/chartrepo/internal/chart"
	"github.com/ralt/chartrepo/internal/confirm"
	"github.com/ralt/chartrepo/internal/index"
	"github.com/ralt/chartrepo/internal/models"
	"github.com/ralt/chartrepo/internal/packager"
	"github.com/ralt/chartrepo/internal/provenance"
	"github.com/ralt/chartrepo/internal/storage"
	"github.com/ralt/chartrepo/internal/utils"
	"github.com/sirupsen/logrus"
)

// previousIndexFile is where the remote index is downloaded before merging
const previousIndexFile = "previous-index.yaml"

// Options configures a Manager
type Options struct {
	Storage       storage.Storage
	Packager      packager.Packager
	Confirmer     confirm.Confirmer
	StorageDomain string

	// Verifier checks provenance files before upload; nil uploads them as-is
	Verifier *provenance.Verifier

	// TempDir is the base for working directories; empty for the OS default
	TempDir string
}

// Manager runs repository operations against one storage backend
type Manager struct {
	storage       storage.Storage
	packager      packager.Packager
	confirmer     confirm.Confirmer
	verifier      *provenance.Verifier
	storageDomain string
	tempDir       string
}

// NewManager creates a Manager
func NewManager(opts Options) *Manager {
	return &Manager{
		storage:       opts.Storage,
		packager:      opts.Packager,
		confirmer:     opts.Confirmer,
		verifier:      opts.Verifier,
		storageDomain: opts.StorageDomain,
		tempDir:       opts.TempDir,
	}
}

func (m *Manager) config(bucket string) models.RepositoryConfig {
	return models.RepositoryConfig{Bucket: bucket, StorageDomain: m.storageDomain}
}

// resolve asks the confirmer and turns a refusal into an error of the given kind
func (m *Manager) resolve(bucket, question string, kind models.ErrorKind, declined error) error {
	ok, err := m.confirmer.Confirm(question)
	if err != nil {
		return &models.RepoError{Kind: kind, Bucket: bucket, Err: err}
	}
	if !ok {
		logrus.Warn(declined)
		return &models.RepoError{Kind: kind, Bucket: bucket, Err: declined}
	}
	return nil
}

func validateBucket(bucket string) error {
	if bucket == "" {
		return &models.RepoError{Kind: models.ErrBadInput, Err: errors.New("bucket name is required")}
	}
	return nil
}

// Configure turns bucket into an empty repository and returns its public URL
func (m *Manager) Configure(ctx context.Context, bucket string) (string, error) {
	if err := validateBucket(bucket); err != nil {
		return "", err
	}
	cfg := m.config(bucket)

	// Step 1: make sure the bucket exists
	for {
		exists, err := m.storage.BucketExists(ctx, bucket)
		if err != nil {
			return "", &models.RepoError{Kind: models.ErrStorage, Bucket: bucket, Err: err}
		}
		if exists {
			break
		}

		if err := m.resolve(bucket,
			fmt.Sprintf("Bucket %s does not exist or is not accessible. Create it?", bucket),
			models.ErrPreconditionFailed,
			errors.New("bucket does not exist or is not accessible"),
		); err != nil {
			return "", err
		}

		logrus.Infof("Creating bucket %s", bucket)
		if err := m.storage.CreateBucket(ctx, bucket); err != nil {
			return "", &models.RepoError{Kind: models.ErrPreconditionFailed, Bucket: bucket, Err: err}
		}
	}

	// Step 2: refuse to clobber an existing repository unless told to
	exists, err := m.storage.ObjectExists(ctx, bucket, models.IndexFile)
	if err != nil {
		return "", &models.RepoError{Kind: models.ErrStorage, Bucket: bucket, Err: err}
	}
	if exists {
		if err := m.resolve(bucket,
			fmt.Sprintf("%s already exists in %s. Overwrite it with an empty index?", models.IndexFile, bucket),
			models.ErrAlreadyInitialized,
			fmt.Errorf("%s already exists", models.IndexFile),
		); err != nil {
			return "", err
		}
	}

	// Step 3: generate and upload an empty index
	err = utils.WithTempDir(m.tempDir, "chartrepo-configure-", func(dir string) error {
		if err := m.packager.Index(ctx, dir, packager.IndexOptions{}); err != nil {
			return &models.RepoError{Kind: models.ErrIndexGeneration, Bucket: bucket, Err: err}
		}

		indexPath := filepath.Join(dir, models.IndexFile)
		idx, err := index.Load(indexPath)
		if err != nil {
			return &models.RepoError{Kind: models.ErrIndexGeneration, Bucket: bucket, Err: err}
		}
		logrus.Debugf("Generated index with %d entries", idx.Len())

		logrus.Infof("Uploading %s to %s", models.IndexFile, bucket)
		return m.uploadIndex(ctx, bucket, indexPath)
	})
	if err != nil {
		return "", err
	}

	logrus.Infof("Repository initialized at %s", cfg.BaseURL())
	return cfg.BaseURL(), nil
}

// Add uploads a packaged chart, and its provenance file when present, and
// regenerates the index. It returns the chart's filename in the repository
func (m *Manager) Add(ctx context.Context, bucket, artifactPath string) (string, error) {
	if err := validateBucket(bucket); err != nil {
		return "", err
	}
	if artifactPath == "" {
		return "", &models.RepoError{Kind: models.ErrBadInput, Bucket: bucket, Err: errors.New("chart path is required")}
	}
	cfg := m.config(bucket)

	if !utils.IsRegularFile(artifactPath) {
		return "", &models.RepoError{Kind: models.ErrArtifactNotFound, Bucket: bucket, Err: fmt.Errorf("%s is not a file", artifactPath)}
	}

	logrus.Infof("Validating %s", artifactPath)
	if err := m.packager.Lint(ctx, artifactPath); err != nil {
		return "", &models.RepoError{Kind: models.ErrInvalidArtifact, Bucket: bucket, Err: err}
	}

	provPath := artifactPath + models.ProvenanceSuffix
	hasProvenance := utils.IsRegularFile(provPath)

	var filename string
	err := utils.WithTempDir(m.tempDir, "chartrepo-add-", func(dir string) error {
		var err error
		filename, err = m.stage(bucket, dir, artifactPath)
		if err != nil {
			return err
		}
		chartPath := filepath.Join(dir, filename)
		chartKey := models.ChartKey(filename)

		if hasProvenance {
			if err := m.checkProvenance(chartPath, provPath); err != nil {
				return &models.RepoError{Kind: models.ErrInvalidProvenance, Bucket: bucket, Err: fmt.Errorf("%s: %w", provPath, err)}
			}
		}

		exists, err := m.storage.ObjectExists(ctx, bucket, chartKey)
		if err != nil {
			return &models.RepoError{Kind: models.ErrStorage, Bucket: bucket, Err: err}
		}
		if exists {
			if err := m.resolve(bucket,
				fmt.Sprintf("%s already exists in %s. Overwrite it?", chartKey, bucket),
				models.ErrArtifactConflict,
				fmt.Errorf("%s already exists", chartKey),
			); err != nil {
				return err
			}
		}

		previous := filepath.Join(dir, previousIndexFile)
		if err := m.storage.Download(ctx, bucket, models.IndexFile, previous); err != nil {
			return &models.RepoError{
				Kind:   models.ErrNotARepository,
				Bucket: bucket,
				Err:    fmt.Errorf("cannot fetch %s, run configure first: %w", models.IndexFile, err),
			}
		}
		prevIdx, err := index.Load(previous)
		if err != nil {
			return &models.RepoError{Kind: models.ErrNotARepository, Bucket: bucket, Err: err}
		}
		logrus.Debugf("Remote index has %d entries", prevIdx.Len())

		if err := m.packager.Index(ctx, dir, packager.IndexOptions{URL: cfg.ChartsURL(), MergeFrom: previous}); err != nil {
			return &models.RepoError{Kind: models.ErrIndexGeneration, Bucket: bucket, Err: err}
		}
		indexPath := filepath.Join(dir, models.IndexFile)
		if err := checkIndexed(indexPath, filename, cfg.ChartsURL()); err != nil {
			return &models.RepoError{Kind: models.ErrIndexGeneration, Bucket: bucket, Err: err}
		}

		// The chart goes first so the new index never points at a missing object
		logrus.Infof("Uploading %s", chartKey)
		if err := m.storage.Upload(ctx, bucket, chartPath, chartKey, storage.UploadOptions{PublicRead: true}); err != nil {
			return &models.RepoError{Kind: models.ErrStorage, Bucket: bucket, Err: err}
		}

		logrus.Infof("Uploading %s", models.IndexFile)
		if err := m.uploadIndex(ctx, bucket, indexPath); err != nil {
			return err
		}

		if hasProvenance {
			provKey := models.ProvenanceKey(filename)
			logrus.Infof("Uploading %s", provKey)
			if err := m.storage.Upload(ctx, bucket, provPath, provKey, storage.UploadOptions{PublicRead: true}); err != nil {
				return &models.RepoError{Kind: models.ErrStorage, Bucket: bucket, Err: err}
			}
		} else {
			logrus.Debugf("No provenance file at %s", provPath)
		}

		return nil
	})
	if err != nil {
		return "", err
	}

	logrus.Infof("Added %s to %s", filename, cfg.BaseURL())
	return filename, nil
}

// stage copies the artifact into dir under its canonical filename
func (m *Manager) stage(bucket, dir, artifactPath string) (string, error) {
	copied := filepath.Join(dir, filepath.Base(artifactPath))
	if err := utils.CopyFile(artifactPath, copied); err != nil {
		return "", &models.RepoError{Kind: models.ErrCopyFailed, Bucket: bucket, Err: err}
	}

	meta, err := chart.Inspect(copied)
	if err != nil {
		return "", &models.RepoError{Kind: models.ErrInvalidArtifact, Bucket: bucket, Err: err}
	}

	filename := chart.CanonicalFilename(meta)
	if filename != filepath.Base(copied) {
		logrus.Infof("Storing %s as %s", filepath.Base(artifactPath), filename)
		if err := os.Rename(copied, filepath.Join(dir, filename)); err != nil {
			return "", &models.RepoError{Kind: models.ErrCopyFailed, Bucket: bucket, Err: err}
		}
	}
	return filename, nil
}

// checkProvenance makes sure the provenance file describes the chart as it
// will be published: the staged copy under its canonical name. Without a
// keyring the signature is not checked and an unreadable file is passed through
func (m *Manager) checkProvenance(chartPath, provPath string) error {
	if m.verifier != nil {
		prov, err := m.verifier.Verify(chartPath, provPath)
		if err != nil {
			return err
		}
		logrus.Infof("Provenance verified, signed by %s", prov.Signer)
		return nil
	}

	prov, err := provenance.Read(provPath)
	if err != nil {
		logrus.Warnf("Cannot read %s, uploading it unchecked: %v", provPath, err)
		return nil
	}
	if err := prov.Check(chartPath); err != nil {
		return err
	}
	logrus.Debugf("Provenance file matches %s (signature not checked)", filepath.Base(chartPath))
	return nil
}

func (m *Manager) uploadIndex(ctx context.Context, bucket, indexPath string) error {
	err := m.storage.Upload(ctx, bucket, indexPath, models.IndexFile, storage.UploadOptions{
		ContentType: models.IndexContentType,
		PublicRead:  true,
	})
	if err != nil {
		return &models.RepoError{Kind: models.ErrStorage, Bucket: bucket, Err: err}
	}
	return nil
}

// checkIndexed makes sure the regenerated index references filename under chartsURL
func checkIndexed(indexPath, filename, chartsURL string) error {
	idx, err := index.Load(indexPath)
	if err != nil {
		return err
	}

	entry, ok := idx.FindByFilename(filename)
	if !ok {
		return fmt.Errorf("regenerated index has no entry for %s", filename)
	}
	want := chartsURL + filename
	if !slices.Contains(entry.URLs, want) {
		return fmt.Errorf("index entry for %s points at %v, want %s", filename, entry.URLs, want)
	}

	logrus.Debugf("Index now lists %d chart versions", idx.Len())
	return nil
}
