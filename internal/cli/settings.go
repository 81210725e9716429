package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/ralt/chartrepo/internal/confirm"
	"github.com/ralt/chartrepo/internal/models"
	"github.com/ralt/chartrepo/internal/packager"
	"github.com/ralt/chartrepo/internal/provenance"
	"github.com/ralt/chartrepo/internal/repository"
	"github.com/ralt/chartrepo/internal/runner"
	"github.com/ralt/chartrepo/internal/storage"
	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// envPrefix is prepended to every flag name to form its environment variable
const envPrefix = "CHARTREPO"

// bindSettings makes every flag in flags readable through v, with
// CHARTREPO_<FLAG_NAME> environment variables as fallback
func bindSettings(v *viper.Viper, flags *pflag.FlagSet) {
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	if err := v.BindPFlags(flags); err != nil {
		// Only fails on a nil flag set
		panic(err)
	}
}

// loadSettings resolves and validates the process settings
func loadSettings(v *viper.Viper) (*models.Settings, error) {
	s := &models.Settings{
		StorageDomain: v.GetString("storage-domain"),
		StorageClient: v.GetString("storage-client"),
		AWSBin:        v.GetString("aws-bin"),
		Region:        v.GetString("region"),
		Endpoint:      v.GetString("endpoint"),
		HelmBin:       v.GetString("helm-bin"),
		TempDir:       v.GetString("temp-dir"),
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	logrus.Debugf("Settings: %+v", *s)
	return s, nil
}

// newManager wires a repository.Manager from settings, checking that the
// external tools it needs are installed before any work starts
func newManager(ctx context.Context, s *models.Settings, c confirm.Confirmer, keyring string) (*repository.Manager, error) {
	required := []string{s.HelmBin}
	if s.StorageClient == models.StorageClientCLI {
		required = append(required, s.AWSBin)
	}
	if err := runner.Require(required...); err != nil {
		return nil, err
	}

	r := runner.NewExecRunner()

	var store storage.Storage
	switch s.StorageClient {
	case models.StorageClientSDK:
		sdk, err := storage.NewSDK(ctx, storage.SDKConfig{Region: s.Region, Endpoint: s.Endpoint})
		if err != nil {
			return nil, &models.RepoError{Kind: models.ErrStorage, Err: err}
		}
		store = sdk
	default:
		store = storage.NewCLI(s.AWSBin, r)
	}

	var verifier *provenance.Verifier
	if keyring != "" {
		var err error
		verifier, err = provenance.NewVerifier(keyring)
		if err != nil {
			return nil, &models.RepoError{Kind: models.ErrBadInput, Err: fmt.Errorf("--keyring: %w", err)}
		}
	}

	return repository.NewManager(repository.Options{
		Storage:       store,
		Packager:      packager.NewHelmCLI(s.HelmBin, r),
		Confirmer:     c,
		StorageDomain: s.StorageDomain,
		Verifier:      verifier,
		TempDir:       s.TempDir,
	}), nil
}
