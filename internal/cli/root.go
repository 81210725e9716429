package cli

import (
	"context"
	"errors"
	"strings"

	"github.com/ralt/chartrepo/internal/models"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// NewRootCmd creates the root command
func NewRootCmd() *cobra.Command {
	v := viper.New()

	rootCmd := &cobra.Command{
		Use:   "chartrepo",
		Short: "Host a Helm chart repository in an S3 bucket",
		Long: `Chartrepo turns an S3 bucket into a static, publicly readable Helm
chart repository.

  chartrepo configure <bucket>          initialize the bucket with an empty index
  chartrepo add <bucket> <chart.tgz>    upload a packaged chart and update the index

Charts are linted and indexed with the helm CLI. The bucket is reached through
the aws CLI (or the AWS SDK with --storage-client=sdk) using the ambient AWS
credentials. Every flag can also be set with a CHARTREPO_ environment variable,
for example CHARTREPO_STORAGE_DOMAIN.`,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// Setup logging
			if v.GetBool("verbose") {
				logrus.SetLevel(logrus.DebugLevel)
			} else {
				logrus.SetLevel(logrus.InfoLevel)
			}
		},
	}

	// Global flags
	flags := rootCmd.PersistentFlags()
	flags.BoolP("verbose", "v", false, "Enable verbose logging")
	flags.String("storage-domain", models.DefaultStorageDomain, "Domain the bucket is publicly served from")
	flags.String("storage-client", models.StorageClientCLI, "How to reach S3: cli (aws CLI) or sdk (AWS SDK)")
	flags.String("aws-bin", "aws", "Path to the aws CLI")
	flags.String("helm-bin", "helm", "Path to the helm CLI")
	flags.String("region", "", "AWS region (sdk client only)")
	flags.String("endpoint", "", "Custom S3 endpoint, e.g. for MinIO (sdk client only)")
	flags.String("temp-dir", "", "Base directory for working files (defaults to the system temp dir)")

	bindSettings(v, flags)

	rootCmd.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return &models.RepoError{Kind: models.ErrBadInput, Err: err}
	})

	// Add subcommands
	rootCmd.AddCommand(NewConfigureCmd(v))
	rootCmd.AddCommand(NewAddCmd(v))

	return rootCmd
}

// Execute runs rootCmd. Unknown commands print the top-level usage and are
// reported as bad input
func Execute(ctx context.Context, rootCmd *cobra.Command) error {
	err := rootCmd.ExecuteContext(ctx)
	if err != nil && strings.HasPrefix(err.Error(), "unknown command") {
		rootCmd.PrintErrln(rootCmd.UsageString())
		return &models.RepoError{Kind: models.ErrBadInput, Err: err}
	}
	return err
}

// exactArgs checks positional arguments and names the missing ones
func exactArgs(names ...string) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if len(args) == len(names) {
			return nil
		}
		return &models.RepoError{
			Kind: models.ErrBadInput,
			Err:  errors.New("usage: " + cmd.UseLine()),
		}
	}
}
