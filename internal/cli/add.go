package cli

import (
	"fmt"

	"github.com/ralt/chartrepo/internal/confirm"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// NewAddCmd creates the add command
func NewAddCmd(v *viper.Viper) *cobra.Command {
	var yes, no bool
	var keyring string

	cmd := &cobra.Command{
		Use:   "add <bucket> <chart.tgz>",
		Short: "Upload a packaged chart and update the repository index",
		Long: `Lints the chart, uploads it under charts/ and regenerates index.yaml by
merging the current remote index with the new chart. A provenance file next to
the chart (<chart.tgz>.prov) is uploaded too; with --keyring it is verified
first.`,
		Args: exactArgs("bucket", "chart"),
		RunE: func(cmd *cobra.Command, args []string) error {
			mode, err := confirm.ModeFromFlags(yes, no)
			if err != nil {
				return err
			}
			cmd.SilenceUsage = true

			settings, err := loadSettings(v)
			if err != nil {
				return err
			}

			c := confirm.New(mode, cmd.InOrStdin(), cmd.OutOrStdout())
			mgr, err := newManager(cmd.Context(), settings, c, keyring)
			if err != nil {
				return err
			}

			filename, err := mgr.Add(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Uploaded %s\n", filename)
			return nil
		},
	}

	addConfirmFlags(cmd, &yes, &no)
	cmd.Flags().StringVar(&keyring, "keyring", "", "Public keyring to verify the chart's provenance file against")

	return cmd
}
