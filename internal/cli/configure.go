package cli

import (
	"fmt"

	"github.com/ralt/chartrepo/internal/confirm"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// addConfirmFlags registers -y and -n on cmd
func addConfirmFlags(cmd *cobra.Command, yes, no *bool) {
	cmd.Flags().BoolVarP(yes, "yes", "y", false, "Answer yes to every question (create bucket, overwrite)")
	cmd.Flags().BoolVarP(no, "no", "n", false, "Answer no to every question, failing instead of creating or overwriting")
}

// NewConfigureCmd creates the configure command
func NewConfigureCmd(v *viper.Viper) *cobra.Command {
	var yes, no bool

	cmd := &cobra.Command{
		Use:   "configure <bucket>",
		Short: "Initialize a bucket as an empty chart repository",
		Long: `Creates the bucket if needed (after confirmation) and uploads an empty,
publicly readable index.yaml to its root.`,
		Args: exactArgs("bucket"),
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
			mgr, err := newManager(cmd.Context(), settings, c, "")
			if err != nil {
				return err
			}

			url, err := mgr.Configure(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Repository ready: %s\n", url)
			return nil
		},
	}

	addConfirmFlags(cmd, &yes, &no)

	return cmd
}
