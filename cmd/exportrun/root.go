package main

import (
	"github.com/spf13/cobra"

	"github.com/alexisbeaulieu97/exportrun/internal/config"
)

type rootFlags struct {
	verbose bool
	envFile string
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}

	cmd := &cobra.Command{
		Use:           "exportrun",
		Short:         "exportrun drives segmented data exports from declarative run settings",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// An explicit --env-file must exist; the default one is optional.
			required := cmd.Flags().Changed("env-file")
			return config.LoadEnvFile(flags.envFile, required)
		},
	}

	cmd.PersistentFlags().BoolVarP(&flags.verbose, "verbose", "v", false, "Enable verbose logging")
	cmd.PersistentFlags().StringVar(&flags.envFile, "env-file", ".env", "Load EXPORTRUN_* overrides from this dotenv file")

	cmd.AddCommand(newPreviewCmd(flags))
	cmd.AddCommand(newValidateCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}
