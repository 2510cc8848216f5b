package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/alexisbeaulieu97/exportrun/internal/config"
	"github.com/alexisbeaulieu97/exportrun/internal/domain/export"
)

func newValidateCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate run settings and show the first resolved file name",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validateConfigPath(configPath); err != nil {
				return err
			}

			settings, err := config.ParseRunSettings(configPath)
			if err != nil {
				return err
			}

			first, err := export.ResolveFileName(settings.FileNamePattern, 0, settings.FileExtension, settings.MaxFileNameLength)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s is valid\n", configPath)
			fmt.Fprintf(out, "run: %s\n", settings.Name)
			fmt.Fprintf(out, "folder: %s\n", settings.Folder)
			fmt.Fprintf(out, "first file: %s\n", first)
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to run settings file")
	cmd.MarkFlagRequired("config") //nolint:errcheck

	return cmd
}
