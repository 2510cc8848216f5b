package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	appexport "github.com/alexisbeaulieu97/exportrun/internal/application/export"
	"github.com/alexisbeaulieu97/exportrun/internal/config"
	"github.com/alexisbeaulieu97/exportrun/internal/infrastructure/events"
	"github.com/alexisbeaulieu97/exportrun/internal/infrastructure/provider"
	"github.com/alexisbeaulieu97/exportrun/internal/infrastructure/segment"
	"github.com/alexisbeaulieu97/exportrun/internal/ports"
)

type previewOptions struct {
	ConfigPath string
	Records    int
	PerSegment int
	Timeline   bool
	Verbose    bool
}

var previewCmdRunner = runPreview

func newPreviewCmd(root *rootFlags) *cobra.Command {
	opts := previewOptions{}

	cmd := &cobra.Command{
		Use:   "preview",
		Short: "Dry-run an export and list the files it would produce",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.Verbose = root.verbose

			if err := validateConfigPath(opts.ConfigPath); err != nil {
				return err
			}
			if opts.Records < 0 {
				return fmt.Errorf("--records must not be negative")
			}
			if opts.PerSegment <= 0 {
				return fmt.Errorf("--per-segment must be positive")
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return previewCmdRunner(ctx, opts, cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}

	cmd.Flags().StringVarP(&opts.ConfigPath, "config", "c", "", "Path to run settings file")
	cmd.Flags().IntVar(&opts.Records, "records", 1000, "Number of synthetic records to export")
	cmd.Flags().IntVar(&opts.PerSegment, "per-segment", 250, "Records per export file")
	cmd.Flags().BoolVar(&opts.Timeline, "timeline", false, "Print the run events after the summary")
	cmd.MarkFlagRequired("config") //nolint:errcheck

	return cmd
}

func runPreview(ctx context.Context, opts previewOptions, out, logOut io.Writer) error {
	settings, err := config.ParseRunSettings(opts.ConfigPath)
	if err != nil {
		return err
	}

	log, err := newCLILogger(logOut, settings.Logging.Level, opts.Verbose)
	if err != nil {
		return err
	}

	source, err := segment.NewPagedSource(segment.SyntheticRecords(opts.Records), opts.PerSegment)
	if err != nil {
		return err
	}

	publisher := events.NewLoggingPublisher(log)
	journal := events.NewJournal(0)
	detach, err := journal.Attach(publisher, ports.RunEventTypes()...)
	if err != nil {
		return err
	}
	defer detach()

	ctx = ports.WithCorrelationID(ctx, ports.GenerateCorrelationID())
	usecase := appexport.NewRunUseCase(log, publisher)
	summary, err := usecase.Run(ctx, appexport.RunRequest{
		Name:     settings.Name,
		Options:  settings.ContextOptions(),
		Source:   source,
		Provider: provider.NewDryRun(out, log),
	})
	if err != nil {
		return err
	}

	status := "completed"
	if summary.Canceled {
		status = "canceled"
	}
	fmt.Fprintf(out, "%s: %s, %d file(s), %d record(s)\n", settings.Name, status, len(summary.Files), summary.SuccessfulExportedRecords)
	if summary.TeardownFailures > 0 {
		fmt.Fprintf(out, "%d segment(s) failed to release\n", summary.TeardownFailures)
	}
	if opts.Timeline {
		printTimeline(out, journal.Drain())
	}
	return nil
}

func printTimeline(out io.Writer, entries []events.Entry) {
	for i, entry := range entries {
		line := fmt.Sprintf("%3d %s", i+1, entry.Type)
		if payload, ok := entry.Payload.(map[string]interface{}); ok {
			if path, ok := payload["file_path"].(string); ok {
				line += " " + path
			}
		}
		fmt.Fprintln(out, line)
	}
}
