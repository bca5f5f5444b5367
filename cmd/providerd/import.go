package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	oteladapter "github.com/neomorfeo/providerhub/internal/adapter/otel"
	"github.com/neomorfeo/providerhub/internal/domain"
	"github.com/neomorfeo/providerhub/internal/importer"
	"github.com/neomorfeo/providerhub/internal/logging"
)

func newImportCmd(v *viper.Viper) *cobra.Command {
	var (
		file   string
		actor  string
		dryRun bool
	)

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import providers from a CSV file into the database",
		Long: "Validates every row and creates one provider per valid row. " +
			"Lifecycle events are queued and delivered by the next serve run.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(v)
			if err != nil {
				return err
			}
			// Span output would interleave with the report on stdout.
			if _, ok := os.LookupEnv("OTEL_EXPORTER"); !ok {
				cfg.Telemetry.Exporter = oteladapter.ExporterNone
			}

			ctx := cmd.Context()
			logger := logging.SetupWriter(cmd.ErrOrStderr(), cfg.Log.Level, cfg.Log.Format)

			s, err := buildStack(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer func() {
				if err := s.close(context.WithoutCancel(ctx)); err != nil {
					logger.Error("closing resources", "error", err)
				}
			}()

			f, err := os.Open(file)
			if err != nil {
				return fmt.Errorf("opening %s: %w", file, err)
			}
			defer f.Close()

			upload := importer.Upload{Filename: filepath.Base(file), Size: -1, Body: f}
			if info, err := f.Stat(); err == nil {
				upload.Size = info.Size()
			}

			var report importer.Report
			if dryRun {
				report, err = s.imports.Preview(ctx, upload)
			} else {
				report, err = s.imports.Import(ctx, domain.Actor{ID: actor}, upload)
			}
			if err != nil {
				return err
			}

			return printReport(cmd.OutOrStdout(), report, cfg.Import.DisplayLimit, dryRun)
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "CSV file to import")
	cmd.Flags().StringVar(&actor, "actor", "", "administrator recorded on imported providers")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "validate only, persist nothing")
	_ = cmd.MarkFlagRequired("file")
	cmd.MarkFlagsOneRequired("actor", "dry-run")

	return cmd
}

func printReport(w io.Writer, report importer.Report, limit int, dryRun bool) error {
	if dryRun {
		if _, err := fmt.Fprint(w, "dry run: "); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintln(w, report.Summary(limit))
	return err
}

func newTemplateCmd() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "template",
		Short: "Write the CSV import template",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if output == "" || output == "-" {
				_, err := cmd.OutOrStdout().Write(importer.Template())
				return err
			}
			if err := os.WriteFile(output, importer.Template(), 0o644); err != nil {
				return fmt.Errorf("writing template: %w", err)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "destination file (default stdout)")
	return cmd
}
