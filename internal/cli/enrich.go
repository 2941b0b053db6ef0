package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"keyword-enricher/internal/config"
	"keyword-enricher/internal/service"
	"keyword-enricher/pkg/api"
	"keyword-enricher/pkg/enricher"
	"keyword-enricher/pkg/logger"
	"keyword-enricher/pkg/table"
)

type enrichOptions struct {
	input         string
	keywordColumn string
	output        string
	mode          string
	gsc           bool
	report        string
	locationCode  int
	languageCode  string
}

func newEnrichCmd(root *rootOptions) *cobra.Command {
	opts := &enrichOptions{}

	cmd := &cobra.Command{
		Use:   "enrich",
		Short: "Enrich one keyword file",
		Long: `enrich reads --input, fetches metrics for every distinct keyword and writes
the rows with metrics attached to --output (.csv or .xlsx). Interrupting the
run stops at the next batch and still writes what was fetched.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signalContext(cmd.Context())
			defer stop()

			creds, err := config.LoadCredentials(root.cfg)
			if err != nil {
				return err
			}

			svc, err := service.New(root.cfg, creds, prometheus.NewRegistry(), root.log)
			if err != nil {
				return err
			}
			defer svc.Close()

			return runEnrich(ctx, svc, opts, cmd.OutOrStdout(), root.log)
		},
	}

	cmd.Flags().StringVarP(&opts.input, "input", "i", "", "input file (.csv, .txt or .xlsx)")
	cmd.Flags().StringVarP(&opts.keywordColumn, "keyword-column", "k", "", "column holding the keywords (auto-detected when empty)")
	cmd.Flags().StringVarP(&opts.output, "output", "o", table.DefaultBaseName+".csv", "output file; the extension picks CSV or XLSX")
	cmd.Flags().StringVar(&opts.mode, "mode", "", "endpoints to call: ads, clickstream or dual (default from config)")
	cmd.Flags().BoolVar(&opts.gsc, "gsc", false, "input is a Search Console export; add a page summary")
	cmd.Flags().StringVar(&opts.report, "report", "", "write a YAML run report to this file")
	cmd.Flags().IntVar(&opts.locationCode, "location-code", 0, "DataForSEO location code (default from config)")
	cmd.Flags().StringVar(&opts.languageCode, "language-code", "", "DataForSEO language code (default from config)")
	_ = cmd.MarkFlagRequired("input")

	return cmd
}

func runEnrich(ctx context.Context, svc service.EnrichmentService, opts *enrichOptions, stdout io.Writer, log *logger.Logger) error {
	if opts.mode != "" {
		if _, err := api.ParseMode(opts.mode); err != nil {
			return err
		}
	}

	f, err := os.Open(opts.input)
	if err != nil {
		return fmt.Errorf("failed to open input: %w", err)
	}
	in, err := table.Read(opts.input, f)
	f.Close()
	if err != nil {
		return err
	}

	out, runErr := svc.Enrich(ctx, service.Request{
		Input:         in,
		KeywordColumn: opts.keywordColumn,
		Mode:          opts.mode,
		GSC:           opts.gsc,
		LocationCode:  opts.locationCode,
		LanguageCode:  opts.languageCode,
	})
	if out == nil {
		return runErr
	}

	format := service.ParseFormat(filepath.Ext(opts.output))
	if err := writeFile(opts.output, func(w io.Writer) error {
		return out.Write(w, format)
	}); err != nil {
		return err
	}
	log.WithField("output", opts.output).Info("Results written")

	var extra []string
	if format == service.FormatCSV {
		for _, sheet := range out.Secondary() {
			path := siblingPath(opts.output, sheet.Name)
			if err := writeFile(path, func(w io.Writer) error {
				return table.WriteCSV(w, sheet)
			}); err != nil {
				return err
			}
			log.WithField("output", path).Info("Results written")
			extra = append(extra, path)
		}
	}

	if opts.report != "" {
		if err := writeFile(opts.report, func(w io.Writer) error {
			return enricher.WriteReport(w, out.Result)
		}); err != nil {
			return err
		}
	}

	printSummary(stdout, out, append([]string{opts.output}, extra...))

	if errors.Is(runErr, context.Canceled) {
		return fmt.Errorf("run interrupted, partial results written to %s", opts.output)
	}
	return runErr
}

// siblingPath names the CSV holding sheet next to the main output,
// e.g. results.csv -> results_page_summary.csv
func siblingPath(output, sheet string) string {
	base := strings.TrimSuffix(output, filepath.Ext(output))
	return base + "_" + strings.ToLower(strings.ReplaceAll(sheet, " ", "_")) + ".csv"
}

func writeFile(path string, write func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := write(f); err != nil {
		f.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return f.Close()
}

func printSummary(w io.Writer, out *service.Output, paths []string) {
	r := out.Result
	missing := 0
	for _, row := range r.Rows {
		if row.Missing {
			missing++
		}
	}

	fmt.Fprintf(w, "\n=== Keyword Enrichment Results ===\n")
	fmt.Fprintf(w, "Rows: %d\n", len(r.Rows))
	fmt.Fprintf(w, "Unique keywords: %d\n", r.UniqueKeywords)
	fmt.Fprintf(w, "Resolved: %d\n", r.Summary.Keywords)
	fmt.Fprintf(w, "Rows without metrics: %d\n", missing)
	fmt.Fprintf(w, "Rejected keywords: %d\n", len(r.Rejected))
	fmt.Fprintf(w, "Batches: %d (%d failed)\n", r.Batches, r.FailedBatches)
	fmt.Fprintf(w, "Total search volume: %d\n", r.Summary.TotalSearchVolume)
	fmt.Fprintf(w, "Avg search volume: %.1f\n", r.Summary.AvgSearchVolume)
	fmt.Fprintf(w, "Avg CPC: %.2f\n", r.Summary.AvgCPC)
	if out.GSC {
		fmt.Fprintf(w, "Pages: %d\n", len(out.Pages))
	}
	fmt.Fprintf(w, "Duration: %s\n", r.Duration.Round(time.Millisecond))
	for _, p := range paths {
		fmt.Fprintf(w, "Output: %s\n", p)
	}
}
