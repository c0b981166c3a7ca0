package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"station-climatology/internal/climatology"
	"station-climatology/internal/config"
	"station-climatology/internal/export"
	"station-climatology/internal/filestore"
	"station-climatology/internal/presentation"
	"station-climatology/internal/services"
	"station-climatology/pkg/logging"
	"station-climatology/pkg/metrics"
)

// app holds the services shared by every subcommand
type app struct {
	cfg         *config.Config
	separator   rune
	logger      *logging.StructuredLogger
	metrics     *metrics.Collector
	catalog     *services.CatalogService
	climatology *services.ClimatologyService
	exporter    *services.ExportService
	out         io.Writer
}

func main() {
	var (
		a       = &app{out: os.Stdout}
		verbose bool
		sep     string
	)

	rootCmd := &cobra.Command{
		Use:   "climactl",
		Short: "Station precipitation climatology from the command line",
		Long:  "Reads the station catalog and daily series files named by the STORE_* settings and prints climatologies",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.open(cmd.Context(), verbose, sep, cmd.Annotations[annotationStore] != storeNone)
		},
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log loading progress to stderr")
	rootCmd.PersistentFlags().StringVar(&sep, "sep", "", "Separator override (default: STORE_SEPARATOR)")

	rootCmd.AddCommand(a.stationsCmd(), a.periodCmd(), a.climatologyCmd(), a.exportCmd(), a.validateCmd())

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

// Commands annotated with annotationStore=storeNone run without loading the store
const (
	annotationStore = "store"
	storeNone       = "none"
)

func (a *app) open(ctx context.Context, verbose bool, sep string, loadStore bool) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}
	if sep != "" {
		cfg.Store.Separator = sep
	}
	separator, err := cfg.Store.SeparatorRune()
	if err != nil {
		return err
	}

	level := logging.ErrorLevel
	if verbose {
		level = logging.InfoLevel
	}
	logger := logging.NewStructuredLogger("climactl", "1.0.0", level)
	logger.SetOutput(os.Stderr)
	metricsCollector := metrics.NewCollector("climactl")

	a.cfg, a.separator, a.logger, a.metrics = cfg, separator, logger, metricsCollector
	if !loadStore {
		return nil
	}

	store := filestore.New(filestore.Config{
		CatalogPath:   cfg.Store.CatalogPath,
		QualityPath:   cfg.Store.QualityPath,
		SeriesPattern: cfg.Store.SeriesPattern,
		Separator:     separator,
		MaxParallel:   cfg.Store.MaxParallel,
	}, logger, metricsCollector)
	if err := store.Load(ctx); err != nil {
		return err
	}

	a.catalog = services.NewCatalogService(store, logger, metricsCollector)
	a.climatology = services.NewClimatologyService(store, store, cfg.Locale(), logger, metricsCollector)
	a.exporter = services.NewExportService(store, store, logger, metricsCollector)
	return nil
}

func (a *app) stationsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stations",
		Short: "List stations, optionally filtered by region and sub-region",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			region, _ := cmd.Flags().GetString("region")
			subregion, _ := cmd.Flags().GetString("subregion")

			stations, err := a.catalog.Stations(cmd.Context(), region, subregion)
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tNAME\tREGION\tSUBREGION")
			for _, s := range stations {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", s.StationID, s.Name, s.Region, s.Subregion)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().StringP("region", "r", "", "Region filter")
	cmd.Flags().StringP("subregion", "s", "", "Sub-region filter")
	return cmd
}

func (a *app) periodCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "period <station-id>",
		Short: "Show the years available for a station and the default range",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			info, err := a.climatology.Period(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "station:       %s\n", info.StationID)
			fmt.Fprintf(a.out, "available:     %d-%d\n", info.Bounds.Start, info.Bounds.End)
			fmt.Fprintf(a.out, "default:       %d-%d\n", info.Default.Start, info.Default.End)
			fmt.Fprintf(a.out, "observations:  %d\n", info.Observations)
			return nil
		},
	}
}

func (a *app) climatologyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "climatology <station-id>",
		Short: "Compute the monthly climatology of a station",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			start, _ := cmd.Flags().GetInt("start")
			end, _ := cmd.Flags().GetInt("end")
			output, _ := cmd.Flags().GetString("output")
			lang, _ := cmd.Flags().GetString("lang")

			var yr *climatology.YearRange
			if cmd.Flags().Changed("start") || cmd.Flags().Changed("end") {
				if !cmd.Flags().Changed("start") || !cmd.Flags().Changed("end") {
					return fmt.Errorf("--start and --end must be given together")
				}
				yr = &climatology.YearRange{Start: start, End: end}
			}

			switch output {
			case "json":
				report, err := a.climatology.Analyze(cmd.Context(), args[0], yr)
				if err != nil {
					return err
				}
				enc := json.NewEncoder(a.out)
				enc.SetIndent("", "  ")
				return enc.Encode(report)
			case "table":
				var locale presentation.Locale
				if lang != "" {
					parsed, err := presentation.ParseLocale(lang)
					if err != nil {
						return err
					}
					locale = parsed
				}
				dashboard, err := a.climatology.Dashboard(cmd.Context(), args[0], yr, locale)
				if err != nil {
					return err
				}
				return printDashboard(a.out, dashboard)
			default:
				return fmt.Errorf("unknown output %q, expected table or json", output)
			}
		},
	}
	cmd.Flags().Int("start", 0, "First year (default: overlap with 1991-2020)")
	cmd.Flags().Int("end", 0, "Last year")
	cmd.Flags().StringP("output", "o", "table", "Output format: table or json")
	cmd.Flags().String("lang", "", "Display language for table output: en or es")
	return cmd
}

func (a *app) exportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export <station-id>",
		Short: "Write a station's daily series as CSV or XLSX",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			formatName, _ := cmd.Flags().GetString("format")
			path, _ := cmd.Flags().GetString("out")

			format, err := export.ParseFormat(formatName)
			if err != nil {
				return err
			}
			if path == "" {
				path = export.FileName(args[0], format)
			}

			f, err := os.Create(path)
			if err != nil {
				return err
			}

			if _, err := a.exporter.Export(cmd.Context(), args[0], format, f); err != nil {
				f.Close()
				os.Remove(path)
				return err
			}
			if err := f.Close(); err != nil {
				return err
			}

			fmt.Fprintf(a.out, "wrote %s\n", path)
			return nil
		},
	}
	cmd.Flags().StringP("format", "f", string(export.FormatCSV), "csv or xlsx")
	cmd.Flags().String("out", "", "Output file (default: adjusted_series_<id>.<format>)")
	return cmd
}

func printDashboard(w io.Writer, d *presentation.Dashboard) error {
	fmt.Fprintf(w, "%s\n%s | %s\n%s\n\n", d.Title, d.Subtitle, d.PeriodLabel, d.Notice)

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, c := range d.Quality {
		fmt.Fprintf(tw, "%s\t%s\n", c.Label, c.Value)
	}
	fmt.Fprintln(tw)

	fmt.Fprintf(tw, "\t%s\t%s\t%s\n", d.Chart.MeanSeries, d.Chart.MaxSeries, d.Chart.MinSeries)
	for _, p := range d.Chart.Points {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", p.Label, p.MeanText, p.MaxText, p.MinText)
	}
	fmt.Fprintln(tw)

	for _, c := range d.Metrics {
		line := c.Label + "\t" + c.Value
		if c.Detail != "" {
			line += "\t" + c.Detail
		}
		fmt.Fprintln(tw, line)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	if d.GapNotice != "" {
		fmt.Fprintln(w, "\n"+strings.TrimSpace(d.GapNotice))
	}
	return nil
}
