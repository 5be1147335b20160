package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"econdash/internal/catalog"
	"econdash/internal/config"
	"econdash/internal/exporter"
	"econdash/internal/fetcher"
	"econdash/internal/infrastructure"
	"econdash/internal/middleware"
	"econdash/internal/services"
	"econdash/internal/upstream"
	"econdash/internal/view"
)

type options struct {
	view     string
	rng      string
	combined bool
	year     string
	relayURL string
	out      string
	formats  []string
	bom      bool
	verbose  bool
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd(os.Stdout).ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCmd(stdout io.Writer) *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:   "series-report",
		Short: "Export a dashboard view as CSV and XLSX",
		Long: `Builds one dashboard view from World Bank Data360 series and writes its
table to the exports directory. Series are read from a running relay when
--relay-url is set, otherwise Data360 is called directly.`,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), opts, stdout)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.view, "view", view.ViewGDP, "view to export ("+strings.Join(view.Names(), ", ")+")")
	f.StringVar(&opts.rng, "range", "", "inclusive year range, e.g. 2011-2023")
	f.BoolVar(&opts.combined, "combined", false, "include derived columns such as GDP growth")
	f.StringVar(&opts.year, "year", "", "year for single-year views")
	f.StringVar(&opts.relayURL, "relay-url", "", "base URL of a running relay")
	f.StringVar(&opts.out, "out", "", "output directory (defaults to the configured exports dir)")
	f.StringSliceVar(&opts.formats, "format", []string{"csv", "xlsx"}, "export formats")
	f.BoolVar(&opts.bom, "bom", false, "prefix CSV output with a UTF-8 byte order mark")
	f.BoolVarP(&opts.verbose, "verbose", "v", false, "debug logging")
	return cmd
}

func run(ctx context.Context, opts *options, stdout io.Writer) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}
	if opts.verbose {
		cfg.Logging.Level = "debug"
	}
	cfg.Logging.Output = "stdout"

	logger, err := infrastructure.NewLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("initialize logger: %w", err)
	}
	logger = infrastructure.WithComponent(logger, "series-report")
	ctx = infrastructure.EnsureTraceID(ctx)

	formats := make([]exporter.Format, 0, len(opts.formats))
	for _, s := range opts.formats {
		format, err := exporter.ParseFormat(s)
		if err != nil {
			return err
		}
		formats = append(formats, format)
	}

	params, err := middleware.NewQueryValidator(logger).ParseValues(url.Values{
		"range":    {opts.rng},
		"combined": {strconv.FormatBool(opts.combined)},
		"year":     {opts.year},
	})
	if err != nil {
		return err
	}

	source, err := newSource(cfg, opts.relayURL, logger)
	if err != nil {
		return err
	}

	f := fetcher.New(source, logger, fetcher.WithConcurrency(cfg.Upstream.FetchConcurrency))
	page, err := services.NewViewService(f, nil, logger).Build(ctx, opts.view, params)
	if err != nil {
		return err
	}
	if page.Degraded {
		for metric, st := range page.Series {
			if st.Status == view.StatusFailed {
				logger.WarnContext(ctx, "series unavailable",
					slog.String("metric", metric),
					slog.String("error", st.Error))
			}
		}
	}

	exp := exporter.FromConfig(cfg, logger)
	if opts.out != "" {
		exp = exporter.New(opts.out, logger)
	}
	exp.WithBOM(opts.bom)
	for _, format := range formats {
		path, err := exp.Save(page.Table, format)
		if err != nil {
			return fmt.Errorf("save %s: %w", format, err)
		}
		fmt.Fprintln(stdout, path)
	}

	logger.InfoContext(ctx, "report generated",
		slog.String("view", page.View),
		slog.String("range", page.Range),
		slog.Int("rows", len(page.Table.Rows)),
		slog.Bool("degraded", page.Degraded))
	return nil
}

func newSource(cfg *config.Config, relayURL string, logger *slog.Logger) (fetcher.Source, error) {
	if relayURL != "" {
		return fetcher.NewHTTPSource(relayURL, nil), nil
	}

	cat, err := catalog.Load(cfg.GetCatalogFile())
	if err != nil {
		return nil, err
	}
	if err := cat.Validate(view.RequiredMetrics()); err != nil {
		return nil, err
	}
	return services.NewRelayService(cat, upstream.NewClient(cfg.Upstream, logger), logger), nil
}
