package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/guildwatch/guildwatch/internal/config"
	"github.com/guildwatch/guildwatch/internal/database"
	"github.com/guildwatch/guildwatch/internal/dataset"
	"github.com/guildwatch/guildwatch/internal/export"
	"github.com/guildwatch/guildwatch/internal/log"
	"github.com/guildwatch/guildwatch/internal/match"
	"github.com/guildwatch/guildwatch/internal/model"
	"github.com/guildwatch/guildwatch/internal/report"
)

// NewCheckCmd creates the check command.
func NewCheckCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check [export-file]",
		Short: "Check a membership export against the exposed database",
		Long: `Check reads the server list from a Discord data package export,
fetches the full community index from the exposed database, and reports
which of your communities the dataset lists.

The export file is the servers/index.json from a Discord data package.
When no path is given, index.json in the current directory is used.

Examples:
  # Check index.json in the current directory
  guildwatch check

  # Check a specific export file
  guildwatch check ~/discord-package/servers/index.json

  # Fetch per-community details for each match
  guildwatch check --details

  # Output JSON report
  guildwatch check --json

  # Write a Markdown report to a file
  guildwatch check --markdown -o report.md

  # Use a custom configuration file
  guildwatch check -c myconfig.yaml

Configuration file (.guildwatch) example:
  export: ~/discord-package/servers/index.json
  endpoint:
    pageSize: 500
    requestsPerSecond: 1`,
		Args: cobra.MaximumNArgs(1),
		RunE: runCheckCmd,
	}

	// Remote endpoint flags
	cmd.Flags().String("index-url", config.DefaultIndexURL,
		"Paginated index endpoint of the exposed database")
	cmd.Flags().String("detail-url", config.DefaultDetailURL,
		"Per-community detail endpoint")
	cmd.Flags().IntP("page-size", "p", config.DefaultPageSize,
		"Number of identifiers requested per index page")

	// Politeness and resilience flags
	cmd.Flags().IntP("retries", "r", config.DefaultMaxRetries,
		"Per-page retry ceiling for transient failures")
	cmd.Flags().Duration("backoff", config.DefaultBackoffBase,
		"Initial retry delay, doubled per attempt")
	cmd.Flags().DurationP("timeout", "t", config.DefaultTimeout,
		"Per-request HTTP timeout")
	cmd.Flags().Float64("rate", config.DefaultRequestsPerSecond,
		"Client-side request rate cap in requests per second (0 disables)")

	// Detail lookup flags
	cmd.Flags().BoolP("details", "d", false,
		"Fetch the per-community detail payload for each match")
	cmd.Flags().IntP("concurrency", "b", config.DefaultConcurrency,
		"Concurrent detail lookups (values above 1 risk rate limiting)")

	// Configuration file
	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: .guildwatch in current or home directory)")

	// Report flags
	cmd.Flags().BoolP("json", "j", false,
		"Output JSON report (mutually exclusive with --markdown)")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output Markdown report (mutually exclusive with --json)")
	cmd.Flags().StringP("output", "o", "",
		"Write report to specified file path (creates directories if needed)")

	// History flags
	cmd.Flags().Bool("no-save", false,
		"Do not record this check in the history database")

	return cmd
}

// runCheckCmd executes the check command.
func runCheckCmd(cmd *cobra.Command, args []string) error {
	// Build config from the config file and flags
	cfg, err := buildConfig(cmd, args)
	if err != nil {
		return err
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	// Set up structured logging
	logger := log.NewLogger(os.Stderr, cfg.Verbose)
	slog.SetDefault(logger)

	// Set up context with signal handling for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle interrupt signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("received shutdown signal, cancelling...")
		cancel()
	}()

	return runCheck(ctx, cfg, logger)
}

// getVerboseFlag retrieves the verbose flag from the command or its parent.
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		verbose, err = cmd.Root().PersistentFlags().GetBool("verbose")
		if err != nil {
			return false
		}
	}
	return verbose
}

// buildConfig creates a Config from the optional config file and cobra
// command flags. The config file is applied first and explicit flags
// second, so flags win over the file.
func buildConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg := config.NewConfig()

	var err error
	cfg.ConfigFilePath, err = cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}

	// Load endpoint overrides from the config file.
	// If the user explicitly specified a config file path, error if not
	// found. If no path was specified, silently skip when no file exists.
	explicitConfigPath := cfg.ConfigFilePath != ""
	configPath := config.FindConfigFile(cfg.ConfigFilePath)

	if configPath != "" {
		cf, err := config.LoadConfigFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
		cf.ApplyTo(cfg)
	} else if explicitConfigPath {
		return nil, fmt.Errorf("configuration file not found: %s", cfg.ConfigFilePath)
	}

	// Flags override the config file only when the user actually set
	// them; flag defaults must not clobber file values.
	if cmd.Flags().Changed("index-url") {
		if cfg.IndexURL, err = cmd.Flags().GetString("index-url"); err != nil {
			return nil, err
		}
	}
	if cmd.Flags().Changed("detail-url") {
		if cfg.DetailURL, err = cmd.Flags().GetString("detail-url"); err != nil {
			return nil, err
		}
	}
	if cmd.Flags().Changed("page-size") {
		if cfg.PageSize, err = cmd.Flags().GetInt("page-size"); err != nil {
			return nil, err
		}
	}
	if cmd.Flags().Changed("retries") {
		if cfg.MaxRetries, err = cmd.Flags().GetInt("retries"); err != nil {
			return nil, err
		}
	}
	if cmd.Flags().Changed("backoff") {
		if cfg.BackoffBase, err = cmd.Flags().GetDuration("backoff"); err != nil {
			return nil, err
		}
	}
	if cmd.Flags().Changed("rate") {
		if cfg.RequestsPerSecond, err = cmd.Flags().GetFloat64("rate"); err != nil {
			return nil, err
		}
	}

	cfg.Timeout, err = cmd.Flags().GetDuration("timeout")
	if err != nil {
		return nil, err
	}

	cfg.FetchDetails, err = cmd.Flags().GetBool("details")
	if err != nil {
		return nil, err
	}

	cfg.Concurrency, err = cmd.Flags().GetInt("concurrency")
	if err != nil {
		return nil, err
	}

	cfg.JSONReport, err = cmd.Flags().GetBool("json")
	if err != nil {
		return nil, err
	}

	cfg.MarkdownReport, err = cmd.Flags().GetBool("markdown")
	if err != nil {
		return nil, err
	}

	cfg.ReportFile, err = cmd.Flags().GetString("output")
	if err != nil {
		return nil, err
	}

	noSave, err := cmd.Flags().GetBool("no-save")
	if err != nil {
		return nil, err
	}
	cfg.SaveToDB = !noSave
	cfg.DBDir = config.XDGDataDir()

	cfg.Verbose = getVerboseFlag(cmd)

	// Positional argument overrides the export path
	if len(args) > 0 {
		cfg.ExportPath = args[0]
	}

	return cfg, nil
}

// runCheck executes the check: load the export and fetch the remote
// index concurrently, intersect, optionally enrich matches with detail
// payloads, then report.
func runCheck(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	logger.Info("starting check",
		"export", cfg.ExportPath,
		"indexURL", cfg.IndexURL,
		"fetchDetails", cfg.FetchDetails,
		"saveToDB", cfg.SaveToDB,
	)

	checkReport := model.NewCheckReport(cfg.ExportPath)
	startTime := time.Now()

	client := dataset.NewClient(
		&http.Client{Timeout: cfg.Timeout},
		cfg.IndexURL,
		dataset.WithDetailURL(cfg.DetailURL),
		dataset.WithPageSize(cfg.PageSize),
		dataset.WithRetryPolicy(cfg.MaxRetries, cfg.BackoffBase),
		dataset.WithUserAgent(cfg.UserAgent),
		dataset.WithMaxBodySize(cfg.MaxBodySize),
		dataset.WithRateLimit(cfg.RequestsPerSecond),
		dataset.WithLogger(logger),
	)

	// The export parse and the index fetch are independent, so they run
	// concurrently; a hard failure on either side cancels the other.
	var (
		ex      *export.Export
		fetched *dataset.FetchResult
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		loaded, err := export.Load(cfg.ExportPath)
		if errors.Is(err, export.ErrEmptyExport) {
			// An empty export is usable: the check completes with an
			// empty result rather than failing.
			logger.Warn("membership export contains no communities", "path", cfg.ExportPath)
			checkReport.EmptyExport = true
			ex = loaded
			return nil
		}
		if err != nil {
			return err
		}
		ex = loaded
		return nil
	})
	g.Go(func() error {
		result, err := client.FetchIndex(gctx)
		if err != nil {
			return err
		}
		fetched = result
		return nil
	})
	if err := g.Wait(); err != nil {
		return err
	}

	checkReport.MembershipCount = ex.Memberships.Len()
	checkReport.SkippedRecords = ex.Skipped
	checkReport.RemoteIndexSize = fetched.Index.Len()
	checkReport.PagesFetched = fetched.Pages
	checkReport.Matches = match.Intersect(ex.Memberships, fetched.Index)

	if cfg.FetchDetails && len(checkReport.Matches) > 0 {
		if err := enrichMatches(ctx, client, cfg, checkReport); err != nil {
			return err
		}
	}

	checkReport.Elapsed = time.Since(startTime)

	logger.Info("check complete",
		"memberships", checkReport.MembershipCount,
		"indexSize", checkReport.RemoteIndexSize,
		"matches", checkReport.MatchCount(),
		"elapsed", checkReport.Elapsed,
	)

	// Generate and output the report
	if err := outputReport(cfg, checkReport); err != nil {
		return err
	}

	// Save to the history database if enabled
	if cfg.SaveToDB {
		if err := saveCheckReport(ctx, cfg, checkReport, logger); err != nil {
			logger.Error("failed to save check report", "error", err)
		}
	}

	return nil
}

// enrichMatches fetches the per-community detail payload for each match
// and attaches it. Individual lookup failures are counted on the
// report; only cancellation aborts.
func enrichMatches(ctx context.Context, client *dataset.Client, cfg *config.Config, checkReport *model.CheckReport) error {
	ids := make([]model.CommunityID, 0, len(checkReport.Matches))
	for _, m := range checkReport.Matches {
		ids = append(ids, m.ID)
	}

	details, err := client.FetchDetails(ctx, ids, cfg.Concurrency)
	if err != nil {
		return fmt.Errorf("detail lookup failed: %w", err)
	}

	for i := range checkReport.Matches {
		if payload, ok := details.Details[checkReport.Matches[i].ID]; ok {
			checkReport.Matches[i].Detail = payload
		}
	}
	checkReport.DetailErrors = details.Failed

	return nil
}

// outputReport outputs the check report in the requested format.
func outputReport(cfg *config.Config, checkReport *model.CheckReport) error {
	// Determine output destination
	var output *os.File
	if cfg.ReportFile != "" {
		// Create directories if they don't exist
		dir := filepath.Dir(cfg.ReportFile)
		if dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0750); err != nil {
				return fmt.Errorf("failed to create output directory: %w", err)
			}
		}

		// Create/overwrite the output file with owner-only permissions;
		// the report reveals which communities the user belongs to.
		f, err := os.OpenFile(cfg.ReportFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()
		output = f
	} else {
		output = os.Stdout
	}

	var writer report.Writer
	switch {
	case cfg.JSONReport:
		writer = report.NewJSONWriter(output, report.WithPrettyPrint())
	case cfg.MarkdownReport:
		writer = report.NewMarkdownWriter(output)
	default:
		writer = report.NewSimpleWriter(output, report.WithVerbose(cfg.Verbose))
	}

	_, err := writer.Write(checkReport)
	return err
}

// saveCheckReport records the check in the history database.
func saveCheckReport(ctx context.Context, cfg *config.Config, checkReport *model.CheckReport, logger *slog.Logger) error {
	db, err := database.Open(cfg.DBDir, database.DefaultOptions())
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	id, err := db.SaveCheckReport(ctx, checkReport)
	if err != nil {
		return fmt.Errorf("failed to save check report: %w", err)
	}

	logger.Info("check report saved", "id", id, "dir", cfg.DBDir)
	return nil
}
