package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/benjaminwestern/catalog-editor/internal/catalog"
	"github.com/benjaminwestern/catalog-editor/internal/config"
	"github.com/benjaminwestern/catalog-editor/internal/headless"
	"github.com/benjaminwestern/catalog-editor/internal/logging"
	"github.com/benjaminwestern/catalog-editor/internal/query"
	"github.com/benjaminwestern/catalog-editor/internal/server"
	"github.com/benjaminwestern/catalog-editor/internal/session"
	"github.com/benjaminwestern/catalog-editor/internal/snapshot"
	"github.com/benjaminwestern/catalog-editor/internal/source"
	"github.com/benjaminwestern/catalog-editor/internal/tui"
)

func main() {
	os.Exit(run())
}

func run() int {
	cfg, err := config.Load()
	if err != nil {
		log.Printf("Error loading configuration: %v", err)
		return 1
	}

	var (
		isHeadless   bool
		isServe      bool
		outputFormat string
		scriptPath   string
		search       string
		editedOnly   bool
		sortField    string
		sortDir      string
	)

	flag.StringVar(&cfg.Source, "source", cfg.Source, "Catalog location: http(s) URL, local file or gs://bucket/object")
	flag.StringVar(&cfg.RecordsField, "records-field", cfg.RecordsField, "Field holding the records when the catalog body is an object")
	flag.StringVar(&cfg.Snapshot, "snapshot", cfg.Snapshot, "Snapshot store: file://dir, redis://host:port/db, gs://bucket/prefix or none")
	flag.StringVar(&cfg.LogPath, "log-path", cfg.LogPath, "Directory to save logs and reports")
	flag.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Log level: debug, info, warn or error")
	flag.IntVar(&cfg.PageSize, "page-size", cfg.PageSize, "Rows per page")
	flag.StringVar(&cfg.Locale, "locale", cfg.Locale, "Locale used to sort names")
	flag.BoolVar(&cfg.EnableTxtOutput, "output.txt", cfg.EnableTxtOutput, "Enable .txt report output")
	flag.BoolVar(&cfg.EnableJSONOutput, "output.json", cfg.EnableJSONOutput, "Enable .json report output")
	flag.DurationVar(&cfg.FetchTimeout, "fetch-timeout", cfg.FetchTimeout, "Timeout for fetching the catalog")
	flag.StringVar(&cfg.Addr, "addr", cfg.Addr, "Listen address for -serve")
	flag.IntVar(&cfg.RateLimit, "rate-limit", cfg.RateLimit, "Requests per minute per client for -serve (0 disables)")
	flag.BoolVar(&isHeadless, "headless", false, "Run without TUI and print the change report to stdout")
	flag.BoolVar(&isServe, "serve", false, "Serve the JSON HTTP API instead of the TUI")
	flag.StringVar(&outputFormat, "output", "txt", "Output format for headless mode (txt or json)")
	flag.StringVar(&scriptPath, "script", "", "JSON edit script to apply in headless mode")
	flag.StringVar(&search, "search", "", "Search filter for headless mode")
	flag.BoolVar(&editedOnly, "edited-only", false, "Only show edited products in headless mode")
	flag.StringVar(&sortField, "sort", "", "Sort field for headless mode: name, currentPrice or currentInventory")
	flag.StringVar(&sortDir, "dir", "asc", "Sort direction for headless mode: asc or desc")
	flag.Parse()

	if !isHeadless && !isServe && flag.NArg() > 0 {
		cfg.Source = flag.Arg(0)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	logger, closeLog, err := logging.New(cfg.LogLevel, cfg.LogPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	defer closeLog()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	preflight, cancel := context.WithTimeout(ctx, 3*time.Second)
	cfg.GCSAvailable = source.GCSAvailable(preflight)
	cancel()
	if !cfg.GCSAvailable {
		logger.Info("GCS client pre-flight check failed; gs:// locations are disabled")
	}

	sessionID := uuid.NewString()
	snap, err := snapshot.Open(ctx, cfg.Snapshot, sessionID)
	if err != nil {
		logger.Warn("snapshot store unavailable, continuing without it", zap.String("target", cfg.Snapshot), zap.Error(err))
		snap = snapshot.Discard{}
	}

	s := session.New(session.Options{
		ID:               sessionID,
		Loader:           catalogLoader(cfg, logger),
		Snapshot:         snap,
		Logger:           logger,
		PageSize:         cfg.PageSize,
		Locale:           cfg.Locale,
		LogPath:          cfg.LogPath,
		EnableTxtOutput:  cfg.EnableTxtOutput,
		EnableJSONOutput: cfg.EnableJSONOutput,
	})
	s.SetSource(cfg.Source)
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.Close(closeCtx); err != nil {
			logger.Warn("closing session", zap.Error(err))
		}
	}()

	logger.Info("catalog editor starting",
		zap.String("session", sessionID),
		zap.String("source", cfg.Source),
		zap.Bool("headless", isHeadless),
		zap.Bool("serve", isServe))

	switch {
	case isHeadless:
		field, err := query.ParseSortField(sortField)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return 1
		}
		dir, err := query.ParseDirection(sortDir)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return 1
		}
		err = headless.Run(ctx, s, &headless.Config{
			Source:           cfg.Source,
			LogPath:          cfg.LogPath,
			OutputFormat:     outputFormat,
			ScriptPath:       scriptPath,
			EnableTxtOutput:  cfg.EnableTxtOutput,
			EnableJSONOutput: cfg.EnableJSONOutput,
			Search:           search,
			EditedOnly:       editedOnly,
			SortField:        field,
			Direction:        dir,
		}, os.Stdout)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		return headless.ExitCode(err)

	case isServe:
		if err := s.Load(ctx); err != nil {
			// The API answers 503 until POST /api/reload succeeds.
			logger.Error("initial catalog load failed", zap.Error(err))
		}
		srv := server.New(s, server.Options{
			Addr:           cfg.Addr,
			RateLimit:      cfg.RateLimit,
			AllowedOrigins: cfg.AllowedOrigins,
			Logger:         logger,
		})
		fmt.Printf("Serving catalog API on http://%s\n", cfg.Addr)
		if err := srv.Run(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return 1
		}
		return 0
	}

	if err := tui.Run(ctx, s, cfg, logger); err != nil {
		fmt.Fprintf(os.Stderr, "Error running application: %v\n", err)
		return 1
	}
	return 0
}

// catalogLoader opens the configured source for every load, so a retry
// picks up a fresh connection.
func catalogLoader(cfg *config.Config, logger *zap.Logger) session.Loader {
	return func(ctx context.Context) ([]catalog.Record, error) {
		ctx, cancel := context.WithTimeout(ctx, cfg.FetchTimeout)
		defer cancel()

		c, err := source.Open(ctx, cfg.Source, source.Options{Timeout: cfg.FetchTimeout})
		if err != nil {
			return nil, err
		}
		defer c.Close()

		start := time.Now()
		records, err := source.Fetch(ctx, c, cfg.RecordsField)
		if err != nil {
			return nil, err
		}
		logger.Debug("catalog fetched",
			zap.String("location", c.Location()),
			zap.Int("records", len(records)),
			zap.Duration("elapsed", time.Since(start)))
		return records, nil
	}
}
