package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/yasushihonda-acg/facility-care-input-form-sub002/internal/config"
	"github.com/yasushihonda-acg/facility-care-input-form-sub002/internal/logging"
	"github.com/yasushihonda-acg/facility-care-input-form-sub002/internal/metrics"
	"github.com/yasushihonda-acg/facility-care-input-form-sub002/internal/service"
	"github.com/yasushihonda-acg/facility-care-input-form-sub002/internal/source"
	"github.com/yasushihonda-acg/facility-care-input-form-sub002/internal/store"
	"github.com/yasushihonda-acg/facility-care-input-form-sub002/internal/web"
)

func main() {
	// Load .env file if it exists (Overload overwrites existing env vars)
	if err := godotenv.Overload(); err != nil {
		slog.Info("no .env file found, using environment variables")
	} else {
		slog.Info("loaded .env file (overwriting existing env vars)")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("configuration loaded", "config", cfg.String())

	ctx := context.Background()

	st, err := openStore(ctx, cfg)
	if err != nil {
		slog.Error("failed to open item store", "driver", cfg.Store.Driver, "error", err)
		os.Exit(1)
	}
	defer st.Close()

	extractor, err := newExtractor(cfg)
	if err != nil {
		slog.Error("failed to create image extractor", "error", err)
		os.Exit(1)
	}

	var sheets service.SheetSource
	if cfg.Sheets.Enabled {
		reader, err := source.NewSheetsReader(ctx, cfg.Sheets.CredentialsFile)
		if err != nil {
			slog.Error("failed to create sheets client", "error", err)
			os.Exit(1)
		}
		sheets = reader
	}

	m := metrics.New()
	if pg, ok := st.(*store.Postgres); ok {
		m.RegisterPool(pg.PoolStats)
	}
	svc, err := service.New(service.Config{
		CommitConcurrency:    cfg.Import.CommitConcurrency,
		MaxConcurrentBatches: cfg.Import.MaxConcurrentBatches,
		MaxWaitTime:          cfg.Import.MaxWaitTime,
		MaxFileBytes:         cfg.Import.MaxFileSize,
		MaxImageBytes:        cfg.Extraction.MaxImageSize,
		ImportTimeout:        cfg.Import.Timeout,
		DemoMode:             cfg.Import.DemoMode,
		DemoCommitLatency:    cfg.Import.DemoLatency,
	}, service.Deps{
		Store:     st,
		Extractor: extractor,
		Sheets:    sheets,
		Metrics:   m,
	})
	if err != nil {
		slog.Error("failed to create service", "error", err)
		os.Exit(1)
	}

	slog.Info("import service ready",
		"store", cfg.Store.Driver,
		"demo", cfg.Import.DemoMode,
		"image_extraction", extractor != nil,
		"sheets", sheets != nil,
		"commit_concurrency", cfg.Import.CommitConcurrency,
	)

	server := web.NewServer(svc, cfg, m)

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		// Let running imports finish their commits before closing the store.
		if status := svc.ImportStatus(); status.Active > 0 {
			slog.Info("waiting for imports to complete", "active", status.Active)
			if err := svc.WaitForImports(shutdownCtx); err != nil {
				slog.Warn("imports did not complete in time", "error", err)
			} else {
				slog.Info("all imports completed")
			}
		}

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown error", "error", err)
		}
	}()

	if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server stopped", "error", err)
		os.Exit(1)
	}
	slog.Info("server stopped")
}

func openStore(ctx context.Context, cfg *config.Config) (store.Store, error) {
	switch strings.ToLower(cfg.Store.Driver) {
	case config.DriverPostgres:
		pg, err := store.OpenPostgres(ctx, cfg.Database.URL, store.PoolConfig{
			MaxConns:        int32(cfg.Database.MaxConns),
			MinConns:        int32(cfg.Database.MinConns),
			MaxConnLifetime: cfg.Database.MaxConnLifetime,
			MaxConnIdleTime: cfg.Database.MaxConnIdleTime,
		})
		if err != nil {
			return nil, err
		}
		if u, err := url.Parse(cfg.Database.URL); err == nil {
			slog.Info("connected to database", "name", strings.TrimPrefix(u.Path, "/"))
		}
		return pg, nil
	case config.DriverSQLite:
		slog.Info("opening sqlite store", "path", cfg.Store.SQLitePath)
		return store.OpenSQLite(cfg.Store.SQLitePath)
	default:
		slog.Warn("using in-memory store; items are lost on restart")
		return store.NewMemory(), nil
	}
}

// newExtractor returns nil when neither demo mode nor a model endpoint is
// configured; image previews then fail with an extraction error.
func newExtractor(cfg *config.Config) (source.Extractor, error) {
	switch {
	case cfg.Import.DemoMode:
		return source.DemoExtractor{}, nil
	case cfg.Extraction.LiveExtraction():
		return source.NewOpenAIExtractor(source.LLMConfig{
			APIKey:    cfg.Extraction.APIKey,
			BaseURL:   cfg.Extraction.BaseURL,
			Model:     cfg.Extraction.Model,
			MaxTokens: cfg.Extraction.MaxTokens,
		})
	default:
		slog.Warn("image extraction disabled: set EXTRACTION_API_KEY or IMPORT_DEMO_MODE")
		return nil, nil
	}
}
