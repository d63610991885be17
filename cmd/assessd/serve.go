package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/assessd/internal/answers"
	"github.com/fyrsmithlabs/assessd/internal/assessment"
	"github.com/fyrsmithlabs/assessd/internal/config"
	"github.com/fyrsmithlabs/assessd/internal/export"
	httpserver "github.com/fyrsmithlabs/assessd/internal/http"
	"github.com/fyrsmithlabs/assessd/internal/importer"
	"github.com/fyrsmithlabs/assessd/internal/logging"
	"github.com/fyrsmithlabs/assessd/internal/store"
	"github.com/fyrsmithlabs/assessd/internal/telemetry"
)

// run starts the assessd server and blocks until ctx is cancelled.
//
// Dependencies come up in order: telemetry, logger, database, domain
// services, HTTP server. Shutdown runs in reverse and is bounded by the
// configured shutdown timeout.
func run(ctx context.Context, cfg *config.Config) error {
	deps, err := initDependencies(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize dependencies: %w", err)
	}
	defer deps.Close()

	logger := deps.logger
	logger.Info("starting assessd",
		zap.String("version", version),
		zap.String("driver", cfg.Database.Driver),
		zap.Int("port", cfg.Server.Port),
		zap.Duration("shutdown_timeout", cfg.Server.ShutdownTimeout))

	srv, err := httpserver.NewServer(deps.services(), deps.log.Named("http"), &httpserver.Config{
		Host:                cfg.Server.Host,
		Port:                cfg.Server.Port,
		BodyLimit:           cfg.Server.BodyLimit,
		ImportRatePerMinute: cfg.Server.ImportRatePerMinute,
		Meter:               deps.telemetry.Meter("github.com/fyrsmithlabs/assessd/internal/http"),
	})
	if err != nil {
		return fmt.Errorf("failed to create http server: %w", err)
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutdown signal received")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http server shutdown: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server: %w", err)
	}
	logger.Info("server shutdown complete")
	return nil
}

// dependencies holds the process-wide infrastructure.
type dependencies struct {
	cfg       *config.Config
	telemetry *telemetry.Telemetry
	log       *logging.Logger
	logger    *zap.Logger
	store     *store.Store
}

// initDependencies brings up telemetry, logging and the database. The
// schema is migrated when auto_migrate is set.
func initDependencies(ctx context.Context, cfg *config.Config) (*dependencies, error) {
	tel, err := telemetry.New(ctx, telemetry.FromSettings(cfg.Telemetry, version))
	if err != nil {
		return nil, err
	}

	logCfg, err := logging.FromSettings(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		_ = tel.Shutdown(context.Background())
		return nil, err
	}
	// Log records ride the same OTLP endpoint as traces and metrics.
	logCfg.Output.OTEL = cfg.Telemetry.Enabled
	log, err := logging.NewLogger(logCfg, tel.LoggerProvider())
	if err != nil {
		_ = tel.Shutdown(context.Background())
		return nil, err
	}
	logger := log.Underlying()

	if h := tel.Health(); h.Degraded {
		logger.Warn("telemetry degraded", zap.Error(h.LastError))
	}

	st, err := store.Open(cfg.Database, logger.Named("store"))
	if err != nil {
		_ = tel.Shutdown(context.Background())
		return nil, err
	}
	if cfg.Database.AutoMigrate {
		if err := st.Migrate(ctx); err != nil {
			_ = st.Close()
			_ = tel.Shutdown(context.Background())
			return nil, err
		}
	}
	logger.Info("database ready",
		zap.String("driver", cfg.Database.Driver),
		logging.Secret("dsn", cfg.Database.DSN),
		zap.Bool("migrated", cfg.Database.AutoMigrate))

	return &dependencies{
		cfg:       cfg,
		telemetry: tel,
		log:       log,
		logger:    logger,
		store:     st,
	}, nil
}

func (d *dependencies) importer() *importer.Importer {
	return importer.New(d.store, d.logger.Named("importer"),
		importer.WithStandard(d.cfg.Import.StandardCode, d.cfg.Import.StandardName),
		importer.WithTelemetry(d.telemetry),
	)
}

func (d *dependencies) exporter() *export.Loader {
	return export.NewLoader(d.store, d.log.Named("export"), export.WithTelemetry(d.telemetry))
}

// services wires the domain services served over HTTP.
func (d *dependencies) services() httpserver.Services {
	return httpserver.Services{
		Importer: d.importer(),
		Assessments: assessment.NewService(d.store, d.log.Named("assessment"),
			assessment.WithDefaultStandard(d.cfg.Import.StandardCode),
			assessment.WithTelemetry(d.telemetry),
		),
		Answers:  answers.NewService(d.store, d.log.Named("answers"), answers.WithTelemetry(d.telemetry)),
		Exports:  d.exporter(),
		Database: d.store,
	}
}

// Close releases all infrastructure resources.
func (d *dependencies) Close() {
	if d.store != nil {
		if err := d.store.Close(); err != nil {
			d.logger.Warn("closing database", zap.Error(err))
		}
	}
	if err := d.telemetry.Shutdown(context.Background()); err != nil {
		d.logger.Warn("telemetry shutdown", zap.Error(err))
	}
	_ = d.log.Sync() // Best-effort sync on shutdown
}
