// Package app provides the application bootstrap and runtime orchestration.
//
// The App type wires together all dependencies and exposes one method per
// operational mode:
//
//   - Aggregate mode: one batch pass — read datasets, validate and fold
//     records into a fresh aggregation table, store it, write analysis exports
//   - Serve mode: load the stored table and expose the read-only query API
//   - Export mode: load the stored table and rewrite the analysis exports
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/newstrend-lab/keyword-trends/internal/aggregate"
	"github.com/newstrend-lab/keyword-trends/internal/core/domain"
	"github.com/newstrend-lab/keyword-trends/internal/export"
	"github.com/newstrend-lab/keyword-trends/internal/ingest"
	"github.com/newstrend-lab/keyword-trends/internal/platform/config"
	"github.com/newstrend-lab/keyword-trends/internal/platform/observability"
	"github.com/newstrend-lab/keyword-trends/internal/storage"
	"github.com/newstrend-lab/keyword-trends/internal/trendapi"
)

const serverShutdownTimeout = 10 * time.Second

// App holds the application dependencies.
type App struct {
	cfg      *config.Config
	database *storage.DB
	logger   *zerolog.Logger
}

// New creates the application.
func New(cfg *config.Config, database *storage.DB, logger *zerolog.Logger) *App {
	return &App{cfg: cfg, database: database, logger: logger}
}

// RunAggregate executes one full aggregation batch: dataset files in,
// stored table and analysis exports out. Re-running over the same datasets
// rebuilds the table from scratch; nothing is re-accumulated on top of a
// previous run.
func (a *App) RunAggregate(ctx context.Context) error {
	categories, err := a.cfg.Categories()
	if err != nil {
		return err
	}

	if len(a.cfg.DatasetPaths) == 0 {
		return errors.New("no dataset paths configured")
	}

	source := ingest.NewCSVSource(a.logger)

	var (
		records   []domain.WeeklyIssueRecord
		badRows   int
		startedAt = time.Now()
	)

	for _, path := range a.cfg.DatasetPaths {
		fileRecords, rowErrs, err := source.ReadFile(path)
		if err != nil {
			return err
		}

		records = append(records, fileRecords...)
		badRows += len(rowErrs)
	}

	a.logger.Info().
		Int("records", len(records)).
		Int("bad_rows", badRows).
		Int("datasets", len(a.cfg.DatasetPaths)).
		Msg("datasets loaded")

	ingester := ingest.New(categories, a.cfg.StrictIngestion, a.cfg.IngestWorkers, a.logger)

	table, report, err := ingester.Run(ctx, records)
	if err != nil {
		return fmt.Errorf("aggregation batch failed: %w", err)
	}

	slice, err := table.Query(aggregate.Global())
	if err != nil {
		return err
	}

	observability.TableBuckets.Set(float64(len(slice)))

	run := storage.Run{
		ID:         uuid.New(),
		StartedAt:  startedAt,
		FinishedAt: time.Now(),
		Ingested:   report.Ingested,
		Rejected:   len(report.Skipped) + badRows,
		Strict:     a.cfg.StrictIngestion,
	}

	if err := a.database.ReplaceTable(ctx, table, run); err != nil {
		return err
	}

	a.logger.Info().
		Str("run_id", run.ID.String()).
		Int("ingested", report.Ingested).
		Int("skipped", len(report.Skipped)).
		Dur("duration", report.Duration).
		Int("buckets", len(slice)).
		Msg("aggregation batch complete")

	return a.writeExports(table)
}

// RunServe loads the stored table and serves the read-only query API until
// the context is cancelled.
func (a *App) RunServe(ctx context.Context) error {
	categories, err := a.cfg.Categories()
	if err != nil {
		return err
	}

	table, err := a.database.LoadTable(ctx)
	if err != nil {
		return err
	}

	if lastRun, err := a.database.LastRun(ctx); err != nil {
		return err
	} else if lastRun != nil {
		a.logger.Info().
			Str("run_id", lastRun.ID.String()).
			Time("finished_at", lastRun.FinishedAt).
			Msg("serving table from last aggregation run")
	} else {
		a.logger.Warn().Msg("no aggregation run recorded yet, serving empty table")
	}

	handler := trendapi.NewHandler(table, categories, a.cfg.RateLimitRPS, a.cfg.RateLimitBurst, a.logger)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", a.cfg.APIPort),
		Handler:           trendapi.NewRouter(handler),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)

	go func() {
		a.logger.Info().Int("port", a.cfg.APIPort).Msg("query API listening")
		errCh <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), serverShutdownTimeout)
		defer cancel()

		return server.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}

		return err
	}
}

// RunExport loads the stored table and rewrites the analysis export files.
func (a *App) RunExport(ctx context.Context) error {
	table, err := a.database.LoadTable(ctx)
	if err != nil {
		return err
	}

	return a.writeExports(table)
}

func (a *App) writeExports(table *aggregate.Table) error {
	writer := export.New(a.cfg.ExportDir, a.logger)

	if err := writer.WriteTopKeywords(table, a.cfg.ExportTopN); err != nil {
		return err
	}

	present := make(map[domain.Category]bool)
	for _, c := range table.Categories() {
		present[c] = true
	}

	if present[domain.CategoryTotal] {
		if err := writer.WriteTimeSeries(table, domain.CategoryTotal, a.cfg.ExportTimeSeriesTopN); err != nil {
			return err
		}
	}

	if present[domain.CategoryEconomy] {
		if err := writer.WriteCategoryTop(table, domain.CategoryEconomy, a.cfg.ExportTimeSeriesTopN); err != nil {
			return err
		}
	}

	return nil
}
