package reporter

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mxlvintam/cohortx/pkg/analytics"
	"github.com/mxlvintam/cohortx/pkg/db"
	reportmodels "github.com/mxlvintam/cohortx/pkg/db/models/reports"
	salesmodels "github.com/mxlvintam/cohortx/pkg/db/models/sales"
	"github.com/mxlvintam/cohortx/pkg/export"
	"github.com/mxlvintam/cohortx/pkg/logging"
	"github.com/mxlvintam/cohortx/pkg/metrics"
	"github.com/mxlvintam/cohortx/pkg/retry"
	"github.com/mxlvintam/cohortx/pkg/source"
)

// Input source kinds accepted by the reporter.
const (
	SourceCSV       = "csv"
	SourcePostgres  = "postgres"
	SourceWarehouse = "warehouse"
)

// Config selects where the reporter reads raw rows from and what it does
// with the computed reports.
type Config struct {
	SourceKind    string
	SalesPath     string // csv source
	CustomersPath string // csv source
	PostgresDSN   string // postgres source, falls back to POSTGRES_URL

	Formats     []string // output formats, rendered to stdout or OutDir
	OutDir      string   // when set, reports are written as files instead of stdout
	Materialize bool     // persist the view and summaries to the warehouse
}

// App runs one full report: fetch raw rows, compute the cohort view and the
// three summaries, export them, and optionally materialize everything into
// the warehouse together with a run record.
type App struct {
	Logger    *zap.Logger
	Config    Config
	Source    source.Source
	SalesDB   db.SalesStore
	ReportsDB db.ReportsStore
	Out       io.Writer
}

// Initialize wires the reporter from its config. Warehouse connections are
// only opened when the run needs them.
func Initialize(ctx context.Context, cfg Config) (*App, error) {
	logger, err := logging.New()
	if err != nil {
		// nothing else to do here, we'll just log to stderr'
		panic(err)
	}

	app := &App{
		Logger: logger,
		Config: cfg,
		Out:    os.Stdout,
	}

	if cfg.Materialize || cfg.SourceKind == SourceWarehouse {
		salesDb, reportsDb, storesErr := db.NewStores(ctx, logger, retry.CLIConfig(), "reporter")
		if storesErr != nil {
			return nil, fmt.Errorf("failed to initialize warehouse stores: %w", storesErr)
		}
		app.SalesDB = salesDb
		app.ReportsDB = reportsDb
	}

	switch cfg.SourceKind {
	case SourceCSV:
		if cfg.SalesPath == "" || cfg.CustomersPath == "" {
			app.Close()
			return nil, errors.New("csv source requires both --sales and --customers files")
		}
		app.Source = source.NewCSVSource(logger, cfg.SalesPath, cfg.CustomersPath)
	case SourcePostgres:
		src, srcErr := source.NewPostgresSource(ctx, logger, cfg.PostgresDSN)
		if srcErr != nil {
			app.Close()
			return nil, srcErr
		}
		app.Source = src
	case SourceWarehouse:
		app.Source = source.NewWarehouseSource(app.SalesDB)
	default:
		app.Close()
		return nil, fmt.Errorf("unknown source %q", cfg.SourceKind)
	}

	return app, nil
}

// Close releases the source and any open warehouse connections.
func (a *App) Close() {
	if a.Source != nil {
		if err := a.Source.Close(); err != nil {
			a.Logger.Warn("Failed to close source", zap.Error(err))
		}
	}
	if a.SalesDB != nil {
		if err := a.SalesDB.Close(); err != nil {
			a.Logger.Warn("Failed to close sales store", zap.Error(err))
		}
	}
	if a.ReportsDB != nil {
		if err := a.ReportsDB.Close(); err != nil {
			a.Logger.Warn("Failed to close reports store", zap.Error(err))
		}
	}
}

// Run executes one report run and records its outcome.
func (a *App) Run(ctx context.Context) (*analytics.Result, error) {
	started := time.Now().UTC()
	run := &reportmodels.Run{
		RunID:     uuid.New(),
		StartedAt: started,
		Source:    a.Source.Name(),
	}

	res, err := a.run(ctx, started, run)

	run.FinishedAt = time.Now().UTC()
	run.Status = reportmodels.RunSucceeded
	if err != nil {
		run.Status = reportmodels.RunFailed
		msg := err.Error()
		run.Error = &msg
	}
	metrics.ReportRunsTotal.WithLabelValues(run.Source, run.Status).Inc()
	metrics.ReportRunDuration.Observe(run.FinishedAt.Sub(started).Seconds())

	if a.Config.Materialize && a.ReportsDB != nil {
		if recordErr := a.ReportsDB.RecordRun(ctx, run); recordErr != nil {
			a.Logger.Warn("Failed to record report run", zap.Error(recordErr))
		}
	}

	return res, err
}

func (a *App) run(ctx context.Context, started time.Time, run *reportmodels.Run) (*analytics.Result, error) {
	sales, err := a.Source.FetchSales(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch sales from %s: %w", a.Source.Name(), err)
	}
	customers, err := a.Source.FetchCustomers(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch customers from %s: %w", a.Source.Name(), err)
	}
	run.Sales = uint64(len(sales))
	run.Customers = uint64(len(customers))

	pipeline := &analytics.Pipeline{Logger: a.Logger}
	res, err := pipeline.Run(ctx, sales, customers)
	if err != nil {
		return nil, err
	}
	run.CohortRecords = uint64(len(res.Records))
	run.MaxOrderDate = maxOrderDate(res.Records)

	if err := a.exportResult(res); err != nil {
		return res, err
	}

	if a.Config.Materialize {
		if err := a.materialize(ctx, started, res); err != nil {
			return res, err
		}
	}

	return res, nil
}

func (a *App) exportResult(res *analytics.Result) error {
	if len(a.Config.Formats) == 0 {
		return nil
	}

	if a.Config.OutDir != "" {
		_, err := export.WriteFiles(a.Logger, a.Config.OutDir, a.Config.Formats, res)
		return err
	}

	for _, format := range a.Config.Formats {
		if err := export.Render(a.Out, format, res); err != nil {
			return err
		}
	}
	return nil
}

// materialize persists the cohort view and the three summaries. Every row
// carries the run's start timestamp as its version, so a rerun over the
// same dataset supersedes the previous rows instead of duplicating them.
func (a *App) materialize(ctx context.Context, started time.Time, res *analytics.Result) error {
	version := uint64(started.UnixMilli())

	if err := a.SalesDB.InsertCohortRecords(ctx, res.Records, version); err != nil {
		return fmt.Errorf("failed to materialize cohort records: %w", err)
	}
	if err := a.ReportsDB.InsertSegmentSummaries(ctx, res.Segments, version); err != nil {
		return fmt.Errorf("failed to materialize segment summary: %w", err)
	}
	if err := a.ReportsDB.InsertCohortSummaries(ctx, res.Cohorts, version); err != nil {
		return fmt.Errorf("failed to materialize cohort summary: %w", err)
	}
	if err := a.ReportsDB.InsertRetentionSummaries(ctx, res.Retention, version); err != nil {
		return fmt.Errorf("failed to materialize retention summary: %w", err)
	}

	a.Logger.Info("Materialized report run",
		zap.Uint64("version", version),
		zap.Int("cohort_records", len(res.Records)),
		zap.Int("segments", len(res.Segments)),
		zap.Int("cohorts", len(res.Cohorts)),
		zap.Int("retention_rows", len(res.Retention)))
	return nil
}

// Load stages a full snapshot of sales and customers into the warehouse,
// replacing whatever was staged before. The warehouse itself cannot be a
// load source.
func (a *App) Load(ctx context.Context) error {
	if a.Config.SourceKind == SourceWarehouse {
		return errors.New("cannot load the warehouse from itself")
	}
	if a.SalesDB == nil {
		return errors.New("load requires a warehouse connection")
	}

	sales, err := a.Source.FetchSales(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch sales from %s: %w", a.Source.Name(), err)
	}
	customers, err := a.Source.FetchCustomers(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch customers from %s: %w", a.Source.Name(), err)
	}

	if err := a.SalesDB.ReplaceSales(ctx, sales); err != nil {
		return fmt.Errorf("failed to stage sales: %w", err)
	}
	metrics.RowsStagedTotal.WithLabelValues("sales").Add(float64(len(sales)))

	if err := a.SalesDB.ReplaceCustomers(ctx, customers); err != nil {
		return fmt.Errorf("failed to stage customers: %w", err)
	}
	metrics.RowsStagedTotal.WithLabelValues("customers").Add(float64(len(customers)))

	a.Logger.Info("Staged snapshot into warehouse",
		zap.String("source", a.Source.Name()),
		zap.Int("sales", len(sales)),
		zap.Int("customers", len(customers)))
	return nil
}

func maxOrderDate(records []*salesmodels.CohortRecord) *time.Time {
	var latest time.Time
	for _, r := range records {
		if r.OrderDate.After(latest) {
			latest = r.OrderDate
		}
	}
	if latest.IsZero() {
		return nil
	}
	return &latest
}
