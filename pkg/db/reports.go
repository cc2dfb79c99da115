package db

import (
	"context"
	"fmt"
	"sync"

	"github.com/mxlvintam/cohortx/pkg/db/clickhouse"
	reportmodels "github.com/mxlvintam/cohortx/pkg/db/models/reports"
	"github.com/mxlvintam/cohortx/pkg/retry"
	"go.uber.org/zap"
)

// ReportsDB holds the three report tables and the run history.
type ReportsDB struct {
	clickhouse.Client
	Name string
}

// NewReportsDB connects a reports store and ensures its database and tables exist.
func NewReportsDB(ctx context.Context, logger *zap.Logger, retryCfg retry.Config, component, dbName string) (*ReportsDB, error) {
	name := clickhouse.SanitizeName(dbName)

	client, err := clickhouse.New(ctx, logger.With(
		zap.String("db", name),
		zap.String("component", component),
	), retryCfg, clickhouse.PoolConfigForComponent(component))
	if err != nil {
		return nil, err
	}

	db := &ReportsDB{Client: client, Name: name}
	if err := db.InitializeDB(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// DatabaseName returns the ClickHouse database backing this store.
func (db *ReportsDB) DatabaseName() string {
	return db.Name
}

// Ping verifies the underlying ClickHouse connection.
func (db *ReportsDB) Ping(ctx context.Context) error {
	return db.Db.Ping(ctx)
}

// Close terminates the underlying ClickHouse connection.
func (db *ReportsDB) Close() error {
	return db.Db.Close()
}

// InitializeDB creates the database and its tables if they do not exist.
func (db *ReportsDB) InitializeDB(ctx context.Context) error {
	if err := db.CreateDbIfNotExists(ctx, db.Name); err != nil {
		return fmt.Errorf("create database %s: %w", db.Name, err)
	}

	initOps := []struct {
		name string
		fn   func(context.Context) error
	}{
		{"segment_summary", func(ctx context.Context) error { return reportmodels.InitSegmentSummary(ctx, db.Db, db.Name) }},
		{"cohort_summary", func(ctx context.Context) error { return reportmodels.InitCohortSummary(ctx, db.Db, db.Name) }},
		{"retention_summary", func(ctx context.Context) error { return reportmodels.InitRetentionSummary(ctx, db.Db, db.Name) }},
		{"report_runs", func(ctx context.Context) error { return reportmodels.InitRuns(ctx, db.Db, db.Name) }},
	}

	var wg sync.WaitGroup
	errChan := make(chan error, len(initOps))
	for _, op := range initOps {
		wg.Add(1)
		go func(name string, fn func(context.Context) error) {
			defer wg.Done()
			if err := fn(ctx); err != nil {
				errChan <- fmt.Errorf("init %s: %w", name, err)
			}
		}(op.name, op.fn)
	}
	wg.Wait()
	close(errChan)

	for err := range errChan {
		return err
	}
	return nil
}

// InsertSegmentSummaries writes the segment report under one version.
func (db *ReportsDB) InsertSegmentSummaries(ctx context.Context, rows []*reportmodels.SegmentSummary, version uint64) error {
	if len(rows) == 0 {
		return nil
	}

	query := fmt.Sprintf(`INSERT INTO "%s".segment_summary (
		segment, customers, total_value, avg_value, version
	) VALUES`, db.Name)

	batch, err := db.PrepareBatch(ctx, query)
	if err != nil {
		return fmt.Errorf("prepare segment summary batch: %w", err)
	}
	defer func() { _ = batch.Close() }()

	for _, r := range rows {
		if err := batch.Append(r.Segment, r.Customers, r.TotalValue, r.AvgValue, version); err != nil {
			return fmt.Errorf("append segment %s: %w", r.Segment, err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send segment summary batch: %w", err)
	}
	return nil
}

// InsertCohortSummaries writes the cohort report under one version.
func (db *ReportsDB) InsertCohortSummaries(ctx context.Context, rows []*reportmodels.CohortSummary, version uint64) error {
	if len(rows) == 0 {
		return nil
	}

	query := fmt.Sprintf(`INSERT INTO "%s".cohort_summary (
		cohort_year, customers, total_revenue, revenue_per_customer, version
	) VALUES`, db.Name)

	batch, err := db.PrepareBatch(ctx, query)
	if err != nil {
		return fmt.Errorf("prepare cohort summary batch: %w", err)
	}
	defer func() { _ = batch.Close() }()

	for _, r := range rows {
		if err := batch.Append(r.CohortYear, r.Customers, r.TotalRevenue, r.RevenuePerCustomer, version); err != nil {
			return fmt.Errorf("append cohort %d: %w", r.CohortYear, err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send cohort summary batch: %w", err)
	}
	return nil
}

// InsertRetentionSummaries writes the retention report under one version.
func (db *ReportsDB) InsertRetentionSummaries(ctx context.Context, rows []*reportmodels.RetentionSummary, version uint64) error {
	if len(rows) == 0 {
		return nil
	}

	query := fmt.Sprintf(`INSERT INTO "%s".retention_summary (
		cohort_year, status, customers, cohort_total, share, version
	) VALUES`, db.Name)

	batch, err := db.PrepareBatch(ctx, query)
	if err != nil {
		return fmt.Errorf("prepare retention summary batch: %w", err)
	}
	defer func() { _ = batch.Close() }()

	for _, r := range rows {
		if err := batch.Append(r.CohortYear, r.Status, r.Customers, r.CohortTotal, r.Share, version); err != nil {
			return fmt.Errorf("append retention %d/%s: %w", r.CohortYear, r.Status, err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send retention summary batch: %w", err)
	}
	return nil
}

// GetSegmentSummary reads the segment report in tier order, High-Value first.
func (db *ReportsDB) GetSegmentSummary(ctx context.Context) ([]*reportmodels.SegmentSummary, error) {
	query := fmt.Sprintf(`
		SELECT segment, customers, total_value, avg_value
		FROM "%s".segment_summary FINAL
		ORDER BY multiIf(segment = 'High-Value', 1, segment = 'Mid-Value', 2, 3)
	`, db.Name)

	var rows []*reportmodels.SegmentSummary
	if err := db.SelectFinal(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("get segment summary: %w", err)
	}
	return rows, nil
}

// GetCohortSummary reads the cohort report ordered by cohort year ascending.
func (db *ReportsDB) GetCohortSummary(ctx context.Context) ([]*reportmodels.CohortSummary, error) {
	query := fmt.Sprintf(`
		SELECT cohort_year, customers, total_revenue, revenue_per_customer
		FROM "%s".cohort_summary FINAL
		ORDER BY cohort_year
	`, db.Name)

	var rows []*reportmodels.CohortSummary
	if err := db.SelectFinal(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("get cohort summary: %w", err)
	}
	return rows, nil
}

// GetRetentionSummary reads the retention report ordered by cohort year, then
// status (Active before Churned).
func (db *ReportsDB) GetRetentionSummary(ctx context.Context) ([]*reportmodels.RetentionSummary, error) {
	query := fmt.Sprintf(`
		SELECT cohort_year, status, customers, cohort_total, share
		FROM "%s".retention_summary FINAL
		ORDER BY cohort_year, status
	`, db.Name)

	var rows []*reportmodels.RetentionSummary
	if err := db.SelectFinal(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("get retention summary: %w", err)
	}
	return rows, nil
}

// RecordRun appends one pipeline execution to the run history.
func (db *ReportsDB) RecordRun(ctx context.Context, run *reportmodels.Run) error {
	query := fmt.Sprintf(`INSERT INTO "%s".report_runs (
		run_id, started_at, finished_at, source,
		sales, customers, cohort_records, max_order_date, status, error
	) VALUES`, db.Name)

	batch, err := db.PrepareBatch(ctx, query)
	if err != nil {
		return fmt.Errorf("prepare run batch: %w", err)
	}
	defer func() { _ = batch.Close() }()

	if err := batch.Append(
		run.RunID,
		run.StartedAt,
		run.FinishedAt,
		run.Source,
		run.Sales,
		run.Customers,
		run.CohortRecords,
		run.MaxOrderDate,
		run.Status,
		run.Error,
	); err != nil {
		return fmt.Errorf("append run %s: %w", run.RunID, err)
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send run batch: %w", err)
	}
	db.Logger.Info("Run recorded",
		zap.String("run_id", run.RunID.String()),
		zap.String("status", run.Status),
	)
	return nil
}

// ListRuns returns the most recent runs, newest first.
func (db *ReportsDB) ListRuns(ctx context.Context, limit int) ([]*reportmodels.Run, error) {
	if limit <= 0 {
		limit = 20
	}

	query := fmt.Sprintf(`
		SELECT run_id, started_at, finished_at, source,
		       sales, customers, cohort_records, max_order_date, status, error
		FROM "%s".report_runs
		ORDER BY started_at DESC
		LIMIT ?
	`, db.Name)

	var rows []*reportmodels.Run
	if err := db.Select(ctx, &rows, query, limit); err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	return rows, nil
}
