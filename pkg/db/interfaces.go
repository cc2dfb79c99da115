package db

import (
	"context"
	"time"

	reportmodels "github.com/mxlvintam/cohortx/pkg/db/models/reports"
	salesmodels "github.com/mxlvintam/cohortx/pkg/db/models/sales"
)

// SalesStore exposes the snapshot and cohort view operations used by the
// loader and the reporter. Implemented by SalesDB; faked in tests.
type SalesStore interface {
	DatabaseName() string
	ReplaceSales(ctx context.Context, rows []*salesmodels.Sale) error
	ReplaceCustomers(ctx context.Context, rows []*salesmodels.Customer) error
	FetchSales(ctx context.Context) ([]*salesmodels.Sale, error)
	FetchCustomers(ctx context.Context) ([]*salesmodels.Customer, error)
	InsertCohortRecords(ctx context.Context, records []*salesmodels.CohortRecord, version uint64) error
	GetCohortRecords(ctx context.Context) ([]*salesmodels.CohortRecord, error)
	MaxOrderDate(ctx context.Context) (*time.Time, error)
	Close() error
}

// ReportsStore exposes the report table operations used by the reporter and
// the query service. Implemented by ReportsDB; faked in tests.
type ReportsStore interface {
	DatabaseName() string
	Ping(ctx context.Context) error
	InsertSegmentSummaries(ctx context.Context, rows []*reportmodels.SegmentSummary, version uint64) error
	InsertCohortSummaries(ctx context.Context, rows []*reportmodels.CohortSummary, version uint64) error
	InsertRetentionSummaries(ctx context.Context, rows []*reportmodels.RetentionSummary, version uint64) error
	GetSegmentSummary(ctx context.Context) ([]*reportmodels.SegmentSummary, error)
	GetCohortSummary(ctx context.Context) ([]*reportmodels.CohortSummary, error)
	GetRetentionSummary(ctx context.Context) ([]*reportmodels.RetentionSummary, error)
	RecordRun(ctx context.Context, run *reportmodels.Run) error
	ListRuns(ctx context.Context, limit int) ([]*reportmodels.Run, error)
	Close() error
}
