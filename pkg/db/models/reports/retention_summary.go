package reports

import (
	"context"
	"fmt"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/shopspring/decimal"
)

// Retention statuses. Active sorts before Churned, which keeps plain
// status ordering stable across the store and the in-memory pipeline.
const (
	StatusActive  = "Active"
	StatusChurned = "Churned"
)

// RetentionSummary counts customers of one cohort year in one retention
// status. CohortTotal is the number of eligible customers in the cohort and
// Share is Customers/CohortTotal rounded to two decimals.
type RetentionSummary struct {
	CohortYear  uint16          `ch:"cohort_year" json:"cohort_year"`
	Status      string          `ch:"status" json:"status"`
	Customers   uint64          `ch:"customers" json:"customers"`
	CohortTotal uint64          `ch:"cohort_total" json:"cohort_total"`
	Share       decimal.Decimal `ch:"share" json:"share"`
}

// InitRetentionSummary creates the retention report table.
func InitRetentionSummary(ctx context.Context, db driver.Conn, dbName string) error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS "%s".retention_summary (
			cohort_year UInt16,
			status LowCardinality(String),
			customers UInt64,
			cohort_total UInt64,
			share Decimal(9, 2),
			version UInt64
		) ENGINE = ReplacingMergeTree(version)
		ORDER BY (cohort_year, status)
	`, dbName)

	return db.Exec(ctx, query)
}
