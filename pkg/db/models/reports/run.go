package reports

import (
	"context"
	"fmt"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/google/uuid"
)

// Run statuses recorded in run history.
const (
	RunSucceeded = "succeeded"
	RunFailed    = "failed"
)

// Run is one pipeline execution: where the data came from, how much of it
// there was, and whether the run landed. MaxOrderDate is null when the
// dataset was empty.
type Run struct {
	RunID         uuid.UUID  `ch:"run_id" json:"run_id"`
	StartedAt     time.Time  `ch:"started_at" json:"started_at"`
	FinishedAt    time.Time  `ch:"finished_at" json:"finished_at"`
	Source        string     `ch:"source" json:"source"`
	Sales         uint64     `ch:"sales" json:"sales"`
	Customers     uint64     `ch:"customers" json:"customers"`
	CohortRecords uint64     `ch:"cohort_records" json:"cohort_records"`
	MaxOrderDate  *time.Time `ch:"max_order_date" json:"max_order_date,omitempty"`
	Status        string     `ch:"status" json:"status"`
	Error         *string    `ch:"error" json:"error,omitempty"`
}

// InitRuns creates the run history table.
func InitRuns(ctx context.Context, db driver.Conn, dbName string) error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS "%s".report_runs (
			run_id UUID,
			started_at DateTime64(3),
			finished_at DateTime64(3),
			source LowCardinality(String),
			sales UInt64,
			customers UInt64,
			cohort_records UInt64,
			max_order_date Nullable(Date),
			status LowCardinality(String),
			error Nullable(String)
		) ENGINE = MergeTree
		ORDER BY started_at
	`, dbName)

	return db.Exec(ctx, query)
}
