package reports

import (
	"context"
	"fmt"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/shopspring/decimal"
)

// CohortSummary aggregates acquisition activity for one cohort year:
// how many customers were acquired that year and what they spent on
// their first purchase date.
type CohortSummary struct {
	CohortYear         uint16          `ch:"cohort_year" json:"cohort_year"`
	Customers          uint64          `ch:"customers" json:"customers"`
	TotalRevenue       decimal.Decimal `ch:"total_revenue" json:"total_revenue"`
	RevenuePerCustomer decimal.Decimal `ch:"revenue_per_customer" json:"revenue_per_customer"`
}

// InitCohortSummary creates the cohort report table.
func InitCohortSummary(ctx context.Context, db driver.Conn, dbName string) error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS "%s".cohort_summary (
			cohort_year UInt16,
			customers UInt64,
			total_revenue Decimal(38, 6),
			revenue_per_customer Decimal(38, 6),
			version UInt64
		) ENGINE = ReplacingMergeTree(version)
		ORDER BY cohort_year
	`, dbName)

	return db.Exec(ctx, query)
}
