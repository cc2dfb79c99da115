package sales

import (
	"context"
	"fmt"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/shopspring/decimal"
)

// CohortRecord is one row of the cohort view: a customer's activity on a single
// order date, decorated with customer attributes and acquisition data.
//
// Customer attributes are pointers because a sale may reference a customer key
// with no matching dimension row; the record is still emitted with the
// attributes null. FirstPurchaseDate and CohortYear are computed over the
// customer's entire order history and are identical on every record of that
// customer.
type CohortRecord struct {
	CustomerKey       uint64          `ch:"customer_key" json:"customer_key"`
	OrderDate         time.Time       `ch:"order_date" json:"order_date"`
	NetRevenue        decimal.Decimal `ch:"net_revenue" json:"net_revenue"`
	Orders            uint64          `ch:"orders" json:"orders"`
	GivenName         *string         `ch:"given_name" json:"given_name,omitempty"`
	Surname           *string         `ch:"surname" json:"surname,omitempty"`
	Country           *string         `ch:"country" json:"country,omitempty"`
	Age               *uint8          `ch:"age" json:"age,omitempty"`
	FirstPurchaseDate time.Time       `ch:"first_purchase_date" json:"first_purchase_date"`
	CohortYear        uint16          `ch:"cohort_year" json:"cohort_year"`
}

// IsAcquisition reports whether this record is the customer's first-purchase row.
func (r *CohortRecord) IsAcquisition() bool {
	return r.OrderDate.Equal(r.FirstPurchaseDate)
}

// InitCohortRecords creates the materialized cohort view table. Reruns replace
// prior rows through the version column, so the latest computation wins after
// merges without coordination.
func InitCohortRecords(ctx context.Context, db driver.Conn, dbName string) error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS "%s".cohort_records (
			customer_key UInt64,
			order_date Date,
			net_revenue Decimal(38, 6),
			orders UInt64,
			given_name Nullable(String),
			surname Nullable(String),
			country Nullable(String),
			age Nullable(UInt8),
			first_purchase_date Date,
			cohort_year UInt16,
			version UInt64
		) ENGINE = ReplacingMergeTree(version)
		ORDER BY (customer_key, order_date)
	`, dbName)

	return db.Exec(ctx, query)
}
