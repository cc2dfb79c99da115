package sales

import (
	"context"
	"fmt"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
)

// Customer is one row of the customer dimension, keyed by customer_key.
type Customer struct {
	CustomerKey uint64 `ch:"customer_key" json:"customer_key"`
	GivenName   string `ch:"given_name" json:"given_name"`
	Surname     string `ch:"surname" json:"surname"`
	Country     string `ch:"country" json:"country"`
	Age         uint8  `ch:"age" json:"age"`
}

// InitCustomers creates the customer dimension table.
func InitCustomers(ctx context.Context, db driver.Conn, dbName string) error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS "%s".customers (
			customer_key UInt64,
			given_name String,
			surname String,
			country LowCardinality(String),
			age UInt8
		) ENGINE = MergeTree
		ORDER BY customer_key
	`, dbName)

	return db.Exec(ctx, query)
}
