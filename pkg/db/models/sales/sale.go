package sales

import (
	"context"
	"fmt"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/shopspring/decimal"
)

// Sale is one order line item. Multiple rows may share an order key; each row
// carries the quantity and pricing for a single item within that order.
// Monetary fields stay decimal end to end so revenue sums are exact.
type Sale struct {
	CustomerKey  uint64          `ch:"customer_key" json:"customer_key"`
	OrderKey     string          `ch:"order_key" json:"order_key"`
	OrderDate    time.Time       `ch:"order_date" json:"order_date"`
	Quantity     int64           `ch:"quantity" json:"quantity"`
	NetPrice     decimal.Decimal `ch:"net_price" json:"net_price"`
	ExchangeRate decimal.Decimal `ch:"exchange_rate" json:"exchange_rate"`
}

// Revenue returns quantity * net_price * exchange_rate for this line item.
func (s *Sale) Revenue() decimal.Decimal {
	return decimal.NewFromInt(s.Quantity).Mul(s.NetPrice).Mul(s.ExchangeRate)
}

// InitSales creates the raw sales table.
func InitSales(ctx context.Context, db driver.Conn, dbName string) error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS "%s".sales (
			customer_key UInt64,
			order_key String,
			order_date Date,
			quantity Int64,
			net_price Decimal(18, 4),
			exchange_rate Decimal(18, 6)
		) ENGINE = MergeTree
		ORDER BY (customer_key, order_date, order_key)
	`, dbName)

	return db.Exec(ctx, query)
}
