package reports

import (
	"context"
	"fmt"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/shopspring/decimal"
)

// Segment labels, ordered from highest to lowest customer value.
const (
	SegmentHigh = "High-Value"
	SegmentMid  = "Mid-Value"
	SegmentLow  = "Low-Value"
)

// SegmentRank maps a segment label to its tier position, 1 being the most
// valuable. Unknown labels sort last.
func SegmentRank(segment string) int {
	switch segment {
	case SegmentHigh:
		return 1
	case SegmentMid:
		return 2
	case SegmentLow:
		return 3
	default:
		return 4
	}
}

// SegmentSummary aggregates lifetime value over one customer segment.
type SegmentSummary struct {
	Segment    string          `ch:"segment" json:"segment"`
	Customers  uint64          `ch:"customers" json:"customers"`
	TotalValue decimal.Decimal `ch:"total_value" json:"total_value"`
	AvgValue   decimal.Decimal `ch:"avg_value" json:"avg_value"`
}

// InitSegmentSummary creates the segment report table.
func InitSegmentSummary(ctx context.Context, db driver.Conn, dbName string) error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS "%s".segment_summary (
			segment LowCardinality(String),
			customers UInt64,
			total_value Decimal(38, 6),
			avg_value Decimal(38, 6),
			version UInt64
		) ENGINE = ReplacingMergeTree(version)
		ORDER BY segment
	`, dbName)

	return db.Exec(ctx, query)
}
