package analytics

import (
	"sort"

	reportmodels "github.com/mxlvintam/cohortx/pkg/db/models/reports"
	salesmodels "github.com/mxlvintam/cohortx/pkg/db/models/sales"
	"github.com/shopspring/decimal"
)

var (
	p25 = decimal.New(25, -2)
	p75 = decimal.New(75, -2)
)

// CustomerValue is one customer's lifetime value: the sum of net revenue over
// every cohort record of that customer.
type CustomerValue struct {
	CustomerKey uint64
	Value       decimal.Decimal
}

// Thresholds are the percentile boundaries splitting customers into tiers.
type Thresholds struct {
	P25 decimal.Decimal
	P75 decimal.Decimal
}

// Classify maps a lifetime value to its segment label. Values strictly below
// the 25th percentile are Low; values up to and including the 75th percentile
// are Mid; the rest are High. A value exactly on either boundary lands in Mid.
func (t Thresholds) Classify(value decimal.Decimal) string {
	switch {
	case value.LessThan(t.P25):
		return reportmodels.SegmentLow
	case value.LessThanOrEqual(t.P75):
		return reportmodels.SegmentMid
	default:
		return reportmodels.SegmentHigh
	}
}

// CustomerValues reduces cohort records to one lifetime value per customer,
// sorted by customer key.
func CustomerValues(records []*salesmodels.CohortRecord) []CustomerValue {
	totals := make(map[uint64]decimal.Decimal)
	for _, r := range records {
		totals[r.CustomerKey] = totals[r.CustomerKey].Add(r.NetRevenue)
	}

	values := make([]CustomerValue, 0, len(totals))
	for key, value := range totals {
		values = append(values, CustomerValue{CustomerKey: key, Value: value})
	}
	sort.Slice(values, func(i, j int) bool {
		return values[i].CustomerKey < values[j].CustomerKey
	})
	return values
}

// ValueThresholds computes the 25th and 75th percentile of the lifetime value
// distribution. The second return is false when the population is empty; a
// population of one puts both thresholds at that single value.
func ValueThresholds(values []CustomerValue) (Thresholds, bool) {
	if len(values) == 0 {
		return Thresholds{}, false
	}

	sorted := make([]decimal.Decimal, len(values))
	for i, v := range values {
		sorted[i] = v.Value
	}
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].LessThan(sorted[j])
	})

	return Thresholds{
		P25: Percentile(sorted, p25),
		P75: Percentile(sorted, p75),
	}, true
}

// SegmentCustomers partitions the customer population into value tiers and
// aggregates each tier: customer count, summed lifetime value, and average
// value (sum over count, not an average of averages). Rows come back in tier
// order High-Value, Mid-Value, Low-Value; tiers nobody landed in are omitted.
// An empty population yields an empty slice.
func SegmentCustomers(records []*salesmodels.CohortRecord) []*reportmodels.SegmentSummary {
	values := CustomerValues(records)
	thresholds, ok := ValueThresholds(values)
	if !ok {
		return []*reportmodels.SegmentSummary{}
	}

	type bucket struct {
		customers uint64
		total     decimal.Decimal
	}
	buckets := make(map[string]*bucket, 3)
	for _, v := range values {
		segment := thresholds.Classify(v.Value)
		b := buckets[segment]
		if b == nil {
			b = &bucket{}
			buckets[segment] = b
		}
		b.customers++
		b.total = b.total.Add(v.Value)
	}

	out := make([]*reportmodels.SegmentSummary, 0, len(buckets))
	for _, segment := range []string{reportmodels.SegmentHigh, reportmodels.SegmentMid, reportmodels.SegmentLow} {
		b := buckets[segment]
		if b == nil {
			continue
		}
		out = append(out, &reportmodels.SegmentSummary{
			Segment:    segment,
			Customers:  b.customers,
			TotalValue: b.total,
			AvgValue:   b.total.DivRound(decimal.NewFromInt(int64(b.customers)), 6),
		})
	}
	return out
}
