package analytics

import (
	"sort"
	"time"

	reportmodels "github.com/mxlvintam/cohortx/pkg/db/models/reports"
	salesmodels "github.com/mxlvintam/cohortx/pkg/db/models/sales"
	"github.com/shopspring/decimal"
)

// inactivityMonths is the gap after which a customer counts as churned,
// measured back from the dataset's most recent order date.
const inactivityMonths = 6

// ClassifyRetention labels each customer Active or Churned and aggregates the
// counts per (cohort year, status).
//
// The cutoff is the global maximum order date minus six calendar months.
// A customer's status comes from their most recent record; since the view
// holds one record per (customer, date), the max-date reduction is tie-free.
// Customers first acquired on or after the cutoff are excluded: they have not
// had a full inactivity window in which to churn.
//
// Each output row carries the cohort's eligible total and the status's share
// of it, rounded to two decimals half away from zero. Rows are sorted by
// (cohort year, status); only statuses present in the data appear.
func ClassifyRetention(records []*salesmodels.CohortRecord) []*reportmodels.RetentionSummary {
	if len(records) == 0 {
		return []*reportmodels.RetentionSummary{}
	}

	type customerSpan struct {
		lastOrder time.Time
		first     time.Time
		cohort    uint16
	}

	var maxOrderDate time.Time
	spans := make(map[uint64]*customerSpan)
	for _, r := range records {
		if r.OrderDate.After(maxOrderDate) {
			maxOrderDate = r.OrderDate
		}
		span := spans[r.CustomerKey]
		if span == nil {
			spans[r.CustomerKey] = &customerSpan{
				lastOrder: r.OrderDate,
				first:     r.FirstPurchaseDate,
				cohort:    r.CohortYear,
			}
		} else if r.OrderDate.After(span.lastOrder) {
			span.lastOrder = r.OrderDate
		}
	}

	cutoff := maxOrderDate.AddDate(0, -inactivityMonths, 0)

	type bucket struct {
		active  uint64
		churned uint64
	}
	buckets := make(map[uint16]*bucket)
	for _, span := range spans {
		if !span.first.Before(cutoff) {
			continue
		}
		b := buckets[span.cohort]
		if b == nil {
			b = &bucket{}
			buckets[span.cohort] = b
		}
		if span.lastOrder.Before(cutoff) {
			b.churned++
		} else {
			b.active++
		}
	}

	years := make([]uint16, 0, len(buckets))
	for year := range buckets {
		years = append(years, year)
	}
	sort.Slice(years, func(i, j int) bool { return years[i] < years[j] })

	out := make([]*reportmodels.RetentionSummary, 0, len(buckets)*2)
	for _, year := range years {
		b := buckets[year]
		total := b.active + b.churned
		if b.active > 0 {
			out = append(out, retentionRow(year, reportmodels.StatusActive, b.active, total))
		}
		if b.churned > 0 {
			out = append(out, retentionRow(year, reportmodels.StatusChurned, b.churned, total))
		}
	}
	return out
}

func retentionRow(year uint16, status string, customers, total uint64) *reportmodels.RetentionSummary {
	return &reportmodels.RetentionSummary{
		CohortYear:  year,
		Status:      status,
		Customers:   customers,
		CohortTotal: total,
		Share:       decimal.NewFromInt(int64(customers)).DivRound(decimal.NewFromInt(int64(total)), 2),
	}
}
