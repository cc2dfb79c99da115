package analytics

import (
	"sort"

	reportmodels "github.com/mxlvintam/cohortx/pkg/db/models/reports"
	salesmodels "github.com/mxlvintam/cohortx/pkg/db/models/sales"
	"github.com/shopspring/decimal"
)

// AggregateCohorts reduces acquisition activity per cohort year.
//
// Only acquisition records count: rows whose order date equals the customer's
// first purchase date. Each cohort year reports its distinct customer count,
// summed acquisition revenue, and revenue per customer. Rows come back sorted
// by cohort year ascending.
func AggregateCohorts(records []*salesmodels.CohortRecord) []*reportmodels.CohortSummary {
	type bucket struct {
		customers map[uint64]struct{}
		revenue   decimal.Decimal
	}

	buckets := make(map[uint16]*bucket)
	for _, r := range records {
		if !r.IsAcquisition() {
			continue
		}
		b := buckets[r.CohortYear]
		if b == nil {
			b = &bucket{customers: make(map[uint64]struct{})}
			buckets[r.CohortYear] = b
		}
		b.customers[r.CustomerKey] = struct{}{}
		b.revenue = b.revenue.Add(r.NetRevenue)
	}

	years := make([]uint16, 0, len(buckets))
	for year := range buckets {
		years = append(years, year)
	}
	sort.Slice(years, func(i, j int) bool { return years[i] < years[j] })

	out := make([]*reportmodels.CohortSummary, 0, len(years))
	for _, year := range years {
		b := buckets[year]
		customers := uint64(len(b.customers))
		out = append(out, &reportmodels.CohortSummary{
			CohortYear:         year,
			Customers:          customers,
			TotalRevenue:       b.revenue,
			RevenuePerCustomer: b.revenue.DivRound(decimal.NewFromInt(int64(customers)), 6),
		})
	}
	return out
}
