package analytics

import (
	"sort"
	"time"

	salesmodels "github.com/mxlvintam/cohortx/pkg/db/models/sales"
	"github.com/shopspring/decimal"
)

// viewKey identifies one cohort view group. Order dates are normalized to UTC
// midnight before keying, so the unix timestamp is stable for a calendar day.
type viewKey struct {
	customer uint64
	date     int64
}

type viewGroup struct {
	customer uint64
	date     time.Time
	revenue  decimal.Decimal
	orders   map[string]struct{}
}

// BuildCohortView groups sales by (customer, order date) into cohort records.
//
// Each group sums net revenue (quantity * net_price * exchange_rate) and counts
// distinct order keys. Customer attributes are joined on customer key; a sale
// whose key has no dimension row still produces a record with null attributes.
// Every record of a customer carries that customer's minimum order date as
// FirstPurchaseDate and its year as CohortYear, computed over the full history.
//
// The store gives no ordering guarantee, so output is sorted by (customer key,
// order date) to make reruns byte-identical.
func BuildCohortView(sales []*salesmodels.Sale, customers []*salesmodels.Customer) []*salesmodels.CohortRecord {
	customerIndex := make(map[uint64]*salesmodels.Customer, len(customers))
	for _, c := range customers {
		customerIndex[c.CustomerKey] = c
	}

	groups := make(map[viewKey]*viewGroup)
	firstPurchase := make(map[uint64]time.Time)

	for _, s := range sales {
		day := dateOnly(s.OrderDate)
		key := viewKey{customer: s.CustomerKey, date: day.Unix()}

		g, ok := groups[key]
		if !ok {
			g = &viewGroup{
				customer: s.CustomerKey,
				date:     day,
				orders:   make(map[string]struct{}),
			}
			groups[key] = g
		}
		g.revenue = g.revenue.Add(s.Revenue())
		g.orders[s.OrderKey] = struct{}{}

		if first, seen := firstPurchase[s.CustomerKey]; !seen || day.Before(first) {
			firstPurchase[s.CustomerKey] = day
		}
	}

	records := make([]*salesmodels.CohortRecord, 0, len(groups))
	for _, g := range groups {
		first := firstPurchase[g.customer]
		rec := &salesmodels.CohortRecord{
			CustomerKey:       g.customer,
			OrderDate:         g.date,
			NetRevenue:        g.revenue,
			Orders:            uint64(len(g.orders)),
			FirstPurchaseDate: first,
			CohortYear:        uint16(first.Year()),
		}
		if c, ok := customerIndex[g.customer]; ok {
			givenName, surname, country, age := c.GivenName, c.Surname, c.Country, c.Age
			rec.GivenName = &givenName
			rec.Surname = &surname
			rec.Country = &country
			rec.Age = &age
		}
		records = append(records, rec)
	}

	sort.Slice(records, func(i, j int) bool {
		if records[i].CustomerKey != records[j].CustomerKey {
			return records[i].CustomerKey < records[j].CustomerKey
		}
		return records[i].OrderDate.Before(records[j].OrderDate)
	})

	return records
}

// dateOnly truncates a timestamp to its UTC calendar day.
func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
