package analytics

import (
	"testing"
	"time"

	salesmodels "github.com/mxlvintam/cohortx/pkg/db/models/sales"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustDate(t *testing.T, value string) time.Time {
	t.Helper()
	parsed, err := time.Parse("2006-01-02", value)
	require.NoError(t, err)
	return parsed
}

func sale(t *testing.T, customer uint64, order, date string, quantity int64, price, rate string) *salesmodels.Sale {
	t.Helper()
	return &salesmodels.Sale{
		CustomerKey:  customer,
		OrderKey:     order,
		OrderDate:    mustDate(t, date),
		Quantity:     quantity,
		NetPrice:     decimal.RequireFromString(price),
		ExchangeRate: decimal.RequireFromString(rate),
	}
}

func record(t *testing.T, customer uint64, date, revenue, first string) *salesmodels.CohortRecord {
	t.Helper()
	firstPurchase := mustDate(t, first)
	return &salesmodels.CohortRecord{
		CustomerKey:       customer,
		OrderDate:         mustDate(t, date),
		NetRevenue:        decimal.RequireFromString(revenue),
		Orders:            1,
		FirstPurchaseDate: firstPurchase,
		CohortYear:        uint16(firstPurchase.Year()),
	}
}

func TestBuildCohortViewGroupsSameDayOrders(t *testing.T) {
	customers := []*salesmodels.Customer{
		{CustomerKey: 1, GivenName: "Ada", Surname: "Byron", Country: "GB", Age: 36},
	}
	sales := []*salesmodels.Sale{
		sale(t, 1, "ord-1", "2021-03-05", 2, "10.00", "1.0"),
		sale(t, 1, "ord-2", "2021-03-05", 1, "5.00", "1.0"),
		sale(t, 1, "ord-3", "2021-04-01", 3, "4.00", "1.0"),
	}

	records := BuildCohortView(sales, customers)
	require.Len(t, records, 2)

	first := records[0]
	assert.Equal(t, uint64(1), first.CustomerKey)
	assert.Equal(t, mustDate(t, "2021-03-05"), first.OrderDate)
	assert.Equal(t, "25", first.NetRevenue.String())
	assert.Equal(t, uint64(2), first.Orders)

	second := records[1]
	assert.Equal(t, mustDate(t, "2021-04-01"), second.OrderDate)
	assert.Equal(t, "12", second.NetRevenue.String())
	assert.Equal(t, uint64(1), second.Orders)
}

func TestBuildCohortViewCountsDistinctOrders(t *testing.T) {
	// Two line items of the same order are one order.
	sales := []*salesmodels.Sale{
		sale(t, 7, "ord-9", "2022-01-10", 1, "3.00", "1.0"),
		sale(t, 7, "ord-9", "2022-01-10", 2, "2.50", "1.0"),
	}

	records := BuildCohortView(sales, nil)
	require.Len(t, records, 1)
	assert.Equal(t, uint64(1), records[0].Orders)
	assert.Equal(t, "8", records[0].NetRevenue.String())
}

func TestBuildCohortViewAppliesExchangeRate(t *testing.T) {
	sales := []*salesmodels.Sale{
		sale(t, 3, "ord-1", "2020-05-01", 2, "10.00", "1.25"),
	}

	records := BuildCohortView(sales, nil)
	require.Len(t, records, 1)
	assert.Equal(t, "25", records[0].NetRevenue.String())
}

func TestBuildCohortViewFirstPurchaseInvariant(t *testing.T) {
	sales := []*salesmodels.Sale{
		sale(t, 1, "o1", "2021-06-15", 1, "10", "1"),
		sale(t, 1, "o2", "2019-02-01", 1, "10", "1"),
		sale(t, 1, "o3", "2020-11-03", 1, "10", "1"),
		sale(t, 2, "o4", "2022-01-01", 1, "10", "1"),
	}

	records := BuildCohortView(sales, nil)
	require.Len(t, records, 4)

	for _, r := range records {
		if r.CustomerKey == 1 {
			assert.Equal(t, mustDate(t, "2019-02-01"), r.FirstPurchaseDate)
			assert.Equal(t, uint16(2019), r.CohortYear)
		} else {
			assert.Equal(t, mustDate(t, "2022-01-01"), r.FirstPurchaseDate)
			assert.Equal(t, uint16(2022), r.CohortYear)
		}
	}
}

func TestBuildCohortViewJoinsCustomerAttributes(t *testing.T) {
	customers := []*salesmodels.Customer{
		{CustomerKey: 5, GivenName: "Grace", Surname: "Hopper", Country: "US", Age: 45},
	}
	sales := []*salesmodels.Sale{
		sale(t, 5, "o1", "2021-01-01", 1, "10", "1"),
		sale(t, 6, "o2", "2021-01-01", 1, "10", "1"), // no dimension row
	}

	records := BuildCohortView(sales, customers)
	require.Len(t, records, 2)

	known := records[0]
	require.NotNil(t, known.GivenName)
	assert.Equal(t, "Grace", *known.GivenName)
	require.NotNil(t, known.Country)
	assert.Equal(t, "US", *known.Country)
	require.NotNil(t, known.Age)
	assert.Equal(t, uint8(45), *known.Age)

	unknown := records[1]
	assert.Equal(t, uint64(6), unknown.CustomerKey)
	assert.Nil(t, unknown.GivenName)
	assert.Nil(t, unknown.Surname)
	assert.Nil(t, unknown.Country)
	assert.Nil(t, unknown.Age)
	assert.Equal(t, "10", unknown.NetRevenue.String())
}

func TestBuildCohortViewNormalizesTimestamps(t *testing.T) {
	morning := &salesmodels.Sale{
		CustomerKey:  1,
		OrderKey:     "o1",
		OrderDate:    time.Date(2021, 8, 2, 9, 30, 0, 0, time.UTC),
		Quantity:     1,
		NetPrice:     decimal.RequireFromString("5"),
		ExchangeRate: decimal.RequireFromString("1"),
	}
	evening := &salesmodels.Sale{
		CustomerKey:  1,
		OrderKey:     "o2",
		OrderDate:    time.Date(2021, 8, 2, 22, 0, 0, 0, time.UTC),
		Quantity:     1,
		NetPrice:     decimal.RequireFromString("5"),
		ExchangeRate: decimal.RequireFromString("1"),
	}

	records := BuildCohortView([]*salesmodels.Sale{morning, evening}, nil)
	require.Len(t, records, 1)
	assert.Equal(t, time.Date(2021, 8, 2, 0, 0, 0, 0, time.UTC), records[0].OrderDate)
	assert.Equal(t, uint64(2), records[0].Orders)
}

func TestBuildCohortViewDeterministicOrder(t *testing.T) {
	shuffled := []*salesmodels.Sale{
		sale(t, 9, "a", "2021-05-01", 1, "1", "1"),
		sale(t, 2, "b", "2021-07-01", 1, "1", "1"),
		sale(t, 9, "c", "2021-01-01", 1, "1", "1"),
		sale(t, 2, "d", "2021-02-01", 1, "1", "1"),
	}

	records := BuildCohortView(shuffled, nil)
	require.Len(t, records, 4)
	assert.Equal(t, uint64(2), records[0].CustomerKey)
	assert.Equal(t, mustDate(t, "2021-02-01"), records[0].OrderDate)
	assert.Equal(t, uint64(2), records[1].CustomerKey)
	assert.Equal(t, mustDate(t, "2021-07-01"), records[1].OrderDate)
	assert.Equal(t, uint64(9), records[2].CustomerKey)
	assert.Equal(t, mustDate(t, "2021-01-01"), records[2].OrderDate)
	assert.Equal(t, uint64(9), records[3].CustomerKey)
	assert.Equal(t, mustDate(t, "2021-05-01"), records[3].OrderDate)

	// Reruns over unchanged input are byte-identical.
	again := BuildCohortView(shuffled, nil)
	require.Equal(t, len(records), len(again))
	for i := range records {
		assert.Equal(t, records[i].CustomerKey, again[i].CustomerKey)
		assert.Equal(t, records[i].OrderDate, again[i].OrderDate)
		assert.True(t, records[i].NetRevenue.Equal(again[i].NetRevenue))
	}
}

func TestBuildCohortViewEmptyInput(t *testing.T) {
	records := BuildCohortView(nil, nil)
	assert.Empty(t, records)

	records = BuildCohortView([]*salesmodels.Sale{}, []*salesmodels.Customer{{CustomerKey: 1}})
	assert.Empty(t, records)
}
