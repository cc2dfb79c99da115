package db

import (
	"context"
	"testing"
	"time"

	"github.com/mxlvintam/cohortx/pkg/analytics"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestSalesStore_InitializeDB tests that all snapshot tables are created.
func TestSalesStore_InitializeDB(t *testing.T) {
	salesDb := createSalesStore(t, "test_sales_init")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	for _, table := range []string{"sales", "customers", "cohort_records"} {
		exists, err := salesDb.TableExists(ctx, "test_sales_init", table)
		require.NoError(t, err)
		assert.True(t, exists, "table %s should exist", table)
	}

	// Initialization is idempotent
	require.NoError(t, salesDb.InitializeDB(ctx))
}

// TestSalesStore_ReplaceSales tests staging and re-staging the sales snapshot.
func TestSalesStore_ReplaceSales(t *testing.T) {
	salesDb := createSalesStore(t, "test_sales_replace")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	staged, _ := stageSnapshot(t, ctx, salesDb)

	retrieved, err := salesDb.FetchSales(ctx)
	require.NoError(t, err)
	require.Len(t, retrieved, len(staged))
	for i := range staged {
		assertSaleEqual(t, staged[i], retrieved[i])
	}

	// A second replace is a full snapshot swap, not an append
	err = salesDb.ReplaceSales(ctx, staged[:2])
	require.NoError(t, err)

	retrieved, err = salesDb.FetchSales(ctx)
	require.NoError(t, err)
	require.Len(t, retrieved, 2)
	assert.Equal(t, "o-1", retrieved[0].OrderKey)
	assert.Equal(t, "o-2", retrieved[1].OrderKey)
}

// TestSalesStore_ReplaceCustomers tests the customer dimension round trip.
func TestSalesStore_ReplaceCustomers(t *testing.T) {
	salesDb := createSalesStore(t, "test_sales_customers")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	_, staged := stageSnapshot(t, ctx, salesDb)

	retrieved, err := salesDb.FetchCustomers(ctx)
	require.NoError(t, err)
	require.Len(t, retrieved, len(staged))
	for i := range staged {
		assertCustomerEqual(t, staged[i], retrieved[i])
	}
}

// TestSalesStore_EmptySnapshot tests that an empty snapshot stages cleanly.
func TestSalesStore_EmptySnapshot(t *testing.T) {
	salesDb := createSalesStore(t, "test_sales_empty")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	require.NoError(t, salesDb.ReplaceSales(ctx, nil))
	require.NoError(t, salesDb.ReplaceCustomers(ctx, nil))

	sales, err := salesDb.FetchSales(ctx)
	require.NoError(t, err)
	assert.Empty(t, sales)

	maxDate, err := salesDb.MaxOrderDate(ctx)
	require.NoError(t, err)
	assert.Nil(t, maxDate)
}

// TestSalesStore_MaxOrderDate tests the snapshot's maximum order date.
func TestSalesStore_MaxOrderDate(t *testing.T) {
	salesDb := createSalesStore(t, "test_sales_maxdate")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	stageSnapshot(t, ctx, salesDb)

	maxDate, err := salesDb.MaxOrderDate(ctx)
	require.NoError(t, err)
	require.NotNil(t, maxDate)
	assert.True(t, mustDate("2024-01-05").Equal(*maxDate), "got %s", maxDate)
}

// TestSalesStore_CohortRecords tests materializing the cohort view and reading
// it back with attributes, acquisition dates, and null handling intact.
func TestSalesStore_CohortRecords(t *testing.T) {
	salesDb := createSalesStore(t, "test_sales_cohort_records")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	sales, customers := stageSnapshot(t, ctx, salesDb)
	records := analytics.BuildCohortView(sales, customers)
	require.Len(t, records, 5)

	err := salesDb.InsertCohortRecords(ctx, records, 1)
	require.NoError(t, err)

	retrieved, err := salesDb.GetCohortRecords(ctx)
	require.NoError(t, err)
	require.Len(t, retrieved, 5)

	// Customer 1's first visit anchors the 2020 cohort on both of its rows
	first := retrieved[0]
	assert.Equal(t, uint64(1), first.CustomerKey)
	assertDecimal(t, "80", first.NetRevenue)
	assert.Equal(t, uint64(1), first.Orders)
	require.NotNil(t, first.GivenName)
	assert.Equal(t, "Ada", *first.GivenName)
	assert.True(t, mustDate("2020-05-10").Equal(first.FirstPurchaseDate))
	assert.Equal(t, uint16(2020), first.CohortYear)
	assert.Equal(t, uint16(2020), retrieved[1].CohortYear)

	// Customer 2 placed two distinct orders on one day
	assert.Equal(t, uint64(2), retrieved[2].Orders)
	assertDecimal(t, "125", retrieved[2].NetRevenue)

	// Customer 3 has no dimension row; attributes stay null
	last := retrieved[4]
	assert.Equal(t, uint64(3), last.CustomerKey)
	assert.Nil(t, last.GivenName)
	assert.Nil(t, last.Surname)
	assert.Nil(t, last.Country)
	assert.Nil(t, last.Age)
	assert.Equal(t, uint16(2024), last.CohortYear)
}

// TestSalesStore_CohortRecords_Supersede tests that a rerun under a higher
// version replaces the previous materialization row for row.
func TestSalesStore_CohortRecords_Supersede(t *testing.T) {
	salesDb := createSalesStore(t, "test_sales_supersede")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	sales, customers := stageSnapshot(t, ctx, salesDb)
	records := analytics.BuildCohortView(sales, customers)

	require.NoError(t, salesDb.InsertCohortRecords(ctx, records, 1))

	// Rerun with a corrected snapshot: same keys, different revenue
	records[0].NetRevenue = records[0].NetRevenue.Add(decimal.NewFromInt(5))
	require.NoError(t, salesDb.InsertCohortRecords(ctx, records, 2))

	// Collapse versions so the assertion sees merged state
	require.NoError(t, salesDb.OptimizeTable(ctx, "test_sales_supersede", "cohort_records"))

	retrieved, err := salesDb.GetCohortRecords(ctx)
	require.NoError(t, err)
	require.Len(t, retrieved, len(records), "rerun must not duplicate rows")
	assertDecimal(t, "85", retrieved[0].NetRevenue)
}
