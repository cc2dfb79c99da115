package db

import (
	"context"
	"testing"
	"time"

	"github.com/mxlvintam/cohortx/pkg/analytics"
	reportmodels "github.com/mxlvintam/cohortx/pkg/db/models/reports"
	"github.com/mxlvintam/cohortx/pkg/source"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// TestPipeline_WarehouseRoundTrip stages a snapshot, reads it back through the
// warehouse source, runs the full pipeline, materializes every report, and
// verifies the stored numbers against the known dataset.
func TestPipeline_WarehouseRoundTrip(t *testing.T) {
	salesDb := createSalesStore(t, "test_e2e_sales")
	reportsDb := createReportsStore(t, "test_e2e_reports")
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	stageSnapshot(t, ctx, salesDb)

	src := source.NewWarehouseSource(salesDb)
	assert.Equal(t, "warehouse", src.Name())

	sales, err := src.FetchSales(ctx)
	require.NoError(t, err)
	require.Len(t, sales, 6)

	customers, err := src.FetchCustomers(ctx)
	require.NoError(t, err)
	require.Len(t, customers, 2)

	pipe := &analytics.Pipeline{Logger: testLogger.With(zap.String("test", t.Name()))}
	res, err := pipe.Run(ctx, sales, customers)
	require.NoError(t, err)

	version := uint64(time.Now().UnixMilli())
	require.NoError(t, salesDb.InsertCohortRecords(ctx, res.Records, version))
	require.NoError(t, reportsDb.InsertSegmentSummaries(ctx, res.Segments, version))
	require.NoError(t, reportsDb.InsertCohortSummaries(ctx, res.Cohorts, version))
	require.NoError(t, reportsDb.InsertRetentionSummaries(ctx, res.Retention, version))

	// Segment tiers: customer 2 (200) above the 75th percentile, customer 1
	// (150) between the cut points, customer 3 (30) below the 25th
	segments, err := reportsDb.GetSegmentSummary(ctx)
	require.NoError(t, err)
	require.Len(t, segments, 3)

	assert.Equal(t, reportmodels.SegmentHigh, segments[0].Segment)
	assert.Equal(t, uint64(1), segments[0].Customers)
	assertDecimal(t, "200", segments[0].TotalValue)

	assert.Equal(t, reportmodels.SegmentMid, segments[1].Segment)
	assertDecimal(t, "150", segments[1].TotalValue)

	assert.Equal(t, reportmodels.SegmentLow, segments[2].Segment)
	assertDecimal(t, "30", segments[2].TotalValue)

	// Segment totals cover every unit of revenue in the snapshot
	population := uint64(0)
	revenue := decimal.Zero
	for _, s := range segments {
		population += s.Customers
		revenue = revenue.Add(s.TotalValue)
	}
	assert.Equal(t, uint64(3), population)
	assertDecimal(t, "380", revenue)

	// Cohorts count only acquisition-day revenue
	cohorts, err := reportsDb.GetCohortSummary(ctx)
	require.NoError(t, err)
	require.Len(t, cohorts, 3)

	assert.Equal(t, uint16(2020), cohorts[0].CohortYear)
	assert.Equal(t, uint64(1), cohorts[0].Customers)
	assertDecimal(t, "80", cohorts[0].TotalRevenue)
	assertDecimal(t, "80", cohorts[0].RevenuePerCustomer)

	assert.Equal(t, uint16(2021), cohorts[1].CohortYear)
	assertDecimal(t, "125", cohorts[1].TotalRevenue)

	assert.Equal(t, uint16(2024), cohorts[2].CohortYear)
	assertDecimal(t, "30", cohorts[2].TotalRevenue)

	// Retention: customer 3 is too recent to be eligible, customer 1 went
	// quiet in 2021, customer 2 bought within the inactivity window
	retention, err := reportsDb.GetRetentionSummary(ctx)
	require.NoError(t, err)
	require.Len(t, retention, 2)

	assert.Equal(t, uint16(2020), retention[0].CohortYear)
	assert.Equal(t, reportmodels.StatusChurned, retention[0].Status)
	assert.Equal(t, uint64(1), retention[0].Customers)
	assert.Equal(t, uint64(1), retention[0].CohortTotal)
	assertDecimal(t, "1", retention[0].Share)

	assert.Equal(t, uint16(2021), retention[1].CohortYear)
	assert.Equal(t, reportmodels.StatusActive, retention[1].Status)
	assert.Equal(t, uint64(1), retention[1].Customers)
	assertDecimal(t, "1", retention[1].Share)

	maxDate, err := salesDb.MaxOrderDate(ctx)
	require.NoError(t, err)
	require.NotNil(t, maxDate)
	assert.True(t, mustDate("2024-01-05").Equal(*maxDate))
}
