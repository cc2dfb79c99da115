package analytics

import (
	"testing"

	reportmodels "github.com/mxlvintam/cohortx/pkg/db/models/reports"
	salesmodels "github.com/mxlvintam/cohortx/pkg/db/models/sales"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyRetentionChurnedCustomer(t *testing.T) {
	// Customer 1 bought in early 2020 and went quiet; customer 2's purchase
	// sets the global max order date to 2024-01-01 but is too recent to be
	// eligible itself. Cutoff is 2023-07-01.
	records := []*salesmodels.CohortRecord{
		record(t, 1, "2020-01-01", "100", "2020-01-01"),
		record(t, 1, "2020-06-01", "50", "2020-01-01"),
		record(t, 2, "2024-01-01", "10", "2024-01-01"),
	}

	rows := ClassifyRetention(records)
	require.Len(t, rows, 1)

	row := rows[0]
	assert.Equal(t, uint16(2020), row.CohortYear)
	assert.Equal(t, reportmodels.StatusChurned, row.Status)
	assert.Equal(t, uint64(1), row.Customers)
	assert.Equal(t, uint64(1), row.CohortTotal)
	assert.Equal(t, "1.00", row.Share.StringFixed(2))
}

func TestClassifyRetentionActiveCustomer(t *testing.T) {
	// Customer 1 ordered within the window; customer 2 anchors the max date
	// and is old enough to be eligible too.
	records := []*salesmodels.CohortRecord{
		record(t, 1, "2020-01-01", "100", "2020-01-01"),
		record(t, 1, "2023-12-01", "50", "2020-01-01"),
		record(t, 2, "2020-03-01", "10", "2020-03-01"),
		record(t, 2, "2024-01-01", "10", "2020-03-01"),
	}

	rows := ClassifyRetention(records)
	require.Len(t, rows, 1)
	assert.Equal(t, reportmodels.StatusActive, rows[0].Status)
	assert.Equal(t, uint64(2), rows[0].Customers)
	assert.Equal(t, uint64(2), rows[0].CohortTotal)
	assert.Equal(t, "1.00", rows[0].Share.StringFixed(2))
}

func TestClassifyRetentionMixedStatusesShareSplit(t *testing.T) {
	// Cohort 2020 has three eligible customers: one active, two churned.
	records := []*salesmodels.CohortRecord{
		record(t, 1, "2020-01-01", "10", "2020-01-01"),
		record(t, 1, "2023-12-15", "10", "2020-01-01"), // active
		record(t, 2, "2020-02-01", "10", "2020-02-01"), // churned
		record(t, 3, "2020-03-01", "10", "2020-03-01"), // churned
		record(t, 4, "2024-01-01", "10", "2024-01-01"), // anchors max date, ineligible
	}

	rows := ClassifyRetention(records)
	require.Len(t, rows, 2)

	active := rows[0]
	assert.Equal(t, uint16(2020), active.CohortYear)
	assert.Equal(t, reportmodels.StatusActive, active.Status)
	assert.Equal(t, uint64(1), active.Customers)
	assert.Equal(t, uint64(3), active.CohortTotal)
	assert.Equal(t, "0.33", active.Share.StringFixed(2))

	churned := rows[1]
	assert.Equal(t, uint16(2020), churned.CohortYear)
	assert.Equal(t, reportmodels.StatusChurned, churned.Status)
	assert.Equal(t, uint64(2), churned.Customers)
	assert.Equal(t, uint64(3), churned.CohortTotal)
	assert.Equal(t, "0.67", churned.Share.StringFixed(2))

	// Counts cover the cohort and shares sum to 1.00 within rounding error.
	assert.Equal(t, active.CohortTotal, active.Customers+churned.Customers)
	sum := active.Share.Add(churned.Share)
	diff := sum.Sub(decimal.RequireFromString("1")).Abs()
	assert.True(t, diff.LessThanOrEqual(decimal.RequireFromString("0.01")),
		"shares sum to %s, want 1.00 within 0.01", sum)
}

func TestClassifyRetentionExcludesRecentFirstPurchases(t *testing.T) {
	// Max date 2024-01-01, cutoff 2023-07-01. Customer 2 was acquired on the
	// cutoff day itself, which is not strictly before it.
	records := []*salesmodels.CohortRecord{
		record(t, 1, "2020-01-01", "10", "2020-01-01"),
		record(t, 2, "2023-07-01", "10", "2023-07-01"),
		record(t, 3, "2024-01-01", "10", "2024-01-01"),
	}

	rows := ClassifyRetention(records)
	require.Len(t, rows, 1)
	assert.Equal(t, uint16(2020), rows[0].CohortYear)
}

func TestClassifyRetentionLastOrderOnCutoffIsActive(t *testing.T) {
	// A last order exactly on the cutoff is not strictly before it.
	records := []*salesmodels.CohortRecord{
		record(t, 1, "2020-01-01", "10", "2020-01-01"),
		record(t, 1, "2023-07-01", "10", "2020-01-01"),
		record(t, 2, "2020-06-01", "10", "2020-06-01"),
		record(t, 2, "2024-01-01", "10", "2020-06-01"),
	}

	rows := ClassifyRetention(records)
	require.Len(t, rows, 1)
	assert.Equal(t, reportmodels.StatusActive, rows[0].Status)
	assert.Equal(t, uint64(2), rows[0].Customers)
}

func TestClassifyRetentionUsesMostRecentOrder(t *testing.T) {
	// Only the rank-1 (latest) record decides status, not earlier gaps.
	records := []*salesmodels.CohortRecord{
		record(t, 1, "2019-01-01", "10", "2019-01-01"),
		record(t, 1, "2021-01-01", "10", "2019-01-01"),
		record(t, 1, "2023-12-20", "10", "2019-01-01"),
		record(t, 2, "2019-05-01", "10", "2019-05-01"),
		record(t, 2, "2024-01-01", "10", "2019-05-01"),
	}

	rows := ClassifyRetention(records)
	require.Len(t, rows, 1)
	assert.Equal(t, reportmodels.StatusActive, rows[0].Status)
	assert.Equal(t, uint64(2), rows[0].Customers)
}

func TestClassifyRetentionOrderedByCohortThenStatus(t *testing.T) {
	records := []*salesmodels.CohortRecord{
		record(t, 1, "2021-02-01", "10", "2021-02-01"), // churned, cohort 2021
		record(t, 2, "2019-01-01", "10", "2019-01-01"),
		record(t, 2, "2023-12-01", "10", "2019-01-01"), // active, cohort 2019
		record(t, 3, "2019-03-01", "10", "2019-03-01"), // churned, cohort 2019
		record(t, 4, "2024-01-01", "10", "2024-01-01"), // anchor, ineligible
	}

	rows := ClassifyRetention(records)
	require.Len(t, rows, 3)
	assert.Equal(t, uint16(2019), rows[0].CohortYear)
	assert.Equal(t, reportmodels.StatusActive, rows[0].Status)
	assert.Equal(t, uint16(2019), rows[1].CohortYear)
	assert.Equal(t, reportmodels.StatusChurned, rows[1].Status)
	assert.Equal(t, uint16(2021), rows[2].CohortYear)
	assert.Equal(t, reportmodels.StatusChurned, rows[2].Status)
}

func TestClassifyRetentionEmptyInput(t *testing.T) {
	assert.Empty(t, ClassifyRetention(nil))
	assert.Empty(t, ClassifyRetention([]*salesmodels.CohortRecord{}))
}
