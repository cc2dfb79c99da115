package db

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	dbpkg "github.com/mxlvintam/cohortx/pkg/db"
	reportmodels "github.com/mxlvintam/cohortx/pkg/db/models/reports"
	salesmodels "github.com/mxlvintam/cohortx/pkg/db/models/sales"
	"github.com/mxlvintam/cohortx/pkg/retry"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// Test Fixtures and Utilities

// createSalesStore creates a new SalesDB for testing with automatic cleanup.
func createSalesStore(t *testing.T, dbName string) *dbpkg.SalesDB {
	t.Helper()

	// Use context with timeout to prevent hangs
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	logger := testLogger.With(zap.String("test", t.Name()))
	salesDb, err := dbpkg.NewSalesDB(ctx, logger, retry.DefaultConfig(), "test", dbName)
	require.NoError(t, err, "failed to create sales store")

	// Register cleanup: drop database BEFORE closing connection
	t.Cleanup(func() {
		dropCtx, dropCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer dropCancel()

		dropQuery := fmt.Sprintf("DROP DATABASE IF EXISTS `%s`", dbName)
		if err := salesDb.Exec(dropCtx, dropQuery); err != nil {
			t.Logf("failed to drop database %s: %v", dbName, err)
		}

		if err := salesDb.Close(); err != nil {
			t.Logf("failed to close sales store: %v", err)
		}
	})

	return salesDb
}

// createReportsStore creates a new ReportsDB for testing with automatic cleanup.
func createReportsStore(t *testing.T, dbName string) *dbpkg.ReportsDB {
	t.Helper()

	// Use context with timeout to prevent hangs
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	logger := testLogger.With(zap.String("test", t.Name()))
	reportsDb, err := dbpkg.NewReportsDB(ctx, logger, retry.DefaultConfig(), "test", dbName)
	require.NoError(t, err, "failed to create reports store")

	// Register cleanup: drop database BEFORE closing connection
	t.Cleanup(func() {
		dropCtx, dropCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer dropCancel()

		dropQuery := fmt.Sprintf("DROP DATABASE IF EXISTS `%s`", dbName)
		if err := reportsDb.Exec(dropCtx, dropQuery); err != nil {
			t.Logf("failed to drop database %s: %v", dbName, err)
		}

		if err := reportsDb.Close(); err != nil {
			t.Logf("failed to close reports store: %v", err)
		}
	})

	return reportsDb
}

// mustDate parses a YYYY-MM-DD literal into a UTC date.
func mustDate(s string) time.Time {
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(fmt.Sprintf("bad date literal %q: %v", s, err))
	}
	return d.UTC()
}

// Data Generators

// generateSale creates a test Sale line item with exchange rate 1.
func generateSale(customerKey uint64, orderKey, orderDate string, quantity int64, netPrice string) *salesmodels.Sale {
	return &salesmodels.Sale{
		CustomerKey:  customerKey,
		OrderKey:     orderKey,
		OrderDate:    mustDate(orderDate),
		Quantity:     quantity,
		NetPrice:     decimal.RequireFromString(netPrice),
		ExchangeRate: decimal.NewFromInt(1),
	}
}

// generateCustomer creates a test Customer row.
func generateCustomer(customerKey uint64, givenName, surname, country string, age uint8) *salesmodels.Customer {
	return &salesmodels.Customer{
		CustomerKey: customerKey,
		GivenName:   givenName,
		Surname:     surname,
		Country:     country,
		Age:         age,
	}
}

// generateRun creates a test Run entry.
func generateRun(started time.Time, source, status string) *reportmodels.Run {
	maxDate := mustDate("2024-01-05")
	return &reportmodels.Run{
		RunID:         uuid.New(),
		StartedAt:     started,
		FinishedAt:    started.Add(2 * time.Second),
		Source:        source,
		Sales:         6,
		Customers:     2,
		CohortRecords: 5,
		MaxOrderDate:  &maxDate,
		Status:        status,
	}
}

// snapshotFixture returns the canonical test dataset: two known customers plus
// a third whose key never appears in the dimension table.
//
// Customer 1 buys in 2020 and once more in early 2021, then goes quiet.
// Customer 2 places two distinct orders on one day in 2021 and buys again in
// late 2023. Customer 3 appears only in sales, with a single 2024 order that
// sets the dataset's maximum order date.
func snapshotFixture() ([]*salesmodels.Sale, []*salesmodels.Customer) {
	sale4 := generateSale(2, "o-4", "2021-03-01", 1, "20.00")
	sale4.ExchangeRate = decimal.RequireFromString("1.25")

	sales := []*salesmodels.Sale{
		generateSale(1, "o-1", "2020-05-10", 2, "40.00"),
		generateSale(1, "o-2", "2021-01-15", 1, "70.00"),
		generateSale(2, "o-3", "2021-03-01", 1, "100.00"),
		sale4,
		generateSale(2, "o-5", "2023-11-20", 1, "75.00"),
		generateSale(3, "o-6", "2024-01-05", 3, "10.00"),
	}
	customers := []*salesmodels.Customer{
		generateCustomer(1, "Ada", "Lovelace", "United Kingdom", 36),
		generateCustomer(2, "Grace", "Hopper", "United States", 45),
	}
	return sales, customers
}

// stageSnapshot replaces both snapshot tables with the canonical dataset.
func stageSnapshot(t *testing.T, ctx context.Context, store *dbpkg.SalesDB) ([]*salesmodels.Sale, []*salesmodels.Customer) {
	t.Helper()

	sales, customers := snapshotFixture()
	require.NoError(t, store.ReplaceSales(ctx, sales))
	require.NoError(t, store.ReplaceCustomers(ctx, customers))
	return sales, customers
}

// Assertion Helpers

// assertDecimal compares a decimal against its expected literal by value,
// since the column scale pads trailing zeros on the way back out.
func assertDecimal(t *testing.T, expected string, actual decimal.Decimal) {
	t.Helper()
	want := decimal.RequireFromString(expected)
	require.True(t, actual.Equal(want), "expected %s, got %s", want, actual)
}

// assertSaleEqual compares two Sale rows.
func assertSaleEqual(t *testing.T, expected, actual *salesmodels.Sale) {
	t.Helper()
	require.Equal(t, expected.CustomerKey, actual.CustomerKey)
	require.Equal(t, expected.OrderKey, actual.OrderKey)
	require.True(t, expected.OrderDate.Equal(actual.OrderDate), "expected %s, got %s", expected.OrderDate, actual.OrderDate)
	require.Equal(t, expected.Quantity, actual.Quantity)
	assertDecimal(t, expected.NetPrice.String(), actual.NetPrice)
	assertDecimal(t, expected.ExchangeRate.String(), actual.ExchangeRate)
}

// assertCustomerEqual compares two Customer rows.
func assertCustomerEqual(t *testing.T, expected, actual *salesmodels.Customer) {
	t.Helper()
	require.Equal(t, expected.CustomerKey, actual.CustomerKey)
	require.Equal(t, expected.GivenName, actual.GivenName)
	require.Equal(t, expected.Surname, actual.Surname)
	require.Equal(t, expected.Country, actual.Country)
	require.Equal(t, expected.Age, actual.Age)
}
