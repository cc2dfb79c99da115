package db

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/mxlvintam/cohortx/pkg/db/clickhouse"
	salesmodels "github.com/mxlvintam/cohortx/pkg/db/models/sales"
	"github.com/mxlvintam/cohortx/pkg/retry"
	"go.uber.org/zap"
)

// SalesDB holds the raw snapshot tables (sales, customers) and the
// materialized cohort view.
type SalesDB struct {
	clickhouse.Client
	Name string
}

// NewSalesDB connects a sales store and ensures its database and tables exist.
func NewSalesDB(ctx context.Context, logger *zap.Logger, retryCfg retry.Config, component, dbName string) (*SalesDB, error) {
	name := clickhouse.SanitizeName(dbName)

	client, err := clickhouse.New(ctx, logger.With(
		zap.String("db", name),
		zap.String("component", component),
	), retryCfg, clickhouse.PoolConfigForComponent(component))
	if err != nil {
		return nil, err
	}

	db := &SalesDB{Client: client, Name: name}
	if err := db.InitializeDB(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// DatabaseName returns the ClickHouse database backing this store.
func (db *SalesDB) DatabaseName() string {
	return db.Name
}

// Close terminates the underlying ClickHouse connection.
func (db *SalesDB) Close() error {
	return db.Db.Close()
}

// InitializeDB creates the database and its tables if they do not exist.
func (db *SalesDB) InitializeDB(ctx context.Context) error {
	if err := db.CreateDbIfNotExists(ctx, db.Name); err != nil {
		return fmt.Errorf("create database %s: %w", db.Name, err)
	}

	initOps := []struct {
		name string
		fn   func(context.Context) error
	}{
		{"sales", func(ctx context.Context) error { return salesmodels.InitSales(ctx, db.Db, db.Name) }},
		{"customers", func(ctx context.Context) error { return salesmodels.InitCustomers(ctx, db.Db, db.Name) }},
		{"cohort_records", func(ctx context.Context) error { return salesmodels.InitCohortRecords(ctx, db.Db, db.Name) }},
	}

	var wg sync.WaitGroup
	errChan := make(chan error, len(initOps))
	for _, op := range initOps {
		wg.Add(1)
		go func(name string, fn func(context.Context) error) {
			defer wg.Done()
			if err := fn(ctx); err != nil {
				errChan <- fmt.Errorf("init %s: %w", name, err)
			}
		}(op.name, op.fn)
	}
	wg.Wait()
	close(errChan)

	for err := range errChan {
		return err
	}
	return nil
}

// ReplaceSales replaces the full sales snapshot: truncate, then batch insert.
func (db *SalesDB) ReplaceSales(ctx context.Context, rows []*salesmodels.Sale) error {
	if err := db.Exec(ctx, fmt.Sprintf(`TRUNCATE TABLE "%s".sales`, db.Name)); err != nil {
		return fmt.Errorf("truncate sales: %w", err)
	}
	if len(rows) == 0 {
		return nil
	}

	query := fmt.Sprintf(`INSERT INTO "%s".sales (
		customer_key, order_key, order_date, quantity, net_price, exchange_rate
	) VALUES`, db.Name)

	batch, err := db.PrepareBatch(ctx, query)
	if err != nil {
		return fmt.Errorf("prepare sales batch: %w", err)
	}
	defer func() { _ = batch.Close() }()

	for _, r := range rows {
		if err := batch.Append(
			r.CustomerKey,
			r.OrderKey,
			r.OrderDate,
			r.Quantity,
			r.NetPrice,
			r.ExchangeRate,
		); err != nil {
			return fmt.Errorf("append sale %s: %w", r.OrderKey, err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send sales batch: %w", err)
	}
	db.Logger.Info("Sales snapshot replaced", zap.Int("rows", len(rows)))
	return nil
}

// ReplaceCustomers replaces the full customer snapshot.
func (db *SalesDB) ReplaceCustomers(ctx context.Context, rows []*salesmodels.Customer) error {
	if err := db.Exec(ctx, fmt.Sprintf(`TRUNCATE TABLE "%s".customers`, db.Name)); err != nil {
		return fmt.Errorf("truncate customers: %w", err)
	}
	if len(rows) == 0 {
		return nil
	}

	query := fmt.Sprintf(`INSERT INTO "%s".customers (
		customer_key, given_name, surname, country, age
	) VALUES`, db.Name)

	batch, err := db.PrepareBatch(ctx, query)
	if err != nil {
		return fmt.Errorf("prepare customers batch: %w", err)
	}
	defer func() { _ = batch.Close() }()

	for _, r := range rows {
		if err := batch.Append(
			r.CustomerKey,
			r.GivenName,
			r.Surname,
			r.Country,
			r.Age,
		); err != nil {
			return fmt.Errorf("append customer %d: %w", r.CustomerKey, err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send customers batch: %w", err)
	}
	db.Logger.Info("Customer snapshot replaced", zap.Int("rows", len(rows)))
	return nil
}

// FetchSales returns the full sales snapshot in a stable order.
func (db *SalesDB) FetchSales(ctx context.Context) ([]*salesmodels.Sale, error) {
	query := fmt.Sprintf(`
		SELECT customer_key, order_key, order_date, quantity, net_price, exchange_rate
		FROM "%s".sales
		ORDER BY customer_key, order_date, order_key
	`, db.Name)

	var rows []*salesmodels.Sale
	if err := db.Select(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("fetch sales: %w", err)
	}
	return rows, nil
}

// FetchCustomers returns the full customer snapshot ordered by key.
func (db *SalesDB) FetchCustomers(ctx context.Context) ([]*salesmodels.Customer, error) {
	query := fmt.Sprintf(`
		SELECT customer_key, given_name, surname, country, age
		FROM "%s".customers
		ORDER BY customer_key
	`, db.Name)

	var rows []*salesmodels.Customer
	if err := db.Select(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("fetch customers: %w", err)
	}
	return rows, nil
}

// InsertCohortRecords materializes the cohort view. Rows keyed the same as a
// prior run supersede it through the version column once parts merge.
func (db *SalesDB) InsertCohortRecords(ctx context.Context, records []*salesmodels.CohortRecord, version uint64) error {
	if len(records) == 0 {
		return nil
	}

	query := fmt.Sprintf(`INSERT INTO "%s".cohort_records (
		customer_key, order_date, net_revenue, orders,
		given_name, surname, country, age,
		first_purchase_date, cohort_year, version
	) VALUES`, db.Name)

	batch, err := db.PrepareBatch(ctx, query)
	if err != nil {
		return fmt.Errorf("prepare cohort records batch: %w", err)
	}
	defer func() { _ = batch.Close() }()

	for _, r := range records {
		if err := batch.Append(
			r.CustomerKey,
			r.OrderDate,
			r.NetRevenue,
			r.Orders,
			r.GivenName,
			r.Surname,
			r.Country,
			r.Age,
			r.FirstPurchaseDate,
			r.CohortYear,
			version,
		); err != nil {
			return fmt.Errorf("append cohort record %d/%s: %w", r.CustomerKey, r.OrderDate.Format("2006-01-02"), err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send cohort records batch: %w", err)
	}
	db.Logger.Info("Cohort records materialized",
		zap.Int("rows", len(records)),
		zap.Uint64("version", version),
	)
	return nil
}

// GetCohortRecords reads the materialized view back in its canonical order.
func (db *SalesDB) GetCohortRecords(ctx context.Context) ([]*salesmodels.CohortRecord, error) {
	query := fmt.Sprintf(`
		SELECT customer_key, order_date, net_revenue, orders,
		       given_name, surname, country, age,
		       first_purchase_date, cohort_year
		FROM "%s".cohort_records FINAL
		ORDER BY customer_key, order_date
	`, db.Name)

	var rows []*salesmodels.CohortRecord
	if err := db.SelectFinal(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("get cohort records: %w", err)
	}
	return rows, nil
}

// MaxOrderDate returns the most recent order date in the snapshot, or nil
// when the sales table is empty.
func (db *SalesDB) MaxOrderDate(ctx context.Context) (*time.Time, error) {
	query := fmt.Sprintf(`SELECT max(order_date) AS max_date, count() AS total FROM "%s".sales`, db.Name)

	var maxDate time.Time
	var total uint64
	if err := db.QueryRow(ctx, query).Scan(&maxDate, &total); err != nil {
		return nil, fmt.Errorf("max order date: %w", err)
	}
	if total == 0 {
		return nil, nil
	}
	return &maxDate, nil
}
