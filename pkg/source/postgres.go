package source

import (
	"context"
	"fmt"
	"time"

	salesmodels "github.com/mxlvintam/cohortx/pkg/db/models/sales"
	"github.com/mxlvintam/cohortx/pkg/db/postgres"
	"github.com/mxlvintam/cohortx/pkg/retry"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// PostgresSource reads sales and customer rows from an operational
// PostgreSQL database. Monetary columns are selected as text and parsed
// into decimals so no precision is lost in transit.
type PostgresSource struct {
	Logger *zap.Logger
	db     postgres.Client
}

// NewPostgresSource connects to PostgreSQL and verifies the connection.
// An empty dsn falls back to the POSTGRES_URL environment variable.
func NewPostgresSource(ctx context.Context, logger *zap.Logger, dsn string) (*PostgresSource, error) {
	client, err := postgres.New(ctx, logger, retry.CLIConfig(), dsn)
	if err != nil {
		return nil, err
	}
	return &PostgresSource{Logger: logger, db: client}, nil
}

// Name implements Source.
func (s *PostgresSource) Name() string { return "postgres" }

// Close releases the connection pool.
func (s *PostgresSource) Close() error {
	s.db.Close()
	return nil
}

// FetchSales implements Source.
func (s *PostgresSource) FetchSales(ctx context.Context) ([]*salesmodels.Sale, error) {
	query := `
		SELECT customer_key, order_key, order_date, quantity,
		       net_price::text, exchange_rate::text
		FROM sales
		ORDER BY customer_key, order_date, order_key`

	rows, err := s.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query sales: %w", err)
	}
	defer rows.Close()

	var sales []*salesmodels.Sale
	for rows.Next() {
		var (
			customerKey  int64
			orderKey     string
			orderDate    time.Time
			quantity     int64
			netPrice     string
			exchangeRate string
		)
		if err := rows.Scan(&customerKey, &orderKey, &orderDate, &quantity, &netPrice, &exchangeRate); err != nil {
			return nil, fmt.Errorf("failed to scan sale row: %w", err)
		}

		price, err := decimal.NewFromString(netPrice)
		if err != nil {
			return nil, fmt.Errorf("sale %d/%s net_price: %w", customerKey, orderKey, err)
		}
		rate, err := decimal.NewFromString(exchangeRate)
		if err != nil {
			return nil, fmt.Errorf("sale %d/%s exchange_rate: %w", customerKey, orderKey, err)
		}

		sales = append(sales, &salesmodels.Sale{
			CustomerKey:  uint64(customerKey),
			OrderKey:     orderKey,
			OrderDate:    dateOnly(orderDate),
			Quantity:     quantity,
			NetPrice:     price,
			ExchangeRate: rate,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read sales rows: %w", err)
	}

	s.Logger.Info("Loaded sales from PostgreSQL", zap.Int("rows", len(sales)))
	return sales, nil
}

// FetchCustomers implements Source.
func (s *PostgresSource) FetchCustomers(ctx context.Context) ([]*salesmodels.Customer, error) {
	query := `
		SELECT customer_key, given_name, surname, country, age
		FROM customers
		ORDER BY customer_key`

	rows, err := s.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query customers: %w", err)
	}
	defer rows.Close()

	var customers []*salesmodels.Customer
	for rows.Next() {
		var (
			customerKey int64
			givenName   string
			surname     string
			country     string
			age         int16
		)
		if err := rows.Scan(&customerKey, &givenName, &surname, &country, &age); err != nil {
			return nil, fmt.Errorf("failed to scan customer row: %w", err)
		}

		customers = append(customers, &salesmodels.Customer{
			CustomerKey: uint64(customerKey),
			GivenName:   givenName,
			Surname:     surname,
			Country:     country,
			Age:         uint8(age),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read customer rows: %w", err)
	}

	s.Logger.Info("Loaded customers from PostgreSQL", zap.Int("rows", len(customers)))
	return customers, nil
}
