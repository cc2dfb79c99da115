package source

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	salesmodels "github.com/mxlvintam/cohortx/pkg/db/models/sales"
)

var (
	salesColumns    = []string{"customer_key", "order_key", "order_date", "quantity", "net_price", "exchange_rate"}
	customerColumns = []string{"customer_key", "given_name", "surname", "country", "age"}
)

// CSVSource reads sales and customer rows from two CSV files. Both files
// must carry a header row; column order is free but every expected column
// must be present. Malformed cells abort the load with file and row context
// rather than being skipped.
type CSVSource struct {
	Logger        *zap.Logger
	SalesPath     string
	CustomersPath string
}

// NewCSVSource returns a source backed by the given sales and customers files.
func NewCSVSource(logger *zap.Logger, salesPath, customersPath string) *CSVSource {
	return &CSVSource{
		Logger:        logger,
		SalesPath:     salesPath,
		CustomersPath: customersPath,
	}
}

// Name implements Source.
func (s *CSVSource) Name() string { return "csv" }

// Close implements Source. CSV files are opened per fetch, so there is
// nothing to release.
func (s *CSVSource) Close() error { return nil }

// FetchSales parses the sales file into sale rows.
func (s *CSVSource) FetchSales(ctx context.Context) ([]*salesmodels.Sale, error) {
	var sales []*salesmodels.Sale
	err := readCSV(s.SalesPath, salesColumns, func(row int, get func(string) string) error {
		if err := ctx.Err(); err != nil {
			return err
		}

		customerKey, err := strconv.ParseUint(get("customer_key"), 10, 64)
		if err != nil {
			return fmt.Errorf("customer_key: %w", err)
		}
		orderKey := get("order_key")
		if orderKey == "" {
			return errors.New("order_key: empty value")
		}
		orderDate, err := time.Parse("2006-01-02", get("order_date"))
		if err != nil {
			return fmt.Errorf("order_date: %w", err)
		}
		quantity, err := strconv.ParseInt(get("quantity"), 10, 64)
		if err != nil {
			return fmt.Errorf("quantity: %w", err)
		}
		netPrice, err := decimal.NewFromString(get("net_price"))
		if err != nil {
			return fmt.Errorf("net_price: %w", err)
		}
		exchangeRate, err := decimal.NewFromString(get("exchange_rate"))
		if err != nil {
			return fmt.Errorf("exchange_rate: %w", err)
		}

		sales = append(sales, &salesmodels.Sale{
			CustomerKey:  customerKey,
			OrderKey:     orderKey,
			OrderDate:    dateOnly(orderDate),
			Quantity:     quantity,
			NetPrice:     netPrice,
			ExchangeRate: exchangeRate,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.Logger.Info("Loaded sales from CSV",
		zap.String("path", s.SalesPath),
		zap.Int("rows", len(sales)))
	return sales, nil
}

// FetchCustomers parses the customers file into customer rows.
func (s *CSVSource) FetchCustomers(ctx context.Context) ([]*salesmodels.Customer, error) {
	var customers []*salesmodels.Customer
	err := readCSV(s.CustomersPath, customerColumns, func(row int, get func(string) string) error {
		if err := ctx.Err(); err != nil {
			return err
		}

		customerKey, err := strconv.ParseUint(get("customer_key"), 10, 64)
		if err != nil {
			return fmt.Errorf("customer_key: %w", err)
		}
		age, err := strconv.ParseUint(get("age"), 10, 8)
		if err != nil {
			return fmt.Errorf("age: %w", err)
		}

		customers = append(customers, &salesmodels.Customer{
			CustomerKey: customerKey,
			GivenName:   get("given_name"),
			Surname:     get("surname"),
			Country:     get("country"),
			Age:         uint8(age),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.Logger.Info("Loaded customers from CSV",
		zap.String("path", s.CustomersPath),
		zap.Int("rows", len(customers)))
	return customers, nil
}

// readCSV streams a CSV file row by row. The handler receives the 1-based
// data row number and an accessor resolving expected column names to cell
// values. Any handler error is wrapped with the file path and row number.
func readCSV(path string, columns []string, handle func(row int, get func(string) string) error) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return fmt.Errorf("read header of %s: %w", path, err)
	}

	index := make(map[string]int, len(header))
	for i, name := range header {
		index[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, col := range columns {
		if _, ok := index[col]; !ok {
			return fmt.Errorf("%s: missing column %q", path, col)
		}
	}

	for row := 1; ; row++ {
		record, err := reader.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("%s row %d: %w", path, row, err)
		}

		get := func(col string) string {
			i := index[col]
			if i >= len(record) {
				return ""
			}
			return strings.TrimSpace(record[i])
		}
		if err := handle(row, get); err != nil {
			return fmt.Errorf("%s row %d: %w", path, row, err)
		}
	}
}
