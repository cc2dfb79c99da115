package source

import (
	"context"
	"time"

	salesmodels "github.com/mxlvintam/cohortx/pkg/db/models/sales"
)

// Source supplies the raw sales and customer rows the reporting pipeline
// consumes. Implementations load from CSV files, a PostgreSQL database, or
// the warehouse itself.
type Source interface {
	// FetchSales returns every sale row known to the source.
	FetchSales(ctx context.Context) ([]*salesmodels.Sale, error)

	// FetchCustomers returns every customer row known to the source.
	FetchCustomers(ctx context.Context) ([]*salesmodels.Customer, error)

	// Name identifies the source in logs and run records.
	Name() string

	// Close releases any resources held by the source.
	Close() error
}

// dateOnly truncates a timestamp to its calendar day in UTC. Order dates
// carry date precision only, so every adapter normalizes before handing
// rows to the pipeline.
func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
