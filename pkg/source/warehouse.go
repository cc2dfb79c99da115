package source

import (
	"context"

	"github.com/mxlvintam/cohortx/pkg/db"
	salesmodels "github.com/mxlvintam/cohortx/pkg/db/models/sales"
)

// WarehouseSource reads rows previously staged in the warehouse by the
// load command. The store is owned by the caller, so Close is a no-op.
type WarehouseSource struct {
	store db.SalesStore
}

// NewWarehouseSource wraps an already-connected sales store.
func NewWarehouseSource(store db.SalesStore) *WarehouseSource {
	return &WarehouseSource{store: store}
}

// Name implements Source.
func (s *WarehouseSource) Name() string { return "warehouse" }

// Close implements Source. The underlying store stays open for the caller.
func (s *WarehouseSource) Close() error { return nil }

// FetchSales implements Source.
func (s *WarehouseSource) FetchSales(ctx context.Context) ([]*salesmodels.Sale, error) {
	return s.store.FetchSales(ctx)
}

// FetchCustomers implements Source.
func (s *WarehouseSource) FetchCustomers(ctx context.Context) ([]*salesmodels.Customer, error) {
	return s.store.FetchCustomers(ctx)
}
