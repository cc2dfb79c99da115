package db

import (
	"context"

	"github.com/mxlvintam/cohortx/pkg/db/clickhouse"
	"github.com/mxlvintam/cohortx/pkg/retry"
	"github.com/mxlvintam/cohortx/pkg/utils"
	"go.uber.org/zap"
)

// Default database names; override with SALES_DB and REPORTS_DB.
const (
	DefaultSalesDBName   = "cohortx"
	DefaultReportsDBName = "cohortx_reports"
)

// NewStores connects to the warehouse and returns the sales and reports
// stores, each on its own connection pool sized for the component. Both
// databases and their tables are created if missing.
func NewStores(ctx context.Context, logger *zap.Logger, retryCfg retry.Config, component string) (*SalesDB, *ReportsDB, error) {
	salesName := utils.Env("SALES_DB", DefaultSalesDBName)
	reportsName := utils.Env("REPORTS_DB", DefaultReportsDBName)

	salesDb, err := NewSalesDB(ctx, logger, retryCfg, component, salesName)
	if err != nil {
		return nil, nil, err
	}

	reportsDb, err := NewReportsDB(ctx, logger, retryCfg, component, reportsName)
	if err != nil {
		_ = salesDb.Close()
		return nil, nil, err
	}

	return salesDb, reportsDb, nil
}
