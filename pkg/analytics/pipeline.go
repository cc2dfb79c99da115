package analytics

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/alitto/pond/v2"
	reportmodels "github.com/mxlvintam/cohortx/pkg/db/models/reports"
	salesmodels "github.com/mxlvintam/cohortx/pkg/db/models/sales"
	"github.com/mxlvintam/cohortx/pkg/metrics"
	"go.uber.org/zap"
)

// Result bundles the outputs of one full pipeline run.
type Result struct {
	Records   []*salesmodels.CohortRecord
	Segments  []*reportmodels.SegmentSummary
	Cohorts   []*reportmodels.CohortSummary
	Retention []*reportmodels.RetentionSummary
}

// Pipeline runs the cohort view build followed by the three report stages.
// The view build is the only barrier: segmentation, cohort aggregation, and
// retention classification read nothing but the finished view, so they fan
// out over a worker group. Each stage stays internally sequential.
type Pipeline struct {
	Logger *zap.Logger
}

// Run executes the pipeline over an in-memory snapshot of sales and customers.
// Empty input is not an error; every stage yields an empty result set.
func (p *Pipeline) Run(ctx context.Context, sales []*salesmodels.Sale, customers []*salesmodels.Customer) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("pipeline cancelled: %w", err)
	}

	res := &Result{}
	viewStart := time.Now()
	res.Records = BuildCohortView(sales, customers)
	metrics.PipelineStageDuration.WithLabelValues("cohort_view").Observe(time.Since(viewStart).Seconds())
	p.Logger.Info("Cohort view built",
		zap.Int("sales", len(sales)),
		zap.Int("customers", len(customers)),
		zap.Int("records", len(res.Records)),
	)

	pool := pond.NewPool(3)
	defer pool.StopAndWait()
	group := pool.NewGroupContext(ctx)
	groupCtx := group.Context()

	stages := []struct {
		name string
		fn   func()
	}{
		{"segmentation", func() { res.Segments = SegmentCustomers(res.Records) }},
		{"cohorts", func() { res.Cohorts = AggregateCohorts(res.Records) }},
		{"retention", func() { res.Retention = ClassifyRetention(res.Records) }},
	}
	for _, stage := range stages {
		name, run := stage.name, stage.fn
		group.Submit(func() {
			if err := groupCtx.Err(); err != nil {
				return
			}
			start := time.Now()
			run()
			metrics.PipelineStageDuration.WithLabelValues(name).Observe(time.Since(start).Seconds())
		})
	}

	if err := group.Wait(); err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, pond.ErrGroupStopped) {
			return nil, fmt.Errorf("report stages cancelled: %w", err)
		}
		return nil, fmt.Errorf("report stages failed: %w", err)
	}

	p.Logger.Info("Report stages computed",
		zap.Int("segments", len(res.Segments)),
		zap.Int("cohorts", len(res.Cohorts)),
		zap.Int("retention_rows", len(res.Retention)),
	)
	return res, nil
}
