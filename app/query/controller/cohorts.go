package controller

import (
	"net/http"

	"go.uber.org/zap"

	reportmodels "github.com/mxlvintam/cohortx/pkg/db/models/reports"
)

const cacheKeyCohorts = "reports:cohorts"

// HandleCohorts returns the acquisition cohort summary in year order.
func (c *Controller) HandleCohorts(w http.ResponseWriter, r *http.Request) {
	if payload, ok := c.cached(r, cacheKeyCohorts); ok {
		writeRaw(w, http.StatusOK, payload)
		return
	}

	rows, err := c.App.ReportsDB.GetCohortSummary(r.Context())
	if err != nil {
		c.App.Logger.Error("Failed to query cohort summary", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "query failed")
		return
	}

	c.respond(w, r, cacheKeyCohorts, dataResponse[*reportmodels.CohortSummary]{Data: rows})
}
