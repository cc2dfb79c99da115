package controller

import (
	"net/http"

	"go.uber.org/zap"

	reportmodels "github.com/mxlvintam/cohortx/pkg/db/models/reports"
)

const cacheKeyRetention = "reports:retention"

// HandleRetention returns the retention summary ordered by cohort, then status.
func (c *Controller) HandleRetention(w http.ResponseWriter, r *http.Request) {
	if payload, ok := c.cached(r, cacheKeyRetention); ok {
		writeRaw(w, http.StatusOK, payload)
		return
	}

	rows, err := c.App.ReportsDB.GetRetentionSummary(r.Context())
	if err != nil {
		c.App.Logger.Error("Failed to query retention summary", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "query failed")
		return
	}

	c.respond(w, r, cacheKeyRetention, dataResponse[*reportmodels.RetentionSummary]{Data: rows})
}
