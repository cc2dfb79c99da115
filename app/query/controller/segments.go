package controller

import (
	"net/http"

	"go.uber.org/zap"

	reportmodels "github.com/mxlvintam/cohortx/pkg/db/models/reports"
)

const cacheKeySegments = "reports:segments"

// HandleSegments returns the LTV segment summary, High-Value first.
func (c *Controller) HandleSegments(w http.ResponseWriter, r *http.Request) {
	if payload, ok := c.cached(r, cacheKeySegments); ok {
		writeRaw(w, http.StatusOK, payload)
		return
	}

	rows, err := c.App.ReportsDB.GetSegmentSummary(r.Context())
	if err != nil {
		c.App.Logger.Error("Failed to query segment summary", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "query failed")
		return
	}

	c.respond(w, r, cacheKeySegments, dataResponse[*reportmodels.SegmentSummary]{Data: rows})
}
