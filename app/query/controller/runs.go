package controller

import (
	"net/http"
	"strconv"

	"go.uber.org/zap"

	reportmodels "github.com/mxlvintam/cohortx/pkg/db/models/reports"
)

const (
	defaultRunLimit = 20
	maxRunLimit     = 100
)

// HandleRuns returns the most recent report runs, newest first. Run history
// is never cached; operators read it to watch a run land.
func (c *Controller) HandleRuns(w http.ResponseWriter, r *http.Request) {
	limit := defaultRunLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		if n > maxRunLimit {
			n = maxRunLimit
		}
		limit = n
	}

	rows, err := c.App.ReportsDB.ListRuns(r.Context(), limit)
	if err != nil {
		c.App.Logger.Error("Failed to list report runs", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "query failed")
		return
	}

	writeJSON(w, http.StatusOK, dataResponse[*reportmodels.Run]{Data: rows})
}
