package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

// GetSyncRuns returns sync runs with pagination
func (h *Handlers) GetSyncRuns(c *gin.Context) {
	page, limit := pageParams(c)

	runs, total, err := h.repo.ListSyncRuns(c.Request.Context(), page, limit)
	if err != nil {
		writeRepoError(c, err, "Sync runs")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"sync_runs":  runs,
		"pagination": Pagination{Page: page, Limit: limit, Total: total},
	})
}

// GetSyncRun returns a specific sync run
func (h *Handlers) GetSyncRun(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		writeError(c, http.StatusBadRequest, "invalid_id", "Invalid sync run ID")
		return
	}

	run, err := h.repo.GetSyncRun(c.Request.Context(), uint(id))
	if err != nil {
		writeRepoError(c, err, "Sync run")
		return
	}
	c.JSON(http.StatusOK, run)
}
