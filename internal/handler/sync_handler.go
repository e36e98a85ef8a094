package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"feedback-relay-go/internal/connector"
	"feedback-relay-go/internal/model"
	"feedback-relay-go/internal/service/pipeline"
)

// SyncConnection runs an incremental sync of one connection
func (h *Handlers) SyncConnection(c *gin.Context) {
	result, err := h.syncer.SyncConnection(c.Request.Context(), c.Param("id"), model.TriggerManual, "")
	if err != nil {
		writeSyncError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// Backfill processes the most recent messages of one connection
func (h *Handlers) Backfill(c *gin.Context) {
	limit := h.backfillLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > 100 {
			writeError(c, http.StatusBadRequest, "invalid_limit", "limit must be between 1 and 100")
			return
		}
		limit = n
	}

	result, err := h.syncer.Backfill(c.Request.Context(), c.Param("id"), limit)
	if err != nil {
		writeSyncError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// StartWatch starts or renews the push watch of a mailbox connection
func (h *Handlers) StartWatch(c *gin.Context) {
	result, err := h.syncer.StartWatch(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, pipeline.ErrWatchUnsupported) {
			writeError(c, http.StatusBadRequest, "watch_unsupported", "Connection channel does not support push notifications")
			return
		}
		writeSyncError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"history_id": result.Position,
		"expiration": result.Expiration,
	})
}

func writeSyncError(c *gin.Context, err error) {
	var cerr *connector.Error
	switch {
	case errors.Is(err, pipeline.ErrNoActiveConnection):
		writeError(c, http.StatusNotFound, "no_active_connection", "No active connection found")
	case errors.Is(err, pipeline.ErrSyncInProgress):
		writeError(c, http.StatusConflict, "sync_in_progress", "A sync for this connection is already running")
	case errors.As(err, &cerr):
		logrus.WithFields(logrus.Fields{
			"connection_id": c.Param("id"),
			"channel":       cerr.Channel,
			"kind":          cerr.Kind,
		}).WithError(err).Error("Provider request failed")
		writeError(c, http.StatusBadGateway, "provider_error", "Failed to reach "+string(cerr.Channel)+": "+string(cerr.Kind))
	default:
		logrus.WithField("connection_id", c.Param("id")).WithError(err).Error("Sync failed")
		writeError(c, http.StatusInternalServerError, "sync_error", "Sync failed, see server logs")
	}
}
