package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"feedback-relay-go/internal/model"
)

// CreateConnection registers a source account for a product
func (h *Handlers) CreateConnection(c *gin.Context) {
	var req ConnectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "validation_error", err.Error())
		return
	}
	if !req.Channel.Valid() {
		writeError(c, http.StatusBadRequest, "validation_error", "unsupported channel "+string(req.Channel))
		return
	}

	ctx := c.Request.Context()
	if _, err := h.repo.GetProduct(ctx, req.ProductID); err != nil {
		writeRepoError(c, err, "Product")
		return
	}

	conn := model.Connection{
		ProductID:         req.ProductID,
		Channel:           req.Channel,
		AccountIdentifier: strings.TrimSpace(req.AccountIdentifier),
		AccessToken:       req.AccessToken,
		RefreshToken:      req.RefreshToken,
		TokenExpiry:       req.TokenExpiry,
		WebhookSecret:     req.WebhookSecret,
		Active:            true,
	}
	if req.Channel == model.ChannelGmail {
		conn.AccountIdentifier = strings.ToLower(conn.AccountIdentifier)
	}
	if req.Active != nil {
		conn.Active = *req.Active
	}

	if err := h.repo.CreateConnection(ctx, &conn); err != nil {
		writeRepoError(c, err, "Connection")
		return
	}

	logrus.WithFields(logrus.Fields{
		"connection_id": conn.ID,
		"channel":       conn.Channel,
		"product_id":    conn.ProductID,
	}).Info("Created connection")
	c.JSON(http.StatusCreated, conn)
}

// GetConnection returns a specific connection
func (h *Handlers) GetConnection(c *gin.Context) {
	conn, err := h.repo.GetConnection(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeRepoError(c, err, "Connection")
		return
	}
	c.JSON(http.StatusOK, conn)
}

// DeleteConnection removes a connection
func (h *Handlers) DeleteConnection(c *gin.Context) {
	if err := h.repo.DeleteConnection(c.Request.Context(), c.Param("id")); err != nil {
		writeRepoError(c, err, "Connection")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Connection deleted successfully"})
}

// EnableConnection resumes syncing a connection
func (h *Handlers) EnableConnection(c *gin.Context) {
	h.setConnectionActive(c, true)
}

// DisableConnection stops syncing a connection
func (h *Handlers) DisableConnection(c *gin.Context) {
	h.setConnectionActive(c, false)
}

func (h *Handlers) setConnectionActive(c *gin.Context, active bool) {
	ctx := c.Request.Context()
	id := c.Param("id")
	if err := h.repo.SetConnectionActive(ctx, id, active); err != nil {
		writeRepoError(c, err, "Connection")
		return
	}
	conn, err := h.repo.GetConnection(ctx, id)
	if err != nil {
		writeRepoError(c, err, "Connection")
		return
	}
	c.JSON(http.StatusOK, conn)
}
