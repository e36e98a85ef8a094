package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"feedback-relay-go/internal/model"
)

// CreateFeedback records feedback by hand, optionally linked to a request
func (h *Handlers) CreateFeedback(c *gin.Context) {
	var req FeedbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "validation_error", err.Error())
		return
	}

	ctx := c.Request.Context()
	if _, err := h.repo.GetProduct(ctx, req.ProductID); err != nil {
		writeRepoError(c, err, "Product")
		return
	}
	if req.FeatureRequestID != nil {
		fr, err := h.repo.GetFeatureRequest(ctx, *req.FeatureRequestID)
		if err != nil {
			writeRepoError(c, err, "Feature request")
			return
		}
		if fr.ProductID != req.ProductID {
			writeError(c, http.StatusNotFound, "not_found", "Feature request not found")
			return
		}
	}

	fb := model.Feedback{
		ProductID:        req.ProductID,
		FeatureRequestID: req.FeatureRequestID,
		Content:          strings.TrimSpace(req.Content),
		Sentiment:        model.ParseSentiment(strings.ToLower(string(req.Sentiment))),
		SenderEmail:      req.SenderEmail,
		SenderName:       req.SenderName,
	}
	if err := h.repo.CreateFeedback(ctx, &fb); err != nil {
		writeRepoError(c, err, "Feedback")
		return
	}
	c.JSON(http.StatusCreated, fb)
}

// GetFeedback returns one piece of feedback
func (h *Handlers) GetFeedback(c *gin.Context) {
	fb, err := h.repo.GetFeedback(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeRepoError(c, err, "Feedback")
		return
	}
	c.JSON(http.StatusOK, fb)
}

// RelinkFeedback moves feedback to another request of the same product
func (h *Handlers) RelinkFeedback(c *gin.Context) {
	var req RelinkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "validation_error", err.Error())
		return
	}

	fb, err := h.repo.RelinkFeedback(c.Request.Context(), c.Param("id"), req.FeatureRequestID)
	if err != nil {
		writeRepoError(c, err, "Feedback or feature request")
		return
	}
	c.JSON(http.StatusOK, fb)
}

// DeleteFeedback removes feedback and lowers its request's count
func (h *Handlers) DeleteFeedback(c *gin.Context) {
	if err := h.repo.DeleteFeedback(c.Request.Context(), c.Param("id")); err != nil {
		writeRepoError(c, err, "Feedback")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Feedback deleted successfully"})
}

// GetFeatureRequest returns one feature request
func (h *Handlers) GetFeatureRequest(c *gin.Context) {
	fr, err := h.repo.GetFeatureRequest(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeRepoError(c, err, "Feature request")
		return
	}
	c.JSON(http.StatusOK, fr)
}

// DeleteFeatureRequest removes a request together with its feedback
func (h *Handlers) DeleteFeatureRequest(c *gin.Context) {
	if err := h.repo.DeleteFeatureRequest(c.Request.Context(), c.Param("id")); err != nil {
		writeRepoError(c, err, "Feature request")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Feature request deleted successfully"})
}
