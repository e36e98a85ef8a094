package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// GetMessages returns the processed messages of a product, newest first
func (h *Handlers) GetMessages(c *gin.Context) {
	page, limit := pageParams(c)

	messages, total, err := h.repo.ListProcessedMessages(c.Request.Context(), c.Param("id"), page, limit)
	if err != nil {
		writeRepoError(c, err, "Messages")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"messages":   messages,
		"pagination": Pagination{Page: page, Limit: limit, Total: total},
	})
}

// GetMessage returns one processed message audit row
func (h *Handlers) GetMessage(c *gin.Context) {
	msg, err := h.repo.GetProcessedMessage(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeRepoError(c, err, "Message")
		return
	}
	c.JSON(http.StatusOK, msg)
}

// DeleteMessage forgets a processed message so it can be ingested again.
// Feedback and requests derived from it are kept.
func (h *Handlers) DeleteMessage(c *gin.Context) {
	if err := h.repo.DeleteProcessedMessage(c.Request.Context(), c.Param("id")); err != nil {
		writeRepoError(c, err, "Message")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Message deleted successfully"})
}
