package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"feedback-relay-go/internal/model"
)

// CreateProduct creates a product
func (h *Handlers) CreateProduct(c *gin.Context) {
	var req ProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "validation_error", err.Error())
		return
	}

	product := model.Product{
		Name:              strings.TrimSpace(req.Name),
		AutoDraftsEnabled: req.AutoDraftsEnabled,
	}
	if product.Name == "" {
		writeError(c, http.StatusBadRequest, "validation_error", "name is required")
		return
	}

	if err := h.repo.CreateProduct(c.Request.Context(), &product); err != nil {
		writeRepoError(c, err, "Product")
		return
	}
	c.JSON(http.StatusCreated, product)
}

// GetProduct returns a specific product
func (h *Handlers) GetProduct(c *gin.Context) {
	product, err := h.repo.GetProduct(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeRepoError(c, err, "Product")
		return
	}
	c.JSON(http.StatusOK, product)
}
