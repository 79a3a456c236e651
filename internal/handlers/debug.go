package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-authgate/qrgate/internal/models"
	"github.com/go-authgate/qrgate/internal/services"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type DebugHandler struct {
	access *services.AccessService
	log    *zap.Logger
}

func NewDebugHandler(access *services.AccessService, log *zap.Logger) *DebugHandler {
	return &DebugHandler{access: access, log: log}
}

// ListRequests handles GET /debug/requests
func (h *DebugHandler) ListRequests(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "50"))

	status := c.Query("status")
	if status != "" && !models.Status(status).Valid() {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": "status must be one of: new, pending, approved, denied",
		})
		return
	}

	requests, pagination, err := h.access.List(c.Request.Context(), page, pageSize, status)
	if err != nil {
		h.log.Error("failed to list access requests", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "server_error",
			"message": "Failed to list access requests",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"requests":   requests,
		"pagination": pagination,
	})
}
