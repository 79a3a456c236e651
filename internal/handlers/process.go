package handlers

import (
	"errors"
	"net/http"

	"github.com/go-authgate/qrgate/internal/services"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type ProcessHandler struct {
	access *services.AccessService
	log    *zap.Logger
}

func NewProcessHandler(access *services.AccessService, log *zap.Logger) *ProcessHandler {
	return &ProcessHandler{access: access, log: log}
}

// Process handles GET /process/:action/:token?code=, the owner's emailed decision link
func (h *ProcessHandler) Process(c *gin.Context) {
	decision, err := h.access.Decide(
		c.Request.Context(),
		c.Param("action"),
		c.Param("token"),
		c.Query("code"),
	)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrUnknownAction):
			c.String(http.StatusBadRequest, "Unknown action.")
		case errors.Is(err, services.ErrRequestNotFound):
			renderInvalidToken(c)
		case errors.Is(err, services.ErrActionLinkInvalid):
			c.String(http.StatusForbidden, "This link is invalid, expired or has already been used.")
		case errors.Is(err, services.ErrStatusConflict):
			c.String(http.StatusConflict, "This request has already been decided.")
		default:
			h.log.Error("failed to process decision",
				zap.String("action", c.Param("action")),
				zap.String("token", c.Param("token")),
				zap.Error(err),
			)
			c.String(http.StatusInternalServerError, genericFailureText)
		}
		return
	}

	c.String(http.StatusOK, decision.Message)
}
