package handlers

import (
	"net/http"

	"github.com/go-authgate/qrgate/internal/templates"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	invalidTokenText   = "Invalid or expired token."
	deniedText         = "Your access request was denied."
	conflictText       = "This request was changed by another action. Please reload the page and try again."
	genericFailureText = "Something went wrong. Please try again later."
)

// renderInvalidToken answers unknown tokens with a plain message
func renderInvalidToken(c *gin.Context) {
	c.String(http.StatusOK, invalidTokenText)
}

// renderInternalError logs err and shows a page without internal details
func renderInternalError(c *gin.Context, log *zap.Logger, msg string, err error) {
	log.Error(msg,
		zap.String("path", c.FullPath()),
		zap.String("client_ip", c.ClientIP()),
		zap.Error(err),
	)
	_ = c.Error(err)
	templates.RenderTempl(c, http.StatusInternalServerError,
		templates.ErrorPage(templates.ErrorPageProps{Error: genericFailureText}))
}

func renderDenied(c *gin.Context) {
	templates.RenderTempl(c, http.StatusOK, templates.MessagePage(templates.MessagePageProps{
		Title:   "Access Denied",
		Message: deniedText,
	}))
}
