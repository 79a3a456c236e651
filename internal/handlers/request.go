package handlers

import (
	"errors"
	"net/http"
	"net/url"

	"github.com/go-authgate/qrgate/internal/middleware"
	"github.com/go-authgate/qrgate/internal/services"
	"github.com/go-authgate/qrgate/internal/templates"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type RequestHandler struct {
	access *services.AccessService
	log    *zap.Logger
}

func NewRequestHandler(access *services.AccessService, log *zap.Logger) *RequestHandler {
	return &RequestHandler{access: access, log: log}
}

func (h *RequestHandler) renderForm(
	c *gin.Context,
	status int,
	token, email string,
	mode templates.RequestFormMode,
	errMsg string,
) {
	templates.RenderTempl(c, status, templates.RequestPage(templates.RequestPageProps{
		BaseProps: templates.BaseProps{CSRFToken: middleware.GetCSRFToken(c)},
		Token:     token,
		Email:     email,
		Mode:      mode,
		Error:     errMsg,
	}))
}

// formMode picks the form variant matching the request's current state
func (h *RequestHandler) formMode(c *gin.Context, token string) templates.RequestFormMode {
	view, err := h.access.View(c.Request.Context(), token)
	if err != nil {
		return templates.ModeSubmit
	}
	switch view.Kind {
	case services.ViewVerify, services.ViewRedirect:
		return templates.ModeVerify
	case services.ViewExpired:
		return templates.ModeExpired
	}
	return templates.ModeSubmit
}

// ShowRequest handles GET /request/:token
func (h *RequestHandler) ShowRequest(c *gin.Context) {
	token := c.Param("token")

	view, err := h.access.View(c.Request.Context(), token)
	if err != nil {
		if errors.Is(err, services.ErrRequestNotFound) {
			renderInvalidToken(c)
			return
		}
		renderInternalError(c, h.log, "failed to load access request", err)
		return
	}

	switch view.Kind {
	case services.ViewDenied:
		renderDenied(c)
	case services.ViewRedirect:
		c.Redirect(http.StatusFound, view.Request.FileLink)
	case services.ViewVerify:
		h.renderForm(c, http.StatusOK, token, "", templates.ModeVerify, "")
	case services.ViewExpired:
		h.renderForm(c, http.StatusOK, token, "", templates.ModeExpired, "")
	default:
		h.renderForm(c, http.StatusOK, token, "", templates.ModeSubmit, "")
	}
}

// SubmitRequest handles POST /request/:token
func (h *RequestHandler) SubmitRequest(c *gin.Context) {
	h.submit(c, c.Param("token"))
}

func (h *RequestHandler) submit(c *gin.Context, token string) {
	email := c.PostForm("gmail")

	result, err := h.access.Submit(c.Request.Context(), token, email)
	if err != nil {
		h.handleSubmitError(c, token, email, err)
		return
	}

	if result.Outcome == services.OutcomeRedirect {
		c.Redirect(http.StatusFound, result.FileLink)
		return
	}
	templates.RenderTempl(c, http.StatusOK, templates.SuccessPage())
}

// Reopen handles POST /request/:token/reopen
func (h *RequestHandler) Reopen(c *gin.Context) {
	token := c.Param("token")
	email := c.PostForm("gmail")

	if _, err := h.access.Reopen(c.Request.Context(), token, email); err != nil {
		h.handleSubmitError(c, token, email, err)
		return
	}
	templates.RenderTempl(c, http.StatusOK, templates.SuccessPage())
}

func (h *RequestHandler) handleSubmitError(c *gin.Context, token, email string, err error) {
	switch {
	case errors.Is(err, services.ErrRequestNotFound):
		renderInvalidToken(c)
	case services.IsValidationError(err):
		h.renderForm(c, http.StatusBadRequest, token, email, h.formMode(c, token), err.Error())
	case errors.Is(err, services.ErrApprovalExpired):
		h.renderForm(c, http.StatusOK, token, email, templates.ModeExpired, "")
	case errors.Is(err, services.ErrRequestDenied):
		renderDenied(c)
	case errors.Is(err, services.ErrStatusConflict):
		c.String(http.StatusConflict, conflictText)
	default:
		renderInternalError(c, h.log, "failed to submit access request", err)
	}
}

// ShowIndex handles GET /. A token query parameter forwards to the request page.
func (h *RequestHandler) ShowIndex(c *gin.Context) {
	if token := c.Query("token"); token != "" {
		c.Redirect(http.StatusFound, "/request/"+url.PathEscape(token))
		return
	}
	templates.RenderTempl(c, http.StatusOK, templates.TokenlessPage(templates.TokenlessPageProps{
		BaseProps: templates.BaseProps{CSRFToken: middleware.GetCSRFToken(c)},
	}))
}

// SubmitIndex handles POST /
func (h *RequestHandler) SubmitIndex(c *gin.Context) {
	if token := c.Query("token"); token != "" {
		h.submit(c, token)
		return
	}

	email := c.PostForm("gmail")
	result, err := h.access.SubmitNew(c.Request.Context(), email)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrTokenlessDisabled):
			templates.RenderTempl(c, http.StatusNotFound, templates.MessagePage(templates.MessagePageProps{
				Title:   "Not Available",
				Message: "Please scan a QR code to request access.",
			}))
		case services.IsValidationError(err):
			templates.RenderTempl(c, http.StatusBadRequest, templates.TokenlessPage(templates.TokenlessPageProps{
				BaseProps: templates.BaseProps{CSRFToken: middleware.GetCSRFToken(c)},
				Email:     email,
				Error:     err.Error(),
			}))
		default:
			renderInternalError(c, h.log, "failed to submit tokenless request", err)
		}
		return
	}

	if result.Outcome == services.OutcomeAlreadyApproved {
		templates.RenderTempl(c, http.StatusOK, templates.AlreadyApprovedPage())
		return
	}
	templates.RenderTempl(c, http.StatusOK, templates.SuccessPage())
}
