package handlers

import (
	"errors"
	"net/http"

	"github.com/go-authgate/qrgate/internal/middleware"
	"github.com/go-authgate/qrgate/internal/services"
	"github.com/go-authgate/qrgate/internal/templates"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type GenerateHandler struct {
	issuer *services.IssuerService
	log    *zap.Logger
}

func NewGenerateHandler(issuer *services.IssuerService, log *zap.Logger) *GenerateHandler {
	return &GenerateHandler{issuer: issuer, log: log}
}

// ShowGeneratePage handles GET /generate
func (h *GenerateHandler) ShowGeneratePage(c *gin.Context) {
	templates.RenderTempl(c, http.StatusOK, templates.GeneratePage(templates.GeneratePageProps{
		BaseProps: templates.BaseProps{CSRFToken: middleware.GetCSRFToken(c)},
	}))
}

// Generate handles POST /generate and streams the new QR code as a PNG attachment
func (h *GenerateHandler) Generate(c *gin.Context) {
	fileLink := c.PostForm("file_link")

	issued, err := h.issuer.Issue(c.Request.Context(), fileLink)
	if err != nil {
		if services.IsValidationError(err) {
			templates.RenderTempl(c, http.StatusBadRequest,
				templates.GeneratePage(templates.GeneratePageProps{
					BaseProps: templates.BaseProps{CSRFToken: middleware.GetCSRFToken(c)},
					FileLink:  fileLink,
					Error:     err.Error(),
				}))
			return
		}
		renderInternalError(c, h.log, "failed to issue QR code", err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="`+issued.FileName+`"`)
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, "image/png", issued.PNG)
}

// DownloadQR handles GET /qr/:token
func (h *GenerateHandler) DownloadQR(c *gin.Context) {
	png, err := h.issuer.Artifact(c.Request.Context(), c.Param("token"))
	if err != nil {
		if errors.Is(err, services.ErrRequestNotFound) {
			c.String(http.StatusNotFound, invalidTokenText)
			return
		}
		renderInternalError(c, h.log, "failed to load QR code", err)
		return
	}

	c.Header("Content-Disposition", `inline; filename="qr-`+c.Param("token")+`.png"`)
	c.Data(http.StatusOK, "image/png", png)
}
