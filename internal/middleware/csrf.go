package middleware

import (
	"encoding/base64"
	"net/http"

	"github.com/go-authgate/qrgate/internal/templates"
	"github.com/go-authgate/qrgate/internal/util"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
)

const (
	csrfTokenKey    = "csrf_token"
	csrfFormField   = "csrf_token"
	csrfHeaderField = "X-CSRF-Token"
)

// CSRFMiddleware provides CSRF protection for state-changing operations
func CSRFMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		session := sessions.Default(c)

		// Generate token if not exists
		token, _ := session.Get(csrfTokenKey).(string)
		if token == "" {
			var err error
			token, err = generateCSRFToken()
			if err == nil {
				session.Set(csrfTokenKey, token)
				err = session.Save()
			}
			if err != nil {
				_ = c.Error(err)
				templates.RenderTempl(c, http.StatusInternalServerError,
					templates.ErrorPage(templates.ErrorPageProps{
						Error: "Could not start a session. Please try again.",
					}))
				c.Abort()
				return
			}
		}

		// Make token available to templates
		c.Set(csrfTokenKey, token)

		if c.Request.Method == http.MethodPost ||
			c.Request.Method == http.MethodPut ||
			c.Request.Method == http.MethodDelete ||
			c.Request.Method == http.MethodPatch {
			submittedToken := c.PostForm(csrfFormField)
			if submittedToken == "" {
				submittedToken = c.GetHeader(csrfHeaderField)
			}

			if submittedToken == "" || !util.ConstantTimeEqual(submittedToken, token) {
				templates.RenderTempl(c, http.StatusForbidden,
					templates.ErrorPage(templates.ErrorPageProps{
						Error: "CSRF token validation failed. Please refresh the page and try again.",
					}))
				c.Abort()
				return
			}
		}

		c.Next()
	}
}

func generateCSRFToken() (string, error) {
	b, err := util.CryptoRandomBytes(32)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(b), nil
}

// GetCSRFToken retrieves the CSRF token from the context
func GetCSRFToken(c *gin.Context) string {
	if token, exists := c.Get(csrfTokenKey); exists {
		if tokenStr, ok := token.(string); ok {
			return tokenStr
		}
	}
	return ""
}
