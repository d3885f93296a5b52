package middleware

import (
	"campus-marketplace-backend/internal/delivery/http/response"
	"campus-marketplace-backend/pkg/security"
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

const (
	// CSRFTokenCookieName is the name of the cookie that stores the CSRF token
	CSRFTokenCookieName = "csrf_token"
	// CSRFTokenHeaderName is the name of the header that must contain the CSRF token
	CSRFTokenHeaderName = "X-CSRF-Token"
	// 32 bytes = 64 hex chars
	CSRFTokenLength = 32
	CSRFTokenExpiry = 24 * time.Hour
)

// Sign-in endpoints run before the browser holds a token cookie.
var csrfExemptPaths = map[string]bool{
	"/v1/auth/login":    true,
	"/v1/auth/register": true,
	"/v1/auth/google":   true,
	"/v1/auth/resend":   true,
	"/v1/health":        true,
}

func generateCSRFToken() (string, error) {
	bytes := make([]byte, CSRFTokenLength)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes), nil
}

// CSRFMiddleware implements the double-submit cookie pattern. Every response
// carries a readable csrf_token cookie; mutating requests authenticated by
// cookie must echo it in X-CSRF-Token. Requests with a bearer header are not
// subject to the check since browsers never attach that header on their own.
func CSRFMiddleware(secure bool, audit *security.SecurityLogger) gin.HandlerFunc {
	if audit == nil {
		audit = security.NopLogger()
	}

	return func(c *gin.Context) {
		csrfCookie, err := c.Cookie(CSRFTokenCookieName)
		if err != nil || csrfCookie == "" {
			newToken, err := generateCSRFToken()
			if err != nil {
				response.Error(c, http.StatusInternalServerError, "Failed to generate security token", nil)
				c.Abort()
				return
			}
			c.SetSameSite(http.SameSiteLaxMode)
			// HttpOnly = false so JS can read it
			c.SetCookie(CSRFTokenCookieName, newToken, int(CSRFTokenExpiry.Seconds()), "/", "", secure, false)
			csrfCookie = newToken
		}

		switch c.Request.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			c.Next()
			return
		}
		if csrfExemptPaths[c.Request.URL.Path] || c.GetHeader("Authorization") != "" {
			c.Next()
			return
		}

		headerToken := c.GetHeader(CSRFTokenHeaderName)
		if headerToken == "" {
			audit.LogCSRFViolation(c.Request.Context(), requestMeta(c), c.Request.URL.Path, "missing")
			response.Error(c, http.StatusForbidden, "Missing CSRF token", nil)
			c.Abort()
			return
		}
		if subtle.ConstantTimeCompare([]byte(headerToken), []byte(csrfCookie)) != 1 {
			audit.LogCSRFViolation(c.Request.Context(), requestMeta(c), c.Request.URL.Path, "mismatch")
			response.Error(c, http.StatusForbidden, "Invalid CSRF token", nil)
			c.Abort()
			return
		}

		c.Next()
	}
}
