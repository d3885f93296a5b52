package middleware

import (
	"campus-marketplace-backend/internal/delivery/http/response"
	"campus-marketplace-backend/internal/domain"
	"campus-marketplace-backend/internal/session"
	"campus-marketplace-backend/pkg/apperror"
	"campus-marketplace-backend/pkg/security"
	"net/http"

	"github.com/gin-gonic/gin"
)

// RequireRole runs the route gate for the client page path guards, with
// requiredRole "" meaning any signed-in user. A refusal answers 401 when
// nobody is signed in and 403 otherwise, with the gate's decision and
// redirect target in the error body.
func RequireRole(requiredRole domain.Role, path string, audit *security.SecurityLogger) gin.HandlerFunc {
	if audit == nil {
		audit = security.NopLogger()
	}
	return func(c *gin.Context) {
		sess := SessionFrom(c)
		var user *domain.User
		if sess != nil {
			user = sess.CurrentUser()
		}

		d := session.Authorize(user, requiredRole, path)
		if d == session.Allow {
			c.Next()
			return
		}

		detail := response.ErrorDetail{Decision: d.String(), Redirect: d.Redirect()}
		if d == session.RedirectLogin {
			detail.Kind = apperror.KindNotAuthenticated
			response.Error(c, http.StatusUnauthorized, "Please sign in to continue", detail)
			c.Abort()
			return
		}

		audit.LogAccessDenied(c.Request.Context(), user.ID, requestMeta(c), c.Request.URL.Path, d.String())
		response.Error(c, http.StatusForbidden, refusalMessage(d), detail)
		c.Abort()
	}
}

// RequireUser admits any signed-in user with a complete profile.
func RequireUser(audit *security.SecurityLogger) gin.HandlerFunc {
	return RequireRole("", "", audit)
}

// RequireSignedIn admits any signed-in user, complete profile or not.
func RequireSignedIn() gin.HandlerFunc {
	return RequireRole("", session.PathCompleteProfile, nil)
}

// RequireIdentity admits any session with a verified identity, including
// one that has not picked a role yet.
func RequireIdentity() gin.HandlerFunc {
	return func(c *gin.Context) {
		if sess := SessionFrom(c); sess != nil && sess.Identity() != nil {
			c.Next()
			return
		}
		d := session.RedirectLogin
		response.Error(c, http.StatusUnauthorized, "Please sign in to continue", response.ErrorDetail{
			Kind:     apperror.KindNotAuthenticated,
			Decision: d.String(),
			Redirect: d.Redirect(),
		})
		c.Abort()
	}
}

func refusalMessage(d session.Decision) string {
	switch d {
	case session.RedirectCompleteProfile:
		return "Please complete your profile first"
	case session.RedirectPendingApproval:
		return "Your seller account is awaiting approval"
	default:
		return "You do not have access to this resource"
	}
}

func requestMeta(c *gin.Context) security.RequestMeta {
	return security.RequestMeta{
		IP:        c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
		RequestID: c.GetString("RequestID"),
	}
}
