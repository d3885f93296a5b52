package middleware

import (
	"campus-marketplace-backend/internal/domain"
	"campus-marketplace-backend/internal/session"
	"campus-marketplace-backend/pkg/auth"
	"campus-marketplace-backend/pkg/logger"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

const (
	// SessionCookieName carries the opaque session id
	SessionCookieName = "sid"
	// AuthCookieName carries the provider access token for browser clients
	AuthCookieName = "auth_token"
)

// TokenVerifier validates provider access tokens.
type TokenVerifier interface {
	Verify(token string) (*auth.Claims, error)
}

type SessionConfig struct {
	CookieSecure bool
	CookieMaxAge time.Duration
}

// SessionMiddleware resolves the caller's Session from the sid cookie,
// minting one when absent, then publishes the identity carried by the
// request (bearer header or auth_token cookie) to it. A request without a
// valid token publishes "signed out". Reconciliation has finished by the
// time the handler runs.
func SessionMiddleware(sessions *session.Manager, verifier TokenVerifier, cfg SessionConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		sid, err := c.Cookie(SessionCookieName)
		if err != nil || !session.ValidID(sid) {
			sid = session.NewID()
			c.SetSameSite(http.SameSiteLaxMode)
			c.SetCookie(SessionCookieName, sid, int(cfg.CookieMaxAge.Seconds()), "/", "", cfg.CookieSecure, true)
		}

		ctx := c.Request.Context()
		sess := sessions.Get(ctx, sid)

		token := requestToken(c)
		var identity *domain.Identity
		if token != "" && verifier != nil {
			claims, err := verifier.Verify(token)
			if err != nil {
				logger.Log.Debug("Rejected access token", "request_id", c.GetString("RequestID"), "error", err)
				token = ""
			} else {
				identity = &domain.Identity{
					ID:            claims.Subject,
					Email:         claims.Email,
					DisplayName:   claims.DisplayName,
					EmailVerified: claims.EmailVerified,
				}
			}
		}
		sess.Publish(ctx, identity)

		c.Set(string(domain.KeySession), sess)
		c.Set(string(domain.KeyAccessToken), token)
		if user := sess.CurrentUser(); user != nil {
			c.Set(string(domain.KeyUserID), user.ID)
			c.Set(string(domain.KeyUserEmail), user.Email)
			c.Set(string(domain.KeyUserRole), string(user.Role))
		}

		c.Next()
	}
}

// requestToken prefers the Authorization header over the cookie.
func requestToken(c *gin.Context) string {
	if header := c.GetHeader("Authorization"); header != "" {
		return auth.BearerToken(header)
	}
	if cookie, err := c.Cookie(AuthCookieName); err == nil {
		return cookie
	}
	return ""
}

// SessionFrom returns the Session the middleware attached to c.
func SessionFrom(c *gin.Context) *session.Session {
	v, ok := c.Get(string(domain.KeySession))
	if !ok {
		return nil
	}
	sess, _ := v.(*session.Session)
	return sess
}

// AccessToken returns the verified token of the request, or "".
func AccessToken(c *gin.Context) string {
	return c.GetString(string(domain.KeyAccessToken))
}
