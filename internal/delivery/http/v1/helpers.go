package v1

import (
	"campus-marketplace-backend/internal/delivery/http/middleware"
	"campus-marketplace-backend/internal/delivery/http/response"
	"campus-marketplace-backend/internal/domain"
	"campus-marketplace-backend/pkg/apperror"
	"campus-marketplace-backend/pkg/validation"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

// GoTrue issues hour-long access tokens by default
const authCookieMaxAge = time.Hour

// sessionOf returns the caller's Session. The session middleware runs on
// every /v1 route, so a miss is a wiring bug.
func sessionOf(c *gin.Context) (domain.Session, bool) {
	sess := middleware.SessionFrom(c)
	if sess == nil {
		c.Error(apperror.Internal(errors.New("no session attached to request")))
		return nil, false
	}
	return sess, true
}

func clientMeta(c *gin.Context) domain.ClientMeta {
	return domain.ClientMeta{
		IP:        c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
		RequestID: c.GetString("RequestID"),
	}
}

// bindJSON decodes the body into req, answering 400 with readable field
// messages when it does not validate.
func bindJSON(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		respondBindError(c, err)
		return false
	}
	return true
}

func respondBindError(c *gin.Context, err error) {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		msgs := validation.FormatValidationErrors(err)
		response.Error(c, http.StatusBadRequest, msgs[0], response.ErrorDetail{Fields: msgs})
		return
	}
	c.Error(apperror.BadRequest("Invalid request body"))
}

func pageParams(c *gin.Context) (int, int) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("pageSize", "20"))
	return domain.NormalizePage(page, pageSize)
}

func setAuthCookie(c *gin.Context, token string, secure bool) {
	if token == "" {
		return
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(middleware.AuthCookieName, token, int(authCookieMaxAge.Seconds()), "/", "", secure, true)
}

func clearAuthCookie(c *gin.Context, secure bool) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(middleware.AuthCookieName, "", -1, "/", "", secure, true)
}
