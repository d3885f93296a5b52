package v1

import (
	"campus-marketplace-backend/internal/delivery/http/middleware"
	"campus-marketplace-backend/internal/delivery/http/response"
	"campus-marketplace-backend/internal/domain"
	"net/http"

	"github.com/gin-gonic/gin"
)

type AuthHandler struct {
	authUC       domain.AuthUsecase
	cookieSecure bool
}

// NewAuthHandler mounts the sign-in routes. loginGuard is applied to the
// credential endpoints only.
func NewAuthHandler(public *gin.RouterGroup, authUC domain.AuthUsecase, loginGuard gin.HandlerFunc, cookieSecure bool) {
	handler := &AuthHandler{authUC: authUC, cookieSecure: cookieSecure}

	auth := public.Group("/auth")
	{
		auth.POST("/register", loginGuard, handler.Register)
		auth.POST("/login", loginGuard, handler.Login)
		auth.POST("/google", loginGuard, handler.Google)
		auth.POST("/resend", loginGuard, handler.ResendVerification)
		auth.POST("/logout", handler.Logout)
		auth.GET("/me", handler.Me)
		auth.POST("/refresh", handler.Refresh)
	}
}

// Register godoc
// @Summary      Register with email and password
// @Description  Creates the identity and the profile. Buyers are approved at once, sellers wait for an admin. When the provider requires email confirmation no token is returned.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        register  body      domain.RegisterRequest  true  "Registration details"
// @Success      201       {object}  response.Response
// @Failure      400       {object}  response.Response
// @Failure      409       {object}  response.Response
// @Router       /auth/register [post]
func (h *AuthHandler) Register(c *gin.Context) {
	var req domain.RegisterRequest
	if !bindJSON(c, &req) {
		return
	}
	sess, ok := sessionOf(c)
	if !ok {
		return
	}

	result, err := h.authUC.Register(c.Request.Context(), sess, req, clientMeta(c))
	if err != nil {
		c.Error(err)
		return
	}
	setAuthCookie(c, result.AccessToken, h.cookieSecure)
	response.Success(c, http.StatusCreated, "Registration successful", result)
}

// Login godoc
// @Summary      Sign in with email and password
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        login  body      domain.LoginRequest  true  "Credentials"
// @Success      200    {object}  response.Response
// @Failure      401    {object}  response.Response  "error.kind auth/invalid-credentials"
// @Failure      403    {object}  response.Response  "error.kind auth/unverified-email"
// @Failure      404    {object}  response.Response  "error.kind auth/profile-not-found"
// @Failure      429    {object}  response.Response
// @Router       /auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req domain.LoginRequest
	if !bindJSON(c, &req) {
		return
	}
	sess, ok := sessionOf(c)
	if !ok {
		return
	}

	result, err := h.authUC.Login(c.Request.Context(), sess, req, clientMeta(c))
	if err != nil {
		c.Error(err)
		return
	}
	setAuthCookie(c, result.AccessToken, h.cookieSecure)
	response.Success(c, http.StatusOK, "Login successful", result)
}

// Google godoc
// @Summary      Sign in with a Google ID token
// @Description  isNewUser is true when the identity has no profile yet; the client then calls POST /onboarding/role.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      domain.FederatedLoginRequest  true  "ID token"
// @Success      200   {object}  response.Response
// @Failure      401   {object}  response.Response
// @Router       /auth/google [post]
func (h *AuthHandler) Google(c *gin.Context) {
	var req domain.FederatedLoginRequest
	if !bindJSON(c, &req) {
		return
	}
	sess, ok := sessionOf(c)
	if !ok {
		return
	}

	result, err := h.authUC.FederatedLogin(c.Request.Context(), sess, req, clientMeta(c))
	if err != nil {
		c.Error(err)
		return
	}
	setAuthCookie(c, result.AccessToken, h.cookieSecure)
	response.Success(c, http.StatusOK, "Login successful", result)
}

// ResendVerification godoc
// @Summary      Resend the email confirmation link
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      domain.ResendVerificationRequest  true  "Email"
// @Success      200   {object}  response.Response
// @Router       /auth/resend [post]
func (h *AuthHandler) ResendVerification(c *gin.Context) {
	var req domain.ResendVerificationRequest
	if !bindJSON(c, &req) {
		return
	}
	if err := h.authUC.ResendVerification(c.Request.Context(), req.Email); err != nil {
		c.Error(err)
		return
	}
	response.Success(c, http.StatusOK, "If the account exists, a new link has been sent", nil)
}

// Logout godoc
// @Summary      Sign out
// @Description  Clears the session's user and cart. Always succeeds.
// @Tags         auth
// @Produce      json
// @Success      200  {object}  response.Response
// @Router       /auth/logout [post]
func (h *AuthHandler) Logout(c *gin.Context) {
	sess, ok := sessionOf(c)
	if !ok {
		return
	}
	h.authUC.Logout(c.Request.Context(), sess, middleware.AccessToken(c), clientMeta(c))
	clearAuthCookie(c, h.cookieSecure)
	response.Success(c, http.StatusOK, "Logged out", nil)
}

// Me godoc
// @Summary      Current user
// @Tags         auth
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  response.Response
// @Failure      401  {object}  response.Response
// @Router       /auth/me [get]
func (h *AuthHandler) Me(c *gin.Context) {
	sess, ok := sessionOf(c)
	if !ok {
		return
	}
	user, err := h.authUC.Me(c.Request.Context(), sess)
	if err != nil {
		c.Error(err)
		return
	}
	response.Success(c, http.StatusOK, "Current user", user)
}

// Refresh godoc
// @Summary      Re-read the profile
// @Description  Picks up changes made elsewhere, such as an admin approving a seller.
// @Tags         auth
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  response.Response
// @Failure      401  {object}  response.Response
// @Failure      503  {object}  response.Response
// @Router       /auth/refresh [post]
func (h *AuthHandler) Refresh(c *gin.Context) {
	sess, ok := sessionOf(c)
	if !ok {
		return
	}
	user, err := h.authUC.Refresh(c.Request.Context(), sess)
	if err != nil {
		c.Error(err)
		return
	}
	response.Success(c, http.StatusOK, "Profile refreshed", user)
}
