package v1

import (
	"campus-marketplace-backend/internal/delivery/http/middleware"
	"campus-marketplace-backend/internal/delivery/http/response"
	"campus-marketplace-backend/internal/domain"
	"campus-marketplace-backend/pkg/logger"
	"net/http"

	"github.com/gin-gonic/gin"
)

type OnboardingHandler struct {
	onboardingUC domain.OnboardingUsecase
}

func NewOnboardingHandler(r *gin.RouterGroup, onboardingUC domain.OnboardingUsecase) {
	handler := &OnboardingHandler{onboardingUC: onboardingUC}

	onboarding := r.Group("/onboarding")
	{
		onboarding.GET("/status", handler.GetStatus)
		onboarding.POST("/role", middleware.RequireIdentity(), handler.SelectRole)
		onboarding.POST("/profile", middleware.RequireSignedIn(), handler.CompleteProfile)
	}

	r.GET("/routes/authorize", handler.Authorize)
}

// GetStatus godoc
// @Summary      Where the signed-in user stands
// @Description  Pass refresh=true to re-read the profile first, e.g. while a seller waits for approval.
// @Tags         onboarding
// @Produce      json
// @Param        refresh  query     bool  false  "Re-read the profile"
// @Success      200      {object}  response.Response{data=domain.OnboardingStatus}
// @Router       /onboarding/status [get]
// @Security     BearerAuth
func (h *OnboardingHandler) GetStatus(c *gin.Context) {
	sess, ok := sessionOf(c)
	if !ok {
		return
	}
	if c.Query("refresh") == "true" && sess.CurrentUser() != nil {
		if err := sess.Refresh(c.Request.Context()); err != nil {
			logger.Log.Warn("Profile refresh failed", "session_id", sess.ID(), "error", err)
		}
	}

	response.Success(c, http.StatusOK, "Onboarding status retrieved", h.onboardingUC.Status(c.Request.Context(), sess))
}

// SelectRole godoc
// @Summary      Pick a role for a new federated identity
// @Tags         onboarding
// @Accept       json
// @Produce      json
// @Param        body  body      domain.SelectRoleRequest  true  "buyer or seller"
// @Success      201   {object}  response.Response{data=domain.User}
// @Failure      401   {object}  response.Response
// @Failure      409   {object}  response.Response
// @Router       /onboarding/role [post]
// @Security     BearerAuth
func (h *OnboardingHandler) SelectRole(c *gin.Context) {
	var req domain.SelectRoleRequest
	if !bindJSON(c, &req) {
		return
	}
	sess, ok := sessionOf(c)
	if !ok {
		return
	}

	user, err := h.onboardingUC.SelectRole(c.Request.Context(), sess, req.Role)
	if err != nil {
		c.Error(err)
		return
	}
	response.Success(c, http.StatusCreated, "Role selected", user)
}

// CompleteProfile godoc
// @Summary      Fill in contact details and campus
// @Tags         onboarding
// @Accept       json
// @Produce      json
// @Param        body  body      domain.CompleteProfileRequest  true  "Profile"
// @Success      200   {object}  response.Response{data=domain.User}
// @Failure      400   {object}  response.Response
// @Failure      401   {object}  response.Response
// @Router       /onboarding/profile [post]
// @Security     BearerAuth
func (h *OnboardingHandler) CompleteProfile(c *gin.Context) {
	var req domain.CompleteProfileRequest
	if !bindJSON(c, &req) {
		return
	}
	sess, ok := sessionOf(c)
	if !ok {
		return
	}

	user, err := h.onboardingUC.CompleteProfile(c.Request.Context(), sess, req)
	if err != nil {
		c.Error(err)
		return
	}
	response.Success(c, http.StatusOK, "Profile completed", user)
}

// Authorize godoc
// @Summary      Run the route gate for a client path
// @Description  Public paths are always allowed.
// @Tags         onboarding
// @Produce      json
// @Param        path  query     string  true  "Client path, e.g. /seller-dashboard"
// @Success      200   {object}  response.Response{data=domain.RouteDecision}
// @Router       /routes/authorize [get]
func (h *OnboardingHandler) Authorize(c *gin.Context) {
	path := c.Query("path")
	if path == "" {
		response.Error(c, http.StatusBadRequest, "path is required", nil)
		return
	}
	sess, ok := sessionOf(c)
	if !ok {
		return
	}
	response.Success(c, http.StatusOK, "Route decision", h.onboardingUC.Authorize(c.Request.Context(), sess, path))
}
