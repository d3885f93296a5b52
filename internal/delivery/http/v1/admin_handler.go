package v1

import (
	"campus-marketplace-backend/internal/delivery/http/response"
	"campus-marketplace-backend/internal/domain"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type AdminHandler struct {
	adminUC domain.AdminUsecase
}

func NewAdminHandler(admins *gin.RouterGroup, adminUC domain.AdminUsecase) {
	handler := &AdminHandler{adminUC: adminUC}

	admin := admins.Group("/admin")
	{
		// Dashboard stats
		admin.GET("/stats", handler.GetStats)

		// User management
		admin.GET("/users", handler.ListUsers)
		admin.GET("/users/export", handler.ExportUsers)
		admin.PATCH("/users/:id/role", handler.ChangeRole)
		admin.POST("/users/:id/approve", handler.ApproveSeller)
	}
}

// GetStats godoc
// @Summary      Get admin dashboard statistics
// @Description  Returns counts for users, pending sellers, products and orders
// @Tags         admin
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  response.Response{data=domain.AdminStats}
// @Failure      403  {object}  response.Response
// @Router       /admin/stats [get]
func (h *AdminHandler) GetStats(c *gin.Context) {
	stats, err := h.adminUC.GetStats(c.Request.Context())
	if err != nil {
		c.Error(err)
		return
	}
	response.Success(c, http.StatusOK, "Dashboard statistics", stats)
}

// ListUsers godoc
// @Summary      List all users
// @Description  Returns paginated list of users with optional filters
// @Tags         admin
// @Produce      json
// @Security     BearerAuth
// @Param        role     query     string  false  "buyer, seller or admin"
// @Param        pending  query     bool    false  "Sellers awaiting approval only"
// @Param        search   query     string  false  "Name or email"
// @Param        page     query     int     false  "Page number"
// @Param        pageSize query     int     false  "Items per page"
// @Success      200      {object}  response.Response
// @Failure      403      {object}  response.Response
// @Router       /admin/users [get]
func (h *AdminHandler) ListUsers(c *gin.Context) {
	filter := userFilter(c)
	filter.Page, filter.PageSize = pageParams(c)

	result, err := h.adminUC.ListUsers(c.Request.Context(), filter)
	if err != nil {
		c.Error(err)
		return
	}
	response.Success(c, http.StatusOK, "Users list", result)
}

func userFilter(c *gin.Context) domain.UserFilter {
	return domain.UserFilter{
		Role:    domain.Role(c.Query("role")),
		Pending: c.Query("pending") == "true",
		Search:  strings.TrimSpace(c.Query("search")),
	}
}

// ChangeRole godoc
// @Summary      Change a user's role
// @Description  Moving a user to seller resets their approval.
// @Tags         admin
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      string                   true  "User ID"
// @Param        body  body      domain.ChangeRoleRequest true  "New role"
// @Success      200   {object}  response.Response{data=domain.AdminUser}
// @Failure      400   {object}  response.Response
// @Failure      404   {object}  response.Response
// @Router       /admin/users/{id}/role [patch]
func (h *AdminHandler) ChangeRole(c *gin.Context) {
	var req domain.ChangeRoleRequest
	if !bindJSON(c, &req) {
		return
	}
	actorID := c.GetString(string(domain.KeyUserID))

	user, err := h.adminUC.ChangeRole(c.Request.Context(), actorID, c.Param("id"), req.Role)
	if err != nil {
		c.Error(err)
		return
	}
	response.Success(c, http.StatusOK, "Role updated", user)
}

// ApproveSeller godoc
// @Summary      Approve a seller
// @Tags         admin
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "User ID"
// @Success      200  {object}  response.Response{data=domain.AdminUser}
// @Failure      400  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Router       /admin/users/{id}/approve [post]
func (h *AdminHandler) ApproveSeller(c *gin.Context) {
	actorID := c.GetString(string(domain.KeyUserID))

	user, err := h.adminUC.ApproveSeller(c.Request.Context(), actorID, c.Param("id"))
	if err != nil {
		c.Error(err)
		return
	}
	response.Success(c, http.StatusOK, "Seller approved", user)
}

// ExportUsers godoc
// @Summary      Export users to Excel
// @Description  Same filters as the list, without pagination.
// @Tags         admin
// @Produce      application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Security     BearerAuth
// @Param        role     query     string  false  "buyer, seller or admin"
// @Param        pending  query     bool    false  "Sellers awaiting approval only"
// @Success      200      {file}    file
// @Failure      403      {object}  response.Response
// @Router       /admin/users/export [get]
func (h *AdminHandler) ExportUsers(c *gin.Context) {
	actorID := c.GetString(string(domain.KeyUserID))

	data, err := h.adminUC.ExportUsers(c.Request.Context(), actorID, userFilter(c))
	if err != nil {
		c.Error(err)
		return
	}

	filename := fmt.Sprintf("users_%s.xlsx", time.Now().UTC().Format("20060102_150405"))
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	c.Data(http.StatusOK, xlsxContentType, data)
}
