package domain

import (
	"context"
	"time"
)

// AdminStats contains dashboard statistics
type AdminStats struct {
	TotalUsers     int64          `json:"totalUsers"`
	UsersByRole    UsersByRole    `json:"usersByRole"`
	PendingSellers int64          `json:"pendingSellers"`
	TotalProducts  int64          `json:"totalProducts"`
	ActiveProducts int64          `json:"activeProducts"`
	TotalOrders    int64          `json:"totalOrders"`
	OrdersByStatus OrdersByStatus `json:"ordersByStatus"`
	SystemHealth   SystemHealth   `json:"systemHealth"`
}

type UsersByRole struct {
	Buyer  int64 `json:"buyer"`
	Seller int64 `json:"seller"`
	Admin  int64 `json:"admin"`
}

type OrdersByStatus struct {
	Pending   int64 `json:"pending"`
	Confirmed int64 `json:"confirmed"`
	Delivered int64 `json:"delivered"`
	Cancelled int64 `json:"cancelled"`
}

type SystemHealth struct {
	Status      string `json:"status"`      // "healthy", "degraded", "down"
	LastChecked string `json:"lastChecked"` // ISO8601 timestamp
}

// AdminUser represents a user for admin management
type AdminUser struct {
	ID              string    `json:"id"`
	Name            string    `json:"name"`
	Email           string    `json:"email"`
	Role            Role      `json:"role"`
	Campus          string    `json:"campus"`
	ProfileComplete bool      `json:"profileComplete"`
	Approved        bool      `json:"approved"`
	CreatedAt       time.Time `json:"createdAt"`
}

type UserFilter struct {
	Role     Role
	Pending  bool // sellers awaiting approval only
	Search   string
	Page     int
	PageSize int
}

type ChangeRoleRequest struct {
	Role Role `json:"role" binding:"required,oneof=buyer seller admin"`
}

// AdminRepository defines admin-specific data access
type AdminRepository interface {
	CountUsersByRole(ctx context.Context) (UsersByRole, error)
	CountPendingSellers(ctx context.Context) (int64, error)
	CountProducts(ctx context.Context) (total, active int64, err error)
	CountOrdersByStatus(ctx context.Context) (OrdersByStatus, error)
	ListUsers(ctx context.Context, filter UserFilter) ([]AdminUser, int64, error)
	GetUser(ctx context.Context, id string) (*AdminUser, error)
}

// AdminUsecase defines admin business logic
type AdminUsecase interface {
	GetStats(ctx context.Context) (*AdminStats, error)
	ListUsers(ctx context.Context, filter UserFilter) (*PaginatedResult[AdminUser], error)
	ChangeRole(ctx context.Context, actorID, userID string, role Role) (*AdminUser, error)
	ApproveSeller(ctx context.Context, actorID, userID string) (*AdminUser, error)
	ExportUsers(ctx context.Context, actorID string, filter UserFilter) ([]byte, error)
}
