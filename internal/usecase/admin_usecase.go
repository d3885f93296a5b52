package usecase

import (
	"bytes"
	"campus-marketplace-backend/internal/domain"
	"campus-marketplace-backend/pkg/apperror"
	"campus-marketplace-backend/pkg/security"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"
	"golang.org/x/sync/errgroup"
)

type adminUsecase struct {
	adminRepo domain.AdminRepository
	profiles  domain.ProfileRepository
	health    HealthUsecase
	audit     *security.SecurityLogger
}

func NewAdminUsecase(adminRepo domain.AdminRepository, profiles domain.ProfileRepository, health HealthUsecase, audit *security.SecurityLogger) domain.AdminUsecase {
	if audit == nil {
		audit = security.NopLogger()
	}
	return &adminUsecase{
		adminRepo: adminRepo,
		profiles:  profiles,
		health:    health,
		audit:     audit,
	}
}

// GetStats runs the dashboard counters concurrently.
func (u *adminUsecase) GetStats(ctx context.Context) (*domain.AdminStats, error) {
	stats := &domain.AdminStats{}
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		counts, err := u.adminRepo.CountUsersByRole(gctx)
		if err != nil {
			return fmt.Errorf("count users: %w", err)
		}
		stats.UsersByRole = counts
		stats.TotalUsers = counts.Buyer + counts.Seller + counts.Admin
		return nil
	})
	g.Go(func() error {
		n, err := u.adminRepo.CountPendingSellers(gctx)
		if err != nil {
			return fmt.Errorf("count pending sellers: %w", err)
		}
		stats.PendingSellers = n
		return nil
	})
	g.Go(func() error {
		total, active, err := u.adminRepo.CountProducts(gctx)
		if err != nil {
			return fmt.Errorf("count products: %w", err)
		}
		stats.TotalProducts, stats.ActiveProducts = total, active
		return nil
	})
	g.Go(func() error {
		counts, err := u.adminRepo.CountOrdersByStatus(gctx)
		if err != nil {
			return fmt.Errorf("count orders: %w", err)
		}
		stats.OrdersByStatus = counts
		stats.TotalOrders = counts.Pending + counts.Confirmed + counts.Delivered + counts.Cancelled
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, apperror.Internal(err)
	}

	stats.SystemHealth = domain.SystemHealth{Status: "healthy", LastChecked: time.Now().UTC().Format(time.RFC3339)}
	if u.health != nil {
		if report := u.health.Check(ctx); report["status"] != "ok" {
			stats.SystemHealth.Status = "degraded"
		}
	}
	return stats, nil
}

func (u *adminUsecase) ListUsers(ctx context.Context, filter domain.UserFilter) (*domain.PaginatedResult[domain.AdminUser], error) {
	filter.Page, filter.PageSize = domain.NormalizePage(filter.Page, filter.PageSize)
	users, total, err := u.adminRepo.ListUsers(ctx, filter)
	if err != nil {
		return nil, apperror.Internal(err)
	}
	return domain.NewPaginatedResult(users, total, filter.Page, filter.PageSize), nil
}

// ChangeRole switches a user's role. Becoming a seller resets approval;
// every other role is approved outright. The user's live sessions pick the
// change up on their next refresh.
func (u *adminUsecase) ChangeRole(ctx context.Context, actorID, userID string, role domain.Role) (*domain.AdminUser, error) {
	if !role.IsValid() {
		return nil, apperror.BadRequest("Invalid role")
	}
	if actorID == userID {
		return nil, apperror.BadRequest("You cannot change your own role")
	}

	target, err := u.getUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if target.Role == role {
		return target, nil
	}

	approved := role != domain.RoleSeller
	if err := u.profiles.Update(ctx, userID, domain.ProfileUpdate{Role: &role, Approved: &approved}); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, apperror.NotFound("User not found")
		}
		return nil, err
	}

	u.audit.LogRoleModified(ctx, actorID, userID, string(target.Role), string(role))
	target.Role = role
	target.Approved = approved
	return target, nil
}

func (u *adminUsecase) ApproveSeller(ctx context.Context, actorID, userID string) (*domain.AdminUser, error) {
	target, err := u.getUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if target.Role != domain.RoleSeller {
		return nil, apperror.BadRequest("Only sellers need approval")
	}
	if target.Approved {
		return target, nil
	}

	approved := true
	if err := u.profiles.Update(ctx, userID, domain.ProfileUpdate{Approved: &approved}); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, apperror.NotFound("User not found")
		}
		return nil, err
	}

	u.audit.LogSellerApproved(ctx, actorID, userID)
	target.Approved = true
	return target, nil
}

// ExportUsers renders every user matching filter as an xlsx workbook.
func (u *adminUsecase) ExportUsers(ctx context.Context, actorID string, filter domain.UserFilter) ([]byte, error) {
	filter.Page, filter.PageSize = 0, 0
	users, _, err := u.adminRepo.ListUsers(ctx, filter)
	if err != nil {
		return nil, apperror.Internal(err)
	}

	data, err := usersWorkbook(users)
	if err != nil {
		return nil, apperror.Internal(err)
	}
	u.audit.LogDataExport(ctx, actorID, "users", len(users))
	return data, nil
}

func (u *adminUsecase) getUser(ctx context.Context, id string) (*domain.AdminUser, error) {
	user, err := u.adminRepo.GetUser(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, apperror.NotFound("User not found")
		}
		return nil, apperror.Internal(err)
	}
	return user, nil
}

var exportHeaders = []string{"ID", "NAME", "EMAIL", "ROLE", "CAMPUS", "PROFILE COMPLETE", "APPROVED", "JOINED"}

func usersWorkbook(users []domain.AdminUser) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	sheet := "Users"
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return nil, err
	}

	for i, h := range exportHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheet, cell, h)
	}

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "#FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#1E3A5F"}},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	endCell, _ := excelize.CoordinatesToCellName(len(exportHeaders), 1)
	f.SetCellStyle(sheet, "A1", endCell, headerStyle)

	for r, user := range users {
		row := []interface{}{
			user.ID, user.Name, user.Email, string(user.Role), user.Campus,
			yesNo(user.ProfileComplete), yesNo(user.Approved), user.CreatedAt.Format("2006-01-02"),
		}
		cell, _ := excelize.CoordinatesToCellName(1, r+2)
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return nil, err
		}
	}

	for i := range exportHeaders {
		col, _ := excelize.ColumnNumberToName(i + 1)
		f.SetColWidth(sheet, col, col, 22)
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("failed to write Excel file: %w", err)
	}
	return buf.Bytes(), nil
}

func yesNo(b bool) string {
	if b {
		return "YES"
	}
	return "NO"
}
