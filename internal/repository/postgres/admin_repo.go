package postgres

import (
	"campus-marketplace-backend/internal/domain"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type adminRepo struct {
	db *pgxpool.Pool
}

func NewAdminRepository(db *pgxpool.Pool) domain.AdminRepository {
	return &adminRepo{db: db}
}

func (r *adminRepo) CountUsersByRole(ctx context.Context) (domain.UsersByRole, error) {
	var counts domain.UsersByRole
	err := r.db.QueryRow(ctx, `
		SELECT COUNT(*) FILTER (WHERE role = 'buyer'),
		       COUNT(*) FILTER (WHERE role = 'seller'),
		       COUNT(*) FILTER (WHERE role = 'admin')
		FROM profiles`).Scan(&counts.Buyer, &counts.Seller, &counts.Admin)
	return counts, err
}

func (r *adminRepo) CountPendingSellers(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM profiles WHERE role = 'seller' AND NOT approved`).Scan(&n)
	return n, err
}

func (r *adminRepo) CountProducts(ctx context.Context) (total, active int64, err error) {
	err = r.db.QueryRow(ctx,
		`SELECT COUNT(*), COUNT(*) FILTER (WHERE status = $1) FROM products`,
		domain.ProductAvailable,
	).Scan(&total, &active)
	return total, active, err
}

func (r *adminRepo) CountOrdersByStatus(ctx context.Context) (domain.OrdersByStatus, error) {
	var counts domain.OrdersByStatus
	err := r.db.QueryRow(ctx, `
		SELECT COUNT(*) FILTER (WHERE status = 'Pending'),
		       COUNT(*) FILTER (WHERE status = 'Confirmed'),
		       COUNT(*) FILTER (WHERE status = 'Delivered'),
		       COUNT(*) FILTER (WHERE status = 'Cancelled')
		FROM orders`).Scan(&counts.Pending, &counts.Confirmed, &counts.Delivered, &counts.Cancelled)
	return counts, err
}

const adminUserSelect = `SELECT id, name, email, role, campus, profile_complete, approved, created_at FROM profiles`

func scanAdminUser(row pgx.Row) (*domain.AdminUser, error) {
	var u domain.AdminUser
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.Role, &u.Campus, &u.ProfileComplete, &u.Approved, &u.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// ListUsers fetches users matching filter. PageSize <= 0 returns every match,
// which the export relies on.
func (r *adminRepo) ListUsers(ctx context.Context, f domain.UserFilter) ([]domain.AdminUser, int64, error) {
	var where []string
	var args []interface{}
	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if f.Role != "" {
		where = append(where, "role = "+arg(string(f.Role)))
	}
	if f.Pending {
		where = append(where, "role = 'seller' AND NOT approved")
	}
	if f.Search != "" {
		p := arg("%" + f.Search + "%")
		where = append(where, fmt.Sprintf("(name ILIKE %s OR email ILIKE %s)", p, p))
	}

	clause := ""
	if len(where) > 0 {
		clause = " WHERE " + strings.Join(where, " AND ")
	}

	var total int64
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM profiles`+clause, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := adminUserSelect + clause + " ORDER BY created_at DESC"
	if f.PageSize > 0 {
		page, pageSize := domain.NormalizePage(f.Page, f.PageSize)
		query += fmt.Sprintf(" LIMIT %s OFFSET %s", arg(pageSize), arg((page-1)*pageSize))
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	users := []domain.AdminUser{}
	for rows.Next() {
		u, err := scanAdminUser(rows)
		if err != nil {
			return nil, 0, err
		}
		users = append(users, *u)
	}
	return users, total, rows.Err()
}

func (r *adminRepo) GetUser(ctx context.Context, id string) (*domain.AdminUser, error) {
	u, err := scanAdminUser(r.db.QueryRow(ctx, adminUserSelect+` WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return u, nil
}
