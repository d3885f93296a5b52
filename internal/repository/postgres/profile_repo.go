package postgres

import (
	"campus-marketplace-backend/internal/domain"
	"campus-marketplace-backend/pkg/apperror"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgreSQL error codes
const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

type profileRepo struct {
	db *pgxpool.Pool
}

func NewProfileRepository(db *pgxpool.Pool) domain.ProfileRepository {
	return &profileRepo{db: db}
}

const profileColumns = `name, email, role, campus, phone, city, profile_complete, approved, created_at, updated_at`

// Get returns (nil, nil) when the identity has no profile yet.
func (r *profileRepo) Get(ctx context.Context, id string) (*domain.Profile, error) {
	query := `SELECT ` + profileColumns + ` FROM profiles WHERE id = $1`
	var p domain.Profile
	err := r.db.QueryRow(ctx, query, id).Scan(
		&p.Name, &p.Email, &p.Role, &p.Campus, &p.Phone, &p.City,
		&p.ProfileComplete, &p.Approved, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &p, nil
}

// Set creates or replaces the whole profile.
func (r *profileRepo) Set(ctx context.Context, id string, p domain.Profile) error {
	query := `INSERT INTO profiles (id, ` + profileColumns + `)
              VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
              ON CONFLICT (id) DO UPDATE SET
                name = EXCLUDED.name,
                email = EXCLUDED.email,
                role = EXCLUDED.role,
                campus = EXCLUDED.campus,
                phone = EXCLUDED.phone,
                city = EXCLUDED.city,
                profile_complete = EXCLUDED.profile_complete,
                approved = EXCLUDED.approved,
                updated_at = EXCLUDED.updated_at`

	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	if p.UpdatedAt.IsZero() {
		p.UpdatedAt = p.CreatedAt
	}

	_, err := r.db.Exec(ctx, query, id,
		p.Name, p.Email, p.Role, p.Campus, p.Phone, p.City,
		p.ProfileComplete, p.Approved, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return apperror.Conflict("Profile already exists")
		}
		return apperror.Internal(err)
	}
	return nil
}

// Update applies the non-nil fields of u. Returns domain.ErrNotFound when
// there is no profile for id.
func (r *profileRepo) Update(ctx context.Context, id string, u domain.ProfileUpdate) error {
	if u.IsEmpty() {
		return nil
	}

	var sets []string
	args := []interface{}{id}
	add := func(column string, v interface{}) {
		args = append(args, v)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if u.Name != nil {
		add("name", *u.Name)
	}
	if u.Phone != nil {
		add("phone", *u.Phone)
	}
	if u.City != nil {
		add("city", *u.City)
	}
	if u.Campus != nil {
		add("campus", *u.Campus)
	}
	if u.Role != nil {
		add("role", string(*u.Role))
	}
	if u.ProfileComplete != nil {
		add("profile_complete", *u.ProfileComplete)
	}
	if u.Approved != nil {
		add("approved", *u.Approved)
	}
	add("updated_at", time.Now().UTC())

	query := `UPDATE profiles SET ` + strings.Join(sets, ", ") + ` WHERE id = $1`
	tag, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return apperror.Internal(err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *profileRepo) Remove(ctx context.Context, id string) error {
	_, err := r.db.Exec(ctx, `DELETE FROM profiles WHERE id = $1`, id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgForeignKeyViolation {
			return apperror.Conflict("Profile still has orders")
		}
		return apperror.Internal(err)
	}
	return nil
}
