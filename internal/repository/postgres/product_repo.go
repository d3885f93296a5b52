package postgres

import (
	"campus-marketplace-backend/internal/domain"
	"campus-marketplace-backend/pkg/apperror"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lib/pq"
)

type productRepo struct {
	db *pgxpool.Pool
}

func NewProductRepository(db *pgxpool.Pool) domain.ProductRepository {
	return &productRepo{db: db}
}

// Seller details come from the seller's profile so a campus change shows up
// on every listing.
const productSelect = `
	SELECT p.id, p.seller_id, COALESCE(pr.name, ''), COALESCE(pr.campus, ''), COALESCE(pr.phone, ''),
	       p.title, p.description, p.price, p.category, p.type, p.image_url, p.tags,
	       p.status, p.created_at, p.updated_at
	FROM products p
	LEFT JOIN profiles pr ON pr.id = p.seller_id`

func scanProduct(row pgx.Row) (*domain.Product, error) {
	var p domain.Product
	var tags []string
	err := row.Scan(
		&p.ID, &p.SellerID, &p.SellerName, &p.SellerCampus, &p.SellerPhone,
		&p.Title, &p.Description, &p.Price, &p.Category, &p.Type, &p.ImageURL, pq.Array(&tags),
		&p.Status, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if tags == nil {
		tags = []string{}
	}
	p.Tags = tags
	return &p, nil
}

func (r *productRepo) Create(ctx context.Context, p *domain.Product) error {
	query := `INSERT INTO products (seller_id, title, description, price, category, type, image_url, tags, status, created_at, updated_at)
              VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11) RETURNING id`
	err := r.db.QueryRow(ctx, query,
		p.SellerID, p.Title, p.Description, p.Price, p.Category, p.Type, p.ImageURL, pq.Array(p.Tags),
		p.Status, p.CreatedAt, p.UpdatedAt,
	).Scan(&p.ID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgForeignKeyViolation {
			return apperror.BadRequest("Seller profile does not exist")
		}
		return apperror.Internal(err)
	}
	return nil
}

func (r *productRepo) GetByID(ctx context.Context, id string) (*domain.Product, error) {
	p, err := scanProduct(r.db.QueryRow(ctx, productSelect+` WHERE p.id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return p, nil
}

// GetByIDs returns the products that exist among ids, in no particular
// order. Missing ids are simply absent from the result.
func (r *productRepo) GetByIDs(ctx context.Context, ids []string) ([]domain.Product, error) {
	if len(ids) == 0 {
		return []domain.Product{}, nil
	}
	rows, err := r.db.Query(ctx, productSelect+` WHERE p.id = ANY($1::text[])`, pq.Array(ids))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	products := []domain.Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, *p)
	}
	return products, rows.Err()
}

func (r *productRepo) List(ctx context.Context, f domain.ProductFilter) ([]domain.Product, int64, error) {
	var where []string
	var args []interface{}
	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if f.Search != "" {
		p := arg("%" + f.Search + "%")
		where = append(where, fmt.Sprintf("(p.title ILIKE %s OR p.description ILIKE %s OR array_to_string(p.tags, ' ') ILIKE %s)", p, p, p))
	}
	if f.Category != "" {
		where = append(where, "p.category = "+arg(string(f.Category)))
	}
	if f.Type != "" {
		where = append(where, "p.type = "+arg(string(f.Type)))
	}
	if f.Campus != "" {
		where = append(where, "LOWER(TRIM(pr.campus)) = LOWER(TRIM("+arg(f.Campus)+"))")
	}
	if f.SellerID != "" {
		where = append(where, "p.seller_id = "+arg(f.SellerID))
	}
	if f.Status != "" {
		where = append(where, "p.status = "+arg(string(f.Status)))
	}
	if f.MinPrice != nil {
		where = append(where, "p.price >= "+arg(*f.MinPrice))
	}
	if f.MaxPrice != nil {
		where = append(where, "p.price <= "+arg(*f.MaxPrice))
	}

	clause := ""
	if len(where) > 0 {
		clause = " WHERE " + strings.Join(where, " AND ")
	}

	var total int64
	countQuery := `SELECT COUNT(*) FROM products p LEFT JOIN profiles pr ON pr.id = p.seller_id` + clause
	if err := r.db.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	page, pageSize := domain.NormalizePage(f.Page, f.PageSize)
	query := productSelect + clause + fmt.Sprintf(" ORDER BY p.created_at DESC LIMIT %s OFFSET %s",
		arg(pageSize), arg((page-1)*pageSize))

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	products := []domain.Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, 0, err
		}
		products = append(products, *p)
	}
	return products, total, rows.Err()
}

func (r *productRepo) Update(ctx context.Context, p *domain.Product) error {
	query := `UPDATE products SET title = $2, description = $3, price = $4, category = $5, type = $6,
                image_url = $7, tags = $8, status = $9, updated_at = $10
              WHERE id = $1`
	tag, err := r.db.Exec(ctx, query,
		p.ID, p.Title, p.Description, p.Price, p.Category, p.Type,
		p.ImageURL, pq.Array(p.Tags), p.Status, p.UpdatedAt,
	)
	if err != nil {
		return apperror.Internal(err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *productRepo) Delete(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return apperror.Internal(err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}
