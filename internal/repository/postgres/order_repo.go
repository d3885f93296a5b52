package postgres

import (
	"campus-marketplace-backend/internal/domain"
	"campus-marketplace-backend/pkg/apperror"
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lib/pq"
)

type orderRepo struct {
	db *pgxpool.Pool
}

func NewOrderRepository(db *pgxpool.Pool) domain.OrderRepository {
	return &orderRepo{db: db}
}

const orderSelect = `
	SELECT id, buyer_id, buyer_name, buyer_campus, subtotal, delivery_total, total, status,
	       ship_name, ship_phone, ship_campus, ship_address, ship_note, created_at, updated_at
	FROM orders`

func scanOrder(row pgx.Row) (*domain.Order, error) {
	var o domain.Order
	err := row.Scan(
		&o.ID, &o.BuyerID, &o.BuyerName, &o.BuyerCampus, &o.Subtotal, &o.DeliveryTotal, &o.Total, &o.Status,
		&o.Shipping.Name, &o.Shipping.Phone, &o.Shipping.Campus, &o.Shipping.Address, &o.Shipping.Note,
		&o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &o, nil
}

// Create reserves every product, then writes the order and its lines. A
// product that is missing or already sold aborts the whole checkout.
func (r *orderRepo) Create(ctx context.Context, o *domain.Order) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return apperror.Internal(err)
	}
	defer tx.Rollback(ctx)

	ids := distinctProductIDs(o.Items)
	tag, err := tx.Exec(ctx,
		`UPDATE products SET status = $1, updated_at = $2
		 WHERE id = ANY($3::text[]) AND status = $4`,
		domain.ProductSold, o.CreatedAt, pq.Array(ids), domain.ProductAvailable,
	)
	if err != nil {
		return apperror.Internal(err)
	}
	if tag.RowsAffected() != int64(len(ids)) {
		return apperror.Conflict("Some items in your cart are no longer available")
	}

	err = tx.QueryRow(ctx,
		`INSERT INTO orders (buyer_id, buyer_name, buyer_campus, subtotal, delivery_total, total, status,
		                     ship_name, ship_phone, ship_campus, ship_address, ship_note, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14) RETURNING id`,
		o.BuyerID, o.BuyerName, o.BuyerCampus, o.Subtotal, o.DeliveryTotal, o.Total, o.Status,
		o.Shipping.Name, o.Shipping.Phone, o.Shipping.Campus, o.Shipping.Address, o.Shipping.Note,
		o.CreatedAt, o.UpdatedAt,
	).Scan(&o.ID)
	if err != nil {
		return apperror.Internal(err)
	}

	batch := &pgx.Batch{}
	for i, it := range o.Items {
		batch.Queue(
			`INSERT INTO order_items (order_id, position, product_id, seller_id, title, price, seller_campus, delivery_fee, line_total)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			o.ID, i, it.ProductID, it.SellerID, it.Title, it.Price, it.SellerCampus, it.DeliveryFee, it.LineTotal,
		)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return apperror.Internal(err)
	}

	if err := tx.Commit(ctx); err != nil {
		return apperror.Internal(err)
	}
	return nil
}

func distinctProductIDs(items []domain.OrderItem) []string {
	seen := make(map[string]struct{}, len(items))
	ids := make([]string, 0, len(items))
	for _, it := range items {
		if _, ok := seen[it.ProductID]; ok {
			continue
		}
		seen[it.ProductID] = struct{}{}
		ids = append(ids, it.ProductID)
	}
	return ids
}

func (r *orderRepo) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	o, err := scanOrder(r.db.QueryRow(ctx, orderSelect+` WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	orders := []domain.Order{*o}
	if err := r.loadItems(ctx, orders); err != nil {
		return nil, err
	}
	return &orders[0], nil
}

func (r *orderRepo) ListByBuyer(ctx context.Context, buyerID string, page, pageSize int) ([]domain.Order, int64, error) {
	return r.list(ctx,
		`SELECT COUNT(*) FROM orders WHERE buyer_id = $1`,
		orderSelect+` WHERE buyer_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`,
		buyerID, page, pageSize)
}

// ListBySeller returns orders containing at least one of the seller's
// products. Every line is loaded, not only the seller's.
func (r *orderRepo) ListBySeller(ctx context.Context, sellerID string, page, pageSize int) ([]domain.Order, int64, error) {
	return r.list(ctx,
		`SELECT COUNT(*) FROM orders o WHERE EXISTS (SELECT 1 FROM order_items i WHERE i.order_id = o.id AND i.seller_id = $1)`,
		orderSelect+` o WHERE EXISTS (SELECT 1 FROM order_items i WHERE i.order_id = o.id AND i.seller_id = $1)
		 ORDER BY o.created_at DESC LIMIT $2 OFFSET $3`,
		sellerID, page, pageSize)
}

func (r *orderRepo) list(ctx context.Context, countQuery, query, ownerID string, page, pageSize int) ([]domain.Order, int64, error) {
	page, pageSize = domain.NormalizePage(page, pageSize)

	var total int64
	if err := r.db.QueryRow(ctx, countQuery, ownerID).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.db.Query(ctx, query, ownerID, pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	orders := []domain.Order{}
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, 0, err
		}
		orders = append(orders, *o)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	if err := r.loadItems(ctx, orders); err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}

// loadItems fills Items for every order with a single query.
func (r *orderRepo) loadItems(ctx context.Context, orders []domain.Order) error {
	if len(orders) == 0 {
		return nil
	}
	index := make(map[string]int, len(orders))
	ids := make([]string, len(orders))
	for i := range orders {
		index[orders[i].ID] = i
		ids[i] = orders[i].ID
		orders[i].Items = []domain.OrderItem{}
	}

	rows, err := r.db.Query(ctx,
		`SELECT order_id, product_id, seller_id, title, price, seller_campus, delivery_fee, line_total
		 FROM order_items WHERE order_id = ANY($1::text[]) ORDER BY order_id, position`,
		pq.Array(ids))
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var orderID string
		var it domain.OrderItem
		if err := rows.Scan(&orderID, &it.ProductID, &it.SellerID, &it.Title, &it.Price,
			&it.SellerCampus, &it.DeliveryFee, &it.LineTotal); err != nil {
			return err
		}
		if i, ok := index[orderID]; ok {
			orders[i].Items = append(orders[i].Items, it)
		}
	}
	return rows.Err()
}

// UpdateStatus moves the order to status. Cancelling puts the products back
// on sale.
func (r *orderRepo) UpdateStatus(ctx context.Context, id string, status domain.OrderStatus) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return apperror.Internal(err)
	}
	defer tx.Rollback(ctx)

	now := time.Now().UTC()
	tag, err := tx.Exec(ctx, `UPDATE orders SET status = $2, updated_at = $3 WHERE id = $1`, id, status, now)
	if err != nil {
		return apperror.Internal(err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}

	if status == domain.OrderCancelled {
		_, err = tx.Exec(ctx,
			`UPDATE products SET status = $1, updated_at = $2
			 WHERE id IN (SELECT product_id FROM order_items WHERE order_id = $3) AND status = $4`,
			domain.ProductAvailable, now, id, domain.ProductSold)
		if err != nil {
			return apperror.Internal(err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return apperror.Internal(err)
	}
	return nil
}
