// This file defines the product repository used by the catalog service.
// Queries return model.Product values; a missing row is ErrProductNotFound.
package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/faizvk/ecommerce-app/internal/model"
)

// ProductRepo encapsulates all database queries related to products.
type ProductRepo struct {
	db *sql.DB
}

func NewProductRepo(db *sql.DB) *ProductRepo { return &ProductRepo{db: db} }

const productColumns = "id, name, description, category, cost_price, sale_price, stock, images, seller_id, created_at, updated_at"

// sortColumns whitelists the columns a search may order by.
var sortColumns = map[string]string{
	"createdAt": "created_at",
	"salePrice": "sale_price",
	"name":      "name",
}

func scanProduct(row rowScanner) (*model.Product, error) {
	var (
		p      model.Product
		images []byte
	)
	if err := row.Scan(&p.ID, &p.Name, &p.Description, &p.Category, &p.CostPrice, &p.SalePrice,
		&p.Stock, &images, &p.SellerID, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	p.Images = []string{}
	if len(images) > 0 {
		if err := json.Unmarshal(images, &p.Images); err != nil {
			return nil, err
		}
	}
	return &p, nil
}

func encodeImages(images []string) ([]byte, error) {
	if images == nil {
		images = []string{}
	}
	return json.Marshal(images)
}

// Create inserts p, assigning its ID and timestamps.
func (r *ProductRepo) Create(ctx context.Context, p *model.Product) error {
	images, err := encodeImages(p.Images)
	if err != nil {
		return err
	}
	p.ID = uuid.NewString()
	now := time.Now().UTC().Truncate(time.Millisecond)
	p.CreatedAt, p.UpdatedAt = now, now
	if p.Images == nil {
		p.Images = []string{}
	}
	_, err = r.db.ExecContext(ctx,
		"INSERT INTO products ("+productColumns+") VALUES (?,?,?,?,?,?,?,?,?,?,?)",
		p.ID, p.Name, p.Description, p.Category, p.CostPrice, p.SalePrice, p.Stock, images, p.SellerID, p.CreatedAt, p.UpdatedAt)
	if err != nil && isDuplicate(err) {
		return ErrConflict
	}
	return err
}

// GetByID fetches a product by id.
func (r *ProductRepo) GetByID(ctx context.Context, id string) (*model.Product, error) {
	p, err := scanProduct(r.db.QueryRowContext(ctx,
		"SELECT "+productColumns+" FROM products WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrProductNotFound
	}
	return p, err
}

// ListAll returns every product, newest first.
func (r *ProductRepo) ListAll(ctx context.Context) ([]model.Product, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT "+productColumns+" FROM products ORDER BY created_at DESC")
	if err != nil {
		return nil, err
	}
	return collectProducts(rows)
}

func collectProducts(rows *sql.Rows) ([]model.Product, error) {
	defer rows.Close()
	out := []model.Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// Search returns one page of products matching q and the total match count.
// q.Page and q.Limit must already be normalized (both ≥ 1).
func (r *ProductRepo) Search(ctx context.Context, q model.ProductQuery) ([]model.Product, int, error) {
	where := []string{"1=1"}
	args := []any{}
	if q.Name != "" {
		where = append(where, "LOWER(name) LIKE ?")
		args = append(args, "%"+escapeLike(strings.ToLower(q.Name))+"%")
	}
	if q.Category != "" {
		where = append(where, "category = ?")
		args = append(args, q.Category)
	}
	if q.MinPrice != nil {
		where = append(where, "sale_price >= ?")
		args = append(args, *q.MinPrice)
	}
	if q.MaxPrice != nil {
		where = append(where, "sale_price <= ?")
		args = append(args, *q.MaxPrice)
	}
	cond := strings.Join(where, " AND ")

	var total int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM products WHERE "+cond, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	col, ok := sortColumns[q.SortBy]
	if !ok {
		col = "created_at"
	}
	dir := "DESC"
	if strings.EqualFold(q.Order, "asc") {
		dir = "ASC"
	}
	pageArgs := append(append([]any{}, args...), q.Limit, (q.Page-1)*q.Limit)
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+productColumns+" FROM products WHERE "+cond+" ORDER BY "+col+" "+dir+", id LIMIT ? OFFSET ?",
		pageArgs...)
	if err != nil {
		return nil, 0, err
	}
	products, err := collectProducts(rows)
	return products, total, err
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

// Update writes every mutable field of p.  It returns ErrProductNotFound
// when no row has p.ID.
func (r *ProductRepo) Update(ctx context.Context, p *model.Product) error {
	images, err := encodeImages(p.Images)
	if err != nil {
		return err
	}
	p.UpdatedAt = time.Now().UTC().Truncate(time.Millisecond)
	res, err := r.db.ExecContext(ctx,
		`UPDATE products
		 SET name = ?, description = ?, category = ?, cost_price = ?, sale_price = ?, stock = ?, images = ?, updated_at = ?
		 WHERE id = ?`,
		p.Name, p.Description, p.Category, p.CostPrice, p.SalePrice, p.Stock, images, p.UpdatedAt, p.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrProductNotFound
	}
	return nil
}

// Delete removes the product and returns the row as it was.
func (r *ProductRepo) Delete(ctx context.Context, id string) (*model.Product, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	p, err := scanProduct(tx.QueryRowContext(ctx,
		"SELECT "+productColumns+" FROM products WHERE id = ? FOR UPDATE", id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrProductNotFound
		}
		return nil, err
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM products WHERE id = ?", id); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return p, nil
}
