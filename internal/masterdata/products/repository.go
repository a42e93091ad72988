package products

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sokoerp/sokoerp/internal/audit"
	mdshared "github.com/sokoerp/sokoerp/internal/masterdata/shared"
	"github.com/sokoerp/sokoerp/internal/platform/db"
	"github.com/sokoerp/sokoerp/internal/shared"
)

// TxStore exposes the product writes performed inside one transaction
// together with the audit record that must commit with them.
type TxStore interface {
	Create(ctx context.Context, p Product) (Product, error)
	Get(ctx context.Context, id uuid.UUID) (Product, error)
	Update(ctx context.Context, p Product) error
	Delete(ctx context.Context, id uuid.UUID) error
	RecordAudit(ctx context.Context, entry audit.Entry) error
}

// RepositoryPort abstracts repository usage for the service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxStore) error) error
	Get(ctx context.Context, id uuid.UUID) (Product, error)
	List(ctx context.Context, filters mdshared.ListFilters) ([]Product, int, error)
}

// Repository persists products in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

type txStore struct {
	q        db.Querier
	recorder *audit.Recorder
}

// WithTx executes the callback inside a repeatable-read transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxStore) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txStore{q: tx, recorder: audit.NewRecorder(tx)})
	})
}

const productColumns = `id, sku, name, category_id, unit_cost, unit_price, tracks_stock, is_active, created_at`

func scanProduct(row pgx.Row) (Product, error) {
	var p Product
	err := row.Scan(&p.ID, &p.SKU, &p.Name, &p.CategoryID, &p.UnitCost, &p.UnitPrice,
		&p.TracksStock, &p.IsActive, &p.CreatedAt)
	if err != nil {
		return Product{}, db.MapError(err)
	}
	return p, nil
}

func (t *txStore) Create(ctx context.Context, p Product) (Product, error) {
	if err := p.Validate(); err != nil {
		return Product{}, err
	}
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	_, err := t.q.Exec(ctx, `
		INSERT INTO products (`+productColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		p.ID, p.SKU, p.Name, p.CategoryID, p.UnitCost, p.UnitPrice,
		p.TracksStock, p.IsActive, p.CreatedAt)
	if err != nil {
		return Product{}, db.MapError(err)
	}
	return p, nil
}

func (t *txStore) Get(ctx context.Context, id uuid.UUID) (Product, error) {
	return scanProduct(t.q.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, id))
}

func (t *txStore) Update(ctx context.Context, p Product) error {
	if err := p.Validate(); err != nil {
		return err
	}
	tag, err := t.q.Exec(ctx, `
		UPDATE products
		SET sku = $2, name = $3, category_id = $4, unit_cost = $5, unit_price = $6,
		    tracks_stock = $7, is_active = $8
		WHERE id = $1`,
		p.ID, p.SKU, p.Name, p.CategoryID, p.UnitCost, p.UnitPrice, p.TracksStock, p.IsActive)
	if err != nil {
		return db.MapError(err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: product %s", shared.ErrNotFound, p.ID)
	}
	return nil
}

func (t *txStore) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := t.q.Exec(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return db.MapError(err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: product %s", shared.ErrNotFound, id)
	}
	return nil
}

func (t *txStore) RecordAudit(ctx context.Context, entry audit.Entry) error {
	return t.recorder.Record(ctx, entry)
}

// Get fetches one product outside any transaction.
func (r *Repository) Get(ctx context.Context, id uuid.UUID) (Product, error) {
	return scanProduct(r.pool.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, id))
}

// List returns a page of products plus the unpaged count.
func (r *Repository) List(ctx context.Context, filters mdshared.ListFilters) ([]Product, int, error) {
	filters = filters.Normalize()
	where := ` WHERE 1=1`
	args := []any{}
	if filters.Search != "" {
		args = append(args, "%"+filters.Search+"%")
		n := strconv.Itoa(len(args))
		where += ` AND (sku ILIKE $` + n + ` OR name ILIKE $` + n + `)`
	}
	if filters.ActiveOnly {
		where += ` AND is_active = TRUE`
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM products`+where, args...).Scan(&total); err != nil {
		return nil, 0, db.MapError(err)
	}

	args = append(args, filters.PerPage)
	limit := strconv.Itoa(len(args))
	args = append(args, (filters.Page-1)*filters.PerPage)
	offset := strconv.Itoa(len(args))
	rows, err := r.pool.Query(ctx, `SELECT `+productColumns+` FROM products`+where+
		` ORDER BY name LIMIT $`+limit+` OFFSET $`+offset, args...)
	if err != nil {
		return nil, 0, db.MapError(err)
	}
	defer rows.Close()

	var list []Product
	for rows.Next() {
		var p Product
		if err := rows.Scan(&p.ID, &p.SKU, &p.Name, &p.CategoryID, &p.UnitCost, &p.UnitPrice,
			&p.TracksStock, &p.IsActive, &p.CreatedAt); err != nil {
			return nil, 0, db.MapError(err)
		}
		list = append(list, p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, db.MapError(err)
	}
	return list, total, nil
}
