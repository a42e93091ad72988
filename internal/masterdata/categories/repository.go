package categories

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sokoerp/sokoerp/internal/audit"
	"github.com/sokoerp/sokoerp/internal/platform/db"
	"github.com/sokoerp/sokoerp/internal/shared"
)

// TxStore exposes category writes plus the audit record that must
// commit with them.
type TxStore interface {
	Create(ctx context.Context, c Category) (Category, error)
	Get(ctx context.Context, id uuid.UUID) (Category, error)
	Update(ctx context.Context, c Category) error
	Delete(ctx context.Context, id uuid.UUID) error
	InUse(ctx context.Context, id uuid.UUID) (bool, error)
	RecordAudit(ctx context.Context, entry audit.Entry) error
}

// RepositoryPort abstracts repository usage for the service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxStore) error) error
	Get(ctx context.Context, id uuid.UUID) (Category, error)
	List(ctx context.Context) ([]Category, error)
}

// Repository persists categories in PostgreSQL.
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

func (t *txStore) Create(ctx context.Context, c Category) (Category, error) {
	if err := c.Validate(); err != nil {
		return Category{}, err
	}
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	_, err := t.q.Exec(ctx, `
		INSERT INTO categories (id, name, parent_id, is_active, created_at)
		VALUES ($1, $2, $3, $4, $5)`,
		c.ID, c.Name, c.ParentID, c.IsActive, c.CreatedAt)
	if err != nil {
		return Category{}, db.MapError(err)
	}
	return c, nil
}

func (t *txStore) Get(ctx context.Context, id uuid.UUID) (Category, error) {
	return scanCategory(t.q.QueryRow(ctx, `
		SELECT id, name, parent_id, is_active, created_at FROM categories WHERE id = $1`, id))
}

func (t *txStore) Update(ctx context.Context, c Category) error {
	if err := c.Validate(); err != nil {
		return err
	}
	tag, err := t.q.Exec(ctx, `
		UPDATE categories SET name = $2, parent_id = $3, is_active = $4 WHERE id = $1`,
		c.ID, c.Name, c.ParentID, c.IsActive)
	if err != nil {
		return db.MapError(err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: category %s", shared.ErrNotFound, c.ID)
	}
	return nil
}

func (t *txStore) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := t.q.Exec(ctx, `DELETE FROM categories WHERE id = $1`, id)
	if err != nil {
		return db.MapError(err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: category %s", shared.ErrNotFound, id)
	}
	return nil
}

// InUse reports whether any product or child category points at the
// category.
func (t *txStore) InUse(ctx context.Context, id uuid.UUID) (bool, error) {
	var used bool
	err := t.q.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM products WHERE category_id = $1)
		    OR EXISTS (SELECT 1 FROM categories WHERE parent_id = $1)`, id).Scan(&used)
	if err != nil {
		return false, db.MapError(err)
	}
	return used, nil
}

func (t *txStore) RecordAudit(ctx context.Context, entry audit.Entry) error {
	return t.recorder.Record(ctx, entry)
}

func scanCategory(row pgx.Row) (Category, error) {
	var c Category
	if err := row.Scan(&c.ID, &c.Name, &c.ParentID, &c.IsActive, &c.CreatedAt); err != nil {
		return Category{}, db.MapError(err)
	}
	return c, nil
}

// Get fetches one category outside any transaction.
func (r *Repository) Get(ctx context.Context, id uuid.UUID) (Category, error) {
	return scanCategory(r.pool.QueryRow(ctx, `
		SELECT id, name, parent_id, is_active, created_at FROM categories WHERE id = $1`, id))
}

// List returns all categories ordered by name; the tree is assembled by
// the caller.
func (r *Repository) List(ctx context.Context) ([]Category, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, name, parent_id, is_active, created_at FROM categories ORDER BY name`)
	if err != nil {
		return nil, db.MapError(err)
	}
	defer rows.Close()

	var list []Category
	for rows.Next() {
		var c Category
		if err := rows.Scan(&c.ID, &c.Name, &c.ParentID, &c.IsActive, &c.CreatedAt); err != nil {
			return nil, db.MapError(err)
		}
		list = append(list, c)
	}
	if err := rows.Err(); err != nil {
		return nil, db.MapError(err)
	}
	return list, nil
}
