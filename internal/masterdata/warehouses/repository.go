package warehouses

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

// TxStore exposes warehouse writes plus the audit record that must
// commit with them.
type TxStore interface {
	Create(ctx context.Context, w Warehouse) (Warehouse, error)
	Get(ctx context.Context, id uuid.UUID) (Warehouse, error)
	Update(ctx context.Context, w Warehouse) error
	Delete(ctx context.Context, id uuid.UUID) error
	RecordAudit(ctx context.Context, entry audit.Entry) error
}

// RepositoryPort abstracts repository usage for the service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxStore) error) error
	Get(ctx context.Context, id uuid.UUID) (Warehouse, error)
	List(ctx context.Context, filters mdshared.ListFilters) ([]Warehouse, int, error)
}

// Repository persists warehouses in PostgreSQL.
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

const warehouseColumns = `id, name, location, is_active, created_at`

func (t *txStore) Create(ctx context.Context, w Warehouse) (Warehouse, error) {
	if err := w.Validate(); err != nil {
		return Warehouse{}, err
	}
	if w.ID == uuid.Nil {
		w.ID = uuid.New()
	}
	if w.CreatedAt.IsZero() {
		w.CreatedAt = time.Now().UTC()
	}
	_, err := t.q.Exec(ctx, `
		INSERT INTO warehouses (`+warehouseColumns+`)
		VALUES ($1, $2, $3, $4, $5)`,
		w.ID, w.Name, w.Location, w.IsActive, w.CreatedAt)
	if err != nil {
		return Warehouse{}, db.MapError(err)
	}
	return w, nil
}

func (t *txStore) Get(ctx context.Context, id uuid.UUID) (Warehouse, error) {
	return scanWarehouse(t.q.QueryRow(ctx, `SELECT `+warehouseColumns+` FROM warehouses WHERE id = $1`, id))
}

func (t *txStore) Update(ctx context.Context, w Warehouse) error {
	if err := w.Validate(); err != nil {
		return err
	}
	tag, err := t.q.Exec(ctx, `
		UPDATE warehouses SET name = $2, location = $3, is_active = $4 WHERE id = $1`,
		w.ID, w.Name, w.Location, w.IsActive)
	if err != nil {
		return db.MapError(err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: warehouse %s", shared.ErrNotFound, w.ID)
	}
	return nil
}

func (t *txStore) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := t.q.Exec(ctx, `DELETE FROM warehouses WHERE id = $1`, id)
	if err != nil {
		return db.MapError(err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: warehouse %s", shared.ErrNotFound, id)
	}
	return nil
}

func (t *txStore) RecordAudit(ctx context.Context, entry audit.Entry) error {
	return t.recorder.Record(ctx, entry)
}

func scanWarehouse(row pgx.Row) (Warehouse, error) {
	var w Warehouse
	if err := row.Scan(&w.ID, &w.Name, &w.Location, &w.IsActive, &w.CreatedAt); err != nil {
		return Warehouse{}, db.MapError(err)
	}
	return w, nil
}

// Get fetches one warehouse outside any transaction.
func (r *Repository) Get(ctx context.Context, id uuid.UUID) (Warehouse, error) {
	return scanWarehouse(r.pool.QueryRow(ctx, `SELECT `+warehouseColumns+` FROM warehouses WHERE id = $1`, id))
}

// List returns a page of warehouses plus the unpaged count.
func (r *Repository) List(ctx context.Context, filters mdshared.ListFilters) ([]Warehouse, int, error) {
	filters = filters.Normalize()
	where := ` WHERE 1=1`
	args := []any{}
	if filters.Search != "" {
		args = append(args, "%"+filters.Search+"%")
		n := strconv.Itoa(len(args))
		where += ` AND (name ILIKE $` + n + ` OR location ILIKE $` + n + `)`
	}
	if filters.ActiveOnly {
		where += ` AND is_active = TRUE`
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM warehouses`+where, args...).Scan(&total); err != nil {
		return nil, 0, db.MapError(err)
	}

	args = append(args, filters.PerPage)
	limit := strconv.Itoa(len(args))
	args = append(args, (filters.Page-1)*filters.PerPage)
	offset := strconv.Itoa(len(args))
	rows, err := r.pool.Query(ctx, `SELECT `+warehouseColumns+` FROM warehouses`+where+
		` ORDER BY name LIMIT $`+limit+` OFFSET $`+offset, args...)
	if err != nil {
		return nil, 0, db.MapError(err)
	}
	defer rows.Close()

	var list []Warehouse
	for rows.Next() {
		var w Warehouse
		if err := rows.Scan(&w.ID, &w.Name, &w.Location, &w.IsActive, &w.CreatedAt); err != nil {
			return nil, 0, db.MapError(err)
		}
		list = append(list, w)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, db.MapError(err)
	}
	return list, total, nil
}
