package inventory

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/sokoerp/sokoerp/internal/audit"
	"github.com/sokoerp/sokoerp/internal/platform/db"
)

// TxStore exposes the operations the service performs inside one
// transaction: event appends, the stock re-read they depend on, and the
// audit record that must commit with them.
type TxStore interface {
	Append(ctx context.Context, m Movement) (Movement, error)
	CurrentStock(ctx context.Context, productID, warehouseID uuid.UUID) (decimal.Decimal, error)
	RecordAudit(ctx context.Context, entry audit.Entry) error
}

// RepositoryPort abstracts repository usage for the service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxStore) error) error
	List(ctx context.Context, filter MovementFilter) ([]Movement, error)
	CurrentStock(ctx context.Context, productID, warehouseID uuid.UUID) (decimal.Decimal, error)
	StockLevels(ctx context.Context, filter StockLevelFilter) ([]StockLevel, error)
}

// Repository persists movements in PostgreSQL.
type Repository struct {
	pool  *pgxpool.Pool
	store *Store
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool, store: NewStore(pool)}
}

type txStore struct {
	store    *Store
	recorder *audit.Recorder
}

func (t *txStore) Append(ctx context.Context, m Movement) (Movement, error) {
	return t.store.Append(ctx, m)
}

func (t *txStore) CurrentStock(ctx context.Context, productID, warehouseID uuid.UUID) (decimal.Decimal, error) {
	return t.store.CurrentStock(ctx, productID, warehouseID)
}

func (t *txStore) RecordAudit(ctx context.Context, entry audit.Entry) error {
	return t.recorder.Record(ctx, entry)
}

// WithTx executes the callback inside a serializable transaction so a
// stock re-read and the appends that follow cannot interleave with another
// writer on the same pair.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxStore) error) error {
	return db.WithSerializableTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txStore{store: NewStore(tx), recorder: audit.NewRecorder(tx)})
	})
}

// List queries movements outside any transaction.
func (r *Repository) List(ctx context.Context, filter MovementFilter) ([]Movement, error) {
	return r.store.List(ctx, filter)
}

// CurrentStock sums movements outside any transaction.
func (r *Repository) CurrentStock(ctx context.Context, productID, warehouseID uuid.UUID) (decimal.Decimal, error) {
	return r.store.CurrentStock(ctx, productID, warehouseID)
}

// StockLevels lists derived stock outside any transaction.
func (r *Repository) StockLevels(ctx context.Context, filter StockLevelFilter) ([]StockLevel, error) {
	return r.store.StockLevels(ctx, filter)
}
