package ledger

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
// transaction: account writes, entry appends, and the audit record that
// must commit with them.
type TxStore interface {
	CreateAccount(ctx context.Context, a Account) (Account, error)
	GetAccount(ctx context.Context, id uuid.UUID) (Account, error)
	UpdateAccount(ctx context.Context, a Account) error
	DeleteAccount(ctx context.Context, id uuid.UUID) error
	AccountReferenced(ctx context.Context, accountID uuid.UUID) (bool, error)
	AppendEntry(ctx context.Context, e Entry) (Entry, error)
	RecordAudit(ctx context.Context, entry audit.Entry) error
}

// RepositoryPort abstracts repository usage for the service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxStore) error) error
	GetAccount(ctx context.Context, id uuid.UUID) (Account, error)
	GetAccountByName(ctx context.Context, name string) (Account, error)
	ListAccounts(ctx context.Context, activeOnly bool) ([]Account, error)
	ListEntries(ctx context.Context, filter EntryFilter) ([]Entry, error)
	AccountBalance(ctx context.Context, accountID uuid.UUID) (decimal.Decimal, error)
}

// Repository persists accounts and entries in PostgreSQL.
type Repository struct {
	pool     *pgxpool.Pool
	store    *Store
	accounts *AccountStore
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool, store: NewStore(pool), accounts: NewAccountStore(pool)}
}

type txStore struct {
	store    *Store
	accounts *AccountStore
	recorder *audit.Recorder
}

func (t *txStore) CreateAccount(ctx context.Context, a Account) (Account, error) {
	return t.accounts.Create(ctx, a)
}

func (t *txStore) GetAccount(ctx context.Context, id uuid.UUID) (Account, error) {
	return t.accounts.Get(ctx, id)
}

func (t *txStore) UpdateAccount(ctx context.Context, a Account) error {
	return t.accounts.Update(ctx, a)
}

func (t *txStore) DeleteAccount(ctx context.Context, id uuid.UUID) error {
	return t.accounts.Delete(ctx, id)
}

func (t *txStore) AccountReferenced(ctx context.Context, accountID uuid.UUID) (bool, error) {
	return t.store.AccountReferenced(ctx, accountID)
}

func (t *txStore) AppendEntry(ctx context.Context, e Entry) (Entry, error) {
	return t.store.AppendEntry(ctx, e)
}

func (t *txStore) RecordAudit(ctx context.Context, entry audit.Entry) error {
	return t.recorder.Record(ctx, entry)
}

// WithTx executes the callback inside a repeatable-read transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxStore) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txStore{
			store:    NewStore(tx),
			accounts: NewAccountStore(tx),
			recorder: audit.NewRecorder(tx),
		})
	})
}

// GetAccount fetches one account outside any transaction.
func (r *Repository) GetAccount(ctx context.Context, id uuid.UUID) (Account, error) {
	return r.accounts.Get(ctx, id)
}

// GetAccountByName fetches one account by name outside any transaction.
func (r *Repository) GetAccountByName(ctx context.Context, name string) (Account, error) {
	return r.accounts.GetByName(ctx, name)
}

// ListAccounts lists accounts outside any transaction.
func (r *Repository) ListAccounts(ctx context.Context, activeOnly bool) ([]Account, error) {
	return r.accounts.List(ctx, activeOnly)
}

// ListEntries queries entries outside any transaction.
func (r *Repository) ListEntries(ctx context.Context, filter EntryFilter) ([]Entry, error) {
	return r.store.ListEntries(ctx, filter)
}

// AccountBalance sums entries outside any transaction.
func (r *Repository) AccountBalance(ctx context.Context, accountID uuid.UUID) (decimal.Decimal, error) {
	return r.store.AccountBalance(ctx, accountID)
}
