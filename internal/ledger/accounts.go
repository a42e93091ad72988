package ledger

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/sokoerp/sokoerp/internal/platform/db"
	"github.com/sokoerp/sokoerp/internal/shared"
)

// AccountStore persists chart-of-accounts rows. Accounts are mutable
// masterdata; only their entries are append-only.
type AccountStore struct {
	q db.Querier
}

// NewAccountStore builds an AccountStore over a pool or transaction.
func NewAccountStore(q db.Querier) *AccountStore {
	return &AccountStore{q: q}
}

// Create inserts an account. Name carries a unique constraint.
func (s *AccountStore) Create(ctx context.Context, a Account) (Account, error) {
	if err := a.Validate(); err != nil {
		return Account{}, err
	}
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	_, err := s.q.Exec(ctx, `
		INSERT INTO accounts (id, name, account_type, is_active, created_at)
		VALUES ($1, $2, $3, $4, $5)`,
		a.ID, a.Name, string(a.Type), a.IsActive, a.CreatedAt)
	if err != nil {
		return Account{}, db.MapError(err)
	}
	return a, nil
}

// Get fetches one account by id.
func (s *AccountStore) Get(ctx context.Context, id uuid.UUID) (Account, error) {
	return s.scanOne(ctx, `
		SELECT id, name, account_type, is_active, created_at
		FROM accounts WHERE id = $1`, id)
}

// GetByName fetches one account by its unique name.
func (s *AccountStore) GetByName(ctx context.Context, name string) (Account, error) {
	return s.scanOne(ctx, `
		SELECT id, name, account_type, is_active, created_at
		FROM accounts WHERE name = $1`, name)
}

func (s *AccountStore) scanOne(ctx context.Context, query string, arg any) (Account, error) {
	var a Account
	var accType string
	err := s.q.QueryRow(ctx, query, arg).Scan(&a.ID, &a.Name, &accType, &a.IsActive, &a.CreatedAt)
	if err != nil {
		return Account{}, db.MapError(err)
	}
	a.Type = AccountType(accType)
	return a, nil
}

// List returns accounts, optionally restricted to active ones.
func (s *AccountStore) List(ctx context.Context, activeOnly bool) ([]Account, error) {
	query := `
		SELECT id, name, account_type, is_active, created_at
		FROM accounts
		WHERE 1=1`
	args := []any{}
	if activeOnly {
		args = append(args, true)
		query += ` AND is_active = $` + strconv.Itoa(len(args))
	}
	query += ` ORDER BY name`

	rows, err := s.q.Query(ctx, query, args...)
	if err != nil {
		return nil, db.MapError(err)
	}
	defer rows.Close()

	var accounts []Account
	for rows.Next() {
		var a Account
		var accType string
		if err := rows.Scan(&a.ID, &a.Name, &accType, &a.IsActive, &a.CreatedAt); err != nil {
			return nil, db.MapError(err)
		}
		a.Type = AccountType(accType)
		accounts = append(accounts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, db.MapError(err)
	}
	return accounts, nil
}

// Update rewrites the mutable account fields.
func (s *AccountStore) Update(ctx context.Context, a Account) error {
	if err := a.Validate(); err != nil {
		return err
	}
	tag, err := s.q.Exec(ctx, `
		UPDATE accounts SET name = $2, account_type = $3, is_active = $4
		WHERE id = $1`,
		a.ID, a.Name, string(a.Type), a.IsActive)
	if err != nil {
		return db.MapError(err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: account %s", shared.ErrNotFound, a.ID)
	}
	return nil
}

// Delete removes an account row. Callers must check AccountReferenced
// first; the foreign key backs that check up.
func (s *AccountStore) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := s.q.Exec(ctx, `DELETE FROM accounts WHERE id = $1`, id)
	if err != nil {
		return db.MapError(err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: account %s", shared.ErrNotFound, id)
	}
	return nil
}
