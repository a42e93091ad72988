package ledger

import (
	"context"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/sokoerp/sokoerp/internal/platform/db"
	"github.com/sokoerp/sokoerp/internal/shared"
)

// Store is the append-only event store for ledger entries. Like the stock
// movement store it exposes no update or delete.
type Store struct {
	q db.Querier
}

// NewStore builds a Store over a pool or transaction.
func NewStore(q db.Querier) *Store {
	return &Store{q: q}
}

// AppendEntry validates and persists one entry.
func (s *Store) AppendEntry(ctx context.Context, e Entry) (Entry, error) {
	e.Amount = shared.RoundMoney(e.Amount)
	if err := e.Validate(); err != nil {
		return Entry{}, err
	}
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	_, err := s.q.Exec(ctx, `
		INSERT INTO ledger_entries (id, account_id, amount, reference_kind, reference_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		e.ID, e.AccountID, e.Amount, string(e.ReferenceKind), e.ReferenceID, e.CreatedAt)
	if err != nil {
		return Entry{}, db.MapError(err)
	}
	return e, nil
}

// AccountBalance sums the signed amounts of an account's entries; zero
// when none exist.
func (s *Store) AccountBalance(ctx context.Context, accountID uuid.UUID) (decimal.Decimal, error) {
	var balance decimal.Decimal
	err := s.q.QueryRow(ctx, `
		SELECT COALESCE(SUM(amount), 0)
		FROM ledger_entries
		WHERE account_id = $1`, accountID).Scan(&balance)
	if err != nil {
		return decimal.Zero, db.MapError(err)
	}
	return balance, nil
}

// ListEntries returns entries matching the filter, ordered by creation
// time with a stable identifier tie-break.
func (s *Store) ListEntries(ctx context.Context, filter EntryFilter) ([]Entry, error) {
	query := `
		SELECT id, account_id, amount, reference_kind, reference_id, created_at
		FROM ledger_entries
		WHERE 1=1`
	args := []any{}
	if filter.AccountID != nil {
		args = append(args, *filter.AccountID)
		query += ` AND account_id = $` + strconv.Itoa(len(args))
	}
	if filter.ReferenceKind != "" {
		args = append(args, string(filter.ReferenceKind))
		query += ` AND reference_kind = $` + strconv.Itoa(len(args))
	}
	if filter.ReferenceID != nil {
		args = append(args, *filter.ReferenceID)
		query += ` AND reference_id = $` + strconv.Itoa(len(args))
	}
	if !filter.From.IsZero() {
		args = append(args, filter.From)
		query += ` AND created_at >= $` + strconv.Itoa(len(args))
	}
	if !filter.To.IsZero() {
		args = append(args, filter.To)
		query += ` AND created_at < $` + strconv.Itoa(len(args))
	}
	query += ` ORDER BY created_at, id`
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += ` LIMIT $` + strconv.Itoa(len(args))
	}

	rows, err := s.q.Query(ctx, query, args...)
	if err != nil {
		return nil, db.MapError(err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var refKind string
		if err := rows.Scan(&e.ID, &e.AccountID, &e.Amount, &refKind, &e.ReferenceID, &e.CreatedAt); err != nil {
			return nil, db.MapError(err)
		}
		e.ReferenceKind = ReferenceKind(refKind)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, db.MapError(err)
	}
	return entries, nil
}

// AccountReferenced reports whether any entry points at the account.
func (s *Store) AccountReferenced(ctx context.Context, accountID uuid.UUID) (bool, error) {
	var exists bool
	err := s.q.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM ledger_entries WHERE account_id = $1)`, accountID).Scan(&exists)
	if err != nil {
		return false, db.MapError(err)
	}
	return exists, nil
}
