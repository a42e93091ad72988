package users

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

// TxStore exposes user writes plus the audit record that must commit
// with them.
type TxStore interface {
	Create(ctx context.Context, u User) (User, error)
	Get(ctx context.Context, id uuid.UUID) (User, error)
	Update(ctx context.Context, u User) error
	RecordAudit(ctx context.Context, entry audit.Entry) error
}

// RepositoryPort abstracts repository usage for the service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxStore) error) error
	Get(ctx context.Context, id uuid.UUID) (User, error)
	GetByUsername(ctx context.Context, username string) (User, error)
	List(ctx context.Context) ([]User, error)
}

// Repository persists users in PostgreSQL.
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

const userColumns = `id, username, full_name, role, password_hash, is_active, created_at`

func (t *txStore) Create(ctx context.Context, u User) (User, error) {
	if err := u.Validate(); err != nil {
		return User{}, err
	}
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}
	_, err := t.q.Exec(ctx, `
		INSERT INTO users (id, username, full_name, role, password_hash, is_active, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		u.ID, u.Username, u.FullName, u.Role, u.PasswordHash, u.IsActive, u.CreatedAt)
	if err != nil {
		return User{}, db.MapError(err)
	}
	return u, nil
}

func (t *txStore) Get(ctx context.Context, id uuid.UUID) (User, error) {
	return scanUser(t.q.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`, id))
}

func (t *txStore) Update(ctx context.Context, u User) error {
	if err := u.Validate(); err != nil {
		return err
	}
	tag, err := t.q.Exec(ctx, `
		UPDATE users SET username = $2, full_name = $3, role = $4, password_hash = $5, is_active = $6
		WHERE id = $1`,
		u.ID, u.Username, u.FullName, u.Role, u.PasswordHash, u.IsActive)
	if err != nil {
		return db.MapError(err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: user %s", shared.ErrNotFound, u.ID)
	}
	return nil
}

func (t *txStore) RecordAudit(ctx context.Context, entry audit.Entry) error {
	return t.recorder.Record(ctx, entry)
}

// Get fetches one user outside any transaction.
func (r *Repository) Get(ctx context.Context, id uuid.UUID) (User, error) {
	return scanUser(r.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`, id))
}

// GetByUsername fetches one user by unique username.
func (r *Repository) GetByUsername(ctx context.Context, username string) (User, error) {
	return scanUser(r.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE username = $1`, username))
}

// List returns all users ordered by username.
func (r *Repository) List(ctx context.Context) ([]User, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+userColumns+` FROM users ORDER BY username`)
	if err != nil {
		return nil, db.MapError(err)
	}
	defer rows.Close()

	var list []User
	for rows.Next() {
		var u User
		if err := rows.Scan(&u.ID, &u.Username, &u.FullName, &u.Role, &u.PasswordHash, &u.IsActive, &u.CreatedAt); err != nil {
			return nil, db.MapError(err)
		}
		list = append(list, u)
	}
	if err := rows.Err(); err != nil {
		return nil, db.MapError(err)
	}
	return list, nil
}

func scanUser(row pgx.Row) (User, error) {
	var u User
	if err := row.Scan(&u.ID, &u.Username, &u.FullName, &u.Role, &u.PasswordHash, &u.IsActive, &u.CreatedAt); err != nil {
		return User{}, db.MapError(err)
	}
	return u, nil
}
