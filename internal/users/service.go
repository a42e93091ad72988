package users

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/sokoerp/sokoerp/internal/audit"
	"github.com/sokoerp/sokoerp/internal/rbac"
	"github.com/sokoerp/sokoerp/internal/shared"
)

// Service manages operator accounts.
type Service struct {
	repo RepositoryPort
}

// NewService builds Service.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo}
}

// Create inserts a user with a bcrypt password hash and audits the
// creation. Audit snapshots never carry the hash.
func (s *Service) Create(ctx context.Context, input Input) (User, error) {
	if input.Password == "" {
		return User{}, fmt.Errorf("%w: password required", shared.ErrValidation)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return User{}, fmt.Errorf("hash password: %w", err)
	}
	var created User
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxStore) error {
		var err error
		created, err = tx.Create(ctx, User{
			Username:     input.Username,
			FullName:     input.FullName,
			Role:         input.Role,
			PasswordHash: string(hash),
			IsActive:     input.IsActive,
		})
		if err != nil {
			return err
		}
		return tx.RecordAudit(ctx, audit.Entry{
			ActorID:    input.ActorID,
			Action:     audit.ActionCreate,
			EntityType: "User",
			EntityID:   created.ID,
			After:      created,
		})
	})
	if err != nil {
		return User{}, err
	}
	return created, nil
}

// Update rewrites profile fields. The password is changed only through
// SetPassword.
func (s *Service) Update(ctx context.Context, id uuid.UUID, input Input) (User, error) {
	var updated User
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxStore) error {
		before, err := tx.Get(ctx, id)
		if err != nil {
			return err
		}
		updated = before
		updated.Username = input.Username
		updated.FullName = input.FullName
		updated.Role = input.Role
		updated.IsActive = input.IsActive
		if err := tx.Update(ctx, updated); err != nil {
			return err
		}
		return tx.RecordAudit(ctx, audit.Entry{
			ActorID:    input.ActorID,
			Action:     audit.ActionUpdate,
			EntityType: "User",
			EntityID:   id,
			Before:     before,
			After:      updated,
		})
	})
	if err != nil {
		return User{}, err
	}
	return updated, nil
}

// SetPassword replaces the stored hash. The audit entry records that a
// change happened, not the material.
func (s *Service) SetPassword(ctx context.Context, id uuid.UUID, password string, actorID uuid.UUID) error {
	if len(password) < 8 {
		return fmt.Errorf("%w: password must be at least 8 characters", shared.ErrValidation)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	return s.repo.WithTx(ctx, func(ctx context.Context, tx TxStore) error {
		u, err := tx.Get(ctx, id)
		if err != nil {
			return err
		}
		u.PasswordHash = string(hash)
		if err := tx.Update(ctx, u); err != nil {
			return err
		}
		return tx.RecordAudit(ctx, audit.Entry{
			ActorID:    actorID,
			Action:     audit.ActionUpdate,
			EntityType: "User",
			EntityID:   id,
			After:      map[string]string{"password": "rotated"},
		})
	})
}

// VerifyPassword checks a candidate password against the stored hash.
func (s *Service) VerifyPassword(ctx context.Context, username, password string) (User, error) {
	u, err := s.repo.GetByUsername(ctx, username)
	if err != nil {
		return User{}, err
	}
	if !u.IsActive {
		return User{}, fmt.Errorf("%w: user %q is inactive", shared.ErrInvalidState, username)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return User{}, fmt.Errorf("%w: invalid credentials", shared.ErrValidation)
	}
	return u, nil
}

// Get fetches one user.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (User, error) {
	return s.repo.Get(ctx, id)
}

// List returns all users.
func (s *Service) List(ctx context.Context) ([]User, error) {
	return s.repo.List(ctx)
}

// Lookup resolves an active user to a request principal. It satisfies
// the authorization middleware's directory port.
func (s *Service) Lookup(ctx context.Context, userID uuid.UUID) (shared.Principal, error) {
	u, err := s.repo.Get(ctx, userID)
	if err != nil {
		return shared.Principal{}, err
	}
	if !u.IsActive {
		return shared.Principal{}, fmt.Errorf("%w: user %q is inactive", shared.ErrInvalidState, u.Username)
	}
	return shared.Principal{
		UserID:       u.ID,
		Username:     u.Username,
		Capabilities: rbac.Capabilities(u.Role),
	}, nil
}
