package categories

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/sokoerp/sokoerp/internal/audit"
	mdshared "github.com/sokoerp/sokoerp/internal/masterdata/shared"
	"github.com/sokoerp/sokoerp/internal/shared"
)

// Service manages the category tree.
type Service struct {
	repo  RepositoryPort
	cache *mdshared.Cache
}

// NewService builds Service.
func NewService(repo RepositoryPort, cache *mdshared.Cache) *Service {
	return &Service{repo: repo, cache: cache}
}

// Create inserts a category and audits the creation.
func (s *Service) Create(ctx context.Context, input Input) (Category, error) {
	var created Category
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxStore) error {
		if input.ParentID != nil {
			if _, err := tx.Get(ctx, *input.ParentID); err != nil {
				return err
			}
		}
		var err error
		created, err = tx.Create(ctx, Category{
			Name:     input.Name,
			ParentID: input.ParentID,
			IsActive: input.IsActive,
		})
		if err != nil {
			return err
		}
		return tx.RecordAudit(ctx, audit.Entry{
			ActorID:    input.ActorID,
			Action:     audit.ActionCreate,
			EntityType: "Category",
			EntityID:   created.ID,
			After:      created,
		})
	})
	if err != nil {
		return Category{}, err
	}
	_ = s.cache.Bump(ctx)
	return created, nil
}

// Update rewrites a category and audits before and after states.
func (s *Service) Update(ctx context.Context, id uuid.UUID, input Input) (Category, error) {
	if input.ParentID != nil && *input.ParentID == id {
		return Category{}, fmt.Errorf("%w: category cannot be its own parent", shared.ErrValidation)
	}
	var updated Category
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxStore) error {
		before, err := tx.Get(ctx, id)
		if err != nil {
			return err
		}
		if input.ParentID != nil {
			if _, err := tx.Get(ctx, *input.ParentID); err != nil {
				return err
			}
		}
		updated = before
		updated.Name = input.Name
		updated.ParentID = input.ParentID
		updated.IsActive = input.IsActive
		if err := tx.Update(ctx, updated); err != nil {
			return err
		}
		return tx.RecordAudit(ctx, audit.Entry{
			ActorID:    input.ActorID,
			Action:     audit.ActionUpdate,
			EntityType: "Category",
			EntityID:   id,
			Before:     before,
			After:      updated,
		})
	})
	if err != nil {
		return Category{}, err
	}
	_ = s.cache.Bump(ctx)
	return updated, nil
}

// Delete removes a category nothing points at.
func (s *Service) Delete(ctx context.Context, id, actorID uuid.UUID) error {
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxStore) error {
		before, err := tx.Get(ctx, id)
		if err != nil {
			return err
		}
		used, err := tx.InUse(ctx, id)
		if err != nil {
			return err
		}
		if used {
			return fmt.Errorf("%w: category %q is in use", shared.ErrReferentialIntegrity, before.Name)
		}
		if err := tx.Delete(ctx, id); err != nil {
			return err
		}
		return tx.RecordAudit(ctx, audit.Entry{
			ActorID:    actorID,
			Action:     audit.ActionDelete,
			EntityType: "Category",
			EntityID:   id,
			Before:     before,
		})
	})
	if err != nil {
		return err
	}
	_ = s.cache.Bump(ctx)
	return nil
}

// Get fetches one category.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (Category, error) {
	return s.repo.Get(ctx, id)
}

// List returns all categories.
func (s *Service) List(ctx context.Context) ([]Category, error) {
	return s.repo.List(ctx)
}
