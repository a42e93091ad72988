package warehouses

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/sokoerp/sokoerp/internal/audit"
	mdshared "github.com/sokoerp/sokoerp/internal/masterdata/shared"
	"github.com/sokoerp/sokoerp/internal/shared"
)

// ReferencePort answers whether stock events still point at a
// warehouse.
type ReferencePort interface {
	WarehouseReferenced(ctx context.Context, warehouseID uuid.UUID) (bool, error)
}

// Service manages warehouses.
type Service struct {
	repo  RepositoryPort
	refs  ReferencePort
	cache *mdshared.Cache
}

// NewService builds Service.
func NewService(repo RepositoryPort, refs ReferencePort, cache *mdshared.Cache) *Service {
	return &Service{repo: repo, refs: refs, cache: cache}
}

// Create inserts a warehouse and audits the creation.
func (s *Service) Create(ctx context.Context, input Input) (Warehouse, error) {
	var created Warehouse
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxStore) error {
		var err error
		created, err = tx.Create(ctx, Warehouse{
			Name:     input.Name,
			Location: input.Location,
			IsActive: input.IsActive,
		})
		if err != nil {
			return err
		}
		return tx.RecordAudit(ctx, audit.Entry{
			ActorID:    input.ActorID,
			Action:     audit.ActionCreate,
			EntityType: "Warehouse",
			EntityID:   created.ID,
			After:      created,
		})
	})
	if err != nil {
		return Warehouse{}, err
	}
	_ = s.cache.Bump(ctx)
	return created, nil
}

// Update rewrites a warehouse and audits before and after states.
func (s *Service) Update(ctx context.Context, id uuid.UUID, input Input) (Warehouse, error) {
	var updated Warehouse
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxStore) error {
		before, err := tx.Get(ctx, id)
		if err != nil {
			return err
		}
		updated = before
		updated.Name = input.Name
		updated.Location = input.Location
		updated.IsActive = input.IsActive
		if err := tx.Update(ctx, updated); err != nil {
			return err
		}
		return tx.RecordAudit(ctx, audit.Entry{
			ActorID:    input.ActorID,
			Action:     audit.ActionUpdate,
			EntityType: "Warehouse",
			EntityID:   id,
			Before:     before,
			After:      updated,
		})
	})
	if err != nil {
		return Warehouse{}, err
	}
	_ = s.cache.Bump(ctx)
	return updated, nil
}

// Delete removes a warehouse no stock event references.
func (s *Service) Delete(ctx context.Context, id, actorID uuid.UUID) error {
	referenced, err := s.refs.WarehouseReferenced(ctx, id)
	if err != nil {
		return err
	}
	if referenced {
		return fmt.Errorf("%w: warehouse has stock movements", shared.ErrReferentialIntegrity)
	}
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxStore) error {
		before, err := tx.Get(ctx, id)
		if err != nil {
			return err
		}
		if err := tx.Delete(ctx, id); err != nil {
			return err
		}
		return tx.RecordAudit(ctx, audit.Entry{
			ActorID:    actorID,
			Action:     audit.ActionDelete,
			EntityType: "Warehouse",
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

// Get fetches one warehouse.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (Warehouse, error) {
	return s.repo.Get(ctx, id)
}

// List returns a page of warehouses.
func (s *Service) List(ctx context.Context, filters mdshared.ListFilters) ([]Warehouse, shared.Pagination, error) {
	filters = filters.Normalize()
	list, total, err := s.repo.List(ctx, filters)
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	return list, shared.NewPagination(filters.Page, filters.PerPage, total), nil
}
