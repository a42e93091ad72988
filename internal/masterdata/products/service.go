package products

import (
	"context"
	"fmt"
	"strconv"

	"github.com/google/uuid"

	"github.com/sokoerp/sokoerp/internal/audit"
	mdshared "github.com/sokoerp/sokoerp/internal/masterdata/shared"
	"github.com/sokoerp/sokoerp/internal/shared"
)

// ReferencePort answers whether stock events still point at a product.
// Backed by the stock movement store.
type ReferencePort interface {
	ProductReferenced(ctx context.Context, productID uuid.UUID) (bool, error)
}

// Service manages the product catalog. Reads go through the masterdata
// cache; every write bumps it.
type Service struct {
	repo  RepositoryPort
	refs  ReferencePort
	cache *mdshared.Cache
}

// NewService builds Service.
func NewService(repo RepositoryPort, refs ReferencePort, cache *mdshared.Cache) *Service {
	return &Service{repo: repo, refs: refs, cache: cache}
}

// Create inserts a product and audits the creation.
func (s *Service) Create(ctx context.Context, input Input) (Product, error) {
	var created Product
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxStore) error {
		var err error
		created, err = tx.Create(ctx, Product{
			SKU:         input.SKU,
			Name:        input.Name,
			CategoryID:  input.CategoryID,
			UnitCost:    shared.RoundMoney(input.UnitCost),
			UnitPrice:   shared.RoundMoney(input.UnitPrice),
			TracksStock: input.TracksStock,
			IsActive:    input.IsActive,
		})
		if err != nil {
			return err
		}
		return tx.RecordAudit(ctx, audit.Entry{
			ActorID:    input.ActorID,
			Action:     audit.ActionCreate,
			EntityType: "Product",
			EntityID:   created.ID,
			After:      created,
		})
	})
	if err != nil {
		return Product{}, err
	}
	_ = s.cache.Bump(ctx)
	return created, nil
}

// Update rewrites a product and audits before and after states.
func (s *Service) Update(ctx context.Context, id uuid.UUID, input Input) (Product, error) {
	var updated Product
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxStore) error {
		before, err := tx.Get(ctx, id)
		if err != nil {
			return err
		}
		updated = before
		updated.SKU = input.SKU
		updated.Name = input.Name
		updated.CategoryID = input.CategoryID
		updated.UnitCost = shared.RoundMoney(input.UnitCost)
		updated.UnitPrice = shared.RoundMoney(input.UnitPrice)
		updated.TracksStock = input.TracksStock
		updated.IsActive = input.IsActive
		if err := tx.Update(ctx, updated); err != nil {
			return err
		}
		return tx.RecordAudit(ctx, audit.Entry{
			ActorID:    input.ActorID,
			Action:     audit.ActionUpdate,
			EntityType: "Product",
			EntityID:   id,
			Before:     before,
			After:      updated,
		})
	})
	if err != nil {
		return Product{}, err
	}
	_ = s.cache.Bump(ctx)
	return updated, nil
}

// Delete removes a product no stock event references. Products with
// history are refused; deactivate them instead.
func (s *Service) Delete(ctx context.Context, id, actorID uuid.UUID) error {
	referenced, err := s.refs.ProductReferenced(ctx, id)
	if err != nil {
		return err
	}
	if referenced {
		return fmt.Errorf("%w: product has stock movements", shared.ErrReferentialIntegrity)
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
			EntityType: "Product",
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

// Get fetches one product through the cache.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (Product, error) {
	key, err := s.cache.BuildKey(ctx, "masterdata", "products", id.String())
	if err != nil {
		return s.repo.Get(ctx, id)
	}
	var p Product
	err = s.cache.FetchJSON(ctx, key, &p, func(ctx context.Context) (any, error) {
		return s.repo.Get(ctx, id)
	})
	if err != nil {
		return Product{}, err
	}
	return p, nil
}

// List returns a page of products through the cache.
func (s *Service) List(ctx context.Context, filters mdshared.ListFilters) ([]Product, shared.Pagination, error) {
	filters = filters.Normalize()
	type page struct {
		Products []Product `json:"products"`
		Total    int       `json:"total"`
	}
	load := func(ctx context.Context) (any, error) {
		list, total, err := s.repo.List(ctx, filters)
		if err != nil {
			return nil, err
		}
		return page{Products: list, Total: total}, nil
	}
	key, err := s.cache.BuildKey(ctx, "masterdata", "products",
		strconv.Itoa(filters.Page), strconv.Itoa(filters.PerPage), filters.Search,
		strconv.FormatBool(filters.ActiveOnly))
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	var result page
	if err := s.cache.FetchJSON(ctx, key, &result, load); err != nil {
		return nil, shared.Pagination{}, err
	}
	return result.Products, shared.NewPagination(filters.Page, filters.PerPage, result.Total), nil
}
