package app

import (
	"context"

	"github.com/google/uuid"

	"github.com/sokoerp/sokoerp/internal/masterdata/products"
	"github.com/sokoerp/sokoerp/internal/sales"
)

// catalogAdapter exposes the product catalog to the sales workflow
// without coupling the two packages.
type catalogAdapter struct {
	products *products.Service
}

// NewCatalog adapts the product service to the sales catalog port.
func NewCatalog(service *products.Service) sales.CatalogPort {
	return catalogAdapter{products: service}
}

func (a catalogAdapter) GetProduct(ctx context.Context, id uuid.UUID) (sales.CatalogProduct, error) {
	p, err := a.products.Get(ctx, id)
	if err != nil {
		return sales.CatalogProduct{}, err
	}
	return sales.CatalogProduct{
		ID:          p.ID,
		SKU:         p.SKU,
		Name:        p.Name,
		UnitPrice:   p.UnitPrice,
		TracksStock: p.TracksStock,
		IsActive:    p.IsActive,
	}, nil
}
