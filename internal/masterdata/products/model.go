package products

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/sokoerp/sokoerp/internal/shared"
)

// Product is catalog reference data. Unit cost and price are live
// values; sales freeze them onto their lines so later edits never
// rewrite history.
type Product struct {
	ID          uuid.UUID       `json:"id"`
	SKU         string          `json:"sku"`
	Name        string          `json:"name"`
	CategoryID  *uuid.UUID      `json:"category_id,omitempty"`
	UnitCost    decimal.Decimal `json:"unit_cost"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	TracksStock bool            `json:"tracks_stock"`
	IsActive    bool            `json:"is_active"`
	CreatedAt   time.Time       `json:"created_at"`
}

// Validate checks product fields before persistence.
func (p Product) Validate() error {
	if strings.TrimSpace(p.SKU) == "" {
		return fmt.Errorf("%w: sku required", shared.ErrValidation)
	}
	if strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("%w: product name required", shared.ErrValidation)
	}
	if p.UnitCost.IsNegative() || p.UnitPrice.IsNegative() {
		return fmt.Errorf("%w: unit cost and price must not be negative", shared.ErrValidation)
	}
	return nil
}

// Input carries the mutable product fields.
type Input struct {
	SKU         string          `json:"sku" validate:"required,max=64"`
	Name        string          `json:"name" validate:"required,max=200"`
	CategoryID  *uuid.UUID      `json:"category_id"`
	UnitCost    decimal.Decimal `json:"unit_cost"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	TracksStock bool            `json:"tracks_stock"`
	IsActive    bool            `json:"is_active"`
	ActorID     uuid.UUID       `json:"-"`
}
