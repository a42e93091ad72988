package inventory

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/sokoerp/sokoerp/internal/shared"
)

// MovementKind enumerates supported stock movements.
type MovementKind string

const (
	// MovementIn represents stock received (purchase, production).
	MovementIn MovementKind = "IN"
	// MovementOut represents stock removed (damaged, lost).
	MovementOut MovementKind = "OUT"
	// MovementAdjustment is a signed manual correction.
	MovementAdjustment MovementKind = "ADJUSTMENT"
	// MovementTransferIn is stock received from another warehouse.
	MovementTransferIn MovementKind = "TRANSFER_IN"
	// MovementTransferOut is stock sent to another warehouse.
	MovementTransferOut MovementKind = "TRANSFER_OUT"
	// MovementSale is stock consumed by a completed sale.
	MovementSale MovementKind = "SALE"
	// MovementRefund is stock restored by a refunded sale.
	MovementRefund MovementKind = "REFUND"
)

// ReferenceKind names the business transaction a movement points back to.
// The pointer is weak: voiding or refunding the source never removes the
// movement.
type ReferenceKind string

const (
	ReferenceSale     ReferenceKind = "SALE"
	ReferencePurchase ReferenceKind = "PURCHASE"
	ReferenceTransfer ReferenceKind = "TRANSFER"
	ReferenceManual   ReferenceKind = "MANUAL"
)

// Movement is one immutable stock event. There is no stored quantity
// anywhere; current stock for a (product, warehouse) pair is the exact
// decimal sum of its movements.
type Movement struct {
	ID            uuid.UUID       `json:"id"`
	ProductID     uuid.UUID       `json:"product_id"`
	WarehouseID   uuid.UUID       `json:"warehouse_id"`
	Kind          MovementKind    `json:"kind"`
	Quantity      decimal.Decimal `json:"quantity"`
	ReferenceKind ReferenceKind   `json:"reference_kind"`
	ReferenceID   *uuid.UUID      `json:"reference_id,omitempty"`
	CreatedBy     uuid.UUID       `json:"created_by"`
	CreatedAt     time.Time       `json:"created_at"`
}

// Validate enforces the event-store append contract: sign conventions per
// kind and required reference fields for movements caused by a business
// transaction.
func (m Movement) Validate() error {
	if m.ProductID == uuid.Nil || m.WarehouseID == uuid.Nil {
		return fmt.Errorf("%w: product and warehouse required", shared.ErrValidation)
	}
	if m.CreatedBy == uuid.Nil {
		return fmt.Errorf("%w: movement creator required", shared.ErrValidation)
	}
	if m.Quantity.IsZero() {
		return fmt.Errorf("%w: quantity must be non zero", shared.ErrValidation)
	}
	switch m.Kind {
	case MovementIn, MovementTransferIn, MovementRefund:
		if m.Quantity.IsNegative() {
			return fmt.Errorf("%w: %s quantity must be positive", shared.ErrValidation, m.Kind)
		}
	case MovementOut, MovementTransferOut, MovementSale:
		if m.Quantity.IsPositive() {
			return fmt.Errorf("%w: %s quantity must be negative", shared.ErrValidation, m.Kind)
		}
	case MovementAdjustment:
		// Signed either way.
	default:
		return fmt.Errorf("%w: unknown movement kind %q", shared.ErrValidation, m.Kind)
	}
	switch m.ReferenceKind {
	case ReferenceSale, ReferencePurchase, ReferenceTransfer, ReferenceManual:
	default:
		return fmt.Errorf("%w: unknown reference kind %q", shared.ErrValidation, m.ReferenceKind)
	}
	switch m.Kind {
	case MovementSale, MovementRefund:
		if m.ReferenceKind != ReferenceSale || m.ReferenceID == nil {
			return fmt.Errorf("%w: %s movement requires a sale reference", shared.ErrValidation, m.Kind)
		}
	case MovementTransferIn, MovementTransferOut:
		if m.ReferenceID == nil {
			return fmt.Errorf("%w: transfer movement requires a reference id", shared.ErrValidation)
		}
	}
	return nil
}

// MovementFilter narrows event queries.
type MovementFilter struct {
	ProductID     *uuid.UUID
	WarehouseID   *uuid.UUID
	Kind          MovementKind
	ReferenceKind ReferenceKind
	ReferenceID   *uuid.UUID
	From          time.Time
	To            time.Time
	Limit         int
}

// StockLevel summarises the derived quantity for one (product, warehouse)
// pair. Only pairs with strictly positive quantity are listed.
type StockLevel struct {
	ProductID      uuid.UUID       `json:"product_id"`
	WarehouseID    uuid.UUID       `json:"warehouse_id"`
	Quantity       decimal.Decimal `json:"quantity"`
	LastMovementAt time.Time       `json:"last_movement_at"`
}

// StockLevelFilter narrows stock level listings.
type StockLevelFilter struct {
	ProductID   *uuid.UUID
	WarehouseID *uuid.UUID
}

// InboundInput describes a stock receipt.
type InboundInput struct {
	ProductID   uuid.UUID
	WarehouseID uuid.UUID
	Quantity    decimal.Decimal
	Reference   ReferenceKind
	ReferenceID *uuid.UUID
	ActorID     uuid.UUID
}

// OutboundInput describes a manual stock removal.
type OutboundInput struct {
	ProductID   uuid.UUID
	WarehouseID uuid.UUID
	Quantity    decimal.Decimal
	ActorID     uuid.UUID
}

// AdjustmentInput describes a signed manual correction.
type AdjustmentInput struct {
	ProductID   uuid.UUID
	WarehouseID uuid.UUID
	Quantity    decimal.Decimal
	ActorID     uuid.UUID
}

// TransferInput moves stock between two warehouses.
type TransferInput struct {
	ProductID    uuid.UUID
	SrcWarehouse uuid.UUID
	DstWarehouse uuid.UUID
	Quantity     decimal.Decimal
	ActorID      uuid.UUID
}
