package sales

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/sokoerp/sokoerp/internal/shared"
)

// Status is the sale lifecycle state.
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusCompleted Status = "COMPLETED"
	StatusVoided    Status = "VOIDED"
	StatusRefunded  Status = "REFUNDED"
)

// transitions is the single source of truth for lifecycle legality.
// Every status change in the workflow goes through CanTransition.
var transitions = map[Status][]Status{
	StatusPending:   {StatusCompleted, StatusVoided},
	StatusCompleted: {StatusRefunded},
	StatusVoided:    {},
	StatusRefunded:  {},
}

// CanTransition reports whether the move from one status to another is
// legal.
func CanTransition(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Sale is the aggregate root. Totals are denormalized and always equal
// a recomputation from the line items.
type Sale struct {
	ID            uuid.UUID       `json:"id"`
	Number        string          `json:"number"`
	WarehouseID   uuid.UUID       `json:"warehouse_id"`
	SoldBy        uuid.UUID       `json:"sold_by"`
	Status        Status          `json:"status"`
	Subtotal      decimal.Decimal `json:"subtotal"`
	DiscountTotal decimal.Decimal `json:"discount_total"`
	TaxTotal      decimal.Decimal `json:"tax_total"`
	GrandTotal    decimal.Decimal `json:"grand_total"`
	CreatedAt     time.Time       `json:"created_at"`
}

// SaleItem is one line. UnitPrice is copied from the catalog when the
// line is added and never re-read afterward.
type SaleItem struct {
	ID        uuid.UUID       `json:"id"`
	SaleID    uuid.UUID       `json:"sale_id"`
	ProductID uuid.UUID       `json:"product_id"`
	Quantity  decimal.Decimal `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	LineTotal decimal.Decimal `json:"line_total"`
}

// PaymentMethod is the tender type.
type PaymentMethod string

const (
	PaymentCash  PaymentMethod = "CASH"
	PaymentMpesa PaymentMethod = "MPESA"
	PaymentCard  PaymentMethod = "CARD"
	PaymentBank  PaymentMethod = "BANK"
)

// Payment is one tender against a sale. Payments are immutable and
// never deleted.
type Payment struct {
	ID            uuid.UUID       `json:"id"`
	SaleID        uuid.UUID       `json:"sale_id"`
	Method        PaymentMethod   `json:"method"`
	Amount        decimal.Decimal `json:"amount"`
	ReferenceCode string          `json:"reference_code,omitempty"`
	ReceivedBy    uuid.UUID       `json:"received_by"`
	CreatedAt     time.Time       `json:"created_at"`
}

// Validate checks payment fields before persistence.
func (p Payment) Validate() error {
	if p.SaleID == uuid.Nil {
		return fmt.Errorf("%w: payment requires a sale", shared.ErrValidation)
	}
	if p.Amount.Sign() <= 0 {
		return fmt.Errorf("%w: payment amount must be positive", shared.ErrValidation)
	}
	switch p.Method {
	case PaymentCash, PaymentMpesa, PaymentCard, PaymentBank:
	default:
		return fmt.Errorf("%w: unknown payment method %q", shared.ErrValidation, p.Method)
	}
	if p.ReceivedBy == uuid.Nil {
		return fmt.Errorf("%w: payment requires a receiver", shared.ErrValidation)
	}
	return nil
}

// CatalogProduct is the slice of the product catalog the workflow
// needs: the live price to freeze and the stock-tracking flag.
type CatalogProduct struct {
	ID          uuid.UUID
	SKU         string
	Name        string
	UnitPrice   decimal.Decimal
	TracksStock bool
	IsActive    bool
}

// SaleFilter narrows sale listings.
type SaleFilter struct {
	WarehouseID *uuid.UUID
	Status      Status
	SoldBy      *uuid.UUID
	From        time.Time
	To          time.Time
	Page        int
	PerPage     int
}

// CreateInput opens a new PENDING sale.
type CreateInput struct {
	WarehouseID uuid.UUID `json:"warehouse_id" validate:"required"`
	ActorID     uuid.UUID `json:"-"`
}

// AddItemInput adds one line to a PENDING sale.
type AddItemInput struct {
	ProductID uuid.UUID       `json:"product_id" validate:"required"`
	Quantity  decimal.Decimal `json:"quantity" validate:"required"`
	ActorID   uuid.UUID       `json:"-"`
}

// AdjustmentsInput sets the sale-level discount and tax while PENDING.
type AdjustmentsInput struct {
	DiscountTotal decimal.Decimal `json:"discount_total"`
	TaxTotal      decimal.Decimal `json:"tax_total"`
	ActorID       uuid.UUID       `json:"-"`
}

// PaymentInput records one tender.
type PaymentInput struct {
	Method        PaymentMethod   `json:"method" validate:"required"`
	Amount        decimal.Decimal `json:"amount" validate:"required"`
	ReferenceCode string          `json:"reference_code"`
	ActorID       uuid.UUID       `json:"-"`
}

// RefundLine names one item and the quantity to take back.
type RefundLine struct {
	ItemID   uuid.UUID       `json:"item_id" validate:"required"`
	Quantity decimal.Decimal `json:"quantity" validate:"required"`
}

// RefundInput reverses a COMPLETED sale. Nil Lines means a full refund.
type RefundInput struct {
	Lines   []RefundLine `json:"lines"`
	ActorID uuid.UUID    `json:"-"`
}
