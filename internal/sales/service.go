package sales

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/sokoerp/sokoerp/internal/audit"
	"github.com/sokoerp/sokoerp/internal/inventory"
	"github.com/sokoerp/sokoerp/internal/ledger"
	"github.com/sokoerp/sokoerp/internal/shared"
)

// CatalogPort resolves products for price freezing and stock tracking.
// The catalog is read-mostly reference data supplied by the masterdata
// module.
type CatalogPort interface {
	GetProduct(ctx context.Context, id uuid.UUID) (CatalogProduct, error)
}

// Service orchestrates the sale lifecycle. Completion and refund run as
// one serializable transaction covering the sale aggregate, both event
// stores, and the audit trail.
type Service struct {
	repo           RepositoryPort
	catalog        CatalogPort
	revenueAccount uuid.UUID
}

// NewService builds Service. revenueAccount is the ledger account
// credited on completion and debited on refund.
func NewService(repo RepositoryPort, catalog CatalogPort, revenueAccount uuid.UUID) *Service {
	return &Service{repo: repo, catalog: catalog, revenueAccount: revenueAccount}
}

// saleSnapshot is the audit view of a sale and its lines.
type saleSnapshot struct {
	Sale  Sale       `json:"sale"`
	Items []SaleItem `json:"items"`
}

// completionSnapshot extends the sale view with the event ids the
// transition generated.
type completionSnapshot struct {
	Sale          Sale        `json:"sale"`
	Items         []SaleItem  `json:"items"`
	MovementIDs   []uuid.UUID `json:"movement_ids"`
	LedgerEntryID uuid.UUID   `json:"ledger_entry_id"`
}

// Create opens a PENDING sale with a freshly assigned number.
func (s *Service) Create(ctx context.Context, input CreateInput) (Sale, error) {
	if input.WarehouseID == uuid.Nil {
		return Sale{}, fmt.Errorf("%w: warehouse required", shared.ErrValidation)
	}
	var created Sale
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		number, err := tx.NextSaleNumber(ctx)
		if err != nil {
			return err
		}
		created = Sale{
			ID:            uuid.New(),
			Number:        number,
			WarehouseID:   input.WarehouseID,
			SoldBy:        input.ActorID,
			Status:        StatusPending,
			Subtotal:      decimal.Zero,
			DiscountTotal: decimal.Zero,
			TaxTotal:      decimal.Zero,
			GrandTotal:    decimal.Zero,
			CreatedAt:     time.Now().UTC(),
		}
		if err := tx.InsertSale(ctx, created); err != nil {
			return err
		}
		return tx.RecordAudit(ctx, audit.Entry{
			ActorID:    input.ActorID,
			Action:     audit.ActionCreate,
			EntityType: "Sale",
			EntityID:   created.ID,
			After:      saleSnapshot{Sale: created},
		})
	})
	if err != nil {
		return Sale{}, err
	}
	return created, nil
}

// AddItem appends one line to a PENDING sale, freezing the product's
// current price onto it, and recomputes the denormalized totals.
func (s *Service) AddItem(ctx context.Context, saleID uuid.UUID, input AddItemInput) (SaleItem, error) {
	if input.Quantity.Sign() <= 0 {
		return SaleItem{}, fmt.Errorf("%w: item quantity must be positive", shared.ErrValidation)
	}
	product, err := s.catalog.GetProduct(ctx, input.ProductID)
	if err != nil {
		return SaleItem{}, err
	}
	if !product.IsActive {
		return SaleItem{}, fmt.Errorf("%w: product %q is inactive", shared.ErrValidation, product.SKU)
	}

	var item SaleItem
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		sale, err := tx.GetSaleForUpdate(ctx, saleID)
		if err != nil {
			return err
		}
		if sale.Status != StatusPending {
			return fmt.Errorf("%w: cannot add items to a %s sale", shared.ErrInvalidState, sale.Status)
		}
		quantity := shared.RoundQuantity(input.Quantity)
		item, err = tx.InsertItem(ctx, SaleItem{
			SaleID:    saleID,
			ProductID: product.ID,
			Quantity:  quantity,
			UnitPrice: shared.RoundMoney(product.UnitPrice),
			LineTotal: LineTotal(quantity, product.UnitPrice),
		})
		if err != nil {
			return err
		}
		items, err := tx.ListItems(ctx, saleID)
		if err != nil {
			return err
		}
		return tx.UpdateTotals(ctx, saleID, ComputeTotals(items, sale.DiscountTotal, sale.TaxTotal))
	})
	if err != nil {
		return SaleItem{}, err
	}
	return item, nil
}

// SetAdjustments sets the sale-level discount and tax while PENDING and
// recomputes the grand total.
func (s *Service) SetAdjustments(ctx context.Context, saleID uuid.UUID, input AdjustmentsInput) (Sale, error) {
	if input.DiscountTotal.IsNegative() || input.TaxTotal.IsNegative() {
		return Sale{}, fmt.Errorf("%w: discount and tax must not be negative", shared.ErrValidation)
	}
	var updated Sale
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		sale, err := tx.GetSaleForUpdate(ctx, saleID)
		if err != nil {
			return err
		}
		if sale.Status != StatusPending {
			return fmt.Errorf("%w: cannot adjust a %s sale", shared.ErrInvalidState, sale.Status)
		}
		items, err := tx.ListItems(ctx, saleID)
		if err != nil {
			return err
		}
		totals := ComputeTotals(items, input.DiscountTotal, input.TaxTotal)
		if err := tx.UpdateTotals(ctx, saleID, totals); err != nil {
			return err
		}
		updated = sale
		updated.Subtotal = totals.Subtotal
		updated.DiscountTotal = totals.DiscountTotal
		updated.TaxTotal = totals.TaxTotal
		updated.GrandTotal = totals.GrandTotal
		return nil
	})
	if err != nil {
		return Sale{}, err
	}
	return updated, nil
}

// RecordPayment stores one tender against the sale. Payments are
// accepted in any state except VOIDED; a duplicate reference code is a
// conflict.
func (s *Service) RecordPayment(ctx context.Context, saleID uuid.UUID, input PaymentInput) (Payment, error) {
	var payment Payment
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		sale, err := tx.GetSaleForUpdate(ctx, saleID)
		if err != nil {
			return err
		}
		if sale.Status == StatusVoided {
			return fmt.Errorf("%w: cannot pay a voided sale", shared.ErrInvalidState)
		}
		payment, err = tx.InsertPayment(ctx, Payment{
			SaleID:        saleID,
			Method:        input.Method,
			Amount:        shared.RoundMoney(input.Amount),
			ReferenceCode: input.ReferenceCode,
			ReceivedBy:    input.ActorID,
		})
		if err != nil {
			return err
		}
		return tx.RecordAudit(ctx, audit.Entry{
			ActorID:    input.ActorID,
			Action:     audit.ActionCreate,
			EntityType: "Payment",
			EntityID:   payment.ID,
			After:      payment,
		})
	})
	if err != nil {
		return Payment{}, err
	}
	return payment, nil
}

// Complete transitions a PENDING sale to COMPLETED. In one transaction
// it re-reads stock for every tracked item, appends the SALE movements
// and the revenue ledger entry, flips the status, and records the audit
// snapshot. Any failure leaves no effect at all.
func (s *Service) Complete(ctx context.Context, saleID, actorID uuid.UUID) (Sale, error) {
	var completed Sale
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		sale, err := tx.GetSaleForUpdate(ctx, saleID)
		if err != nil {
			return err
		}
		if !CanTransition(sale.Status, StatusCompleted) {
			return fmt.Errorf("%w: cannot complete a %s sale", shared.ErrInvalidState, sale.Status)
		}
		items, err := tx.ListItems(ctx, saleID)
		if err != nil {
			return err
		}
		if len(items) == 0 {
			return fmt.Errorf("%w: sale has no items", shared.ErrValidation)
		}

		// Validate everything before the first write so a failure on
		// any line leaves no partial movements behind.
		tracked := make([]SaleItem, 0, len(items))
		for _, item := range items {
			product, err := s.catalog.GetProduct(ctx, item.ProductID)
			if err != nil {
				return err
			}
			if !product.TracksStock {
				continue
			}
			available, err := tx.CurrentStock(ctx, item.ProductID, sale.WarehouseID)
			if err != nil {
				return err
			}
			if available.LessThan(item.Quantity) {
				return fmt.Errorf("%w: product %s has %s, sale needs %s",
					shared.ErrInsufficientStock, product.SKU, available, item.Quantity)
			}
			tracked = append(tracked, item)
		}

		before := saleSnapshot{Sale: sale, Items: items}
		movementIDs := make([]uuid.UUID, 0, len(tracked))
		for _, item := range tracked {
			movement, err := tx.AppendMovement(ctx, inventory.Movement{
				ProductID:     item.ProductID,
				WarehouseID:   sale.WarehouseID,
				Kind:          inventory.MovementSale,
				Quantity:      item.Quantity.Neg(),
				ReferenceKind: inventory.ReferenceSale,
				ReferenceID:   &sale.ID,
				CreatedBy:     actorID,
			})
			if err != nil {
				return err
			}
			movementIDs = append(movementIDs, movement.ID)
		}

		var entryID uuid.UUID
		if !sale.GrandTotal.IsZero() {
			entry, err := tx.AppendLedgerEntry(ctx, ledger.Entry{
				AccountID:     s.revenueAccount,
				Amount:        sale.GrandTotal,
				ReferenceKind: ledger.ReferenceSale,
				ReferenceID:   sale.ID,
			})
			if err != nil {
				return err
			}
			entryID = entry.ID
		}

		if err := tx.UpdateStatus(ctx, saleID, StatusCompleted); err != nil {
			return err
		}
		completed = sale
		completed.Status = StatusCompleted

		return tx.RecordAudit(ctx, audit.Entry{
			ActorID:    actorID,
			Action:     audit.ActionUpdate,
			EntityType: "Sale",
			EntityID:   saleID,
			Before:     before,
			After: completionSnapshot{
				Sale:          completed,
				Items:         items,
				MovementIDs:   movementIDs,
				LedgerEntryID: entryID,
			},
		})
	})
	if err != nil {
		return Sale{}, err
	}
	return completed, nil
}

// Void transitions a PENDING sale to VOIDED. Stock and ledger are never
// touched since completion never ran.
func (s *Service) Void(ctx context.Context, saleID, actorID uuid.UUID) (Sale, error) {
	var voided Sale
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		sale, err := tx.GetSaleForUpdate(ctx, saleID)
		if err != nil {
			return err
		}
		if !CanTransition(sale.Status, StatusVoided) {
			return fmt.Errorf("%w: cannot void a %s sale", shared.ErrInvalidState, sale.Status)
		}
		items, err := tx.ListItems(ctx, saleID)
		if err != nil {
			return err
		}
		if err := tx.UpdateStatus(ctx, saleID, StatusVoided); err != nil {
			return err
		}
		voided = sale
		voided.Status = StatusVoided
		return tx.RecordAudit(ctx, audit.Entry{
			ActorID:    actorID,
			Action:     audit.ActionVoid,
			EntityType: "Sale",
			EntityID:   saleID,
			Before:     saleSnapshot{Sale: sale, Items: items},
			After:      saleSnapshot{Sale: voided, Items: items},
		})
	})
	if err != nil {
		return Sale{}, err
	}
	return voided, nil
}

// Refund reverses a COMPLETED sale, in full or per line. Stock comes
// back through REFUND movements and the revenue account receives a
// compensating negative entry; the original events are retained.
func (s *Service) Refund(ctx context.Context, saleID uuid.UUID, input RefundInput) (Sale, error) {
	var refunded Sale
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		sale, err := tx.GetSaleForUpdate(ctx, saleID)
		if err != nil {
			return err
		}
		if !CanTransition(sale.Status, StatusRefunded) {
			return fmt.Errorf("%w: cannot refund a %s sale", shared.ErrInvalidState, sale.Status)
		}
		items, err := tx.ListItems(ctx, saleID)
		if err != nil {
			return err
		}

		lines, amount, err := resolveRefund(sale, items, input.Lines)
		if err != nil {
			return err
		}

		before := saleSnapshot{Sale: sale, Items: items}
		movementIDs := make([]uuid.UUID, 0, len(lines))
		for _, line := range lines {
			product, err := s.catalog.GetProduct(ctx, line.item.ProductID)
			if err != nil {
				return err
			}
			if !product.TracksStock {
				continue
			}
			movement, err := tx.AppendMovement(ctx, inventory.Movement{
				ProductID:     line.item.ProductID,
				WarehouseID:   sale.WarehouseID,
				Kind:          inventory.MovementRefund,
				Quantity:      line.quantity,
				ReferenceKind: inventory.ReferenceSale,
				ReferenceID:   &sale.ID,
				CreatedBy:     input.ActorID,
			})
			if err != nil {
				return err
			}
			movementIDs = append(movementIDs, movement.ID)
		}

		var entryID uuid.UUID
		if !amount.IsZero() {
			entry, err := tx.AppendLedgerEntry(ctx, ledger.Entry{
				AccountID:     s.revenueAccount,
				Amount:        amount.Neg(),
				ReferenceKind: ledger.ReferenceRefund,
				ReferenceID:   sale.ID,
			})
			if err != nil {
				return err
			}
			entryID = entry.ID
		}

		if err := tx.UpdateStatus(ctx, saleID, StatusRefunded); err != nil {
			return err
		}
		refunded = sale
		refunded.Status = StatusRefunded

		return tx.RecordAudit(ctx, audit.Entry{
			ActorID:    input.ActorID,
			Action:     audit.ActionUpdate,
			EntityType: "Sale",
			EntityID:   saleID,
			Before:     before,
			After: completionSnapshot{
				Sale:          refunded,
				Items:         items,
				MovementIDs:   movementIDs,
				LedgerEntryID: entryID,
			},
		})
	})
	if err != nil {
		return Sale{}, err
	}
	return refunded, nil
}

type refundLine struct {
	item     SaleItem
	quantity decimal.Decimal
}

// resolveRefund turns the requested lines into concrete item/quantity
// pairs and the money to reverse, bounded by what was originally sold.
func resolveRefund(sale Sale, items []SaleItem, requested []RefundLine) ([]refundLine, decimal.Decimal, error) {
	if len(requested) == 0 {
		lines := make([]refundLine, 0, len(items))
		for _, item := range items {
			lines = append(lines, refundLine{item: item, quantity: item.Quantity})
		}
		return lines, sale.GrandTotal, nil
	}

	byID := make(map[uuid.UUID]SaleItem, len(items))
	for _, item := range items {
		byID[item.ID] = item
	}
	seen := make(map[uuid.UUID]bool, len(requested))
	var lines []refundLine
	amount := decimal.Zero
	for _, req := range requested {
		item, ok := byID[req.ItemID]
		if !ok {
			return nil, decimal.Zero, fmt.Errorf("%w: item %s does not belong to the sale", shared.ErrValidation, req.ItemID)
		}
		if seen[req.ItemID] {
			return nil, decimal.Zero, fmt.Errorf("%w: item %s listed twice", shared.ErrValidation, req.ItemID)
		}
		seen[req.ItemID] = true
		quantity := shared.RoundQuantity(req.Quantity)
		if quantity.Sign() <= 0 {
			return nil, decimal.Zero, fmt.Errorf("%w: refund quantity must be positive", shared.ErrValidation)
		}
		if quantity.GreaterThan(item.Quantity) {
			return nil, decimal.Zero, fmt.Errorf("%w: cannot refund %s of item sold at %s", shared.ErrValidation, quantity, item.Quantity)
		}
		lines = append(lines, refundLine{item: item, quantity: quantity})
		amount = amount.Add(LineTotal(quantity, item.UnitPrice))
	}
	amount = shared.RoundMoney(amount)
	if amount.GreaterThan(sale.GrandTotal) {
		return nil, decimal.Zero, fmt.Errorf("%w: refund %s exceeds sale total %s", shared.ErrValidation, amount, sale.GrandTotal)
	}
	return lines, amount, nil
}

// Get fetches one sale with its items and payments.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (Sale, []SaleItem, []Payment, error) {
	sale, err := s.repo.GetSale(ctx, id)
	if err != nil {
		return Sale{}, nil, nil, err
	}
	items, err := s.repo.ListItems(ctx, id)
	if err != nil {
		return Sale{}, nil, nil, err
	}
	payments, err := s.repo.ListPayments(ctx, id)
	if err != nil {
		return Sale{}, nil, nil, err
	}
	return sale, items, payments, nil
}

// List returns a page of sales.
func (s *Service) List(ctx context.Context, filter SaleFilter) ([]Sale, shared.Pagination, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PerPage < 1 {
		filter.PerPage = 20
	}
	sales, total, err := s.repo.ListSales(ctx, filter)
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	return sales, shared.NewPagination(filter.Page, filter.PerPage, total), nil
}
