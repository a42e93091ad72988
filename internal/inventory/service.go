package inventory

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/singleflight"

	"github.com/sokoerp/sokoerp/internal/audit"
	"github.com/sokoerp/sokoerp/internal/shared"
)

// Service coordinates manual stock operations and derived-stock reads.
type Service struct {
	repo   RepositoryPort
	levels singleflight.Group
}

// NewService builds Service.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo}
}

// PostInbound appends an IN movement (goods receipt).
func (s *Service) PostInbound(ctx context.Context, input InboundInput) (Movement, error) {
	if input.Quantity.Sign() <= 0 {
		return Movement{}, fmt.Errorf("%w: inbound quantity must be positive", shared.ErrValidation)
	}
	ref := input.Reference
	if ref == "" {
		ref = ReferenceManual
	}
	return s.postOne(ctx, Movement{
		ProductID:     input.ProductID,
		WarehouseID:   input.WarehouseID,
		Kind:          MovementIn,
		Quantity:      input.Quantity,
		ReferenceKind: ref,
		ReferenceID:   input.ReferenceID,
		CreatedBy:     input.ActorID,
	}, false)
}

// PostOutbound appends an OUT movement. The removal is refused when it
// would take the pair below zero.
func (s *Service) PostOutbound(ctx context.Context, input OutboundInput) (Movement, error) {
	if input.Quantity.Sign() <= 0 {
		return Movement{}, fmt.Errorf("%w: outbound quantity must be positive", shared.ErrValidation)
	}
	return s.postOne(ctx, Movement{
		ProductID:     input.ProductID,
		WarehouseID:   input.WarehouseID,
		Kind:          MovementOut,
		Quantity:      input.Quantity.Neg(),
		ReferenceKind: ReferenceManual,
		CreatedBy:     input.ActorID,
	}, true)
}

// PostAdjustment appends a signed ADJUSTMENT movement. Corrections may
// take a pair negative; the listing surface hides such pairs while the
// raw history stays queryable.
func (s *Service) PostAdjustment(ctx context.Context, input AdjustmentInput) (Movement, error) {
	if input.Quantity.IsZero() {
		return Movement{}, fmt.Errorf("%w: adjustment quantity must be non zero", shared.ErrValidation)
	}
	return s.postOne(ctx, Movement{
		ProductID:     input.ProductID,
		WarehouseID:   input.WarehouseID,
		Kind:          MovementAdjustment,
		Quantity:      input.Quantity,
		ReferenceKind: ReferenceManual,
		CreatedBy:     input.ActorID,
	}, false)
}

// PostTransfer appends a TRANSFER_OUT/TRANSFER_IN pair sharing one
// reference id, in one transaction.
func (s *Service) PostTransfer(ctx context.Context, input TransferInput) (Movement, Movement, error) {
	if input.Quantity.Sign() <= 0 {
		return Movement{}, Movement{}, fmt.Errorf("%w: transfer quantity must be positive", shared.ErrValidation)
	}
	if input.SrcWarehouse == input.DstWarehouse {
		return Movement{}, Movement{}, fmt.Errorf("%w: source and destination warehouse must differ", shared.ErrValidation)
	}
	transferID := uuid.New()
	var out, in Movement
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxStore) error {
		available, err := tx.CurrentStock(ctx, input.ProductID, input.SrcWarehouse)
		if err != nil {
			return err
		}
		if available.LessThan(input.Quantity) {
			return fmt.Errorf("%w: have %s, need %s", shared.ErrInsufficientStock, available, input.Quantity)
		}
		out, err = tx.Append(ctx, Movement{
			ProductID:     input.ProductID,
			WarehouseID:   input.SrcWarehouse,
			Kind:          MovementTransferOut,
			Quantity:      input.Quantity.Neg(),
			ReferenceKind: ReferenceTransfer,
			ReferenceID:   &transferID,
			CreatedBy:     input.ActorID,
		})
		if err != nil {
			return err
		}
		in, err = tx.Append(ctx, Movement{
			ProductID:     input.ProductID,
			WarehouseID:   input.DstWarehouse,
			Kind:          MovementTransferIn,
			Quantity:      input.Quantity,
			ReferenceKind: ReferenceTransfer,
			ReferenceID:   &transferID,
			CreatedBy:     input.ActorID,
		})
		if err != nil {
			return err
		}
		if err := tx.RecordAudit(ctx, audit.Entry{
			ActorID:    input.ActorID,
			Action:     audit.ActionCreate,
			EntityType: "StockMovement",
			EntityID:   out.ID,
			After:      []Movement{out, in},
		}); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		return Movement{}, Movement{}, err
	}
	return out, in, nil
}

func (s *Service) postOne(ctx context.Context, m Movement, guardNegative bool) (Movement, error) {
	var stored Movement
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxStore) error {
		if guardNegative {
			available, err := tx.CurrentStock(ctx, m.ProductID, m.WarehouseID)
			if err != nil {
				return err
			}
			if available.Add(m.Quantity).IsNegative() {
				return fmt.Errorf("%w: have %s, need %s", shared.ErrInsufficientStock, available, m.Quantity.Abs())
			}
		}
		var err error
		stored, err = tx.Append(ctx, m)
		if err != nil {
			return err
		}
		return tx.RecordAudit(ctx, audit.Entry{
			ActorID:    m.CreatedBy,
			Action:     audit.ActionCreate,
			EntityType: "StockMovement",
			EntityID:   stored.ID,
			After:      stored,
		})
	})
	if err != nil {
		return Movement{}, err
	}
	return stored, nil
}

// CurrentStock returns the derived quantity for one pair; zero when the
// pair has no movements.
func (s *Service) CurrentStock(ctx context.Context, productID, warehouseID uuid.UUID) (decimal.Decimal, error) {
	if productID == uuid.Nil || warehouseID == uuid.Nil {
		return decimal.Zero, fmt.Errorf("%w: product and warehouse required", shared.ErrValidation)
	}
	return s.repo.CurrentStock(ctx, productID, warehouseID)
}

// StockLevels lists positive derived quantities. Identical concurrent
// reads are collapsed; the result is never reused across a write.
func (s *Service) StockLevels(ctx context.Context, filter StockLevelFilter) ([]StockLevel, error) {
	key := levelsKey(filter)
	v, err, _ := s.levels.Do(key, func() (any, error) {
		return s.repo.StockLevels(ctx, filter)
	})
	if err != nil {
		return nil, err
	}
	return v.([]StockLevel), nil
}

// Movements lists raw events matching the filter.
func (s *Service) Movements(ctx context.Context, filter MovementFilter) ([]Movement, error) {
	return s.repo.List(ctx, filter)
}

func levelsKey(filter StockLevelFilter) string {
	product, warehouse := "*", "*"
	if filter.ProductID != nil {
		product = filter.ProductID.String()
	}
	if filter.WarehouseID != nil {
		warehouse = filter.WarehouseID.String()
	}
	return product + ":" + warehouse
}
