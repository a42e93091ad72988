package inventory

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/sokoerp/sokoerp/internal/audit"
	"github.com/sokoerp/sokoerp/internal/shared"
)

type memoryRepo struct {
	movements []Movement
	audits    []audit.Entry
}

type memoryTx struct {
	repo         *memoryRepo
	staged       []Movement
	stagedAudits []audit.Entry
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{}
}

func (r *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, TxStore) error) error {
	tx := &memoryTx{repo: r}
	if err := fn(ctx, tx); err != nil {
		return err
	}
	r.movements = append(r.movements, tx.staged...)
	r.audits = append(r.audits, tx.stagedAudits...)
	return nil
}

func (r *memoryRepo) List(ctx context.Context, filter MovementFilter) ([]Movement, error) {
	result := make([]Movement, len(r.movements))
	copy(result, r.movements)
	return result, nil
}

func (r *memoryRepo) CurrentStock(ctx context.Context, productID, warehouseID uuid.UUID) (decimal.Decimal, error) {
	return sumPair(r.movements, productID, warehouseID), nil
}

func (r *memoryRepo) StockLevels(ctx context.Context, filter StockLevelFilter) ([]StockLevel, error) {
	type pair struct{ product, warehouse uuid.UUID }
	totals := map[pair]StockLevel{}
	for _, m := range r.movements {
		key := pair{m.ProductID, m.WarehouseID}
		level := totals[key]
		level.ProductID = m.ProductID
		level.WarehouseID = m.WarehouseID
		level.Quantity = level.Quantity.Add(m.Quantity)
		if m.CreatedAt.After(level.LastMovementAt) {
			level.LastMovementAt = m.CreatedAt
		}
		totals[key] = level
	}
	var levels []StockLevel
	for _, level := range totals {
		if level.Quantity.IsPositive() {
			levels = append(levels, level)
		}
	}
	return levels, nil
}

func (tx *memoryTx) Append(ctx context.Context, m Movement) (Movement, error) {
	m.Quantity = shared.RoundQuantity(m.Quantity)
	if err := m.Validate(); err != nil {
		return Movement{}, err
	}
	m.ID = uuid.New()
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}
	tx.staged = append(tx.staged, m)
	return m, nil
}

func (tx *memoryTx) CurrentStock(ctx context.Context, productID, warehouseID uuid.UUID) (decimal.Decimal, error) {
	all := append(append([]Movement{}, tx.repo.movements...), tx.staged...)
	return sumPair(all, productID, warehouseID), nil
}

func (tx *memoryTx) RecordAudit(ctx context.Context, entry audit.Entry) error {
	tx.stagedAudits = append(tx.stagedAudits, entry)
	return nil
}

func sumPair(movements []Movement, productID, warehouseID uuid.UUID) decimal.Decimal {
	total := decimal.Zero
	for _, m := range movements {
		if m.ProductID == productID && m.WarehouseID == warehouseID {
			total = total.Add(m.Quantity)
		}
	}
	return total
}

func mustDecimal(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	require.NoError(t, err)
	return d
}

func TestCurrentStockIsExactSignedSum(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo)
	ctx := context.Background()
	product, warehouse, actor := uuid.New(), uuid.New(), uuid.New()

	_, err := svc.PostInbound(ctx, InboundInput{ProductID: product, WarehouseID: warehouse, Quantity: mustDecimal(t, "10.500"), ActorID: actor})
	require.NoError(t, err)
	_, err = svc.PostAdjustment(ctx, AdjustmentInput{ProductID: product, WarehouseID: warehouse, Quantity: mustDecimal(t, "-0.125"), ActorID: actor})
	require.NoError(t, err)
	_, err = svc.PostOutbound(ctx, OutboundInput{ProductID: product, WarehouseID: warehouse, Quantity: mustDecimal(t, "3.375"), ActorID: actor})
	require.NoError(t, err)

	qty, err := svc.CurrentStock(ctx, product, warehouse)
	require.NoError(t, err)
	require.True(t, qty.Equal(mustDecimal(t, "7.000")), "got %s", qty)
}

func TestCurrentStockOrderIndependent(t *testing.T) {
	ctx := context.Background()
	product, warehouse, actor := uuid.New(), uuid.New(), uuid.New()
	quantities := []string{"2.001", "-0.5", "7.250", "-1.999", "0.003"}

	apply := func(order []int) decimal.Decimal {
		repo := newMemoryRepo()
		svc := NewService(repo)
		// Seed once so outbound-style negatives cannot dip below zero.
		_, err := svc.PostInbound(ctx, InboundInput{ProductID: product, WarehouseID: warehouse, Quantity: mustDecimal(t, "100"), ActorID: actor})
		require.NoError(t, err)
		for _, i := range order {
			_, err := svc.PostAdjustment(ctx, AdjustmentInput{ProductID: product, WarehouseID: warehouse, Quantity: mustDecimal(t, quantities[i]), ActorID: actor})
			require.NoError(t, err)
		}
		qty, err := svc.CurrentStock(ctx, product, warehouse)
		require.NoError(t, err)
		return qty
	}

	forward := apply([]int{0, 1, 2, 3, 4})
	backward := apply([]int{4, 3, 2, 1, 0})
	require.True(t, forward.Equal(backward), "forward %s backward %s", forward, backward)
	require.True(t, forward.Equal(mustDecimal(t, "106.755")), "got %s", forward)
}

func TestCurrentStockZeroWithoutMovements(t *testing.T) {
	svc := NewService(newMemoryRepo())
	qty, err := svc.CurrentStock(context.Background(), uuid.New(), uuid.New())
	require.NoError(t, err)
	require.True(t, qty.IsZero())
}

func TestOutboundBelowZeroRejected(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo)
	ctx := context.Background()
	product, warehouse, actor := uuid.New(), uuid.New(), uuid.New()

	_, err := svc.PostInbound(ctx, InboundInput{ProductID: product, WarehouseID: warehouse, Quantity: mustDecimal(t, "2"), ActorID: actor})
	require.NoError(t, err)

	_, err = svc.PostOutbound(ctx, OutboundInput{ProductID: product, WarehouseID: warehouse, Quantity: mustDecimal(t, "5"), ActorID: actor})
	require.ErrorIs(t, err, shared.ErrInsufficientStock)

	// The failed removal left no event behind.
	require.Len(t, repo.movements, 1)
	qty, err := svc.CurrentStock(ctx, product, warehouse)
	require.NoError(t, err)
	require.True(t, qty.Equal(mustDecimal(t, "2")))
}

func TestTransferEmitsPairedMovements(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo)
	ctx := context.Background()
	product, src, dst, actor := uuid.New(), uuid.New(), uuid.New(), uuid.New()

	_, err := svc.PostInbound(ctx, InboundInput{ProductID: product, WarehouseID: src, Quantity: mustDecimal(t, "20"), ActorID: actor})
	require.NoError(t, err)

	out, in, err := svc.PostTransfer(ctx, TransferInput{ProductID: product, SrcWarehouse: src, DstWarehouse: dst, Quantity: mustDecimal(t, "5"), ActorID: actor})
	require.NoError(t, err)
	require.Equal(t, MovementTransferOut, out.Kind)
	require.Equal(t, MovementTransferIn, in.Kind)
	require.True(t, out.Quantity.Equal(mustDecimal(t, "-5")))
	require.True(t, in.Quantity.Equal(mustDecimal(t, "5")))
	require.NotNil(t, out.ReferenceID)
	require.NotNil(t, in.ReferenceID)
	require.Equal(t, *out.ReferenceID, *in.ReferenceID)

	srcQty, err := svc.CurrentStock(ctx, product, src)
	require.NoError(t, err)
	require.True(t, srcQty.Equal(mustDecimal(t, "15")))
	dstQty, err := svc.CurrentStock(ctx, product, dst)
	require.NoError(t, err)
	require.True(t, dstQty.Equal(mustDecimal(t, "5")))

	_, _, err = svc.PostTransfer(ctx, TransferInput{ProductID: product, SrcWarehouse: src, DstWarehouse: dst, Quantity: mustDecimal(t, "50"), ActorID: actor})
	require.ErrorIs(t, err, shared.ErrInsufficientStock)
}

func TestStockLevelsListsOnlyPositivePairs(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo)
	ctx := context.Background()
	warehouse, actor := uuid.New(), uuid.New()
	drained, held := uuid.New(), uuid.New()

	_, err := svc.PostInbound(ctx, InboundInput{ProductID: drained, WarehouseID: warehouse, Quantity: mustDecimal(t, "5"), ActorID: actor})
	require.NoError(t, err)
	_, err = svc.PostOutbound(ctx, OutboundInput{ProductID: drained, WarehouseID: warehouse, Quantity: mustDecimal(t, "5"), ActorID: actor})
	require.NoError(t, err)
	_, err = svc.PostInbound(ctx, InboundInput{ProductID: held, WarehouseID: warehouse, Quantity: mustDecimal(t, "3"), ActorID: actor})
	require.NoError(t, err)

	levels, err := svc.StockLevels(ctx, StockLevelFilter{})
	require.NoError(t, err)
	require.Len(t, levels, 1)
	require.Equal(t, held, levels[0].ProductID)
	require.True(t, levels[0].Quantity.Equal(mustDecimal(t, "3")))
}

func TestMovementValidation(t *testing.T) {
	product, warehouse, actor := uuid.New(), uuid.New(), uuid.New()
	saleID := uuid.New()
	base := Movement{ProductID: product, WarehouseID: warehouse, CreatedBy: actor, ReferenceKind: ReferenceManual}

	cases := []struct {
		name    string
		mutate  func(*Movement)
		wantErr bool
	}{
		{"in positive", func(m *Movement) { m.Kind = MovementIn; m.Quantity = mustDecimal(t, "1") }, false},
		{"in negative", func(m *Movement) { m.Kind = MovementIn; m.Quantity = mustDecimal(t, "-1") }, true},
		{"sale without reference", func(m *Movement) { m.Kind = MovementSale; m.Quantity = mustDecimal(t, "-1") }, true},
		{"sale with reference", func(m *Movement) {
			m.Kind = MovementSale
			m.Quantity = mustDecimal(t, "-1")
			m.ReferenceKind = ReferenceSale
			m.ReferenceID = &saleID
		}, false},
		{"refund negative", func(m *Movement) {
			m.Kind = MovementRefund
			m.Quantity = mustDecimal(t, "-1")
			m.ReferenceKind = ReferenceSale
			m.ReferenceID = &saleID
		}, true},
		{"zero quantity", func(m *Movement) { m.Kind = MovementAdjustment; m.Quantity = decimal.Zero }, true},
		{"missing creator", func(m *Movement) { m.Kind = MovementIn; m.Quantity = mustDecimal(t, "1"); m.CreatedBy = uuid.Nil }, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			m := base
			tc.mutate(&m)
			err := m.Validate()
			if tc.wantErr {
				require.ErrorIs(t, err, shared.ErrValidation)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestManualMovementsAreAudited(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo)
	ctx := context.Background()
	product, warehouse, actor := uuid.New(), uuid.New(), uuid.New()

	_, err := svc.PostInbound(ctx, InboundInput{ProductID: product, WarehouseID: warehouse, Quantity: mustDecimal(t, "1"), ActorID: actor})
	require.NoError(t, err)
	require.Len(t, repo.audits, 1)
	require.Equal(t, audit.ActionCreate, repo.audits[0].Action)
	require.Equal(t, "StockMovement", repo.audits[0].EntityType)
	require.Equal(t, actor, repo.audits[0].ActorID)
}
