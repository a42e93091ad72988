package sales

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/sokoerp/sokoerp/internal/audit"
	"github.com/sokoerp/sokoerp/internal/inventory"
	"github.com/sokoerp/sokoerp/internal/ledger"
	"github.com/sokoerp/sokoerp/internal/shared"
)

type memoryRepo struct {
	sales       map[uuid.UUID]Sale
	items       map[uuid.UUID][]SaleItem
	payments    []Payment
	paymentRefs map[string]bool
	movements   []inventory.Movement
	entries     []ledger.Entry
	audits      []audit.Entry
	seq         int64
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{
		sales:       map[uuid.UUID]Sale{},
		items:       map[uuid.UUID][]SaleItem{},
		paymentRefs: map[string]bool{},
	}
}

type memoryTx struct {
	repo          *memoryRepo
	insertedSales []Sale
	statusUpdates map[uuid.UUID]Status
	totalsUpdates map[uuid.UUID]Totals
	insertedItems []SaleItem
	payments      []Payment
	movements     []inventory.Movement
	entries       []ledger.Entry
	audits        []audit.Entry
}

func (r *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	tx := &memoryTx{
		repo:          r,
		statusUpdates: map[uuid.UUID]Status{},
		totalsUpdates: map[uuid.UUID]Totals{},
	}
	if err := fn(ctx, tx); err != nil {
		return err
	}
	for _, s := range tx.insertedSales {
		r.sales[s.ID] = s
	}
	for id, status := range tx.statusUpdates {
		s := r.sales[id]
		s.Status = status
		r.sales[id] = s
	}
	for id, totals := range tx.totalsUpdates {
		s := r.sales[id]
		s.Subtotal = totals.Subtotal
		s.DiscountTotal = totals.DiscountTotal
		s.TaxTotal = totals.TaxTotal
		s.GrandTotal = totals.GrandTotal
		r.sales[id] = s
	}
	for _, item := range tx.insertedItems {
		r.items[item.SaleID] = append(r.items[item.SaleID], item)
	}
	for _, p := range tx.payments {
		r.payments = append(r.payments, p)
		if p.ReferenceCode != "" {
			r.paymentRefs[p.ReferenceCode] = true
		}
	}
	r.movements = append(r.movements, tx.movements...)
	r.entries = append(r.entries, tx.entries...)
	r.audits = append(r.audits, tx.audits...)
	return nil
}

func (tx *memoryTx) NextSaleNumber(ctx context.Context) (string, error) {
	// Sequences do not roll back; drawn numbers stay consumed.
	tx.repo.seq++
	return fmt.Sprintf("SALE-%d-%06d", time.Now().UTC().Year(), tx.repo.seq), nil
}

func (tx *memoryTx) InsertSale(ctx context.Context, s Sale) error {
	tx.insertedSales = append(tx.insertedSales, s)
	return nil
}

func (tx *memoryTx) GetSaleForUpdate(ctx context.Context, id uuid.UUID) (Sale, error) {
	s, ok := tx.repo.sales[id]
	if !ok {
		return Sale{}, fmt.Errorf("%w: sale %s", shared.ErrNotFound, id)
	}
	if status, ok := tx.statusUpdates[id]; ok {
		s.Status = status
	}
	return s, nil
}

func (tx *memoryTx) UpdateTotals(ctx context.Context, id uuid.UUID, totals Totals) error {
	tx.totalsUpdates[id] = totals
	return nil
}

func (tx *memoryTx) UpdateStatus(ctx context.Context, id uuid.UUID, status Status) error {
	tx.statusUpdates[id] = status
	return nil
}

func (tx *memoryTx) ListItems(ctx context.Context, saleID uuid.UUID) ([]SaleItem, error) {
	items := append([]SaleItem{}, tx.repo.items[saleID]...)
	for _, item := range tx.insertedItems {
		if item.SaleID == saleID {
			items = append(items, item)
		}
	}
	return items, nil
}

func (tx *memoryTx) InsertItem(ctx context.Context, item SaleItem) (SaleItem, error) {
	if item.ID == uuid.Nil {
		item.ID = uuid.New()
	}
	tx.insertedItems = append(tx.insertedItems, item)
	return item, nil
}

func (tx *memoryTx) InsertPayment(ctx context.Context, p Payment) (Payment, error) {
	if err := p.Validate(); err != nil {
		return Payment{}, err
	}
	if p.ReferenceCode != "" {
		if tx.repo.paymentRefs[p.ReferenceCode] {
			return Payment{}, fmt.Errorf("%w: payment reference %q taken", shared.ErrConflict, p.ReferenceCode)
		}
		for _, staged := range tx.payments {
			if staged.ReferenceCode == p.ReferenceCode {
				return Payment{}, fmt.Errorf("%w: payment reference %q taken", shared.ErrConflict, p.ReferenceCode)
			}
		}
	}
	p.ID = uuid.New()
	p.CreatedAt = time.Now().UTC()
	tx.payments = append(tx.payments, p)
	return p, nil
}

func (tx *memoryTx) CurrentStock(ctx context.Context, productID, warehouseID uuid.UUID) (decimal.Decimal, error) {
	total := decimal.Zero
	all := append(append([]inventory.Movement{}, tx.repo.movements...), tx.movements...)
	for _, m := range all {
		if m.ProductID == productID && m.WarehouseID == warehouseID {
			total = total.Add(m.Quantity)
		}
	}
	return total, nil
}

func (tx *memoryTx) AppendMovement(ctx context.Context, m inventory.Movement) (inventory.Movement, error) {
	m.Quantity = shared.RoundQuantity(m.Quantity)
	if err := m.Validate(); err != nil {
		return inventory.Movement{}, err
	}
	m.ID = uuid.New()
	m.CreatedAt = time.Now().UTC()
	tx.movements = append(tx.movements, m)
	return m, nil
}

func (tx *memoryTx) AppendLedgerEntry(ctx context.Context, e ledger.Entry) (ledger.Entry, error) {
	e.Amount = shared.RoundMoney(e.Amount)
	if err := e.Validate(); err != nil {
		return ledger.Entry{}, err
	}
	e.ID = uuid.New()
	e.CreatedAt = time.Now().UTC()
	tx.entries = append(tx.entries, e)
	return e, nil
}

func (tx *memoryTx) RecordAudit(ctx context.Context, entry audit.Entry) error {
	tx.audits = append(tx.audits, entry)
	return nil
}

func (r *memoryRepo) GetSale(ctx context.Context, id uuid.UUID) (Sale, error) {
	s, ok := r.sales[id]
	if !ok {
		return Sale{}, fmt.Errorf("%w: sale %s", shared.ErrNotFound, id)
	}
	return s, nil
}

func (r *memoryRepo) ListSales(ctx context.Context, filter SaleFilter) ([]Sale, int, error) {
	var sales []Sale
	for _, s := range r.sales {
		if filter.Status != "" && s.Status != filter.Status {
			continue
		}
		sales = append(sales, s)
	}
	return sales, len(sales), nil
}

func (r *memoryRepo) ListItems(ctx context.Context, saleID uuid.UUID) ([]SaleItem, error) {
	return append([]SaleItem{}, r.items[saleID]...), nil
}

func (r *memoryRepo) ListPayments(ctx context.Context, saleID uuid.UUID) ([]Payment, error) {
	var payments []Payment
	for _, p := range r.payments {
		if p.SaleID == saleID {
			payments = append(payments, p)
		}
	}
	return payments, nil
}

func (r *memoryRepo) stock(productID, warehouseID uuid.UUID) decimal.Decimal {
	total := decimal.Zero
	for _, m := range r.movements {
		if m.ProductID == productID && m.WarehouseID == warehouseID {
			total = total.Add(m.Quantity)
		}
	}
	return total
}

func (r *memoryRepo) seedStock(productID, warehouseID uuid.UUID, quantity decimal.Decimal) {
	r.movements = append(r.movements, inventory.Movement{
		ID:            uuid.New(),
		ProductID:     productID,
		WarehouseID:   warehouseID,
		Kind:          inventory.MovementIn,
		Quantity:      quantity,
		ReferenceKind: inventory.ReferenceManual,
		CreatedBy:     uuid.New(),
		CreatedAt:     time.Now().UTC(),
	})
}

type memoryCatalog struct {
	products map[uuid.UUID]CatalogProduct
}

func (c *memoryCatalog) GetProduct(ctx context.Context, id uuid.UUID) (CatalogProduct, error) {
	p, ok := c.products[id]
	if !ok {
		return CatalogProduct{}, fmt.Errorf("%w: product %s", shared.ErrNotFound, id)
	}
	return p, nil
}

type testEnv struct {
	repo    *memoryRepo
	catalog *memoryCatalog
	svc     *Service
	revenue uuid.UUID
}

func newTestEnv() *testEnv {
	repo := newMemoryRepo()
	catalog := &memoryCatalog{products: map[uuid.UUID]CatalogProduct{}}
	revenue := uuid.New()
	return &testEnv{
		repo:    repo,
		catalog: catalog,
		svc:     NewService(repo, catalog, revenue),
		revenue: revenue,
	}
}

func (e *testEnv) addProduct(t *testing.T, price string, tracksStock bool) CatalogProduct {
	t.Helper()
	p := CatalogProduct{
		ID:          uuid.New(),
		SKU:         "SKU-" + uuid.NewString()[:8],
		Name:        "Product",
		UnitPrice:   dec(t, price),
		TracksStock: tracksStock,
		IsActive:    true,
	}
	e.catalog.products[p.ID] = p
	return p
}

func (e *testEnv) openSale(t *testing.T, warehouse uuid.UUID) Sale {
	t.Helper()
	sale, err := e.svc.Create(context.Background(), CreateInput{WarehouseID: warehouse, ActorID: uuid.New()})
	require.NoError(t, err)
	return sale
}

func TestCreateAssignsDistinctNumbers(t *testing.T) {
	env := newTestEnv()
	warehouse := uuid.New()

	first := env.openSale(t, warehouse)
	second := env.openSale(t, warehouse)

	require.Equal(t, StatusPending, first.Status)
	require.NotEqual(t, first.Number, second.Number)
	require.Regexp(t, `^SALE-\d{4}-\d{6}$`, first.Number)
	require.Len(t, env.repo.audits, 2)
	require.Equal(t, audit.ActionCreate, env.repo.audits[0].Action)
	require.Equal(t, "Sale", env.repo.audits[0].EntityType)
}

func TestAddItemFreezesPrice(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	warehouse, actor := uuid.New(), uuid.New()
	product := env.addProduct(t, "19.99", true)
	sale := env.openSale(t, warehouse)

	item, err := env.svc.AddItem(ctx, sale.ID, AddItemInput{ProductID: product.ID, Quantity: dec(t, "2"), ActorID: actor})
	require.NoError(t, err)
	require.True(t, item.UnitPrice.Equal(dec(t, "19.99")))
	require.True(t, item.LineTotal.Equal(dec(t, "39.98")))

	// A later catalog price change never touches the frozen line.
	changed := product
	changed.UnitPrice = dec(t, "25.00")
	env.catalog.products[product.ID] = changed

	items, err := env.repo.ListItems(ctx, sale.ID)
	require.NoError(t, err)
	require.True(t, items[0].UnitPrice.Equal(dec(t, "19.99")))

	updated, err := env.repo.GetSale(ctx, sale.ID)
	require.NoError(t, err)
	require.True(t, updated.Subtotal.Equal(dec(t, "39.98")))
	require.True(t, updated.GrandTotal.Equal(dec(t, "39.98")))
}

func TestAddItemRejectedOutsidePending(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	warehouse, actor := uuid.New(), uuid.New()
	product := env.addProduct(t, "5.00", false)
	sale := env.openSale(t, warehouse)

	_, err := env.svc.Void(ctx, sale.ID, actor)
	require.NoError(t, err)

	_, err = env.svc.AddItem(ctx, sale.ID, AddItemInput{ProductID: product.ID, Quantity: dec(t, "1"), ActorID: actor})
	require.ErrorIs(t, err, shared.ErrInvalidState)
}

func TestAddItemQuantityMustBePositive(t *testing.T) {
	env := newTestEnv()
	product := env.addProduct(t, "5.00", false)
	sale := env.openSale(t, uuid.New())

	_, err := env.svc.AddItem(context.Background(), sale.ID, AddItemInput{ProductID: product.ID, Quantity: dec(t, "-1")})
	require.ErrorIs(t, err, shared.ErrValidation)
	_, err = env.svc.AddItem(context.Background(), sale.ID, AddItemInput{ProductID: product.ID, Quantity: decimal.Zero})
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestCompleteHappyPath(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	warehouse, actor := uuid.New(), uuid.New()
	product := env.addProduct(t, "19.99", true)
	env.repo.seedStock(product.ID, warehouse, dec(t, "10"))
	sale := env.openSale(t, warehouse)

	_, err := env.svc.AddItem(ctx, sale.ID, AddItemInput{ProductID: product.ID, Quantity: dec(t, "4"), ActorID: actor})
	require.NoError(t, err)

	completed, err := env.svc.Complete(ctx, sale.ID, actor)
	require.NoError(t, err)
	require.Equal(t, StatusCompleted, completed.Status)

	require.True(t, env.repo.stock(product.ID, warehouse).Equal(dec(t, "6")))

	require.Len(t, env.repo.entries, 1)
	entry := env.repo.entries[0]
	require.Equal(t, env.revenue, entry.AccountID)
	require.True(t, entry.Amount.Equal(dec(t, "79.96")), "got %s", entry.Amount)
	require.Equal(t, ledger.ReferenceSale, entry.ReferenceKind)
	require.Equal(t, sale.ID, entry.ReferenceID)

	last := env.repo.audits[len(env.repo.audits)-1]
	require.Equal(t, audit.ActionUpdate, last.Action)
	require.Equal(t, "Sale", last.EntityType)
	require.NotNil(t, last.Before)
	require.NotNil(t, last.After)
}

func TestCompleteInsufficientStock(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	warehouse, actor := uuid.New(), uuid.New()
	product := env.addProduct(t, "19.99", true)
	env.repo.seedStock(product.ID, warehouse, dec(t, "10"))
	sale := env.openSale(t, warehouse)

	_, err := env.svc.AddItem(ctx, sale.ID, AddItemInput{ProductID: product.ID, Quantity: dec(t, "15"), ActorID: actor})
	require.NoError(t, err)

	_, err = env.svc.Complete(ctx, sale.ID, actor)
	require.ErrorIs(t, err, shared.ErrInsufficientStock)

	require.True(t, env.repo.stock(product.ID, warehouse).Equal(dec(t, "10")))
	require.Empty(t, env.repo.entries)
	got, err := env.repo.GetSale(ctx, sale.ID)
	require.NoError(t, err)
	require.Equal(t, StatusPending, got.Status)
}

func TestCompleteAtomicAcrossItems(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	warehouse, actor := uuid.New(), uuid.New()
	plenty := env.addProduct(t, "2.00", true)
	scarce := env.addProduct(t, "3.00", true)
	env.repo.seedStock(plenty.ID, warehouse, dec(t, "100"))
	env.repo.seedStock(scarce.ID, warehouse, dec(t, "1"))
	sale := env.openSale(t, warehouse)

	_, err := env.svc.AddItem(ctx, sale.ID, AddItemInput{ProductID: plenty.ID, Quantity: dec(t, "10"), ActorID: actor})
	require.NoError(t, err)
	_, err = env.svc.AddItem(ctx, sale.ID, AddItemInput{ProductID: scarce.ID, Quantity: dec(t, "5"), ActorID: actor})
	require.NoError(t, err)

	_, err = env.svc.Complete(ctx, sale.ID, actor)
	require.ErrorIs(t, err, shared.ErrInsufficientStock)

	// The passing line produced nothing either.
	for _, m := range env.repo.movements {
		require.NotEqual(t, inventory.MovementSale, m.Kind)
	}
	require.Empty(t, env.repo.entries)
}

func TestCompleteTwiceRejected(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	warehouse, actor := uuid.New(), uuid.New()
	product := env.addProduct(t, "10.00", true)
	env.repo.seedStock(product.ID, warehouse, dec(t, "10"))
	sale := env.openSale(t, warehouse)

	_, err := env.svc.AddItem(ctx, sale.ID, AddItemInput{ProductID: product.ID, Quantity: dec(t, "4"), ActorID: actor})
	require.NoError(t, err)

	_, err = env.svc.Complete(ctx, sale.ID, actor)
	require.NoError(t, err)
	_, err = env.svc.Complete(ctx, sale.ID, actor)
	require.ErrorIs(t, err, shared.ErrInvalidState)

	saleMovements := 0
	for _, m := range env.repo.movements {
		if m.Kind == inventory.MovementSale {
			saleMovements++
		}
	}
	require.Equal(t, 1, saleMovements)
	require.Len(t, env.repo.entries, 1)
}

func TestCompleteRequiresItems(t *testing.T) {
	env := newTestEnv()
	sale := env.openSale(t, uuid.New())

	_, err := env.svc.Complete(context.Background(), sale.ID, uuid.New())
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestUntrackedProductSkipsStockCheck(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	warehouse, actor := uuid.New(), uuid.New()
	service := env.addProduct(t, "50.00", false)
	sale := env.openSale(t, warehouse)

	_, err := env.svc.AddItem(ctx, sale.ID, AddItemInput{ProductID: service.ID, Quantity: dec(t, "1"), ActorID: actor})
	require.NoError(t, err)

	// No stock anywhere, yet completion succeeds and only the ledger
	// records the sale.
	_, err = env.svc.Complete(ctx, sale.ID, actor)
	require.NoError(t, err)
	require.Empty(t, env.repo.movements)
	require.Len(t, env.repo.entries, 1)
	require.True(t, env.repo.entries[0].Amount.Equal(dec(t, "50.00")))
}

func TestRefundFullRestoresStockAndReversesRevenue(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	warehouse, actor := uuid.New(), uuid.New()
	product := env.addProduct(t, "19.99", true)
	env.repo.seedStock(product.ID, warehouse, dec(t, "10"))
	sale := env.openSale(t, warehouse)

	_, err := env.svc.AddItem(ctx, sale.ID, AddItemInput{ProductID: product.ID, Quantity: dec(t, "4"), ActorID: actor})
	require.NoError(t, err)
	_, err = env.svc.Complete(ctx, sale.ID, actor)
	require.NoError(t, err)

	refunded, err := env.svc.Refund(ctx, sale.ID, RefundInput{ActorID: actor})
	require.NoError(t, err)
	require.Equal(t, StatusRefunded, refunded.Status)

	require.True(t, env.repo.stock(product.ID, warehouse).Equal(dec(t, "10")))

	// Both entries retained; net revenue from this sale is zero.
	require.Len(t, env.repo.entries, 2)
	net := env.repo.entries[0].Amount.Add(env.repo.entries[1].Amount)
	require.True(t, net.IsZero(), "net %s", net)
	require.Equal(t, ledger.ReferenceRefund, env.repo.entries[1].ReferenceKind)
}

func TestRefundPartial(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	warehouse, actor := uuid.New(), uuid.New()
	product := env.addProduct(t, "10.00", true)
	env.repo.seedStock(product.ID, warehouse, dec(t, "10"))
	sale := env.openSale(t, warehouse)

	item, err := env.svc.AddItem(ctx, sale.ID, AddItemInput{ProductID: product.ID, Quantity: dec(t, "4"), ActorID: actor})
	require.NoError(t, err)
	_, err = env.svc.Complete(ctx, sale.ID, actor)
	require.NoError(t, err)

	_, err = env.svc.Refund(ctx, sale.ID, RefundInput{
		Lines:   []RefundLine{{ItemID: item.ID, Quantity: dec(t, "1")}},
		ActorID: actor,
	})
	require.NoError(t, err)

	require.True(t, env.repo.stock(product.ID, warehouse).Equal(dec(t, "7")))
	last := env.repo.entries[len(env.repo.entries)-1]
	require.True(t, last.Amount.Equal(dec(t, "-10.00")), "got %s", last.Amount)
}

func TestRefundBoundedByOriginalSale(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	warehouse, actor := uuid.New(), uuid.New()
	product := env.addProduct(t, "10.00", true)
	env.repo.seedStock(product.ID, warehouse, dec(t, "10"))
	sale := env.openSale(t, warehouse)

	item, err := env.svc.AddItem(ctx, sale.ID, AddItemInput{ProductID: product.ID, Quantity: dec(t, "4"), ActorID: actor})
	require.NoError(t, err)
	_, err = env.svc.Complete(ctx, sale.ID, actor)
	require.NoError(t, err)

	_, err = env.svc.Refund(ctx, sale.ID, RefundInput{
		Lines:   []RefundLine{{ItemID: item.ID, Quantity: dec(t, "5")}},
		ActorID: actor,
	})
	require.ErrorIs(t, err, shared.ErrValidation)
	require.True(t, env.repo.stock(product.ID, warehouse).Equal(dec(t, "6")))
}

func TestRefundOnlyFromCompleted(t *testing.T) {
	env := newTestEnv()
	sale := env.openSale(t, uuid.New())

	_, err := env.svc.Refund(context.Background(), sale.ID, RefundInput{ActorID: uuid.New()})
	require.ErrorIs(t, err, shared.ErrInvalidState)
}

func TestVoidPendingLeavesNoEvents(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	warehouse, actor := uuid.New(), uuid.New()
	product := env.addProduct(t, "10.00", true)
	env.repo.seedStock(product.ID, warehouse, dec(t, "10"))
	sale := env.openSale(t, warehouse)

	_, err := env.svc.AddItem(ctx, sale.ID, AddItemInput{ProductID: product.ID, Quantity: dec(t, "4"), ActorID: actor})
	require.NoError(t, err)

	voided, err := env.svc.Void(ctx, sale.ID, actor)
	require.NoError(t, err)
	require.Equal(t, StatusVoided, voided.Status)

	for _, m := range env.repo.movements {
		require.NotEqual(t, inventory.MovementSale, m.Kind)
	}
	require.Empty(t, env.repo.entries)
	last := env.repo.audits[len(env.repo.audits)-1]
	require.Equal(t, audit.ActionVoid, last.Action)
}

func TestVoidCompletedRejected(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	warehouse, actor := uuid.New(), uuid.New()
	product := env.addProduct(t, "10.00", true)
	env.repo.seedStock(product.ID, warehouse, dec(t, "10"))
	sale := env.openSale(t, warehouse)

	_, err := env.svc.AddItem(ctx, sale.ID, AddItemInput{ProductID: product.ID, Quantity: dec(t, "1"), ActorID: actor})
	require.NoError(t, err)
	_, err = env.svc.Complete(ctx, sale.ID, actor)
	require.NoError(t, err)

	_, err = env.svc.Void(ctx, sale.ID, actor)
	require.ErrorIs(t, err, shared.ErrInvalidState)
}

func TestRecordPayment(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	actor := uuid.New()
	sale := env.openSale(t, uuid.New())

	payment, err := env.svc.RecordPayment(ctx, sale.ID, PaymentInput{
		Method: PaymentMpesa, Amount: dec(t, "100.00"), ReferenceCode: "QX12AB34", ActorID: actor,
	})
	require.NoError(t, err)
	require.Equal(t, PaymentMpesa, payment.Method)

	_, err = env.svc.RecordPayment(ctx, sale.ID, PaymentInput{
		Method: PaymentMpesa, Amount: dec(t, "50.00"), ReferenceCode: "QX12AB34", ActorID: actor,
	})
	require.ErrorIs(t, err, shared.ErrConflict)

	_, err = env.svc.RecordPayment(ctx, sale.ID, PaymentInput{
		Method: PaymentCash, Amount: dec(t, "-5.00"), ActorID: actor,
	})
	require.ErrorIs(t, err, shared.ErrValidation)

	_, err = env.svc.RecordPayment(ctx, sale.ID, PaymentInput{
		Method: "CRYPTO", Amount: dec(t, "5.00"), ActorID: actor,
	})
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestPaymentRejectedOnVoidedSale(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	actor := uuid.New()
	sale := env.openSale(t, uuid.New())

	_, err := env.svc.Void(ctx, sale.ID, actor)
	require.NoError(t, err)

	_, err = env.svc.RecordPayment(ctx, sale.ID, PaymentInput{
		Method: PaymentCash, Amount: dec(t, "5.00"), ActorID: actor,
	})
	require.ErrorIs(t, err, shared.ErrInvalidState)
}

func TestSetAdjustmentsRecomputesGrandTotal(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	actor := uuid.New()
	product := env.addProduct(t, "25.00", false)
	sale := env.openSale(t, uuid.New())

	_, err := env.svc.AddItem(ctx, sale.ID, AddItemInput{ProductID: product.ID, Quantity: dec(t, "2"), ActorID: actor})
	require.NoError(t, err)

	updated, err := env.svc.SetAdjustments(ctx, sale.ID, AdjustmentsInput{
		DiscountTotal: dec(t, "5.00"), TaxTotal: dec(t, "8.00"), ActorID: actor,
	})
	require.NoError(t, err)
	require.True(t, updated.Subtotal.Equal(dec(t, "50.00")))
	require.True(t, updated.GrandTotal.Equal(dec(t, "53.00")), "got %s", updated.GrandTotal)

	_, err = env.svc.SetAdjustments(ctx, sale.ID, AdjustmentsInput{
		DiscountTotal: dec(t, "-1.00"), ActorID: actor,
	})
	require.ErrorIs(t, err, shared.ErrValidation)
}
