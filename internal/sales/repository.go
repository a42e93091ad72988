package sales

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/sokoerp/sokoerp/internal/audit"
	"github.com/sokoerp/sokoerp/internal/inventory"
	"github.com/sokoerp/sokoerp/internal/ledger"
	"github.com/sokoerp/sokoerp/internal/platform/db"
	"github.com/sokoerp/sokoerp/internal/shared"
)

// TxRepository exposes everything the workflow mutates inside one
// transaction: the sale aggregate, its lines and payments, the two
// event stores, and the audit record. All of it commits or none of it
// does.
type TxRepository interface {
	NextSaleNumber(ctx context.Context) (string, error)
	InsertSale(ctx context.Context, s Sale) error
	GetSaleForUpdate(ctx context.Context, id uuid.UUID) (Sale, error)
	UpdateTotals(ctx context.Context, id uuid.UUID, totals Totals) error
	UpdateStatus(ctx context.Context, id uuid.UUID, status Status) error
	ListItems(ctx context.Context, saleID uuid.UUID) ([]SaleItem, error)
	InsertItem(ctx context.Context, item SaleItem) (SaleItem, error)
	InsertPayment(ctx context.Context, p Payment) (Payment, error)
	CurrentStock(ctx context.Context, productID, warehouseID uuid.UUID) (decimal.Decimal, error)
	AppendMovement(ctx context.Context, m inventory.Movement) (inventory.Movement, error)
	AppendLedgerEntry(ctx context.Context, e ledger.Entry) (ledger.Entry, error)
	RecordAudit(ctx context.Context, entry audit.Entry) error
}

// RepositoryPort abstracts repository usage for the service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	GetSale(ctx context.Context, id uuid.UUID) (Sale, error)
	ListSales(ctx context.Context, filter SaleFilter) ([]Sale, int, error)
	ListItems(ctx context.Context, saleID uuid.UUID) ([]SaleItem, error)
	ListPayments(ctx context.Context, saleID uuid.UUID) ([]Payment, error)
}

// Repository persists sales in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

type txRepo struct {
	q         db.Querier
	movements *inventory.Store
	entries   *ledger.Store
	recorder  *audit.Recorder
}

// WithTx runs the callback inside a serializable transaction so the
// stock check and the appends that follow cannot interleave with a
// racing completion.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithSerializableTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepo{
			q:         tx,
			movements: inventory.NewStore(tx),
			entries:   ledger.NewStore(tx),
			recorder:  audit.NewRecorder(tx),
		})
	})
}

const saleColumns = `id, number, warehouse_id, sold_by, status, subtotal, discount_total, tax_total, grand_total, created_at`

func scanSale(row pgx.Row) (Sale, error) {
	var s Sale
	var status string
	err := row.Scan(&s.ID, &s.Number, &s.WarehouseID, &s.SoldBy, &status,
		&s.Subtotal, &s.DiscountTotal, &s.TaxTotal, &s.GrandTotal, &s.CreatedAt)
	if err != nil {
		return Sale{}, db.MapError(err)
	}
	s.Status = Status(status)
	return s, nil
}

// NextSaleNumber draws the next value from the sale number sequence and
// formats it as a human-readable yearly number. Sequence values are
// never reused, so voided sales keep their number.
func (t *txRepo) NextSaleNumber(ctx context.Context) (string, error) {
	var n int64
	if err := t.q.QueryRow(ctx, `SELECT nextval('sale_number_seq')`).Scan(&n); err != nil {
		return "", db.MapError(err)
	}
	return fmt.Sprintf("SALE-%d-%06d", time.Now().UTC().Year(), n), nil
}

func (t *txRepo) InsertSale(ctx context.Context, s Sale) error {
	_, err := t.q.Exec(ctx, `
		INSERT INTO sales (`+saleColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		s.ID, s.Number, s.WarehouseID, s.SoldBy, string(s.Status),
		s.Subtotal, s.DiscountTotal, s.TaxTotal, s.GrandTotal, s.CreatedAt)
	return db.MapError(err)
}

// GetSaleForUpdate locks the sale row so racing state transitions
// serialize on it.
func (t *txRepo) GetSaleForUpdate(ctx context.Context, id uuid.UUID) (Sale, error) {
	return scanSale(t.q.QueryRow(ctx, `
		SELECT `+saleColumns+` FROM sales WHERE id = $1 FOR UPDATE`, id))
}

func (t *txRepo) UpdateTotals(ctx context.Context, id uuid.UUID, totals Totals) error {
	tag, err := t.q.Exec(ctx, `
		UPDATE sales SET subtotal = $2, discount_total = $3, tax_total = $4, grand_total = $5
		WHERE id = $1`,
		id, totals.Subtotal, totals.DiscountTotal, totals.TaxTotal, totals.GrandTotal)
	if err != nil {
		return db.MapError(err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: sale %s", shared.ErrNotFound, id)
	}
	return nil
}

func (t *txRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status Status) error {
	tag, err := t.q.Exec(ctx, `UPDATE sales SET status = $2 WHERE id = $1`, id, string(status))
	if err != nil {
		return db.MapError(err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: sale %s", shared.ErrNotFound, id)
	}
	return nil
}

func (t *txRepo) ListItems(ctx context.Context, saleID uuid.UUID) ([]SaleItem, error) {
	return listItems(ctx, t.q, saleID)
}

func (t *txRepo) InsertItem(ctx context.Context, item SaleItem) (SaleItem, error) {
	if item.ID == uuid.Nil {
		item.ID = uuid.New()
	}
	_, err := t.q.Exec(ctx, `
		INSERT INTO sale_items (id, sale_id, product_id, quantity, unit_price, line_total)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		item.ID, item.SaleID, item.ProductID, item.Quantity, item.UnitPrice, item.LineTotal)
	if err != nil {
		return SaleItem{}, db.MapError(err)
	}
	return item, nil
}

func (t *txRepo) InsertPayment(ctx context.Context, p Payment) (Payment, error) {
	if err := p.Validate(); err != nil {
		return Payment{}, err
	}
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	var refCode *string
	if p.ReferenceCode != "" {
		refCode = &p.ReferenceCode
	}
	_, err := t.q.Exec(ctx, `
		INSERT INTO payments (id, sale_id, method, amount, reference_code, received_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		p.ID, p.SaleID, string(p.Method), p.Amount, refCode, p.ReceivedBy, p.CreatedAt)
	if err != nil {
		return Payment{}, db.MapError(err)
	}
	return p, nil
}

func (t *txRepo) CurrentStock(ctx context.Context, productID, warehouseID uuid.UUID) (decimal.Decimal, error) {
	return t.movements.CurrentStock(ctx, productID, warehouseID)
}

func (t *txRepo) AppendMovement(ctx context.Context, m inventory.Movement) (inventory.Movement, error) {
	return t.movements.Append(ctx, m)
}

func (t *txRepo) AppendLedgerEntry(ctx context.Context, e ledger.Entry) (ledger.Entry, error) {
	return t.entries.AppendEntry(ctx, e)
}

func (t *txRepo) RecordAudit(ctx context.Context, entry audit.Entry) error {
	return t.recorder.Record(ctx, entry)
}

// GetSale fetches one sale outside any transaction.
func (r *Repository) GetSale(ctx context.Context, id uuid.UUID) (Sale, error) {
	return scanSale(r.pool.QueryRow(ctx, `
		SELECT `+saleColumns+` FROM sales WHERE id = $1`, id))
}

// ListSales returns a page of sales plus the unpaged count.
func (r *Repository) ListSales(ctx context.Context, filter SaleFilter) ([]Sale, int, error) {
	where := ` WHERE 1=1`
	args := []any{}
	if filter.WarehouseID != nil {
		args = append(args, *filter.WarehouseID)
		where += ` AND warehouse_id = $` + strconv.Itoa(len(args))
	}
	if filter.Status != "" {
		args = append(args, string(filter.Status))
		where += ` AND status = $` + strconv.Itoa(len(args))
	}
	if filter.SoldBy != nil {
		args = append(args, *filter.SoldBy)
		where += ` AND sold_by = $` + strconv.Itoa(len(args))
	}
	if !filter.From.IsZero() {
		args = append(args, filter.From)
		where += ` AND created_at >= $` + strconv.Itoa(len(args))
	}
	if !filter.To.IsZero() {
		args = append(args, filter.To)
		where += ` AND created_at < $` + strconv.Itoa(len(args))
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM sales`+where, args...).Scan(&total); err != nil {
		return nil, 0, db.MapError(err)
	}

	query := `SELECT ` + saleColumns + ` FROM sales` + where + ` ORDER BY created_at DESC, id DESC`
	if filter.PerPage > 0 {
		args = append(args, filter.PerPage)
		query += ` LIMIT $` + strconv.Itoa(len(args))
		page := filter.Page
		if page < 1 {
			page = 1
		}
		args = append(args, (page-1)*filter.PerPage)
		query += ` OFFSET $` + strconv.Itoa(len(args))
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, db.MapError(err)
	}
	defer rows.Close()

	var sales []Sale
	for rows.Next() {
		var s Sale
		var status string
		if err := rows.Scan(&s.ID, &s.Number, &s.WarehouseID, &s.SoldBy, &status,
			&s.Subtotal, &s.DiscountTotal, &s.TaxTotal, &s.GrandTotal, &s.CreatedAt); err != nil {
			return nil, 0, db.MapError(err)
		}
		s.Status = Status(status)
		sales = append(sales, s)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, db.MapError(err)
	}
	return sales, total, nil
}

// ListItems fetches the sale's lines outside any transaction.
func (r *Repository) ListItems(ctx context.Context, saleID uuid.UUID) ([]SaleItem, error) {
	return listItems(ctx, r.pool, saleID)
}

func listItems(ctx context.Context, q db.Querier, saleID uuid.UUID) ([]SaleItem, error) {
	rows, err := q.Query(ctx, `
		SELECT id, sale_id, product_id, quantity, unit_price, line_total
		FROM sale_items WHERE sale_id = $1 ORDER BY id`, saleID)
	if err != nil {
		return nil, db.MapError(err)
	}
	defer rows.Close()

	var items []SaleItem
	for rows.Next() {
		var item SaleItem
		if err := rows.Scan(&item.ID, &item.SaleID, &item.ProductID,
			&item.Quantity, &item.UnitPrice, &item.LineTotal); err != nil {
			return nil, db.MapError(err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, db.MapError(err)
	}
	return items, nil
}

// ListPayments fetches the sale's payments outside any transaction.
func (r *Repository) ListPayments(ctx context.Context, saleID uuid.UUID) ([]Payment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, sale_id, method, amount, reference_code, received_by, created_at
		FROM payments WHERE sale_id = $1 ORDER BY created_at, id`, saleID)
	if err != nil {
		return nil, db.MapError(err)
	}
	defer rows.Close()

	var payments []Payment
	for rows.Next() {
		var p Payment
		var method string
		var refCode *string
		if err := rows.Scan(&p.ID, &p.SaleID, &method, &p.Amount, &refCode, &p.ReceivedBy, &p.CreatedAt); err != nil {
			return nil, db.MapError(err)
		}
		p.Method = PaymentMethod(method)
		if refCode != nil {
			p.ReferenceCode = *refCode
		}
		payments = append(payments, p)
	}
	if err := rows.Err(); err != nil {
		return nil, db.MapError(err)
	}
	return payments, nil
}
