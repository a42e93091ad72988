package inventory

import (
	"context"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/sokoerp/sokoerp/internal/platform/db"
	"github.com/sokoerp/sokoerp/internal/shared"
)

// Store is the append-only event store for stock movements. Built over a
// Querier, it joins whatever transaction the caller owns. The public
// surface has no update or delete; immutability is a property of the
// interface, not a convention.
type Store struct {
	q db.Querier
}

// NewStore builds a Store over a pool or transaction.
func NewStore(q db.Querier) *Store {
	return &Store{q: q}
}

// Append validates and persists one movement, returning it with its
// assigned identifier and timestamp.
func (s *Store) Append(ctx context.Context, m Movement) (Movement, error) {
	m.Quantity = shared.RoundQuantity(m.Quantity)
	if err := m.Validate(); err != nil {
		return Movement{}, err
	}
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}
	_, err := s.q.Exec(ctx, `
		INSERT INTO stock_movements (id, product_id, warehouse_id, movement_kind, quantity, reference_kind, reference_id, created_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		m.ID, m.ProductID, m.WarehouseID, string(m.Kind), m.Quantity, string(m.ReferenceKind), m.ReferenceID, m.CreatedBy, m.CreatedAt)
	if err != nil {
		return Movement{}, db.MapError(err)
	}
	return m, nil
}

// CurrentStock sums the signed quantities for one (product, warehouse)
// pair. A pair with no movements yields zero, not an error.
func (s *Store) CurrentStock(ctx context.Context, productID, warehouseID uuid.UUID) (decimal.Decimal, error) {
	var qty decimal.Decimal
	err := s.q.QueryRow(ctx, `
		SELECT COALESCE(SUM(quantity), 0)
		FROM stock_movements
		WHERE product_id = $1 AND warehouse_id = $2`,
		productID, warehouseID).Scan(&qty)
	if err != nil {
		return decimal.Zero, db.MapError(err)
	}
	return qty, nil
}

// StockLevels lists derived quantities per (product, warehouse) pair,
// restricted to pairs whose sum is strictly positive.
func (s *Store) StockLevels(ctx context.Context, filter StockLevelFilter) ([]StockLevel, error) {
	query := `
		SELECT product_id, warehouse_id, SUM(quantity) AS qty, MAX(created_at) AS last_at
		FROM stock_movements
		WHERE 1=1`
	args := []any{}
	if filter.ProductID != nil {
		args = append(args, *filter.ProductID)
		query += ` AND product_id = $` + strconv.Itoa(len(args))
	}
	if filter.WarehouseID != nil {
		args = append(args, *filter.WarehouseID)
		query += ` AND warehouse_id = $` + strconv.Itoa(len(args))
	}
	query += `
		GROUP BY product_id, warehouse_id
		HAVING SUM(quantity) > 0
		ORDER BY product_id, warehouse_id`

	rows, err := s.q.Query(ctx, query, args...)
	if err != nil {
		return nil, db.MapError(err)
	}
	defer rows.Close()

	var levels []StockLevel
	for rows.Next() {
		var level StockLevel
		if err := rows.Scan(&level.ProductID, &level.WarehouseID, &level.Quantity, &level.LastMovementAt); err != nil {
			return nil, db.MapError(err)
		}
		levels = append(levels, level)
	}
	if err := rows.Err(); err != nil {
		return nil, db.MapError(err)
	}
	return levels, nil
}

// List returns movements matching the filter, ordered by creation time
// with a stable identifier tie-break.
func (s *Store) List(ctx context.Context, filter MovementFilter) ([]Movement, error) {
	query := `
		SELECT id, product_id, warehouse_id, movement_kind, quantity, reference_kind, reference_id, created_by, created_at
		FROM stock_movements
		WHERE 1=1`
	args := []any{}
	if filter.ProductID != nil {
		args = append(args, *filter.ProductID)
		query += ` AND product_id = $` + strconv.Itoa(len(args))
	}
	if filter.WarehouseID != nil {
		args = append(args, *filter.WarehouseID)
		query += ` AND warehouse_id = $` + strconv.Itoa(len(args))
	}
	if filter.Kind != "" {
		args = append(args, string(filter.Kind))
		query += ` AND movement_kind = $` + strconv.Itoa(len(args))
	}
	if filter.ReferenceKind != "" {
		args = append(args, string(filter.ReferenceKind))
		query += ` AND reference_kind = $` + strconv.Itoa(len(args))
	}
	if filter.ReferenceID != nil {
		args = append(args, *filter.ReferenceID)
		query += ` AND reference_id = $` + strconv.Itoa(len(args))
	}
	if !filter.From.IsZero() {
		args = append(args, filter.From)
		query += ` AND created_at >= $` + strconv.Itoa(len(args))
	}
	if !filter.To.IsZero() {
		args = append(args, filter.To)
		query += ` AND created_at < $` + strconv.Itoa(len(args))
	}
	query += ` ORDER BY created_at, id`
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += ` LIMIT $` + strconv.Itoa(len(args))
	}

	rows, err := s.q.Query(ctx, query, args...)
	if err != nil {
		return nil, db.MapError(err)
	}
	defer rows.Close()

	var movements []Movement
	for rows.Next() {
		var m Movement
		var kind, refKind string
		if err := rows.Scan(&m.ID, &m.ProductID, &m.WarehouseID, &kind, &m.Quantity, &refKind, &m.ReferenceID, &m.CreatedBy, &m.CreatedAt); err != nil {
			return nil, db.MapError(err)
		}
		m.Kind = MovementKind(kind)
		m.ReferenceKind = ReferenceKind(refKind)
		movements = append(movements, m)
	}
	if err := rows.Err(); err != nil {
		return nil, db.MapError(err)
	}
	return movements, nil
}

// ProductReferenced reports whether any movement points at the product.
// Masterdata uses it for referential protection before hard deletes.
func (s *Store) ProductReferenced(ctx context.Context, productID uuid.UUID) (bool, error) {
	var exists bool
	err := s.q.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM stock_movements WHERE product_id = $1)`, productID).Scan(&exists)
	if err != nil {
		return false, db.MapError(err)
	}
	return exists, nil
}

// WarehouseReferenced reports whether any movement points at the warehouse.
func (s *Store) WarehouseReferenced(ctx context.Context, warehouseID uuid.UUID) (bool, error) {
	var exists bool
	err := s.q.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM stock_movements WHERE warehouse_id = $1)`, warehouseID).Scan(&exists)
	if err != nil {
		return false, db.MapError(err)
	}
	return exists, nil
}
