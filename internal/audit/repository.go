package audit

import (
	"context"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sokoerp/sokoerp/internal/platform/db"
)

// Repository reads the audit trail. It intentionally has no write surface;
// writes go through Recorder inside the mutating transaction.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Timeline returns one page of audit rows plus the unpaged total.
func (r *Repository) Timeline(ctx context.Context, filter TimelineFilter) ([]TimelineRow, int, error) {
	where := ` WHERE 1=1`
	args := []any{}

	if filter.ActorID != nil {
		args = append(args, *filter.ActorID)
		where += ` AND actor_id = $` + strconv.Itoa(len(args))
	}
	if filter.EntityType != "" {
		args = append(args, filter.EntityType)
		where += ` AND entity_type = $` + strconv.Itoa(len(args))
	}
	if filter.EntityID != nil {
		args = append(args, *filter.EntityID)
		where += ` AND entity_id = $` + strconv.Itoa(len(args))
	}
	if filter.Action != "" {
		args = append(args, string(filter.Action))
		where += ` AND action = $` + strconv.Itoa(len(args))
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
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM audit_logs`+where, args...).Scan(&total); err != nil {
		return nil, 0, db.MapError(err)
	}

	pageSize := filter.PageSize
	if pageSize <= 0 {
		pageSize = 20
	}
	if pageSize > 100 {
		pageSize = 100
	}
	page := filter.Page
	if page <= 0 {
		page = 1
	}
	args = append(args, pageSize)
	limitPos := strconv.Itoa(len(args))
	args = append(args, (page-1)*pageSize)
	offsetPos := strconv.Itoa(len(args))

	rows, err := r.pool.Query(ctx, `
		SELECT id, actor_id, action, entity_type, entity_id, before_state, after_state, created_at
		FROM audit_logs`+where+`
		ORDER BY created_at DESC, id DESC
		LIMIT $`+limitPos+` OFFSET $`+offsetPos, args...)
	if err != nil {
		return nil, 0, db.MapError(err)
	}
	defer rows.Close()

	var result []TimelineRow
	for rows.Next() {
		var row TimelineRow
		var createdAt time.Time
		if err := rows.Scan(&row.ID, &row.ActorID, &row.Action, &row.EntityType, &row.EntityID, &row.Before, &row.After, &createdAt); err != nil {
			return nil, 0, db.MapError(err)
		}
		row.CreatedAt = createdAt
		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, db.MapError(err)
	}
	return result, total, nil
}
