package audit

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"

	"github.com/sokoerp/sokoerp/internal/shared"
)

type memoryRepo struct {
	rows []TimelineRow
}

func (r *memoryRepo) Timeline(_ context.Context, filter TimelineFilter) ([]TimelineRow, int, error) {
	var matched []TimelineRow
	for _, row := range r.rows {
		if filter.EntityType != "" && row.EntityType != filter.EntityType {
			continue
		}
		if filter.Action != "" && row.Action != filter.Action {
			continue
		}
		matched = append(matched, row)
	}
	pageSize := filter.PageSize
	if pageSize <= 0 {
		pageSize = 20
	}
	page := filter.Page
	if page <= 0 {
		page = 1
	}
	start := (page - 1) * pageSize
	if start >= len(matched) {
		return nil, len(matched), nil
	}
	end := start + pageSize
	if end > len(matched) {
		end = len(matched)
	}
	return matched[start:end], len(matched), nil
}

func seedRows(n int, entityType string) []TimelineRow {
	rows := make([]TimelineRow, 0, n)
	for i := 0; i < n; i++ {
		rows = append(rows, TimelineRow{
			ID:         uuid.New(),
			ActorID:    uuid.New(),
			Action:     ActionCreate,
			EntityType: entityType,
			EntityID:   uuid.New(),
			CreatedAt:  time.Now().UTC(),
		})
	}
	return rows
}

func TestTimelinePagination(t *testing.T) {
	repo := &memoryRepo{rows: seedRows(45, "Sale")}
	svc := NewService(repo)

	rows, pagination, err := svc.Timeline(context.Background(), TimelineFilter{Page: 3, PageSize: 20})
	require.NoError(t, err)
	require.Len(t, rows, 5)
	require.Equal(t, 45, pagination.Total)
	require.Equal(t, 3, pagination.TotalPages)
}

func TestTimelineFiltersByEntityType(t *testing.T) {
	repo := &memoryRepo{rows: append(seedRows(3, "Sale"), seedRows(2, "Product")...)}
	svc := NewService(repo)

	rows, pagination, err := svc.Timeline(context.Background(), TimelineFilter{EntityType: "Product"})
	require.NoError(t, err)
	require.Len(t, rows, 2)
	require.Equal(t, 2, pagination.Total)
}

func TestExportCollectsAllPages(t *testing.T) {
	repo := &memoryRepo{rows: seedRows(250, "Sale")}
	svc := NewService(repo)

	rows, err := svc.Export(context.Background(), TimelineFilter{})
	require.NoError(t, err)
	require.Len(t, rows, 250)
}

// captureQuerier records the last Exec call.
type captureQuerier struct {
	sql  string
	args []any
}

func (q *captureQuerier) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	q.sql = sql
	q.args = args
	return pgconn.NewCommandTag("INSERT 0 1"), nil
}

func (q *captureQuerier) Query(context.Context, string, ...any) (pgx.Rows, error) {
	panic("not used")
}

func (q *captureQuerier) QueryRow(context.Context, string, ...any) pgx.Row {
	panic("not used")
}

func TestRecorderValidation(t *testing.T) {
	rec := NewRecorder(&captureQuerier{})
	actor := uuid.New()
	entity := uuid.New()

	cases := []struct {
		name  string
		entry Entry
	}{
		{"missing actor", Entry{Action: ActionCreate, EntityType: "Sale", EntityID: entity, After: "x"}},
		{"missing entity", Entry{ActorID: actor, Action: ActionCreate, After: "x"}},
		{"create without after", Entry{ActorID: actor, Action: ActionCreate, EntityType: "Sale", EntityID: entity}},
		{"delete without before", Entry{ActorID: actor, Action: ActionDelete, EntityType: "Sale", EntityID: entity}},
		{"update without before", Entry{ActorID: actor, Action: ActionUpdate, EntityType: "Sale", EntityID: entity, After: "x"}},
		{"unknown action", Entry{ActorID: actor, Action: Action("PATCH"), EntityType: "Sale", EntityID: entity, After: "x"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.ErrorIs(t, rec.Record(context.Background(), tc.entry), shared.ErrValidation)
		})
	}
}

func TestRecorderCapturesSnapshotAtRecordTime(t *testing.T) {
	q := &captureQuerier{}
	rec := NewRecorder(q)

	state := map[string]string{"status": "PENDING"}
	err := rec.Record(context.Background(), Entry{
		ActorID:    uuid.New(),
		Action:     ActionCreate,
		EntityType: "Sale",
		EntityID:   uuid.New(),
		After:      state,
	})
	require.NoError(t, err)

	// Mutating the source after recording must not change what was stored.
	state["status"] = "COMPLETED"
	require.JSONEq(t, `{"status":"PENDING"}`, string(q.args[6].([]byte)))
}
