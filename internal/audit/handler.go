package audit

import (
	"encoding/csv"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/sokoerp/sokoerp/internal/platform/httpx"
)

// Handler exposes the audit timeline JSON API.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler builds Handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// Routes mounts the handler on a chi router.
func (h *Handler) Routes(r chi.Router) {
	r.Route("/audit", func(r chi.Router) {
		r.Get("/timeline", h.Timeline)
		r.Get("/timeline/export", h.Export)
	})
}

func (h *Handler) Timeline(w http.ResponseWriter, r *http.Request) {
	filter, err := parseTimelineFilter(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Filter", err.Error())
		return
	}
	rows, pagination, err := h.service.Timeline(r.Context(), filter)
	if err != nil {
		h.logger.Error("audit timeline", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	if rows == nil {
		rows = []TimelineRow{}
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"entries":    rows,
		"pagination": pagination,
	})
}

func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	filter, err := parseTimelineFilter(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Filter", err.Error())
		return
	}
	rows, err := h.service.Export(r.Context(), filter)
	if err != nil {
		h.logger.Error("audit export", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf(`attachment; filename="audit-%s.csv"`, time.Now().UTC().Format("2006-01-02")))

	cw := csv.NewWriter(w)
	_ = cw.Write([]string{"id", "actor_id", "action", "entity_type", "entity_id", "created_at", "before", "after"})
	for _, row := range rows {
		_ = cw.Write([]string{
			row.ID.String(),
			row.ActorID.String(),
			string(row.Action),
			row.EntityType,
			row.EntityID.String(),
			row.CreatedAt.UTC().Format(time.RFC3339),
			string(row.Before),
			string(row.After),
		})
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		h.logger.Error("audit export write", slog.Any("error", err))
	}
}

func parseTimelineFilter(r *http.Request) (TimelineFilter, error) {
	var filter TimelineFilter
	q := r.URL.Query()
	if v := q.Get("actor_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			return TimelineFilter{}, fmt.Errorf("actor_id: %w", err)
		}
		filter.ActorID = &id
	}
	filter.EntityType = q.Get("entity_type")
	if v := q.Get("entity_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			return TimelineFilter{}, fmt.Errorf("entity_id: %w", err)
		}
		filter.EntityID = &id
	}
	if v := q.Get("action"); v != "" {
		filter.Action = Action(v)
	}
	if v := q.Get("from"); v != "" {
		t, err := time.Parse("2006-01-02", v)
		if err != nil {
			return TimelineFilter{}, fmt.Errorf("from: %w", err)
		}
		filter.From = t
	}
	if v := q.Get("to"); v != "" {
		t, err := time.Parse("2006-01-02", v)
		if err != nil {
			return TimelineFilter{}, fmt.Errorf("to: %w", err)
		}
		filter.To = t.Add(24 * time.Hour)
	}
	if v := q.Get("page"); v != "" {
		page, err := strconv.Atoi(v)
		if err != nil {
			return TimelineFilter{}, fmt.Errorf("page: %w", err)
		}
		filter.Page = page
	}
	if v := q.Get("per_page"); v != "" {
		size, err := strconv.Atoi(v)
		if err != nil {
			return TimelineFilter{}, fmt.Errorf("per_page: %w", err)
		}
		filter.PageSize = size
	}
	return filter, nil
}
