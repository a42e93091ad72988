package sales

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/sokoerp/sokoerp/internal/platform/httpx"
	"github.com/sokoerp/sokoerp/internal/shared"
)

// Handler exposes the sales JSON API.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler builds Handler.
func NewHandler(logger *slog.Logger, service *Service, validate *validator.Validate) *Handler {
	return &Handler{logger: logger, service: service, validate: validate}
}

// Routes mounts the handler on a chi router.
func (h *Handler) Routes(r chi.Router) {
	r.Route("/sales", func(r chi.Router) {
		r.Get("/", h.List)
		r.Post("/", h.Create)
		r.Get("/{id}", h.Get)
		r.Post("/{id}/items", h.AddItem)
		r.Put("/{id}/adjustments", h.SetAdjustments)
		r.Post("/{id}/payments", h.RecordPayment)
		r.Post("/{id}/complete", h.Complete)
		r.Post("/{id}/void", h.Void)
		r.Post("/{id}/refund", h.Refund)
	})
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var input CreateInput
	if err := httpx.DecodeJSON(r, &input); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", err.Error())
		return
	}
	if err := h.validate.Struct(input); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	principal, _ := shared.PrincipalFromContext(r.Context())
	input.ActorID = principal.UserID
	sale, err := h.service.Create(r.Context(), input)
	if err != nil {
		h.logger.Error("create sale", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, sale)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid ID", err.Error())
		return
	}
	sale, items, payments, err := h.service.Get(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if items == nil {
		items = []SaleItem{}
	}
	if payments == nil {
		payments = []Payment{}
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"sale":     sale,
		"items":    items,
		"payments": payments,
	})
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	filter, err := parseSaleFilter(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Filter", err.Error())
		return
	}
	sales, pagination, err := h.service.List(r.Context(), filter)
	if err != nil {
		h.logger.Error("list sales", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	if sales == nil {
		sales = []Sale{}
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"sales":      sales,
		"pagination": pagination,
	})
}

func (h *Handler) AddItem(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid ID", err.Error())
		return
	}
	var input AddItemInput
	if err := httpx.DecodeJSON(r, &input); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", err.Error())
		return
	}
	if err := h.validate.Struct(input); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	principal, _ := shared.PrincipalFromContext(r.Context())
	input.ActorID = principal.UserID
	item, err := h.service.AddItem(r.Context(), id, input)
	if err != nil {
		h.logger.Error("add sale item", slog.Any("error", err), slog.String("sale_id", id.String()))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, item)
}

func (h *Handler) SetAdjustments(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid ID", err.Error())
		return
	}
	var input AdjustmentsInput
	if err := httpx.DecodeJSON(r, &input); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", err.Error())
		return
	}
	principal, _ := shared.PrincipalFromContext(r.Context())
	input.ActorID = principal.UserID
	sale, err := h.service.SetAdjustments(r.Context(), id, input)
	if err != nil {
		h.logger.Error("set sale adjustments", slog.Any("error", err), slog.String("sale_id", id.String()))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, sale)
}

func (h *Handler) RecordPayment(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid ID", err.Error())
		return
	}
	var input PaymentInput
	if err := httpx.DecodeJSON(r, &input); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", err.Error())
		return
	}
	if err := h.validate.Struct(input); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	principal, _ := shared.PrincipalFromContext(r.Context())
	input.ActorID = principal.UserID
	payment, err := h.service.RecordPayment(r.Context(), id, input)
	if err != nil {
		h.logger.Error("record payment", slog.Any("error", err), slog.String("sale_id", id.String()))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, payment)
}

func (h *Handler) Complete(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, "complete sale", h.service.Complete)
}

func (h *Handler) Void(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, "void sale", h.service.Void)
}

func (h *Handler) transition(w http.ResponseWriter, r *http.Request, name string, fn func(ctx context.Context, saleID, actorID uuid.UUID) (Sale, error)) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid ID", err.Error())
		return
	}
	principal, _ := shared.PrincipalFromContext(r.Context())
	sale, err := fn(r.Context(), id, principal.UserID)
	if err != nil {
		h.logger.Error(name, slog.Any("error", err), slog.String("sale_id", id.String()))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, sale)
}

func (h *Handler) Refund(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid ID", err.Error())
		return
	}
	var input RefundInput
	if err := httpx.DecodeJSON(r, &input); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", err.Error())
		return
	}
	principal, _ := shared.PrincipalFromContext(r.Context())
	input.ActorID = principal.UserID
	sale, err := h.service.Refund(r.Context(), id, input)
	if err != nil {
		h.logger.Error("refund sale", slog.Any("error", err), slog.String("sale_id", id.String()))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, sale)
}

func parseSaleFilter(r *http.Request) (SaleFilter, error) {
	var filter SaleFilter
	q := r.URL.Query()
	if v := q.Get("warehouse_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			return SaleFilter{}, fmt.Errorf("warehouse_id: %w", err)
		}
		filter.WarehouseID = &id
	}
	if v := q.Get("status"); v != "" {
		filter.Status = Status(v)
	}
	if v := q.Get("sold_by"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			return SaleFilter{}, fmt.Errorf("sold_by: %w", err)
		}
		filter.SoldBy = &id
	}
	if v := q.Get("from"); v != "" {
		t, err := time.Parse("2006-01-02", v)
		if err != nil {
			return SaleFilter{}, fmt.Errorf("from: %w", err)
		}
		filter.From = t
	}
	if v := q.Get("to"); v != "" {
		t, err := time.Parse("2006-01-02", v)
		if err != nil {
			return SaleFilter{}, fmt.Errorf("to: %w", err)
		}
		filter.To = t.Add(24 * time.Hour)
	}
	filter.Page, _ = strconv.Atoi(q.Get("page"))
	filter.PerPage, _ = strconv.Atoi(q.Get("per_page"))
	return filter, nil
}
