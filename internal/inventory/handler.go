package inventory

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/sokoerp/sokoerp/internal/platform/httpx"
	"github.com/sokoerp/sokoerp/internal/shared"
)

// Handler exposes the inventory JSON API.
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
	r.Route("/inventory", func(r chi.Router) {
		r.Get("/stock-levels", h.StockLevels)
		r.Get("/stock", h.CurrentStock)
		r.Get("/movements", h.Movements)
		r.Post("/inbound", h.PostInbound)
		r.Post("/outbound", h.PostOutbound)
		r.Post("/adjustments", h.PostAdjustment)
		r.Post("/transfers", h.PostTransfer)
	})
}

type inboundRequest struct {
	ProductID   uuid.UUID       `json:"product_id" validate:"required"`
	WarehouseID uuid.UUID       `json:"warehouse_id" validate:"required"`
	Quantity    decimal.Decimal `json:"quantity" validate:"required"`
	Reference   string          `json:"reference"`
	ReferenceID *uuid.UUID      `json:"reference_id"`
}

type movementRequest struct {
	ProductID   uuid.UUID       `json:"product_id" validate:"required"`
	WarehouseID uuid.UUID       `json:"warehouse_id" validate:"required"`
	Quantity    decimal.Decimal `json:"quantity" validate:"required"`
}

type transferRequest struct {
	ProductID    uuid.UUID       `json:"product_id" validate:"required"`
	SrcWarehouse uuid.UUID       `json:"src_warehouse" validate:"required"`
	DstWarehouse uuid.UUID       `json:"dst_warehouse" validate:"required"`
	Quantity     decimal.Decimal `json:"quantity" validate:"required"`
}

func (h *Handler) PostInbound(w http.ResponseWriter, r *http.Request) {
	var req inboundRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	principal, _ := shared.PrincipalFromContext(r.Context())
	movement, err := h.service.PostInbound(r.Context(), InboundInput{
		ProductID:   req.ProductID,
		WarehouseID: req.WarehouseID,
		Quantity:    req.Quantity,
		Reference:   ReferenceKind(req.Reference),
		ReferenceID: req.ReferenceID,
		ActorID:     principal.UserID,
	})
	if err != nil {
		h.logger.Error("post inbound", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, movement)
}

func (h *Handler) PostOutbound(w http.ResponseWriter, r *http.Request) {
	var req movementRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	principal, _ := shared.PrincipalFromContext(r.Context())
	movement, err := h.service.PostOutbound(r.Context(), OutboundInput{
		ProductID:   req.ProductID,
		WarehouseID: req.WarehouseID,
		Quantity:    req.Quantity,
		ActorID:     principal.UserID,
	})
	if err != nil {
		h.logger.Error("post outbound", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, movement)
}

func (h *Handler) PostAdjustment(w http.ResponseWriter, r *http.Request) {
	var req movementRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	principal, _ := shared.PrincipalFromContext(r.Context())
	movement, err := h.service.PostAdjustment(r.Context(), AdjustmentInput{
		ProductID:   req.ProductID,
		WarehouseID: req.WarehouseID,
		Quantity:    req.Quantity,
		ActorID:     principal.UserID,
	})
	if err != nil {
		h.logger.Error("post adjustment", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, movement)
}

func (h *Handler) PostTransfer(w http.ResponseWriter, r *http.Request) {
	var req transferRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	principal, _ := shared.PrincipalFromContext(r.Context())
	out, in, err := h.service.PostTransfer(r.Context(), TransferInput{
		ProductID:    req.ProductID,
		SrcWarehouse: req.SrcWarehouse,
		DstWarehouse: req.DstWarehouse,
		Quantity:     req.Quantity,
		ActorID:      principal.UserID,
	})
	if err != nil {
		h.logger.Error("post transfer", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]any{"out": out, "in": in})
}

func (h *Handler) CurrentStock(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	productID, err := uuid.Parse(q.Get("product_id"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Filter", "product_id: "+err.Error())
		return
	}
	warehouseID, err := uuid.Parse(q.Get("warehouse_id"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Filter", "warehouse_id: "+err.Error())
		return
	}
	quantity, err := h.service.CurrentStock(r.Context(), productID, warehouseID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"product_id":   productID,
		"warehouse_id": warehouseID,
		"quantity":     quantity,
	})
}

func (h *Handler) StockLevels(w http.ResponseWriter, r *http.Request) {
	var filter StockLevelFilter
	q := r.URL.Query()
	if v := q.Get("product_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Invalid Filter", "product_id: "+err.Error())
			return
		}
		filter.ProductID = &id
	}
	if v := q.Get("warehouse_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Invalid Filter", "warehouse_id: "+err.Error())
			return
		}
		filter.WarehouseID = &id
	}
	levels, err := h.service.StockLevels(r.Context(), filter)
	if err != nil {
		h.logger.Error("stock levels", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	if levels == nil {
		levels = []StockLevel{}
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"stock_levels": levels})
}

func (h *Handler) Movements(w http.ResponseWriter, r *http.Request) {
	filter, err := parseMovementFilter(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Filter", err.Error())
		return
	}
	movements, err := h.service.Movements(r.Context(), filter)
	if err != nil {
		h.logger.Error("list movements", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	if movements == nil {
		movements = []Movement{}
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"movements": movements})
}

func parseMovementFilter(r *http.Request) (MovementFilter, error) {
	var filter MovementFilter
	q := r.URL.Query()
	if v := q.Get("product_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			return MovementFilter{}, fmt.Errorf("product_id: %w", err)
		}
		filter.ProductID = &id
	}
	if v := q.Get("warehouse_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			return MovementFilter{}, fmt.Errorf("warehouse_id: %w", err)
		}
		filter.WarehouseID = &id
	}
	if v := q.Get("kind"); v != "" {
		filter.Kind = MovementKind(v)
	}
	if v := q.Get("reference_kind"); v != "" {
		filter.ReferenceKind = ReferenceKind(v)
	}
	if v := q.Get("reference_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			return MovementFilter{}, fmt.Errorf("reference_id: %w", err)
		}
		filter.ReferenceID = &id
	}
	if v := q.Get("from"); v != "" {
		t, err := time.Parse("2006-01-02", v)
		if err != nil {
			return MovementFilter{}, fmt.Errorf("from: %w", err)
		}
		filter.From = t
	}
	if v := q.Get("to"); v != "" {
		t, err := time.Parse("2006-01-02", v)
		if err != nil {
			return MovementFilter{}, fmt.Errorf("to: %w", err)
		}
		filter.To = t.Add(24 * time.Hour)
	}
	if v := q.Get("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit < 0 {
			return MovementFilter{}, fmt.Errorf("limit must be a non-negative integer")
		}
		filter.Limit = limit
	}
	return filter, nil
}
