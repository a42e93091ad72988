package ledger

import (
	"encoding/csv"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/sokoerp/sokoerp/internal/platform/httpx"
	"github.com/sokoerp/sokoerp/internal/shared"
)

// Handler exposes the accounts and ledger JSON API.
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
	r.Route("/accounts", func(r chi.Router) {
		r.Get("/", h.ListAccounts)
		r.Post("/", h.CreateAccount)
		r.Get("/{id}", h.GetAccount)
		r.Put("/{id}", h.UpdateAccount)
		r.Delete("/{id}", h.DeleteAccount)
		r.Get("/{id}/balance", h.AccountBalance)
	})
	r.Route("/ledger", func(r chi.Router) {
		r.Get("/entries", h.ListEntries)
		r.Get("/entries/export", h.ExportEntries)
		r.Post("/adjustments", h.PostAdjustment)
	})
}

func (h *Handler) ListAccounts(w http.ResponseWriter, r *http.Request) {
	activeOnly, _ := strconv.ParseBool(r.URL.Query().Get("active"))
	accounts, err := h.service.ListAccounts(r.Context(), activeOnly)
	if err != nil {
		h.logger.Error("list accounts", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	if accounts == nil {
		accounts = []Account{}
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"accounts": accounts})
}

func (h *Handler) CreateAccount(w http.ResponseWriter, r *http.Request) {
	var input AccountInput
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
	account, err := h.service.CreateAccount(r.Context(), input)
	if err != nil {
		h.logger.Error("create account", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, account)
}

func (h *Handler) GetAccount(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid ID", err.Error())
		return
	}
	account, err := h.service.GetAccount(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, account)
}

func (h *Handler) UpdateAccount(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid ID", err.Error())
		return
	}
	var input AccountInput
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
	account, err := h.service.UpdateAccount(r.Context(), id, input)
	if err != nil {
		h.logger.Error("update account", slog.Any("error", err), slog.String("id", id.String()))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, account)
}

func (h *Handler) DeleteAccount(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid ID", err.Error())
		return
	}
	principal, _ := shared.PrincipalFromContext(r.Context())
	if err := h.service.DeleteAccount(r.Context(), id, principal.UserID); err != nil {
		h.logger.Error("delete account", slog.Any("error", err), slog.String("id", id.String()))
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) AccountBalance(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid ID", err.Error())
		return
	}
	balance, err := h.service.AccountBalance(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"account_id": id,
		"balance":    balance,
	})
}

func (h *Handler) PostAdjustment(w http.ResponseWriter, r *http.Request) {
	var input AdjustmentInput
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
	entry, err := h.service.PostAdjustment(r.Context(), input)
	if err != nil {
		h.logger.Error("post ledger adjustment", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, entry)
}

func (h *Handler) ListEntries(w http.ResponseWriter, r *http.Request) {
	filter, err := parseEntryFilter(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Filter", err.Error())
		return
	}
	entries, err := h.service.Entries(r.Context(), filter)
	if err != nil {
		h.logger.Error("list ledger entries", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	if entries == nil {
		entries = []Entry{}
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"entries": entries})
}

func (h *Handler) ExportEntries(w http.ResponseWriter, r *http.Request) {
	filter, err := parseEntryFilter(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Filter", err.Error())
		return
	}
	entries, err := h.service.Entries(r.Context(), filter)
	if err != nil {
		h.logger.Error("export ledger entries", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="ledger-entries.csv"`)
	cw := csv.NewWriter(w)
	_ = cw.Write([]string{"id", "account_id", "amount", "reference_kind", "reference_id", "created_at"})
	printer := message.NewPrinter(language.English)
	for _, e := range entries {
		amount, _ := e.Amount.Float64()
		record := []string{
			e.ID.String(),
			e.AccountID.String(),
			printer.Sprintf("%.2f", amount),
			string(e.ReferenceKind),
			e.ReferenceID.String(),
			e.CreatedAt.Format(time.RFC3339),
		}
		if err := cw.Write(record); err != nil {
			h.logger.Warn("write csv row", slog.Any("error", err))
			return
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		h.logger.Warn("flush csv", slog.Any("error", err))
	}
}

func parseEntryFilter(r *http.Request) (EntryFilter, error) {
	var filter EntryFilter
	q := r.URL.Query()
	if v := q.Get("account_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			return EntryFilter{}, fmt.Errorf("account_id: %w", err)
		}
		filter.AccountID = &id
	}
	if v := q.Get("reference_kind"); v != "" {
		filter.ReferenceKind = ReferenceKind(v)
	}
	if v := q.Get("reference_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			return EntryFilter{}, fmt.Errorf("reference_id: %w", err)
		}
		filter.ReferenceID = &id
	}
	if v := q.Get("from"); v != "" {
		t, err := time.Parse("2006-01-02", v)
		if err != nil {
			return EntryFilter{}, fmt.Errorf("from: %w", err)
		}
		filter.From = t
	}
	if v := q.Get("to"); v != "" {
		t, err := time.Parse("2006-01-02", v)
		if err != nil {
			return EntryFilter{}, fmt.Errorf("to: %w", err)
		}
		filter.To = t.Add(24 * time.Hour)
	}
	if v := q.Get("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit < 0 {
			return EntryFilter{}, fmt.Errorf("limit must be a non-negative integer")
		}
		filter.Limit = limit
	}
	return filter, nil
}
