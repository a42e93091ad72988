package app

import (
	"net/http"
	"strings"

	"log/slog"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/sokoerp/sokoerp/internal/audit"
	"github.com/sokoerp/sokoerp/internal/inventory"
	"github.com/sokoerp/sokoerp/internal/ledger"
	"github.com/sokoerp/sokoerp/internal/masterdata/categories"
	"github.com/sokoerp/sokoerp/internal/masterdata/products"
	"github.com/sokoerp/sokoerp/internal/masterdata/warehouses"
	"github.com/sokoerp/sokoerp/internal/rbac"
	"github.com/sokoerp/sokoerp/internal/sales"
	"github.com/sokoerp/sokoerp/internal/users"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger *slog.Logger
	Config *Config

	ProductsHandler   *products.Handler
	WarehousesHandler *warehouses.Handler
	CategoriesHandler *categories.Handler
	InventoryHandler  *inventory.Handler
	SalesHandler      *sales.Handler
	LedgerHandler     *ledger.Handler
	AuditHandler      *audit.Handler
	UsersHandler      *users.Handler

	RBAC rbac.Middleware
}

// NewRouter constructs the chi.Router for the JSON API.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger: params.Logger,
		Config: params.Config,
	}) {
		r.Use(mw)
	}
	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(params.RBAC.Principal)

		r.Group(func(r chi.Router) {
			r.Use(guard(params.RBAC, rbac.CapMasterdataRead, rbac.CapMasterdataWrite))
			params.ProductsHandler.Routes(r)
			params.WarehousesHandler.Routes(r)
			params.CategoriesHandler.Routes(r)
		})

		r.Group(func(r chi.Router) {
			r.Use(guard(params.RBAC, rbac.CapInventoryRead, rbac.CapInventoryWrite))
			params.InventoryHandler.Routes(r)
		})

		r.Group(func(r chi.Router) {
			r.Use(guard(params.RBAC, rbac.CapSalesRead, rbac.CapSalesWrite))
			r.Use(refundGuard(params.RBAC))
			params.SalesHandler.Routes(r)
		})

		r.Group(func(r chi.Router) {
			r.Use(guard(params.RBAC, rbac.CapLedgerRead, rbac.CapLedgerWrite))
			params.LedgerHandler.Routes(r)
		})

		r.Group(func(r chi.Router) {
			r.Use(params.RBAC.Require(rbac.CapAuditRead))
			params.AuditHandler.Routes(r)
		})

		r.Group(func(r chi.Router) {
			r.Use(params.RBAC.Require(rbac.CapUsersManage))
			params.UsersHandler.Routes(r)
		})
	})

	return r
}

// guard requires the read capability on safe methods and the write
// capability on everything else.
func guard(mw rbac.Middleware, readCap, writeCap string) func(http.Handler) http.Handler {
	read := mw.Require(readCap)
	write := mw.Require(writeCap)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet, http.MethodHead, http.MethodOptions:
				read(next).ServeHTTP(w, r)
			default:
				write(next).ServeHTTP(w, r)
			}
		})
	}
}

// refundGuard adds the refund capability on top of the sales write
// capability for the refund transition.
func refundGuard(mw rbac.Middleware) func(http.Handler) http.Handler {
	refund := mw.Require(rbac.CapSalesRefund)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodPost && strings.HasSuffix(r.URL.Path, "/refund") {
				refund(next).ServeHTTP(w, r)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
