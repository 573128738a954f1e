package httpserver

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"smartatm/backend/services/atm-service/internal/http/middleware"
)

// Routes aggregates handlers for the ops server. Nil handlers are not mounted; the admin group
// is mounted only when AdminAuth is set.
type Routes struct {
	Health  http.HandlerFunc
	Metrics http.Handler
	Session http.HandlerFunc

	AdminAuth        func(http.Handler) http.Handler
	ListAccounts     http.HandlerFunc
	CreateAccount    http.HandlerFunc
	DeleteAccount    http.HandlerFunc
	ListTransactions http.HandlerFunc
}

// NewRouter wires all HTTP routes.
func NewRouter(routes Routes, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	r.Use(chimw.RequestID)
	r.Use(middleware.Observe(logger))

	if routes.Health != nil {
		r.Get("/health", routes.Health)
	}
	if routes.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", routes.Metrics)
	}
	if routes.Session != nil {
		r.Get("/session", routes.Session)
	}

	if routes.AdminAuth != nil {
		r.Route("/admin", func(r chi.Router) {
			r.Use(routes.AdminAuth)
			mount(r.Get, "/accounts", routes.ListAccounts)
			mount(r.Post, "/accounts", routes.CreateAccount)
			mount(r.Delete, "/accounts/{card}", routes.DeleteAccount)
			mount(r.Get, "/transactions", routes.ListTransactions)
		})
	}
	return r
}

func mount(method func(string, http.HandlerFunc), pattern string, h http.HandlerFunc) {
	if h != nil {
		method(pattern, h)
	}
}
