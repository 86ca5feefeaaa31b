package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jmoiron/sqlx"

	"capstock/m/internal/stock"
)

// Error kinds reported in the response envelope.
const (
	errValidation   = "validation_error"
	errNotFound     = "not_found"
	errOutOfStock   = "out_of_stock"
	errConflict     = "conflict"
	errUnauthorized = "unauthorized"
	errUpstream     = "upstream_failure"
)

// Handler bundles dependencies for HTTP handlers.
type Handler struct {
	db     *sqlx.DB
	stock  *stock.Service
	secret string
}

// New constructs a Handler.
func New(db *sqlx.DB, secret string) *Handler {
	return &Handler{db: db, stock: stock.New(db), secret: secret}
}

// Router wires up the HTTP API.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/health", h.health)

	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", h.register)
		r.Post("/login", h.login)
		r.Group(func(protected chi.Router) {
			protected.Use(h.authMiddleware)
			protected.Post("/refresh", h.refreshToken)
			protected.Post("/reset-password", h.resetPassword)
		})
	})

	r.Group(func(pr chi.Router) {
		pr.Use(h.authMiddleware)

		pr.Route("/items", func(r chi.Router) {
			r.Get("/", h.listItems)
			r.Post("/", h.createItem)
			r.Get("/{id}", h.getItem)
			r.Put("/{id}", h.updateItem)
			r.Delete("/{id}", h.deleteItem)
		})

		pr.Route("/raw-materials", func(r chi.Router) {
			r.Get("/", h.listMaterials)
			r.Post("/", h.createMaterial)
			r.Get("/{id}", h.getMaterial)
			r.Put("/{id}", h.updateMaterial)
			r.Delete("/{id}", h.deleteMaterial)
		})

		pr.Route("/order-materials", func(r chi.Router) {
			r.Get("/", h.listOrders)
			r.Post("/", h.createOrder)
			r.Get("/{id}", h.getOrder)
			r.Put("/{id}", h.updateOrder)
			r.Delete("/{id}", h.deleteOrder)
			r.Post("/{id}/check-delivery", h.checkDelivery)
		})

		pr.Route("/sales", func(r chi.Router) {
			r.Get("/", h.listSales)
			r.Post("/", h.createSale)
			r.Get("/{id}", h.getSale)
			r.Put("/{id}", h.updateSale)
			r.Delete("/{id}", h.deleteSale)
		})

		pr.Get("/dashboard/stats", h.dashboardStats)
	})

	return r
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	respondData(w, http.StatusOK, map[string]string{"status": "ok"})
}

// envelope is the wire shape of every response.
type envelope struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
	Message string      `json:"message,omitempty"`
}

func decodeJSON(r *http.Request, dest interface{}) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(dest)
}

func respondData(w http.ResponseWriter, status int, payload interface{}) {
	writeJSON(w, status, envelope{Success: true, Data: payload})
}

func respondError(w http.ResponseWriter, status int, kind, message string) {
	writeJSON(w, status, envelope{Error: kind, Message: message})
}

// respondStockError maps the stock taxonomy onto status codes; anything
// unrecognized is an upstream failure with the caller's fallback message.
func respondStockError(w http.ResponseWriter, err error, fallback string) {
	switch {
	case errors.Is(err, stock.ErrNotFound):
		respondError(w, http.StatusNotFound, errNotFound, err.Error())
	case errors.Is(err, stock.ErrOutOfStock):
		respondError(w, http.StatusBadRequest, errOutOfStock, err.Error())
	case errors.Is(err, stock.ErrConflict):
		respondError(w, http.StatusConflict, errConflict, err.Error())
	default:
		respondError(w, http.StatusInternalServerError, errUpstream, fallback)
	}
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	encoder := json.NewEncoder(w)
	encoder.SetEscapeHTML(false)
	_ = encoder.Encode(payload)
}
