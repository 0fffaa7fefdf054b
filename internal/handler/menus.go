package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/thaicafe/pos-api/internal/database"
)

// MenuStore defines the database methods needed by menu handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type MenuStore interface {
	ListMenus(ctx context.Context, arg database.ListMenusParams) ([]database.Menu, error)
	GetMenu(ctx context.Context, id uuid.UUID) (database.Menu, error)
	CreateMenu(ctx context.Context, arg database.CreateMenuParams) (database.Menu, error)
	UpdateMenu(ctx context.Context, arg database.UpdateMenuParams) (database.Menu, error)
	ToggleMenuAvailability(ctx context.Context, id uuid.UUID) (database.Menu, error)
	DeleteMenu(ctx context.Context, id uuid.UUID) (int64, error)
}

// MenuHandler handles menu CRUD endpoints.
type MenuHandler struct {
	store MenuStore
}

// NewMenuHandler creates a new MenuHandler.
func NewMenuHandler(store MenuStore) *MenuHandler {
	return &MenuHandler{store: store}
}

// RegisterRoutes registers the read endpoints, open to all staff.
func (h *MenuHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Get("/{id}", h.Get)
}

// RegisterAdminRoutes registers the write endpoints.
func (h *MenuHandler) RegisterAdminRoutes(r chi.Router) {
	r.Post("/", h.Create)
	r.Put("/{id}", h.Update)
	r.Delete("/{id}", h.Delete)
	r.Patch("/{id}/availability", h.ToggleAvailability)
}

// --- Request / Response types ---

type menuRequest struct {
	CategoryID  string `json:"category_id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Price       int64  `json:"price"`
	Image       string `json:"image"`
	IsAvailable *bool  `json:"is_available"`
}

type menuResponse struct {
	ID          uuid.UUID `json:"id"`
	CategoryID  uuid.UUID `json:"category_id"`
	Name        string    `json:"name"`
	Description *string   `json:"description"`
	Price       int64     `json:"price"`
	Image       *string   `json:"image"`
	IsAvailable bool      `json:"is_available"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func toMenuResponse(m database.Menu) menuResponse {
	resp := menuResponse{
		ID:          m.ID,
		CategoryID:  m.CategoryID,
		Name:        m.Name,
		Price:       m.Price,
		IsAvailable: m.IsAvailable,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
	if m.Description.Valid {
		resp.Description = &m.Description.String
	}
	if m.Image.Valid {
		resp.Image = &m.Image.String
	}
	return resp
}

func textOrNull(s string) pgtype.Text {
	if s == "" {
		return pgtype.Text{}
	}
	return pgtype.Text{String: s, Valid: true}
}

// validate checks required fields and returns the parsed category ID.
func (req *menuRequest) validate() (uuid.UUID, string) {
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return uuid.Nil, "name is required"
	}
	catID, err := uuid.Parse(req.CategoryID)
	if err != nil {
		return uuid.Nil, "invalid category_id"
	}
	if req.Price < 0 {
		return uuid.Nil, "price must be >= 0"
	}
	return catID, ""
}

// --- Handlers ---

// List returns menus, optionally filtered by ?category_id and ?available.
func (h *MenuHandler) List(w http.ResponseWriter, r *http.Request) {
	var params database.ListMenusParams

	if s := r.URL.Query().Get("category_id"); s != "" {
		catID, err := uuid.Parse(s)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid category_id"})
			return
		}
		params.CategoryID = pgtype.UUID{Bytes: catID, Valid: true}
	}

	switch r.URL.Query().Get("available") {
	case "":
	case "true":
		params.IsAvailable = pgtype.Bool{Bool: true, Valid: true}
	case "false":
		params.IsAvailable = pgtype.Bool{Bool: false, Valid: true}
	default:
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "available must be true or false"})
		return
	}

	menus, err := h.store.ListMenus(r.Context(), params)
	if err != nil {
		log.Printf("ERROR: list menus: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]menuResponse, len(menus))
	for i, m := range menus {
		resp[i] = toMenuResponse(m)
	}

	writeJSON(w, http.StatusOK, resp)
}

// Get returns a single menu.
func (h *MenuHandler) Get(w http.ResponseWriter, r *http.Request) {
	menuID, ok := urlID(w, r, "id", "menu")
	if !ok {
		return
	}

	menu, err := h.store.GetMenu(r.Context(), menuID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "menu not found"})
			return
		}
		log.Printf("ERROR: get menu: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, toMenuResponse(menu))
}

// Create adds a menu to a category.
func (h *MenuHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req menuRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	catID, msg := req.validate()
	if msg != "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": msg})
		return
	}

	available := true
	if req.IsAvailable != nil {
		available = *req.IsAvailable
	}

	menu, err := h.store.CreateMenu(r.Context(), database.CreateMenuParams{
		CategoryID:  catID,
		Name:        req.Name,
		Description: textOrNull(req.Description),
		Price:       req.Price,
		Image:       textOrNull(req.Image),
		IsAvailable: available,
	})
	if err != nil {
		if pgCode(err) == "23503" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "category not found"})
			return
		}
		log.Printf("ERROR: create menu: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusCreated, toMenuResponse(menu))
}

// Update replaces a menu's fields. Price changes never touch existing orders.
func (h *MenuHandler) Update(w http.ResponseWriter, r *http.Request) {
	menuID, ok := urlID(w, r, "id", "menu")
	if !ok {
		return
	}

	var req menuRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	catID, msg := req.validate()
	if msg != "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": msg})
		return
	}

	available := true
	if req.IsAvailable != nil {
		available = *req.IsAvailable
	}

	menu, err := h.store.UpdateMenu(r.Context(), database.UpdateMenuParams{
		ID:          menuID,
		CategoryID:  catID,
		Name:        req.Name,
		Description: textOrNull(req.Description),
		Price:       req.Price,
		Image:       textOrNull(req.Image),
		IsAvailable: available,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "menu not found"})
			return
		}
		if pgCode(err) == "23503" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "category not found"})
			return
		}
		log.Printf("ERROR: update menu: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, toMenuResponse(menu))
}

// ToggleAvailability flips is_available (sold out / back on).
func (h *MenuHandler) ToggleAvailability(w http.ResponseWriter, r *http.Request) {
	menuID, ok := urlID(w, r, "id", "menu")
	if !ok {
		return
	}

	menu, err := h.store.ToggleMenuAvailability(r.Context(), menuID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "menu not found"})
			return
		}
		log.Printf("ERROR: toggle menu availability: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, toMenuResponse(menu))
}

// Delete removes a menu that was never ordered. Ordered menus should be
// marked unavailable instead.
func (h *MenuHandler) Delete(w http.ResponseWriter, r *http.Request) {
	menuID, ok := urlID(w, r, "id", "menu")
	if !ok {
		return
	}

	n, err := h.store.DeleteMenu(r.Context(), menuID)
	if err != nil {
		if pgCode(err) == "23503" {
			writeJSON(w, http.StatusConflict, map[string]string{"error": "menu has order history; mark it unavailable instead"})
			return
		}
		log.Printf("ERROR: delete menu: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	if n == 0 {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "menu not found"})
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
