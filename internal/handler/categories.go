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
	"github.com/thaicafe/pos-api/internal/database"
)

// CategoryStore defines the database methods needed by category handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type CategoryStore interface {
	ListCategories(ctx context.Context) ([]database.ListCategoriesRow, error)
	CreateCategory(ctx context.Context, name string) (database.Category, error)
	UpdateCategory(ctx context.Context, arg database.UpdateCategoryParams) (database.Category, error)
	DeleteCategory(ctx context.Context, id uuid.UUID) (int64, error)
}

// CategoryHandler handles category CRUD endpoints.
type CategoryHandler struct {
	store CategoryStore
}

// NewCategoryHandler creates a new CategoryHandler.
func NewCategoryHandler(store CategoryStore) *CategoryHandler {
	return &CategoryHandler{store: store}
}

// RegisterRoutes registers the read endpoint, open to all staff.
func (h *CategoryHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.List)
}

// RegisterAdminRoutes registers the write endpoints.
func (h *CategoryHandler) RegisterAdminRoutes(r chi.Router) {
	r.Post("/", h.Create)
	r.Put("/{id}", h.Update)
	r.Delete("/{id}", h.Delete)
}

// --- Request / Response types ---

type categoryRequest struct {
	Name        string `json:"name"`
	IsAvailable *bool  `json:"is_available"`
}

type categoryResponse struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	IsAvailable bool      `json:"is_available"`
	CreatedAt   time.Time `json:"created_at"`
}

func toCategoryResponse(c database.Category) categoryResponse {
	return categoryResponse{
		ID:          c.ID,
		Name:        c.Name,
		IsAvailable: c.IsAvailable,
		CreatedAt:   c.CreatedAt,
	}
}

type categoryListResponse struct {
	categoryResponse
	MenuCount int64 `json:"menu_count"`
}

// --- Handlers ---

// List returns all categories ordered by name, each with its number of menus.
func (h *CategoryHandler) List(w http.ResponseWriter, r *http.Request) {
	categories, err := h.store.ListCategories(r.Context())
	if err != nil {
		log.Printf("ERROR: list categories: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]categoryListResponse, len(categories))
	for i, c := range categories {
		resp[i] = categoryListResponse{
			categoryResponse: categoryResponse{
				ID:          c.ID,
				Name:        c.Name,
				IsAvailable: c.IsAvailable,
				CreatedAt:   c.CreatedAt,
			},
			MenuCount: c.MenuCount,
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

// Create adds a new category.
func (h *CategoryHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req categoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "name is required"})
		return
	}

	category, err := h.store.CreateCategory(r.Context(), name)
	if err != nil {
		if pgCode(err) == "23505" {
			writeJSON(w, http.StatusConflict, map[string]string{"error": "category name already exists"})
			return
		}
		log.Printf("ERROR: create category: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusCreated, toCategoryResponse(category))
}

// Update renames a category or toggles its availability.
func (h *CategoryHandler) Update(w http.ResponseWriter, r *http.Request) {
	catID, ok := urlID(w, r, "id", "category")
	if !ok {
		return
	}

	var req categoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "name is required"})
		return
	}

	available := true
	if req.IsAvailable != nil {
		available = *req.IsAvailable
	}

	category, err := h.store.UpdateCategory(r.Context(), database.UpdateCategoryParams{
		ID:          catID,
		Name:        name,
		IsAvailable: available,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "category not found"})
			return
		}
		if pgCode(err) == "23505" {
			writeJSON(w, http.StatusConflict, map[string]string{"error": "category name already exists"})
			return
		}
		log.Printf("ERROR: update category: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, toCategoryResponse(category))
}

// Delete removes a category. Categories that still hold menus are kept.
func (h *CategoryHandler) Delete(w http.ResponseWriter, r *http.Request) {
	catID, ok := urlID(w, r, "id", "category")
	if !ok {
		return
	}

	n, err := h.store.DeleteCategory(r.Context(), catID)
	if err != nil {
		if pgCode(err) == "23503" {
			writeJSON(w, http.StatusConflict, map[string]string{"error": "category still has menus"})
			return
		}
		log.Printf("ERROR: delete category: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	if n == 0 {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "category not found"})
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
