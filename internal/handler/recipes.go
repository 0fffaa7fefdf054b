package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"github.com/thaicafe/pos-api/internal/database"
)

// RecipeStore defines the database methods needed by recipe handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type RecipeStore interface {
	ListRecipesByMenu(ctx context.Context, menuID uuid.UUID) ([]database.ListRecipesByMenuRow, error)
	CreateRecipe(ctx context.Context, arg database.CreateRecipeParams) (database.Recipe, error)
	UpdateRecipe(ctx context.Context, arg database.UpdateRecipeParams) (database.Recipe, error)
	DeleteRecipe(ctx context.Context, menuID, ingredientID uuid.UUID) (int64, error)
}

// RecipeHandler manages the bill of materials of a menu.
type RecipeHandler struct {
	store RecipeStore
}

// NewRecipeHandler creates a new RecipeHandler.
func NewRecipeHandler(store RecipeStore) *RecipeHandler {
	return &RecipeHandler{store: store}
}

// RegisterRoutes registers the read endpoint.
// Expected to be mounted at /menus/{id}/recipes.
func (h *RecipeHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.List)
}

// RegisterAdminRoutes registers the write endpoints.
func (h *RecipeHandler) RegisterAdminRoutes(r chi.Router) {
	r.Post("/", h.Create)
	r.Put("/{ingredientId}", h.Update)
	r.Delete("/{ingredientId}", h.Delete)
}

// --- Request / Response types ---

type recipeRequest struct {
	IngredientID string `json:"ingredient_id"`
	QtyNeeded    string `json:"qty_needed"`
	Unit         string `json:"unit"`
}

type recipeResponse struct {
	MenuID         uuid.UUID `json:"menu_id"`
	IngredientID   uuid.UUID `json:"ingredient_id"`
	IngredientName string    `json:"ingredient_name,omitempty"`
	QtyNeeded      string    `json:"qty_needed"`
	Unit           string    `json:"unit"`
}

func toRecipeResponse(rc database.Recipe) recipeResponse {
	return recipeResponse{
		MenuID:       rc.MenuID,
		IngredientID: rc.IngredientID,
		QtyNeeded:    database.NumericToDecimal(rc.QtyNeeded).String(),
		Unit:         rc.Unit,
	}
}

// parseQtyNeeded validates a positive decimal quantity and a unit.
func parseQtyNeeded(qty, unit string) (decimal.Decimal, string) {
	d, err := decimal.NewFromString(qty)
	if err != nil {
		return decimal.Zero, "invalid qty_needed"
	}
	if !d.IsPositive() {
		return decimal.Zero, "qty_needed must be > 0"
	}
	if strings.TrimSpace(unit) == "" {
		return decimal.Zero, "unit is required"
	}
	return d, ""
}

// --- Handlers ---

// List returns the recipe lines of a menu.
func (h *RecipeHandler) List(w http.ResponseWriter, r *http.Request) {
	menuID, ok := urlID(w, r, "id", "menu")
	if !ok {
		return
	}

	rows, err := h.store.ListRecipesByMenu(r.Context(), menuID)
	if err != nil {
		log.Printf("ERROR: list recipes: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]recipeResponse, len(rows))
	for i, row := range rows {
		resp[i] = recipeResponse{
			MenuID:         row.MenuID,
			IngredientID:   row.IngredientID,
			IngredientName: row.IngredientName,
			QtyNeeded:      database.NumericToDecimal(row.QtyNeeded).String(),
			Unit:           row.Unit,
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

// Create adds an ingredient to a menu's recipe.
func (h *RecipeHandler) Create(w http.ResponseWriter, r *http.Request) {
	menuID, ok := urlID(w, r, "id", "menu")
	if !ok {
		return
	}

	var req recipeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	ingredientID, err := uuid.Parse(req.IngredientID)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid ingredient_id"})
		return
	}

	qty, msg := parseQtyNeeded(req.QtyNeeded, req.Unit)
	if msg != "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": msg})
		return
	}

	recipe, err := h.store.CreateRecipe(r.Context(), database.CreateRecipeParams{
		MenuID:       menuID,
		IngredientID: ingredientID,
		QtyNeeded:    database.DecimalToNumeric(qty),
		Unit:         strings.TrimSpace(req.Unit),
	})
	if err != nil {
		switch pgCode(err) {
		case "23505":
			writeJSON(w, http.StatusConflict, map[string]string{"error": "ingredient already in recipe"})
			return
		case "23503":
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "menu or ingredient not found"})
			return
		}
		log.Printf("ERROR: create recipe: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusCreated, toRecipeResponse(recipe))
}

// Update changes the quantity of one recipe line.
func (h *RecipeHandler) Update(w http.ResponseWriter, r *http.Request) {
	menuID, ok := urlID(w, r, "id", "menu")
	if !ok {
		return
	}
	ingredientID, ok := urlID(w, r, "ingredientId", "ingredient")
	if !ok {
		return
	}

	var req recipeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	qty, msg := parseQtyNeeded(req.QtyNeeded, req.Unit)
	if msg != "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": msg})
		return
	}

	recipe, err := h.store.UpdateRecipe(r.Context(), database.UpdateRecipeParams{
		MenuID:       menuID,
		IngredientID: ingredientID,
		QtyNeeded:    database.DecimalToNumeric(qty),
		Unit:         strings.TrimSpace(req.Unit),
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "recipe line not found"})
			return
		}
		log.Printf("ERROR: update recipe: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, toRecipeResponse(recipe))
}

// Delete removes an ingredient from a menu's recipe.
func (h *RecipeHandler) Delete(w http.ResponseWriter, r *http.Request) {
	menuID, ok := urlID(w, r, "id", "menu")
	if !ok {
		return
	}
	ingredientID, ok := urlID(w, r, "ingredientId", "ingredient")
	if !ok {
		return
	}

	n, err := h.store.DeleteRecipe(r.Context(), menuID, ingredientID)
	if err != nil {
		log.Printf("ERROR: delete recipe: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	if n == 0 {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "recipe line not found"})
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
