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
	"github.com/shopspring/decimal"
	"github.com/thaicafe/pos-api/internal/database"
	"github.com/thaicafe/pos-api/internal/service"
)

// InventoryServicer defines the service methods needed by inventory handlers.
// Satisfied by *service.InventoryService; narrow interface for testability.
type InventoryServicer interface {
	CreateIngredient(ctx context.Context, req service.CreateIngredientRequest) (*database.Ingredient, error)
	GetIngredient(ctx context.Context, id uuid.UUID) (*service.IngredientDetail, error)
	LowStock(ctx context.Context) ([]database.Ingredient, error)
	AddStockLog(ctx context.Context, req service.StockLogRequest) (*service.StockLogResult, error)
	ListStockLogs(ctx context.Context, ingredientID *uuid.UUID, limit, offset int32) ([]database.StockLog, error)
	ImportPurchaseNote(ctx context.Context, text string, dryRun bool) (*service.ImportResult, error)
}

// IngredientStore defines the database methods needed by ingredient handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type IngredientStore interface {
	ListIngredients(ctx context.Context) ([]database.Ingredient, error)
	UpdateIngredient(ctx context.Context, arg database.UpdateIngredientParams) (database.Ingredient, error)
	DeleteIngredient(ctx context.Context, id uuid.UUID) (int64, error)
}

// InventoryHandler handles ingredient and stock movement endpoints.
type InventoryHandler struct {
	svc   InventoryServicer
	store IngredientStore
}

// NewInventoryHandler creates a new InventoryHandler.
func NewInventoryHandler(svc InventoryServicer, store IngredientStore) *InventoryHandler {
	return &InventoryHandler{svc: svc, store: store}
}

// RegisterIngredientRoutes registers the ingredient read endpoints.
// Expected to be mounted at /ingredients.
func (h *InventoryHandler) RegisterIngredientRoutes(r chi.Router) {
	r.Get("/", h.ListIngredients)
	r.Get("/low-stock", h.LowStock)
	r.Get("/{id}", h.GetIngredient)
}

// RegisterIngredientAdminRoutes registers the ingredient write endpoints.
func (h *InventoryHandler) RegisterIngredientAdminRoutes(r chi.Router) {
	r.Post("/", h.CreateIngredient)
	r.Put("/{id}", h.UpdateIngredient)
	r.Delete("/{id}", h.DeleteIngredient)
}

// RegisterStockLogRoutes registers the movement read endpoint.
// Expected to be mounted at /stock-logs.
func (h *InventoryHandler) RegisterStockLogRoutes(r chi.Router) {
	r.Get("/", h.ListStockLogs)
}

// RegisterStockLogWriteRoutes registers manual restock and waste entry.
func (h *InventoryHandler) RegisterStockLogWriteRoutes(r chi.Router) {
	r.Post("/", h.AddStockLog)
	r.Post("/import", h.ImportPurchaseNote)
}

// --- Request / Response types ---

type createIngredientRequest struct {
	Name         string `json:"name"`
	Unit         string `json:"unit"`
	MinStock     string `json:"min_stock"`
	CostPerUnit  int64  `json:"cost_per_unit"`
	InitialStock string `json:"initial_stock"`
}

type updateIngredientRequest struct {
	Name        string `json:"name"`
	Unit        string `json:"unit"`
	MinStock    string `json:"min_stock"`
	CostPerUnit int64  `json:"cost_per_unit"`
}

type addStockLogRequest struct {
	IngredientID string `json:"ingredient_id"`
	Type         string `json:"type"`
	Qty          string `json:"qty"`
	Notes        string `json:"notes"`
}

type importNoteRequest struct {
	Text   string `json:"text"`
	DryRun bool   `json:"dry_run"`
}

type ingredientResponse struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"name"`
	Unit         string    `json:"unit"`
	CurrentStock string    `json:"current_stock"`
	MinStock     string    `json:"min_stock"`
	CostPerUnit  int64     `json:"cost_per_unit"`
	IsLow        bool      `json:"is_low"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type ingredientDetailResponse struct {
	ingredientResponse
	RecentLogs []stockLogResponse `json:"recent_logs"`
}

type stockLogResponse struct {
	ID           uuid.UUID `json:"id"`
	IngredientID uuid.UUID `json:"ingredient_id"`
	Type         string    `json:"type"`
	Qty          string    `json:"qty"`
	Notes        *string   `json:"notes"`
	OrderID      *string   `json:"order_id"`
	CreatedAt    time.Time `json:"created_at"`
}

type addStockLogResponse struct {
	Log        stockLogResponse   `json:"log"`
	Ingredient ingredientResponse `json:"ingredient"`
}

func toIngredientResponse(ing database.Ingredient) ingredientResponse {
	current := database.NumericToDecimal(ing.CurrentStock)
	minimum := database.NumericToDecimal(ing.MinStock)
	return ingredientResponse{
		ID:           ing.ID,
		Name:         ing.Name,
		Unit:         ing.Unit,
		CurrentStock: current.String(),
		MinStock:     minimum.String(),
		CostPerUnit:  ing.CostPerUnit,
		IsLow:        current.LessThanOrEqual(minimum),
		UpdatedAt:    ing.UpdatedAt,
	}
}

func toStockLogResponse(l database.StockLog) stockLogResponse {
	resp := stockLogResponse{
		ID:           l.ID,
		IngredientID: l.IngredientID,
		Type:         string(l.Type),
		Qty:          database.NumericToDecimal(l.Qty).String(),
		CreatedAt:    l.CreatedAt,
	}
	if l.Notes.Valid {
		resp.Notes = &l.Notes.String
	}
	if l.OrderID.Valid {
		s := uuid.UUID(l.OrderID.Bytes).String()
		resp.OrderID = &s
	}
	return resp
}

func toIngredientListResponse(ings []database.Ingredient) []ingredientResponse {
	resp := make([]ingredientResponse, len(ings))
	for i, ing := range ings {
		resp[i] = toIngredientResponse(ing)
	}
	return resp
}

// parseOptionalDecimal parses s, treating "" as zero.
func parseOptionalDecimal(s string) (decimal.Decimal, error) {
	if s == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(s)
}

// --- Handlers ---

// ListIngredients returns all ingredients ordered by name.
func (h *InventoryHandler) ListIngredients(w http.ResponseWriter, r *http.Request) {
	ings, err := h.store.ListIngredients(r.Context())
	if err != nil {
		log.Printf("ERROR: list ingredients: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, toIngredientListResponse(ings))
}

// LowStock returns ingredients at or below their minimum.
func (h *InventoryHandler) LowStock(w http.ResponseWriter, r *http.Request) {
	ings, err := h.svc.LowStock(r.Context())
	if err != nil {
		writeServiceError(w, "low stock", err)
		return
	}

	writeJSON(w, http.StatusOK, toIngredientListResponse(ings))
}

// GetIngredient returns one ingredient with its latest movements.
func (h *InventoryHandler) GetIngredient(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r, "id", "ingredient")
	if !ok {
		return
	}

	detail, err := h.svc.GetIngredient(r.Context(), id)
	if err != nil {
		writeServiceError(w, "get ingredient", err)
		return
	}

	logs := make([]stockLogResponse, len(detail.RecentLogs))
	for i, l := range detail.RecentLogs {
		logs[i] = toStockLogResponse(l)
	}

	writeJSON(w, http.StatusOK, ingredientDetailResponse{
		ingredientResponse: toIngredientResponse(detail.Ingredient),
		RecentLogs:         logs,
	})
}

// CreateIngredient adds an ingredient. Opening stock is booked as an IN movement.
func (h *InventoryHandler) CreateIngredient(w http.ResponseWriter, r *http.Request) {
	var req createIngredientRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	name := strings.TrimSpace(req.Name)
	unit := strings.TrimSpace(req.Unit)
	if name == "" || unit == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "name and unit are required"})
		return
	}

	minStock, err := parseOptionalDecimal(req.MinStock)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid min_stock"})
		return
	}
	initial, err := parseOptionalDecimal(req.InitialStock)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid initial_stock"})
		return
	}

	ing, err := h.svc.CreateIngredient(r.Context(), service.CreateIngredientRequest{
		Name:         name,
		Unit:         unit,
		MinStock:     minStock,
		CostPerUnit:  req.CostPerUnit,
		InitialStock: initial,
	})
	if err != nil {
		writeServiceError(w, "create ingredient", err)
		return
	}

	writeJSON(w, http.StatusCreated, toIngredientResponse(*ing))
}

// UpdateIngredient edits metadata. Stock only moves through stock logs.
func (h *InventoryHandler) UpdateIngredient(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r, "id", "ingredient")
	if !ok {
		return
	}

	var req updateIngredientRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	name := strings.TrimSpace(req.Name)
	unit := strings.TrimSpace(req.Unit)
	if name == "" || unit == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "name and unit are required"})
		return
	}

	minStock, err := parseOptionalDecimal(req.MinStock)
	if err != nil || minStock.IsNegative() {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid min_stock"})
		return
	}

	ing, err := h.store.UpdateIngredient(r.Context(), database.UpdateIngredientParams{
		ID:          id,
		Name:        name,
		Unit:        unit,
		MinStock:    database.DecimalToNumeric(minStock),
		CostPerUnit: req.CostPerUnit,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "ingredient not found"})
			return
		}
		if pgCode(err) == "23505" {
			writeJSON(w, http.StatusConflict, map[string]string{"error": "ingredient name already exists"})
			return
		}
		log.Printf("ERROR: update ingredient: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, toIngredientResponse(ing))
}

// DeleteIngredient removes an ingredient that no recipe uses.
func (h *InventoryHandler) DeleteIngredient(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r, "id", "ingredient")
	if !ok {
		return
	}

	n, err := h.store.DeleteIngredient(r.Context(), id)
	if err != nil {
		if pgCode(err) == "23503" {
			writeJSON(w, http.StatusConflict, map[string]string{"error": "ingredient is used by a recipe"})
			return
		}
		log.Printf("ERROR: delete ingredient: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	if n == 0 {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "ingredient not found"})
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ListStockLogs returns movements newest first, optionally for ?ingredient_id.
func (h *InventoryHandler) ListStockLogs(w http.ResponseWriter, r *http.Request) {
	var ingredientID *uuid.UUID
	if s := r.URL.Query().Get("ingredient_id"); s != "" {
		id, err := uuid.Parse(s)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid ingredient_id"})
			return
		}
		ingredientID = &id
	}

	limit, offset := parsePagination(r, 50)
	logs, err := h.svc.ListStockLogs(r.Context(), ingredientID, limit, offset)
	if err != nil {
		writeServiceError(w, "list stock logs", err)
		return
	}

	resp := make([]stockLogResponse, len(logs))
	for i, l := range logs {
		resp[i] = toStockLogResponse(l)
	}

	writeJSON(w, http.StatusOK, resp)
}

// AddStockLog records a manual IN (restock) or OUT (waste) movement.
func (h *InventoryHandler) AddStockLog(w http.ResponseWriter, r *http.Request) {
	var req addStockLogRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	ingredientID, err := uuid.Parse(req.IngredientID)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid ingredient_id"})
		return
	}

	qty, err := decimal.NewFromString(req.Qty)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid qty"})
		return
	}

	res, err := h.svc.AddStockLog(r.Context(), service.StockLogRequest{
		IngredientID: ingredientID,
		Type:         strings.ToUpper(req.Type),
		Qty:          qty,
		Notes:        req.Notes,
	})
	if err != nil {
		writeServiceError(w, "add stock log", err)
		return
	}

	writeJSON(w, http.StatusCreated, addStockLogResponse{
		Log:        toStockLogResponse(res.Log),
		Ingredient: toIngredientResponse(res.Ingredient),
	})
}

// ImportPurchaseNote books a pasted supplier note as restock movements.
// Lines that do not resolve to one ingredient come back unapplied.
func (h *InventoryHandler) ImportPurchaseNote(w http.ResponseWriter, r *http.Request) {
	var req importNoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "text is required"})
		return
	}

	res, err := h.svc.ImportPurchaseNote(r.Context(), req.Text, req.DryRun)
	if err != nil {
		writeServiceError(w, "import purchase note", err)
		return
	}

	writeJSON(w, http.StatusOK, res)
}
