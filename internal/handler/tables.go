package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/thaicafe/pos-api/internal/database"
	"github.com/thaicafe/pos-api/internal/service"
)

// TableServicer defines the service methods needed by table handlers.
// Satisfied by *service.TableService; narrow interface for testability.
type TableServicer interface {
	Create(ctx context.Context, req service.TableRequest) (*database.Table, error)
	Get(ctx context.Context, id uuid.UUID) (*service.TableView, error)
	List(ctx context.Context) ([]service.TableView, error)
	Update(ctx context.Context, id uuid.UUID, req service.TableRequest) (*database.Table, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status string) (*database.Table, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// TableHandler handles dining table endpoints.
type TableHandler struct {
	svc TableServicer
}

// NewTableHandler creates a new TableHandler.
func NewTableHandler(svc TableServicer) *TableHandler {
	return &TableHandler{svc: svc}
}

// RegisterRoutes registers the floor plan read endpoints.
func (h *TableHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Get("/{id}", h.Get)
}

// RegisterAdminRoutes registers table management endpoints.
func (h *TableHandler) RegisterAdminRoutes(r chi.Router) {
	r.Post("/", h.Create)
	r.Put("/{id}", h.Update)
	r.Delete("/{id}", h.Delete)
}

// RegisterStatusRoutes registers the floor status endpoint used by staff.
func (h *TableHandler) RegisterStatusRoutes(r chi.Router) {
	r.Patch("/{id}/status", h.UpdateStatus)
}

// --- Request / Response types ---

type tableRequest struct {
	TableNo  int32  `json:"table_no"`
	Capacity int32  `json:"capacity"`
	Zone     string `json:"zone"`
}

type updateTableStatusRequest struct {
	Status string `json:"status"`
}

type tableResponse struct {
	ID          uuid.UUID      `json:"id"`
	TableNo     int32          `json:"table_no"`
	Capacity    int32          `json:"capacity"`
	Zone        *string        `json:"zone"`
	Status      string         `json:"status"`
	UpdatedAt   time.Time      `json:"updated_at"`
	ActiveOrder *orderResponse `json:"active_order,omitempty"`
}

func toTableResponse(t database.Table) tableResponse {
	resp := tableResponse{
		ID:        t.ID,
		TableNo:   t.TableNo,
		Capacity:  t.Capacity,
		Status:    string(t.Status),
		UpdatedAt: t.UpdatedAt,
	}
	if t.Zone.Valid {
		resp.Zone = &t.Zone.String
	}
	return resp
}

func toTableViewResponse(v service.TableView) tableResponse {
	resp := toTableResponse(v.Table)
	if v.ActiveOrder != nil {
		o := toOrderResponse(*v.ActiveOrder)
		resp.ActiveOrder = &o
	}
	return resp
}

// --- Handlers ---

// List returns the floor plan with each table's active order.
func (h *TableHandler) List(w http.ResponseWriter, r *http.Request) {
	views, err := h.svc.List(r.Context())
	if err != nil {
		writeServiceError(w, "list tables", err)
		return
	}

	resp := make([]tableResponse, len(views))
	for i, v := range views {
		resp[i] = toTableViewResponse(v)
	}

	writeJSON(w, http.StatusOK, resp)
}

// Get returns one table with its active order.
func (h *TableHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r, "id", "table")
	if !ok {
		return
	}

	view, err := h.svc.Get(r.Context(), id)
	if err != nil {
		writeServiceError(w, "get table", err)
		return
	}

	writeJSON(w, http.StatusOK, toTableViewResponse(*view))
}

// Create adds a table to the floor plan.
func (h *TableHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req tableRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	t, err := h.svc.Create(r.Context(), service.TableRequest{
		TableNo:  req.TableNo,
		Capacity: req.Capacity,
		Zone:     strings.TrimSpace(req.Zone),
	})
	if err != nil {
		writeServiceError(w, "create table", err)
		return
	}

	writeJSON(w, http.StatusCreated, toTableResponse(*t))
}

// Update changes number, capacity or zone.
func (h *TableHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r, "id", "table")
	if !ok {
		return
	}

	var req tableRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	t, err := h.svc.Update(r.Context(), id, service.TableRequest{
		TableNo:  req.TableNo,
		Capacity: req.Capacity,
		Zone:     strings.TrimSpace(req.Zone),
	})
	if err != nil {
		writeServiceError(w, "update table", err)
		return
	}

	writeJSON(w, http.StatusOK, toTableResponse(*t))
}

// UpdateStatus sets AVAILABLE, OCCUPIED, RESERVED or CLEANING.
func (h *TableHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r, "id", "table")
	if !ok {
		return
	}

	var req updateTableStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	if req.Status == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "status is required"})
		return
	}

	t, err := h.svc.UpdateStatus(r.Context(), id, strings.ToUpper(req.Status))
	if err != nil {
		writeServiceError(w, "update table status", err)
		return
	}

	writeJSON(w, http.StatusOK, toTableResponse(*t))
}

// Delete removes a table that has never held an order.
func (h *TableHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r, "id", "table")
	if !ok {
		return
	}

	if err := h.svc.Delete(r.Context(), id); err != nil {
		writeServiceError(w, "delete table", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
