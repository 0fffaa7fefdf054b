package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/thaicafe/pos-api/internal/database"
	"github.com/thaicafe/pos-api/internal/service"
)

// KitchenServicer defines the service methods needed by kitchen handlers.
// Satisfied by *service.KitchenService.
type KitchenServicer interface {
	ListTickets(ctx context.Context) ([]service.Ticket, error)
	AdvanceTicket(ctx context.Context, orderID uuid.UUID) (*database.Order, error)
	SetTicketStatus(ctx context.Context, orderID uuid.UUID, status string) (*database.Order, error)
}

// KitchenHandler serves the kitchen board.
type KitchenHandler struct {
	svc KitchenServicer
}

// NewKitchenHandler creates a new KitchenHandler.
func NewKitchenHandler(svc KitchenServicer) *KitchenHandler {
	return &KitchenHandler{svc: svc}
}

// RegisterRoutes registers kitchen board endpoints.
// Expected to be mounted at /kitchen/tickets.
func (h *KitchenHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Post("/{id}/advance", h.Advance)
	r.Patch("/{id}/status", h.SetStatus)
}

// List returns open tickets oldest first.
func (h *KitchenHandler) List(w http.ResponseWriter, r *http.Request) {
	tickets, err := h.svc.ListTickets(r.Context())
	if err != nil {
		writeServiceError(w, "list tickets", err)
		return
	}

	writeJSON(w, http.StatusOK, tickets)
}

// Advance bumps a ticket to its next status.
func (h *KitchenHandler) Advance(w http.ResponseWriter, r *http.Request) {
	orderID, ok := urlID(w, r, "id", "order")
	if !ok {
		return
	}

	order, err := h.svc.AdvanceTicket(r.Context(), orderID)
	if err != nil {
		writeServiceError(w, "advance ticket", err)
		return
	}

	writeJSON(w, http.StatusOK, toOrderResponse(*order))
}

// SetStatus sets a ticket to an explicit forward status.
func (h *KitchenHandler) SetStatus(w http.ResponseWriter, r *http.Request) {
	orderID, ok := urlID(w, r, "id", "order")
	if !ok {
		return
	}

	var req updateOrderStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	if req.Status == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "status is required"})
		return
	}

	order, err := h.svc.SetTicketStatus(r.Context(), orderID, strings.ToUpper(req.Status))
	if err != nil {
		writeServiceError(w, "set ticket status", err)
		return
	}

	writeJSON(w, http.StatusOK, toOrderResponse(*order))
}
