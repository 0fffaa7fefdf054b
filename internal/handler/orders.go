package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/thaicafe/pos-api/internal/database"
	"github.com/thaicafe/pos-api/internal/middleware"
	"github.com/thaicafe/pos-api/internal/service"
)

// OrderServicer defines the service methods needed by order handlers.
// Satisfied by *service.OrderService; narrow interface for testability.
type OrderServicer interface {
	CreateOrder(ctx context.Context, req service.CreateOrderRequest) (*service.OrderResult, error)
	GetOrder(ctx context.Context, orderID uuid.UUID) (*service.OrderResult, error)
	ListOrders(ctx context.Context, f service.ListOrdersFilter) ([]database.Order, error)
	ListCompletedOrders(ctx context.Context) ([]database.Order, error)
	UpdateOrderStatus(ctx context.Context, orderID uuid.UUID, status string) (*database.Order, error)
	AddOrderItem(ctx context.Context, orderID uuid.UUID, item service.OrderItemRequest) (*service.OrderResult, error)
	RemoveOrderItem(ctx context.Context, orderID, detailID uuid.UUID) (*service.OrderResult, error)
}

// StockDeducter runs the BOM pass for an order on demand.
// Satisfied by *service.InventoryService.
type StockDeducter interface {
	DeductStockForOrder(ctx context.Context, orderID uuid.UUID) (*service.DeductionResult, error)
}

// OrderHandler handles order endpoints.
type OrderHandler struct {
	svc   OrderServicer
	stock StockDeducter
}

// NewOrderHandler creates a new OrderHandler.
func NewOrderHandler(svc OrderServicer, stock StockDeducter) *OrderHandler {
	return &OrderHandler{svc: svc, stock: stock}
}

// RegisterRoutes registers order endpoints on the given Chi router.
// Expected to be mounted at /orders.
func (h *OrderHandler) RegisterRoutes(r chi.Router) {
	r.Post("/", h.Create)
	r.Get("/", h.List)
	r.Get("/completed", h.ListCompleted)
	r.Get("/{id}", h.Get)
	r.Post("/{id}/items", h.AddItem)
	r.Delete("/{id}/items/{itemId}", h.RemoveItem)
}

// RegisterStatusRoutes registers the front-of-house status endpoint.
// The kitchen moves orders through /kitchen/tickets instead.
func (h *OrderHandler) RegisterStatusRoutes(r chi.Router) {
	r.Patch("/{id}/status", h.UpdateStatus)
}

// RegisterAdminRoutes registers the manual stock deduction endpoint.
func (h *OrderHandler) RegisterAdminRoutes(r chi.Router) {
	r.Post("/{id}/deduct-stock", h.DeductStock)
}

// --- Request / Response types ---

type createOrderRequest struct {
	TableID  string             `json:"table_id"`
	MemberID string             `json:"member_id"`
	Notes    string             `json:"notes"`
	Items    []orderItemRequest `json:"items"`
}

type orderItemRequest struct {
	MenuID string `json:"menu_id"`
	Qty    int32  `json:"qty"`
	Notes  string `json:"notes"`
}

type updateOrderStatusRequest struct {
	Status string `json:"status"`
}

type orderResponse struct {
	ID          uuid.UUID `json:"id"`
	TableID     uuid.UUID `json:"table_id"`
	UserID      *string   `json:"user_id"`
	MemberID    *string   `json:"member_id"`
	Status      string    `json:"status"`
	TotalAmount int64     `json:"total_amount"`
	Notes       *string   `json:"notes"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type orderDetailResponse struct {
	orderResponse
	TableNo int32               `json:"table_no"`
	Items   []orderItemResponse `json:"items"`
	Payment *paymentResponse    `json:"payment"`
}

type orderItemResponse struct {
	ID        uuid.UUID `json:"id"`
	MenuID    uuid.UUID `json:"menu_id"`
	MenuName  string    `json:"menu_name"`
	Price     int64     `json:"price"`
	Qty       int32     `json:"qty"`
	Subtotal  int64     `json:"subtotal"`
	Notes     *string   `json:"notes"`
	CreatedAt time.Time `json:"created_at"`
}

func uuidString(id pgtype.UUID) *string {
	if !id.Valid {
		return nil
	}
	s := uuid.UUID(id.Bytes).String()
	return &s
}

func toOrderResponse(o database.Order) orderResponse {
	resp := orderResponse{
		ID:          o.ID,
		TableID:     o.TableID,
		UserID:      uuidString(o.UserID),
		MemberID:    uuidString(o.MemberID),
		Status:      string(o.Status),
		TotalAmount: o.TotalAmount,
		CreatedAt:   o.CreatedAt,
		UpdatedAt:   o.UpdatedAt,
	}
	if o.Notes.Valid {
		resp.Notes = &o.Notes.String
	}
	return resp
}

func toOrderDetailResponse(res *service.OrderResult) orderDetailResponse {
	items := make([]orderItemResponse, len(res.Items))
	for i, d := range res.Items {
		items[i] = orderItemResponse{
			ID:        d.ID,
			MenuID:    d.MenuID,
			MenuName:  d.MenuName,
			Price:     service.UnitPrice(d),
			Qty:       d.Qty,
			Subtotal:  d.Subtotal,
			CreatedAt: d.CreatedAt,
		}
		if d.Notes.Valid {
			items[i].Notes = &d.Notes.String
		}
	}

	resp := orderDetailResponse{
		orderResponse: toOrderResponse(res.Order),
		TableNo:       res.TableNo,
		Items:         items,
	}
	if res.Payment != nil {
		p := toPaymentResponse(*res.Payment)
		resp.Payment = &p
	}
	return resp
}

func toOrderListResponse(orders []database.Order) []orderResponse {
	resp := make([]orderResponse, len(orders))
	for i, o := range orders {
		resp[i] = toOrderResponse(o)
	}
	return resp
}

// parse converts one request line; msg is non-empty on bad input.
func (it orderItemRequest) parse() (service.OrderItemRequest, string) {
	menuID, err := uuid.Parse(it.MenuID)
	if err != nil {
		return service.OrderItemRequest{}, "invalid menu_id"
	}
	return service.OrderItemRequest{MenuID: menuID, Qty: it.Qty, Notes: it.Notes}, ""
}

// --- Handlers ---

// Create opens an order on a table. The waiter comes from the token.
func (h *OrderHandler) Create(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	var req createOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	tableID, err := uuid.Parse(req.TableID)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid table_id"})
		return
	}

	var memberID *uuid.UUID
	if req.MemberID != "" {
		id, err := uuid.Parse(req.MemberID)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid member_id"})
			return
		}
		memberID = &id
	}

	items := make([]service.OrderItemRequest, len(req.Items))
	for i, it := range req.Items {
		item, msg := it.parse()
		if msg != "" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": msg})
			return
		}
		items[i] = item
	}

	userID := claims.UserID
	res, err := h.svc.CreateOrder(r.Context(), service.CreateOrderRequest{
		TableID:  tableID,
		UserID:   &userID,
		MemberID: memberID,
		Notes:    req.Notes,
		Items:    items,
	})
	if err != nil {
		writeServiceError(w, "create order", err)
		return
	}

	writeJSON(w, http.StatusCreated, toOrderDetailResponse(res))
}

// List returns orders newest first. ?status accepts a comma list;
// ?table_id, ?limit and ?offset narrow further.
func (h *OrderHandler) List(w http.ResponseWriter, r *http.Request) {
	var f service.ListOrdersFilter

	if s := r.URL.Query().Get("status"); s != "" {
		for _, part := range strings.Split(s, ",") {
			if p := strings.TrimSpace(part); p != "" {
				f.Statuses = append(f.Statuses, strings.ToUpper(p))
			}
		}
	}

	if s := r.URL.Query().Get("table_id"); s != "" {
		id, err := uuid.Parse(s)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid table_id"})
			return
		}
		f.TableID = &id
	}

	f.Limit, f.Offset = parsePagination(r, 50)

	orders, err := h.svc.ListOrders(r.Context(), f)
	if err != nil {
		writeServiceError(w, "list orders", err)
		return
	}

	writeJSON(w, http.StatusOK, toOrderListResponse(orders))
}

// ListCompleted returns recently finished orders for the history screen.
func (h *OrderHandler) ListCompleted(w http.ResponseWriter, r *http.Request) {
	orders, err := h.svc.ListCompletedOrders(r.Context())
	if err != nil {
		writeServiceError(w, "list completed orders", err)
		return
	}

	writeJSON(w, http.StatusOK, toOrderListResponse(orders))
}

// Get returns an order with its lines and payment.
func (h *OrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	orderID, ok := urlID(w, r, "id", "order")
	if !ok {
		return
	}

	res, err := h.svc.GetOrder(r.Context(), orderID)
	if err != nil {
		writeServiceError(w, "get order", err)
		return
	}

	writeJSON(w, http.StatusOK, toOrderDetailResponse(res))
}

// UpdateStatus moves an order along PENDING > PREPARING > READY > SERVED,
// or cancels it.
func (h *OrderHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
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

	order, err := h.svc.UpdateOrderStatus(r.Context(), orderID, strings.ToUpper(req.Status))
	if err != nil {
		writeServiceError(w, "update order status", err)
		return
	}

	writeJSON(w, http.StatusOK, toOrderResponse(*order))
}

// AddItem appends a line to an order still being prepared.
func (h *OrderHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	orderID, ok := urlID(w, r, "id", "order")
	if !ok {
		return
	}

	var req orderItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	item, msg := req.parse()
	if msg != "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": msg})
		return
	}

	res, err := h.svc.AddOrderItem(r.Context(), orderID, item)
	if err != nil {
		writeServiceError(w, "add order item", err)
		return
	}

	writeJSON(w, http.StatusOK, toOrderDetailResponse(res))
}

// RemoveItem deletes a line and recalculates the total.
func (h *OrderHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	orderID, ok := urlID(w, r, "id", "order")
	if !ok {
		return
	}
	itemID, ok := urlID(w, r, "itemId", "item")
	if !ok {
		return
	}

	res, err := h.svc.RemoveOrderItem(r.Context(), orderID, itemID)
	if err != nil {
		writeServiceError(w, "remove order item", err)
		return
	}

	writeJSON(w, http.StatusOK, toOrderDetailResponse(res))
}

// DeductStock runs the BOM pass for an order when settlement does not.
func (h *OrderHandler) DeductStock(w http.ResponseWriter, r *http.Request) {
	orderID, ok := urlID(w, r, "id", "order")
	if !ok {
		return
	}

	res, err := h.stock.DeductStockForOrder(r.Context(), orderID)
	if err != nil {
		writeServiceError(w, "deduct stock", err)
		return
	}

	writeJSON(w, http.StatusOK, res)
}
