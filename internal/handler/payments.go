package handler

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/thaicafe/pos-api/internal/database"
	"github.com/thaicafe/pos-api/internal/middleware"
	"github.com/thaicafe/pos-api/internal/service"
)

// PaymentServicer defines the service methods needed by payment handlers.
// Satisfied by *service.PaymentService; narrow interface for testability.
type PaymentServicer interface {
	SettleOrder(ctx context.Context, req service.SettleRequest) (*service.SettleResult, error)
	GetPaymentByOrder(ctx context.Context, orderID uuid.UUID) (*database.Payment, error)
	ListPayments(ctx context.Context, start, end time.Time) ([]service.PaymentHistoryEntry, error)
}

// ReceiptServicer renders receipts and QRIS codes.
// Satisfied by *service.ReceiptService.
type ReceiptServicer interface {
	GetReceipt(ctx context.Context, orderID uuid.UUID) (*service.Receipt, error)
	QRISImage(ctx context.Context, orderID uuid.UUID) ([]byte, error)
}

// PaymentHandler handles settlement, receipt and QRIS endpoints.
type PaymentHandler struct {
	svc      PaymentServicer
	receipts ReceiptServicer
	loc      *time.Location
	now      func() time.Time
}

// NewPaymentHandler creates a new PaymentHandler.
func NewPaymentHandler(svc PaymentServicer, receipts ReceiptServicer) *PaymentHandler {
	return &PaymentHandler{svc: svc, receipts: receipts, loc: businessLocation(), now: time.Now}
}

// RegisterRoutes registers the read endpoints.
// Expected to be mounted at /orders, next to the order routes.
func (h *PaymentHandler) RegisterRoutes(r chi.Router) {
	r.Get("/{id}/payment", h.Get)
	r.Get("/{id}/receipt", h.Receipt)
	r.Get("/{id}/qris.png", h.QRIS)
}

// RegisterSettleRoutes registers the settlement endpoint (cashier desk).
func (h *PaymentHandler) RegisterSettleRoutes(r chi.Router) {
	r.Post("/{id}/payment", h.Settle)
}

// RegisterHistoryRoutes registers the daily payment list.
// Expected to be mounted at /payments.
func (h *PaymentHandler) RegisterHistoryRoutes(r chi.Router) {
	r.Get("/", h.List)
}

// --- Request / Response types ---

type settleRequest struct {
	Method          string `json:"method"`
	AmountReceived  *int64 `json:"amount_received"`
	ReferenceNumber string `json:"reference_number"`
	MemberID        string `json:"member_id"`
}

type paymentResponse struct {
	ID              uuid.UUID `json:"id"`
	OrderID         uuid.UUID `json:"order_id"`
	Amount          int64     `json:"amount"`
	Method          string    `json:"method"`
	AmountReceived  *int64    `json:"amount_received"`
	ChangeAmount    *int64    `json:"change_amount"`
	ReferenceNumber *string   `json:"reference_number"`
	PointsEarned    int32     `json:"points_earned"`
	ProcessedBy     *string   `json:"processed_by"`
	CreatedAt       time.Time `json:"created_at"`
}

type settleResponse struct {
	Payment      paymentResponse            `json:"payment"`
	Order        orderResponse              `json:"order"`
	Table        tableResponse              `json:"table"`
	PointsEarned int32                      `json:"points_earned"`
	Member       *memberResponse            `json:"member,omitempty"`
	Deductions   []service.AppliedDeduction `json:"deductions"`
}

type paymentHistoryResponse struct {
	paymentResponse
	TableNo  int32                        `json:"table_no"`
	MemberID *string                      `json:"member_id"`
	Items    []paymentHistoryItemResponse `json:"items"`
}

type paymentHistoryItemResponse struct {
	MenuID   uuid.UUID `json:"menu_id"`
	MenuName string    `json:"menu_name"`
	Qty      int32     `json:"qty"`
	Subtotal int64     `json:"subtotal"`
	Notes    *string   `json:"notes"`
}

func toPaymentResponse(p database.Payment) paymentResponse {
	resp := paymentResponse{
		ID:           p.ID,
		OrderID:      p.OrderID,
		Amount:       p.Amount,
		Method:       string(p.Method),
		PointsEarned: p.PointsEarned,
		ProcessedBy:  uuidString(p.ProcessedBy),
		CreatedAt:    p.CreatedAt,
	}
	if p.AmountReceived.Valid {
		resp.AmountReceived = &p.AmountReceived.Int64
	}
	if p.ChangeAmount.Valid {
		resp.ChangeAmount = &p.ChangeAmount.Int64
	}
	if p.ReferenceNumber.Valid {
		resp.ReferenceNumber = &p.ReferenceNumber.String
	}
	return resp
}

// --- Handlers ---

// Settle records the single payment of a served order and completes it.
func (h *PaymentHandler) Settle(w http.ResponseWriter, r *http.Request) {
	orderID, ok := urlID(w, r, "id", "order")
	if !ok {
		return
	}

	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	var req settleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	if req.Method == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "method is required"})
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

	processedBy := claims.UserID
	res, err := h.svc.SettleOrder(r.Context(), service.SettleRequest{
		OrderID:         orderID,
		Method:          strings.ToUpper(req.Method),
		MemberID:        memberID,
		AmountReceived:  req.AmountReceived,
		ReferenceNumber: req.ReferenceNumber,
		ProcessedBy:     &processedBy,
	})
	if err != nil {
		writeServiceError(w, "settle order", err)
		return
	}

	resp := settleResponse{
		Payment:      toPaymentResponse(res.Payment),
		Order:        toOrderResponse(res.Order),
		Table:        toTableResponse(res.Table),
		PointsEarned: res.PointsEarned,
		Deductions:   res.Deductions,
	}
	if resp.Deductions == nil {
		resp.Deductions = []service.AppliedDeduction{}
	}
	if res.Member != nil {
		m := toMemberResponse(*res.Member)
		resp.Member = &m
	}

	writeJSON(w, http.StatusCreated, resp)
}

// Get returns the payment of an order.
func (h *PaymentHandler) Get(w http.ResponseWriter, r *http.Request) {
	orderID, ok := urlID(w, r, "id", "order")
	if !ok {
		return
	}

	p, err := h.svc.GetPaymentByOrder(r.Context(), orderID)
	if err != nil {
		writeServiceError(w, "get payment", err)
		return
	}

	writeJSON(w, http.StatusOK, toPaymentResponse(*p))
}

// List returns the payments of one business day (?date=YYYY-MM-DD, default
// today), newest first.
func (h *PaymentHandler) List(w http.ResponseWriter, r *http.Request) {
	now := h.now().In(h.loc)
	day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, h.loc)
	if s := r.URL.Query().Get("date"); s != "" {
		t, err := time.ParseInLocation("2006-01-02", s, h.loc)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid date, expected YYYY-MM-DD"})
			return
		}
		day = t
	}

	entries, err := h.svc.ListPayments(r.Context(), day, day.AddDate(0, 0, 1))
	if err != nil {
		writeServiceError(w, "list payments", err)
		return
	}

	resp := make([]paymentHistoryResponse, len(entries))
	for i, e := range entries {
		items := make([]paymentHistoryItemResponse, len(e.Items))
		for j, d := range e.Items {
			items[j] = paymentHistoryItemResponse{
				MenuID:   d.MenuID,
				MenuName: d.MenuName,
				Qty:      d.Qty,
				Subtotal: d.Subtotal,
			}
			if d.Notes.Valid {
				items[j].Notes = &d.Notes.String
			}
		}
		resp[i] = paymentHistoryResponse{
			paymentResponse: toPaymentResponse(e.Payment),
			TableNo:         e.TableNo,
			MemberID:        uuidString(e.MemberID),
			Items:           items,
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

// Receipt returns the printable projection of a paid order.
func (h *PaymentHandler) Receipt(w http.ResponseWriter, r *http.Request) {
	orderID, ok := urlID(w, r, "id", "order")
	if !ok {
		return
	}

	rc, err := h.receipts.GetReceipt(r.Context(), orderID)
	if err != nil {
		writeServiceError(w, "get receipt", err)
		return
	}

	writeJSON(w, http.StatusOK, rc)
}

// QRIS serves a PNG QR code for paying the order total by QRIS.
func (h *PaymentHandler) QRIS(w http.ResponseWriter, r *http.Request) {
	orderID, ok := urlID(w, r, "id", "order")
	if !ok {
		return
	}

	png, err := h.receipts.QRISImage(r.Context(), orderID)
	if err != nil {
		writeServiceError(w, "qris image", err)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(png); err != nil {
		log.Printf("ERROR: write qris image: %v", err)
	}
}
