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

// MemberServicer defines the service methods needed by member handlers.
// Satisfied by *service.MemberService; narrow interface for testability.
type MemberServicer interface {
	Create(ctx context.Context, name, phone string) (*database.Member, error)
	Get(ctx context.Context, id uuid.UUID) (*database.Member, error)
	GetByPhone(ctx context.Context, phone string) (*database.Member, error)
	List(ctx context.Context, search string, limit, offset int32) ([]database.Member, error)
	Update(ctx context.Context, id uuid.UUID, name, phone string) (*database.Member, error)
	Delete(ctx context.Context, id uuid.UUID) error
	AddPoints(ctx context.Context, memberID uuid.UUID, points int32, reason string) (*database.Member, error)
	RedeemPoints(ctx context.Context, memberID uuid.UUID, points int32, reason string) (*database.Member, error)
	Stats(ctx context.Context, memberID uuid.UUID) (*service.MemberStats, error)
}

// MemberHandler handles loyalty member endpoints.
type MemberHandler struct {
	svc MemberServicer
}

// NewMemberHandler creates a new MemberHandler.
func NewMemberHandler(svc MemberServicer) *MemberHandler {
	return &MemberHandler{svc: svc}
}

// RegisterRoutes registers member endpoints on the given Chi router.
// Expected to be mounted at /members.
func (h *MemberHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Get("/{id}", h.Get)
	r.Put("/{id}", h.Update)
	r.Delete("/{id}", h.Delete)
	r.Get("/{id}/stats", h.Stats)
	r.Post("/{id}/points", h.AddPoints)
	r.Post("/{id}/redeem", h.Redeem)
}

// --- Request / Response types ---

type memberRequest struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

type pointsRequest struct {
	Points int32  `json:"points"`
	Reason string `json:"reason"`
}

type memberResponse struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Phone     string    `json:"phone"`
	Points    int32     `json:"points"`
	CreatedAt time.Time `json:"created_at"`
}

type pointLogResponse struct {
	ID        uuid.UUID `json:"id"`
	OrderID   *string   `json:"order_id"`
	Delta     int32     `json:"delta"`
	Reason    string    `json:"reason"`
	CreatedAt time.Time `json:"created_at"`
}

type memberStatsResponse struct {
	Member       memberResponse     `json:"member"`
	TotalOrders  int64              `json:"total_orders"`
	TotalSpent   int64              `json:"total_spent"`
	RecentPoints []pointLogResponse `json:"recent_points"`
}

func toMemberResponse(m database.Member) memberResponse {
	return memberResponse{
		ID:        m.ID,
		Name:      m.Name,
		Phone:     m.Phone,
		Points:    m.Points,
		CreatedAt: m.CreatedAt,
	}
}

// validate trims the fields and returns an error message when one is missing.
func (req *memberRequest) validate() string {
	req.Name = strings.TrimSpace(req.Name)
	req.Phone = strings.TrimSpace(req.Phone)
	if req.Name == "" || req.Phone == "" {
		return "name and phone are required"
	}
	return ""
}

// --- Handlers ---

// List returns members. ?phone does an exact lookup; ?search matches name or phone.
func (h *MemberHandler) List(w http.ResponseWriter, r *http.Request) {
	if phone := strings.TrimSpace(r.URL.Query().Get("phone")); phone != "" {
		m, err := h.svc.GetByPhone(r.Context(), phone)
		if err != nil {
			writeServiceError(w, "get member by phone", err)
			return
		}
		writeJSON(w, http.StatusOK, []memberResponse{toMemberResponse(*m)})
		return
	}

	limit, offset := parsePagination(r, 50)
	members, err := h.svc.List(r.Context(), strings.TrimSpace(r.URL.Query().Get("search")), limit, offset)
	if err != nil {
		writeServiceError(w, "list members", err)
		return
	}

	resp := make([]memberResponse, len(members))
	for i, m := range members {
		resp[i] = toMemberResponse(m)
	}

	writeJSON(w, http.StatusOK, resp)
}

// Create registers a member by phone number.
func (h *MemberHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req memberRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	if msg := req.validate(); msg != "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": msg})
		return
	}

	m, err := h.svc.Create(r.Context(), req.Name, req.Phone)
	if err != nil {
		writeServiceError(w, "create member", err)
		return
	}

	writeJSON(w, http.StatusCreated, toMemberResponse(*m))
}

// Get returns one member.
func (h *MemberHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r, "id", "member")
	if !ok {
		return
	}

	m, err := h.svc.Get(r.Context(), id)
	if err != nil {
		writeServiceError(w, "get member", err)
		return
	}

	writeJSON(w, http.StatusOK, toMemberResponse(*m))
}

// Update changes name and phone.
func (h *MemberHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r, "id", "member")
	if !ok {
		return
	}

	var req memberRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	if msg := req.validate(); msg != "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": msg})
		return
	}

	m, err := h.svc.Update(r.Context(), id, req.Name, req.Phone)
	if err != nil {
		writeServiceError(w, "update member", err)
		return
	}

	writeJSON(w, http.StatusOK, toMemberResponse(*m))
}

// Delete removes a member. Their past orders stay, unlinked.
func (h *MemberHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r, "id", "member")
	if !ok {
		return
	}

	if err := h.svc.Delete(r.Context(), id); err != nil {
		writeServiceError(w, "delete member", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Stats returns order count, spend and the recent points ledger.
func (h *MemberHandler) Stats(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r, "id", "member")
	if !ok {
		return
	}

	st, err := h.svc.Stats(r.Context(), id)
	if err != nil {
		writeServiceError(w, "member stats", err)
		return
	}

	logs := make([]pointLogResponse, len(st.RecentPoints))
	for i, l := range st.RecentPoints {
		logs[i] = pointLogResponse{
			ID:        l.ID,
			OrderID:   uuidString(l.OrderID),
			Delta:     l.Delta,
			Reason:    l.Reason,
			CreatedAt: l.CreatedAt,
		}
	}

	writeJSON(w, http.StatusOK, memberStatsResponse{
		Member:       toMemberResponse(st.Member),
		TotalOrders:  st.TotalOrders,
		TotalSpent:   st.TotalSpent,
		RecentPoints: logs,
	})
}

// AddPoints credits points by hand.
func (h *MemberHandler) AddPoints(w http.ResponseWriter, r *http.Request) {
	h.changePoints(w, r, "add points", h.svc.AddPoints)
}

// Redeem spends points. 409 when the balance is too low.
func (h *MemberHandler) Redeem(w http.ResponseWriter, r *http.Request) {
	h.changePoints(w, r, "redeem points", h.svc.RedeemPoints)
}

// --- Helpers ---

func (h *MemberHandler) changePoints(w http.ResponseWriter, r *http.Request, op string,
	apply func(ctx context.Context, memberID uuid.UUID, points int32, reason string) (*database.Member, error)) {
	id, ok := urlID(w, r, "id", "member")
	if !ok {
		return
	}

	var req pointsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	m, err := apply(r.Context(), id, req.Points, strings.TrimSpace(req.Reason))
	if err != nil {
		writeServiceError(w, op, err)
		return
	}

	writeJSON(w, http.StatusOK, toMemberResponse(*m))
}
