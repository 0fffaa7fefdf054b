package handler

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/thaicafe/pos-api/internal/database"
	"github.com/thaicafe/pos-api/internal/service"
)

// ReportServicer defines the service methods needed by report handlers.
// Satisfied by *service.ReportService; narrow interface for testability.
type ReportServicer interface {
	PaymentSummary(ctx context.Context, start, end time.Time) (*service.PaymentSummary, error)
	SalesByPeriod(ctx context.Context, start, end time.Time, granularity string) ([]database.GetSalesByPeriodRow, error)
	TopMenus(ctx context.Context, start, end time.Time, limit int32) ([]database.GetTopSellingMenusRow, error)
	LowStock(ctx context.Context) ([]database.Ingredient, error)
	Dashboard(ctx context.Context) (*service.Dashboard, error)
}

// ReportsHandler handles report endpoints.
type ReportsHandler struct {
	svc ReportServicer
	loc *time.Location
	now func() time.Time
}

// NewReportsHandler creates a new ReportsHandler. Date parameters are
// read in Asia/Jakarta to match the cafe's business day.
func NewReportsHandler(svc ReportServicer) *ReportsHandler {
	return &ReportsHandler{svc: svc, loc: businessLocation(), now: time.Now}
}

func businessLocation() *time.Location {
	loc, err := time.LoadLocation("Asia/Jakarta")
	if err != nil {
		return time.FixedZone("WIB", 7*3600)
	}
	return loc
}

// RegisterRoutes registers admin report endpoints.
// Expected to be mounted at /reports.
func (h *ReportsHandler) RegisterRoutes(r chi.Router) {
	r.Get("/sales", h.Sales)
	r.Get("/top-menus", h.TopMenus)
	r.Get("/dashboard", h.Dashboard)
	r.Get("/low-stock", h.LowStock)
}

// RegisterCashierRoutes registers the end-of-shift summary, shared with cashiers.
func (h *ReportsHandler) RegisterCashierRoutes(r chi.Router) {
	r.Get("/payment-summary", h.PaymentSummary)
}

// --- Response types ---

type salesResponse struct {
	Period     string `json:"period"`
	OrderCount int64  `json:"order_count"`
	Revenue    int64  `json:"revenue"`
}

type topMenuResponse struct {
	MenuID   uuid.UUID `json:"menu_id"`
	MenuName string    `json:"menu_name"`
	QtySold  int64     `json:"qty_sold"`
	Revenue  int64     `json:"revenue"`
}

// --- Handlers ---

// PaymentSummary totals payments by method over ?start_date..?end_date.
func (h *ReportsHandler) PaymentSummary(w http.ResponseWriter, r *http.Request) {
	start, end, err := h.parseDateRange(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	sum, err := h.svc.PaymentSummary(r.Context(), start, end)
	if err != nil {
		writeServiceError(w, "payment summary", err)
		return
	}

	writeJSON(w, http.StatusOK, sum)
}

// Sales buckets revenue by ?granularity=day|month.
func (h *ReportsHandler) Sales(w http.ResponseWriter, r *http.Request) {
	start, end, err := h.parseDateRange(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	granularity := r.URL.Query().Get("granularity")
	rows, err := h.svc.SalesByPeriod(r.Context(), start, end, granularity)
	if err != nil {
		writeServiceError(w, "sales by period", err)
		return
	}

	layout := "2006-01-02"
	if granularity == "month" {
		layout = "2006-01"
	}

	resp := make([]salesResponse, len(rows))
	for i, row := range rows {
		resp[i] = salesResponse{
			Period:     row.Period.In(h.loc).Format(layout),
			OrderCount: row.OrderCount,
			Revenue:    row.Revenue,
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

// TopMenus ranks menus by quantity sold. ?limit defaults to 10.
func (h *ReportsHandler) TopMenus(w http.ResponseWriter, r *http.Request) {
	start, end, err := h.parseDateRange(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	var limit int32
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.ParseInt(s, 10, 32)
		if err != nil || n <= 0 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid limit"})
			return
		}
		limit = int32(n)
	}

	rows, err := h.svc.TopMenus(r.Context(), start, end, limit)
	if err != nil {
		writeServiceError(w, "top menus", err)
		return
	}

	resp := make([]topMenuResponse, len(rows))
	for i, row := range rows {
		resp[i] = topMenuResponse{
			MenuID:   row.MenuID,
			MenuName: row.MenuName,
			QtySold:  row.QtySold,
			Revenue:  row.Revenue,
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

// Dashboard returns today's headline counters.
func (h *ReportsHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	d, err := h.svc.Dashboard(r.Context())
	if err != nil {
		writeServiceError(w, "dashboard", err)
		return
	}

	writeJSON(w, http.StatusOK, d)
}

// LowStock lists ingredients at or below minimum.
func (h *ReportsHandler) LowStock(w http.ResponseWriter, r *http.Request) {
	ings, err := h.svc.LowStock(r.Context())
	if err != nil {
		writeServiceError(w, "low stock report", err)
		return
	}

	writeJSON(w, http.StatusOK, toIngredientListResponse(ings))
}

// --- Helpers ---

// parseDateRange reads start_date and end_date (YYYY-MM-DD, inclusive).
// The default is the last 30 days including today. The returned end is
// exclusive: midnight after end_date.
func (h *ReportsHandler) parseDateRange(r *http.Request) (time.Time, time.Time, error) {
	const layout = "2006-01-02"

	now := h.now().In(h.loc)
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, h.loc)
	startDate := today.AddDate(0, 0, -30)
	endDate := today.AddDate(0, 0, 1)

	if s := r.URL.Query().Get("start_date"); s != "" {
		t, err := time.ParseInLocation(layout, s, h.loc)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid start_date format: %w", err)
		}
		startDate = t
	}

	if s := r.URL.Query().Get("end_date"); s != "" {
		t, err := time.ParseInLocation(layout, s, h.loc)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid end_date format: %w", err)
		}
		endDate = t.AddDate(0, 0, 1)
	}

	if !startDate.Before(endDate) {
		return time.Time{}, time.Time{}, fmt.Errorf("start_date must be before end_date")
	}

	return startDate, endDate, nil
}
