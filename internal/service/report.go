package service

import (
	"context"
	"fmt"
	"time"

	"github.com/thaicafe/pos-api/internal/database"
	"golang.org/x/sync/errgroup"
)

const defaultTopMenus = 10

// ReportStore defines the read-only queries behind the reports.
// Satisfied by *database.Queries; narrow interface for testability.
type ReportStore interface {
	GetPaymentSummary(ctx context.Context, start, end time.Time) ([]database.GetPaymentSummaryRow, error)
	GetSalesByPeriod(ctx context.Context, arg database.GetSalesByPeriodParams) ([]database.GetSalesByPeriodRow, error)
	GetTopSellingMenus(ctx context.Context, arg database.GetTopSellingMenusParams) ([]database.GetTopSellingMenusRow, error)
	ListLowStockIngredients(ctx context.Context) ([]database.Ingredient, error)
	CountLowStockIngredients(ctx context.Context) (int64, error)
	CountActiveOrders(ctx context.Context) (int64, error)
	CountTablesByStatus(ctx context.Context) ([]database.CountTablesByStatusRow, error)
}

type PaymentSummary struct {
	TotalTransactions int64 `json:"total_transactions"`
	TotalAmount       int64 `json:"total_amount"`
	TotalCash         int64 `json:"total_cash"`
	TotalQris         int64 `json:"total_qris"`
}

type Dashboard struct {
	ActiveOrders  int64            `json:"active_orders"`
	Tables        map[string]int64 `json:"tables"`
	Today         PaymentSummary   `json:"today"`
	LowStockCount int64            `json:"low_stock_count"`
}

type ReportService struct {
	store ReportStore
	now   func() time.Time
}

func NewReportService(store ReportStore) *ReportService {
	return &ReportService{store: store, now: time.Now}
}

// PaymentSummary totals payments in [start, end) by method.
func (s *ReportService) PaymentSummary(ctx context.Context, start, end time.Time) (*PaymentSummary, error) {
	if !end.After(start) {
		return nil, ErrInvalidDateRange
	}
	rows, err := s.store.GetPaymentSummary(ctx, start, end)
	if err != nil {
		return nil, fmt.Errorf("payment summary: %w", err)
	}
	sum := summarize(rows)
	return &sum, nil
}

func summarize(rows []database.GetPaymentSummaryRow) PaymentSummary {
	var sum PaymentSummary
	for _, r := range rows {
		sum.TotalTransactions += r.Transactions
		sum.TotalAmount += r.Total
		switch r.Method {
		case database.PaymentMethodCASH:
			sum.TotalCash += r.Total
		case database.PaymentMethodQRIS:
			sum.TotalQris += r.Total
		}
	}
	return sum
}

// SalesByPeriod buckets paid revenue by day or month.
func (s *ReportService) SalesByPeriod(ctx context.Context, start, end time.Time, granularity string) ([]database.GetSalesByPeriodRow, error) {
	if !end.After(start) {
		return nil, ErrInvalidDateRange
	}
	if granularity == "" {
		granularity = "day"
	}
	if granularity != "day" && granularity != "month" {
		return nil, ErrInvalidGranularity
	}
	return s.store.GetSalesByPeriod(ctx, database.GetSalesByPeriodParams{
		Start: start, End: end, Granularity: granularity,
	})
}

func (s *ReportService) TopMenus(ctx context.Context, start, end time.Time, limit int32) ([]database.GetTopSellingMenusRow, error) {
	if !end.After(start) {
		return nil, ErrInvalidDateRange
	}
	if limit <= 0 || limit > maxListLimit {
		limit = defaultTopMenus
	}
	return s.store.GetTopSellingMenus(ctx, database.GetTopSellingMenusParams{
		Start: start, End: end, Limit: limit,
	})
}

// LowStock lists ingredients at or below their minimum, lowest first.
func (s *ReportService) LowStock(ctx context.Context) ([]database.Ingredient, error) {
	return s.store.ListLowStockIngredients(ctx)
}

// Dashboard runs the four headline counters concurrently.
func (s *ReportService) Dashboard(ctx context.Context) (*Dashboard, error) {
	now := s.now()
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	dayEnd := dayStart.AddDate(0, 0, 1)

	d := &Dashboard{Tables: map[string]int64{
		string(database.TableStatusAVAILABLE): 0,
		string(database.TableStatusOCCUPIED):  0,
		string(database.TableStatusRESERVED):  0,
		string(database.TableStatusCLEANING):  0,
	}}
	var tableRows []database.CountTablesByStatusRow
	var payRows []database.GetPaymentSummaryRow

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		n, err := s.store.CountActiveOrders(ctx)
		if err != nil {
			return fmt.Errorf("count active orders: %w", err)
		}
		d.ActiveOrders = n
		return nil
	})
	g.Go(func() error {
		rows, err := s.store.CountTablesByStatus(ctx)
		if err != nil {
			return fmt.Errorf("count tables: %w", err)
		}
		tableRows = rows
		return nil
	})
	g.Go(func() error {
		rows, err := s.store.GetPaymentSummary(ctx, dayStart, dayEnd)
		if err != nil {
			return fmt.Errorf("today's payments: %w", err)
		}
		payRows = rows
		return nil
	})
	g.Go(func() error {
		n, err := s.store.CountLowStockIngredients(ctx)
		if err != nil {
			return fmt.Errorf("count low stock: %w", err)
		}
		d.LowStockCount = n
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for _, r := range tableRows {
		d.Tables[string(r.Status)] = r.Count
	}
	d.Today = summarize(payRows)
	return d, nil
}
