package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/thaicafe/pos-api/internal/database"
	"github.com/thaicafe/pos-api/internal/qris"
)

const qrisImageSize = 320

// ReceiptStore defines the reads behind a printed receipt.
// Satisfied by *database.Queries; narrow interface for testability.
type ReceiptStore interface {
	GetOrder(ctx context.Context, id uuid.UUID) (database.Order, error)
	GetTable(ctx context.Context, id uuid.UUID) (database.Table, error)
	ListOrderDetails(ctx context.Context, orderID uuid.UUID) ([]database.ListOrderDetailsRow, error)
	GetPaymentByOrder(ctx context.Context, orderID uuid.UUID) (database.Payment, error)
	GetMember(ctx context.Context, id uuid.UUID) (database.Member, error)
}

type ReceiptLine struct {
	MenuName string `json:"menu_name"`
	Price    int64  `json:"price"`
	Qty      int32  `json:"qty"`
	Subtotal int64  `json:"subtotal"`
	Notes    string `json:"notes,omitempty"`
}

type Receipt struct {
	OrderID      uuid.UUID        `json:"order_id"`
	TableNo      int32            `json:"table_no"`
	Status       string           `json:"status"`
	CreatedAt    time.Time        `json:"created_at"`
	Items        []ReceiptLine    `json:"items"`
	TotalAmount  int64            `json:"total_amount"`
	Payment      database.Payment `json:"payment"`
	Member       *database.Member `json:"member,omitempty"`
	PointsEarned int32            `json:"points_earned"`
}

// MerchantConfig identifies the outlet on QRIS payloads.
type MerchantConfig struct {
	Name string
	City string
	ID   string
}

type ReceiptService struct {
	store    ReceiptStore
	merchant MerchantConfig
}

func NewReceiptService(store ReceiptStore, merchant MerchantConfig) *ReceiptService {
	return &ReceiptService{store: store, merchant: merchant}
}

// GetReceipt projects a paid order into its printable form.
func (s *ReceiptService) GetReceipt(ctx context.Context, orderID uuid.UUID) (*Receipt, error) {
	order, err := s.store.GetOrder(ctx, orderID)
	if err != nil {
		return nil, notFound(err, ErrOrderNotFound)
	}
	payment, err := s.store.GetPaymentByOrder(ctx, order.ID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotPaid
		}
		return nil, fmt.Errorf("get payment: %w", err)
	}
	table, err := s.store.GetTable(ctx, order.TableID)
	if err != nil {
		return nil, fmt.Errorf("get table: %w", err)
	}
	details, err := s.store.ListOrderDetails(ctx, order.ID)
	if err != nil {
		return nil, fmt.Errorf("list order details: %w", err)
	}

	r := &Receipt{
		OrderID:      order.ID,
		TableNo:      table.TableNo,
		Status:       string(order.Status),
		CreatedAt:    order.CreatedAt,
		Items:        make([]ReceiptLine, 0, len(details)),
		TotalAmount:  order.TotalAmount,
		Payment:      payment,
		PointsEarned: payment.PointsEarned,
	}
	for _, d := range details {
		r.Items = append(r.Items, ReceiptLine{
			MenuName: d.MenuName,
			Price:    UnitPrice(d),
			Qty:      d.Qty,
			Subtotal: d.Subtotal,
			Notes:    d.Notes.String,
		})
	}
	if order.MemberID.Valid {
		m, err := s.store.GetMember(ctx, order.MemberID.Bytes)
		switch {
		case err == nil:
			r.Member = &m
		case !errors.Is(err, pgx.ErrNoRows):
			return nil, fmt.Errorf("get member: %w", err)
		}
	}
	return r, nil
}

// QRISImage renders a dynamic QRIS code for the outstanding bill of an order.
func (s *ReceiptService) QRISImage(ctx context.Context, orderID uuid.UUID) ([]byte, error) {
	order, err := s.store.GetOrder(ctx, orderID)
	if err != nil {
		return nil, notFound(err, ErrOrderNotFound)
	}
	if order.Status == database.OrderStatusCANCELLED {
		return nil, ErrOrderCancelled
	}
	if _, err := s.store.GetPaymentByOrder(ctx, order.ID); err == nil {
		return nil, ErrAlreadyPaid
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("get payment: %w", err)
	}

	png, err := qris.PNG(qris.Payment{
		MerchantName: s.merchant.Name,
		MerchantCity: s.merchant.City,
		MerchantID:   s.merchant.ID,
		BillNumber:   BillNumber(order.ID),
		Amount:       order.TotalAmount,
	}, qrisImageSize)
	if err != nil {
		if errors.Is(err, qris.ErrInvalidAmount) {
			return nil, ErrEmptyItems
		}
		return nil, fmt.Errorf("render qris: %w", err)
	}
	return png, nil
}

// BillNumber is the short order reference printed on receipts and QR bills.
func BillNumber(orderID uuid.UUID) string {
	return "ORD-" + strings.ToUpper(strings.ReplaceAll(orderID.String(), "-", "")[:12])
}

// UnitPrice is the price a line was charged at. The menu price may have
// changed since the line was added, so it is derived from the subtotal.
func UnitPrice(d database.ListOrderDetailsRow) int64 {
	if d.Qty <= 0 {
		return d.MenuPrice
	}
	return d.Subtotal / int64(d.Qty)
}
