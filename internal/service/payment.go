package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/thaicafe/pos-api/internal/database"
	"github.com/thaicafe/pos-api/internal/enum"
	"github.com/thaicafe/pos-api/internal/events"
)

// PaymentStore defines the DB methods needed to settle a bill.
// It includes the inventory methods so BOM deduction shares the settlement transaction.
type PaymentStore interface {
	InventoryStore
	GetPaymentByOrder(ctx context.Context, orderID uuid.UUID) (database.Payment, error)
	CreatePayment(ctx context.Context, arg database.CreatePaymentParams) (database.Payment, error)
	CompleteOrder(ctx context.Context, id uuid.UUID, memberID pgtype.UUID) (database.Order, error)
	UpdateTableStatus(ctx context.Context, id uuid.UUID, status database.TableStatus) (database.Table, error)
	GetMember(ctx context.Context, id uuid.UUID) (database.Member, error)
	AddMemberPoints(ctx context.Context, id uuid.UUID, points int32) (database.Member, error)
	CreateMemberPointLog(ctx context.Context, arg database.CreateMemberPointLogParams) (database.MemberPointLog, error)
	ListPaymentsByRange(ctx context.Context, start, end time.Time) ([]database.ListPaymentsByRangeRow, error)
	ListOrderDetailsByOrders(ctx context.Context, orderIDs []uuid.UUID) ([]database.ListOrderDetailsRow, error)
}

type NewPaymentStore func(db database.DBTX) PaymentStore

// SettlementGuard rejects concurrent submissions for the same order before
// they reach the database. Satisfied by *cache.SettleGuard.
type SettlementGuard interface {
	Acquire(ctx context.Context, orderID uuid.UUID) (release func(), ok bool, err error)
}

type PaymentConfig struct {
	PointsUnit          int64
	DeductStockOnSettle bool
}

type SettleRequest struct {
	OrderID         uuid.UUID
	Method          string
	MemberID        *uuid.UUID
	AmountReceived  *int64
	ReferenceNumber string
	ProcessedBy     *uuid.UUID
}

type SettleResult struct {
	Payment      database.Payment   `json:"payment"`
	Order        database.Order     `json:"order"`
	Table        database.Table     `json:"table"`
	PointsEarned int32              `json:"points_earned"`
	Member       *database.Member   `json:"member,omitempty"`
	Deductions   []AppliedDeduction `json:"deductions"`
}

type PaymentService struct {
	pool     TxBeginner
	store    PaymentStore
	newStore NewPaymentStore
	cfg      PaymentConfig
	guard    SettlementGuard
	events   events.Publisher
}

// NewPaymentService creates a PaymentService. guard may be nil.
func NewPaymentService(pool TxBeginner, store PaymentStore, newStore NewPaymentStore, cfg PaymentConfig, guard SettlementGuard, pub events.Publisher) *PaymentService {
	if cfg.PointsUnit <= 0 {
		cfg.PointsUnit = DefaultPointsUnit
	}
	return &PaymentService{
		pool:     pool,
		store:    store,
		newStore: newStore,
		cfg:      cfg,
		guard:    guard,
		events:   publisherOrNop(pub),
	}
}

// SettleOrder records the payment, completes the order, releases the table,
// credits member points and deducts stock, all in one transaction.
func (s *PaymentService) SettleOrder(ctx context.Context, req SettleRequest) (*SettleResult, error) {
	method := database.PaymentMethod(req.Method)
	switch method {
	case database.PaymentMethodCASH, database.PaymentMethodQRIS:
	default:
		return nil, ErrInvalidPaymentMethod
	}

	if s.guard != nil {
		release, ok, err := s.guard.Acquire(ctx, req.OrderID)
		switch {
		case err != nil:
			// The row lock below still serialises settlements.
			log.Printf("ERROR: settle guard for order %s: %v", req.OrderID, err)
		case !ok:
			return nil, ErrSettlementInProgress
		default:
			defer release()
		}
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	// --- Preconditions (order row locked) ---
	order, err := store.GetOrderForUpdate(ctx, req.OrderID)
	if err != nil {
		return nil, notFound(err, ErrOrderNotFound)
	}
	if order.Status == database.OrderStatusCANCELLED {
		return nil, ErrOrderCancelled
	}
	if _, err := store.GetPaymentByOrder(ctx, order.ID); err == nil {
		return nil, ErrAlreadyPaid
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("check payment: %w", err)
	}

	amountReceived := pgtype.Int8{}
	change := pgtype.Int8{}
	reference := pgtype.Text{}
	switch method {
	case database.PaymentMethodCASH:
		if req.AmountReceived != nil {
			if *req.AmountReceived < order.TotalAmount {
				return nil, ErrInsufficientCash
			}
			amountReceived = pgtype.Int8{Int64: *req.AmountReceived, Valid: true}
			change = pgtype.Int8{Int64: *req.AmountReceived - order.TotalAmount, Valid: true}
		}
	case database.PaymentMethodQRIS:
		reference = optText(req.ReferenceNumber)
	}

	memberID := order.MemberID
	if req.MemberID != nil {
		if _, err := store.GetMember(ctx, *req.MemberID); err != nil {
			return nil, notFound(err, ErrMemberNotFound)
		}
		memberID = optUUID(req.MemberID)
	}
	var points int32
	if memberID.Valid {
		points = PointsForAmount(order.TotalAmount, s.cfg.PointsUnit)
	}

	// --- Effects ---
	payment, err := store.CreatePayment(ctx, database.CreatePaymentParams{
		OrderID:         order.ID,
		Amount:          order.TotalAmount,
		Method:          method,
		AmountReceived:  amountReceived,
		ChangeAmount:    change,
		ReferenceNumber: reference,
		PointsEarned:    points,
		ProcessedBy:     optUUID(req.ProcessedBy),
	})
	if err != nil {
		if isUniqueViolation(err, "payments_order_id_key") {
			return nil, ErrAlreadyPaid
		}
		return nil, fmt.Errorf("create payment: %w", err)
	}

	completed, err := store.CompleteOrder(ctx, order.ID, memberID)
	if err != nil {
		return nil, notFound(err, ErrStatusChanged)
	}

	table, err := store.UpdateTableStatus(ctx, order.TableID, database.TableStatusCLEANING)
	if err != nil {
		return nil, fmt.Errorf("release table: %w", err)
	}

	res := &SettleResult{
		Payment:      payment,
		Order:        completed,
		Table:        table,
		PointsEarned: points,
		Deductions:   []AppliedDeduction{},
	}

	if points > 0 {
		m, err := creditPoints(ctx, store, uuid.UUID(memberID.Bytes), points,
			fmt.Sprintf("Order #%s", order.ID), pgtype.UUID{Bytes: order.ID, Valid: true})
		if err != nil {
			return nil, err
		}
		res.Member = &m
	}

	var lowStock []database.Ingredient
	if s.cfg.DeductStockOnSettle {
		ded, err := deductWithin(ctx, store, order.ID)
		switch {
		case errors.Is(err, ErrStockAlreadyDeducted):
			// Deducted manually before settlement.
		case err != nil:
			return nil, fmt.Errorf("deduct stock: %w", err)
		default:
			res.Deductions = ded.Deductions
			lowStock = ded.LowStock
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	publish(ctx, s.events, events.OrderSettled, events.SettledPayload{
		OrderID:      order.ID.String(),
		TableID:      order.TableID.String(),
		PaymentID:    payment.ID.String(),
		Method:       string(payment.Method),
		Amount:       payment.Amount,
		PointsEarned: points,
	})
	publish(ctx, s.events, events.TableStatusChanged, events.TablePayload{
		TableID: table.ID.String(), TableNo: table.TableNo, Status: string(table.Status),
	})
	publishLowStock(ctx, s.events, lowStock)

	return res, nil
}

// GetPaymentByOrder returns the payment recorded for an order.
func (s *PaymentService) GetPaymentByOrder(ctx context.Context, orderID uuid.UUID) (*database.Payment, error) {
	p, err := s.store.GetPaymentByOrder(ctx, orderID)
	if err != nil {
		return nil, notFound(err, ErrPaymentNotFound)
	}
	return &p, nil
}

// PaymentHistoryEntry is one settled bill with what was on it.
type PaymentHistoryEntry struct {
	Payment  database.Payment
	TableNo  int32
	MemberID pgtype.UUID
	Items    []database.ListOrderDetailsRow
}

// ListPayments returns the payments taken in [start, end), newest first.
func (s *PaymentService) ListPayments(ctx context.Context, start, end time.Time) ([]PaymentHistoryEntry, error) {
	if !start.Before(end) {
		return nil, ErrInvalidDateRange
	}

	rows, err := s.store.ListPaymentsByRange(ctx, start, end)
	if err != nil {
		return nil, fmt.Errorf("list payments: %w", err)
	}
	entries := make([]PaymentHistoryEntry, len(rows))
	if len(rows) == 0 {
		return entries, nil
	}

	ids := make([]uuid.UUID, len(rows))
	for i, row := range rows {
		ids[i] = row.Payment.OrderID
	}
	details, err := s.store.ListOrderDetailsByOrders(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("list order details: %w", err)
	}
	byOrder := make(map[uuid.UUID][]database.ListOrderDetailsRow, len(rows))
	for _, d := range details {
		byOrder[d.OrderID] = append(byOrder[d.OrderID], d)
	}

	for i, row := range rows {
		items := byOrder[row.Payment.OrderID]
		if items == nil {
			items = []database.ListOrderDetailsRow{}
		}
		entries[i] = PaymentHistoryEntry{
			Payment:  row.Payment,
			TableNo:  row.TableNo,
			MemberID: row.MemberID,
			Items:    items,
		}
	}
	return entries, nil
}

// IsPaymentMethod reports whether s is an accepted payment method.
func IsPaymentMethod(s string) bool {
	return s == enum.PaymentMethodCash || s == enum.PaymentMethodQRIS
}
