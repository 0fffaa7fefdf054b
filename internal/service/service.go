package service

import (
	"context"
	"errors"
	"log"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/thaicafe/pos-api/internal/events"
	"github.com/thaicafe/pos-api/internal/restock"
)

// Not found.
var (
	ErrOrderNotFound      = errors.New("order not found")
	ErrOrderItemNotFound  = errors.New("order item not found")
	ErrMenuNotFound       = errors.New("menu not found")
	ErrIngredientNotFound = errors.New("ingredient not found")
	ErrMemberNotFound     = errors.New("member not found")
	ErrTableNotFound      = errors.New("table not found")
	ErrPaymentNotFound    = errors.New("payment not found")
)

// Conflicts with current state.
var (
	ErrAlreadyPaid          = errors.New("order already paid")
	ErrInsufficientPoints   = errors.New("insufficient points")
	ErrTableHasActiveOrder  = errors.New("table already has an active order")
	ErrInvalidTransition    = errors.New("invalid status transition")
	ErrStatusChanged        = errors.New("order status changed concurrently")
	ErrOrderNotEditable     = errors.New("order can no longer be edited")
	ErrOrderCancelled       = errors.New("order is cancelled")
	ErrOrderNotPaid         = errors.New("order has no payment")
	ErrSettlementInProgress = errors.New("settlement already in progress")
	ErrStockAlreadyDeducted = errors.New("stock already deducted for order")
	ErrDuplicate            = errors.New("already exists")
	ErrInUse                = errors.New("still referenced by other records")
)

// Validation.
var (
	ErrEmptyItems           = errors.New("items are required")
	ErrInvalidQuantity      = errors.New("quantity must be > 0")
	ErrInvalidStatus        = errors.New("invalid status")
	ErrInvalidPaymentMethod = errors.New("payment method must be CASH or QRIS")
	ErrInvalidStockType     = errors.New("stock log type must be IN or OUT")
	ErrMenuUnavailable      = errors.New("menu is not available")
	ErrInsufficientCash     = errors.New("amount received is less than total")
	ErrLastItem             = errors.New("cannot remove the last item; cancel the order instead")
	ErrInvalidPoints        = errors.New("points must be > 0")
	ErrInvalidDateRange     = errors.New("end must be after start")
	ErrInvalidGranularity   = errors.New("granularity must be day or month")
)

// IsNotFound reports whether err belongs to the not-found class.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrOrderNotFound) ||
		errors.Is(err, ErrOrderItemNotFound) ||
		errors.Is(err, ErrMenuNotFound) ||
		errors.Is(err, ErrIngredientNotFound) ||
		errors.Is(err, ErrMemberNotFound) ||
		errors.Is(err, ErrTableNotFound) ||
		errors.Is(err, ErrPaymentNotFound)
}

// IsConflict reports whether err belongs to the conflict class.
func IsConflict(err error) bool {
	return errors.Is(err, ErrAlreadyPaid) ||
		errors.Is(err, ErrInsufficientPoints) ||
		errors.Is(err, ErrTableHasActiveOrder) ||
		errors.Is(err, ErrInvalidTransition) ||
		errors.Is(err, ErrStatusChanged) ||
		errors.Is(err, ErrOrderNotEditable) ||
		errors.Is(err, ErrOrderCancelled) ||
		errors.Is(err, ErrOrderNotPaid) ||
		errors.Is(err, ErrSettlementInProgress) ||
		errors.Is(err, ErrStockAlreadyDeducted) ||
		errors.Is(err, ErrDuplicate) ||
		errors.Is(err, ErrInUse)
}

// IsValidation reports whether err belongs to the validation class.
func IsValidation(err error) bool {
	return errors.Is(err, ErrEmptyItems) ||
		errors.Is(err, ErrInvalidQuantity) ||
		errors.Is(err, ErrInvalidStatus) ||
		errors.Is(err, ErrInvalidPaymentMethod) ||
		errors.Is(err, ErrInvalidStockType) ||
		errors.Is(err, ErrMenuUnavailable) ||
		errors.Is(err, ErrInsufficientCash) ||
		errors.Is(err, ErrLastItem) ||
		errors.Is(err, ErrInvalidPoints) ||
		errors.Is(err, ErrInvalidDateRange) ||
		errors.Is(err, ErrInvalidGranularity) ||
		errors.Is(err, restock.ErrEmptyNote)
}

// TxBeginner starts a new database transaction.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// --- Helpers ---

// notFound maps pgx.ErrNoRows to sentinel and passes other errors through.
func notFound(err, sentinel error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return sentinel
	}
	return err
}

// isUniqueViolation reports a 23505 error, optionally on a specific constraint.
func isUniqueViolation(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != "23505" {
		return false
	}
	return constraint == "" || pgErr.ConstraintName == constraint
}

// isForeignKeyViolation reports a 23503 error.
func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23503"
}

func optUUID(id *uuid.UUID) pgtype.UUID {
	if id == nil || *id == uuid.Nil {
		return pgtype.UUID{}
	}
	return pgtype.UUID{Bytes: *id, Valid: true}
}

func optText(s string) pgtype.Text {
	if s == "" {
		return pgtype.Text{}
	}
	return pgtype.Text{String: s, Valid: true}
}

func publisherOrNop(p events.Publisher) events.Publisher {
	if p == nil {
		return events.Nop{}
	}
	return p
}

// publish is fire-and-forget; a failed sink is logged and never fails the caller.
func publish(ctx context.Context, p events.Publisher, eventType string, payload interface{}) {
	e, err := events.New(eventType, payload)
	if err != nil {
		log.Printf("ERROR: build %s event: %v", eventType, err)
		return
	}
	if err := p.Publish(ctx, e); err != nil {
		log.Printf("ERROR: publish %s: %v", eventType, err)
	}
}
