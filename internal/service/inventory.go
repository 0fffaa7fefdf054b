package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
	"github.com/thaicafe/pos-api/internal/database"
	"github.com/thaicafe/pos-api/internal/enum"
	"github.com/thaicafe/pos-api/internal/events"
)

const recentStockLogs = 10

// InventoryStore defines the DB methods needed for stock movements.
// Satisfied by *database.Queries; narrow interface for testability.
type InventoryStore interface {
	GetOrderForUpdate(ctx context.Context, id uuid.UUID) (database.Order, error)
	ListOrderDetails(ctx context.Context, orderID uuid.UUID) ([]database.ListOrderDetailsRow, error)
	ListRecipesForMenus(ctx context.Context, menuIDs []uuid.UUID) ([]database.Recipe, error)
	CountStockOutLogsByOrder(ctx context.Context, orderID pgtype.UUID) (int64, error)
	CreateIngredient(ctx context.Context, arg database.CreateIngredientParams) (database.Ingredient, error)
	GetIngredient(ctx context.Context, id uuid.UUID) (database.Ingredient, error)
	ListIngredients(ctx context.Context) ([]database.Ingredient, error)
	AdjustIngredientStock(ctx context.Context, id uuid.UUID, delta pgtype.Numeric) (database.Ingredient, error)
	ListLowStockIngredients(ctx context.Context) ([]database.Ingredient, error)
	CreateStockLog(ctx context.Context, arg database.CreateStockLogParams) (database.StockLog, error)
	ListStockLogs(ctx context.Context, arg database.ListStockLogsParams) ([]database.StockLog, error)
}

type NewInventoryStore func(db database.DBTX) InventoryStore

// StockDeduction is the merged demand for one ingredient.
type StockDeduction struct {
	IngredientID uuid.UUID       `json:"ingredient_id"`
	Qty          decimal.Decimal `json:"qty"`
}

// AppliedDeduction is a deduction after it hit the ingredient row.
type AppliedDeduction struct {
	IngredientID uuid.UUID       `json:"ingredient_id"`
	Name         string          `json:"name"`
	Unit         string          `json:"unit"`
	Qty          decimal.Decimal `json:"qty"`
	StockAfter   decimal.Decimal `json:"stock_after"`
	LogID        uuid.UUID       `json:"log_id"`
}

// DeductionResult lists what one BOM pass took and which ingredients ended at or below minimum.
type DeductionResult struct {
	Deductions []AppliedDeduction    `json:"deductions"`
	LowStock   []database.Ingredient `json:"-"`
}

type StockLogRequest struct {
	IngredientID uuid.UUID
	Type         string
	Qty          decimal.Decimal
	Notes        string
}

type StockLogResult struct {
	Log        database.StockLog
	Ingredient database.Ingredient
}

type CreateIngredientRequest struct {
	Name         string
	Unit         string
	MinStock     decimal.Decimal
	CostPerUnit  int64
	InitialStock decimal.Decimal
}

type IngredientDetail struct {
	Ingredient database.Ingredient
	RecentLogs []database.StockLog
}

// InventoryService handles BOM explosion and stock logs.
// Stock only changes through logged movements.
type InventoryService struct {
	pool     TxBeginner
	store    InventoryStore
	newStore NewInventoryStore
	events   events.Publisher
	now      func() time.Time
}

func NewInventoryService(pool TxBeginner, store InventoryStore, newStore NewInventoryStore, pub events.Publisher) *InventoryService {
	return &InventoryService{
		pool:     pool,
		store:    store,
		newStore: newStore,
		events:   publisherOrNop(pub),
		now:      time.Now,
	}
}

// computeDeductions explodes order lines through their recipes. Demand for the
// same ingredient is merged across lines, keeping first-seen order.
func computeDeductions(details []database.ListOrderDetailsRow, recipes []database.Recipe) []StockDeduction {
	byMenu := make(map[uuid.UUID][]database.Recipe)
	for _, r := range recipes {
		byMenu[r.MenuID] = append(byMenu[r.MenuID], r)
	}

	index := make(map[uuid.UUID]int)
	var out []StockDeduction
	for _, d := range details {
		qty := decimal.NewFromInt32(d.Qty)
		for _, r := range byMenu[d.MenuID] {
			required := database.NumericToDecimal(r.QtyNeeded).Mul(qty)
			if i, ok := index[r.IngredientID]; ok {
				out[i].Qty = out[i].Qty.Add(required)
				continue
			}
			index[r.IngredientID] = len(out)
			out = append(out, StockDeduction{IngredientID: r.IngredientID, Qty: required})
		}
	}
	return out
}

// DeductStockForOrder runs one BOM pass for an order in its own transaction.
func (s *InventoryService) DeductStockForOrder(ctx context.Context, orderID uuid.UUID) (*DeductionResult, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	order, err := store.GetOrderForUpdate(ctx, orderID)
	if err != nil {
		return nil, notFound(err, ErrOrderNotFound)
	}
	if order.Status == database.OrderStatusCANCELLED {
		return nil, ErrOrderCancelled
	}

	res, err := deductWithin(ctx, store, order.ID)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	s.publishLowStock(ctx, res.LowStock)
	return res, nil
}

// deductWithin applies the BOM pass using the caller's transaction.
// Stock may go negative; low stock is reported, never refused.
func deductWithin(ctx context.Context, store InventoryStore, orderID uuid.UUID) (*DeductionResult, error) {
	pgOrderID := pgtype.UUID{Bytes: orderID, Valid: true}

	n, err := store.CountStockOutLogsByOrder(ctx, pgOrderID)
	if err != nil {
		return nil, fmt.Errorf("count stock logs: %w", err)
	}
	if n > 0 {
		return nil, ErrStockAlreadyDeducted
	}

	details, err := store.ListOrderDetails(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("list order details: %w", err)
	}
	seen := make(map[uuid.UUID]bool)
	var menuIDs []uuid.UUID
	for _, d := range details {
		if !seen[d.MenuID] {
			seen[d.MenuID] = true
			menuIDs = append(menuIDs, d.MenuID)
		}
	}
	res := &DeductionResult{Deductions: []AppliedDeduction{}}
	if len(menuIDs) == 0 {
		return res, nil
	}

	recipes, err := store.ListRecipesForMenus(ctx, menuIDs)
	if err != nil {
		return nil, fmt.Errorf("list recipes: %w", err)
	}

	notes := optText("Order #" + orderID.String())
	for _, d := range computeDeductions(details, recipes) {
		if !d.Qty.IsPositive() {
			continue
		}
		ing, err := store.AdjustIngredientStock(ctx, d.IngredientID, database.DecimalToNumeric(d.Qty.Neg()))
		if err != nil {
			return nil, fmt.Errorf("ingredient %s: %w", d.IngredientID, notFound(err, ErrIngredientNotFound))
		}
		log, err := store.CreateStockLog(ctx, database.CreateStockLogParams{
			IngredientID: d.IngredientID,
			Type:         database.StockLogTypeOUT,
			Qty:          database.DecimalToNumeric(d.Qty),
			Notes:        notes,
			OrderID:      pgOrderID,
		})
		if err != nil {
			return nil, fmt.Errorf("create stock log: %w", err)
		}
		stockAfter := database.NumericToDecimal(ing.CurrentStock)
		res.Deductions = append(res.Deductions, AppliedDeduction{
			IngredientID: ing.ID,
			Name:         ing.Name,
			Unit:         ing.Unit,
			Qty:          d.Qty,
			StockAfter:   stockAfter,
			LogID:        log.ID,
		})
		if isLow(ing) {
			res.LowStock = append(res.LowStock, ing)
		}
	}
	return res, nil
}

// AddStockLog records a manual IN or OUT movement and applies it atomically.
func (s *InventoryService) AddStockLog(ctx context.Context, req StockLogRequest) (*StockLogResult, error) {
	var delta decimal.Decimal
	switch req.Type {
	case enum.StockLogIn:
		delta = req.Qty
	case enum.StockLogOut:
		delta = req.Qty.Neg()
	default:
		return nil, ErrInvalidStockType
	}
	if !req.Qty.IsPositive() {
		return nil, ErrInvalidQuantity
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	ing, err := store.AdjustIngredientStock(ctx, req.IngredientID, database.DecimalToNumeric(delta))
	if err != nil {
		return nil, notFound(err, ErrIngredientNotFound)
	}
	log, err := store.CreateStockLog(ctx, database.CreateStockLogParams{
		IngredientID: req.IngredientID,
		Type:         database.StockLogType(req.Type),
		Qty:          database.DecimalToNumeric(req.Qty),
		Notes:        optText(req.Notes),
	})
	if err != nil {
		return nil, fmt.Errorf("create stock log: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	if req.Type == enum.StockLogOut && isLow(ing) {
		s.publishLowStock(ctx, []database.Ingredient{ing})
	}
	return &StockLogResult{Log: log, Ingredient: ing}, nil
}

// CreateIngredient creates an ingredient at zero stock and books any opening
// stock as an IN movement in the same transaction.
func (s *InventoryService) CreateIngredient(ctx context.Context, req CreateIngredientRequest) (*database.Ingredient, error) {
	if req.InitialStock.IsNegative() || req.MinStock.IsNegative() {
		return nil, ErrInvalidQuantity
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	ing, err := store.CreateIngredient(ctx, database.CreateIngredientParams{
		Name:        req.Name,
		Unit:        req.Unit,
		MinStock:    database.DecimalToNumeric(req.MinStock),
		CostPerUnit: req.CostPerUnit,
	})
	if err != nil {
		if isUniqueViolation(err, "") {
			return nil, ErrDuplicate
		}
		return nil, fmt.Errorf("create ingredient: %w", err)
	}

	if req.InitialStock.IsPositive() {
		ing, err = store.AdjustIngredientStock(ctx, ing.ID, database.DecimalToNumeric(req.InitialStock))
		if err != nil {
			return nil, fmt.Errorf("set initial stock: %w", err)
		}
		if _, err := store.CreateStockLog(ctx, database.CreateStockLogParams{
			IngredientID: ing.ID,
			Type:         database.StockLogTypeIN,
			Qty:          database.DecimalToNumeric(req.InitialStock),
			Notes:        optText("Initial stock"),
		}); err != nil {
			return nil, fmt.Errorf("create stock log: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}
	return &ing, nil
}

// GetIngredient returns an ingredient with its latest movements.
func (s *InventoryService) GetIngredient(ctx context.Context, id uuid.UUID) (*IngredientDetail, error) {
	ing, err := s.store.GetIngredient(ctx, id)
	if err != nil {
		return nil, notFound(err, ErrIngredientNotFound)
	}
	logs, err := s.store.ListStockLogs(ctx, database.ListStockLogsParams{
		IngredientID: pgtype.UUID{Bytes: id, Valid: true},
		Limit:        recentStockLogs,
	})
	if err != nil {
		return nil, fmt.Errorf("list stock logs: %w", err)
	}
	return &IngredientDetail{Ingredient: ing, RecentLogs: logs}, nil
}

// ListStockLogs returns movements newest first, optionally for one ingredient.
func (s *InventoryService) ListStockLogs(ctx context.Context, ingredientID *uuid.UUID, limit, offset int32) ([]database.StockLog, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	if offset < 0 {
		offset = 0
	}
	return s.store.ListStockLogs(ctx, database.ListStockLogsParams{
		IngredientID: optUUID(ingredientID),
		Limit:        limit,
		Offset:       offset,
	})
}

// LowStock returns ingredients at or below their minimum, lowest first.
func (s *InventoryService) LowStock(ctx context.Context) ([]database.Ingredient, error) {
	return s.store.ListLowStockIngredients(ctx)
}

func (s *InventoryService) publishLowStock(ctx context.Context, ings []database.Ingredient) {
	publishLowStock(ctx, s.events, ings)
}

func publishLowStock(ctx context.Context, pub events.Publisher, ings []database.Ingredient) {
	for _, ing := range ings {
		publish(ctx, pub, events.StockLow, events.StockLowPayload{
			IngredientID: ing.ID.String(),
			Name:         ing.Name,
			Unit:         ing.Unit,
			CurrentStock: database.NumericToDecimal(ing.CurrentStock).String(),
			MinStock:     database.NumericToDecimal(ing.MinStock).String(),
		})
	}
}

func isLow(ing database.Ingredient) bool {
	return database.NumericToDecimal(ing.CurrentStock).LessThanOrEqual(database.NumericToDecimal(ing.MinStock))
}
