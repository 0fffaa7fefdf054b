package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/thaicafe/pos-api/internal/database"
	"github.com/thaicafe/pos-api/internal/events"
)

// TableStore defines the DB methods needed for floor management.
// Satisfied by *database.Queries; narrow interface for testability.
type TableStore interface {
	CreateTable(ctx context.Context, arg database.CreateTableParams) (database.Table, error)
	GetTable(ctx context.Context, id uuid.UUID) (database.Table, error)
	GetTableForUpdate(ctx context.Context, id uuid.UUID) (database.Table, error)
	ListTables(ctx context.Context) ([]database.Table, error)
	UpdateTable(ctx context.Context, arg database.UpdateTableParams) (database.Table, error)
	UpdateTableStatus(ctx context.Context, id uuid.UUID, status database.TableStatus) (database.Table, error)
	DeleteTable(ctx context.Context, id uuid.UUID) (int64, error)
	GetActiveOrderByTable(ctx context.Context, tableID uuid.UUID) (database.Order, error)
	ListOrders(ctx context.Context, arg database.ListOrdersParams) ([]database.Order, error)
}

type NewTableStore func(db database.DBTX) TableStore

// TableView is a table with the order currently open on it, if any.
type TableView struct {
	database.Table
	ActiveOrder *database.Order `json:"active_order"`
}

type TableRequest struct {
	TableNo  int32
	Capacity int32
	Zone     string
}

type TableService struct {
	pool     TxBeginner
	store    TableStore
	newStore NewTableStore
	events   events.Publisher
}

func NewTableService(pool TxBeginner, store TableStore, newStore NewTableStore, pub events.Publisher) *TableService {
	return &TableService{
		pool:     pool,
		store:    store,
		newStore: newStore,
		events:   publisherOrNop(pub),
	}
}

var activeStatuses = []string{
	string(database.OrderStatusPENDING),
	string(database.OrderStatusPREPARING),
	string(database.OrderStatusREADY),
	string(database.OrderStatusSERVED),
}

func (s *TableService) Create(ctx context.Context, req TableRequest) (*database.Table, error) {
	if req.TableNo <= 0 || req.Capacity <= 0 {
		return nil, ErrInvalidQuantity
	}
	t, err := s.store.CreateTable(ctx, database.CreateTableParams{
		TableNo:  req.TableNo,
		Capacity: req.Capacity,
		Zone:     optText(req.Zone),
	})
	if err != nil {
		if isUniqueViolation(err, "") {
			return nil, ErrDuplicate
		}
		return nil, fmt.Errorf("create table: %w", err)
	}
	return &t, nil
}

func (s *TableService) Get(ctx context.Context, id uuid.UUID) (*TableView, error) {
	t, err := s.store.GetTable(ctx, id)
	if err != nil {
		return nil, notFound(err, ErrTableNotFound)
	}
	view := &TableView{Table: t}
	o, err := s.store.GetActiveOrderByTable(ctx, id)
	switch {
	case err == nil:
		view.ActiveOrder = &o
	case !errors.Is(err, pgx.ErrNoRows):
		return nil, fmt.Errorf("get active order: %w", err)
	}
	return view, nil
}

// List returns every table by number with its active order attached.
func (s *TableService) List(ctx context.Context) ([]TableView, error) {
	tables, err := s.store.ListTables(ctx)
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}
	active, err := s.store.ListOrders(ctx, database.ListOrdersParams{
		Statuses: activeStatuses,
		Limit:    int32(len(tables)) + 1,
	})
	if err != nil {
		return nil, fmt.Errorf("list active orders: %w", err)
	}
	byTable := make(map[uuid.UUID]database.Order, len(active))
	for _, o := range active {
		byTable[o.TableID] = o
	}

	views := make([]TableView, 0, len(tables))
	for _, t := range tables {
		v := TableView{Table: t}
		if o, ok := byTable[t.ID]; ok {
			v.ActiveOrder = &o
		}
		views = append(views, v)
	}
	return views, nil
}

func (s *TableService) Update(ctx context.Context, id uuid.UUID, req TableRequest) (*database.Table, error) {
	if req.TableNo <= 0 || req.Capacity <= 0 {
		return nil, ErrInvalidQuantity
	}
	t, err := s.store.UpdateTable(ctx, database.UpdateTableParams{
		ID:       id,
		TableNo:  req.TableNo,
		Capacity: req.Capacity,
		Zone:     optText(req.Zone),
	})
	if err != nil {
		if isUniqueViolation(err, "") {
			return nil, ErrDuplicate
		}
		return nil, notFound(err, ErrTableNotFound)
	}
	return &t, nil
}

// UpdateStatus sets the floor status. A table holding an active order cannot be freed.
func (s *TableService) UpdateStatus(ctx context.Context, id uuid.UUID, status string) (*database.Table, error) {
	st := database.TableStatus(status)
	switch st {
	case database.TableStatusAVAILABLE, database.TableStatusOCCUPIED,
		database.TableStatusRESERVED, database.TableStatusCLEANING:
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)
	if _, err := store.GetTableForUpdate(ctx, id); err != nil {
		return nil, notFound(err, ErrTableNotFound)
	}
	if st == database.TableStatusAVAILABLE {
		if err := ensureNoActiveOrder(ctx, store, id); err != nil {
			return nil, err
		}
	}
	t, err := store.UpdateTableStatus(ctx, id, st)
	if err != nil {
		return nil, fmt.Errorf("update table status: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	publish(ctx, s.events, events.TableStatusChanged, events.TablePayload{
		TableID: t.ID.String(), TableNo: t.TableNo, Status: string(t.Status),
	})
	return &t, nil
}

func (s *TableService) Delete(ctx context.Context, id uuid.UUID) error {
	if err := ensureNoActiveOrder(ctx, s.store, id); err != nil {
		return err
	}
	n, err := s.store.DeleteTable(ctx, id)
	if err != nil {
		if isForeignKeyViolation(err) {
			return ErrInUse
		}
		return fmt.Errorf("delete table: %w", err)
	}
	if n == 0 {
		return ErrTableNotFound
	}
	return nil
}

func ensureNoActiveOrder(ctx context.Context, store interface {
	GetActiveOrderByTable(ctx context.Context, tableID uuid.UUID) (database.Order, error)
}, tableID uuid.UUID) error {
	_, err := store.GetActiveOrderByTable(ctx, tableID)
	switch {
	case err == nil:
		return ErrTableHasActiveOrder
	case errors.Is(err, pgx.ErrNoRows):
		return nil
	default:
		return fmt.Errorf("get active order: %w", err)
	}
}

