package service

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
	"github.com/thaicafe/pos-api/internal/database"
)

// --- Mock transaction ---

// mockTx implements pgx.Tx with only the methods we need.
// The unused methods panic so we catch accidental calls.
type mockTx struct {
	onCommit   func() error
	onRollback func()
	done       bool
}

func (m *mockTx) Begin(ctx context.Context) (pgx.Tx, error) { panic("not implemented") }
func (m *mockTx) Commit(ctx context.Context) error {
	if m.done {
		return pgx.ErrTxClosed
	}
	m.done = true
	if m.onCommit != nil {
		return m.onCommit()
	}
	return nil
}
func (m *mockTx) Rollback(ctx context.Context) error {
	if m.done {
		return pgx.ErrTxClosed
	}
	m.done = true
	if m.onRollback != nil {
		m.onRollback()
	}
	return nil
}
func (m *mockTx) CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error) {
	panic("not implemented")
}
func (m *mockTx) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults {
	panic("not implemented")
}
func (m *mockTx) LargeObjects() pgx.LargeObjects { panic("not implemented") }
func (m *mockTx) Prepare(ctx context.Context, name, sql string) (*pgconn.StatementDescription, error) {
	panic("not implemented")
}
func (m *mockTx) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	panic("not implemented")
}
func (m *mockTx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	panic("not implemented")
}
func (m *mockTx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	panic("not implemented")
}
func (m *mockTx) Conn() *pgx.Conn { panic("not implemented") }

// mockTxBeginner implements TxBeginner on top of a memStore. Transactions are
// serialised (standing in for row locks) and roll back to a snapshot.
type mockTxBeginner struct {
	store     *memStore
	err       error
	commitErr error
	begun     int
}

func (m *mockTxBeginner) Begin(ctx context.Context) (pgx.Tx, error) {
	if m.err != nil {
		return nil, m.err
	}
	m.store.txMu.Lock()
	m.store.mu.Lock()
	m.begun++
	snap := m.store.state.clone()
	m.store.mu.Unlock()

	return &mockTx{
		onCommit: func() error {
			defer m.store.txMu.Unlock()
			if m.commitErr != nil {
				m.store.mu.Lock()
				m.store.state = snap
				m.store.mu.Unlock()
				return m.commitErr
			}
			return nil
		},
		onRollback: func() {
			m.store.mu.Lock()
			m.store.state = snap
			m.store.mu.Unlock()
			m.store.txMu.Unlock()
		},
	}, nil
}

// --- In-memory store ---

type memState struct {
	tables      map[uuid.UUID]database.Table
	menus       map[uuid.UUID]database.Menu
	members     map[uuid.UUID]database.Member
	pointLogs   []database.MemberPointLog
	orders      map[uuid.UUID]database.Order
	orderSeq    []uuid.UUID
	details     map[uuid.UUID]database.OrderDetail
	detailSeq   []uuid.UUID
	payments    map[uuid.UUID]database.Payment // keyed by order id
	ingredients map[uuid.UUID]database.Ingredient
	recipes     []database.Recipe
	stockLogs   []database.StockLog
}

func (s memState) clone() memState {
	c := memState{
		tables:      make(map[uuid.UUID]database.Table, len(s.tables)),
		menus:       make(map[uuid.UUID]database.Menu, len(s.menus)),
		members:     make(map[uuid.UUID]database.Member, len(s.members)),
		pointLogs:   append([]database.MemberPointLog(nil), s.pointLogs...),
		orders:      make(map[uuid.UUID]database.Order, len(s.orders)),
		orderSeq:    append([]uuid.UUID(nil), s.orderSeq...),
		details:     make(map[uuid.UUID]database.OrderDetail, len(s.details)),
		detailSeq:   append([]uuid.UUID(nil), s.detailSeq...),
		payments:    make(map[uuid.UUID]database.Payment, len(s.payments)),
		ingredients: make(map[uuid.UUID]database.Ingredient, len(s.ingredients)),
		recipes:     append([]database.Recipe(nil), s.recipes...),
		stockLogs:   append([]database.StockLog(nil), s.stockLogs...),
	}
	for k, v := range s.tables {
		c.tables[k] = v
	}
	for k, v := range s.menus {
		c.menus[k] = v
	}
	for k, v := range s.members {
		c.members[k] = v
	}
	for k, v := range s.orders {
		c.orders[k] = v
	}
	for k, v := range s.details {
		c.details[k] = v
	}
	for k, v := range s.payments {
		c.payments[k] = v
	}
	for k, v := range s.ingredients {
		c.ingredients[k] = v
	}
	return c
}

// memStore satisfies every store interface in this package with plain maps.
// It mirrors the SQL semantics the services rely on: compare-and-set status
// updates, atomic increments and the unique indexes.
type memStore struct {
	txMu  sync.Mutex
	mu    sync.Mutex
	state memState
	clock time.Time
}

func newMemStore() *memStore {
	return &memStore{
		state: memState{}.clone(),
		clock: time.Now(),
	}
}

// tick returns a strictly increasing timestamp. Caller holds mu.
func (m *memStore) tick() time.Time {
	m.clock = m.clock.Add(time.Millisecond)
	return m.clock
}

func uniqueViolation(constraint string) error {
	return &pgconn.PgError{Code: "23505", ConstraintName: constraint}
}

func fkViolation(constraint string) error {
	return &pgconn.PgError{Code: "23503", ConstraintName: constraint}
}

func activeStatus(s database.OrderStatus) bool {
	switch s {
	case database.OrderStatusPENDING, database.OrderStatusPREPARING,
		database.OrderStatusREADY, database.OrderStatusSERVED:
		return true
	}
	return false
}

// --- Seeding helpers ---

func (m *memStore) addTable(no int32) database.Table {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.tick()
	t := database.Table{ID: uuid.New(), TableNo: no, Capacity: 4, Status: database.TableStatusAVAILABLE, CreatedAt: now, UpdatedAt: now}
	m.state.tables[t.ID] = t
	return t
}

func (m *memStore) addMenu(name string, price int64, available bool) database.Menu {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.tick()
	mn := database.Menu{ID: uuid.New(), CategoryID: uuid.New(), Name: name, Price: price, IsAvailable: available, CreatedAt: now, UpdatedAt: now}
	m.state.menus[mn.ID] = mn
	return mn
}

func (m *memStore) setMenuPrice(id uuid.UUID, price int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	mn := m.state.menus[id]
	mn.Price = price
	m.state.menus[id] = mn
}

func (m *memStore) addIngredient(name, unit, stock, min string) database.Ingredient {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.tick()
	ing := database.Ingredient{
		ID:           uuid.New(),
		Name:         name,
		Unit:         unit,
		CurrentStock: database.DecimalToNumeric(decimal.RequireFromString(stock)),
		MinStock:     database.DecimalToNumeric(decimal.RequireFromString(min)),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	m.state.ingredients[ing.ID] = ing
	return ing
}

func (m *memStore) addRecipe(menuID, ingredientID uuid.UUID, qty, unit string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state.recipes = append(m.state.recipes, database.Recipe{
		MenuID:       menuID,
		IngredientID: ingredientID,
		QtyNeeded:    database.DecimalToNumeric(decimal.RequireFromString(qty)),
		Unit:         unit,
	})
}

func (m *memStore) addMember(name, phone string, points int32) database.Member {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.tick()
	mb := database.Member{ID: uuid.New(), Name: name, Phone: phone, Points: points, CreatedAt: now, UpdatedAt: now}
	m.state.members[mb.ID] = mb
	return mb
}

// --- Inspection helpers ---

func (m *memStore) order(id uuid.UUID) database.Order {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.orders[id]
}

func (m *memStore) table(id uuid.UUID) database.Table {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.tables[id]
}

func (m *memStore) ingredient(id uuid.UUID) database.Ingredient {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.ingredients[id]
}

func (m *memStore) member(id uuid.UUID) database.Member {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.members[id]
}

func (m *memStore) paymentCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.state.payments)
}

func (m *memStore) logsFor(ingredientID uuid.UUID) []database.StockLog {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []database.StockLog
	for _, l := range m.state.stockLogs {
		if l.IngredientID == ingredientID {
			out = append(out, l)
		}
	}
	return out
}

func (m *memStore) detailSum(orderID uuid.UUID) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	var sum int64
	for _, d := range m.state.details {
		if d.OrderID == orderID {
			sum += d.Subtotal
		}
	}
	return sum
}

// --- Tables ---

func (m *memStore) CreateTable(ctx context.Context, arg database.CreateTableParams) (database.Table, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.state.tables {
		if t.TableNo == arg.TableNo {
			return database.Table{}, uniqueViolation("dining_tables_table_no_key")
		}
	}
	now := m.tick()
	t := database.Table{ID: uuid.New(), TableNo: arg.TableNo, Capacity: arg.Capacity, Zone: arg.Zone, Status: database.TableStatusAVAILABLE, CreatedAt: now, UpdatedAt: now}
	m.state.tables[t.ID] = t
	return t, nil
}

func (m *memStore) GetTable(ctx context.Context, id uuid.UUID) (database.Table, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.state.tables[id]
	if !ok {
		return database.Table{}, pgx.ErrNoRows
	}
	return t, nil
}

func (m *memStore) GetTableForUpdate(ctx context.Context, id uuid.UUID) (database.Table, error) {
	return m.GetTable(ctx, id)
}

func (m *memStore) ListTables(ctx context.Context) ([]database.Table, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]database.Table, 0, len(m.state.tables))
	for _, t := range m.state.tables {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TableNo < out[j].TableNo })
	return out, nil
}

func (m *memStore) UpdateTable(ctx context.Context, arg database.UpdateTableParams) (database.Table, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.state.tables[arg.ID]
	if !ok {
		return database.Table{}, pgx.ErrNoRows
	}
	for _, other := range m.state.tables {
		if other.ID != arg.ID && other.TableNo == arg.TableNo {
			return database.Table{}, uniqueViolation("dining_tables_table_no_key")
		}
	}
	t.TableNo, t.Capacity, t.Zone, t.UpdatedAt = arg.TableNo, arg.Capacity, arg.Zone, m.tick()
	m.state.tables[t.ID] = t
	return t, nil
}

func (m *memStore) UpdateTableStatus(ctx context.Context, id uuid.UUID, status database.TableStatus) (database.Table, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.state.tables[id]
	if !ok {
		return database.Table{}, pgx.ErrNoRows
	}
	t.Status, t.UpdatedAt = status, m.tick()
	m.state.tables[id] = t
	return t, nil
}

func (m *memStore) DeleteTable(ctx context.Context, id uuid.UUID) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.state.tables[id]; !ok {
		return 0, nil
	}
	for _, o := range m.state.orders {
		if o.TableID == id {
			return 0, fkViolation("orders_table_id_fkey")
		}
	}
	delete(m.state.tables, id)
	return 1, nil
}

func (m *memStore) CountTablesByStatus(ctx context.Context) ([]database.CountTablesByStatusRow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	counts := map[database.TableStatus]int64{}
	for _, t := range m.state.tables {
		counts[t.Status]++
	}
	out := []database.CountTablesByStatusRow{}
	for st, n := range counts {
		out = append(out, database.CountTablesByStatusRow{Status: st, Count: n})
	}
	return out, nil
}

// --- Menus ---

func (m *memStore) GetMenusByIDs(ctx context.Context, ids []uuid.UUID) ([]database.Menu, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []database.Menu{}
	for _, id := range ids {
		if mn, ok := m.state.menus[id]; ok {
			out = append(out, mn)
		}
	}
	return out, nil
}

// --- Members ---

func (m *memStore) CreateMember(ctx context.Context, name, phone string) (database.Member, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, mb := range m.state.members {
		if mb.Phone == phone {
			return database.Member{}, uniqueViolation("members_phone_key")
		}
	}
	now := m.tick()
	mb := database.Member{ID: uuid.New(), Name: name, Phone: phone, CreatedAt: now, UpdatedAt: now}
	m.state.members[mb.ID] = mb
	return mb, nil
}

func (m *memStore) GetMember(ctx context.Context, id uuid.UUID) (database.Member, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	mb, ok := m.state.members[id]
	if !ok {
		return database.Member{}, pgx.ErrNoRows
	}
	return mb, nil
}

func (m *memStore) GetMemberByPhone(ctx context.Context, phone string) (database.Member, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, mb := range m.state.members {
		if mb.Phone == phone {
			return mb, nil
		}
	}
	return database.Member{}, pgx.ErrNoRows
}

func (m *memStore) ListMembers(ctx context.Context, arg database.ListMembersParams) ([]database.Member, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []database.Member{}
	for _, mb := range m.state.members {
		if arg.Search.Valid &&
			!strings.Contains(strings.ToLower(mb.Name), strings.ToLower(arg.Search.String)) &&
			!strings.Contains(mb.Phone, arg.Search.String) {
			continue
		}
		out = append(out, mb)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return page(out, arg.Limit, arg.Offset), nil
}

func (m *memStore) UpdateMember(ctx context.Context, id uuid.UUID, name, phone string) (database.Member, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	mb, ok := m.state.members[id]
	if !ok {
		return database.Member{}, pgx.ErrNoRows
	}
	for _, other := range m.state.members {
		if other.ID != id && other.Phone == phone {
			return database.Member{}, uniqueViolation("members_phone_key")
		}
	}
	mb.Name, mb.Phone, mb.UpdatedAt = name, phone, m.tick()
	m.state.members[id] = mb
	return mb, nil
}

func (m *memStore) DeleteMember(ctx context.Context, id uuid.UUID) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.state.members[id]; !ok {
		return 0, nil
	}
	delete(m.state.members, id)
	return 1, nil
}

func (m *memStore) AddMemberPoints(ctx context.Context, id uuid.UUID, points int32) (database.Member, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	mb, ok := m.state.members[id]
	if !ok {
		return database.Member{}, pgx.ErrNoRows
	}
	mb.Points += points
	mb.UpdatedAt = m.tick()
	m.state.members[id] = mb
	return mb, nil
}

func (m *memStore) DeductMemberPoints(ctx context.Context, id uuid.UUID, points int32) (database.Member, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	mb, ok := m.state.members[id]
	if !ok || mb.Points < points {
		return database.Member{}, pgx.ErrNoRows
	}
	mb.Points -= points
	mb.UpdatedAt = m.tick()
	m.state.members[id] = mb
	return mb, nil
}

func (m *memStore) CreateMemberPointLog(ctx context.Context, arg database.CreateMemberPointLogParams) (database.MemberPointLog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	l := database.MemberPointLog{ID: uuid.New(), MemberID: arg.MemberID, OrderID: arg.OrderID, Delta: arg.Delta, Reason: arg.Reason, CreatedAt: m.tick()}
	m.state.pointLogs = append(m.state.pointLogs, l)
	return l, nil
}

func (m *memStore) ListMemberPointLogs(ctx context.Context, memberID uuid.UUID, limit int32) ([]database.MemberPointLog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []database.MemberPointLog{}
	for i := len(m.state.pointLogs) - 1; i >= 0; i-- {
		if l := m.state.pointLogs[i]; l.MemberID == memberID {
			out = append(out, l)
		}
	}
	return page(out, limit, 0), nil
}

func (m *memStore) GetMemberStats(ctx context.Context, memberID uuid.UUID) (database.GetMemberStatsRow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var row database.GetMemberStatsRow
	for _, o := range m.state.orders {
		if o.MemberID.Valid && uuid.UUID(o.MemberID.Bytes) == memberID && o.Status == database.OrderStatusCOMPLETED {
			row.TotalOrders++
			row.TotalSpent += o.TotalAmount
		}
	}
	return row, nil
}

// --- Orders ---

func (m *memStore) CreateOrder(ctx context.Context, arg database.CreateOrderParams) (database.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, o := range m.state.orders {
		if o.TableID == arg.TableID && activeStatus(o.Status) {
			return database.Order{}, uniqueViolation("orders_one_active_per_table")
		}
	}
	now := m.tick()
	o := database.Order{
		ID:          uuid.New(),
		TableID:     arg.TableID,
		UserID:      arg.UserID,
		MemberID:    arg.MemberID,
		Status:      database.OrderStatusPENDING,
		TotalAmount: arg.TotalAmount,
		Notes:       arg.Notes,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	m.state.orders[o.ID] = o
	m.state.orderSeq = append(m.state.orderSeq, o.ID)
	return o, nil
}

func (m *memStore) GetOrder(ctx context.Context, id uuid.UUID) (database.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.state.orders[id]
	if !ok {
		return database.Order{}, pgx.ErrNoRows
	}
	return o, nil
}

func (m *memStore) GetOrderForUpdate(ctx context.Context, id uuid.UUID) (database.Order, error) {
	return m.GetOrder(ctx, id)
}

func (m *memStore) GetActiveOrderByTable(ctx context.Context, tableID uuid.UUID) (database.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range m.state.orderSeq {
		if o := m.state.orders[id]; o.TableID == tableID && activeStatus(o.Status) {
			return o, nil
		}
	}
	return database.Order{}, pgx.ErrNoRows
}

// ordersWhere returns matching orders oldest first. Caller holds mu.
func (m *memStore) ordersWhere(keep func(database.Order) bool) []database.Order {
	out := []database.Order{}
	for _, id := range m.state.orderSeq {
		if o, ok := m.state.orders[id]; ok && keep(o) {
			out = append(out, o)
		}
	}
	return out
}

func reversed(in []database.Order) []database.Order {
	out := make([]database.Order, len(in))
	for i, o := range in {
		out[len(in)-1-i] = o
	}
	return out
}

func (m *memStore) ListOrders(ctx context.Context, arg database.ListOrdersParams) ([]database.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := m.ordersWhere(func(o database.Order) bool {
		if arg.TableID.Valid && o.TableID != uuid.UUID(arg.TableID.Bytes) {
			return false
		}
		if len(arg.Statuses) == 0 {
			return true
		}
		for _, s := range arg.Statuses {
			if string(o.Status) == s {
				return true
			}
		}
		return false
	})
	return page(reversed(out), arg.Limit, arg.Offset), nil
}

func (m *memStore) ListKitchenOrders(ctx context.Context) ([]database.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ordersWhere(func(o database.Order) bool {
		return o.Status == database.OrderStatusPENDING ||
			o.Status == database.OrderStatusPREPARING ||
			o.Status == database.OrderStatusREADY
	}), nil
}

func (m *memStore) ListCompletedOrders(ctx context.Context, limit int32) ([]database.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := m.ordersWhere(func(o database.Order) bool {
		return o.Status == database.OrderStatusCOMPLETED ||
			o.Status == database.OrderStatusSERVED ||
			o.Status == database.OrderStatusCANCELLED
	})
	sort.SliceStable(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	return page(out, limit, 0), nil
}

func (m *memStore) UpdateOrderStatus(ctx context.Context, arg database.UpdateOrderStatusParams) (database.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.state.orders[arg.ID]
	if !ok || o.Status != arg.PrevStatus {
		return database.Order{}, pgx.ErrNoRows
	}
	o.Status, o.UpdatedAt = arg.Status, m.tick()
	m.state.orders[o.ID] = o
	return o, nil
}

func (m *memStore) CompleteOrder(ctx context.Context, id uuid.UUID, memberID pgtype.UUID) (database.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.state.orders[id]
	if !ok || o.Status == database.OrderStatusCOMPLETED || o.Status == database.OrderStatusCANCELLED {
		return database.Order{}, pgx.ErrNoRows
	}
	o.Status = database.OrderStatusCOMPLETED
	if memberID.Valid {
		o.MemberID = memberID
	}
	o.UpdatedAt = m.tick()
	m.state.orders[id] = o
	return o, nil
}

func (m *memStore) RecalculateOrderTotal(ctx context.Context, id uuid.UUID) (database.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.state.orders[id]
	if !ok {
		return database.Order{}, pgx.ErrNoRows
	}
	var sum int64
	for _, d := range m.state.details {
		if d.OrderID == id {
			sum += d.Subtotal
		}
	}
	o.TotalAmount, o.UpdatedAt = sum, m.tick()
	m.state.orders[id] = o
	return o, nil
}

func (m *memStore) CountActiveOrders(ctx context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.ordersWhere(func(o database.Order) bool { return activeStatus(o.Status) }))), nil
}

// --- Order details ---

func (m *memStore) CreateOrderDetail(ctx context.Context, arg database.CreateOrderDetailParams) (database.OrderDetail, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d := database.OrderDetail{ID: uuid.New(), OrderID: arg.OrderID, MenuID: arg.MenuID, Qty: arg.Qty, Subtotal: arg.Subtotal, Notes: arg.Notes, CreatedAt: m.tick()}
	m.state.details[d.ID] = d
	m.state.detailSeq = append(m.state.detailSeq, d.ID)
	return d, nil
}

func (m *memStore) GetOrderDetail(ctx context.Context, id uuid.UUID) (database.OrderDetail, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.state.details[id]
	if !ok {
		return database.OrderDetail{}, pgx.ErrNoRows
	}
	return d, nil
}

// detailRows joins details with menus in insertion order. Caller holds mu.
func (m *memStore) detailRows(keep func(database.OrderDetail) bool) []database.ListOrderDetailsRow {
	out := []database.ListOrderDetailsRow{}
	for _, id := range m.state.detailSeq {
		d, ok := m.state.details[id]
		if !ok || !keep(d) {
			continue
		}
		mn := m.state.menus[d.MenuID]
		out = append(out, database.ListOrderDetailsRow{
			ID:        d.ID,
			OrderID:   d.OrderID,
			MenuID:    d.MenuID,
			Qty:       d.Qty,
			Subtotal:  d.Subtotal,
			Notes:     d.Notes,
			CreatedAt: d.CreatedAt,
			MenuName:  mn.Name,
			MenuPrice: mn.Price,
		})
	}
	return out
}

func (m *memStore) ListOrderDetails(ctx context.Context, orderID uuid.UUID) ([]database.ListOrderDetailsRow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.detailRows(func(d database.OrderDetail) bool { return d.OrderID == orderID }), nil
}

func (m *memStore) ListOrderDetailsByOrders(ctx context.Context, orderIDs []uuid.UUID) ([]database.ListOrderDetailsRow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	want := make(map[uuid.UUID]bool, len(orderIDs))
	for _, id := range orderIDs {
		want[id] = true
	}
	return m.detailRows(func(d database.OrderDetail) bool { return want[d.OrderID] }), nil
}

func (m *memStore) DeleteOrderDetail(ctx context.Context, id, orderID uuid.UUID) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.state.details[id]
	if !ok || d.OrderID != orderID {
		return 0, nil
	}
	delete(m.state.details, id)
	return 1, nil
}

func (m *memStore) CountOrderDetails(ctx context.Context, orderID uuid.UUID) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, d := range m.state.details {
		if d.OrderID == orderID {
			n++
		}
	}
	return n, nil
}

// --- Payments ---

func (m *memStore) CreatePayment(ctx context.Context, arg database.CreatePaymentParams) (database.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.state.payments[arg.OrderID]; ok {
		return database.Payment{}, uniqueViolation("payments_order_id_key")
	}
	p := database.Payment{
		ID:              uuid.New(),
		OrderID:         arg.OrderID,
		Amount:          arg.Amount,
		Method:          arg.Method,
		AmountReceived:  arg.AmountReceived,
		ChangeAmount:    arg.ChangeAmount,
		ReferenceNumber: arg.ReferenceNumber,
		PointsEarned:    arg.PointsEarned,
		ProcessedBy:     arg.ProcessedBy,
		CreatedAt:       m.tick(),
	}
	m.state.payments[arg.OrderID] = p
	return p, nil
}

func (m *memStore) GetPaymentByOrder(ctx context.Context, orderID uuid.UUID) (database.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.state.payments[orderID]
	if !ok {
		return database.Payment{}, pgx.ErrNoRows
	}
	return p, nil
}

func (m *memStore) ListPaymentsByRange(ctx context.Context, start, end time.Time) ([]database.ListPaymentsByRangeRow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []database.ListPaymentsByRangeRow{}
	for _, p := range m.state.payments {
		if p.CreatedAt.Before(start) || !p.CreatedAt.Before(end) {
			continue
		}
		o := m.state.orders[p.OrderID]
		out = append(out, database.ListPaymentsByRangeRow{
			Payment:  p,
			TableNo:  m.state.tables[o.TableID].TableNo,
			MemberID: o.MemberID,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Payment.CreatedAt.After(out[j].Payment.CreatedAt) })
	return out, nil
}

// --- Ingredients, recipes, stock ---

func (m *memStore) CreateIngredient(ctx context.Context, arg database.CreateIngredientParams) (database.Ingredient, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, ing := range m.state.ingredients {
		if ing.Name == arg.Name {
			return database.Ingredient{}, uniqueViolation("ingredients_name_key")
		}
	}
	now := m.tick()
	ing := database.Ingredient{
		ID:           uuid.New(),
		Name:         arg.Name,
		Unit:         arg.Unit,
		CurrentStock: database.DecimalToNumeric(decimal.Zero),
		MinStock:     arg.MinStock,
		CostPerUnit:  arg.CostPerUnit,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	m.state.ingredients[ing.ID] = ing
	return ing, nil
}

func (m *memStore) GetIngredient(ctx context.Context, id uuid.UUID) (database.Ingredient, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ing, ok := m.state.ingredients[id]
	if !ok {
		return database.Ingredient{}, pgx.ErrNoRows
	}
	return ing, nil
}

func (m *memStore) ListIngredients(ctx context.Context) ([]database.Ingredient, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []database.Ingredient{}
	for _, ing := range m.state.ingredients {
		out = append(out, ing)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *memStore) AdjustIngredientStock(ctx context.Context, id uuid.UUID, delta pgtype.Numeric) (database.Ingredient, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ing, ok := m.state.ingredients[id]
	if !ok {
		return database.Ingredient{}, pgx.ErrNoRows
	}
	cur := database.NumericToDecimal(ing.CurrentStock).Add(database.NumericToDecimal(delta))
	ing.CurrentStock, ing.UpdatedAt = database.DecimalToNumeric(cur), m.tick()
	m.state.ingredients[id] = ing
	return ing, nil
}

func (m *memStore) lowStock() []database.Ingredient {
	out := []database.Ingredient{}
	for _, ing := range m.state.ingredients {
		if database.NumericToDecimal(ing.CurrentStock).LessThanOrEqual(database.NumericToDecimal(ing.MinStock)) {
			out = append(out, ing)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := database.NumericToDecimal(out[i].CurrentStock), database.NumericToDecimal(out[j].CurrentStock)
		if !a.Equal(b) {
			return a.LessThan(b)
		}
		return out[i].Name < out[j].Name
	})
	return out
}

func (m *memStore) ListLowStockIngredients(ctx context.Context) ([]database.Ingredient, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lowStock(), nil
}

func (m *memStore) CountLowStockIngredients(ctx context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.lowStock())), nil
}

func (m *memStore) ListRecipesForMenus(ctx context.Context, menuIDs []uuid.UUID) ([]database.Recipe, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	want := make(map[uuid.UUID]bool, len(menuIDs))
	for _, id := range menuIDs {
		want[id] = true
	}
	out := []database.Recipe{}
	for _, r := range m.state.recipes {
		if want[r.MenuID] {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *memStore) CreateStockLog(ctx context.Context, arg database.CreateStockLogParams) (database.StockLog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	l := database.StockLog{
		ID:           uuid.New(),
		IngredientID: arg.IngredientID,
		Type:         arg.Type,
		Qty:          arg.Qty,
		Notes:        arg.Notes,
		OrderID:      arg.OrderID,
		CreatedAt:    m.tick(),
	}
	m.state.stockLogs = append(m.state.stockLogs, l)
	return l, nil
}

func (m *memStore) ListStockLogs(ctx context.Context, arg database.ListStockLogsParams) ([]database.StockLog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []database.StockLog{}
	for i := len(m.state.stockLogs) - 1; i >= 0; i-- {
		l := m.state.stockLogs[i]
		if arg.IngredientID.Valid && l.IngredientID != uuid.UUID(arg.IngredientID.Bytes) {
			continue
		}
		out = append(out, l)
	}
	return page(out, arg.Limit, arg.Offset), nil
}

func (m *memStore) CountStockOutLogsByOrder(ctx context.Context, orderID pgtype.UUID) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, l := range m.state.stockLogs {
		if l.Type == database.StockLogTypeOUT && l.OrderID.Valid && l.OrderID.Bytes == orderID.Bytes {
			n++
		}
	}
	return n, nil
}

// --- Reports ---

func (m *memStore) GetPaymentSummary(ctx context.Context, start, end time.Time) ([]database.GetPaymentSummaryRow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	byMethod := map[database.PaymentMethod]*database.GetPaymentSummaryRow{}
	for _, p := range m.state.payments {
		if p.CreatedAt.Before(start) || !p.CreatedAt.Before(end) {
			continue
		}
		row, ok := byMethod[p.Method]
		if !ok {
			row = &database.GetPaymentSummaryRow{Method: p.Method}
			byMethod[p.Method] = row
		}
		row.Transactions++
		row.Total += p.Amount
	}
	out := []database.GetPaymentSummaryRow{}
	for _, r := range byMethod {
		out = append(out, *r)
	}
	return out, nil
}

func (m *memStore) GetSalesByPeriod(ctx context.Context, arg database.GetSalesByPeriodParams) ([]database.GetSalesByPeriodRow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	buckets := map[time.Time]*database.GetSalesByPeriodRow{}
	for _, p := range m.state.payments {
		if p.CreatedAt.Before(arg.Start) || !p.CreatedAt.Before(arg.End) {
			continue
		}
		t := p.CreatedAt
		period := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
		if arg.Granularity == "month" {
			period = time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
		}
		row, ok := buckets[period]
		if !ok {
			row = &database.GetSalesByPeriodRow{Period: period}
			buckets[period] = row
		}
		row.OrderCount++
		row.Revenue += p.Amount
	}
	out := []database.GetSalesByPeriodRow{}
	for _, r := range buckets {
		out = append(out, *r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Period.Before(out[j].Period) })
	return out, nil
}

func (m *memStore) GetTopSellingMenus(ctx context.Context, arg database.GetTopSellingMenusParams) ([]database.GetTopSellingMenusRow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	byMenu := map[uuid.UUID]*database.GetTopSellingMenusRow{}
	for _, d := range m.state.details {
		o := m.state.orders[d.OrderID]
		if o.Status != database.OrderStatusCOMPLETED || o.UpdatedAt.Before(arg.Start) || !o.UpdatedAt.Before(arg.End) {
			continue
		}
		row, ok := byMenu[d.MenuID]
		if !ok {
			row = &database.GetTopSellingMenusRow{MenuID: d.MenuID, MenuName: m.state.menus[d.MenuID].Name}
			byMenu[d.MenuID] = row
		}
		row.QtySold += int64(d.Qty)
		row.Revenue += d.Subtotal
	}
	out := []database.GetTopSellingMenusRow{}
	for _, r := range byMenu {
		out = append(out, *r)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].QtySold != out[j].QtySold {
			return out[i].QtySold > out[j].QtySold
		}
		return out[i].Revenue > out[j].Revenue
	})
	if arg.Limit > 0 && int(arg.Limit) < len(out) {
		out = out[:arg.Limit]
	}
	return out, nil
}

// page applies LIMIT/OFFSET. A zero limit means no limit.
func page[T any](in []T, limit, offset int32) []T {
	if int(offset) >= len(in) {
		return []T{}
	}
	in = in[offset:]
	if limit > 0 && int(limit) < len(in) {
		in = in[:limit]
	}
	return in
}

// --- Test wiring ---

// fixture wires every service against one memStore.
type fixture struct {
	store    *memStore
	pool     *mockTxBeginner
	events   *recordingPublisher
	orders   *OrderService
	kitchen  *KitchenService
	stock    *InventoryService
	members  *MemberService
	payments *PaymentService
	tables   *TableService
	reports  *ReportService
	receipts *ReceiptService
}

func newFixture() *fixture {
	return newFixtureWith(PaymentConfig{PointsUnit: DefaultPointsUnit, DeductStockOnSettle: true}, nil)
}

func newFixtureWith(cfg PaymentConfig, guard SettlementGuard) *fixture {
	store := newMemStore()
	pool := &mockTxBeginner{store: store}
	pub := &recordingPublisher{}
	orders := NewOrderService(pool, store, func(database.DBTX) OrderStore { return store }, pub)
	return &fixture{
		store:    store,
		pool:     pool,
		events:   pub,
		orders:   orders,
		kitchen:  NewKitchenService(orders),
		stock:    NewInventoryService(pool, store, func(database.DBTX) InventoryStore { return store }, pub),
		members:  NewMemberService(pool, store, func(database.DBTX) MemberStore { return store }),
		payments: NewPaymentService(pool, store, func(database.DBTX) PaymentStore { return store }, cfg, guard, pub),
		tables:   NewTableService(pool, store, func(database.DBTX) TableStore { return store }, pub),
		reports:  NewReportService(store),
		receipts: NewReceiptService(store, MerchantConfig{Name: "THAI CAFE", City: "JAKARTA", ID: "ID1234"}),
	}
}
