package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/thaicafe/pos-api/internal/database"
	"github.com/thaicafe/pos-api/internal/events"
)

// recordingPublisher keeps every published event for assertions.
type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
	err    error
}

func (r *recordingPublisher) Publish(ctx context.Context, e events.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return r.err
}

func (r *recordingPublisher) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.events))
	for i, e := range r.events {
		out[i] = e.Type
	}
	return out
}

func (r *recordingPublisher) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
}

// cafe is the demo catalog: Pad Thai and Thai Iced Tea, both using garlic.
type cafe struct {
	table   database.Table
	padThai database.Menu
	icedTea database.Menu
	soldOut database.Menu
	garlic  database.Ingredient
	noodles database.Ingredient
	tea     database.Ingredient
	fixture *fixture
	ctx     context.Context
	t       *testing.T
}

func newCafe(t *testing.T) *cafe {
	return newCafeWith(t, newFixture())
}

func newCafeWith(t *testing.T, f *fixture) *cafe {
	c := &cafe{fixture: f, ctx: context.Background(), t: t}
	c.table = f.store.addTable(1)
	c.padThai = f.store.addMenu("Pad Thai", 65000, true)
	c.icedTea = f.store.addMenu("Thai Iced Tea", 25000, true)
	c.soldOut = f.store.addMenu("Tom Yum", 55000, false)
	c.garlic = f.store.addIngredient("Garlic", "kg", "1.00", "0.20")
	c.noodles = f.store.addIngredient("Rice Noodles", "kg", "5.00", "1.00")
	c.tea = f.store.addIngredient("Thai Tea Leaves", "kg", "2.00", "0.50")
	f.store.addRecipe(c.padThai.ID, c.garlic.ID, "0.02", "kg")
	f.store.addRecipe(c.padThai.ID, c.noodles.ID, "0.15", "kg")
	f.store.addRecipe(c.icedTea.ID, c.garlic.ID, "0.01", "kg")
	f.store.addRecipe(c.icedTea.ID, c.tea.ID, "0.03", "kg")
	return c
}

// openOrder places 2× Pad Thai + 1× Thai Iced Tea on the cafe's table.
func (c *cafe) openOrder() *OrderResult {
	c.t.Helper()
	res, err := c.fixture.orders.CreateOrder(c.ctx, CreateOrderRequest{
		TableID: c.table.ID,
		Items: []OrderItemRequest{
			{MenuID: c.padThai.ID, Qty: 2},
			{MenuID: c.icedTea.ID, Qty: 1},
		},
	})
	require.NoError(c.t, err)
	return res
}

// serve walks an order PENDING→PREPARING→READY→SERVED.
func (c *cafe) serve(orderID uuid.UUID) {
	c.t.Helper()
	for _, st := range []string{"PREPARING", "READY", "SERVED"} {
		_, err := c.fixture.orders.UpdateOrderStatus(c.ctx, orderID, st)
		require.NoError(c.t, err)
	}
}

func ptr[T any](v T) *T { return &v }

// mockGuard is a SettlementGuard with a fixed answer.
type mockGuard struct {
	ok       bool
	err      error
	released int
}

func (g *mockGuard) Acquire(ctx context.Context, orderID uuid.UUID) (func(), bool, error) {
	if g.err != nil {
		return nil, false, g.err
	}
	if !g.ok {
		return nil, false, nil
	}
	return func() { g.released++ }, true, nil
}

var errBoom = errors.New("boom")
