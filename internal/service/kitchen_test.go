package service

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/thaicafe/pos-api/internal/database"
)

func TestListTickets_OldestFirstWithItems(t *testing.T) {
	c := newCafe(t)
	first := c.openOrder()
	table2 := c.fixture.store.addTable(7)
	second, err := c.fixture.orders.CreateOrder(c.ctx, CreateOrderRequest{
		TableID: table2.ID,
		Notes:   "birthday",
		Items:   []OrderItemRequest{{MenuID: c.icedTea.ID, Qty: 3, Notes: "no ice"}},
	})
	require.NoError(t, err)

	tickets, err := c.fixture.kitchen.ListTickets(c.ctx)
	require.NoError(t, err)
	require.Len(t, tickets, 2)

	assert.Equal(t, first.Order.ID, tickets[0].OrderID)
	assert.Equal(t, int32(1), tickets[0].TableNo)
	require.Len(t, tickets[0].Items, 2)
	assert.Equal(t, "Pad Thai", tickets[0].Items[0].MenuName)
	assert.Equal(t, int32(2), tickets[0].Items[0].Qty)

	assert.Equal(t, second.Order.ID, tickets[1].OrderID)
	assert.Equal(t, int32(7), tickets[1].TableNo)
	assert.Equal(t, "birthday", tickets[1].Notes)
	assert.Equal(t, "no ice", tickets[1].Items[0].Notes)
}

func TestListTickets_DropsServedAndCancelled(t *testing.T) {
	c := newCafe(t)
	res := c.openOrder()
	c.serve(res.Order.ID)

	tickets, err := c.fixture.kitchen.ListTickets(c.ctx)
	require.NoError(t, err)
	assert.Empty(t, tickets)
	assert.NotNil(t, tickets)
}

func TestAdvanceTicket(t *testing.T) {
	c := newCafe(t)
	res := c.openOrder()

	for _, want := range []database.OrderStatus{
		database.OrderStatusPREPARING,
		database.OrderStatusREADY,
		database.OrderStatusSERVED,
	} {
		o, err := c.fixture.kitchen.AdvanceTicket(c.ctx, res.Order.ID)
		require.NoError(t, err)
		assert.Equal(t, want, o.Status)
	}

	_, err := c.fixture.kitchen.AdvanceTicket(c.ctx, res.Order.ID)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	_, err = c.fixture.kitchen.AdvanceTicket(c.ctx, uuid.New())
	assert.ErrorIs(t, err, ErrOrderNotFound)
}

func TestSetTicketStatus(t *testing.T) {
	c := newCafe(t)
	res := c.openOrder()

	_, err := c.fixture.kitchen.SetTicketStatus(c.ctx, res.Order.ID, "CANCELLED")
	assert.ErrorIs(t, err, ErrInvalidStatus, "kitchen cannot cancel")

	_, err = c.fixture.kitchen.SetTicketStatus(c.ctx, res.Order.ID, "READY")
	assert.ErrorIs(t, err, ErrInvalidTransition, "cannot skip PREPARING")

	o, err := c.fixture.kitchen.SetTicketStatus(c.ctx, res.Order.ID, "PREPARING")
	require.NoError(t, err)
	assert.Equal(t, database.OrderStatusPREPARING, o.Status)

	_, err = c.fixture.kitchen.SetTicketStatus(c.ctx, res.Order.ID, "PREPARING")
	assert.ErrorIs(t, err, ErrInvalidTransition)
}
