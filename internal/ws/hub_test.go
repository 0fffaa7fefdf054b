package ws

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/thaicafe/pos-api/internal/enum"
	"github.com/thaicafe/pos-api/internal/events"
)

// mockClient creates a client for testing without a real WebSocket connection
func mockClient(hub *Hub, room string) *Client {
	return &Client{
		hub:  hub,
		room: room,
		send: make(chan []byte, 256),
	}
}

func startHub(t *testing.T) *Hub {
	t.Helper()
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go hub.Run(ctx)
	return hub
}

func expectEvent(t *testing.T, c *Client, wantType string) {
	t.Helper()
	select {
	case msg := <-c.send:
		var received events.Event
		if err := json.Unmarshal(msg, &received); err != nil {
			t.Fatalf("failed to unmarshal message: %v", err)
		}
		if received.Type != wantType {
			t.Errorf("expected type %q, got %q", wantType, received.Type)
		}
	case <-time.After(100 * time.Millisecond):
		t.Fatalf("%s client did not receive %s", c.room, wantType)
	}
}

func expectNothing(t *testing.T, c *Client) {
	t.Helper()
	select {
	case msg := <-c.send:
		t.Fatalf("%s client should not receive %s", c.room, msg)
	case <-time.After(50 * time.Millisecond):
	}
}

func mustEvent(t *testing.T, typ string, payload interface{}) events.Event {
	t.Helper()
	e, err := events.New(typ, payload)
	if err != nil {
		t.Fatalf("new event: %v", err)
	}
	return e
}

func TestHubRegistration(t *testing.T) {
	hub := startHub(t)
	client := mockClient(hub, enum.RoomKitchen)

	hub.register <- client
	time.Sleep(10 * time.Millisecond)

	hub.mu.RLock()
	defer hub.mu.RUnlock()

	if !hub.rooms[enum.RoomKitchen][client] {
		t.Fatal("client not registered in kitchen room")
	}
}

func TestHubCleanupEmptyRoom(t *testing.T) {
	hub := startHub(t)
	client1 := mockClient(hub, enum.RoomFloor)
	client2 := mockClient(hub, enum.RoomFloor)

	hub.register <- client1
	hub.register <- client2
	time.Sleep(10 * time.Millisecond)

	if n := hub.ClientCount(enum.RoomFloor); n != 2 {
		t.Fatalf("expected 2 clients, got %d", n)
	}

	hub.unregister <- client1
	time.Sleep(10 * time.Millisecond)
	if n := hub.ClientCount(enum.RoomFloor); n != 1 {
		t.Fatalf("expected 1 client after first unregister, got %d", n)
	}

	hub.unregister <- client2
	time.Sleep(10 * time.Millisecond)

	hub.mu.RLock()
	defer hub.mu.RUnlock()
	if hub.rooms[enum.RoomFloor] != nil {
		t.Fatal("room should be deleted when last client unregisters")
	}
}

func TestBroadcastToRoom(t *testing.T) {
	hub := startHub(t)
	kitchen := mockClient(hub, enum.RoomKitchen)
	cashier := mockClient(hub, enum.RoomCashier)
	hub.register <- kitchen
	hub.register <- cashier
	time.Sleep(10 * time.Millisecond)

	hub.BroadcastToRoom(enum.RoomKitchen, events.Event{Type: "ping", Payload: json.RawMessage(`{}`)})

	expectEvent(t, kitchen, "ping")
	expectNothing(t, cashier)
}

func TestPublish_RoutesByEventType(t *testing.T) {
	hub := startHub(t)
	kitchen := mockClient(hub, enum.RoomKitchen)
	floor := mockClient(hub, enum.RoomFloor)
	cashier := mockClient(hub, enum.RoomCashier)
	for _, c := range []*Client{kitchen, floor, cashier} {
		hub.register <- c
	}
	time.Sleep(10 * time.Millisecond)
	ctx := context.Background()

	// New ticket: kitchen and floor only.
	hub.Publish(ctx, mustEvent(t, events.OrderCreated, events.OrderPayload{Status: enum.OrderStatusPending})) //nolint:errcheck
	expectEvent(t, kitchen, events.OrderCreated)
	expectEvent(t, floor, events.OrderCreated)
	expectNothing(t, cashier)

	// Served: cashier needs to know the bill is coming.
	hub.Publish(ctx, mustEvent(t, events.OrderStatusChanged, events.OrderPayload{Status: enum.OrderStatusServed})) //nolint:errcheck
	expectEvent(t, kitchen, events.OrderStatusChanged)
	expectEvent(t, floor, events.OrderStatusChanged)
	expectEvent(t, cashier, events.OrderStatusChanged)

	// Table change: floor only.
	hub.Publish(ctx, mustEvent(t, events.TableStatusChanged, events.TablePayload{Status: enum.TableStatusCleaning})) //nolint:errcheck
	expectNothing(t, kitchen)
	expectEvent(t, floor, events.TableStatusChanged)
	expectNothing(t, cashier)

	// Low stock: kitchen only.
	hub.Publish(ctx, mustEvent(t, events.StockLow, events.StockLowPayload{Name: "Garlic"})) //nolint:errcheck
	expectEvent(t, kitchen, events.StockLow)
	expectNothing(t, floor)
	expectNothing(t, cashier)
}

func TestBroadcastToMultipleClientsInSameRoom(t *testing.T) {
	hub := startHub(t)
	clients := []*Client{
		mockClient(hub, enum.RoomKitchen),
		mockClient(hub, enum.RoomKitchen),
		mockClient(hub, enum.RoomKitchen),
	}
	for _, c := range clients {
		hub.register <- c
	}
	time.Sleep(10 * time.Millisecond)

	hub.Publish(context.Background(), mustEvent(t, events.OrderItemsChanged, events.OrderPayload{})) //nolint:errcheck

	for _, c := range clients {
		expectEvent(t, c, events.OrderItemsChanged)
	}
}

func TestSlowClientIsDropped(t *testing.T) {
	hub := startHub(t)
	slow := &Client{hub: hub, room: enum.RoomFloor, send: make(chan []byte)} // unbuffered, never read
	hub.register <- slow
	time.Sleep(10 * time.Millisecond)

	hub.BroadcastToRoom(enum.RoomFloor, events.Event{Type: "ping"})
	time.Sleep(20 * time.Millisecond)

	if n := hub.ClientCount(enum.RoomFloor); n != 0 {
		t.Fatalf("slow client should be dropped, room has %d", n)
	}
	if _, ok := <-slow.send; ok {
		t.Fatal("slow client's send channel should be closed")
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)

	client := mockClient(hub, enum.RoomCashier)
	hub.register <- client
	time.Sleep(10 * time.Millisecond)

	cancel()
	select {
	case <-hub.done:
	case <-time.After(100 * time.Millisecond):
		t.Fatal("hub did not stop")
	}
	if _, ok := <-client.send; ok {
		t.Fatal("client channel should be closed on shutdown")
	}

	// Publishing after shutdown must not block.
	hub.Publish(context.Background(), events.Event{Type: events.OrderCreated}) //nolint:errcheck
}

func TestCanJoin(t *testing.T) {
	tests := []struct {
		role, room string
		want       bool
	}{
		{enum.UserRoleKitchen, enum.RoomKitchen, true},
		{enum.UserRoleKitchen, enum.RoomCashier, false},
		{enum.UserRoleWaiter, enum.RoomFloor, true},
		{enum.UserRoleCashier, enum.RoomCashier, true},
		{enum.UserRoleAdmin, enum.RoomKitchen, true},
		{enum.UserRoleAdmin, "lobby", false},
	}
	for _, tt := range tests {
		if got := CanJoin(tt.role, tt.room); got != tt.want {
			t.Errorf("CanJoin(%s, %s) = %v, want %v", tt.role, tt.room, got, tt.want)
		}
	}
}
