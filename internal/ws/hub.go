package ws

import (
	"context"
	"encoding/json"
	"strings"
	"sync"

	"github.com/thaicafe/pos-api/internal/enum"
	"github.com/thaicafe/pos-api/internal/events"
)

// roomEvent is an internal struct for routing events to a set of rooms
type roomEvent struct {
	Rooms []string
	Event events.Event
}

// Hub maintains the set of active clients per room and broadcasts messages to them
type Hub struct {
	// Registered clients by room name (kitchen, floor, cashier)
	rooms map[string]map[*Client]bool

	register   chan *Client
	unregister chan *Client
	broadcast  chan *roomEvent
	done       chan struct{}

	mu sync.RWMutex
}

func NewHub() *Hub {
	return &Hub{
		rooms:      make(map[string]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan *roomEvent, 256),
		done:       make(chan struct{}),
	}
}

// Run starts the hub's main loop and returns when ctx is cancelled.
// This should be called as a goroutine: go hub.Run(ctx)
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return

		case client := <-h.register:
			h.mu.Lock()
			if h.rooms[client.room] == nil {
				h.rooms[client.room] = make(map[*Client]bool)
			}
			h.rooms[client.room][client] = true
			h.mu.Unlock()

		case client := <-h.unregister:
			h.mu.Lock()
			h.removeLocked(client)
			h.mu.Unlock()

		case re := <-h.broadcast:
			message, err := json.Marshal(re.Event)
			if err != nil {
				continue
			}
			h.mu.Lock()
			for _, room := range re.Rooms {
				for client := range h.rooms[room] {
					select {
					case client.send <- message:
					default:
						// Slow consumer; drop it
						h.removeLocked(client)
					}
				}
			}
			h.mu.Unlock()
		}
	}
}

// removeLocked must be called with h.mu held.
func (h *Hub) removeLocked(client *Client) {
	clients, ok := h.rooms[client.room]
	if !ok {
		return
	}
	if _, exists := clients[client]; !exists {
		return
	}
	delete(clients, client)
	close(client.send)
	if len(clients) == 0 {
		delete(h.rooms, client.room)
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, clients := range h.rooms {
		for client := range clients {
			h.removeLocked(client)
		}
	}
}

// BroadcastToRoom sends an event to every client in one room.
func (h *Hub) BroadcastToRoom(room string, event events.Event) {
	h.enqueue(context.Background(), &roomEvent{Rooms: []string{room}, Event: event})
}

// Publish routes a domain event to the rooms interested in it.
// Satisfies events.Publisher.
func (h *Hub) Publish(ctx context.Context, e events.Event) error {
	rooms := RoomsFor(e)
	if len(rooms) == 0 {
		return nil
	}
	h.enqueue(ctx, &roomEvent{Rooms: rooms, Event: e})
	return nil
}

func (h *Hub) enqueue(ctx context.Context, re *roomEvent) {
	select {
	case h.broadcast <- re:
	case <-h.done:
	case <-ctx.Done():
	}
}

// ClientCount returns the number of connected clients in room.
func (h *Hub) ClientCount(room string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[room])
}

// RoomsFor decides which rooms receive an event.
//   - kitchen: every order event and low stock alerts
//   - floor: every order and table event
//   - cashier: orders that reach SERVED and settlements
func RoomsFor(e events.Event) []string {
	switch {
	case e.Type == events.StockLow:
		return []string{enum.RoomKitchen}
	case strings.HasPrefix(e.Type, "table."):
		return []string{enum.RoomFloor}
	case e.Type == events.OrderSettled:
		return []string{enum.RoomKitchen, enum.RoomFloor, enum.RoomCashier}
	case e.Type == events.OrderStatusChanged:
		var p events.OrderPayload
		if err := json.Unmarshal(e.Payload, &p); err == nil && p.Status == enum.OrderStatusServed {
			return []string{enum.RoomKitchen, enum.RoomFloor, enum.RoomCashier}
		}
		return []string{enum.RoomKitchen, enum.RoomFloor}
	case strings.HasPrefix(e.Type, "order."):
		return []string{enum.RoomKitchen, enum.RoomFloor}
	}
	return nil
}
