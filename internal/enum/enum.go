package enum

// ── State machines (CHECK constrained in DB) ──

const (
	OrderStatusPending   = "PENDING"
	OrderStatusPreparing = "PREPARING"
	OrderStatusReady     = "READY"
	OrderStatusServed    = "SERVED"
	OrderStatusCompleted = "COMPLETED"
	OrderStatusCancelled = "CANCELLED"
)

const (
	TableStatusAvailable = "AVAILABLE"
	TableStatusOccupied  = "OCCUPIED"
	TableStatusReserved  = "RESERVED"
	TableStatusCleaning  = "CLEANING"
)

// ── Closed sets (CHECK constrained in DB) ──

const (
	UserRoleAdmin   = "ADMIN"
	UserRoleCashier = "CASHIER"
	UserRoleWaiter  = "WAITER"
	UserRoleKitchen = "KITCHEN"
)

const (
	PaymentMethodCash = "CASH"
	PaymentMethodQRIS = "QRIS"
)

const (
	StockLogIn  = "IN"
	StockLogOut = "OUT"
)

// ── Websocket rooms (no DB constraint) ──

const (
	RoomKitchen = "kitchen"
	RoomFloor   = "floor"
	RoomCashier = "cashier"
)

// IsRoom reports whether name is one of the live-feed rooms.
func IsRoom(name string) bool {
	switch name {
	case RoomKitchen, RoomFloor, RoomCashier:
		return true
	}
	return false
}
