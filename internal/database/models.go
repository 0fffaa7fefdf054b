package database

import (
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

type OrderStatus string

const (
	OrderStatusPENDING   OrderStatus = "PENDING"
	OrderStatusPREPARING OrderStatus = "PREPARING"
	OrderStatusREADY     OrderStatus = "READY"
	OrderStatusSERVED    OrderStatus = "SERVED"
	OrderStatusCOMPLETED OrderStatus = "COMPLETED"
	OrderStatusCANCELLED OrderStatus = "CANCELLED"
)

type TableStatus string

const (
	TableStatusAVAILABLE TableStatus = "AVAILABLE"
	TableStatusOCCUPIED  TableStatus = "OCCUPIED"
	TableStatusRESERVED  TableStatus = "RESERVED"
	TableStatusCLEANING  TableStatus = "CLEANING"
)

type PaymentMethod string

const (
	PaymentMethodCASH PaymentMethod = "CASH"
	PaymentMethodQRIS PaymentMethod = "QRIS"
)

type StockLogType string

const (
	StockLogTypeIN  StockLogType = "IN"
	StockLogTypeOUT StockLogType = "OUT"
)

type UserRole string

const (
	UserRoleADMIN   UserRole = "ADMIN"
	UserRoleCASHIER UserRole = "CASHIER"
	UserRoleWAITER  UserRole = "WAITER"
	UserRoleKITCHEN UserRole = "KITCHEN"
)

type Category struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	IsAvailable bool      `json:"is_available"`
	CreatedAt   time.Time `json:"created_at"`
}

type Ingredient struct {
	ID           uuid.UUID      `json:"id"`
	Name         string         `json:"name"`
	Unit         string         `json:"unit"`
	CurrentStock pgtype.Numeric `json:"current_stock"`
	MinStock     pgtype.Numeric `json:"min_stock"`
	CostPerUnit  int64          `json:"cost_per_unit"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

type Member struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Phone     string    `json:"phone"`
	Points    int32     `json:"points"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type MemberPointLog struct {
	ID        uuid.UUID   `json:"id"`
	MemberID  uuid.UUID   `json:"member_id"`
	OrderID   pgtype.UUID `json:"order_id"`
	Delta     int32       `json:"delta"`
	Reason    string      `json:"reason"`
	CreatedAt time.Time   `json:"created_at"`
}

type Menu struct {
	ID          uuid.UUID   `json:"id"`
	CategoryID  uuid.UUID   `json:"category_id"`
	Name        string      `json:"name"`
	Description pgtype.Text `json:"description"`
	Price       int64       `json:"price"`
	Image       pgtype.Text `json:"image"`
	IsAvailable bool        `json:"is_available"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

type Order struct {
	ID          uuid.UUID   `json:"id"`
	TableID     uuid.UUID   `json:"table_id"`
	UserID      pgtype.UUID `json:"user_id"`
	MemberID    pgtype.UUID `json:"member_id"`
	Status      OrderStatus `json:"status"`
	TotalAmount int64       `json:"total_amount"`
	Notes       pgtype.Text `json:"notes"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

type OrderDetail struct {
	ID        uuid.UUID   `json:"id"`
	OrderID   uuid.UUID   `json:"order_id"`
	MenuID    uuid.UUID   `json:"menu_id"`
	Qty       int32       `json:"qty"`
	Subtotal  int64       `json:"subtotal"`
	Notes     pgtype.Text `json:"notes"`
	CreatedAt time.Time   `json:"created_at"`
}

type Payment struct {
	ID              uuid.UUID     `json:"id"`
	OrderID         uuid.UUID     `json:"order_id"`
	Amount          int64         `json:"amount"`
	Method          PaymentMethod `json:"method"`
	AmountReceived  pgtype.Int8   `json:"amount_received"`
	ChangeAmount    pgtype.Int8   `json:"change_amount"`
	ReferenceNumber pgtype.Text   `json:"reference_number"`
	PointsEarned    int32         `json:"points_earned"`
	ProcessedBy     pgtype.UUID   `json:"processed_by"`
	CreatedAt       time.Time     `json:"created_at"`
}

type Recipe struct {
	MenuID       uuid.UUID      `json:"menu_id"`
	IngredientID uuid.UUID      `json:"ingredient_id"`
	QtyNeeded    pgtype.Numeric `json:"qty_needed"`
	Unit         string         `json:"unit"`
}

type StockLog struct {
	ID           uuid.UUID      `json:"id"`
	IngredientID uuid.UUID      `json:"ingredient_id"`
	Type         StockLogType   `json:"type"`
	Qty          pgtype.Numeric `json:"qty"`
	Notes        pgtype.Text    `json:"notes"`
	OrderID      pgtype.UUID    `json:"order_id"`
	CreatedAt    time.Time      `json:"created_at"`
}

type Table struct {
	ID        uuid.UUID   `json:"id"`
	TableNo   int32       `json:"table_no"`
	Capacity  int32       `json:"capacity"`
	Zone      pgtype.Text `json:"zone"`
	Status    TableStatus `json:"status"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}

type User struct {
	ID           uuid.UUID `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"password_hash"`
	FullName     string    `json:"full_name"`
	Role         UserRole  `json:"role"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
