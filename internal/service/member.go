package service

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/thaicafe/pos-api/internal/database"
)

// DefaultPointsUnit is the spend that earns one loyalty point.
const DefaultPointsUnit = 1000

const recentPointLogs = 20

// MemberStore defines the DB methods needed for members and the point ledger.
// Satisfied by *database.Queries; narrow interface for testability.
type MemberStore interface {
	CreateMember(ctx context.Context, name, phone string) (database.Member, error)
	GetMember(ctx context.Context, id uuid.UUID) (database.Member, error)
	GetMemberByPhone(ctx context.Context, phone string) (database.Member, error)
	ListMembers(ctx context.Context, arg database.ListMembersParams) ([]database.Member, error)
	UpdateMember(ctx context.Context, id uuid.UUID, name, phone string) (database.Member, error)
	DeleteMember(ctx context.Context, id uuid.UUID) (int64, error)
	AddMemberPoints(ctx context.Context, id uuid.UUID, points int32) (database.Member, error)
	DeductMemberPoints(ctx context.Context, id uuid.UUID, points int32) (database.Member, error)
	CreateMemberPointLog(ctx context.Context, arg database.CreateMemberPointLogParams) (database.MemberPointLog, error)
	ListMemberPointLogs(ctx context.Context, memberID uuid.UUID, limit int32) ([]database.MemberPointLog, error)
	GetMemberStats(ctx context.Context, memberID uuid.UUID) (database.GetMemberStatsRow, error)
}

type NewMemberStore func(db database.DBTX) MemberStore

// pointLedger is the subset used to credit points inside another transaction.
type pointLedger interface {
	AddMemberPoints(ctx context.Context, id uuid.UUID, points int32) (database.Member, error)
	CreateMemberPointLog(ctx context.Context, arg database.CreateMemberPointLogParams) (database.MemberPointLog, error)
}

type MemberStats struct {
	Member       database.Member           `json:"member"`
	TotalOrders  int64                     `json:"total_orders"`
	TotalSpent   int64                     `json:"total_spent"`
	RecentPoints []database.MemberPointLog `json:"recent_points"`
}

type MemberService struct {
	pool     TxBeginner
	store    MemberStore
	newStore NewMemberStore
}

func NewMemberService(pool TxBeginner, store MemberStore, newStore NewMemberStore) *MemberService {
	return &MemberService{pool: pool, store: store, newStore: newStore}
}

// PointsForAmount is the accrual policy: one point per full unit spent.
// The result saturates at math.MaxInt32.
func PointsForAmount(total, unit int64) int32 {
	if unit <= 0 {
		unit = DefaultPointsUnit
	}
	if total <= 0 {
		return 0
	}
	points := total / unit
	if points > math.MaxInt32 {
		return math.MaxInt32
	}
	return int32(points)
}

func (s *MemberService) Create(ctx context.Context, name, phone string) (*database.Member, error) {
	m, err := s.store.CreateMember(ctx, name, phone)
	if err != nil {
		if isUniqueViolation(err, "") {
			return nil, ErrDuplicate
		}
		return nil, fmt.Errorf("create member: %w", err)
	}
	return &m, nil
}

func (s *MemberService) Get(ctx context.Context, id uuid.UUID) (*database.Member, error) {
	m, err := s.store.GetMember(ctx, id)
	if err != nil {
		return nil, notFound(err, ErrMemberNotFound)
	}
	return &m, nil
}

func (s *MemberService) GetByPhone(ctx context.Context, phone string) (*database.Member, error) {
	m, err := s.store.GetMemberByPhone(ctx, phone)
	if err != nil {
		return nil, notFound(err, ErrMemberNotFound)
	}
	return &m, nil
}

func (s *MemberService) List(ctx context.Context, search string, limit, offset int32) ([]database.Member, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	if offset < 0 {
		offset = 0
	}
	return s.store.ListMembers(ctx, database.ListMembersParams{
		Search: optText(search),
		Limit:  limit,
		Offset: offset,
	})
}

func (s *MemberService) Update(ctx context.Context, id uuid.UUID, name, phone string) (*database.Member, error) {
	m, err := s.store.UpdateMember(ctx, id, name, phone)
	if err != nil {
		if isUniqueViolation(err, "") {
			return nil, ErrDuplicate
		}
		return nil, notFound(err, ErrMemberNotFound)
	}
	return &m, nil
}

func (s *MemberService) Delete(ctx context.Context, id uuid.UUID) error {
	n, err := s.store.DeleteMember(ctx, id)
	if err != nil {
		return fmt.Errorf("delete member: %w", err)
	}
	if n == 0 {
		return ErrMemberNotFound
	}
	return nil
}

// AddPoints credits points manually (e.g. a promotion).
func (s *MemberService) AddPoints(ctx context.Context, memberID uuid.UUID, points int32, reason string) (*database.Member, error) {
	if points <= 0 {
		return nil, ErrInvalidPoints
	}
	if reason == "" {
		reason = "Manual credit"
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	m, err := creditPoints(ctx, s.newStore(tx), memberID, points, reason, pgtype.UUID{})
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}
	return &m, nil
}

// RedeemPoints spends points. The balance never goes below zero.
func (s *MemberService) RedeemPoints(ctx context.Context, memberID uuid.UUID, points int32, reason string) (*database.Member, error) {
	if points <= 0 {
		return nil, ErrInvalidPoints
	}
	if reason == "" {
		reason = "Redeem"
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	if _, err := store.GetMember(ctx, memberID); err != nil {
		return nil, notFound(err, ErrMemberNotFound)
	}
	m, err := store.DeductMemberPoints(ctx, memberID, points)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrInsufficientPoints
		}
		return nil, fmt.Errorf("deduct points: %w", err)
	}
	if _, err := store.CreateMemberPointLog(ctx, database.CreateMemberPointLogParams{
		MemberID: memberID,
		Delta:    -points,
		Reason:   reason,
	}); err != nil {
		return nil, fmt.Errorf("create point log: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}
	return &m, nil
}

// Stats returns completed orders, total spent and recent ledger entries.
func (s *MemberService) Stats(ctx context.Context, memberID uuid.UUID) (*MemberStats, error) {
	m, err := s.store.GetMember(ctx, memberID)
	if err != nil {
		return nil, notFound(err, ErrMemberNotFound)
	}
	row, err := s.store.GetMemberStats(ctx, memberID)
	if err != nil {
		return nil, fmt.Errorf("member stats: %w", err)
	}
	logs, err := s.store.ListMemberPointLogs(ctx, memberID, recentPointLogs)
	if err != nil {
		return nil, fmt.Errorf("list point logs: %w", err)
	}
	return &MemberStats{
		Member:       m,
		TotalOrders:  row.TotalOrders,
		TotalSpent:   row.TotalSpent,
		RecentPoints: logs,
	}, nil
}

// creditPoints writes a ledger row and increments the balance atomically.
func creditPoints(ctx context.Context, store pointLedger, memberID uuid.UUID, points int32, reason string, orderID pgtype.UUID) (database.Member, error) {
	m, err := store.AddMemberPoints(ctx, memberID, points)
	if err != nil {
		return database.Member{}, notFound(err, ErrMemberNotFound)
	}
	if _, err := store.CreateMemberPointLog(ctx, database.CreateMemberPointLogParams{
		MemberID: memberID,
		OrderID:  orderID,
		Delta:    points,
		Reason:   reason,
	}); err != nil {
		return database.Member{}, fmt.Errorf("create point log: %w", err)
	}
	return m, nil
}
