package service

import (
	"context"
	"database/sql"

	"github.com/avialabs/exam-pool-service/internal/domain"
	"github.com/avialabs/exam-pool-service/internal/ledger"
	"github.com/avialabs/exam-pool-service/internal/notification"
	"github.com/avialabs/exam-pool-service/internal/repository"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
)

type TransactorMock struct {
	mock.Mock
}

var _ Transactor = (*TransactorMock)(nil)

func (m *TransactorMock) BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error) {
	args := m.Called(ctx, opts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*sqlx.Tx), args.Error(1)
}

type PoolCommandRepositoryMock struct {
	mock.Mock
}

var _ repository.PoolCommandRepository = (*PoolCommandRepositoryMock)(nil)

func (m *PoolCommandRepositoryMock) CreatePool(ctx context.Context, tx *sqlx.Tx, pool *domain.ExamPool) error {
	args := m.Called(ctx, tx, pool)
	return args.Error(0)
}

func (m *PoolCommandRepositoryMock) GetPoolByIDWithLock(ctx context.Context, tx *sqlx.Tx, poolID string) (*domain.ExamPool, error) {
	args := m.Called(ctx, tx, poolID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*domain.ExamPool), args.Error(1)
}

func (m *PoolCommandRepositoryMock) UpdatePoolStatus(ctx context.Context, tx *sqlx.Tx, poolID string, from, to domain.PoolStatus, reason *string) error {
	args := m.Called(ctx, tx, poolID, from, to, reason)
	return args.Error(0)
}

func (m *PoolCommandRepositoryMock) InsertReservation(ctx context.Context, tx *sqlx.Tx, res *domain.Reservation) error {
	args := m.Called(ctx, tx, res)
	return args.Error(0)
}

func (m *PoolCommandRepositoryMock) UpsertModuleDemand(ctx context.Context, tx *sqlx.Tx, poolID, moduleCode, moduleName string) error {
	args := m.Called(ctx, tx, poolID, moduleCode, moduleName)
	return args.Error(0)
}

func (m *PoolCommandRepositoryMock) IncrementCurrentCount(ctx context.Context, tx *sqlx.Tx, poolID string, delta int) error {
	args := m.Called(ctx, tx, poolID, delta)
	return args.Error(0)
}

func (m *PoolCommandRepositoryMock) SetCurrentCount(ctx context.Context, tx *sqlx.Tx, poolID string, count int) error {
	args := m.Called(ctx, tx, poolID, count)
	return args.Error(0)
}

func (m *PoolCommandRepositoryMock) AttachRoomAssignments(ctx context.Context, tx *sqlx.Tx, poolID string, assignments []domain.RoomAssignment) error {
	args := m.Called(ctx, tx, poolID, assignments)
	return args.Error(0)
}

func (m *PoolCommandRepositoryMock) ReassignReservations(ctx context.Context, tx *sqlx.Tx, sourceID, targetID string) ([]string, error) {
	args := m.Called(ctx, tx, sourceID, targetID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]string), args.Error(1)
}

func (m *PoolCommandRepositoryMock) MergeModuleDemands(ctx context.Context, tx *sqlx.Tx, sourceID, targetID string) error {
	args := m.Called(ctx, tx, sourceID, targetID)
	return args.Error(0)
}

type PoolQueryRepositoryMock struct {
	mock.Mock
}

var _ repository.PoolQueryRepository = (*PoolQueryRepositoryMock)(nil)

func (m *PoolQueryRepositoryMock) ListPools(ctx context.Context) ([]domain.ExamPool, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]domain.ExamPool), args.Error(1)
}

func (m *PoolQueryRepositoryMock) GetPoolByID(ctx context.Context, poolID string) (*domain.ExamPool, error) {
	args := m.Called(ctx, poolID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*domain.ExamPool), args.Error(1)
}

func (m *PoolQueryRepositoryMock) GetPoolModules(ctx context.Context, ext sqlx.ExtContext, poolID string) ([]domain.ModuleDemand, error) {
	args := m.Called(ctx, ext, poolID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]domain.ModuleDemand), args.Error(1)
}

func (m *PoolQueryRepositoryMock) GetPoolCandidateIDs(ctx context.Context, ext sqlx.ExtContext, poolID string) ([]string, error) {
	args := m.Called(ctx, ext, poolID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]string), args.Error(1)
}

type SeatLedgerMock struct {
	mock.Mock
}

var _ ledger.SeatLedger = (*SeatLedgerMock)(nil)

func (m *SeatLedgerMock) FinalizeHolds(ctx context.Context, poolID string, candidateIDs []string) error {
	args := m.Called(ctx, poolID, candidateIDs)
	return args.Error(0)
}

func (m *SeatLedgerMock) ReleaseHolds(ctx context.Context, poolID string, candidateIDs []string, reason string) error {
	args := m.Called(ctx, poolID, candidateIDs, reason)
	return args.Error(0)
}

func (m *SeatLedgerMock) IssueCredits(ctx context.Context, candidateIDs []string, amount decimal.Decimal, reason string) error {
	args := m.Called(ctx, candidateIDs, amount, reason)
	return args.Error(0)
}

type DispatcherMock struct {
	mock.Mock
}

var _ notification.Dispatcher = (*DispatcherMock)(nil)

func (m *DispatcherMock) PoolConfirmed(ctx context.Context, event notification.PoolEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func (m *DispatcherMock) PoolFailed(ctx context.Context, event notification.PoolEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func (m *DispatcherMock) PoolCancelled(ctx context.Context, event notification.PoolEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func (m *DispatcherMock) PoolsMerged(ctx context.Context, event notification.MergeEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}
