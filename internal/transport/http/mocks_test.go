package http

import (
	"context"

	"github.com/avialabs/exam-pool-service/internal/capacity"
	"github.com/avialabs/exam-pool-service/internal/domain"
	"github.com/avialabs/exam-pool-service/internal/identity"
	"github.com/avialabs/exam-pool-service/internal/service"
	"github.com/stretchr/testify/mock"
)

type PoolServiceMock struct {
	mock.Mock
}

var _ service.PoolService = (*PoolServiceMock)(nil)

func (m *PoolServiceMock) CreatePool(ctx context.Context, caller identity.Caller, params service.CreatePoolParams) (*domain.ExamPool, error) {
	args := m.Called(ctx, caller, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*domain.ExamPool), args.Error(1)
}

func (m *PoolServiceMock) Reserve(ctx context.Context, caller identity.Caller, poolID, candidateID, moduleCode, moduleName string) (*domain.ExamPool, error) {
	args := m.Called(ctx, caller, poolID, candidateID, moduleCode, moduleName)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*domain.ExamPool), args.Error(1)
}

func (m *PoolServiceMock) ListPools(ctx context.Context, caller identity.Caller) ([]domain.ExamPool, error) {
	args := m.Called(ctx, caller)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]domain.ExamPool), args.Error(1)
}

func (m *PoolServiceMock) ListPendingConfirmation(ctx context.Context, caller identity.Caller) ([]capacity.PendingPool, error) {
	args := m.Called(ctx, caller)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]capacity.PendingPool), args.Error(1)
}

type ConfirmationServiceMock struct {
	mock.Mock
}

var _ service.ConfirmationService = (*ConfirmationServiceMock)(nil)

func (m *ConfirmationServiceMock) Confirm(ctx context.Context, caller identity.Caller, poolID string, assignments []domain.RoomAssignment) (*domain.ExamPool, error) {
	args := m.Called(ctx, caller, poolID, assignments)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*domain.ExamPool), args.Error(1)
}

func (m *ConfirmationServiceMock) Fail(ctx context.Context, caller identity.Caller, poolID, reason string) (*domain.ExamPool, error) {
	args := m.Called(ctx, caller, poolID, reason)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*domain.ExamPool), args.Error(1)
}

func (m *ConfirmationServiceMock) Cancel(ctx context.Context, caller identity.Caller, poolID, reason string) (*domain.ExamPool, error) {
	args := m.Called(ctx, caller, poolID, reason)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*domain.ExamPool), args.Error(1)
}

type MergeServiceMock struct {
	mock.Mock
}

var _ service.MergeService = (*MergeServiceMock)(nil)

func (m *MergeServiceMock) Merge(ctx context.Context, caller identity.Caller, sourcePoolID, targetPoolID string) (*domain.ExamPool, error) {
	args := m.Called(ctx, caller, sourcePoolID, targetPoolID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*domain.ExamPool), args.Error(1)
}

func (m *MergeServiceMock) ListMergeCandidates(ctx context.Context, caller identity.Caller) ([]domain.MergeCandidate, error) {
	args := m.Called(ctx, caller)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]domain.MergeCandidate), args.Error(1)
}
