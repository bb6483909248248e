package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/avialabs/exam-pool-service/internal/apperrors"
	"github.com/avialabs/exam-pool-service/internal/capacity"
	"github.com/avialabs/exam-pool-service/internal/domain"
	"github.com/avialabs/exam-pool-service/internal/identity"
	"github.com/avialabs/exam-pool-service/internal/repository"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// CreatePoolParams are the staff-supplied parameters of a new sitting window.
type CreatePoolParams struct {
	Name            string
	ExamDate        time.Time
	JoinDeadline    time.Time
	ConfirmDeadline time.Time
	MinCandidates   int
	MaxCandidates   int
}

type PoolService interface {
	CreatePool(ctx context.Context, caller identity.Caller, params CreatePoolParams) (*domain.ExamPool, error)
	Reserve(ctx context.Context, caller identity.Caller, poolID, candidateID, moduleCode, moduleName string) (*domain.ExamPool, error)
	ListPools(ctx context.Context, caller identity.Caller) ([]domain.ExamPool, error)
	ListPendingConfirmation(ctx context.Context, caller identity.Caller) ([]capacity.PendingPool, error)
}

type PoolServiceImpl struct {
	BaseService
	poolCmd   repository.PoolCommandRepository
	poolQuery repository.PoolQueryRepository
}

func NewPoolService(
	db Transactor,
	log *slog.Logger,
	poolCmd repository.PoolCommandRepository,
	poolQuery repository.PoolQueryRepository,
) *PoolServiceImpl {
	return &PoolServiceImpl{
		BaseService: NewBaseService(db, log),
		poolCmd:     poolCmd,
		poolQuery:   poolQuery,
	}
}

func (s *PoolServiceImpl) CreatePool(ctx context.Context, caller identity.Caller, params CreatePoolParams) (*domain.ExamPool, error) {
	const op = "internal.service.pool.CreatePool"

	if err := staffOnly(caller); err != nil {
		return nil, err
	}

	if err := validateCreateParams(params); err != nil {
		return nil, err
	}

	pool := &domain.ExamPool{
		ID:              uuid.NewString(),
		Name:            params.Name,
		Status:          domain.PoolStatusOpen,
		ExamDate:        params.ExamDate.UTC(),
		JoinDeadline:    params.JoinDeadline.UTC(),
		ConfirmDeadline: params.ConfirmDeadline.UTC(),
		MinCandidates:   params.MinCandidates,
		MaxCandidates:   params.MaxCandidates,
		Modules:         []domain.ModuleDemand{},
	}

	err := s.transaction(ctx, op, func(tx *sqlx.Tx) error {
		return s.poolCmd.CreatePool(ctx, tx, pool)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("pool created",
		slog.String("op", op),
		slog.String("pool_id", pool.ID),
		slog.String("staff_id", caller.ID),
	)

	return pool, nil
}

func (s *PoolServiceImpl) Reserve(ctx context.Context, caller identity.Caller, poolID, candidateID, moduleCode, moduleName string) (*domain.ExamPool, error) {
	const op = "internal.service.pool.Reserve"
	log := s.log.With(slog.String("op", op), slog.String("pool_id", poolID), slog.String("candidate_id", candidateID))

	if err := staffOnly(caller); err != nil {
		return nil, err
	}

	now := time.Now().UTC()

	var pool *domain.ExamPool

	err := s.transaction(ctx, op, func(tx *sqlx.Tx) error {
		var err error

		pool, err = s.poolCmd.GetPoolByIDWithLock(ctx, tx, poolID)
		if err != nil {
			return fmt.Errorf("%s: failed to get pool with lock: %w", op, err)
		}

		if !pool.IsActive() {
			return &apperrors.PreconditionFailedError{
				PoolID:    poolID,
				Condition: fmt.Sprintf("pool status is %s, expected OPEN", pool.Status),
			}
		}

		if now.After(pool.JoinDeadline) {
			return &apperrors.PreconditionFailedError{
				PoolID:    poolID,
				Condition: "join deadline has passed",
			}
		}

		if pool.CurrentCount >= pool.MaxCandidates {
			return &apperrors.PreconditionFailedError{
				PoolID:    poolID,
				Condition: fmt.Sprintf("pool is full (%d/%d)", pool.CurrentCount, pool.MaxCandidates),
			}
		}

		modules, err := s.poolQuery.GetPoolModules(ctx, tx, poolID)
		if err != nil {
			return fmt.Errorf("%s: failed to get modules: %w", op, err)
		}

		if isNewModule(modules, moduleCode) && len(modules) >= domain.MaxModulesPerSitting {
			return &apperrors.PreconditionFailedError{
				PoolID:    poolID,
				Condition: fmt.Sprintf("sitting already hosts %d modules", domain.MaxModulesPerSitting),
			}
		}

		res := &domain.Reservation{
			ID:          uuid.NewString(),
			PoolID:      poolID,
			CandidateID: candidateID,
			ModuleCode:  moduleCode,
		}

		if err := s.poolCmd.InsertReservation(ctx, tx, res); err != nil {
			return err
		}

		if err := s.poolCmd.UpsertModuleDemand(ctx, tx, poolID, moduleCode, moduleName); err != nil {
			return fmt.Errorf("%s: failed to upsert module demand: %w", op, err)
		}

		if err := s.poolCmd.IncrementCurrentCount(ctx, tx, poolID, 1); err != nil {
			return fmt.Errorf("%s: failed to increment count: %w", op, err)
		}

		pool.CurrentCount++

		pool.Modules, err = s.poolQuery.GetPoolModules(ctx, tx, poolID)
		if err != nil {
			return fmt.Errorf("%s: failed to reread modules: %w", op, err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Info("reservation added", slog.Int("current_count", pool.CurrentCount))

	return pool, nil
}

func (s *PoolServiceImpl) ListPools(ctx context.Context, caller identity.Caller) ([]domain.ExamPool, error) {
	const op = "internal.service.pool.ListPools"

	if err := staffOnly(caller); err != nil {
		return nil, err
	}

	pools, err := s.poolQuery.ListPools(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to list pools: %w", op, err)
	}

	return pools, nil
}

func (s *PoolServiceImpl) ListPendingConfirmation(ctx context.Context, caller identity.Caller) ([]capacity.PendingPool, error) {
	const op = "internal.service.pool.ListPendingConfirmation"

	if err := staffOnly(caller); err != nil {
		return nil, err
	}

	pools, err := s.poolQuery.ListPools(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to list pools: %w", op, err)
	}

	return capacity.ListPendingConfirmation(pools, time.Now().UTC()), nil
}

func validateCreateParams(params CreatePoolParams) error {
	switch {
	case params.MinCandidates <= 0:
		return fmt.Errorf("%w: min_candidates must be positive", apperrors.ErrValidation)
	case params.MinCandidates > params.MaxCandidates:
		return fmt.Errorf("%w: min_candidates must not exceed max_candidates", apperrors.ErrValidation)
	case params.JoinDeadline.After(params.ExamDate):
		return fmt.Errorf("%w: join_deadline must be before exam_date", apperrors.ErrValidation)
	case params.ConfirmDeadline.After(params.ExamDate):
		return fmt.Errorf("%w: confirm_deadline must be before exam_date", apperrors.ErrValidation)
	}

	return nil
}

func isNewModule(modules []domain.ModuleDemand, moduleCode string) bool {
	for _, m := range modules {
		if m.ModuleCode == moduleCode {
			return false
		}
	}

	return true
}
