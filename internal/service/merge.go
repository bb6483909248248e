package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/avialabs/exam-pool-service/internal/apperrors"
	"github.com/avialabs/exam-pool-service/internal/capacity"
	"github.com/avialabs/exam-pool-service/internal/domain"
	"github.com/avialabs/exam-pool-service/internal/identity"
	"github.com/avialabs/exam-pool-service/internal/notification"
	"github.com/avialabs/exam-pool-service/internal/repository"
	"github.com/avialabs/exam-pool-service/pkg/logger/sl"
	"github.com/jmoiron/sqlx"
)

// MergeService consolidates under-filled pools.
type MergeService interface {
	Merge(ctx context.Context, caller identity.Caller, sourcePoolID, targetPoolID string) (*domain.ExamPool, error)
	ListMergeCandidates(ctx context.Context, caller identity.Caller) ([]domain.MergeCandidate, error)
}

type MergeServiceImpl struct {
	BaseService
	poolCmd    repository.PoolCommandRepository
	poolQuery  repository.PoolQueryRepository
	dispatcher notification.Dispatcher
}

func NewMergeService(
	db Transactor,
	log *slog.Logger,
	poolCmd repository.PoolCommandRepository,
	poolQuery repository.PoolQueryRepository,
	dispatcher notification.Dispatcher,
) *MergeServiceImpl {
	return &MergeServiceImpl{
		BaseService: NewBaseService(db, log),
		poolCmd:     poolCmd,
		poolQuery:   poolQuery,
		dispatcher:  dispatcher,
	}
}

// Merge moves every reservation from the source pool into the target and
// cancels the source. Not commutative: the caller picks the survivor. The
// whole operation is a single transaction over both locked rows, so a
// constraint violation leaves both pools untouched.
func (s *MergeServiceImpl) Merge(ctx context.Context, caller identity.Caller, sourcePoolID, targetPoolID string) (*domain.ExamPool, error) {
	const op = "internal.service.merge.Merge"
	log := s.log.With(
		slog.String("op", op),
		slog.String("source_pool_id", sourcePoolID),
		slog.String("target_pool_id", targetPoolID),
		slog.String("staff_id", caller.ID),
	)

	if err := staffOnly(caller); err != nil {
		return nil, err
	}

	if sourcePoolID == targetPoolID {
		return nil, fmt.Errorf("%w: source and target pools must differ", apperrors.ErrValidation)
	}

	var (
		target *domain.ExamPool
		moved  []string
	)

	err := s.transaction(ctx, op, func(tx *sqlx.Tx) error {
		source, tgt, err := s.lockBoth(ctx, tx, sourcePoolID, targetPoolID)
		if err != nil {
			return err
		}

		target = tgt

		if !source.IsActive() {
			return &apperrors.PreconditionFailedError{
				PoolID:    sourcePoolID,
				Condition: fmt.Sprintf("source pool status is %s, expected OPEN", source.Status),
			}
		}

		if !target.IsActive() {
			return &apperrors.PreconditionFailedError{
				PoolID:    targetPoolID,
				Condition: fmt.Sprintf("target pool status is %s, expected OPEN", target.Status),
			}
		}

		combined := source.CurrentCount + target.CurrentCount
		if combined > target.MaxCandidates {
			return &apperrors.MergeConflictError{
				Constraint: "capacity",
				Detail: fmt.Sprintf("combined count %d exceeds target maximum %d",
					combined, target.MaxCandidates),
			}
		}

		source.Modules, err = s.poolQuery.GetPoolModules(ctx, tx, sourcePoolID)
		if err != nil {
			return fmt.Errorf("%s: failed to get source modules: %w", op, err)
		}

		target.Modules, err = s.poolQuery.GetPoolModules(ctx, tx, targetPoolID)
		if err != nil {
			return fmt.Errorf("%s: failed to get target modules: %w", op, err)
		}

		if n := capacity.CombinedModuleCount(source, target); n > domain.MaxModulesPerSitting {
			return &apperrors.MergeConflictError{
				Constraint: "module_limit",
				Detail: fmt.Sprintf("combined distinct modules %d exceed the %d-module sitting limit",
					n, domain.MaxModulesPerSitting),
			}
		}

		moved, err = s.poolCmd.ReassignReservations(ctx, tx, sourcePoolID, targetPoolID)
		if err != nil {
			return fmt.Errorf("%s: failed to reassign reservations: %w", op, err)
		}

		if err := s.poolCmd.MergeModuleDemands(ctx, tx, sourcePoolID, targetPoolID); err != nil {
			return fmt.Errorf("%s: failed to merge module demands: %w", op, err)
		}

		if err := s.poolCmd.IncrementCurrentCount(ctx, tx, targetPoolID, source.CurrentCount); err != nil {
			return fmt.Errorf("%s: failed to increment target count: %w", op, err)
		}

		if err := s.poolCmd.SetCurrentCount(ctx, tx, sourcePoolID, 0); err != nil {
			return fmt.Errorf("%s: failed to zero source count: %w", op, err)
		}

		mergeNote := fmt.Sprintf("merged into pool '%s'", target.Name)
		if err := s.poolCmd.UpdatePoolStatus(ctx, tx, sourcePoolID, source.Status, domain.PoolStatusCancelled, &mergeNote); err != nil {
			return fmt.Errorf("%s: failed to cancel source pool: %w", op, err)
		}

		target.CurrentCount += source.CurrentCount

		target.Modules, err = s.poolQuery.GetPoolModules(ctx, tx, targetPoolID)
		if err != nil {
			return fmt.Errorf("%s: failed to reread target modules: %w", op, err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	event := notification.MergeEvent{
		SourcePoolID: sourcePoolID,
		TargetPoolID: targetPoolID,
		MovedRoster:  moved,
	}
	if err := s.dispatcher.PoolsMerged(ctx, event); err != nil {
		s.log.Error("failed to dispatch merge event", sl.Err(err), slog.String("target_pool_id", targetPoolID))
	}

	log.Info("pools merged", slog.Int("moved", len(moved)), slog.Int("target_count", target.CurrentCount))

	return target, nil
}

func (s *MergeServiceImpl) ListMergeCandidates(ctx context.Context, caller identity.Caller) ([]domain.MergeCandidate, error) {
	const op = "internal.service.merge.ListMergeCandidates"

	if err := staffOnly(caller); err != nil {
		return nil, err
	}

	pools, err := s.poolQuery.ListPools(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to list pools: %w", op, err)
	}

	return capacity.FindMergeCandidates(pools), nil
}

// lockBoth acquires row locks on both pools in ascending id order, so two
// concurrent opposite-direction merges cannot deadlock.
func (s *MergeServiceImpl) lockBoth(ctx context.Context, tx *sqlx.Tx, sourceID, targetID string) (source, target *domain.ExamPool, err error) {
	const op = "internal.service.merge.lockBoth"

	firstID, secondID := sourceID, targetID
	if targetID < sourceID {
		firstID, secondID = targetID, sourceID
	}

	first, err := s.poolCmd.GetPoolByIDWithLock(ctx, tx, firstID)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: failed to lock pool: %w", op, err)
	}

	second, err := s.poolCmd.GetPoolByIDWithLock(ctx, tx, secondID)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: failed to lock pool: %w", op, err)
	}

	if first.ID == sourceID {
		return first, second, nil
	}

	return second, first, nil
}
