package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/avialabs/exam-pool-service/internal/apperrors"
	"github.com/avialabs/exam-pool-service/internal/domain"
	"github.com/avialabs/exam-pool-service/internal/identity"
	"github.com/avialabs/exam-pool-service/internal/ledger"
	"github.com/avialabs/exam-pool-service/internal/notification"
	"github.com/avialabs/exam-pool-service/internal/repository"
	"github.com/avialabs/exam-pool-service/pkg/logger/sl"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
)

// ConfirmationService performs the one-way go/no-go transitions on a pool.
type ConfirmationService interface {
	Confirm(ctx context.Context, caller identity.Caller, poolID string, assignments []domain.RoomAssignment) (*domain.ExamPool, error)
	Fail(ctx context.Context, caller identity.Caller, poolID, reason string) (*domain.ExamPool, error)
	Cancel(ctx context.Context, caller identity.Caller, poolID, reason string) (*domain.ExamPool, error)
}

type ConfirmationServiceImpl struct {
	BaseService
	poolCmd    repository.PoolCommandRepository
	poolQuery  repository.PoolQueryRepository
	seatLedger ledger.SeatLedger
	dispatcher notification.Dispatcher
	seatCredit decimal.Decimal
}

func NewConfirmationService(
	db Transactor,
	log *slog.Logger,
	poolCmd repository.PoolCommandRepository,
	poolQuery repository.PoolQueryRepository,
	seatLedger ledger.SeatLedger,
	dispatcher notification.Dispatcher,
	seatCredit decimal.Decimal,
) *ConfirmationServiceImpl {
	return &ConfirmationServiceImpl{
		BaseService: NewBaseService(db, log),
		poolCmd:     poolCmd,
		poolQuery:   poolQuery,
		seatLedger:  seatLedger,
		dispatcher:  dispatcher,
		seatCredit:  seatCredit,
	}
}

// Confirm transitions an open pool at or above its minimum into the binding
// CONFIRMED state, attaching the optional per-module room/time assignments.
// Confirming an already-CONFIRMED pool is a no-op that returns the current
// state; any other status is a precondition failure.
func (s *ConfirmationServiceImpl) Confirm(ctx context.Context, caller identity.Caller, poolID string, assignments []domain.RoomAssignment) (*domain.ExamPool, error) {
	const op = "internal.service.confirmation.Confirm"
	log := s.log.With(slog.String("op", op), slog.String("pool_id", poolID), slog.String("staff_id", caller.ID))

	if err := staffOnly(caller); err != nil {
		return nil, err
	}

	var (
		pool             *domain.ExamPool
		roster           []string
		alreadyConfirmed bool
	)

	err := s.transaction(ctx, op, func(tx *sqlx.Tx) error {
		var err error

		pool, err = s.poolCmd.GetPoolByIDWithLock(ctx, tx, poolID)
		if err != nil {
			return fmt.Errorf("%s: failed to get pool with lock: %w", op, err)
		}

		if pool.Status == domain.PoolStatusConfirmed {
			alreadyConfirmed = true

			pool.Modules, err = s.poolQuery.GetPoolModules(ctx, tx, poolID)
			if err != nil {
				return fmt.Errorf("%s: failed to get modules: %w", op, err)
			}

			return nil
		}

		if !pool.IsActive() {
			return &apperrors.PreconditionFailedError{
				PoolID:    poolID,
				Condition: fmt.Sprintf("pool status is %s, expected OPEN", pool.Status),
			}
		}

		if !pool.AtMinimum() {
			return &apperrors.PreconditionFailedError{
				PoolID:    poolID,
				Condition: fmt.Sprintf("current count %d is below minimum %d", pool.CurrentCount, pool.MinCandidates),
			}
		}

		if err := s.poolCmd.UpdatePoolStatus(ctx, tx, poolID, pool.Status, domain.PoolStatusConfirmed, nil); err != nil {
			return fmt.Errorf("%s: failed to update status: %w", op, err)
		}

		if err := s.poolCmd.AttachRoomAssignments(ctx, tx, poolID, assignments); err != nil {
			return fmt.Errorf("%s: failed to attach assignments: %w", op, err)
		}

		roster, err = s.poolQuery.GetPoolCandidateIDs(ctx, tx, poolID)
		if err != nil {
			return fmt.Errorf("%s: failed to get roster: %w", op, err)
		}

		pool.Modules, err = s.poolQuery.GetPoolModules(ctx, tx, poolID)
		if err != nil {
			return fmt.Errorf("%s: failed to get modules: %w", op, err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	if alreadyConfirmed {
		log.Info("pool already confirmed, returning current state")

		return pool, nil
	}

	pool.Status = domain.PoolStatusConfirmed

	s.notifyConfirmed(ctx, pool, roster)

	log.Info("pool confirmed", slog.Int("roster_size", len(roster)))

	return pool, nil
}

// Fail records a no-go decision. The reason is mandatory: it becomes the audit
// trail and the justification for candidate compensation.
func (s *ConfirmationServiceImpl) Fail(ctx context.Context, caller identity.Caller, poolID, reason string) (*domain.ExamPool, error) {
	const op = "internal.service.confirmation.Fail"
	log := s.log.With(slog.String("op", op), slog.String("pool_id", poolID), slog.String("staff_id", caller.ID))

	if err := staffOnly(caller); err != nil {
		return nil, err
	}

	if strings.TrimSpace(reason) == "" {
		return nil, fmt.Errorf("%w: fail reason is required", apperrors.ErrValidation)
	}

	var (
		pool          *domain.ExamPool
		roster        []string
		alreadyFailed bool
	)

	err := s.transaction(ctx, op, func(tx *sqlx.Tx) error {
		var err error

		pool, err = s.poolCmd.GetPoolByIDWithLock(ctx, tx, poolID)
		if err != nil {
			return fmt.Errorf("%s: failed to get pool with lock: %w", op, err)
		}

		switch pool.Status {
		case domain.PoolStatusFailed:
			alreadyFailed = true

			pool.Modules, err = s.poolQuery.GetPoolModules(ctx, tx, poolID)
			if err != nil {
				return fmt.Errorf("%s: failed to get modules: %w", op, err)
			}

			return nil
		case domain.PoolStatusConfirmed, domain.PoolStatusCompleted:
			// Failing a confirmed pool requires the explicit cancellation
			// path, not this operation.
			return &apperrors.PreconditionFailedError{
				PoolID:    poolID,
				Condition: fmt.Sprintf("pool status is %s and can no longer be failed", pool.Status),
			}
		}

		if err := s.poolCmd.UpdatePoolStatus(ctx, tx, poolID, pool.Status, domain.PoolStatusFailed, &reason); err != nil {
			return fmt.Errorf("%s: failed to update status: %w", op, err)
		}

		roster, err = s.poolQuery.GetPoolCandidateIDs(ctx, tx, poolID)
		if err != nil {
			return fmt.Errorf("%s: failed to get roster: %w", op, err)
		}

		pool.Modules, err = s.poolQuery.GetPoolModules(ctx, tx, poolID)
		if err != nil {
			return fmt.Errorf("%s: failed to get modules: %w", op, err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	if alreadyFailed {
		log.Info("pool already failed, returning current state")

		return pool, nil
	}

	pool.Status = domain.PoolStatusFailed
	pool.FailReason = &reason

	s.compensateAndNotifyFailed(ctx, pool, roster, reason)

	log.Info("pool failed", slog.String("reason", reason), slog.Int("roster_size", len(roster)))

	return pool, nil
}

// Cancel is the pre-emptive staff cancellation of an active pool.
func (s *ConfirmationServiceImpl) Cancel(ctx context.Context, caller identity.Caller, poolID, reason string) (*domain.ExamPool, error) {
	const op = "internal.service.confirmation.Cancel"
	log := s.log.With(slog.String("op", op), slog.String("pool_id", poolID), slog.String("staff_id", caller.ID))

	if err := staffOnly(caller); err != nil {
		return nil, err
	}

	if strings.TrimSpace(reason) == "" {
		return nil, fmt.Errorf("%w: cancel reason is required", apperrors.ErrValidation)
	}

	var (
		pool             *domain.ExamPool
		roster           []string
		alreadyCancelled bool
	)

	err := s.transaction(ctx, op, func(tx *sqlx.Tx) error {
		var err error

		pool, err = s.poolCmd.GetPoolByIDWithLock(ctx, tx, poolID)
		if err != nil {
			return fmt.Errorf("%s: failed to get pool with lock: %w", op, err)
		}

		if pool.Status == domain.PoolStatusCancelled {
			alreadyCancelled = true

			pool.Modules, err = s.poolQuery.GetPoolModules(ctx, tx, poolID)
			if err != nil {
				return fmt.Errorf("%s: failed to get modules: %w", op, err)
			}

			return nil
		}

		if !pool.IsActive() {
			return &apperrors.PreconditionFailedError{
				PoolID:    poolID,
				Condition: fmt.Sprintf("pool status is %s, expected OPEN", pool.Status),
			}
		}

		if err := s.poolCmd.UpdatePoolStatus(ctx, tx, poolID, pool.Status, domain.PoolStatusCancelled, &reason); err != nil {
			return fmt.Errorf("%s: failed to update status: %w", op, err)
		}

		roster, err = s.poolQuery.GetPoolCandidateIDs(ctx, tx, poolID)
		if err != nil {
			return fmt.Errorf("%s: failed to get roster: %w", op, err)
		}

		pool.Modules, err = s.poolQuery.GetPoolModules(ctx, tx, poolID)
		if err != nil {
			return fmt.Errorf("%s: failed to get modules: %w", op, err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	if alreadyCancelled {
		log.Info("pool already cancelled, returning current state")

		return pool, nil
	}

	pool.Status = domain.PoolStatusCancelled
	pool.FailReason = &reason

	s.releaseAndNotifyCancelled(ctx, pool, roster, reason)

	log.Info("pool cancelled", slog.String("reason", reason), slog.Int("roster_size", len(roster)))

	return pool, nil
}

// Collaborator calls happen after the transaction commits. Their failures are
// logged, never surfaced: the transition already happened.

func (s *ConfirmationServiceImpl) notifyConfirmed(ctx context.Context, pool *domain.ExamPool, roster []string) {
	if err := s.seatLedger.FinalizeHolds(ctx, pool.ID, roster); err != nil {
		s.log.Error("failed to finalize seat holds", sl.Err(err), slog.String("pool_id", pool.ID))
	}

	event := notification.PoolEvent{PoolID: pool.ID, PoolName: pool.Name, Roster: roster}
	if err := s.dispatcher.PoolConfirmed(ctx, event); err != nil {
		s.log.Error("failed to dispatch confirmation event", sl.Err(err), slog.String("pool_id", pool.ID))
	}
}

func (s *ConfirmationServiceImpl) compensateAndNotifyFailed(ctx context.Context, pool *domain.ExamPool, roster []string, reason string) {
	if err := s.seatLedger.ReleaseHolds(ctx, pool.ID, roster, reason); err != nil {
		s.log.Error("failed to release seat holds", sl.Err(err), slog.String("pool_id", pool.ID))
	}

	if err := s.seatLedger.IssueCredits(ctx, roster, s.seatCredit, reason); err != nil {
		s.log.Error("failed to issue credits", sl.Err(err), slog.String("pool_id", pool.ID))
	}

	event := notification.PoolEvent{PoolID: pool.ID, PoolName: pool.Name, Roster: roster, Reason: reason}
	if err := s.dispatcher.PoolFailed(ctx, event); err != nil {
		s.log.Error("failed to dispatch failure event", sl.Err(err), slog.String("pool_id", pool.ID))
	}
}

func (s *ConfirmationServiceImpl) releaseAndNotifyCancelled(ctx context.Context, pool *domain.ExamPool, roster []string, reason string) {
	if err := s.seatLedger.ReleaseHolds(ctx, pool.ID, roster, reason); err != nil {
		s.log.Error("failed to release seat holds", sl.Err(err), slog.String("pool_id", pool.ID))
	}

	event := notification.PoolEvent{PoolID: pool.ID, PoolName: pool.Name, Roster: roster, Reason: reason}
	if err := s.dispatcher.PoolCancelled(ctx, event); err != nil {
		s.log.Error("failed to dispatch cancellation event", sl.Err(err), slog.String("pool_id", pool.ID))
	}
}
