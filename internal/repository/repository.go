// package repository defines the interfaces for the data persistence layer.
// These interfaces abstract the underlying database implementation from the
// service layer; any store that honors the locking contracts can back them.
package repository

import (
	"context"

	"github.com/avialabs/exam-pool-service/internal/domain"
	"github.com/jmoiron/sqlx"
)

// PoolQueryRepository defines the read-only pool operations, following the
// CQRS split used across the service layer.
type PoolQueryRepository interface {
	// ListPools retrieves all pools with their module-demand breakdowns,
	// ordered by exam date.
	ListPools(ctx context.Context) ([]domain.ExamPool, error)

	// GetPoolByID retrieves a single pool with its module breakdown.
	// Returns apperrors.ErrNotFound if the pool does not exist.
	GetPoolByID(ctx context.Context, poolID string) (*domain.ExamPool, error)

	// GetPoolModules retrieves the module-demand rows of a pool in position
	// order. The ext argument allows execution inside a transaction (*sqlx.Tx)
	// or directly on a DB connection (*sqlx.DB).
	GetPoolModules(ctx context.Context, ext sqlx.ExtContext, poolID string) ([]domain.ModuleDemand, error)

	// GetPoolCandidateIDs retrieves the candidate IDs holding reservations in
	// a pool. Used to build event rosters and ledger calls.
	GetPoolCandidateIDs(ctx context.Context, ext sqlx.ExtContext, poolID string) ([]string, error)
}

// PoolCommandRepository defines the write and locking operations on pools.
// All methods are expected to be executed within a transaction.
type PoolCommandRepository interface {
	// CreatePool inserts a new pool record in OPEN status.
	CreatePool(ctx context.Context, tx *sqlx.Tx, pool *domain.ExamPool) error

	// GetPoolByIDWithLock retrieves a pool and acquires a row-level lock
	// ("FOR UPDATE") so no concurrent transition or reservation can race the
	// caller's read-modify-write.
	// Returns apperrors.ErrNotFound if the pool does not exist.
	GetPoolByIDWithLock(ctx context.Context, tx *sqlx.Tx, poolID string) (*domain.ExamPool, error)

	// UpdatePoolStatus performs the conditional transition from -> to. The
	// update matches on both id and the expected current status; if no row
	// matches (the status moved underneath the caller, despite the lock this
	// guards repository misuse too) it returns a PreconditionFailedError.
	// confirmed_at is stamped when to is CONFIRMED; reason, when non-nil, is
	// persisted as the audit fail/cancel reason.
	UpdatePoolStatus(ctx context.Context, tx *sqlx.Tx, poolID string, from, to domain.PoolStatus, reason *string) error

	// InsertReservation adds a candidate's paid reservation. Returns a
	// PreconditionFailedError for a duplicate candidate+module reservation and
	// apperrors.ErrNotFound when the pool is missing.
	InsertReservation(ctx context.Context, tx *sqlx.Tx, res *domain.Reservation) error

	// UpsertModuleDemand increments the demand counter of a module, creating
	// the module row at the next position when it is new to the pool.
	UpsertModuleDemand(ctx context.Context, tx *sqlx.Tx, poolID, moduleCode, moduleName string) error

	// IncrementCurrentCount adjusts the denormalized roster counter.
	IncrementCurrentCount(ctx context.Context, tx *sqlx.Tx, poolID string, delta int) error

	// SetCurrentCount overwrites the roster counter. Used on the merge source
	// after its reservations moved away.
	SetCurrentCount(ctx context.Context, tx *sqlx.Tx, poolID string, count int) error

	// AttachRoomAssignments stores per-module room/time assignments captured
	// at confirmation.
	AttachRoomAssignments(ctx context.Context, tx *sqlx.Tx, poolID string, assignments []domain.RoomAssignment) error

	// ReassignReservations moves every reservation from the source pool to the
	// target pool and returns the candidate IDs that moved.
	ReassignReservations(ctx context.Context, tx *sqlx.Tx, sourceID, targetID string) ([]string, error)

	// MergeModuleDemands folds the source pool's module-demand rows into the
	// target: shared codes are summed, new codes are appended after the
	// target's existing positions, and the source rows are removed.
	MergeModuleDemands(ctx context.Context, tx *sqlx.Tx, sourceID, targetID string) error
}
