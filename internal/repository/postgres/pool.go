package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/avialabs/exam-pool-service/internal/apperrors"
	"github.com/avialabs/exam-pool-service/internal/domain"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

const (
	pqUniqueViolation     = "23505"
	pqForeignKeyViolation = "23503"
)

var poolColumns = []string{
	"id", "name", "status", "exam_date", "join_deadline", "confirm_deadline",
	"current_count", "min_candidates", "max_candidates", "fail_reason",
	"confirmed_at", "created_at",
}

type PoolRepository struct {
	db  *sqlx.DB
	log *slog.Logger
	sq  sq.StatementBuilderType
}

func NewPoolRepository(db *sqlx.DB, log *slog.Logger) *PoolRepository {
	return &PoolRepository{
		db:  db,
		log: log,
		sq:  sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

func (r *PoolRepository) ListPools(ctx context.Context) ([]domain.ExamPool, error) {
	const op = "internal.repository.postgres.ListPools"

	query, args, err := r.sq.Select(poolColumns...).
		From("exam_pools").
		OrderBy("exam_date", "created_at").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%s: failed to build query: %w", op, err)
	}

	var pools []domain.ExamPool
	if err := r.db.SelectContext(ctx, &pools, query, args...); err != nil {
		return nil, fmt.Errorf("%s: failed to execute query: %w", op, err)
	}

	if len(pools) == 0 {
		return []domain.ExamPool{}, nil
	}

	modulesByPool, err := r.getModulesForPools(ctx, pools)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to get modules: %w", op, err)
	}

	for i := range pools {
		pools[i].Modules = modulesByPool[pools[i].ID]
	}

	return pools, nil
}

func (r *PoolRepository) GetPoolByID(ctx context.Context, poolID string) (*domain.ExamPool, error) {
	const op = "internal.repository.postgres.GetPoolByID"

	query, args, err := r.sq.Select(poolColumns...).
		From("exam_pools").
		Where(sq.Eq{"id": poolID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%s: failed to build query: %w", op, err)
	}

	var pool domain.ExamPool
	if err := r.db.GetContext(ctx, &pool, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w: pool with id '%s'", op, apperrors.ErrNotFound, poolID)
		}

		return nil, fmt.Errorf("%s: failed to get pool: %w", op, err)
	}

	modules, err := r.GetPoolModules(ctx, r.db, poolID)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to get modules: %w", op, err)
	}

	pool.Modules = modules

	return &pool, nil
}

func (r *PoolRepository) GetPoolModules(ctx context.Context, ext sqlx.ExtContext, poolID string) ([]domain.ModuleDemand, error) {
	const op = "internal.repository.postgres.GetPoolModules"

	query, args, err := r.sq.Select("pool_id", "module_code", "module_name", "demand_count", "position").
		From("pool_modules").
		Where(sq.Eq{"pool_id": poolID}).
		OrderBy("position").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%s: failed to build query: %w", op, err)
	}

	var modules []domain.ModuleDemand
	if err := sqlx.SelectContext(ctx, ext, &modules, query, args...); err != nil {
		return nil, fmt.Errorf("%s: failed to select modules: %w", op, err)
	}

	return modules, nil
}

func (r *PoolRepository) GetPoolCandidateIDs(ctx context.Context, ext sqlx.ExtContext, poolID string) ([]string, error) {
	const op = "internal.repository.postgres.GetPoolCandidateIDs"

	query, args, err := r.sq.Select("DISTINCT candidate_id").
		From("reservations").
		Where(sq.Eq{"pool_id": poolID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%s: failed to build query: %w", op, err)
	}

	var candidateIDs []string
	if err := sqlx.SelectContext(ctx, ext, &candidateIDs, query, args...); err != nil {
		return nil, fmt.Errorf("%s: failed to select candidates: %w", op, err)
	}

	return candidateIDs, nil
}

func (r *PoolRepository) CreatePool(ctx context.Context, tx *sqlx.Tx, pool *domain.ExamPool) error {
	const op = "internal.repository.postgres.CreatePool"

	query, args, err := r.sq.Insert("exam_pools").
		Columns("id", "name", "status", "exam_date", "join_deadline", "confirm_deadline",
			"current_count", "min_candidates", "max_candidates").
		Values(pool.ID, pool.Name, pool.Status, pool.ExamDate, pool.JoinDeadline,
			pool.ConfirmDeadline, pool.CurrentCount, pool.MinCandidates, pool.MaxCandidates).
		Suffix("RETURNING created_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("%s: failed to build insert query: %w", op, err)
	}

	if err := tx.QueryRowxContext(ctx, query, args...).Scan(&pool.CreatedAt); err != nil {
		return fmt.Errorf("%s: failed to execute insert: %w", op, err)
	}

	return nil
}

func (r *PoolRepository) GetPoolByIDWithLock(ctx context.Context, tx *sqlx.Tx, poolID string) (*domain.ExamPool, error) {
	const op = "internal.repository.postgres.GetPoolByIDWithLock"

	query, args, err := r.sq.Select(poolColumns...).
		From("exam_pools").
		Where(sq.Eq{"id": poolID}).
		Suffix("FOR UPDATE").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%s: failed to build query: %w", op, err)
	}

	var pool domain.ExamPool
	if err := tx.GetContext(ctx, &pool, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w: pool with id '%s'", op, apperrors.ErrNotFound, poolID)
		}

		return nil, fmt.Errorf("%s: failed to get pool with lock: %w", op, err)
	}

	return &pool, nil
}

func (r *PoolRepository) UpdatePoolStatus(ctx context.Context, tx *sqlx.Tx, poolID string, from, to domain.PoolStatus, reason *string) error {
	const op = "internal.repository.postgres.UpdatePoolStatus"

	updateBuilder := r.sq.Update("exam_pools").
		Set("status", to).
		Where(sq.Eq{"id": poolID, "status": from})

	if to == domain.PoolStatusConfirmed {
		updateBuilder = updateBuilder.Set("confirmed_at", time.Now().UTC())
	}

	if reason != nil {
		updateBuilder = updateBuilder.Set("fail_reason", *reason)
	}

	query, args, err := updateBuilder.ToSql()
	if err != nil {
		return fmt.Errorf("%s: failed to build update query: %w", op, err)
	}

	res, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%s: failed to execute update: %w", op, err)
	}

	if rowsAffected, err := res.RowsAffected(); err == nil && rowsAffected == 0 {
		return &apperrors.PreconditionFailedError{
			PoolID:    poolID,
			Condition: fmt.Sprintf("pool is no longer %s", from),
		}
	}

	return nil
}

func (r *PoolRepository) InsertReservation(ctx context.Context, tx *sqlx.Tx, res *domain.Reservation) error {
	const op = "internal.repository.postgres.InsertReservation"

	query, args, err := r.sq.Insert("reservations").
		Columns("id", "pool_id", "candidate_id", "module_code").
		Values(res.ID, res.PoolID, res.CandidateID, res.ModuleCode).
		ToSql()
	if err != nil {
		return fmt.Errorf("%s: failed to build insert query: %w", op, err)
	}

	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		if pqErr, ok := err.(*pq.Error); ok {
			if pqErr.Code == pqUniqueViolation {
				return &apperrors.PreconditionFailedError{
					PoolID:    res.PoolID,
					Condition: fmt.Sprintf("candidate '%s' already holds a reservation for module '%s'", res.CandidateID, res.ModuleCode),
				}
			}

			if pqErr.Code == pqForeignKeyViolation {
				return fmt.Errorf("%s: %w: pool with id '%s'", op, apperrors.ErrNotFound, res.PoolID)
			}
		}

		return fmt.Errorf("%s: failed to execute insert: %w", op, err)
	}

	return nil
}

func (r *PoolRepository) UpsertModuleDemand(ctx context.Context, tx *sqlx.Tx, poolID, moduleCode, moduleName string) error {
	const op = "internal.repository.postgres.UpsertModuleDemand"

	query, args, err := r.sq.Insert("pool_modules").
		Columns("pool_id", "module_code", "module_name", "demand_count", "position").
		Values(poolID, moduleCode, moduleName, 1,
			sq.Expr("(SELECT COALESCE(MAX(position), 0) + 1 FROM pool_modules WHERE pool_id = ?)", poolID)).
		Suffix("ON CONFLICT (pool_id, module_code) DO UPDATE SET demand_count = pool_modules.demand_count + 1").
		ToSql()
	if err != nil {
		return fmt.Errorf("%s: failed to build upsert query: %w", op, err)
	}

	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("%s: failed to execute upsert: %w", op, err)
	}

	return nil
}

func (r *PoolRepository) IncrementCurrentCount(ctx context.Context, tx *sqlx.Tx, poolID string, delta int) error {
	const op = "internal.repository.postgres.IncrementCurrentCount"

	query, args, err := r.sq.Update("exam_pools").
		Set("current_count", sq.Expr("current_count + ?", delta)).
		Where(sq.Eq{"id": poolID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("%s: failed to build update query: %w", op, err)
	}

	res, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%s: failed to execute update: %w", op, err)
	}

	if rowsAffected, err := res.RowsAffected(); err == nil && rowsAffected == 0 {
		return fmt.Errorf("%s: %w: pool with id '%s'", op, apperrors.ErrNotFound, poolID)
	}

	return nil
}

func (r *PoolRepository) SetCurrentCount(ctx context.Context, tx *sqlx.Tx, poolID string, count int) error {
	const op = "internal.repository.postgres.SetCurrentCount"

	query, args, err := r.sq.Update("exam_pools").
		Set("current_count", count).
		Where(sq.Eq{"id": poolID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("%s: failed to build update query: %w", op, err)
	}

	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("%s: failed to execute update: %w", op, err)
	}

	return nil
}

func (r *PoolRepository) AttachRoomAssignments(ctx context.Context, tx *sqlx.Tx, poolID string, assignments []domain.RoomAssignment) error {
	const op = "internal.repository.postgres.AttachRoomAssignments"

	if len(assignments) == 0 {
		return nil
	}

	insertBuilder := r.sq.Insert("room_assignments").
		Columns("pool_id", "module_code", "room", "exam_time")

	for _, a := range assignments {
		insertBuilder = insertBuilder.Values(poolID, a.ModuleCode, a.Room, a.ExamTime)
	}

	query, args, err := insertBuilder.
		Suffix("ON CONFLICT (pool_id, module_code) DO UPDATE SET room = EXCLUDED.room, exam_time = EXCLUDED.exam_time").
		ToSql()
	if err != nil {
		return fmt.Errorf("%s: failed to build insert query: %w", op, err)
	}

	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("%s: failed to execute insert: %w", op, err)
	}

	return nil
}

func (r *PoolRepository) ReassignReservations(ctx context.Context, tx *sqlx.Tx, sourceID, targetID string) ([]string, error) {
	const op = "internal.repository.postgres.ReassignReservations"

	query, args, err := r.sq.Update("reservations").
		Set("pool_id", targetID).
		Where(sq.Eq{"pool_id": sourceID}).
		Suffix("RETURNING candidate_id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%s: failed to build update query: %w", op, err)
	}

	var movedCandidateIDs []string
	if err := tx.SelectContext(ctx, &movedCandidateIDs, query, args...); err != nil {
		return nil, fmt.Errorf("%s: failed to execute update: %w", op, err)
	}

	return movedCandidateIDs, nil
}

// MergeModuleDemands folds source module rows into the target. Squirrel has
// no ergonomic UPDATE ... FROM / INSERT ... SELECT, so these statements are
// written out by hand.
func (r *PoolRepository) MergeModuleDemands(ctx context.Context, tx *sqlx.Tx, sourceID, targetID string) error {
	const op = "internal.repository.postgres.MergeModuleDemands"

	// Shared codes: add the source demand onto the target row.
	const sumQuery = `
		UPDATE pool_modules AS tgt
		SET demand_count = tgt.demand_count + src.demand_count
		FROM pool_modules AS src
		WHERE tgt.pool_id = $1
		  AND src.pool_id = $2
		  AND src.module_code = tgt.module_code`

	if _, err := tx.ExecContext(ctx, sumQuery, targetID, sourceID); err != nil {
		return fmt.Errorf("%s: failed to sum shared modules: %w", op, err)
	}

	// Codes new to the target: append after its existing positions, keeping
	// the source's relative order.
	const appendQuery = `
		INSERT INTO pool_modules (pool_id, module_code, module_name, demand_count, position)
		SELECT $1, src.module_code, src.module_name, src.demand_count,
		       (SELECT COALESCE(MAX(position), 0) FROM pool_modules WHERE pool_id = $1)
		           + ROW_NUMBER() OVER (ORDER BY src.position)
		FROM pool_modules AS src
		WHERE src.pool_id = $2
		  AND NOT EXISTS (
		      SELECT 1 FROM pool_modules tgt
		      WHERE tgt.pool_id = $1 AND tgt.module_code = src.module_code
		  )`

	if _, err := tx.ExecContext(ctx, appendQuery, targetID, sourceID); err != nil {
		return fmt.Errorf("%s: failed to append new modules: %w", op, err)
	}

	deleteQuery, deleteArgs, err := r.sq.Delete("pool_modules").
		Where(sq.Eq{"pool_id": sourceID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("%s: failed to build delete query: %w", op, err)
	}

	if _, err := tx.ExecContext(ctx, deleteQuery, deleteArgs...); err != nil {
		return fmt.Errorf("%s: failed to delete source modules: %w", op, err)
	}

	return nil
}

func (r *PoolRepository) getModulesForPools(ctx context.Context, pools []domain.ExamPool) (map[string][]domain.ModuleDemand, error) {
	const op = "internal.repository.postgres.getModulesForPools"

	poolIDs := make([]string, len(pools))
	for i, p := range pools {
		poolIDs[i] = p.ID
	}

	query, args, err := r.sq.Select("pool_id", "module_code", "module_name", "demand_count", "position").
		From("pool_modules").
		Where(sq.Eq{"pool_id": poolIDs}).
		OrderBy("pool_id", "position").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%s: failed to build query: %w", op, err)
	}

	var modules []domain.ModuleDemand
	if err := r.db.SelectContext(ctx, &modules, query, args...); err != nil {
		return nil, fmt.Errorf("%s: failed to select modules: %w", op, err)
	}

	byPool := make(map[string][]domain.ModuleDemand, len(pools))
	for _, m := range modules {
		byPool[m.PoolID] = append(byPool[m.PoolID], m)
	}

	return byPool, nil
}
