// package notification is the candidate-notification collaborator boundary.
// The workflow emits events after a transition commits; delivery (email, SMS)
// is someone else's problem.
package notification

import (
	"context"
	"log/slog"
)

// PoolEvent describes a confirm, fail or cancel decision on a single pool.
// Roster is the candidate IDs affected at decision time.
type PoolEvent struct {
	PoolID   string
	PoolName string
	Roster   []string
	Reason   string
}

// MergeEvent describes a consolidation: MovedRoster are the candidates whose
// reservations moved from the source pool to the target.
type MergeEvent struct {
	SourcePoolID string
	TargetPoolID string
	MovedRoster  []string
}

type Dispatcher interface {
	PoolConfirmed(ctx context.Context, event PoolEvent) error
	PoolFailed(ctx context.Context, event PoolEvent) error
	PoolCancelled(ctx context.Context, event PoolEvent) error
	PoolsMerged(ctx context.Context, event MergeEvent) error
}

// LogDispatcher logs events instead of dispatching them.
type LogDispatcher struct {
	log *slog.Logger
}

func NewLogDispatcher(log *slog.Logger) *LogDispatcher {
	return &LogDispatcher{log: log}
}

func (d *LogDispatcher) PoolConfirmed(_ context.Context, event PoolEvent) error {
	d.log.Info("pool confirmed",
		slog.String("pool_id", event.PoolID),
		slog.Int("roster_size", len(event.Roster)),
	)

	return nil
}

func (d *LogDispatcher) PoolFailed(_ context.Context, event PoolEvent) error {
	d.log.Info("pool failed",
		slog.String("pool_id", event.PoolID),
		slog.Int("roster_size", len(event.Roster)),
		slog.String("reason", event.Reason),
	)

	return nil
}

func (d *LogDispatcher) PoolCancelled(_ context.Context, event PoolEvent) error {
	d.log.Info("pool cancelled",
		slog.String("pool_id", event.PoolID),
		slog.Int("roster_size", len(event.Roster)),
		slog.String("reason", event.Reason),
	)

	return nil
}

func (d *LogDispatcher) PoolsMerged(_ context.Context, event MergeEvent) error {
	d.log.Info("pools merged",
		slog.String("source_pool_id", event.SourcePoolID),
		slog.String("target_pool_id", event.TargetPoolID),
		slog.Int("moved", len(event.MovedRoster)),
	)

	return nil
}
