// package ledger is the seat-hold and billing collaborator boundary. The pool
// workflow only ever talks to the SeatLedger interface; the real billing
// system lives elsewhere.
package ledger

import (
	"context"
	"log/slog"

	"github.com/shopspring/decimal"
)

// SeatLedger records the fate of per-candidate seat holds. Implementations
// must tolerate repeated calls for the same pool: the workflow retries nothing
// but staff may replay an idempotent confirm/fail.
type SeatLedger interface {
	// FinalizeHolds converts soft seat holds into binding reservations when a
	// pool is confirmed.
	FinalizeHolds(ctx context.Context, poolID string, candidateIDs []string) error

	// ReleaseHolds frees the seat holds of a failed or cancelled pool.
	ReleaseHolds(ctx context.Context, poolID string, candidateIDs []string, reason string) error

	// IssueCredits compensates candidates of a failed pool with wallet credits.
	IssueCredits(ctx context.Context, candidateIDs []string, amount decimal.Decimal, reason string) error
}

// LogLedger logs every ledger call instead of billing anyone. It is the
// default wiring until the billing integration lands.
type LogLedger struct {
	log *slog.Logger
}

func NewLogLedger(log *slog.Logger) *LogLedger {
	return &LogLedger{log: log}
}

func (l *LogLedger) FinalizeHolds(_ context.Context, poolID string, candidateIDs []string) error {
	l.log.Info("finalizing seat holds",
		slog.String("pool_id", poolID),
		slog.Int("candidates", len(candidateIDs)),
	)

	return nil
}

func (l *LogLedger) ReleaseHolds(_ context.Context, poolID string, candidateIDs []string, reason string) error {
	l.log.Info("releasing seat holds",
		slog.String("pool_id", poolID),
		slog.Int("candidates", len(candidateIDs)),
		slog.String("reason", reason),
	)

	return nil
}

func (l *LogLedger) IssueCredits(_ context.Context, candidateIDs []string, amount decimal.Decimal, reason string) error {
	l.log.Info("issuing wallet credits",
		slog.Int("candidates", len(candidateIDs)),
		slog.String("amount", amount.String()),
		slog.String("reason", reason),
	)

	return nil
}
