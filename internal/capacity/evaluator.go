// package capacity classifies pools into actionable buckets for the staff
// console. Everything here is a pure function over a snapshot: no repository
// access, no mutation, no clock other than the one passed in.
package capacity

import (
	"time"

	"github.com/avialabs/exam-pool-service/internal/domain"
)

// PendingPool is an active pool that has reached its minimum, annotated with
// whether the go/no-go deadline has already passed. The deadline is never
// enforced here: staff are trusted to act, the console surfaces the flag.
type PendingPool struct {
	Pool           domain.ExamPool
	DeadlinePassed bool
}

// ListActive returns the pools that still accept reservations and decisions.
func ListActive(pools []domain.ExamPool) []domain.ExamPool {
	active := make([]domain.ExamPool, 0, len(pools))
	for _, p := range pools {
		if p.IsActive() {
			active = append(active, p)
		}
	}

	return active
}

// ListPendingConfirmation returns the active pools ready for a go decision,
// in input order.
func ListPendingConfirmation(pools []domain.ExamPool, now time.Time) []PendingPool {
	pending := make([]PendingPool, 0, len(pools))

	for _, p := range pools {
		if !p.IsActive() || !p.AtMinimum() {
			continue
		}

		pending = append(pending, PendingPool{
			Pool:           p,
			DeadlinePassed: now.After(p.ConfirmDeadline),
		})
	}

	return pending
}

// FindMergeCandidates enumerates all unordered pairs of active, under-minimum
// pools that could plausibly be merged: same sitting date, combined roster
// fitting at least one pool's maximum, combined module codes within the
// per-sitting limit. No priority ordering is applied; staff choose.
func FindMergeCandidates(pools []domain.ExamPool) []domain.MergeCandidate {
	underfilled := make([]*domain.ExamPool, 0, len(pools))
	for i := range pools {
		if pools[i].IsActive() && !pools[i].AtMinimum() {
			underfilled = append(underfilled, &pools[i])
		}
	}

	var candidates []domain.MergeCandidate

	for i := 0; i < len(underfilled); i++ {
		for j := i + 1; j < len(underfilled); j++ {
			a, b := underfilled[i], underfilled[j]

			if !sameSittingDate(a, b) {
				continue
			}

			if !fitsEitherDirection(a, b) {
				continue
			}

			if CombinedModuleCount(a, b) > domain.MaxModulesPerSitting {
				continue
			}

			candidates = append(candidates, domain.MergeCandidate{
				PoolA: domain.Summarize(a),
				PoolB: domain.Summarize(b),
			})
		}
	}

	return candidates
}

// CombinedModuleCount counts the distinct module codes across two pools.
func CombinedModuleCount(a, b *domain.ExamPool) int {
	seen := make(map[string]struct{}, len(a.Modules)+len(b.Modules))
	for _, m := range a.Modules {
		seen[m.ModuleCode] = struct{}{}
	}

	for _, m := range b.Modules {
		seen[m.ModuleCode] = struct{}{}
	}

	return len(seen)
}

// sameSittingDate treats pools as compatible when their exams fall on the same
// UTC calendar day.
func sameSittingDate(a, b *domain.ExamPool) bool {
	ay, am, ad := a.ExamDate.UTC().Date()
	by, bm, bd := b.ExamDate.UTC().Date()

	return ay == by && am == bm && ad == bd
}

// fitsEitherDirection reports whether the combined roster fits into at least
// one of the two pools, i.e. at least one merge direction is viable.
func fitsEitherDirection(a, b *domain.ExamPool) bool {
	combined := a.CurrentCount + b.CurrentCount

	return combined <= a.MaxCandidates || combined <= b.MaxCandidates
}
