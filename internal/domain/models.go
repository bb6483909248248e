package domain

import (
	"time"
)

type PoolStatus string

const (
	PoolStatusOpen       PoolStatus = "OPEN"
	PoolStatusNearlyFull PoolStatus = "NEARLY_FULL"
	PoolStatusConfirmed  PoolStatus = "CONFIRMED"
	PoolStatusFailed     PoolStatus = "FAILED"
	PoolStatusCancelled  PoolStatus = "CANCELLED"
	PoolStatusCompleted  PoolStatus = "COMPLETED"
)

// MaxModulesPerSitting is the hard limit on distinct exam modules a single
// sitting can host.
const MaxModulesPerSitting = 4

// ExamPool is a single exam sitting aggregating candidate reservations across
// up to MaxModulesPerSitting modules. NEARLY_FULL is never stored: the
// persisted status is one of OPEN, CONFIRMED, FAILED, CANCELLED, COMPLETED,
// and DisplayStatus derives the informational NEARLY_FULL state at read time.
type ExamPool struct {
	ID              string     `db:"id"`
	Name            string     `db:"name"`
	Status          PoolStatus `db:"status"`
	ExamDate        time.Time  `db:"exam_date"`
	JoinDeadline    time.Time  `db:"join_deadline"`
	ConfirmDeadline time.Time  `db:"confirm_deadline"`
	CurrentCount    int        `db:"current_count"`
	MinCandidates   int        `db:"min_candidates"`
	MaxCandidates   int        `db:"max_candidates"`
	FailReason      *string    `db:"fail_reason"`
	ConfirmedAt     *time.Time `db:"confirmed_at"`
	CreatedAt       time.Time  `db:"created_at"`
	Modules         []ModuleDemand
}

// IsActive reports whether the pool still accepts reservations and terminal
// transitions. NEARLY_FULL pools are active; it is a display hint only.
func (p *ExamPool) IsActive() bool {
	return p.Status == PoolStatusOpen
}

// NearlyFull reports whether the pool is at or past 90% of its maximum.
// Integer arithmetic, no float rounding: count*10 >= max*9.
func (p *ExamPool) NearlyFull() bool {
	return p.CurrentCount*10 >= p.MaxCandidates*9
}

// DisplayStatus is the status the staff console shows: NEARLY_FULL for open
// pools approaching capacity, the stored status otherwise.
func (p *ExamPool) DisplayStatus() PoolStatus {
	if p.Status == PoolStatusOpen && p.NearlyFull() {
		return PoolStatusNearlyFull
	}

	return p.Status
}

// AtMinimum reports whether the pool has enough paid reservations for a
// go decision.
func (p *ExamPool) AtMinimum() bool {
	return p.CurrentCount >= p.MinCandidates
}

// ModuleCodes returns the distinct module codes in pool order.
func (p *ExamPool) ModuleCodes() []string {
	codes := make([]string, len(p.Modules))
	for i, m := range p.Modules {
		codes[i] = m.ModuleCode
	}

	return codes
}

// ModuleDemand is the per-module breakdown of a pool's roster. The sum of
// DemandCount across a pool's modules always equals the pool's CurrentCount.
type ModuleDemand struct {
	PoolID      string `db:"pool_id"`
	ModuleCode  string `db:"module_code"`
	ModuleName  string `db:"module_name"`
	DemandCount int    `db:"demand_count"`
	Position    int    `db:"position"`
}

// Reservation is a paid seat hold for one candidate in one module of a pool.
type Reservation struct {
	ID          string    `db:"id"`
	PoolID      string    `db:"pool_id"`
	CandidateID string    `db:"candidate_id"`
	ModuleCode  string    `db:"module_code"`
	CreatedAt   time.Time `db:"created_at"`
}

// RoomAssignment attaches a room and sitting time to one module of a
// confirmed pool.
type RoomAssignment struct {
	PoolID     string    `db:"pool_id"`
	ModuleCode string    `db:"module_code"`
	Room       string    `db:"room"`
	ExamTime   time.Time `db:"exam_time"`
}

// PoolSummary is the slim pool shape used in merge-candidate pairs.
type PoolSummary struct {
	ID           string
	Name         string
	CurrentCount int
}

// MergeCandidate is a derived, never persisted pairing of two under-filled
// pools the staff may consolidate. The pair is unordered: the caller decides
// which pool survives a merge.
type MergeCandidate struct {
	PoolA PoolSummary
	PoolB PoolSummary
}

func Summarize(p *ExamPool) PoolSummary {
	return PoolSummary{
		ID:           p.ID,
		Name:         p.Name,
		CurrentCount: p.CurrentCount,
	}
}
