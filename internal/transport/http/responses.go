package http

import (
	"time"

	"github.com/avialabs/exam-pool-service/internal/capacity"
	"github.com/avialabs/exam-pool-service/internal/domain"
)

// Error codes surfaced to the staff console alongside the HTTP status.
const (
	codeNotFound           = "NOT_FOUND"
	codeForbidden          = "FORBIDDEN"
	codePreconditionFailed = "PRECONDITION_FAILED"
	codeMergeConflict      = "MERGE_CONFLICT"
)

type errorResponse struct {
	Error errorBody `json:"error"`
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type poolResponse struct {
	ID              string           `json:"id"`
	Name            string           `json:"name"`
	Status          string           `json:"status"`
	ExamDate        time.Time        `json:"exam_date"`
	JoinDeadline    time.Time        `json:"join_deadline"`
	ConfirmDeadline time.Time        `json:"confirm_deadline"`
	CurrentCount    int              `json:"current_count"`
	MinCandidates   int              `json:"min_candidates"`
	MaxCandidates   int              `json:"max_candidates"`
	FailReason      *string          `json:"fail_reason,omitempty"`
	ConfirmedAt     *time.Time       `json:"confirmed_at,omitempty"`
	Modules         []moduleResponse `json:"modules"`
}

type moduleResponse struct {
	ModuleCode  string `json:"module_code"`
	ModuleName  string `json:"module_name"`
	DemandCount int    `json:"demand_count"`
}

type pendingPoolResponse struct {
	Pool           poolResponse `json:"pool"`
	DeadlinePassed bool         `json:"deadline_passed"`
}

type mergeCandidateResponse struct {
	PoolA poolSummaryResponse `json:"pool_a"`
	PoolB poolSummaryResponse `json:"pool_b"`
}

type poolSummaryResponse struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// toPoolResponse reports the display status, so open pools near capacity show
// as NEARLY_FULL without that state ever being stored.
func toPoolResponse(p *domain.ExamPool) poolResponse {
	modules := make([]moduleResponse, len(p.Modules))
	for i, m := range p.Modules {
		modules[i] = moduleResponse{
			ModuleCode:  m.ModuleCode,
			ModuleName:  m.ModuleName,
			DemandCount: m.DemandCount,
		}
	}

	return poolResponse{
		ID:              p.ID,
		Name:            p.Name,
		Status:          string(p.DisplayStatus()),
		ExamDate:        p.ExamDate,
		JoinDeadline:    p.JoinDeadline,
		ConfirmDeadline: p.ConfirmDeadline,
		CurrentCount:    p.CurrentCount,
		MinCandidates:   p.MinCandidates,
		MaxCandidates:   p.MaxCandidates,
		FailReason:      p.FailReason,
		ConfirmedAt:     p.ConfirmedAt,
		Modules:         modules,
	}
}

func toPoolResponses(pools []domain.ExamPool) []poolResponse {
	out := make([]poolResponse, len(pools))
	for i := range pools {
		out[i] = toPoolResponse(&pools[i])
	}

	return out
}

func toPendingPoolResponses(pending []capacity.PendingPool) []pendingPoolResponse {
	out := make([]pendingPoolResponse, len(pending))
	for i := range pending {
		out[i] = pendingPoolResponse{
			Pool:           toPoolResponse(&pending[i].Pool),
			DeadlinePassed: pending[i].DeadlinePassed,
		}
	}

	return out
}

func toMergeCandidateResponses(candidates []domain.MergeCandidate) []mergeCandidateResponse {
	out := make([]mergeCandidateResponse, len(candidates))
	for i, c := range candidates {
		out[i] = mergeCandidateResponse{
			PoolA: poolSummaryResponse{ID: c.PoolA.ID, Name: c.PoolA.Name, Count: c.PoolA.CurrentCount},
			PoolB: poolSummaryResponse{ID: c.PoolB.ID, Name: c.PoolB.Name, Count: c.PoolB.CurrentCount},
		}
	}

	return out
}
