package http

import "time"

type createPoolRequest struct {
	Name            string    `json:"name" validate:"required,min=3,max=120"`
	ExamDate        time.Time `json:"exam_date" validate:"required"`
	JoinDeadline    time.Time `json:"join_deadline" validate:"required"`
	ConfirmDeadline time.Time `json:"confirm_deadline" validate:"required"`
	MinCandidates   int       `json:"min_candidates" validate:"required,min=1"`
	MaxCandidates   int       `json:"max_candidates" validate:"required,min=1"`
}

type reserveRequest struct {
	PoolID      string `json:"pool_id" validate:"required,uuid4"`
	CandidateID string `json:"candidate_id" validate:"required,min=1,max=100"`
	ModuleCode  string `json:"module_code" validate:"required,module_code,max=20"`
	ModuleName  string `json:"module_name" validate:"required,min=2,max=120"`
}

type confirmPoolRequest struct {
	PoolID          string `json:"pool_id" validate:"required,uuid4"`
	RoomAssignments []struct {
		ModuleCode string    `json:"module_code" validate:"required,module_code,max=20"`
		Room       string    `json:"room" validate:"required,min=1,max=60"`
		ExamTime   time.Time `json:"exam_time" validate:"required"`
	} `json:"room_assignments" validate:"omitempty,dive"`
}

type failPoolRequest struct {
	PoolID string `json:"pool_id" validate:"required,uuid4"`
	Reason string `json:"reason" validate:"required,min=5,max=500"`
}

type cancelPoolRequest struct {
	PoolID string `json:"pool_id" validate:"required,uuid4"`
	Reason string `json:"reason" validate:"required,min=5,max=500"`
}

type mergePoolsRequest struct {
	SourcePoolID string `json:"source_pool_id" validate:"required,uuid4"`
	TargetPoolID string `json:"target_pool_id" validate:"required,uuid4"`
}
