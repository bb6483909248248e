package apperrors

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound       = errors.New("resource not found")
	ErrValidation     = errors.New("validation failed")
	ErrInvalidRequest = errors.New("invalid request body")
	ErrForbidden      = errors.New("staff role required")

	ErrPreconditionFailed = errors.New("precondition failed")
	ErrMergeConflict      = errors.New("merge conflict")
)

// PreconditionFailedError reports which condition blocked a pool transition
// (wrong status, below minimum, deadline passed). The condition string is part
// of the staff-facing message, so keep it human readable.
type PreconditionFailedError struct {
	PoolID    string
	Condition string
}

func (e *PreconditionFailedError) Error() string {
	return fmt.Sprintf("pool '%s': precondition failed: %s", e.PoolID, e.Condition)
}

func (e *PreconditionFailedError) Is(target error) bool { return target == ErrPreconditionFailed }

// MergeConflictError reports which constraint a merge would violate.
// Constraint is a stable identifier ("capacity", "module_limit"); Detail
// carries the numbers for the staff console.
type MergeConflictError struct {
	Constraint string
	Detail     string
}

func (e *MergeConflictError) Error() string {
	return fmt.Sprintf("merge conflict: %s constraint violated: %s", e.Constraint, e.Detail)
}

func (e *MergeConflictError) Is(target error) bool { return target == ErrMergeConflict }
