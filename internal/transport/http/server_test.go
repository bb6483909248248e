package http

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/avialabs/exam-pool-service/internal/apperrors"
	"github.com/avialabs/exam-pool-service/internal/capacity"
	"github.com/avialabs/exam-pool-service/internal/domain"
	"github.com/avialabs/exam-pool-service/internal/identity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const (
	testPoolID   = "3f2a6c1e-9d4b-4f6a-8c1d-2e5b7a9c0d13"
	testTargetID = "9b8c7d6e-5f4a-4b3c-9d2e-1f0a9b8c7d6e"
)

var staff = identity.Caller{ID: "staff-1", Roles: []identity.Role{identity.RoleStaff}}

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, nil))
}

func newTestServer(pools *PoolServiceMock, confirmation *ConfirmationServiceMock, merges *MergeServiceMock) *Server {
	return NewServer(testLogger(), pools, confirmation, merges)
}

func doRequest(t *testing.T, srv *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("X-Staff-ID", staff.ID)
	req.Header.Set("X-Staff-Roles", "staff")

	rec := httptest.NewRecorder()
	srv.Routes().ServeHTTP(rec, req)

	return rec
}

func respPool(id string, status domain.PoolStatus, count int) *domain.ExamPool {
	examDate := time.Date(2026, 11, 2, 9, 0, 0, 0, time.UTC)

	return &domain.ExamPool{
		ID:              id,
		Name:            "November ATPL sitting",
		Status:          status,
		ExamDate:        examDate,
		JoinDeadline:    examDate.AddDate(0, 0, -14),
		ConfirmDeadline: examDate.AddDate(0, 0, -21),
		CurrentCount:    count,
		MinCandidates:   25,
		MaxCandidates:   40,
		Modules: []domain.ModuleDemand{
			{PoolID: id, ModuleCode: "ATPL-AGK", ModuleName: "Aircraft General Knowledge", DemandCount: count, Position: 1},
		},
	}
}

func TestServer_CreatePool(t *testing.T) {
	t.Run("created", func(t *testing.T) {
		pools := new(PoolServiceMock)
		pools.On("CreatePool", mock.Anything, staff, mock.Anything).
			Return(respPool(testPoolID, domain.PoolStatusOpen, 0), nil).Once()

		srv := newTestServer(pools, new(ConfirmationServiceMock), new(MergeServiceMock))

		rec := doRequest(t, srv, http.MethodPost, "/pools", map[string]any{
			"name":             "November ATPL sitting",
			"exam_date":        "2026-11-02T09:00:00Z",
			"join_deadline":    "2026-10-19T09:00:00Z",
			"confirm_deadline": "2026-10-12T09:00:00Z",
			"min_candidates":   25,
			"max_candidates":   40,
		})

		require.Equal(t, http.StatusCreated, rec.Code)
		assert.Contains(t, rec.Body.String(), testPoolID)

		pools.AssertExpectations(t)
	})

	t.Run("missing fields fail validation before the service", func(t *testing.T) {
		pools := new(PoolServiceMock)

		srv := newTestServer(pools, new(ConfirmationServiceMock), new(MergeServiceMock))

		rec := doRequest(t, srv, http.MethodPost, "/pools", map[string]any{
			"name": "x",
		})

		require.Equal(t, http.StatusBadRequest, rec.Code)
		pools.AssertNotCalled(t, "CreatePool", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("malformed JSON", func(t *testing.T) {
		srv := newTestServer(new(PoolServiceMock), new(ConfirmationServiceMock), new(MergeServiceMock))

		req := httptest.NewRequest(http.MethodPost, "/pools", bytes.NewReader([]byte("{not json")))
		req.Header.Set("X-Staff-ID", staff.ID)
		req.Header.Set("X-Staff-Roles", "staff")

		rec := httptest.NewRecorder()
		srv.Routes().ServeHTTP(rec, req)

		require.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestServer_ListPools(t *testing.T) {
	pools := new(PoolServiceMock)
	pools.On("ListPools", mock.Anything, staff).
		Return([]domain.ExamPool{*respPool(testPoolID, domain.PoolStatusOpen, 38)}, nil).Once()

	srv := newTestServer(pools, new(ConfirmationServiceMock), new(MergeServiceMock))

	rec := doRequest(t, srv, http.MethodGet, "/pools", nil)

	require.Equal(t, http.StatusOK, rec.Code)

	// 38 of 40 seats taken: the wire status is the derived NEARLY_FULL.
	assert.Contains(t, rec.Body.String(), `"status":"NEARLY_FULL"`)
}

func TestServer_ListPendingConfirmation(t *testing.T) {
	pools := new(PoolServiceMock)
	pools.On("ListPendingConfirmation", mock.Anything, staff).
		Return([]capacity.PendingPool{
			{Pool: *respPool(testPoolID, domain.PoolStatusOpen, 26), DeadlinePassed: true},
		}, nil).Once()

	srv := newTestServer(pools, new(ConfirmationServiceMock), new(MergeServiceMock))

	rec := doRequest(t, srv, http.MethodGet, "/pools/pending-confirmation", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"deadline_passed":true`)
}

func TestServer_ReserveSeat(t *testing.T) {
	t.Run("ok", func(t *testing.T) {
		pools := new(PoolServiceMock)
		pools.On("Reserve", mock.Anything, staff, testPoolID, "cand-9", "ATPL-MET", "Meteorology").
			Return(respPool(testPoolID, domain.PoolStatusOpen, 11), nil).Once()

		srv := newTestServer(pools, new(ConfirmationServiceMock), new(MergeServiceMock))

		rec := doRequest(t, srv, http.MethodPost, "/pools/reserve", map[string]any{
			"pool_id":      testPoolID,
			"candidate_id": "cand-9",
			"module_code":  "ATPL-MET",
			"module_name":  "Meteorology",
		})

		require.Equal(t, http.StatusOK, rec.Code)
		pools.AssertExpectations(t)
	})

	t.Run("full pool maps to 409 with a stable code", func(t *testing.T) {
		pools := new(PoolServiceMock)
		pools.On("Reserve", mock.Anything, staff, testPoolID, "cand-9", "ATPL-MET", "Meteorology").
			Return(nil, &apperrors.PreconditionFailedError{PoolID: testPoolID, Condition: "pool is full (40/40)"}).Once()

		srv := newTestServer(pools, new(ConfirmationServiceMock), new(MergeServiceMock))

		rec := doRequest(t, srv, http.MethodPost, "/pools/reserve", map[string]any{
			"pool_id":      testPoolID,
			"candidate_id": "cand-9",
			"module_code":  "ATPL-MET",
			"module_name":  "Meteorology",
		})

		require.Equal(t, http.StatusConflict, rec.Code)
		assert.Contains(t, rec.Body.String(), `"code":"PRECONDITION_FAILED"`)
	})

	t.Run("lowercase module code fails validation", func(t *testing.T) {
		pools := new(PoolServiceMock)

		srv := newTestServer(pools, new(ConfirmationServiceMock), new(MergeServiceMock))

		rec := doRequest(t, srv, http.MethodPost, "/pools/reserve", map[string]any{
			"pool_id":      testPoolID,
			"candidate_id": "cand-9",
			"module_code":  "atpl-met",
			"module_name":  "Meteorology",
		})

		require.Equal(t, http.StatusBadRequest, rec.Code)
		pools.AssertNotCalled(t, "Reserve",
			mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestServer_ConfirmPool(t *testing.T) {
	t.Run("ok with room assignments", func(t *testing.T) {
		confirmation := new(ConfirmationServiceMock)
		confirmation.On("Confirm", mock.Anything, staff, testPoolID, mock.MatchedBy(func(a []domain.RoomAssignment) bool {
			return len(a) == 1 && a[0].Room == "B-204" && a[0].PoolID == testPoolID
		})).Return(respPool(testPoolID, domain.PoolStatusConfirmed, 26), nil).Once()

		srv := newTestServer(new(PoolServiceMock), confirmation, new(MergeServiceMock))

		rec := doRequest(t, srv, http.MethodPost, "/pools/confirm", map[string]any{
			"pool_id": testPoolID,
			"room_assignments": []map[string]any{
				{"module_code": "ATPL-AGK", "room": "B-204", "exam_time": "2026-11-02T09:00:00Z"},
			},
		})

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"status":"CONFIRMED"`)

		confirmation.AssertExpectations(t)
	})

	t.Run("below minimum maps to 409", func(t *testing.T) {
		confirmation := new(ConfirmationServiceMock)
		confirmation.On("Confirm", mock.Anything, staff, testPoolID, mock.Anything).
			Return(nil, &apperrors.PreconditionFailedError{PoolID: testPoolID, Condition: "current count 12 is below minimum 25"}).Once()

		srv := newTestServer(new(PoolServiceMock), confirmation, new(MergeServiceMock))

		rec := doRequest(t, srv, http.MethodPost, "/pools/confirm", map[string]any{
			"pool_id": testPoolID,
		})

		require.Equal(t, http.StatusConflict, rec.Code)

		expected := fmt.Sprintf(
			`{"error":{"code":"PRECONDITION_FAILED","message":"pool '%s': precondition failed: current count 12 is below minimum 25"}}`,
			testPoolID)
		assert.JSONEq(t, expected, rec.Body.String())
	})

	t.Run("unknown pool maps to 404", func(t *testing.T) {
		confirmation := new(ConfirmationServiceMock)
		confirmation.On("Confirm", mock.Anything, staff, testPoolID, mock.Anything).
			Return(nil, apperrors.ErrNotFound).Once()

		srv := newTestServer(new(PoolServiceMock), confirmation, new(MergeServiceMock))

		rec := doRequest(t, srv, http.MethodPost, "/pools/confirm", map[string]any{
			"pool_id": testPoolID,
		})

		require.Equal(t, http.StatusNotFound, rec.Code)
		assert.Contains(t, rec.Body.String(), `"code":"NOT_FOUND"`)
	})

	t.Run("missing staff headers map to 403", func(t *testing.T) {
		confirmation := new(ConfirmationServiceMock)
		confirmation.On("Confirm", mock.Anything, identity.Caller{}, testPoolID, mock.Anything).
			Return(nil, apperrors.ErrForbidden).Once()

		srv := newTestServer(new(PoolServiceMock), confirmation, new(MergeServiceMock))

		raw, err := json.Marshal(map[string]any{"pool_id": testPoolID})
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodPost, "/pools/confirm", bytes.NewReader(raw))
		rec := httptest.NewRecorder()
		srv.Routes().ServeHTTP(rec, req)

		require.Equal(t, http.StatusForbidden, rec.Code)
		assert.Contains(t, rec.Body.String(), `"code":"FORBIDDEN"`)
	})
}

func TestServer_FailPool(t *testing.T) {
	t.Run("ok", func(t *testing.T) {
		reason := "only 8 of 25 seats filled by the decision point"

		pool := respPool(testPoolID, domain.PoolStatusFailed, 8)
		pool.FailReason = &reason

		confirmation := new(ConfirmationServiceMock)
		confirmation.On("Fail", mock.Anything, staff, testPoolID, reason).Return(pool, nil).Once()

		srv := newTestServer(new(PoolServiceMock), confirmation, new(MergeServiceMock))

		rec := doRequest(t, srv, http.MethodPost, "/pools/fail", map[string]any{
			"pool_id": testPoolID,
			"reason":  reason,
		})

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"status":"FAILED"`)
		assert.Contains(t, rec.Body.String(), `"fail_reason"`)
	})

	t.Run("short reason fails validation", func(t *testing.T) {
		confirmation := new(ConfirmationServiceMock)

		srv := newTestServer(new(PoolServiceMock), confirmation, new(MergeServiceMock))

		rec := doRequest(t, srv, http.MethodPost, "/pools/fail", map[string]any{
			"pool_id": testPoolID,
			"reason":  "eh",
		})

		require.Equal(t, http.StatusBadRequest, rec.Code)
		confirmation.AssertNotCalled(t, "Fail", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestServer_CancelPool(t *testing.T) {
	reason := "examiner unavailable for this sitting"

	pool := respPool(testPoolID, domain.PoolStatusCancelled, 12)
	pool.FailReason = &reason

	confirmation := new(ConfirmationServiceMock)
	confirmation.On("Cancel", mock.Anything, staff, testPoolID, reason).Return(pool, nil).Once()

	srv := newTestServer(new(PoolServiceMock), confirmation, new(MergeServiceMock))

	rec := doRequest(t, srv, http.MethodPost, "/pools/cancel", map[string]any{
		"pool_id": testPoolID,
		"reason":  reason,
	})

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"CANCELLED"`)
}

func TestServer_MergePools(t *testing.T) {
	t.Run("ok", func(t *testing.T) {
		merges := new(MergeServiceMock)
		merges.On("Merge", mock.Anything, staff, testPoolID, testTargetID).
			Return(respPool(testTargetID, domain.PoolStatusOpen, 28), nil).Once()

		srv := newTestServer(new(PoolServiceMock), new(ConfirmationServiceMock), merges)

		rec := doRequest(t, srv, http.MethodPost, "/pools/merge", map[string]any{
			"source_pool_id": testPoolID,
			"target_pool_id": testTargetID,
		})

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), testTargetID)
	})

	t.Run("module limit conflict maps to 409", func(t *testing.T) {
		merges := new(MergeServiceMock)
		merges.On("Merge", mock.Anything, staff, testPoolID, testTargetID).
			Return(nil, &apperrors.MergeConflictError{
				Constraint: "module_limit",
				Detail:     "combined distinct modules 5 exceed the 4-module sitting limit",
			}).Once()

		srv := newTestServer(new(PoolServiceMock), new(ConfirmationServiceMock), merges)

		rec := doRequest(t, srv, http.MethodPost, "/pools/merge", map[string]any{
			"source_pool_id": testPoolID,
			"target_pool_id": testTargetID,
		})

		require.Equal(t, http.StatusConflict, rec.Code)
		assert.Contains(t, rec.Body.String(), `"code":"MERGE_CONFLICT"`)
	})

	t.Run("non-uuid pool ids fail validation", func(t *testing.T) {
		merges := new(MergeServiceMock)

		srv := newTestServer(new(PoolServiceMock), new(ConfirmationServiceMock), merges)

		rec := doRequest(t, srv, http.MethodPost, "/pools/merge", map[string]any{
			"source_pool_id": "pool-a",
			"target_pool_id": "pool-b",
		})

		require.Equal(t, http.StatusBadRequest, rec.Code)
		merges.AssertNotCalled(t, "Merge", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestServer_ListMergeCandidates(t *testing.T) {
	merges := new(MergeServiceMock)
	merges.On("ListMergeCandidates", mock.Anything, staff).
		Return([]domain.MergeCandidate{
			{
				PoolA: domain.PoolSummary{ID: testPoolID, Name: "Pool A", CurrentCount: 10},
				PoolB: domain.PoolSummary{ID: testTargetID, Name: "Pool B", CurrentCount: 12},
			},
		}, nil).Once()

	srv := newTestServer(new(PoolServiceMock), new(ConfirmationServiceMock), merges)

	rec := doRequest(t, srv, http.MethodGet, "/pools/merge-candidates", nil)

	require.Equal(t, http.StatusOK, rec.Code)

	var payload struct {
		Candidates []struct {
			PoolA struct {
				ID    string `json:"id"`
				Count int    `json:"count"`
			} `json:"pool_a"`
			PoolB struct {
				ID    string `json:"id"`
				Count int    `json:"count"`
			} `json:"pool_b"`
		} `json:"candidates"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	require.Len(t, payload.Candidates, 1)
	assert.Equal(t, testPoolID, payload.Candidates[0].PoolA.ID)
	assert.Equal(t, 12, payload.Candidates[0].PoolB.Count)
}

func TestServer_RequestIDPropagation(t *testing.T) {
	pools := new(PoolServiceMock)
	pools.On("ListPools", mock.Anything, staff).Return([]domain.ExamPool{}, nil).Once()

	srv := newTestServer(pools, new(ConfirmationServiceMock), new(MergeServiceMock))

	req := httptest.NewRequest(http.MethodGet, "/pools", nil)
	req.Header.Set("X-Staff-ID", staff.ID)
	req.Header.Set("X-Staff-Roles", "staff")
	req.Header.Set("X-Request-ID", "req-123")

	rec := httptest.NewRecorder()
	srv.Routes().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "req-123", rec.Header().Get("X-Request-ID"))
}
