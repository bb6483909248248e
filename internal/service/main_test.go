package service

import (
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/avialabs/exam-pool-service/internal/domain"
	"github.com/avialabs/exam-pool-service/internal/identity"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"
)

var (
	staffCaller = identity.Caller{ID: "staff-1", Roles: []identity.Role{identity.RoleStaff}}
	guestCaller = identity.Caller{ID: "guest-1"}

	// Reserve checks deadlines against the wall clock, so fixtures sit well
	// in the future.
	examDate = time.Now().UTC().AddDate(0, 0, 60).Truncate(time.Hour)
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, nil))
}

func newMockDBAndTx(t *testing.T) (*sqlx.DB, *sqlx.Tx, sqlmock.Sqlmock) {
	t.Helper()

	mockDB, smock, err := sqlmock.New()
	require.NoError(t, err)

	sqlxDB := sqlx.NewDb(mockDB, "sqlmock")

	smock.ExpectBegin()

	tx, err := sqlxDB.Beginx()
	require.NoError(t, err)

	return sqlxDB, tx, smock
}

func poolFixture(id string, status domain.PoolStatus, count, min, max int) *domain.ExamPool {
	return &domain.ExamPool{
		ID:              id,
		Name:            "Pool " + id,
		Status:          status,
		ExamDate:        examDate,
		JoinDeadline:    examDate.AddDate(0, 0, -14),
		ConfirmDeadline: examDate.AddDate(0, 0, -21),
		CurrentCount:    count,
		MinCandidates:   min,
		MaxCandidates:   max,
	}
}
