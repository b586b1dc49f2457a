package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/yukikurage/task-approval-api/internal/models"
	"github.com/yukikurage/task-approval-api/internal/session"
	"github.com/yukikurage/task-approval-api/internal/workflow"
)

func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()

	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	db, err := gorm.Open(mysql.New(mysql.Config{
		Conn:                      sqlDB,
		SkipInitializeWithVersion: true,
	}), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	return db, mock
}

func pendingTask() *models.Task {
	return &models.Task{
		ID:              "task-1",
		ReferenceNumber: "TSK-000001",
		Title:           "Budget",
		Status:          models.TaskStatusPending,
		SubmittedBy:     "member-1",
	}
}

func approveDecision(t *testing.T, task *models.Task) *workflow.Decision {
	t.Helper()
	ceo := session.Session{ActorID: "ceo-1", Role: models.RoleCEO, Active: true}
	decision, err := workflow.Plan(task, models.ActionApprove, ceo, workflow.Payload{}, time.Now())
	require.NoError(t, err)
	return decision
}

func TestApplyTransition_RollsBackWhenEventInsertFails(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewTaskRepository(db)
	task := pendingTask()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE `tasks` SET")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO `task_events`")).
		WillReturnError(errConnReset)
	mock.ExpectRollback()

	_, err := repo.ApplyTransition(context.Background(), task, approveDecision(t, task))
	assert.ErrorIs(t, err, errConnReset)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApplyTransition_RollsBackWhenNotificationInsertFails(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewTaskRepository(db)
	task := pendingTask()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE `tasks` SET")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO `task_events`")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO `notifications`")).
		WillReturnError(errConnReset)
	mock.ExpectRollback()

	_, err := repo.ApplyTransition(context.Background(), task, approveDecision(t, task))
	assert.ErrorIs(t, err, errConnReset)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApplyTransition_ZeroRowsIsStale(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewTaskRepository(db)
	task := pendingTask()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE `tasks` SET")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	_, err := repo.ApplyTransition(context.Background(), task, approveDecision(t, task))
	assert.ErrorIs(t, err, ErrStalePrecondition)
	assert.NoError(t, mock.ExpectationsWereMet())
}
