package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/report-card-api/internal/models"
)

func newSubmissionRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func submissionRows(sub models.SubjectSubmission) *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "teacher_id", "class_id", "subject_id", "student_id", "a1_score", "a2_score", "a3_score",
		"average_score", "percentage_20", "percentage_80", "percentage_100", "grade", "remarks",
		"teacher_comment", "status", "submitted_at", "reviewed_at", "updated_at",
	}).AddRow(sub.ID, sub.TeacherID, sub.ClassID, sub.SubjectID, sub.StudentID, sub.A1Score, sub.A2Score,
		sub.A3Score, sub.AverageScore, sub.Percentage20, sub.Percentage80, sub.Percentage100, sub.Grade,
		sub.Remarks, nil, sub.Status, sub.SubmittedAt, nil, sub.UpdatedAt)
}

func TestSubmissionRepositoryUpsert(t *testing.T) {
	db, mock, cleanup := newSubmissionRepoMock(t)
	defer cleanup()
	repo := NewSubmissionRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO subject_submissions")).
		WillReturnResult(sqlmock.NewResult(0, 1))

	affected, err := repo.Upsert(context.Background(), &models.SubjectSubmission{
		TeacherID: "t1", ClassID: "c1", SubjectID: "sub1", StudentID: "stu1",
		A1Score: 80.0, A2Score: 85.5, A3Score: 90.0, AverageScore: 85.17,
		Percentage20: 17, Percentage80: 68, Percentage100: 85,
		Grade: "A", Remarks: "Exceptional", Status: models.SubmissionPending,
	})
	require.NoError(t, err)
	require.EqualValues(t, 1, affected)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSubmissionRepositoryUpsertLockedRow(t *testing.T) {
	db, mock, cleanup := newSubmissionRepoMock(t)
	defer cleanup()
	repo := NewSubmissionRepository(db)

	// Conflict target exists but is no longer pending: the conditional
	// DO UPDATE matches nothing.
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO subject_submissions")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	affected, err := repo.Upsert(context.Background(), &models.SubjectSubmission{
		TeacherID: "t1", ClassID: "c1", SubjectID: "sub1", StudentID: "stu1",
		Status: models.SubmissionPending,
	})
	require.NoError(t, err)
	require.Zero(t, affected)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSubmissionRepositoryUpdatePendingFiltersOwnerAndStatus(t *testing.T) {
	db, mock, cleanup := newSubmissionRepoMock(t)
	defer cleanup()
	repo := NewSubmissionRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE subject_submissions SET")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	affected, err := repo.UpdatePending(context.Background(), &models.SubjectSubmission{
		ID: "s1", TeacherID: "intruder",
	})
	require.NoError(t, err)
	require.Zero(t, affected)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSubmissionRepositoryDeletePending(t *testing.T) {
	db, mock, cleanup := newSubmissionRepoMock(t)
	defer cleanup()
	repo := NewSubmissionRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM subject_submissions WHERE id = $1 AND teacher_id = $2 AND status = 'pending'")).
		WithArgs("s1", "t1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	affected, err := repo.DeletePending(context.Background(), "s1", "t1")
	require.NoError(t, err)
	require.EqualValues(t, 1, affected)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSubmissionRepositorySetStatus(t *testing.T) {
	db, mock, cleanup := newSubmissionRepoMock(t)
	defer cleanup()
	repo := NewSubmissionRepository(db)

	now := time.Now().UTC()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE subject_submissions SET status = $2, reviewed_at = $3, updated_at = $3 WHERE id = $1 AND status = 'pending'")).
		WithArgs("s1", models.SubmissionApproved, now).
		WillReturnResult(sqlmock.NewResult(0, 1))

	affected, err := repo.SetStatus(context.Background(), "s1", models.SubmissionApproved, now)
	require.NoError(t, err)
	require.EqualValues(t, 1, affected)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSubmissionRepositoryListApproved(t *testing.T) {
	db, mock, cleanup := newSubmissionRepoMock(t)
	defer cleanup()
	repo := NewSubmissionRepository(db)

	sub := models.SubjectSubmission{
		ID: "s1", TeacherID: "t1", ClassID: "c1", SubjectID: "sub1", StudentID: "stu1",
		Percentage100: 85, Grade: "A", Remarks: "Exceptional", Status: models.SubmissionApproved,
		SubmittedAt: time.Now(), UpdatedAt: time.Now(),
	}
	mock.ExpectQuery("SELECT .+ FROM subject_submissions\\s+WHERE class_id = \\$1 AND student_id = \\$2 AND status = 'approved'").
		WithArgs("c1", "stu1").
		WillReturnRows(submissionRows(sub))

	subs, err := repo.ListApproved(context.Background(), "c1", "stu1")
	require.NoError(t, err)
	require.Len(t, subs, 1)
	require.Equal(t, "A", subs[0].Grade)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSubmissionRepositoryListFiltered(t *testing.T) {
	db, mock, cleanup := newSubmissionRepoMock(t)
	defer cleanup()
	repo := NewSubmissionRepository(db)

	sub := models.SubjectSubmission{
		ID: "s1", TeacherID: "t1", ClassID: "c1", SubjectID: "sub1", StudentID: "stu1",
		Status: models.SubmissionPending, SubmittedAt: time.Now(), UpdatedAt: time.Now(),
	}
	mock.ExpectQuery("SELECT .+ FROM subject_submissions WHERE 1=1 AND teacher_id = \\$1 AND status = \\$2").
		WithArgs("t1", models.SubmissionPending).
		WillReturnRows(submissionRows(sub))

	subs, err := repo.List(context.Background(), models.SubmissionFilter{TeacherID: "t1", Status: models.SubmissionPending})
	require.NoError(t, err)
	require.Len(t, subs, 1)
	require.NoError(t, mock.ExpectationsWereMet())
}
