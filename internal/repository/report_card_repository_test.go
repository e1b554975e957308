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

func newReportCardRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func reportCardRows(card models.ReportCard) *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "student_id", "class_id", "overall_average", "overall_grade", "class_teacher_comment",
		"headteacher_comment", "template_id", "status", "generated_at", "generated_by", "fees_balance",
		"fees_next_term", "other_requirements", "term_ended_on", "next_term_begins", "created_at", "updated_at",
	}).AddRow(card.ID, card.StudentID, card.ClassID, card.OverallAverage, card.OverallGrade,
		card.ClassTeacherComment, card.HeadteacherComment, card.TemplateID, card.Status, card.GeneratedAt,
		card.GeneratedBy, card.FeesBalance, card.FeesNextTerm, card.OtherRequirements, card.TermEndedOn,
		card.NextTermBegins, card.CreatedAt, card.UpdatedAt)
}

func TestReportCardRepositoryCreateAndFind(t *testing.T) {
	db, mock, cleanup := newReportCardRepoMock(t)
	defer cleanup()
	repo := NewReportCardRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO report_cards")).
		WillReturnResult(sqlmock.NewResult(0, 1))

	card := &models.ReportCard{
		StudentID:      "stu1",
		ClassID:        "c1",
		OverallAverage: 78.5,
		OverallGrade:   "B",
		Status:         models.ReportCardGenerated,
		GeneratedAt:    time.Now().UTC(),
		GeneratedBy:    "admin-1",
	}
	require.NoError(t, repo.Create(context.Background(), card))
	require.NotEmpty(t, card.ID)

	mock.ExpectQuery("SELECT .+ FROM report_cards WHERE student_id = \\$1 AND class_id = \\$2").
		WithArgs("stu1", "c1").
		WillReturnRows(reportCardRows(*card))

	fetched, err := repo.FindByStudentAndClass(context.Background(), "stu1", "c1")
	require.NoError(t, err)
	require.Equal(t, card.ID, fetched.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestReportCardRepositoryUpdateComputedLeavesAdminFields(t *testing.T) {
	db, mock, cleanup := newReportCardRepoMock(t)
	defer cleanup()
	repo := NewReportCardRepository(db)

	// The UPDATE statement must not mention the admin-owned columns.
	pattern := regexp.QuoteMeta("UPDATE report_cards SET overall_average = ")
	mock.ExpectExec(pattern).
		WillReturnResult(sqlmock.NewResult(0, 1))

	card := &models.ReportCard{
		StudentID:      "stu1",
		ClassID:        "c1",
		OverallAverage: 81.0,
		OverallGrade:   "A",
		Status:         models.ReportCardGenerated,
		GeneratedAt:    time.Now().UTC(),
		GeneratedBy:    "admin-1",
	}
	require.NoError(t, repo.UpdateComputed(context.Background(), card))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestReportCardRepositoryUpdateComputedMissingRow(t *testing.T) {
	db, mock, cleanup := newReportCardRepoMock(t)
	defer cleanup()
	repo := NewReportCardRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE report_cards SET")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.UpdateComputed(context.Background(), &models.ReportCard{StudentID: "ghost", ClassID: "c1"})
	require.Error(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestReportCardRepositoryList(t *testing.T) {
	db, mock, cleanup := newReportCardRepoMock(t)
	defer cleanup()
	repo := NewReportCardRepository(db)

	card := models.ReportCard{
		ID: "rc1", StudentID: "stu1", ClassID: "c1", OverallAverage: 70,
		OverallGrade: "B", Status: models.ReportCardGenerated,
		GeneratedAt: time.Now(), GeneratedBy: "admin-1",
		CreatedAt: time.Now(), UpdatedAt: time.Now(),
	}
	mock.ExpectQuery("SELECT .+ FROM report_cards WHERE 1=1 AND class_id = \\$1").
		WithArgs("c1").
		WillReturnRows(reportCardRows(card))

	cards, err := repo.List(context.Background(), models.ReportCardFilter{ClassID: "c1"})
	require.NoError(t, err)
	require.Len(t, cards, 1)
	require.NoError(t, mock.ExpectationsWereMet())
}
