package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStudentMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestStudentRepositoryFindByID(t *testing.T) {
	db, mock, cleanup := newStudentMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "full_name", "gender", "class_id", "active", "created_at", "updated_at"}).
		AddRow("stu1", "Amina K", "F", "c1", true, now, now)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, full_name, gender, class_id, active, created_at, updated_at FROM students WHERE id = $1")).
		WithArgs("stu1").
		WillReturnRows(rows)

	student, err := repo.FindByID(context.Background(), "stu1")
	require.NoError(t, err)
	assert.Equal(t, "Amina K", student.FullName)
	assert.Equal(t, "c1", student.ClassID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryListByClass(t *testing.T) {
	db, mock, cleanup := newStudentMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "full_name", "gender", "class_id", "active", "created_at", "updated_at"}).
		AddRow("stu1", "Amina K", "F", "c1", true, now, now).
		AddRow("stu2", "Brian O", "M", "c1", true, now, now)
	mock.ExpectQuery("SELECT id, full_name, gender, class_id, active, created_at, updated_at").
		WithArgs("c1").
		WillReturnRows(rows)

	students, err := repo.ListByClass(context.Background(), "c1")
	require.NoError(t, err)
	require.Len(t, students, 2)
	assert.Equal(t, "Brian O", students[1].FullName)
	assert.NoError(t, mock.ExpectationsWereMet())
}
