package service

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/report-card-api/internal/dto"
	"github.com/noah-isme/report-card-api/internal/models"
	appErrors "github.com/noah-isme/report-card-api/pkg/errors"
)

type mockSubmissionStore struct {
	rows   map[string]*models.SubjectSubmission
	nextID int
}

func (m *mockSubmissionStore) key(classID, studentID, subjectID string) string {
	return classID + "/" + studentID + "/" + subjectID
}

func (m *mockSubmissionStore) List(ctx context.Context, filter models.SubmissionFilter) ([]models.SubjectSubmission, error) {
	out := make([]models.SubjectSubmission, 0, len(m.rows))
	for _, row := range m.rows {
		if filter.TeacherID != "" && row.TeacherID != filter.TeacherID {
			continue
		}
		if filter.Status != "" && row.Status != filter.Status {
			continue
		}
		out = append(out, *row)
	}
	return out, nil
}

func (m *mockSubmissionStore) FindByID(ctx context.Context, id string) (*models.SubjectSubmission, error) {
	for _, row := range m.rows {
		if row.ID == id {
			found := *row
			return &found, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockSubmissionStore) FindByKey(ctx context.Context, classID, studentID, subjectID string) (*models.SubjectSubmission, error) {
	if row, ok := m.rows[m.key(classID, studentID, subjectID)]; ok {
		found := *row
		return &found, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockSubmissionStore) Upsert(ctx context.Context, submission *models.SubjectSubmission) (int64, error) {
	if m.rows == nil {
		m.rows = make(map[string]*models.SubjectSubmission)
	}
	key := m.key(submission.ClassID, submission.StudentID, submission.SubjectID)
	if existing, ok := m.rows[key]; ok {
		if existing.Status != models.SubmissionPending || existing.TeacherID != submission.TeacherID {
			return 0, nil
		}
		submission.ID = existing.ID
		m.rows[key] = submission
		return 1, nil
	}
	m.nextID++
	submission.ID = fmt.Sprintf("s%d", m.nextID)
	m.rows[key] = submission
	return 1, nil
}

func (m *mockSubmissionStore) UpdatePending(ctx context.Context, submission *models.SubjectSubmission) (int64, error) {
	for key, row := range m.rows {
		if row.ID == submission.ID {
			if row.Status != models.SubmissionPending || row.TeacherID != submission.TeacherID {
				return 0, nil
			}
			submission.ClassID = row.ClassID
			submission.StudentID = row.StudentID
			submission.SubjectID = row.SubjectID
			submission.Status = row.Status
			m.rows[key] = submission
			return 1, nil
		}
	}
	return 0, nil
}

func (m *mockSubmissionStore) DeletePending(ctx context.Context, id, teacherID string) (int64, error) {
	for key, row := range m.rows {
		if row.ID == id {
			if row.Status != models.SubmissionPending || row.TeacherID != teacherID {
				return 0, nil
			}
			delete(m.rows, key)
			return 1, nil
		}
	}
	return 0, nil
}

func (m *mockSubmissionStore) SetStatus(ctx context.Context, id string, status models.SubmissionStatus, reviewedAt time.Time) (int64, error) {
	for _, row := range m.rows {
		if row.ID == id {
			if row.Status != models.SubmissionPending {
				return 0, nil
			}
			row.Status = status
			row.ReviewedAt = &reviewedAt
			return 1, nil
		}
	}
	return 0, nil
}

type stubSnapshots struct {
	snapshot models.GradingSnapshot
}

func (s *stubSnapshots) Snapshot(ctx context.Context) (*models.GradingSnapshot, error) {
	return &s.snapshot, nil
}

type stubRefresher struct {
	calls []string
}

func (s *stubRefresher) EnqueueRefresh(studentID, classID string) error {
	s.calls = append(s.calls, studentID+"/"+classID)
	return nil
}

func defaultBoundaries() []models.GradeBoundary {
	return []models.GradeBoundary{
		{ID: "b1", Grade: "A", MinScore: 80, MaxScore: 100},
		{ID: "b2", Grade: "B", MinScore: 60, MaxScore: 79.99},
		{ID: "b3", Grade: "C", MinScore: 40, MaxScore: 59.99},
	}
}

func newSubmissionService(store *mockSubmissionStore, refresher *stubRefresher) *SubmissionService {
	snapshots := &stubSnapshots{snapshot: models.GradingSnapshot{Boundaries: defaultBoundaries()}}
	var enqueuer refreshEnqueuer
	if refresher != nil {
		enqueuer = refresher
	}
	return NewSubmissionService(store, snapshots, enqueuer, validator.New(), zap.NewNop())
}

func validSubmitRequest() dto.SubmitScoresRequest {
	return dto.SubmitScoresRequest{
		ClassID:       "c1",
		SubjectID:     "math",
		StudentID:     "stu1",
		A1Score:       "80.0",
		A2Score:       "85.5",
		A3Score:       "90.0",
		Percentage20:  "17",
		Percentage80:  "68",
		Percentage100: "85",
	}
}

func TestSubmissionServiceSubmitComputesDerivedFields(t *testing.T) {
	store := &mockSubmissionStore{}
	svc := newSubmissionService(store, nil)

	submission, err := svc.Submit(context.Background(), "t1", validSubmitRequest())
	require.NoError(t, err)
	assert.Equal(t, 85.17, submission.AverageScore)
	assert.Equal(t, "A", submission.Grade)
	assert.Equal(t, "Exceptional", submission.Remarks)
	assert.Equal(t, models.SubmissionPending, submission.Status)
}

func TestSubmissionServiceSubmitRejectsBareIntegerScore(t *testing.T) {
	svc := newSubmissionService(&mockSubmissionStore{}, nil)

	req := validSubmitRequest()
	req.A1Score = "80"
	_, err := svc.Submit(context.Background(), "t1", req)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestSubmissionServiceSubmitRejectsDecimalPercentage(t *testing.T) {
	svc := newSubmissionService(&mockSubmissionStore{}, nil)

	req := validSubmitRequest()
	req.Percentage100 = "85.0"
	_, err := svc.Submit(context.Background(), "t1", req)
	require.Error(t, err)
}

func TestSubmissionServiceResubmitOverwritesPendingRow(t *testing.T) {
	store := &mockSubmissionStore{}
	svc := newSubmissionService(store, nil)

	first, err := svc.Submit(context.Background(), "t1", validSubmitRequest())
	require.NoError(t, err)

	req := validSubmitRequest()
	req.Percentage100 = "70"
	second, err := svc.Submit(context.Background(), "t1", req)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "B", second.Grade)
	assert.Len(t, store.rows, 1)
}

func TestSubmissionServiceSubmitAfterReviewForbidden(t *testing.T) {
	store := &mockSubmissionStore{}
	svc := newSubmissionService(store, nil)

	submission, err := svc.Submit(context.Background(), "t1", validSubmitRequest())
	require.NoError(t, err)
	_, err = svc.Approve(context.Background(), submission.ID)
	require.NoError(t, err)

	_, err = svc.Submit(context.Background(), "t1", validSubmitRequest())
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
	assert.Equal(t, http.StatusForbidden, appErrors.FromError(err).Status)
}

func TestSubmissionServiceSubmitOverForeignPendingForbidden(t *testing.T) {
	store := &mockSubmissionStore{}
	svc := newSubmissionService(store, nil)

	_, err := svc.Submit(context.Background(), "t1", validSubmitRequest())
	require.NoError(t, err)

	_, err = svc.Submit(context.Background(), "t2", validSubmitRequest())
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErr.Code)
	assert.Contains(t, appErr.Message, "another teacher")
}

func TestSubmissionServiceUpdateByAnotherTeacherForbidden(t *testing.T) {
	store := &mockSubmissionStore{}
	svc := newSubmissionService(store, nil)

	submission, err := svc.Submit(context.Background(), "t1", validSubmitRequest())
	require.NoError(t, err)

	update := dto.UpdateScoresRequest{
		A1Score: "70.0", A2Score: "70.0", A3Score: "70.0",
		Percentage20: "14", Percentage80: "56", Percentage100: "70",
	}
	_, err = svc.Update(context.Background(), "intruder", submission.ID, update)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestSubmissionServiceUpdateMissingNotFound(t *testing.T) {
	svc := newSubmissionService(&mockSubmissionStore{}, nil)

	update := dto.UpdateScoresRequest{
		A1Score: "70.0", A2Score: "70.0", A3Score: "70.0",
		Percentage20: "14", Percentage80: "56", Percentage100: "70",
	}
	_, err := svc.Update(context.Background(), "t1", "ghost", update)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestSubmissionServiceDeleteApprovedForbiddenForOwner(t *testing.T) {
	store := &mockSubmissionStore{}
	svc := newSubmissionService(store, nil)

	submission, err := svc.Submit(context.Background(), "t1", validSubmitRequest())
	require.NoError(t, err)
	_, err = svc.Approve(context.Background(), submission.ID)
	require.NoError(t, err)

	err = svc.Delete(context.Background(), "t1", submission.ID)
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErr.Code)
	assert.Equal(t, http.StatusForbidden, appErr.Status)
}

func TestSubmissionServiceApproveEnqueuesRefresh(t *testing.T) {
	store := &mockSubmissionStore{}
	refresher := &stubRefresher{}
	svc := newSubmissionService(store, refresher)

	submission, err := svc.Submit(context.Background(), "t1", validSubmitRequest())
	require.NoError(t, err)

	approved, err := svc.Approve(context.Background(), submission.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SubmissionApproved, approved.Status)
	assert.NotNil(t, approved.ReviewedAt)
	assert.Equal(t, []string{"stu1/c1"}, refresher.calls)
}

func TestSubmissionServiceRejectTwiceConflicts(t *testing.T) {
	store := &mockSubmissionStore{}
	svc := newSubmissionService(store, nil)

	submission, err := svc.Submit(context.Background(), "t1", validSubmitRequest())
	require.NoError(t, err)

	rejected, err := svc.Reject(context.Background(), submission.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SubmissionRejected, rejected.Status)

	_, err = svc.Reject(context.Background(), submission.ID)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotPending.Code, appErrors.FromError(err).Code)
}

func TestSubmissionServiceListScopesTeachers(t *testing.T) {
	store := &mockSubmissionStore{}
	svc := newSubmissionService(store, nil)

	_, err := svc.Submit(context.Background(), "t1", validSubmitRequest())
	require.NoError(t, err)
	other := validSubmitRequest()
	other.StudentID = "stu2"
	_, err = svc.Submit(context.Background(), "t2", other)
	require.NoError(t, err)

	actor := &models.JWTClaims{UserID: "t1", Role: models.RoleTeacher}
	listed, err := svc.List(context.Background(), actor, models.SubmissionFilter{TeacherID: "t2"})
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, "t1", listed[0].TeacherID)
}
