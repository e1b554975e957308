package service

import (
	"context"
	"database/sql"
	"fmt"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/report-card-api/internal/dto"
	"github.com/noah-isme/report-card-api/internal/models"
	appErrors "github.com/noah-isme/report-card-api/pkg/errors"
)

type mockCardStore struct {
	cards  map[string]*models.ReportCard
	nextID int
}

func (m *mockCardStore) key(studentID, classID string) string {
	return studentID + "/" + classID
}

func (m *mockCardStore) List(ctx context.Context, filter models.ReportCardFilter) ([]models.ReportCard, error) {
	out := make([]models.ReportCard, 0, len(m.cards))
	for _, card := range m.cards {
		if filter.ClassID != "" && card.ClassID != filter.ClassID {
			continue
		}
		out = append(out, *card)
	}
	return out, nil
}

func (m *mockCardStore) FindByStudentAndClass(ctx context.Context, studentID, classID string) (*models.ReportCard, error) {
	if card, ok := m.cards[m.key(studentID, classID)]; ok {
		found := *card
		return &found, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockCardStore) Create(ctx context.Context, card *models.ReportCard) error {
	if m.cards == nil {
		m.cards = make(map[string]*models.ReportCard)
	}
	m.nextID++
	card.ID = fmt.Sprintf("rc%d", m.nextID)
	m.cards[m.key(card.StudentID, card.ClassID)] = card
	return nil
}

func (m *mockCardStore) UpdateComputed(ctx context.Context, card *models.ReportCard) error {
	key := m.key(card.StudentID, card.ClassID)
	existing, ok := m.cards[key]
	if !ok {
		return sql.ErrNoRows
	}
	// Only the engine-owned columns change; admin fields stay put.
	existing.OverallAverage = card.OverallAverage
	existing.OverallGrade = card.OverallGrade
	existing.ClassTeacherComment = card.ClassTeacherComment
	existing.HeadteacherComment = card.HeadteacherComment
	existing.TemplateID = card.TemplateID
	existing.Status = card.Status
	existing.GeneratedAt = card.GeneratedAt
	existing.GeneratedBy = card.GeneratedBy
	card.ID = existing.ID
	return nil
}

type mockApprovedLister struct {
	approved map[string][]models.SubjectSubmission
	fail     map[string]bool
}

func (m *mockApprovedLister) ListApproved(ctx context.Context, classID, studentID string) ([]models.SubjectSubmission, error) {
	if m.fail[studentID] {
		return nil, fmt.Errorf("storage unavailable")
	}
	return m.approved[classID+"/"+studentID], nil
}

type mockStudentReader struct {
	students map[string]*models.Student
}

func (m *mockStudentReader) FindByID(ctx context.Context, id string) (*models.Student, error) {
	if student, ok := m.students[id]; ok {
		return student, nil
	}
	return nil, sql.ErrNoRows
}

type mockClassReader struct {
	classes map[string]*models.Class
}

func (m *mockClassReader) FindByID(ctx context.Context, id string) (*models.Class, error) {
	if class, ok := m.classes[id]; ok {
		return class, nil
	}
	return nil, sql.ErrNoRows
}

type reportCardFixture struct {
	cards       *mockCardStore
	submissions *mockApprovedLister
	students    *mockStudentReader
	classes     *mockClassReader
	svc         *ReportCardService
}

func newReportCardFixture() *reportCardFixture {
	f := &reportCardFixture{
		cards: &mockCardStore{},
		submissions: &mockApprovedLister{
			approved: map[string][]models.SubjectSubmission{},
			fail:     map[string]bool{},
		},
		students: &mockStudentReader{students: map[string]*models.Student{
			"stu1": {ID: "stu1", FullName: "Amina K", ClassID: "c1", Active: true},
			"stu2": {ID: "stu2", FullName: "Brian O", ClassID: "c1", Active: true},
		}},
		classes: &mockClassReader{classes: map[string]*models.Class{
			"c1": {ID: "c1", Name: "P7 West", Grade: "P7"},
		}},
	}
	snapshots := &stubSnapshots{snapshot: models.GradingSnapshot{
		Boundaries: defaultBoundaries(),
		Templates: []models.CommentTemplate{
			{ID: "t-low", MinPercentage: 0, MaxPercentage: 59, ClassTeacherComment: "More effort needed", HeadteacherComment: "Work harder"},
			{ID: "t-high", MinPercentage: 60, MaxPercentage: 100, ClassTeacherComment: "Good work", HeadteacherComment: "Keep it up"},
		},
	}}
	f.svc = NewReportCardService(f.cards, f.submissions, f.students, f.classes, snapshots, nil, validator.New(), zap.NewNop())
	return f
}

func approvedSubmission(studentID string, percentage int) models.SubjectSubmission {
	return models.SubjectSubmission{
		StudentID: studentID, ClassID: "c1", SubjectID: "math",
		Percentage100: percentage, Status: models.SubmissionApproved,
	}
}

func TestReportCardServiceGenerateCreatesCard(t *testing.T) {
	f := newReportCardFixture()
	f.submissions.approved["c1/stu1"] = []models.SubjectSubmission{
		approvedSubmission("stu1", 85),
		approvedSubmission("stu1", 70),
	}

	res, err := f.svc.Generate(context.Background(), "admin-1", dto.GenerateReportCardsRequest{
		ClassID: "c1", StudentIDs: []string{"stu1"},
	})
	require.NoError(t, err)
	require.Len(t, res.Results, 1)
	result := res.Results[0]
	assert.True(t, result.Success)
	require.NotNil(t, result.OverallAverage)
	assert.Equal(t, 77.5, *result.OverallAverage)
	assert.Equal(t, "B", result.OverallGrade)
	assert.Equal(t, "P7 West", res.ClassInfo.Name)

	card := f.cards.cards["stu1/c1"]
	require.NotNil(t, card)
	require.NotNil(t, card.ClassTeacherComment)
	assert.Equal(t, "Good work", *card.ClassTeacherComment)
}

func TestReportCardServiceGenerateNoApprovedSubmissions(t *testing.T) {
	f := newReportCardFixture()

	res, err := f.svc.Generate(context.Background(), "admin-1", dto.GenerateReportCardsRequest{
		ClassID: "c1", StudentIDs: []string{"stu1"},
	})
	require.NoError(t, err)
	result := res.Results[0]
	assert.True(t, result.Success)
	assert.Equal(t, 0.0, *result.OverallAverage)
	// No boundary covers zero in the fixture set.
	assert.Equal(t, "F", result.OverallGrade)
}

func TestReportCardServiceGenerateIsolatesFailures(t *testing.T) {
	f := newReportCardFixture()
	f.submissions.approved["c1/stu2"] = []models.SubjectSubmission{approvedSubmission("stu2", 90)}

	res, err := f.svc.Generate(context.Background(), "admin-1", dto.GenerateReportCardsRequest{
		ClassID: "c1", StudentIDs: []string{"ghost", "stu2"},
	})
	require.NoError(t, err)
	require.Len(t, res.Results, 2)
	assert.False(t, res.Results[0].Success)
	assert.Equal(t, "student not found", res.Results[0].Error)
	assert.True(t, res.Results[1].Success)
	assert.True(t, res.Success)
	assert.Contains(t, res.Message, "1 failed")
}

func TestReportCardServiceGenerateUnknownClass(t *testing.T) {
	f := newReportCardFixture()

	_, err := f.svc.Generate(context.Background(), "admin-1", dto.GenerateReportCardsRequest{
		ClassID: "ghost", StudentIDs: []string{"stu1"},
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestReportCardServiceRegenerationPreservesAdminFields(t *testing.T) {
	f := newReportCardFixture()
	fees := 120000.0
	f.cards.cards = map[string]*models.ReportCard{
		"stu1/c1": {
			ID: "rc1", StudentID: "stu1", ClassID: "c1",
			OverallAverage: 50, OverallGrade: "C",
			FeesBalance: &fees,
		},
	}
	f.submissions.approved["c1/stu1"] = []models.SubjectSubmission{approvedSubmission("stu1", 85)}

	res, err := f.svc.Generate(context.Background(), "admin-2", dto.GenerateReportCardsRequest{
		ClassID: "c1", StudentIDs: []string{"stu1"},
	})
	require.NoError(t, err)
	assert.True(t, res.Results[0].Success)

	card := f.cards.cards["stu1/c1"]
	assert.Equal(t, 85.0, card.OverallAverage)
	assert.Equal(t, "A", card.OverallGrade)
	require.NotNil(t, card.FeesBalance)
	assert.Equal(t, fees, *card.FeesBalance)
	assert.Equal(t, "admin-2", card.GeneratedBy)
}

func TestReportCardServiceRefreshRecomputesExistingCard(t *testing.T) {
	f := newReportCardFixture()
	f.cards.cards = map[string]*models.ReportCard{
		"stu1/c1": {ID: "rc1", StudentID: "stu1", ClassID: "c1", OverallAverage: 70, OverallGrade: "B", GeneratedBy: "admin-1"},
	}
	f.submissions.approved["c1/stu1"] = []models.SubjectSubmission{
		approvedSubmission("stu1", 85),
		approvedSubmission("stu1", 95),
	}

	require.NoError(t, f.svc.Refresh(context.Background(), "stu1", "c1"))
	card := f.cards.cards["stu1/c1"]
	assert.Equal(t, 90.0, card.OverallAverage)
	assert.Equal(t, "A", card.OverallGrade)
}

func TestReportCardServiceRefreshWithoutCardIsNoop(t *testing.T) {
	f := newReportCardFixture()
	require.NoError(t, f.svc.Refresh(context.Background(), "stu1", "c1"))
	assert.Empty(t, f.cards.cards)
}

func TestReportCardServicePrint(t *testing.T) {
	f := newReportCardFixture()
	comment := "Good work"
	f.cards.cards = map[string]*models.ReportCard{
		"stu1/c1": {
			ID: "rc1", StudentID: "stu1", ClassID: "c1",
			OverallAverage: 85, OverallGrade: "A",
			ClassTeacherComment: &comment,
		},
	}
	f.submissions.approved["c1/stu1"] = []models.SubjectSubmission{approvedSubmission("stu1", 85)}

	payload, filename, err := f.svc.Print(context.Background(), "stu1", "c1")
	require.NoError(t, err)
	assert.NotEmpty(t, payload)
	assert.Equal(t, "report-card-stu1-c1.pdf", filename)
}

func TestReportCardServiceExportClassResults(t *testing.T) {
	f := newReportCardFixture()
	f.cards.cards = map[string]*models.ReportCard{
		"stu1/c1": {ID: "rc1", StudentID: "stu1", ClassID: "c1", OverallAverage: 85, OverallGrade: "A", Status: models.ReportCardGenerated},
	}

	payload, filename, err := f.svc.ExportClassResults(context.Background(), "c1")
	require.NoError(t, err)
	assert.Contains(t, string(payload), "Amina K")
	assert.Equal(t, "class-results-c1.csv", filename)
}
