package service

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/report-card-api/internal/dto"
	"github.com/noah-isme/report-card-api/internal/grading"
	"github.com/noah-isme/report-card-api/internal/models"
	appErrors "github.com/noah-isme/report-card-api/pkg/errors"
	"github.com/noah-isme/report-card-api/pkg/export"
	"github.com/noah-isme/report-card-api/pkg/jobs"
)

// ReportCardRefreshJob identifies queued refresh tasks.
const ReportCardRefreshJob = "report_card.refresh"

// ReportCardRefreshPayload carries the card key through the job queue.
type ReportCardRefreshPayload struct {
	StudentID string
	ClassID   string
}

type reportCardStore interface {
	List(ctx context.Context, filter models.ReportCardFilter) ([]models.ReportCard, error)
	FindByStudentAndClass(ctx context.Context, studentID, classID string) (*models.ReportCard, error)
	Create(ctx context.Context, card *models.ReportCard) error
	UpdateComputed(ctx context.Context, card *models.ReportCard) error
}

type approvedSubmissionLister interface {
	ListApproved(ctx context.Context, classID, studentID string) ([]models.SubjectSubmission, error)
}

type studentReader interface {
	FindByID(ctx context.Context, id string) (*models.Student, error)
}

type classReader interface {
	FindByID(ctx context.Context, id string) (*models.Class, error)
}

type refreshQueue interface {
	Enqueue(job jobs.Job) error
}

// ReportCardService runs the aggregation engine: it folds a student's
// approved submissions into a single report card using one configuration
// snapshot per batch. Regeneration updates cards in place and never touches
// the admin-entered financial or term-date fields.
type ReportCardService struct {
	cards       reportCardStore
	submissions approvedSubmissionLister
	students    studentReader
	classes     classReader
	snapshots   snapshotProvider
	queue       refreshQueue
	pdf         *export.ReportCardPDF
	metrics     *MetricsService
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewReportCardService constructs the service. The queue may be nil when
// background refresh is disabled.
func NewReportCardService(
	cards reportCardStore,
	submissions approvedSubmissionLister,
	students studentReader,
	classes classReader,
	snapshots snapshotProvider,
	metrics *MetricsService,
	validate *validator.Validate,
	logger *zap.Logger,
) *ReportCardService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReportCardService{
		cards:       cards,
		submissions: submissions,
		students:    students,
		classes:     classes,
		snapshots:   snapshots,
		pdf:         export.NewReportCardPDF(),
		metrics:     metrics,
		validator:   validate,
		logger:      logger,
	}
}

// SetQueue attaches the refresh queue once it has been constructed. The
// queue's handler dispatches back into HandleRefreshJob, so wiring happens
// after both sides exist.
func (s *ReportCardService) SetQueue(queue refreshQueue) {
	s.queue = queue
}

// Generate produces or regenerates report cards for the requested students.
// Students are processed sequentially; one student's failure is recorded in
// the per-item results and never aborts the rest of the batch.
func (s *ReportCardService) Generate(ctx context.Context, actorID string, req dto.GenerateReportCardsRequest) (*dto.GenerateReportCardsResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid generation payload")
	}

	class, err := s.classes.FindByID(ctx, req.ClassID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "class not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class")
	}

	// One snapshot for the whole batch so every student grades against the
	// same boundaries and templates.
	snapshot, err := s.snapshots.Snapshot(ctx)
	if err != nil {
		return nil, err
	}

	results := make([]dto.StudentGenerationResult, 0, len(req.StudentIDs))
	failed := 0
	for _, studentID := range req.StudentIDs {
		result := s.generateOne(ctx, snapshot, actorID, req.ClassID, studentID, req.TemplateID)
		if !result.Success {
			failed++
		}
		results = append(results, result)
	}
	if s.metrics != nil {
		s.metrics.RecordReportCardGeneration(len(results)-failed, failed)
	}

	message := fmt.Sprintf("generated %d report cards", len(results)-failed)
	if failed > 0 {
		message = fmt.Sprintf("generated %d report cards, %d failed", len(results)-failed, failed)
	}

	return &dto.GenerateReportCardsResponse{
		Success:   true,
		Message:   message,
		Results:   results,
		ClassInfo: &dto.ClassInfo{ID: class.ID, Name: class.Name, Grade: class.Grade},
	}, nil
}

func (s *ReportCardService) generateOne(ctx context.Context, snapshot *models.GradingSnapshot, actorID, classID, studentID string, templateID *string) dto.StudentGenerationResult {
	result := dto.StudentGenerationResult{StudentID: studentID}

	student, err := s.students.FindByID(ctx, studentID)
	if err != nil {
		if err == sql.ErrNoRows {
			result.Error = "student not found"
		} else {
			result.Error = "failed to load student"
			s.logger.Error("load student for generation", zap.String("student_id", studentID), zap.Error(err))
		}
		return result
	}
	if student.ClassID != classID {
		result.Error = "student is not enrolled in the requested class"
		return result
	}

	approved, err := s.submissions.ListApproved(ctx, classID, studentID)
	if err != nil {
		result.Error = "failed to load approved submissions"
		s.logger.Error("load approved submissions", zap.String("student_id", studentID), zap.Error(err))
		return result
	}

	average := grading.OverallAverage(approved)
	grade := grading.ResolveGrade(average, snapshot.Boundaries)
	pair := grading.MatchComment(average, snapshot.Templates)

	card, err := s.cards.FindByStudentAndClass(ctx, studentID, classID)
	now := time.Now().UTC()
	switch {
	case err == sql.ErrNoRows:
		card = &models.ReportCard{
			StudentID:   studentID,
			ClassID:     classID,
			Status:      models.ReportCardGenerated,
			GeneratedAt: now,
			GeneratedBy: actorID,
		}
		applyComputed(card, average, grade, pair)
		card.TemplateID = templateID
		if err := s.cards.Create(ctx, card); err != nil {
			result.Error = "failed to save report card"
			s.logger.Error("create report card", zap.String("student_id", studentID), zap.Error(err))
			return result
		}
	case err != nil:
		result.Error = "failed to load report card"
		s.logger.Error("load report card", zap.String("student_id", studentID), zap.Error(err))
		return result
	default:
		applyComputed(card, average, grade, pair)
		if templateID != nil {
			card.TemplateID = templateID
		}
		card.Status = models.ReportCardGenerated
		card.GeneratedAt = now
		card.GeneratedBy = actorID
		if err := s.cards.UpdateComputed(ctx, card); err != nil {
			result.Error = "failed to update report card"
			s.logger.Error("update report card", zap.String("student_id", studentID), zap.Error(err))
			return result
		}
	}

	result.Success = true
	result.ReportCardID = card.ID
	result.OverallAverage = &card.OverallAverage
	result.OverallGrade = card.OverallGrade
	return result
}

// Refresh recomputes an existing card after its inputs changed, typically
// when a submission is approved post-generation. A student without a card is
// not an error; nothing is created until an explicit generation request.
func (s *ReportCardService) Refresh(ctx context.Context, studentID, classID string) error {
	card, err := s.cards.FindByStudentAndClass(ctx, studentID, classID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load report card")
	}

	snapshot, err := s.snapshots.Snapshot(ctx)
	if err != nil {
		return err
	}
	approved, err := s.submissions.ListApproved(ctx, classID, studentID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load approved submissions")
	}

	average := grading.OverallAverage(approved)
	applyComputed(card, average, grading.ResolveGrade(average, snapshot.Boundaries), grading.MatchComment(average, snapshot.Templates))
	card.GeneratedAt = time.Now().UTC()
	if err := s.cards.UpdateComputed(ctx, card); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to refresh report card")
	}
	return nil
}

// EnqueueRefresh schedules a background refresh for the card covering the
// given student and class.
func (s *ReportCardService) EnqueueRefresh(studentID, classID string) error {
	if s.queue == nil {
		return nil
	}
	return s.queue.Enqueue(jobs.Job{
		Type:    ReportCardRefreshJob,
		Payload: ReportCardRefreshPayload{StudentID: studentID, ClassID: classID},
	})
}

// HandleRefreshJob is the queue handler for refresh tasks.
func (s *ReportCardService) HandleRefreshJob(ctx context.Context, job jobs.Job) error {
	payload, ok := job.Payload.(ReportCardRefreshPayload)
	if !ok {
		s.logger.Error("unexpected refresh job payload", zap.String("job_id", job.ID), zap.String("type", job.Type))
		return nil
	}
	return s.Refresh(ctx, payload.StudentID, payload.ClassID)
}

// Get loads the report card for one student and class.
func (s *ReportCardService) Get(ctx context.Context, studentID, classID string) (*models.ReportCard, error) {
	card, err := s.cards.FindByStudentAndClass(ctx, studentID, classID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "report card not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load report card")
	}
	return card, nil
}

// List returns report cards matching the filter.
func (s *ReportCardService) List(ctx context.Context, filter models.ReportCardFilter) ([]models.ReportCard, error) {
	cards, err := s.cards.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list report cards")
	}
	return cards, nil
}

// Print renders the printable PDF for one student's card, including the
// per-subject rows with their numeric identifier column.
func (s *ReportCardService) Print(ctx context.Context, studentID, classID string) ([]byte, string, error) {
	card, err := s.Get(ctx, studentID, classID)
	if err != nil {
		return nil, "", err
	}
	student, err := s.students.FindByID(ctx, studentID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, "", appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	class, err := s.classes.FindByID(ctx, classID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, "", appErrors.Clone(appErrors.ErrNotFound, "class not found")
		}
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class")
	}
	approved, err := s.submissions.ListApproved(ctx, classID, studentID)
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load approved submissions")
	}

	doc := export.ReportCardDocument{
		StudentName:    student.FullName,
		ClassName:      class.Name,
		OverallAverage: card.OverallAverage,
		OverallGrade:   card.OverallGrade,
		GeneratedAt:    card.GeneratedAt,
	}
	if card.ClassTeacherComment != nil {
		doc.ClassTeacherComment = *card.ClassTeacherComment
	}
	if card.HeadteacherComment != nil {
		doc.HeadteacherComment = *card.HeadteacherComment
	}
	if card.FeesBalance != nil {
		doc.FeesBalance = fmt.Sprintf("%.2f", *card.FeesBalance)
	}
	if card.FeesNextTerm != nil {
		doc.FeesNextTerm = fmt.Sprintf("%.2f", *card.FeesNextTerm)
	}
	if card.OtherRequirements != nil {
		doc.OtherRequirements = *card.OtherRequirements
	}
	if card.TermEndedOn != nil {
		doc.TermEndedOn = card.TermEndedOn.Format("2 Jan 2006")
	}
	if card.NextTermBegins != nil {
		doc.NextTermBegins = card.NextTermBegins.Format("2 Jan 2006")
	}
	for _, sub := range approved {
		doc.Subjects = append(doc.Subjects, export.SubjectRow{
			SubjectID:  sub.SubjectID,
			Average:    sub.AverageScore,
			Percentage: sub.Percentage100,
			Grade:      sub.Grade,
			Identifier: grading.SubjectIdentifier(float64(sub.Percentage100)),
			Remarks:    sub.Remarks,
		})
	}

	payload, err := s.pdf.Render(doc)
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render report card pdf")
	}
	filename := fmt.Sprintf("report-card-%s-%s.pdf", studentID, classID)
	return payload, filename, nil
}

// ExportClassResults renders a CSV summary of every report card in a class,
// one row per student.
func (s *ReportCardService) ExportClassResults(ctx context.Context, classID string) ([]byte, string, error) {
	if _, err := s.classes.FindByID(ctx, classID); err != nil {
		if err == sql.ErrNoRows {
			return nil, "", appErrors.Clone(appErrors.ErrNotFound, "class not found")
		}
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class")
	}
	cards, err := s.cards.List(ctx, models.ReportCardFilter{ClassID: classID})
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list report cards")
	}

	dataset := export.Dataset{Headers: []string{"Student", "Overall Average", "Overall Grade", "Status"}}
	for _, card := range cards {
		name := card.StudentID
		if student, err := s.students.FindByID(ctx, card.StudentID); err == nil {
			name = student.FullName
		}
		dataset.Rows = append(dataset.Rows, map[string]string{
			"Student":         name,
			"Overall Average": fmt.Sprintf("%.2f", card.OverallAverage),
			"Overall Grade":   card.OverallGrade,
			"Status":          string(card.Status),
		})
	}

	payload, err := export.NewCSVExporter().Render(dataset)
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render class results csv")
	}
	return payload, fmt.Sprintf("class-results-%s.csv", classID), nil
}

func applyComputed(card *models.ReportCard, average float64, grade string, pair *models.CommentPair) {
	card.OverallAverage = average
	card.OverallGrade = grade
	if pair != nil {
		card.ClassTeacherComment = &pair.ClassTeacherComment
		card.HeadteacherComment = &pair.HeadteacherComment
	} else {
		card.ClassTeacherComment = nil
		card.HeadteacherComment = nil
	}
}
