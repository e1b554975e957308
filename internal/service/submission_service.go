package service

import (
	"context"
	"database/sql"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/report-card-api/internal/dto"
	"github.com/noah-isme/report-card-api/internal/grading"
	"github.com/noah-isme/report-card-api/internal/models"
	appErrors "github.com/noah-isme/report-card-api/pkg/errors"
)

type submissionStore interface {
	List(ctx context.Context, filter models.SubmissionFilter) ([]models.SubjectSubmission, error)
	FindByID(ctx context.Context, id string) (*models.SubjectSubmission, error)
	FindByKey(ctx context.Context, classID, studentID, subjectID string) (*models.SubjectSubmission, error)
	Upsert(ctx context.Context, submission *models.SubjectSubmission) (int64, error)
	UpdatePending(ctx context.Context, submission *models.SubjectSubmission) (int64, error)
	DeletePending(ctx context.Context, id, teacherID string) (int64, error)
	SetStatus(ctx context.Context, id string, status models.SubmissionStatus, reviewedAt time.Time) (int64, error)
}

type snapshotProvider interface {
	Snapshot(ctx context.Context) (*models.GradingSnapshot, error)
}

type refreshEnqueuer interface {
	EnqueueRefresh(studentID, classID string) error
}

// SubmissionService owns the subject submission workflow: score entry with
// the formatting rules, pending-only edits scoped to the owning teacher, and
// the approve/reject review transitions. Ownership and status guards live in
// the SQL row filters; the service maps zero-row outcomes onto the proper
// domain errors.
type SubmissionService struct {
	repo      submissionStore
	snapshots snapshotProvider
	refreshes refreshEnqueuer
	validator *validator.Validate
	logger    *zap.Logger
}

// NewSubmissionService constructs the service. The refresh enqueuer may be
// nil, in which case approvals do not trigger report card refreshes.
func NewSubmissionService(repo submissionStore, snapshots snapshotProvider, refreshes refreshEnqueuer, validate *validator.Validate, logger *zap.Logger) *SubmissionService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SubmissionService{repo: repo, snapshots: snapshots, refreshes: refreshes, validator: validate, logger: logger}
}

// Submit records or replaces a teacher's scores for one student and subject.
// Resubmitting the same key overwrites the row while it is still pending; a
// reviewed row can no longer be replaced.
func (s *SubmissionService) Submit(ctx context.Context, teacherID string, req dto.SubmitScoresRequest) (*models.SubjectSubmission, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid submission payload")
	}
	scores, err := s.parseScores(req.A1Score, req.A2Score, req.A3Score, req.Percentage20, req.Percentage80, req.Percentage100)
	if err != nil {
		return nil, err
	}

	snapshot, err := s.snapshots.Snapshot(ctx)
	if err != nil {
		return nil, err
	}

	submission := &models.SubjectSubmission{
		TeacherID:      teacherID,
		ClassID:        req.ClassID,
		SubjectID:      req.SubjectID,
		StudentID:      req.StudentID,
		TeacherComment: req.TeacherComment,
		Status:         models.SubmissionPending,
	}
	scores.apply(submission, snapshot.Boundaries)

	affected, err := s.repo.Upsert(ctx, submission)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save submission")
	}
	if affected == 0 {
		return nil, s.explainBlockedUpsert(ctx, teacherID, req.ClassID, req.StudentID, req.SubjectID)
	}

	stored, err := s.repo.FindByKey(ctx, req.ClassID, req.StudentID, req.SubjectID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load submission")
	}
	return stored, nil
}

// Update edits a pending submission owned by the calling teacher.
func (s *SubmissionService) Update(ctx context.Context, teacherID, id string, req dto.UpdateScoresRequest) (*models.SubjectSubmission, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid submission payload")
	}
	scores, err := s.parseScores(req.A1Score, req.A2Score, req.A3Score, req.Percentage20, req.Percentage80, req.Percentage100)
	if err != nil {
		return nil, err
	}

	snapshot, err := s.snapshots.Snapshot(ctx)
	if err != nil {
		return nil, err
	}

	submission := &models.SubjectSubmission{ID: id, TeacherID: teacherID, TeacherComment: req.TeacherComment}
	scores.apply(submission, snapshot.Boundaries)

	affected, err := s.repo.UpdatePending(ctx, submission)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update submission")
	}
	if affected == 0 {
		return nil, s.explainNoRows(ctx, teacherID, id)
	}

	updated, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load submission")
	}
	return updated, nil
}

// Delete withdraws a pending submission owned by the calling teacher.
func (s *SubmissionService) Delete(ctx context.Context, teacherID, id string) error {
	affected, err := s.repo.DeletePending(ctx, id, teacherID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete submission")
	}
	if affected == 0 {
		return s.explainNoRows(ctx, teacherID, id)
	}
	return nil
}

// Approve marks a pending submission eligible for aggregation. When an
// existing report card covers the submission's student and class, a refresh
// is queued so the card reflects the newly approved subject.
func (s *SubmissionService) Approve(ctx context.Context, id string) (*models.SubjectSubmission, error) {
	submission, err := s.review(ctx, id, models.SubmissionApproved)
	if err != nil {
		return nil, err
	}
	if s.refreshes != nil {
		if err := s.refreshes.EnqueueRefresh(submission.StudentID, submission.ClassID); err != nil {
			s.logger.Warn("failed to enqueue report card refresh",
				zap.String("student_id", submission.StudentID),
				zap.String("class_id", submission.ClassID),
				zap.Error(err))
		}
	}
	return submission, nil
}

// Reject permanently excludes a pending submission from aggregation.
func (s *SubmissionService) Reject(ctx context.Context, id string) (*models.SubjectSubmission, error) {
	return s.review(ctx, id, models.SubmissionRejected)
}

// Get loads a single submission. Teachers may only read their own rows.
func (s *SubmissionService) Get(ctx context.Context, actor *models.JWTClaims, id string) (*models.SubjectSubmission, error) {
	submission, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "submission not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load submission")
	}
	if actor != nil && actor.Role == models.RoleTeacher && submission.TeacherID != actor.UserID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "submission belongs to another teacher")
	}
	return submission, nil
}

// List returns submissions matching the filter. Teachers are always scoped
// to their own rows regardless of the requested filter.
func (s *SubmissionService) List(ctx context.Context, actor *models.JWTClaims, filter models.SubmissionFilter) ([]models.SubjectSubmission, error) {
	if actor != nil && actor.Role == models.RoleTeacher {
		filter.TeacherID = actor.UserID
	}
	submissions, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list submissions")
	}
	return submissions, nil
}

func (s *SubmissionService) review(ctx context.Context, id string, status models.SubmissionStatus) (*models.SubjectSubmission, error) {
	affected, err := s.repo.SetStatus(ctx, id, status, time.Now().UTC())
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to review submission")
	}
	if affected == 0 {
		if _, err := s.repo.FindByID(ctx, id); err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "submission not found")
		}
		return nil, appErrors.Clone(appErrors.ErrNotPending, "submission has already been reviewed")
	}
	submission, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load submission")
	}
	return submission, nil
}

// explainNoRows distinguishes why a guarded mutation matched nothing: the row
// is gone, owned by someone else, or no longer pending.
func (s *SubmissionService) explainNoRows(ctx context.Context, teacherID, id string) error {
	submission, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrNotFound, "submission not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load submission")
	}
	return blockedMutationError(submission, teacherID)
}

// explainBlockedUpsert is the natural-key counterpart of explainNoRows for the
// submit path, where the blocked row is identified by (class, student, subject).
func (s *SubmissionService) explainBlockedUpsert(ctx context.Context, teacherID, classID, studentID, subjectID string) error {
	submission, err := s.repo.FindByKey(ctx, classID, studentID, subjectID)
	if err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrNotFound, "submission not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load submission")
	}
	return blockedMutationError(submission, teacherID)
}

// blockedMutationError classifies a teacher mutation filtered out by the row
// guards. Both outcomes are authorization failures: a reviewed submission is
// locked against its owner just as firmly as against everyone else.
func blockedMutationError(submission *models.SubjectSubmission, teacherID string) error {
	if submission.TeacherID != teacherID {
		return appErrors.Clone(appErrors.ErrForbidden, "submission belongs to another teacher")
	}
	return appErrors.Clone(appErrors.ErrForbidden, "submission has been reviewed and can no longer be changed")
}

type parsedScores struct {
	a1, a2, a3     float64
	p20, p80, p100 int
}

func (s *SubmissionService) parseScores(a1, a2, a3, p20, p80, p100 string) (*parsedScores, error) {
	out := &parsedScores{}
	var err error
	if out.a1, err = grading.ValidateAssessmentScore(a1); err != nil {
		return nil, err
	}
	if out.a2, err = grading.ValidateAssessmentScore(a2); err != nil {
		return nil, err
	}
	if out.a3, err = grading.ValidateAssessmentScore(a3); err != nil {
		return nil, err
	}
	if out.p20, err = grading.ValidateWeightedPercent(p20); err != nil {
		return nil, err
	}
	if out.p80, err = grading.ValidateWeightedPercent(p80); err != nil {
		return nil, err
	}
	if out.p100, err = grading.ValidateWeightedPercent(p100); err != nil {
		return nil, err
	}
	return out, nil
}

// apply writes the parsed scores and their derived fields onto the row. The
// letter grade and remarks both derive from the weighted total.
func (p *parsedScores) apply(submission *models.SubjectSubmission, boundaries []models.GradeBoundary) {
	submission.A1Score = p.a1
	submission.A2Score = p.a2
	submission.A3Score = p.a3
	submission.AverageScore = grading.Aggregate(p.a1, p.a2, p.a3)
	submission.Percentage20 = p.p20
	submission.Percentage80 = p.p80
	submission.Percentage100 = p.p100
	submission.Grade = grading.ResolveGrade(float64(p.p100), boundaries)
	submission.Remarks = string(grading.ClassifyAchievement(float64(p.p100)))
}
