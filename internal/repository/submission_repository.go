package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/report-card-api/internal/models"
)

const submissionColumns = `id, teacher_id, class_id, subject_id, student_id, a1_score, a2_score, a3_score,
        average_score, percentage_20, percentage_80, percentage_100, grade, remarks, teacher_comment,
        status, submitted_at, reviewed_at, updated_at`

// SubmissionRepository handles subject submission persistence. Teacher-side
// mutations are row-filtered by owner and pending status; callers receive the
// affected-row count so a filtered-out mutation surfaces as an explicit
// authorization failure instead of a silent no-op.
type SubmissionRepository struct {
	db *sqlx.DB
}

// NewSubmissionRepository creates a new submission repository.
func NewSubmissionRepository(db *sqlx.DB) *SubmissionRepository {
	return &SubmissionRepository{db: db}
}

// List returns submissions matching the filter.
func (r *SubmissionRepository) List(ctx context.Context, filter models.SubmissionFilter) ([]models.SubjectSubmission, error) {
	query := `SELECT ` + submissionColumns + ` FROM subject_submissions WHERE 1=1`
	var args []interface{}
	if filter.TeacherID != "" {
		query += fmt.Sprintf(" AND teacher_id = $%d", len(args)+1)
		args = append(args, filter.TeacherID)
	}
	if filter.ClassID != "" {
		query += fmt.Sprintf(" AND class_id = $%d", len(args)+1)
		args = append(args, filter.ClassID)
	}
	if filter.StudentID != "" {
		query += fmt.Sprintf(" AND student_id = $%d", len(args)+1)
		args = append(args, filter.StudentID)
	}
	if filter.SubjectID != "" {
		query += fmt.Sprintf(" AND subject_id = $%d", len(args)+1)
		args = append(args, filter.SubjectID)
	}
	if filter.Status != "" {
		query += fmt.Sprintf(" AND status = $%d", len(args)+1)
		args = append(args, filter.Status)
	}
	query += " ORDER BY submitted_at DESC"
	var submissions []models.SubjectSubmission
	if err := r.db.SelectContext(ctx, &submissions, query, args...); err != nil {
		return nil, fmt.Errorf("list submissions: %w", err)
	}
	return submissions, nil
}

// FindByID returns a single submission row.
func (r *SubmissionRepository) FindByID(ctx context.Context, id string) (*models.SubjectSubmission, error) {
	query := `SELECT ` + submissionColumns + ` FROM subject_submissions WHERE id = $1`
	var submission models.SubjectSubmission
	if err := r.db.GetContext(ctx, &submission, query, id); err != nil {
		return nil, err
	}
	return &submission, nil
}

// FindByKey returns the submission for the natural key.
func (r *SubmissionRepository) FindByKey(ctx context.Context, classID, studentID, subjectID string) (*models.SubjectSubmission, error) {
	query := `SELECT ` + submissionColumns + ` FROM subject_submissions
        WHERE class_id = $1 AND student_id = $2 AND subject_id = $3`
	var submission models.SubjectSubmission
	if err := r.db.GetContext(ctx, &submission, query, classID, studentID, subjectID); err != nil {
		return nil, err
	}
	return &submission, nil
}

// Upsert inserts or, while the existing row is still pending and owned by the
// same teacher, overwrites the submission for (class_id, student_id,
// subject_id). Returns the affected-row count: zero means the existing row is
// locked by review or owned by another teacher.
func (r *SubmissionRepository) Upsert(ctx context.Context, submission *models.SubjectSubmission) (int64, error) {
	if submission.ID == "" {
		submission.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	submission.SubmittedAt = now
	submission.UpdatedAt = now
	const query = `INSERT INTO subject_submissions (id, teacher_id, class_id, subject_id, student_id,
            a1_score, a2_score, a3_score, average_score, percentage_20, percentage_80, percentage_100,
            grade, remarks, teacher_comment, status, submitted_at, reviewed_at, updated_at)
        VALUES (:id, :teacher_id, :class_id, :subject_id, :student_id,
            :a1_score, :a2_score, :a3_score, :average_score, :percentage_20, :percentage_80, :percentage_100,
            :grade, :remarks, :teacher_comment, :status, :submitted_at, :reviewed_at, :updated_at)
        ON CONFLICT (class_id, student_id, subject_id) DO UPDATE SET
            a1_score = EXCLUDED.a1_score, a2_score = EXCLUDED.a2_score, a3_score = EXCLUDED.a3_score,
            average_score = EXCLUDED.average_score, percentage_20 = EXCLUDED.percentage_20,
            percentage_80 = EXCLUDED.percentage_80, percentage_100 = EXCLUDED.percentage_100,
            grade = EXCLUDED.grade, remarks = EXCLUDED.remarks, teacher_comment = EXCLUDED.teacher_comment,
            submitted_at = EXCLUDED.submitted_at, updated_at = EXCLUDED.updated_at
        WHERE subject_submissions.status = 'pending' AND subject_submissions.teacher_id = EXCLUDED.teacher_id`
	result, err := r.db.NamedExecContext(ctx, query, submission)
	if err != nil {
		return 0, fmt.Errorf("upsert submission: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("upsert submission: %w", err)
	}
	return affected, nil
}

// UpdatePending rewrites the score fields of a pending submission owned by
// the given teacher.
func (r *SubmissionRepository) UpdatePending(ctx context.Context, submission *models.SubjectSubmission) (int64, error) {
	submission.UpdatedAt = time.Now().UTC()
	const query = `UPDATE subject_submissions SET
            a1_score = :a1_score, a2_score = :a2_score, a3_score = :a3_score, average_score = :average_score,
            percentage_20 = :percentage_20, percentage_80 = :percentage_80, percentage_100 = :percentage_100,
            grade = :grade, remarks = :remarks, teacher_comment = :teacher_comment, updated_at = :updated_at
        WHERE id = :id AND teacher_id = :teacher_id AND status = 'pending'`
	result, err := r.db.NamedExecContext(ctx, query, submission)
	if err != nil {
		return 0, fmt.Errorf("update submission: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("update submission: %w", err)
	}
	return affected, nil
}

// DeletePending removes a pending submission owned by the given teacher.
func (r *SubmissionRepository) DeletePending(ctx context.Context, id, teacherID string) (int64, error) {
	const query = `DELETE FROM subject_submissions WHERE id = $1 AND teacher_id = $2 AND status = 'pending'`
	result, err := r.db.ExecContext(ctx, query, id, teacherID)
	if err != nil {
		return 0, fmt.Errorf("delete submission: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete submission: %w", err)
	}
	return affected, nil
}

// SetStatus transitions a pending submission to approved or rejected and
// stamps reviewed_at. Zero affected rows means the submission was not pending.
func (r *SubmissionRepository) SetStatus(ctx context.Context, id string, status models.SubmissionStatus, reviewedAt time.Time) (int64, error) {
	const query = `UPDATE subject_submissions SET status = $2, reviewed_at = $3, updated_at = $3
        WHERE id = $1 AND status = 'pending'`
	result, err := r.db.ExecContext(ctx, query, id, status, reviewedAt)
	if err != nil {
		return 0, fmt.Errorf("set submission status: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("set submission status: %w", err)
	}
	return affected, nil
}

// ListApproved returns the approved submissions feeding a student's report
// card, ordered for a stable printed layout.
func (r *SubmissionRepository) ListApproved(ctx context.Context, classID, studentID string) ([]models.SubjectSubmission, error) {
	query := `SELECT ` + submissionColumns + ` FROM subject_submissions
        WHERE class_id = $1 AND student_id = $2 AND status = 'approved' ORDER BY subject_id ASC`
	var submissions []models.SubjectSubmission
	if err := r.db.SelectContext(ctx, &submissions, query, classID, studentID); err != nil {
		return nil, fmt.Errorf("list approved submissions: %w", err)
	}
	return submissions, nil
}
