package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/report-card-api/internal/models"
)

const reportCardColumns = `id, student_id, class_id, overall_average, overall_grade, class_teacher_comment,
        headteacher_comment, template_id, status, generated_at, generated_by, fees_balance, fees_next_term,
        other_requirements, term_ended_on, next_term_begins, created_at, updated_at`

// ReportCardRepository persists aggregated report cards. A (student_id,
// class_id) pair owns at most one row; the unique key at the storage layer is
// the sole concurrency guard for concurrent generation requests.
type ReportCardRepository struct {
	db *sqlx.DB
}

// NewReportCardRepository constructs the repository.
func NewReportCardRepository(db *sqlx.DB) *ReportCardRepository {
	return &ReportCardRepository{db: db}
}

// List returns report cards matching the filter.
func (r *ReportCardRepository) List(ctx context.Context, filter models.ReportCardFilter) ([]models.ReportCard, error) {
	query := `SELECT ` + reportCardColumns + ` FROM report_cards WHERE 1=1`
	var args []interface{}
	if filter.ClassID != "" {
		query += fmt.Sprintf(" AND class_id = $%d", len(args)+1)
		args = append(args, filter.ClassID)
	}
	if filter.StudentID != "" {
		query += fmt.Sprintf(" AND student_id = $%d", len(args)+1)
		args = append(args, filter.StudentID)
	}
	if filter.Status != "" {
		query += fmt.Sprintf(" AND status = $%d", len(args)+1)
		args = append(args, filter.Status)
	}
	query += " ORDER BY generated_at DESC"
	var cards []models.ReportCard
	if err := r.db.SelectContext(ctx, &cards, query, args...); err != nil {
		return nil, fmt.Errorf("list report cards: %w", err)
	}
	return cards, nil
}

// FindByStudentAndClass returns the single card for the pair, if any.
func (r *ReportCardRepository) FindByStudentAndClass(ctx context.Context, studentID, classID string) (*models.ReportCard, error) {
	query := `SELECT ` + reportCardColumns + ` FROM report_cards WHERE student_id = $1 AND class_id = $2`
	var card models.ReportCard
	if err := r.db.GetContext(ctx, &card, query, studentID, classID); err != nil {
		return nil, err
	}
	return &card, nil
}

// Create inserts a freshly generated card. Financial and term-date fields are
// left at their defaults for the admin to fill in later.
func (r *ReportCardRepository) Create(ctx context.Context, card *models.ReportCard) error {
	if card.ID == "" {
		card.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if card.CreatedAt.IsZero() {
		card.CreatedAt = now
	}
	card.UpdatedAt = now
	const query = `INSERT INTO report_cards (id, student_id, class_id, overall_average, overall_grade,
            class_teacher_comment, headteacher_comment, template_id, status, generated_at, generated_by,
            fees_balance, fees_next_term, other_requirements, term_ended_on, next_term_begins, created_at, updated_at)
        VALUES (:id, :student_id, :class_id, :overall_average, :overall_grade,
            :class_teacher_comment, :headteacher_comment, :template_id, :status, :generated_at, :generated_by,
            :fees_balance, :fees_next_term, :other_requirements, :term_ended_on, :next_term_begins, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, card); err != nil {
		return fmt.Errorf("insert report card: %w", err)
	}
	return nil
}

// UpdateComputed rewrites only the fields the aggregation engine owns.
// fees_balance, fees_next_term, other_requirements and the term dates are
// admin-entered and must survive regeneration untouched.
func (r *ReportCardRepository) UpdateComputed(ctx context.Context, card *models.ReportCard) error {
	card.UpdatedAt = time.Now().UTC()
	const query = `UPDATE report_cards SET overall_average = :overall_average, overall_grade = :overall_grade,
            class_teacher_comment = :class_teacher_comment, headteacher_comment = :headteacher_comment,
            template_id = :template_id, status = :status, generated_at = :generated_at, generated_by = :generated_by,
            updated_at = :updated_at
        WHERE student_id = :student_id AND class_id = :class_id`
	result, err := r.db.NamedExecContext(ctx, query, card)
	if err != nil {
		return fmt.Errorf("update report card: %w", err)
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return fmt.Errorf("update report card for student %s: no rows affected", card.StudentID)
	}
	return nil
}
