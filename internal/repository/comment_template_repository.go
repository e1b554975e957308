package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/report-card-api/internal/models"
)

// CommentTemplateRepository manages comment template persistence.
type CommentTemplateRepository struct {
	db *sqlx.DB
}

// NewCommentTemplateRepository creates a new repository instance.
func NewCommentTemplateRepository(db *sqlx.DB) *CommentTemplateRepository {
	return &CommentTemplateRepository{db: db}
}

// List returns all templates. The (min_percentage, id) ordering is the
// tie-break the matcher relies on, since template ranges may overlap.
func (r *CommentTemplateRepository) List(ctx context.Context) ([]models.CommentTemplate, error) {
	const query = `SELECT id, min_percentage, max_percentage, class_teacher_comment, headteacher_comment, created_at, updated_at
        FROM comment_templates ORDER BY min_percentage ASC, id ASC`
	var templates []models.CommentTemplate
	if err := r.db.SelectContext(ctx, &templates, query); err != nil {
		return nil, fmt.Errorf("list comment templates: %w", err)
	}
	return templates, nil
}

// FindByID returns a single template.
func (r *CommentTemplateRepository) FindByID(ctx context.Context, id string) (*models.CommentTemplate, error) {
	const query = `SELECT id, min_percentage, max_percentage, class_teacher_comment, headteacher_comment, created_at, updated_at
        FROM comment_templates WHERE id = $1`
	var template models.CommentTemplate
	if err := r.db.GetContext(ctx, &template, query, id); err != nil {
		return nil, err
	}
	return &template, nil
}

// Create inserts a new template row.
func (r *CommentTemplateRepository) Create(ctx context.Context, template *models.CommentTemplate) error {
	if template.ID == "" {
		template.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if template.CreatedAt.IsZero() {
		template.CreatedAt = now
	}
	template.UpdatedAt = now
	const query = `INSERT INTO comment_templates (id, min_percentage, max_percentage, class_teacher_comment, headteacher_comment, created_at, updated_at)
        VALUES (:id, :min_percentage, :max_percentage, :class_teacher_comment, :headteacher_comment, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, template); err != nil {
		return fmt.Errorf("insert comment template: %w", err)
	}
	return nil
}

// Update rewrites an existing template.
func (r *CommentTemplateRepository) Update(ctx context.Context, template *models.CommentTemplate) error {
	template.UpdatedAt = time.Now().UTC()
	const query = `UPDATE comment_templates SET min_percentage = :min_percentage, max_percentage = :max_percentage,
        class_teacher_comment = :class_teacher_comment, headteacher_comment = :headteacher_comment, updated_at = :updated_at
        WHERE id = :id`
	result, err := r.db.NamedExecContext(ctx, query, template)
	if err != nil {
		return fmt.Errorf("update comment template: %w", err)
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return fmt.Errorf("update comment template %s: no rows affected", template.ID)
	}
	return nil
}

// Delete removes a template row. A missing row surfaces as sql.ErrNoRows.
func (r *CommentTemplateRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM comment_templates WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("delete comment template: %w", err)
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
