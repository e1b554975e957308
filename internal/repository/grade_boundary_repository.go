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

// GradeBoundaryRepository manages grade boundary persistence.
type GradeBoundaryRepository struct {
	db *sqlx.DB
}

// NewGradeBoundaryRepository creates a new repository instance.
func NewGradeBoundaryRepository(db *sqlx.DB) *GradeBoundaryRepository {
	return &GradeBoundaryRepository{db: db}
}

// List returns all boundaries ordered by range start.
func (r *GradeBoundaryRepository) List(ctx context.Context) ([]models.GradeBoundary, error) {
	const query = `SELECT id, grade, min_score, max_score, created_at, updated_at
        FROM grade_boundaries ORDER BY min_score ASC`
	var boundaries []models.GradeBoundary
	if err := r.db.SelectContext(ctx, &boundaries, query); err != nil {
		return nil, fmt.Errorf("list grade boundaries: %w", err)
	}
	return boundaries, nil
}

// FindByID returns a single boundary.
func (r *GradeBoundaryRepository) FindByID(ctx context.Context, id string) (*models.GradeBoundary, error) {
	const query = `SELECT id, grade, min_score, max_score, created_at, updated_at
        FROM grade_boundaries WHERE id = $1`
	var boundary models.GradeBoundary
	if err := r.db.GetContext(ctx, &boundary, query, id); err != nil {
		return nil, err
	}
	return &boundary, nil
}

// Create inserts a new boundary row.
func (r *GradeBoundaryRepository) Create(ctx context.Context, boundary *models.GradeBoundary) error {
	if boundary.ID == "" {
		boundary.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if boundary.CreatedAt.IsZero() {
		boundary.CreatedAt = now
	}
	boundary.UpdatedAt = now
	const query = `INSERT INTO grade_boundaries (id, grade, min_score, max_score, created_at, updated_at)
        VALUES (:id, :grade, :min_score, :max_score, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, boundary); err != nil {
		return fmt.Errorf("insert grade boundary: %w", err)
	}
	return nil
}

// Update rewrites the grade letter and range of an existing boundary.
func (r *GradeBoundaryRepository) Update(ctx context.Context, boundary *models.GradeBoundary) error {
	boundary.UpdatedAt = time.Now().UTC()
	const query = `UPDATE grade_boundaries SET grade = :grade, min_score = :min_score, max_score = :max_score, updated_at = :updated_at
        WHERE id = :id`
	result, err := r.db.NamedExecContext(ctx, query, boundary)
	if err != nil {
		return fmt.Errorf("update grade boundary: %w", err)
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return fmt.Errorf("update grade boundary %s: no rows affected", boundary.ID)
	}
	return nil
}

// Delete removes a boundary row. A missing row surfaces as sql.ErrNoRows.
func (r *GradeBoundaryRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM grade_boundaries WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("delete grade boundary: %w", err)
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
