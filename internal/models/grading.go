package models

import "time"

// GradeBoundary maps a percentage range onto a letter grade. Ranges are
// admin-configured and must not overlap across the full set.
type GradeBoundary struct {
	ID        string    `db:"id" json:"id"`
	Grade     string    `db:"grade" json:"grade"`
	MinScore  float64   `db:"min_score" json:"min_score"`
	MaxScore  float64   `db:"max_score" json:"max_score"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// CommentTemplate maps an overall-average range onto the pair of free-text
// comments printed on a report card. Overlap between templates is not
// validated; matching resolves by (min_percentage, id) ordering.
type CommentTemplate struct {
	ID                  string    `db:"id" json:"id"`
	MinPercentage       int       `db:"min_percentage" json:"min_percentage"`
	MaxPercentage       int       `db:"max_percentage" json:"max_percentage"`
	ClassTeacherComment string    `db:"class_teacher_comment" json:"class_teacher_comment"`
	HeadteacherComment  string    `db:"headteacher_comment" json:"headteacher_comment"`
	CreatedAt           time.Time `db:"created_at" json:"created_at"`
	UpdatedAt           time.Time `db:"updated_at" json:"updated_at"`
}

// CommentPair holds the resolved comments for an overall average.
type CommentPair struct {
	TemplateID          string `json:"template_id"`
	ClassTeacherComment string `json:"class_teacher_comment"`
	HeadteacherComment  string `json:"headteacher_comment"`
}

// GradingSnapshot is the read-only configuration state captured once per
// generation batch so every student in the batch grades consistently.
type GradingSnapshot struct {
	Boundaries []GradeBoundary   `json:"boundaries"`
	Templates  []CommentTemplate `json:"templates"`
}
