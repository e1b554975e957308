package models

import "time"

// ReportCardStatus tracks the publication lifecycle of a report card.
// The aggregation engine only ever writes ReportCardGenerated; draft and
// published are admin-driven states.
type ReportCardStatus string

const (
	ReportCardGenerated ReportCardStatus = "generated"
	ReportCardDraft     ReportCardStatus = "draft"
	ReportCardPublished ReportCardStatus = "published"
)

// ReportCard is the aggregated per-student-per-class record. At most one row
// exists per (student_id, class_id); regeneration updates it in place and
// never touches the admin-entered financial or term-date fields.
type ReportCard struct {
	ID                  string           `db:"id" json:"id"`
	StudentID           string           `db:"student_id" json:"student_id"`
	ClassID             string           `db:"class_id" json:"class_id"`
	OverallAverage      float64          `db:"overall_average" json:"overall_average"`
	OverallGrade        string           `db:"overall_grade" json:"overall_grade"`
	ClassTeacherComment *string          `db:"class_teacher_comment" json:"class_teacher_comment,omitempty"`
	HeadteacherComment  *string          `db:"headteacher_comment" json:"headteacher_comment,omitempty"`
	TemplateID          *string          `db:"template_id" json:"template_id,omitempty"`
	Status              ReportCardStatus `db:"status" json:"status"`
	GeneratedAt         time.Time        `db:"generated_at" json:"generated_at"`
	GeneratedBy         string           `db:"generated_by" json:"generated_by"`
	FeesBalance         *float64         `db:"fees_balance" json:"fees_balance,omitempty"`
	FeesNextTerm        *float64         `db:"fees_next_term" json:"fees_next_term,omitempty"`
	OtherRequirements   *string          `db:"other_requirements" json:"other_requirements,omitempty"`
	TermEndedOn         *time.Time       `db:"term_ended_on" json:"term_ended_on,omitempty"`
	NextTermBegins      *time.Time       `db:"next_term_begins" json:"next_term_begins,omitempty"`
	CreatedAt           time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt           time.Time        `db:"updated_at" json:"updated_at"`
}

// ReportCardFilter narrows report card listings.
type ReportCardFilter struct {
	ClassID   string
	StudentID string
	Status    ReportCardStatus
}
