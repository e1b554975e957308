package models

import "time"

// SubmissionStatus tracks the review lifecycle of a subject submission.
type SubmissionStatus string

const (
	// SubmissionPending is the initial state; the owning teacher may still
	// edit or delete the row.
	SubmissionPending SubmissionStatus = "pending"
	// SubmissionApproved marks the row eligible for report-card aggregation.
	SubmissionApproved SubmissionStatus = "approved"
	// SubmissionRejected permanently excludes the row from aggregation.
	SubmissionRejected SubmissionStatus = "rejected"
)

// SubjectSubmission is a teacher's scored entry for one student+subject in a
// class, uniquely keyed by (class_id, student_id, subject_id).
type SubjectSubmission struct {
	ID             string           `db:"id" json:"id"`
	TeacherID      string           `db:"teacher_id" json:"teacher_id"`
	ClassID        string           `db:"class_id" json:"class_id"`
	SubjectID      string           `db:"subject_id" json:"subject_id"`
	StudentID      string           `db:"student_id" json:"student_id"`
	A1Score        float64          `db:"a1_score" json:"a1_score"`
	A2Score        float64          `db:"a2_score" json:"a2_score"`
	A3Score        float64          `db:"a3_score" json:"a3_score"`
	AverageScore   float64          `db:"average_score" json:"average_score"`
	Percentage20   int              `db:"percentage_20" json:"percentage_20"`
	Percentage80   int              `db:"percentage_80" json:"percentage_80"`
	Percentage100  int              `db:"percentage_100" json:"percentage_100"`
	Grade          string           `db:"grade" json:"grade"`
	Remarks        string           `db:"remarks" json:"remarks"`
	TeacherComment *string          `db:"teacher_comment" json:"teacher_comment,omitempty"`
	Status         SubmissionStatus `db:"status" json:"status"`
	SubmittedAt    time.Time        `db:"submitted_at" json:"submitted_at"`
	ReviewedAt     *time.Time       `db:"reviewed_at" json:"reviewed_at,omitempty"`
	UpdatedAt      time.Time        `db:"updated_at" json:"updated_at"`
}

// SubmissionFilter narrows submission listings.
type SubmissionFilter struct {
	TeacherID string
	ClassID   string
	StudentID string
	SubjectID string
	Status    SubmissionStatus
}
