package dto

// SubmitScoresRequest captures a teacher's score entry for one student and
// subject. Assessment scores travel as strings so the formatting rules can be
// enforced: A1-A3 must carry an explicit decimal fraction (bare integers are
// rejected unless exactly "0"), while the weighted percentages must be plain
// integers with no decimal point.
type SubmitScoresRequest struct {
	ClassID        string  `json:"class_id" validate:"required"`
	SubjectID      string  `json:"subject_id" validate:"required"`
	StudentID      string  `json:"student_id" validate:"required"`
	A1Score        string  `json:"a1_score" validate:"required"`
	A2Score        string  `json:"a2_score" validate:"required"`
	A3Score        string  `json:"a3_score" validate:"required"`
	Percentage20   string  `json:"percentage_20" validate:"required"`
	Percentage80   string  `json:"percentage_80" validate:"required"`
	Percentage100  string  `json:"percentage_100" validate:"required"`
	TeacherComment *string `json:"teacher_comment"`
}

// UpdateScoresRequest carries the editable fields of a pending submission.
// Identity fields come from the path; the same formatting rules apply.
type UpdateScoresRequest struct {
	A1Score        string  `json:"a1_score" validate:"required"`
	A2Score        string  `json:"a2_score" validate:"required"`
	A3Score        string  `json:"a3_score" validate:"required"`
	Percentage20   string  `json:"percentage_20" validate:"required"`
	Percentage80   string  `json:"percentage_80" validate:"required"`
	Percentage100  string  `json:"percentage_100" validate:"required"`
	TeacherComment *string `json:"teacher_comment"`
}
