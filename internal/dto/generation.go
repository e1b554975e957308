package dto

// GenerationType describes the scope a generation request was issued for.
// The engine treats all three the same way; the value is echoed back for
// client-side bookkeeping.
type GenerationType string

const (
	GenerationIndividual GenerationType = "individual"
	GenerationClass      GenerationType = "class"
	GenerationStream     GenerationType = "stream"
)

// GenerateReportCardsRequest captures POST /report-cards/generate payload.
type GenerateReportCardsRequest struct {
	ClassID        string         `json:"class_id" validate:"required"`
	StudentIDs     []string       `json:"student_ids" validate:"required,min=1"`
	TemplateID     *string        `json:"template_id"`
	GenerationType GenerationType `json:"generation_type" validate:"omitempty,oneof=individual class stream"`
}

// StudentGenerationResult reports the outcome for a single student. Failures
// are recorded here rather than aborting the batch.
type StudentGenerationResult struct {
	StudentID      string   `json:"student_id"`
	Success        bool     `json:"success"`
	ReportCardID   string   `json:"report_card_id,omitempty"`
	OverallAverage *float64 `json:"overall_average,omitempty"`
	OverallGrade   string   `json:"overall_grade,omitempty"`
	Error          string   `json:"error,omitempty"`
}

// ClassInfo summarises the class a batch was generated for.
type ClassInfo struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Grade string `json:"grade,omitempty"`
}

// GenerateReportCardsResponse is the batch outcome. Success stays true even
// when individual students failed; per-item results carry the detail.
type GenerateReportCardsResponse struct {
	Success   bool                      `json:"success"`
	Message   string                    `json:"message"`
	Results   []StudentGenerationResult `json:"results"`
	ClassInfo *ClassInfo                `json:"class_info,omitempty"`
}
