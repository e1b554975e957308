package export

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/jung-kurt/gofpdf"
)

// SubjectRow is one printed line of the subject table.
type SubjectRow struct {
	SubjectID  string
	Average    float64
	Percentage int
	Grade      string
	Identifier int
	Remarks    string
}

// ReportCardDocument holds everything the printed card shows. All values are
// preformatted strings or plain numbers; the renderer does no lookups.
type ReportCardDocument struct {
	StudentName         string
	ClassName           string
	Subjects            []SubjectRow
	OverallAverage      float64
	OverallGrade        string
	ClassTeacherComment string
	HeadteacherComment  string
	FeesBalance         string
	FeesNextTerm        string
	OtherRequirements   string
	TermEndedOn         string
	NextTermBegins      string
	GeneratedAt         time.Time
}

// ReportCardPDF renders a student's report card as a single-page A4 PDF.
type ReportCardPDF struct{}

// NewReportCardPDF constructs a report card renderer.
func NewReportCardPDF() *ReportCardPDF {
	return &ReportCardPDF{}
}

// Render produces the PDF bytes for the document.
func (e *ReportCardPDF) Render(doc ReportCardDocument) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(12, 15, 12)
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 15)
	pdf.CellFormat(0, 10, "TERMLY REPORT CARD", "", 1, "C", false, 0, "")
	pdf.Ln(2)

	pdf.SetFont("Arial", "", 11)
	pdf.CellFormat(0, 7, fmt.Sprintf("Name: %s", doc.StudentName), "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 7, fmt.Sprintf("Class: %s", doc.ClassName), "", 1, "L", false, 0, "")
	pdf.Ln(3)

	headers := []string{"Subject", "Average", "100%", "Grade", "Ident", "Remarks"}
	widths := []float64{56, 24, 20, 18, 16, 52}
	pdf.SetFont("Arial", "B", 10)
	for i, header := range headers {
		pdf.CellFormat(widths[i], 8, header, "1", 0, "C", false, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Arial", "", 9)
	for _, row := range doc.Subjects {
		pdf.CellFormat(widths[0], 7, row.SubjectID, "1", 0, "", false, 0, "")
		pdf.CellFormat(widths[1], 7, fmt.Sprintf("%.2f", row.Average), "1", 0, "R", false, 0, "")
		pdf.CellFormat(widths[2], 7, fmt.Sprintf("%d", row.Percentage), "1", 0, "R", false, 0, "")
		pdf.CellFormat(widths[3], 7, row.Grade, "1", 0, "C", false, 0, "")
		pdf.CellFormat(widths[4], 7, fmt.Sprintf("%d", row.Identifier), "1", 0, "C", false, 0, "")
		pdf.CellFormat(widths[5], 7, row.Remarks, "1", 0, "", false, 0, "")
		pdf.Ln(-1)
	}
	pdf.Ln(3)

	pdf.SetFont("Arial", "B", 11)
	pdf.CellFormat(0, 8, fmt.Sprintf("Overall Average: %.2f    Overall Grade: %s", doc.OverallAverage, doc.OverallGrade), "", 1, "L", false, 0, "")
	pdf.Ln(2)

	pdf.SetFont("Arial", "", 10)
	e.labelled(pdf, "Class Teacher's Comment", doc.ClassTeacherComment)
	e.labelled(pdf, "Headteacher's Comment", doc.HeadteacherComment)
	e.labelled(pdf, "Fees Balance", doc.FeesBalance)
	e.labelled(pdf, "Fees Next Term", doc.FeesNextTerm)
	e.labelled(pdf, "Other Requirements", doc.OtherRequirements)
	e.labelled(pdf, "Term Ended On", doc.TermEndedOn)
	e.labelled(pdf, "Next Term Begins", doc.NextTermBegins)

	if !doc.GeneratedAt.IsZero() {
		pdf.Ln(4)
		pdf.SetFont("Arial", "I", 8)
		pdf.CellFormat(0, 5, fmt.Sprintf("Generated on %s", doc.GeneratedAt.Format("2 Jan 2006 15:04")), "", 1, "R", false, 0, "")
	}

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render report card pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func (e *ReportCardPDF) labelled(pdf *gofpdf.Fpdf, label, value string) {
	if strings.TrimSpace(value) == "" {
		return
	}
	pdf.CellFormat(0, 6, fmt.Sprintf("%s: %s", label, value), "", 1, "L", false, 0, "")
}
