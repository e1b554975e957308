package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/report-card-api/internal/dto"
	"github.com/noah-isme/report-card-api/internal/models"
	appErrors "github.com/noah-isme/report-card-api/pkg/errors"
	"github.com/noah-isme/report-card-api/pkg/response"
)

type reportCardService interface {
	Generate(ctx context.Context, actorID string, req dto.GenerateReportCardsRequest) (*dto.GenerateReportCardsResponse, error)
	Get(ctx context.Context, studentID, classID string) (*models.ReportCard, error)
	List(ctx context.Context, filter models.ReportCardFilter) ([]models.ReportCard, error)
	Print(ctx context.Context, studentID, classID string) ([]byte, string, error)
	ExportClassResults(ctx context.Context, classID string) ([]byte, string, error)
}

// ReportCardHandler exposes the report card generation and retrieval endpoints.
type ReportCardHandler struct {
	service reportCardService
}

// NewReportCardHandler builds a new handler.
func NewReportCardHandler(service reportCardService) *ReportCardHandler {
	return &ReportCardHandler{service: service}
}

// Generate godoc
// @Summary Generate report cards
// @Description Generate or regenerate report cards for the requested students. Per-student failures are reported in the results without aborting the batch.
// @Tags Report Cards
// @Accept json
// @Produce json
// @Param payload body dto.GenerateReportCardsRequest true "Generation payload"
// @Success 200 {object} dto.GenerateReportCardsResponse
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /report-cards/generate [post]
func (h *ReportCardHandler) Generate(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req dto.GenerateReportCardsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid generation payload"))
		return
	}
	res, err := h.service.Generate(c.Request.Context(), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, res, nil)
}

// Get godoc
// @Summary Get a report card
// @Tags Report Cards
// @Produce json
// @Param studentId path string true "Student ID"
// @Param classId path string true "Class ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /report-cards/student/{studentId}/class/{classId} [get]
func (h *ReportCardHandler) Get(c *gin.Context) {
	card, err := h.service.Get(c.Request.Context(), c.Param("studentId"), c.Param("classId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, card, nil)
}

// List godoc
// @Summary List report cards
// @Tags Report Cards
// @Produce json
// @Param class_id query string false "Class filter"
// @Param student_id query string false "Student filter"
// @Param status query string false "Status filter"
// @Success 200 {object} response.Envelope
// @Router /report-cards [get]
func (h *ReportCardHandler) List(c *gin.Context) {
	filter := models.ReportCardFilter{
		ClassID:   c.Query("class_id"),
		StudentID: c.Query("student_id"),
		Status:    models.ReportCardStatus(c.Query("status")),
	}
	cards, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, cards, nil)
}

// Print godoc
// @Summary Download a report card PDF
// @Tags Report Cards
// @Produce application/pdf
// @Param studentId path string true "Student ID"
// @Param classId path string true "Class ID"
// @Success 200 {file} binary
// @Failure 404 {object} response.Envelope
// @Router /report-cards/student/{studentId}/class/{classId}/pdf [get]
func (h *ReportCardHandler) Print(c *gin.Context) {
	payload, filename, err := h.service.Print(c.Request.Context(), c.Param("studentId"), c.Param("classId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(http.StatusOK, "application/pdf", payload)
}

// ExportClass godoc
// @Summary Export class results as CSV
// @Tags Report Cards
// @Produce text/csv
// @Param classId path string true "Class ID"
// @Success 200 {file} binary
// @Failure 404 {object} response.Envelope
// @Router /classes/{classId}/report-cards/export [get]
func (h *ReportCardHandler) ExportClass(c *gin.Context) {
	payload, filename, err := h.service.ExportClassResults(c.Request.Context(), c.Param("classId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(http.StatusOK, "text/csv", payload)
}
