package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/report-card-api/internal/models"
	"github.com/noah-isme/report-card-api/internal/service"
	appErrors "github.com/noah-isme/report-card-api/pkg/errors"
	"github.com/noah-isme/report-card-api/pkg/response"
)

type gradingConfigService interface {
	ListBoundaries(ctx context.Context) ([]models.GradeBoundary, error)
	CreateBoundary(ctx context.Context, req service.GradeBoundaryRequest) (*models.GradeBoundary, error)
	UpdateBoundary(ctx context.Context, id string, req service.GradeBoundaryRequest) (*models.GradeBoundary, error)
	DeleteBoundary(ctx context.Context, id string) error
	ListTemplates(ctx context.Context) ([]models.CommentTemplate, error)
	CreateTemplate(ctx context.Context, req service.CommentTemplateRequest) (*models.CommentTemplate, error)
	UpdateTemplate(ctx context.Context, id string, req service.CommentTemplateRequest) (*models.CommentTemplate, error)
	DeleteTemplate(ctx context.Context, id string) error
}

// GradingConfigHandler exposes grade boundary and comment template endpoints.
type GradingConfigHandler struct {
	service gradingConfigService
}

// NewGradingConfigHandler builds a new handler.
func NewGradingConfigHandler(service gradingConfigService) *GradingConfigHandler {
	return &GradingConfigHandler{service: service}
}

// ListBoundaries godoc
// @Summary List grade boundaries
// @Tags Grading Configuration
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /grade-boundaries [get]
func (h *GradingConfigHandler) ListBoundaries(c *gin.Context) {
	boundaries, err := h.service.ListBoundaries(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, boundaries, nil)
}

// CreateBoundary godoc
// @Summary Create grade boundary
// @Tags Grading Configuration
// @Accept json
// @Produce json
// @Param payload body service.GradeBoundaryRequest true "Boundary payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /grade-boundaries [post]
func (h *GradingConfigHandler) CreateBoundary(c *gin.Context) {
	var req service.GradeBoundaryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid boundary payload"))
		return
	}
	boundary, err := h.service.CreateBoundary(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusCreated, boundary, nil)
}

// UpdateBoundary godoc
// @Summary Update grade boundary
// @Tags Grading Configuration
// @Accept json
// @Produce json
// @Param id path string true "Boundary ID"
// @Param payload body service.GradeBoundaryRequest true "Boundary payload"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /grade-boundaries/{id} [put]
func (h *GradingConfigHandler) UpdateBoundary(c *gin.Context) {
	var req service.GradeBoundaryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid boundary payload"))
		return
	}
	boundary, err := h.service.UpdateBoundary(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, boundary, nil)
}

// DeleteBoundary godoc
// @Summary Delete grade boundary
// @Tags Grading Configuration
// @Param id path string true "Boundary ID"
// @Success 204 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /grade-boundaries/{id} [delete]
func (h *GradingConfigHandler) DeleteBoundary(c *gin.Context) {
	if err := h.service.DeleteBoundary(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// ListTemplates godoc
// @Summary List comment templates
// @Tags Grading Configuration
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /comment-templates [get]
func (h *GradingConfigHandler) ListTemplates(c *gin.Context) {
	templates, err := h.service.ListTemplates(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, templates, nil)
}

// CreateTemplate godoc
// @Summary Create comment template
// @Tags Grading Configuration
// @Accept json
// @Produce json
// @Param payload body service.CommentTemplateRequest true "Template payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /comment-templates [post]
func (h *GradingConfigHandler) CreateTemplate(c *gin.Context) {
	var req service.CommentTemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid template payload"))
		return
	}
	template, err := h.service.CreateTemplate(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusCreated, template, nil)
}

// UpdateTemplate godoc
// @Summary Update comment template
// @Tags Grading Configuration
// @Accept json
// @Produce json
// @Param id path string true "Template ID"
// @Param payload body service.CommentTemplateRequest true "Template payload"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /comment-templates/{id} [put]
func (h *GradingConfigHandler) UpdateTemplate(c *gin.Context) {
	var req service.CommentTemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid template payload"))
		return
	}
	template, err := h.service.UpdateTemplate(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, template, nil)
}

// DeleteTemplate godoc
// @Summary Delete comment template
// @Tags Grading Configuration
// @Param id path string true "Template ID"
// @Success 204 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /comment-templates/{id} [delete]
func (h *GradingConfigHandler) DeleteTemplate(c *gin.Context) {
	if err := h.service.DeleteTemplate(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
