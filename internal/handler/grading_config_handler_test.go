package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/report-card-api/internal/models"
	"github.com/noah-isme/report-card-api/internal/service"
	appErrors "github.com/noah-isme/report-card-api/pkg/errors"
)

type gradingConfigServiceMock struct {
	boundaries []models.GradeBoundary
	createErr  error
	deleteErr  error
}

func (m *gradingConfigServiceMock) ListBoundaries(ctx context.Context) ([]models.GradeBoundary, error) {
	return m.boundaries, nil
}

func (m *gradingConfigServiceMock) CreateBoundary(ctx context.Context, req service.GradeBoundaryRequest) (*models.GradeBoundary, error) {
	if m.createErr != nil {
		return nil, m.createErr
	}
	return &models.GradeBoundary{ID: "b1", Grade: req.Grade, MinScore: req.MinScore, MaxScore: req.MaxScore}, nil
}

func (m *gradingConfigServiceMock) UpdateBoundary(ctx context.Context, id string, req service.GradeBoundaryRequest) (*models.GradeBoundary, error) {
	return &models.GradeBoundary{ID: id, Grade: req.Grade, MinScore: req.MinScore, MaxScore: req.MaxScore}, nil
}

func (m *gradingConfigServiceMock) DeleteBoundary(ctx context.Context, id string) error {
	return m.deleteErr
}

func (m *gradingConfigServiceMock) ListTemplates(ctx context.Context) ([]models.CommentTemplate, error) {
	return nil, nil
}

func (m *gradingConfigServiceMock) CreateTemplate(ctx context.Context, req service.CommentTemplateRequest) (*models.CommentTemplate, error) {
	return &models.CommentTemplate{ID: "t1"}, nil
}

func (m *gradingConfigServiceMock) UpdateTemplate(ctx context.Context, id string, req service.CommentTemplateRequest) (*models.CommentTemplate, error) {
	return &models.CommentTemplate{ID: id}, nil
}

func (m *gradingConfigServiceMock) DeleteTemplate(ctx context.Context, id string) error {
	return nil
}

func TestGradingConfigHandlerCreateBoundary(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewGradingConfigHandler(&gradingConfigServiceMock{})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	body, _ := json.Marshal(service.GradeBoundaryRequest{Grade: "A", MinScore: 80, MaxScore: 100})
	req, _ := http.NewRequest(http.MethodPost, "/grade-boundaries", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req

	handler.CreateBoundary(c)
	assert.Equal(t, http.StatusCreated, w.Code)
}

func TestGradingConfigHandlerCreateBoundaryOverlap(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewGradingConfigHandler(&gradingConfigServiceMock{
		createErr: appErrors.Clone(appErrors.ErrValidation, "grade boundary ranges must not overlap"),
	})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	body, _ := json.Marshal(service.GradeBoundaryRequest{Grade: "B", MinScore: 75, MaxScore: 85})
	req, _ := http.NewRequest(http.MethodPost, "/grade-boundaries", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req

	handler.CreateBoundary(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGradingConfigHandlerDeleteBoundaryMissing(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewGradingConfigHandler(&gradingConfigServiceMock{
		deleteErr: appErrors.Clone(appErrors.ErrNotFound, "grade boundary not found"),
	})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodDelete, "/grade-boundaries/ghost", nil)
	c.Request = req
	c.Params = gin.Params{{Key: "id", Value: "ghost"}}

	handler.DeleteBoundary(c)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
