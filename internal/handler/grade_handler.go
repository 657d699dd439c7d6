package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/campus-records-api/internal/models"
	"github.com/noah-isme/campus-records-api/pkg/response"
)

type gradeAggregator interface {
	AddComponent(ctx context.Context, req models.AddComponentRequest) (*models.ComponentResult, error)
	UpdateScore(ctx context.Context, componentID string, req models.UpdateScoreRequest) (*models.ComponentResult, error)
	ListComponents(ctx context.Context, enrollmentID string) (*models.GradeBook, error)
}

// GradeHandler exposes grade components and final grade aggregation.
type GradeHandler struct {
	grades      gradeAggregator
	enrollments enrollmentReader
}

// NewGradeHandler constructs GradeHandler.
func NewGradeHandler(grades gradeAggregator, enrollments enrollmentReader) *GradeHandler {
	return &GradeHandler{grades: grades, enrollments: enrollments}
}

// AddComponent godoc
// @Summary Add grade component
// @Description Adds a weighted component; reaching a total weight of 100 posts the final grade
// @Tags Grades
// @Accept json
// @Produce json
// @Param payload body models.AddComponentRequest true "Component payload"
// @Success 201 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /grade-components [post]
func (h *GradeHandler) AddComponent(c *gin.Context) {
	var req models.AddComponentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "invalid component payload"))
		return
	}
	res, err := h.grades.AddComponent(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Outcome(c, http.StatusCreated, res.Outcome, res)
}

// UpdateScore godoc
// @Summary Update component score
// @Description Sets or clears the score; never triggers finalization
// @Tags Grades
// @Accept json
// @Produce json
// @Param id path string true "Component ID"
// @Param payload body models.UpdateScoreRequest true "Score payload"
// @Success 200 {object} response.Envelope
// @Router /grade-components/{id}/score [patch]
func (h *GradeHandler) UpdateScore(c *gin.Context) {
	var req models.UpdateScoreRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "invalid score payload"))
		return
	}
	res, err := h.grades.UpdateScore(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Outcome(c, http.StatusOK, res.Outcome, res)
}

// List godoc
// @Summary List grade components of an enrollment
// @Tags Grades
// @Produce json
// @Param id path string true "Enrollment ID"
// @Success 200 {object} response.Envelope
// @Router /enrollments/{id}/components [get]
func (h *GradeHandler) List(c *gin.Context) {
	enrollment, err := loadOwnedEnrollment(c, h.enrollments, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	book, err := h.grades.ListComponents(c.Request.Context(), enrollment.ID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, book, nil)
}
