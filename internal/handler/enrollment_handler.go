package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/campus-records-api/internal/models"
	appErrors "github.com/noah-isme/campus-records-api/pkg/errors"
	"github.com/noah-isme/campus-records-api/pkg/response"
)

type enrollmentLifecycle interface {
	Enroll(ctx context.Context, req models.EnrollRequest) (*models.EnrollmentResult, error)
	Drop(ctx context.Context, req models.DropRequest) (*models.EnrollmentResult, error)
	PostFinalGrade(ctx context.Context, enrollmentID string, letter models.GradeLetter) (*models.EnrollmentResult, error)
	Get(ctx context.Context, id string) (*models.Enrollment, error)
	ListByStudent(ctx context.Context, studentID string) ([]models.EnrollmentDetail, error)
}

type enrollmentReader interface {
	Get(ctx context.Context, id string) (*models.Enrollment, error)
}

// EnrollmentHandler exposes the enrollment lifecycle.
type EnrollmentHandler struct {
	enrollments enrollmentLifecycle
}

// NewEnrollmentHandler constructs EnrollmentHandler.
func NewEnrollmentHandler(enrollments enrollmentLifecycle) *EnrollmentHandler {
	return &EnrollmentHandler{enrollments: enrollments}
}

// Enroll godoc
// @Summary Enroll student in section
// @Description Students enroll themselves; staff with enrollment rights name the student
// @Tags Enrollments
// @Accept json
// @Produce json
// @Param payload body models.EnrollRequest true "Enrollment payload"
// @Success 201 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /enrollments [post]
func (h *EnrollmentHandler) Enroll(c *gin.Context) {
	var req models.EnrollRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "invalid enrollment payload"))
		return
	}
	studentID, err := actingStudent(c, req.StudentID, models.PermManageEnrollments)
	if err != nil {
		response.Error(c, err)
		return
	}
	req.StudentID = studentID

	res, err := h.enrollments.Enroll(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Outcome(c, http.StatusCreated, res.Outcome, res.Enrollment)
}

// Drop godoc
// @Summary Drop enrollment
// @Tags Enrollments
// @Accept json
// @Produce json
// @Param payload body models.DropRequest true "Drop payload"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /enrollments/drop [post]
func (h *EnrollmentHandler) Drop(c *gin.Context) {
	var req models.DropRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "invalid drop payload"))
		return
	}
	studentID, err := actingStudent(c, req.StudentID, models.PermManageEnrollments)
	if err != nil {
		response.Error(c, err)
		return
	}
	req.StudentID = studentID

	res, err := h.enrollments.Drop(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Outcome(c, http.StatusOK, res.Outcome, res.Enrollment)
}

// PostFinalGrade godoc
// @Summary Post final grade
// @Description Record the final letter; an ENROLLED enrollment becomes COMPLETED
// @Tags Enrollments
// @Accept json
// @Produce json
// @Param id path string true "Enrollment ID"
// @Param payload body models.PostFinalGradeRequest true "Final grade"
// @Success 200 {object} response.Envelope
// @Router /enrollments/{id}/final-grade [put]
func (h *EnrollmentHandler) PostFinalGrade(c *gin.Context) {
	var req models.PostFinalGradeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "invalid grade payload"))
		return
	}
	res, err := h.enrollments.PostFinalGrade(c.Request.Context(), c.Param("id"), req.Letter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Outcome(c, http.StatusOK, res.Outcome, res.Enrollment)
}

// Get godoc
// @Summary Get enrollment
// @Tags Enrollments
// @Produce json
// @Param id path string true "Enrollment ID"
// @Success 200 {object} response.Envelope
// @Router /enrollments/{id} [get]
func (h *EnrollmentHandler) Get(c *gin.Context) {
	enrollment, err := loadOwnedEnrollment(c, h.enrollments, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, enrollment, nil)
}

// ListByStudent godoc
// @Summary List a student's enrollments
// @Tags Enrollments
// @Produce json
// @Param id path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Router /students/{id}/enrollments [get]
func (h *EnrollmentHandler) ListByStudent(c *gin.Context) {
	studentID, err := actingStudent(c, c.Param("id"), models.PermManageEnrollments)
	if err != nil {
		response.Error(c, err)
		return
	}
	enrollments, err := h.enrollments.ListByStudent(c.Request.Context(), studentID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, enrollments, nil)
}

// loadOwnedEnrollment returns the enrollment when the caller may see it.
// Staff see every enrollment; students only their own.
func loadOwnedEnrollment(c *gin.Context, reader enrollmentReader, id string) (*models.Enrollment, error) {
	claims := claimsFromContext(c)
	if claims == nil {
		return nil, appErrors.ErrUnauthorized
	}
	enrollment, err := reader.Get(c.Request.Context(), id)
	if err != nil {
		return nil, err
	}
	if claims.Role.Allows(models.PermManageEnrollments) || claims.Role.Allows(models.PermRecordGrades) {
		return enrollment, nil
	}
	if enrollment.StudentID != claims.AccountID {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
	}
	return enrollment, nil
}
