package handler

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/noah-isme/campus-records-api/internal/middleware"
	"github.com/noah-isme/campus-records-api/internal/models"
	"github.com/noah-isme/campus-records-api/internal/repository"
)

// Router holds everything needed to mount the API.
type Router struct {
	Auth        *AuthHandler
	Accounts    *AccountHandler
	Sections    *SectionHandler
	Enrollments *EnrollmentHandler
	Grades      *GradeHandler
	Transcripts *TranscriptHandler
	Metrics     *MetricsHandler

	Tokens       middleware.TokenValidator
	LoginLimiter middleware.HitLimiter
	AuditLog     *repository.AccountRepository
	Logger       *zap.Logger
}

// Register mounts health, metrics and the versioned API under prefix.
func (rt Router) Register(r *gin.Engine, prefix string) {
	r.GET("/health", rt.Metrics.Health)
	r.GET("/ready", rt.Metrics.Ready)
	r.GET("/metrics", rt.Metrics.Prometheus)

	api := r.Group(prefix)

	auth := api.Group("/auth")
	if rt.LoginLimiter != nil {
		auth.POST("/login", middleware.RateLimit(rt.LoginLimiter, rt.Logger), rt.Auth.Login)
	} else {
		auth.POST("/login", rt.Auth.Login)
	}

	secured := api.Group("")
	secured.Use(middleware.JWT(rt.Tokens))
	secured.GET("/auth/me", rt.Auth.Me)
	secured.POST("/auth/change-password", rt.Auth.ChangePassword)

	accounts := secured.Group("/accounts", middleware.RequirePermission(models.PermManageAccounts))
	accounts.POST("", rt.Accounts.Register)
	accounts.GET("/:id", rt.Accounts.Get)
	accounts.POST("/:id/unlock", rt.Accounts.Unlock)
	accounts.POST("/:id/deactivate", rt.Accounts.Deactivate)

	sections := secured.Group("/sections")
	sections.GET("", rt.Sections.List)
	sections.GET("/:id", rt.Sections.Get)
	sections.POST("", middleware.RequirePermission(models.PermManageSections), rt.audit("SECTION_CREATE", "section", ""), rt.Sections.Create)

	enrollments := secured.Group("/enrollments")
	enroll := middleware.RequirePermission(models.PermEnrollSelf, models.PermManageEnrollments)
	enrollments.POST("", enroll, rt.Enrollments.Enroll)
	enrollments.POST("/drop", enroll, rt.Enrollments.Drop)
	enrollments.GET("/:id", middleware.RequirePermission(models.PermViewGrades), rt.Enrollments.Get)
	enrollments.GET("/:id/components", middleware.RequirePermission(models.PermViewGrades), rt.Grades.List)
	enrollments.PUT("/:id/final-grade", middleware.RequirePermission(models.PermRecordGrades), rt.audit("FINAL_GRADE_POST", "enrollment", "id"), rt.Enrollments.PostFinalGrade)

	components := secured.Group("/grade-components", middleware.RequirePermission(models.PermRecordGrades))
	components.POST("", rt.audit("GRADE_COMPONENT_ADD", "grade_component", ""), rt.Grades.AddComponent)
	components.PATCH("/:id/score", rt.audit("GRADE_SCORE_UPDATE", "grade_component", "id"), rt.Grades.UpdateScore)

	students := secured.Group("/students/:id")
	students.GET("/enrollments", enroll, rt.Enrollments.ListByStudent)
	students.GET("/transcript", middleware.RequirePermission(models.PermViewTranscript), rt.Transcripts.Get)
}

func (rt Router) audit(action, resource, idParam string) gin.HandlerFunc {
	if rt.AuditLog == nil {
		return func(c *gin.Context) { c.Next() }
	}
	return middleware.Audit(rt.AuditLog, rt.Logger, action, resource, idParam)
}
