package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"lms_backend/internal/domain"
	"lms_backend/internal/middleware"
	"lms_backend/internal/service"
	"lms_backend/pkg/logger"
)

type CourseHandler struct {
	courseService service.CourseService
	log           logger.Logger
}

func NewCourseHandler(courseService service.CourseService, log logger.Logger) *CourseHandler {
	return &CourseHandler{
		courseService: courseService,
		log:           log,
	}
}

type CreateCourseRequest struct {
	Name                string             `json:"name" binding:"required"`
	Image               string             `json:"image"`
	Price               int64              `json:"price" binding:"required"`
	DiscountPrice       int64              `json:"discount_price"`
	OldPrice            int64              `json:"old_price"`
	NumberOfLessons     int                `json:"number_of_lessons"`
	Duration            string             `json:"duration"`
	StartDate           time.Time          `json:"start_date"`
	EndDate             time.Time          `json:"end_date"`
	TeacherID           *uuid.UUID         `json:"teacher_id"`
	LiveClasses         []domain.LiveClass `json:"live_classes"`
	Materials           []domain.Material  `json:"materials"`
	AllowNewEnrollments bool               `json:"allow_new_enrollments"`
}

type AssignTeacherRequest struct {
	TeacherID uuid.UUID `json:"teacher_id" binding:"required"`
}

type EnrollRequest struct {
	StudentID uuid.UUID `json:"student_id" binding:"required"`
}

type EnrollmentStateRequest struct {
	Open *bool `json:"open" binding:"required"`
}

func (h *CourseHandler) Create(c *gin.Context) {
	var req CreateCourseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	course, err := h.courseService.Create(c.Request.Context(), &domain.Course{
		Name:                req.Name,
		Image:               req.Image,
		Price:               req.Price,
		DiscountPrice:       req.DiscountPrice,
		OldPrice:            req.OldPrice,
		NumberOfLessons:     req.NumberOfLessons,
		Duration:            req.Duration,
		StartDate:           req.StartDate,
		EndDate:             req.EndDate,
		TeacherID:           req.TeacherID,
		LiveClasses:         req.LiveClasses,
		Materials:           req.Materials,
		AllowNewEnrollments: req.AllowNewEnrollments,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, course)
}

func (h *CourseHandler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid course ID"})
		return
	}

	course, err := h.courseService.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, course)
}

func (h *CourseHandler) List(c *gin.Context) {
	courses, err := h.courseService.List(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, courses)
}

func (h *CourseHandler) Update(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid course ID"})
		return
	}

	var patch domain.CoursePatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	course, err := h.courseService.Update(c.Request.Context(), id, &patch)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, course)
}

func (h *CourseHandler) Delete(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid course ID"})
		return
	}

	if err := h.courseService.Delete(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Course deleted"})
}

func (h *CourseHandler) AssignTeacher(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid course ID"})
		return
	}

	var req AssignTeacherRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	course, err := h.courseService.AssignTeacher(c.Request.Context(), id, req.TeacherID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, course)
}

func (h *CourseHandler) RemoveTeacher(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid course ID"})
		return
	}

	course, err := h.courseService.RemoveTeacher(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, course)
}

// Enroll adds a student without payment. Admin only; paid self-enrollment
// goes through the payment checkout instead.
func (h *CourseHandler) Enroll(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid course ID"})
		return
	}

	var req EnrollRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	if err := h.courseService.Enroll(c.Request.Context(), id, req.StudentID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Student enrolled"})
}

func (h *CourseHandler) Unenroll(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid course ID"})
		return
	}
	studentID, err := uuid.Parse(c.Param("studentId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid student ID"})
		return
	}

	if err := h.courseService.Unenroll(c.Request.Context(), id, studentID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Student removed"})
}

// ListEnrolled is available to the admin and to the course's own teacher.
func (h *CourseHandler) ListEnrolled(c *gin.Context) {
	caller, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid course ID"})
		return
	}

	if caller.Role != domain.RoleAdmin {
		course, err := h.courseService.Get(c.Request.Context(), id)
		if err != nil {
			respondError(c, err)
			return
		}
		if course.TeacherID == nil || *course.TeacherID != caller.ID {
			c.JSON(http.StatusForbidden, gin.H{"error": "Insufficient permissions"})
			return
		}
	}

	students, err := h.courseService.ListEnrolled(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, students)
}

func (h *CourseHandler) SetEnrollmentState(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid course ID"})
		return
	}

	var req EnrollmentStateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	course, err := h.courseService.SetEnrollmentOpen(c.Request.Context(), id, *req.Open)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, course)
}
