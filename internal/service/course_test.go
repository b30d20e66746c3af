package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"lms_backend/internal/domain"
	apperr "lms_backend/pkg/errors"
	"lms_backend/pkg/logger"
)

func newCourseFixture() (*mockCourseRepo, *mockUserRepo, CourseService) {
	courseRepo := new(mockCourseRepo)
	userRepo := new(mockUserRepo)
	svc := NewCourseService(courseRepo, userRepo, logger.NewNop())
	return courseRepo, userRepo, svc
}

func TestCreateCourseDefaults(t *testing.T) {
	courseRepo, _, svc := newCourseFixture()

	courseRepo.On("Create", mock.Anything, mock.Anything).Return(nil)

	course, err := svc.Create(context.Background(), &domain.Course{Name: "Go Basics", Price: 10000})
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, course.ID)
	assert.Equal(t, domain.CourseStateUpcoming, course.State)
	assert.NotNil(t, course.LiveClasses)
	assert.NotNil(t, course.Materials)
}

func TestCreateCourseValidation(t *testing.T) {
	_, _, svc := newCourseFixture()

	_, err := svc.Create(context.Background(), &domain.Course{Price: 100})
	assert.ErrorIs(t, err, apperr.ErrBadRequest, "missing name")

	_, err = svc.Create(context.Background(), &domain.Course{Name: "x", Price: -1})
	assert.ErrorIs(t, err, apperr.ErrBadRequest, "negative price")
}

func TestAssignTeacher(t *testing.T) {
	courseRepo, userRepo, svc := newCourseFixture()

	teacher := &domain.User{ID: uuid.New(), Role: domain.RoleTeacher}
	student := &domain.User{ID: uuid.New(), Role: domain.RoleStudent}
	course := &domain.Course{ID: uuid.New(), Name: "Go Basics"}

	courseRepo.On("GetByID", mock.Anything, course.ID).Return(course, nil)
	courseRepo.On("Update", mock.Anything, course).Return(nil)
	userRepo.On("GetByID", mock.Anything, teacher.ID).Return(teacher, nil)
	userRepo.On("GetByID", mock.Anything, student.ID).Return(student, nil)

	// A non-teacher cannot be assigned.
	_, err := svc.AssignTeacher(context.Background(), course.ID, student.ID)
	assert.ErrorIs(t, err, apperr.ErrBadRequest)

	updated, err := svc.AssignTeacher(context.Background(), course.ID, teacher.ID)
	require.NoError(t, err)
	require.NotNil(t, updated.TeacherID)
	assert.Equal(t, teacher.ID, *updated.TeacherID)

	// The slot is taken now.
	_, err = svc.AssignTeacher(context.Background(), course.ID, teacher.ID)
	assert.ErrorIs(t, err, apperr.ErrConflict)
}

func TestEnrollRequiresOpenCourseAndStudentRole(t *testing.T) {
	courseRepo, userRepo, svc := newCourseFixture()

	student := &domain.User{ID: uuid.New(), Role: domain.RoleStudent}
	teacher := &domain.User{ID: uuid.New(), Role: domain.RoleTeacher}
	open := &domain.Course{ID: uuid.New(), AllowNewEnrollments: true}
	closed := &domain.Course{ID: uuid.New(), AllowNewEnrollments: false}

	courseRepo.On("GetByID", mock.Anything, open.ID).Return(open, nil)
	courseRepo.On("GetByID", mock.Anything, closed.ID).Return(closed, nil)
	courseRepo.On("Enroll", mock.Anything, open.ID, student.ID).Return(nil)
	userRepo.On("GetByID", mock.Anything, student.ID).Return(student, nil)
	userRepo.On("GetByID", mock.Anything, teacher.ID).Return(teacher, nil)

	assert.NoError(t, svc.Enroll(context.Background(), open.ID, student.ID))

	err := svc.Enroll(context.Background(), closed.ID, student.ID)
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	err = svc.Enroll(context.Background(), open.ID, teacher.ID)
	assert.ErrorIs(t, err, apperr.ErrBadRequest)
}

func TestUpdateCourseAppliesPatch(t *testing.T) {
	courseRepo, _, svc := newCourseFixture()

	course := &domain.Course{ID: uuid.New(), Name: "Go Basics", Price: 10000}
	courseRepo.On("GetByID", mock.Anything, course.ID).Return(course, nil)
	courseRepo.On("Update", mock.Anything, course).Return(nil)

	name := "Advanced Go"
	price := int64(20000)
	updated, err := svc.Update(context.Background(), course.ID, &domain.CoursePatch{Name: &name, Price: &price})
	require.NoError(t, err)
	assert.Equal(t, "Advanced Go", updated.Name)
	assert.Equal(t, int64(20000), updated.Price)

	negative := int64(-5)
	_, err = svc.Update(context.Background(), course.ID, &domain.CoursePatch{Price: &negative})
	assert.ErrorIs(t, err, apperr.ErrBadRequest)
}
