package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"lms_backend/internal/domain"
	"lms_backend/internal/repository"
	apperr "lms_backend/pkg/errors"
	"lms_backend/pkg/logger"
)

type CourseService interface {
	Create(ctx context.Context, course *domain.Course) (*domain.Course, error)
	Get(ctx context.Context, id uuid.UUID) (*domain.Course, error)
	List(ctx context.Context) ([]*domain.Course, error)
	Update(ctx context.Context, id uuid.UUID, patch *domain.CoursePatch) (*domain.Course, error)
	Delete(ctx context.Context, id uuid.UUID) error

	AssignTeacher(ctx context.Context, courseID, teacherID uuid.UUID) (*domain.Course, error)
	RemoveTeacher(ctx context.Context, courseID uuid.UUID) (*domain.Course, error)

	Enroll(ctx context.Context, courseID, studentID uuid.UUID) error
	Unenroll(ctx context.Context, courseID, studentID uuid.UUID) error
	ListEnrolled(ctx context.Context, courseID uuid.UUID) ([]*domain.User, error)
	SetEnrollmentOpen(ctx context.Context, courseID uuid.UUID, open bool) (*domain.Course, error)
}

type courseService struct {
	courseRepo repository.CourseRepository
	userRepo   repository.UserRepository
	log        logger.Logger
}

func NewCourseService(courseRepo repository.CourseRepository, userRepo repository.UserRepository, log logger.Logger) CourseService {
	return &courseService{courseRepo: courseRepo, userRepo: userRepo, log: log}
}

func (s *courseService) Create(ctx context.Context, course *domain.Course) (*domain.Course, error) {
	if course.Name == "" {
		return nil, fmt.Errorf("course name is required: %w", apperr.ErrBadRequest)
	}
	if course.Price < 0 {
		return nil, fmt.Errorf("price cannot be negative: %w", apperr.ErrBadRequest)
	}
	if course.TeacherID != nil {
		if err := s.requireTeacher(ctx, *course.TeacherID); err != nil {
			return nil, err
		}
	}

	course.ID = uuid.New()
	if course.State == "" {
		course.State = domain.CourseStateUpcoming
	}
	if course.LiveClasses == nil {
		course.LiveClasses = []domain.LiveClass{}
	}
	if course.Materials == nil {
		course.Materials = []domain.Material{}
	}

	if err := s.courseRepo.Create(ctx, course); err != nil {
		return nil, err
	}
	s.log.Info("course created", "course_id", course.ID, "name", course.Name)
	return course, nil
}

func (s *courseService) Get(ctx context.Context, id uuid.UUID) (*domain.Course, error) {
	return s.courseRepo.GetByID(ctx, id)
}

func (s *courseService) List(ctx context.Context) ([]*domain.Course, error) {
	return s.courseRepo.List(ctx)
}

func (s *courseService) Update(ctx context.Context, id uuid.UUID, patch *domain.CoursePatch) (*domain.Course, error) {
	course, err := s.courseRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	applyCoursePatch(course, patch)
	if course.Price < 0 {
		return nil, fmt.Errorf("price cannot be negative: %w", apperr.ErrBadRequest)
	}
	if patch.TeacherID != nil {
		if err := s.requireTeacher(ctx, *patch.TeacherID); err != nil {
			return nil, err
		}
	}

	if err := s.courseRepo.Update(ctx, course); err != nil {
		return nil, err
	}
	return course, nil
}

func (s *courseService) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.courseRepo.Delete(ctx, id); err != nil {
		return err
	}
	s.log.Info("course deleted", "course_id", id)
	return nil
}

// AssignTeacher sets the course teacher. A course holds at most one teacher;
// reassignment requires removing the current one first.
func (s *courseService) AssignTeacher(ctx context.Context, courseID, teacherID uuid.UUID) (*domain.Course, error) {
	course, err := s.courseRepo.GetByID(ctx, courseID)
	if err != nil {
		return nil, err
	}
	if course.TeacherID != nil {
		return nil, fmt.Errorf("course already has a teacher: %w", apperr.ErrConflict)
	}
	if err := s.requireTeacher(ctx, teacherID); err != nil {
		return nil, err
	}

	course.TeacherID = &teacherID
	if err := s.courseRepo.Update(ctx, course); err != nil {
		return nil, err
	}
	return course, nil
}

func (s *courseService) RemoveTeacher(ctx context.Context, courseID uuid.UUID) (*domain.Course, error) {
	course, err := s.courseRepo.GetByID(ctx, courseID)
	if err != nil {
		return nil, err
	}
	if course.TeacherID == nil {
		return nil, fmt.Errorf("course has no teacher assigned: %w", apperr.ErrBadRequest)
	}

	course.TeacherID = nil
	course.Teacher = nil
	if err := s.courseRepo.Update(ctx, course); err != nil {
		return nil, err
	}
	return course, nil
}

func (s *courseService) Enroll(ctx context.Context, courseID, studentID uuid.UUID) error {
	course, err := s.courseRepo.GetByID(ctx, courseID)
	if err != nil {
		return err
	}
	if !course.AllowNewEnrollments {
		return fmt.Errorf("course %s is closed for enrollment: %w", courseID, apperr.ErrForbidden)
	}

	student, err := s.userRepo.GetByID(ctx, studentID)
	if err != nil {
		return err
	}
	if student.Role != domain.RoleStudent {
		return fmt.Errorf("only students can be enrolled: %w", apperr.ErrBadRequest)
	}

	return s.courseRepo.Enroll(ctx, courseID, studentID)
}

func (s *courseService) Unenroll(ctx context.Context, courseID, studentID uuid.UUID) error {
	if _, err := s.courseRepo.GetByID(ctx, courseID); err != nil {
		return err
	}
	return s.courseRepo.Unenroll(ctx, courseID, studentID)
}

func (s *courseService) ListEnrolled(ctx context.Context, courseID uuid.UUID) ([]*domain.User, error) {
	if _, err := s.courseRepo.GetByID(ctx, courseID); err != nil {
		return nil, err
	}

	students, err := s.courseRepo.ListEnrolled(ctx, courseID)
	if err != nil {
		return nil, err
	}
	for i, u := range students {
		students[i] = u.Public()
	}
	return students, nil
}

func (s *courseService) SetEnrollmentOpen(ctx context.Context, courseID uuid.UUID, open bool) (*domain.Course, error) {
	course, err := s.courseRepo.GetByID(ctx, courseID)
	if err != nil {
		return nil, err
	}

	course.AllowNewEnrollments = open
	if err := s.courseRepo.Update(ctx, course); err != nil {
		return nil, err
	}
	return course, nil
}

func (s *courseService) requireTeacher(ctx context.Context, id uuid.UUID) error {
	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if user.Role != domain.RoleTeacher {
		return fmt.Errorf("user %s is not a teacher: %w", id, apperr.ErrBadRequest)
	}
	return nil
}

func applyCoursePatch(course *domain.Course, patch *domain.CoursePatch) {
	if patch.Name != nil {
		course.Name = *patch.Name
	}
	if patch.Image != nil {
		course.Image = *patch.Image
	}
	if patch.Price != nil {
		course.Price = *patch.Price
	}
	if patch.DiscountPrice != nil {
		course.DiscountPrice = *patch.DiscountPrice
	}
	if patch.OldPrice != nil {
		course.OldPrice = *patch.OldPrice
	}
	if patch.NumberOfLessons != nil {
		course.NumberOfLessons = *patch.NumberOfLessons
	}
	if patch.Duration != nil {
		course.Duration = *patch.Duration
	}
	if patch.StartDate != nil {
		course.StartDate = *patch.StartDate
	}
	if patch.EndDate != nil {
		course.EndDate = *patch.EndDate
	}
	if patch.TeacherID != nil {
		course.TeacherID = patch.TeacherID
	}
	if patch.LiveClasses != nil {
		course.LiveClasses = *patch.LiveClasses
	}
	if patch.Materials != nil {
		course.Materials = *patch.Materials
	}
}
