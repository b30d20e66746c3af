package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"lms_backend/internal/domain"
	apperr "lms_backend/pkg/errors"
	"lms_backend/pkg/logger"
)

type CourseRepository interface {
	Create(ctx context.Context, course *domain.Course) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Course, error)
	List(ctx context.Context) ([]*domain.Course, error)
	Update(ctx context.Context, course *domain.Course) error
	Delete(ctx context.Context, id uuid.UUID) error

	Enroll(ctx context.Context, courseID, studentID uuid.UUID) error
	Unenroll(ctx context.Context, courseID, studentID uuid.UUID) error
	ListEnrolled(ctx context.Context, courseID uuid.UUID) ([]*domain.User, error)
}

type courseRepository struct {
	db  *pgxpool.Pool
	log logger.Logger
}

func NewCourseRepository(db *pgxpool.Pool, log logger.Logger) CourseRepository {
	return &courseRepository{db: db, log: log}
}

func (r *courseRepository) Create(ctx context.Context, course *domain.Course) error {
	liveClasses, err := json.Marshal(course.LiveClasses)
	if err != nil {
		return fmt.Errorf("%w: %v", apperr.ErrBadRequest, err)
	}
	materials, err := json.Marshal(course.Materials)
	if err != nil {
		return fmt.Errorf("%w: %v", apperr.ErrBadRequest, err)
	}

	query := `
		INSERT INTO courses (id, name, image, price, discount_price, old_price, number_of_lessons,
			duration, start_date, end_date, teacher_id, live_classes, materials, state,
			allow_new_enrollments, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $16)
		RETURNING created_at, updated_at
	`

	err = r.db.QueryRow(ctx, query,
		course.ID, course.Name, course.Image, course.Price, course.DiscountPrice,
		course.OldPrice, course.NumberOfLessons, course.Duration, course.StartDate,
		course.EndDate, course.TeacherID, liveClasses, materials, course.State,
		course.AllowNewEnrollments, time.Now(),
	).Scan(&course.CreatedAt, &course.UpdatedAt)

	if err != nil {
		r.log.Error("failed to create course", "error", err)
		return fmt.Errorf("%w: %v", apperr.ErrStoreFailure, err)
	}
	return nil
}

const courseColumns = `c.id, c.name, c.image, c.price, c.discount_price, c.old_price,
	c.number_of_lessons, c.duration, c.start_date, c.end_date, c.teacher_id,
	c.live_classes, c.materials, c.state, c.allow_new_enrollments, c.created_at, c.updated_at`

func scanCourse(row pgx.Row) (*domain.Course, error) {
	course := &domain.Course{}
	var liveClasses, materials []byte
	err := row.Scan(&course.ID, &course.Name, &course.Image, &course.Price,
		&course.DiscountPrice, &course.OldPrice, &course.NumberOfLessons,
		&course.Duration, &course.StartDate, &course.EndDate, &course.TeacherID,
		&liveClasses, &materials, &course.State, &course.AllowNewEnrollments,
		&course.CreatedAt, &course.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(liveClasses, &course.LiveClasses); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(materials, &course.Materials); err != nil {
		return nil, err
	}
	return course, nil
}

func (r *courseRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Course, error) {
	query := `SELECT ` + courseColumns + ` FROM courses c WHERE c.id = $1`

	course, err := scanCourse(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("course %s: %w", id, apperr.ErrNotFound)
		}
		r.log.Error("failed to get course", "error", err)
		return nil, fmt.Errorf("%w: %v", apperr.ErrStoreFailure, err)
	}

	if err := r.loadEnrollments(ctx, course); err != nil {
		return nil, err
	}
	return course, nil
}

func (r *courseRepository) List(ctx context.Context) ([]*domain.Course, error) {
	query := `SELECT ` + courseColumns + ` FROM courses c ORDER BY c.created_at DESC`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		r.log.Error("failed to list courses", "error", err)
		return nil, fmt.Errorf("%w: %v", apperr.ErrStoreFailure, err)
	}
	defer rows.Close()

	var courses []*domain.Course
	for rows.Next() {
		course, err := scanCourse(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", apperr.ErrStoreFailure, err)
		}
		courses = append(courses, course)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", apperr.ErrStoreFailure, err)
	}

	for _, course := range courses {
		if err := r.loadEnrollments(ctx, course); err != nil {
			return nil, err
		}
	}
	return courses, nil
}

func (r *courseRepository) Update(ctx context.Context, course *domain.Course) error {
	liveClasses, err := json.Marshal(course.LiveClasses)
	if err != nil {
		return fmt.Errorf("%w: %v", apperr.ErrBadRequest, err)
	}
	materials, err := json.Marshal(course.Materials)
	if err != nil {
		return fmt.Errorf("%w: %v", apperr.ErrBadRequest, err)
	}

	query := `
		UPDATE courses
		SET name = $2, image = $3, price = $4, discount_price = $5, old_price = $6,
			number_of_lessons = $7, duration = $8, start_date = $9, end_date = $10,
			teacher_id = $11, live_classes = $12, materials = $13, state = $14,
			allow_new_enrollments = $15, updated_at = $16
		WHERE id = $1
		RETURNING updated_at
	`

	err = r.db.QueryRow(ctx, query,
		course.ID, course.Name, course.Image, course.Price, course.DiscountPrice,
		course.OldPrice, course.NumberOfLessons, course.Duration, course.StartDate,
		course.EndDate, course.TeacherID, liveClasses, materials, course.State,
		course.AllowNewEnrollments, time.Now(),
	).Scan(&course.UpdatedAt)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("course %s: %w", course.ID, apperr.ErrNotFound)
		}
		r.log.Error("failed to update course", "error", err)
		return fmt.Errorf("%w: %v", apperr.ErrStoreFailure, err)
	}
	return nil
}

func (r *courseRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM courses WHERE id = $1`, id)
	if err != nil {
		r.log.Error("failed to delete course", "error", err)
		return fmt.Errorf("%w: %v", apperr.ErrStoreFailure, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("course %s: %w", id, apperr.ErrNotFound)
	}
	return nil
}

func (r *courseRepository) Enroll(ctx context.Context, courseID, studentID uuid.UUID) error {
	query := `INSERT INTO course_enrollments (course_id, student_id) VALUES ($1, $2)`

	_, err := r.db.Exec(ctx, query, courseID, studentID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return apperr.ErrAlreadyEnrolled
		}
		r.log.Error("failed to enroll student", "error", err)
		return fmt.Errorf("%w: %v", apperr.ErrStoreFailure, err)
	}
	return nil
}

func (r *courseRepository) Unenroll(ctx context.Context, courseID, studentID uuid.UUID) error {
	_, err := r.db.Exec(ctx,
		`DELETE FROM course_enrollments WHERE course_id = $1 AND student_id = $2`,
		courseID, studentID)
	if err != nil {
		r.log.Error("failed to unenroll student", "error", err)
		return fmt.Errorf("%w: %v", apperr.ErrStoreFailure, err)
	}
	return nil
}

func (r *courseRepository) ListEnrolled(ctx context.Context, courseID uuid.UUID) ([]*domain.User, error) {
	query := `
		SELECT u.id, u.name, u.email, u.password_hash, u.role, u.created_at, u.updated_at
		FROM course_enrollments ce
		JOIN users u ON u.id = ce.student_id
		WHERE ce.course_id = $1
		ORDER BY ce.enrolled_at
	`

	rows, err := r.db.Query(ctx, query, courseID)
	if err != nil {
		r.log.Error("failed to list enrolled students", "error", err)
		return nil, fmt.Errorf("%w: %v", apperr.ErrStoreFailure, err)
	}
	defer rows.Close()

	var students []*domain.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", apperr.ErrStoreFailure, err)
		}
		students = append(students, user)
	}
	return students, rows.Err()
}

func (r *courseRepository) loadEnrollments(ctx context.Context, course *domain.Course) error {
	rows, err := r.db.Query(ctx,
		`SELECT student_id FROM course_enrollments WHERE course_id = $1 ORDER BY enrolled_at`,
		course.ID)
	if err != nil {
		r.log.Error("failed to load enrollments", "error", err)
		return fmt.Errorf("%w: %v", apperr.ErrStoreFailure, err)
	}
	defer rows.Close()

	course.EnrolledStudents = []uuid.UUID{}
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return fmt.Errorf("%w: %v", apperr.ErrStoreFailure, err)
		}
		course.EnrolledStudents = append(course.EnrolledStudents, id)
	}
	return rows.Err()
}
