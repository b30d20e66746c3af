package domain

import (
	"time"

	"github.com/google/uuid"
)

const (
	CourseStateUpcoming  = "upcoming"
	CourseStateRunning   = "running"
	CourseStateCompleted = "completed"
)

type LiveClass struct {
	Name     string    `json:"name"`
	Schedule time.Time `json:"schedule"`
	Duration string    `json:"duration"`
	Status   string    `json:"status"`
}

type Material struct {
	Name string `json:"name"`
	File string `json:"file"`
}

type Course struct {
	ID                  uuid.UUID   `json:"id"`
	Name                string      `json:"name"`
	Image               string      `json:"image,omitempty"`
	Price               int64       `json:"price"`
	DiscountPrice       int64       `json:"discount_price"`
	OldPrice            int64       `json:"old_price"`
	NumberOfLessons     int         `json:"number_of_lessons"`
	Duration            string      `json:"duration"`
	StartDate           time.Time   `json:"start_date"`
	EndDate             time.Time   `json:"end_date"`
	TeacherID           *uuid.UUID  `json:"teacher_id,omitempty"`
	Teacher             *User       `json:"teacher,omitempty"`
	EnrolledStudents    []uuid.UUID `json:"enrolled_students"`
	LiveClasses         []LiveClass `json:"live_classes"`
	Materials           []Material  `json:"materials"`
	State               string      `json:"state"`
	AllowNewEnrollments bool        `json:"allow_new_enrollments"`
	CreatedAt           time.Time   `json:"created_at"`
	UpdatedAt           time.Time   `json:"updated_at"`
}

// CoursePatch carries partial updates for a course; nil fields are left
// unchanged.
type CoursePatch struct {
	Name            *string      `json:"name,omitempty"`
	Image           *string      `json:"image,omitempty"`
	Price           *int64       `json:"price,omitempty"`
	DiscountPrice   *int64       `json:"discount_price,omitempty"`
	OldPrice        *int64       `json:"old_price,omitempty"`
	NumberOfLessons *int         `json:"number_of_lessons,omitempty"`
	Duration        *string      `json:"duration,omitempty"`
	StartDate       *time.Time   `json:"start_date,omitempty"`
	EndDate         *time.Time   `json:"end_date,omitempty"`
	TeacherID       *uuid.UUID   `json:"teacher_id,omitempty"`
	LiveClasses     *[]LiveClass `json:"live_classes,omitempty"`
	Materials       *[]Material  `json:"materials,omitempty"`
}
