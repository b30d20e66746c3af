package domain

import (
	"time"

	"github.com/google/uuid"
)

const (
	TransactionSuccess = "success"
	TransactionFailed  = "failed"
)

type Transaction struct {
	ID        uuid.UUID `json:"id"`
	StudentID uuid.UUID `json:"student_id"`
	Student   *User     `json:"student,omitempty"`
	CourseID  uuid.UUID `json:"course_id"`
	Course    *Course   `json:"course,omitempty"`
	Amount    int64     `json:"amount"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}
