package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"lms_backend/internal/domain"
	apperr "lms_backend/pkg/errors"
	"lms_backend/pkg/logger"
)

type TransactionRepository interface {
	Create(ctx context.Context, tx *domain.Transaction) error
	List(ctx context.Context) ([]*domain.Transaction, error)
}

type transactionRepository struct {
	db  *pgxpool.Pool
	log logger.Logger
}

func NewTransactionRepository(db *pgxpool.Pool, log logger.Logger) TransactionRepository {
	return &transactionRepository{db: db, log: log}
}

func (r *transactionRepository) Create(ctx context.Context, tx *domain.Transaction) error {
	query := `
		INSERT INTO transactions (id, student_id, course_id, amount, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at
	`

	err := r.db.QueryRow(ctx, query,
		tx.ID, tx.StudentID, tx.CourseID, tx.Amount, tx.Status,
	).Scan(&tx.CreatedAt)

	if err != nil {
		r.log.Error("failed to create transaction", "error", err)
		return fmt.Errorf("%w: %v", apperr.ErrStoreFailure, err)
	}
	return nil
}

// List returns all transactions with student and course display attributes
// resolved.
func (r *transactionRepository) List(ctx context.Context) ([]*domain.Transaction, error) {
	query := `
		SELECT t.id, t.student_id, t.course_id, t.amount, t.status, t.created_at,
		       u.name, u.email, c.name
		FROM transactions t
		JOIN users u ON u.id = t.student_id
		JOIN courses c ON c.id = t.course_id
		ORDER BY t.created_at DESC
	`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		r.log.Error("failed to list transactions", "error", err)
		return nil, fmt.Errorf("%w: %v", apperr.ErrStoreFailure, err)
	}
	defer rows.Close()

	var txs []*domain.Transaction
	for rows.Next() {
		tx := &domain.Transaction{Student: &domain.User{}, Course: &domain.Course{}}
		err := rows.Scan(&tx.ID, &tx.StudentID, &tx.CourseID, &tx.Amount,
			&tx.Status, &tx.CreatedAt, &tx.Student.Name, &tx.Student.Email, &tx.Course.Name)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", apperr.ErrStoreFailure, err)
		}
		tx.Student.ID = tx.StudentID
		tx.Course.ID = tx.CourseID
		txs = append(txs, tx)
	}
	return txs, rows.Err()
}
