package service

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"lms_backend/internal/domain"
	apperr "lms_backend/pkg/errors"
	"lms_backend/pkg/logger"
)

type mockCourseRepo struct {
	mock.Mock
}

func (m *mockCourseRepo) Create(ctx context.Context, course *domain.Course) error {
	args := m.Called(ctx, course)
	return args.Error(0)
}

func (m *mockCourseRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Course, error) {
	args := m.Called(ctx, id)
	course, _ := args.Get(0).(*domain.Course)
	return course, args.Error(1)
}

func (m *mockCourseRepo) List(ctx context.Context) ([]*domain.Course, error) {
	args := m.Called(ctx)
	courses, _ := args.Get(0).([]*domain.Course)
	return courses, args.Error(1)
}

func (m *mockCourseRepo) Update(ctx context.Context, course *domain.Course) error {
	args := m.Called(ctx, course)
	return args.Error(0)
}

func (m *mockCourseRepo) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *mockCourseRepo) Enroll(ctx context.Context, courseID, studentID uuid.UUID) error {
	args := m.Called(ctx, courseID, studentID)
	return args.Error(0)
}

func (m *mockCourseRepo) Unenroll(ctx context.Context, courseID, studentID uuid.UUID) error {
	args := m.Called(ctx, courseID, studentID)
	return args.Error(0)
}

func (m *mockCourseRepo) ListEnrolled(ctx context.Context, courseID uuid.UUID) ([]*domain.User, error) {
	args := m.Called(ctx, courseID)
	users, _ := args.Get(0).([]*domain.User)
	return users, args.Error(1)
}

type mockTransactionRepo struct {
	mock.Mock
}

func (m *mockTransactionRepo) Create(ctx context.Context, tx *domain.Transaction) error {
	args := m.Called(ctx, tx)
	return args.Error(0)
}

func (m *mockTransactionRepo) List(ctx context.Context) ([]*domain.Transaction, error) {
	args := m.Called(ctx)
	txs, _ := args.Get(0).([]*domain.Transaction)
	return txs, args.Error(1)
}

type fakeProvider struct {
	err     error
	charged []int64
}

func (p *fakeProvider) Charge(_ context.Context, _ string, amount int64, _ string) error {
	if p.err != nil {
		return p.err
	}
	p.charged = append(p.charged, amount)
	return nil
}

func newPaymentFixture(provider PaymentProvider) (*mockCourseRepo, *mockTransactionRepo, *mockUserRepo, PaymentService) {
	courseRepo := new(mockCourseRepo)
	txRepo := new(mockTransactionRepo)
	userRepo := new(mockUserRepo)
	svc := NewPaymentService(courseRepo, txRepo, userRepo, provider, logger.NewNop())
	return courseRepo, txRepo, userRepo, svc
}

func TestPayEnrollsAndRecordsTransaction(t *testing.T) {
	provider := &fakeProvider{}
	courseRepo, txRepo, userRepo, svc := newPaymentFixture(provider)

	student := &domain.User{ID: uuid.New(), Role: domain.RoleStudent}
	course := &domain.Course{
		ID:                  uuid.New(),
		Name:                "Go Basics",
		Price:               10000,
		DiscountPrice:       7500,
		AllowNewEnrollments: true,
	}

	userRepo.On("GetByID", mock.Anything, student.ID).Return(student, nil)
	courseRepo.On("GetByID", mock.Anything, course.ID).Return(course, nil)
	courseRepo.On("Enroll", mock.Anything, course.ID, student.ID).Return(nil)
	txRepo.On("Create", mock.Anything, mock.Anything).Return(nil)

	tx, err := svc.Pay(context.Background(), student.ID, course.ID, "tok_visa")
	require.NoError(t, err)

	// The discounted price wins over the list price.
	assert.Equal(t, []int64{7500}, provider.charged)
	assert.Equal(t, int64(7500), tx.Amount)
	assert.Equal(t, domain.TransactionSuccess, tx.Status)

	courseRepo.AssertCalled(t, "Enroll", mock.Anything, course.ID, student.ID)
}

func TestPayDeclinedRecordsFailedTransaction(t *testing.T) {
	provider := &fakeProvider{err: errors.New("card declined")}
	courseRepo, txRepo, userRepo, svc := newPaymentFixture(provider)

	student := &domain.User{ID: uuid.New(), Role: domain.RoleStudent}
	course := &domain.Course{ID: uuid.New(), Price: 5000, AllowNewEnrollments: true}

	userRepo.On("GetByID", mock.Anything, student.ID).Return(student, nil)
	courseRepo.On("GetByID", mock.Anything, course.ID).Return(course, nil)
	txRepo.On("Create", mock.Anything, mock.MatchedBy(func(tx *domain.Transaction) bool {
		return tx.Status == domain.TransactionFailed && tx.Amount == 5000
	})).Return(nil)

	_, err := svc.Pay(context.Background(), student.ID, course.ID, "tok_visa")
	assert.ErrorIs(t, err, apperr.ErrBadRequest)

	txRepo.AssertExpectations(t)
	courseRepo.AssertNotCalled(t, "Enroll", mock.Anything, mock.Anything, mock.Anything)
}

func TestPayRejectsDuplicateEnrollment(t *testing.T) {
	provider := &fakeProvider{}
	courseRepo, _, userRepo, svc := newPaymentFixture(provider)

	student := &domain.User{ID: uuid.New(), Role: domain.RoleStudent}
	course := &domain.Course{
		ID:                  uuid.New(),
		Price:               5000,
		AllowNewEnrollments: true,
		EnrolledStudents:    []uuid.UUID{student.ID},
	}

	userRepo.On("GetByID", mock.Anything, student.ID).Return(student, nil)
	courseRepo.On("GetByID", mock.Anything, course.ID).Return(course, nil)

	_, err := svc.Pay(context.Background(), student.ID, course.ID, "tok_visa")
	assert.ErrorIs(t, err, apperr.ErrAlreadyEnrolled)
	assert.Empty(t, provider.charged)
}

func TestPayRejectsNonStudents(t *testing.T) {
	provider := &fakeProvider{}
	_, _, userRepo, svc := newPaymentFixture(provider)

	teacher := &domain.User{ID: uuid.New(), Role: domain.RoleTeacher}
	userRepo.On("GetByID", mock.Anything, teacher.ID).Return(teacher, nil)

	_, err := svc.Pay(context.Background(), teacher.ID, uuid.New(), "tok_visa")
	assert.ErrorIs(t, err, apperr.ErrForbidden)
	assert.Empty(t, provider.charged)
}

func TestPayRejectsClosedCourse(t *testing.T) {
	provider := &fakeProvider{}
	courseRepo, _, userRepo, svc := newPaymentFixture(provider)

	student := &domain.User{ID: uuid.New(), Role: domain.RoleStudent}
	course := &domain.Course{ID: uuid.New(), Price: 5000, AllowNewEnrollments: false}

	userRepo.On("GetByID", mock.Anything, student.ID).Return(student, nil)
	courseRepo.On("GetByID", mock.Anything, course.ID).Return(course, nil)

	_, err := svc.Pay(context.Background(), student.ID, course.ID, "tok_visa")
	assert.ErrorIs(t, err, apperr.ErrForbidden)
}
