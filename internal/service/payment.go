package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"lms_backend/internal/config"
	"lms_backend/internal/domain"
	"lms_backend/internal/repository"
	apperr "lms_backend/pkg/errors"
	"lms_backend/pkg/logger"
)

// PaymentProvider charges a card token for the given amount. Implementations
// talk to an external gateway; the amount is in the smallest currency unit.
type PaymentProvider interface {
	Charge(ctx context.Context, token string, amount int64, description string) error
}

type PaymentService interface {
	// Pay charges the student for the course and, on success, enrolls them
	// and records a successful transaction. A failed charge is recorded too.
	Pay(ctx context.Context, studentID, courseID uuid.UUID, cardToken string) (*domain.Transaction, error)
	ListTransactions(ctx context.Context) ([]*domain.Transaction, error)
}

type paymentService struct {
	courseRepo repository.CourseRepository
	txRepo     repository.TransactionRepository
	userRepo   repository.UserRepository
	provider   PaymentProvider
	log        logger.Logger
}

func NewPaymentService(
	courseRepo repository.CourseRepository,
	txRepo repository.TransactionRepository,
	userRepo repository.UserRepository,
	provider PaymentProvider,
	log logger.Logger,
) PaymentService {
	return &paymentService{
		courseRepo: courseRepo,
		txRepo:     txRepo,
		userRepo:   userRepo,
		provider:   provider,
		log:        log,
	}
}

func (s *paymentService) Pay(ctx context.Context, studentID, courseID uuid.UUID, cardToken string) (*domain.Transaction, error) {
	if cardToken == "" {
		return nil, fmt.Errorf("missing card token: %w", apperr.ErrBadRequest)
	}

	student, err := s.userRepo.GetByID(ctx, studentID)
	if err != nil {
		return nil, err
	}
	if student.Role != domain.RoleStudent {
		return nil, fmt.Errorf("only students can purchase courses: %w", apperr.ErrForbidden)
	}

	course, err := s.courseRepo.GetByID(ctx, courseID)
	if err != nil {
		return nil, err
	}
	if !course.AllowNewEnrollments {
		return nil, fmt.Errorf("course %s is closed for enrollment: %w", course.ID, apperr.ErrForbidden)
	}
	for _, id := range course.EnrolledStudents {
		if id == studentID {
			return nil, apperr.ErrAlreadyEnrolled
		}
	}

	amount := course.Price
	if course.DiscountPrice > 0 && course.DiscountPrice < amount {
		amount = course.DiscountPrice
	}

	tx := &domain.Transaction{
		ID:        uuid.New(),
		StudentID: studentID,
		CourseID:  courseID,
		Amount:    amount,
	}

	if err := s.provider.Charge(ctx, cardToken, amount, "Enrollment: "+course.Name); err != nil {
		s.log.Warn("charge declined", "student_id", studentID, "course_id", courseID, "error", err)
		tx.Status = domain.TransactionFailed
		if recordErr := s.txRepo.Create(ctx, tx); recordErr != nil {
			s.log.Error("failed to record declined transaction", "error", recordErr)
		}
		return nil, fmt.Errorf("payment declined: %w", apperr.ErrBadRequest)
	}

	if err := s.courseRepo.Enroll(ctx, courseID, studentID); err != nil {
		if errors.Is(err, apperr.ErrAlreadyEnrolled) {
			return nil, err
		}
		s.log.Error("charge succeeded but enrollment failed", "student_id", studentID, "course_id", courseID, "error", err)
		return nil, err
	}

	tx.Status = domain.TransactionSuccess
	if err := s.txRepo.Create(ctx, tx); err != nil {
		return nil, err
	}

	s.log.Info("course purchased", "student_id", studentID, "course_id", courseID, "amount", amount)
	return tx, nil
}

func (s *paymentService) ListTransactions(ctx context.Context) ([]*domain.Transaction, error) {
	return s.txRepo.List(ctx)
}

// stripeProvider implements PaymentProvider against the Stripe charges API
// using form-encoded requests and the secret key as a bearer token.
type stripeProvider struct {
	apiBase  string
	key      string
	currency string
	client   *http.Client
	log      logger.Logger
}

func NewStripeProvider(cfg config.PaymentConfig, log logger.Logger) PaymentProvider {
	return &stripeProvider{
		apiBase:  cfg.APIBase,
		key:      cfg.SecretKey,
		currency: cfg.Currency,
		client:   &http.Client{Timeout: 30 * time.Second},
		log:      log,
	}
}

func (p *stripeProvider) Charge(ctx context.Context, token string, amount int64, description string) error {
	form := url.Values{}
	form.Set("amount", strconv.FormatInt(amount, 10))
	form.Set("currency", p.currency)
	form.Set("source", token)
	form.Set("description", description)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		p.apiBase+"/v1/charges", strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("build charge request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Authorization", "Bearer "+p.key)

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("charge request failed: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
	if resp.StatusCode >= 300 {
		p.log.Warn("gateway rejected charge", "status", resp.StatusCode, "body", string(body))
		return fmt.Errorf("gateway responded %d", resp.StatusCode)
	}
	return nil
}
