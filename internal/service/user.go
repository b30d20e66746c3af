package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"lms_backend/internal/domain"
	"lms_backend/internal/repository"
	apperr "lms_backend/pkg/errors"
	"lms_backend/pkg/logger"
)

type UserService interface {
	GetProfile(ctx context.Context, userID uuid.UUID) (*domain.User, error)
	List(ctx context.Context, role string) ([]*domain.User, error)
	ChangePassword(ctx context.Context, userID uuid.UUID, oldPassword, newPassword string) error
	Delete(ctx context.Context, callerID, targetID uuid.UUID) error
}

type userService struct {
	userRepo repository.UserRepository
	log      logger.Logger
}

func NewUserService(userRepo repository.UserRepository, log logger.Logger) UserService {
	return &userService{userRepo: userRepo, log: log}
}

func (s *userService) GetProfile(ctx context.Context, userID uuid.UUID) (*domain.User, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return user.Public(), nil
}

func (s *userService) List(ctx context.Context, role string) ([]*domain.User, error) {
	if role != "" && !domain.ValidRole(role) {
		return nil, fmt.Errorf("unknown role %q: %w", role, apperr.ErrBadRequest)
	}

	users, err := s.userRepo.List(ctx, role)
	if err != nil {
		return nil, err
	}
	for i, u := range users {
		users[i] = u.Public()
	}
	return users, nil
}

func (s *userService) ChangePassword(ctx context.Context, userID uuid.UUID, oldPassword, newPassword string) error {
	if len(newPassword) < 6 {
		return fmt.Errorf("password must be at least 6 characters: %w", apperr.ErrBadRequest)
	}

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(oldPassword)); err != nil {
		return apperr.ErrInvalidCredentials
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	return s.userRepo.UpdatePassword(ctx, userID, string(hash))
}

// Delete removes a user account. Admins cannot delete themselves so the
// system is never left without an administrator by accident.
func (s *userService) Delete(ctx context.Context, callerID, targetID uuid.UUID) error {
	if callerID == targetID {
		return fmt.Errorf("cannot delete own account: %w", apperr.ErrBadRequest)
	}
	if _, err := s.userRepo.GetByID(ctx, targetID); err != nil {
		return err
	}

	if err := s.userRepo.Delete(ctx, targetID); err != nil {
		return err
	}
	s.log.Info("user deleted", "user_id", targetID, "deleted_by", callerID)
	return nil
}
